package models

import (
	"time"

	"gorm.io/gorm"
)

// GitLabInstance represents a connected GitLab server.
type GitLabInstance struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	OwnerID     uint           `gorm:"index;not null" json:"owner_id"`
	Name        string         `gorm:"size:100;not null" json:"name"`
	URL         string         `gorm:"size:500;not null" json:"url"`
	AccessToken string         `gorm:"size:500" json:"-"`
	TokenMask   string         `gorm:"-" json:"token_mask"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (GitLabInstance) TableName() string { return "gitlab_instances" }

// MaskToken returns a masked access token for display.
func (g *GitLabInstance) MaskToken() string {
	if len(g.AccessToken) <= 8 {
		return "****"
	}
	return g.AccessToken[:4] + "****" + g.AccessToken[len(g.AccessToken)-4:]
}

// GitLabWatchlist marks a GitLab project on an instance as a candidate for
// report inclusion.
type GitLabWatchlist struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	OwnerID         uint      `gorm:"index;not null" json:"owner_id"`
	InstanceID      uint      `gorm:"index;not null" json:"instance_id"`
	GitLabProjectID int       `gorm:"not null" json:"gitlab_project_id"`
	Name            string    `gorm:"size:200" json:"name"`
	PathWithNS      string    `gorm:"size:500" json:"path_with_namespace"`
	IsIncluded      bool      `gorm:"default:true" json:"is_included"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (GitLabWatchlist) TableName() string { return "gitlab_watchlist" }
