package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// SummarySettings holds a user's report targets: which Redmine projects and
// users to pull, which GitLab projects to include, and the output language.
// ID lists are stored as JSON arrays in text columns.
type SummarySettings struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	OwnerID                uint      `gorm:"uniqueIndex;not null" json:"owner_id"`
	TargetProjectIDs       string    `gorm:"type:text" json:"target_project_ids"`
	TargetUserIDs          string    `gorm:"type:text" json:"target_user_ids"`
	TargetGitLabProjectIDs string    `gorm:"type:text" json:"target_gitlab_project_ids"`
	Language               string    `gorm:"size:20;default:zh-TW" json:"language"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func (SummarySettings) TableName() string { return "summary_settings" }

// ProjectIDs decodes the target Redmine project ID list.
func (s *SummarySettings) ProjectIDs() []int { return decodeIntList(s.TargetProjectIDs) }

// UserIDs decodes the target Redmine user ID list.
func (s *SummarySettings) UserIDs() []int { return decodeIntList(s.TargetUserIDs) }

// GitLabProjectIDs decodes the target GitLab project ID list.
func (s *SummarySettings) GitLabProjectIDs() []int { return decodeIntList(s.TargetGitLabProjectIDs) }

func decodeIntList(raw string) []int {
	if raw == "" {
		return nil
	}
	var ids []int
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil
	}
	return ids
}

// EncodeIntList serializes an ID list for storage in a settings column.
func EncodeIntList(ids []int) string {
	if ids == nil {
		ids = []int{}
	}
	data, _ := json.Marshal(ids)
	return string(data)
}

// SummaryReport is a generated work-summary report.
type SummaryReport struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	OwnerID             uint           `gorm:"index;not null" json:"owner_id"`
	Title               string         `gorm:"size:200" json:"title"`
	DateRangeStart      string         `gorm:"size:10" json:"date_range_start"` // YYYY-MM-DD
	DateRangeEnd        string         `gorm:"size:10" json:"date_range_end"`
	SummaryMarkdown     string         `gorm:"type:text" json:"summary_markdown"`
	GitLabMetrics       string         `gorm:"type:text" json:"gitlab_metrics"`        // JSON, per instance
	ConversationHistory string         `gorm:"type:text" json:"conversation_history"`  // JSON message list
	Status              string         `gorm:"size:20;default:done" json:"status"`     // done, failed
	CreatedAt           time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}

func (SummaryReport) TableName() string { return "summary_reports" }
