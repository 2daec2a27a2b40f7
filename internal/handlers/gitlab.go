package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pmpulse/backend/internal/middleware"
	"github.com/pmpulse/backend/internal/models"
	"github.com/pmpulse/backend/internal/services"
	"github.com/pmpulse/backend/pkg/response"
	"gorm.io/gorm"
)

// GitLabHandler manages per-user GitLab instances and their project
// watchlists. Access tokens never leave the server unmasked.
type GitLabHandler struct {
	db *gorm.DB
}

func NewGitLabHandler(db *gorm.DB) *GitLabHandler {
	return &GitLabHandler{db: db}
}

func (h *GitLabHandler) ListInstances(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var instances []models.GitLabInstance
	if err := h.db.Where("owner_id = ?", userID).Order("id ASC").Find(&instances).Error; err != nil {
		response.ServerError(c, err.Error())
		return
	}

	for i := range instances {
		instances[i].MaskToken()
	}
	response.Success(c, instances)
}

type createInstanceRequest struct {
	Name        string `json:"name" binding:"required"`
	URL         string `json:"url" binding:"required"`
	AccessToken string `json:"access_token" binding:"required"`
}

func (h *GitLabHandler) CreateInstance(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req createInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	instance := models.GitLabInstance{
		OwnerID:     userID,
		Name:        req.Name,
		URL:         req.URL,
		AccessToken: req.AccessToken,
		IsActive:    true,
	}
	if err := h.db.Create(&instance).Error; err != nil {
		response.ServerError(c, err.Error())
		return
	}

	instance.MaskToken()
	response.Created(c, instance)
}

type updateInstanceRequest struct {
	Name        *string `json:"name"`
	URL         *string `json:"url"`
	AccessToken *string `json:"access_token"`
	IsActive    *bool   `json:"is_active"`
}

func (h *GitLabHandler) UpdateInstance(c *gin.Context) {
	userID := middleware.GetUserID(c)

	instance, ok := h.ownedInstance(c, userID)
	if !ok {
		return
	}

	var req updateInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if req.Name != nil {
		instance.Name = *req.Name
	}
	if req.URL != nil {
		instance.URL = *req.URL
	}
	if req.AccessToken != nil && *req.AccessToken != "" {
		instance.AccessToken = *req.AccessToken
	}
	if req.IsActive != nil {
		instance.IsActive = *req.IsActive
	}

	if err := h.db.Save(instance).Error; err != nil {
		response.ServerError(c, err.Error())
		return
	}

	instance.MaskToken()
	response.Success(c, instance)
}

func (h *GitLabHandler) DeleteInstance(c *gin.Context) {
	userID := middleware.GetUserID(c)

	instance, ok := h.ownedInstance(c, userID)
	if !ok {
		return
	}

	if err := h.db.Where("instance_id = ?", instance.ID).Delete(&models.GitLabWatchlist{}).Error; err != nil {
		response.ServerError(c, err.Error())
		return
	}
	if err := h.db.Delete(instance).Error; err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "instance deleted"})
}

func (h *GitLabHandler) ListWatchlist(c *gin.Context) {
	userID := middleware.GetUserID(c)

	instance, ok := h.ownedInstance(c, userID)
	if !ok {
		return
	}

	var entries []models.GitLabWatchlist
	if err := h.db.Where("owner_id = ? AND instance_id = ?", userID, instance.ID).
		Order("gitlab_project_id ASC").Find(&entries).Error; err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, entries)
}

type addWatchlistRequest struct {
	GitLabProjectID int `json:"gitlab_project_id" binding:"required"`
}

// AddWatchlistEntry resolves the project's name against the instance before
// storing it, so the report can render a display name without another call.
func (h *GitLabHandler) AddWatchlistEntry(c *gin.Context) {
	userID := middleware.GetUserID(c)

	instance, ok := h.ownedInstance(c, userID)
	if !ok {
		return
	}

	var req addWatchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	gl := services.NewGitLabService(*instance, nil)
	name, pathWithNS, err := gl.FetchProject(c.Request.Context(), req.GitLabProjectID)
	if err != nil {
		response.BadRequest(c, "project lookup failed: "+err.Error())
		return
	}

	entry := models.GitLabWatchlist{
		OwnerID:         userID,
		InstanceID:      instance.ID,
		GitLabProjectID: req.GitLabProjectID,
		Name:            name,
		PathWithNS:      pathWithNS,
		IsIncluded:      true,
	}
	if err := h.db.Create(&entry).Error; err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Created(c, entry)
}

type updateWatchlistRequest struct {
	IsIncluded *bool `json:"is_included"`
}

func (h *GitLabHandler) UpdateWatchlistEntry(c *gin.Context) {
	userID := middleware.GetUserID(c)

	entryID, err := strconv.ParseUint(c.Param("entryId"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid watchlist entry id")
		return
	}

	var entry models.GitLabWatchlist
	if err := h.db.Where("id = ? AND owner_id = ?", entryID, userID).First(&entry).Error; err != nil {
		response.NotFound(c, "watchlist entry not found")
		return
	}

	var req updateWatchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if req.IsIncluded != nil {
		entry.IsIncluded = *req.IsIncluded
	}
	if err := h.db.Save(&entry).Error; err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, entry)
}

func (h *GitLabHandler) DeleteWatchlistEntry(c *gin.Context) {
	userID := middleware.GetUserID(c)

	entryID, err := strconv.ParseUint(c.Param("entryId"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid watchlist entry id")
		return
	}

	result := h.db.Where("id = ? AND owner_id = ?", entryID, userID).Delete(&models.GitLabWatchlist{})
	if result.Error != nil {
		response.ServerError(c, result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		response.NotFound(c, "watchlist entry not found")
		return
	}

	response.Success(c, gin.H{"message": "watchlist entry deleted"})
}

func (h *GitLabHandler) ownedInstance(c *gin.Context, userID uint) (*models.GitLabInstance, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid instance id")
		return nil, false
	}

	var instance models.GitLabInstance
	if err := h.db.Where("id = ? AND owner_id = ?", id, userID).First(&instance).Error; err != nil {
		response.NotFound(c, "instance not found")
		return nil, false
	}
	return &instance, true
}
