package handlers

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pmpulse/backend/internal/config"
	"github.com/pmpulse/backend/internal/middleware"
	"github.com/pmpulse/backend/internal/services"
	"github.com/pmpulse/backend/pkg/response"
	"gorm.io/gorm"
)

type SummaryHandler struct {
	summaryService *services.SummaryService
	configService  *services.SystemConfigService
}

func NewSummaryHandler(db *gorm.DB, cfg *config.Config) *SummaryHandler {
	return &SummaryHandler{
		summaryService: services.NewSummaryService(db, cfg),
		configService:  services.NewSystemConfigService(db),
	}
}

func (h *SummaryHandler) GetSettings(c *gin.Context) {
	userID := middleware.GetUserID(c)

	settings, err := h.summaryService.GetSettings(userID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"target_project_ids":        settings.ProjectIDs(),
		"target_user_ids":           settings.UserIDs(),
		"target_gitlab_project_ids": settings.GitLabProjectIDs(),
		"language":                  settings.Language,
	})
}

func (h *SummaryHandler) UpdateSettings(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req services.UpdateSummarySettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	settings, err := h.summaryService.UpdateSettings(userID, &req)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"target_project_ids":        settings.ProjectIDs(),
		"target_user_ids":           settings.UserIDs(),
		"target_gitlab_project_ids": settings.GitLabProjectIDs(),
		"language":                  settings.Language,
	})
}

type generateSummaryRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

func (h *SummaryHandler) Generate(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req generateSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	report, async, err := h.summaryService.Generate(userID, req.StartDate, req.EndDate)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Accepted(c, gin.H{
		"report_id": report.ID,
		"title":     report.Title,
		"status":    report.Status,
		"async":     async,
	})
}

func (h *SummaryHandler) History(c *gin.Context) {
	userID := middleware.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	reports, err := h.summaryService.History(userID, limit)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, reports)
}

func (h *SummaryHandler) GetReport(c *gin.Context) {
	userID := middleware.GetUserID(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid report id")
		return
	}

	report, err := h.summaryService.GetReport(userID, uint(id))
	if err != nil {
		response.NotFound(c, "report not found")
		return
	}

	response.Success(c, report)
}

// ServeImage serves one cached report image by file name. Names are
// content-addressed hashes, so a plain base-name check is enough to keep
// requests inside the cache directory.
func (h *SummaryHandler) ServeImage(c *gin.Context) {
	name := c.Param("name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		response.BadRequest(c, "invalid image name")
		return
	}

	cacheDir := h.configService.GetWithDefault("summary_image_cache_dir", "data/images")
	c.File(filepath.Join(cacheDir, name))
}
