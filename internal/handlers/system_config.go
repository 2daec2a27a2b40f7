package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pmpulse/backend/internal/services"
	"gorm.io/gorm"
)

type SystemConfigHandler struct {
	configService *services.SystemConfigService
}

func NewSystemConfigHandler(db *gorm.DB) *SystemConfigHandler {
	return &SystemConfigHandler{
		configService: services.NewSystemConfigService(db),
	}
}

func (h *SystemConfigHandler) GetLDAPConfig(c *gin.Context) {
	config := h.configService.GetLDAPConfig()
	c.JSON(http.StatusOK, config)
}

func (h *SystemConfigHandler) UpdateLDAPConfig(c *gin.Context) {
	var req services.UpdateLDAPConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.configService.UpdateLDAPConfig(&req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.configService.GetLDAPConfig())
}

func (h *SystemConfigHandler) GetRedmineConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.configService.GetRedmineConfig())
}

func (h *SystemConfigHandler) UpdateRedmineConfig(c *gin.Context) {
	var req services.UpdateRedmineConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.configService.UpdateRedmineConfig(&req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.configService.GetRedmineConfig())
}

func (h *SystemConfigHandler) GetSummaryScheduleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.configService.GetSummaryScheduleConfig())
}

func (h *SystemConfigHandler) UpdateSummaryScheduleConfig(c *gin.Context) {
	var req services.UpdateSummaryScheduleConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.configService.UpdateSummaryScheduleConfig(&req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.configService.GetSummaryScheduleConfig())
}
