package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pmpulse/backend/internal/services"
	"github.com/pmpulse/backend/pkg/response"
)

type HolidayHandler struct {
	holidayService *services.HolidayService
}

func NewHolidayHandler() *HolidayHandler {
	return &HolidayHandler{
		holidayService: services.NewHolidayService(),
	}
}

func (h *HolidayHandler) ListCountries(c *gin.Context) {
	response.Success(c, h.holidayService.GetSupportedCountries())
}

// CheckWorkday reports whether a date counts as a workday in the given
// country's calendar.
func (h *HolidayHandler) CheckWorkday(c *gin.Context) {
	dateStr := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
	country := c.DefaultQuery("country", "CN")

	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		response.BadRequest(c, "invalid date, expected YYYY-MM-DD")
		return
	}

	response.Success(c, gin.H{
		"date":       dateStr,
		"country":    country,
		"is_workday": h.holidayService.IsWorkday(date, country),
	})
}
