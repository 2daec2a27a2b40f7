package services

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pmpulse/backend/internal/models"
	"github.com/pmpulse/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// SummaryScheduler enqueues a daily report per configured owner at the
// configured time, skipping holidays. A database lock keeps multiple
// replicas from double-enqueuing the same day.
type SummaryScheduler struct {
	db             *gorm.DB
	summaryService *SummaryService
	configService  *SystemConfigService
	holidayService *HolidayService
	cronScheduler  *cron.Cron
	currentEntryID cron.EntryID
	instanceID     string
}

func NewSummaryScheduler(db *gorm.DB, summaryService *SummaryService) *SummaryScheduler {
	hostname, _ := os.Hostname()
	return &SummaryScheduler{
		db:             db,
		summaryService: summaryService,
		configService:  NewSystemConfigService(db),
		holidayService: NewHolidayService(),
		instanceID:     fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8]),
	}
}

func (s *SummaryScheduler) Start() {
	s.cronScheduler = cron.New()
	s.updateSchedule()
	s.cronScheduler.Start()
	logger.Infof("[Scheduler] started (instance %s)", s.instanceID)
}

func (s *SummaryScheduler) Stop() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
	}
}

func (s *SummaryScheduler) updateSchedule() {
	if s.currentEntryID != 0 {
		s.cronScheduler.Remove(s.currentEntryID)
	}

	scheduleTime := s.configService.GetWithDefault("summary_schedule_time", "18:30")
	parts := strings.Split(scheduleTime, ":")
	hour := "18"
	minute := "30"
	if len(parts) == 2 {
		hour = parts[0]
		minute = parts[1]
	}

	cronExpr := fmt.Sprintf("%s %s * * *", minute, hour)

	entryID, err := s.cronScheduler.AddFunc(cronExpr, s.runDaily)
	if err != nil {
		logger.Errorf("[Scheduler] failed to add cron job: %v", err)
		return
	}

	s.currentEntryID = entryID
	logger.Infof("[Scheduler] daily reports at %s (cron: %s)", scheduleTime, cronExpr)
}

func (s *SummaryScheduler) runDaily() {
	if !s.configService.GetBoolWithDefault("summary_schedule_enabled", false) {
		return
	}

	today := time.Now()
	country := s.configService.GetWithDefault("summary_schedule_country", "CN")
	if !s.holidayService.IsWorkday(today, country) {
		logger.Infof("[Scheduler] %s is not a workday in %s, skipping", today.Format("2006-01-02"), country)
		return
	}

	dateKey := today.Format("2006-01-02")
	if !s.acquireLock("summary_daily", dateKey) {
		logger.Infof("[Scheduler] daily run for %s already claimed elsewhere", dateKey)
		return
	}

	var allSettings []models.SummarySettings
	if err := s.db.Find(&allSettings).Error; err != nil {
		logger.Errorf("[Scheduler] loading settings failed: %v", err)
		return
	}

	for _, settings := range allSettings {
		if len(settings.ProjectIDs()) == 0 || len(settings.UserIDs()) == 0 {
			continue
		}
		if _, _, err := s.summaryService.Generate(settings.OwnerID, dateKey, dateKey); err != nil {
			logger.Errorf("[Scheduler] enqueue for owner %d failed: %v", settings.OwnerID, err)
		}
	}

	logger.Infof("[Scheduler] enqueued daily reports for %d owner(s)", len(allSettings))
}

// acquireLock claims (name, key) for 23 hours. The unique index makes the
// insert race-safe; a stale row from a crashed run is taken over once it
// expires.
func (s *SummaryScheduler) acquireLock(name, key string) bool {
	now := time.Now()
	lock := models.SchedulerLock{
		LockName:  name,
		LockKey:   key,
		LockedBy:  s.instanceID,
		LockedAt:  now,
		ExpiresAt: now.Add(23 * time.Hour),
	}
	if err := s.db.Create(&lock).Error; err == nil {
		return true
	}

	result := s.db.Model(&models.SchedulerLock{}).
		Where("lock_name = ? AND lock_key = ? AND expires_at < ?", name, key, now).
		Updates(map[string]interface{}{
			"locked_by":  s.instanceID,
			"locked_at":  now,
			"expires_at": now.Add(23 * time.Hour),
		})
	return result.Error == nil && result.RowsAffected > 0
}
