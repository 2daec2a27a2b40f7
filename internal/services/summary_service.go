package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pmpulse/backend/internal/config"
	"github.com/pmpulse/backend/internal/models"
	"github.com/pmpulse/backend/internal/services/summary"
	"github.com/pmpulse/backend/pkg/logger"
	"gorm.io/gorm"
)

// SummaryService glues the pipeline to persistence: it resolves owner
// settings, builds the data sources, runs the pipeline, and stores the
// resulting report.
type SummaryService struct {
	db        *gorm.DB
	cfg       *config.Config
	ai        *AIService
	configSvc *SystemConfigService
}

func NewSummaryService(db *gorm.DB, cfg *config.Config) *SummaryService {
	return &SummaryService{
		db:        db,
		cfg:       cfg,
		ai:        NewAIService(db, &cfg.OpenAI),
		configSvc: NewSystemConfigService(db),
	}
}

// GetSettings returns the owner's report targets, creating an empty row on
// first access.
func (s *SummaryService) GetSettings(ownerID uint) (*models.SummarySettings, error) {
	var settings models.SummarySettings
	err := s.db.Where("owner_id = ?", ownerID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.SummarySettings{
			OwnerID:                ownerID,
			TargetProjectIDs:       "[]",
			TargetUserIDs:          "[]",
			TargetGitLabProjectIDs: "[]",
			Language:               s.configSvc.GetWithDefault("summary_default_language", "zh-TW"),
		}
		if err := s.db.Create(&settings).Error; err != nil {
			return nil, err
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

type UpdateSummarySettingsRequest struct {
	TargetProjectIDs       []int   `json:"target_project_ids"`
	TargetUserIDs          []int   `json:"target_user_ids"`
	TargetGitLabProjectIDs []int   `json:"target_gitlab_project_ids"`
	Language               *string `json:"language"`
}

func (s *SummaryService) UpdateSettings(ownerID uint, req *UpdateSummarySettingsRequest) (*models.SummarySettings, error) {
	settings, err := s.GetSettings(ownerID)
	if err != nil {
		return nil, err
	}

	settings.TargetProjectIDs = models.EncodeIntList(req.TargetProjectIDs)
	settings.TargetUserIDs = models.EncodeIntList(req.TargetUserIDs)
	settings.TargetGitLabProjectIDs = models.EncodeIntList(req.TargetGitLabProjectIDs)
	if req.Language != nil && *req.Language != "" {
		settings.Language = *req.Language
	}

	if err := s.db.Save(settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

// Generate creates a pending report row and enqueues the pipeline run.
func (s *SummaryService) Generate(ownerID uint, startDate, endDate string) (*models.SummaryReport, bool, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil, false, fmt.Errorf("invalid start_date: %w", err)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return nil, false, fmt.Errorf("invalid end_date: %w", err)
	}
	if end.Before(start) {
		return nil, false, fmt.Errorf("end_date is before start_date")
	}

	report := models.SummaryReport{
		OwnerID:             ownerID,
		Title:               summary.ReportTitle(start, end),
		DateRangeStart:      startDate,
		DateRangeEnd:        endDate,
		Status:              "processing",
		ConversationHistory: "[]",
	}
	if err := s.db.Create(&report).Error; err != nil {
		return nil, false, err
	}

	queue := GetTaskQueue()
	task := &SummaryTask{
		ReportID:  report.ID,
		OwnerID:   ownerID,
		StartDate: startDate,
		EndDate:   endDate,
	}
	if err := queue.Enqueue(task); err != nil {
		s.db.Model(&report).Updates(map[string]interface{}{
			"status":           "failed",
			"summary_markdown": fmt.Sprintf("無法排入產生佇列: %v", err),
		})
		return nil, false, err
	}

	return &report, queue.IsAsync(), nil
}

// ProcessTask runs the pipeline for one queued task and persists the
// outcome on the report row. Registered as the queue/worker processor.
func (s *SummaryService) ProcessTask(ctx context.Context, task *SummaryTask) error {
	logger.Infof("[Summary] processing report %d for owner %d (%s ~ %s)",
		task.ReportID, task.OwnerID, task.StartDate, task.EndDate)

	result, err := s.run(ctx, task)
	if err != nil {
		s.db.Model(&models.SummaryReport{}).Where("id = ?", task.ReportID).Updates(map[string]interface{}{
			"status":           "failed",
			"summary_markdown": fmt.Sprintf("報告產生失敗: %v", err),
		})
		return err
	}

	metricsJSON := "[]"
	if len(result.Metrics) > 0 {
		if data, err := json.Marshal(result.Metrics); err == nil {
			metricsJSON = string(data)
		}
	}

	return s.db.Model(&models.SummaryReport{}).Where("id = ?", task.ReportID).Updates(map[string]interface{}{
		"status":           "done",
		"title":            result.Title,
		"summary_markdown": result.Markdown,
		"gitlab_metrics":   metricsJSON,
	}).Error
}

func (s *SummaryService) run(ctx context.Context, task *SummaryTask) (*summary.Result, error) {
	settings, err := s.GetSettings(task.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	start, err := time.Parse("2006-01-02", task.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := time.Parse("2006-01-02", task.EndDate)
	if err != nil {
		return nil, err
	}

	req := summary.Request{
		OwnerID:          task.OwnerID,
		ProjectIDs:       settings.ProjectIDs(),
		UserIDs:          settings.UserIDs(),
		GitLabProjectIDs: settings.GitLabProjectIDs(),
		StartDate:        start,
		EndDate:          end,
		Language:         settings.Language,
	}

	redmine := NewRedmineService(s.redmineURL(), s.redmineAPIKey())

	var codeSources []summary.CodeSource
	for _, gl := range s.gitlabServices(task.OwnerID) {
		codeSources = append(codeSources, gl)
	}

	pipeline := &summary.Pipeline{
		Issues:       redmine,
		Code:         codeSources,
		Chat:         s.ai,
		SettingsFunc: func() summary.Settings { return s.resolvePipelineSettings(settings.Language, redmine.BaseURL()) },
	}

	return pipeline.Run(ctx, req)
}

// resolvePipelineSettings reads the runtime knobs from system config. Called
// once per run, at the fetch-to-analyze transition.
func (s *SummaryService) resolvePipelineSettings(language, redmineURL string) summary.Settings {
	return summary.Settings{
		MaxConcurrent:    s.configSvc.GetIntWithDefault("summary_max_concurrent_chunks", summary.DefaultMaxConcurrent),
		Language:         language,
		RedmineBaseURL:   redmineURL,
		ErrorDumpEnabled: s.configSvc.GetBoolWithDefault("summary_error_dump_enabled", false),
		ErrorDumpDir:     s.configSvc.GetWithDefault("summary_error_dump_dir", "data/debug"),
		ImageCacheDir:    s.configSvc.GetWithDefault("summary_image_cache_dir", "data/images"),
		ImageURLPrefix:   "/api/summary/images",
	}
}

func (s *SummaryService) redmineURL() string {
	if v := s.configSvc.GetWithDefault("redmine_url", ""); v != "" {
		return v
	}
	return s.cfg.Redmine.BaseURL
}

func (s *SummaryService) redmineAPIKey() string {
	if v := s.configSvc.GetWithDefault("redmine_api_key", ""); v != "" {
		return v
	}
	return s.cfg.Redmine.APIKey
}

// gitlabServices builds one code source per active GitLab instance owned by
// the user, with its watchlist loaded.
func (s *SummaryService) gitlabServices(ownerID uint) []*GitLabService {
	var instances []models.GitLabInstance
	if err := s.db.Where("owner_id = ? AND is_active = ?", ownerID, true).Find(&instances).Error; err != nil {
		logger.Errorf("[Summary] loading gitlab instances failed: %v", err)
		return nil
	}

	var services []*GitLabService
	for _, instance := range instances {
		var watchlist []models.GitLabWatchlist
		if err := s.db.Where("owner_id = ? AND instance_id = ?", ownerID, instance.ID).Find(&watchlist).Error; err != nil {
			logger.Errorf("[Summary] loading watchlist for instance %d failed: %v", instance.ID, err)
			continue
		}
		services = append(services, NewGitLabService(instance, watchlist))
	}
	return services
}

// History lists the owner's reports, newest first, without the full body.
func (s *SummaryService) History(ownerID uint, limit int) ([]models.SummaryReport, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var reports []models.SummaryReport
	err := s.db.Select("id", "owner_id", "title", "date_range_start", "date_range_end", "status", "created_at").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&reports).Error
	return reports, err
}

// GetReport returns one report owned by the user.
func (s *SummaryService) GetReport(ownerID, reportID uint) (*models.SummaryReport, error) {
	var report models.SummaryReport
	if err := s.db.Where("id = ? AND owner_id = ?", reportID, ownerID).First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}
