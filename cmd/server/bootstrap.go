package main

import (
	"github.com/pmpulse/backend/internal/config"
	"github.com/pmpulse/backend/internal/handlers"
	"github.com/pmpulse/backend/internal/models"
	"github.com/pmpulse/backend/internal/services"
	"github.com/pmpulse/backend/internal/utils"
	"github.com/pmpulse/backend/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg            *config.Config
	summaryService *services.SummaryService
	scheduler      *services.SummaryScheduler
	taskQueue      services.TaskQueue
	worker         *services.Worker
	authHandler    *handlers.AuthHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Seed default data
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	// Initialize system logger
	services.InitSystemLogger(models.GetDB())

	// Start system log cleanup scheduler
	services.StartLogCleanupScheduler(models.GetDB())

	// Report pipeline and its queue (Redis if enabled, otherwise sync mode)
	summaryService := services.NewSummaryService(models.GetDB(), cfg)
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(summaryService.ProcessTask)
	}

	// Start async worker if Redis is enabled
	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(summaryService.ProcessTask)
			worker.Start()
		}
	}

	// Daily report scheduler
	scheduler := services.NewSummaryScheduler(models.GetDB(), summaryService)
	scheduler.Start()

	// Create default admin user
	authHandler := handlers.NewAuthHandler(models.GetDB(), cfg)
	if err := authHandler.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		cfg:            cfg,
		summaryService: summaryService,
		scheduler:      scheduler,
		taskQueue:      taskQueue,
		worker:         worker,
		authHandler:    authHandler,
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.scheduler.Stop()
	services.StopLogCleanupScheduler()
	logger.Info().Msg("Schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
}
