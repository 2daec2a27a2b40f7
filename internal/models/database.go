package models

import (
	"fmt"

	"github.com/pmpulse/backend/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig) error {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	DB = db
	return nil
}

func AutoMigrate() error {
	return DB.AutoMigrate(
		&User{},
		&RefreshToken{},
		&LLMConfig{},
		&SystemConfig{},
		&SchedulerLock{},
		&SystemLog{},
		&SummarySettings{},
		&SummaryReport{},
		&GitLabInstance{},
		&GitLabWatchlist{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// SeedDefaultData creates default data if not exists
func SeedDefaultData() error {
	defaultConfigs := []SystemConfig{
		{Key: "ldap_enabled", Value: "false", Type: "bool", Group: "ldap", Label: "Enable LDAP Authentication"},
		{Key: "ldap_host", Value: "", Type: "string", Group: "ldap", Label: "LDAP Server Host"},
		{Key: "ldap_port", Value: "389", Type: "int", Group: "ldap", Label: "LDAP Server Port"},
		{Key: "ldap_base_dn", Value: "", Type: "string", Group: "ldap", Label: "LDAP Base DN"},
		{Key: "ldap_bind_dn", Value: "", Type: "string", Group: "ldap", Label: "LDAP Bind DN"},
		{Key: "ldap_bind_password", Value: "", Type: "string", Group: "ldap", Label: "LDAP Bind Password"},
		{Key: "ldap_user_filter", Value: "(uid=%s)", Type: "string", Group: "ldap", Label: "LDAP User Filter"},
		{Key: "ldap_use_ssl", Value: "false", Type: "bool", Group: "ldap", Label: "Use SSL/TLS"},
		{Key: "redmine_url", Value: "", Type: "string", Group: "redmine", Label: "Redmine Base URL"},
		{Key: "redmine_api_key", Value: "", Type: "string", Group: "redmine", Label: "Redmine API Key"},
		{Key: "summary_max_concurrent_chunks", Value: "5", Type: "int", Group: "summary", Label: "Max Concurrent Summary Chunks"},
		{Key: "summary_default_language", Value: "zh-TW", Type: "string", Group: "summary", Label: "Default Report Language"},
		{Key: "summary_error_dump_enabled", Value: "false", Type: "bool", Group: "summary", Label: "Dump Failed Prompts To Disk"},
		{Key: "summary_error_dump_dir", Value: "data/debug", Type: "string", Group: "summary", Label: "Error Dump Directory"},
		{Key: "summary_image_cache_dir", Value: "data/images", Type: "string", Group: "summary", Label: "Image Cache Directory"},
		{Key: "summary_schedule_enabled", Value: "false", Type: "bool", Group: "summary", Label: "Enable Scheduled Reports"},
		{Key: "summary_schedule_time", Value: "18:30", Type: "string", Group: "summary", Label: "Scheduled Report Time"},
		{Key: "summary_schedule_country", Value: "CN", Type: "string", Group: "summary", Label: "Workday Calendar Country"},
		{Key: "log_retention_days", Value: "30", Type: "int", Group: "general", Label: "System Log Retention Days"},
	}

	for _, cfg := range defaultConfigs {
		var count int64
		DB.Model(&SystemConfig{}).Where("key = ?", cfg.Key).Count(&count)
		if count == 0 {
			if err := DB.Create(&cfg).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
