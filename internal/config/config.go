// Package config assembles process-wide configuration, read once at
// startup via viper with environment variables as the source of truth,
// in the same style as the teacher's internal/config/config.go.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	dbconfig "github.com/jonesrussell/crawlorc/internal/config/database"
	logconfig "github.com/jonesrussell/crawlorc/internal/config/logging"
)

// Defaults for the orchestration-specific settings of §6.1.
const (
	DefaultScheduleReloadIntervalHours = 1
	DefaultExecutorWorkers             = 10
	DefaultExecutorProcessWorkers      = 5
)

// Config is the process-wide configuration.
type Config struct {
	Database dbconfig.Config
	Logging  logconfig.Config

	// DatabasePath is the storage URL (§6.1). When unset, it is derived
	// from Database at Load time.
	DatabasePath string

	// ScheduleReloadIntervalHours is the number of hours between full
	// reconciles (§4.1 Reload), clamped to >= 1.
	ScheduleReloadIntervalHours int

	// ExecutorWorkers is the bounded worker pool size (§5), default 10.
	ExecutorWorkers int

	// ExecutorProcessWorkers is the size of the second, process-isolated
	// pool (§5), default 5.
	ExecutorProcessWorkers int
}

// Load reads configuration from a .env file (if present) and the process
// environment, applying the defaults and clamps described in §6.1.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("schedule_reload_interval_hr", DefaultScheduleReloadIntervalHours)
	v.SetDefault("executor_workers", DefaultExecutorWorkers)
	v.SetDefault("executor_process_workers", DefaultExecutorProcessWorkers)

	cfg := &Config{
		Database: dbconfig.Config{
			Host:     v.GetString("POSTGRES_CRAWLER_HOST"),
			Port:     v.GetString("POSTGRES_CRAWLER_PORT"),
			User:     v.GetString("POSTGRES_CRAWLER_USER"),
			Password: v.GetString("POSTGRES_CRAWLER_PASSWORD"),
			DBName:   v.GetString("POSTGRES_CRAWLER_DB"),
			SSLMode:  v.GetString("POSTGRES_CRAWLER_SSLMODE"),
		},
		Logging: logconfig.Config{
			Level:    v.GetString("LOG_LEVEL"),
			Encoding: v.GetString("LOG_ENCODING"),
			Output:   v.GetString("LOG_OUTPUT"),
			Debug:    v.GetBool("LOG_DEBUG"),
			Caller:   true,
		},
		DatabasePath:                v.GetString("DATABASE_PATH"),
		ScheduleReloadIntervalHours: v.GetInt("schedule_reload_interval_hr"),
		ExecutorWorkers:             v.GetInt("executor_workers"),
		ExecutorProcessWorkers:      v.GetInt("executor_process_workers"),
	}

	applyDatabaseDefaults(&cfg.Database)

	if cfg.ScheduleReloadIntervalHours < 1 {
		cfg.ScheduleReloadIntervalHours = DefaultScheduleReloadIntervalHours
	}
	if cfg.ExecutorWorkers < 1 {
		cfg.ExecutorWorkers = DefaultExecutorWorkers
	}
	if cfg.ExecutorProcessWorkers < 1 {
		cfg.ExecutorProcessWorkers = DefaultExecutorProcessWorkers
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s",
			cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, cfg.Database.SSLMode)
	}

	return cfg, nil
}

func applyDatabaseDefaults(c *dbconfig.Config) {
	if c.Host == "" {
		c.Host = dbconfig.DefaultHost
	}
	if c.Port == "" {
		c.Port = dbconfig.DefaultPort
	}
	if c.User == "" {
		c.User = dbconfig.DefaultUser
	}
	if c.DBName == "" {
		c.DBName = dbconfig.DefaultDBName
	}
	if c.SSLMode == "" {
		c.SSLMode = dbconfig.DefaultSSLMode
	}
}
