package orchestratord

import (
	"time"

	"github.com/jonesrussell/crawlorc/internal/config"
	"github.com/jonesrussell/crawlorc/internal/logger"
)

// newLogger adapts the process config's logging section into the
// logger.Config the teacher's zap-backed logger.New expects.
func newLogger(cfg *config.Config) (logger.Interface, error) {
	return logger.New(&logger.Config{
		Level:       logger.Level(cfg.Logging.Level),
		Development: cfg.Logging.Debug,
		Encoding:    cfg.Logging.Encoding,
		OutputPaths: outputPaths(cfg.Logging.Output),
		EnableColor: cfg.Logging.Debug,
	})
}

func outputPaths(output string) []string {
	if output == "" {
		return []string{"stdout"}
	}
	return []string{output}
}

// reloadInterval converts the configured reload interval (whole hours,
// already clamped to >= 1 by config.Load) into a time.Duration.
func reloadInterval(cfg *config.Config) time.Duration {
	return time.Duration(cfg.ScheduleReloadIntervalHours) * time.Hour
}
