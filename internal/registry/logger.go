// Package registry logging helpers
package registry

import (
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm/logger"

	"github.com/muzzleid/muzzle-go/internal/logging"
)

var (
	registryLogger *slog.Logger
	loggerOnce     sync.Once
)

// getLogger returns the package logger, initializing it on first use.
func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		registryLogger = logging.ForService("registry")
	})
	return registryLogger
}

// newGormLogger configures the GORM logger: quiet by default, warnings for
// slow queries.
func newGormLogger() logger.Interface {
	return logger.New(
		slog.NewLogLogger(getLogger().Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}
