package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/vivah/internal/cache"
	"github.com/oggyb/vivah/internal/metrics"
)

// AppContext holds shared dependencies (DB, Redis, Logger, Metrics).
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// New creates a new AppContext. Metrics default to a private registry so
// tests and tools never collide on the global one.
func New(db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger) *AppContext {
	return &AppContext{
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Metrics:    metrics.NewNop(),
	}
}

// WithMetrics swaps in process-wide collectors.
func (a *AppContext) WithMetrics(m *metrics.Metrics) *AppContext {
	a.Metrics = m
	return a
}
