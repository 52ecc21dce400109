package app

import (
	"time"

	"github.com/platefuel/recipegraph/internal/platform/envutil"
	"github.com/platefuel/recipegraph/internal/platform/logger"
)

var defaultSourceTables = []string{
	"recipes",
	"nutrition_facts",
	"recipe_ingredients",
	"recipe_ratings",
	"cuisines",
}

type Config struct {
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	StalledAfter   time.Duration
	SourceTables   []string
	AggregateTypes []string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		PollInterval:   time.Duration(envutil.Int("SYNC_POLL_INTERVAL_SECONDS", 5)) * time.Second,
		BatchSize:      envutil.Int("SYNC_BATCH_SIZE", 25),
		MaxAttempts:    envutil.Int("SYNC_MAX_ATTEMPTS", 5),
		StalledAfter:   time.Duration(envutil.Int("SYNC_STALLED_AFTER_SECONDS", 600)) * time.Second,
		SourceTables:   envutil.List("SYNC_SOURCE_TABLES", defaultSourceTables),
		AggregateTypes: envutil.List("SYNC_AGGREGATE_TYPES", []string{"recipe"}),
	}
	if log != nil {
		log.Debug("Loaded sync config",
			"poll_interval", cfg.PollInterval,
			"batch_size", cfg.BatchSize,
			"max_attempts", cfg.MaxAttempts,
			"stalled_after", cfg.StalledAfter,
			"source_tables", cfg.SourceTables,
			"aggregate_types", cfg.AggregateTypes,
		)
	}
	return cfg
}
