package app

import (
	"testing"
	"time"

	"github.com/platefuel/recipegraph/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SYNC_POLL_INTERVAL_SECONDS", "")
	t.Setenv("SYNC_BATCH_SIZE", "")
	t.Setenv("SYNC_MAX_ATTEMPTS", "")
	t.Setenv("SYNC_STALLED_AFTER_SECONDS", "")
	t.Setenv("SYNC_SOURCE_TABLES", "")
	t.Setenv("SYNC_AGGREGATE_TYPES", "")

	cfg := LoadConfig(testLogger(t))

	if cfg.PollInterval != 5*time.Second {
		t.Fatalf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.BatchSize != 25 || cfg.MaxAttempts != 5 {
		t.Fatalf("BatchSize=%d MaxAttempts=%d", cfg.BatchSize, cfg.MaxAttempts)
	}
	if cfg.StalledAfter != 10*time.Minute {
		t.Fatalf("StalledAfter = %v", cfg.StalledAfter)
	}
	if len(cfg.SourceTables) != 5 || cfg.SourceTables[0] != "recipes" {
		t.Fatalf("SourceTables = %v", cfg.SourceTables)
	}
	if len(cfg.AggregateTypes) != 1 || cfg.AggregateTypes[0] != "recipe" {
		t.Fatalf("AggregateTypes = %v", cfg.AggregateTypes)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("SYNC_POLL_INTERVAL_SECONDS", "30")
	t.Setenv("SYNC_BATCH_SIZE", "100")
	t.Setenv("SYNC_MAX_ATTEMPTS", "8")
	t.Setenv("SYNC_STALLED_AFTER_SECONDS", "120")
	t.Setenv("SYNC_SOURCE_TABLES", "recipes, cuisines ,")
	t.Setenv("SYNC_AGGREGATE_TYPES", "recipe,menu")

	cfg := LoadConfig(testLogger(t))

	if cfg.PollInterval != 30*time.Second || cfg.BatchSize != 100 || cfg.MaxAttempts != 8 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.StalledAfter != 2*time.Minute {
		t.Fatalf("StalledAfter = %v", cfg.StalledAfter)
	}
	if len(cfg.SourceTables) != 2 || cfg.SourceTables[1] != "cuisines" {
		t.Fatalf("SourceTables = %v", cfg.SourceTables)
	}
	if len(cfg.AggregateTypes) != 2 || cfg.AggregateTypes[1] != "menu" {
		t.Fatalf("AggregateTypes = %v", cfg.AggregateTypes)
	}
}
