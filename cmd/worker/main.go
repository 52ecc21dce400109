package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/platefuel/recipegraph/internal/app"
	"github.com/platefuel/recipegraph/internal/data/db"
	"github.com/platefuel/recipegraph/internal/data/graph"
	"github.com/platefuel/recipegraph/internal/platform/logger"
	"github.com/platefuel/recipegraph/internal/platform/neo4jdb"
	"github.com/platefuel/recipegraph/internal/repos"
	"github.com/platefuel/recipegraph/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	cfg := app.LoadConfig(log)

	// Postgres: source of truth + outbox. Unreachable is fatal; nothing
	// may begin without it.
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Neo4j: graph write target. Same fatality rule.
	neo4jClient, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Error("Neo4j init failed", "error", err)
		os.Exit(1)
	}

	// Repos
	outboxRepo := repos.NewOutboxEventRepo(thePG, log)
	recipeRepo := repos.NewRecipeAggregateRepo(thePG, log)

	// Graph writer + sync service
	writer := graph.NewWriter(neo4jClient, log)
	syncService := services.NewRecipeSyncService(log, outboxRepo, recipeRepo, writer, services.SyncConfig{
		PollInterval:   cfg.PollInterval,
		BatchSize:      cfg.BatchSize,
		MaxAttempts:    cfg.MaxAttempts,
		StalledAfter:   cfg.StalledAfter,
		SourceTables:   cfg.SourceTables,
		AggregateTypes: cfg.AggregateTypes,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := syncService.StartWorker(ctx)

	<-ctx.Done()
	log.Info("Shutdown signal received; waiting for in-flight event")
	<-done

	closeCtx := context.Background()
	if err := neo4jClient.Close(closeCtx); err != nil {
		log.Warn("Neo4j close failed", "error", err)
	}
	if err := postgresService.Close(); err != nil {
		log.Warn("Postgres close failed", "error", err)
	}
	log.Info("Recipe sync worker stopped")
}
