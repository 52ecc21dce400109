package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/platefuel/recipegraph/internal/platform/logger"
	"github.com/platefuel/recipegraph/internal/repos"
	"github.com/platefuel/recipegraph/internal/types"
)

// GraphWriter is the sync service's view of the graph store.
type GraphWriter interface {
	UpsertRecipeAggregate(ctx context.Context, agg *types.RecipeAggregate) error
	DeleteRecipe(ctx context.Context, recipeID uuid.UUID) error
}

// SyncConfig is the worker policy for the reconciliation loop.
type SyncConfig struct {
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	StalledAfter   time.Duration
	SourceTables   []string
	AggregateTypes []string
}

type RecipeSyncService interface {
	// StartWorker runs the reconciliation loop until ctx is cancelled. The
	// returned channel closes once the loop has drained its in-flight work,
	// so main can wait before releasing connections.
	StartWorker(ctx context.Context) <-chan struct{}
	ProcessBatch(ctx context.Context, events []*types.OutboxEvent)
}

type recipeSyncService struct {
	log        *logger.Logger
	outboxRepo repos.OutboxEventRepo
	recipeRepo repos.RecipeAggregateRepo
	graph      GraphWriter
	cfg        SyncConfig

	lastExhausted int64
}

func NewRecipeSyncService(
	baseLog *logger.Logger,
	outboxRepo repos.OutboxEventRepo,
	recipeRepo repos.RecipeAggregateRepo,
	graph GraphWriter,
	cfg SyncConfig,
) RecipeSyncService {
	return &recipeSyncService{
		log:        baseLog.With("service", "RecipeSyncService"),
		outboxRepo: outboxRepo,
		recipeRepo: recipeRepo,
		graph:      graph,
		cfg:        cfg,
	}
}

func (s *recipeSyncService) StartWorker(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()

		s.log.Info("Recipe sync worker started",
			"poll_interval", s.cfg.PollInterval,
			"batch_size", s.cfg.BatchSize,
			"max_attempts", s.cfg.MaxAttempts,
			"source_tables", s.cfg.SourceTables,
			"aggregate_types", s.cfg.AggregateTypes,
		)
		for {
			select {
			case <-ctx.Done():
				s.log.Info("Recipe sync worker stopping")
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
	return done
}

func (s *recipeSyncService) tick(ctx context.Context) {
	if n, err := s.outboxRepo.RequeueStalled(ctx, nil, s.cfg.StalledAfter); err != nil {
		s.log.Warn("RequeueStalled failed", "error", err)
	} else if n > 0 {
		s.log.Warn("Requeued stalled outbox events", "count", n)
	}

	if n, err := s.outboxRepo.CountExhausted(ctx, nil, s.cfg.MaxAttempts); err != nil {
		s.log.Warn("CountExhausted failed", "error", err)
	} else if n != s.lastExhausted {
		if n > 0 {
			s.log.Warn("Outbox events exhausted retries; operator intervention required", "count", n)
		}
		s.lastExhausted = n
	}

	events, err := s.outboxRepo.ClaimPending(ctx, nil, s.cfg.BatchSize, s.cfg.MaxAttempts, s.cfg.SourceTables, s.cfg.AggregateTypes)
	if err != nil {
		s.log.Warn("ClaimPending failed", "error", err)
		return
	}
	if len(events) == 0 {
		return
	}
	s.ProcessBatch(ctx, events)
}

// ProcessBatch handles claimed events one at a time. Every per-event error is
// contained here: the event is marked failed and the loop moves on, so one
// bad record never blocks the stream.
func (s *recipeSyncService) ProcessBatch(ctx context.Context, events []*types.OutboxEvent) {
	for i, ev := range events {
		select {
		case <-ctx.Done():
			// Remaining claimed events are left as processing; the stalled
			// requeue recovers them after the cutoff.
			s.log.Info("Shutdown during batch; leaving remainder for requeue",
				"remaining", len(events)-i)
			return
		default:
		}
		if ev == nil || ev.ID == uuid.Nil {
			continue
		}
		// The in-flight event always finishes its status write, even when
		// shutdown arrives mid-event.
		s.processEvent(context.WithoutCancel(ctx), ev)
	}
}

func (s *recipeSyncService) processEvent(ctx context.Context, ev *types.OutboxEvent) {
	log := s.log.With(
		"event_id", ev.ID,
		"aggregate_id", ev.AggregateID,
		"op", ev.Op,
		"source_table", ev.SourceTable,
		"attempt", ev.Attempts,
	)

	agg, err := s.recipeRepo.Load(ctx, nil, ev.AggregateID)
	if err != nil {
		s.failEvent(ctx, log, ev, err)
		return
	}

	if agg == nil {
		if strings.EqualFold(ev.Op, types.OutboxOpDelete) {
			if err := s.graph.DeleteRecipe(ctx, ev.AggregateID); err != nil {
				s.failEvent(ctx, log, ev, err)
				return
			}
			log.Info("Removed recipe from graph")
		} else {
			// The row may have been deleted after this event was enqueued;
			// a later DELETE event carries the tombstone.
			log.Warn("Recipe missing in source; skipping upsert")
		}
		s.completeEvent(ctx, log, ev)
		return
	}

	// INSERT and UPDATE are identical: the merge reflects current state,
	// not the event's payload.
	if err := s.graph.UpsertRecipeAggregate(ctx, agg); err != nil {
		s.failEvent(ctx, log, ev, err)
		return
	}
	log.Info("Upserted recipe aggregate",
		"ingredients", len(agg.Ingredients),
		"nutrition_values", len(agg.NutritionFacts),
		"avg_rating", agg.Ratings.AvgRating,
		"rating_count", agg.Ratings.RatingCount,
	)
	s.completeEvent(ctx, log, ev)
}

func (s *recipeSyncService) completeEvent(ctx context.Context, log *logger.Logger, ev *types.OutboxEvent) {
	if err := s.outboxRepo.MarkProcessed(ctx, nil, ev.ID); err != nil {
		log.Warn("MarkProcessed failed", "error", err)
	}
}

func (s *recipeSyncService) failEvent(ctx context.Context, log *logger.Logger, ev *types.OutboxEvent, cause error) {
	var pgErr *pgconn.PgError
	if errors.As(cause, &pgErr) {
		log.Error("Failed processing outbox event", "error", cause, "sqlstate", pgErr.Code)
	} else {
		log.Error("Failed processing outbox event", "error", cause)
	}
	if err := s.outboxRepo.MarkFailed(ctx, nil, ev.ID, cause.Error()); err != nil {
		log.Warn("MarkFailed failed", "error", err)
	}
}
