package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platefuel/recipegraph/internal/platform/logger"
	"github.com/platefuel/recipegraph/internal/types"
)

type fakeOutboxRepo struct {
	processed []uuid.UUID
	failed    map[uuid.UUID]string
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{failed: map[uuid.UUID]string{}}
}

func (f *fakeOutboxRepo) ClaimPending(ctx context.Context, tx *gorm.DB, limit, maxAttempts int, sourceTables, aggregateTypes []string) ([]*types.OutboxEvent, error) {
	return nil, nil
}
func (f *fakeOutboxRepo) MarkProcessed(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	f.processed = append(f.processed, id)
	return nil
}
func (f *fakeOutboxRepo) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, errMsg string) error {
	f.failed[id] = errMsg
	return nil
}
func (f *fakeOutboxRepo) RequeueStalled(ctx context.Context, tx *gorm.DB, olderThan time.Duration) (int64, error) {
	return 0, nil
}
func (f *fakeOutboxRepo) CountExhausted(ctx context.Context, tx *gorm.DB, maxAttempts int) (int64, error) {
	return 0, nil
}

type fakeAggregateRepo struct {
	aggs map[uuid.UUID]*types.RecipeAggregate
	errs map[uuid.UUID]error
}

func newFakeAggregateRepo() *fakeAggregateRepo {
	return &fakeAggregateRepo{
		aggs: map[uuid.UUID]*types.RecipeAggregate{},
		errs: map[uuid.UUID]error{},
	}
}

func (f *fakeAggregateRepo) Load(ctx context.Context, tx *gorm.DB, recipeID uuid.UUID) (*types.RecipeAggregate, error) {
	if err, ok := f.errs[recipeID]; ok {
		return nil, err
	}
	return f.aggs[recipeID], nil
}

type fakeGraphWriter struct {
	upserts   []uuid.UUID
	deletes   []uuid.UUID
	upsertErr error
}

func (f *fakeGraphWriter) UpsertRecipeAggregate(ctx context.Context, agg *types.RecipeAggregate) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, agg.Recipe.ID)
	return nil
}
func (f *fakeGraphWriter) DeleteRecipe(ctx context.Context, recipeID uuid.UUID) error {
	f.deletes = append(f.deletes, recipeID)
	return nil
}

func newTestService(t *testing.T, outbox *fakeOutboxRepo, aggs *fakeAggregateRepo, graph *fakeGraphWriter) RecipeSyncService {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewRecipeSyncService(log, outbox, aggs, graph, SyncConfig{
		PollInterval: time.Second,
		BatchSize:    10,
		MaxAttempts:  3,
		StalledAfter: time.Minute,
	})
}

func event(aggregateID uuid.UUID, op string) *types.OutboxEvent {
	return &types.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "recipe",
		AggregateID:   aggregateID,
		Op:            op,
		SourceTable:   "recipes",
		Status:        types.OutboxStatusProcessing,
		Attempts:      1,
	}
}

func aggregateFor(recipeID uuid.UUID) *types.RecipeAggregate {
	return &types.RecipeAggregate{Recipe: types.RecipeRow{ID: recipeID, Title: "t"}}
}

func TestProcessBatch_PresentAggregateIsUpserted(t *testing.T) {
	outbox := newFakeOutboxRepo()
	aggs := newFakeAggregateRepo()
	graph := &fakeGraphWriter{}
	svc := newTestService(t, outbox, aggs, graph)

	recipeID := uuid.New()
	aggs.aggs[recipeID] = aggregateFor(recipeID)

	// Declared op is irrelevant for present aggregates; the merge always
	// writes current state.
	ev := event(recipeID, types.OutboxOpInsert)
	svc.ProcessBatch(context.Background(), []*types.OutboxEvent{ev})

	if len(graph.upserts) != 1 || graph.upserts[0] != recipeID {
		t.Fatalf("expected one upsert for %s, got %v", recipeID, graph.upserts)
	}
	if len(graph.deletes) != 0 {
		t.Fatalf("unexpected deletes: %v", graph.deletes)
	}
	if len(outbox.processed) != 1 || outbox.processed[0] != ev.ID {
		t.Fatalf("event not marked processed: %v", outbox.processed)
	}
}

func TestProcessBatch_AbsentDeleteRunsTombstone(t *testing.T) {
	outbox := newFakeOutboxRepo()
	aggs := newFakeAggregateRepo()
	graph := &fakeGraphWriter{}
	svc := newTestService(t, outbox, aggs, graph)

	recipeID := uuid.New()
	ev := event(recipeID, types.OutboxOpDelete)
	svc.ProcessBatch(context.Background(), []*types.OutboxEvent{ev})

	if len(graph.deletes) != 1 || graph.deletes[0] != recipeID {
		t.Fatalf("expected tombstone for %s, got %v", recipeID, graph.deletes)
	}
	if len(graph.upserts) != 0 {
		t.Fatalf("unexpected upserts: %v", graph.upserts)
	}
	if len(outbox.processed) != 1 {
		t.Fatalf("delete event not marked processed")
	}
}

func TestProcessBatch_AbsentNonDeleteIsBenignSkip(t *testing.T) {
	outbox := newFakeOutboxRepo()
	aggs := newFakeAggregateRepo()
	graph := &fakeGraphWriter{}
	svc := newTestService(t, outbox, aggs, graph)

	ev := event(uuid.New(), types.OutboxOpUpdate)
	svc.ProcessBatch(context.Background(), []*types.OutboxEvent{ev})

	if len(graph.upserts) != 0 || len(graph.deletes) != 0 {
		t.Fatalf("absent non-delete must not touch the graph: %v %v", graph.upserts, graph.deletes)
	}
	if len(outbox.processed) != 1 || outbox.processed[0] != ev.ID {
		t.Fatalf("benign skip must complete the event: %v", outbox.processed)
	}
	if len(outbox.failed) != 0 {
		t.Fatalf("benign skip is not a failure: %v", outbox.failed)
	}
}

func TestProcessBatch_FailureIsolation(t *testing.T) {
	outbox := newFakeOutboxRepo()
	aggs := newFakeAggregateRepo()
	graph := &fakeGraphWriter{}
	svc := newTestService(t, outbox, aggs, graph)

	firstID, brokenID, thirdID := uuid.New(), uuid.New(), uuid.New()
	aggs.aggs[firstID] = aggregateFor(firstID)
	aggs.errs[brokenID] = errors.New("connection reset")
	aggs.aggs[thirdID] = aggregateFor(thirdID)

	first := event(firstID, types.OutboxOpInsert)
	broken := event(brokenID, types.OutboxOpUpdate)
	third := event(thirdID, types.OutboxOpUpdate)

	svc.ProcessBatch(context.Background(), []*types.OutboxEvent{first, broken, third})

	if len(graph.upserts) != 2 {
		t.Fatalf("outer events must still apply, got %d upserts", len(graph.upserts))
	}
	if len(outbox.processed) != 2 {
		t.Fatalf("expected 2 processed, got %v", outbox.processed)
	}
	msg, ok := outbox.failed[broken.ID]
	if !ok {
		t.Fatalf("middle event not marked failed")
	}
	if msg == "" {
		t.Fatalf("failure must record the error message")
	}
}

func TestProcessBatch_UpsertErrorMarksFailed(t *testing.T) {
	outbox := newFakeOutboxRepo()
	aggs := newFakeAggregateRepo()
	graph := &fakeGraphWriter{upsertErr: errors.New("nutrition facts reference a missing nutrient definition")}
	svc := newTestService(t, outbox, aggs, graph)

	recipeID := uuid.New()
	aggs.aggs[recipeID] = aggregateFor(recipeID)

	ev := event(recipeID, types.OutboxOpUpdate)
	svc.ProcessBatch(context.Background(), []*types.OutboxEvent{ev})

	if len(outbox.processed) != 0 {
		t.Fatalf("failed upsert must not complete the event")
	}
	if _, ok := outbox.failed[ev.ID]; !ok {
		t.Fatalf("failed upsert must mark the event failed")
	}
}

func TestProcessBatch_CancelledContextLeavesRemainder(t *testing.T) {
	outbox := newFakeOutboxRepo()
	aggs := newFakeAggregateRepo()
	graph := &fakeGraphWriter{}
	svc := newTestService(t, outbox, aggs, graph)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	recipeID := uuid.New()
	aggs.aggs[recipeID] = aggregateFor(recipeID)
	svc.ProcessBatch(ctx, []*types.OutboxEvent{event(recipeID, types.OutboxOpInsert)})

	if len(graph.upserts) != 0 || len(outbox.processed) != 0 {
		t.Fatalf("cancelled batch must not start new events")
	}
}
