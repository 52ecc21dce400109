package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/platefuel/recipegraph/internal/platform/logger"
	"github.com/platefuel/recipegraph/internal/types"
)

const maxErrorLen = 2000

type OutboxEventRepo interface {
	// ClaimPending atomically claims up to limit events that are still
	// retryable and match the watched source tables / aggregate types.
	// Claimed rows are marked processing and their attempt counter is spent
	// up front, so a worker crash cannot grant an event extra deliveries.
	ClaimPending(ctx context.Context, tx *gorm.DB, limit, maxAttempts int, sourceTables, aggregateTypes []string) ([]*types.OutboxEvent, error)
	MarkProcessed(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, errMsg string) error
	// RequeueStalled flips events stuck in processing longer than olderThan
	// back to pending. This is the crash-recovery half of the claim lease.
	RequeueStalled(ctx context.Context, tx *gorm.DB, olderThan time.Duration) (int64, error)
	// CountExhausted reports events whose attempts reached the ceiling.
	// They are never claimed again; the count exists for alerting.
	CountExhausted(ctx context.Context, tx *gorm.DB, maxAttempts int) (int64, error)
}

type outboxEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOutboxEventRepo(db *gorm.DB, baseLog *logger.Logger) OutboxEventRepo {
	return &outboxEventRepo{
		db:  db,
		log: baseLog.With("repo", "OutboxEventRepo"),
	}
}

func (r *outboxEventRepo) ClaimPending(ctx context.Context, tx *gorm.DB, limit, maxAttempts int, sourceTables, aggregateTypes []string) ([]*types.OutboxEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		return nil, nil
	}

	var claimed []*types.OutboxEvent
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var rows []*types.OutboxEvent
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status IN ?", []string{types.OutboxStatusPending, types.OutboxStatusFailed}).
			Where("attempts < ?", maxAttempts)
		if len(sourceTables) > 0 {
			q = q.Where("source_table IN ?", sourceTables)
		}
		if len(aggregateTypes) > 0 {
			q = q.Where("aggregate_type IN ?", aggregateTypes)
		}
		if err := q.Order("created_at ASC").Limit(limit).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		now := time.Now().UTC()
		ids := make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		if err := txx.Model(&types.OutboxEvent{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":     types.OutboxStatusProcessing,
				"attempts":   gorm.Expr("attempts + 1"),
				"updated_at": now,
			}).Error; err != nil {
			return err
		}
		for _, row := range rows {
			row.Status = types.OutboxStatusProcessing
			row.Attempts++
			row.UpdatedAt = now
		}
		claimed = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *outboxEventRepo) MarkProcessed(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	return transaction.WithContext(ctx).Model(&types.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       types.OutboxStatusProcessed,
			"last_error":   nil,
			"processed_at": now,
			"updated_at":   now,
		}).Error
}

func (r *outboxEventRepo) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, errMsg string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if len(errMsg) > maxErrorLen {
		errMsg = errMsg[:maxErrorLen]
	}
	return transaction.WithContext(ctx).Model(&types.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     types.OutboxStatusFailed,
			"last_error": errMsg,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *outboxEventRepo) RequeueStalled(ctx context.Context, tx *gorm.DB, olderThan time.Duration) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	res := transaction.WithContext(ctx).Model(&types.OutboxEvent{}).
		Where("status = ? AND updated_at < ?", types.OutboxStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":     types.OutboxStatusPending,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *outboxEventRepo) CountExhausted(ctx context.Context, tx *gorm.DB, maxAttempts int) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(ctx).Model(&types.OutboxEvent{}).
		Where("status = ? AND attempts >= ?", types.OutboxStatusFailed, maxAttempts).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
