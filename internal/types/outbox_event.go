package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	OutboxStatusPending    = "pending"
	OutboxStatusProcessing = "processing"
	OutboxStatusProcessed  = "processed"
	OutboxStatusFailed     = "failed"
)

const (
	OutboxOpInsert = "INSERT"
	OutboxOpUpdate = "UPDATE"
	OutboxOpDelete = "DELETE"
)

// OutboxEvent is one row of the changelog populated by triggers upstream.
// Payload carries the row image written by the trigger; the sync path never
// reads it because every apply re-reads current source state.
type OutboxEvent struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AggregateType string         `gorm:"column:aggregate_type;not null;index" json:"aggregate_type"`
	AggregateID   uuid.UUID      `gorm:"type:uuid;column:aggregate_id;not null;index" json:"aggregate_id"`
	Op            string         `gorm:"column:op;not null" json:"op"`
	SourceTable   string         `gorm:"column:source_table;not null;index" json:"source_table"`
	Payload       datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload,omitempty"`
	Status        string         `gorm:"column:status;not null;default:pending;index" json:"status"`
	Attempts      int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError     *string        `gorm:"column:last_error" json:"last_error,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	ProcessedAt   *time.Time     `gorm:"column:processed_at" json:"processed_at,omitempty"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }
