package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stayregistry-backend/pkg/enums"
)

// OutboxEvent represents an append-only lifecycle fact emitted via the outbox
// pattern. Sequence doubles as the polling cursor of the event feed.
type OutboxEvent struct {
	Sequence      uint64                    `gorm:"column:sequence;primaryKey;autoIncrement"`
	EventID       uuid.UUID                 `gorm:"column:event_id;type:uuid;not null;uniqueIndex:ux_outbox_events_event_id"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:text;not null;index:idx_outbox_events_type"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:text;not null"`
	AggregateID   string                    `gorm:"column:aggregate_id;type:text;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
	PublishedAt   *time.Time                `gorm:"column:published_at"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error"`
}

func (e *OutboxEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
