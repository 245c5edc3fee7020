package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/stayregistry-backend/pkg/db/models"
	"github.com/angelmondragon/stayregistry-backend/pkg/enums"
)

const (
	DefaultFeedLimit = 50
	MaxFeedLimit     = 500
)

// FeedEvent is the read model of a committed lifecycle fact.
type FeedEvent struct {
	Sequence      uint64                    `json:"sequence"`
	EventID       string                    `json:"event_id"`
	EventType     enums.OutboxEventType     `json:"event_type"`
	AggregateType enums.OutboxAggregateType `json:"aggregate_type"`
	AggregateID   string                    `json:"aggregate_id"`
	Version       int                       `json:"version"`
	OccurredAt    time.Time                 `json:"occurred_at"`
	Actor         *ActorRef                 `json:"actor,omitempty"`
	Data          json.RawMessage           `json:"data"`
}

// FeedPage is one page of the polling feed. Next is the cursor to pass as
// after on the following call; it equals the request cursor when the page
// is empty.
type FeedPage struct {
	Events []FeedEvent `json:"events"`
	Next   uint64      `json:"next"`
}

type feedRepository interface {
	ListAfter(ctx context.Context, after uint64, limit int, eventType *enums.OutboxEventType) ([]models.OutboxEvent, error)
}

// Feed serves committed events ordered by sequence.
type Feed struct {
	repo feedRepository
}

func NewFeed(repo feedRepository) (*Feed, error) {
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	return &Feed{repo: repo}, nil
}

// List returns up to limit events after the given sequence, optionally
// filtered by type.
func (f *Feed) List(ctx context.Context, after uint64, limit int, eventType *enums.OutboxEventType) (FeedPage, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}
	rows, err := f.repo.ListAfter(ctx, after, limit, eventType)
	if err != nil {
		return FeedPage{}, fmt.Errorf("list outbox events: %w", err)
	}
	page := FeedPage{Events: make([]FeedEvent, 0, len(rows)), Next: after}
	for _, row := range rows {
		event, err := toFeedEvent(row)
		if err != nil {
			return FeedPage{}, err
		}
		page.Events = append(page.Events, event)
		page.Next = row.Sequence
	}
	return page, nil
}

func toFeedEvent(row models.OutboxEvent) (FeedEvent, error) {
	var envelope PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		return FeedEvent{}, fmt.Errorf("decode envelope %d: %w", row.Sequence, err)
	}
	return FeedEvent{
		Sequence:      row.Sequence,
		EventID:       row.EventID.String(),
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Version:       envelope.Version,
		OccurredAt:    envelope.OccurredAt,
		Actor:         envelope.Actor,
		Data:          envelope.Data,
	}, nil
}
