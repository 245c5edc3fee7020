package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stayregistry-backend/pkg/redis"
)

// Manager tracks delivered event IDs per sink using Redis SETNX with a TTL so
// a row re-fetched after a failed mark-published is not fanned out twice.
// Keys follow the `sr:idempotency:evt:delivered:<sink>:<event_id>` pattern.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewManager builds an idempotency guard that marks events as delivered for the given TTL.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// CheckAndMark returns true if the event was already delivered to sink and
// otherwise marks it as delivered with the configured TTL.
func (m *Manager) CheckAndMark(ctx context.Context, sink string, eventID uuid.UUID) (bool, error) {
	key, err := m.deliveredKey(sink, eventID)
	if err != nil {
		return false, err
	}
	set, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Delete forgets a delivery mark so the event is published again on the next attempt.
func (m *Manager) Delete(ctx context.Context, sink string, eventID uuid.UUID) error {
	key, err := m.deliveredKey(sink, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) deliveredKey(sink string, eventID uuid.UUID) (string, error) {
	if sink == "" {
		return "", errors.New("sink name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	scope := fmt.Sprintf("evt:delivered:%s", sink)
	return m.store.IdempotencyKey(scope, eventID.String()), nil
}
