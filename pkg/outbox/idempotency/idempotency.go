// Package idempotency remembers which outbox events a consumer already handled
// so broker redeliveries do not repeat side effects.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrConsumerRequired = errors.New("consumer name is required")
	ErrInvalidEventID   = errors.New("event id must be a non-nil uuid")
)

// Store is the slice of the redis client the manager uses.
type Store interface {
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

// Manager marks (consumer, event id) pairs with SETNX. The stored value is
// the time the mark was taken, which helps when reading keys by hand.
// A zero ttl keeps marks forever.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, fmt.Errorf("ttl must be non-negative, got %s", ttl)
	}
	return &Manager{store: store, ttl: ttl, now: time.Now}, nil
}

// CheckAndMarkProcessed reports true when another delivery already claimed
// the event. Otherwise it claims it and returns false.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	claimed, err := m.store.SetNX(ctx, key, m.now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return !claimed, nil
}

// Release drops a claim so the next delivery runs again.
func (m *Manager) Release(ctx context.Context, consumer, eventID string) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(consumer, eventID string) (string, error) {
	consumer = strings.ToLower(strings.TrimSpace(consumer))
	if consumer == "" {
		return "", ErrConsumerRequired
	}
	id, err := uuid.Parse(strings.TrimSpace(eventID))
	if err != nil || id == uuid.Nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidEventID, eventID)
	}
	return m.store.IdempotencyKey("evt:processed:"+consumer, id.String()), nil
}
