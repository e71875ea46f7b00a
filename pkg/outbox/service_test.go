package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/letrinh/letrinh-backend/pkg/db/dbtest"
	"github.com/letrinh/letrinh-backend/pkg/db/models"
	"github.com/letrinh/letrinh-backend/pkg/enums"
)

func TestEmitWritesEnvelope(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   "order-1",
			Data:          map[string]string{"order_id": "order-1"},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	row := rows[0]
	assert.NotEqual(t, uuid.Nil, row.ID)
	assert.Equal(t, "order-1", row.AggregateID)
	assert.Nil(t, row.PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	assert.Equal(t, row.ID.String(), envelope.EventID)
	assert.Equal(t, 1, envelope.Version)
	assert.True(t, envelope.OccurredAt.Equal(fixed))
	assert.JSONEq(t, `{"order_id":"order-1"}`, string(envelope.Data))
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)

	boom := errors.New("boom")
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   "order-1",
			Data:          struct{}{},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitValidation(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	ctx := context.Background()

	assert.Error(t, svc.Emit(ctx, nil, DomainEvent{EventType: enums.EventOrderCreated, AggregateID: "x"}))
	assert.Error(t, svc.Emit(ctx, conn, DomainEvent{EventType: "nope", AggregateID: "x"}))
	assert.Error(t, svc.Emit(ctx, conn, DomainEvent{EventType: enums.EventOrderCreated}))
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	old := time.Now().UTC().Add(-48 * time.Hour)

	first := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: "a", Payload: json.RawMessage(`{}`), CreatedAt: old}
	second := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: "b", Payload: json.RawMessage(`{}`), CreatedAt: old.Add(time.Minute)}
	exhausted := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: "c", Payload: json.RawMessage(`{}`), CreatedAt: old, AttemptCount: 10}
	for _, row := range []models.OutboxEvent{first, second, exhausted} {
		require.NoError(t, repo.Insert(conn, row))
	}

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first.ID, rows[0].ID)

	require.NoError(t, repo.MarkPublishedTx(conn, first.ID, time.Now().UTC()))
	require.NoError(t, repo.MarkFailedTx(conn, second.ID, errors.New("sink down")))

	got, err := repo.FindByID(context.Background(), second.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.AttemptCount)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "sink down", *got.LastError)

	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, second.ID, rows[0].ID)

	deleted, err := repo.DeletePublishedBefore(context.Background(), nil, time.Now().UTC().Add(-24*time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := repo.FindByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.NotNil(t, remaining)
}

func TestDLQRepositoryTruncatesMessage(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewDLQRepository(conn)

	long := make([]byte, maxDLQErrorLen+50)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)
	eventID := uuid.New()
	require.NoError(t, repo.InsertTx(conn, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   "order-9",
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
	}))

	got, err := repo.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, *got.ErrorMessage, maxDLQErrorLen)

	rows, err := repo.ListByAggregate(context.Background(), "order-9")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	missing, err := repo.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDLQReplayRequeuesEvent(t *testing.T) {
	conn := dbtest.Open(t)
	outboxRepo := NewRepository(conn)
	dlqRepo := NewDLQRepository(conn)
	ctx := context.Background()

	eventID := uuid.New()
	require.NoError(t, outboxRepo.Insert(conn, models.OutboxEvent{
		ID:            eventID,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   "order-11",
		Payload:       json.RawMessage(`{"version":1}`),
		AttemptCount:  10,
	}))
	require.NoError(t, outboxRepo.MarkTerminalTx(conn, eventID, errors.New("sink down"), time.Now().UTC()))
	require.NoError(t, dlqRepo.InsertTx(conn, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   "order-11",
		Payload:       json.RawMessage(`{"version":1}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		FailedAt:      time.Now().UTC(),
	}))

	row, err := dlqRepo.Replay(ctx, conn, eventID)
	require.NoError(t, err)
	assert.Equal(t, eventID, row.ID)

	pending, err := outboxRepo.FetchUnpublishedForPublish(conn, 10, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Zero(t, pending[0].AttemptCount)

	gone, err := dlqRepo.FindByEventID(ctx, eventID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	_, err = dlqRepo.Replay(ctx, conn, eventID)
	assert.ErrorIs(t, err, ErrDeadLetterNotFound)
}

func TestDLQReplayRejectsPermanentFailures(t *testing.T) {
	conn := dbtest.Open(t)
	dlqRepo := NewDLQRepository(conn)

	eventID := uuid.New()
	require.NoError(t, dlqRepo.InsertTx(conn, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   "order-12",
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonUndecodable,
		FailedAt:      time.Now().UTC(),
	}))

	_, err := dlqRepo.Replay(context.Background(), conn, eventID)
	assert.ErrorIs(t, err, ErrNotReplayable)
}

func TestTruncateErrorKeepsRunesWhole(t *testing.T) {
	msg := strings.Repeat("a", maxDLQErrorLen-1) + "đơn"
	got := truncateError(msg)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), maxDLQErrorLen)
}
