package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/letrinh/letrinh-backend/pkg/db/models"
)

const maxDLQErrorLen = 1024

var (
	// ErrDeadLetterNotFound is returned by Replay for an unknown event id.
	ErrDeadLetterNotFound = errors.New("dead letter not found")
	// ErrNotReplayable is returned by Replay when the recorded reason means a
	// second attempt would fail the same way.
	ErrNotReplayable = errors.New("dead letter is not replayable")
)

// DLQRepository stores outbox rows the publisher gave up on.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errTxRequired
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.ErrorMessage != nil {
		msg := truncateError(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// FindByEventID returns nil, nil when the event never dead-lettered.
func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	return firstOrNil[models.OutboxDLQ](r.db.WithContext(ctx).Where("event_id = ?", eventID))
}

// ListByAggregate returns the newest failures first.
func (r *DLQRepository) ListByAggregate(ctx context.Context, aggregateID string) ([]models.OutboxDLQ, error) {
	var rows []models.OutboxDLQ
	err := r.db.WithContext(ctx).
		Where("aggregate_id = ?", aggregateID).
		Order("failed_at DESC").
		Find(&rows).Error
	return rows, err
}

// DeleteFailedBefore drops dead letters recorded before cutoff.
func (r *DLQRepository) DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	res := tx.WithContext(ctx).Where("failed_at < ?", cutoff).Delete(&models.OutboxDLQ{})
	return res.RowsAffected, res.Error
}

// Replay puts a dead letter back on the publish queue with a fresh attempt
// budget and removes it from the DLQ. The outbox row is recreated from the
// stored payload because retention may already have pruned it.
func (r *DLQRepository) Replay(ctx context.Context, tx *gorm.DB, eventID uuid.UUID) (*models.OutboxEvent, error) {
	if tx == nil {
		return nil, errTxRequired
	}
	tx = tx.WithContext(ctx)
	entry, err := firstOrNil[models.OutboxDLQ](tx.Where("event_id = ?", eventID))
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrDeadLetterNotFound, eventID)
	}
	if !entry.ErrorReason.Replayable() {
		return nil, fmt.Errorf("%w: reason %s", ErrNotReplayable, entry.ErrorReason)
	}

	if err := tx.Where("id = ?", entry.EventID).Delete(&models.OutboxEvent{}).Error; err != nil {
		return nil, err
	}
	row := models.OutboxEvent{
		ID:            entry.EventID,
		EventType:     entry.EventType,
		AggregateType: entry.AggregateType,
		AggregateID:   entry.AggregateID,
		Payload:       entry.Payload,
	}
	if err := tx.Create(&row).Error; err != nil {
		return nil, err
	}
	if err := tx.Delete(&models.OutboxDLQ{}, "id = ?", entry.ID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func firstOrNil[T any](query *gorm.DB) (*T, error) {
	var out T
	if err := query.First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// truncateError caps stored error text without splitting a rune.
func truncateError(message string) string {
	if len(message) <= maxDLQErrorLen {
		return message
	}
	cut := maxDLQErrorLen
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut]
}
