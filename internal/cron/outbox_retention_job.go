package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/letrinh/letrinh-backend/pkg/logger"
)

const (
	outboxRetentionDays = 30
	dlqRetentionDays    = 90
	outboxMinAttempts   = 5
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type dlqRetentionRepo interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// PruneRecorder counts rows removed per table.
type PruneRecorder interface {
	AddPruned(job, table string, rows int64)
}

type OutboxRetentionJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Repository   outboxRetentionRepo
	DLQ          dlqRetentionRepo
	Retention    int
	DLQRetention int
	MinAttempts  int
	Pruned       PruneRecorder
}

// NewOutboxRetentionJob prunes delivered outbox rows and old dead letters.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if params.DLQ == nil {
		return nil, fmt.Errorf("outbox dlq repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = outboxRetentionDays
	}
	dlqRetention := params.DLQRetention
	if dlqRetention <= 0 {
		dlqRetention = dlqRetentionDays
	}
	minAttempts := params.MinAttempts
	if minAttempts <= 0 {
		minAttempts = outboxMinAttempts
	}
	return &outboxRetentionJob{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		dlq:          params.DLQ,
		retention:    retention,
		dlqRetention: dlqRetention,
		minAttempts:  minAttempts,
		pruned:       params.Pruned,
		now:          time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg         *logger.Logger
	db           txRunner
	repo         outboxRetentionRepo
	dlq          dlqRetentionRepo
	retention    int
	dlqRetention int
	minAttempts  int
	pruned       PruneRecorder
	now          func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run sweeps both tables independently; one failing does not skip the other.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	eventsCutoff := now.Add(-time.Duration(j.retention) * 24 * time.Hour)
	dlqCutoff := now.Add(-time.Duration(j.dlqRetention) * 24 * time.Hour)

	var events, letters int64
	var errs error
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeletePublishedBefore(ctx, tx, eventsCutoff, j.minAttempts)
		events = rows
		return err
	})
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("outbox events: %w", err))
	}
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.dlq.DeleteFailedBefore(ctx, tx, dlqCutoff)
		letters = rows
		return err
	})
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("outbox dlq: %w", err))
	}

	if j.pruned != nil {
		j.pruned.AddPruned(j.Name(), "outbox_events", events)
		j.pruned.AddPruned(j.Name(), "outbox_dlq", letters)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"events_cutoff":        eventsCutoff,
		"dlq_cutoff":           dlqCutoff,
		"min_attempts":         j.minAttempts,
		"events_deleted":       events,
		"dead_letters_deleted": letters,
	})
	if errs != nil {
		return fmt.Errorf("outbox retention: %w", errs)
	}
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}
