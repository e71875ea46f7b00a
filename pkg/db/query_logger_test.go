package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/letrinh/letrinh-backend/pkg/logger"
)

func newBufferedQueryLogger(slow time.Duration) (gormlogger.Interface, *bytes.Buffer) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf, Format: logger.FormatJSON})
	return newQueryLogger(logg, slow), &buf
}

func TestQueryLoggerSkipsFastAndNotFound(t *testing.T) {
	q, buf := newBufferedQueryLogger(time.Second)
	trace := func() (string, int64) { return "SELECT 1", 1 }

	q.Trace(context.Background(), time.Now(), trace, nil)
	q.Trace(context.Background(), time.Now(), trace, gorm.ErrRecordNotFound)

	assert.Zero(t, buf.Len())
}

func TestQueryLoggerReportsSlowAndFailed(t *testing.T) {
	q, buf := newBufferedQueryLogger(10 * time.Millisecond)
	trace := func() (string, int64) { return "UPDATE orders SET status = 'PAID'", 3 }

	q.Trace(context.Background(), time.Now().Add(-time.Second), trace, nil)
	assert.Contains(t, buf.String(), "db.query.slow")
	assert.Contains(t, buf.String(), `"rows":3`)

	buf.Reset()
	q.Trace(context.Background(), time.Now(), trace, errors.New("deadlock detected"))
	assert.Contains(t, buf.String(), "db.query.failed")
	assert.Contains(t, buf.String(), "deadlock detected")
}

func TestQueryLoggerSilentMode(t *testing.T) {
	q, buf := newBufferedQueryLogger(time.Nanosecond)
	silent := q.LogMode(gormlogger.Silent)
	silent.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) { return "SELECT 1", 0 }, errors.New("x"))
	assert.Zero(t, buf.Len())
}

func TestNewQueryLoggerWithoutLogger(t *testing.T) {
	assert.Equal(t, gormlogger.Discard, newQueryLogger(nil, time.Second))
}
