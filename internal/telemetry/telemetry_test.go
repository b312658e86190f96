package telemetry

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/projdock/internal/logger"
	"github.com/harrison/projdock/internal/models"
	"github.com/harrison/projdock/internal/store"
)

type failingSink struct{}

func (failingSink) RecordEvent(context.Context, *models.Event) error {
	return errors.New("disk full")
}
func (failingSink) EventCounts(context.Context, time.Time) (map[string]int, error) {
	return nil, errors.New("disk full")
}
func (failingSink) PurgeEvents(context.Context, time.Time) (int64, error) {
	return 0, errors.New("disk full")
}
func (failingSink) DeviceID(context.Context) (string, error) { return "", errors.New("disk full") }

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecorder_Record(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	r := NewRecorder(ctx, s, nil, true, 30)
	require.True(t, r.Enabled())
	_, err := uuid.Parse(r.SessionID())
	require.NoError(t, err)

	r.Record(ctx, EventSearch, map[string]any{"terms": 1})
	r.Record(ctx, EventSearch, nil)
	r.Record(ctx, EventOpenProject, map[string]any{"number": "2024701"})

	counts, err := r.Counts(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{EventSearch: 2, EventOpenProject: 1}, counts)

	events, err := s.RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	deviceID, err := s.DeviceID(ctx)
	require.NoError(t, err)
	for _, e := range events {
		assert.Equal(t, r.SessionID(), e.SessionID)
		assert.Equal(t, deviceID, e.DeviceID)
	}
}

func TestRecorder_Disabled(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	r := NewRecorder(ctx, s, nil, false, 30)
	assert.False(t, r.Enabled())
	r.Record(ctx, EventSearch, nil)

	counts, err := s.EventCounts(ctx, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, counts)

	var nilRecorder *Recorder
	assert.False(t, nilRecorder.Enabled())
	nilRecorder.Record(ctx, EventSearch, nil)
	n, err := nilRecorder.Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecorder_FailuresAreLogged(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.NewConsoleLogger(buf, "warn")
	ctx := context.Background()

	r := NewRecorder(ctx, failingSink{}, log, true, 30)
	r.Record(ctx, EventScan, nil)

	assert.Contains(t, buf.String(), "device id unavailable")
	assert.Contains(t, buf.String(), "record scan: disk full")

	_, err := r.Counts(ctx, 7)
	assert.Error(t, err)
}

func TestRecorder_Purge(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	r := NewRecorder(ctx, s, nil, true, 30)
	r.now = func() time.Time { return now.AddDate(0, 0, -40) }
	r.Record(ctx, EventScan, nil)
	r.now = func() time.Time { return now }
	r.Record(ctx, EventScan, nil)

	recent, err := r.Counts(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, recent[EventScan])

	n, err := r.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	keepAll := NewRecorder(ctx, s, nil, true, 0)
	n, err = keepAll.Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
