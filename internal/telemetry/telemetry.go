// Package telemetry records local usage events (searches, opens, scans) in
// the projdock database. Nothing leaves the machine.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/projdock/internal/logger"
	"github.com/harrison/projdock/internal/models"
)

// Event names
const (
	EventScan        = "scan"
	EventSearch      = "search"
	EventOpenProject = "open_project"
	EventOpenDoc     = "open_document"
	EventQuickLaunch = "quick_launch"
	EventTimerStart  = "timer_start"
	EventTimerStop   = "timer_stop"
	EventTaskAdd     = "task_add"
)

// Sink persists events; *store.Store satisfies it
type Sink interface {
	RecordEvent(ctx context.Context, e *models.Event) error
	EventCounts(ctx context.Context, since time.Time) (map[string]int, error)
	PurgeEvents(ctx context.Context, olderThan time.Time) (int64, error)
	DeviceID(ctx context.Context) (string, error)
}

// Recorder stamps events with a per-process session id and the device id.
// Recording never fails the caller; problems are logged at warn level.
type Recorder struct {
	sink      Sink
	log       logger.Logger
	enabled   bool
	keepDays  int
	sessionID string
	deviceID  string
	now       func() time.Time
}

// NewRecorder creates a recorder. A disabled recorder drops every event.
func NewRecorder(ctx context.Context, sink Sink, log logger.Logger, enabled bool, keepDays int) *Recorder {
	r := &Recorder{
		sink:      sink,
		log:       logger.OrNoOp(log),
		enabled:   enabled && sink != nil,
		keepDays:  keepDays,
		sessionID: uuid.NewString(),
		now:       time.Now,
	}
	if r.enabled {
		id, err := sink.DeviceID(ctx)
		if err != nil {
			r.log.LogWarn(fmt.Sprintf("telemetry: device id unavailable: %v", err))
		}
		r.deviceID = id
	}
	return r
}

// Enabled reports whether events are being recorded
func (r *Recorder) Enabled() bool {
	return r != nil && r.enabled
}

// SessionID identifies this process's events
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Record stores an event. It is safe on a nil Recorder.
func (r *Recorder) Record(ctx context.Context, name string, payload map[string]any) {
	if !r.Enabled() {
		return
	}
	e := &models.Event{
		SessionID: r.sessionID,
		DeviceID:  r.deviceID,
		Name:      name,
		Payload:   payload,
		CreatedAt: r.now().UTC(),
	}
	if err := r.sink.RecordEvent(ctx, e); err != nil {
		r.log.LogWarn(fmt.Sprintf("telemetry: record %s: %v", name, err))
	}
}

// Counts returns event counts for the last days days (0 = all time)
func (r *Recorder) Counts(ctx context.Context, days int) (map[string]int, error) {
	if r == nil || r.sink == nil {
		return map[string]int{}, nil
	}
	since := time.Time{}
	if days > 0 {
		since = r.now().AddDate(0, 0, -days)
	}
	counts, err := r.sink.EventCounts(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("event counts: %w", err)
	}
	return counts, nil
}

// Purge deletes events older than the configured retention. A zero
// retention keeps everything.
func (r *Recorder) Purge(ctx context.Context) (int64, error) {
	if r == nil || r.sink == nil || r.keepDays <= 0 {
		return 0, nil
	}
	cutoff := r.now().AddDate(0, 0, -r.keepDays)
	n, err := r.sink.PurgeEvents(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge events: %w", err)
	}
	r.log.LogDebug(fmt.Sprintf("telemetry: purged %d events before %s", n, cutoff.Format(time.DateOnly)))
	return n, nil
}
