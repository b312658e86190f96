package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harrison/projdock/internal/models"
)

// RecordEvent inserts a telemetry event. A nil payload is stored as {}.
func (s *Store) RecordEvent(ctx context.Context, e *models.Event) error {
	if e.Name == "" {
		return fmt.Errorf("event name is required")
	}
	payload := e.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.timestamp()
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO telemetry_events (session_id, device_id, event, payload, created_at)
		VALUES (?, ?, ?, ?, ?)`, e.SessionID, e.DeviceID, e.Name, string(data), e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("get event id: %w", err)
	}
	return nil
}

// EventCounts counts events by name recorded at or after since
func (s *Store) EventCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT event, COUNT(*) FROM telemetry_events
		WHERE created_at >= ? GROUP BY event`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query event counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		counts[name] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event counts: %w", err)
	}
	return counts, nil
}

// RecentEvents returns the newest events first
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, session_id, device_id, event, payload, created_at
		FROM telemetry_events ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		var payload string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.DeviceID, &e.Name, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal event %d payload: %w", e.ID, err)
		}
		e.CreatedAt = e.CreatedAt.UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// PurgeEvents deletes events recorded before olderThan and returns how many
func (s *Store) PurgeEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM telemetry_events WHERE created_at < ?`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
