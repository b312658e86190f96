package models

import (
	"errors"
	"strings"
	"time"
)

// Task is a quick to-do item, optionally linked to a project
type Task struct {
	ID          string     // UUID
	Title       string     // What needs doing
	ProjectID   int64      // Linked project (0 = none)
	DueAt       *time.Time // Optional due date
	Done        bool       // Completed flag
	CreatedAt   time.Time  // Creation time
	CompletedAt *time.Time // Set when Done flips to true
}

// Validate checks if the task has all required fields
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("task title is required")
	}
	return nil
}

// Overdue reports whether an open task is past its due date
func (t *Task) Overdue(now time.Time) bool {
	return !t.Done && t.DueAt != nil && now.After(*t.DueAt)
}

// TimerSession is one start/stop interval of the work timer
type TimerSession struct {
	ID        int64
	ProjectID int64      // 0 when the timer is not tied to a project
	Label     string     // Free-form label
	StartedAt time.Time  // Start time (UTC)
	StoppedAt *time.Time // Nil while running
}

// Duration returns the elapsed time; running sessions measure up to now
func (s *TimerSession) Duration(now time.Time) time.Duration {
	end := now
	if s.StoppedAt != nil {
		end = *s.StoppedAt
	}
	if end.Before(s.StartedAt) {
		return 0
	}
	return end.Sub(s.StartedAt)
}

// Running reports whether the session has not been stopped
func (s *TimerSession) Running() bool {
	return s.StoppedAt == nil
}

// QuickLaunch is a named shortcut to a file, folder, or URL
type QuickLaunch struct {
	Name      string
	Target    string
	CreatedAt time.Time
}

// Validate checks if the entry has a name and target
func (q *QuickLaunch) Validate() error {
	if strings.TrimSpace(q.Name) == "" {
		return errors.New("quick launch name is required")
	}
	if strings.TrimSpace(q.Target) == "" {
		return errors.New("quick launch target is required")
	}
	return nil
}

// Event is a telemetry event row
type Event struct {
	ID        int64
	SessionID string
	DeviceID  string
	Name      string
	Payload   map[string]any
	CreatedAt time.Time
}
