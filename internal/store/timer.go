package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/harrison/projdock/internal/models"
)

// TimerTotal is the accumulated time for one project in a report
type TimerTotal struct {
	ProjectID int64 // 0 for sessions without a project
	Folder    string
	Sessions  int
	Duration  time.Duration
}

// StartTimer opens a new session. Only one session may run at a time.
func (s *Store) StartTimer(ctx context.Context, projectID int64, label string) (*models.TimerSession, error) {
	session := &models.TimerSession{
		ProjectID: projectID,
		Label:     label,
		StartedAt: s.timestamp(),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		running, err := activeTimerTx(ctx, tx)
		if err != nil && !errors.Is(err, ErrNoActiveTimer) {
			return err
		}
		if running != nil {
			return fmt.Errorf("start timer (session %d since %s): %w",
				running.ID, running.StartedAt.Format(time.RFC3339), ErrTimerRunning)
		}
		if projectID != 0 {
			if err := projectExists(ctx, tx, projectID); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO timer_sessions (project_id, label, started_at) VALUES (?, ?, ?)`,
			nullInt(projectID), label, session.StartedAt)
		if err != nil {
			return fmt.Errorf("insert timer session: %w", err)
		}
		session.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("get timer session id: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// StopTimer closes the running session and returns it
func (s *Store) StopTimer(ctx context.Context) (*models.TimerSession, error) {
	var session *models.TimerSession
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		running, err := activeTimerTx(ctx, tx)
		if err != nil {
			return err
		}
		stopped := s.timestamp()
		if stopped.Before(running.StartedAt) {
			stopped = running.StartedAt
		}
		if _, err := tx.ExecContext(ctx, `UPDATE timer_sessions SET stopped_at = ? WHERE id = ?`, stopped, running.ID); err != nil {
			return fmt.Errorf("stop timer: %w", err)
		}
		running.StoppedAt = &stopped
		session = running
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ActiveTimer returns the running session or ErrNoActiveTimer
func (s *Store) ActiveTimer(ctx context.Context) (*models.TimerSession, error) {
	var session *models.TimerSession
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		session, err = activeTimerTx(ctx, tx)
		return err
	})
	return session, err
}

// TimerReport totals sessions started at or after since, grouped by project
// and sorted by duration. Running sessions count up to now.
func (s *Store) TimerReport(ctx context.Context, since time.Time) ([]TimerTotal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT t.project_id, COALESCE(p.folder_name, ''), t.started_at, t.stopped_at
		FROM timer_sessions t LEFT JOIN projects p ON p.id = t.project_id
		WHERE t.started_at >= ?`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query timer sessions: %w", err)
	}
	defer rows.Close()

	now := s.timestamp()
	byProject := make(map[int64]*TimerTotal)
	for rows.Next() {
		var (
			projectID sql.NullInt64
			folder    string
			session   models.TimerSession
			stopped   sql.NullTime
		)
		if err := rows.Scan(&projectID, &folder, &session.StartedAt, &stopped); err != nil {
			return nil, fmt.Errorf("scan timer session: %w", err)
		}
		session.StoppedAt = timePtr(stopped)

		total, ok := byProject[projectID.Int64]
		if !ok {
			total = &TimerTotal{ProjectID: projectID.Int64, Folder: folder}
			byProject[projectID.Int64] = total
		}
		total.Sessions++
		total.Duration += session.Duration(now)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timer sessions: %w", err)
	}

	totals := make([]TimerTotal, 0, len(byProject))
	for _, t := range byProject {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Duration != totals[j].Duration {
			return totals[i].Duration > totals[j].Duration
		}
		return totals[i].ProjectID < totals[j].ProjectID
	})
	return totals, nil
}

func activeTimerTx(ctx context.Context, tx *sql.Tx) (*models.TimerSession, error) {
	var (
		session   models.TimerSession
		projectID sql.NullInt64
	)
	err := tx.QueryRowContext(ctx, `SELECT id, project_id, label, started_at FROM timer_sessions
		WHERE stopped_at IS NULL ORDER BY started_at DESC LIMIT 1`).
		Scan(&session.ID, &projectID, &session.Label, &session.StartedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveTimer
	}
	if err != nil {
		return nil, fmt.Errorf("query active timer: %w", err)
	}
	session.ProjectID = projectID.Int64
	session.StartedAt = session.StartedAt.UTC()
	return &session, nil
}
