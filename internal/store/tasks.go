package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/harrison/projdock/internal/models"
)

// AddTask validates and inserts a task, assigning ID and CreatedAt
func (s *Store) AddTask(ctx context.Context, t *models.Task) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}
	t.Title = strings.TrimSpace(t.Title)
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = s.timestamp()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if t.ProjectID != 0 {
			if err := projectExists(ctx, tx, t.ProjectID); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO tasks (id, title, project_id, due_at, done, created_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Title, nullInt(t.ProjectID), nullTime(t.DueAt), t.Done, t.CreatedAt, nullTime(t.CompletedAt))
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		return nil
	})
}

// ListTasks returns open tasks ordered by due date (undated last) then
// creation time. Completed tasks follow when includeDone is set.
func (s *Store) ListTasks(ctx context.Context, includeDone bool) ([]models.Task, error) {
	query := `SELECT id, title, project_id, due_at, done, created_at, completed_at FROM tasks`
	if !includeDone {
		query += ` WHERE done = 0`
	}
	query += ` ORDER BY done ASC, due_at IS NULL, due_at ASC, created_at ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var (
			t         models.Task
			projectID sql.NullInt64
			due, done sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.Title, &projectID, &due, &t.Done, &t.CreatedAt, &done); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.ProjectID = projectID.Int64
		t.DueAt = timePtr(due)
		t.CompletedAt = timePtr(done)
		t.CreatedAt = t.CreatedAt.UTC()
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// CompleteTask marks a task done. id may be a unique prefix.
func (s *Store) CompleteTask(ctx context.Context, id string) (*models.Task, error) {
	var task *models.Task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		full, err := resolveTaskIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET done = 1, completed_at = COALESCE(completed_at, ?) WHERE id = ?`,
			s.timestamp(), full); err != nil {
			return fmt.Errorf("complete task: %w", err)
		}

		var (
			t         models.Task
			projectID sql.NullInt64
			due, done sql.NullTime
		)
		err = tx.QueryRowContext(ctx, `SELECT id, title, project_id, due_at, done, created_at, completed_at
			FROM tasks WHERE id = ?`, full).
			Scan(&t.ID, &t.Title, &projectID, &due, &t.Done, &t.CreatedAt, &done)
		if err != nil {
			return fmt.Errorf("reload task: %w", err)
		}
		t.ProjectID = projectID.Int64
		t.DueAt = timePtr(due)
		t.CompletedAt = timePtr(done)
		t.CreatedAt = t.CreatedAt.UTC()
		task = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask removes a task. id may be a unique prefix.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		full, err := resolveTaskIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, full); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
}

// resolveTaskIDTx expands a task ID prefix to the full ID
func resolveTaskIDTx(ctx context.Context, tx *sql.Tx, prefix string) (string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", fmt.Errorf("task id is required")
	}

	rows, err := tx.QueryContext(ctx, `SELECT id FROM tasks WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escapeLike(prefix)+"%")
	if err != nil {
		return "", fmt.Errorf("query task id: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan task id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate task ids: %w", err)
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("task %q: %w", prefix, ErrNotFound)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("task id %q is ambiguous", prefix)
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
