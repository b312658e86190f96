package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/harrison/projdock/internal/models"
)

// PutQuickLaunch creates or replaces a named entry. Names are case-insensitive.
func (s *Store) PutQuickLaunch(ctx context.Context, q *models.QuickLaunch) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("invalid quick launch: %w", err)
	}
	q.Name = strings.TrimSpace(q.Name)
	q.Target = strings.TrimSpace(q.Target)
	q.CreatedAt = s.timestamp()

	_, err := s.db.ExecContext(ctx, `INSERT INTO quick_launch (name, target, created_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET name = excluded.name, target = excluded.target, created_at = excluded.created_at`,
		q.Name, q.Target, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("save quick launch: %w", err)
	}
	return nil
}

// ListQuickLaunch returns all entries sorted by name
func (s *Store) ListQuickLaunch(ctx context.Context) ([]models.QuickLaunch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, target, created_at FROM quick_launch ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query quick launch: %w", err)
	}
	defer rows.Close()

	var out []models.QuickLaunch
	for rows.Next() {
		var q models.QuickLaunch
		if err := rows.Scan(&q.Name, &q.Target, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan quick launch: %w", err)
		}
		q.CreatedAt = q.CreatedAt.UTC()
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quick launch: %w", err)
	}
	return out, nil
}

// GetQuickLaunch looks an entry up by name
func (s *Store) GetQuickLaunch(ctx context.Context, name string) (*models.QuickLaunch, error) {
	var q models.QuickLaunch
	err := s.db.QueryRowContext(ctx, `SELECT name, target, created_at FROM quick_launch WHERE name = ?`,
		strings.TrimSpace(name)).Scan(&q.Name, &q.Target, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("quick launch %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query quick launch: %w", err)
	}
	q.CreatedAt = q.CreatedAt.UTC()
	return &q, nil
}

// DeleteQuickLaunch removes an entry by name
func (s *Store) DeleteQuickLaunch(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quick_launch WHERE name = ?`, strings.TrimSpace(name))
	if err != nil {
		return fmt.Errorf("delete quick launch: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("quick launch %q", name))
}
