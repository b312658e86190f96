package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/harrison/projdock/internal/models"
)

// FrequentProject is a project with its launch statistics
type FrequentProject struct {
	Project    models.Project
	Count      int
	LastOpened time.Time
}

// RecordLaunch increments a project's launch count and stamps the time
func (s *Store) RecordLaunch(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := projectExists(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO launches (project_id, count, last_opened) VALUES (?, 1, ?)
			ON CONFLICT(project_id) DO UPDATE SET count = count + 1, last_opened = excluded.last_opened`,
			id, s.timestamp())
		if err != nil {
			return fmt.Errorf("record launch: %w", err)
		}
		return nil
	})
}

// LaunchCounts returns launch counts keyed by project ID
func (s *Store) LaunchCounts(ctx context.Context) (map[int64]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT project_id, count FROM launches`)
	if err != nil {
		return nil, fmt.Errorf("query launches: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan launch: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate launches: %w", err)
	}
	return counts, nil
}

// FrequentProjects returns the most launched projects, most recent first on ties
func (s *Store) FrequentProjects(ctx context.Context, limit int) ([]FrequentProject, error) {
	query := `SELECT p.id, p.folder_name, p.path, p.root, p.year, p.full_number, p.short_number, p.name,
			p.modified_at, p.scanned_at, p.pinned, l.count, l.last_opened
		FROM launches l JOIN projects p ON p.id = l.project_id
		ORDER BY l.count DESC, l.last_opened DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query frequent projects: %w", err)
	}
	defer rows.Close()

	var out []FrequentProject
	for rows.Next() {
		var (
			f        FrequentProject
			modified sql.NullTime
		)
		p := &f.Project
		if err := rows.Scan(&p.ID, &p.FolderName, &p.Path, &p.Root, &p.Year, &p.FullNumber, &p.ShortNumber,
			&p.Name, &modified, &p.ScannedAt, &p.Pinned, &f.Count, &f.LastOpened); err != nil {
			return nil, fmt.Errorf("scan frequent project: %w", err)
		}
		if modified.Valid {
			p.ModifiedAt = modified.Time.UTC()
		}
		f.LastOpened = f.LastOpened.UTC()
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frequent projects: %w", err)
	}
	rows.Close()

	projects := make([]models.Project, len(out))
	for i := range out {
		projects[i] = out[i].Project
	}
	if err := s.attachTags(ctx, projects); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Project.Tags = projects[i].Tags
	}
	return out, nil
}
