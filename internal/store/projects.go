package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harrison/projdock/internal/models"
)

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const projectColumns = `id, folder_name, path, root, year, full_number, short_number, name, modified_at, scanned_at, pinned`

// SyncResult reports what a SyncProjects call changed
type SyncResult struct {
	Added     int
	Updated   int
	Removed   int
	Unchanged int
}

// ProjectFilter narrows ListProjects
type ProjectFilter struct {
	Root       string // Only projects found under this root
	Year       int    // Only this year
	Tag        string // Only projects carrying this tag
	PinnedOnly bool
	Limit      int // 0 = unlimited
}

type existingProject struct {
	id         int64
	folderName string
	fullNumber string
	name       string
	modifiedAt time.Time
}

// SyncProjects reconciles the database with a scan of roots. Projects are
// upserted by path; stored projects under those roots that the scan did not
// see are deleted along with their tags, metadata and launch counts. The ID
// of each project in the slice is filled in.
func (s *Store) SyncProjects(ctx context.Context, roots []string, projects []models.Project) (SyncResult, error) {
	var result SyncResult
	now := s.timestamp()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := loadExistingTx(ctx, tx, roots)
		if err != nil {
			return err
		}

		seen := make(map[string]bool, len(projects))
		for i := range projects {
			p := &projects[i]
			seen[p.Path] = true
			scannedAt := p.ScannedAt.UTC()
			if p.ScannedAt.IsZero() {
				scannedAt = now
			}

			if old, ok := existing[p.Path]; ok {
				p.ID = old.id
				if old.folderName == p.FolderName && old.fullNumber == p.FullNumber &&
					old.name == p.Name && old.modifiedAt.Equal(p.ModifiedAt) {
					result.Unchanged++
				} else {
					result.Updated++
				}
				_, err := tx.ExecContext(ctx, `UPDATE projects SET folder_name = ?, root = ?, year = ?, full_number = ?,
					short_number = ?, name = ?, modified_at = ?, scanned_at = ? WHERE id = ?`,
					p.FolderName, p.Root, p.Year, p.FullNumber, p.ShortNumber, p.Name,
					nullTime(&p.ModifiedAt), scannedAt, old.id)
				if err != nil {
					return fmt.Errorf("update project %s: %w", p.Path, err)
				}
				continue
			}

			_, err := tx.ExecContext(ctx, `INSERT INTO projects
				(folder_name, path, root, year, full_number, short_number, name, modified_at, scanned_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(path) DO UPDATE SET folder_name = excluded.folder_name, root = excluded.root,
					year = excluded.year, full_number = excluded.full_number, short_number = excluded.short_number,
					name = excluded.name, modified_at = excluded.modified_at, scanned_at = excluded.scanned_at`,
				p.FolderName, p.Path, p.Root, p.Year, p.FullNumber, p.ShortNumber, p.Name,
				nullTime(&p.ModifiedAt), scannedAt)
			if err != nil {
				return fmt.Errorf("insert project %s: %w", p.Path, err)
			}
			if err := tx.QueryRowContext(ctx, `SELECT id FROM projects WHERE path = ?`, p.Path).Scan(&p.ID); err != nil {
				return fmt.Errorf("read project id: %w", err)
			}
			result.Added++
		}

		for path, old := range existing {
			if seen[path] {
				continue
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, old.id); err != nil {
				return fmt.Errorf("delete project %s: %w", path, err)
			}
			result.Removed++
		}
		return nil
	})
	if err != nil {
		return SyncResult{}, fmt.Errorf("sync projects: %w", err)
	}
	return result, nil
}

func loadExistingTx(ctx context.Context, tx *sql.Tx, roots []string) (map[string]existingProject, error) {
	existing := make(map[string]existingProject)
	if len(roots) == 0 {
		return existing, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(roots)), ",")
	args := make([]any, len(roots))
	for i, r := range roots {
		args[i] = r
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, path, folder_name, full_number, name, modified_at FROM projects WHERE root IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing projects: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e        existingProject
			path     string
			modified sql.NullTime
		)
		if err := rows.Scan(&e.id, &path, &e.folderName, &e.fullNumber, &e.name, &modified); err != nil {
			return nil, fmt.Errorf("scan existing project: %w", err)
		}
		if modified.Valid {
			e.modifiedAt = modified.Time
		}
		existing[path] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate existing projects: %w", err)
	}
	return existing, nil
}

// ListProjects returns stored projects newest first, with tags loaded
func (s *Store) ListProjects(ctx context.Context, filter ProjectFilter) ([]models.Project, error) {
	var (
		where []string
		args  []any
	)
	if filter.Root != "" {
		where = append(where, "root = ?")
		args = append(args, filter.Root)
	}
	if filter.Year != 0 {
		where = append(where, "year = ?")
		args = append(args, filter.Year)
	}
	if filter.Tag != "" {
		where = append(where, "id IN (SELECT project_id FROM project_tags WHERE tag = ?)")
		args = append(args, filter.Tag)
	}
	if filter.PinnedOnly {
		where = append(where, "pinned = 1")
	}

	query := `SELECT ` + projectColumns + ` FROM projects`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	projects, err := queryProjects(ctx, s.db, query, args...)
	if err != nil {
		return nil, err
	}
	if err := s.attachTags(ctx, projects); err != nil {
		return nil, err
	}

	sort.SliceStable(projects, func(i, j int) bool {
		if c := models.CompareNewest(&projects[i], &projects[j]); c != 0 {
			return c < 0
		}
		return projects[i].Path < projects[j].Path
	})
	if filter.Limit > 0 && len(projects) > filter.Limit {
		projects = projects[:filter.Limit]
	}
	return projects, nil
}

// GetProject returns a project by ID
func (s *Store) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	projects, err := queryProjects(ctx, s.db, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err := s.attachTags(ctx, projects); err != nil {
		return nil, err
	}
	return &projects[0], nil
}

// FindProjectByNumber resolves a number as typed by a user. It tries the
// full number, then the digit-only key ("2024-638.001" finds
// "2024638.001"), then a short number that is unique.
func (s *Store) FindProjectByNumber(ctx context.Context, number string) (*models.Project, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, fmt.Errorf("empty project number: %w", ErrNotFound)
	}

	all, err := s.ListProjects(ctx, ProjectFilter{})
	if err != nil {
		return nil, err
	}

	for i := range all {
		if strings.EqualFold(all[i].FullNumber, number) {
			return &all[i], nil
		}
	}

	if key := models.NumberKey(number); key != "" {
		for i := range all {
			if all[i].Key() == key {
				return &all[i], nil
			}
		}
	}

	var short *models.Project
	for i := range all {
		if all[i].ShortNumber == number {
			if short != nil {
				return nil, fmt.Errorf("short number %s is ambiguous", number)
			}
			short = &all[i]
		}
	}
	if short != nil {
		return short, nil
	}

	return nil, fmt.Errorf("project %s: %w", number, ErrNotFound)
}

// SetPinned pins or unpins a project
func (s *Store) SetPinned(ctx context.Context, id int64, pinned bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE projects SET pinned = ? WHERE id = ?`, pinned, id)
	if err != nil {
		return fmt.Errorf("set pinned: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("project %d", id))
}

// AddTags attaches tags to a project. Tags are trimmed; duplicates (compared
// case-insensitively) are ignored.
func (s *Store) AddTags(ctx context.Context, id int64, tags ...string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := projectExists(ctx, tx, id); err != nil {
			return err
		}
		for _, tag := range tags {
			tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
			if tag == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO project_tags (project_id, tag) VALUES (?, ?)`, id, tag); err != nil {
				return fmt.Errorf("add tag %s: %w", tag, err)
			}
		}
		return nil
	})
}

// RemoveTags detaches tags and returns how many were removed
func (s *Store) RemoveTags(ctx context.Context, id int64, tags ...string) (int, error) {
	removed := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := projectExists(ctx, tx, id); err != nil {
			return err
		}
		for _, tag := range tags {
			tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
			res, err := tx.ExecContext(ctx, `DELETE FROM project_tags WHERE project_id = ? AND tag = ?`, id, tag)
			if err != nil {
				return fmt.Errorf("remove tag %s: %w", tag, err)
			}
			n, _ := res.RowsAffected()
			removed += int(n)
		}
		return nil
	})
	return removed, err
}

// TagCounts returns every tag in use with the number of projects carrying it
func (s *Store) TagCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tag, COUNT(*) FROM project_tags GROUP BY tag COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var tag string
		var n int
		if err := rows.Scan(&tag, &n); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		counts[tag] = n
	}
	return counts, rows.Err()
}

// SetMetadata stores a key-value pair on a project, replacing any old value
func (s *Store) SetMetadata(ctx context.Context, id int64, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("metadata key is required")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := projectExists(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO project_metadata (project_id, key, value) VALUES (?, ?, ?)
			ON CONFLICT(project_id, key) DO UPDATE SET value = excluded.value`, id, key, value)
		if err != nil {
			return fmt.Errorf("set metadata %s: %w", key, err)
		}
		return nil
	})
}

// GetMetadata returns all key-value pairs stored on a project
func (s *Store) GetMetadata(ctx context.Context, id int64) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM project_metadata WHERE project_id = ? ORDER BY key`, id)
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan metadata: %w", err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metadata: %w", err)
	}
	return meta, nil
}

// DeleteMetadata removes one key from a project
func (s *Store) DeleteMetadata(ctx context.Context, id int64, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM project_metadata WHERE project_id = ? AND key = ?`, id, key)
	if err != nil {
		return fmt.Errorf("delete metadata: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("metadata %q", key))
}

func queryProjects(ctx context.Context, q queryer, query string, args ...any) ([]models.Project, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := make([]models.Project, 0)
	for rows.Next() {
		var (
			p        models.Project
			modified sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.FolderName, &p.Path, &p.Root, &p.Year, &p.FullNumber,
			&p.ShortNumber, &p.Name, &modified, &p.ScannedAt, &p.Pinned); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		if modified.Valid {
			p.ModifiedAt = modified.Time.UTC()
		}
		p.ScannedAt = p.ScannedAt.UTC()
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

// attachTags loads tags for the given projects in one query
func (s *Store) attachTags(ctx context.Context, projects []models.Project) error {
	if len(projects) == 0 {
		return nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT project_id, tag FROM project_tags ORDER BY tag COLLATE NOCASE`)
	if err != nil {
		return fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	tags := make(map[int64][]string)
	for rows.Next() {
		var id int64
		var tag string
		if err := rows.Scan(&id, &tag); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		tags[id] = append(tags[id], tag)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate tags: %w", err)
	}

	for i := range projects {
		projects[i].Tags = tags[projects[i].ID]
	}
	return nil
}

func projectExists(ctx context.Context, q queryer, id int64) error {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("check project: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	return nil
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
