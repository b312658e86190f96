package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/harrison/projdock/internal/models"
)

// SaveDocumentIndex replaces the stored scan summary and file list of a
// project. Scan errors are not persisted.
func (s *Store) SaveDocumentIndex(ctx context.Context, projectID int64, idx *models.DocumentIndex) error {
	revitModels, err := json.Marshal(nonNil(idx.Revit.Models))
	if err != nil {
		return fmt.Errorf("marshal revit models: %w", err)
	}
	disciplines, err := json.Marshal(idx.Disciplines)
	if err != nil {
		return fmt.Errorf("marshal disciplines: %w", err)
	}
	counts, err := json.Marshal(idx.Counts)
	if err != nil {
		return fmt.Errorf("marshal counts: %w", err)
	}

	scannedAt := idx.ScannedAt.UTC()
	if idx.ScannedAt.IsZero() {
		scannedAt = s.timestamp()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := projectExists(ctx, tx, projectID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `INSERT INTO project_scans
			(project_id, type, revit_folder, revit_version, revit_cloud, revit_models, disciplines, counts, scanned_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(project_id) DO UPDATE SET type = excluded.type, revit_folder = excluded.revit_folder,
				revit_version = excluded.revit_version, revit_cloud = excluded.revit_cloud,
				revit_models = excluded.revit_models, disciplines = excluded.disciplines,
				counts = excluded.counts, scanned_at = excluded.scanned_at`,
			projectID, string(idx.Type), idx.Revit.Folder, idx.Revit.Version, idx.Revit.Cloud,
			string(revitModels), string(disciplines), string(counts), scannedAt)
		if err != nil {
			return fmt.Errorf("save project scan: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE project_id = ?`, projectID); err != nil {
			return fmt.Errorf("clear documents: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO documents
			(project_id, path, rel_path, name, extension, size, mod_time, discipline, revit)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare document insert: %w", err)
		}
		defer stmt.Close()

		for _, d := range idx.Files {
			if _, err := stmt.ExecContext(ctx, projectID, d.Path, d.RelPath, d.Name, d.Extension,
				d.Size, d.ModTime.UTC(), string(d.Discipline), d.Revit); err != nil {
				return fmt.Errorf("insert document %s: %w", d.RelPath, err)
			}
		}
		return nil
	})
}

// GetDocumentIndex loads the stored index for a project. ErrNotFound means
// the project has never been scanned.
func (s *Store) GetDocumentIndex(ctx context.Context, projectID int64) (*models.DocumentIndex, error) {
	var (
		idx                              models.DocumentIndex
		typ, revitModels, discs, counts string
	)
	err := s.db.QueryRowContext(ctx, `SELECT p.path, s.type, s.revit_folder, s.revit_version, s.revit_cloud,
			s.revit_models, s.disciplines, s.counts, s.scanned_at
		FROM project_scans s JOIN projects p ON p.id = s.project_id WHERE s.project_id = ?`, projectID).
		Scan(&idx.ProjectPath, &typ, &idx.Revit.Folder, &idx.Revit.Version, &idx.Revit.Cloud,
			&revitModels, &discs, &counts, &idx.ScannedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document index for project %d: %w", projectID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query project scan: %w", err)
	}

	idx.Type = models.ProjectType(typ)
	idx.ScannedAt = idx.ScannedAt.UTC()
	if err := json.Unmarshal([]byte(revitModels), &idx.Revit.Models); err != nil {
		return nil, fmt.Errorf("unmarshal revit models: %w", err)
	}
	if err := json.Unmarshal([]byte(discs), &idx.Disciplines); err != nil {
		return nil, fmt.Errorf("unmarshal disciplines: %w", err)
	}
	if err := json.Unmarshal([]byte(counts), &idx.Counts); err != nil {
		return nil, fmt.Errorf("unmarshal counts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT path, rel_path, name, extension, size, mod_time, discipline, revit
		FROM documents WHERE project_id = ? ORDER BY rel_path`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d models.Document
		var disc string
		if err := rows.Scan(&d.Path, &d.RelPath, &d.Name, &d.Extension, &d.Size, &d.ModTime, &disc, &d.Revit); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.Discipline = models.Discipline(disc)
		d.ModTime = d.ModTime.UTC()
		idx.Files = append(idx.Files, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return &idx, nil
}

// ProjectTypes returns the scanned type of every indexed project
func (s *Store) ProjectTypes(ctx context.Context) (map[int64]models.ProjectType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT project_id, type FROM project_scans`)
	if err != nil {
		return nil, fmt.Errorf("query project types: %w", err)
	}
	defer rows.Close()

	types := make(map[int64]models.ProjectType)
	for rows.Next() {
		var id int64
		var t string
		if err := rows.Scan(&id, &t); err != nil {
			return nil, fmt.Errorf("scan project type: %w", err)
		}
		types[id] = models.ProjectType(t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project types: %w", err)
	}
	return types, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
