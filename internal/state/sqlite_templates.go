package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapexplore/pkg/core"
)

const templateColumns = `id, filename, title, content, hash, created_at`

// GetTemplate retrieves a template version by ID.
func (s *SQLStore) GetTemplate(ctx context.Context, id string) (*core.Template, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+templateColumns+` FROM templates WHERE id = ?`), id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return t, nil
}

// GetTemplatesByIDs returns the templates with the given IDs, in the order given.
// Unknown IDs are skipped.
func (s *SQLStore) GetTemplatesByIDs(ctx context.Context, ids []string) ([]*core.Template, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*core.Template{}, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT `+templateColumns+` FROM templates WHERE id IN (`+placeholders(len(ids))+`)`),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[string]*core.Template, len(ids))
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		byID[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	templates := make([]*core.Template, 0, len(byID))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			templates = append(templates, t)
		}
	}
	return templates, nil
}

// UpsertTemplate inserts or replaces a template version.
func (s *SQLStore) UpsertTemplate(ctx context.Context, t *core.Template) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = generateID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	s.logger.Debug("upserting template", slog.String("id", t.ID), slog.String("filename", t.Filename))

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO templates (id, filename, title, content, hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			filename = excluded.filename,
			title = excluded.title,
			content = excluded.content,
			hash = excluded.hash`),
		t.ID, t.Filename, t.Title, t.Content, t.Hash, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert template: %w", err)
	}
	return nil
}

func scanTemplate(row rowScanner) (*core.Template, error) {
	t := &core.Template{}
	if err := row.Scan(&t.ID, &t.Filename, &t.Title, &t.Content, &t.Hash, &t.CreatedAt); err != nil {
		return nil, err
	}
	return t, nil
}
