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

// GetQuery retrieves a query by ID.
func (s *SQLStore) GetQuery(ctx context.Context, id string) (*core.Query, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	q := &core.Query{}
	var templates, sources string
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, user_id, content, templates, data_sources, created_at FROM queries WHERE id = ?`),
		id,
	).Scan(&q.ID, &q.UserID, &q.Content, &templates, &sources, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get query: %w", err)
	}

	if q.Templates, err = decodeStrings(templates); err != nil {
		return nil, fmt.Errorf("invalid query templates: %w", err)
	}
	if q.DataSources, err = decodeDataSources(sources); err != nil {
		return nil, fmt.Errorf("invalid query data sources: %w", err)
	}
	return q, nil
}

// UpsertQuery inserts or replaces a query, assigning an ID when missing.
func (s *SQLStore) UpsertQuery(ctx context.Context, q *core.Query) (*core.Query, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if q.ID == "" {
		q.ID = generateID()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}

	templates, err := encodeJSON(nonNil(q.Templates))
	if err != nil {
		return nil, fmt.Errorf("failed to encode templates: %w", err)
	}
	sources, err := encodeJSON(dataSourcesOrEmpty(q.DataSources))
	if err != nil {
		return nil, fmt.Errorf("failed to encode data sources: %w", err)
	}

	s.logger.Debug("upserting query", slog.String("id", q.ID), slog.Int("templates", len(q.Templates)))

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO queries (id, user_id, content, templates, data_sources, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			user_id = excluded.user_id,
			content = excluded.content,
			templates = excluded.templates,
			data_sources = excluded.data_sources`),
		q.ID, q.UserID, q.Content, templates, sources, q.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert query: %w", err)
	}
	return q, nil
}

func dataSourcesOrEmpty(ds []core.DataSource) []core.DataSource {
	if ds == nil {
		return []core.DataSource{}
	}
	return ds
}
