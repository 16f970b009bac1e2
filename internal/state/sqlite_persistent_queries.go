package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapexplore/pkg/core"
)

// GetPersistentQuery retrieves a persistent query by ID.
func (s *SQLStore) GetPersistentQuery(ctx context.Context, id string) (*core.PersistentQuery, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	pq := &core.PersistentQuery{}
	var templates, sources string
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, user_id, name, content, templates, data_sources, created_at
		FROM persistent_queries WHERE id = ?`), id,
	).Scan(&pq.ID, &pq.UserID, &pq.Name, &pq.Content, &templates, &sources, &pq.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("persistent query %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get persistent query: %w", err)
	}

	if pq.Templates, err = decodeStrings(templates); err != nil {
		return nil, fmt.Errorf("invalid persistent query templates: %w", err)
	}
	if pq.DataSources, err = decodeDataSources(sources); err != nil {
		return nil, fmt.Errorf("invalid persistent query data sources: %w", err)
	}
	return pq, nil
}

// CreatePersistentQuery stores a new persistent query.
func (s *SQLStore) CreatePersistentQuery(ctx context.Context, pq *core.PersistentQuery) (*core.PersistentQuery, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if pq.ID == "" {
		pq.ID = generateID()
	}
	if pq.CreatedAt.IsZero() {
		pq.CreatedAt = time.Now().UTC()
	}

	templates, err := encodeJSON(nonNil(pq.Templates))
	if err != nil {
		return nil, fmt.Errorf("failed to encode templates: %w", err)
	}
	sources, err := encodeJSON(dataSourcesOrEmpty(pq.DataSources))
	if err != nil {
		return nil, fmt.Errorf("failed to encode data sources: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO persistent_queries (id, user_id, name, content, templates, data_sources, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		pq.ID, pq.UserID, pq.Name, pq.Content, templates, sources, pq.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create persistent query: %w", err)
	}
	return pq, nil
}
