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

const savedQueryColumns = `id, user_id, template_id, query, displayed_query, criteria, created_at`

// GetSavedQuery retrieves a saved query by ID.
func (s *SQLStore) GetSavedQuery(ctx context.Context, id string) (*core.SavedQuery, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+savedQueryColumns+` FROM saved_queries WHERE id = ?`), id)
	sq, err := scanSavedQuery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("saved query %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get saved query: %w", err)
	}
	return sq, nil
}

// ListSavedQueriesByUserAndTemplate returns a user's saved queries for a template, oldest first.
func (s *SQLStore) ListSavedQueriesByUserAndTemplate(ctx context.Context, userID, templateID string) ([]*core.SavedQuery, error) {
	return s.listSavedQueries(ctx,
		`SELECT `+savedQueryColumns+` FROM saved_queries
		 WHERE user_id = ? AND template_id = ? ORDER BY created_at, id`, userID, templateID)
}

// ListSavedQueriesByUser returns every saved query owned by userID.
func (s *SQLStore) ListSavedQueriesByUser(ctx context.Context, userID string) ([]*core.SavedQuery, error) {
	return s.listSavedQueries(ctx,
		`SELECT `+savedQueryColumns+` FROM saved_queries
		 WHERE user_id = ? ORDER BY created_at, id`, userID)
}

// CreateSavedQuery stores a new saved query.
func (s *SQLStore) CreateSavedQuery(ctx context.Context, sq *core.SavedQuery) (*core.SavedQuery, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if sq.ID == "" {
		sq.ID = generateID()
	}
	if sq.CreatedAt.IsZero() {
		sq.CreatedAt = time.Now().UTC()
	}
	if sq.Criteria == "" {
		sq.Criteria = "[]"
	}

	s.logger.Debug("creating saved query",
		slog.String("id", sq.ID),
		slog.String("user_id", sq.UserID),
		slog.String("template_id", sq.TemplateID),
	)

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO saved_queries (`+savedQueryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		sq.ID, sq.UserID, sq.TemplateID, sq.Query, sq.DisplayedQuery, sq.Criteria, sq.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create saved query: %w", err)
	}
	return sq, nil
}

// DeleteSavedQuery removes a saved query.
func (s *SQLStore) DeleteSavedQuery(ctx context.Context, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM saved_queries WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete saved query: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("saved query %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// DeleteSavedQueriesByUserAndTemplate removes all of a user's saved queries for a template.
func (s *SQLStore) DeleteSavedQueriesByUserAndTemplate(ctx context.Context, userID, templateID string) (int64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM saved_queries WHERE user_id = ? AND template_id = ?`),
		userID, templateID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete saved queries: %w", err)
	}
	return result.RowsAffected()
}

func (s *SQLStore) listSavedQueries(ctx context.Context, query string, args ...any) ([]*core.SavedQuery, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved queries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	queries := []*core.SavedQuery{}
	for rows.Next() {
		sq, err := scanSavedQuery(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved query: %w", err)
		}
		queries = append(queries, sq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list saved queries: %w", err)
	}
	return queries, nil
}

func scanSavedQuery(row rowScanner) (*core.SavedQuery, error) {
	sq := &core.SavedQuery{}
	if err := row.Scan(&sq.ID, &sq.UserID, &sq.TemplateID, &sq.Query, &sq.DisplayedQuery, &sq.Criteria, &sq.CreatedAt); err != nil {
		return nil, err
	}
	return sq, nil
}
