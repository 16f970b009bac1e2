package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapexplore/pkg/core"
)

const dataStructureColumns = `id, user_id, template_id, root, selected_fields_html_tree, updated_at`

// GetDataStructure retrieves a data structure by ID.
func (s *SQLStore) GetDataStructure(ctx context.Context, id string) (*core.ExploreDataStructure, error) {
	return s.getDataStructure(ctx,
		`SELECT `+dataStructureColumns+` FROM explore_data_structures WHERE id = ?`,
		"data structure "+id, id)
}

// GetDataStructureByUserAndTemplate retrieves a user's data structure for a template.
func (s *SQLStore) GetDataStructureByUserAndTemplate(ctx context.Context, userID, templateID string) (*core.ExploreDataStructure, error) {
	return s.getDataStructure(ctx,
		`SELECT `+dataStructureColumns+` FROM explore_data_structures WHERE user_id = ? AND template_id = ?`,
		fmt.Sprintf("data structure for user %q and template %s", userID, templateID), userID, templateID)
}

// UpsertDataStructure inserts or replaces the data structure of a (user, template) pair.
func (s *SQLStore) UpsertDataStructure(ctx context.Context, ds *core.ExploreDataStructure) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if ds.ID == "" {
		ds.ID = generateID()
	}
	ds.UpdatedAt = time.Now().UTC()

	root, err := json.Marshal(ds.Root)
	if err != nil {
		return fmt.Errorf("failed to encode data structure: %w", err)
	}

	s.logger.Debug("upserting data structure",
		slog.String("id", ds.ID),
		slog.String("user_id", ds.UserID),
		slog.String("template_id", ds.TemplateID),
	)

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO explore_data_structures (`+dataStructureColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			root = excluded.root,
			selected_fields_html_tree = excluded.selected_fields_html_tree,
			updated_at = excluded.updated_at`),
		ds.ID, ds.UserID, ds.TemplateID, string(root), ds.SelectedFieldsHTMLTree, ds.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert data structure: %w", err)
	}
	return nil
}

// CreateDataStructure inserts ds unless the (user, template) pair already has a
// data structure, then returns the stored row. Concurrent first visits all get
// the same structure.
func (s *SQLStore) CreateDataStructure(ctx context.Context, ds *core.ExploreDataStructure) (*core.ExploreDataStructure, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if ds.ID == "" {
		ds.ID = generateID()
	}
	ds.UpdatedAt = time.Now().UTC()

	root, err := json.Marshal(ds.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to encode data structure: %w", err)
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO explore_data_structures (`+dataStructureColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, template_id) DO NOTHING`),
		ds.ID, ds.UserID, ds.TemplateID, string(root), ds.SelectedFieldsHTMLTree, ds.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create data structure: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.logger.Debug("data structure already exists",
			slog.String("user_id", ds.UserID),
			slog.String("template_id", ds.TemplateID),
		)
	}

	return s.GetDataStructureByUserAndTemplate(ctx, ds.UserID, ds.TemplateID)
}

func (s *SQLStore) getDataStructure(ctx context.Context, query, what string, args ...any) (*core.ExploreDataStructure, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	ds := &core.ExploreDataStructure{}
	var root string
	err := s.db.QueryRowContext(ctx, s.rebind(query), args...).
		Scan(&ds.ID, &ds.UserID, &ds.TemplateID, &root, &ds.SelectedFieldsHTMLTree, &ds.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get data structure: %w", err)
	}

	ds.Root = &core.DataStructureElement{}
	if err := json.Unmarshal([]byte(root), ds.Root); err != nil {
		return nil, fmt.Errorf("invalid data structure tree: %w", err)
	}
	return ds, nil
}
