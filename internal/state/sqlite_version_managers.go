package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapexplore/pkg/core"
)

const versionManagerColumns = `id, title, user_id, versions, current_version, disabled_versions, is_disabled`

// GetActiveGlobalVersionManagers returns enabled managers that belong to no user.
func (s *SQLStore) GetActiveGlobalVersionManagers(ctx context.Context) ([]*core.TemplateVersionManager, error) {
	return s.listVersionManagers(ctx,
		`SELECT `+versionManagerColumns+` FROM template_version_managers
		 WHERE user_id = '' AND is_disabled = 0 ORDER BY title`)
}

// GetActiveVersionManagersByUser returns enabled managers owned by userID.
func (s *SQLStore) GetActiveVersionManagersByUser(ctx context.Context, userID string) ([]*core.TemplateVersionManager, error) {
	if userID == "" {
		return []*core.TemplateVersionManager{}, nil
	}
	return s.listVersionManagers(ctx,
		`SELECT `+versionManagerColumns+` FROM template_version_managers
		 WHERE user_id = ? AND is_disabled = 0 ORDER BY title`, userID)
}

// ListVersionManagers returns every manager, enabled or not.
func (s *SQLStore) ListVersionManagers(ctx context.Context) ([]*core.TemplateVersionManager, error) {
	return s.listVersionManagers(ctx,
		`SELECT `+versionManagerColumns+` FROM template_version_managers ORDER BY title`)
}

// GetVersionManagerByVersionID returns the manager that owns the template version.
func (s *SQLStore) GetVersionManagerByVersionID(ctx context.Context, templateID string) (*core.TemplateVersionManager, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT m.id, m.title, m.user_id, m.versions, m.current_version, m.disabled_versions, m.is_disabled
		FROM template_version_managers m
		JOIN template_versions v ON v.version_manager_id = m.id
		WHERE v.template_id = ?`), templateID)

	vm, err := scanVersionManager(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("version manager for template %s: %w", templateID, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get version manager: %w", err)
	}
	return vm, nil
}

// UpsertVersionManager inserts or replaces a manager and its version index.
func (s *SQLStore) UpsertVersionManager(ctx context.Context, vm *core.TemplateVersionManager) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if vm.ID == "" {
		vm.ID = generateID()
	}

	versions, err := encodeJSON(nonNil(vm.Versions))
	if err != nil {
		return fmt.Errorf("failed to encode versions: %w", err)
	}
	disabled, err := encodeJSON(nonNil(vm.DisabledVersions))
	if err != nil {
		return fmt.Errorf("failed to encode disabled versions: %w", err)
	}

	s.logger.Debug("upserting version manager", slog.String("id", vm.ID), slog.String("title", vm.Title))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.rebind(`
		INSERT INTO template_version_managers (id, title, user_id, versions, current_version, disabled_versions, is_disabled)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			user_id = excluded.user_id,
			versions = excluded.versions,
			current_version = excluded.current_version,
			disabled_versions = excluded.disabled_versions,
			is_disabled = excluded.is_disabled`),
		vm.ID, vm.Title, vm.UserID, versions, vm.Current, disabled, boolToInt(vm.IsDisabled),
	); err != nil {
		return fmt.Errorf("failed to upsert version manager: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM template_versions WHERE version_manager_id = ?`), vm.ID); err != nil {
		return fmt.Errorf("failed to clear version index: %w", err)
	}
	for _, templateID := range vm.Versions {
		if _, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO template_versions (template_id, version_manager_id) VALUES (?, ?)
			ON CONFLICT (template_id) DO UPDATE SET version_manager_id = excluded.version_manager_id`),
			templateID, vm.ID,
		); err != nil {
			return fmt.Errorf("failed to index version %s: %w", templateID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLStore) listVersionManagers(ctx context.Context, query string, args ...any) ([]*core.TemplateVersionManager, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list version managers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	managers := []*core.TemplateVersionManager{}
	for rows.Next() {
		vm, err := scanVersionManager(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version manager: %w", err)
		}
		managers = append(managers, vm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list version managers: %w", err)
	}
	return managers, nil
}

func scanVersionManager(row rowScanner) (*core.TemplateVersionManager, error) {
	vm := &core.TemplateVersionManager{}
	var versions, disabled string
	var isDisabled int64
	if err := row.Scan(&vm.ID, &vm.Title, &vm.UserID, &versions, &vm.Current, &disabled, &isDisabled); err != nil {
		return nil, err
	}

	var err error
	if vm.Versions, err = decodeStrings(versions); err != nil {
		return nil, fmt.Errorf("invalid versions: %w", err)
	}
	if vm.DisabledVersions, err = decodeStrings(disabled); err != nil {
		return nil, fmt.Errorf("invalid disabled versions: %w", err)
	}
	vm.IsDisabled = isDisabled != 0
	return vm, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
