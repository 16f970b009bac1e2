package state

import (
	"context"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapexplore/pkg/core"
)

// ListDataByTemplates returns the documents of the given templates, ordered by title.
func (s *SQLStore) ListDataByTemplates(ctx context.Context, templateIDs []string) ([]*core.Data, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if len(templateIDs) == 0 {
		return []*core.Data{}, nil
	}

	args := make([]any, len(templateIDs))
	for i, id := range templateIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, template_id, user_id, title, xml_content, last_modified
		FROM data WHERE template_id IN (`+placeholders(len(templateIDs))+`)
		ORDER BY title, id`), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list data: %w", err)
	}
	defer func() { _ = rows.Close() }()

	docs := []*core.Data{}
	for rows.Next() {
		d := &core.Data{}
		if err := rows.Scan(&d.ID, &d.TemplateID, &d.UserID, &d.Title, &d.XMLContent, &d.LastModified); err != nil {
			return nil, fmt.Errorf("failed to scan data: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list data: %w", err)
	}
	return docs, nil
}

// UpsertData inserts or replaces a document.
func (s *SQLStore) UpsertData(ctx context.Context, d *core.Data) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if d.ID == "" {
		d.ID = generateID()
	}
	d.LastModified = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO data (id, template_id, user_id, title, xml_content, last_modified)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			template_id = excluded.template_id,
			user_id = excluded.user_id,
			title = excluded.title,
			xml_content = excluded.xml_content,
			last_modified = excluded.last_modified`),
		d.ID, d.TemplateID, d.UserID, d.Title, d.XMLContent, d.LastModified,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert data: %w", err)
	}
	return nil
}
