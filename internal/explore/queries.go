package explore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapexplore/internal/querybuilder"
	"github.com/leapstack-labs/leapexplore/pkg/core"
)

// CreateDefaultQuery creates an empty query over every version of the
// template's version manager, reading from the local data source.
func (s *Service) CreateDefaultQuery(ctx context.Context, tmpl *core.Template, userID string) (*core.Query, error) {
	vm, err := s.store.GetVersionManagerByVersionID(ctx, tmpl.ID)
	if err != nil {
		return nil, err
	}

	templates, err := s.store.GetTemplatesByIDs(ctx, vm.Versions)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(templates))
	for _, t := range templates {
		ids = append(ids, t.ID)
	}

	q, err := s.store.UpsertQuery(ctx, &core.Query{
		UserID:      userID,
		Content:     querybuilder.Filter{}.String(),
		Templates:   ids,
		DataSources: []core.DataSource{{Name: core.LocalDataSourceName}},
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("created default query",
		slog.String("id", q.ID),
		slog.String("template_id", tmpl.ID),
		slog.Int("versions", len(ids)),
	)
	return q, nil
}

// Query returns a query by id.
func (s *Service) Query(ctx context.Context, id string) (*core.Query, error) {
	return s.store.GetQuery(ctx, id)
}

// UpdateQueryCriteria compiles criteria and stores the filter on a query
// owned by userID. Queries created without a signed in user can only be
// updated by anonymous sessions.
func (s *Service) UpdateQueryCriteria(ctx context.Context, queryID, userID string, criteria []querybuilder.Criterion) (*core.Query, error) {
	filter, err := querybuilder.Compile(criteria)
	if err != nil {
		return nil, err
	}

	q, err := s.store.GetQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}
	if q.UserID != userID {
		return nil, fmt.Errorf("query %s: %w", queryID, ErrAccessDenied)
	}
	if len(q.Templates) == 0 {
		return nil, fmt.Errorf("query %s has no templates", queryID)
	}

	q.Content = filter.String()
	return s.store.UpsertQuery(ctx, q)
}

// SaveQuery stores criteria as a named query of userID for the template.
func (s *Service) SaveQuery(ctx context.Context, userID, templateID string, criteria []querybuilder.Criterion) (*core.SavedQuery, error) {
	if userID == "" {
		return nil, fmt.Errorf("saving queries requires a signed in user: %w", ErrAccessDenied)
	}
	if len(criteria) == 0 {
		return nil, querybuilder.ErrNoCriteria
	}

	filter, err := querybuilder.Compile(criteria)
	if err != nil {
		return nil, err
	}
	raw, err := querybuilder.EncodeCriteria(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to encode criteria: %w", err)
	}

	return s.store.CreateSavedQuery(ctx, &core.SavedQuery{
		UserID:         userID,
		TemplateID:     templateID,
		Query:          filter.String(),
		DisplayedQuery: querybuilder.Display(criteria),
		Criteria:       raw,
	})
}

// SavedQueries returns the saved queries of userID for the template.
// Anonymous users have none.
func (s *Service) SavedQueries(ctx context.Context, userID, templateID string) ([]*core.SavedQuery, error) {
	if userID == "" {
		return []*core.SavedQuery{}, nil
	}
	return s.store.ListSavedQueriesByUserAndTemplate(ctx, userID, templateID)
}

// SavedQuery returns a saved query owned by userID.
func (s *Service) SavedQuery(ctx context.Context, id, userID string) (*core.SavedQuery, error) {
	sq, err := s.store.GetSavedQuery(ctx, id)
	if err != nil {
		return nil, err
	}
	if sq.UserID != userID {
		return nil, fmt.Errorf("saved query %s: %w", id, ErrAccessDenied)
	}
	return sq, nil
}

// DeleteSavedQuery removes a saved query owned by userID.
func (s *Service) DeleteSavedQuery(ctx context.Context, id, userID string) (*core.SavedQuery, error) {
	sq, err := s.SavedQuery(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteSavedQuery(ctx, id); err != nil {
		return nil, err
	}
	return sq, nil
}

// DeleteSavedQueries removes every saved query of userID for the template.
func (s *Service) DeleteSavedQueries(ctx context.Context, userID, templateID string) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("deleting queries requires a signed in user: %w", ErrAccessDenied)
	}
	n, err := s.store.DeleteSavedQueriesByUserAndTemplate(ctx, userID, templateID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("deleted saved queries",
		slog.String("user_id", userID),
		slog.String("template_id", templateID),
		slog.Int64("count", n),
	)
	return n, nil
}
