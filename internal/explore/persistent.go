package explore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapexplore/pkg/core"
)

// CreatePersistentQuery stores a shareable copy of a query.
func (s *Service) CreatePersistentQuery(ctx context.Context, queryID, userID string) (*core.PersistentQuery, error) {
	q, err := s.store.GetQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}
	return s.store.CreatePersistentQuery(ctx, &core.PersistentQuery{
		UserID:      userID,
		Content:     q.Content,
		Templates:   q.Templates,
		DataSources: q.DataSources,
	})
}

// ResolvePersistentQuery creates a fresh query for userID from a persistent
// query. The returned query always targets at least one template.
func (s *Service) ResolvePersistentQuery(ctx context.Context, persistentQueryID, userID string) (*core.Query, error) {
	pq, err := s.store.GetPersistentQuery(ctx, persistentQueryID)
	if err != nil {
		return nil, err
	}
	if len(pq.Templates) == 0 {
		return nil, fmt.Errorf("persistent query %s has no templates", persistentQueryID)
	}

	q, err := s.store.UpsertQuery(ctx, &core.Query{
		UserID:      userID,
		Content:     pq.Content,
		Templates:   pq.Templates,
		DataSources: pq.DataSources,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("resolved persistent query",
		slog.String("persistent_query_id", persistentQueryID),
		slog.String("query_id", q.ID),
	)
	return q, nil
}
