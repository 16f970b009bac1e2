package explore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapexplore/internal/querybuilder"
	"github.com/leapstack-labs/leapexplore/pkg/core"
)

// DefaultPageSize is used when a non-positive page size is requested.
const DefaultPageSize = 10

// ResultPage is one page of documents matching a query.
type ResultPage struct {
	QueryID  string
	Items    []*core.Data
	Page     int
	PageSize int
	Total    int
}

// TotalPages returns the number of pages, at least 1.
func (p *ResultPage) TotalPages() int {
	if p.Total == 0 || p.PageSize <= 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// HasPrev reports whether a previous page exists.
func (p *ResultPage) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p *ResultPage) HasNext() bool { return p.Page < p.TotalPages() }

// MatchingData returns the documents of the query's templates that satisfy its filter.
// Documents that cannot be parsed are skipped.
func (s *Service) MatchingData(ctx context.Context, q *core.Query) ([]*core.Data, error) {
	filter, err := querybuilder.ParseFilter(q.Content)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.ID, err)
	}

	docs, err := s.store.ListDataByTemplates(ctx, q.Templates)
	if err != nil {
		return nil, err
	}

	matched := make([]*core.Data, 0, len(docs))
	for _, d := range docs {
		doc, err := querybuilder.ParseDocument(d.XMLContent)
		if err != nil {
			s.logger.Warn("skipping unreadable document",
				slog.String("id", d.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if filter.Match(doc) {
			matched = append(matched, d)
		}
	}
	return matched, nil
}

// Results returns one page of documents matching the query.
// Pages are 1-based; out of range pages are clamped.
func (s *Service) Results(ctx context.Context, queryID string, page, pageSize int) (*ResultPage, error) {
	q, err := s.store.GetQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}

	matched, err := s.MatchingData(ctx, q)
	if err != nil {
		return nil, err
	}

	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	rp := &ResultPage{QueryID: q.ID, PageSize: pageSize, Total: len(matched)}
	rp.Page = max(1, min(page, rp.TotalPages()))

	start := (rp.Page - 1) * pageSize
	end := min(start+pageSize, len(matched))
	rp.Items = matched[start:end]
	return rp, nil
}
