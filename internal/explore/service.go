// Package explore implements the explore-by-example workflow on top of the
// collaborator APIs: field selection trees, default queries, saved queries,
// persistent query links and result matching.
package explore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapexplore/internal/xsd"
	"github.com/leapstack-labs/leapexplore/pkg/core"
)

// AppName identifies queries and saved queries created by the application itself.
const AppName = "core_explore_example_app"

// ErrAccessDenied is returned when a user acts on an object they do not own.
var ErrAccessDenied = errors.New("access denied")

// Service coordinates the explore workflow.
type Service struct {
	store  core.Store
	logger *slog.Logger
	xsd    xsd.Options
}

// Option configures a Service.
type Option func(*Service)

// WithXSDOptions sets the options used when building field selection trees.
func WithXSDOptions(opts xsd.Options) Option {
	return func(s *Service) { s.xsd = opts }
}

// NewService creates a service over store.
// If logger is nil, a discard logger is used.
func NewService(store core.Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{store: store, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying store.
func (s *Service) Store() core.Store {
	return s.store
}

// ActiveTemplates returns the active global version managers and those owned by userID.
func (s *Service) ActiveTemplates(ctx context.Context, userID string) (global, user []*core.TemplateVersionManager, err error) {
	global, err = s.store.GetActiveGlobalVersionManagers(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list global templates: %w", err)
	}
	if userID == "" {
		return global, []*core.TemplateVersionManager{}, nil
	}
	user, err = s.store.GetActiveVersionManagersByUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list user templates: %w", err)
	}
	return global, user, nil
}

// Template returns a template version.
func (s *Service) Template(ctx context.Context, id string) (*core.Template, error) {
	return s.store.GetTemplate(ctx, id)
}

// SavedQueriesCreatedByApp returns the saved queries whose owner is the application.
func (s *Service) SavedQueriesCreatedByApp(ctx context.Context) ([]*core.SavedQuery, error) {
	return s.store.ListSavedQueriesByUser(ctx, AppName)
}
