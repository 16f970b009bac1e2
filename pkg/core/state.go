package core

import (
	"context"
	"errors"
)

// ErrNotFound is wrapped by every store lookup that finds nothing.
var ErrNotFound = errors.New("does not exist")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store defines the interface for state management operations.
// It is the union of the collaborator APIs the explore views call.
type Store interface {
	Close() error
	Migrate() error

	TemplateAPI
	TemplateVersionManagerAPI
	QueryAPI
	SavedQueryAPI
	DataStructureAPI
	PersistentQueryAPI
	DataAPI
}

// TemplateAPI reads and writes template versions.
type TemplateAPI interface {
	GetTemplate(ctx context.Context, id string) (*Template, error)
	GetTemplatesByIDs(ctx context.Context, ids []string) ([]*Template, error)
	UpsertTemplate(ctx context.Context, t *Template) error
}

// TemplateVersionManagerAPI groups template versions under a title.
type TemplateVersionManagerAPI interface {
	GetActiveGlobalVersionManagers(ctx context.Context) ([]*TemplateVersionManager, error)
	GetActiveVersionManagersByUser(ctx context.Context, userID string) ([]*TemplateVersionManager, error)
	GetVersionManagerByVersionID(ctx context.Context, templateID string) (*TemplateVersionManager, error)
	ListVersionManagers(ctx context.Context) ([]*TemplateVersionManager, error)
	UpsertVersionManager(ctx context.Context, vm *TemplateVersionManager) error
}

// QueryAPI persists queries built in the query builder.
type QueryAPI interface {
	GetQuery(ctx context.Context, id string) (*Query, error)
	UpsertQuery(ctx context.Context, q *Query) (*Query, error)
}

// SavedQueryAPI persists user-named queries.
type SavedQueryAPI interface {
	GetSavedQuery(ctx context.Context, id string) (*SavedQuery, error)
	ListSavedQueriesByUserAndTemplate(ctx context.Context, userID, templateID string) ([]*SavedQuery, error)
	ListSavedQueriesByUser(ctx context.Context, userID string) ([]*SavedQuery, error)
	CreateSavedQuery(ctx context.Context, sq *SavedQuery) (*SavedQuery, error)
	DeleteSavedQuery(ctx context.Context, id string) error
	DeleteSavedQueriesByUserAndTemplate(ctx context.Context, userID, templateID string) (int64, error)
}

// DataStructureAPI persists per-user field selection trees.
type DataStructureAPI interface {
	GetDataStructure(ctx context.Context, id string) (*ExploreDataStructure, error)
	GetDataStructureByUserAndTemplate(ctx context.Context, userID, templateID string) (*ExploreDataStructure, error)
	UpsertDataStructure(ctx context.Context, ds *ExploreDataStructure) error
	// CreateDataStructure inserts ds unless the (user, template) pair already
	// has one, and returns the stored structure either way.
	CreateDataStructure(ctx context.Context, ds *ExploreDataStructure) (*ExploreDataStructure, error)
}

// PersistentQueryAPI persists shareable query handles.
type PersistentQueryAPI interface {
	GetPersistentQuery(ctx context.Context, id string) (*PersistentQuery, error)
	CreatePersistentQuery(ctx context.Context, pq *PersistentQuery) (*PersistentQuery, error)
}

// DataAPI reads and writes the documents queries run against.
type DataAPI interface {
	ListDataByTemplates(ctx context.Context, templateIDs []string) ([]*Data, error)
	UpsertData(ctx context.Context, d *Data) error
}
