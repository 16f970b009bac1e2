package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapexplore/internal/testutil"
	"github.com/leapstack-labs/leapexplore/pkg/core"
)

func setupTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store := NewSQLStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(DriverSQLite, ":memory:"))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLStore_OpenClose(t *testing.T) {
	store := NewSQLStore(nil)

	require.NoError(t, store.Open(DriverSQLite, ":memory:"))
	assert.Equal(t, DriverSQLite, store.Driver())
	require.NoError(t, store.Close())
}

func TestSQLStore_OpenUnknownDriver(t *testing.T) {
	store := NewSQLStore(nil)

	err := store.Open("oracle", "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestSQLStore_NotOpened(t *testing.T) {
	store := NewSQLStore(nil)

	_, err := store.GetQuery(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not opened")
}

func TestSQLStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.GetMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	tables := []string{
		"templates", "template_version_managers", "template_versions", "queries",
		"saved_queries", "explore_data_structures", "persistent_queries", "data",
	}
	for _, table := range tables {
		rows, err := store.DB().Query("SELECT 1 FROM " + table + " LIMIT 1")
		if assert.NoError(t, err, "table %s should exist", table) {
			_ = rows.Close()
		}
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		input  string
		want   string
	}{
		{"sqlite untouched", DriverSQLite, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{"postgres numbered", DriverPostgres, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{"postgres no params", DriverPostgres, "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &SQLStore{driver: tt.driver}
			assert.Equal(t, tt.want, s.rebind(tt.input))
		})
	}
}

// --- Templates and version managers ---

func TestSQLStore_Templates(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	v1 := &core.Template{Filename: "book.xsd", Title: "Book", Content: "<xs:schema/>"}
	v2 := &core.Template{Filename: "book_v2.xsd", Title: "Book", Content: "<xs:schema/>"}
	require.NoError(t, store.UpsertTemplate(ctx, v1))
	require.NoError(t, store.UpsertTemplate(ctx, v2))
	assert.NotEmpty(t, v1.ID)

	got, err := store.GetTemplate(ctx, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, "book.xsd", got.Filename)

	_, err = store.GetTemplate(ctx, "missing")
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))

	list, err := store.GetTemplatesByIDs(ctx, []string{v2.ID, "missing", v1.ID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, v2.ID, list[0].ID, "order of ids should be kept")
	assert.Equal(t, v1.ID, list[1].ID)

	empty, err := store.GetTemplatesByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLStore_VersionManagers(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	global := &core.TemplateVersionManager{Title: "Book", Versions: []string{"t1", "t2"}, Current: "t2"}
	owned := &core.TemplateVersionManager{Title: "Notes", UserID: "alice", Versions: []string{"t3"}, Current: "t3"}
	disabled := &core.TemplateVersionManager{Title: "Old", Versions: []string{"t4"}, Current: "t4", IsDisabled: true}
	for _, vm := range []*core.TemplateVersionManager{global, owned, disabled} {
		require.NoError(t, store.UpsertVersionManager(ctx, vm))
	}

	globals, err := store.GetActiveGlobalVersionManagers(ctx)
	require.NoError(t, err)
	require.Len(t, globals, 1)
	assert.Equal(t, "Book", globals[0].Title)
	assert.Equal(t, []string{"t1", "t2"}, globals[0].Versions)

	mine, err := store.GetActiveVersionManagersByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Notes", mine[0].Title)

	anonymous, err := store.GetActiveVersionManagersByUser(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, anonymous)

	all, err := store.ListVersionManagers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	vm, err := store.GetVersionManagerByVersionID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, global.ID, vm.ID)

	// Moving a version drops it from the old index.
	global.Versions = []string{"t2"}
	require.NoError(t, store.UpsertVersionManager(ctx, global))
	_, err = store.GetVersionManagerByVersionID(ctx, "t1")
	assert.True(t, core.IsNotFound(err))
}

// --- Queries ---

func TestSQLStore_Queries(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	q, err := store.UpsertQuery(ctx, &core.Query{
		UserID:      "alice",
		Templates:   []string{"t1", "t2"},
		DataSources: []core.DataSource{{Name: core.LocalDataSourceName, URL: "/local"}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, q.ID)

	q.Content = `{"dict_content.book.title":"Dune"}`
	_, err = store.UpsertQuery(ctx, q)
	require.NoError(t, err)

	got, err := store.GetQuery(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.Content, got.Content)
	assert.Equal(t, []string{"t1", "t2"}, got.Templates)
	require.Len(t, got.DataSources, 1)
	assert.Equal(t, core.LocalDataSourceName, got.DataSources[0].Name)

	_, err = store.GetQuery(ctx, "missing")
	assert.True(t, core.IsNotFound(err))
}

// --- Saved queries ---

func TestSQLStore_SavedQueries(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first, err := store.CreateSavedQuery(ctx, &core.SavedQuery{
		UserID: "alice", TemplateID: "t1", Query: "{}", DisplayedQuery: "everything",
	})
	require.NoError(t, err)
	_, err = store.CreateSavedQuery(ctx, &core.SavedQuery{UserID: "alice", TemplateID: "t1", Query: "{}"})
	require.NoError(t, err)
	_, err = store.CreateSavedQuery(ctx, &core.SavedQuery{UserID: "alice", TemplateID: "t2", Query: "{}"})
	require.NoError(t, err)
	_, err = store.CreateSavedQuery(ctx, &core.SavedQuery{UserID: "bob", TemplateID: "t1", Query: "{}"})
	require.NoError(t, err)

	got, err := store.GetSavedQuery(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "everything", got.DisplayedQuery)
	assert.Equal(t, "[]", got.Criteria, "criteria should default to an empty list")

	byTemplate, err := store.ListSavedQueriesByUserAndTemplate(ctx, "alice", "t1")
	require.NoError(t, err)
	assert.Len(t, byTemplate, 2)

	byUser, err := store.ListSavedQueriesByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, byUser, 3)

	require.NoError(t, store.DeleteSavedQuery(ctx, first.ID))
	assert.True(t, core.IsNotFound(store.DeleteSavedQuery(ctx, first.ID)))

	n, err := store.DeleteSavedQueriesByUserAndTemplate(ctx, "alice", "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	remaining, err := store.ListSavedQueriesByUser(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, remaining, 1, "other users keep their queries")
}

// --- Data structures ---

func TestSQLStore_DataStructures(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ds := &core.ExploreDataStructure{
		UserID:     "alice",
		TemplateID: "t1",
		Root: &core.DataStructureElement{
			ID: "e0", Tag: core.TagElement, Name: "book", Path: "book",
			Children: []*core.DataStructureElement{
				{ID: "e1", Tag: core.TagElement, Name: "title", Path: "book.title", Type: "xs:string", Selected: true},
			},
		},
	}
	require.NoError(t, store.UpsertDataStructure(ctx, ds))

	got, err := store.GetDataStructureByUserAndTemplate(ctx, "alice", "t1")
	require.NoError(t, err)
	assert.Equal(t, ds.ID, got.ID)
	require.Len(t, got.Root.Children, 1)
	assert.True(t, got.Root.Children[0].Selected)

	got.SelectedFieldsHTMLTree = "<ul><li>title</li></ul>"
	require.NoError(t, store.UpsertDataStructure(ctx, got))

	byID, err := store.GetDataStructure(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, "<ul><li>title</li></ul>", byID.SelectedFieldsHTMLTree)

	_, err = store.GetDataStructureByUserAndTemplate(ctx, "bob", "t1")
	assert.True(t, core.IsNotFound(err))
}

func TestSQLStore_CreateDataStructure_KeepsFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first, err := store.CreateDataStructure(ctx, &core.ExploreDataStructure{
		UserID: "alice", TemplateID: "t1",
		Root: &core.DataStructureElement{ID: "e0", Tag: core.TagElement, Name: "book", Path: "book"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := store.CreateDataStructure(ctx, &core.ExploreDataStructure{
		UserID: "alice", TemplateID: "t1",
		Root: &core.DataStructureElement{ID: "e0", Tag: core.TagElement, Name: "other", Path: "other"},
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "book", second.Root.Name, "existing structure is not overwritten")
}

// --- Persistent queries ---

func TestSQLStore_PersistentQueries(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	pq, err := store.CreatePersistentQuery(ctx, &core.PersistentQuery{
		UserID:    "alice",
		Content:   "{}",
		Templates: []string{"t1"},
	})
	require.NoError(t, err)

	got, err := store.GetPersistentQuery(ctx, pq.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, got.Templates)
	assert.Empty(t, got.DataSources)

	_, err = store.GetPersistentQuery(ctx, "missing")
	assert.True(t, core.IsNotFound(err))
}

// --- Data ---

func TestSQLStore_Data(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertData(ctx, &core.Data{ID: "d2", TemplateID: "t1", Title: "b", XMLContent: "<book/>"}))
	require.NoError(t, store.UpsertData(ctx, &core.Data{ID: "d1", TemplateID: "t1", Title: "a", XMLContent: "<book/>"}))
	require.NoError(t, store.UpsertData(ctx, &core.Data{ID: "d3", TemplateID: "t2", Title: "c", XMLContent: "<note/>"}))

	docs, err := store.ListDataByTemplates(ctx, []string{"t1"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "d1", docs[0].ID, "documents are ordered by title")

	docs, err = store.ListDataByTemplates(ctx, []string{"t1", "t2"})
	require.NoError(t, err)
	assert.Len(t, docs, 3)

	docs, err = store.ListDataByTemplates(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
