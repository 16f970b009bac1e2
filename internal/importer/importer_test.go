package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapexplore/internal/state/statetest"
	"github.com/leapstack-labs/leapexplore/internal/testutil"
)

const manifest = `templates:
  - title: Book
    versions:
      - file: schemas/book-v1.xsd
      - file: schemas/book-v2.xsd
    data:
      - file: data/dune.xml
        title: Dune
        version: 1
      - file: data/solaris.xml
  - title: Notes
    owner: alice
    versions:
      - file: schemas/book-v1.xsd
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}
	return dir
}

func dataDir(t *testing.T) string {
	return writeFiles(t, map[string]string{
		ManifestFile:          manifest,
		"schemas/book-v1.xsd": statetest.BookSchema,
		"schemas/book-v2.xsd": statetest.BookSchema,
		"data/dune.xml":       `<book><title>Dune</title></book>`,
		"data/solaris.xml":    `<?xml version="1.0"?><book><title>Solaris</title></book>`,
	})
}

func TestImporter_Import(t *testing.T) {
	store := statetest.NewStore(t)
	im := New(store, testutil.NewTestLogger(t))
	ctx := context.Background()
	dir := dataDir(t)

	res, err := im.Import(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, &Result{Managers: 2, Templates: 3, Documents: 2}, res)

	global, err := store.GetActiveGlobalVersionManagers(ctx)
	require.NoError(t, err)
	require.Len(t, global, 1)
	book := global[0]
	require.Len(t, book.Versions, 2)
	assert.Equal(t, book.Versions[1], book.Current)

	user, err := store.GetActiveVersionManagersByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, user, 1)
	assert.Equal(t, "Notes", user[0].Title)

	docs, err := store.ListDataByTemplates(ctx, book.Versions)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Dune", docs[0].Title)
	assert.Equal(t, book.Versions[0], docs[0].TemplateID)
	assert.Equal(t, "solaris", docs[1].Title, "title defaults to the file name")
	assert.Equal(t, book.Versions[1], docs[1].TemplateID)

	tmpl, err := store.GetTemplate(ctx, book.Versions[0])
	require.NoError(t, err)
	assert.Equal(t, "book-v1.xsd", tmpl.Filename)
	assert.Len(t, tmpl.Hash, 64)
}

func TestImporter_ImportIsIdempotent(t *testing.T) {
	store := statetest.NewStore(t)
	im := New(store, nil)
	ctx := context.Background()
	dir := dataDir(t)

	_, err := im.Import(ctx, dir)
	require.NoError(t, err)
	_, err = im.Import(ctx, dir)
	require.NoError(t, err)

	managers, err := store.ListVersionManagers(ctx)
	require.NoError(t, err)
	assert.Len(t, managers, 2)

	docs, err := store.ListDataByTemplates(ctx, managers[0].Versions)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestImporter_Errors(t *testing.T) {
	tests := []struct {
		name   string
		files  map[string]string
		errMsg string
	}{
		{
			name:   "missing manifest",
			files:  map[string]string{},
			errMsg: "failed to read manifest",
		},
		{
			name:   "bad yaml",
			files:  map[string]string{ManifestFile: "templates: ["},
			errMsg: "failed to parse manifest",
		},
		{
			name: "missing schema file",
			files: map[string]string{
				ManifestFile: "templates:\n  - title: Book\n    versions:\n      - file: book.xsd\n",
			},
			errMsg: "failed to read book.xsd",
		},
		{
			name: "invalid schema",
			files: map[string]string{
				ManifestFile: "templates:\n  - title: Book\n    versions:\n      - file: book.xsd\n",
				"book.xsd":   "<notaschema/>",
			},
			errMsg: "invalid schema",
		},
		{
			name: "invalid document",
			files: map[string]string{
				ManifestFile: "templates:\n  - title: Book\n    versions:\n      - file: book.xsd\n    data:\n      - file: a.xml\n",
				"book.xsd":   statetest.BookSchema,
				"a.xml":      "<book><title></book>",
			},
			errMsg: "invalid document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im := New(statetest.NewStore(t), nil)
			_, err := im.Import(context.Background(), writeFiles(t, tt.files))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestManifest_Validate(t *testing.T) {
	m := &Manifest{Templates: []TemplateEntry{
		{Title: ""},
		{Title: "Book"},
		{Title: "Dup", Versions: []VersionEntry{{File: "a.xsd"}}},
		{Title: "Dup", Versions: []VersionEntry{{File: ""}}, Data: []DocumentEntry{{File: "x.xml", Version: 3}}},
	}}

	err := m.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"title is required",
		`template "Book": at least one version is required`,
		"duplicate title",
		"file is required",
		"version 3 out of range",
	} {
		assert.Contains(t, err.Error(), want)
	}

	ok := &Manifest{Templates: []TemplateEntry{{Title: "Book", Versions: []VersionEntry{{File: "a.xsd"}}}}}
	assert.NoError(t, ok.Validate())
}
