package explore

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapexplore/internal/state/statetest"
	"github.com/leapstack-labs/leapexplore/internal/xsd"
	"github.com/leapstack-labs/leapexplore/pkg/core"
)

func TestXSDForm(t *testing.T) {
	root, err := xsd.Parse(statetest.BookSchema)
	require.NoError(t, err)
	root.Find(idTitle).Selected = true

	var buf bytes.Buffer
	ds := &core.ExploreDataStructure{ID: "ds1", Root: root}
	require.NoError(t, XSDForm(ds, "/explore/example/data-structure/ds1").Render(context.Background(), &buf))
	html := buf.String()

	assert.Contains(t, html, `id="xsd-form"`)
	assert.Contains(t, html, `@post(&#39;/explore/example/data-structure/ds1/remove-element/e2&#39;)`)
	assert.Contains(t, html, `@post(&#39;/explore/example/data-structure/ds1/generate-element/e3&#39;)`)
	assert.Contains(t, html, `generate-choice/e6`)
	assert.Contains(t, html, `<option value="0" selected>name</option>`)
	assert.NotContains(t, html, `id="e8"`, "inactive choice branch is not rendered")
}

func TestSelectedFieldsTree(t *testing.T) {
	root, err := xsd.Parse(statetest.BookSchema)
	require.NoError(t, err)
	root.Find(idTitle).Selected = true
	root.Find("e7").Selected = true

	var buf bytes.Buffer
	require.NoError(t, SelectedFieldsTree(root).Render(context.Background(), &buf))
	html := buf.String()

	assert.Contains(t, html, `data-path="book.title"`)
	assert.Contains(t, html, `data-path="book.author.name"`)
	assert.Contains(t, html, `<span class="name">author</span>`)
	assert.NotContains(t, html, "book.year")
}
