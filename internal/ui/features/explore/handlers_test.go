package explore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapexplore/internal/explore"
	"github.com/leapstack-labs/leapexplore/internal/querybuilder"
	"github.com/leapstack-labs/leapexplore/internal/state/statetest"
	"github.com/leapstack-labs/leapexplore/internal/ui/features"
	"github.com/leapstack-labs/leapexplore/internal/ui/session"
	"github.com/leapstack-labs/leapexplore/pkg/core"
)

// =============================================================================
// Test Setup Helpers
// =============================================================================

const user = "bob"

// Element ids of the seeded book schema.
const (
	idTitle = "e2"
	idGenre = "e4"
)

func setupTestHandlers(t *testing.T, cfg Config) (*Handlers, *features.TestFixture) {
	t.Helper()

	fixture := features.SetupTestFixture(t)
	handlers := NewHandlers(
		fixture.Service,
		fixture.SessionStore,
		fixture.Notifier,
		fixture.Pages,
		cfg,
		fixture.Logger,
	)
	return handlers, fixture
}

// selectFields creates the data structure of user on the book template and
// saves the given elements as selected fields.
func selectFields(t *testing.T, fixture *features.TestFixture, elementIDs ...string) *core.ExploreDataStructure {
	t.Helper()
	ctx := context.Background()

	tmpl, err := fixture.Service.Template(ctx, statetest.BookTemplateV1)
	require.NoError(t, err)
	ds, err := fixture.Service.CreateAndGetExploreDataStructure(ctx, tmpl, user)
	require.NoError(t, err)
	for _, id := range elementIDs {
		_, err = fixture.Service.SetElementSelected(ctx, ds.ID, user, id, true)
		require.NoError(t, err)
	}
	ds, err = fixture.Service.SaveSelectedFields(ctx, ds.ID, user)
	require.NoError(t, err)
	return ds
}

func defaultQuery(t *testing.T, fixture *features.TestFixture) *core.Query {
	t.Helper()
	ctx := context.Background()

	tmpl, err := fixture.Service.Template(ctx, statetest.BookTemplateV1)
	require.NoError(t, err)
	q, err := fixture.Service.CreateDefaultQuery(ctx, tmpl, user)
	require.NoError(t, err)
	return q
}

func get(t *testing.T, fixture *features.TestFixture, target string, params ...string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = fixture.Login(t, req, user)
	return features.RequestWithPathParams(req, params...)
}

// =============================================================================
// Page Tests
// =============================================================================

func TestIndex(t *testing.T) {
	h, fixture := setupTestHandlers(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/explore/example/", nil)
	req = fixture.Login(t, req, statetest.Owner)
	rec := httptest.NewRecorder()

	h.Index(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, want := range []string{
		"<title>Explore | LeapExplore</title>",
		`href="/explore/example/select-fields/tpl-book-v2"`,
		`href="/explore/example/build-query/tpl-book-v2"`,
		`href="/explore/example/build-query/tpl-notes"`,
		"/explore/example/updates",
		"core_explore_example_app/user/css/style.css",
	} {
		assert.Contains(t, body, want, "response should contain %q", want)
	}
	assert.NotContains(t, body, "tpl-old", "disabled templates are hidden")
}

func TestIndex_OtherUserTemplatesHidden(t *testing.T) {
	h, fixture := setupTestHandlers(t, Config{})

	rec := httptest.NewRecorder()
	h.Index(rec, get(t, fixture, "/explore/example/"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tpl-book-v2")
	assert.NotContains(t, rec.Body.String(), "tpl-notes")
	assert.Contains(t, rec.Body.String(), "You have no template of your own.")
}

func TestIndexUpdates_SendsUpdateOnPublish(t *testing.T) {
	h, fixture := setupTestHandlers(t, Config{})

	req := get(t, fixture, "/explore/example/updates")
	ctx, cancel := context.WithTimeout(req.Context(), 300*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.IndexUpdates(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	fixture.Notifier.Publish(2, 1)

	<-done

	body := rec.Body.String()
	assert.GreaterOrEqual(t, strings.Count(body, "event:"), 1)
	assert.Contains(t, body, `id="template-lists"`)
	assert.Contains(t, body, "tpl-book-v2")
}

func TestIndexUpdates_NoInitialState(t *testing.T) {
	h, fixture := setupTestHandlers(t, Config{})

	req := get(t, fixture, "/explore/example/updates")
	ctx, cancel := context.WithTimeout(req.Context(), 50*time.Millisecond)
	defer cancel()

	rec := httptest.NewRecorder()
	h.IndexUpdates(rec, req.WithContext(ctx))

	assert.Equal(t, 0, strings.Count(rec.Body.String(), "event:"))
}

func TestSelectFields(t *testing.T) {
	tests := []struct {
		name       string
		templateID string
		wantStatus int
		wantBody   []string
	}{
		{
			name:       "renders the field selection form",
			templateID: statetest.BookTemplateV1,
			wantStatus: http.StatusOK,
			wantBody: []string{
				`id="xsd-form"`,
				`<strong>Book</strong>`,
				"generate-element/" + idTitle,
				"/explore/example/build-query/tpl-book-v1",
				"core_parser_app/js/autosave.raw.js",
				"core_explore_example_app/user/css/xsd_form.css",
			},
		},
		{
			name:       "unknown template",
			templateID: "missing",
			wantStatus: http.StatusNotFound,
			wantBody:   []string{"An Error Occurred", "does not exist"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, fixture := setupTestHandlers(t, Config{})

			rec := httptest.NewRecorder()
			h.SelectFields(rec, get(t, fixture, "/", "templateID", tt.templateID))

			assert.Equal(t, tt.wantStatus, rec.Code)
			for _, want := range tt.wantBody {
				assert.Contains(t, rec.Body.String(), want, "response should contain %q", want)
			}
		})
	}
}

func TestSelectFields_ReusesDataStructure(t *testing.T) {
	h, fixture := setupTestHandlers(t, Config{})
	ds := selectFields(t, fixture, idTitle)

	rec := httptest.NewRecorder()
	h.SelectFields(rec, get(t, fixture, "/", "templateID", statetest.BookTemplateV1))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, fmt.Sprintf(`data-structure-id="%s"`, ds.ID))
	assert.Contains(t, body, "remove-element/"+idTitle, "selected element offers removal")
}

func TestBuildQuery_NewQuery(t *testing.T) {
	h, fixture := setupTestHandlers(t, Config{})
	selectFields(t, fixture, idTitle)

	rec := httptest.NewRecorder()
	h.BuildQuery(rec, get(t, fixture, "/", "templateID", statetest.BookTemplateV1))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, want := range []string{
		"<title>Query Builder | LeapExplore</title>",
		"<strong>Submit Query</strong>",
		`&#34;templateId&#34;:&#34;tpl-book-v1&#34;`,
		`id="criteria-rows"`,
		`id="modal-custom-tree"`,
		`id="modal-delete-all-queries"`,
		`saved-queries\/template\/tpl-book-v1`,
		"No saved queries.",
		`class="custom-tree"`,
	} {
		assert.Contains(t, body, want, "response should contain %q", want)
	}

	sess := session.Get(fixture.SessionStore, features.CarryCookies(rec, httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.Equal(t, "", sess.Values[session.SavedQueryFormKey])
	assert.Equal(t, map[string]string{}, sess.Values[session.CriteriaMapKey])
	assert.Equal(t, user, sess.Values[session.UserIDKey])
}

func TestBuildQuery_ExistingQueryRestoresForm(t *testing.T) {
	h, fixture := setupTestHandlers(t, Config{})
	q := defaultQuery(t, fixture)

	form, err := querybuilder.EncodeCriteria([]querybuilder.Criterion{
		{ID: "c1", Field: "book.title", Operator: querybuilder.OpEqual, Value: "Dune"},
	})
	require.NoError(t, err)

	req := get(t, fixture, "/")
	rec := httptest.NewRecorder()
	require.NoError(t, session.SetQueryForm(fixture.SessionStore, rec, req, map[string]string{"c1": "book.title"}, form))
	req = features.RequestWithPathParams(features.CarryCookies(rec, req),
		"templateID", statetest.BookTemplateV1, "queryID", q.ID)

	rec = httptest.NewRecorder()
	h.BuildQuery(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="criterion-c1"`)
	assert.Contains(t, body, `value="Dune"`)
	assert.Contains(t, body, `<option value="book.title" selected>book.title</option>`)
	assert.Contains(t, body, q.ID)
}

func TestBuildQuery_Errors(t *testing.T) {
	tests := []struct {
		name       string
		params     []string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "unknown template",
			params:     []string{"templateID", "missing"},
			wantStatus: http.StatusNotFound,
			wantBody:   "The selected template does not exist",
		},
		{
			name:       "unknown query",
			params:     []string{"templateID", statetest.BookTemplateV1, "queryID", "missing"},
			wantStatus: http.StatusNotFound,
			wantBody:   "does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, fixture := setupTestHandlers(t, Config{})

			rec := httptest.NewRecorder()
			h.BuildQuery(rec, get(t, fixture, "/", tt.params...))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestResults(t *testing.T) {
	h, fixture := setupTestHandlers(t, Config{})
	q := defaultQuery(t, fixture)

	rec := httptest.NewRecorder()
	h.Results(rec, get(t, fixture, "/", "templateID", statetest.BookTemplateV1, "queryID", q.ID))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "/explore/example/results-data/"+q.ID)
	assert.Contains(t, body, "/explore/example/build-query/tpl-book-v1/"+q.ID)
	assert.Contains(t, body, `example\/persistent-query-url`, "URLs in event handlers are JS escaped")
	assert.Contains(t, body, `id="modal-persistent-query"`)
	assert.Contains(t, body, "core_explore_common_app/user/css/results.css")
	assert.NotContains(t, body, `id="modal-exporters"`)
}

func TestResults_WithExporters(t *testing.T) {
	h, fixture := setupTestHandlers(t, Config{Exporters: true})
	q := defaultQuery(t, fixture)

	rec := httptest.NewRecorder()
	h.Results(rec, get(t, fixture, "/", "templateID", statetest.BookTemplateV1, "queryID", q.ID))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="modal-exporters"`)
	assert.Contains(t, body, "/explore/example/export/"+q.ID)
	assert.Contains(t, body, "data-templates-list=")
	assert.Contains(t, body, "list_exporters_selector.js")

	rec = httptest.NewRecorder()
	h.Results(rec, get(t, fixture, "/", "templateID", statetest.BookTemplateV1, "queryID", "missing"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResultsRedirect(t *testing.T) {
	h, fixture := setupTestHandlers(t, Config{})
	q := defaultQuery(t, fixture)
	pq, err := fixture.Service.CreatePersistentQuery(context.Background(), q.ID, user)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ResultsRedirect(rec, get(t, fixture, "/", "persistentQueryID", pq.ID))

	assert.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "/explore/example/results/"), location)
	assert.NotContains(t, location, q.ID, "a fresh query is created")

	rec = httptest.NewRecorder()
	h.ResultsRedirect(rec, get(t, fixture, "/", "persistentQueryID", "missing"))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/explore/example/", rec.Header().Get("Location"))
}

func TestRoutes_RequireUser(t *testing.T) {
	tests := []struct {
		name           string
		allowAnonymous bool
		wantStatus     int
		wantLocation   string
	}{
		{"anonymous redirected to sign in", false, http.StatusFound, "/login?next=%2Fexplore%2Fexample%2F"},
		{"anonymous allowed", true, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := features.SetupTestFixture(t)
			router := chi.NewRouter()
			require.NoError(t, SetupRoutes(router, fixture.Service, fixture.SessionStore, fixture.Notifier,
				fixture.Pages, Config{AllowAnonymous: tt.allowAnonymous}, fixture.Logger))

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/explore/example/", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("template x: %w", core.ErrNotFound), http.StatusNotFound},
		{"access denied", fmt.Errorf("saved query x: %w", explore.ErrAccessDenied), http.StatusForbidden},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestURLs(t *testing.T) {
	var u URLs
	assert.Equal(t, "/explore/example/build-query/t1", u.BuildQuery("t1", ""))
	assert.Equal(t, "/explore/example/build-query/t1/q1", u.BuildQuery("t1", "q1"))
	assert.Equal(t, "/explore/example/results-data/q1?page=2", u.ResultsData("q1", 2))
	assert.Equal(t, "/explore/example/data-structure/d%2F1/load-form", u.LoadForm("d/1"))
	assert.Equal(t, "/explore/example/export/q1?format=json", u.Export("q1", "json"))
}
