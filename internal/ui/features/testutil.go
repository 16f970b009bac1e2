// Package features provides shared test utilities for UI feature tests.
package features

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapexplore/internal/explore"
	"github.com/leapstack-labs/leapexplore/internal/state"
	"github.com/leapstack-labs/leapexplore/internal/state/statetest"
	"github.com/leapstack-labs/leapexplore/internal/testutil"
	"github.com/leapstack-labs/leapexplore/internal/ui/notifier"
	"github.com/leapstack-labs/leapexplore/internal/ui/pages"
	"github.com/leapstack-labs/leapexplore/internal/ui/session"
)

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Store        *state.SQLStore
	Service      *explore.Service
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore
	Pages        *pages.Renderer
	Logger       *slog.Logger
}

// SetupTestFixture creates a fixture over the seeded book store.
func SetupTestFixture(t *testing.T) *TestFixture {
	t.Helper()

	logger := testutil.NewTestLogger(t)
	store := statetest.NewSeededStore(t)

	renderer, err := pages.New()
	require.NoError(t, err)

	return &TestFixture{
		Store:        store,
		Service:      explore.NewService(store, logger),
		Notifier:     notifier.New(),
		SessionStore: NewTestSessionStore(),
		Pages:        renderer,
		Logger:       logger,
	}
}

// Login returns a copy of r carrying a session signed in as userID.
func (f *TestFixture) Login(t *testing.T, r *http.Request, userID string) *http.Request {
	t.Helper()

	rec := httptest.NewRecorder()
	require.NoError(t, session.SetUserID(f.SessionStore, rec, r, userID))
	return CarryCookies(rec, r)
}

// CarryCookies returns a copy of r with the cookies set on rec, replacing
// cookies of the same name.
func CarryCookies(rec *httptest.ResponseRecorder, r *http.Request) *http.Request {
	set := rec.Result().Cookies()
	names := make(map[string]struct{}, len(set))
	for _, c := range set {
		names[c.Name] = struct{}{}
	}

	out := r.Clone(r.Context())
	out.Header.Del("Cookie")
	for _, c := range r.Cookies() {
		if _, ok := names[c.Name]; !ok {
			out.AddCookie(c)
		}
	}
	for _, c := range set {
		out.AddCookie(c)
	}
	return out
}

// SignalsRequest builds a datastar request carrying signals. GET requests
// carry them in the datastar query parameter, others in the body.
func SignalsRequest(t *testing.T, method, target string, signals any) *http.Request {
	t.Helper()

	raw, err := json.Marshal(signals)
	require.NoError(t, err)

	var req *http.Request
	if method == http.MethodGet {
		u, err := url.Parse(target)
		require.NoError(t, err)
		q := u.Query()
		q.Set("datastar", string(raw))
		u.RawQuery = q.Encode()
		req = httptest.NewRequest(method, u.String(), nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Datastar-Request", "true")
	return req
}

// RequestWithPathParam wraps a request with chi URL params.
func RequestWithPathParam(r *http.Request, key, value string) *http.Request {
	return RequestWithPathParams(r, key, value)
}

// RequestWithPathParams wraps a request with chi URL params given as
// key, value pairs.
func RequestWithPathParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// RequestWithTimeout wraps a request with a context timeout.
func RequestWithTimeout(t *testing.T, r *http.Request, timeout time.Duration) *http.Request {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	t.Cleanup(cancel)
	return r.WithContext(ctx)
}

// NewTestSessionStore creates a session store for testing.
func NewTestSessionStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
}
