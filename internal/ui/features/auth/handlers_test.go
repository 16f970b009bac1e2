package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapexplore/internal/testutil"
	"github.com/leapstack-labs/leapexplore/internal/ui/features"
	"github.com/leapstack-labs/leapexplore/internal/ui/pages"
	"github.com/leapstack-labs/leapexplore/internal/ui/session"
)

func setupTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	return NewHandlers(features.NewTestSessionStore(), pages.MustNew(), testutil.NewTestLogger(t))
}

func postLogin(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, LoginPath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestLoginPage(t *testing.T) {
	h := setupTestHandlers(t)

	rec := httptest.NewRecorder()
	h.LoginPage(rec, httptest.NewRequest(http.MethodGet, "/login?next=/explore/example/results/a/b", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="/explore/example/results/a/b"`)
	assert.Contains(t, rec.Body.String(), "<title>Sign in | LeapExplore</title>")
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name         string
		form         url.Values
		wantStatus   int
		wantLocation string
		wantBody     string
		wantUser     string
	}{
		{
			name:         "signs in and follows next",
			form:         url.Values{"username": {"  bob "}, "next": {"/explore/example/build-query/t1"}},
			wantStatus:   http.StatusSeeOther,
			wantLocation: "/explore/example/build-query/t1",
			wantUser:     "bob",
		},
		{
			name:         "external next falls back to default",
			form:         url.Values{"username": {"bob"}, "next": {"//evil.example/"}},
			wantStatus:   http.StatusSeeOther,
			wantLocation: DefaultNext,
			wantUser:     "bob",
		},
		{
			name:       "missing username",
			form:       url.Values{"next": {"/explore/example/"}},
			wantStatus: http.StatusBadRequest,
			wantBody:   "Username is required.",
		},
		{
			name:       "reserved username",
			form:       url.Values{"username": {"core_explore_example_app"}},
			wantStatus: http.StatusBadRequest,
			wantBody:   "This username is reserved.",
		},
		{
			name:       "username too long",
			form:       url.Values{"username": {strings.Repeat("a", maxUsernameLength+1)}},
			wantStatus: http.StatusBadRequest,
			wantBody:   "Username is too long.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := setupTestHandlers(t)

			rec := httptest.NewRecorder()
			h.Login(rec, postLogin(tt.form))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			assert.Contains(t, rec.Body.String(), tt.wantBody)

			req := features.CarryCookies(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.wantUser, session.UserID(h.sessionStore, req))
		})
	}
}

func TestLogout(t *testing.T) {
	h := setupTestHandlers(t)

	rec := httptest.NewRecorder()
	h.Login(rec, postLogin(url.Values{"username": {"bob"}}))
	req := features.CarryCookies(rec, httptest.NewRequest(http.MethodPost, "/logout", nil))
	require.Equal(t, "bob", session.UserID(h.sessionStore, req))

	rec = httptest.NewRecorder()
	h.Logout(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))
	assert.Empty(t, session.UserID(h.sessionStore, features.CarryCookies(rec, req)))
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"/explore/example/", "/explore/example/"},
		{"", DefaultNext},
		{"https://evil.example/", DefaultNext},
		{"//evil.example/", DefaultNext},
		{`/\evil.example/`, DefaultNext},
	}

	for _, tt := range tests {
		t.Run(tt.next, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeNext(tt.next))
		})
	}
}

func TestRequireUser(t *testing.T) {
	store := features.NewTestSessionStore()
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name           string
		allowAnonymous bool
		user           string
		datastar       bool
		wantStatus     int
		wantLocation   string
		wantBody       string
	}{
		{"signed in", false, "bob", false, http.StatusNoContent, "", ""},
		{"anonymous allowed", true, "", false, http.StatusNoContent, "", ""},
		{"anonymous page", false, "", false, http.StatusFound, "/login?next=%2Fexplore%2Fexample%2F%3Fa%3D1", ""},
		{"anonymous datastar request", false, "", true, http.StatusOK, "", "/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/explore/example/?a=1", nil)
			if tt.datastar {
				req.Header.Set("Datastar-Request", "true")
			}
			if tt.user != "" {
				rec := httptest.NewRecorder()
				require.NoError(t, session.SetUserID(store, rec, req, tt.user))
				req = features.CarryCookies(rec, req)
			}

			rec := httptest.NewRecorder()
			RequireUser(store, tt.allowAnonymous)(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}
