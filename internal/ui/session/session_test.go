package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
}

// roundTrip copies the cookies set on rec to a new request.
func roundTrip(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestUserID(t *testing.T) {
	store := newStore()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, UserID(store, req))

	rec := httptest.NewRecorder()
	require.NoError(t, SetUserID(store, rec, req, "alice"))
	assert.Equal(t, "alice", UserID(store, roundTrip(rec)))
}

func TestQueryForm(t *testing.T) {
	store := newStore()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := QueryForm(store, req)
	assert.False(t, ok)
	assert.Empty(t, CriteriaMap(store, req))

	rec := httptest.NewRecorder()
	require.NoError(t, SetQueryForm(store, rec, req, map[string]string{"c1": "book.title"}, `[{"id":"c1"}]`))

	next := roundTrip(rec)
	form, ok := QueryForm(store, next)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"c1"}]`, form)
	assert.Equal(t, map[string]string{"c1": "book.title"}, CriteriaMap(store, next))

	rec = httptest.NewRecorder()
	require.NoError(t, ResetQueryForm(store, rec, next))
	form, ok = QueryForm(store, roundTrip(rec))
	assert.True(t, ok)
	assert.Empty(t, form)
}

func TestClear(t *testing.T) {
	store := newStore()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	rec := httptest.NewRecorder()
	require.NoError(t, SetUserID(store, rec, req, "alice"))

	next := roundTrip(rec)
	rec = httptest.NewRecorder()
	require.NoError(t, Clear(store, rec, next))
	assert.Empty(t, UserID(store, roundTrip(rec)))
}
