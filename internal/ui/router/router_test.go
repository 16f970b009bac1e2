package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapexplore/internal/ui/features"
	exploreFeature "github.com/leapstack-labs/leapexplore/internal/ui/features/explore"
)

func setupRouter(t *testing.T, isDev bool) (chi.Router, *features.TestFixture) {
	t.Helper()
	fixture := features.SetupTestFixture(t)

	r := chi.NewRouter()
	require.NoError(t, SetupRoutes(r, Deps{
		Service:      fixture.Service,
		SessionStore: fixture.SessionStore,
		Pages:        fixture.Pages,
		Notifier:     fixture.Notifier,
		Explore:      exploreFeature.Config{ResultsPageSize: 10},
		Logger:       fixture.Logger,
	}, isDev))
	return r, fixture
}

func TestSetupRoutes(t *testing.T) {
	r, _ := setupRouter(t, false)

	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{"root", "/", http.StatusFound},
		{"login", "/login", http.StatusOK},
		{"static", "/static/core_main_app/css/main.css", http.StatusOK},
		{"no reload outside dev", "/reload", http.StatusNotFound},
		{"no hotreload outside dev", "/hotreload", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHotReload(t *testing.T) {
	r, _ := setupRouter(t, true)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hotreload", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestReload_OnImport(t *testing.T) {
	r, fixture := setupRouter(t, true)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/reload", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return fixture.Notifier.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	fixture.Notifier.Publish(1, 0)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reload stream did not end after import")
	}

	// Once on connect, once for the import.
	assert.Equal(t, 2, strings.Count(rec.Body.String(), "window.location.reload()"))
}
