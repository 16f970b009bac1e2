// Package router sets up HTTP routes for the UI server.
package router

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/leapexplore/internal/explore"
	authFeature "github.com/leapstack-labs/leapexplore/internal/ui/features/auth"
	exploreFeature "github.com/leapstack-labs/leapexplore/internal/ui/features/explore"
	"github.com/leapstack-labs/leapexplore/internal/ui/notifier"
	"github.com/leapstack-labs/leapexplore/internal/ui/pages"
	"github.com/leapstack-labs/leapexplore/internal/ui/resources"
)

// Deps are the dependencies shared by the feature routes.
type Deps struct {
	Service      *explore.Service
	SessionStore sessions.Store
	Pages        *pages.Renderer
	Notifier     *notifier.Notifier
	Explore      exploreFeature.Config
	Logger       *slog.Logger
}

// SetupRoutes configures all routes for the UI server.
func SetupRoutes(router chi.Router, deps Deps, isDev bool) error {
	// Hot reload endpoint for dev mode
	if isDev {
		setupReload(router, deps.Notifier)
	}

	// Static assets
	router.Handle("/static/*", resources.Handler())

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, exploreFeature.BasePath+"/", http.StatusFound)
	})

	// Feature routes
	if err := authFeature.SetupRoutes(router, deps.SessionStore, deps.Pages, deps.Logger); err != nil {
		return err
	}

	if err := exploreFeature.SetupRoutes(router, deps.Service, deps.SessionStore, deps.Notifier, deps.Pages, deps.Explore, deps.Logger); err != nil {
		return err
	}

	return nil
}

// setupReload serves /reload, which reloads the page once on connect and again
// on every /hotreload hit or catalogue re-import.
func setupReload(router chi.Router, notify *notifier.Notifier) {
	reloadChan := make(chan struct{}, 1)
	var hotReloadOnce sync.Once

	router.Get("/reload", func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)
		reload := func() { _ = sse.ExecuteScript("window.location.reload()") }
		hotReloadOnce.Do(reload)

		var imports <-chan notifier.Event
		if notify != nil {
			imports = notify.Subscribe(r.Context())
		}
		select {
		case <-reloadChan:
			reload()
		case <-imports:
			reload()
		case <-r.Context().Done():
		}
	})

	router.Get("/hotreload", func(w http.ResponseWriter, _ *http.Request) {
		select {
		case reloadChan <- struct{}{}:
		default:
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
