// Package explore provides the explore by example pages and their
// datastar actions.
package explore

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/leapstack-labs/leapexplore/internal/explore"
	"github.com/leapstack-labs/leapexplore/internal/ui/features/auth"
	"github.com/leapstack-labs/leapexplore/internal/ui/notifier"
	"github.com/leapstack-labs/leapexplore/internal/ui/pages"
)

// SetupRoutes registers the explore feature routes under BasePath.
func SetupRoutes(
	router chi.Router,
	service *explore.Service,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	renderer *pages.Renderer,
	cfg Config,
	logger *slog.Logger,
) error {
	handlers := NewHandlers(service, sessionStore, notify, renderer, cfg, logger)

	router.Route(BasePath, func(r chi.Router) {
		r.Use(auth.RequireUser(sessionStore, cfg.AllowAnonymous))

		// Page routes
		r.Get("/", handlers.Index)
		r.Get("/updates", handlers.IndexUpdates)
		r.Get("/select-fields/{templateID}", handlers.SelectFields)
		r.Get("/build-query/{templateID}", handlers.BuildQuery)
		r.Get("/build-query/{templateID}/{queryID}", handlers.BuildQuery)
		r.Get("/results/{templateID}/{queryID}", handlers.Results)
		r.Get("/results-redirect/{persistentQueryID}", handlers.ResultsRedirect)

		// Field selection
		r.Route("/data-structure/{dataStructureID}", func(r chi.Router) {
			r.Post("/load-form", handlers.LoadFormSSE)
			r.Post("/generate-element/{elementID}", handlers.GenerateElementSSE)
			r.Post("/remove-element/{elementID}", handlers.RemoveElementSSE)
			r.Post("/generate-choice/{elementID}", handlers.GenerateChoiceSSE)
			r.Post("/save", handlers.SaveFieldsSSE)
		})

		// Query builder
		r.Post("/add-criteria", handlers.AddCriteriaSSE)
		r.Post("/remove-criteria/{criterionID}", handlers.RemoveCriteriaSSE)
		r.Post("/get-query", handlers.GetQuerySSE)
		r.Post("/save-query", handlers.SaveQuerySSE)
		r.Route("/saved-queries", func(r chi.Router) {
			r.Post("/{savedQueryID}/load", handlers.LoadSavedQuerySSE)
			r.Delete("/{savedQueryID}", handlers.DeleteSavedQuerySSE)
			r.Delete("/template/{templateID}", handlers.DeleteSavedQueriesSSE)
		})

		// Results
		r.Post("/persistent-query-url", handlers.PersistentQuerySSE)
		r.Get("/results-data/{queryID}", handlers.ResultsDataSSE)
		r.Get("/export/{queryID}", handlers.Export)
	})

	return nil
}
