package explore

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/leapexplore/internal/explore"
	"github.com/leapstack-labs/leapexplore/internal/querybuilder"
	"github.com/leapstack-labs/leapexplore/internal/ui/notifier"
	"github.com/leapstack-labs/leapexplore/internal/ui/pages"
	"github.com/leapstack-labs/leapexplore/internal/ui/session"
	"github.com/leapstack-labs/leapexplore/pkg/core"
)

// Handlers provides HTTP handlers for the explore feature.
type Handlers struct {
	service      *explore.Service
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	pages        *pages.Renderer
	config       Config
	logger       *slog.Logger
	urls         URLs
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *explore.Service, sessionStore sessions.Store, notify *notifier.Notifier, renderer *pages.Renderer, cfg Config, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.ResultsPageSize <= 0 {
		cfg.ResultsPageSize = explore.DefaultPageSize
	}
	return &Handlers{
		service:      service,
		sessionStore: sessionStore,
		notifier:     notify,
		pages:        renderer,
		config:       cfg,
		logger:       logger,
	}
}

// Index lists the templates the user can explore.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	data, err := h.indexContext(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, indexTemplate, pages.PageData{
		Title:   "Explore",
		Assets:  indexAssets(),
		Context: data,
	})
}

// IndexUpdates is the long-lived SSE endpoint of the index page.
// It re-renders the template lists whenever the data directory is re-imported.
func (h *Handlers) IndexUpdates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe(r.Context())
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-updates:
			if !ok {
				return
			}
			h.logger.Debug("catalogue changed", "seq", ev.Seq, "templates", ev.Templates)
			data, err := h.indexContext(r)
			if err != nil {
				_ = sse.ConsoleError(err)
				continue
			}
			if err := sse.PatchElementTempl(h.pages.Fragment("template_lists.html", data)); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

func (h *Handlers) indexContext(r *http.Request) (IndexContext, error) {
	userID := session.UserID(h.sessionStore, r)
	global, user, err := h.service.ActiveTemplates(r.Context(), userID)
	if err != nil {
		return IndexContext{}, err
	}
	return IndexContext{
		GlobalObjects:        global,
		UserObjects:          user,
		ObjectName:           ObjectName,
		SelectObjectRedirect: h.urls.SelectFieldsPrefix(),
		BuildQueryRedirect:   h.urls.BuildQueryPrefix(),
		UpdatesURL:           h.urls.Updates(),
	}, nil
}

// SelectFields renders the field selection form of a template.
func (h *Handlers) SelectFields(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID := chi.URLParam(r, "templateID")
	userID := session.UserID(h.sessionStore, r)

	tmpl, err := h.service.Template(ctx, templateID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	ds, err := h.service.CreateAndGetExploreDataStructure(ctx, tmpl, userID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	form, err := pages.HTML(ctx, explore.XSDForm(ds, h.urls.DataStructure(ds.ID)))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, selectFieldsTemplate, pages.PageData{
		Title:  "Select fields",
		Assets: selectFieldsAssets(),
		Context: SelectFieldsContext{
			TemplateID:         tmpl.ID,
			TemplateTitle:      tmpl.Title,
			BuildQueryURL:      h.urls.BuildQuery(tmpl.ID, ""),
			LoadFormURL:        h.urls.LoadForm(ds.ID),
			GenerateElementURL: h.urls.GenerateElement(ds.ID),
			RemoveElementURL:   h.urls.RemoveElement(ds.ID),
			GenerateChoiceURL:  h.urls.GenerateChoice(ds.ID),
			SaveURL:            h.urls.SaveFields(ds.ID),
			DataStructureID:    ds.ID,
			XSDForm:            form,
		},
	})
}

// BuildQuery renders the query builder of a template. Without a query id the
// builder state is reset and a default query is created.
func (h *Handlers) BuildQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID := chi.URLParam(r, "templateID")
	queryID := chi.URLParam(r, "queryID")
	userID := session.UserID(h.sessionStore, r)

	tmpl, err := h.service.Template(ctx, templateID)
	if core.IsNotFound(err) {
		h.renderErrorMessage(w, r, http.StatusNotFound, "The selected template does not exist")
		return
	}
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	customForm, ds, err := h.service.CustomForm(ctx, userID, tmpl.ID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	var fields []explore.Field
	if ds != nil {
		fields = explore.SelectedFields(ds.Root)
	}

	var (
		queryForm string
		criteria  []querybuilder.Criterion
	)
	if queryID == "" {
		if err := session.ResetQueryForm(h.sessionStore, w, r); err != nil {
			h.renderError(w, r, err)
			return
		}
		q, err := h.service.CreateDefaultQuery(ctx, tmpl, userID)
		if err != nil {
			h.renderError(w, r, err)
			return
		}
		queryID = q.ID
	} else {
		if form, ok := session.QueryForm(h.sessionStore, r); ok {
			queryForm = form
			criteria, err = querybuilder.DecodeCriteria(form)
			if err != nil {
				h.logger.Warn("discarding stored query form", slog.String("error", err.Error()))
				criteria = nil
			}
		}
		if _, err := h.service.Query(ctx, queryID); err != nil {
			h.renderError(w, r, err)
			return
		}
	}

	saved, err := h.service.SavedQueries(ctx, userID, tmpl.ID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	signals, err := json.Marshal(builderSignals{
		QueryID:    queryID,
		TemplateID: tmpl.ID,
		Criteria:   criteriaMap(criteria),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, buildQueryTemplate, pages.PageData{
		Title:  pages.TitleCase(buildQueryTitle),
		Assets: buildQueryAssets(),
		Modals: buildQueryModals(),
		Context: BuildQueryContext{
			Queries:     saved,
			TemplateID:  tmpl.ID,
			Description: buildQueryDescription,
			Title:       pages.TitleCase(buildQueryTitle),

			CustomForm: template.HTML(customForm), //nolint:gosec // sanitized when saved
			QueryForm:  queryForm,
			QueryID:    queryID,

			BuildQueryURL:       h.urls.BuildQuery(tmpl.ID, queryID),
			ResultsURL:          h.urls.Results(tmpl.ID, queryID),
			GetQueryURL:         h.urls.GetQuery(),
			SaveQueryURL:        h.urls.SaveQuery(),
			SelectFieldsURL:     h.urls.SelectFields(tmpl.ID),
			AddCriteriaURL:      h.urls.AddCriteria(),
			DeleteQueryURL:      h.urls.SavedQueryPrefix(),
			DeleteAllQueriesURL: h.urls.DeleteSavedQueries(tmpl.ID),

			DataSourcesSelectorTemplate: "data-sources-selector",
			QueryBuilderInterface:       "query-builder",

			Signals: string(signals),
			Builder: CriteriaRows{
				Criteria:  criteria,
				Fields:    withCriteriaFields(fields, criteria),
				Operators: querybuilder.Operators,
			},
			SavedQueries: SavedQueriesList{Queries: saved, TemplateID: tmpl.ID},
		},
	})
}

// Results renders the results page of a query. Documents are loaded by the
// page through ResultsData.
func (h *Handlers) Results(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateID")
	queryID := chi.URLParam(r, "queryID")

	data := ResultsContext{
		TemplateID:          templateID,
		QueryID:             queryID,
		BackToQueryRedirect: h.urls.BuildQuery(templateID, queryID),
		GetShareableLinkURL: h.urls.PersistentQuery(),
		DataURL:             h.urls.ResultsData(queryID, 1),
	}
	assets, modals := resultsAssets(h.config.Exporters)

	if h.config.Exporters {
		q, err := h.service.Query(r.Context(), queryID)
		if err != nil {
			h.renderError(w, r, err)
			return
		}
		list, err := json.Marshal(q.Templates)
		if err != nil {
			h.renderError(w, r, err)
			return
		}
		data.ExporterApp = true
		data.TemplatesList = string(list)
		data.Exporters = []Exporter{
			{Name: "XML", URL: h.urls.Export(queryID, explore.FormatXML)},
			{Name: "JSON", URL: h.urls.Export(queryID, explore.FormatJSON)},
		}
	}

	h.render(w, r, http.StatusOK, resultsTemplate, pages.PageData{
		Title:   "Results",
		Assets:  assets,
		Modals:  modals,
		Context: data,
	})
}

// ResultsRedirect resolves a shareable link into a new query of the current
// user and redirects to its results. Any failure lands on the index.
func (h *Handlers) ResultsRedirect(w http.ResponseWriter, r *http.Request) {
	persistentQueryID := chi.URLParam(r, "persistentQueryID")
	userID := session.UserID(h.sessionStore, r)

	q, err := h.service.ResolvePersistentQuery(r.Context(), persistentQueryID, userID)
	if err != nil {
		h.logger.Warn("failed to resolve persistent query",
			slog.String("persistent_query_id", persistentQueryID),
			slog.String("error", err.Error()),
		)
		http.Redirect(w, r, h.urls.Index(), http.StatusFound)
		return
	}

	http.Redirect(w, r, h.urls.Results(q.Templates[0], q.ID), http.StatusFound)
}

// render writes a full page with status. The page is rendered to a buffer so
// a template failure still produces a clean 500.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, name string, data pages.PageData) {
	data.User = session.UserID(h.sessionStore, r)

	var buf bytes.Buffer
	if err := h.pages.Page(name, data).Render(r.Context(), &buf); err != nil {
		h.logger.Error("failed to render page", slog.String("page", name), slog.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderError renders the error page for err.
func (h *Handlers) renderError(w http.ResponseWriter, r *http.Request, err error) {
	h.renderErrorMessage(w, r, statusFor(err), err.Error())
}

func (h *Handlers) renderErrorMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("explore request failed", slog.String("path", r.URL.Path), slog.String("error", message))
	} else {
		h.logger.Debug("explore request rejected", slog.String("path", r.URL.Path), slog.String("error", message))
	}

	h.render(w, r, status, errorsTemplate, pages.PageData{
		Title:   "Error",
		Context: ErrorContext{Errors: message},
	})
}

func statusFor(err error) int {
	switch {
	case core.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, explore.ErrAccessDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
