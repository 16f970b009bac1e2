package explore

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/leapexplore/internal/explore"
	"github.com/leapstack-labs/leapexplore/internal/querybuilder"
	"github.com/leapstack-labs/leapexplore/internal/ui/session"
	"github.com/leapstack-labs/leapexplore/pkg/core"
)

// LoadFormSSE re-renders the field selection form.
func (h *Handlers) LoadFormSSE(w http.ResponseWriter, r *http.Request) {
	dsID := chi.URLParam(r, "dataStructureID")
	userID := session.UserID(h.sessionStore, r)

	ds, err := h.service.DataStructure(r.Context(), dsID, userID)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.sseError(sse, err)
		return
	}
	h.patchForm(sse, ds)
}

// GenerateElementSSE selects an element and its subtree.
func (h *Handlers) GenerateElementSSE(w http.ResponseWriter, r *http.Request) {
	h.setElementSelected(w, r, true)
}

// RemoveElementSSE unselects an element and its subtree.
func (h *Handlers) RemoveElementSSE(w http.ResponseWriter, r *http.Request) {
	h.setElementSelected(w, r, false)
}

func (h *Handlers) setElementSelected(w http.ResponseWriter, r *http.Request, selected bool) {
	dsID := chi.URLParam(r, "dataStructureID")
	elementID := chi.URLParam(r, "elementID")
	userID := session.UserID(h.sessionStore, r)

	ds, err := h.service.SetElementSelected(r.Context(), dsID, userID, elementID, selected)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.sseError(sse, err)
		return
	}
	h.patchForm(sse, ds)
}

// GenerateChoiceSSE switches the active branch of a choice.
func (h *Handlers) GenerateChoiceSSE(w http.ResponseWriter, r *http.Request) {
	dsID := chi.URLParam(r, "dataStructureID")
	elementID := chi.URLParam(r, "elementID")
	userID := session.UserID(h.sessionStore, r)

	var signals choiceSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		h.sseError(datastar.NewSSE(w, r), err)
		return
	}

	ds, err := h.service.SelectChoice(r.Context(), dsID, userID, elementID, signals.Choice)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.sseError(sse, err)
		return
	}
	h.patchForm(sse, ds)
}

// SaveFieldsSSE stores the selected fields and moves on to the query builder.
func (h *Handlers) SaveFieldsSSE(w http.ResponseWriter, r *http.Request) {
	dsID := chi.URLParam(r, "dataStructureID")
	userID := session.UserID(h.sessionStore, r)

	ds, err := h.service.SaveSelectedFields(r.Context(), dsID, userID)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.sseError(sse, err)
		return
	}
	_ = sse.Redirect(h.urls.BuildQuery(ds.TemplateID, ""))
}

func (h *Handlers) patchForm(sse *datastar.ServerSentEventGenerator, ds *core.ExploreDataStructure) {
	if err := sse.PatchElementTempl(explore.XSDForm(ds, h.urls.DataStructure(ds.ID))); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// AddCriteriaSSE appends a criterion on the first selected field.
func (h *Handlers) AddCriteriaSSE(w http.ResponseWriter, r *http.Request) {
	var signals builderSignals
	readErr := datastar.ReadSignals(r, &signals)
	sse := datastar.NewSSE(w, r)
	if readErr != nil {
		h.sseError(sse, readErr)
		return
	}

	fields, err := h.builderFields(r, signals.TemplateID)
	if err != nil {
		h.sseError(sse, err)
		return
	}
	if len(fields) == 0 {
		h.patchQueryError(sse, "No fields selected. Select fields to build a query.")
		return
	}

	criteria := signals.list()
	c := querybuilder.Criterion{
		ID:          newCriterionID(),
		Order:       nextOrder(criteria),
		Field:       fields[0].Path,
		Operator:    querybuilder.OpEqual,
		Conjunction: querybuilder.And,
	}
	criteria = append(criteria, c)

	if err := sse.MarshalAndPatchSignals(map[string]any{
		"criteria": map[string]querybuilder.Criterion{c.ID: c},
	}); err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	h.patchCriteria(sse, criteria, fields)
	h.patchQueryError(sse, "")
}

// RemoveCriteriaSSE drops a criterion from the builder.
func (h *Handlers) RemoveCriteriaSSE(w http.ResponseWriter, r *http.Request) {
	criterionID := chi.URLParam(r, "criterionID")

	var signals builderSignals
	readErr := datastar.ReadSignals(r, &signals)
	sse := datastar.NewSSE(w, r)
	if readErr != nil {
		h.sseError(sse, readErr)
		return
	}

	fields, err := h.builderFields(r, signals.TemplateID)
	if err != nil {
		h.sseError(sse, err)
		return
	}

	delete(signals.Criteria, criterionID)

	// A null value removes the signal on the client.
	if err := sse.MarshalAndPatchSignals(map[string]any{
		"criteria": map[string]any{criterionID: nil},
	}); err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	h.patchCriteria(sse, signals.list(), fields)
}

// GetQuerySSE compiles the builder criteria onto the query and redirects to
// its results. The criteria are kept in the session for the way back.
func (h *Handlers) GetQuerySSE(w http.ResponseWriter, r *http.Request) {
	var (
		signals builderSignals
		q       *core.Query
	)
	err := datastar.ReadSignals(r, &signals)
	if err == nil {
		q, err = h.submitQuery(w, r, signals)
	}

	sse := datastar.NewSSE(w, r)
	switch {
	case errors.Is(err, explore.ErrAccessDenied):
		h.patchQueryError(sse, "This query belongs to another user.")
		return
	case err != nil:
		if statusFor(err) == http.StatusInternalServerError && !isCriteriaError(err) {
			h.logger.Error("failed to submit query", slog.String("query_id", signals.QueryID), slog.String("error", err.Error()))
		}
		h.patchQueryError(sse, err.Error())
		return
	}
	_ = sse.Redirect(h.urls.Results(resultsTemplateID(q, signals.TemplateID), q.ID))
}

func (h *Handlers) submitQuery(w http.ResponseWriter, r *http.Request, signals builderSignals) (*core.Query, error) {
	criteria := signals.list()
	q, err := h.service.UpdateQueryCriteria(r.Context(), signals.QueryID, session.UserID(h.sessionStore, r), criteria)
	if err != nil {
		return nil, err
	}

	form, err := querybuilder.EncodeCriteria(criteria)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(criteria))
	for _, c := range criteria {
		fields[c.ID] = c.Field
	}
	return q, session.SetQueryForm(h.sessionStore, w, r, fields, form)
}

// resultsTemplateID returns templateID when the query reads it and the query's
// first template otherwise.
func resultsTemplateID(q *core.Query, templateID string) string {
	if slices.Contains(q.Templates, templateID) {
		return templateID
	}
	return q.Templates[0]
}

func isCriteriaError(err error) bool {
	return errors.Is(err, querybuilder.ErrInvalidCriterion)
}

// SaveQuerySSE stores the builder criteria as a saved query of the user.
func (h *Handlers) SaveQuerySSE(w http.ResponseWriter, r *http.Request) {
	userID := session.UserID(h.sessionStore, r)

	var signals builderSignals
	readErr := datastar.ReadSignals(r, &signals)
	sse := datastar.NewSSE(w, r)
	if readErr != nil {
		h.sseError(sse, readErr)
		return
	}

	ctx := r.Context()
	sq, err := h.service.SaveQuery(ctx, userID, signals.TemplateID, signals.list())
	switch {
	case errors.Is(err, explore.ErrAccessDenied):
		h.patchQueryError(sse, "You must be signed in to save queries.")
		return
	case errors.Is(err, querybuilder.ErrNoCriteria):
		h.patchQueryError(sse, "Add at least one criterion before saving the query.")
		return
	case err != nil:
		h.patchQueryError(sse, err.Error())
		return
	}

	h.logger.Info("saved query", slog.String("id", sq.ID), slog.String("template_id", sq.TemplateID))
	h.patchSavedQueries(r, sse, userID, signals.TemplateID)
	h.patchQueryError(sse, "")
}

// LoadSavedQuerySSE appends the criteria of a saved query to the builder.
func (h *Handlers) LoadSavedQuerySSE(w http.ResponseWriter, r *http.Request) {
	savedQueryID := chi.URLParam(r, "savedQueryID")
	userID := session.UserID(h.sessionStore, r)

	var signals builderSignals
	readErr := datastar.ReadSignals(r, &signals)
	sse := datastar.NewSSE(w, r)
	if readErr != nil {
		h.sseError(sse, readErr)
		return
	}

	ctx := r.Context()
	sq, err := h.service.SavedQuery(ctx, savedQueryID, userID)
	if err != nil {
		h.sseError(sse, err)
		return
	}
	loaded, err := querybuilder.DecodeCriteria(sq.Criteria)
	if err != nil {
		h.sseError(sse, err)
		return
	}
	fields, err := h.builderFields(r, signals.TemplateID)
	if err != nil {
		h.sseError(sse, err)
		return
	}

	criteria := signals.list()
	order := nextOrder(criteria)
	added := make(map[string]querybuilder.Criterion, len(loaded))
	for i, c := range loaded {
		c.ID = newCriterionID()
		c.Order = order + i
		if c.Conjunction == "" {
			c.Conjunction = querybuilder.And
		}
		added[c.ID] = c
		criteria = append(criteria, c)
	}

	if err := sse.MarshalAndPatchSignals(map[string]any{"criteria": added}); err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	h.patchCriteria(sse, criteria, withCriteriaFields(fields, loaded))
}

// DeleteSavedQuerySSE removes one saved query.
func (h *Handlers) DeleteSavedQuerySSE(w http.ResponseWriter, r *http.Request) {
	savedQueryID := chi.URLParam(r, "savedQueryID")
	userID := session.UserID(h.sessionStore, r)

	sq, err := h.service.DeleteSavedQuery(r.Context(), savedQueryID, userID)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.sseError(sse, err)
		return
	}
	h.patchSavedQueries(r, sse, userID, sq.TemplateID)
}

// DeleteSavedQueriesSSE removes every saved query of the user for a template.
func (h *Handlers) DeleteSavedQueriesSSE(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateID")
	userID := session.UserID(h.sessionStore, r)

	_, err := h.service.DeleteSavedQueries(r.Context(), userID, templateID)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.sseError(sse, err)
		return
	}
	h.patchSavedQueries(r, sse, userID, templateID)
}

// PersistentQuerySSE creates a shareable link to the current query.
func (h *Handlers) PersistentQuerySSE(w http.ResponseWriter, r *http.Request) {
	userID := session.UserID(h.sessionStore, r)

	var signals persistentQuerySignals
	readErr := datastar.ReadSignals(r, &signals)
	sse := datastar.NewSSE(w, r)
	if readErr != nil {
		h.sseError(sse, readErr)
		return
	}

	pq, err := h.service.CreatePersistentQuery(r.Context(), signals.QueryID, userID)
	if err != nil {
		h.sseErrorMessage(sse, err)
		return
	}

	link := absoluteURL(r, h.urls.ResultsRedirect(pq.ID))
	if err := sse.MarshalAndPatchSignals(map[string]any{"shareableLink": link}); err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	if err := sse.PatchElementTempl(h.pages.Fragment("shareable_link.html", link)); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// ResultsDataSSE patches one page of results.
func (h *Handlers) ResultsDataSSE(w http.ResponseWriter, r *http.Request) {
	queryID := chi.URLParam(r, "queryID")
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		page = 1
	}

	result, err := h.service.Results(r.Context(), queryID, page, h.config.ResultsPageSize)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.sseError(sse, err)
		return
	}

	if err := sse.PatchElementTempl(h.pages.Fragment("results_page.html", ResultsPage{Page: result})); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// Export downloads the documents matching a query.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	if !h.config.Exporters {
		http.NotFound(w, r)
		return
	}

	queryID := chi.URLParam(r, "queryID")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = explore.FormatXML
	}

	var buf bytes.Buffer
	n, err := h.service.Export(r.Context(), queryID, format, &buf)
	if err != nil {
		status := statusFor(err)
		if errors.Is(err, explore.ErrUnsupportedFormat) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	h.logger.Info("exported query results",
		slog.String("query_id", queryID),
		slog.String("format", format),
		slog.Int("documents", n),
	)

	w.Header().Set("Content-Type", explore.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="query-%s.%s"`, queryID, format))
	_, _ = buf.WriteTo(w)
}

// builderFields returns the fields the user selected for the template.
func (h *Handlers) builderFields(r *http.Request, templateID string) ([]explore.Field, error) {
	userID := session.UserID(h.sessionStore, r)
	_, ds, err := h.service.CustomForm(r.Context(), userID, templateID)
	if err != nil || ds == nil {
		return nil, err
	}
	return explore.SelectedFields(ds.Root), nil
}

// withCriteriaFields adds the fields of criteria missing from fields so a
// loaded query keeps its field options.
func withCriteriaFields(fields []explore.Field, criteria []querybuilder.Criterion) []explore.Field {
	known := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		known[f.Path] = struct{}{}
	}
	for _, c := range criteria {
		if _, ok := known[c.Field]; ok {
			continue
		}
		known[c.Field] = struct{}{}
		fields = append(fields, explore.Field{Path: c.Field})
	}
	return fields
}

func (h *Handlers) patchCriteria(sse *datastar.ServerSentEventGenerator, criteria []querybuilder.Criterion, fields []explore.Field) {
	rows := CriteriaRows{
		Criteria:  criteria,
		Fields:    withCriteriaFields(fields, criteria),
		Operators: querybuilder.Operators,
	}
	if err := sse.PatchElementTempl(h.pages.Fragment("criteria_rows.html", rows)); err != nil {
		_ = sse.ConsoleError(err)
	}
}

func (h *Handlers) patchSavedQueries(r *http.Request, sse *datastar.ServerSentEventGenerator, userID, templateID string) {
	saved, err := h.service.SavedQueries(r.Context(), userID, templateID)
	if err != nil {
		h.sseError(sse, err)
		return
	}
	list := SavedQueriesList{Queries: saved, TemplateID: templateID}
	if err := sse.PatchElementTempl(h.pages.Fragment("saved_queries.html", list)); err != nil {
		_ = sse.ConsoleError(err)
	}
}

func (h *Handlers) patchQueryError(sse *datastar.ServerSentEventGenerator, message string) {
	if err := sse.PatchElementTempl(h.pages.Fragment("query_errors.html", message)); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// sseError reports err in the page's error area and on the browser console.
func (h *Handlers) sseError(sse *datastar.ServerSentEventGenerator, err error) {
	if statusFor(err) == http.StatusInternalServerError {
		h.logger.Error("explore action failed", slog.String("error", err.Error()))
	}
	_ = sse.PatchElementTempl(h.pages.Fragment("error_fragment.html", err.Error()))
	_ = sse.ConsoleError(err)
}

// sseErrorMessage reports err through the error modal.
func (h *Handlers) sseErrorMessage(sse *datastar.ServerSentEventGenerator, err error) {
	if statusFor(err) == http.StatusInternalServerError {
		h.logger.Error("explore action failed", slog.String("error", err.Error()))
	}
	_ = sse.MarshalAndPatchSignals(map[string]any{"errorMessage": err.Error(), "showPersistentQuery": false})
	_ = sse.ConsoleError(err)
}

func newCriterionID() string {
	id := uuid.New()
	return "c" + hex.EncodeToString(id[:6])
}

func nextOrder(criteria []querybuilder.Criterion) int {
	next := 0
	for _, c := range criteria {
		next = max(next, c.Order+1)
	}
	return next
}

func absoluteURL(r *http.Request, path string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + path
}
