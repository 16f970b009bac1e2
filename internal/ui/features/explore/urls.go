package explore

import (
	"net/url"
	"strconv"
)

// BasePath is where the explore feature is mounted.
const BasePath = "/explore/example"

// URLs builds the paths of the explore feature. Its methods are also called
// from templates.
type URLs struct{}

// Index is the template selection page.
func (URLs) Index() string { return BasePath + "/" }

// Updates is the SSE stream of the index page.
func (URLs) Updates() string { return BasePath + "/updates" }

// SelectFieldsPrefix is the select fields page without the template id.
func (URLs) SelectFieldsPrefix() string { return BasePath + "/select-fields/" }

// SelectFields is the field selection page of a template.
func (u URLs) SelectFields(templateID string) string {
	return u.SelectFieldsPrefix() + url.PathEscape(templateID)
}

// BuildQueryPrefix is the query builder page without the template id.
func (URLs) BuildQueryPrefix() string { return BasePath + "/build-query/" }

// BuildQuery is the query builder of a template, optionally for an existing query.
func (u URLs) BuildQuery(templateID, queryID string) string {
	p := u.BuildQueryPrefix() + url.PathEscape(templateID)
	if queryID != "" {
		p += "/" + url.PathEscape(queryID)
	}
	return p
}

// DataStructure is the action base of a data structure form.
func (URLs) DataStructure(id string) string {
	return BasePath + "/data-structure/" + url.PathEscape(id)
}

// LoadForm re-renders a data structure form.
func (u URLs) LoadForm(dsID string) string { return u.DataStructure(dsID) + "/load-form" }

// GenerateElement is the prefix of the select element action.
func (u URLs) GenerateElement(dsID string) string { return u.DataStructure(dsID) + "/generate-element/" }

// RemoveElement is the prefix of the unselect element action.
func (u URLs) RemoveElement(dsID string) string { return u.DataStructure(dsID) + "/remove-element/" }

// GenerateChoice is the prefix of the choice action.
func (u URLs) GenerateChoice(dsID string) string { return u.DataStructure(dsID) + "/generate-choice/" }

// SaveFields stores the selected fields of a data structure.
func (u URLs) SaveFields(dsID string) string { return u.DataStructure(dsID) + "/save" }

// AddCriteria appends a criterion to the builder.
func (URLs) AddCriteria() string { return BasePath + "/add-criteria" }

// RemoveCriteria removes a criterion from the builder.
func (URLs) RemoveCriteria(criterionID string) string {
	return BasePath + "/remove-criteria/" + url.PathEscape(criterionID)
}

// GetQuery compiles the builder criteria and opens the results.
func (URLs) GetQuery() string { return BasePath + "/get-query" }

// SaveQuery stores the builder criteria as a saved query.
func (URLs) SaveQuery() string { return BasePath + "/save-query" }

// SavedQueryPrefix is the saved query resource without its id.
func (URLs) SavedQueryPrefix() string { return BasePath + "/saved-queries/" }

// LoadSavedQuery puts a saved query back into the builder.
func (u URLs) LoadSavedQuery(id string) string {
	return u.SavedQueryPrefix() + url.PathEscape(id) + "/load"
}

// DeleteSavedQueries removes every saved query of a template.
func (u URLs) DeleteSavedQueries(templateID string) string {
	return u.SavedQueryPrefix() + "template/" + url.PathEscape(templateID)
}

// Results is the results page of a query.
func (URLs) Results(templateID, queryID string) string {
	return BasePath + "/results/" + url.PathEscape(templateID) + "/" + url.PathEscape(queryID)
}

// ResultsData is one page of results.
func (URLs) ResultsData(queryID string, page int) string {
	return BasePath + "/results-data/" + url.PathEscape(queryID) + "?page=" + strconv.Itoa(page)
}

// PersistentQuery creates a shareable link.
func (URLs) PersistentQuery() string { return BasePath + "/persistent-query-url" }

// ResultsRedirect resolves a shareable link.
func (URLs) ResultsRedirect(persistentQueryID string) string {
	return BasePath + "/results-redirect/" + url.PathEscape(persistentQueryID)
}

// Export downloads the documents of a query.
func (URLs) Export(queryID, format string) string {
	return BasePath + "/export/" + url.PathEscape(queryID) + "?format=" + url.QueryEscape(format)
}
