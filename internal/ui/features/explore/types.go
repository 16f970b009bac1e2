package explore

import (
	"html/template"

	"github.com/leapstack-labs/leapexplore/internal/explore"
	"github.com/leapstack-labs/leapexplore/internal/querybuilder"
	"github.com/leapstack-labs/leapexplore/pkg/core"
)

// Config controls the optional parts of the feature.
type Config struct {
	// AllowAnonymous lets signed out users explore.
	AllowAnonymous bool
	// Exporters enables result downloads.
	Exporters bool
	// ResultsPageSize is the number of documents per results page.
	ResultsPageSize int
}

// ObjectName is what the index page lists.
const ObjectName = "template"

// IndexContext is the context of the template selection page.
type IndexContext struct {
	GlobalObjects        []*core.TemplateVersionManager
	UserObjects          []*core.TemplateVersionManager
	ObjectName           string
	SelectObjectRedirect string
	BuildQueryRedirect   string
	UpdatesURL           string
}

// SelectFieldsContext is the context of the field selection page.
type SelectFieldsContext struct {
	TemplateID         string
	TemplateTitle      string
	BuildQueryURL      string
	LoadFormURL        string
	GenerateElementURL string
	RemoveElementURL   string
	GenerateChoiceURL  string
	SaveURL            string
	DataStructureID    string
	XSDForm            template.HTML
}

// BuildQueryContext is the context of the query builder page.
type BuildQueryContext struct {
	Queries     []*core.SavedQuery
	TemplateID  string
	Description string
	Title       string

	CustomForm template.HTML
	QueryForm  string
	QueryID    string

	BuildQueryURL       string
	ResultsURL          string
	GetQueryURL         string
	SaveQueryURL        string
	SelectFieldsURL     string
	AddCriteriaURL      string
	DeleteQueryURL      string
	DeleteAllQueriesURL string

	DataSourcesSelectorTemplate string
	QueryBuilderInterface       string

	Signals      string
	Builder      CriteriaRows
	SavedQueries SavedQueriesList
}

// ResultsContext is the context of the results page.
type ResultsContext struct {
	TemplateID          string
	QueryID             string
	ExporterApp         bool
	TemplatesList       string
	BackToQueryRedirect string
	GetShareableLinkURL string
	DataURL             string
	Exporters           []Exporter
}

// Exporter is a download offered on the results page.
type Exporter struct {
	Name string
	URL  string
}

// ErrorContext is the context of the error page.
type ErrorContext struct {
	Errors string
}

// CriteriaRows is the data of the criteria rows fragment.
type CriteriaRows struct {
	Criteria  []querybuilder.Criterion
	Fields    []explore.Field
	Operators []string
	URLs      URLs
}

// SavedQueriesList is the data of the saved queries fragment.
type SavedQueriesList struct {
	Queries    []*core.SavedQuery
	TemplateID string
	URLs       URLs
}

// ResultsPage is the data of the results fragment.
type ResultsPage struct {
	Page *explore.ResultPage
	URLs URLs
}

// builderSignals are the query builder signals. Criteria are keyed by id.
type builderSignals struct {
	QueryID      string                            `json:"queryId"`
	TemplateID   string                            `json:"templateId"`
	Criteria     map[string]querybuilder.Criterion `json:"criteria"`
	ErrorMessage string                            `json:"errorMessage"`

	DeleteQueryID        string `json:"deleteQueryId"`
	ShowCustomTree       bool   `json:"showCustomTree"`
	ShowSubElements      bool   `json:"showSubElements"`
	ShowDeleteQuery      bool   `json:"showDeleteQuery"`
	ShowDeleteAllQueries bool   `json:"showDeleteAllQueries"`
}

// list returns the criteria in builder order.
func (s builderSignals) list() []querybuilder.Criterion {
	out := make([]querybuilder.Criterion, 0, len(s.Criteria))
	for id, c := range s.Criteria {
		c.ID = id
		out = append(out, c)
	}
	querybuilder.Sort(out)
	return out
}

func criteriaMap(criteria []querybuilder.Criterion) map[string]querybuilder.Criterion {
	m := make(map[string]querybuilder.Criterion, len(criteria))
	for _, c := range criteria {
		m[c.ID] = c
	}
	return m
}

// choiceSignals carry the branch picked in a choice select.
type choiceSignals struct {
	Choice int `json:"choice"`
}

// persistentQuerySignals identify the query to share.
type persistentQuerySignals struct {
	QueryID string `json:"queryId"`
}
