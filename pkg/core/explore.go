package core

import "time"

// Template is one version of an XSD schema that queries target.
type Template struct {
	ID        string
	Filename  string
	Title     string
	Content   string
	Hash      string
	CreatedAt time.Time
}

// TemplateVersionManager groups the versions of one template.
// A manager with an empty UserID is global.
type TemplateVersionManager struct {
	ID               string
	Title            string
	UserID           string
	Versions         []string
	Current          string
	DisabledVersions []string
	IsDisabled       bool
}

// IsGlobal reports whether the manager is visible to every user.
func (vm *TemplateVersionManager) IsGlobal() bool {
	return vm.UserID == ""
}

// ActiveVersions returns the versions that are not disabled, in order.
func (vm *TemplateVersionManager) ActiveVersions() []string {
	disabled := make(map[string]struct{}, len(vm.DisabledVersions))
	for _, id := range vm.DisabledVersions {
		disabled[id] = struct{}{}
	}
	active := make([]string, 0, len(vm.Versions))
	for _, id := range vm.Versions {
		if _, ok := disabled[id]; !ok {
			active = append(active, id)
		}
	}
	return active
}

// DataSource names where a query's results come from.
type DataSource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// LocalDataSourceName is the name of the in-process data source.
const LocalDataSourceName = "Local"

// Query is a persisted search expression over one or more templates.
// Content holds the compiled JSON filter.
type Query struct {
	ID          string
	UserID      string
	Content     string
	Templates   []string
	DataSources []DataSource
	CreatedAt   time.Time
}

// SavedQuery is a user-named query kept for reuse in the query builder.
type SavedQuery struct {
	ID             string
	UserID         string
	TemplateID     string
	Query          string
	DisplayedQuery string
	Criteria       string
	CreatedAt      time.Time
}

// PersistentQuery is a durable, shareable handle on a query.
type PersistentQuery struct {
	ID          string
	UserID      string
	Name        string
	Content     string
	Templates   []string
	DataSources []DataSource
	CreatedAt   time.Time
}

// Element tags used in a data structure tree.
const (
	TagElement   = "element"
	TagAttribute = "attribute"
	TagSequence  = "sequence"
	TagChoice    = "choice"
	TagAll       = "all"
)

// DataStructureElement is a node of the field selection tree built from a template.
type DataStructureElement struct {
	ID           string                  `json:"id"`
	Tag          string                  `json:"tag"`
	Name         string                  `json:"name,omitempty"`
	Path         string                  `json:"path,omitempty"`
	Type         string                  `json:"type,omitempty"`
	Enumerations []string                `json:"enumerations,omitempty"`
	Selected     bool                    `json:"selected,omitempty"`
	ChoiceIndex  int                     `json:"choice_index,omitempty"`
	Children     []*DataStructureElement `json:"children,omitempty"`
}

// HasValue reports whether the element carries a simple value that can be queried.
func (e *DataStructureElement) HasValue() bool {
	if e.Tag != TagElement && e.Tag != TagAttribute {
		return false
	}
	return e.Type != ""
}

// IsGroup reports whether the element is a sequence, choice or all compositor.
func (e *DataStructureElement) IsGroup() bool {
	return e.Tag == TagSequence || e.Tag == TagChoice || e.Tag == TagAll
}

// Find returns the element with the given id in the subtree, or nil.
func (e *DataStructureElement) Find(id string) *DataStructureElement {
	if e == nil {
		return nil
	}
	if e.ID == id {
		return e
	}
	for _, child := range e.Children {
		if found := child.Find(id); found != nil {
			return found
		}
	}
	return nil
}

// ExploreDataStructure is a user's field selection state for one template.
type ExploreDataStructure struct {
	ID                     string
	UserID                 string
	TemplateID             string
	Root                   *DataStructureElement
	SelectedFieldsHTMLTree string
	UpdatedAt              time.Time
}

// Data is an XML document conforming to a template.
type Data struct {
	ID           string
	TemplateID   string
	UserID       string
	Title        string
	XMLContent   string
	LastModified time.Time
}
