package explore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/microcosm-cc/bluemonday"

	"github.com/leapstack-labs/leapexplore/internal/xsd"
	"github.com/leapstack-labs/leapexplore/pkg/core"
)

// treePolicy keeps the markup of a selected fields tree and its data-* hooks.
var treePolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("ul", "li", "span")
	p.AllowAttrs("class").OnElements("ul", "li", "span")
	p.AllowDataAttributes()
	return p
}()

// Field is a selected, queryable element of a data structure.
type Field struct {
	Path         string
	Name         string
	Type         string
	Enumerations []string
}

// CreateAndGetExploreDataStructure returns the user's data structure for the
// template, building it from the template schema on first use.
func (s *Service) CreateAndGetExploreDataStructure(ctx context.Context, tmpl *core.Template, userID string) (*core.ExploreDataStructure, error) {
	ds, err := s.store.GetDataStructureByUserAndTemplate(ctx, userID, tmpl.ID)
	if err == nil {
		return ds, nil
	}
	if !core.IsNotFound(err) {
		return nil, err
	}

	root, err := xsd.ParseWithOptions(tmpl.Content, s.xsd)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", tmpl.ID, err)
	}

	ds, err = s.store.CreateDataStructure(ctx, &core.ExploreDataStructure{
		UserID:     userID,
		TemplateID: tmpl.ID,
		Root:       root,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("created data structure",
		slog.String("id", ds.ID),
		slog.String("template_id", tmpl.ID),
		slog.String("user_id", userID),
	)
	return ds, nil
}

// DataStructure returns a data structure owned by userID.
func (s *Service) DataStructure(ctx context.Context, id, userID string) (*core.ExploreDataStructure, error) {
	ds, err := s.store.GetDataStructure(ctx, id)
	if err != nil {
		return nil, err
	}
	if ds.UserID != userID {
		return nil, fmt.Errorf("data structure %s: %w", id, ErrAccessDenied)
	}
	return ds, nil
}

// SetElementSelected marks an element and its subtree as selected or not.
func (s *Service) SetElementSelected(ctx context.Context, dsID, userID, elementID string, selected bool) (*core.ExploreDataStructure, error) {
	ds, err := s.DataStructure(ctx, dsID, userID)
	if err != nil {
		return nil, err
	}

	el := ds.Root.Find(elementID)
	if el == nil {
		return nil, fmt.Errorf("element %s: %w", elementID, core.ErrNotFound)
	}
	setSelected(el, selected)

	if err := s.store.UpsertDataStructure(ctx, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func setSelected(el *core.DataStructureElement, selected bool) {
	el.Selected = selected
	if el.Tag == core.TagChoice {
		for i, c := range el.Children {
			if i == el.ChoiceIndex {
				setSelected(c, selected)
			} else {
				setSelected(c, false)
			}
		}
		return
	}
	for _, c := range el.Children {
		setSelected(c, selected)
	}
}

// SelectChoice activates one branch of a choice element. Selections in the
// other branches are cleared.
func (s *Service) SelectChoice(ctx context.Context, dsID, userID, elementID string, index int) (*core.ExploreDataStructure, error) {
	ds, err := s.DataStructure(ctx, dsID, userID)
	if err != nil {
		return nil, err
	}

	el := ds.Root.Find(elementID)
	if el == nil {
		return nil, fmt.Errorf("element %s: %w", elementID, core.ErrNotFound)
	}
	if el.Tag != core.TagChoice {
		return nil, fmt.Errorf("element %s is not a choice", elementID)
	}
	if index < 0 || index >= len(el.Children) {
		return nil, fmt.Errorf("choice %d out of range for element %s", index, elementID)
	}

	el.ChoiceIndex = index
	for i, c := range el.Children {
		if i != index {
			setSelected(c, false)
		}
	}

	if err := s.store.UpsertDataStructure(ctx, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// SelectedFields returns the queryable elements selected in the tree, in document order.
func SelectedFields(root *core.DataStructureElement) []Field {
	var fields []Field
	xsd.Walk(root, func(e *core.DataStructureElement) bool {
		if e.Tag == core.TagChoice {
			if e.ChoiceIndex < len(e.Children) {
				fields = append(fields, SelectedFields(e.Children[e.ChoiceIndex])...)
			}
			return false
		}
		if e.Selected && e.HasValue() {
			fields = append(fields, Field{Path: e.Path, Name: e.Name, Type: e.Type, Enumerations: e.Enumerations})
		}
		return true
	})
	return fields
}

// SaveSelectedFields renders the selected fields tree and stores it on the data structure.
func (s *Service) SaveSelectedFields(ctx context.Context, dsID, userID string) (*core.ExploreDataStructure, error) {
	ds, err := s.DataStructure(ctx, dsID, userID)
	if err != nil {
		return nil, err
	}

	if len(SelectedFields(ds.Root)) == 0 {
		ds.SelectedFieldsHTMLTree = ""
	} else {
		var buf bytes.Buffer
		if err := SelectedFieldsTree(ds.Root).Render(ctx, &buf); err != nil {
			return nil, fmt.Errorf("failed to render selected fields: %w", err)
		}
		ds.SelectedFieldsHTMLTree = treePolicy.Sanitize(buf.String())
	}

	if err := s.store.UpsertDataStructure(ctx, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// CustomForm returns the selected fields tree saved by userID for the template.
// It returns "" when the user has not saved any fields.
func (s *Service) CustomForm(ctx context.Context, userID, templateID string) (string, *core.ExploreDataStructure, error) {
	ds, err := s.store.GetDataStructureByUserAndTemplate(ctx, userID, templateID)
	if core.IsNotFound(err) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	return ds.SelectedFieldsHTMLTree, ds, nil
}
