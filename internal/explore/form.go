package explore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/leapexplore/pkg/core"
)

// XSDFormID is the DOM id of the field selection form.
const XSDFormID = "xsd-form"

// XSDForm renders the field selection tree of a data structure. Each element
// posts to actionBase + "/generate-element/{id}", "/remove-element/{id}" or
// "/generate-choice/{id}".
func XSDForm(ds *core.ExploreDataStructure, actionBase string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		fw := &formWriter{w: w, base: actionBase}
		fw.printf(`<div id="%s" class="xsd-form" data-structure-id="%s">`, XSDFormID, templ.EscapeString(ds.ID))
		if ds.Root != nil {
			fw.printf(`<ul class="tree">`)
			fw.element(ds.Root)
			fw.printf(`</ul>`)
		}
		fw.printf(`</div>`)
		return fw.err
	})
}

type formWriter struct {
	w    io.Writer
	base string
	err  error
}

func (f *formWriter) printf(format string, args ...any) {
	if f.err != nil {
		return
	}
	_, f.err = fmt.Fprintf(f.w, format, args...)
}

func (f *formWriter) action(kind, id string) string {
	return templ.EscapeString(fmt.Sprintf("@post('%s/%s/%s')", f.base, kind, id))
}

func (f *formWriter) element(e *core.DataStructureElement) {
	switch e.Tag {
	case core.TagChoice:
		f.choice(e)
		return
	case core.TagSequence, core.TagAll:
		for _, c := range e.Children {
			f.element(c)
		}
		return
	}

	class := "element"
	if e.Tag == core.TagAttribute {
		class = "attribute"
	}
	if e.Selected {
		class += " selected"
	}

	f.printf(`<li class="%s" id="%s">`, class, templ.EscapeString(e.ID))
	f.printf(`<span class="name">%s</span>`, templ.EscapeString(e.Name))
	if e.Type != "" {
		f.printf(` <span class="type">%s</span>`, templ.EscapeString(e.Type))
	}
	if e.Selected {
		f.printf(` <button type="button" class="btn remove" data-on:click="%s">-</button>`, f.action("remove-element", e.ID))
	} else {
		f.printf(` <button type="button" class="btn add" data-on:click="%s">+</button>`, f.action("generate-element", e.ID))
	}
	if len(e.Children) > 0 {
		f.printf(`<ul>`)
		for _, c := range e.Children {
			f.element(c)
		}
		f.printf(`</ul>`)
	}
	f.printf(`</li>`)
}

func (f *formWriter) choice(e *core.DataStructureElement) {
	f.printf(`<li class="choice" id="%s">`, templ.EscapeString(e.ID))
	f.printf(`<select data-on:change="%s">`,
		templ.EscapeString("$choice = evt.target.selectedIndex; ")+f.action("generate-choice", e.ID))
	for i, c := range e.Children {
		selected := ""
		if i == e.ChoiceIndex {
			selected = " selected"
		}
		f.printf(`<option value="%d"%s>%s</option>`, i, selected, templ.EscapeString(branchLabel(c)))
	}
	f.printf(`</select>`)
	if e.ChoiceIndex < len(e.Children) {
		f.printf(`<ul>`)
		f.element(e.Children[e.ChoiceIndex])
		f.printf(`</ul>`)
	}
	f.printf(`</li>`)
}

func branchLabel(e *core.DataStructureElement) string {
	if e.Name != "" {
		return e.Name
	}
	names := make([]string, 0, len(e.Children))
	for _, c := range e.Children {
		names = append(names, branchLabel(c))
	}
	return e.Tag + "(" + strings.Join(names, ", ") + ")"
}

// SelectedFieldsTree renders the selected fields of a tree as nested lists.
// Queryable leaves carry their path and type as data attributes.
func SelectedFieldsTree(root *core.DataStructureElement) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		fw := &formWriter{w: w}
		fw.printf(`<ul class="custom-tree">`)
		fw.selected(root)
		fw.printf(`</ul>`)
		return fw.err
	})
}

// selected writes the subtree of e that contains selected fields.
func (f *formWriter) selected(e *core.DataStructureElement) {
	if !hasSelection(e) {
		return
	}
	if e.IsGroup() {
		for i, c := range e.Children {
			if e.Tag == core.TagChoice && i != e.ChoiceIndex {
				continue
			}
			f.selected(c)
		}
		return
	}

	f.printf(`<li class="%s">`, e.Tag)
	if e.Selected && e.HasValue() {
		f.printf(`<span class="field" data-path="%s" data-type="%s" data-enumerations="%s">%s</span>`,
			templ.EscapeString(e.Path),
			templ.EscapeString(e.Type),
			templ.EscapeString(strings.Join(e.Enumerations, "|")),
			templ.EscapeString(e.Name))
	} else {
		f.printf(`<span class="name">%s</span>`, templ.EscapeString(e.Name))
	}
	if len(e.Children) > 0 {
		f.printf(`<ul>`)
		for _, c := range e.Children {
			f.selected(c)
		}
		f.printf(`</ul>`)
	}
	f.printf(`</li>`)
}

func hasSelection(e *core.DataStructureElement) bool {
	if e.Selected && e.HasValue() {
		return true
	}
	for i, c := range e.Children {
		if e.Tag == core.TagChoice && i != e.ChoiceIndex {
			continue
		}
		if hasSelection(c) {
			return true
		}
	}
	return false
}
