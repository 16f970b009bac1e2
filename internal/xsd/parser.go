// Package xsd turns a template's XML schema into the field selection tree
// users pick query fields from.
package xsd

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapexplore/pkg/core"
)

// DefaultMaxDepth bounds expansion of recursive types.
const DefaultMaxDepth = 12

// Options controls tree construction.
type Options struct {
	// RootElement selects the global element to start from.
	// Empty means the first global element in document order.
	RootElement string
	MaxDepth    int
}

// node is a generic XML element.
type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []node     `xml:",any"`
}

func (n *node) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (n *node) children(local string) []*node {
	var out []*node
	for i := range n.Children {
		if n.Children[i].XMLName.Local == local {
			out = append(out, &n.Children[i])
		}
	}
	return out
}

func (n *node) child(local string) *node {
	for i := range n.Children {
		if n.Children[i].XMLName.Local == local {
			return &n.Children[i]
		}
	}
	return nil
}

// Parse builds a field selection tree from XSD content using default options.
func Parse(content string) (*core.DataStructureElement, error) {
	return ParseWithOptions(content, Options{})
}

// ParseWithOptions builds a field selection tree from XSD content.
func ParseWithOptions(content string, opts Options) (*core.DataStructureElement, error) {
	var schema node
	if err := xml.Unmarshal([]byte(content), &schema); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	if schema.XMLName.Local != "schema" {
		return nil, fmt.Errorf("invalid schema: root element is %q, expected \"schema\"", schema.XMLName.Local)
	}

	b := &builder{
		elements:     map[string]*node{},
		complexTypes: map[string]*node{},
		simpleTypes:  map[string]*node{},
		groups:       map[string]*node{},
		maxDepth:     opts.MaxDepth,
		active:       map[string]bool{},
	}
	if b.maxDepth <= 0 {
		b.maxDepth = DefaultMaxDepth
	}

	var roots []*node
	for i := range schema.Children {
		c := &schema.Children[i]
		name := c.attr("name")
		switch c.XMLName.Local {
		case "element":
			b.elements[name] = c
			roots = append(roots, c)
		case "complexType":
			b.complexTypes[name] = c
		case "simpleType":
			b.simpleTypes[name] = c
		case "group":
			b.groups[name] = c
		}
	}

	if len(roots) == 0 {
		return nil, fmt.Errorf("invalid schema: no global element")
	}

	root := roots[0]
	if opts.RootElement != "" {
		var ok bool
		if root, ok = b.elements[opts.RootElement]; !ok {
			return nil, fmt.Errorf("invalid schema: no global element named %q", opts.RootElement)
		}
	}

	tree := b.element(root, "", 0)
	if b.err != nil {
		return nil, b.err
	}
	return tree, nil
}

type builder struct {
	elements     map[string]*node
	complexTypes map[string]*node
	simpleTypes  map[string]*node
	groups       map[string]*node
	maxDepth     int
	nextID       int

	// active holds the named types and groups being expanded since the
	// enclosing element. Element nesting is bounded by maxDepth instead.
	active map[string]bool
	err    error
}

// enter marks a named type or group as being expanded. It records a circular
// reference error and returns false when the name is already active.
func (b *builder) enter(kind, name string) bool {
	key := kind + " " + name
	if b.active[key] {
		if b.err == nil {
			b.err = fmt.Errorf("invalid schema: circular %s reference %q", kind, name)
		}
		return false
	}
	b.active[key] = true
	return true
}

func (b *builder) leave(kind, name string) {
	delete(b.active, kind+" "+name)
}

func (b *builder) id() string {
	id := "e" + strconv.Itoa(b.nextID)
	b.nextID++
	return id
}

func localName(qname string) string {
	if i := strings.IndexByte(qname, ':'); i >= 0 {
		return qname[i+1:]
	}
	return qname
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func (b *builder) element(n *node, parentPath string, depth int) *core.DataStructureElement {
	if ref := n.attr("ref"); ref != "" {
		// Global elements cannot themselves be refs.
		if target, ok := b.elements[localName(ref)]; ok && target.attr("ref") == "" {
			return b.element(target, parentPath, depth)
		}
		return &core.DataStructureElement{
			ID: b.id(), Tag: core.TagElement, Name: localName(ref),
			Path: joinPath(parentPath, localName(ref)), Type: "xs:anyType",
		}
	}

	name := n.attr("name")
	el := &core.DataStructureElement{
		ID:   b.id(),
		Tag:  core.TagElement,
		Name: name,
		Path: joinPath(parentPath, name),
	}

	if depth >= b.maxDepth || b.err != nil {
		return el
	}

	outer := b.active
	b.active = map[string]bool{}
	defer func() { b.active = outer }()

	if typeName := n.attr("type"); typeName != "" {
		local := localName(typeName)
		if ct, ok := b.complexTypes[local]; ok {
			if b.enter("type", local) {
				b.complexContent(el, ct, depth)
				b.leave("type", local)
			}
			return el
		}
		if st, ok := b.simpleTypes[local]; ok {
			el.Type, el.Enumerations = b.namedSimpleType(local, st)
			return el
		}
		el.Type = typeName
		return el
	}

	if ct := n.child("complexType"); ct != nil {
		b.complexContent(el, ct, depth)
		return el
	}
	if st := n.child("simpleType"); st != nil {
		el.Type, el.Enumerations = b.simpleType(st)
		return el
	}

	el.Type = "xs:anyType"
	return el
}

// complexContent fills el with the particles and attributes of a complex type.
func (b *builder) complexContent(el *core.DataStructureElement, ct *node, depth int) {
	if sc := ct.child("simpleContent"); sc != nil {
		ext := sc.child("extension")
		if ext == nil {
			ext = sc.child("restriction")
		}
		if ext != nil {
			el.Type = ext.attr("base")
			if st, ok := b.simpleTypes[localName(el.Type)]; ok {
				el.Type, el.Enumerations = b.namedSimpleType(localName(el.Type), st)
			}
			b.attributes(el, ext)
		}
		return
	}

	if cc := ct.child("complexContent"); cc != nil {
		if ext := cc.child("extension"); ext != nil {
			baseName := localName(ext.attr("base"))
			if base, ok := b.complexTypes[baseName]; ok {
				if !b.enter("type", baseName) {
					return
				}
				b.complexContent(el, base, depth)
				b.leave("type", baseName)
			}
			b.particles(el, ext, depth)
			b.attributes(el, ext)
			return
		}
		if res := cc.child("restriction"); res != nil {
			b.particles(el, res, depth)
			b.attributes(el, res)
		}
		return
	}

	if ct.attr("mixed") == "true" {
		el.Type = "xs:string"
	}
	b.particles(el, ct, depth)
	b.attributes(el, ct)
}

func (b *builder) particles(parent *core.DataStructureElement, n *node, depth int) {
	for i := range n.Children {
		c := &n.Children[i]
		switch c.XMLName.Local {
		case core.TagSequence, core.TagChoice, core.TagAll:
			parent.Children = append(parent.Children, b.group(c, parent.Path, depth))
		case "group":
			b.groupRef(parent, c, depth)
		}
	}
}

func (b *builder) group(n *node, parentPath string, depth int) *core.DataStructureElement {
	g := &core.DataStructureElement{
		ID:   b.id(),
		Tag:  n.XMLName.Local,
		Path: parentPath,
	}
	for i := range n.Children {
		c := &n.Children[i]
		switch c.XMLName.Local {
		case "element":
			g.Children = append(g.Children, b.element(c, parentPath, depth+1))
		case core.TagSequence, core.TagChoice, core.TagAll:
			g.Children = append(g.Children, b.group(c, parentPath, depth))
		case "group":
			inner := &core.DataStructureElement{Path: parentPath}
			b.groupRef(inner, c, depth)
			g.Children = append(g.Children, inner.Children...)
		}
	}
	return g
}

// groupRef expands the particles of a referenced named group into parent.
func (b *builder) groupRef(parent *core.DataStructureElement, ref *node, depth int) {
	name := localName(ref.attr("ref"))
	g, ok := b.groups[name]
	if !ok || !b.enter("group", name) {
		return
	}
	b.particles(parent, g, depth)
	b.leave("group", name)
}

func (b *builder) attributes(el *core.DataStructureElement, n *node) {
	for _, a := range n.children("attribute") {
		name := a.attr("name")
		if name == "" {
			name = localName(a.attr("ref"))
		}
		if name == "" || a.attr("use") == "prohibited" {
			continue
		}
		attr := &core.DataStructureElement{
			ID:   b.id(),
			Tag:  core.TagAttribute,
			Name: name,
			Path: joinPath(el.Path, "@"+name),
			Type: "xs:string",
		}
		if t := a.attr("type"); t != "" {
			attr.Type = t
			if st, ok := b.simpleTypes[localName(t)]; ok {
				attr.Type, attr.Enumerations = b.namedSimpleType(localName(t), st)
			}
		} else if st := a.child("simpleType"); st != nil {
			attr.Type, attr.Enumerations = b.simpleType(st)
		}
		el.Children = append(el.Children, attr)
	}
}

// namedSimpleType resolves a global simple type, guarding restriction cycles.
func (b *builder) namedSimpleType(name string, st *node) (string, []string) {
	if !b.enter("type", name) {
		return "xs:string", nil
	}
	defer b.leave("type", name)
	return b.simpleType(st)
}

// simpleType returns the base type and enumeration values of a simple type.
func (b *builder) simpleType(st *node) (string, []string) {
	res := st.child("restriction")
	if res == nil {
		return "xs:string", nil
	}

	base := res.attr("base")
	if base == "" {
		base = "xs:string"
	}
	if named, ok := b.simpleTypes[localName(base)]; ok {
		base, _ = b.namedSimpleType(localName(base), named)
	}

	var enums []string
	for _, e := range res.children("enumeration") {
		enums = append(enums, e.attr("value"))
	}
	return base, enums
}

// Walk calls fn for every element of the tree in depth-first order.
// Returning false from fn skips the element's children.
func Walk(root *core.DataStructureElement, fn func(*core.DataStructureElement) bool) {
	if root == nil {
		return
	}
	if !fn(root) {
		return
	}
	for _, c := range root.Children {
		Walk(c, fn)
	}
}
