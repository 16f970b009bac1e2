// Package statetest provides an in-memory store seeded with a small book
// catalogue for tests of packages built on top of the store.
package statetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapexplore/internal/state"
	"github.com/leapstack-labs/leapexplore/internal/testutil"
	"github.com/leapstack-labs/leapexplore/pkg/core"
)

// BookSchema is the XSD of the seeded book template.
const BookSchema = `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="book">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="title" type="xs:string"/>
        <xs:element name="year" type="xs:integer"/>
        <xs:element name="genre">
          <xs:simpleType>
            <xs:restriction base="xs:string">
              <xs:enumeration value="fiction"/>
              <xs:enumeration value="poetry"/>
            </xs:restriction>
          </xs:simpleType>
        </xs:element>
        <xs:element name="author">
          <xs:complexType>
            <xs:choice>
              <xs:element name="name" type="xs:string"/>
              <xs:element name="pseudonym" type="xs:string"/>
            </xs:choice>
          </xs:complexType>
        </xs:element>
      </xs:sequence>
      <xs:attribute name="isbn" type="xs:string"/>
    </xs:complexType>
  </xs:element>
</xs:schema>`

// Seeded identifiers.
const (
	BookTemplateV1   = "tpl-book-v1"
	BookTemplateV2   = "tpl-book-v2"
	BookManagerID    = "vm-book"
	UserTemplateID   = "tpl-notes"
	UserManagerID    = "vm-notes"
	Owner            = "alice"
	DisabledTemplate = "tpl-old"
)

// NewStore opens an empty, migrated in-memory store.
func NewStore(t testing.TB) *state.SQLStore {
	t.Helper()

	store := state.NewSQLStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(state.DriverSQLite, ":memory:"))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// NewSeededStore opens an in-memory store seeded with:
//   - a global "Book" manager with two versions and three documents,
//   - a "Notes" manager owned by Owner,
//   - a disabled global "Old" manager.
func NewSeededStore(t testing.TB) *state.SQLStore {
	t.Helper()

	store := NewStore(t)
	ctx := context.Background()

	for _, tpl := range []*core.Template{
		{ID: BookTemplateV1, Filename: "book.xsd", Title: "Book", Content: BookSchema},
		{ID: BookTemplateV2, Filename: "book.xsd", Title: "Book", Content: BookSchema},
		{ID: UserTemplateID, Filename: "notes.xsd", Title: "Notes", Content: BookSchema},
		{ID: DisabledTemplate, Filename: "old.xsd", Title: "Old", Content: BookSchema},
	} {
		require.NoError(t, store.UpsertTemplate(ctx, tpl))
	}

	for _, vm := range []*core.TemplateVersionManager{
		{ID: BookManagerID, Title: "Book", Versions: []string{BookTemplateV1, BookTemplateV2}, Current: BookTemplateV2},
		{ID: UserManagerID, Title: "Notes", UserID: Owner, Versions: []string{UserTemplateID}, Current: UserTemplateID},
		{ID: "vm-old", Title: "Old", Versions: []string{DisabledTemplate}, Current: DisabledTemplate, IsDisabled: true},
	} {
		require.NoError(t, store.UpsertVersionManager(ctx, vm))
	}

	for _, d := range []*core.Data{
		{ID: "doc-dune", TemplateID: BookTemplateV1, Title: "Dune",
			XMLContent: `<book isbn="1"><title>Dune</title><year>1965</year><genre>fiction</genre><author><name>Frank Herbert</name></author></book>`},
		{ID: "doc-leaves", TemplateID: BookTemplateV2, Title: "Leaves of Grass",
			XMLContent: `<book isbn="2"><title>Leaves of Grass</title><year>1855</year><genre>poetry</genre><author><name>Walt Whitman</name></author></book>`},
		{ID: "doc-solaris", TemplateID: BookTemplateV2, Title: "Solaris",
			XMLContent: `<book isbn="3"><title>Solaris</title><year>1961</year><genre>fiction</genre><author><name>Stanislaw Lem</name></author></book>`},
	} {
		require.NoError(t, store.UpsertData(ctx, d))
	}

	return store
}
