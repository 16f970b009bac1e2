package querybuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCriteria(t *testing.T) {
	criteria, err := DecodeCriteria("")
	require.NoError(t, err)
	assert.Nil(t, criteria)

	criteria, err = DecodeCriteria(`[{"id":"b","order":2,"field":"x"},{"id":"a","order":1,"field":"y"}]`)
	require.NoError(t, err)
	require.Len(t, criteria, 2)
	assert.Equal(t, "a", criteria[0].ID, "criteria are sorted by order")

	_, err = DecodeCriteria("[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid criteria")
}

func TestEncodeCriteria(t *testing.T) {
	raw, err := EncodeCriteria(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)

	in := []Criterion{{ID: "1", Field: "book.title", Operator: OpEqual, Value: "Dune"}}
	raw, err = EncodeCriteria(in)
	require.NoError(t, err)

	out, err := DecodeCriteria(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDisplay(t *testing.T) {
	got := Display([]Criterion{
		{Field: "book.title", Operator: OpEqual, Value: "Dune"},
		{Field: "book.year", Operator: OpGreater, Value: "1990", Negate: true, Conjunction: And},
		{Field: "book.genre", Operator: OpNotEqual, Value: "poetry", Conjunction: Or},
	})
	assert.Equal(t, "book.title is Dune AND NOT(book.year > 1990) OR book.genre is not poetry", got)
	assert.Equal(t, "", Display(nil))
}
