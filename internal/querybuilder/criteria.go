// Package querybuilder compiles query builder criteria into the JSON filter
// stored on a query, renders them as text, and matches filters against
// XML documents.
package querybuilder

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Operators accepted in a criterion.
const (
	OpEqual        = "="
	OpNotEqual     = "!="
	OpLess         = "<"
	OpLessEqual    = "<="
	OpGreater      = ">"
	OpGreaterEqual = ">="
	OpLike         = "like"
)

// Conjunctions joining a criterion to the ones before it.
const (
	And = "and"
	Or  = "or"
)

// Operators lists the supported operators in display order.
var Operators = []string{OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual, OpLike}

var (
	// ErrNoCriteria is returned when a saved query would be empty.
	ErrNoCriteria = errors.New("query has no criteria")
	// ErrInvalidCriterion is wrapped by every criterion validation error.
	ErrInvalidCriterion = errors.New("invalid criterion")
)

// Criterion is one row of the query builder.
type Criterion struct {
	ID          string `json:"id"`
	Order       int    `json:"order"`
	Field       string `json:"field"`
	Operator    string `json:"operator"`
	Value       string `json:"value"`
	Negate      bool   `json:"negate"`
	Conjunction string `json:"conjunction"`
}

// Validate checks that the criterion can be compiled.
func (c Criterion) Validate() error {
	if strings.TrimSpace(c.Field) == "" {
		return fmt.Errorf("%w %s: field is required", ErrInvalidCriterion, c.ID)
	}
	if !validOperator(c.Operator) {
		return fmt.Errorf("%w %s: unknown operator %q", ErrInvalidCriterion, c.ID, c.Operator)
	}
	switch strings.ToLower(c.Conjunction) {
	case "", And, Or:
	default:
		return fmt.Errorf("%w %s: unknown conjunction %q", ErrInvalidCriterion, c.ID, c.Conjunction)
	}
	return nil
}

func validOperator(op string) bool {
	for _, known := range Operators {
		if op == known {
			return true
		}
	}
	return false
}

// Sort orders criteria by Order, then ID.
func Sort(criteria []Criterion) {
	sort.SliceStable(criteria, func(i, j int) bool {
		if criteria[i].Order != criteria[j].Order {
			return criteria[i].Order < criteria[j].Order
		}
		return criteria[i].ID < criteria[j].ID
	})
}

// EncodeCriteria serializes criteria for the session and saved queries.
func EncodeCriteria(criteria []Criterion) (string, error) {
	if criteria == nil {
		criteria = []Criterion{}
	}
	b, err := json.Marshal(criteria)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeCriteria parses criteria serialized by EncodeCriteria.
// An empty string decodes to no criteria.
func DecodeCriteria(raw string) ([]Criterion, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var criteria []Criterion
	if err := json.Unmarshal([]byte(raw), &criteria); err != nil {
		return nil, fmt.Errorf("invalid criteria: %w", err)
	}
	Sort(criteria)
	return criteria, nil
}

// Display renders criteria as human readable text,
// e.g. `book.title is Dune AND NOT(book.year > 1990)`.
func Display(criteria []Criterion) string {
	var b strings.Builder
	for i, c := range criteria {
		if i > 0 {
			if strings.EqualFold(c.Conjunction, Or) {
				b.WriteString(" OR ")
			} else {
				b.WriteString(" AND ")
			}
		}

		term := fmt.Sprintf("%s %s %s", c.Field, displayOperator(c.Operator), c.Value)
		if c.Negate {
			term = "NOT(" + term + ")"
		}
		b.WriteString(term)
	}
	return b.String()
}

func displayOperator(op string) string {
	switch op {
	case OpEqual:
		return "is"
	case OpNotEqual:
		return "is not"
	default:
		return op
	}
}
