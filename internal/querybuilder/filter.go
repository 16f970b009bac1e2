package querybuilder

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FieldPrefix is prepended to document paths in compiled filters.
const FieldPrefix = "dict_content."

var filterOperators = map[string]string{
	OpEqual:        "$eq",
	OpNotEqual:     "$ne",
	OpLess:         "$lt",
	OpLessEqual:    "$lte",
	OpGreater:      "$gt",
	OpGreaterEqual: "$gte",
	OpLike:         "$regex",
}

// Filter is a compiled query. The zero Filter matches every document.
type Filter struct {
	expr expr
}

type expr interface {
	match(doc Document) bool
	encode() map[string]any
}

type andExpr []expr

func (e andExpr) match(doc Document) bool {
	for _, sub := range e {
		if !sub.match(doc) {
			return false
		}
	}
	return true
}

func (e andExpr) encode() map[string]any {
	return map[string]any{"$and": encodeAll(e)}
}

type orExpr []expr

func (e orExpr) match(doc Document) bool {
	for _, sub := range e {
		if sub.match(doc) {
			return true
		}
	}
	return false
}

func (e orExpr) encode() map[string]any {
	return map[string]any{"$or": encodeAll(e)}
}

type notExpr struct{ inner expr }

func (e notExpr) match(doc Document) bool { return !e.inner.match(doc) }

func (e notExpr) encode() map[string]any {
	return map[string]any{"$not": e.inner.encode()}
}

type fieldExpr struct {
	path  string
	op    string
	value string
	re    *regexp.Regexp
}

func (e fieldExpr) encode() map[string]any {
	return map[string]any{FieldPrefix + e.path: map[string]any{e.op: e.value}}
}

func (e fieldExpr) match(doc Document) bool {
	values := doc[e.path]
	if e.op == "$ne" {
		// Absent fields are not equal to anything.
		for _, v := range values {
			if compare(v, e.value) == 0 {
				return false
			}
		}
		return true
	}

	for _, v := range values {
		switch e.op {
		case "$eq":
			if compare(v, e.value) == 0 {
				return true
			}
		case "$lt":
			if compare(v, e.value) < 0 {
				return true
			}
		case "$lte":
			if compare(v, e.value) <= 0 {
				return true
			}
		case "$gt":
			if compare(v, e.value) > 0 {
				return true
			}
		case "$gte":
			if compare(v, e.value) >= 0 {
				return true
			}
		case "$regex":
			if e.re != nil && e.re.MatchString(v) {
				return true
			}
		}
	}
	return false
}

// compare compares numerically when both sides are numbers, lexically otherwise.
func compare(a, b string) int {
	fa, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	fb, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

func encodeAll(exprs []expr) []any {
	out := make([]any, len(exprs))
	for i, e := range exprs {
		out[i] = e.encode()
	}
	return out
}

// likePattern turns a like value into a case-insensitive regular expression.
// `*` matches any run of characters; without wildcards the value matches as a substring.
func likePattern(value string) string {
	parts := strings.Split(value, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	pattern := strings.Join(parts, ".*")
	if strings.Contains(value, "*") {
		pattern = "^" + pattern + "$"
	}
	return "(?i)" + pattern
}

// Compile turns builder criteria into a filter. Criteria are combined left to
// right, each joined to the expression before it by its conjunction.
func Compile(criteria []Criterion) (Filter, error) {
	var current expr
	for i, c := range criteria {
		if err := c.Validate(); err != nil {
			return Filter{}, err
		}

		term, err := newFieldExpr(strings.TrimSpace(c.Field), filterOperators[c.Operator], c.Value)
		if err != nil {
			return Filter{}, fmt.Errorf("criterion %s: %w", c.ID, err)
		}
		if c.Negate {
			term = notExpr{inner: term}
		}

		if i == 0 {
			current = term
			continue
		}
		if strings.EqualFold(c.Conjunction, Or) {
			current = orExpr{current, term}
		} else {
			current = andExpr{current, term}
		}
	}
	return Filter{expr: current}, nil
}

func newFieldExpr(path, op, value string) (expr, error) {
	e := fieldExpr{path: path, op: op, value: value}
	if op == "$regex" {
		if !strings.HasPrefix(value, "(?i)") {
			e.value = likePattern(value)
		}
		re, err := regexp.Compile(e.value)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		e.re = re
	}
	return e, nil
}

// IsEmpty reports whether the filter matches everything.
func (f Filter) IsEmpty() bool {
	return f.expr == nil
}

// Match reports whether the document satisfies the filter.
func (f Filter) Match(doc Document) bool {
	if f.expr == nil {
		return true
	}
	return f.expr.match(doc)
}

// String returns the JSON form stored in Query.Content.
func (f Filter) String() string {
	if f.expr == nil {
		return "{}"
	}
	b, err := json.Marshal(f.expr.encode())
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ParseFilter parses the JSON form produced by Filter.String.
// Empty content parses to the match-all filter.
func ParseFilter(content string) (Filter, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Filter{}, nil
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return Filter{}, fmt.Errorf("invalid query content: %w", err)
	}
	if len(raw) == 0 {
		return Filter{}, nil
	}

	e, err := decodeExpr(raw)
	if err != nil {
		return Filter{}, fmt.Errorf("invalid query content: %w", err)
	}
	return Filter{expr: e}, nil
}

func decodeExpr(raw map[string]any) (expr, error) {
	if len(raw) != 1 {
		return nil, fmt.Errorf("expected exactly one key, got %d", len(raw))
	}

	for key, val := range raw {
		switch key {
		case "$and", "$or":
			list, ok := val.([]any)
			if !ok {
				return nil, fmt.Errorf("%s expects a list", key)
			}
			subs := make([]expr, 0, len(list))
			for _, item := range list {
				m, ok := item.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("%s items must be objects", key)
				}
				sub, err := decodeExpr(m)
				if err != nil {
					return nil, err
				}
				subs = append(subs, sub)
			}
			if key == "$and" {
				return andExpr(subs), nil
			}
			return orExpr(subs), nil

		case "$not":
			m, ok := val.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("$not expects an object")
			}
			inner, err := decodeExpr(m)
			if err != nil {
				return nil, err
			}
			return notExpr{inner: inner}, nil

		default:
			if !strings.HasPrefix(key, FieldPrefix) {
				return nil, fmt.Errorf("unknown field %q", key)
			}
			cond, ok := val.(map[string]any)
			if !ok || len(cond) != 1 {
				return nil, fmt.Errorf("field %q expects a single operator", key)
			}
			for op, v := range cond {
				s, ok := v.(string)
				if !ok {
					return nil, fmt.Errorf("field %q: value must be a string", key)
				}
				if !knownFilterOperator(op) {
					return nil, fmt.Errorf("field %q: unknown operator %q", key, op)
				}
				return newFieldExpr(strings.TrimPrefix(key, FieldPrefix), op, s)
			}
		}
	}
	return nil, fmt.Errorf("empty expression")
}

func knownFilterOperator(op string) bool {
	for _, known := range filterOperators {
		if op == known {
			return true
		}
	}
	return false
}
