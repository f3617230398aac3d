// Package filter models the query expressions accepted by the ticket listing,
// counting and bulk update endpoints: a where clause of field conditions combined
// with and/or groups, plus ordering, paging and field selection.
package filter

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	apperrors "ticketapi/internal/errors"
	"ticketapi/internal/models"
)

// Op is a comparison operator of a where condition.
type Op string

const (
	OpEq      Op = "eq"
	OpNeq     Op = "neq"
	OpGt      Op = "gt"
	OpGte     Op = "gte"
	OpLt      Op = "lt"
	OpLte     Op = "lte"
	OpInq     Op = "inq"
	OpNin     Op = "nin"
	OpBetween Op = "between"
	OpLike    Op = "like"
	OpNlike   Op = "nlike"
	OpExists  Op = "exists"
)

var operators = map[string]Op{
	"eq":      OpEq,
	"neq":     OpNeq,
	"gt":      OpGt,
	"gte":     OpGte,
	"lt":      OpLt,
	"lte":     OpLte,
	"inq":     OpInq,
	"nin":     OpNin,
	"between": OpBetween,
	"like":    OpLike,
	"nlike":   OpNlike,
	"exists":  OpExists,
}

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Condition compares one field against a value. Value is a []any for inq, nin and
// between, a string for like and nlike, and a bool for exists.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Where is the conjunction of its conditions, its And groups and, when present,
// at least one of its Or groups.
type Where struct {
	Conditions []Condition
	And        []Where
	Or         []Where

	raw map[string]any
}

// IsEmpty reports whether the clause matches everything.
func (w Where) IsEmpty() bool {
	return len(w.Conditions) == 0 && len(w.And) == 0 && len(w.Or) == 0
}

// Raw returns the expression the clause was parsed from.
func (w Where) Raw() map[string]any {
	return w.raw
}

// Order sorts by one field.
type Order struct {
	Field string
	Desc  bool
}

// Filter selects, orders, pages and projects tickets.
type Filter struct {
	Where  Where
	Fields map[string]bool
	Order  []Order
	Limit  int
	Skip   int
}

// ParseWhere builds a Where from a decoded JSON object.
func ParseWhere(m map[string]any) (Where, error) {
	w := Where{raw: m}
	for _, key := range sortedKeys(m) {
		val := m[key]
		switch key {
		case "and", "or":
			items, ok := val.([]any)
			if !ok {
				return Where{}, apperrors.InvalidFilter("%q must be an array of where clauses", key)
			}
			for _, item := range items {
				sub, ok := item.(map[string]any)
				if !ok {
					return Where{}, apperrors.InvalidFilter("%q must be an array of where clauses", key)
				}
				parsed, err := ParseWhere(sub)
				if err != nil {
					return Where{}, err
				}
				if key == "and" {
					w.And = append(w.And, parsed)
				} else {
					w.Or = append(w.Or, parsed)
				}
			}
		default:
			conds, err := parseField(key, val)
			if err != nil {
				return Where{}, err
			}
			w.Conditions = append(w.Conditions, conds...)
		}
	}
	return w, nil
}

func parseField(field string, val any) ([]Condition, error) {
	if !fieldName.MatchString(field) {
		return nil, apperrors.InvalidFilter("invalid field name %q", field)
	}

	ops, ok := val.(map[string]any)
	if !ok {
		return []Condition{{Field: field, Op: OpEq, Value: coerce(field, val)}}, nil
	}
	if len(ops) == 0 {
		return nil, apperrors.InvalidFilter("empty condition for %q", field)
	}

	conds := make([]Condition, 0, len(ops))
	for _, name := range sortedKeys(ops) {
		op, known := operators[name]
		if !known {
			return nil, apperrors.InvalidFilter("unknown operator %q on %q", name, field)
		}
		cond, err := buildCondition(field, op, ops[name])
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	return conds, nil
}

func buildCondition(field string, op Op, val any) (Condition, error) {
	c := Condition{Field: field, Op: op}
	switch op {
	case OpInq, OpNin, OpBetween:
		items, ok := val.([]any)
		if !ok {
			// A single bracket value arrives as a scalar
			items = []any{val}
		}
		if op == OpBetween && len(items) != 2 {
			return c, apperrors.InvalidFilter("between on %q needs exactly two values", field)
		}
		values := make([]any, len(items))
		for i, item := range items {
			values[i] = coerce(field, item)
		}
		c.Value = values
	case OpLike, OpNlike:
		pattern, ok := val.(string)
		if !ok {
			return c, apperrors.InvalidFilter("%s on %q needs a string pattern", op, field)
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return c, apperrors.InvalidFilter("invalid pattern for %q: %v", field, err)
		}
		c.Value = pattern
	case OpExists:
		switch v := val.(type) {
		case bool:
			c.Value = v
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return c, apperrors.InvalidFilter("exists on %q needs a boolean", field)
			}
			c.Value = b
		default:
			return c, apperrors.InvalidFilter("exists on %q needs a boolean", field)
		}
	case OpGt, OpGte, OpLt, OpLte:
		v := coerce(field, val)
		if _, isMap := v.(map[string]any); isMap {
			return c, apperrors.InvalidFilter("%s on %q needs a scalar value", op, field)
		}
		if _, isSlice := v.([]any); isSlice {
			return c, apperrors.InvalidFilter("%s on %q needs a scalar value", op, field)
		}
		c.Value = v
	default:
		c.Value = coerce(field, val)
	}
	return c, nil
}

// coerce converts query string values of numeric schema fields to numbers.
func coerce(field string, val any) any {
	s, ok := val.(string)
	if !ok || !models.NumericFields[field] {
		return val
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return val
}

// Parse builds a Filter from a decoded JSON object.
func Parse(m map[string]any) (*Filter, error) {
	f := &Filter{}
	for _, key := range sortedKeys(m) {
		val := m[key]
		var err error
		switch key {
		case "where":
			w, ok := val.(map[string]any)
			if !ok {
				return nil, apperrors.InvalidFilter("where must be an object")
			}
			f.Where, err = ParseWhere(w)
		case "fields":
			f.Fields, err = parseFields(val)
		case "order":
			f.Order, err = parseOrder(val)
		case "limit":
			f.Limit, err = parseCount(key, val)
		case "skip", "offset":
			f.Skip, err = parseCount(key, val)
		case "include":
			// Tickets have no relations
		default:
			err = apperrors.InvalidFilter("unknown filter key %q", key)
		}
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

func parseFields(val any) (map[string]bool, error) {
	fields := make(map[string]bool)
	switch v := val.(type) {
	case []any:
		for _, item := range v {
			name, ok := item.(string)
			if !ok || !fieldName.MatchString(name) {
				return nil, apperrors.InvalidFilter("invalid field in fields: %v", item)
			}
			fields[name] = true
		}
	case string:
		for _, name := range strings.Split(v, ",") {
			name = strings.TrimSpace(name)
			if !fieldName.MatchString(name) {
				return nil, apperrors.InvalidFilter("invalid field in fields: %q", name)
			}
			fields[name] = true
		}
	case map[string]any:
		for name, flag := range v {
			if !fieldName.MatchString(name) {
				return nil, apperrors.InvalidFilter("invalid field in fields: %q", name)
			}
			switch b := flag.(type) {
			case bool:
				fields[name] = b
			case string:
				parsed, err := strconv.ParseBool(b)
				if err != nil {
					return nil, apperrors.InvalidFilter("fields.%s must be a boolean", name)
				}
				fields[name] = parsed
			default:
				return nil, apperrors.InvalidFilter("fields.%s must be a boolean", name)
			}
		}
	default:
		return nil, apperrors.InvalidFilter("fields must be an array or an object")
	}
	return fields, nil
}

func parseOrder(val any) ([]Order, error) {
	var clauses []string
	switch v := val.(type) {
	case string:
		clauses = strings.Split(v, ",")
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, apperrors.InvalidFilter("order entries must be strings")
			}
			clauses = append(clauses, s)
		}
	default:
		return nil, apperrors.InvalidFilter("order must be a string or an array")
	}

	orders := make([]Order, 0, len(clauses))
	for _, clause := range clauses {
		parts := strings.Fields(clause)
		if len(parts) == 0 || len(parts) > 2 || !fieldName.MatchString(parts[0]) {
			return nil, apperrors.InvalidFilter("invalid order %q", clause)
		}
		o := Order{Field: parts[0]}
		if len(parts) == 2 {
			switch strings.ToUpper(parts[1]) {
			case "ASC":
			case "DESC":
				o.Desc = true
			default:
				return nil, apperrors.InvalidFilter("invalid order direction %q", parts[1])
			}
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func parseCount(key string, val any) (int, error) {
	var n float64
	switch v := val.(type) {
	case float64:
		n = v
	case string:
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, apperrors.InvalidFilter("%s must be a non-negative integer", key)
		}
		n = float64(parsed)
	default:
		if f, ok := models.ToFloat(val); ok {
			n = f
		} else {
			return 0, apperrors.InvalidFilter("%s must be a non-negative integer", key)
		}
	}
	if n < 0 || n != float64(int(n)) {
		return 0, apperrors.InvalidFilter("%s must be a non-negative integer", key)
	}
	return int(n), nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Value)
}
