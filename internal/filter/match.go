package filter

import (
	"reflect"
	"regexp"
	"sort"

	"ticketapi/internal/models"
)

// Match evaluates the clause against a flat document.
func (w Where) Match(doc map[string]any) bool {
	for _, c := range w.Conditions {
		if !c.Match(doc) {
			return false
		}
	}
	for _, sub := range w.And {
		if !sub.Match(doc) {
			return false
		}
	}
	if len(w.Or) == 0 {
		return true
	}
	for _, sub := range w.Or {
		if sub.Match(doc) {
			return true
		}
	}
	return false
}

// Match evaluates one condition against a flat document.
func (c Condition) Match(doc map[string]any) bool {
	v, present := doc[c.Field]
	switch c.Op {
	case OpEq:
		return equal(v, c.Value)
	case OpNeq:
		return !equal(v, c.Value)
	case OpGt, OpGte, OpLt, OpLte:
		cmp, ok := compare(v, c.Value)
		if !ok {
			return false
		}
		switch c.Op {
		case OpGt:
			return cmp > 0
		case OpGte:
			return cmp >= 0
		case OpLt:
			return cmp < 0
		default:
			return cmp <= 0
		}
	case OpInq, OpNin:
		found := false
		for _, item := range c.Value.([]any) {
			if equal(v, item) {
				found = true
				break
			}
		}
		return found == (c.Op == OpInq)
	case OpBetween:
		bounds := c.Value.([]any)
		lo, okLo := compare(v, bounds[0])
		hi, okHi := compare(v, bounds[1])
		return okLo && okHi && lo >= 0 && hi <= 0
	case OpLike, OpNlike:
		s, isString := v.(string)
		matched := isString && regexp.MustCompile(c.Value.(string)).MatchString(s)
		return matched == (c.Op == OpLike)
	case OpExists:
		return (present && v != nil) == c.Value.(bool)
	}
	return false
}

func equal(a, b any) bool {
	if cmp, ok := compare(a, b); ok {
		return cmp == 0
	}
	return reflect.DeepEqual(a, b)
}

// compare orders two scalars of the same kind: numbers, strings or booleans.
func compare(a, b any) (int, bool) {
	if fa, ok := models.ToFloat(a); ok {
		fb, ok := models.ToFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

// Sort orders documents in place. Missing values sort first.
func (f *Filter) Sort(docs []map[string]any) {
	if f == nil || len(f.Order) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, o := range f.Order {
			a, b := docs[i][o.Field], docs[j][o.Field]
			var cmp int
			switch {
			case a == nil && b == nil:
				cmp = 0
			case a == nil:
				cmp = -1
			case b == nil:
				cmp = 1
			default:
				cmp, _ = compare(a, b)
			}
			if cmp == 0 {
				continue
			}
			if o.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// Page returns the [start, end) window selected by skip and limit over n items.
// A zero limit means no limit.
func (f *Filter) Page(n int) (int, int) {
	if f == nil {
		return 0, n
	}
	start := f.Skip
	if start > n {
		start = n
	}
	end := n
	if f.Limit > 0 && start+f.Limit < n {
		end = start + f.Limit
	}
	return start, end
}

// Project applies field selection to a document. With any field set to true only
// those fields are kept; otherwise fields set to false are removed.
func (f *Filter) Project(doc map[string]any) map[string]any {
	if f == nil || len(f.Fields) == 0 {
		return doc
	}
	include := false
	for _, keep := range f.Fields {
		if keep {
			include = true
			break
		}
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		keep, listed := f.Fields[k]
		if (include && listed && keep) || (!include && !listed) {
			out[k] = v
		}
	}
	return out
}

// HasProjection reports whether Project would change a document.
func (f *Filter) HasProjection() bool {
	return f != nil && len(f.Fields) > 0
}
