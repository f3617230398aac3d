package filter

import (
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"

	apperrors "ticketapi/internal/errors"
)

// DecodeQuery extracts the object named param from a query string. The object may be
// sent as JSON (filter={"where":{"silla":14}}) or in bracket form
// (filter[where][silla]=14). It returns nil when the parameter is absent.
func DecodeQuery(values url.Values, param string) (map[string]any, error) {
	if raw := values.Get(param); raw != "" {
		var m map[string]any
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, apperrors.InvalidFilter("%s is not a valid JSON object: %v", param, err)
		}
		return m, nil
	}

	prefix := param + "["
	keys := make([]string, 0)
	for key := range values {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sort.Strings(keys)

	root := make(map[string]any)
	for _, key := range keys {
		path, err := splitBrackets(key[len(param):])
		if err != nil {
			return nil, err
		}
		vals := values[key]
		var leaf any = vals[0]
		if len(vals) > 1 || strings.HasSuffix(key, "[]") {
			items := make([]any, len(vals))
			for i, v := range vals {
				items[i] = v
			}
			leaf = items
		}
		if err := setPath(root, path, leaf); err != nil {
			return nil, err
		}
	}
	for k, child := range root {
		root[k] = indexMapsToSlices(child)
	}
	return root, nil
}

// splitBrackets turns "[where][precio][gt]" into its segments. A trailing "[]"
// marks a repeated value and produces no segment.
func splitBrackets(s string) ([]string, error) {
	var path []string
	for len(s) > 0 {
		if s[0] != '[' {
			return nil, apperrors.InvalidFilter("malformed query key near %q", s)
		}
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return nil, apperrors.InvalidFilter("unterminated bracket in %q", s)
		}
		if seg := s[1:end]; seg != "" {
			path = append(path, seg)
		}
		s = s[end+1:]
	}
	if len(path) == 0 {
		return nil, apperrors.InvalidFilter("empty query key")
	}
	return path, nil
}

func setPath(root map[string]any, path []string, leaf any) error {
	node := root
	for i, seg := range path {
		if i == len(path)-1 {
			node[seg] = leaf
			return nil
		}
		next, ok := node[seg].(map[string]any)
		if !ok {
			if _, exists := node[seg]; exists {
				return apperrors.InvalidFilter("conflicting query keys at %q", seg)
			}
			next = make(map[string]any)
			node[seg] = next
		}
		node = next
	}
	return nil
}

// indexMapsToSlices converts objects keyed by indices into arrays, so that
// filter[where][or][0][silla]=1 becomes an or list. Gaps are compacted in index
// order, as in filter[where][or][1][silla]=1 with no [0] key.
func indexMapsToSlices(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for k, child := range m {
		m[k] = indexMapsToSlices(child)
	}
	if len(m) == 0 {
		return m
	}
	indices := make([]int, 0, len(m))
	byIndex := make(map[int]any, len(m))
	for k, child := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 {
			return m
		}
		indices = append(indices, i)
		byIndex[i] = child
	}
	if len(byIndex) != len(m) {
		// "1" and "01" name the same slot
		return m
	}
	sort.Ints(indices)
	items := make([]any, len(indices))
	for n, i := range indices {
		items[n] = byIndex[i]
	}
	return items
}

// FromQuery reads the filter parameter of a listing request.
func FromQuery(values url.Values) (*Filter, error) {
	m, err := DecodeQuery(values, "filter")
	if err != nil {
		return nil, err
	}
	if m == nil {
		return &Filter{}, nil
	}
	return Parse(m)
}

// WhereFromQuery reads the where parameter of count and bulk update requests.
func WhereFromQuery(values url.Values) (Where, error) {
	m, err := DecodeQuery(values, "where")
	if err != nil {
		return Where{}, err
	}
	if m == nil {
		return Where{}, nil
	}
	return ParseWhere(m)
}
