package functions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robinvdvleuten/ledgerscript/dates"
	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/value"
)

func arrayFuncs() []*interp.Function {
	return []*interp.Function{
		def("lookup", "Return value_array[i] where match_array[i] equals target_value; dates match in any format. A list target returns a list of lookups.",
			ps("value_array", "match_array", "target_value"), func(c *call) (any, error) {
				return lookup(c.arg(0), c.arg(1), c.arg(2))
			}),
		def("normalize_arraydate", "Normalize every date in an array to YYYY-MM-DD.", ps("array"), func(c *call) (any, error) {
			return normalizeDates(c.arg(0))
		}),
		variadic("zip_arrays", "Combine arrays into rows for parallel iteration.", "arrays", nil, func(c *call) (any, error) {
			return zipArrays(c.rest()), nil
		}),
		def("array_length", "Length of an array.", ps("array"), func(c *call) (any, error) {
			return c.done(float64(len(c.list(0))))
		}),
		def("array_get", "Element at index, or default when out of bounds.", ps("array", "index", opt("default", nil)), func(c *call) (any, error) {
			items, i := c.list(0), c.count(1)
			if c.err != nil {
				return nil, c.err
			}
			if i < 0 || i >= len(items) {
				return c.arg(2), nil
			}
			return items[i], nil
		}),
		def("array_first", "First element, or default.", ps("array", opt("default", nil)), func(c *call) (any, error) {
			items := c.list(0)
			if len(items) == 0 {
				return c.done(c.arg(1))
			}
			return c.done(items[0])
		}),
		def("array_last", "Last element, or default.", ps("array", opt("default", nil)), func(c *call) (any, error) {
			items := c.list(0)
			if len(items) == 0 {
				return c.done(c.arg(1))
			}
			return c.done(items[len(items)-1])
		}),
		def("array_slice", "Elements from start up to end; negative indexes count from the end.",
			ps("array", "start", opt("end", nil)), func(c *call) (any, error) {
				items, start := c.list(0), c.count(1)
				end := len(items)
				if c.arg(2) != nil {
					end = c.count(2)
				}
				return c.done(slice(items, start, end))
			}),
		def("array_reverse", "Reverse an array.", ps("array"), func(c *call) (any, error) {
			items := c.list(0)
			out := make([]any, len(items))
			for i, v := range items {
				out[len(items)-1-i] = v
			}
			return c.done(out)
		}),
		def("array_append", "New array with item appended.", ps("array", "item"), func(c *call) (any, error) {
			items := c.list(0)
			out := make([]any, 0, len(items)+1)
			out = append(out, items...)
			return c.done(append(out, c.arg(1)))
		}),
		def("array_extend", "New array with items concatenated.", ps("array", "items"), func(c *call) (any, error) {
			a, b := c.list(0), c.list(1)
			out := make([]any, 0, len(a)+len(b))
			out = append(out, a...)
			return c.done(append(out, b...))
		}),
	}
}

// lookup matches after date normalization so "2024-01-31" finds
// "31/01/2024". Single-item arrays broadcast against the other array.
func lookup(values, matches, target any) (any, error) {
	vs := listOrScalar(values)
	ms := listOrScalar(matches)
	if len(vs) != len(ms) {
		switch {
		case len(vs) == 1 && len(ms) > 1:
			vs = repeat(vs[0], len(ms))
		case len(ms) == 1 && len(vs) > 1:
			ms = repeat(ms[0], len(vs))
		default:
			return nil, errors.New("value_array and match_array must have the same length.")
		}
	}

	find := func(t any) any {
		want := matchKey(t)
		for i, m := range ms {
			if value.Equal(matchKey(m), want) {
				return vs[i]
			}
		}
		return nil
	}
	if value.IsList(target) {
		targets := value.ToList(target)
		out := make([]any, len(targets))
		for i, t := range targets {
			out[i] = find(t)
		}
		return out, nil
	}
	return find(target), nil
}

func matchKey(v any) any {
	if norm := dates.Normalize(v); norm != "" {
		return norm
	}
	return v
}

func listOrScalar(v any) []any {
	if value.IsList(v) {
		return value.ToList(v)
	}
	return []any{v}
}

func repeat(v any, n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// normalizeDates normalizes a date array, failing on the first element that
// is not a date. A scalar becomes a one-element list, or empty when blank.
func normalizeDates(v any) ([]any, error) {
	if !value.IsList(v) {
		if s, ok := v.(string); v == nil || ok && strings.TrimSpace(s) == "" {
			return []any{}, nil
		}
		if norm := dates.Normalize(v); norm != "" {
			return []any{norm}, nil
		}
		return []any{}, nil
	}
	items := value.ToList(v)
	out := make([]any, len(items))
	for i, item := range items {
		norm := dates.Normalize(item)
		if norm == "" {
			return nil, fmt.Errorf("Non-date value encountered in array: %s", value.Str(item))
		}
		out[i] = norm
	}
	return out, nil
}

// zipArrays stops at the shortest non-empty array.
func zipArrays(arrays []any) []any {
	lists := make([][]any, len(arrays))
	n := -1
	for i, a := range arrays {
		lists[i] = value.ToList(a)
		if l := len(lists[i]); l > 0 && (n < 0 || l < n) {
			n = l
		}
	}
	if n < 0 {
		return []any{}
	}
	out := make([]any, n)
	for i := range out {
		row := make([]any, len(lists))
		for j, l := range lists {
			if i < len(l) {
				row[j] = l[i]
			}
		}
		out[i] = row
	}
	return out
}

// slice applies Python slice bounds: negatives count from the end and
// out-of-range bounds are clipped.
func slice(items []any, start, end int) []any {
	n := len(items)
	clip := func(i int) int {
		if i < 0 {
			i += n
		}
		return max(0, min(n, i))
	}
	start, end = clip(start), clip(end)
	if start >= end {
		return []any{}
	}
	return append([]any(nil), items[start:end]...)
}
