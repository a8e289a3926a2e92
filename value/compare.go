package value

import (
	"fmt"
	"strings"
)

// Equal reports whether a and b are equal. Numbers compare by value across
// numeric kinds; lists and dicts compare element-wise.
func Equal(a, b any) bool {
	if an, ok := Number(a); ok {
		if bn, ok := Number(b); ok {
			return an == bn
		}
		return false
	}
	switch x := a.(type) {
	case nil:
		return b == nil
	case string:
		y, ok := b.(string)
		return ok && x == y
	case *Dict:
		y, ok := b.(*Dict)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, k := range x.Keys() {
			yv, ok := y.Get(k)
			if !ok || !Equal(x.Lookup(k), yv) {
				return false
			}
		}
		return true
	}
	if IsList(a) && IsList(b) {
		xs, ys := ToList(a), ToList(b)
		if len(xs) != len(ys) {
			return false
		}
		for i := range xs {
			if !Equal(xs[i], ys[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}

// Compare orders a and b, returning -1, 0 or 1. Only numbers, strings and
// lists of comparable values are ordered.
func Compare(a, b any, op string) (int, error) {
	if an, ok := Number(a); ok {
		if bn, ok := Number(b); ok {
			switch {
			case an < bn:
				return -1, nil
			case an > bn:
				return 1, nil
			}
			return 0, nil
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs), nil
		}
	}
	if IsList(a) && IsList(b) {
		xs, ys := ToList(a), ToList(b)
		for i := 0; i < len(xs) && i < len(ys); i++ {
			if Equal(xs[i], ys[i]) {
				continue
			}
			return Compare(xs[i], ys[i], op)
		}
		switch {
		case len(xs) < len(ys):
			return -1, nil
		case len(xs) > len(ys):
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("'%s' not supported between instances of '%s' and '%s'", op, TypeName(a), TypeName(b))
}

// Contains implements the membership test `needle in haystack`.
func Contains(haystack, needle any) (bool, error) {
	switch h := haystack.(type) {
	case string:
		n, ok := needle.(string)
		if !ok {
			return false, fmt.Errorf("'in <string>' requires string as left operand, not %s", TypeName(needle))
		}
		return strings.Contains(h, n), nil
	case Keyed:
		k, ok := needle.(string)
		if !ok {
			return false, nil
		}
		_, found := h.Get(k)
		return found, nil
	}
	if IsList(haystack) {
		for _, item := range ToList(haystack) {
			if Equal(item, needle) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("argument of type '%s' is not iterable", TypeName(haystack))
}
