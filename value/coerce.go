package value

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Number returns v as a float64 when v is numeric. Booleans count as 1 and 0.
func Number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case float32:
		return float64(x), true
	}
	return 0, false
}

// IsNumber reports whether v is a number (booleans excluded).
func IsNumber(v any) bool {
	if _, ok := v.(bool); ok {
		return false
	}
	_, ok := Number(v)
	return ok
}

// ToNumber converts v to a number and never fails: missing, empty and
// unparseable values become 0.
func ToNumber(v any) float64 {
	if n, ok := Number(v); ok {
		return n
	}
	s, ok := v.(string)
	if !ok {
		return 0
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// CoerceCount converts a count-like argument to an int. Booleans and
// non-numeric values are rejected; fractional values round half to even.
func CoerceCount(v any, param string) (int, error) {
	if param == "" {
		param = "n"
	}
	switch x := v.(type) {
	case bool:
		return 0, fmt.Errorf("invalid %s: boolean not allowed", param)
	case nil:
		return 0, fmt.Errorf("invalid %s: expected numeric value, got %s", param, TypeName(v))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: expected numeric value, got %s", param, TypeName(v))
		}
		return int(math.RoundToEven(f)), nil
	}
	if f, ok := Number(v); ok {
		return int(math.RoundToEven(f)), nil
	}
	return 0, fmt.Errorf("invalid %s: expected numeric value, got %s", param, TypeName(v))
}

// Round rounds x to places decimals, half to even.
func Round(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	f, _ := decimal.NewFromFloat(x).RoundBank(int32(places)).Float64()
	return f
}

// Truncate drops the digits of x beyond places decimals.
func Truncate(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	f, _ := decimal.NewFromFloat(x).Truncate(int32(places)).Float64()
	return f
}

// ToList views v as a list. nil becomes an empty list and scalars a
// single-element list.
func ToList(v any) []any {
	switch x := v.(type) {
	case nil:
		return []any{}
	case []any:
		return x
	case Lister:
		return x.List()
	}
	return []any{v}
}

// IsList reports whether v is list-shaped.
func IsList(v any) bool {
	switch v.(type) {
	case []any:
		return true
	case Lister:
		return true
	}
	return false
}

// Numbers converts every element of a list-like value with ToNumber.
func Numbers(v any) []float64 {
	items := ToList(v)
	out := make([]float64, len(items))
	for i, item := range items {
		out[i] = ToNumber(item)
	}
	return out
}

// FromNumbers wraps a float slice as a list value.
func FromNumbers(xs []float64) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

// FromGo converts decoded JSON/YAML data and other Go values into the
// canonical value set.
func FromGo(v any) any {
	switch x := v.(type) {
	case nil, bool, float64, string, *Dict:
		return x
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case time.Time:
		return x.Format("2006-01-02")
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = FromGo(item)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = item
		}
		return out
	case []float64:
		return FromNumbers(x)
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d := NewDict()
		for _, k := range keys {
			d.Set(k, FromGo(x[k]))
		}
		return d
	case map[any]any:
		keys := make([]string, 0, len(x))
		m := make(map[string]any, len(x))
		for k, item := range x {
			ks := fmt.Sprint(k)
			keys = append(keys, ks)
			m[ks] = item
		}
		sort.Strings(keys)
		d := NewDict()
		for _, k := range keys {
			d.Set(k, FromGo(m[k]))
		}
		return d
	}
	return v
}
