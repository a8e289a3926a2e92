package value

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatNumber renders a float the way the DSL prints numbers: integral
// values without a fractional part, others in their shortest form.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e16 {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	abs := math.Abs(f)
	if abs >= 1e-4 && abs < 1e16 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Str converts v to its display string.
func Str(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	}
	return Repr(v)
}

// Repr converts v to its literal-like representation; strings are quoted.
func Repr(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "\\'") + "'"
	case *Dict:
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range x.Keys() {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(Repr(k))
			b.WriteString(": ")
			b.WriteString(Repr(x.Lookup(k)))
		}
		b.WriteByte('}')
		return b.String()
	case fmt.Stringer:
		return x.String()
	}
	if n, ok := Number(v); ok {
		return FormatNumber(n)
	}
	if IsList(v) {
		items := ToList(v)
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = Repr(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(v)
}

// JSON renders v as indented JSON, falling back to Str when v cannot be
// encoded (for example NaN values).
func JSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Str(v)
	}
	return string(data)
}
