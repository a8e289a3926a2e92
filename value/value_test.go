package value

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"gopkg.in/yaml.v3"
)

func TestDict(t *testing.T) {
	d := DictOf("b", 1.0, "a", "x")
	assert.Equal(t, []string{"b", "a"}, d.Keys())

	d.Set("b", 2.0)
	assert.Equal(t, []string{"b", "a"}, d.Keys())
	assert.Equal(t, any(2.0), d.Lookup("b"))

	d.SetDefault("a", "ignored")
	d.SetDefault("c", nil)
	assert.Equal(t, any("x"), d.Lookup("a"))
	assert.True(t, d.Has("c"))
	assert.Equal(t, 3, d.Len())

	clone := d.Clone()
	d.Delete("b")
	d.Delete("missing")
	assert.Equal(t, []string{"a", "c"}, d.Keys())
	assert.Equal(t, []string{"b", "a", "c"}, clone.Keys())

	var nilDict *Dict
	assert.Equal(t, 0, nilDict.Len())
	assert.False(t, nilDict.Has("a"))
}

func TestDictMarshal(t *testing.T) {
	d := DictOf("b", 1.0, "a", []any{1.5, "x"})

	data, err := json.Marshal(d)
	assert.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":[1.5,"x"]}`, string(data))

	out, err := yaml.Marshal(DictOf("b", 1.0, "a", "x"))
	assert.NoError(t, err)
	assert.Equal(t, "b: 1\na: x\n", string(out))
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected float64
	}{
		{"Float", 2.5, 2.5},
		{"Int", 3, 3},
		{"True", true, 1},
		{"NumericString", " 12.5 ", 12.5},
		{"EmptyString", "", 0},
		{"NoneString", "None", 0},
		{"Garbage", "abc", 0},
		{"Nil", nil, 0},
		{"List", []any{1.0}, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, ToNumber(test.input))
		})
	}

	assert.False(t, IsNumber(true))
	assert.True(t, IsNumber(1.0))
}

func TestCoerceCount(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		param    string
		expected int
		err      string
	}{
		{"Integral", 12.0, "", 12, ""},
		{"HalfToEven", 2.5, "", 2, ""},
		{"String", "3.5", "", 4, ""},
		{"Boolean", true, "", 0, "invalid n: boolean not allowed"},
		{"Nil", nil, "periods", 0, "invalid periods: expected numeric value, got NoneType"},
		{"Garbage", "twelve", "periods", 0, "invalid periods: expected numeric value, got str"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := CoerceCount(test.input, test.param)
			if test.err != "" {
				assert.EqualError(t, err, test.err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, test.expected, got)
		})
	}
}

func TestRoundAndTruncate(t *testing.T) {
	assert.Equal(t, 2.0, Round(2.5, 0))
	assert.Equal(t, 4.0, Round(3.5, 0))
	assert.Equal(t, 0.12, Round(0.125, 2))
	assert.Equal(t, -1.23, Truncate(-1.239, 2))
	assert.True(t, math.IsNaN(Round(math.NaN(), 2)))
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name     string
		a, b     any
		expected bool
	}{
		{"NumericKinds", 1, 1.0, true},
		{"BoolAsNumber", true, 1.0, true},
		{"StringVersusNumber", "1", 1.0, false},
		{"Nils", nil, nil, true},
		{"Lists", []any{1.0, "a"}, []any{1.0, "a"}, true},
		{"ListLength", []any{1.0}, []any{1.0, 2.0}, false},
		{"Dicts", DictOf("a", 1.0), DictOf("a", 1.0), true},
		{"DictValues", DictOf("a", 1.0), DictOf("a", 2.0), false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Equal(test.a, test.b))
		})
	}
}

func TestCompare(t *testing.T) {
	got, err := Compare("2024-01-31", "2024-02-29", "<")
	assert.NoError(t, err)
	assert.Equal(t, -1, got)

	got, err = Compare([]any{1.0, 3.0}, []any{1.0, 2.0}, ">")
	assert.NoError(t, err)
	assert.Equal(t, 1, got)

	got, err = Compare([]any{1.0}, []any{1.0, 2.0}, "<")
	assert.NoError(t, err)
	assert.Equal(t, -1, got)

	_, err = Compare("1", 1.0, "<")
	assert.EqualError(t, err, "'<' not supported between instances of 'str' and 'float'")
}

func TestContains(t *testing.T) {
	found, err := Contains("LOAN-1", "LOAN")
	assert.NoError(t, err)
	assert.True(t, found)

	found, err = Contains([]any{1.0, 2.0}, 2)
	assert.NoError(t, err)
	assert.True(t, found)

	found, err = Contains(DictOf("rate", 0.05), "term")
	assert.NoError(t, err)
	assert.False(t, found)

	_, err = Contains("LOAN", 1.0)
	assert.EqualError(t, err, "'in <string>' requires string as left operand, not float")

	_, err = Contains(1.0, 1.0)
	assert.EqualError(t, err, "argument of type 'float' is not iterable")
}

func TestFormatNumber(t *testing.T) {
	a, b := 0.1, 0.2
	tests := []struct {
		input    float64
		expected string
	}{
		{3, "3"},
		{-2.5, "-2.5"},
		{a + b, "0.30000000000000004"},
		{1e20, "1e+20"},
		{0.00001, "1e-05"},
		{math.Inf(-1), "-inf"},
		{math.NaN(), "nan"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, FormatNumber(test.input))
		})
	}
}

func TestRepr(t *testing.T) {
	assert.Equal(t, "None", Repr(nil))
	assert.Equal(t, "True", Repr(true))
	assert.Equal(t, `'it\'s'`, Repr("it's"))
	assert.Equal(t, "[1, 'a', None]", Repr([]any{1.0, "a", nil}))
	assert.Equal(t, "{'rate': 0.05}", Repr(DictOf("rate", 0.05)))

	assert.Equal(t, "it's", Str("it's"))
	assert.Equal(t, "['a']", Str([]any{"a"}))
	assert.Equal(t, "nan", JSON(math.NaN()))
}

func TestFromGo(t *testing.T) {
	got := FromGo(map[string]any{
		"term":  int64(12),
		"rate":  json.Number("0.05"),
		"start": time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		"tags":  []string{"loan"},
	})

	d, ok := got.(*Dict)
	assert.True(t, ok)
	assert.Equal(t, []string{"rate", "start", "tags", "term"}, d.Keys())
	assert.Equal(t, any(0.05), d.Lookup("rate"))
	assert.Equal(t, any("2024-01-31"), d.Lookup("start"))
	assert.Equal(t, any([]any{"loan"}), d.Lookup("tags"))
	assert.Equal(t, any(12.0), d.Lookup("term"))
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		input    any
		expected bool
	}{
		{nil, false},
		{0.0, false},
		{"", false},
		{[]any{}, false},
		{NewDict(), false},
		{"0", true},
		{[]any{nil}, true},
		{DictOf("a", 1.0), true},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, Truthy(test.input), "%s", Repr(test.input))
	}

	assert.Equal(t, "NoneType", TypeName(nil))
	assert.Equal(t, "dict", TypeName(NewDict()))
}
