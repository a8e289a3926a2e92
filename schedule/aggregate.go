package schedule

import (
	"fmt"

	"github.com/robinvdvleuten/ledgerscript/dates"
	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/value"
)

// Input is what the aggregators accept: one schedule, several schedules or
// the results of a multi-item expansion.
type Input interface {
	isInput()
}

// Empty is an empty or missing input.
type Empty struct{}

// Single is one bare schedule.
type Single struct{ Schedule Schedule }

// Many is a list of schedules.
type Many struct{ Schedules []Schedule }

// Results are multi-item expansion results.
type Results struct{ Items []*Result }

func (Empty) isInput()   {}
func (Single) isInput()  {}
func (Many) isInput()    {}
func (Results) isInput() {}

// InputFrom classifies a value by the shape of its first element.
func InputFrom(v any) Input {
	if !value.Truthy(v) || !value.IsList(v) {
		if r, ok := ResultFrom(v); ok {
			return Results{Items: []*Result{r}}
		}
		return Empty{}
	}
	items := value.ToList(v)
	if s, ok := v.(Schedule); ok {
		return Single{Schedule: s}
	}
	if _, ok := ResultFrom(items[0]); ok {
		out := make([]*Result, 0, len(items))
		for _, item := range items {
			if r, ok := ResultFrom(item); ok {
				out = append(out, r)
			} else {
				out = append(out, &Result{Schedule: Schedule{}, Total: 0.0})
			}
		}
		return Results{Items: out}
	}
	if value.IsList(items[0]) {
		out := make([]Schedule, len(items))
		for i, item := range items {
			out[i] = From(item)
		}
		return Many{Schedules: out}
	}
	return Single{Schedule: From(v)}
}

// From views a list of row dicts as a schedule. Elements that are not dicts
// are dropped.
func From(v any) Schedule {
	if s, ok := v.(Schedule); ok {
		return s
	}
	items := value.ToList(v)
	out := make(Schedule, 0, len(items))
	for _, item := range items {
		if row, ok := item.(*value.Dict); ok {
			out = append(out, row)
		}
	}
	return out
}

// each applies fn per schedule. A single schedule yields a scalar, other
// shapes a list with one entry per schedule.
func each(in Input, empty any, fn func(rows Schedule, r *Result) any) any {
	switch x := in.(type) {
	case Single:
		return fn(x.Schedule, nil)
	case Many:
		out := make([]any, len(x.Schedules))
		for i, s := range x.Schedules {
			out[i] = fn(s, nil)
		}
		return out
	case Results:
		out := make([]any, len(x.Items))
		for i, r := range x.Items {
			out[i] = fn(r.Schedule, r)
		}
		return out
	}
	return empty
}

// guardError reports an aggregator called while a schedule is being built.
func guardError(name string) error {
	return fmt.Errorf("%s cannot be called from inside schedule column expressions; compute totals after schedule generation", name)
}

func checkGuard(env *interp.Env, name string) error {
	if env.Session.Guarded() {
		return guardError(name)
	}
	return nil
}

// Sum totals the numeric values of column.
func Sum(env *interp.Env, in Input, column string) (any, error) {
	if err := checkGuard(env, "schedule_sum"); err != nil {
		return nil, err
	}
	return each(in, 0.0, func(rows Schedule, _ *Result) any {
		return sumColumn(rows, column)
	}), nil
}

func sumColumn(rows Schedule, column string) float64 {
	total := 0.0
	for _, row := range rows {
		if n, ok := value.Number(row.Lookup(column)); ok {
			total += n
		}
	}
	return total
}

// First returns the first value of column.
func First(env *interp.Env, in Input, column string) (any, error) {
	if err := checkGuard(env, "schedule_first"); err != nil {
		return nil, err
	}
	return each(in, []any{}, func(rows Schedule, _ *Result) any {
		for _, row := range rows {
			if v, ok := row.Get(column); ok {
				return v
			}
		}
		return 0.0
	}), nil
}

// Last returns the last value of column.
func Last(env *interp.Env, in Input, column string) (any, error) {
	if err := checkGuard(env, "schedule_last"); err != nil {
		return nil, err
	}
	return each(in, []any{}, func(rows Schedule, _ *Result) any {
		for i := len(rows) - 1; i >= 0; i-- {
			if v, ok := rows[i].Get(column); ok {
				return v
			}
		}
		return 0.0
	}), nil
}

// ColumnValues returns every value of column; rows without it give 0.
func ColumnValues(env *interp.Env, in Input, column string) (any, error) {
	if err := checkGuard(env, "schedule_column"); err != nil {
		return nil, err
	}
	return each(in, []any{}, func(rows Schedule, _ *Result) any {
		out := make([]any, len(rows))
		for i, row := range rows {
			v, ok := row.Get(column)
			if !ok {
				v = 0.0
			}
			out[i] = v
		}
		return out
	}), nil
}

// Filter returns, per schedule, returnColumn of the first row whose
// matchColumn equals matchValue, or 0 when no row matches. A single
// schedule yields the scalar.
//
// matchColumn is a row key when the row has it and an expression otherwise.
// A matchValue containing parentheses is an expression, evaluated once per
// result against its pass-through fields when possible and per row
// otherwise. Both sides compare as strings after date normalization.
func Filter(env *interp.Env, in Input, matchColumn, matchValue any, returnColumn string) (any, error) {
	if err := checkGuard(env, "schedule_filter"); err != nil {
		return nil, err
	}
	if s, ok := in.(Single); ok {
		return filterRows(env, s.Schedule, nil, matchColumn, matchValue, returnColumn), nil
	}
	return each(in, []any{}, func(rows Schedule, r *Result) any {
		return filterRows(env, rows, r, matchColumn, matchValue, returnColumn)
	}), nil
}

func filterRows(env *interp.Env, rows Schedule, r *Result, matchColumn, matchValue any, returnColumn string) any {
	if len(rows) == 0 {
		return 0.0
	}
	col, colIsText := matchColumn.(string)
	want, wantIsText := matchValue.(string)
	isExpr := wantIsText && containsParen(want)

	var scope map[string]any
	if r != nil {
		scope = make(map[string]any)
		r.Dict().Range(func(k string, v any) bool {
			scope[k] = v
			return true
		})
	}

	var evaluated any
	if isExpr && scope != nil {
		evaluated, _ = interp.Evaluate(env, want, scope)
	}

	for _, row := range rows {
		locals := make(map[string]any, len(scope)+row.Len())
		for k, v := range scope {
			locals[k] = v
		}
		row.Range(func(k string, v any) bool {
			locals[k] = v
			return true
		})

		var got any
		if v, ok := row.Get(col); colIsText && ok {
			got = v
		} else if colIsText {
			got, _ = interp.Evaluate(env, col, locals)
		}
		if got == nil {
			continue
		}

		var target any
		switch {
		case evaluated != nil:
			target = evaluated
		case wantIsText && scope != nil && hasKey(scope, want):
			target = scope[want]
		case isExpr:
			v, err := interp.Evaluate(env, want, locals)
			if err != nil {
				v = matchValue
			}
			target = v
		default:
			target = canonical(matchValue)
		}

		if value.Str(canonical(got)) == value.Str(target) {
			v, ok := row.Get(returnColumn)
			if !ok {
				return 0.0
			}
			return v
		}
	}
	return 0.0
}

// canonical normalizes date strings and leaves everything else unchanged.
func canonical(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if norm := dates.Normalize(s); norm != "" {
		return norm
	}
	return s
}

func containsParen(s string) bool {
	for _, c := range s {
		if c == '(' || c == ')' {
			return true
		}
	}
	return false
}

func hasKey(m map[string]any, k string) bool {
	_, ok := m[k]
	return ok
}
