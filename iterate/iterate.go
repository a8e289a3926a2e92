// Package iterate evaluates an expression once per list element. A failing
// element never aborts the batch; each function has its own substitute for
// a failed element.
package iterate

import (
	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/value"
)

// ForEach walks dates and amounts pairwise, up to the shorter list, binding
// dateVar, amountVar, index and postingdate. Results that are None and
// elements whose evaluation fails are dropped.
func ForEach(env *interp.Env, dates, amounts []any, dateVar, amountVar, expr string) []any {
	n := min(len(dates), len(amounts))
	out := []any{}
	for i := 0; i < n; i++ {
		locals := map[string]any{
			dateVar:       dates[i],
			amountVar:     amounts[i],
			"index":       float64(i),
			"postingdate": dates[i],
		}
		v, err := interp.Evaluate(env, expr, locals)
		if err != nil {
			env.Log().Debug().Err(err).Int("index", i).Msg("for_each: element skipped")
			continue
		}
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

// ForEachWithIndex evaluates expr per element with varName, index, count
// and the context entries bound. A failed element yields None.
func ForEachWithIndex(env *interp.Env, items []any, varName, expr string, ctx *value.Dict) []any {
	out := make([]any, 0, len(items))
	each(env, items, varName, expr, ctx, func(_ int, _ any, v any, err error) {
		if err != nil {
			v = nil
		}
		out = append(out, v)
	})
	return out
}

// MapArray is ForEachWithIndex with failed or None results replaced by 0.
func MapArray(env *interp.Env, items []any, varName, expr string, ctx *value.Dict) []any {
	out := make([]any, 0, len(items))
	each(env, items, varName, expr, ctx, func(i int, _ any, v any, err error) {
		if err != nil || v == nil {
			env.Log().Debug().Int("index", i).Str("var", varName).Msg("map_array: no value, using 0")
			v = 0.0
		}
		out = append(out, v)
	})
	return out
}

// ArrayFilter keeps the elements for which cond is truthy. Elements whose
// condition fails are dropped.
func ArrayFilter(env *interp.Env, items []any, varName, cond string, ctx *value.Dict) []any {
	out := []any{}
	each(env, items, varName, cond, ctx, func(_ int, item any, v any, err error) {
		if err == nil && value.Truthy(v) {
			out = append(out, item)
		}
	})
	return out
}

func each(env *interp.Env, items []any, varName, expr string, ctx *value.Dict, fn func(i int, item, v any, err error)) {
	for i, item := range items {
		locals := make(map[string]any, ctx.Len()+3)
		locals[varName] = item
		locals["index"] = float64(i)
		locals["count"] = float64(len(items))
		ctx.Range(func(k string, v any) bool {
			locals[k] = v
			return true
		})
		v, err := interp.Evaluate(env, expr, locals)
		if err != nil {
			env.Log().Debug().Err(err).Int("index", i).Msg("element evaluation failed")
		}
		fn(i, item, v, err)
	}
}

// Register adds the iteration functions to r.
func Register(r *interp.Registry) error {
	withContext := func(name, doc string, impl func(*interp.Env, []any, string, string, *value.Dict) []any) *interp.Function {
		return &interp.Function{
			Name:   name,
			Doc:    doc,
			Params: []interp.Param{interp.Req("array"), interp.Req("var_name"), interp.Req("expression"), interp.Opt("context", nil)},
			Fn: func(env *interp.Env, args []any) (any, error) {
				ctx, _ := args[3].(*value.Dict)
				return impl(env, value.ToList(args[0]), value.Str(args[1]), value.Str(args[2]), ctx), nil
			},
		}
	}
	fns := []*interp.Function{
		{
			Name: "for_each",
			Doc:  "Evaluate an expression per date and amount pair, keeping the non-None results.",
			Params: []interp.Param{
				interp.Req("dates_array"), interp.Req("amounts_array"),
				interp.Req("date_var"), interp.Req("amount_var"), interp.Req("expression"),
			},
			Fn: func(env *interp.Env, args []any) (any, error) {
				return ForEach(env, value.ToList(args[0]), value.ToList(args[1]), value.Str(args[2]), value.Str(args[3]), value.Str(args[4])), nil
			},
		},
		withContext("for_each_with_index", "Evaluate an expression per element with index and count bound; failures give None.", ForEachWithIndex),
		withContext("map_array", "Transform each element; failures give 0.", MapArray),
		withContext("array_filter", "Keep the elements whose condition holds.", ArrayFilter),
	}
	for _, f := range fns {
		f.Category = "Iteration"
	}
	return r.Register(fns...)
}
