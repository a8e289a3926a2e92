package schedule

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/robinvdvleuten/ledgerscript/dates"
	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/value"
)

// Schedule is an ordered list of rows. Every row carries the same columns,
// in declaration order.
type Schedule []*value.Dict

// List lets a schedule be used wherever expressions expect a list.
func (s Schedule) List() []any {
	out := make([]any, len(s))
	for i, row := range s {
		out[i] = row
	}
	return out
}

// Len is the number of rows.
func (s Schedule) Len() int { return len(s) }

// Column is one named column expression.
type Column struct {
	Name string `json:"name"`
	Expr string `json:"expr"`
}

// Columns are evaluated left to right; a column may reference any column
// declared before it in the same row.
type Columns []Column

// ColumnsFrom reads a column declaration dict.
func ColumnsFrom(v any) (Columns, error) {
	d, ok := v.(*value.Dict)
	if !ok {
		return nil, fmt.Errorf("columns must be a dict of column name to expression, not '%s'", value.TypeName(v))
	}
	if inner, ok := d.Lookup("columns").(*value.Dict); ok && d.Has("description") {
		d = inner
	}
	cols := make(Columns, 0, d.Len())
	d.Range(func(name string, expr any) bool {
		cols = append(cols, Column{Name: name, Expr: value.Str(expr)})
		return true
	})
	return cols, nil
}

// Names returns the column names in declaration order.
func (c Columns) Names() []string {
	out := make([]string, len(c))
	for i, col := range c {
		out[i] = col.Name
	}
	return out
}

// errorPrefix marks a column value whose expression failed.
const errorPrefix = "ERROR"

func isError(v any) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, errorPrefix)
}

// history keeps every completed value per column. Failed values are stored
// as 0 so lag never sees an error.
type history map[string][]any

func newHistory(cols Columns) history {
	h := make(history, len(cols))
	for _, c := range cols {
		h[c.Name] = nil
	}
	return h
}

func (h history) record(col string, v any) {
	if isError(v) {
		v = 0.0
	}
	h[col] = append(h[col], v)
}

// snapshot copies the history so lag reads a stable view while the current
// row is being built.
func (h history) snapshot() history {
	cp := make(history, len(h))
	for k, vs := range h {
		cp[k] = append([]any(nil), vs...)
	}
	return cp
}

// lag returns lag(col, offset=1, default=0) over the snapshot. Offsets
// below 1 never reach into history and yield the default.
func (h history) lag() *interp.Function {
	return &interp.Function{
		Name:     "lag",
		Category: "Schedule",
		Doc:      "Value of a column offset rows back, or default.",
		Params:   []interp.Param{interp.Req("col"), interp.Opt("offset", 1.0), interp.Opt("default", 0.0)},
		Fn: func(_ *interp.Env, args []any) (any, error) {
			offset, err := value.CoerceCount(args[1], "offset")
			if err != nil {
				return nil, err
			}
			vs := h[value.Str(args[0])]
			if offset < 1 || len(vs) < offset {
				return args[2], nil
			}
			v := vs[len(vs)-offset]
			if isError(v) {
				return args[2], nil
			}
			return v, nil
		},
	}
}

// Build implements schedule(period, columns, context).
//
// A plain dict in the period position whose second argument holds list
// values is read as schedule(columns, context). A PeriodArray expands into
// one schedule per item; no period at all builds a unified schedule with one
// row per context item.
func Build(env *interp.Env, periodDef, columns, context any) (any, error) {
	if d, ok := periodDef.(*value.Dict); ok && !value.Truthy(d.Lookup("type")) {
		if ctx, ok := columns.(*value.Dict); ok && ctx.Len() > 0 && hasList(ctx) {
			periodDef, columns, context = nil, d, ctx
		}
	}

	cols, err := ColumnsFrom(columns)
	if err != nil {
		return nil, err
	}
	ctx, _ := context.(*value.Dict)

	switch p := periodDef.(type) {
	case *PeriodArray:
		results, err := expandPeriodArray(env, p, cols, ctx)
		if err != nil {
			return nil, err
		}
		return resultList(results), nil
	case *Period:
		return BuildAxis(env, p, cols, ctx), nil
	}
	if ctx != nil {
		return BuildUnified(env, cols, ctx), nil
	}
	return Schedule{}, nil
}

func hasList(d *value.Dict) bool {
	found := false
	d.Range(func(_ string, v any) bool {
		found = value.IsList(v)
		return !found
	})
	return found
}

func expandPeriodArray(env *interp.Env, p *PeriodArray, cols Columns, ctx *value.Dict) ([]*Result, error) {
	n := len(p.StartDates)
	var amounts, names, subIDs any
	if ctx != nil {
		amounts = firstTruthy(ctx, "amounts", "amount")
		names = firstTruthy(ctx, "item_names", "product_names")
		subIDs = firstTruthy(ctx, "subinstrument_ids", "subinstrument_id")
	}
	amountList := broadcast(amounts, n)
	if amountList == nil {
		amountList = value.FromNumbers(make([]float64, n))
	}
	return Generate(env, Spec{
		Amounts:          amountList,
		StartDates:       p.StartDates,
		EndDates:         p.EndDates,
		Columns:          cols,
		Freq:             p.Freq,
		Context:          ctx,
		ItemNames:        broadcast(names, n),
		SubInstrumentIDs: broadcast(subIDs, n),
	})
}

// firstTruthy returns the first key holding a truthy value.
func firstTruthy(d *value.Dict, keys ...string) any {
	var v any
	for _, k := range keys {
		if v = d.Lookup(k); value.Truthy(v) {
			return v
		}
	}
	return v
}

// broadcast turns v into a list: lists pass through, nil stays nil and a
// scalar repeats n times.
func broadcast(v any, n int) []any {
	switch {
	case v == nil:
		return nil
	case value.IsList(v):
		return value.ToList(v)
	}
	out := make([]any, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// BuildAxis evaluates the columns once per axis date.
//
// Each row sees the context (list values sliced per row, padded with their
// last element, plus the whole list as name_full), period_date,
// period_index, period_start, dcf, lag, and the values of the previous row
// until the current row overwrites them. A failed column stores
// "ERROR: msg" in the row and 0 in the lag history; a None result becomes 0.
func BuildAxis(env *interp.Env, p *Period, cols Columns, ctx *value.Dict) Schedule {
	axis := p.Dates
	if len(axis) == 0 {
		return Schedule{}
	}
	convention := p.Convention
	if convention == "" {
		convention = dates.Actual360
	}

	arrays := padContext(ctx, len(axis))

	env.Session.Enter()
	defer env.Session.Leave()

	log := env.Log()
	out := make(Schedule, 0, len(axis))
	hist := newHistory(cols)
	for idx, date := range axis {
		dcf, next := rowFraction(axis, idx, convention)

		locals := make(map[string]any, len(arrays)*2+len(cols)+5)
		for _, a := range arrays {
			locals[a.name+"_full"] = a.values
			locals[a.name] = a.values[idx]
		}
		locals["period_date"] = date
		locals["period_index"] = float64(idx)
		locals["period_start"] = next
		locals["dcf"] = dcf
		locals["lag"] = hist.snapshot().lag()
		for _, c := range cols {
			if vs := hist[c.Name]; len(vs) > 0 {
				if last := vs[len(vs)-1]; last != nil && !isError(last) {
					locals[c.Name] = last
				}
			}
		}

		row := value.NewDict()
		for _, c := range cols {
			var v any
			switch c.Expr {
			case "period_date":
				v = date
			case "period_index":
				v = float64(idx)
			case "dcf":
				v = dcf
			default:
				res, err := interp.Evaluate(env, c.Expr, locals)
				switch {
				case err != nil:
					log.Debug().Err(err).Str("column", c.Name).Int("row", idx).Msg("schedule column failed")
					v = errorPrefix + ": " + err.Error()
				case res == nil:
					v = 0.0
				default:
					v = res
				}
			}
			row.Set(c.Name, v)
			hist.record(c.Name, v)
			if !isError(v) {
				locals[c.Name] = v
			}
		}
		out = append(out, row)
	}
	return out
}

// rowFraction returns the row's day-count fraction and the start of the
// next period. The last row reuses the previous interval, or 1/12 when the
// axis has a single date.
func rowFraction(axis []string, idx int, convention string) (float64, string) {
	fraction := func(a, b string) float64 {
		return dates.DayCountFraction(dates.MustParse(a), dates.MustParse(b), convention)
	}
	switch {
	case idx < len(axis)-1:
		return fraction(axis[idx], axis[idx+1]), axis[idx+1]
	case idx > 0:
		return fraction(axis[idx-1], axis[idx]), axis[idx]
	}
	return 1.0 / 12, axis[idx]
}

type column struct {
	name   string
	values []any
}

// padContext broadcasts every context entry to n values: scalars repeat,
// None becomes zeros, short lists repeat their last element and empty lists
// become zeros.
func padContext(ctx *value.Dict, n int) []column {
	if ctx == nil {
		return nil
	}
	var out []column
	ctx.Range(func(k string, v any) bool {
		var vals []any
		switch {
		case value.IsList(v):
			vals = append([]any(nil), value.ToList(v)...)
			if len(vals) == 0 {
				vals = append(vals, 0.0)
			}
			for len(vals) < n {
				vals = append(vals, vals[len(vals)-1])
			}
		case v == nil:
			vals = repeat(0.0, n)
		default:
			vals = repeat(v, n)
		}
		out = append(out, column{name: k, values: vals})
		return true
	})
	return out
}

func repeat(v any, n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// unifiedKeys are consumed by the unified builder itself rather than
// exposed per row under their own names.
var unifiedKeys = map[string]bool{
	"amounts":           true,
	"start_dates":       true,
	"end_dates":         true,
	"subinstrument_ids": true,
	"item_names":        true,
}

// BuildUnified evaluates the columns once per item of the context's
// parallel arrays, producing a single schedule. The row count is the longest
// list in the context, or 1 when there are none. Rows carry s_no (1-based)
// instead of a date axis.
func BuildUnified(env *interp.Env, cols Columns, ctx *value.Dict) Schedule {
	n, lists := 0, 0
	ctx.Range(func(_ string, v any) bool {
		if value.IsList(v) {
			lists++
			n = max(n, len(value.ToList(v)))
		}
		return true
	})
	if lists == 0 {
		n = 1
	}

	at := func(key string, idx int, def any) any {
		v := ctx.Lookup(key)
		switch {
		case v == nil:
			return def
		case value.IsList(v):
			items := value.ToList(v)
			if idx < len(items) {
				return items[idx]
			}
			return def
		}
		return v
	}

	env.Session.Enter()
	defer env.Session.Leave()

	log := env.Log()
	out := make(Schedule, 0, n)
	hist := newHistory(cols)
	for idx := 0; idx < n; idx++ {
		locals := make(map[string]any, ctx.Len()+len(cols)+10)
		ctx.Range(func(k string, v any) bool {
			if unifiedKeys[k] {
				return true
			}
			if value.IsList(v) {
				locals[k] = at(k, idx, nil)
			} else {
				locals[k] = v
			}
			return true
		})
		locals["amount"] = at("amounts", idx, at("amount", idx, 0.0))
		locals["subinstrument_id"] = at("subinstrument_ids", idx, at("subinstrument_id", idx, fmt.Sprint(idx+1)))
		locals["item_name"] = at("item_names", idx, at("product_names", idx, fmt.Sprintf("Item %d", idx+1)))
		locals["start_date"] = at("start_dates", idx, "")
		locals["end_date"] = at("end_dates", idx, "")
		locals["s_no"] = float64(idx + 1)
		locals["index"] = float64(idx + 1)
		locals["period_index"] = float64(idx)
		locals["period_date"] = ""
		locals["dcf"] = 0.0
		locals["lag"] = hist.snapshot().lag()
		for _, c := range cols {
			if vs := hist[c.Name]; len(vs) > 0 {
				if _, taken := locals[c.Name]; !taken && !isError(vs[len(vs)-1]) {
					locals[c.Name] = vs[len(vs)-1]
				}
			}
		}

		row := value.NewDict()
		for _, c := range cols {
			expr := strings.TrimSpace(c.Expr)
			var v any
			switch {
			case expr == "period_date" || expr == "period_index" || expr == "dcf":
				v = locals[expr]
			case isIdentifier(expr):
				v = locals[expr]
				if v == nil && value.IsList(ctx.Lookup(expr)) {
					v = at(expr, idx, nil)
				}
			default:
				res, err := interp.Evaluate(env, expr, locals)
				if err != nil {
					log.Debug().Err(err).Str("column", c.Name).Int("row", idx).Msg("schedule column failed")
					v = recoverNoneSubscript(expr, err, ctx, func(name string) any { return at(name, idx, nil) })
				} else {
					v = res
				}
			}
			row.Set(c.Name, v)
			hist.record(c.Name, v)
			if !isError(v) {
				locals[c.Name] = v
			}
		}
		out = append(out, row)
	}
	return out
}

// recoverNoneSubscript handles x[...] on a per-row None: when x names a
// context list, the row's element is used instead. Any other failure
// becomes an error sentinel.
func recoverNoneSubscript(expr string, err error, ctx *value.Dict, at func(string) any) any {
	msg := err.Error()
	sentinel := errorPrefix + ": " + msg
	if !strings.Contains(msg, "NoneType") || !strings.Contains(msg, "subscript") {
		return sentinel
	}
	fields := strings.Fields(strings.NewReplacer("]", "", "[", " ").Replace(expr))
	if len(fields) == 0 {
		return sentinel
	}
	name := strings.SplitN(fields[0], ".", 2)[0]
	if value.IsList(ctx.Lookup(name)) {
		return at(name)
	}
	return sentinel
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r != '_' && !unicode.IsLetter(r) && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}
