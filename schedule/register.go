package schedule

import (
	"github.com/robinvdvleuten/ledgerscript/dates"
	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/value"
)

const category = "Schedule"

// Register adds the schedule functions to r.
func Register(r *interp.Registry) error {
	fns := []*interp.Function{
		{
			Name:   "period",
			Doc:    "Time axis from start to end. Lists of start and end dates build one axis per item.",
			Params: []interp.Param{interp.Req("start"), interp.Req("end"), interp.Opt("freq", Monthly), interp.Opt("convention", dates.Actual360)},
			Fn: func(_ *interp.Env, args []any) (any, error) {
				freq, conv := value.Str(args[2]), value.Str(args[3])
				if value.IsList(args[0]) && value.IsList(args[1]) {
					return NewPeriodArray(value.ToList(args[0]), value.ToList(args[1]), freq, conv)
				}
				return NewPeriod(args[0], args[1], freq, conv), nil
			},
		},
		{
			Name:   "schedule",
			Doc:    "Evaluate column expressions once per period date, or once per context item without a period.",
			Params: []interp.Param{interp.Req("period_def"), interp.Opt("columns", nil), interp.Opt("context", nil)},
			Fn: func(env *interp.Env, args []any) (any, error) {
				return Build(env, args[0], args[1], args[2])
			},
		},
		{
			Name: "generate_schedules",
			Doc:  "One schedule per item over its own start and end date. Columns may name a template.",
			Params: []interp.Param{
				interp.Req("amounts"), interp.Req("start_dates"), interp.Req("end_dates"), interp.Req("columns"),
				interp.Opt("freq", Monthly), interp.Opt("context", nil), interp.Opt("item_names", nil), interp.Opt("subinstrument_ids", nil),
			},
			Fn: generateSchedules,
		},
		aggregator("schedule_sum", "Sum of a column per schedule.", Sum),
		aggregator("schedule_first", "First value of a column per schedule.", First),
		aggregator("schedule_last", "Last value of a column per schedule.", Last),
		aggregator("schedule_column", "All values of a column per schedule.", ColumnValues),
		{
			Name:   "schedule_filter",
			Doc:    "Return column of the first row whose match column equals the match value, per schedule.",
			Params: []interp.Param{interp.Req("sched"), interp.Req("match_column"), interp.Req("match_value"), interp.Req("return_column")},
			Fn: func(env *interp.Env, args []any) (any, error) {
				return Filter(env, InputFrom(args[0]), args[1], args[2], value.Str(args[3]))
			},
		},
		{
			Name:   "get_schedules_array",
			Doc:    "The schedules of generate_schedules results.",
			Params: []interp.Param{interp.Req("results")},
			Fn: func(_ *interp.Env, args []any) (any, error) {
				return Schedules(resultsOf(args[0])), nil
			},
		},
		{
			Name:   "get_schedule_totals",
			Doc:    "Totals of generate_schedules results, or the sum of column per result.",
			Params: []interp.Param{interp.Req("results"), interp.Opt("column", nil)},
			Fn: func(_ *interp.Env, args []any) (any, error) {
				column := ""
				if value.Truthy(args[1]) {
					column = value.Str(args[1])
				}
				return Totals(resultsOf(args[0]), column), nil
			},
		},
		{
			Name:   "find_period_amounts",
			Doc:    "Per item, the amount of the schedule row in the posting month.",
			Params: []interp.Param{interp.Req("results"), interp.Req("posting_date"), interp.Opt("amount_column", nil)},
			Fn: func(_ *interp.Env, args []any) (any, error) {
				column := ""
				if value.Truthy(args[2]) {
					column = value.Str(args[2])
				}
				recs := FindPeriodAmounts(resultsOf(args[0]), args[1], column)
				out := make([]any, len(recs))
				for i, rec := range recs {
					out[i] = rec
				}
				return out, nil
			},
		},
		{
			Name:   "create_schedule_transactions",
			Doc:    "Emit a transaction for every non-zero amount found by find_period_amounts.",
			Params: []interp.Param{interp.Req("recognition_results"), interp.Req("posting_date"), interp.Opt("transaction_type", DefaultEntryType)},
			Fn: func(env *interp.Env, args []any) (any, error) {
				created, err := CreateScheduleTransactions(env.Session, recognitionsFrom(args[0]), args[1], args[2])
				if err != nil {
					return nil, err
				}
				out := make([]any, len(created))
				for i, t := range created {
					out[i] = t
				}
				return out, nil
			},
		},
		{
			Name:   "schedule_template",
			Doc:    "A built-in column set: revenue, straight_line, accrual, fas91, depreciation or lease.",
			Params: []interp.Param{interp.Req("name")},
			Fn: func(_ *interp.Env, args []any) (any, error) {
				t, err := LookupTemplate(value.Str(args[0]))
				if err != nil {
					return nil, err
				}
				return t.Dict(), nil
			},
		},
		{
			Name:   "print_schedule",
			Doc:    "Print a schedule under a title and return it.",
			Params: []interp.Param{interp.Req("sched"), interp.Opt("title", "Schedule")},
			Fn: func(env *interp.Env, args []any) (any, error) {
				PrintSchedule(env.Session, args[0], value.Str(args[1]))
				return args[0], nil
			},
		},
		{
			Name:   "print_all_schedules",
			Doc:    "Print every schedule of generate_schedules results or a list of schedules, and return the input.",
			Params: []interp.Param{interp.Req("schedules_or_results"), interp.Opt("item_names", nil)},
			Fn: func(env *interp.Env, args []any) (any, error) {
				PrintAll(env.Session, args[0], value.ToList(args[1]))
				return args[0], nil
			},
		},
		{
			Name:     "print",
			Doc:      "Print values separated by spaces. Schedules print as titled tables.",
			Variadic: "args",
			Fn: func(env *interp.Env, args []any) (any, error) {
				Print(env.Session, args)
				return nil, nil
			},
		},
	}
	for _, f := range fns {
		f.Category = category
	}
	return r.Register(fns...)
}

func aggregator(name, doc string, fn func(*interp.Env, Input, string) (any, error)) *interp.Function {
	return &interp.Function{
		Name:   name,
		Doc:    doc,
		Params: []interp.Param{interp.Req("sched"), interp.Req("column")},
		Fn: func(env *interp.Env, args []any) (any, error) {
			return fn(env, InputFrom(args[0]), value.Str(args[1]))
		},
	}
}

func generateSchedules(env *interp.Env, args []any) (any, error) {
	var cols Columns
	if name, ok := args[3].(string); ok {
		t, err := LookupTemplate(name)
		if err != nil {
			return nil, err
		}
		cols = t.Columns
	} else if value.Truthy(args[3]) {
		var err error
		if cols, err = ColumnsFrom(args[3]); err != nil {
			return nil, err
		}
	}
	ctx, _ := args[5].(*value.Dict)
	results, err := Generate(env, Spec{
		Amounts:          value.ToList(args[0]),
		StartDates:       value.ToList(args[1]),
		EndDates:         value.ToList(args[2]),
		Columns:          cols,
		Freq:             value.Str(args[4]),
		Context:          ctx,
		ItemNames:        value.ToList(args[6]),
		SubInstrumentIDs: value.ToList(args[7]),
	})
	if err != nil {
		return nil, err
	}
	return resultList(results), nil
}

// resultsOf reads expansion results from a value; anything else is empty.
func resultsOf(v any) []*Result {
	if in, ok := InputFrom(v).(Results); ok {
		return in.Items
	}
	return nil
}
