package schedule

import (
	"context"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/robinvdvleuten/ledgerscript/functions"
	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/session"
	"github.com/robinvdvleuten/ledgerscript/txn"
	"github.com/robinvdvleuten/ledgerscript/value"
)

func newEnv(t *testing.T) *interp.Env {
	t.Helper()
	reg := interp.NewRegistry()
	assert.NoError(t, functions.Register(reg))
	assert.NoError(t, Register(reg))
	assert.NoError(t, txn.Register(reg))
	return interp.NewEnv(context.Background(), session.New(), reg.Freeze())
}

func eval(t *testing.T, env *interp.Env, expr string, locals map[string]any) any {
	t.Helper()
	v, err := interp.Evaluate(env, expr, locals)
	assert.NoError(t, err, expr)
	return v
}

func columnValues(s Schedule, name string) []any {
	out := make([]any, len(s))
	for i, row := range s {
		out[i] = row.Lookup(name)
	}
	return out
}

func TestNewPeriod(t *testing.T) {
	tests := []struct {
		name       string
		start, end any
		freq       string
		want       []string
	}{
		{"MonthEndClampCompounds", "2024-01-31", "2024-04-30", Monthly, []string{"2024-01-31", "2024-02-29", "2024-03-29", "2024-04-29"}},
		{"Quarterly", "2024-01-15", "2024-12-31", Quarterly, []string{"2024-01-15", "2024-04-15", "2024-07-15", "2024-10-15"}},
		{"AnnualFromLeapDay", "2024-02-29", "2026-03-01", Annual, []string{"2024-02-29", "2025-02-28", "2026-02-28"}},
		{"Weekly", "2024-01-01", "2024-01-20", Weekly, []string{"2024-01-01", "2024-01-08", "2024-01-15"}},
		{"Daily", "2024-02-28", "2024-03-01", Daily, []string{"2024-02-28", "2024-02-29", "2024-03-01"}},
		{"UnknownFrequencyIsMonthly", "2024-01-01", "2024-03-01", "X", []string{"2024-01-01", "2024-02-01", "2024-03-01"}},
		{"EndBeforeStart", "2024-03-01", "2024-01-01", Monthly, []string{}},
		{"InvalidStart", "not a date", "2024-01-01", Monthly, []string{}},
		{"MissingEnd", "2024-01-01", nil, Monthly, []string{}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p := NewPeriod(test.start, test.end, test.freq, "")
			assert.Equal(t, test.want, p.Dates)
		})
	}
}

func TestPeriodFunction(t *testing.T) {
	env := newEnv(t)

	p, ok := eval(t, env, `period("2024-01-01", "2024-06-30", "Q")`, nil).(*Period)
	assert.True(t, ok)
	assert.Equal(t, []string{"2024-01-01", "2024-04-01"}, p.Dates)
	assert.Equal(t, "ACT/360", p.Convention)
	assert.Equal(t, any([]any{"2024-01-01", "2024-04-01"}), eval(t, env, `p["dates"]`, map[string]any{"p": p}))

	arr, ok := eval(t, env, `period(["2024-01-01", "2024-02-01"], ["2024-12-31", "2024-06-30"])`, nil).(*PeriodArray)
	assert.True(t, ok)
	assert.Equal(t, 2, len(arr.StartDates))

	_, err := interp.Evaluate(env, `period(["2024-01-01"], ["2024-12-31", "2024-06-30"])`, nil)
	assert.EqualError(t, err, "start and end arrays must have the same length")
}

func TestBuildAxisLag(t *testing.T) {
	env := newEnv(t)
	p := NewPeriod("2024-01-01", "2024-03-01", Monthly, "")
	cols := Columns{
		{"period_date", "period_date"},
		{"opening", "lag('closing', 1, 1000)"},
		{"closing", "opening - 100"},
		{"idx", "period_index"},
	}

	s := BuildAxis(env, p, cols, nil)

	assert.Equal(t, 3, len(s))
	assert.Equal(t, []any{"2024-01-01", "2024-02-01", "2024-03-01"}, columnValues(s, "period_date"))
	assert.Equal(t, []any{1000.0, 900.0, 800.0}, columnValues(s, "opening"))
	assert.Equal(t, []any{900.0, 800.0, 700.0}, columnValues(s, "closing"))
	assert.Equal(t, []any{0.0, 1.0, 2.0}, columnValues(s, "idx"))
	assert.Equal(t, []string{"period_date", "opening", "closing", "idx"}, s[0].Keys())
}

func TestBuildAxisLagOffsets(t *testing.T) {
	env := newEnv(t)
	p := NewPeriod("2024-01-01", "2024-03-01", Monthly, "")
	cols := Columns{
		{"x", "multiply(add(period_index, 1), 10)"},
		{"zero", "lag('x', 0, -1)"},
		{"negative", "lag('x', -1, -1)"},
		{"two", "lag('x', 2)"},
		{"unknown", "lag('y', 1, 7)"},
	}

	s := BuildAxis(env, p, cols, nil)

	assert.Equal(t, []any{-1.0, -1.0, -1.0}, columnValues(s, "zero"))
	assert.Equal(t, []any{-1.0, -1.0, -1.0}, columnValues(s, "negative"))
	assert.Equal(t, []any{0.0, 0.0, 10.0}, columnValues(s, "two"))
	assert.Equal(t, []any{7.0, 7.0, 7.0}, columnValues(s, "unknown"))
}

func TestBuildAxisErrorSentinel(t *testing.T) {
	env := newEnv(t)
	p := NewPeriod("2024-01-01", "2024-02-01", Monthly, "")
	cols := Columns{
		{"bad", "divide(1, 0)"},
		{"prev", "lag('bad', 1, 5)"},
		{"nothing", "None"},
	}

	s := BuildAxis(env, p, cols, nil)

	assert.Equal(t, []any{"ERROR: division by zero", "ERROR: division by zero"}, columnValues(s, "bad"))
	assert.Equal(t, []any{5.0, 0.0}, columnValues(s, "prev"))
	assert.Equal(t, []any{0.0, 0.0}, columnValues(s, "nothing"))
}

func TestBuildAxisContext(t *testing.T) {
	env := newEnv(t)
	p := NewPeriod("2024-01-01", "2024-03-01", Monthly, "")
	ctx := value.DictOf(
		"rates", []any{0.1, 0.2},
		"principal", 1000.0,
	)
	cols := Columns{
		{"rate", "rates"},
		{"full", "len(rates_full)"},
		{"interest", "multiply(principal, rate)"},
		{"dcf", "dcf"},
	}

	s := BuildAxis(env, p, cols, ctx)

	assert.Equal(t, []any{0.1, 0.2, 0.2}, columnValues(s, "rate"))
	assert.Equal(t, []any{3.0, 3.0, 3.0}, columnValues(s, "full"))
	assert.Equal(t, []any{100.0, 200.0, 200.0}, columnValues(s, "interest"))
	assert.Equal(t, 31.0/360, s[0].Lookup("dcf"))
	assert.Equal(t, 29.0/360, s[2].Lookup("dcf"))
}

func TestBuildUnified(t *testing.T) {
	env := newEnv(t)
	v := eval(t, env, `schedule({"s": "s_no", "double": "multiply(amount, 2)", "name": "item_name"}, {"amounts": [10, 20, 30], "item_names": ["A", "B"]})`, nil)

	s, ok := v.(Schedule)
	assert.True(t, ok)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, columnValues(s, "s"))
	assert.Equal(t, []any{20.0, 40.0, 60.0}, columnValues(s, "double"))
	assert.Equal(t, []any{"A", "B", "Item 3"}, columnValues(s, "name"))
}

func TestAggregatorGuard(t *testing.T) {
	env := newEnv(t)
	p := NewPeriod("2024-01-01", "2024-01-01", Monthly, "")

	s := BuildAxis(env, p, Columns{{"total", "schedule_sum([], 'x')"}}, nil)

	assert.Equal(t, "ERROR: schedule_sum cannot be called from inside schedule column expressions; compute totals after schedule generation", s[0].Lookup("total"))
	assert.False(t, env.Session.Guarded())

	env.Session.Enter()
	defer env.Session.Leave()
	for _, fn := range []func(*interp.Env, Input, string) (any, error){Sum, First, Last, ColumnValues} {
		_, err := fn(env, Single{}, "x")
		assert.Error(t, err)
	}
	_, err := Filter(env, Single{}, "a", "b", "c")
	assert.True(t, strings.HasPrefix(err.Error(), "schedule_filter cannot be called"))
}

func TestAggregators(t *testing.T) {
	env := newEnv(t)
	p := NewPeriod("2024-01-01", "2024-03-01", Monthly, "")
	s := BuildAxis(env, p, Columns{
		{"period_date", "period_date"},
		{"amount", "multiply(add(period_index, 1), 100)"},
		{"flag", "gt(period_index, 0)"},
	}, nil)
	locals := map[string]any{"s": s, "many": []any{s, Schedule{}}}

	assert.Equal(t, 600.0, eval(t, env, `schedule_sum(s, "amount")`, locals))
	assert.Equal(t, 2.0, eval(t, env, `schedule_sum(s, "flag")`, locals))
	assert.Equal(t, 100.0, eval(t, env, `schedule_first(s, "amount")`, locals))
	assert.Equal(t, 300.0, eval(t, env, `schedule_last(s, "amount")`, locals))
	assert.Equal(t, 0.0, eval(t, env, `schedule_last(s, "missing")`, locals))
	assert.Equal(t, any([]any{100.0, 200.0, 300.0}), eval(t, env, `schedule_column(s, "amount")`, locals))
	assert.Equal(t, any([]any{600.0, 0.0}), eval(t, env, `schedule_sum(many, "amount")`, locals))
	assert.Equal(t, 0.0, eval(t, env, `schedule_sum([], "amount")`, locals))

	assert.Equal(t, 200.0, eval(t, env, `schedule_filter(s, "period_date", "02/01/2024", "amount")`, locals))
	assert.Equal(t, 0.0, eval(t, env, `schedule_filter(s, "period_date", "2025-01-01", "amount")`, locals))
	assert.Equal(t, 300.0, eval(t, env, `schedule_filter(s, "period_date", "add_months('2024-01-01', 2)", "amount")`, locals))
	assert.Equal(t, any([]any{200.0, 0.0}), eval(t, env, `schedule_filter(many, "period_date", "2024-02-01", "amount")`, locals))
}

func TestGenerateSchedules(t *testing.T) {
	env := newEnv(t)

	v := eval(t, env, `generate_schedules([1200, 0], ["2024-01-01", "2024-01-01"], ["2024-12-01", "2024-12-31"], "straight_line", "M", {"posting_date": "2024-03-31"}, ["Product A", "Discount"])`, nil)
	items := value.ToList(v)
	assert.Equal(t, 2, len(items))

	first := items[0].(*Result)
	assert.Equal(t, 12, first.TotalPeriods)
	assert.Equal(t, 1200.0, first.Total)
	assert.Equal(t, "1", first.SubInstrumentID)
	assert.Equal(t, 100.0, first.Schedule[0].Lookup("period_amount"))
	assert.Equal(t, 0.0, first.Schedule[11].Lookup("remaining"))
	assert.Equal(t, "2024-03-31", first.Extra.Lookup("posting_date"))

	zero := items[1].(*Result)
	assert.Equal(t, 0, len(zero.Schedule))
	assert.Equal(t, 0.0, zero.Total)
	assert.Equal(t, "Discount", zero.ItemName)

	locals := map[string]any{"results": v}
	assert.Equal(t, any([]any{1200.0, 0.0}), eval(t, env, `get_schedule_totals(results)`, locals))
	assert.Equal(t, any([]any{12.0 * 13 / 2, 0.0}), eval(t, env, `get_schedule_totals(results, "period_number")`, locals))
	assert.Equal(t, 2, len(value.ToList(eval(t, env, `get_schedules_array(results)`, locals))))
	assert.Equal(t, any([]any{1200.0, 0.0}), eval(t, env, `schedule_sum(results, "period_amount")`, locals))
	assert.Equal(t, 1200.0, eval(t, env, `results[0]["total"]`, locals))
}

func TestGenerateSchedulesZeroAmount(t *testing.T) {
	env := newEnv(t)
	v := eval(t, env, `generate_schedules([0], ["2024-01-01"], ["2024-12-31"], {"period_date": "period_date"})`, nil)

	items := value.ToList(v)
	assert.Equal(t, 1, len(items))
	r := items[0].(*Result)
	assert.Equal(t, 0, len(r.Schedule))
	assert.Equal(t, 0.0, r.Total)
}

func TestGenerateSchedulesMissingDate(t *testing.T) {
	env := newEnv(t)
	_, err := interp.Evaluate(env, `generate_schedules([100], [""], ["2024-12-31"], {"period_date": "period_date"}, "M", None, None, ["SUB-9"])`, nil)
	assert.EqualError(t, err, "schedule could not be created for subInstrumentId SUB-9: start_date or end_date is missing")
}

func TestPeriodArraySchedule(t *testing.T) {
	env := newEnv(t)
	v := eval(t, env, `schedule(period(["2024-01-01", "2024-01-01"], ["2024-02-01", "2024-03-01"]), {"period_amount": "divide(amount, total_periods)"}, {"amounts": [100, 300], "subinstrument_ids": "X"})`, nil)

	items := value.ToList(v)
	assert.Equal(t, 2, len(items))
	assert.Equal(t, 100.0, items[0].(*Result).Total)
	assert.Equal(t, 300.0, items[1].(*Result).Total)
	assert.Equal(t, "X", items[1].(*Result).SubInstrumentID)
}

func TestRecognition(t *testing.T) {
	env := newEnv(t)
	env.Session.SetInstrumentID("ORDER-1")

	eval(t, env, `create_schedule_transactions(find_period_amounts(generate_schedules([1200, 0], ["2024-01-01", "2024-01-01"], ["2024-12-01", "2024-12-01"], "straight_line", "M", None, None, ["P-1", "P-2"]), "2024-03-15"), "2024-03-31")`, nil)

	got := env.Session.Transactions()
	assert.Equal(t, []session.Transaction{{
		PostingDate:     "2024-03-31",
		EffectiveDate:   "2024-03-31",
		InstrumentID:    "ORDER-1",
		SubInstrumentID: "P-1",
		TransactionType: DefaultEntryType,
		Amount:          100,
	}}, got)
}

func TestFindPeriodAmounts(t *testing.T) {
	env := newEnv(t)
	results, err := Generate(env, Spec{
		Amounts:    []any{365.0},
		StartDates: []any{"2024-01-01"},
		EndDates:   []any{"2024-03-01"},
		Columns:    mustTemplate(t, "revenue").Columns,
	})
	assert.NoError(t, err)

	recs := FindPeriodAmounts(results, "2024-02-10", "")
	assert.Equal(t, 1, len(recs))
	assert.Equal(t, "2024-02-01", recs[0].PeriodDate)
	assert.Equal(t, 29.0, recs[0].PeriodAmount)

	recs = FindPeriodAmounts(results, "2024-02-10", "days_in_period")
	assert.Equal(t, 29.0, recs[0].PeriodAmount)

	recs = FindPeriodAmounts(results, "2025-02-10", "")
	assert.Equal(t, nil, recs[0].PeriodDate)
	assert.Equal(t, 0.0, recs[0].PeriodAmount)

	assert.Equal(t, 0, len(FindPeriodAmounts(results, "", "")))
}

func TestTemplates(t *testing.T) {
	assert.Equal(t, []string{"accrual", "depreciation", "fas91", "lease", "revenue", "straight_line"}, TemplateNames())

	_, err := LookupTemplate("nope")
	assert.EqualError(t, err, "unknown schedule template 'nope'; available: accrual, depreciation, fas91, lease, revenue, straight_line")

	env := newEnv(t)
	v := eval(t, env, `schedule(period("2024-01-01", "2024-03-01"), schedule_template("depreciation"), {"amount": 1000, "salvage_value": 100, "total_periods": 3})`, nil)
	s := v.(Schedule)
	assert.Equal(t, []any{1000.0, 700.0, 400.0}, columnValues(s, "opening_value"))
	assert.Equal(t, []any{700.0, 400.0, 100.0}, columnValues(s, "closing_value"))

	assert.True(t, strings.Contains(mustTemplate(t, "accrual").Program(), `"cumulative_accrual": "lag('cumulative_accrual', 1, 0) + period_accrual"`))
}

func mustTemplate(t *testing.T, name string) Template {
	t.Helper()
	tmpl, err := LookupTemplate(name)
	assert.NoError(t, err)
	return tmpl
}

func TestPrint(t *testing.T) {
	env := newEnv(t)
	results, err := Generate(env, Spec{
		Amounts:    []any{100.0, 0.0},
		StartDates: []any{"2024-01-01", "2024-01-01"},
		EndDates:   []any{"2024-01-01", "2024-01-01"},
		Columns:    Columns{{"period_date", "period_date"}},
		ItemNames:  []any{"Support", "Discount"},
	})
	assert.NoError(t, err)

	eval(t, env, `print("total", 1200, True, None)`, nil)
	eval(t, env, `print(results)`, map[string]any{"results": resultList(results)})
	eval(t, env, `print_schedule([], "Revenue")`, nil)
	eval(t, env, `print_all_schedules([[], [{"period_date": "2024-01-01"}]], ["Empty"])`, nil)

	want := []string{
		"total 1200 True None",
		"═══ Support Schedule ═══",
		"[\n  {\n    \"period_date\": \"2024-01-01\"\n  }\n]",
		"Discount: (No schedule - zero amount)",
		"Revenue: (Empty schedule)",
		"Empty: (Empty)",
		"═══ Schedule 2 ═══",
		"[\n  {\n    \"period_date\": \"2024-01-01\"\n  }\n]",
	}
	assert.Equal(t, want, env.Session.Prints())
}
