package schedule

import (
	"fmt"

	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/value"
)

// DailyBasis is the day count exposed to item schedules as daily_basis.
const DailyBasis = 365.0

// totalColumns are scanned in order for the column summed into
// Result.Total and picked by FindPeriodAmounts.
var totalColumns = []string{
	"period_amount",
	"period_revenue",
	"period_accrual",
	"period_amortization",
	"period_depreciation",
	"lease_expense",
}

// Result is the outcome of expanding one item.
type Result struct {
	ItemIndex       int
	ItemName        any
	SubInstrumentID any
	Amount          any
	StartDate       any
	EndDate         any
	TotalPeriods    int
	Schedule        Schedule
	Total           any

	// Extra carries caller context fields that do not collide with the
	// fields above, so helpers can find e.g. a posting date on any item.
	Extra *value.Dict
}

// Spec describes a multi-item expansion.
type Spec struct {
	Amounts          []any
	StartDates       []any
	EndDates         []any
	Columns          Columns
	Freq             string
	Context          *value.Dict
	ItemNames        []any
	SubInstrumentIDs []any
}

// Generate builds one schedule per item, up to the shortest of amounts,
// start dates and end dates.
//
// Items with a zero amount get an empty schedule. Any other item without a
// usable start or end date fails the whole expansion.
func Generate(env *interp.Env, spec Spec) ([]*Result, error) {
	if len(spec.Amounts) == 0 || len(spec.StartDates) == 0 || len(spec.EndDates) == 0 || len(spec.Columns) == 0 {
		return []*Result{}, nil
	}
	freq := spec.Freq
	if freq == "" {
		freq = Monthly
	}

	n := min(len(spec.Amounts), len(spec.StartDates), len(spec.EndDates))
	results := make([]*Result, 0, n)
	for i := 0; i < n; i++ {
		r := &Result{
			ItemIndex:       i,
			ItemName:        itemAt(spec.ItemNames, i, fmt.Sprintf("Item %d", i+1)),
			SubInstrumentID: itemAt(spec.SubInstrumentIDs, i, fmt.Sprint(i+1)),
			Amount:          spec.Amounts[i],
			StartDate:       spec.StartDates[i],
			EndDate:         spec.EndDates[i],
			Schedule:        Schedule{},
			Total:           0.0,
			Extra:           value.NewDict(),
		}
		if spec.Context != nil {
			spec.Context.Range(func(k string, v any) bool {
				if !r.has(k) {
					r.Extra.Set(k, v)
				}
				return true
			})
		}

		if !value.Truthy(r.Amount) {
			results = append(results, r)
			continue
		}
		if !value.Truthy(r.StartDate) || !value.Truthy(r.EndDate) {
			return nil, fmt.Errorf("schedule could not be created for subInstrumentId %s: start_date or end_date is missing", value.Str(r.SubInstrumentID))
		}

		p := NewPeriod(r.StartDate, r.EndDate, freq, "")
		r.TotalPeriods = len(p.Dates)

		ctx := value.DictOf(
			"amount", r.Amount,
			"total_periods", float64(r.TotalPeriods),
			"daily_basis", DailyBasis,
			"item_name", r.ItemName,
			"subinstrument_id", r.SubInstrumentID,
			"start_date", r.StartDate,
			"end_date", r.EndDate,
		)
		if spec.Context != nil {
			spec.Context.Range(func(k string, v any) bool {
				ctx.Set(k, v)
				return true
			})
		}

		r.Schedule = BuildAxis(env, p, spec.Columns, ctx)
		for _, col := range totalColumns {
			if len(r.Schedule) > 0 && r.Schedule[0].Has(col) {
				r.Total = sumColumn(r.Schedule, col)
				break
			}
		}
		results = append(results, r)
	}
	return results, nil
}

func itemAt(items []any, i int, def any) any {
	if i < len(items) {
		return items[i]
	}
	return def
}

var resultFields = []string{
	"item_index", "item_name", "subinstrument_id", "amount", "start_date",
	"end_date", "total_periods", "schedule", "total",
}

func (r *Result) has(key string) bool {
	for _, f := range resultFields {
		if f == key {
			return true
		}
	}
	return false
}

// Get exposes the result to expressions as r["schedule"], r["total"] and
// any pass-through context field.
func (r *Result) Get(key string) (any, bool) {
	switch key {
	case "item_index":
		return float64(r.ItemIndex), true
	case "item_name":
		return r.ItemName, true
	case "subinstrument_id":
		return r.SubInstrumentID, true
	case "amount":
		return r.Amount, true
	case "start_date":
		return r.StartDate, true
	case "end_date":
		return r.EndDate, true
	case "total_periods":
		return float64(r.TotalPeriods), true
	case "schedule":
		return r.Schedule, true
	case "total":
		return r.Total, true
	}
	return r.Extra.Get(key)
}

// Dict flattens the result into an ordered dict.
func (r *Result) Dict() *value.Dict {
	d := value.NewDict()
	for _, f := range resultFields {
		v, _ := r.Get(f)
		d.Set(f, v)
	}
	r.Extra.Range(func(k string, v any) bool {
		d.Set(k, v)
		return true
	})
	return d
}

func (r *Result) String() string { return value.Repr(r.Dict()) }

// MarshalJSON encodes the result as its dict form.
func (r *Result) MarshalJSON() ([]byte, error) { return r.Dict().MarshalJSON() }

func resultList(results []*Result) []any {
	out := make([]any, len(results))
	for i, r := range results {
		out[i] = r
	}
	return out
}

// MarshalYAML encodes the result as its dict form.
func (r *Result) MarshalYAML() (interface{}, error) { return r.Dict(), nil }

// ResultFrom converts a dict with a "schedule" entry, such as a result that
// went through JSON, back into a Result.
func ResultFrom(v any) (*Result, bool) {
	switch x := v.(type) {
	case *Result:
		return x, true
	case *value.Dict:
		rows, ok := x.Get("schedule")
		if !ok {
			return nil, false
		}
		r := &Result{Schedule: From(rows), Total: 0.0, Extra: value.NewDict()}
		x.Range(func(k string, v any) bool {
			switch k {
			case "item_index":
				r.ItemIndex = int(value.ToNumber(v))
			case "item_name":
				r.ItemName = v
			case "subinstrument_id":
				r.SubInstrumentID = v
			case "amount":
				r.Amount = v
			case "start_date":
				r.StartDate = v
			case "end_date":
				r.EndDate = v
			case "total_periods":
				r.TotalPeriods = int(value.ToNumber(v))
			case "total":
				r.Total = v
			case "schedule":
			default:
				r.Extra.Set(k, v)
			}
			return true
		})
		return r, true
	}
	return nil, false
}
