package schedule

import (
	"github.com/robinvdvleuten/ledgerscript/dates"
	"github.com/robinvdvleuten/ledgerscript/session"
	"github.com/robinvdvleuten/ledgerscript/txn"
	"github.com/robinvdvleuten/ledgerscript/value"
)

// DefaultEntryType is the transaction type of schedule entries.
const DefaultEntryType = "Schedule Entry"

// Schedules returns the schedule of every result.
func Schedules(results []*Result) []any {
	out := make([]any, len(results))
	for i, r := range results {
		out[i] = r.Schedule
	}
	return out
}

// Totals returns each result's total, or the sum of column when one is given.
func Totals(results []*Result, column string) []any {
	out := make([]any, len(results))
	for i, r := range results {
		if column != "" {
			out[i] = sumColumn(r.Schedule, column)
		} else {
			out[i] = r.Total
		}
	}
	return out
}

// Recognition is the amount one item recognizes in a posting month.
type Recognition struct {
	ItemIndex       any
	ItemName        any
	SubInstrumentID any
	PeriodDate      any
	PeriodAmount    any
}

// Get exposes the recognition to expressions.
func (r Recognition) Get(key string) (any, bool) {
	switch key {
	case "item_index":
		return r.ItemIndex, true
	case "item_name":
		return r.ItemName, true
	case "subinstrument_id":
		return r.SubInstrumentID, true
	case "period_date":
		return r.PeriodDate, true
	case "period_amount":
		return r.PeriodAmount, true
	}
	return nil, false
}

// Dict returns the recognition as an ordered dict.
func (r Recognition) Dict() *value.Dict {
	return value.DictOf(
		"item_index", r.ItemIndex,
		"item_name", r.ItemName,
		"subinstrument_id", r.SubInstrumentID,
		"period_date", r.PeriodDate,
		"period_amount", r.PeriodAmount,
	)
}

func (r Recognition) String() string { return value.Repr(r.Dict()) }

// MarshalJSON encodes the recognition as its dict form.
func (r Recognition) MarshalJSON() ([]byte, error) { return r.Dict().MarshalJSON() }

// FindPeriodAmounts picks, per result, the first row dated in the same
// month as postingDate. The amount comes from amountColumn when the row has
// it, else from the first known amount column.
func FindPeriodAmounts(results []*Result, postingDate any, amountColumn string) []Recognition {
	if len(results) == 0 || !value.Truthy(postingDate) {
		return []Recognition{}
	}
	target, targetOK := dates.Parse(postingDate)

	out := make([]Recognition, 0, len(results))
	for _, r := range results {
		rec := Recognition{
			ItemIndex:       float64(r.ItemIndex),
			ItemName:        r.ItemName,
			SubInstrumentID: r.SubInstrumentID,
			PeriodAmount:    0.0,
		}
		if !targetOK {
			out = append(out, rec)
			continue
		}
		for _, row := range r.Schedule {
			d, ok := dates.Parse(row.Lookup("period_date"))
			if !ok || d.Year() != target.Year() || d.Month() != target.Month() {
				continue
			}
			rec.PeriodDate = row.Lookup("period_date")
			if v, ok := row.Get(amountColumn); amountColumn != "" && ok {
				rec.PeriodAmount = v
			} else {
				for _, col := range totalColumns {
					if v, ok := row.Get(col); ok {
						rec.PeriodAmount = v
						break
					}
				}
			}
			break
		}
		out = append(out, rec)
	}
	return out
}

// CreateScheduleTransactions emits a transaction for every recognition with
// a non-zero amount.
func CreateScheduleTransactions(sess *session.Session, recognitions []Recognition, postingDate any, entryType any) ([]session.Transaction, error) {
	var created []session.Transaction
	for _, rec := range recognitions {
		if !value.Truthy(rec.PeriodAmount) {
			continue
		}
		sub := rec.SubInstrumentID
		if sub == nil {
			sub = txn.DefaultSubInstrumentID
		}
		ts, err := txn.Create(sess, txn.Request{
			PostingDate:     postingDate,
			EffectiveDate:   postingDate,
			TransactionType: entryType,
			Amount:          rec.PeriodAmount,
			SubInstrumentID: sub,
		})
		if err != nil {
			return nil, err
		}
		created = append(created, ts...)
	}
	return created, nil
}

// recognitionsFrom reads find_period_amounts output, which may have been
// rebuilt as plain dicts.
func recognitionsFrom(v any) []Recognition {
	items := value.ToList(v)
	out := make([]Recognition, 0, len(items))
	for _, item := range items {
		switch x := item.(type) {
		case Recognition:
			out = append(out, x)
		case value.Keyed:
			get := func(k string) any {
				v, _ := x.Get(k)
				return v
			}
			sub, ok := x.Get("subinstrument_id")
			if !ok {
				sub = txn.DefaultSubInstrumentID
			}
			amount, ok := x.Get("period_amount")
			if !ok {
				amount = 0.0
			}
			out = append(out, Recognition{
				ItemIndex:       get("item_index"),
				ItemName:        get("item_name"),
				SubInstrumentID: sub,
				PeriodDate:      get("period_date"),
				PeriodAmount:    amount,
			})
		}
	}
	return out
}
