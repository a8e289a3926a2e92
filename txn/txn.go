// Package txn implements createTransaction, the only way a program emits
// ledger transactions.
package txn

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/robinvdvleuten/ledgerscript/dates"
	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/session"
	"github.com/robinvdvleuten/ledgerscript/value"
)

// DefaultSubInstrumentID is used when no sub-instrument id is given.
const DefaultSubInstrumentID = "1"

// AmountKeys are tried in order when an amount is a dict, such as a
// schedule row.
var AmountKeys = []string{"period_amount", "period_revenue", "period_accrual", "period_amortization", "amount", "value"}

// DateKeys are tried in order when a date is a dict.
var DateKeys = []string{"period_date", "postingdate", "posting_date", "date"}

// ErrNestedAmount is returned for amounts given as a list of lists.
var ErrNestedAmount = errors.New("nested amount arrays are not supported; provide a flat array matching subInstrumentIds or a single scalar amount")

// Request holds the raw createTransaction arguments. Each may be a scalar or
// a list; the sub-instrument ids decide how many transactions fan out.
type Request struct {
	PostingDate     any
	EffectiveDate   any
	TransactionType any
	Amount          any
	SubInstrumentID any
}

// Create emits one transaction per sub-instrument id onto the session and
// returns them.
//
// Every other argument must hold one value, broadcast to all slots, or one
// per slot. A slot whose posting or effective date cannot be resolved is
// skipped without error.
func Create(sess *session.Session, req Request) ([]session.Transaction, error) {
	amounts := value.ToList(req.Amount)
	if len(amounts) == 0 {
		return nil, nil
	}
	subs := value.ToList(req.SubInstrumentID)
	if len(subs) == 0 {
		subs = []any{DefaultSubInstrumentID}
	}
	n := len(subs)

	postings, err := fanOut(value.ToList(req.PostingDate), "postingdate", n)
	if err != nil {
		return nil, err
	}
	effectives, err := fanOut(value.ToList(req.EffectiveDate), "effectivedate", n)
	if err != nil {
		return nil, err
	}
	types, err := fanOut(value.ToList(req.TransactionType), "transactiontype", n)
	if err != nil {
		return nil, err
	}
	amounts, err = fanOut(amounts, "amount", n)
	if err != nil {
		return nil, err
	}

	var created []session.Transaction
	for i := 0; i < n; i++ {
		posting := resolveDate(postings[i])
		effective := resolveDate(effectives[i])
		if posting == "" || effective == "" {
			sess.Logger().Debug().Int("slot", i).Msg("transaction skipped: missing date")
			continue
		}
		amount, err := resolveAmount(amounts[i])
		if err != nil {
			return nil, err
		}
		t := session.Transaction{
			PostingDate:     posting,
			EffectiveDate:   effective,
			InstrumentID:    sess.InstrumentID(),
			SubInstrumentID: subInstrumentID(subs[i]),
			TransactionType: typeText(types[i]),
			Amount:          amount,
		}
		sess.Emit(t)
		created = append(created, t)
	}
	return created, nil
}

// fanOut broadcasts vals to n slots. No values become n nils.
func fanOut(vals []any, name string, n int) ([]any, error) {
	switch len(vals) {
	case 0:
		return make([]any, n), nil
	case 1:
		out := make([]any, n)
		for i := range out {
			out[i] = vals[0]
		}
		return out, nil
	case n:
		return vals, nil
	}
	return nil, fmt.Errorf("length of '%s' (%d) must be 1 or equal to number of subInstrumentIds (%d)", name, len(vals), n)
}

func subInstrumentID(v any) string {
	if v == nil {
		return DefaultSubInstrumentID
	}
	s := strings.TrimSpace(value.Str(v))
	if s == "" || s == "None" {
		return DefaultSubInstrumentID
	}
	return s
}

func typeText(v any) string {
	if v == nil {
		return ""
	}
	return value.Str(v)
}

// resolveDate picks a date out of a dict-shaped value and normalizes it.
func resolveDate(v any) string {
	if d, ok := v.(value.Keyed); ok && !value.IsList(v) {
		for _, k := range DateKeys {
			if x, ok := d.Get(k); ok && value.Truthy(x) {
				v = x
				break
			}
		}
	}
	if v == nil {
		return ""
	}
	return dates.Normalize(v)
}

// resolveAmount reads one slot's amount. Dicts are searched by AmountKeys,
// then for any numeric value; unusable amounts are 0.
func resolveAmount(v any) (float64, error) {
	if value.IsList(v) {
		return 0, ErrNestedAmount
	}
	if d, ok := v.(*value.Dict); ok {
		for _, k := range AmountKeys {
			if x := d.Lookup(k); x != nil {
				if f, ok := parseFloat(x); ok {
					return f, nil
				}
			}
		}
		var found float64
		var ok bool
		d.Range(func(_ string, x any) bool {
			found, ok = parseFloat(x)
			return !ok
		})
		return found, nil
	}
	if d, ok := v.(value.Keyed); ok {
		for _, k := range AmountKeys {
			if x, _ := d.Get(k); x != nil {
				if f, ok := parseFloat(x); ok {
					return f, nil
				}
			}
		}
		return 0, nil
	}
	return value.ToNumber(v), nil
}

func parseFloat(v any) (float64, bool) {
	if n, ok := value.Number(v); ok {
		return n, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

// Register adds createTransaction to r.
func Register(r *interp.Registry) error {
	return r.Register(&interp.Function{
		Name:     "createTransaction",
		Category: "Transactions",
		Doc:      "Emit one ledger transaction per sub-instrument id. Slots without a usable date are skipped.",
		Params: []interp.Param{
			interp.Req("postingdate"),
			interp.Req("effectivedate"),
			interp.Req("transactiontype"),
			interp.Req("amount"),
			interp.Opt("subinstrumentid", DefaultSubInstrumentID),
		},
		Fn: func(env *interp.Env, args []any) (any, error) {
			created, err := Create(env.Session, Request{
				PostingDate:     args[0],
				EffectiveDate:   args[1],
				TransactionType: args[2],
				Amount:          args[3],
				SubInstrumentID: args[4],
			})
			if err != nil {
				return nil, err
			}
			return Result(created), nil
		},
	})
}

// Result shapes created transactions the way createTransaction returns
// them: None, one record, or a list.
func Result(created []session.Transaction) any {
	switch len(created) {
	case 0:
		return nil
	case 1:
		return created[0]
	}
	out := make([]any, len(created))
	for i, t := range created {
		out[i] = t
	}
	return out
}
