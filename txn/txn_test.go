package txn

import (
	"context"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/session"
	"github.com/robinvdvleuten/ledgerscript/value"
)

func TestCreateSkipsSlotsWithoutDates(t *testing.T) {
	sess := session.New()
	sess.SetInstrumentID("LOAN-7")

	created, err := Create(sess, Request{
		PostingDate:     []any{"2024-01-01", "", nil},
		EffectiveDate:   []any{"2024-01-01", "2024-01-02", "2024-01-03"},
		TransactionType: "T",
		Amount:          []any{10.0, 20.0, 30.0},
		SubInstrumentID: []any{"1", "2", "3"},
	})
	assert.NoError(t, err)

	want := []session.Transaction{{
		PostingDate:     "2024-01-01",
		EffectiveDate:   "2024-01-01",
		InstrumentID:    "LOAN-7",
		SubInstrumentID: "1",
		TransactionType: "T",
		Amount:          10,
	}}
	if diff := cmp.Diff(want, created); diff != "" {
		t.Errorf("created (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, sess.Transactions()); diff != "" {
		t.Errorf("session (-want +got):\n%s", diff)
	}
}

func TestCreateErrors(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		err  string
	}{
		{
			name: "NestedAmount",
			req:  Request{PostingDate: "2024-01-01", EffectiveDate: "2024-01-01", TransactionType: "T", Amount: []any{[]any{1.0, 2.0}}, SubInstrumentID: "1"},
			err:  ErrNestedAmount.Error(),
		},
		{
			name: "AmountLength",
			req:  Request{PostingDate: "2024-01-01", EffectiveDate: "2024-01-01", TransactionType: "T", Amount: []any{1.0, 2.0}, SubInstrumentID: []any{"a", "b", "c"}},
			err:  "length of 'amount' (2) must be 1 or equal to number of subInstrumentIds (3)",
		},
		{
			name: "PostingLength",
			req:  Request{PostingDate: []any{"2024-01-01", "2024-01-02"}, EffectiveDate: "2024-01-01", TransactionType: "T", Amount: 1.0, SubInstrumentID: "1"},
			err:  "length of 'postingdate' (2) must be 1 or equal to number of subInstrumentIds (1)",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sess := session.New()
			_, err := Create(sess, test.req)
			assert.EqualError(t, err, test.err)
			assert.Equal(t, 0, len(sess.Transactions()))
		})
	}
}

func TestCreateBroadcastAndShapes(t *testing.T) {
	row := value.DictOf("period_date", "2024-03-31", "period_amount", 125.5)
	sess := session.New()

	created, err := Create(sess, Request{
		PostingDate:     row,
		EffectiveDate:   "03/31/2024",
		TransactionType: nil,
		Amount:          []any{row, "12.5", "abc"},
		SubInstrumentID: []any{" A ", "", nil},
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, len(created))

	assert.Equal(t, "2024-03-31", created[0].PostingDate)
	assert.Equal(t, "2024-03-31", created[0].EffectiveDate)
	assert.Equal(t, "", created[0].TransactionType)
	assert.Equal(t, session.DefaultInstrumentID, created[0].InstrumentID)

	assert.Equal(t, []string{"A", "1", "1"}, []string{created[0].SubInstrumentID, created[1].SubInstrumentID, created[2].SubInstrumentID})
	assert.Equal(t, []float64{125.5, 12.5, 0}, []float64{created[0].Amount, created[1].Amount, created[2].Amount})
}

func TestCreateWithoutAmount(t *testing.T) {
	sess := session.New()
	created, err := Create(sess, Request{PostingDate: "2024-01-01", EffectiveDate: "2024-01-01", Amount: []any{}})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(created))
	assert.Equal(t, nil, Result(created))
}

func TestCreateTransactionFunction(t *testing.T) {
	reg := interp.NewRegistry()
	assert.NoError(t, Register(reg))
	env := interp.NewEnv(context.Background(), session.New(), reg.Freeze())

	v, err := interp.Evaluate(env, `createTransaction("2024-01-15", "2024-01-15", "Interest Accrual", 1250.5)`, nil)
	assert.NoError(t, err)
	got, ok := v.(session.Transaction)
	assert.True(t, ok)
	assert.Equal(t, "1", got.SubInstrumentID)
	assert.Equal(t, 1250.5, got.Amount)

	v, err = interp.Evaluate(env, `createTransaction("2024-01-15", "2024-01-15", "Fee", [1, 2], ["A", "B"])`, nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(value.ToList(v)))

	v, err = interp.Evaluate(env, `createTransaction("", "2024-01-15", "Fee", 1)`, nil)
	assert.NoError(t, err)
	assert.Equal(t, nil, v)

	assert.Equal(t, 3, len(env.Session.Transactions()))
}
