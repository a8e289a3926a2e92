package session

import (
	"bytes"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestNewSessionDefaults(t *testing.T) {
	s := New()
	assert.NotEqual(t, "", s.ID)
	assert.Equal(t, DefaultInstrumentID, s.InstrumentID())
	assert.False(t, s.Guarded())
	assert.Equal(t, 0, len(s.Transactions()))
}

func TestSessionsAreIsolated(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, a.ID, b.ID)

	a.Emit(Transaction{PostingDate: "2024-01-01", Amount: 10})
	a.Print("hello")
	assert.Equal(t, 1, len(a.Transactions()))
	assert.Equal(t, 0, len(b.Transactions()))
	assert.Equal(t, 0, len(b.Prints()))
}

func TestReset(t *testing.T) {
	s := New()
	s.SetInstrumentID("LOAN-1")
	s.Emit(Transaction{Amount: 1})
	s.Print("x")
	s.Enter()

	s.Reset()

	assert.Equal(t, DefaultInstrumentID, s.InstrumentID())
	assert.Equal(t, 0, len(s.Transactions()))
	assert.Equal(t, 0, len(s.Prints()))
	assert.False(t, s.Guarded())
}

func TestGuardNesting(t *testing.T) {
	s := New()
	s.Enter()
	s.Enter()
	s.Leave()
	assert.True(t, s.Guarded())
	s.Leave()
	assert.False(t, s.Guarded())
	s.Leave()
	assert.False(t, s.Guarded())
}

func TestPrintEcho(t *testing.T) {
	var buf bytes.Buffer
	s := New(WithEcho(&buf), WithID("run-1"))
	s.Print("line one")
	assert.Equal(t, "run-1", s.ID)
	assert.Equal(t, "line one\n", buf.String())
	assert.Equal(t, []string{"line one"}, s.Prints())
}

func TestTransactionGet(t *testing.T) {
	txn := Transaction{PostingDate: "2024-01-31", SubInstrumentID: "2", Amount: 12.5}
	v, ok := txn.Get("amount")
	assert.True(t, ok)
	assert.Equal(t, any(12.5), v)
	_, ok = txn.Get("missing")
	assert.False(t, ok)
}
