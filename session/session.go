// Package session holds the per-run mutable state of a DSL program: the
// current instrument id, the transaction and print accumulators, and the
// evaluation guard consulted by schedule aggregators.
//
// A Session belongs to exactly one run at a time. Concurrent runs each get
// their own Session; nothing in this package is shared between them.
package session

import (
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/robinvdvleuten/ledgerscript/logger"
)

// DefaultInstrumentID is used when a program runs without data rows.
const DefaultInstrumentID = "STANDALONE"

// Session is the execution state threaded through every core call.
type Session struct {
	ID string

	instrumentID string
	transactions []Transaction
	prints       []string
	guard        int

	log  zerolog.Logger
	echo io.Writer
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. The session adds its run id to every entry.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// WithEcho mirrors every printed line to w as it is recorded.
func WithEcho(w io.Writer) Option {
	return func(s *Session) {
		s.echo = w
	}
}

// WithID overrides the generated run id.
func WithID(id string) Option {
	return func(s *Session) {
		s.ID = id
	}
}

// New creates a Session with a fresh run id.
func New(opts ...Option) *Session {
	s := &Session{
		ID:           uuid.NewString(),
		instrumentID: DefaultInstrumentID,
		log:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("run_id", s.ID).Logger()
	return s
}

// Reset clears the accumulators and restores the default instrument id.
// The harness calls it at the start of each program run.
func (s *Session) Reset() {
	s.instrumentID = DefaultInstrumentID
	s.transactions = nil
	s.prints = nil
	s.guard = 0
}

// InstrumentID returns the instrument id stamped on new transactions.
func (s *Session) InstrumentID() string {
	return s.instrumentID
}

// SetInstrumentID changes the current instrument id.
func (s *Session) SetInstrumentID(id string) {
	s.instrumentID = id
}

// Emit appends a transaction to the accumulator.
func (s *Session) Emit(t Transaction) {
	s.transactions = append(s.transactions, t)
	s.log.Debug().
		Str("instrument", t.InstrumentID).
		Str("subinstrument", t.SubInstrumentID).
		Str("type", t.TransactionType).
		Float64("amount", t.Amount).
		Msg("transaction emitted")
}

// Transactions returns a copy of the accumulated transactions.
func (s *Session) Transactions() []Transaction {
	out := make([]Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// Print records a line of program output.
func (s *Session) Print(line string) {
	s.prints = append(s.prints, line)
	if s.echo != nil {
		_, _ = io.WriteString(s.echo, line+"\n")
	}
}

// Prints returns a copy of the recorded output lines.
func (s *Session) Prints() []string {
	out := make([]string, len(s.prints))
	copy(out, s.prints)
	return out
}

// Enter marks the start of schedule column evaluation.
func (s *Session) Enter() {
	s.guard++
}

// Leave marks the end of schedule column evaluation.
func (s *Session) Leave() {
	if s.guard > 0 {
		s.guard--
	}
}

// Guarded reports whether a schedule is currently under construction.
func (s *Session) Guarded() bool {
	return s.guard > 0
}

// Logger returns the session logger.
func (s *Session) Logger() *zerolog.Logger {
	return &s.log
}
