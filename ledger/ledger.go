// Package ledger keeps the transaction reports of program runs.
//
// Every recorded run becomes a report holding the transactions it emitted.
// The ledger keeps only the latest report per program name, so re-running a
// program replaces its previous report. Balances per instrument and
// transaction type are summed with decimal arithmetic to avoid floating
// point drift across many rows.
//
// Example usage:
//
//	l := ledger.New()
//	report := l.Record(ctx, "fees.dsl", nil, result.Transactions)
//	for _, b := range report.Balances() {
//	    fmt.Println(b.InstrumentID, b.TransactionType, b.Amount)
//	}
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/robinvdvleuten/ledgerscript/logger"
	"github.com/robinvdvleuten/ledgerscript/session"
	"github.com/robinvdvleuten/ledgerscript/telemetry"
)

// ErrReportNotFound is returned when no report has the requested id.
var ErrReportNotFound = errors.New("report not found")

// Ledger stores reports in memory. It is safe for concurrent use.
type Ledger struct {
	mu      sync.RWMutex
	reports map[string]*Report // id -> report
	byName  map[string]string  // program name -> report id
	now     func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the clock used to stamp reports.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		reports: make(map[string]*Report),
		byName:  make(map[string]string),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record stores txns as the report of the named program, replacing any
// earlier report of that program. events lists the event names the run
// read.
func (l *Ledger) Record(ctx context.Context, name string, events []string, txns []session.Transaction) *Report {
	timer := telemetry.StartTimer(ctx, fmt.Sprintf("ledger.record (%d transactions)", len(txns)))
	defer timer.End()

	report := &Report{
		ID:           uuid.NewString(),
		Name:         name,
		Events:       append([]string{}, events...),
		Transactions: append([]session.Transaction{}, txns...),
		ExecutedAt:   l.now().UTC(),
	}

	l.mu.Lock()
	if previous, ok := l.byName[name]; ok {
		delete(l.reports, previous)
	}
	l.reports[report.ID] = report
	l.byName[name] = report.ID
	l.mu.Unlock()

	log := logger.FromContext(ctx)
	log.Debug().
		Str("report", report.ID).
		Str("name", name).
		Int("transactions", len(txns)).
		Msg("report recorded")

	return report
}

// Get returns the report with the given id.
func (l *Ledger) Get(id string) (*Report, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	report, ok := l.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	return report, nil
}

// Reports returns all reports, newest first.
func (l *Ledger) Reports() []*Report {
	l.mu.RLock()
	reports := make([]*Report, 0, len(l.reports))
	for _, r := range l.reports {
		reports = append(reports, r)
	}
	l.mu.RUnlock()

	sort.Slice(reports, func(i, j int) bool {
		if !reports[i].ExecutedAt.Equal(reports[j].ExecutedAt) {
			return reports[i].ExecutedAt.After(reports[j].ExecutedAt)
		}
		return reports[i].Name < reports[j].Name
	})
	return reports
}

// Len returns the number of stored reports.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.reports)
}

// Clear removes every report.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reports = make(map[string]*Report)
	l.byName = make(map[string]string)
}
