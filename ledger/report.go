package ledger

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/ledgerscript/session"
	"github.com/robinvdvleuten/ledgerscript/txn"
)

// CSVHeader is the column order of exported transactions.
var CSVHeader = []string{"postingdate", "effectivedate", "instrumentid", "subinstrumentid", "transactiontype", "amount"}

// Report is the outcome of one recorded run.
type Report struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Events       []string              `json:"events"`
	Transactions []session.Transaction `json:"transactions"`
	ExecutedAt   time.Time             `json:"executed_at"`
}

// Balances sums the report's transactions per instrument and type.
func (r *Report) Balances() []*Balance {
	return Balances(r.Transactions)
}

// Total sums the report's transaction amounts.
func (r *Report) Total() decimal.Decimal {
	return Total(r.Transactions)
}

// WriteCSV writes the report's transactions as CSV.
func (r *Report) WriteCSV(w io.Writer) error {
	return WriteCSV(w, r.Transactions)
}

// WriteCSV writes txns as CSV with a CSVHeader header row. An empty
// sub-instrument id is written as the default id.
func WriteCSV(w io.Writer, txns []session.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, tx := range txns {
		sub := tx.SubInstrumentID
		if sub == "" {
			sub = txn.DefaultSubInstrumentID
		}
		record := []string{
			tx.PostingDate,
			tx.EffectiveDate,
			tx.InstrumentID,
			sub,
			tx.TransactionType,
			decimal.NewFromFloat(tx.Amount).String(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
