package session

import "fmt"

// Transaction is a ledger transaction record produced by createTransaction.
type Transaction struct {
	PostingDate     string  `json:"postingdate" yaml:"postingdate"`
	EffectiveDate   string  `json:"effectivedate" yaml:"effectivedate"`
	InstrumentID    string  `json:"instrumentid" yaml:"instrumentid"`
	SubInstrumentID string  `json:"subinstrumentid" yaml:"subinstrumentid"`
	TransactionType string  `json:"transactiontype" yaml:"transactiontype"`
	Amount          float64 `json:"amount" yaml:"amount"`
}

// Get exposes the record fields to expressions by their wire names.
func (t Transaction) Get(key string) (any, bool) {
	switch key {
	case "postingdate":
		return t.PostingDate, true
	case "effectivedate":
		return t.EffectiveDate, true
	case "instrumentid":
		return t.InstrumentID, true
	case "subinstrumentid":
		return t.SubInstrumentID, true
	case "transactiontype":
		return t.TransactionType, true
	case "amount":
		return t.Amount, true
	}
	return nil, false
}

func (t Transaction) String() string {
	return fmt.Sprintf("{'postingdate': '%s', 'effectivedate': '%s', 'instrumentid': '%s', 'subinstrumentid': '%s', 'transactiontype': '%s', 'amount': %v}",
		t.PostingDate, t.EffectiveDate, t.InstrumentID, t.SubInstrumentID, t.TransactionType, t.Amount)
}
