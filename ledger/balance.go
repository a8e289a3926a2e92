package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/ledgerscript/session"
)

// Balance is the sum of one transaction type on one instrument.
type Balance struct {
	InstrumentID    string          `json:"instrumentid"`
	TransactionType string          `json:"transactiontype"`
	Amount          decimal.Decimal `json:"amount"`
	Count           int             `json:"count"`
}

type balanceKey struct {
	instrument string
	kind       string
}

// Balances sums txns per instrument and transaction type, sorted by
// instrument then type.
func Balances(txns []session.Transaction) []*Balance {
	sums := make(map[balanceKey]*Balance)
	for _, tx := range txns {
		key := balanceKey{tx.InstrumentID, tx.TransactionType}
		b, ok := sums[key]
		if !ok {
			b = &Balance{InstrumentID: tx.InstrumentID, TransactionType: tx.TransactionType}
			sums[key] = b
		}
		b.Amount = b.Amount.Add(decimal.NewFromFloat(tx.Amount))
		b.Count++
	}

	balances := make([]*Balance, 0, len(sums))
	for _, b := range sums {
		balances = append(balances, b)
	}

	// Sort for deterministic order
	sort.Slice(balances, func(i, j int) bool {
		if balances[i].InstrumentID != balances[j].InstrumentID {
			return balances[i].InstrumentID < balances[j].InstrumentID
		}
		return balances[i].TransactionType < balances[j].TransactionType
	})
	return balances
}

// Total sums the amounts of txns.
func Total(txns []session.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txns {
		total = total.Add(decimal.NewFromFloat(tx.Amount))
	}
	return total
}
