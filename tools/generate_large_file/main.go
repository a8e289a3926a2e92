// Large Data File Generator
//
// This tool generates a large data file for performance testing and profiling.
// It creates realistic instrument rows (loans, leases and revenue contracts)
// to stress-test the data loader and the batch runner.
//
// Usage:
//
//	go run main.go > large.csv
//	go run main.go 20000000 > large.csv       # Specify target size in bytes
//	go run main.go 20000000 json > large.json # JSON array instead of CSV
package main

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultTargetSize = 10 * 1024 * 1024 // 10MB
)

var (
	columns = []string{
		"postingdate",
		"effectivedate",
		"instrumentid",
		"subinstrumentid",
		"product",
		"amount",
		"rate",
		"term",
		"fee",
		"start_date",
		"end_date",
	}

	products = []string{"LOAN", "LEASE", "REVENUE", "ASSET"}

	// Terms in months per product.
	terms = map[string][]int{
		"LOAN":    {12, 24, 36, 60, 120, 360},
		"LEASE":   {24, 36, 48, 60},
		"REVENUE": {1, 3, 6, 12},
		"ASSET":   {36, 60, 84, 120},
	}
)

type row struct {
	postingDate   time.Time
	effectiveDate time.Time
	instrumentID  string
	subID         int
	product       string
	amount        decimal.Decimal
	rate          decimal.Decimal
	term          int
	fee           decimal.Decimal
	start         time.Time
	end           time.Time
}

func main() {
	targetSize := defaultTargetSize
	if len(os.Args) > 1 {
		if size, err := strconv.Atoi(os.Args[1]); err == nil {
			targetSize = size
		}
	}

	asJSON := len(os.Args) > 2 && os.Args[2] == "json"

	if asJSON {
		fmt.Println("[")
	} else {
		fmt.Println(strings.Join(columns, ","))
	}

	// Month-end posting dates, advancing every few hundred rows
	postingDate := time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)

	bytesWritten := 0
	rowCount := 0

	for bytesWritten < targetSize {
		r := generateRow(postingDate, rowCount)

		var output string
		if asJSON {
			output = formatJSON(r)
			if rowCount > 0 {
				output = ",\n" + output
			}
		} else {
			output = formatCSV(r) + "\n"
		}
		fmt.Print(output)
		bytesWritten += len(output)
		rowCount++

		if rowCount%500 == 0 {
			postingDate = monthEnd(postingDate.AddDate(0, 0, 1))
		}
	}

	if asJSON {
		fmt.Println("\n]")
	}

	fmt.Fprintf(os.Stderr, "\nGenerated %d bytes with %d rows\n", bytesWritten, rowCount)
}

func generateRow(postingDate time.Time, n int) row {
	product := products[rand.Intn(len(products))]
	productTerms := terms[product]
	term := productTerms[rand.Intn(len(productTerms))]

	start := postingDate.AddDate(0, -rand.Intn(term), 0)
	start = time.Date(start.Year(), start.Month(), rand.Intn(28)+1, 0, 0, 0, 0, time.UTC)

	var amount, rate, fee decimal.Decimal
	switch product {
	case "LOAN":
		amount = randAmount(5_000, 500_000)
		rate = randRate(200, 900)
		fee = amount.Mul(decimal.NewFromFloat(0.01)).Round(2)
	case "LEASE":
		amount = randAmount(500, 5_000)
		rate = randRate(300, 700)
	case "REVENUE":
		amount = randAmount(100, 50_000)
	case "ASSET":
		amount = randAmount(1_000, 250_000)
		fee = amount.Mul(decimal.NewFromFloat(0.1)).Round(2) // salvage value
	}

	return row{
		postingDate:   postingDate,
		effectiveDate: postingDate.AddDate(0, 0, -rand.Intn(3)),
		instrumentID:  fmt.Sprintf("%s-%07d", product[:1], n),
		subID:         rand.Intn(3) + 1,
		product:       product,
		amount:        amount,
		rate:          rate,
		term:          term,
		fee:           fee,
		start:         start,
		end:           start.AddDate(0, term, -1),
	}
}

func formatCSV(r row) string {
	return strings.Join([]string{
		date(r.postingDate),
		date(r.effectiveDate),
		r.instrumentID,
		strconv.Itoa(r.subID),
		r.product,
		r.amount.StringFixed(2),
		r.rate.String(),
		strconv.Itoa(r.term),
		r.fee.StringFixed(2),
		date(r.start),
		date(r.end),
	}, ",")
}

func formatJSON(r row) string {
	return fmt.Sprintf(`  {"postingdate": %q, "effectivedate": %q, "instrumentid": %q, "subinstrumentid": %d, "product": %q, "amount": %s, "rate": %s, "term": %d, "fee": %s, "start_date": %q, "end_date": %q}`,
		date(r.postingDate), date(r.effectiveDate), r.instrumentID, r.subID, r.product,
		r.amount.StringFixed(2), r.rate.String(), r.term, r.fee.StringFixed(2),
		date(r.start), date(r.end))
}

func randAmount(minimum, maximum int) decimal.Decimal {
	cents := rand.Int63n(int64(maximum-minimum)*100) + int64(minimum)*100
	return decimal.New(cents, -2)
}

// randRate returns an annual rate between the given basis points.
func randRate(minBps, maxBps int) decimal.Decimal {
	return decimal.New(int64(rand.Intn(maxBps-minBps)+minBps), -4)
}

func monthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

func date(t time.Time) string {
	return t.Format("2006-01-02")
}
