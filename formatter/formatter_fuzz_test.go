package formatter

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/robinvdvleuten/ledgerscript/parser"
)

func FuzzFormatter(f *testing.F) {
	seeds := []string{
		"x = 1",
		"x = 1 + 2 * (3 - 4) / 5 // 6 % 7",
		"y = -x**2",
		"z = [1, 2, 3][0]",
		"d = {'a': 1, \"b\": [2, 3]}",
		"c = 1 if x > 0 and not y else 2",
		"createTransaction(postingdate, effectivedate, 'Fee', 10)",
		"net = SALE.amount * 0.9",
		"# comment\n\n// other\nx = 1",
		"p = pmt(\n    rate / 12,\n    12,\n    -principal,\n)",
		"s = schedule(period('2024-01-01', '2024-03-31'), {'n': 'period_number'})",
	}

	for _, seed := range seeds {
		f.Add([]byte(seed))
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("Formatter panicked: %v\nInput: %q", r, data)
			}
		}()

		ctx := context.Background()

		prog1, err := parser.ParseProgram(ctx, "fuzz.dsl", data)
		if err != nil {
			return
		}

		var buf bytes.Buffer
		fmtr := New(WithLineWidth(40))
		if err := fmtr.Format(ctx, prog1, &buf); err != nil {
			t.Errorf("Format failed: %v", err)
			return
		}
		formatted := buf.Bytes()

		// Parse(Format(Parse(x))) succeeds.
		prog2, err := parser.ParseProgram(ctx, "fuzz.dsl", formatted)
		if err != nil {
			t.Errorf("Re-parsing failed: %v\nOriginal: %q\nFormatted: %q", err, data, formatted)
			return
		}
		if len(prog2.Statements()) != len(prog1.Statements()) {
			t.Errorf("Statement count changed: %d -> %d", len(prog1.Statements()), len(prog2.Statements()))
		}

		// Format(Format(x)) == Format(x).
		var buf2 bytes.Buffer
		if err := fmtr.Format(ctx, prog2, &buf2); err != nil {
			t.Errorf("Second format failed: %v", err)
			return
		}
		if !bytes.Equal(buf.Bytes(), buf2.Bytes()) {
			t.Errorf("Not idempotent:\nFirst:  %q\nSecond: %q", buf.Bytes(), buf2.Bytes())
		}
	})
}

// BenchmarkFormat benchmarks the formatter on a generated program.
func BenchmarkFormat(b *testing.B) {
	var source strings.Builder
	for i := 0; i < 500; i++ {
		source.WriteString("# step\n")
		source.WriteString("amount = SALE.amount * 0.9 + fee / 12\n")
		source.WriteString("createTransaction(postingdate, effectivedate, 'Revenue', amount, subinstrumentid)\n\n")
	}
	prog, err := parser.ParseProgram(context.Background(), "bench.dsl", []byte(source.String()))
	if err != nil {
		b.Fatal(err)
	}

	f := New()
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		if err := f.Format(context.Background(), prog, &buf); err != nil {
			b.Fatal(err)
		}
	}
}
