package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"

	"github.com/robinvdvleuten/ledgerscript/program"
)

const feeProgram = `x = 100
createTransaction("2024-01-31", "2024-01-31", "Fee", x / 4)
print("fee", x / 4)
`

const rowProgram = `fee = amount * 0.01
createTransaction(postingdate, effectivedate, "Fee", fee)
`

const rowData = `postingdate,effectivedate,instrumentid,amount
2024-01-31,2024-01-31,LOAN-1,1000
2024-01-31,2024-01-31,LOAN-2,2500
`

// execute parses args against the command tree and runs the selected
// command, capturing its output.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var cli Commands
	var stdout, stderr bytes.Buffer
	parser, err := kong.New(&cli,
		kong.Name("ledgerscript"),
		kong.Writers(&stdout, &stderr),
		kong.Exit(func(int) { t.Fatalf("unexpected exit") }),
		kong.Bind(&cli.Globals),
	)
	assert.NoError(t, err)

	ctx, err := parser.Parse(args)
	if err != nil {
		return stdout.String(), stderr.String(), err
	}
	err = ctx.Run()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunCmd(t *testing.T) {
	dir := t.TempDir()
	fees := writeFile(t, dir, "fees.dsl", feeProgram)
	rows := writeFile(t, dir, "rows.dsl", rowProgram)
	data := writeFile(t, dir, "loans.csv", rowData)

	t.Run("StandaloneText", func(t *testing.T) {
		stdout, _, err := execute(t, "run", fees)
		assert.NoError(t, err)
		assert.Contains(t, stdout, "fee 25\n")
		assert.Contains(t, stdout, "STANDALONE")
		assert.Contains(t, stdout, "25.00")
		assert.Contains(t, stdout, "1 transaction(s), total 25.00")
	})

	t.Run("RowsJSON", func(t *testing.T) {
		stdout, _, err := execute(t, "run", "--format=json", rows, data)
		assert.NoError(t, err)

		var result program.Result
		assert.NoError(t, json.Unmarshal([]byte(stdout), &result))
		assert.Equal(t, 2, len(result.Transactions))
		assert.Equal(t, "LOAN-1", result.Transactions[0].InstrumentID)
		assert.Equal(t, 10.0, result.Transactions[0].Amount)
		assert.Equal(t, "LOAN-2", result.Transactions[1].InstrumentID)
		assert.Equal(t, 25.0, result.Transactions[1].Amount)
	})

	t.Run("RowsCSV", func(t *testing.T) {
		stdout, _, err := execute(t, "run", "--format=csv", rows, data)
		assert.NoError(t, err)
		assert.Equal(t,
			"postingdate,effectivedate,instrumentid,subinstrumentid,transactiontype,amount\n"+
				"2024-01-31,2024-01-31,LOAN-1,1,Fee,10\n"+
				"2024-01-31,2024-01-31,LOAN-2,1,Fee,25\n",
			stdout)
	})

	t.Run("PostingDateOverrideYAML", func(t *testing.T) {
		stdout, _, err := execute(t, "run", "--format=yaml", "--posting-date=02/29/2024", rows, data)
		assert.NoError(t, err)

		var result program.Result
		assert.NoError(t, yaml.Unmarshal([]byte(stdout), &result))
		assert.Equal(t, 2, len(result.Transactions))
		for _, tx := range result.Transactions {
			assert.Equal(t, "2024-02-29", tx.PostingDate)
			assert.Equal(t, "2024-01-31", tx.EffectiveDate)
		}
	})

	t.Run("InvalidPostingDate", func(t *testing.T) {
		_, _, err := execute(t, "run", "--posting-date=someday", fees)
		assert.EqualError(t, err, `invalid posting date "someday"`)
	})

	t.Run("BatchOfDataSets", func(t *testing.T) {
		other := writeFile(t, dir, "more.json", `[{"postingdate": "2024-02-29", "effectivedate": "2024-02-29", "instrumentid": "LOAN-3", "amount": 300}]`)
		stdout, _, err := execute(t, "run", "--format=json", rows, data, other)
		assert.NoError(t, err)

		var results []program.Result
		assert.NoError(t, json.Unmarshal([]byte(stdout), &results))
		assert.Equal(t, 2, len(results))
		assert.Equal(t, 2, len(results[0].Transactions))
		assert.Equal(t, 1, len(results[1].Transactions))
		assert.Equal(t, 3.0, results[1].Transactions[0].Amount)
	})

	t.Run("OutputFile", func(t *testing.T) {
		out := writeFile(t, dir, "out.json", "stale")
		stdout, _, err := execute(t, "run", "--format=json", "--out", out, "--force", fees)
		assert.NoError(t, err)
		assert.Equal(t, "", stdout)

		content, err := os.ReadFile(out)
		assert.NoError(t, err)
		assert.Contains(t, string(content), `"transactiontype": "Fee"`)
	})

	t.Run("RefusesOverwriteWithoutTerminal", func(t *testing.T) {
		if isTerminal() {
			t.Skip("stdin is a terminal")
		}
		out := writeFile(t, dir, "keep.json", "keep")
		_, _, err := execute(t, "run", "--out", out, fees)
		assert.Error(t, err)

		content, err := os.ReadFile(out)
		assert.NoError(t, err)
		assert.Equal(t, "keep", string(content))
	})

	t.Run("StatementError", func(t *testing.T) {
		broken := writeFile(t, dir, "broken.dsl", "x = 1\ny = missing + x\n")
		_, stderr, err := execute(t, "run", broken)

		var cmdErr *CommandError
		assert.True(t, errors.As(err, &cmdErr))
		assert.Equal(t, 1, cmdErr.ExitCode())
		assert.Contains(t, stderr, "name 'missing' is not defined")
		assert.Contains(t, stderr, "   y = missing + x\n")
		assert.Contains(t, stderr, "1 statement error(s)")
	})

	t.Run("StatementErrorAsJSON", func(t *testing.T) {
		broken := writeFile(t, dir, "broken.dsl", "y = missing\n")
		_, stderr, err := execute(t, "run", "--format=json", broken)
		assert.Error(t, err)
		assert.Contains(t, stderr, `"message": "name 'missing' is not defined"`)
	})

	t.Run("ParseError", func(t *testing.T) {
		bad := writeFile(t, dir, "bad.dsl", "x = (1 +\n")
		_, stderr, err := execute(t, "run", bad)
		assert.Error(t, err)
		assert.Contains(t, stderr, "parse error")
	})
}

func TestEvalCmd(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"Arithmetic", []string{"eval", "1 + 2 * 3"}, "7\n"},
		{"Variables", []string{"eval", "--var", "principal=1000", "--var", "label=loan", "label + ' ' + str(principal)"}, "'loan 1000'\n"},
		{"JSON", []string{"eval", "--json", "[1, 2.5]"}, "[\n  1,\n  2.5\n]\n"},
		{"NoneIsSilent", []string{"eval", "None"}, ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			stdout, _, err := execute(t, test.args...)
			assert.NoError(t, err)
			assert.Equal(t, test.expected, stdout)
		})
	}

	t.Run("PrintsAndTransactions", func(t *testing.T) {
		stdout, _, err := execute(t, "eval", `createTransaction("2024-01-31", "2024-01-31", "Fee", 12.5)`)
		assert.NoError(t, err)
		assert.Contains(t, stdout, "12.50")
		assert.Contains(t, stdout, "1 transaction(s), total 12.50")
	})

	t.Run("Error", func(t *testing.T) {
		_, stderr, err := execute(t, "eval", "1 / 0")
		assert.Error(t, err)
		assert.Contains(t, stderr, "division by zero")
	})
}

func TestParseVar(t *testing.T) {
	assert.Equal(t, any(1000.0), parseVar("1000"))
	assert.Equal(t, any(true), parseVar("True"))
	assert.Equal(t, any(nil), parseVar("None"))
	assert.Equal(t, any("2024-01-31"), parseVar("2024-01-31"))
}

func TestFunctionsCmd(t *testing.T) {
	t.Run("Category", func(t *testing.T) {
		stdout, _, err := execute(t, "functions", "--category=financial")
		assert.NoError(t, err)
		assert.Contains(t, stdout, "Financial")
		assert.Contains(t, stdout, "pmt(")
		assert.NotContains(t, stdout, "Depreciation")
	})

	t.Run("FilterAsJSON", func(t *testing.T) {
		stdout, _, err := execute(t, "functions", "--json", "pmt")
		assert.NoError(t, err)

		var infos []FunctionInfo
		assert.NoError(t, json.Unmarshal([]byte(stdout), &infos))
		assert.True(t, len(infos) > 0)
		for _, info := range infos {
			assert.Contains(t, info.Name, "pmt")
		}
	})

	t.Run("UnknownCategory", func(t *testing.T) {
		_, _, err := execute(t, "functions", "--category=astrology")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), `unknown category "astrology"`)
	})
}

func TestTemplateCmd(t *testing.T) {
	t.Run("ByName", func(t *testing.T) {
		stdout, _, err := execute(t, "template", "straight_line")
		assert.NoError(t, err)
		assert.Contains(t, stdout, "# Straight-line amortization (equal periods)\n")
		assert.Contains(t, stdout, "generate_schedules(amounts, start_dates, end_dates, columns)")
	})

	t.Run("List", func(t *testing.T) {
		stdout, _, err := execute(t, "template", "--list")
		assert.NoError(t, err)
		for _, name := range []string{"accrual", "depreciation", "fas91", "lease", "revenue", "straight_line"} {
			assert.Contains(t, stdout, name)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		_, _, err := execute(t, "template", "nope")
		assert.Error(t, err)
	})
}

func TestFmtCmd(t *testing.T) {
	dir := t.TempDir()

	t.Run("Stdout", func(t *testing.T) {
		file := writeFile(t, dir, "messy.dsl", "x=1+2\n\n\n# note\ny = SALE.amount*x\n")
		stdout, _, err := execute(t, "fmt", file)
		assert.NoError(t, err)
		assert.Equal(t, "x = 1 + 2\n\n# note\ny = SALE.amount * x\n", stdout)
	})

	t.Run("Check", func(t *testing.T) {
		clean := writeFile(t, dir, "clean.dsl", "x = 1\n")
		_, _, err := execute(t, "fmt", "--check", clean)
		assert.NoError(t, err)

		messy := writeFile(t, dir, "messy2.dsl", "x=1\n")
		_, stderr, err := execute(t, "fmt", "--check", messy)
		assert.Error(t, err)
		assert.Contains(t, stderr, "is not formatted")
	})

	t.Run("Write", func(t *testing.T) {
		file := writeFile(t, dir, "inplace.dsl", "total=sum( [1,2] )\n")
		_, _, err := execute(t, "fmt", "--write", file)
		assert.NoError(t, err)

		content, err := os.ReadFile(file)
		assert.NoError(t, err)
		assert.Equal(t, "total = sum([1, 2])\n", string(content))
	})

	t.Run("RejectsDefinitions", func(t *testing.T) {
		file := writeFile(t, dir, "def.yaml", "name: x\ncode: x = 1\n")
		_, _, err := execute(t, "fmt", file)
		assert.Error(t, err)
	})
}

func TestDoctorCmd(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "lex.dsl", "net = amount * 0.9\n")

	t.Run("Lex", func(t *testing.T) {
		stdout, _, err := execute(t, "doctor", "lex", file)
		assert.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		assert.Equal(t, 5, len(lines))
		assert.True(t, strings.HasPrefix(lines[0], "IDENT      1:1"))
		assert.Contains(t, lines[0], `"net"`)
		assert.Contains(t, lines[4], `"0.9"`)
	})

	t.Run("Parse", func(t *testing.T) {
		stdout, _, err := execute(t, "doctor", "parse", file)
		assert.NoError(t, err)
		assert.Contains(t, stdout, "ast.Program")
		assert.Contains(t, stdout, `Target: "net"`)
	})
}
