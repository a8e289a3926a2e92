package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/xuri/excelize/v2"

	"github.com/robinvdvleuten/ledgerscript/value"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadPlainProgram(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "fee.dsl", "# fee\nfee = 10\ncreateTransaction(postingdate, effectivedate, 'Fee', fee)\n")

	prog, err := New(WithBaseDir(dir)).LoadProgram(context.Background(), "fee.dsl")
	assert.NoError(t, err)
	assert.Equal(t, "fee.dsl", prog.Name)
	assert.Equal(t, 2, len(prog.Statements()))
	assert.Equal(t, 0, len(prog.Events))
}

func TestLoadDefinitionProgram(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "loan.yaml", `
name: loan
description: Monthly interest
instrument: LOAN
events:
  INT:
    fields:
      - {name: balance, datatype: decimal}
code: |
  interest = INT.balance * 0.01
`)

	prog, err := New(WithBaseDir(dir)).LoadProgram(context.Background(), "loan.yaml")
	assert.NoError(t, err)
	assert.Equal(t, "loan", prog.Name)
	assert.Equal(t, "LOAN", prog.Instrument)
	assert.Equal(t, []string{"INT"}, prog.EventNames())
	assert.Equal(t, "INT_balance * 0.01", prog.Statements()[0].Source)
}

func TestLoadProgramMissingFile(t *testing.T) {
	_, err := New(WithBaseDir(t.TempDir())).LoadProgram(context.Background(), "nope.dsl")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseData(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     string
		want     []*value.Dict
	}{
		{
			name:     "JSONArray",
			filename: "rows.json",
			data:     `[{"instrumentid": "A", "amount": 10}, {"instrumentid": "B", "amount": 2.5, "active": true}]`,
			want: []*value.Dict{
				value.DictOf("amount", 10.0, "instrumentid", "A"),
				value.DictOf("active", true, "amount", 2.5, "instrumentid", "B"),
			},
		},
		{
			name:     "JSONRowsKey",
			filename: "rows.json",
			data:     `{"rows": [{"instrumentid": "A"}]}`,
			want:     []*value.Dict{value.DictOf("instrumentid", "A")},
		},
		{
			name:     "YAMLKeepsOrderAndDates",
			filename: "rows.yaml",
			data:     "- instrumentid: A\n  postingdate: 2024-01-31\n  amount: 12\n  note: ~\n",
			want: []*value.Dict{
				value.DictOf("instrumentid", "A", "postingdate", "2024-01-31", "amount", 12.0, "note", nil),
			},
		},
		{
			name:     "CSV",
			filename: "rows.csv",
			data:     "\uFEFFinstrumentid,amount,code\nA,100,007\n,,\nB,-1.5e2,x\nC\n",
			want: []*value.Dict{
				value.DictOf("instrumentid", "A", "amount", 100.0, "code", "007"),
				value.DictOf("instrumentid", "B", "amount", -150.0, "code", "x"),
				value.DictOf("instrumentid", "C"),
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rows, err := ParseData(test.filename, []byte(test.data))
			assert.NoError(t, err)
			assert.Equal(t, len(test.want), len(rows))
			for i := range rows {
				assert.Equal(t, test.want[i].Keys(), rows[i].Keys())
				for _, k := range rows[i].Keys() {
					assert.Equal(t, test.want[i].Lookup(k), rows[i].Lookup(k), k)
				}
			}
		})
	}
}

func TestParseDataErrors(t *testing.T) {
	_, err := ParseData("rows.txt", nil)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = ParseData("rows.json", []byte(`[1, 2]`))
	assert.EqualError(t, err, "row 1: expected an object, got float")

	_, err = ParseData("rows.json", []byte(`"x"`))
	assert.EqualError(t, err, "expected a list of objects, got str")
}

func TestLoadXLSX(t *testing.T) {
	dir := t.TempDir()
	f := excelize.NewFile()
	_, err := f.NewSheet("Events")
	assert.NoError(t, err)
	assert.NoError(t, f.SetSheetRow("Events", "A1", &[]any{"instrumentid", "postingdate", "amount"}))
	assert.NoError(t, f.SetSheetRow("Events", "A2", &[]any{"L-1", "2024-03-31", 250}))
	assert.NoError(t, f.SaveAs(filepath.Join(dir, "events.xlsx")))
	assert.NoError(t, f.Close())

	rows, err := New(WithBaseDir(dir), WithSheet("Events")).LoadData(context.Background(), "events.xlsx")
	assert.NoError(t, err)
	assert.Equal(t, 1, len(rows))
	assert.Equal(t, "L-1", rows[0].Lookup("instrumentid"))
	assert.Equal(t, "2024-03-31", rows[0].Lookup("postingdate"))
	assert.Equal(t, 250.0, rows[0].Lookup("amount"))

	_, err = New(WithBaseDir(dir), WithSheet("Missing")).LoadData(context.Background(), "events.xlsx")
	assert.Error(t, err)
}

func TestLoadEvents(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pmt.csv", "instrumentid,postingdate,paid\nL1,2024-01-31,10\nL1,2024-02-29,20\n")
	writeFile(t, dir, "acc.json", `[{"instrumentid": "L1", "postingdate": "2024-02-29", "accrued": 5}]`)

	rows, err := New(WithBaseDir(dir)).LoadEvents(context.Background(), map[string]string{
		"PMT": "pmt.csv",
		"ACC": "acc.json",
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, len(rows))
	assert.Equal(t, 20.0, rows[0].Lookup("PMT_paid"))
	assert.Equal(t, 5.0, rows[0].Lookup("ACC_accrued"))
}
