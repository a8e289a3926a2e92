package output

import (
	"bytes"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestNewStyles(t *testing.T) {
	var buf bytes.Buffer
	styles := NewStyles(&buf)

	assert.NotZero(t, styles)
	assert.NotZero(t, styles.Output())
}

func TestStylesKeepText(t *testing.T) {
	var buf bytes.Buffer
	styles := NewStyles(&buf)

	tests := []struct {
		name  string
		style func(string) string
		text  string
	}{
		{"Success", styles.Success, "run finished"},
		{"Error", styles.Error, "statement failed"},
		{"FilePath", styles.FilePath, "/tmp/fees.dsl"},
		{"Function", styles.Function, "pmt(rate, nper, pv, fv=0, when=0)"},
		{"Literal", styles.Literal, "'2024-01-01'"},
		{"Keyword", styles.Keyword, "Financial"},
		{"Dim", styles.Dim, "1:5"},
		{"Warning", styles.Warning, "slow"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Contains(t, test.style(test.text), test.text)
		})
	}
}

func TestStylesAmount(t *testing.T) {
	var buf bytes.Buffer
	styles := NewStyles(&buf)

	assert.Contains(t, styles.Amount("-25.00", true), "-25.00")
	assert.Contains(t, styles.Amount("900.00", false), "900.00")
}

func TestStylesTiming(t *testing.T) {
	var buf bytes.Buffer
	styles := NewStyles(&buf)

	t.Run("FastOperation", func(t *testing.T) {
		assert.Contains(t, styles.Timing("5ms", false), "5ms")
	})

	t.Run("SlowOperation", func(t *testing.T) {
		assert.Contains(t, styles.Timing("500ms", true), "500ms")
	})
}
