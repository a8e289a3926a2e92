package ast

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestPosition_Advance(t *testing.T) {
	start := Position{Filename: "fees.dsl", Offset: 10, Line: 3, Column: 5}

	tests := []struct {
		name     string
		text     string
		expected Position
	}{
		{"Empty", "", start},
		{"SameLine", "fee = ", Position{Filename: "fees.dsl", Offset: 16, Line: 3, Column: 11}},
		{"AcrossLines", "x = 1\n  y", Position{Filename: "fees.dsl", Offset: 19, Line: 4, Column: 4}},
		{"EndsWithNewline", "x\n", Position{Filename: "fees.dsl", Offset: 12, Line: 4, Column: 1}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, start.Advance(test.text))
		})
	}
}

func TestPosition_String(t *testing.T) {
	tests := []struct {
		name     string
		pos      Position
		expected string
	}{
		{"WithFilename", Position{Filename: "loan.dsl", Line: 10, Column: 5}, "loan.dsl:10:5"},
		{"WithoutFilename", Position{Line: 2, Column: 1}, "line 2:1"},
		{"Zero", Position{}, "-"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, test.pos.String())
		})
	}
}

func TestPosition_GoString(t *testing.T) {
	pos := Position{Filename: "loan.dsl", Offset: 42, Line: 3, Column: 7}
	assert.Equal(t, `ast.Position{"loan.dsl", 3:7}`, pos.GoString())
}
