// Package loader reads programs and the data rows they run against.
//
// Programs are plain text (.dsl, .txt or any other extension) or YAML
// definitions (.yaml, .yml) that declare events next to the code. Data rows
// come from JSON arrays of objects, YAML sequences of mappings, CSV files
// with a header row, or Excel workbooks whose first row is the header.
//
// Example usage:
//
//	ldr := loader.New(loader.WithBaseDir("testdata"))
//	prog, err := ldr.LoadProgram(ctx, "revenue.yaml")
//	rows, err := ldr.LoadData(ctx, "orders.csv")
package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/robinvdvleuten/ledgerscript/program"
	"github.com/robinvdvleuten/ledgerscript/telemetry"
	"github.com/robinvdvleuten/ledgerscript/value"
)

// ErrUnsupportedFormat is returned for data files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported data format")

// Loader reads program and data files.
//
// Configure the loader using functional options passed to New:
//
//	loader := New(WithSheet("Events"))
type Loader struct {
	// BaseDir resolves relative paths. Empty means the working directory.
	BaseDir string
	// Sheet selects the worksheet of .xlsx data files. Empty means the
	// first sheet.
	Sheet string
}

// Option configures how files are loaded.
type Option func(*Loader)

// WithBaseDir resolves relative file names against dir.
func WithBaseDir(dir string) Option {
	return func(l *Loader) {
		l.BaseDir = dir
	}
}

// WithSheet selects the worksheet read from workbooks.
func WithSheet(name string) Option {
	return func(l *Loader) {
		l.Sheet = name
	}
}

// New creates a new Loader with the given options.
func New(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) path(filename string) string {
	if l.BaseDir == "" || filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(l.BaseDir, filename)
}

// LoadProgram reads and parses a program file.
func (l *Loader) LoadProgram(ctx context.Context, filename string) (*program.Program, error) {
	data, err := os.ReadFile(l.path(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return ParseProgram(ctx, filename, data)
}

// ParseProgram parses program source, treating .yaml and .yml files as
// definitions.
func ParseProgram(ctx context.Context, filename string, data []byte) (*program.Program, error) {
	if IsDefinition(filename) {
		def, err := program.ParseDefinition(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		return program.FromDefinition(ctx, filename, def)
	}
	return program.Parse(ctx, filename, data)
}

// IsDefinition reports whether filename names a YAML program definition.
func IsDefinition(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadData reads the data rows of a file, choosing the format by extension.
func (l *Loader) LoadData(ctx context.Context, filename string) ([]*value.Dict, error) {
	timer := telemetry.StartTimer(ctx, "loader.data")
	defer timer.End()

	path := l.path(filename)
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", filename, err)
		}
		defer func() { _ = f.Close() }()
		rows, err := l.sheetRows(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		return rows, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	rows, err := ParseData(filename, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return rows, nil
}

// LoadEvents reads one data file per event and merges them into one row per
// instrument. Keys are event names.
func (l *Loader) LoadEvents(ctx context.Context, files map[string]string) ([]*value.Dict, error) {
	events := make(map[string][]*value.Dict, len(files))
	for name, filename := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := l.LoadData(ctx, filename)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", name, err)
		}
		events[name] = rows
	}
	return program.MergeEvents(events), nil
}

// ParseData decodes text data rows by the extension of filename.
func ParseData(filename string, data []byte) ([]*value.Dict, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return parseJSON(data)
	case ".yaml", ".yml":
		return parseYAML(data)
	case ".csv":
		return parseCSV(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

func parseJSON(data []byte) ([]*value.Dict, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return rowsOf(value.FromGo(raw))
}

// parseYAML walks the node tree so that row keys keep their file order and
// timestamps stay text.
func parseYAML(data []byte) ([]*value.Dict, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	v, err := fromNode(doc.Content[0])
	if err != nil {
		return nil, err
	}
	return rowsOf(v)
}

func fromNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return fromNode(n.Alias)
	case yaml.SequenceNode:
		out := make([]any, len(n.Content))
		for i, c := range n.Content {
			v, err := fromNode(c)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case yaml.MappingNode:
		d := value.NewDict()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := fromNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			d.Set(n.Content[i].Value, v)
		}
		return d, nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return nil, nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return nil, err
			}
			return b, nil
		case "!!int", "!!float":
			var f float64
			if err := n.Decode(&f); err != nil {
				return nil, err
			}
			return f, nil
		}
		return n.Value, nil
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
}

// rowsOf accepts a list of objects, a single object, or an object whose
// "rows" key holds the list.
func rowsOf(v any) ([]*value.Dict, error) {
	if d, ok := v.(*value.Dict); ok {
		if inner, ok := d.Get("rows"); ok && value.IsList(inner) {
			v = value.ToList(inner)
		} else {
			return []*value.Dict{d}, nil
		}
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of objects, got %s", value.TypeName(v))
	}
	rows := make([]*value.Dict, 0, len(items))
	for i, item := range items {
		d, ok := item.(*value.Dict)
		if !ok {
			return nil, fmt.Errorf("row %d: expected an object, got %s", i+1, value.TypeName(item))
		}
		rows = append(rows, d)
	}
	return rows, nil
}

func parseCSV(r io.Reader) ([]*value.Dict, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid CSV: %w", err)
	}
	return table(records), nil
}

func (l *Loader) sheetRows(f *excelize.File) ([]*value.Dict, error) {
	sheet := l.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	return table(records), nil
}

// table turns a header row plus records into rows. Short records leave the
// missing columns unset and blank records are skipped.
func table(records [][]string) []*value.Dict {
	if len(records) == 0 {
		return nil
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
	}

	rows := make([]*value.Dict, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		d := value.NewDict()
		for i, h := range header {
			if h == "" || i >= len(rec) {
				continue
			}
			d.Set(h, cell(rec[i]))
		}
		rows = append(rows, d)
	}
	return rows
}

func blank(rec []string) bool {
	for _, s := range rec {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

// cell converts numeric text to a number; everything else stays text.
// Zero-padded identifiers such as "00123" are kept as text.
func cell(s string) any {
	t := strings.TrimSpace(s)
	if t == "" || !numeric.MatchString(t) {
		return s
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return s
	}
	return f
}

var numeric = regexp.MustCompile(`^[-+]?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][-+]?[0-9]+)?$`)
