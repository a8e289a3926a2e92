package program

import (
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/text/cases"

	"github.com/robinvdvleuten/ledgerscript/dates"
	"github.com/robinvdvleuten/ledgerscript/txn"
	"github.com/robinvdvleuten/ledgerscript/value"
)

// Standard row fields.
const (
	FieldPostingDate     = "postingdate"
	FieldEffectiveDate   = "effectivedate"
	FieldInstrumentID    = "instrumentid"
	FieldSubInstrumentID = "subinstrumentid"
)

var fold = cases.Fold()

// Row gives case-insensitive access to a data row.
type Row struct {
	data   *value.Dict
	folded map[string]string
}

// NewRow indexes d for case-insensitive lookups.
func NewRow(d *value.Dict) *Row {
	r := &Row{data: d, folded: make(map[string]string, d.Len())}
	for _, k := range d.Keys() {
		f := fold.String(k)
		if _, ok := r.folded[f]; !ok {
			r.folded[f] = k
		}
	}
	return r
}

// Get returns the value for key. An exact match wins over a case-folded one.
func (r *Row) Get(key string) (any, bool) {
	if v, ok := r.data.Get(key); ok {
		return v, true
	}
	if k, ok := r.folded[fold.String(key)]; ok {
		return r.data.Get(k)
	}
	return nil, false
}

// Lookup returns the value for key, or def when it is missing.
func (r *Row) Lookup(key string, def any) any {
	if v, ok := r.Get(key); ok {
		return v
	}
	return def
}

// Dict returns the underlying row.
func (r *Row) Dict() *value.Dict {
	return r.data
}

// dateField renders a row date for binding. Recognizable dates are
// normalized; anything else is kept as text.
func dateField(v any) string {
	if v == nil {
		return ""
	}
	if d := dates.Normalize(v); d != "" {
		return d
	}
	return value.Str(v)
}

func subInstrumentField(v any) string {
	if v == nil {
		return txn.DefaultSubInstrumentID
	}
	s := strings.TrimSpace(value.Str(v))
	if s == "" || s == "None" {
		return txn.DefaultSubInstrumentID
	}
	return s
}

// typed converts a raw row value to the declared datatype. Missing values
// become the type's zero value.
func typed(datatype string, v any) any {
	switch strings.ToLower(datatype) {
	case Decimal:
		return numberField(v)
	case Integer, "int":
		return float64(int64(numberField(v)))
	case Date:
		if v == nil {
			return ""
		}
		return dateField(v)
	case Boolean:
		switch x := v.(type) {
		case bool:
			return x
		case nil:
			return false
		}
		switch strings.ToLower(strings.TrimSpace(value.Str(v))) {
		case "true", "1", "yes":
			return true
		}
		return false
	default:
		if v == nil {
			return ""
		}
		return value.Str(v)
	}
}

func numberField(v any) float64 {
	if n, ok := value.Number(v); ok {
		return n
	}
	if s, ok := v.(string); ok {
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return 0
}

// MergeEvents combines per-event data sets into one row per instrument.
//
// Only the latest row (by posting date) of each instrument is kept per
// event. Every event contributes EVENT_postingdate, EVENT_effectivedate and
// EVENT_subinstrumentid, and each of its other fields both as EVENT_field
// and under its plain name. The standard fields of the first event that
// mentions an instrument win. Rows without an instrument id are dropped.
func MergeEvents(events map[string][]*value.Dict) []*value.Dict {
	names := maps.Keys(events)
	slices.Sort(names)

	var order []string
	merged := make(map[string]*value.Dict)

	for _, name := range names {
		for _, inst := range latestPerInstrument(events[name]) {
			row := inst.row
			out, ok := merged[inst.id]
			if !ok {
				out = value.DictOf(
					FieldInstrumentID, inst.id,
					FieldSubInstrumentID, subInstrumentField(row.Lookup(FieldSubInstrumentID, nil)),
					FieldPostingDate, row.Lookup(FieldPostingDate, ""),
					FieldEffectiveDate, row.Lookup(FieldEffectiveDate, ""),
				)
				merged[inst.id] = out
				order = append(order, inst.id)
			}

			out.Set(name+"_"+FieldPostingDate, row.Lookup(FieldPostingDate, ""))
			out.Set(name+"_"+FieldEffectiveDate, row.Lookup(FieldEffectiveDate, ""))
			out.Set(name+"_"+FieldSubInstrumentID, subInstrumentField(row.Lookup(FieldSubInstrumentID, nil)))

			row.Dict().Range(func(key string, v any) bool {
				if isStandardField(key) {
					return true
				}
				out.Set(name+"_"+key, v)
				out.Set(key, v)
				return true
			})
		}
	}

	rows := make([]*value.Dict, len(order))
	for i, id := range order {
		rows[i] = merged[id]
	}
	return rows
}

type instrumentRow struct {
	id  string
	row *Row
}

func latestPerInstrument(data []*value.Dict) []instrumentRow {
	var out []instrumentRow
	index := make(map[string]int)
	for _, d := range data {
		row := NewRow(d)
		id := value.Str(row.Lookup(FieldInstrumentID, ""))
		if id == "" || id == "None" {
			continue
		}
		i, seen := index[id]
		if !seen {
			index[id] = len(out)
			out = append(out, instrumentRow{id: id, row: row})
			continue
		}
		if value.Str(row.Lookup(FieldPostingDate, "")) > value.Str(out[i].row.Lookup(FieldPostingDate, "")) {
			out[i].row = row
		}
	}
	return out
}

func isStandardField(key string) bool {
	switch fold.String(key) {
	case FieldInstrumentID, FieldPostingDate, FieldEffectiveDate, FieldSubInstrumentID:
		return true
	}
	return false
}
