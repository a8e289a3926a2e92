package program

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Field datatypes understood by event definitions.
const (
	Decimal = "decimal"
	Integer = "integer"
	Date    = "date"
	Boolean = "boolean"
	String  = "string"
)

// Event types. Reference events carry no posting or effective date of
// their own.
const (
	Activity  = "activity"
	Reference = "reference"
)

// Definition is a program definition file: the code plus the events whose
// fields it reads.
//
//	name: revenue
//	instrument: ORDER
//	events:
//	  SALE:
//	    fields:
//	      - {name: amount, datatype: decimal}
//	      - {name: start, datatype: date}
//	code: |
//	  createTransaction(postingdate, effectivedate, "Revenue", SALE.amount)
type Definition struct {
	Name        string           `yaml:"name" json:"name"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty"`
	Instrument  string           `yaml:"instrument,omitempty" json:"instrument,omitempty"`
	Events      map[string]Event `yaml:"events,omitempty" json:"events,omitempty"`
	Code        string           `yaml:"code" json:"code"`
}

// Event lists the typed fields of one event.
type Event struct {
	Type   string  `yaml:"type,omitempty" json:"type,omitempty"`
	Fields []Field `yaml:"fields" json:"fields"`
}

// Field is one typed event field.
type Field struct {
	Name     string `yaml:"name" json:"name"`
	Datatype string `yaml:"datatype,omitempty" json:"datatype,omitempty"`
}

// ParseDefinition decodes and validates a YAML definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("invalid program definition: %w", err)
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *Definition) validate() error {
	if strings.TrimSpace(d.Code) == "" {
		return fmt.Errorf("program definition %q has no code", d.Name)
	}
	for name, ev := range d.Events {
		switch strings.ToLower(ev.Type) {
		case "", Activity, Reference:
		default:
			return fmt.Errorf("event %s: unknown type %q, expected %s or %s", name, ev.Type, Activity, Reference)
		}
		for _, f := range ev.Fields {
			if f.Name == "" {
				return fmt.Errorf("event %s: field without a name", name)
			}
			switch strings.ToLower(f.Datatype) {
			case "", Decimal, Integer, "int", Date, Boolean, String:
			default:
				return fmt.Errorf("event %s: field %s has unknown datatype %q", name, f.Name, f.Datatype)
			}
		}
	}
	return nil
}

// isActivity reports whether the event has its own dates.
func (e Event) isActivity() bool {
	return !strings.EqualFold(e.Type, Reference)
}
