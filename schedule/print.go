package schedule

import (
	"fmt"
	"strings"

	"github.com/robinvdvleuten/ledgerscript/session"
	"github.com/robinvdvleuten/ledgerscript/value"
)

// PrintSchedule writes a titled JSON rendering of rows to the session.
func PrintSchedule(sess *session.Session, rows any, title string) {
	if !value.Truthy(rows) {
		sess.Print(title + ": (Empty schedule)")
		return
	}
	sess.Print("═══ " + title + " ═══")
	sess.Print(value.JSON(rows))
}

// PrintAll prints expansion results or a list of schedules, one titled block
// each. names override the default titles.
func PrintAll(sess *session.Session, v any, names []any) {
	if !value.Truthy(v) {
		return
	}
	name := func(i int, def string) any {
		if i < len(names) {
			return names[i]
		}
		return def
	}

	if in, ok := InputFrom(v).(Results); ok {
		for i, r := range in.Items {
			label := r.ItemName
			if label == nil {
				label = name(i, fmt.Sprintf("Item %d", i+1))
			}
			if len(r.Schedule) == 0 {
				sess.Print(value.Str(label) + ": (No schedule - zero amount)")
				continue
			}
			PrintSchedule(sess, r.Schedule, value.Str(label)+" Schedule")
		}
		return
	}

	for i, item := range value.ToList(v) {
		label := value.Str(name(i, fmt.Sprintf("Schedule %d", i+1)))
		if !value.Truthy(item) {
			sess.Print(label + ": (Empty)")
			continue
		}
		PrintSchedule(sess, item, label)
	}
}

// Print implements the DSL print. A single schedule-shaped argument is
// printed as schedules; anything else prints its arguments separated by
// spaces, with lists and dicts as indented JSON.
func Print(sess *session.Session, args []any) {
	if len(args) == 1 {
		switch obj := args[0]; {
		case isResults(obj):
			PrintAll(sess, obj, nil)
			return
		case value.IsList(obj) && value.Truthy(obj):
			first := value.ToList(obj)[0]
			if value.IsList(first) {
				PrintAll(sess, obj, nil)
				return
			}
			if isScheduleRow(first) {
				PrintAll(sess, []any{obj}, nil)
				return
			}
		}
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = printable(a)
	}
	sess.Print(strings.Join(parts, " "))
}

func isResults(v any) bool {
	if _, ok := v.(*Result); ok {
		return true
	}
	if d, ok := v.(*value.Dict); ok {
		return d.Has("schedule")
	}
	if !value.IsList(v) || !value.Truthy(v) {
		return false
	}
	_, ok := ResultFrom(value.ToList(v)[0])
	return ok
}

func isScheduleRow(v any) bool {
	row, ok := v.(*value.Dict)
	return ok && (row.Has("period_date") || row.Has("period_revenue") || row.Has("period_amount"))
}

func printable(v any) string {
	switch v.(type) {
	case string, nil, bool:
		return value.Str(v)
	}
	if value.IsList(v) {
		return value.JSON(v)
	}
	if _, ok := v.(value.Keyed); ok {
		return value.JSON(v)
	}
	return value.Str(v)
}
