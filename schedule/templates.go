package schedule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robinvdvleuten/ledgerscript/value"
)

// Template is a ready-made column set for a common accounting schedule.
type Template struct {
	Name        string
	Description string
	Columns     Columns
}

var templates = []Template{
	{
		Name:        "revenue",
		Description: "Revenue recognition (ASC 606) - daily proration",
		Columns: Columns{
			{"period_date", "period_date"},
			{"days_in_period", "add(days_between(start_of_month(period_date), end_of_month(period_date)), 1)"},
			{"daily_amount", "divide(amount, daily_basis)"},
			{"period_amount", "multiply(daily_amount, days_in_period)"},
		},
	},
	{
		Name:        "straight_line",
		Description: "Straight-line amortization (equal periods)",
		Columns: Columns{
			{"period_date", "period_date"},
			{"period_number", "add(period_index, 1)"},
			{"period_amount", "divide(amount, total_periods)"},
			{"cumulative", "multiply(period_amount, add(period_index, 1))"},
			{"remaining", "subtract(amount, cumulative)"},
		},
	},
	{
		Name:        "accrual",
		Description: "Interest/fee accrual - daily basis",
		Columns: Columns{
			{"period_date", "period_date"},
			{"days_in_period", "add(days_between(start_of_month(period_date), end_of_month(period_date)), 1)"},
			{"daily_rate", "divide(rate, daily_basis)"},
			{"period_accrual", "multiply(multiply(amount, daily_rate), days_in_period)"},
			{"cumulative_accrual", "lag('cumulative_accrual', 1, 0) + period_accrual"},
		},
	},
	{
		Name:        "fas91",
		Description: "FAS-91 fee amortization - effective interest method",
		Columns: Columns{
			{"period_date", "period_date"},
			{"period_number", "add(period_index, 1)"},
			{"opening_balance", "lag('closing_balance', 1, amount)"},
			{"period_amortization", "divide(amount, total_periods)"},
			{"closing_balance", "subtract(opening_balance, period_amortization)"},
		},
	},
	{
		Name:        "depreciation",
		Description: "Asset depreciation - straight line",
		Columns: Columns{
			{"period_date", "period_date"},
			{"period_number", "add(period_index, 1)"},
			{"opening_value", "lag('closing_value', 1, amount)"},
			{"period_depreciation", "divide(subtract(amount, salvage_value), total_periods)"},
			{"accumulated_depreciation", "multiply(period_depreciation, add(period_index, 1))"},
			{"closing_value", "subtract(amount, accumulated_depreciation)"},
		},
	},
	{
		Name:        "lease",
		Description: "Lease schedule (ASC 842) - straight line",
		Columns: Columns{
			{"period_date", "period_date"},
			{"period_number", "add(period_index, 1)"},
			{"lease_expense", "divide(amount, total_periods)"},
			{"cumulative_expense", "multiply(lease_expense, add(period_index, 1))"},
			{"remaining_liability", "subtract(amount, cumulative_expense)"},
		},
	},
}

// Templates returns the built-in templates, sorted by name.
func Templates() []Template {
	out := append([]Template(nil), templates...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TemplateNames lists the template names, sorted.
func TemplateNames() []string {
	ts := Templates()
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Name
	}
	return names
}

// LookupTemplate finds a template by name.
func LookupTemplate(name string) (Template, error) {
	for _, t := range templates {
		if t.Name == name {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("unknown schedule template '%s'; available: %s", name, strings.Join(TemplateNames(), ", "))
}

// ColumnDict returns the columns as the dict schedule() expects.
func (t Template) ColumnDict() *value.Dict {
	d := value.NewDict()
	for _, c := range t.Columns {
		d.Set(c.Name, c.Expr)
	}
	return d
}

// Dict is the template as returned by schedule_template.
func (t Template) Dict() *value.Dict {
	return value.DictOf(
		"name", t.Name,
		"description", t.Description,
		"columns", t.ColumnDict(),
	)
}

// Program renders a runnable program that expands the template over the
// event's amount and date range and emits the current month's amounts.
func (t Template) Program() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", t.Description)
	b.WriteString("columns = {\n")
	for i, c := range t.Columns {
		sep := ","
		if i == len(t.Columns)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "    %s: %s%s\n", quote(c.Name), quote(c.Expr), sep)
	}
	b.WriteString("}\n")
	b.WriteString("results = generate_schedules(amounts, start_dates, end_dates, columns)\n")
	b.WriteString("print_all_schedules(results)\n")
	b.WriteString("recognized = find_period_amounts(results, postingdate)\n")
	b.WriteString("create_schedule_transactions(recognized, postingdate)\n")
	return b.String()
}

func quote(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
