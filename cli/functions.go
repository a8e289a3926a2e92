package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-runewidth"

	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/library"
	"github.com/robinvdvleuten/ledgerscript/output"
)

type FunctionsCmd struct {
	Filter   string `help:"Only list functions whose name contains this text." arg:"" optional:""`
	Category string `help:"Only list functions in this category (case-insensitive)." short:"c"`
	JSON     bool   `help:"Print the catalog as JSON."`
}

// FunctionInfo is the catalog entry of one function.
type FunctionInfo struct {
	Name        string `json:"name"`
	Signature   string `json:"signature"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

func (cmd *FunctionsCmd) Run(ctx *kong.Context) error {
	order, groups := library.Categories(library.Default())

	var selected []string
	for _, category := range order {
		if cmd.Category != "" && !strings.EqualFold(category, cmd.Category) {
			continue
		}
		var fns []*interp.Function
		for _, fn := range groups[category] {
			if cmd.Filter == "" || strings.Contains(fn.Name, cmd.Filter) {
				fns = append(fns, fn)
			}
		}
		if len(fns) == 0 {
			continue
		}
		groups[category] = fns
		selected = append(selected, category)
	}

	if len(selected) == 0 {
		if cmd.Category != "" {
			return fmt.Errorf("unknown category %q, expected one of: %s", cmd.Category, strings.Join(order, ", "))
		}
		return fmt.Errorf("no function matches %q", cmd.Filter)
	}

	if cmd.JSON {
		var infos []FunctionInfo
		for _, category := range selected {
			for _, fn := range groups[category] {
				infos = append(infos, FunctionInfo{Name: fn.Name, Signature: fn.Signature(), Category: category, Description: fn.Doc})
			}
		}
		enc := json.NewEncoder(ctx.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	writeCatalog(ctx.Stdout, selected, groups)
	return nil
}

// writeCatalog prints one block per category with signatures padded to a
// common display width.
func writeCatalog(w io.Writer, categories []string, groups map[string][]*interp.Function) {
	styles := output.NewStyles(w)

	width := 0
	for _, category := range categories {
		for _, fn := range groups[category] {
			width = max(width, runewidth.StringWidth(fn.Signature()))
		}
	}

	for i, category := range categories {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		_, _ = fmt.Fprintf(w, "%s %s\n", styles.Keyword(category), styles.Dim(fmt.Sprintf("(%d)", len(groups[category]))))
		for _, fn := range groups[category] {
			sig := runewidth.FillRight(fn.Signature(), width)
			_, _ = fmt.Fprintf(w, "  %s  %s\n", styles.Function(sig), styles.Dim(fn.Doc))
		}
	}
}
