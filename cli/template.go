package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/huh"
	"github.com/mattn/go-runewidth"

	"github.com/robinvdvleuten/ledgerscript/output"
	"github.com/robinvdvleuten/ledgerscript/schedule"
)

type TemplateCmd struct {
	Name string `help:"Template name. Without a name, a picker is shown on terminals." arg:"" optional:""`
	List bool   `help:"List the available templates." short:"l"`
}

func (cmd *TemplateCmd) Run(ctx *kong.Context) error {
	if cmd.List {
		writeTemplates(ctx.Stdout, schedule.Templates())
		return nil
	}

	name := cmd.Name
	if name == "" {
		if !isTerminal() {
			return fmt.Errorf("template name required, expected one of: %s", strings.Join(schedule.TemplateNames(), ", "))
		}
		picked, err := pickTemplate()
		if err != nil {
			return err
		}
		name = picked
	}

	t, err := schedule.LookupTemplate(name)
	if err != nil {
		return err
	}
	_, err = io.WriteString(ctx.Stdout, t.Program())
	return err
}

func pickTemplate() (string, error) {
	var options []huh.Option[string]
	for _, t := range schedule.Templates() {
		options = append(options, huh.NewOption(fmt.Sprintf("%s - %s", t.Name, t.Description), t.Name))
	}

	var name string
	form := huh.NewSelect[string]().
		Title("Pick a schedule template").
		Options(options...).
		Value(&name)

	if err := form.Run(); err != nil {
		return "", fmt.Errorf("failed to read selection: %w", err)
	}
	return name, nil
}

func writeTemplates(w io.Writer, templates []schedule.Template) {
	styles := output.NewStyles(w)

	width := 0
	for _, t := range templates {
		width = max(width, runewidth.StringWidth(t.Name))
	}
	for _, t := range templates {
		_, _ = fmt.Fprintf(w, "%s  %s\n", styles.Keyword(runewidth.FillRight(t.Name, width)), styles.Dim(t.Description))
	}
}
