package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/ledgerscript/formatter"
	"github.com/robinvdvleuten/ledgerscript/loader"
	"github.com/robinvdvleuten/ledgerscript/parser"
)

type FmtCmd struct {
	File           ProgramFile `help:"Program filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
	Indentation    int         `help:"Indentation of wrapped arguments and dict entries." default:"4"`
	LineWidth      int         `help:"Line width before statements are wrapped (0 disables wrapping)." default:"88"`
	StripComments  bool        `help:"Drop comment lines."`
	CollapseBlanks bool        `help:"Drop blank lines between statements."`
	Write          bool        `help:"Write the result back to the file instead of stdout." short:"w"`
	Check          bool        `help:"Exit with status 1 when the file is not formatted."`
}

func (cmd *FmtCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.resolve(); err != nil {
		return err
	}
	if cmd.Write && cmd.File.IsStdin() {
		return fmt.Errorf("--write needs a program file, not stdin")
	}

	runCtx, report := globals.setup(ctx, "fmt")
	defer report()

	sourceContent, err := cmd.File.Source()
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if loader.IsDefinition(cmd.File.Name()) {
		return fmt.Errorf("%s is a program definition; only plain program files can be formatted", cmd.File.Name())
	}

	prog, err := parser.ParseProgram(runCtx, cmd.File.Name(), sourceContent)
	if err != nil {
		return fail(ctx.Stderr, NewErrorRenderer(sourceContent).Render(err), "parse error")
	}

	f := formatter.New(
		formatter.WithIndentation(cmd.Indentation),
		formatter.WithLineWidth(cmd.LineWidth),
		formatter.WithPreserveComments(!cmd.StripComments),
		formatter.WithPreserveBlanks(!cmd.CollapseBlanks),
	)

	var buf bytes.Buffer
	if err := f.Format(runCtx, prog, &buf); err != nil {
		return err
	}

	switch {
	case cmd.Check:
		if !bytes.Equal(buf.Bytes(), sourceContent) {
			return fail(ctx.Stderr, "", fmt.Sprintf("%s is not formatted", cmd.File.Name()))
		}
		printSuccess(ctx.Stdout, fmt.Sprintf("%s is formatted", cmd.File.Name()))
		return nil
	case cmd.Write:
		if bytes.Equal(buf.Bytes(), sourceContent) {
			return nil
		}
		if err := os.WriteFile(cmd.File.Path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", cmd.File.Name(), err)
		}
		printSuccess(ctx.Stderr, fmt.Sprintf("Formatted %s", pathStyle.Render(cmd.File.Name())))
		return nil
	default:
		_, err := ctx.Stdout.Write(buf.Bytes())
		return err
	}
}
