package cli

import (
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/alecthomas/repr"
	"github.com/mattn/go-runewidth"

	"github.com/robinvdvleuten/ledgerscript/output"
	"github.com/robinvdvleuten/ledgerscript/parser"
)

// DoctorCmd provides doctor utilities for debugging programs.
type DoctorCmd struct {
	Lex   LexCmd   `cmd:"" help:"Show lexical tokens of a program."`
	Parse ParseCmd `cmd:"" help:"Show the parsed syntax tree of a program."`
}

// LexCmd shows lexical tokens of a program.
type LexCmd struct {
	File ProgramFile `help:"Program filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
}

// Run executes the lex command.
func (cmd *LexCmd) Run(ctx *kong.Context) error {
	if err := cmd.File.resolve(); err != nil {
		return err
	}

	content, err := cmd.File.Source()
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	styles := output.NewStyles(ctx.Stdout)
	lexer := parser.NewLexer(content, cmd.File.Name())
	for _, token := range lexer.ScanAll() {
		if token.Type == parser.EOF {
			continue
		}

		name := runewidth.FillRight(token.Type.String(), 10)
		if token.Type == parser.ILLEGAL {
			name = styles.Error(name)
		}

		// Format: TYPE line:col "content"
		_, _ = fmt.Fprintf(ctx.Stdout, "%s %s    %s\n",
			name,
			styles.Dim(fmt.Sprintf("%d:%d", token.Line, token.Column)),
			styles.Literal(fmt.Sprintf("%q", token.String(content))))
	}

	return nil
}

// ParseCmd dumps the syntax tree of a program.
type ParseCmd struct {
	File ProgramFile `help:"Program filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
}

// Run executes the parse command.
func (cmd *ParseCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.resolve(); err != nil {
		return err
	}

	runCtx, report := globals.setup(ctx, "parse")
	defer report()

	content, err := cmd.File.Source()
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	prog, err := parser.ParseProgram(runCtx, cmd.File.Name(), content)
	if err != nil {
		return fail(ctx.Stderr, NewErrorRenderer(content).Render(err), "parse error")
	}

	repr.New(ctx.Stdout, repr.Indent("  "), repr.OmitEmpty(true)).Println(prog)
	return nil
}
