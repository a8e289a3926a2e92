// Package cli implements the ledgerscript command line: running programs
// against data files, evaluating single expressions, browsing the function
// catalog and schedule templates, formatting programs and debugging dumps.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/robinvdvleuten/ledgerscript/loader"
	"github.com/robinvdvleuten/ledgerscript/program"
)

const stdinFilename = "<stdin>"

var (
	successSymbol = "✓"
	errorSymbol   = "✗"
	infoSymbol    = "→"

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D787", Dark: "#00D787"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D7D7", Dark: "#00D7D7"})
)

func printSuccess(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		successStyle.Render(successSymbol),
		message,
	)
}

func printError(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		errorStyle.Render(errorSymbol),
		errorStyle.Render(message),
	)
}

func printInfof(w io.Writer, format string, args ...interface{}) {
	formatted := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintf(w, "%s %s\n",
		infoStyle.Render(infoSymbol),
		formatted,
	)
}

// promptYesNo prompts the user with a yes/no question.
// Returns false by default if stdin is not a terminal.
func promptYesNo(question string) (bool, error) {
	if !isTerminal() {
		return false, nil
	}

	var confirm bool

	form := huh.NewConfirm().
		Title(question).
		WithButtonAlignment(lipgloss.Left).
		Value(&confirm)

	err := form.Run()
	if err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}

	return confirm, nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ProgramFile is a program argument: a path, or "-" (or nothing, when the
// argument is optional) for a program piped through stdin. The source is
// read once and reused for error rendering, formatting and watching.
type ProgramFile struct {
	Path   string
	source []byte
	stdin  bool
}

// Decode implements kong.MapperValue.
func (f *ProgramFile) Decode(ctx *kong.DecodeContext) error {
	var path string
	if err := ctx.Scan.PopValueInto("filename", &path); err != nil {
		return err
	}
	if path == "-" || path == "" {
		return f.readStdin()
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	f.Path = path
	return nil
}

// resolve falls back to stdin when the optional argument was omitted.
func (f *ProgramFile) resolve() error {
	if f.Path == "" && !f.stdin {
		return f.readStdin()
	}
	return nil
}

func (f *ProgramFile) readStdin() error {
	source, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read program from stdin: %w", err)
	}
	f.source = source
	f.stdin = true
	return nil
}

// IsStdin reports whether the program came from stdin.
func (f *ProgramFile) IsStdin() bool {
	return f.stdin
}

// Name is the filename used in positions and messages.
func (f *ProgramFile) Name() string {
	if f.stdin {
		return stdinFilename
	}
	return f.Path
}

// Source returns the program text, reading the file on first use.
func (f *ProgramFile) Source() ([]byte, error) {
	if f.source == nil && !f.stdin {
		source, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, err
		}
		f.source = source
	}
	return f.source, nil
}

// reload drops the cached source so a watched file is read again.
func (f *ProgramFile) reload() {
	if !f.stdin {
		f.source = nil
	}
}

// AbsPath returns the absolute path of the file, or the stdin name.
func (f *ProgramFile) AbsPath() string {
	if f.stdin {
		return stdinFilename
	}
	if abs, err := filepath.Abs(f.Path); err == nil {
		return abs
	}
	return f.Path
}

// Load parses the program. Stdin is always plain program text; files go
// through ldr so .yaml definitions are recognised.
func (f *ProgramFile) Load(ctx context.Context, ldr *loader.Loader) (*program.Program, error) {
	if f.stdin {
		return loader.ParseProgram(ctx, f.Name(), f.source)
	}
	return ldr.LoadProgram(ctx, f.Path)
}
