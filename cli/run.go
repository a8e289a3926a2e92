package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/robinvdvleuten/ledgerscript/dates"
	"github.com/robinvdvleuten/ledgerscript/errors"
	"github.com/robinvdvleuten/ledgerscript/ledger"
	"github.com/robinvdvleuten/ledgerscript/library"
	"github.com/robinvdvleuten/ledgerscript/loader"
	"github.com/robinvdvleuten/ledgerscript/logger"
	"github.com/robinvdvleuten/ledgerscript/program"
	"github.com/robinvdvleuten/ledgerscript/session"
	"github.com/robinvdvleuten/ledgerscript/value"
)

type RunCmd struct {
	Program         ProgramFile       `help:"Program file: plain text or a .yaml definition (use '-' for stdin)." arg:""`
	Data            []string          `help:"Data files (.json, .yaml, .csv, .xlsx). Each file is run as its own data set." arg:"" optional:"" type:"existingfile"`
	Event           map[string]string `help:"Event data file per event (NAME=FILE). Event files are merged into one data set by instrument." placeholder:"NAME=FILE"`
	Format          string            `help:"Output format. csv writes the transactions only." enum:"text,json,yaml,csv" default:"text" short:"f"`
	Out             string            `help:"Write results to this file instead of stdout." short:"o" type:"path"`
	Force           bool              `help:"Overwrite the output file without asking."`
	Watch           bool              `help:"Re-run whenever the program or data files change." short:"w"`
	PostingDate     string            `help:"Override the posting date of every row."`
	InstrumentID    string            `help:"Instrument id for standalone runs." default:"STANDALONE"`
	Sheet           string            `help:"Worksheet to read from .xlsx data files (default: first sheet)."`
	ContinueOnError bool              `help:"Skip the rest of a failing row and keep going."`
}

func (cmd *RunCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.Program.resolve(); err != nil {
		return err
	}
	if cmd.Watch && cmd.Program.IsStdin() {
		return fmt.Errorf("--watch needs a program file, not stdin")
	}
	if cmd.PostingDate != "" {
		normalized := dates.Normalize(cmd.PostingDate)
		if normalized == "" {
			return fmt.Errorf("invalid posting date %q", cmd.PostingDate)
		}
		cmd.PostingDate = normalized
	}
	if err := cmd.confirmOverwrite(); err != nil {
		return err
	}

	runCtx, report := globals.setup(ctx, fmt.Sprintf("run %s", filepath.Base(cmd.Program.Name())))
	defer report()

	if cmd.Watch {
		return cmd.watch(runCtx, ctx)
	}
	return cmd.execute(runCtx, ctx)
}

func (cmd *RunCmd) confirmOverwrite() error {
	if cmd.Out == "" || cmd.Force {
		return nil
	}
	if _, err := os.Stat(cmd.Out); err != nil {
		return nil
	}
	confirmed, err := promptYesNo(fmt.Sprintf("File %q already exists. Overwrite it?", cmd.Out))
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !confirmed {
		return fmt.Errorf("refusing to overwrite %s (use --force)", cmd.Out)
	}
	return nil
}

func (cmd *RunCmd) options() []program.Option {
	opts := []program.Option{program.WithInstrumentID(cmd.InstrumentID)}
	if cmd.PostingDate != "" {
		opts = append(opts, program.WithPostingDate(cmd.PostingDate))
	}
	if cmd.ContinueOnError {
		opts = append(opts, program.WithContinueOnError())
	}
	return opts
}

// execute loads, runs and reports once.
func (cmd *RunCmd) execute(ctx context.Context, kctx *kong.Context) error {
	source, err := cmd.Program.Source()
	if err != nil {
		return fmt.Errorf("failed to read program: %w", err)
	}

	ldr := loader.New(loader.WithSheet(cmd.Sheet))
	prog, err := cmd.Program.Load(ctx, ldr)
	if err != nil {
		return fail(kctx.Stderr, cmd.renderErrors(source, err), "parse error")
	}

	datasets, err := cmd.datasets(ctx, ldr)
	if err != nil {
		return err
	}

	runner := program.NewRunner(library.Default(), cmd.options()...)
	var results []*program.Result
	var runErr error
	if len(datasets) == 0 {
		res, err := runner.Run(ctx, prog, nil)
		results, runErr = []*program.Result{res}, err
	} else {
		results, runErr = runner.RunBatch(ctx, prog, datasets)
	}

	if err := cmd.writeResults(kctx.Stdout, results); err != nil {
		return err
	}

	if runErr != nil {
		if stderrors.Is(runErr, context.Canceled) {
			return runErr
		}
		count := len(errors.Flatten(runErr))
		return fail(kctx.Stderr, cmd.renderErrors(source, runErr), fmt.Sprintf("%d statement error(s)", count))
	}
	return nil
}

func (cmd *RunCmd) renderErrors(source []byte, err error) string {
	if cmd.Format == "json" {
		return errors.NewJSONFormatter().FormatAll(errors.Flatten(err))
	}
	return NewErrorRenderer(source).Render(err)
}

// datasets returns the merged event data set, if any, followed by one data
// set per data file.
func (cmd *RunCmd) datasets(ctx context.Context, ldr *loader.Loader) ([][]*value.Dict, error) {
	var sets [][]*value.Dict
	if len(cmd.Event) > 0 {
		rows, err := ldr.LoadEvents(ctx, cmd.Event)
		if err != nil {
			return nil, fmt.Errorf("failed to load event data: %w", err)
		}
		sets = append(sets, rows)
	}
	for _, file := range cmd.Data {
		rows, err := ldr.LoadData(ctx, file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		sets = append(sets, rows)
	}
	return sets, nil
}

func (cmd *RunCmd) writeResults(stdout io.Writer, results []*program.Result) error {
	w := stdout
	if cmd.Out != "" {
		f, err := os.Create(cmd.Out)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	var payload any = results
	if len(results) == 1 {
		payload = results[0]
	}

	switch cmd.Format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(payload); err != nil {
			return err
		}
		return enc.Close()
	case "csv":
		var txns []session.Transaction
		for _, res := range results {
			if res != nil {
				txns = append(txns, res.Transactions...)
			}
		}
		return ledger.WriteCSV(w, txns)
	default:
		return writeText(w, results)
	}
}

// writeText prints each result's printed lines followed by a table of its
// transactions and their total.
func writeText(w io.Writer, results []*program.Result) error {
	re := lipgloss.NewRenderer(w)
	titleStyle := re.NewStyle().Bold(true)
	headerStyle := re.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := re.NewStyle().Padding(0, 1)
	amountStyle := cellStyle.Align(lipgloss.Right)

	for i, res := range results {
		if res == nil {
			continue
		}
		if len(results) > 1 {
			if i > 0 {
				_, _ = fmt.Fprintln(w)
			}
			_, _ = fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Data set %d", i+1)))
		}
		for _, line := range res.Prints {
			_, _ = fmt.Fprintln(w, line)
		}
		if len(res.Transactions) == 0 {
			continue
		}
		if len(res.Prints) > 0 {
			_, _ = fmt.Fprintln(w)
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(re.NewStyle()).
			Headers("POSTING DATE", "EFFECTIVE DATE", "INSTRUMENT", "SUB", "TYPE", "AMOUNT").
			StyleFunc(func(row, col int) lipgloss.Style {
				switch {
				case row == table.HeaderRow:
					return headerStyle
				case col == 5:
					return amountStyle
				default:
					return cellStyle
				}
			})

		for _, tx := range res.Transactions {
			t.Row(tx.PostingDate, tx.EffectiveDate, tx.InstrumentID, tx.SubInstrumentID, tx.TransactionType, decimal.NewFromFloat(tx.Amount).StringFixed(2))
		}

		if _, err := fmt.Fprintln(w, t.Render()); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%d transaction(s), total %s\n", len(res.Transactions), ledger.Total(res.Transactions).StringFixed(2))
	}
	return nil
}

func (cmd *RunCmd) watchedFiles() []string {
	files := []string{cmd.Program.AbsPath()}
	files = append(files, cmd.Data...)
	events := maps.Values(cmd.Event)
	slices.Sort(events)
	return append(files, events...)
}

// watch runs the program, then re-runs it after every change to a watched
// file until interrupted.
func (cmd *RunCmd) watch(ctx context.Context, kctx *kong.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	files := cmd.watchedFiles()
	for _, file := range files {
		if err := watcher.Add(file); err != nil {
			return fmt.Errorf("failed to watch %s: %w", file, err)
		}
	}

	log := logger.FromContext(ctx)
	rerun := func() {
		cmd.Program.reload()
		if err := cmd.execute(ctx, kctx); err != nil {
			var cmdErr *CommandError
			if !stderrors.As(err, &cmdErr) {
				printError(kctx.Stderr, err.Error())
			}
		}
		printInfof(kctx.Stderr, "Watching %d file(s) for changes, press Ctrl+C to stop", len(files))
	}
	rerun()

	// Editors often write files in several steps.
	const debounceDelay = 100 * time.Millisecond
	var debounce *time.Timer
	changed := make(chan string, 1)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			name := event.Name
			debounce = time.AfterFunc(debounceDelay, func() {
				select {
				case changed <- name:
				default:
				}
			})

		case name := <-changed:
			// Atomic saves replace the file and drop its watch.
			if err := watcher.Add(name); err != nil {
				log.Warn().Err(err).Str("file", name).Msg("failed to re-watch file")
			}
			printInfof(kctx.Stderr, "%s changed, re-running", pathStyle.Render(filepath.Base(name)))
			rerun()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("file watcher error")
		}
	}
}
