package program

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/logger"
	"github.com/robinvdvleuten/ledgerscript/session"
	"github.com/robinvdvleuten/ledgerscript/telemetry"
	"github.com/robinvdvleuten/ledgerscript/value"
)

// Result is the output of one run.
type Result struct {
	RunID        string                `json:"run_id" yaml:"run_id"`
	Transactions []session.Transaction `json:"transactions" yaml:"transactions"`
	Prints       []string              `json:"prints" yaml:"prints"`
}

// Runner executes programs against a function registry.
type Runner struct {
	registry *interp.Registry
	config   *Config
}

// NewRunner creates a Runner. The registry is shared between runs and must
// not be modified afterwards.
func NewRunner(reg *interp.Registry, opts ...Option) *Runner {
	return &Runner{registry: reg, config: NewConfig(opts...)}
}

// NewRunnerFromContext creates a Runner using the Config attached to ctx.
func NewRunnerFromContext(ctx context.Context, reg *interp.Registry) *Runner {
	return &Runner{registry: reg, config: ConfigFromContext(ctx)}
}

// Config returns the runner configuration.
func (r *Runner) Config() *Config {
	return r.config
}

// Run executes prog once per row, or once in standalone mode when rows is
// empty.
//
// The first failing statement aborts the run unless the runner continues on
// error, in which case the rest of that row is skipped and all failures are
// returned together as *RunErrors. The partial result is returned either
// way.
func (r *Runner) Run(ctx context.Context, prog *Program, rows []*value.Dict) (*Result, error) {
	return r.run(ctx, prog, rows, r.config.Echo)
}

func (r *Runner) run(ctx context.Context, prog *Program, rows []*value.Dict, echo io.Writer) (*Result, error) {
	timer := telemetry.StartTimer(ctx, "program.run")
	defer timer.End()
	ctx = telemetry.WithTimer(ctx, timer)

	opts := []session.Option{session.WithLogger(logger.FromContext(ctx))}
	if echo != nil {
		opts = append(opts, session.WithEcho(echo))
	}
	sess := session.New(opts...)
	sess.Reset()

	env := interp.NewEnv(ctx, sess, r.registry)
	log := env.Log()
	log.Debug().Str("program", prog.Name).Int("rows", len(rows)).Msg("run started")

	var errs []error
	fail := func(err error) bool {
		log.Error().Err(err).Msg("statement failed")
		errs = append(errs, err)
		return !r.config.ContinueOnError
	}

	if len(rows) == 0 {
		sess.SetInstrumentID(r.standaloneInstrument(prog))
		if err := r.exec(env, prog, r.standaloneLocals(), -1); err != nil {
			fail(err)
		}
	} else {
		for i, row := range rows {
			if err := ctx.Err(); err != nil {
				return r.result(sess), err
			}
			locals, instrument := r.bindRow(prog, NewRow(row))
			if instrument == "" {
				instrument = r.standaloneInstrument(prog)
			}
			sess.SetInstrumentID(instrument)

			rowTimer := telemetry.StartTimer(ctx, "program.row")
			err := r.exec(env.WithContext(telemetry.WithTimer(ctx, rowTimer)), prog, locals, i)
			rowTimer.End()
			if err != nil && fail(err) {
				break
			}
		}
	}

	result := r.result(sess)
	log.Debug().
		Int("transactions", len(result.Transactions)).
		Int("prints", len(result.Prints)).
		Int("errors", len(errs)).
		Msg("run finished")

	switch {
	case len(errs) == 0:
		return result, nil
	case !r.config.ContinueOnError:
		return result, errs[0]
	default:
		return result, &RunErrors{Errors: errs}
	}
}

func (r *Runner) result(sess *session.Session) *Result {
	return &Result{
		RunID:        sess.ID,
		Transactions: sess.Transactions(),
		Prints:       sess.Prints(),
	}
}

// exec runs every statement of prog with locals as the row scope.
func (r *Runner) exec(env *interp.Env, prog *Program, locals map[string]any, row int) error {
	for _, stmt := range prog.Statements() {
		timer := telemetry.StartTimer(env.Context(), "program.statement")
		v, err := interp.Evaluate(env, stmt.Source, locals)
		timer.End()
		if err != nil {
			return &StatementError{Pos: stmt.Pos, Source: stmt.Source, Row: row, Err: err}
		}
		if stmt.IsAssignment() {
			locals[stmt.Target] = v
		}
	}
	return nil
}

func (r *Runner) standaloneInstrument(prog *Program) string {
	if prog.Instrument != "" {
		return prog.Instrument
	}
	if r.config.InstrumentID != "" {
		return r.config.InstrumentID
	}
	return session.DefaultInstrumentID
}

func (r *Runner) standaloneLocals() map[string]any {
	locals := make(map[string]any)
	if d := r.config.PostingDate; d != "" {
		locals[FieldPostingDate] = d
		locals[FieldEffectiveDate] = d
	}
	return locals
}

// bindRow builds the variables of one row. Every row key is bound as-is;
// the standard fields and typed event fields are bound on top.
func (r *Runner) bindRow(prog *Program, row *Row) (map[string]any, string) {
	locals := make(map[string]any, row.Dict().Len()+8)
	row.Dict().Range(func(key string, v any) bool {
		locals[key] = v
		return true
	})

	posting := dateField(row.Lookup(FieldPostingDate, nil))
	if r.config.PostingDate != "" {
		posting = r.config.PostingDate
	}
	effective := dateField(row.Lookup(FieldEffectiveDate, nil))
	if effective == "" {
		effective = posting
	}
	instrument := ""
	if v := row.Lookup(FieldInstrumentID, nil); v != nil {
		instrument = value.Str(v)
	}

	locals[FieldPostingDate] = posting
	locals[FieldEffectiveDate] = effective
	locals[FieldInstrumentID] = instrument
	locals[FieldSubInstrumentID] = subInstrumentField(row.Lookup(FieldSubInstrumentID, nil))

	for _, name := range prog.EventNames() {
		ev := prog.Events[name]
		if ev.isActivity() {
			locals[name+"_"+FieldPostingDate] = dateField(row.Lookup(name+"_"+FieldPostingDate, nil))
			locals[name+"_"+FieldEffectiveDate] = dateField(row.Lookup(name+"_"+FieldEffectiveDate, nil))
			locals[name+"_"+FieldSubInstrumentID] = subInstrumentField(row.Lookup(name+"_"+FieldSubInstrumentID, nil))
		}
		for _, f := range ev.Fields {
			key := name + "_" + f.Name
			locals[key] = typed(f.Datatype, row.Lookup(key, nil))
		}
	}
	return locals, instrument
}

// RunBatch runs prog against each data set concurrently. Every data set gets
// its own session; results keep the order of datasets. Printed lines are
// not echoed during a batch.
func (r *Runner) RunBatch(ctx context.Context, prog *Program, datasets [][]*value.Dict) ([]*Result, error) {
	timer := telemetry.StartTimer(ctx, "program.batch")
	defer timer.End()
	ctx = telemetry.WithTimer(ctx, timer)

	results := make([]*Result, len(datasets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, rows := range datasets {
		g.Go(func() error {
			res, err := r.run(gctx, prog, rows, nil)
			results[i] = res
			if err != nil {
				return fmt.Errorf("data set %d: %w", i+1, err)
			}
			return nil
		})
	}

	return results, g.Wait()
}
