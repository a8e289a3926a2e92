package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/ledgerscript/logger"
	"github.com/robinvdvleuten/ledgerscript/output"
	"github.com/robinvdvleuten/ledgerscript/telemetry"
)

var (
	Version   = ""
	CommitSHA = ""
)

// Globals defines global flags available to all commands.
type Globals struct {
	Telemetry bool   `help:"Show timing telemetry for operations."`
	LogLevel  string `help:"Log level (trace, debug, info, warn, error)." default:"warn" enum:"trace,debug,info,warn,error"`
}

type Commands struct {
	Globals

	Run       RunCmd       `cmd:"" help:"Run a program, standalone or once per data row."`
	Eval      EvalCmd      `cmd:"" help:"Evaluate a single expression."`
	Functions FunctionsCmd `cmd:"" help:"List the function catalog."`
	Template  TemplateCmd  `cmd:"" help:"Print a schedule template program."`
	Fmt       FmtCmd       `cmd:"" help:"Format a program in canonical form."`
	Doctor    DoctorCmd    `cmd:"" help:"Doctor utilities for debugging programs."`
	Serve     ServeCmd     `cmd:"" help:"Start the HTTP API server."`
}

// setup builds the context a command runs in: a logger at the requested
// level and, with --telemetry, a timing collector rooted at a timer called
// name. The returned func reports the collected timings; it is safe to call
// more than once.
func (g *Globals) setup(ctx *kong.Context, name string) (context.Context, func()) {
	log := logger.New(ctx.Stderr, logger.ParseLevel(g.LogLevel))
	runCtx := logger.WithContext(context.Background(), log)

	if !g.Telemetry {
		return runCtx, func() {}
	}

	collector := telemetry.NewTimingCollector(telemetry.WithStyles(output.NewStyles(ctx.Stderr)))
	runCtx = telemetry.WithCollector(runCtx, collector)

	timer := collector.Start(name)
	runCtx = telemetry.WithTimer(runCtx, timer)

	var once sync.Once
	return runCtx, func() {
		once.Do(func() {
			timer.End()
			_, _ = fmt.Fprintln(ctx.Stderr)
			collector.Report(ctx.Stderr)
		})
	}
}
