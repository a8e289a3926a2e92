package cli

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/library"
	"github.com/robinvdvleuten/ledgerscript/logger"
	"github.com/robinvdvleuten/ledgerscript/program"
	"github.com/robinvdvleuten/ledgerscript/session"
	"github.com/robinvdvleuten/ledgerscript/value"
)

type EvalCmd struct {
	Expr string            `help:"Expression to evaluate." arg:""`
	Var  map[string]string `help:"Variable binding (NAME=VALUE). Numbers and True/False are converted, anything else is a string." short:"v" placeholder:"NAME=VALUE"`
	JSON bool              `help:"Print the value as JSON."`
}

func (cmd *EvalCmd) Run(ctx *kong.Context, globals *Globals) error {
	runCtx, report := globals.setup(ctx, "eval")
	defer report()

	sess := session.New(
		session.WithLogger(logger.FromContext(runCtx)),
		session.WithEcho(ctx.Stdout),
	)
	env := interp.NewEnv(runCtx, sess, library.Default())

	v, err := env.Evaluate(cmd.Expr, cmd.locals())
	if err != nil {
		src := []byte(cmd.Expr)
		return fail(ctx.Stderr, NewErrorRenderer(src).Render(err), "evaluation failed")
	}

	switch {
	case cmd.JSON:
		_, _ = fmt.Fprintln(ctx.Stdout, value.JSON(v))
	case v != nil:
		_, _ = fmt.Fprintln(ctx.Stdout, value.Repr(v))
	}

	if txns := sess.Transactions(); len(txns) > 0 {
		_, _ = fmt.Fprintln(ctx.Stdout)
		return writeText(ctx.Stdout, []*program.Result{{RunID: sess.ID, Transactions: txns}})
	}
	return nil
}

func (cmd *EvalCmd) locals() map[string]any {
	locals := make(map[string]any, len(cmd.Var))
	for name, raw := range cmd.Var {
		locals[name] = parseVar(raw)
	}
	return locals
}

// parseVar converts a command line value to a float64, a bool or leaves it
// as a string.
func parseVar(raw string) any {
	switch raw {
	case "True", "true":
		return true
	case "False", "false":
		return false
	case "None":
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
