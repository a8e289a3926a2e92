// Package interp evaluates DSL expressions against a function registry and
// a row-scoped set of variables.
//
// Name resolution is fixed: local variables first, then registered
// functions, then a short whitelist of builtins (int, float, str, bool, len,
// pow). Nothing else is reachable from expression text.
package interp

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/robinvdvleuten/ledgerscript/logger"
	"github.com/robinvdvleuten/ledgerscript/session"
)

// Env is everything a function body may touch: the run's session, the
// registry used for nested evaluation and the run context.
type Env struct {
	Ctx      context.Context
	Session  *session.Session
	Registry *Registry
}

// NewEnv creates an evaluation environment.
func NewEnv(ctx context.Context, sess *session.Session, reg *Registry) *Env {
	if ctx == nil {
		ctx = context.Background()
	}
	if sess == nil {
		sess = session.New(session.WithLogger(logger.FromContext(ctx)))
	}
	return &Env{Ctx: ctx, Session: sess, Registry: reg}
}

// Context returns the run context.
func (e *Env) Context() context.Context {
	if e.Ctx == nil {
		return context.Background()
	}
	return e.Ctx
}

// Log returns the session logger.
func (e *Env) Log() *zerolog.Logger {
	return e.Session.Logger()
}

// WithContext returns a shallow copy of e using ctx.
func (e *Env) WithContext(ctx context.Context) *Env {
	cp := *e
	cp.Ctx = ctx
	return &cp
}

// Evaluate evaluates text with locals bound as variables.
func (e *Env) Evaluate(text string, locals map[string]any) (any, error) {
	return Evaluate(e, text, locals)
}
