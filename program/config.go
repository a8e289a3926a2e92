package program

import (
	"context"
	"io"

	"github.com/robinvdvleuten/ledgerscript/session"
)

// Config controls how programs run.
type Config struct {
	// InstrumentID is used when the program runs without data rows.
	InstrumentID string
	// PostingDate replaces every row's posting date when set.
	PostingDate string
	// Echo receives printed lines as they are produced.
	Echo io.Writer
	// ContinueOnError skips the rest of a failing row instead of aborting
	// the run. All failures are still returned.
	ContinueOnError bool
}

// Option configures a Config.
type Option func(*Config)

// WithInstrumentID sets the standalone instrument id.
func WithInstrumentID(id string) Option {
	return func(c *Config) { c.InstrumentID = id }
}

// WithPostingDate overrides the posting date of every row.
func WithPostingDate(date string) Option {
	return func(c *Config) { c.PostingDate = date }
}

// WithEcho mirrors printed lines to w.
func WithEcho(w io.Writer) Option {
	return func(c *Config) { c.Echo = w }
}

// WithContinueOnError keeps running the remaining rows after a failure.
func WithContinueOnError() Option {
	return func(c *Config) { c.ContinueOnError = true }
}

// NewConfig creates a Config with defaults.
func NewConfig(opts ...Option) *Config {
	c := &Config{InstrumentID: session.DefaultInstrumentID}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// contextKey is a private type to avoid key collisions in context.
type contextKey struct{}

// WithContext returns a new context with the Config attached.
func (c *Config) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// ConfigFromContext retrieves the Config from context.
// Returns a default Config if not found.
func ConfigFromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(contextKey{}).(*Config); ok {
		return cfg
	}
	return NewConfig()
}
