package telemetry

import (
	"io"
	"sync"
	"time"

	"github.com/robinvdvleuten/ledgerscript/output"
)

// TimingCollector records a forest of timers. Every Start opens a new root,
// so concurrent batch runs and served requests each get their own tree;
// nesting happens through Child, usually via WithTimer and StartTimer.
type TimingCollector struct {
	mu     sync.Mutex
	roots  []*timerNode
	styles *output.Styles
	now    func() time.Time
}

// Option configures a TimingCollector.
type Option func(*TimingCollector)

// WithStyles renders reports with terminal styling.
func WithStyles(styles *output.Styles) Option {
	return func(c *TimingCollector) {
		c.styles = styles
	}
}

type timerNode struct {
	name     string
	start    time.Time
	end      time.Time
	children []*timerNode
}

// duration is the elapsed time of the node. A timer that never ended, such
// as a run aborted by a statement error, counts up to asOf.
func (n *timerNode) duration(asOf time.Time) time.Duration {
	if n.end.IsZero() {
		return asOf.Sub(n.start)
	}
	return n.end.Sub(n.start)
}

// NewTimingCollector creates an empty collector.
func NewTimingCollector(opts ...Option) *TimingCollector {
	c := &TimingCollector{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start opens a new root timer.
func (c *TimingCollector) Start(name string) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	node := &timerNode{name: name, start: c.now()}
	c.roots = append(c.roots, node)
	return &timingTimer{collector: c, node: node}
}

// Report writes every root tree in start order.
func (c *TimingCollector) Report(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	asOf := c.now()
	for _, root := range c.roots {
		formatTimingTree(w, root, asOf, c.styles)
	}
}

type timingTimer struct {
	collector *TimingCollector
	node      *timerNode
}

// End stops the timer. Only the first call counts.
func (t *timingTimer) End() {
	t.collector.mu.Lock()
	defer t.collector.mu.Unlock()

	if t.node.end.IsZero() {
		t.node.end = t.collector.now()
	}
}

// Child opens a timer nested under t.
func (t *timingTimer) Child(name string) Timer {
	t.collector.mu.Lock()
	defer t.collector.mu.Unlock()

	node := &timerNode{name: name, start: t.collector.now()}
	t.node.children = append(t.node.children, node)
	return &timingTimer{collector: t.collector, node: node}
}
