package telemetry

import (
	"fmt"
	"io"
	"time"

	"github.com/robinvdvleuten/ledgerscript/output"
)

// slowThreshold marks operations highlighted in styled reports.
const slowThreshold = 100 * time.Millisecond

// formatTimingTree outputs the timing tree in a hierarchical format.
// Sibling timers that share a name are folded into one line with a count:
//
//	program.run: 125ms
//	├─ parser.parse: 2ms
//	└─ row ×40: 120ms
//	   ├─ statement ×200: 110ms
//	   └─ schedule.build ×40: 95ms
func formatTimingTree(w io.Writer, root *timerNode, asOf time.Time, styles *output.Styles) {
	duration := root.duration(asOf)

	if styles != nil {
		_, _ = fmt.Fprintf(w, "%s: %s\n", styles.Keyword(root.name), formatDuration(duration))
	} else {
		_, _ = fmt.Fprintf(w, "%s: %s\n", root.name, formatDuration(duration))
	}

	groups := groupChildren(root.children)
	for i, g := range groups {
		formatGroup(w, g, "", i == len(groups)-1, asOf, styles)
	}
}

// group is a set of sibling nodes with the same name.
type group struct {
	name  string
	nodes []*timerNode
}

func (g *group) duration(asOf time.Time) time.Duration {
	var total time.Duration
	for _, n := range g.nodes {
		total += n.duration(asOf)
	}
	return total
}

func (g *group) children() []*timerNode {
	var out []*timerNode
	for _, n := range g.nodes {
		out = append(out, n.children...)
	}
	return out
}

func groupChildren(nodes []*timerNode) []*group {
	var groups []*group
	index := map[string]*group{}
	for _, n := range nodes {
		g, ok := index[n.name]
		if !ok {
			g = &group{name: n.name}
			index[n.name] = g
			groups = append(groups, g)
		}
		g.nodes = append(g.nodes, n)
	}
	return groups
}

// formatGroup recursively formats a group of nodes and their children.
func formatGroup(w io.Writer, g *group, prefix string, isLast bool, asOf time.Time, styles *output.Styles) {
	duration := g.duration(asOf)
	name := g.name
	if len(g.nodes) > 1 {
		name = fmt.Sprintf("%s ×%d", g.name, len(g.nodes))
	}

	var branch, extension string
	if isLast {
		branch = "└─ "
		extension = "   "
	} else {
		branch = "├─ "
		extension = "│  "
	}

	if styles != nil {
		timing := styles.Timing(formatDuration(duration), duration >= slowThreshold)
		_, _ = fmt.Fprintf(w, "%s%s: %s\n", styles.Dim(prefix+branch), name, timing)
	} else {
		_, _ = fmt.Fprintf(w, "%s%s%s: %s\n", prefix, branch, name, formatDuration(duration))
	}

	children := groupChildren(g.children())
	for i, child := range children {
		formatGroup(w, child, prefix+extension, i == len(children)-1, asOf, styles)
	}
}

// formatDuration formats a duration for display.
// Shows milliseconds for < 1s, seconds for >= 1s.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		ms := float64(d) / float64(time.Millisecond)
		return fmt.Sprintf("%.0fms", ms)
	}
	s := float64(d) / float64(time.Second)
	return fmt.Sprintf("%.2fs", s)
}
