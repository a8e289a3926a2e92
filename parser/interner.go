package parser

import "sync"

// maxInterned bounds the shared name pool. Names past the bound are still
// returned, just not pooled.
const maxInterned = 1024

// names is shared by every parse. The same handful of names (amount,
// period_date, lag, ...) occur in almost every column expression, and
// cached trees from different programs then hold one instance per name.
var names = newInterner(maxInterned)

// interner pools identifier and keyword-argument names.
type interner struct {
	mu   sync.RWMutex
	pool map[string]string
	max  int
}

func newInterner(max int) *interner {
	return &interner{
		pool: make(map[string]string, 64),
		max:  max,
	}
}

// intern returns the pooled instance of the name spelled by b.
func (in *interner) intern(b []byte) string {
	in.mu.RLock()
	s, ok := in.pool[string(b)]
	in.mu.RUnlock()
	if ok {
		return s
	}

	s = string(b)
	in.mu.Lock()
	if existing, ok := in.pool[s]; ok {
		s = existing
	} else if len(in.pool) < in.max {
		in.pool[s] = s
	}
	in.mu.Unlock()
	return s
}

func (in *interner) len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.pool)
}
