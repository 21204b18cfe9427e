package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// CheckFunc probes one dependency. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

// DefaultCheckTimeout bounds each check when the Checker has no timeout.
const DefaultCheckTimeout = 2 * time.Second

// Checker runs named checks and keeps the most recent result of each.
// It is safe for concurrent use.
type Checker struct {
	name    string
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]CheckFunc
	last   map[string]Status
}

// NewChecker creates a checker reporting under name.
func NewChecker(name string, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &Checker{
		name:    name,
		timeout: timeout,
		checks:  make(map[string]CheckFunc),
		last:    make(map[string]Status),
	}
}

// Register adds or replaces the check called name.
func (c *Checker) Register(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Run executes every check concurrently and returns the aggregate status.
// Checks are reported in name order.
func (c *Checker) Run(ctx context.Context) Status {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	checks := make([]CheckFunc, len(names))
	sort.Strings(names)
	for i, name := range names {
		checks[i] = c.checks[name]
	}
	c.mu.RUnlock()

	results := make([]Status, len(names))
	var g errgroup.Group
	for i := range names {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			start := time.Now()
			err := checks[i](checkCtx)
			results[i] = FromError(names[i], err, time.Since(start))
			return nil
		})
	}
	_ = g.Wait()

	c.mu.Lock()
	for _, st := range results {
		c.last[st.Name] = st
	}
	c.mu.Unlock()

	return Aggregate(c.name, results)
}

// Last returns the most recent result of the named check.
func (c *Checker) Last(name string) (Status, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.last[name]
	return st, ok
}

// Handler serves Run as JSON: 200 when healthy or degraded, 503 when
// unhealthy.
func (c *Checker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := c.Run(r.Context())

		code := http.StatusOK
		if st.State == StateUnhealthy {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(st)
	})
}
