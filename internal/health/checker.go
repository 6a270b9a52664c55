// Package health aggregates readiness probes for the server's dependencies.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Probe checks one dependency. It must respect ctx cancellation.
type Probe func(ctx context.Context) error

// Report is the outcome of one Check run. Status is "ok" when every probe
// passed, "degraded" otherwise; Checks maps probe name to "ok" or the error.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Checker runs registered probes with a shared timeout.
type Checker struct {
	mu      sync.Mutex
	probes  map[string]Probe
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a Checker. timeout 0 defaults to 5s.
func New(timeout time.Duration, logger *zap.Logger) *Checker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		probes:  make(map[string]Probe),
		timeout: timeout,
		logger:  logger,
	}
}

// Register adds a named probe. Re-registering a name replaces the probe.
func (c *Checker) Register(name string, p Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = p
}

// Check runs all probes concurrently and aggregates the results.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.Lock()
	probes := make(map[string]Probe, len(c.probes))
	for name, p := range c.probes {
		probes[name] = p
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		name string
		err  error
	}
	results := make(chan result, len(probes))

	var wg sync.WaitGroup
	for name, p := range probes {
		wg.Add(1)
		go func(name string, p Probe) {
			defer wg.Done()
			results <- result{name: name, err: p(ctx)}
		}(name, p)
	}
	wg.Wait()
	close(results)

	report := Report{Status: "ok", Checks: make(map[string]string, len(probes))}
	for r := range results {
		if r.err != nil {
			report.Status = "degraded"
			report.Checks[r.name] = r.err.Error()
			c.logger.Warn("health probe failed", zap.String("probe", r.name), zap.Error(r.err))
			continue
		}
		report.Checks[r.name] = "ok"
	}
	return report
}
