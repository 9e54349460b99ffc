// Package health reports liveness and readiness. Optional dependencies that
// are not configured report "skipped" and never fail readiness.
package health

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"engage/internal/gateway"
	dErrors "engage/pkg/domain-errors"
)

type Status string

const (
	StatusOK          Status = "ok"
	StatusUnavailable Status = "unavailable"
	StatusSkipped     Status = "skipped"
)

// CheckFunc returns nil when the dependency is usable.
type CheckFunc func(ctx context.Context) error

// Probe checks one dependency. A nil Check means the dependency is not
// configured.
type Probe struct {
	Name  string
	Check CheckFunc
}

// Result is the outcome of one probe.
type Result struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Report is the readiness outcome across all probes.
type Report struct {
	Status Status            `json:"status"`
	Checks map[string]Result `json:"checks"`
}

// Checker runs probes concurrently, each bounded by a timeout.
type Checker struct {
	probes  []Probe
	timeout time.Duration
}

func NewChecker(timeout time.Duration, probes ...Probe) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{probes: probes, timeout: timeout}
}

// Ready runs every probe. The report is unavailable when any configured
// probe fails.
func (c *Checker) Ready(ctx context.Context) Report {
	report := Report{Status: StatusOK, Checks: make(map[string]Result, len(c.probes))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range c.probes {
		if p.Check == nil {
			report.Checks[p.Name] = Result{Status: StatusSkipped}
			continue
		}
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, c.timeout)
			defer cancel()
			res := Result{Status: StatusOK}
			if err := p.Check(pctx); err != nil {
				res = Result{Status: StatusUnavailable, Error: err.Error()}
			}
			mu.Lock()
			report.Checks[p.Name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range report.Checks {
		if res.Status == StatusUnavailable {
			report.Status = StatusUnavailable
		}
	}
	return report
}

// Failing lists the names of unavailable probes, sorted.
func (r Report) Failing() []string {
	var out []string
	for name, res := range r.Checks {
		if res.Status == StatusUnavailable {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Routes returns the liveness and readiness routes.
func (c *Checker) Routes() []gateway.RouteConfig {
	return []gateway.RouteConfig{
		{
			Method: http.MethodGet,
			Path:   "/health/live",
			Handler: func(*http.Request) (*gateway.Response, error) {
				return gateway.OK(map[string]Status{"status": StatusOK}), nil
			},
		},
		{
			Method: http.MethodGet,
			Path:   "/health/ready",
			Handler: func(r *http.Request) (*gateway.Response, error) {
				report := c.Ready(r.Context())
				if report.Status != StatusOK {
					return nil, dErrors.New(dErrors.CodeUnavailable, "unavailable: "+strings.Join(report.Failing(), ", "))
				}
				return gateway.OK(report), nil
			},
		},
	}
}
