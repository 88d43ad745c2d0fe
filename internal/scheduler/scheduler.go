// Package scheduler drives periodic breach scans.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/observability"
	"github.com/spec-kit/helpdesk-sla/internal/sla"
)

// Scanner is the scan entry point the scheduler drives.
type Scanner interface {
	Scan(ctx context.Context, now time.Time) (sla.ScanReport, error)
}

// Options configures a BreachScheduler.
type Options struct {
	Interval time.Duration
	// Lease is optional; without it every replica scans.
	Lease   *Lease
	Logger  *zap.Logger
	Metrics *observability.Metrics
	Now     func() time.Time
}

// BreachScheduler invokes Scan on a fixed interval.
type BreachScheduler struct {
	scanner Scanner
	opts    Options
}

// New constructs a BreachScheduler.
func New(scanner Scanner, opts Options) *BreachScheduler {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &BreachScheduler{scanner: scanner, opts: opts}
}

// Run ticks until ctx is cancelled.
func (s *BreachScheduler) Run(ctx context.Context) {
	s.opts.Logger.Info("breach scheduler started", zap.Duration("interval", s.opts.Interval))
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.opts.Logger.Info("breach scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scan unless another replica holds the lease. Scanning is
// idempotent, so a Redis outage degrades to every replica scanning.
func (s *BreachScheduler) Tick(ctx context.Context) (sla.ScanReport, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Interval)
	defer cancel()

	var token string
	if s.opts.Lease != nil {
		var err error
		token, err = s.opts.Lease.Acquire(ctx)
		switch {
		case err != nil:
			s.opts.Logger.Warn("scan lease unavailable; scanning without it", zap.Error(err))
		case token == "":
			s.opts.Logger.Debug("scan lease held elsewhere; skipping")
			s.opts.Metrics.ObserveScan("skipped", 0)
			return sla.ScanReport{}, false
		}
		defer func() {
			if err := s.opts.Lease.Release(context.WithoutCancel(ctx), token); err != nil {
				s.opts.Logger.Warn("release scan lease failed", zap.Error(err))
			}
		}()
	}

	report, err := s.scanner.Scan(ctx, s.opts.Now())
	if err != nil {
		s.opts.Logger.Error("breach scan failed", zap.Error(err))
	}
	return report, true
}
