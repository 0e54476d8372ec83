package cleanup

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Cleaner performs the store-side work of a sweep or purge. Both calls
// go through the lists service lock, so they never interleave with a
// reorder of the same list.
type Cleaner interface {
	HideCompletedBefore(ctx context.Context, cutoff time.Time) (int, error)
	PurgeHiddenBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Policy holds the retention windows, measured from completion time.
type Policy struct {
	HideAfter        time.Duration
	PurgeAfter       time.Duration // zero disables purging
	Interval         time.Duration
	HideOnBackground bool
}

// DefaultPolicy returns the default retention windows.
func DefaultPolicy() Policy {
	return Policy{
		HideAfter:  24 * time.Hour,
		PurgeAfter: 7 * 24 * time.Hour,
		Interval:   15 * time.Minute,
	}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// Scheduler hides completed items once they age past the retention
// window and purges hidden ones later. It runs on a timer and on
// foreground/background signals.
type Scheduler struct {
	cleaner Cleaner
	policy  Policy
	log     *zap.Logger
	now     func() time.Time

	foreground chan struct{}
	background chan struct{}
}

// NewScheduler creates a scheduler. Call Run to start it.
func NewScheduler(cleaner Cleaner, policy Policy, log *zap.Logger, opts ...Option) *Scheduler {
	if policy.Interval <= 0 {
		policy.Interval = DefaultPolicy().Interval
	}
	if policy.HideAfter < 0 {
		policy.HideAfter = 0
	}

	s := &Scheduler{
		cleaner:    cleaner,
		policy:     policy,
		log:        log,
		now:        time.Now,
		foreground: make(chan struct{}, 1),
		background: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the active policy.
func (s *Scheduler) Policy() Policy { return s.policy }

// Run sweeps and purges once, then on every tick and foreground signal,
// until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.policy.Interval)
	defer ticker.Stop()

	s.runAll(ctx, "startup")
	for {
		select {
		case <-ctx.Done():
			s.log.Debug("cleanup scheduler stopping")
			return
		case <-ticker.C:
			s.runAll(ctx, "timer")
		case <-s.foreground:
			s.runAll(ctx, "foreground")
		case <-s.background:
			if !s.policy.HideOnBackground {
				continue
			}
			if _, err := s.hide(ctx, s.now()); err != nil {
				s.log.Warn("hiding completed items on background", zap.Error(err))
			}
		}
	}
}

// Foreground signals that the app became active. It never blocks.
func (s *Scheduler) Foreground() { notify(s.foreground) }

// Background signals that the app lost focus. It never blocks.
func (s *Scheduler) Background() { notify(s.background) }

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Sweep hides completed items older than the hide window. It never
// changes order.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	return s.hide(ctx, s.now().Add(-s.policy.HideAfter))
}

// Purge deletes hidden items older than the purge window.
func (s *Scheduler) Purge(ctx context.Context) (int, error) {
	if s.policy.PurgeAfter <= 0 {
		return 0, nil
	}

	cutoff := s.now().Add(-s.policy.PurgeAfter)
	n, err := s.cleaner.PurgeHiddenBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("purged hidden items", zap.Int("items", n), zap.Time("cutoff", cutoff))
	}
	return n, nil
}

func (s *Scheduler) hide(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := s.cleaner.HideCompletedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("hid completed items", zap.Int("items", n), zap.Time("cutoff", cutoff))
	}
	return n, nil
}

func (s *Scheduler) runAll(ctx context.Context, trigger string) {
	start := s.now()
	hidden, err := s.Sweep(ctx)
	if err != nil {
		s.log.Warn("cleanup sweep failed", zap.String("trigger", trigger), zap.Error(err))
	}
	purged, err := s.Purge(ctx)
	if err != nil {
		s.log.Warn("cleanup purge failed", zap.String("trigger", trigger), zap.Error(err))
	}
	s.log.Debug("cleanup finished",
		zap.String("trigger", trigger),
		zap.Int("hidden", hidden),
		zap.Int("purged", purged),
		zap.Duration("duration", s.now().Sub(start)),
	)
}
