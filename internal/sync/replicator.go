package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/tada/internal/lists"
	"github.com/nhle/tada/internal/model"
	"github.com/nhle/tada/internal/remote"
	"github.com/nhle/tada/internal/store"
)

// Replica is the local side of replication.
type Replica interface {
	DeviceID(ctx context.Context) (string, error)
	Cursor(ctx context.Context) (string, error)
	PendingRecords(ctx context.Context) ([]model.Record, int64, error)
	AckPending(ctx context.Context, watermark int64) error
	ApplyRemote(ctx context.Context, records []model.Record, cursor string) (lists.MergeResult, error)
	MarkSynced(ctx context.Context, at time.Time) error
}

// Subscriber delivers committed local change sets.
type Subscriber interface {
	Subscribe() (<-chan store.ChangeSet, func())
}

// ReplicatorOptions tunes the replicator. Zero values take defaults.
type ReplicatorOptions struct {
	PollInterval time.Duration
	Timeout      time.Duration
	SaveDebounce time.Duration
}

// ErrLocalOnly is returned by RunOnce when no usable backend account exists.
var ErrLocalOnly = errors.New("sync unavailable: local-only mode")

// Replicator runs round trips against the backend: pull and merge remote
// changes, then push pending local edits. Round trips run on a single
// goroutine and never overlap.
type Replicator struct {
	engine  *Engine
	replica Replica
	backend remote.Backend
	changes Subscriber
	log     *zap.Logger
	opts    ReplicatorOptions
	now     func() time.Time

	manualCh chan struct{}
	autoCh   chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
	debounce *debouncer

	mu        gosync.Mutex
	running   bool
	localOnly bool
}

// NewReplicator wires a replicator. A nil backend leaves sync inert.
func NewReplicator(
	engine *Engine,
	replica Replica,
	backend remote.Backend,
	changes Subscriber,
	log *zap.Logger,
	opts ReplicatorOptions,
) *Replicator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Minute
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	r := &Replicator{
		engine:    engine,
		replica:   replica,
		backend:   backend,
		changes:   changes,
		log:       log,
		opts:      opts,
		now:       time.Now,
		manualCh:  make(chan struct{}, 1),
		autoCh:    make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		localOnly: backend == nil,
	}
	r.debounce = newDebouncer(opts.SaveDebounce, func() { signal(r.autoCh) })
	return r
}

// Start checks the account and launches the replication loop.
func (r *Replicator) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	changes, cancel := r.changes.Subscribe()
	go func() {
		defer close(r.doneCh)
		defer cancel()
		r.loop(ctx, changes)
	}()
}

// Stop halts the loop after any in-flight round trip completes.
func (r *Replicator) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	r.debounce.Stop()
	close(r.stopCh)
	<-r.doneCh
}

// SyncNow requests an immediate round trip. Explicit requests also retry
// after an error and re-check a missing account.
func (r *Replicator) SyncNow() {
	signal(r.manualCh)
}

// RunOnce checks the account and performs a single round trip
// synchronously. It must not be combined with Start.
func (r *Replicator) RunOnce(ctx context.Context) error {
	if !r.checkAccount(ctx) {
		return ErrLocalOnly
	}
	return r.roundTrip(ctx, true)
}

// LocalOnly reports whether sync is inert.
func (r *Replicator) LocalOnly() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.localOnly
}

func (r *Replicator) setLocalOnly(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.localOnly = v
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
		// A run is already queued.
	}
}

func (r *Replicator) loop(ctx context.Context, changes <-chan store.ChangeSet) {
	if r.checkAccount(ctx) {
		r.roundTrip(ctx, true)
	}

	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-r.manualCh:
			if r.LocalOnly() && !r.checkAccount(ctx) {
				r.log.Info("sync requested in local-only mode")
				continue
			}
			r.roundTrip(ctx, true)
		case <-r.autoCh:
			r.roundTrip(ctx, false)
		case <-ticker.C:
			r.roundTrip(ctx, false)
		case cs, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if cs.Origin != store.OriginLocal || r.LocalOnly() {
				continue
			}
			r.engine.Post(Event{Kind: EventLocalSave})
			r.debounce.Notify()
		}
	}
}

// checkAccount reports whether sync can run and updates local-only mode.
func (r *Replicator) checkAccount(ctx context.Context) bool {
	if r.backend == nil {
		r.setLocalOnly(true)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	status, err := r.backend.AccountStatus(ctx)
	switch {
	case errors.Is(err, remote.ErrNoAccount), remote.IsAuthError(err):
		r.log.Warn("remote account unavailable, running local-only", zap.Error(err))
		r.setLocalOnly(true)
		return false
	case err != nil:
		// Network trouble is not an account problem; round trips will
		// surface it through the engine.
		r.log.Warn("account status check failed", zap.Error(err))
		r.setLocalOnly(false)
		return true
	case status != remote.AccountAvailable:
		r.log.Warn("remote account unavailable, running local-only",
			zap.String("status", string(status)))
		r.setLocalOnly(true)
		return false
	}

	r.setLocalOnly(false)
	return true
}

// roundTrip imports then exports. Automatic runs are skipped while the
// engine shows an error.
func (r *Replicator) roundTrip(ctx context.Context, manual bool) error {
	if r.LocalOnly() {
		return nil
	}
	if !manual && r.engine.Status().State == Error {
		r.log.Debug("automatic sync suppressed while in error")
		return nil
	}
	if manual {
		r.engine.RequestSync()
	}

	start := r.now()
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	// Import runs first so that fields edited locally are still in the
	// journal, and win, when concurrent remote values are merged.
	r.engine.Post(Event{Kind: EventBegin, Scope: ScopeImport})
	device, err := r.replica.DeviceID(ctx)
	var res lists.MergeResult
	if err == nil {
		res, err = r.pull(ctx, device)
	}
	r.finish(ScopeImport, err)
	if err != nil {
		return err
	}

	r.engine.Post(Event{Kind: EventBegin, Scope: ScopeExport})
	pushed, err := r.export(ctx, device)
	if err == nil {
		err = r.replica.MarkSynced(ctx, r.now())
	}
	r.finish(ScopeExport, err)
	if err != nil {
		return err
	}

	r.log.Info("sync finished",
		zap.Int("pushed", pushed),
		zap.Int("applied", res.Applied),
		zap.Duration("duration", r.now().Sub(start)),
	)
	return nil
}

func (r *Replicator) finish(scope Scope, err error) {
	if remote.IsAuthError(err) {
		r.setLocalOnly(true)
	}
	r.engine.Post(Event{Kind: EventEnd, Scope: scope, EndDate: r.now(), Err: err})
}

func (r *Replicator) export(ctx context.Context, device string) (int, error) {
	records, watermark, err := r.replica.PendingRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("collecting local changes: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	if err := r.backend.Push(ctx, device, records); err != nil {
		return 0, fmt.Errorf("pushing changes: %w", err)
	}
	if err := r.replica.AckPending(ctx, watermark); err != nil {
		return 0, fmt.Errorf("acknowledging pushed changes: %w", err)
	}
	return len(records), nil
}

func (r *Replicator) pull(ctx context.Context, device string) (lists.MergeResult, error) {
	cursor, err := r.replica.Cursor(ctx)
	if err != nil {
		return lists.MergeResult{}, fmt.Errorf("reading cursor: %w", err)
	}

	res, err := r.backend.Pull(ctx, device, cursor)
	if err != nil {
		return lists.MergeResult{}, fmt.Errorf("pulling changes: %w", err)
	}

	merged, err := r.replica.ApplyRemote(ctx, res.Records, res.Cursor)
	if err != nil {
		return lists.MergeResult{}, fmt.Errorf("merging remote changes: %w", err)
	}
	return merged, nil
}
