// Package sync drives replication with the remote backend and tracks its
// progress in a four-state machine observed by the UI.
package sync

import (
	"fmt"
	gosync "sync"
	"time"

	"go.uber.org/zap"
)

// State is the externally visible sync state.
type State int

const (
	Idle State = iota
	Syncing
	Success
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Syncing:
		return "syncing"
	case Success:
		return "success"
	case Error:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Status is a snapshot of the engine.
type Status struct {
	State State
	// Message is the human-readable cause while in Error.
	Message  string
	LastSync time.Time
	// Generation increases on every transition.
	Generation uint64
}

// Scope names the direction of a round-trip phase.
type Scope string

const (
	ScopeExport Scope = "export"
	ScopeImport Scope = "import"
)

// EventKind enumerates the inputs of the state machine.
type EventKind int

const (
	// EventBegin: the backend started exchanging changes.
	EventBegin EventKind = iota
	// EventEnd: the backend finished; Err is set on failure.
	EventEnd
	// EventRequested: the user asked for a sync.
	EventRequested
	// EventLocalSave: a local mutation was committed.
	EventLocalSave
	// EventDismiss: the user dismissed an error.
	EventDismiss

	eventDecay
)

// Event is one input to the engine.
type Event struct {
	Kind    EventKind
	Scope   Scope
	EndDate time.Time
	Err     error

	generation uint64
}

const (
	eventBuffer      = 64
	subscriberBuffer = 16

	defaultSuccessDisplay = 2 * time.Second
)

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSuccessDisplay sets how long Success shows before decaying to Idle.
func WithSuccessDisplay(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.successDisplay = d
		}
	}
}

// WithLastSync seeds the last successful sync time.
func WithLastSync(t time.Time) EngineOption {
	return func(e *Engine) { e.status.LastSync = t }
}

// WithEngineClock replaces time.Now.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// Engine serializes sync events on one goroutine and applies at most one
// transition per event.
type Engine struct {
	log            *zap.Logger
	successDisplay time.Duration
	now            func() time.Time

	events chan Event
	stopCh chan struct{}
	doneCh chan struct{}

	mu      gosync.Mutex
	status  Status
	decay   *time.Timer
	subs    map[int]chan Status
	nextSub int
	running bool
	stopped bool
}

// NewEngine creates an engine in Idle. Call Start to begin processing.
func NewEngine(log *zap.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		log:            log,
		successDisplay: defaultSuccessDisplay,
		now:            time.Now,
		events:         make(chan Event, eventBuffer),
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
		subs:           make(map[int]chan Status),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the event loop.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running || e.stopped {
		return
	}
	e.running = true
	go e.loop()
}

// Stop halts the event loop, cancels a pending decay and closes all
// subscriptions.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	wasRunning := e.running
	if e.decay != nil {
		e.decay.Stop()
	}
	close(e.stopCh)
	e.mu.Unlock()

	if wasRunning {
		<-e.doneCh
	}

	e.mu.Lock()
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
	e.mu.Unlock()
}

// Post enqueues an event. It blocks only while the queue is full and
// returns immediately once the engine is stopped.
func (e *Engine) Post(ev Event) {
	select {
	case e.events <- ev:
	case <-e.stopCh:
	}
}

// RequestSync records a user request. The replicator performs the round
// trip; see Replicator.SyncNow.
func (e *Engine) RequestSync() {
	e.Post(Event{Kind: EventRequested})
}

// Dismiss clears an Error. It has no effect in other states.
func (e *Engine) Dismiss() {
	e.Post(Event{Kind: EventDismiss})
}

// Status returns the current snapshot.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Subscribe returns a channel receiving every new status. A slow reader
// loses intermediate statuses but always receives the latest one.
func (e *Engine) Subscribe() (<-chan Status, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextSub
	e.nextSub++
	ch := make(chan Status, subscriberBuffer)
	if e.stopped {
		close(ch)
		return ch, func() {}
	}
	e.subs[id] = ch

	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if c, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(c)
		}
	}
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	for {
		select {
		case <-e.stopCh:
			return
		case ev := <-e.events:
			e.apply(ev)
		}
	}
}

// apply runs one event through the transition table.
func (e *Engine) apply(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.status
	next, ok := e.transition(cur, ev)
	if !ok {
		return
	}

	if e.decay != nil {
		e.decay.Stop()
		e.decay = nil
	}
	next.Generation = cur.Generation + 1
	e.status = next

	if next.State == Success {
		gen := next.Generation
		e.decay = time.AfterFunc(e.successDisplay, func() {
			e.Post(Event{Kind: eventDecay, generation: gen})
		})
	}

	fields := []zap.Field{
		zap.Stringer("from", cur.State),
		zap.Stringer("to", next.State),
		zap.Uint64("generation", next.Generation),
	}
	if ev.Scope != "" {
		fields = append(fields, zap.String("scope", string(ev.Scope)))
	}
	if next.State == Error {
		e.log.Warn("sync failed", append(fields, zap.String("message", next.Message))...)
	} else {
		e.log.Debug("sync state changed", fields...)
	}

	e.broadcast(next)
}

// transition returns the next status, or false when ev causes no
// transition in the current state.
func (e *Engine) transition(cur Status, ev Event) (Status, bool) {
	next := cur
	next.Message = ""

	switch ev.Kind {
	case EventBegin, EventRequested, EventLocalSave:
		switch cur.State {
		case Syncing:
			return cur, false
		case Error:
			// Errors are never retried automatically; only an explicit
			// request leaves the error state.
			if ev.Kind != EventRequested {
				return cur, false
			}
		}
		next.State = Syncing
		return next, true

	case EventEnd:
		if cur.State != Syncing {
			return cur, false
		}
		if ev.Err != nil {
			next.State = Error
			next.Message = ev.Err.Error()
			return next, true
		}
		next.State = Success
		next.LastSync = ev.EndDate
		if next.LastSync.IsZero() {
			next.LastSync = e.now()
		}
		return next, true

	case EventDismiss:
		if cur.State != Error {
			return cur, false
		}
		next.State = Idle
		return next, true

	case eventDecay:
		if cur.State != Success || ev.generation != cur.Generation {
			return cur, false
		}
		next.State = Idle
		return next, true
	}

	return cur, false
}

// broadcast delivers st to every subscriber without blocking. Callers hold mu.
func (e *Engine) broadcast(st Status) {
	for _, ch := range e.subs {
		select {
		case ch <- st:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
			e.log.Warn("dropping sync status for slow subscriber")
		}
	}
}
