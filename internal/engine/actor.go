package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/partyround/cartridge/internal/round"
)

// FactSink receives stamped facts as they are emitted. The orchestrator
// supplies one sink per cartridge instance; the engine has no knowledge of
// who receives broadcasts downstream.
type FactSink func(round.Fact)

// Actor runs one cartridge machine as a single-writer event loop.
//
// External goroutines submit events with Enqueue; the Run goroutine applies
// them to the machine one at a time, stamps and forwards the resulting
// facts, and arms the timers the machine requests. Timer fires re-enter the
// same queue, so a timer and a player event racing for the same transition
// are resolved by ordinary FIFO ordering.
type Actor struct {
	id      string
	machine Machine
	queue   *eventQueue
	clock   *Clock
	wall    WallClock
	sink    FactSink
	logger  *slog.Logger

	timersMu sync.Mutex
	timers   map[string]*time.Timer

	doneCh chan struct{}

	outputMu sync.Mutex
	output   *round.Outcome
}

// ActorOption configures an Actor.
type ActorOption func(*Actor)

// WithWallClock overrides the wall clock. Tests use this with a fixed
// clock; production uses SystemClock.
func WithWallClock(wc WallClock) ActorOption {
	return func(a *Actor) { a.wall = wc }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) ActorOption {
	return func(a *Actor) { a.logger = l }
}

// NewActor wraps a machine in an actor. The id identifies this cartridge
// instance in logs and journal rows. The sink may be nil, in which case
// facts are dropped after stamping (useful for simulations that only care
// about the final output).
func NewActor(id string, m Machine, sink FactSink, opts ...ActorOption) *Actor {
	a := &Actor{
		id:      id,
		machine: m,
		queue:   newEventQueue(),
		clock:   NewClock(),
		wall:    SystemClock{},
		sink:    sink,
		logger:  slog.Default(),
		timers:  make(map[string]*time.Timer),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID returns the cartridge instance identifier.
func (a *Actor) ID() string {
	return a.id
}

// Enqueue submits an event for processing. Safe from any goroutine.
// Returns false once the actor has finished.
func (a *Actor) Enqueue(ev round.Event) bool {
	return a.queue.Enqueue(ev)
}

// Done returns a channel closed when the machine reaches its terminal
// phase.
func (a *Actor) Done() <-chan struct{} {
	return a.doneCh
}

// Output returns the final outcome, or nil while the machine is still
// running.
func (a *Actor) Output() *round.Outcome {
	a.outputMu.Lock()
	defer a.outputMu.Unlock()
	return a.output
}

// Run starts the single-writer loop. It applies the machine's Begin
// transition, then processes events until the machine completes or the
// context is cancelled. Must be called from exactly one goroutine.
func (a *Actor) Run(ctx context.Context) error {
	a.logger.Info("cartridge starting", "instance", a.id)

	a.apply(a.machine.Begin(a.wall.Now()))

	for {
		select {
		case <-a.doneCh:
			a.logger.Info("cartridge completed", "instance", a.id, "facts", a.clock.Current())
			return nil
		default:
		}

		ev, ok := a.queue.TryDequeue()
		if ok {
			a.apply(a.machine.Handle(ev, a.wall.Now()))
			continue
		}

		select {
		case <-ctx.Done():
			a.logger.Info("cartridge stopping: context cancelled", "instance", a.id)
			a.shutdown()
			return ctx.Err()

		case <-a.queue.Wait():
			if a.queue.Len() == 0 {
				a.logger.Info("cartridge stopping: queue closed", "instance", a.id)
				a.shutdown()
				return nil
			}
		}
	}
}

// apply performs a transition's side effects: timer bookkeeping first, then
// fact stamping and emission, then terminal handling. Called only from the
// Run goroutine.
func (a *Actor) apply(t Transition) {
	for _, name := range t.Cancel {
		a.cancelTimer(name)
	}
	for _, req := range t.Schedule {
		a.scheduleTimer(req)
	}

	now := a.wall.Now()
	for _, fact := range t.Facts {
		fact.Seq = a.clock.Next()
		fact.Timestamp = now
		a.logger.Debug("fact emitted",
			"instance", a.id,
			"kind", fact.Kind,
			"actor", fact.ActorID,
			"seq", fact.Seq,
		)
		if a.sink != nil {
			a.sink(fact)
		}
	}

	if t.Done {
		a.outputMu.Lock()
		a.output = t.Output
		a.outputMu.Unlock()
		a.shutdown()
		close(a.doneCh)
	}
}

func (a *Actor) scheduleTimer(req TimerRequest) {
	a.timersMu.Lock()
	defer a.timersMu.Unlock()

	if old, ok := a.timers[req.Name]; ok {
		old.Stop()
	}
	name := req.Name
	a.timers[name] = time.AfterFunc(req.After, func() {
		a.queue.Enqueue(round.TimerEvent(name))
	})
}

func (a *Actor) cancelTimer(name string) {
	a.timersMu.Lock()
	defer a.timersMu.Unlock()

	if tm, ok := a.timers[name]; ok {
		tm.Stop()
		delete(a.timers, name)
	}
}

// shutdown stops all pending timers and closes the queue.
func (a *Actor) shutdown() {
	a.timersMu.Lock()
	for name, tm := range a.timers {
		tm.Stop()
		delete(a.timers, name)
	}
	a.timersMu.Unlock()

	a.queue.Close()
}
