package busy

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Source identifies where in-flight work is happening.
type Source int

const (
	SourceNone Source = iota
	SourceBackend
	SourceLocal
)

func (s Source) String() string {
	switch s {
	case SourceBackend:
		return "backend"
	case SourceLocal:
		return "local"
	default:
		return "none"
	}
}

// Mode controls whether the busy indicator blocks interaction.
type Mode int

const (
	ModeSoft Mode = iota
	ModeHard
)

func (m Mode) String() string {
	if m == ModeHard {
		return "hard"
	}
	return "soft"
}

// State is the busy signal presented to the UI.
type State struct {
	Visible bool
	Mode    Mode
	Source  Source
	Message string
}

// Options describe one tracked operation.
type Options struct {
	Source  Source
	Mode    Mode
	Delay   time.Duration // zero uses the tracker default
	Message string        // empty uses the per-source default
}

// Counts reports the in-flight counters.
type Counts struct {
	Backend int
	Local   int
	Hard    int
}

const (
	DefaultDelay          = 200 * time.Millisecond
	defaultBackendMessage = "Talking to the server…"
	defaultLocalMessage   = "Working…"
)

type operation struct {
	id   uint64
	opts Options
}

// Tracker derives a single busy state from many overlapping operations.
// All methods are safe for concurrent use and a nil *Tracker is a no-op.
type Tracker struct {
	mu           sync.Mutex
	scheduler    Scheduler
	logger       *slog.Logger
	defaultDelay time.Duration

	counts   Counts
	ops      []operation
	nextOp   uint64
	suppress bool

	state  State
	cancel func() bool
	token  uint64

	listeners    map[uint64]func(State)
	nextListener uint64
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithScheduler replaces the timer implementation.
func WithScheduler(s Scheduler) Option {
	return func(t *Tracker) {
		if s != nil {
			t.scheduler = s
		}
	}
}

// WithDefaultDelay sets the debounce used when Options.Delay is zero.
func WithDefaultDelay(d time.Duration) Option {
	return func(t *Tracker) {
		if d >= 0 {
			t.defaultDelay = d
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// New constructs a Tracker. One tracker is meant to live for the whole process.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		scheduler:    timerScheduler{},
		logger:       slog.Default(),
		defaultDelay: DefaultDelay,
		listeners:    make(map[uint64]func(State)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Begin starts tracking an operation and returns the function that ends it.
// The returned function is idempotent.
func (t *Tracker) Begin(opts Options) (end func()) {
	if t == nil {
		return func() {}
	}
	if opts.Source != SourceBackend && opts.Source != SourceLocal {
		t.logger.Warn("busy: unknown source, treating as local", "source", int(opts.Source))
		opts.Source = SourceLocal
	}
	if opts.Delay <= 0 {
		opts.Delay = t.defaultDelay
	}

	t.mu.Lock()
	t.nextOp++
	id := t.nextOp
	t.ops = append(t.ops, operation{id: id, opts: opts})
	t.adjustLocked(opts, 1)
	changed := t.scheduleShowLocked(opts.Delay)
	t.mu.Unlock()
	t.emit(changed)

	var once sync.Once
	return func() {
		once.Do(func() { t.end(id, opts) })
	}
}

// Wrap runs fn while the operation is tracked. The operation is released on
// every exit path, including a panic inside fn.
func (t *Tracker) Wrap(ctx context.Context, opts Options, fn func(context.Context) error) error {
	end := t.Begin(opts)
	defer end()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// Do is Wrap for operations that produce a value.
func Do[T any](ctx context.Context, t *Tracker, opts Options, fn func(context.Context) (T, error)) (T, error) {
	end := t.Begin(opts)
	defer end()
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	return fn(ctx)
}

// Subscribe registers fn to receive every state change. Listeners run on the
// goroutine that caused the change, outside the tracker lock; use Snapshot
// for the authoritative current value.
func (t *Tracker) Subscribe(fn func(State)) (unsubscribe func()) {
	if t == nil || fn == nil {
		return func() {}
	}
	t.mu.Lock()
	t.nextListener++
	id := t.nextListener
	t.listeners[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// Snapshot returns the last notified state.
func (t *Tracker) Snapshot() State {
	if t == nil {
		return State{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// InFlight returns the current counters.
func (t *Tracker) InFlight() Counts {
	if t == nil {
		return Counts{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts
}

// SetSuppressHardForBackend keeps backend work from escalating to hard mode.
func (t *Tracker) SetSuppressHardForBackend(v bool) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.suppress = v
	var changed *State
	if t.runningLocked() {
		if t.state.Visible {
			changed = t.setLocked(t.targetLocked())
		} else {
			changed = t.scheduleShowLocked(t.defaultDelay)
		}
	}
	t.mu.Unlock()
	t.emit(changed)
}

func (t *Tracker) end(id uint64, opts Options) {
	t.mu.Lock()
	for i, op := range t.ops {
		if op.id == id {
			t.ops = append(t.ops[:i], t.ops[i+1:]...)
			break
		}
	}
	t.adjustLocked(opts, -1)

	var changed *State
	if !t.runningLocked() {
		t.cancelTimerLocked()
		changed = t.setLocked(State{})
	} else if t.state.Visible {
		changed = t.setLocked(t.targetLocked())
	}
	t.mu.Unlock()
	t.emit(changed)
}

func (t *Tracker) adjustLocked(opts Options, delta int) {
	switch opts.Source {
	case SourceBackend:
		t.counts.Backend = max(0, t.counts.Backend+delta)
	case SourceLocal:
		t.counts.Local = max(0, t.counts.Local+delta)
	}
	if opts.Mode == ModeHard {
		t.counts.Hard = max(0, t.counts.Hard+delta)
	}
}

func (t *Tracker) runningLocked() bool {
	return t.counts.Backend > 0 || t.counts.Local > 0
}

// scheduleShowLocked either refreshes an already visible overlay or arms the
// single debounce timer.
func (t *Tracker) scheduleShowLocked(delay time.Duration) *State {
	if !t.runningLocked() {
		return nil
	}
	if t.state.Visible {
		return t.setLocked(t.targetLocked())
	}
	if t.cancel != nil {
		return nil
	}
	t.token++
	token := t.token
	t.cancel = t.scheduler.After(delay, func() { t.fire(token) })
	return nil
}

func (t *Tracker) fire(token uint64) {
	t.mu.Lock()
	if token != t.token {
		t.mu.Unlock()
		return
	}
	t.cancel = nil
	var changed *State
	if t.runningLocked() {
		changed = t.setLocked(t.targetLocked())
	}
	t.mu.Unlock()
	t.emit(changed)
}

func (t *Tracker) cancelTimerLocked() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.token++
}

// targetLocked computes the visible state from the operations still in flight.
// Backend outranks local; hard outranks soft unless suppressed for backend.
func (t *Tracker) targetLocked() State {
	source := SourceNone
	switch {
	case t.counts.Backend > 0:
		source = SourceBackend
	case t.counts.Local > 0:
		source = SourceLocal
	}

	mode := ModeSoft
	message := ""
	for i := len(t.ops) - 1; i >= 0; i-- {
		op := t.ops[i].opts
		if op.Mode == ModeHard && !(t.suppress && op.Source == SourceBackend) {
			mode = ModeHard
		}
		if message == "" && op.Source == source && op.Message != "" {
			message = op.Message
		}
	}
	if message == "" {
		switch source {
		case SourceBackend:
			message = defaultBackendMessage
		case SourceLocal:
			message = defaultLocalMessage
		}
	}
	return State{Visible: true, Mode: mode, Source: source, Message: message}
}

// setLocked stores next and returns it when it differs from the current state.
func (t *Tracker) setLocked(next State) *State {
	if next == t.state {
		return nil
	}
	t.state = next
	t.logger.Debug("busy state changed",
		"visible", next.Visible,
		"mode", next.Mode.String(),
		"source", next.Source.String(),
		"backend", t.counts.Backend,
		"local", t.counts.Local,
		"hard", t.counts.Hard,
	)
	return &next
}

func (t *Tracker) emit(changed *State) {
	if changed == nil {
		return
	}
	t.mu.Lock()
	listeners := make([]func(State), 0, len(t.listeners))
	for _, fn := range t.listeners {
		listeners = append(listeners, fn)
	}
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(*changed)
	}
}
