package usecase

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/productstudio/backend/internal/domain"
	"go.uber.org/zap"
)

// State names the phase a machine is in
type State string

const (
	StateInput      State = "input"
	StateProcessing State = "processing"
	StateComplete   State = "complete"
)

// Phase is the current state of a machine together with its payload.
// Exactly one of InputPhase, ProcessingPhase and CompletePhase.
type Phase interface {
	State() State
}

// InputPhase holds the form being filled in
type InputPhase struct {
	Form Form
}

// ProcessingPhase holds the form of the running call and its progress
type ProcessingPhase struct {
	Form      Form
	Progress  domain.Progress
	StartedAt time.Time
}

// CompletePhase holds the records of a finished run
type CompletePhase struct {
	Form    Form
	Store   *Store
	Elapsed time.Duration
}

func (InputPhase) State() State      { return StateInput }
func (ProcessingPhase) State() State { return StateProcessing }
func (CompletePhase) State() State   { return StateComplete }

// Snapshot is a point-in-time copy of a machine, safe to hand out
type Snapshot struct {
	State          State            `json:"state"`
	Form           Form             `json:"form"`
	Progress       *domain.Progress `json:"progress,omitempty"`
	ElapsedSeconds int              `json:"elapsed_seconds"`
	Products       []domain.Product `json:"products,omitempty"`
}

// MachineConfig holds the settings of a state machine
type MachineConfig struct {
	// Tick is the period of the elapsed counter while processing
	Tick time.Duration
	Now  func() time.Time
}

// Machine drives one operator's runs through Input, Processing and Complete.
// Its transition methods are the only way to change state.
type Machine struct {
	mu       sync.Mutex
	phase    Phase
	adapters map[domain.SourceMode]SourceAdapter
	regen    domain.Regenerator
	tick     time.Duration
	now      func() time.Time
	logger   *zap.Logger

	stopTicker func()
	closed     bool

	observers    map[int]func(Snapshot)
	nextObserver int
}

// NewMachine creates a machine in the Input state
func NewMachine(adapters map[domain.SourceMode]SourceAdapter, regen domain.Regenerator, cfg MachineConfig, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	tick := cfg.Tick
	if tick <= 0 {
		tick = time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Machine{
		phase:     InputPhase{},
		adapters:  adapters,
		regen:     regen,
		tick:      tick,
		now:       now,
		logger:    logger,
		observers: make(map[int]func(Snapshot)),
	}
}

// Phase returns the current phase
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// State returns the name of the current phase
func (m *Machine) State() State {
	return m.Phase().State()
}

// Snapshot returns a copy of the machine's observable state
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	switch p := m.phase.(type) {
	case ProcessingPhase:
		progress := p.Progress
		return Snapshot{
			State:          StateProcessing,
			Form:           p.Form,
			Progress:       &progress,
			ElapsedSeconds: int(p.Progress.Elapsed / time.Second),
		}
	case CompletePhase:
		return Snapshot{
			State:          StateComplete,
			Form:           p.Form,
			ElapsedSeconds: int(p.Elapsed / time.Second),
			Products:       p.Store.Products(),
		}
	case InputPhase:
		return Snapshot{State: StateInput, Form: p.Form}
	default:
		return Snapshot{State: StateInput}
	}
}

// Start validates the form and runs its source adapter to completion.
// A guard failure returns a validation error without any state change.
// On success the machine is Complete; on failure it is back in Input with
// the form kept for a retry, and the error is returned.
func (m *Machine) Start(ctx context.Context, form Form) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return domain.NewValidationError("session is closed")
	}
	switch m.phase.(type) {
	case ProcessingPhase:
		m.mu.Unlock()
		return domain.NewValidationError("A run is already in progress")
	case CompletePhase:
		m.mu.Unlock()
		return domain.NewValidationError("Reset the current results before starting a new run")
	}

	category, err := form.Validate()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	adapter, ok := m.adapters[form.Mode]
	if !ok {
		m.mu.Unlock()
		return domain.NewValidationError("source mode %q is not available", form.Mode)
	}

	progress := domain.Progress{Message: "Starting..."}
	if form.Mode == domain.SourceCSV {
		progress.Estimated = EstimateRows(form.File.Content)
		if progress.Estimated > 0 {
			progress.Message = "Processing about " + strconv.Itoa(progress.Estimated) + " rows..."
		}
	}
	started := m.now()
	m.phase = ProcessingPhase{Form: form, Progress: progress, StartedAt: started}
	stop := m.startTickerLocked()
	m.mu.Unlock()
	m.notify()

	m.logger.Info("run started", zap.String("mode", string(form.Mode)), zap.String("category", string(category)))

	products, err := adapter.Execute(ctx, form, category, m.report)
	stop()

	m.mu.Lock()
	m.stopTicker = nil
	elapsed := time.Duration(0)
	if p, ok := m.phase.(ProcessingPhase); ok {
		elapsed = p.Progress.Elapsed
	}
	if err != nil {
		m.phase = InputPhase{Form: form}
		m.mu.Unlock()
		m.notify()
		m.logger.Warn("run failed",
			zap.String("mode", string(form.Mode)),
			zap.String("kind", domain.KindName(err)),
			zap.Error(err))
		return err
	}

	AssignIDs(products, strconv.FormatInt(started.UnixMilli(), 10))
	m.phase = CompletePhase{
		Form:    form,
		Store:   NewStore(products, m.regen, m.logger),
		Elapsed: elapsed,
	}
	m.mu.Unlock()
	m.notify()

	m.logger.Info("run completed",
		zap.String("mode", string(form.Mode)),
		zap.Int("products", len(products)),
		zap.Duration("elapsed", m.now().Sub(started)))
	return nil
}

// Reset discards the form and any results and returns to Input.
// It is rejected while a run is processing.
func (m *Machine) Reset() error {
	m.mu.Lock()
	if _, ok := m.phase.(ProcessingPhase); ok {
		m.mu.Unlock()
		return domain.NewValidationError("Cannot reset while a run is processing")
	}
	m.phase = InputPhase{}
	m.mu.Unlock()
	m.notify()
	return nil
}

// Store returns the records of the completed run
func (m *Machine) Store() (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.phase.(CompletePhase); ok {
		return p.Store, nil
	}
	return nil, domain.NewValidationError("There are no results yet")
}

// Subscribe registers fn to receive a snapshot after every change.
// fn may be called from more than one goroutine. The returned func removes it.
func (m *Machine) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextObserver
	m.nextObserver++
	m.observers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.observers, id)
	}
}

// Close stops the elapsed ticker and rejects further runs
func (m *Machine) Close() {
	m.mu.Lock()
	m.closed = true
	stop := m.stopTicker
	m.stopTicker = nil
	m.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// Closed reports whether Close has been called
func (m *Machine) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// startTickerLocked launches the elapsed counter. The returned stop func
// is idempotent and waits for the goroutine to exit.
func (m *Machine) startTickerLocked() func() {
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		ticker := time.NewTicker(m.tick)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.advance()
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() { close(done) })
		<-exited
	}
	m.stopTicker = stop
	return stop
}

func (m *Machine) advance() {
	m.mu.Lock()
	p, ok := m.phase.(ProcessingPhase)
	if !ok {
		m.mu.Unlock()
		return
	}
	p.Progress.Elapsed += m.tick
	m.phase = p
	m.mu.Unlock()
	m.notify()
}

// report is the progress callback handed to adapters
func (m *Machine) report(message string) {
	m.mu.Lock()
	p, ok := m.phase.(ProcessingPhase)
	if !ok {
		m.mu.Unlock()
		return
	}
	p.Progress.Message = message
	m.phase = p
	m.mu.Unlock()
	m.notify()
}

func (m *Machine) notify() {
	m.mu.Lock()
	if len(m.observers) == 0 {
		m.mu.Unlock()
		return
	}
	snap := m.snapshotLocked()
	observers := make([]func(Snapshot), 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}
	m.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}
