package state

import (
	"log/slog"
	"sync"
	"time"

	"github.com/emberfell/character-builder/internal/domain/character"
)

const maxHistoryDepth = 50

// CompletionFunc reports whether a step is complete for the given state. The
// manager recomputes completion after every committed mutation; the concrete
// rules live in the validation engine and are injected here to keep this
// package free of rule knowledge.
type CompletionFunc func(step character.StepID, st *character.State) bool

// ValidateFunc checks cross-path invariants over a candidate state before it
// is committed. A non-nil error rolls the whole mutation back.
type ValidateFunc func(st *character.State) error

// Listener observes committed mutations. Listeners registered on PathWildcard
// fire for every commit; others only for their exact path.
type Listener func(path Path, st *character.State)

// UpdateOpts tunes a single mutation.
type UpdateOpts struct {
	// SkipHistory commits without pushing an undo entry. Used for derived
	// writes that should not be individually undoable.
	SkipHistory bool
	// SkipValidation bypasses the cross-path invariant check. Path-level
	// predicates still apply.
	SkipValidation bool
}

// ManagerConfig wires a Manager.
type ManagerConfig struct {
	// Complete is optional; when nil, completedSteps is never recomputed.
	Complete CompletionFunc
	// Validate is optional; when nil, only path predicates gate commits.
	Validate ValidateFunc
	Logger   *slog.Logger
}

// Manager owns one builder session's state. All mutations go through path
// writes that validate before committing; a failed write leaves the state
// untouched and returns false rather than an error, since bad values are
// expected input, not failures.
type Manager struct {
	mu       sync.Mutex
	state    *character.State
	history  []*character.State
	complete CompletionFunc
	validate ValidateFunc
	log      *slog.Logger

	listenerMu sync.RWMutex
	listeners  map[Path][]Listener
}

func NewManager(cfg *ManagerConfig) *Manager {
	if cfg == nil {
		cfg = &ManagerConfig{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		state:     character.NewState(),
		complete:  cfg.Complete,
		validate:  cfg.Validate,
		log:       logger,
		listeners: make(map[Path][]Listener),
	}
}

// UpdateState applies one path write. Returns true when the write committed.
func (m *Manager) UpdateState(path Path, value any, opts UpdateOpts) bool {
	return m.UpdateMultiple(map[Path]any{path: value}, opts)
}

// UpdateMultiple applies several path writes atomically: either every write
// commits, with a single version bump and one undo entry, or none do.
func (m *Manager) UpdateMultiple(writes map[Path]any, opts UpdateOpts) bool {
	if len(writes) == 0 {
		return true
	}

	m.mu.Lock()
	next := m.state.Clone()
	for path, value := range writes {
		apply, err := resolvePath(path)
		if err != nil {
			m.mu.Unlock()
			m.log.Warn("rejected state write", "path", string(path), "error", err)
			return false
		}
		if err := apply(next, value); err != nil {
			m.mu.Unlock()
			m.log.Warn("rejected state write", "path", string(path), "error", err)
			return false
		}
	}
	if !opts.SkipValidation && m.validate != nil {
		if err := m.validate(next); err != nil {
			m.mu.Unlock()
			m.log.Warn("state mutation failed invariant check", "error", err)
			return false
		}
	}

	prev := m.state
	next.Version = prev.Version + 1
	next.UpdatedAt = time.Now().UTC()
	m.recomputeCompletion(next)
	m.state = next
	if !opts.SkipHistory {
		m.pushHistory(prev)
	}
	m.mu.Unlock()

	snapshot := next.Clone()
	for path := range writes {
		m.notify(path, snapshot)
	}
	m.notify(PathWildcard, snapshot)
	return true
}

// GetCurrentState returns a deep copy; callers can never alias live state.
func (m *Manager) GetCurrentState() *character.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Version returns the commit counter. It only ever increases, including
// across Undo and ResetStep, so it is safe as a cache key.
func (m *Manager) Version() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Version
}

// ResetStep clears one step's slice of the state back to defaults. Resetting
// the class step cascades into the skill, spell, and perk fields it feeds.
func (m *Manager) ResetStep(step character.StepID) {
	m.mu.Lock()
	prev := m.state
	next := prev.Clone()
	next.ResetStep(step)
	next.Version = prev.Version + 1
	next.UpdatedAt = time.Now().UTC()
	m.recomputeCompletion(next)
	m.state = next
	m.pushHistory(prev)
	m.mu.Unlock()

	m.notify(PathWildcard, next.Clone())
}

// Undo restores the most recent history entry. Returns false when there is
// nothing to undo.
func (m *Manager) Undo() bool {
	m.mu.Lock()
	if len(m.history) == 0 {
		m.mu.Unlock()
		return false
	}
	restored := m.history[len(m.history)-1].Clone()
	m.history = m.history[:len(m.history)-1]
	restored.Version = m.state.Version + 1
	restored.UpdatedAt = time.Now().UTC()
	m.state = restored
	m.mu.Unlock()

	m.notify(PathWildcard, restored.Clone())
	return true
}

// HistoryDepth reports how many undo entries are available.
func (m *Manager) HistoryDepth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

// Subscribe registers a listener for a path, or for every commit via
// PathWildcard. The returned func unregisters it.
func (m *Manager) Subscribe(path Path, fn Listener) func() {
	m.listenerMu.Lock()
	m.listeners[path] = append(m.listeners[path], fn)
	idx := len(m.listeners[path]) - 1
	m.listenerMu.Unlock()

	return func() {
		m.listenerMu.Lock()
		defer m.listenerMu.Unlock()
		ls := m.listeners[path]
		if idx < len(ls) && ls[idx] != nil {
			ls[idx] = nil
		}
	}
}

// CalculateBudgets derives the three budget views from state alone. Stat
// budgets are always zeroed: arrays are picked whole, nothing is bought.
func (m *Manager) CalculateBudgets() character.Budgets {
	st := m.GetCurrentState()
	return CalculateBudgets(st)
}

// CalculateBudgets is the pure derivation behind Manager.CalculateBudgets.
// It never touches content lookups; everything it needs lives on the state.
func CalculateBudgets(st *character.State) character.Budgets {
	return character.Budgets{
		Stats:  character.NewBudget(0, 0),
		Spells: character.NewBudget(float64(st.SpellLimit), float64(len(st.Spells))),
		Gear:   character.NewBudget(st.GearBudget, st.GearCostSpent),
	}
}

func (m *Manager) recomputeCompletion(st *character.State) {
	if m.complete == nil {
		return
	}
	completed := make([]character.StepID, 0, len(character.StepOrder))
	for _, step := range character.StepOrder {
		if m.complete(step, st) {
			completed = append(completed, step)
		}
	}
	st.CompletedSteps = completed
}

func (m *Manager) pushHistory(prev *character.State) {
	m.history = append(m.history, prev)
	if len(m.history) > maxHistoryDepth {
		m.history = m.history[len(m.history)-maxHistoryDepth:]
	}
}

func (m *Manager) notify(path Path, st *character.State) {
	m.listenerMu.RLock()
	ls := append([]Listener(nil), m.listeners[path]...)
	m.listenerMu.RUnlock()
	for _, fn := range ls {
		if fn != nil {
			fn(path, st)
		}
	}
}
