// Package steps holds the per-step managers of the builder wizard. Each
// manager owns one step's actions and mutates session state only through the
// state manager's path writes, so every change validates and versions the
// same way.
package steps

import (
	"context"
	"sync/atomic"

	"github.com/emberfell/character-builder/internal/domain/character"
	"github.com/emberfell/character-builder/internal/domain/compendium"
	"github.com/emberfell/character-builder/internal/state"
)

// ActionKind names a step action. The set is closed per step; routing an
// action a step does not understand is a wiring bug, not user error.
type ActionKind string

const (
	ActionSelect ActionKind = "select"
	ActionClear  ActionKind = "clear"

	ActionAdd       ActionKind = "add"
	ActionRemove    ActionKind = "remove"
	ActionRandomize ActionKind = "randomize"

	ActionSelectArray ActionKind = "select-array"
	ActionPickValue   ActionKind = "pick-value"
	ActionAssignStat  ActionKind = "assign-stat"
	ActionResetStats  ActionKind = "reset-stats"
	ActionApplyBonus  ActionKind = "apply-bonus"

	ActionFulfill       ActionKind = "fulfill"
	ActionUnfulfill     ActionKind = "unfulfill"
	ActionToggleShowAll ActionKind = "toggle-show-all"
	ActionConfigure     ActionKind = "configure-choice"
)

// Action is one user interaction with a step.
type Action struct {
	Kind ActionKind

	// Ref is the item reference for select/add/remove/fulfill actions.
	Ref string
	// Index addresses a pool slot for pick-value.
	Index int
	// Value carries the expected pool value; pick-value falls back to
	// matching by value when the index went stale.
	Value int
	// Stat targets a slot for assign-stat and apply-bonus.
	Stat string
	// Option selects a perk choice configuration for configure-choice.
	Option string
}

// StepContext is everything a host UI needs to render a step.
type StepContext struct {
	Step     character.StepID
	Prompt   string
	Options  []compendium.ItemSummary
	Budgets  character.Budgets
	Pool     []int
	Grants   []character.Grant
	Active   *character.Grant
	Preview  *compendium.DerivedFields
	Complete bool
}

// Manager drives one wizard step.
type Manager interface {
	Step() character.StepID
	// Activate prepares the step when the wizard lands on it; false means
	// the step should be skipped outright for this state.
	Activate(ctx context.Context, sess *Session) bool
	HandleAction(ctx context.Context, sess *Session, action Action) error
	IsComplete(st *character.State) bool
	Reset(sess *Session)
	PrepareContext(ctx context.Context, sess *Session) (*StepContext, error)
}

// Session is one character-in-progress. The generation counter guards slow
// async continuations: any reset or navigation bumps it, and an action that
// resolved content against an older generation discards its result instead
// of committing into a state that moved on.
type Session struct {
	ID      string
	OwnerID string
	State   *state.Manager

	// ShowAllPerks widens the perk listing past the active grant's allowed
	// set; disallowed entries render ghosted, they are still unselectable.
	ShowAllPerks bool

	generation atomic.Int64
}

func (s *Session) Generation() int64     { return s.generation.Load() }
func (s *Session) BumpGeneration() int64 { return s.generation.Add(1) }

// Stale reports whether the session moved past the given generation.
func (s *Session) Stale(gen int64) bool { return s.generation.Load() != gen }
