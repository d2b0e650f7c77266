package steps

import (
	"context"
	"log/slog"

	"github.com/emberfell/character-builder/internal/content"
	"github.com/emberfell/character-builder/internal/domain/character"
	"github.com/emberfell/character-builder/internal/domain/compendium"
	"github.com/emberfell/character-builder/internal/errors"
	"github.com/emberfell/character-builder/internal/state"
	"github.com/emberfell/character-builder/internal/validation"
)

// StartingPackConfig wires a StartingPackManager.
type StartingPackConfig struct {
	Content content.Client
	Engine  *validation.Engine
	Logger  *slog.Logger
}

// StartingPackManager handles the optional starting pack. Picking a pack
// sets the gear budget from its funds and drops its contents straight into
// the gear list at no cost.
type StartingPackManager struct {
	content content.Client
	engine  *validation.Engine
	log     *slog.Logger
}

func NewStartingPackManager(cfg *StartingPackConfig) *StartingPackManager {
	if cfg == nil || cfg.Content == nil || cfg.Engine == nil {
		panic("steps.NewStartingPackManager: missing required config")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &StartingPackManager{content: cfg.Content, engine: cfg.Engine, log: logger}
}

func (m *StartingPackManager) Step() character.StepID { return character.StepStartingPack }

func (m *StartingPackManager) Activate(_ context.Context, sess *Session) bool {
	sess.State.UpdateState(state.PathCurrentStep, character.StepStartingPack, state.UpdateOpts{SkipHistory: true})
	return true
}

func (m *StartingPackManager) HandleAction(ctx context.Context, sess *Session, action Action) error {
	switch action.Kind {
	case ActionSelect:
		return m.selectPack(ctx, sess, action.Ref)
	case ActionClear:
		sess.State.ResetStep(character.StepStartingPack)
		sess.BumpGeneration()
		return nil
	default:
		return errors.Internalf("starting pack step cannot handle action '%s'", action.Kind)
	}
}

func (m *StartingPackManager) selectPack(ctx context.Context, sess *Session, ref string) error {
	st := sess.State.GetCurrentState()
	if st.SelectedStartingPack != nil && *st.SelectedStartingPack == ref {
		return nil
	}

	item, err := m.content.GetItem(ctx, ref)
	if err != nil {
		return errors.Wrapf(err, "resolving starting pack '%s'", ref)
	}
	if item.Category != compendium.CategoryStartingPack {
		return errors.InvalidArgumentf("'%s' is not a starting pack", ref)
	}

	budget := character.DefaultGearBudget
	if item.Funds != nil {
		budget = item.Funds.Units()
	}

	// Switching packs restarts gear from the new pack's contents; bought
	// gear from the old budget does not carry over.
	writes := map[state.Path]any{
		state.PathSelectedStartingPack: ref,
		state.PathGearBudget:           budget,
		state.PathGear:                 append([]string{}, item.Contents...),
		state.PathGearCostSpent:        0.0,
	}
	if !sess.State.UpdateMultiple(writes, state.UpdateOpts{}) {
		return errors.Validationf("starting pack '%s' was rejected", ref)
	}
	sess.BumpGeneration()
	return nil
}

func (m *StartingPackManager) IsComplete(st *character.State) bool {
	return m.engine.StepComplete(character.StepStartingPack, st)
}

func (m *StartingPackManager) Reset(sess *Session) {
	sess.State.ResetStep(character.StepStartingPack)
	sess.BumpGeneration()
}

func (m *StartingPackManager) PrepareContext(ctx context.Context, sess *Session) (*StepContext, error) {
	options, err := m.content.ListCategory(ctx, compendium.CategoryStartingPack, nil)
	if err != nil {
		return nil, errors.Wrap(err, "listing starting packs")
	}
	st := sess.State.GetCurrentState()
	return &StepContext{
		Step:     character.StepStartingPack,
		Prompt:   "Choose a starting pack (optional)",
		Options:  options,
		Budgets:  state.CalculateBudgets(st),
		Complete: m.IsComplete(st),
	}, nil
}
