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

// GearConfig wires a GearManager.
type GearConfig struct {
	Content content.Client
	Engine  *validation.Engine
	Logger  *slog.Logger
}

// GearManager handles equipment purchases against the pack budget. The
// budget is soft: going over flags the overflow but never blocks a buy. The
// spent total is maintained incrementally and floor-clamped at zero, so a
// removed pack freebie can never drive it negative.
type GearManager struct {
	content content.Client
	engine  *validation.Engine
	log     *slog.Logger
}

func NewGearManager(cfg *GearConfig) *GearManager {
	if cfg == nil || cfg.Content == nil || cfg.Engine == nil {
		panic("steps.NewGearManager: missing required config")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GearManager{content: cfg.Content, engine: cfg.Engine, log: logger}
}

func (m *GearManager) Step() character.StepID { return character.StepGear }

func (m *GearManager) Activate(_ context.Context, sess *Session) bool {
	sess.State.UpdateState(state.PathCurrentStep, character.StepGear, state.UpdateOpts{SkipHistory: true})
	return true
}

func (m *GearManager) HandleAction(ctx context.Context, sess *Session, action Action) error {
	switch action.Kind {
	case ActionAdd:
		return m.addGear(ctx, sess, action.Ref)
	case ActionRemove:
		return m.removeGear(ctx, sess, action.Ref)
	case ActionClear:
		sess.State.ResetStep(character.StepGear)
		sess.BumpGeneration()
		return nil
	default:
		return errors.Internalf("gear step cannot handle action '%s'", action.Kind)
	}
}

// addGear buys an item. The content lookup can be slow; the generation
// captured before it guards against committing into a session that was reset
// or renavigated while the lookup was in flight.
func (m *GearManager) addGear(ctx context.Context, sess *Session, ref string) error {
	gen := sess.Generation()

	item, err := m.content.GetItem(ctx, ref)
	if err != nil {
		return errors.Wrapf(err, "resolving gear '%s'", ref)
	}
	if item.Category != compendium.CategoryGear {
		return errors.InvalidArgumentf("'%s' is not gear", ref)
	}
	if sess.Stale(gen) {
		return errors.Unavailablef("session moved on while resolving '%s'", ref)
	}

	// State re-read after the lookup: the list may have changed meanwhile.
	st := sess.State.GetCurrentState()
	res := m.engine.ValidateSelection(ctx, st, item)
	for _, w := range res.Warnings {
		m.log.Warn("gear purchase flagged", "ref", ref, "issue", w.String())
	}
	if !res.Valid {
		return errors.Validationf("gear '%s' was rejected: %s", ref, res.Errors[0].Message)
	}

	cost := item.Cost.Units()
	writes := map[state.Path]any{
		state.PathGear:          append(st.Gear, ref),
		state.PathGearCostSpent: st.GearCostSpent + cost,
	}
	if !sess.State.UpdateMultiple(writes, state.UpdateOpts{}) {
		return errors.Validationf("gear '%s' was rejected", ref)
	}
	return nil
}

// removeGear sells one copy back at full cost. Pack contents carry no cost,
// so removing one refunds nothing; the clamp keeps the total at zero or
// above regardless.
func (m *GearManager) removeGear(ctx context.Context, sess *Session, ref string) error {
	st := sess.State.GetCurrentState()
	if !st.HasGear(ref) {
		return errors.NotFoundf("'%s' is not in the gear list", ref)
	}

	refund := 0.0
	if !m.isPackContent(ctx, st, ref) {
		item, err := m.content.GetItem(ctx, ref)
		if err != nil {
			return errors.Wrapf(err, "resolving gear '%s'", ref)
		}
		refund = item.Cost.Units()
	}

	spent := st.GearCostSpent - refund
	if spent < 0 {
		spent = 0
	}
	writes := map[state.Path]any{
		state.PathGear:          character.RemoveString(st.Gear, ref),
		state.PathGearCostSpent: spent,
	}
	if !sess.State.UpdateMultiple(writes, state.UpdateOpts{}) {
		return errors.Validationf("removing gear '%s' was rejected", ref)
	}
	return nil
}

func (m *GearManager) isPackContent(ctx context.Context, st *character.State, ref string) bool {
	if st.SelectedStartingPack == nil {
		return false
	}
	pack, err := m.content.GetItem(ctx, *st.SelectedStartingPack)
	if err != nil {
		return false
	}
	return containsOption(pack.Contents, ref)
}

func (m *GearManager) IsComplete(st *character.State) bool {
	return m.engine.StepComplete(character.StepGear, st)
}

func (m *GearManager) Reset(sess *Session) {
	sess.State.ResetStep(character.StepGear)
	sess.BumpGeneration()
}

func (m *GearManager) PrepareContext(ctx context.Context, sess *Session) (*StepContext, error) {
	st := sess.State.GetCurrentState()
	budgets := state.CalculateBudgets(st)

	options, err := m.content.ListCategory(ctx, compendium.CategoryGear, nil)
	if err != nil {
		return nil, errors.Wrap(err, "listing gear")
	}
	return &StepContext{
		Step:     character.StepGear,
		Prompt:   "Buy your equipment",
		Options:  options,
		Budgets:  budgets,
		Complete: m.IsComplete(st),
	}, nil
}
