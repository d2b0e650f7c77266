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

// AncestryConfig wires an AncestryManager.
type AncestryConfig struct {
	Content content.Client
	Engine  *validation.Engine
	Logger  *slog.Logger
}

// AncestryManager handles the ancestry selection step.
type AncestryManager struct {
	content content.Client
	engine  *validation.Engine
	log     *slog.Logger
}

func NewAncestryManager(cfg *AncestryConfig) *AncestryManager {
	if cfg == nil || cfg.Content == nil || cfg.Engine == nil {
		panic("steps.NewAncestryManager: missing required config")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AncestryManager{content: cfg.Content, engine: cfg.Engine, log: logger}
}

func (m *AncestryManager) Step() character.StepID { return character.StepAncestry }

func (m *AncestryManager) Activate(_ context.Context, sess *Session) bool {
	sess.State.UpdateState(state.PathCurrentStep, character.StepAncestry, state.UpdateOpts{SkipHistory: true})
	return true
}

func (m *AncestryManager) HandleAction(ctx context.Context, sess *Session, action Action) error {
	switch action.Kind {
	case ActionSelect:
		return m.selectAncestry(ctx, sess, action.Ref)
	case ActionClear:
		sess.State.UpdateState(state.PathSelectedAncestry, nil, state.UpdateOpts{})
		return nil
	default:
		return errors.Internalf("ancestry step cannot handle action '%s'", action.Kind)
	}
}

func (m *AncestryManager) selectAncestry(ctx context.Context, sess *Session, ref string) error {
	item, err := m.content.GetItem(ctx, ref)
	if err != nil {
		return errors.Wrapf(err, "resolving ancestry '%s'", ref)
	}
	if item.Category != compendium.CategoryAncestry {
		return errors.InvalidArgumentf("'%s' is not an ancestry", ref)
	}
	if !sess.State.UpdateState(state.PathSelectedAncestry, ref, state.UpdateOpts{}) {
		return errors.Validationf("ancestry selection '%s' was rejected", ref)
	}
	return nil
}

func (m *AncestryManager) IsComplete(st *character.State) bool {
	return m.engine.StepComplete(character.StepAncestry, st)
}

func (m *AncestryManager) Reset(sess *Session) {
	sess.State.ResetStep(character.StepAncestry)
	sess.BumpGeneration()
}

func (m *AncestryManager) PrepareContext(ctx context.Context, sess *Session) (*StepContext, error) {
	options, err := m.content.ListCategory(ctx, compendium.CategoryAncestry, nil)
	if err != nil {
		return nil, errors.Wrap(err, "listing ancestries")
	}
	st := sess.State.GetCurrentState()
	return &StepContext{
		Step:     character.StepAncestry,
		Prompt:   "Choose your ancestry",
		Options:  options,
		Budgets:  state.CalculateBudgets(st),
		Complete: m.IsComplete(st),
	}, nil
}
