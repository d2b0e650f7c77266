package steps

import (
	"context"
	"log/slog"

	"github.com/emberfell/character-builder/internal/content"
	"github.com/emberfell/character-builder/internal/domain/character"
	"github.com/emberfell/character-builder/internal/domain/compendium"
	"github.com/emberfell/character-builder/internal/errors"
	"github.com/emberfell/character-builder/internal/random"
	"github.com/emberfell/character-builder/internal/state"
	"github.com/emberfell/character-builder/internal/validation"
)

// SpellsConfig wires a SpellsManager.
type SpellsConfig struct {
	Content content.Client
	Engine  *validation.Engine
	Random  random.Source
	Logger  *slog.Logger
}

// SpellsManager handles spell selection. Spells forced by ancestry traits,
// class features, or configured perks are injected automatically and cannot
// be removed; the player fills the remaining slots up to the class limit.
type SpellsManager struct {
	content content.Client
	engine  *validation.Engine
	random  random.Source
	log     *slog.Logger
}

func NewSpellsManager(cfg *SpellsConfig) *SpellsManager {
	if cfg == nil || cfg.Content == nil || cfg.Engine == nil || cfg.Random == nil {
		panic("steps.NewSpellsManager: missing required config")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SpellsManager{content: cfg.Content, engine: cfg.Engine, random: cfg.Random, log: logger}
}

func (m *SpellsManager) Step() character.StepID { return character.StepSpells }

// Activate injects any required spells that are not yet known. Required
// spells occupy limit slots like any other known spell.
func (m *SpellsManager) Activate(ctx context.Context, sess *Session) bool {
	sess.State.UpdateState(state.PathCurrentStep, character.StepSpells, state.UpdateOpts{SkipHistory: true})

	st := sess.State.GetCurrentState()
	required := m.requiredSpells(ctx, st)
	known := append([]string(nil), st.Spells...)
	changed := false
	for _, ref := range required {
		if !containsOption(known, ref) {
			known = append(known, ref)
			changed = true
		}
	}
	if changed {
		sess.State.UpdateState(state.PathSpells, known, state.UpdateOpts{SkipHistory: true})
	}
	return true
}

func (m *SpellsManager) HandleAction(ctx context.Context, sess *Session, action Action) error {
	switch action.Kind {
	case ActionAdd:
		return m.addSpell(ctx, sess, action.Ref)
	case ActionRemove:
		return m.removeSpell(ctx, sess, action.Ref)
	case ActionRandomize:
		return m.randomize(ctx, sess)
	case ActionClear:
		return m.clear(ctx, sess)
	default:
		return errors.Internalf("spells step cannot handle action '%s'", action.Kind)
	}
}

// addSpell learns one spell. The generation captured before the content
// lookup guards against committing into a session that was reset or
// renavigated while the lookup was in flight.
func (m *SpellsManager) addSpell(ctx context.Context, sess *Session, ref string) error {
	st := sess.State.GetCurrentState()
	if st.SpellLimit == 0 {
		return errors.Validationf("this class does not learn spells")
	}

	gen := sess.Generation()
	item, err := m.content.GetItem(ctx, ref)
	if err != nil {
		return errors.Wrapf(err, "resolving spell '%s'", ref)
	}
	if item.Category != compendium.CategorySpell {
		return errors.InvalidArgumentf("'%s' is not a spell", ref)
	}
	if sess.Stale(gen) {
		return errors.Unavailablef("session moved on while resolving '%s'", ref)
	}

	// State re-read after the lookup; duplicates and the limit are judged
	// against what is known now, not what was known when the add started.
	st = sess.State.GetCurrentState()
	res := m.engine.ValidateSelection(ctx, st, item)
	for _, w := range res.Warnings {
		m.log.Warn("spell pick flagged", "ref", ref, "issue", w.String())
	}
	if !res.Valid {
		return errors.Validationf("spell '%s' was rejected: %s", ref, res.Errors[0].Message)
	}

	if !sess.State.UpdateState(state.PathSpells, append(st.Spells, ref), state.UpdateOpts{}) {
		return errors.Validationf("spell '%s' was rejected", ref)
	}
	return nil
}

func (m *SpellsManager) removeSpell(ctx context.Context, sess *Session, ref string) error {
	st := sess.State.GetCurrentState()
	if !st.HasSpell(ref) {
		return errors.NotFoundf("'%s' is not known", ref)
	}
	if containsOption(m.requiredSpells(ctx, st), ref) {
		return errors.Validationf("'%s' is required and cannot be removed", ref)
	}
	if !sess.State.UpdateState(state.PathSpells, character.RemoveString(st.Spells, ref), state.UpdateOpts{}) {
		return errors.Validationf("removing spell '%s' was rejected", ref)
	}
	return nil
}

// randomize fills only the free slots; required and already-picked spells
// stay where they are.
func (m *SpellsManager) randomize(ctx context.Context, sess *Session) error {
	st := sess.State.GetCurrentState()
	free := st.SpellLimit - len(st.Spells)
	if st.SpellLimit == 0 || free <= 0 {
		return errors.Validationf("no free spell slots to fill")
	}

	listing, err := m.content.ListCategory(ctx, compendium.CategorySpell, nil)
	if err != nil {
		return errors.Wrap(err, "listing spells")
	}
	var candidates []string
	for _, s := range listing {
		if !st.HasSpell(s.Ref) {
			candidates = append(candidates, s.Ref)
		}
	}
	if len(candidates) < free {
		return errors.Validationf("not enough spells to fill %d slots", free)
	}

	picks := append([]string(nil), st.Spells...)
	perm := m.random.Perm(len(candidates))
	for i := 0; i < free; i++ {
		picks = append(picks, candidates[perm[i]])
	}
	if !sess.State.UpdateState(state.PathSpells, picks, state.UpdateOpts{}) {
		return errors.Validationf("randomized spells were rejected")
	}
	return nil
}

// clear drops every removable spell and keeps the required set.
func (m *SpellsManager) clear(ctx context.Context, sess *Session) error {
	st := sess.State.GetCurrentState()
	required := m.requiredSpells(ctx, st)
	kept := []string{}
	for _, ref := range st.Spells {
		if containsOption(required, ref) {
			kept = append(kept, ref)
		}
	}
	if !sess.State.UpdateState(state.PathSpells, kept, state.UpdateOpts{}) {
		return errors.Validationf("clearing spells was rejected")
	}
	return nil
}

// requiredSpells collects the non-removable set: ancestry traits, class
// features, and spells materialized by configured perks.
func (m *SpellsManager) requiredSpells(ctx context.Context, st *character.State) []string {
	var required []string
	for _, sel := range []*string{st.SelectedAncestry, st.SelectedClass} {
		if sel == nil {
			continue
		}
		item, err := m.content.GetItem(ctx, *sel)
		if err != nil {
			m.log.Warn("required spell source unavailable", "ref", *sel, "error", err)
			continue
		}
		for _, feature := range item.Features {
			for _, ref := range feature.RequiredSpells {
				if !containsOption(required, ref) {
					required = append(required, ref)
				}
			}
		}
	}
	for _, eff := range st.PerkEffects {
		if eff.Kind == character.EffectSpell && eff.Spell != "" && !containsOption(required, eff.Spell) {
			required = append(required, eff.Spell)
		}
	}
	return required
}

func (m *SpellsManager) IsComplete(st *character.State) bool {
	return m.engine.StepComplete(character.StepSpells, st)
}

func (m *SpellsManager) Reset(sess *Session) {
	sess.State.ResetStep(character.StepSpells)
	sess.BumpGeneration()
}

func (m *SpellsManager) PrepareContext(ctx context.Context, sess *Session) (*StepContext, error) {
	options, err := m.content.ListCategory(ctx, compendium.CategorySpell, nil)
	if err != nil {
		return nil, errors.Wrap(err, "listing spells")
	}
	st := sess.State.GetCurrentState()
	return &StepContext{
		Step:     character.StepSpells,
		Prompt:   "Choose your spells",
		Options:  options,
		Budgets:  state.CalculateBudgets(st),
		Complete: m.IsComplete(st),
	}, nil
}
