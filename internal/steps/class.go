package steps

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/emberfell/character-builder/internal/content"
	"github.com/emberfell/character-builder/internal/domain/character"
	"github.com/emberfell/character-builder/internal/domain/compendium"
	"github.com/emberfell/character-builder/internal/domain/shared"
	"github.com/emberfell/character-builder/internal/errors"
	"github.com/emberfell/character-builder/internal/state"
	"github.com/emberfell/character-builder/internal/validation"
)

// ClassConfig wires a ClassManager.
type ClassConfig struct {
	Content content.Client
	Engine  *validation.Engine
	Logger  *slog.Logger
}

// ClassManager handles class selection and the skill choices that hang off
// it. Switching class resets everything the old class fed: skills, spells,
// perks, and any stat bonuses those perks had applied.
type ClassManager struct {
	content content.Client
	engine  *validation.Engine
	log     *slog.Logger
}

func NewClassManager(cfg *ClassConfig) *ClassManager {
	if cfg == nil || cfg.Content == nil || cfg.Engine == nil {
		panic("steps.NewClassManager: missing required config")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassManager{content: cfg.Content, engine: cfg.Engine, log: logger}
}

func (m *ClassManager) Step() character.StepID { return character.StepClass }

func (m *ClassManager) Activate(_ context.Context, sess *Session) bool {
	sess.State.UpdateState(state.PathCurrentStep, character.StepClass, state.UpdateOpts{SkipHistory: true})
	return true
}

func (m *ClassManager) HandleAction(ctx context.Context, sess *Session, action Action) error {
	switch action.Kind {
	case ActionSelect:
		return m.selectClass(ctx, sess, action.Ref)
	case ActionClear:
		sess.State.ResetStep(character.StepClass)
		sess.BumpGeneration()
		return nil
	case ActionAdd:
		return m.addSkill(sess, shared.SkillKey(action.Ref))
	case ActionRemove:
		return m.removeSkill(sess, shared.SkillKey(action.Ref))
	default:
		return errors.Internalf("class step cannot handle action '%s'", action.Kind)
	}
}

func (m *ClassManager) selectClass(ctx context.Context, sess *Session, ref string) error {
	st := sess.State.GetCurrentState()
	if st.SelectedClass != nil && *st.SelectedClass == ref {
		return nil
	}

	item, err := m.content.GetItem(ctx, ref)
	if err != nil {
		return errors.Wrapf(err, "resolving class '%s'", ref)
	}
	if item.Category != compendium.CategoryClass {
		return errors.InvalidArgumentf("'%s' is not a class", ref)
	}

	writes := map[state.Path]any{
		state.PathSelectedClass:   ref,
		state.PathSkills:          guaranteedSkills(item),
		state.PathSkillSelections: map[int][]shared.SkillKey{},
		state.PathSkillGrant:      skillGrantOf(item),
		state.PathSpells:          []string{},
		state.PathSpellLimit:      item.SpellsKnown,
		state.PathPerks:           []string{},
		state.PathPerkGrants:      []character.Grant{},
		state.PathPerkEffects:     map[string]character.PerkEffect{},
		state.PathClassPerks:      classPerks(item),
	}
	// Perk-granted stat bonuses die with the perks; put the raw values back.
	for path, value := range bonusReversalWrites(st) {
		writes[path] = value
	}
	if !sess.State.UpdateMultiple(writes, state.UpdateOpts{}) {
		return errors.Validationf("class selection '%s' was rejected", ref)
	}
	sess.BumpGeneration()
	return nil
}

func (m *ClassManager) addSkill(sess *Session, key shared.SkillKey) error {
	if !shared.ValidSkill(key) {
		return errors.InvalidArgumentf("unknown skill '%s'", key)
	}
	st := sess.State.GetCurrentState()
	if st.SkillGrant == nil {
		return errors.Validationf("no class selected, skills cannot be chosen yet")
	}
	if st.HasSkill(key) {
		return errors.Validationf("'%s' is already trained", key)
	}

	group, ok := openChoiceGroup(st, key)
	if !ok {
		return errors.Validationf("'%s' does not fit any open skill choice", key)
	}

	selections := cloneSelections(st.SkillSelections)
	selections[group] = append(selections[group], key)
	writes := map[state.Path]any{
		state.PathSkills:          append(st.Skills, key),
		state.PathSkillSelections: selections,
	}
	if !sess.State.UpdateMultiple(writes, state.UpdateOpts{}) {
		return errors.Validationf("skill '%s' was rejected", key)
	}
	return nil
}

func (m *ClassManager) removeSkill(sess *Session, key shared.SkillKey) error {
	st := sess.State.GetCurrentState()
	if !st.HasSkill(key) {
		return errors.NotFoundf("'%s' is not trained", key)
	}
	if st.GuaranteedSkill(key) {
		return errors.Validationf("'%s' is granted by the class and cannot be removed", key)
	}

	skills := make([]shared.SkillKey, 0, len(st.Skills))
	for _, sk := range st.Skills {
		if sk != key {
			skills = append(skills, sk)
		}
	}
	selections := cloneSelections(st.SkillSelections)
	for group, picks := range selections {
		kept := picks[:0]
		for _, sk := range picks {
			if sk != key {
				kept = append(kept, sk)
			}
		}
		selections[group] = kept
	}
	writes := map[state.Path]any{
		state.PathSkills:          skills,
		state.PathSkillSelections: selections,
	}
	if !sess.State.UpdateMultiple(writes, state.UpdateOpts{}) {
		return errors.Validationf("removing skill '%s' was rejected", key)
	}
	return nil
}

func (m *ClassManager) IsComplete(st *character.State) bool {
	return m.engine.StepComplete(character.StepClass, st)
}

func (m *ClassManager) Reset(sess *Session) {
	sess.State.ResetStep(character.StepClass)
	sess.BumpGeneration()
}

func (m *ClassManager) PrepareContext(ctx context.Context, sess *Session) (*StepContext, error) {
	options, err := m.content.ListCategory(ctx, compendium.CategoryClass, nil)
	if err != nil {
		return nil, errors.Wrap(err, "listing classes")
	}
	st := sess.State.GetCurrentState()
	prompt := "Choose your class"
	if st.SkillGrant != nil {
		if n := st.SkillGrant.ChoicesNeeded(); n > 0 {
			prompt = fmt.Sprintf("Choose %d skills", n)
		}
	}
	return &StepContext{
		Step:     character.StepClass,
		Prompt:   prompt,
		Options:  options,
		Budgets:  state.CalculateBudgets(st),
		Complete: m.IsComplete(st),
	}, nil
}

func guaranteedSkills(item *compendium.Item) []shared.SkillKey {
	if item.SkillGrant == nil {
		return []shared.SkillKey{}
	}
	return append([]shared.SkillKey{}, item.SkillGrant.Guaranteed...)
}

func skillGrantOf(item *compendium.Item) *compendium.SkillGrant {
	if item.SkillGrant == nil {
		return nil
	}
	g := *item.SkillGrant
	return &g
}

// classPerks collects the perks level-1 features hand out for free.
func classPerks(item *compendium.Item) []string {
	var refs []string
	for _, f := range item.Features {
		refs = append(refs, f.GrantedPerks...)
	}
	if refs == nil {
		refs = []string{}
	}
	return refs
}

// openChoiceGroup finds the first choice group whose pool admits the skill
// and that still has capacity. An empty pool admits anything.
func openChoiceGroup(st *character.State, key shared.SkillKey) (int, bool) {
	for i, choice := range st.SkillGrant.Choices {
		pool := choice.Pool
		if len(pool) == 0 {
			pool = shared.AllSkills
		}
		admitted := false
		for _, sk := range pool {
			if sk == key {
				admitted = true
				break
			}
		}
		if !admitted {
			continue
		}
		if len(st.SkillSelections[i]) < choice.Count {
			return i, true
		}
	}
	return 0, false
}

func cloneSelections(src map[int][]shared.SkillKey) map[int][]shared.SkillKey {
	out := make(map[int][]shared.SkillKey, len(src))
	for k, v := range src {
		out[k] = append([]shared.SkillKey(nil), v...)
	}
	return out
}

// bonusReversalWrites undoes every applied stat bonus in one shot, used when
// the perks that granted the slots are being wiped.
func bonusReversalWrites(st *character.State) map[state.Path]any {
	writes := map[state.Path]any{
		state.PathAppliedBonuses: map[string]character.StatBonus{},
		state.PathBonusOrder:     []string{},
	}
	adjusted := make(map[shared.StatKey]int)
	for _, b := range st.AppliedBonuses {
		adjusted[b.Target] += b.Amount
	}
	for target, delta := range adjusted {
		if v := st.AssignedStats[target]; v != nil {
			writes[state.AssignedStatPath(target)] = *v - delta
		}
	}
	return writes
}
