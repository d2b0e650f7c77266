package steps

import (
	"context"
	"log/slog"

	"github.com/emberfell/character-builder/internal/content"
	"github.com/emberfell/character-builder/internal/domain/character"
	"github.com/emberfell/character-builder/internal/domain/compendium"
	"github.com/emberfell/character-builder/internal/domain/shared"
	"github.com/emberfell/character-builder/internal/errors"
	"github.com/emberfell/character-builder/internal/state"
	"github.com/emberfell/character-builder/internal/validation"
)

// PerksConfig wires a PerksManager.
type PerksConfig struct {
	Content content.Client
	Engine  *validation.Engine
	Logger  *slog.Logger
}

// PerksManager runs the grant-fulfillment machine: ancestry and class
// features open perk slots (grants), the player fulfills them one at a time,
// and perks with a choice materialize their configured effect into state
// with enough bookkeeping to reverse it exactly on removal.
type PerksManager struct {
	content content.Client
	engine  *validation.Engine
	log     *slog.Logger
}

func NewPerksManager(cfg *PerksConfig) *PerksManager {
	if cfg == nil || cfg.Content == nil || cfg.Engine == nil {
		panic("steps.NewPerksManager: missing required config")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PerksManager{content: cfg.Content, engine: cfg.Engine, log: logger}
}

func (m *PerksManager) Step() character.StepID { return character.StepPerks }

// Activate re-derives grants from the current ancestry and class, merging
// positionally so fulfillments survive an unchanged re-derive and die when
// the slot count changed.
func (m *PerksManager) Activate(ctx context.Context, sess *Session) bool {
	sess.State.UpdateState(state.PathCurrentStep, character.StepPerks, state.UpdateOpts{SkipHistory: true})

	st := sess.State.GetCurrentState()
	fresh := m.deriveGrants(ctx, st)
	// Both sides sorted before the positional merge: stored grants are
	// always kept in sort order, so an unchanged derivation lines up.
	character.SortGrants(fresh)
	merged := character.MergeGrants(st.PerkGrants, fresh)

	perks, dropped := m.prunePerks(st, merged)
	writes := map[state.Path]any{
		state.PathPerkGrants: merged,
		state.PathPerks:      perks,
	}
	// A pruned perk takes its materialized effect with it.
	for _, ref := range dropped {
		m.reverseEffectWrites(st, ref, writes)
	}
	sess.State.UpdateMultiple(writes, state.UpdateOpts{SkipHistory: true})
	return true
}

func (m *PerksManager) HandleAction(ctx context.Context, sess *Session, action Action) error {
	switch action.Kind {
	case ActionFulfill:
		return m.fulfill(ctx, sess, action.Ref)
	case ActionUnfulfill:
		return m.unfulfill(sess, action.Ref)
	case ActionConfigure:
		return m.configure(ctx, sess, action.Ref, action.Option)
	case ActionToggleShowAll:
		sess.ShowAllPerks = !sess.ShowAllPerks
		return nil
	default:
		return errors.Internalf("perks step cannot handle action '%s'", action.Kind)
	}
}

// fulfill assigns a perk to the active grant. The content lookup can be
// slow; the generation captured before it guards against committing into a
// session that was reset or renavigated while the lookup was in flight.
func (m *PerksManager) fulfill(ctx context.Context, sess *Session, ref string) error {
	st := sess.State.GetCurrentState()
	if _, err := m.fulfillTarget(st, ref); err != nil {
		return err
	}

	gen := sess.Generation()
	item, err := m.content.GetItem(ctx, ref)
	if err != nil {
		return errors.Wrapf(err, "resolving perk '%s'", ref)
	}
	if item.Category != compendium.CategoryPerk {
		return errors.InvalidArgumentf("'%s' is not a perk", ref)
	}

	// Prerequisites are checked against a projection that already includes
	// every spell the build will know, so spell-gated perks do not depend
	// on step ordering. Findings warn, they never block.
	proj := st.Clone()
	proj.Spells = m.withRequiredSpells(ctx, st)
	if missing := m.missingPrereqs(proj, item); len(missing) > 0 {
		m.log.Warn("perk prerequisites unmet", "ref", ref, "missing", missing)
	}

	if sess.Stale(gen) {
		return errors.Unavailablef("session moved on while resolving '%s'", ref)
	}

	// State re-read after the lookup; the guards run again against what is
	// held now, not what was held when the fulfill started.
	st = sess.State.GetCurrentState()
	active, err := m.fulfillTarget(st, ref)
	if err != nil {
		return err
	}

	grants := cloneGrants(st.PerkGrants)
	for i := range grants {
		if grants[i].ID == active.ID {
			grants[i].Fulfilled = &ref
			break
		}
	}
	writes := map[state.Path]any{
		state.PathPerkGrants: grants,
		state.PathPerks:      append(st.Perks, ref),
	}
	if !sess.State.UpdateMultiple(writes, state.UpdateOpts{}) {
		return errors.Validationf("perk '%s' was rejected", ref)
	}
	return nil
}

// fulfillTarget checks that ref can fulfill a slot in the given snapshot and
// returns the grant it would fill.
func (m *PerksManager) fulfillTarget(st *character.State, ref string) (*character.Grant, error) {
	if st.HasClassPerk(ref) {
		return nil, errors.Validationf("'%s' is already granted by the class", ref)
	}
	if g := character.GrantFulfilledBy(st.PerkGrants, ref); g != nil {
		return nil, errors.Validationf("'%s' already fulfills grant '%s'", ref, g.ID)
	}
	active := character.ActiveGrant(st.PerkGrants)
	if active == nil {
		return nil, errors.Validationf("every perk slot is already filled")
	}
	if !active.Permits(ref) {
		return nil, errors.Validationf("'%s' is not allowed for grant '%s'", ref, active.ID)
	}
	return active, nil
}

// unfulfill releases a perk from its grant and reverses its materialized
// effect, if any. Class perks are fixtures and never come off.
func (m *PerksManager) unfulfill(sess *Session, ref string) error {
	st := sess.State.GetCurrentState()
	if st.HasClassPerk(ref) {
		return errors.Validationf("'%s' comes with the class and cannot be removed", ref)
	}
	grant := character.GrantFulfilledBy(st.PerkGrants, ref)
	if grant == nil {
		return errors.NotFoundf("'%s' does not fulfill any grant", ref)
	}

	grants := cloneGrants(st.PerkGrants)
	for i := range grants {
		if grants[i].ID == grant.ID {
			grants[i].Fulfilled = nil
			break
		}
	}
	writes := map[state.Path]any{
		state.PathPerkGrants: grants,
		state.PathPerks:      character.RemoveString(st.Perks, ref),
	}
	m.reverseEffectWrites(st, ref, writes)
	if !sess.State.UpdateMultiple(writes, state.UpdateOpts{}) {
		return errors.Validationf("removing perk '%s' was rejected", ref)
	}
	return nil
}

// configure materializes a held perk's choice. Re-configuring reverses the
// previous materialization first, so exactly one effect per perk exists.
func (m *PerksManager) configure(ctx context.Context, sess *Session, ref, option string) error {
	st := sess.State.GetCurrentState()
	if !st.HasPerk(ref) && !st.HasClassPerk(ref) {
		return errors.Validationf("'%s' is not held, configure it after taking it", ref)
	}

	gen := sess.Generation()
	item, err := m.content.GetItem(ctx, ref)
	if err != nil {
		return errors.Wrapf(err, "resolving perk '%s'", ref)
	}
	if item.Choice == nil {
		return errors.InvalidArgumentf("'%s' has nothing to configure", ref)
	}
	if len(item.Choice.Options) > 0 && !containsOption(item.Choice.Options, option) {
		return errors.Validationf("'%s' is not an option for '%s'", option, ref)
	}
	if sess.Stale(gen) {
		return errors.Unavailablef("session moved on while resolving '%s'", ref)
	}

	// State re-read after the lookup; the perk may have been dropped while
	// it was in flight.
	st = sess.State.GetCurrentState()
	if !st.HasPerk(ref) && !st.HasClassPerk(ref) {
		return errors.Validationf("'%s' is not held, configure it after taking it", ref)
	}

	writes := map[state.Path]any{}
	m.reverseEffectWrites(st, ref, writes)
	// Reversal writes and the new materialization both touch the effect
	// map; rebuild it once from the reversal's result.
	effects := writes[state.PathPerkEffects].(map[string]character.PerkEffect)

	switch item.Choice.Kind {
	case compendium.PerkChoiceSkill:
		key := shared.SkillKey(option)
		if !shared.ValidSkill(key) {
			return errors.InvalidArgumentf("unknown skill '%s'", option)
		}
		if st.HasSkill(key) {
			return errors.Validationf("'%s' is already trained", key)
		}
		skills := writesSkills(writes, st)
		writes[state.PathSkills] = append(skills, key)
		effects[ref] = character.PerkEffect{Kind: character.EffectSkill, Skill: key}
	case compendium.PerkChoiceSpell:
		if st.HasSpell(option) {
			return errors.Validationf("'%s' is already known", option)
		}
		spells := writesSpells(writes, st)
		writes[state.PathSpells] = append(spells, option)
		effects[ref] = character.PerkEffect{Kind: character.EffectSpell, Spell: option}
	case compendium.PerkChoiceStatBonus:
		effects[ref] = character.PerkEffect{
			Kind:    character.EffectBonus,
			BonusID: ref,
			MaxBase: item.Choice.MaxBase,
		}
	default:
		return errors.Internalf("perk '%s' has unhandled choice kind '%s'", ref, item.Choice.Kind)
	}
	writes[state.PathPerkEffects] = effects

	if !sess.State.UpdateMultiple(writes, state.UpdateOpts{}) {
		return errors.Validationf("configuring '%s' was rejected", ref)
	}
	return nil
}

// reverseEffectWrites folds the exact reversal of a perk's materialized
// effect into writes. Reads go through writes first, so reversals for
// several perks compose into one commit. Unmaterialized perks reverse to
// nothing.
func (m *PerksManager) reverseEffectWrites(st *character.State, ref string, writes map[state.Path]any) {
	effects := writesEffects(writes, st)
	eff, ok := effects[ref]
	if !ok {
		writes[state.PathPerkEffects] = effects
		return
	}
	delete(effects, ref)
	writes[state.PathPerkEffects] = effects

	switch eff.Kind {
	case character.EffectSkill:
		current := writesSkills(writes, st)
		skills := make([]shared.SkillKey, 0, len(current))
		for _, sk := range current {
			if sk != eff.Skill {
				skills = append(skills, sk)
			}
		}
		writes[state.PathSkills] = skills
	case character.EffectSpell:
		writes[state.PathSpells] = character.RemoveString(writesSpells(writes, st), eff.Spell)
	case character.EffectBonus:
		bonuses := writesBonuses(writes, st)
		if b, applied := bonuses[eff.BonusID]; applied {
			if v := st.AssignedStats[b.Target]; v != nil {
				cur := *v
				if w, ok := writes[state.AssignedStatPath(b.Target)].(int); ok {
					cur = w
				}
				writes[state.AssignedStatPath(b.Target)] = cur - b.Amount
			}
			delete(bonuses, eff.BonusID)
			writes[state.PathAppliedBonuses] = bonuses
			writes[state.PathBonusOrder] = removeID(writesBonusOrder(writes, st), eff.BonusID)
		}
	}
}

// deriveGrants builds one grant per unit of perk capacity the ancestry and
// class features open.
func (m *PerksManager) deriveGrants(ctx context.Context, st *character.State) []character.Grant {
	var grants []character.Grant
	for _, sel := range []*string{st.SelectedAncestry, st.SelectedClass} {
		if sel == nil {
			continue
		}
		item, err := m.content.GetItem(ctx, *sel)
		if err != nil {
			m.log.Warn("grant source unavailable", "ref", *sel, "error", err)
			continue
		}
		for _, feature := range item.Features {
			if feature.PerkGrant == nil || feature.PerkGrant.Amount <= 0 {
				continue
			}
			grants = append(grants, character.BuildGrants(
				item.Ref, item.Name, feature.Name,
				feature.PerkGrant.Amount, feature.PerkGrant.AllowedPerks,
			)...)
		}
	}
	return grants
}

// prunePerks splits held perks by whether their fulfillment survived a
// merge. Dropped perks still need their effects reversed.
func (m *PerksManager) prunePerks(st *character.State, grants []character.Grant) (kept, dropped []string) {
	kept = []string{}
	for _, ref := range st.Perks {
		if character.GrantFulfilledBy(grants, ref) != nil {
			kept = append(kept, ref)
		} else {
			dropped = append(dropped, ref)
		}
	}
	return kept, dropped
}

// withRequiredSpells widens the known-spell list with everything ancestry
// traits and class features force on the build.
func (m *PerksManager) withRequiredSpells(ctx context.Context, st *character.State) []string {
	spells := append([]string(nil), st.Spells...)
	for _, sel := range []*string{st.SelectedAncestry, st.SelectedClass} {
		if sel == nil {
			continue
		}
		item, err := m.content.GetItem(ctx, *sel)
		if err != nil {
			continue
		}
		for _, feature := range item.Features {
			for _, ref := range feature.RequiredSpells {
				if !containsOption(spells, ref) {
					spells = append(spells, ref)
				}
			}
		}
	}
	return spells
}

func (m *PerksManager) missingPrereqs(st *character.State, item *compendium.Item) []string {
	var missing []string
	for _, p := range item.Prerequisites {
		met := false
		switch p.Kind {
		case compendium.PrereqStat:
			v := st.AssignedStats[p.Stat]
			met = v != nil && *v >= p.Min
		case compendium.PrereqSkill:
			met = st.HasSkill(p.Skill)
		case compendium.PrereqSpell:
			met = st.HasSpell(p.Ref)
		case compendium.PrereqPerk:
			met = st.HasPerk(p.Ref) || st.HasClassPerk(p.Ref)
		default:
			met = true
		}
		if !met {
			missing = append(missing, p.String())
		}
	}
	return missing
}

func (m *PerksManager) IsComplete(st *character.State) bool {
	return m.engine.StepComplete(character.StepPerks, st)
}

func (m *PerksManager) Reset(sess *Session) {
	sess.State.ResetStep(character.StepPerks)
	sess.BumpGeneration()
}

// PrepareContext lists selectable perks. With ShowAllPerks on, the listing
// widens to the whole category; entries outside the active grant's allowed
// set are still unselectable, the host renders them ghosted.
func (m *PerksManager) PrepareContext(ctx context.Context, sess *Session) (*StepContext, error) {
	st := sess.State.GetCurrentState()
	active := character.ActiveGrant(st.PerkGrants)

	var filters *content.Filters
	if !sess.ShowAllPerks && active != nil && active.Restricted() {
		filters = &content.Filters{Refs: active.AllowedPerks}
	}
	options, err := m.content.ListCategory(ctx, compendium.CategoryPerk, filters)
	if err != nil {
		return nil, errors.Wrap(err, "listing perks")
	}
	return &StepContext{
		Step:     character.StepPerks,
		Prompt:   "Choose your perks",
		Options:  options,
		Grants:   cloneGrants(st.PerkGrants),
		Active:   active,
		Budgets:  state.CalculateBudgets(st),
		Complete: m.IsComplete(st),
	}, nil
}

func cloneGrants(grants []character.Grant) []character.Grant {
	out := make([]character.Grant, len(grants))
	for i := range grants {
		out[i] = grants[i].Clone()
	}
	return out
}

func containsOption(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func writesSkills(writes map[state.Path]any, st *character.State) []shared.SkillKey {
	if v, ok := writes[state.PathSkills].([]shared.SkillKey); ok {
		return v
	}
	return append([]shared.SkillKey(nil), st.Skills...)
}

func writesSpells(writes map[state.Path]any, st *character.State) []string {
	if v, ok := writes[state.PathSpells].([]string); ok {
		return v
	}
	return append([]string(nil), st.Spells...)
}

func writesEffects(writes map[state.Path]any, st *character.State) map[string]character.PerkEffect {
	if v, ok := writes[state.PathPerkEffects].(map[string]character.PerkEffect); ok {
		return v
	}
	effects := make(map[string]character.PerkEffect, len(st.PerkEffects))
	for k, v := range st.PerkEffects {
		effects[k] = v
	}
	return effects
}

func writesBonuses(writes map[state.Path]any, st *character.State) map[string]character.StatBonus {
	if v, ok := writes[state.PathAppliedBonuses].(map[string]character.StatBonus); ok {
		return v
	}
	bonuses := make(map[string]character.StatBonus, len(st.AppliedBonuses))
	for k, v := range st.AppliedBonuses {
		bonuses[k] = v
	}
	return bonuses
}

func writesBonusOrder(writes map[state.Path]any, st *character.State) []string {
	if v, ok := writes[state.PathBonusOrder].([]string); ok {
		return v
	}
	return append([]string(nil), st.BonusOrder...)
}
