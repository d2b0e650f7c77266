package steps

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/emberfell/character-builder/internal/content"
	"github.com/emberfell/character-builder/internal/domain/character"
	"github.com/emberfell/character-builder/internal/domain/compendium"
	"github.com/emberfell/character-builder/internal/domain/shared"
	"github.com/emberfell/character-builder/internal/errors"
	"github.com/emberfell/character-builder/internal/random"
	"github.com/emberfell/character-builder/internal/state"
	"github.com/emberfell/character-builder/internal/uuid"
	"github.com/emberfell/character-builder/internal/validation"
)

// defaultBonusMaxBase caps which stats a +1 slot can land on when the slot
// itself carries no condition.
const defaultBonusMaxBase = 6

// StatsConfig wires a StatsManager.
type StatsConfig struct {
	Content content.Client
	Engine  *validation.Engine
	Random  random.Source
	UUID    uuid.Generator
	Logger  *slog.Logger
}

// StatsManager handles the array-based stat assignment step: pick an array,
// draw values from its pool into stat slots, place perk-granted +1 bonuses,
// and preview the derived numbers.
type StatsManager struct {
	content content.Client
	engine  *validation.Engine
	random  random.Source
	uuid    uuid.Generator
	log     *slog.Logger
}

func NewStatsManager(cfg *StatsConfig) *StatsManager {
	if cfg == nil || cfg.Content == nil || cfg.Engine == nil || cfg.Random == nil || cfg.UUID == nil {
		panic("steps.NewStatsManager: missing required config")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsManager{
		content: cfg.Content,
		engine:  cfg.Engine,
		random:  cfg.Random,
		uuid:    cfg.UUID,
		log:     logger,
	}
}

func (m *StatsManager) Step() character.StepID { return character.StepStats }

// Activate lands on the step and re-derives the feature-granted bonus slots
// from the current ancestry and class. Slots whose source went away are
// removed, and any bonus they held comes off its stat.
func (m *StatsManager) Activate(ctx context.Context, sess *Session) bool {
	sess.State.UpdateState(state.PathCurrentStep, character.StepStats, state.UpdateOpts{SkipHistory: true})

	st := sess.State.GetCurrentState()
	fresh := m.deriveFeatureSlots(ctx, st)

	effects := make(map[string]character.PerkEffect, len(st.PerkEffects))
	bonuses := make(map[string]character.StatBonus, len(st.AppliedBonuses))
	order := append([]string(nil), st.BonusOrder...)
	writes := map[state.Path]any{}

	for key, eff := range st.PerkEffects {
		if eff.Kind == character.EffectBonus && featureSlotID(eff.BonusID) {
			if _, still := fresh[key]; !still {
				// Stale slot: reverse its bonus if it was placed.
				if b, applied := st.AppliedBonuses[eff.BonusID]; applied {
					if v := st.AssignedStats[b.Target]; v != nil {
						writes[state.AssignedStatPath(b.Target)] = *v - b.Amount
					}
					order = removeID(order, eff.BonusID)
				}
				continue
			}
		}
		effects[key] = eff
	}
	for key, eff := range fresh {
		effects[key] = eff
	}
	for id, b := range st.AppliedBonuses {
		if _, ok := findBonusSlotIn(effects, id); ok {
			bonuses[id] = b
		}
	}

	writes[state.PathPerkEffects] = effects
	writes[state.PathAppliedBonuses] = bonuses
	writes[state.PathBonusOrder] = order
	sess.State.UpdateMultiple(writes, state.UpdateOpts{SkipHistory: true})
	return true
}

// deriveFeatureSlots walks ancestry and class features for +1 slots.
func (m *StatsManager) deriveFeatureSlots(ctx context.Context, st *character.State) map[string]character.PerkEffect {
	slots := make(map[string]character.PerkEffect)
	for _, sel := range []*string{st.SelectedAncestry, st.SelectedClass} {
		if sel == nil {
			continue
		}
		item, err := m.content.GetItem(ctx, *sel)
		if err != nil {
			m.log.Warn("bonus slot source unavailable", "ref", *sel, "error", err)
			continue
		}
		for fi, feature := range item.Features {
			for si, spec := range feature.StatBonuses {
				for n := 0; n < spec.Amount; n++ {
					id := fmt.Sprintf("slot:%s:%d:%d:%d", item.Ref, fi, si, n)
					slots[id] = character.PerkEffect{
						Kind:    character.EffectBonus,
						BonusID: id,
						MaxBase: spec.MaxBase,
					}
				}
			}
		}
	}
	return slots
}

// featureSlotID distinguishes feature-derived slot IDs from perk-derived
// ones, which use the perk ref itself.
func featureSlotID(id string) bool { return strings.HasPrefix(id, "slot:") }

func findBonusSlotIn(effects map[string]character.PerkEffect, bonusID string) (character.PerkEffect, bool) {
	for _, eff := range effects {
		if eff.Kind == character.EffectBonus && eff.BonusID == bonusID {
			return eff, true
		}
	}
	return character.PerkEffect{}, false
}

func (m *StatsManager) HandleAction(_ context.Context, sess *Session, action Action) error {
	switch action.Kind {
	case ActionSelectArray:
		return m.selectArray(sess, action.Ref)
	case ActionPickValue:
		return m.pickValue(sess, action.Index, action.Value)
	case ActionAssignStat:
		return m.assignStat(sess, shared.StatKey(action.Stat))
	case ActionRemove:
		return m.unassignStat(sess, shared.StatKey(action.Stat))
	case ActionApplyBonus:
		return m.applyBonus(sess, action.Ref, shared.StatKey(action.Stat))
	case ActionRandomize:
		return m.randomize(sess)
	case ActionResetStats:
		m.Reset(sess)
		return nil
	default:
		return errors.Internalf("stats step cannot handle action '%s'", action.Kind)
	}
}

// selectArray picks (or switches) the stat array and refills the pool.
// Switching always clears assignments; values from one array never survive
// into another.
func (m *StatsManager) selectArray(sess *Session, id string) error {
	arr := compendium.ArrayByID(id)
	if arr == nil {
		return errors.InvalidArgumentf("unknown stat array '%s'", id)
	}

	writes := map[state.Path]any{
		state.PathSelectedArrayID:  id,
		state.PathUnassignedValues: append([]int{}, arr.Values[:]...),
		state.PathSelectedValue:    nil,
		state.PathAppliedBonuses:   map[string]character.StatBonus{},
		state.PathBonusOrder:       []string{},
	}
	for _, key := range shared.StatKeys {
		writes[state.AssignedStatPath(key)] = nil
	}
	if !sess.State.UpdateMultiple(writes, state.UpdateOpts{}) {
		return errors.Validationf("array selection '%s' was rejected", id)
	}
	sess.BumpGeneration()
	return nil
}

// pickValue lifts one value out of the pool and holds it for assignment.
// The index is matched first; when it went stale (the pool shifted under a
// slow client), the first slot holding the expected value is used instead.
func (m *StatsManager) pickValue(sess *Session, index, value int) error {
	st := sess.State.GetCurrentState()
	if st.SelectedArrayID == nil {
		return errors.Validationf("no stat array selected")
	}

	pool := append([]int(nil), st.UnassignedValues...)
	// A previously held pick goes back first.
	if st.SelectedValue != nil {
		pool = append(pool, st.SelectedValue.Value)
	}

	at := -1
	if index >= 0 && index < len(st.UnassignedValues) && st.UnassignedValues[index] == value {
		at = index
	} else {
		for i, v := range st.UnassignedValues {
			if v == value {
				at = i
				break
			}
		}
	}
	if at < 0 {
		return errors.Validationf("value %d is not in the pool", value)
	}

	remaining := make([]int, 0, len(pool)-1)
	skipped := false
	for i, v := range pool {
		if !skipped && i == at {
			skipped = true
			continue
		}
		remaining = append(remaining, v)
	}

	writes := map[state.Path]any{
		state.PathUnassignedValues: remaining,
		state.PathSelectedValue:    &character.PoolPick{Value: st.UnassignedValues[at], PoolIndex: at},
	}
	if !sess.State.UpdateMultiple(writes, state.UpdateOpts{}) {
		return errors.Validationf("pick of value %d was rejected", value)
	}
	return nil
}

// assignStat places the held pick into a stat slot. A displaced base value
// swaps back into the pool; a bonus already sitting on the slot stays there
// and rides on top of the new base.
func (m *StatsManager) assignStat(sess *Session, key shared.StatKey) error {
	if !shared.ValidStat(key) {
		return errors.InvalidArgumentf("unknown stat '%s'", key)
	}
	st := sess.State.GetCurrentState()
	if st.SelectedValue == nil {
		return errors.Validationf("pick a value before assigning it")
	}

	bonus := bonusOn(st, key)
	pool := append([]int(nil), st.UnassignedValues...)
	if current := st.AssignedStats[key]; current != nil {
		pool = append(pool, *current-bonus)
	}

	writes := map[state.Path]any{
		state.AssignedStatPath(key): st.SelectedValue.Value + bonus,
		state.PathUnassignedValues:  pool,
		state.PathSelectedValue:     nil,
	}
	if !sess.State.UpdateMultiple(writes, state.UpdateOpts{}) {
		return errors.Validationf("assignment to '%s' was rejected", key)
	}
	return nil
}

// unassignStat returns a slot's base value to the pool. Any bonus on the
// slot comes off with it and becomes placeable again.
func (m *StatsManager) unassignStat(sess *Session, key shared.StatKey) error {
	if !shared.ValidStat(key) {
		return errors.InvalidArgumentf("unknown stat '%s'", key)
	}
	st := sess.State.GetCurrentState()
	current := st.AssignedStats[key]
	if current == nil {
		return errors.Validationf("'%s' has no assigned value", key)
	}

	bonuses := make(map[string]character.StatBonus, len(st.AppliedBonuses))
	order := make([]string, 0, len(st.BonusOrder))
	removed := 0
	for id, b := range st.AppliedBonuses {
		if b.Target == key {
			removed += b.Amount
			continue
		}
		bonuses[id] = b
	}
	for _, id := range st.BonusOrder {
		if _, kept := bonuses[id]; kept {
			order = append(order, id)
		}
	}

	writes := map[state.Path]any{
		state.AssignedStatPath(key): nil,
		state.PathUnassignedValues:  append(st.UnassignedValues, *current-removed),
		state.PathAppliedBonuses:    bonuses,
		state.PathBonusOrder:        order,
	}
	if !sess.State.UpdateMultiple(writes, state.UpdateOpts{}) {
		return errors.Validationf("unassigning '%s' was rejected", key)
	}
	return nil
}

// applyBonus places a +1 slot on a stat. With no slot named, the first
// unapplied slot is used; when every slot is already placed, the most
// recently placed one moves to the new target instead.
func (m *StatsManager) applyBonus(sess *Session, bonusID string, target shared.StatKey) error {
	if !shared.ValidStat(target) {
		return errors.InvalidArgumentf("unknown stat '%s'", target)
	}
	st := sess.State.GetCurrentState()

	slots := bonusSlots(st)
	if len(slots) == 0 {
		return errors.Validationf("no bonus slots are available")
	}

	if bonusID == "" {
		for _, id := range slots {
			if _, applied := st.AppliedBonuses[id]; !applied {
				bonusID = id
				break
			}
		}
		if bonusID == "" && len(st.BonusOrder) > 0 {
			bonusID = st.BonusOrder[len(st.BonusOrder)-1]
		}
	}
	eff, ok := findBonusSlot(st, bonusID)
	if !ok {
		return errors.InvalidArgumentf("unknown bonus slot '%s'", bonusID)
	}

	if existing, applied := st.AppliedBonuses[bonusID]; applied && existing.Target == target {
		return nil
	}
	// One bonus per stat: a different slot already sitting on the target is
	// a no-op guard, the caller must move that slot explicitly.
	for id, b := range st.AppliedBonuses {
		if b.Target == target && id != bonusID {
			return errors.Validationf("'%s' already carries a bonus", target)
		}
	}

	current := st.AssignedStats[target]
	if current == nil {
		return errors.Validationf("assign a value to '%s' before boosting it", target)
	}
	maxBase := eff.MaxBase
	if maxBase == 0 {
		maxBase = defaultBonusMaxBase
	}
	if *current > maxBase {
		return errors.Validationf("'%s' is above the slot's base limit %d", target, maxBase)
	}
	if *current+1 > shared.StatBonusCap {
		return errors.Validationf("'%s' would exceed the cap of %d", target, shared.StatBonusCap)
	}

	bonuses := make(map[string]character.StatBonus, len(st.AppliedBonuses)+1)
	for id, b := range st.AppliedBonuses {
		bonuses[id] = b
	}
	order := append([]string(nil), st.BonusOrder...)

	writes := map[state.Path]any{}
	if prior, applied := bonuses[bonusID]; applied {
		// Moving the slot: take it off its old target first.
		if v := st.AssignedStats[prior.Target]; v != nil {
			writes[state.AssignedStatPath(prior.Target)] = *v - prior.Amount
		}
		delete(bonuses, bonusID)
		order = removeID(order, bonusID)
	}
	bonuses[bonusID] = character.StatBonus{Target: target, Amount: 1}
	order = append(order, bonusID)

	writes[state.AssignedStatPath(target)] = *current + 1
	writes[state.PathAppliedBonuses] = bonuses
	writes[state.PathBonusOrder] = order
	if !sess.State.UpdateMultiple(writes, state.UpdateOpts{}) {
		return errors.Validationf("bonus on '%s' was rejected", target)
	}
	return nil
}

// randomize assigns every remaining pool value to the unassigned stats in a
// random order. Already-assigned slots are left alone.
func (m *StatsManager) randomize(sess *Session) error {
	st := sess.State.GetCurrentState()
	if st.SelectedArrayID == nil {
		return errors.Validationf("no stat array selected")
	}

	pool := append([]int(nil), st.UnassignedValues...)
	if st.SelectedValue != nil {
		pool = append(pool, st.SelectedValue.Value)
	}
	var open []shared.StatKey
	for _, key := range shared.StatKeys {
		if st.AssignedStats[key] == nil {
			open = append(open, key)
		}
	}
	if len(open) == 0 || len(pool) < len(open) {
		return errors.Validationf("nothing left to randomize")
	}

	writes := map[state.Path]any{
		state.PathSelectedValue: nil,
	}
	perm := m.random.Perm(len(pool))
	for i, key := range open {
		writes[state.AssignedStatPath(key)] = pool[perm[i]]
	}
	remaining := []int{}
	for i := len(open); i < len(pool); i++ {
		remaining = append(remaining, pool[perm[i]])
	}
	writes[state.PathUnassignedValues] = remaining
	if !sess.State.UpdateMultiple(writes, state.UpdateOpts{}) {
		return errors.Validationf("randomized assignment was rejected")
	}
	return nil
}

func (m *StatsManager) IsComplete(st *character.State) bool {
	return m.engine.StepComplete(character.StepStats, st)
}

func (m *StatsManager) Reset(sess *Session) {
	sess.State.ResetStep(character.StepStats)
	sess.BumpGeneration()
}

// PrepareContext renders the pool and, once the step is complete, a derived
// preview from the host rules engine. The preview tag written before the
// call guards against a slow projection landing after the stats moved on.
func (m *StatsManager) PrepareContext(ctx context.Context, sess *Session) (*StepContext, error) {
	st := sess.State.GetCurrentState()
	out := &StepContext{
		Step:     character.StepStats,
		Prompt:   "Assign your stat array",
		Pool:     append([]int(nil), st.UnassignedValues...),
		Budgets:  state.CalculateBudgets(st),
		Complete: m.IsComplete(st),
	}
	if !out.Complete {
		return out, nil
	}

	tag := m.uuid.New()
	sess.State.UpdateState(state.PathPreviewUUID, tag, state.UpdateOpts{SkipHistory: true})

	preview, err := m.content.ProjectCharacter(ctx, projectionInput(st))
	if err != nil {
		m.log.Warn("stat preview unavailable", "error", err)
		return out, nil
	}
	latest := sess.State.GetCurrentState()
	if latest.PreviewUUID == nil || *latest.PreviewUUID != tag {
		return out, nil
	}
	out.Preview = preview
	return out, nil
}

func projectionInput(st *character.State) *compendium.ProjectionInput {
	stats := make(map[shared.StatKey]int, shared.StatCount)
	for _, key := range shared.StatKeys {
		if v := st.AssignedStats[key]; v != nil {
			stats[key] = *v
		}
	}
	return &compendium.ProjectionInput{
		Stats:         stats,
		TrainedSkills: append([]shared.SkillKey(nil), st.Skills...),
		Items:         append([]string(nil), st.Gear...),
		Spells:        append([]string(nil), st.Spells...),
	}
}

func bonusOn(st *character.State, key shared.StatKey) int {
	total := 0
	for _, b := range st.AppliedBonuses {
		if b.Target == key {
			total += b.Amount
		}
	}
	return total
}

// bonusSlots lists slot IDs in stable perk-materialization order.
func bonusSlots(st *character.State) []string {
	var ids []string
	for _, key := range sortedEffectKeys(st.PerkEffects) {
		eff := st.PerkEffects[key]
		if eff.Kind == character.EffectBonus {
			ids = append(ids, eff.BonusID)
		}
	}
	return ids
}

func findBonusSlot(st *character.State, bonusID string) (character.PerkEffect, bool) {
	for _, eff := range st.PerkEffects {
		if eff.Kind == character.EffectBonus && eff.BonusID == bonusID {
			return eff, true
		}
	}
	return character.PerkEffect{}, false
}

func sortedEffectKeys(effects map[string]character.PerkEffect) []string {
	keys := make([]string, 0, len(effects))
	for k := range effects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func removeID(list []string, id string) []string {
	out := list[:0]
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
