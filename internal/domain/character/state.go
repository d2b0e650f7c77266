package character

import (
	"sync/atomic"
	"time"

	"github.com/emberfell/character-builder/internal/domain/compendium"
	"github.com/emberfell/character-builder/internal/domain/shared"
)

// stateSeq hands out lineage identities. Snapshots and clones of one state
// share the identity of the state they came from; states built separately
// never collide.
var stateSeq atomic.Uint64

// PoolPick is a pending pick from the unassigned stat value pool.
type PoolPick struct {
	Value     int `json:"value"`
	PoolIndex int `json:"pool_index"`
}

// StatBonus is an applied +1 bonus slot.
type StatBonus struct {
	Target shared.StatKey `json:"target"`
	Amount int            `json:"amount"`
}

// State is the single mutable aggregate for one in-progress character. It is
// owned exclusively by the state manager; everything else works on snapshots
// or writes through the manager's mutation API. It never persists; only the
// committed Character record survives the session.
type State struct {
	// ID names the state's lineage. Clones keep it, so a (ID, Version)
	// pair identifies one exact snapshot across every live session.
	ID uint64 `json:"-"`

	CurrentStep StepID `json:"current_step"`

	SelectedAncestry     *string `json:"selected_ancestry,omitempty"`
	SelectedClass        *string `json:"selected_class,omitempty"`
	SelectedStartingPack *string `json:"selected_starting_pack,omitempty"`

	// Stats step.
	SelectedArrayID  *string                  `json:"selected_array_id,omitempty"`
	AssignedStats    map[shared.StatKey]*int  `json:"assigned_stats"`
	UnassignedValues []int                    `json:"unassigned_values"`
	SelectedValue    *PoolPick                `json:"selected_value,omitempty"`
	AppliedBonuses   map[string]StatBonus     `json:"applied_bonuses"`
	BonusOrder       []string                 `json:"bonus_order"`

	// Skills, derived from the selected class.
	Skills          []shared.SkillKey         `json:"skills"`
	SkillSelections map[int][]shared.SkillKey `json:"skill_selections"`
	SkillGrant      *compendium.SkillGrant    `json:"skill_grant,omitempty"`

	// Spells step.
	Spells     []string `json:"spells"`
	SpellLimit int      `json:"spell_limit"`

	// Perks step.
	Perks       []string              `json:"perks"`
	ClassPerks  []string              `json:"class_perks"`
	PerkGrants  []Grant               `json:"perk_grants"`
	PerkEffects map[string]PerkEffect `json:"perk_effects"`

	// Gear step.
	Gear          []string `json:"gear"`
	GearCostSpent float64  `json:"gear_cost_spent"`
	GearBudget    float64  `json:"gear_budget"`

	PreviewUUID    *string   `json:"preview_uuid,omitempty"`
	CompletedSteps []StepID  `json:"completed_steps"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Version increments on every committed mutation. Cached computations are
	// tagged with the version they were derived from and discarded on mismatch.
	Version uint64 `json:"version"`
}

// NewState creates a fresh builder state with per-step defaults.
func NewState() *State {
	s := &State{
		ID:          stateSeq.Add(1),
		CurrentStep: StepAncestry,
		GearBudget:  DefaultGearBudget,
		UpdatedAt:   time.Now().UTC(),
	}
	s.applyStatDefaults()
	s.applySkillDefaults()
	s.applySpellDefaults()
	s.applyPerkDefaults()
	s.applyGearDefaults()
	return s
}

func (s *State) applyStatDefaults() {
	s.SelectedArrayID = nil
	s.AssignedStats = make(map[shared.StatKey]*int, shared.StatCount)
	for _, k := range shared.StatKeys {
		s.AssignedStats[k] = nil
	}
	s.UnassignedValues = []int{}
	s.SelectedValue = nil
	s.AppliedBonuses = make(map[string]StatBonus)
	s.BonusOrder = []string{}
}

func (s *State) applySkillDefaults() {
	s.Skills = []shared.SkillKey{}
	s.SkillSelections = make(map[int][]shared.SkillKey)
	s.SkillGrant = nil
}

func (s *State) applySpellDefaults() {
	s.Spells = []string{}
	s.SpellLimit = 0
}

func (s *State) applyPerkDefaults() {
	// Bonus slots only exist through perks; take back anything applied.
	for _, b := range s.AppliedBonuses {
		if v := s.AssignedStats[b.Target]; v != nil {
			nv := *v - b.Amount
			s.AssignedStats[b.Target] = &nv
		}
	}
	s.AppliedBonuses = make(map[string]StatBonus)
	s.BonusOrder = []string{}
	s.Perks = []string{}
	s.ClassPerks = []string{}
	s.PerkGrants = []Grant{}
	s.PerkEffects = make(map[string]PerkEffect)
}

func (s *State) applyGearDefaults() {
	s.Gear = []string{}
	s.GearCostSpent = 0
	s.GearBudget = DefaultGearBudget
}

// ResetStep restores the named step's owned sub-state to defaults and drops it
// from the completed set. Resetting the class step also clears everything the
// class derived: skills, spells, and perks have no meaning without a class.
func (s *State) ResetStep(step StepID) {
	switch step {
	case StepAncestry:
		s.SelectedAncestry = nil
	case StepClass:
		s.SelectedClass = nil
		s.applySkillDefaults()
		s.applySpellDefaults()
		s.applyPerkDefaults()
	case StepStats:
		s.applyStatDefaults()
	case StepSpells:
		s.Spells = []string{}
	case StepPerks:
		s.applyPerkDefaults()
	case StepStartingPack:
		s.SelectedStartingPack = nil
		s.GearBudget = DefaultGearBudget
	case StepGear:
		s.applyGearDefaults()
	}
	s.RemoveCompletedStep(step)
}

// IsStepCompleted reports whether step is in the completed set.
func (s *State) IsStepCompleted(step StepID) bool {
	for _, c := range s.CompletedSteps {
		if c == step {
			return true
		}
	}
	return false
}

// AddCompletedStep records step as complete; idempotent.
func (s *State) AddCompletedStep(step StepID) {
	if s.IsStepCompleted(step) {
		return
	}
	s.CompletedSteps = append(s.CompletedSteps, step)
}

// RemoveCompletedStep drops step from the completed set.
func (s *State) RemoveCompletedStep(step StepID) {
	out := s.CompletedSteps[:0]
	for _, c := range s.CompletedSteps {
		if c != step {
			out = append(out, c)
		}
	}
	s.CompletedSteps = out
}

// AssignedStatCount counts the non-null stat slots.
func (s *State) AssignedStatCount() int {
	n := 0
	for _, v := range s.AssignedStats {
		if v != nil {
			n++
		}
	}
	return n
}

// HasSpell reports whether ref is in the spell tray.
func (s *State) HasSpell(ref string) bool { return containsString(s.Spells, ref) }

// HasPerk reports whether ref is a user-chosen perk.
func (s *State) HasPerk(ref string) bool { return containsString(s.Perks, ref) }

// HasClassPerk reports whether ref was auto-granted by the class.
func (s *State) HasClassPerk(ref string) bool { return containsString(s.ClassPerks, ref) }

// HasGear reports whether ref is in the gear list.
func (s *State) HasGear(ref string) bool { return containsString(s.Gear, ref) }

// HasSkill reports whether key is a trained skill.
func (s *State) HasSkill(key shared.SkillKey) bool {
	for _, k := range s.Skills {
		if k == key {
			return true
		}
	}
	return false
}

// GuaranteedSkill reports whether key comes from the class's guaranteed set.
func (s *State) GuaranteedSkill(key shared.SkillKey) bool {
	if s.SkillGrant == nil {
		return false
	}
	for _, k := range s.SkillGrant.Guaranteed {
		if k == key {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Snapshots handed out by the state manager must
// not alias internal state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s

	out.SelectedAncestry = cloneStringPtr(s.SelectedAncestry)
	out.SelectedClass = cloneStringPtr(s.SelectedClass)
	out.SelectedStartingPack = cloneStringPtr(s.SelectedStartingPack)
	out.SelectedArrayID = cloneStringPtr(s.SelectedArrayID)
	out.PreviewUUID = cloneStringPtr(s.PreviewUUID)

	out.AssignedStats = make(map[shared.StatKey]*int, len(s.AssignedStats))
	for k, v := range s.AssignedStats {
		if v == nil {
			out.AssignedStats[k] = nil
			continue
		}
		c := *v
		out.AssignedStats[k] = &c
	}
	out.UnassignedValues = append([]int(nil), s.UnassignedValues...)
	if s.SelectedValue != nil {
		pick := *s.SelectedValue
		out.SelectedValue = &pick
	}
	out.AppliedBonuses = make(map[string]StatBonus, len(s.AppliedBonuses))
	for k, v := range s.AppliedBonuses {
		out.AppliedBonuses[k] = v
	}
	out.BonusOrder = append([]string(nil), s.BonusOrder...)

	out.Skills = append([]shared.SkillKey(nil), s.Skills...)
	out.SkillSelections = make(map[int][]shared.SkillKey, len(s.SkillSelections))
	for k, v := range s.SkillSelections {
		out.SkillSelections[k] = append([]shared.SkillKey(nil), v...)
	}
	if s.SkillGrant != nil {
		grant := compendium.SkillGrant{
			Guaranteed: append([]shared.SkillKey(nil), s.SkillGrant.Guaranteed...),
			Choices:    make([]compendium.SkillChoice, len(s.SkillGrant.Choices)),
		}
		for i, c := range s.SkillGrant.Choices {
			grant.Choices[i] = compendium.SkillChoice{
				Pool:  append([]shared.SkillKey(nil), c.Pool...),
				Count: c.Count,
			}
		}
		out.SkillGrant = &grant
	}

	out.Spells = append([]string(nil), s.Spells...)
	out.Perks = append([]string(nil), s.Perks...)
	out.ClassPerks = append([]string(nil), s.ClassPerks...)
	out.PerkGrants = make([]Grant, len(s.PerkGrants))
	for i := range s.PerkGrants {
		out.PerkGrants[i] = s.PerkGrants[i].Clone()
	}
	out.PerkEffects = make(map[string]PerkEffect, len(s.PerkEffects))
	for k, v := range s.PerkEffects {
		out.PerkEffects[k] = v
	}

	out.Gear = append([]string(nil), s.Gear...)
	out.CompletedSteps = append([]StepID(nil), s.CompletedSteps...)

	return &out
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// RemoveString drops the first occurrence of s from list.
func RemoveString(list []string, s string) []string {
	for i, v := range list {
		if v == s {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
