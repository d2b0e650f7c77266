package validation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/emberfell/character-builder/internal/content"
	"github.com/emberfell/character-builder/internal/domain/character"
	"github.com/emberfell/character-builder/internal/domain/compendium"
	"github.com/emberfell/character-builder/internal/domain/shared"
	"github.com/emberfell/character-builder/internal/state"
	"github.com/emberfell/character-builder/internal/validation"
)

type EngineSuite struct {
	suite.Suite
	ctx     context.Context
	engine  *validation.Engine
	catalog *content.StaticClient
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.catalog = content.NewStaticClient()
	s.engine = validation.NewEngine(&validation.EngineConfig{Content: s.catalog})
}

func (s *EngineSuite) newState() *character.State {
	return character.NewState()
}

func stringPtr(v string) *string { return &v }
func intPtr(v int) *int          { return &v }

func (s *EngineSuite) TestAncestryCompletion() {
	st := s.newState()
	s.False(s.engine.StepComplete(character.StepAncestry, st))

	st.SelectedAncestry = stringPtr("ancestry-emberkin")
	s.True(s.engine.StepComplete(character.StepAncestry, st))
}

func (s *EngineSuite) TestClassCompletionNeedsChoiceGroups() {
	st := s.newState()
	st.SelectedClass = stringPtr("class-warden")
	st.SkillGrant = &compendium.SkillGrant{
		Guaranteed: []shared.SkillKey{shared.SkillAthletics},
		Choices: []compendium.SkillChoice{
			{Pool: []shared.SkillKey{shared.SkillSurvival, shared.SkillPerception}, Count: 1},
		},
	}
	st.Skills = []shared.SkillKey{shared.SkillAthletics}
	s.False(s.engine.StepComplete(character.StepClass, st))

	st.Skills = append(st.Skills, shared.SkillSurvival)
	s.True(s.engine.StepComplete(character.StepClass, st))
}

func (s *EngineSuite) TestGuaranteedSkillNeverCountsTowardChoices() {
	st := s.newState()
	st.SelectedClass = stringPtr("class-warden")
	// The guaranteed skill is itself inside the choice pool; holding only it
	// must not satisfy the group.
	st.SkillGrant = &compendium.SkillGrant{
		Guaranteed: []shared.SkillKey{shared.SkillSurvival},
		Choices: []compendium.SkillChoice{
			{Pool: []shared.SkillKey{shared.SkillSurvival, shared.SkillPerception}, Count: 1},
		},
	}
	st.Skills = []shared.SkillKey{shared.SkillSurvival}
	s.False(s.engine.StepComplete(character.StepClass, st))

	st.Skills = append(st.Skills, shared.SkillPerception)
	s.True(s.engine.StepComplete(character.StepClass, st))
}

func (s *EngineSuite) TestEmptyPoolMeansAnySkill() {
	st := s.newState()
	st.SelectedClass = stringPtr("class-sage")
	st.SkillGrant = &compendium.SkillGrant{
		Choices: []compendium.SkillChoice{{Count: 2}},
	}
	st.Skills = []shared.SkillKey{shared.SkillLore}
	s.False(s.engine.StepComplete(character.StepClass, st))

	st.Skills = append(st.Skills, shared.SkillMedicine)
	s.True(s.engine.StepComplete(character.StepClass, st))
}

func (s *EngineSuite) TestStatsCompletion() {
	st := s.newState()
	s.False(s.engine.StepComplete(character.StepStats, st))

	st.SelectedArrayID = stringPtr("standard")
	values := []int{6, 5, 4, 4, 4, 3}
	for i, key := range shared.StatKeys {
		st.AssignedStats[key] = intPtr(values[i])
	}
	s.True(s.engine.StepComplete(character.StepStats, st))

	// An unplaced bonus slot holds the step open.
	st.PerkEffects["perk-gifted"] = character.PerkEffect{Kind: character.EffectBonus, BonusID: "perk-gifted"}
	s.False(s.engine.StepComplete(character.StepStats, st))

	st.AppliedBonuses["perk-gifted"] = character.StatBonus{Target: shared.StatMight, Amount: 1}
	s.True(s.engine.StepComplete(character.StepStats, st))
}

func (s *EngineSuite) TestSpellsCompletion() {
	st := s.newState()
	s.False(s.engine.StepComplete(character.StepSpells, st), "no class means no spell limit yet")

	st.SelectedClass = stringPtr("class-brigand")
	s.True(s.engine.StepComplete(character.StepSpells, st), "non-casters are trivially done")

	st.SpellLimit = 2
	s.False(s.engine.StepComplete(character.StepSpells, st))

	st.Spells = []string{"spell-ember-dart"}
	s.False(s.engine.StepComplete(character.StepSpells, st))

	st.Spells = append(st.Spells, "spell-frost-bind")
	s.True(s.engine.StepComplete(character.StepSpells, st))
}

func (s *EngineSuite) TestOptionalStepsAlwaysComplete() {
	st := s.newState()
	s.True(s.engine.StepComplete(character.StepPerks, st))
	s.True(s.engine.StepComplete(character.StepStartingPack, st))
	s.True(s.engine.StepComplete(character.StepGear, st))
}

func (s *EngineSuite) TestValuesFromArrayReconcilesWithBonuses() {
	st := s.newState()
	st.SelectedArrayID = stringPtr("standard")
	values := []int{6, 5, 4, 4, 4, 3}
	for i, key := range shared.StatKeys {
		st.AssignedStats[key] = intPtr(values[i])
	}
	// Might carries a +1 bonus on a base 6; conservation must subtract it.
	st.AssignedStats[shared.StatMight] = intPtr(7)
	st.AppliedBonuses["perk-gifted"] = character.StatBonus{Target: shared.StatMight, Amount: 1}

	result, err := s.engine.ValidateState(s.ctx, st, []validation.Rule{
		{Type: validation.RuleValuesFromArray},
	})
	s.Require().NoError(err)
	s.True(result.Valid, "issues: %v", result.Errors)

	// Tamper with a value the array never contained.
	st.AssignedStats[shared.StatLuck] = intPtr(8)
	result, err = s.engine.ValidateState(s.ctx, st, []validation.Rule{
		{Type: validation.RuleValuesFromArray},
	})
	s.Require().NoError(err)
	s.False(result.Valid)
}

func (s *EngineSuite) TestUnknownRuleTypeIsWiringBug() {
	_, err := s.engine.ValidateState(s.ctx, s.newState(), []validation.Rule{
		{Type: validation.RuleType("alignment-check")},
	})
	s.Error(err)
}

func (s *EngineSuite) TestGearBudgetOverflowIsWarning() {
	st := s.newState()
	st.GearBudget = 300
	st.GearCostSpent = 350

	result, err := s.engine.ValidateState(s.ctx, st, []validation.Rule{
		{Type: validation.RuleWithinBudget, Budget: character.BudgetGear},
	})
	s.Require().NoError(err)
	s.True(result.Valid)
	s.Len(result.Warnings, 1)
}

func (s *EngineSuite) TestSpellBudgetOverflowIsError() {
	st := s.newState()
	st.SpellLimit = 1
	st.Spells = []string{"spell-ember-dart", "spell-frost-bind"}

	result, err := s.engine.ValidateState(s.ctx, st, []validation.Rule{
		{Type: validation.RuleWithinBudget, Budget: character.BudgetSpells},
	})
	s.Require().NoError(err)
	s.False(result.Valid)
}

func (s *EngineSuite) TestNoDuplicates() {
	st := s.newState()
	st.Perks = []string{"perk-iron-will", "perk-iron-will"}

	result, err := s.engine.ValidateState(s.ctx, st, []validation.Rule{
		{Type: validation.RuleNoDuplicates, Path: state.PathPerks},
	})
	s.Require().NoError(err)
	s.False(result.Valid)
}

func (s *EngineSuite) TestValidateSelectionDuplicateSpell() {
	st := s.newState()
	st.Spells = []string{"spell-ember-dart"}
	st.SpellLimit = 3

	item := &compendium.Item{Ref: "spell-ember-dart", Category: compendium.CategorySpell}
	result := s.engine.ValidateSelection(s.ctx, st, item)
	s.False(result.Valid)
}

func (s *EngineSuite) TestValidateSelectionGearOverBudgetWarns() {
	st := s.newState()
	st.GearBudget = 100
	st.GearCostSpent = 90

	item := &compendium.Item{
		Ref:      "gear-greatshield",
		Category: compendium.CategoryGear,
		Cost:     &compendium.Currency{Gold: 1},
	}
	result := s.engine.ValidateSelection(s.ctx, st, item)
	s.True(result.Valid, "overflow must not block the purchase")
	s.Len(result.Warnings, 1)
}

func (s *EngineSuite) TestValidateSelectionPrereqWarns() {
	st := s.newState()
	item := &compendium.Item{
		Ref:      "perk-spellblade",
		Category: compendium.CategoryPerk,
		Prerequisites: []compendium.Prerequisite{
			{Kind: compendium.PrereqStat, Stat: shared.StatReason, Min: 5},
		},
	}
	result := s.engine.ValidateSelection(s.ctx, st, item)
	s.True(result.Valid)
	s.Len(result.Warnings, 1)

	st.AssignedStats[shared.StatReason] = intPtr(6)
	st.Version++
	result = s.engine.ValidateSelection(s.ctx, st, item)
	s.Empty(result.Warnings)
}

func (s *EngineSuite) TestSelectionCacheInvalidatesOnVersionChange() {
	st := s.newState()
	st.SpellLimit = 1
	item := &compendium.Item{Ref: "spell-ember-dart", Category: compendium.CategorySpell}

	s.True(s.engine.ValidateSelection(s.ctx, st, item).Valid)

	// Same version: the memoized verdict must come back unchanged even
	// though the state object mutated underneath.
	st.Spells = []string{"spell-frost-bind"}
	s.True(s.engine.ValidateSelection(s.ctx, st, item).Valid)

	st.Version++
	s.False(s.engine.ValidateSelection(s.ctx, st, item).Valid)
}

func (s *EngineSuite) TestSelectionCacheScopedPerState() {
	item := &compendium.Item{Ref: "spell-ember-dart", Category: compendium.CategorySpell}

	a := s.newState()
	a.SpellLimit = 2
	a.Spells = []string{"spell-ember-dart"}
	s.False(s.engine.ValidateSelection(s.ctx, a, item).Valid)

	// A second state at the same version must get its own verdict, not
	// the first one's.
	b := s.newState()
	b.SpellLimit = 2
	s.True(s.engine.ValidateSelection(s.ctx, b, item).Valid)
}

func (s *EngineSuite) TestStepPrerequisitesArePermissive() {
	st := s.newState()
	for _, step := range character.StepOrder {
		s.True(s.engine.ValidateStepPrerequisites(step, st))
	}
	s.False(s.engine.ValidateStepPrerequisites(character.StepID("alignment"), st))
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}
