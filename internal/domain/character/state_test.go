package character_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberfell/character-builder/internal/domain/character"
	"github.com/emberfell/character-builder/internal/domain/shared"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestNewStateDefaults(t *testing.T) {
	st := character.NewState()

	assert.Equal(t, character.StepAncestry, st.CurrentStep)
	assert.Equal(t, character.DefaultGearBudget, st.GearBudget)
	assert.Equal(t, 0, st.AssignedStatCount())
	for _, key := range shared.StatKeys {
		assert.Nil(t, st.AssignedStats[key])
	}
}

func TestCloneIsDeep(t *testing.T) {
	st := character.NewState()
	st.SelectedClass = strPtr("class-warden")
	st.AssignedStats[shared.StatMight] = intPtr(6)
	st.Skills = []shared.SkillKey{shared.SkillAthletics}
	st.PerkGrants = []character.Grant{{ID: "g1", AllowedPerks: []string{"perk-a"}}}
	st.AppliedBonuses["b1"] = character.StatBonus{Target: shared.StatMight, Amount: 1}

	clone := st.Clone()
	*clone.SelectedClass = "class-sage"
	*clone.AssignedStats[shared.StatMight] = 3
	clone.Skills[0] = shared.SkillStealth
	clone.PerkGrants[0].AllowedPerks[0] = "perk-z"
	clone.AppliedBonuses["b1"] = character.StatBonus{Target: shared.StatLuck, Amount: 1}

	assert.Equal(t, "class-warden", *st.SelectedClass)
	assert.Equal(t, 6, *st.AssignedStats[shared.StatMight])
	assert.Equal(t, shared.SkillAthletics, st.Skills[0])
	assert.Equal(t, "perk-a", st.PerkGrants[0].AllowedPerks[0])
	assert.Equal(t, shared.StatMight, st.AppliedBonuses["b1"].Target)
}

func TestResetClassCascades(t *testing.T) {
	st := character.NewState()
	st.SelectedClass = strPtr("class-warden")
	st.Skills = []shared.SkillKey{shared.SkillAthletics}
	st.Spells = []string{"spell-ember-dart"}
	st.SpellLimit = 2
	st.Perks = []string{"perk-iron-will"}
	st.ClassPerks = []string{"perk-oath"}
	st.SelectedAncestry = strPtr("ancestry-emberkin")

	st.ResetStep(character.StepClass)

	assert.Nil(t, st.SelectedClass)
	assert.Empty(t, st.Skills)
	assert.Empty(t, st.Spells)
	assert.Equal(t, 0, st.SpellLimit)
	assert.Empty(t, st.Perks)
	assert.Empty(t, st.ClassPerks)
	assert.NotNil(t, st.SelectedAncestry, "other steps untouched")
}

func TestResetPerksReversesAppliedBonuses(t *testing.T) {
	st := character.NewState()
	st.AssignedStats[shared.StatMight] = intPtr(7)
	st.AppliedBonuses["b1"] = character.StatBonus{Target: shared.StatMight, Amount: 1}
	st.BonusOrder = []string{"b1"}

	st.ResetStep(character.StepPerks)

	require.NotNil(t, st.AssignedStats[shared.StatMight])
	assert.Equal(t, 6, *st.AssignedStats[shared.StatMight])
	assert.Empty(t, st.AppliedBonuses)
	assert.Empty(t, st.BonusOrder)
}

func TestResetStartingPackRestoresDefaultBudget(t *testing.T) {
	st := character.NewState()
	st.SelectedStartingPack = strPtr("pack-wanderer")
	st.GearBudget = 500

	st.ResetStep(character.StepStartingPack)

	assert.Nil(t, st.SelectedStartingPack)
	assert.Equal(t, character.DefaultGearBudget, st.GearBudget)
}

func TestCompletedStepBookkeeping(t *testing.T) {
	st := character.NewState()
	st.AddCompletedStep(character.StepAncestry)
	st.AddCompletedStep(character.StepAncestry)

	assert.True(t, st.IsStepCompleted(character.StepAncestry))
	assert.Len(t, st.CompletedSteps, 1)

	st.RemoveCompletedStep(character.StepAncestry)
	assert.False(t, st.IsStepCompleted(character.StepAncestry))
}

func TestBudgetDerivation(t *testing.T) {
	b := character.NewBudget(300, 350)
	assert.Equal(t, -50.0, b.Remaining)
	assert.True(t, b.IsOver)

	b = character.NewBudget(3, 2)
	assert.Equal(t, 1.0, b.Remaining)
	assert.False(t, b.IsOver)
}

func TestStepNavigation(t *testing.T) {
	assert.Equal(t, character.StepClass, character.NextStep(character.StepAncestry))
	assert.Equal(t, character.StepAncestry, character.PrevStep(character.StepClass))
	assert.Equal(t, character.StepID(""), character.NextStep(character.StepGear))
	assert.Equal(t, character.StepID(""), character.PrevStep(character.StepAncestry))

	assert.True(t, character.IsMandatory(character.StepStats))
	assert.False(t, character.IsMandatory(character.StepGear))
}
