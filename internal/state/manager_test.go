package state_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/emberfell/character-builder/internal/domain/character"
	"github.com/emberfell/character-builder/internal/domain/shared"
	"github.com/emberfell/character-builder/internal/state"
)

type ManagerSuite struct {
	suite.Suite
	manager *state.Manager
}

func (s *ManagerSuite) SetupTest() {
	s.manager = state.NewManager(&state.ManagerConfig{
		Complete: func(step character.StepID, st *character.State) bool {
			// Minimal stand-in: ancestry counts as done once selected.
			return step == character.StepAncestry && st.SelectedAncestry != nil
		},
	})
}

func (s *ManagerSuite) TestUpdateStateCommitsAndBumpsVersion() {
	before := s.manager.Version()

	ok := s.manager.UpdateState(state.PathSelectedAncestry, "ancestry-emberkin", state.UpdateOpts{})
	s.True(ok)

	st := s.manager.GetCurrentState()
	s.Require().NotNil(st.SelectedAncestry)
	s.Equal("ancestry-emberkin", *st.SelectedAncestry)
	s.Equal(before+1, st.Version)
	s.Contains(st.CompletedSteps, character.StepAncestry)
}

func (s *ManagerSuite) TestUpdateStateRejectsUnknownPath() {
	ok := s.manager.UpdateState(state.Path("selectedAlignment"), "chaotic", state.UpdateOpts{})
	s.False(ok)
	s.Equal(uint64(0), s.manager.Version())
}

func (s *ManagerSuite) TestUpdateStateRejectsEmptySelection() {
	ok := s.manager.UpdateState(state.PathSelectedClass, "", state.UpdateOpts{})
	s.False(ok)
	s.Nil(s.manager.GetCurrentState().SelectedClass)
}

func (s *ManagerSuite) TestNilClearsSelection() {
	s.True(s.manager.UpdateState(state.PathSelectedClass, "class-warden", state.UpdateOpts{}))
	s.True(s.manager.UpdateState(state.PathSelectedClass, nil, state.UpdateOpts{}))
	s.Nil(s.manager.GetCurrentState().SelectedClass)
}

func (s *ManagerSuite) TestAssignedStatRange() {
	path := state.AssignedStatPath(shared.StatMight)

	s.False(s.manager.UpdateState(path, 1, state.UpdateOpts{}))
	s.False(s.manager.UpdateState(path, 9, state.UpdateOpts{}))
	s.True(s.manager.UpdateState(path, 6, state.UpdateOpts{}))

	st := s.manager.GetCurrentState()
	s.Require().NotNil(st.AssignedStats[shared.StatMight])
	s.Equal(6, *st.AssignedStats[shared.StatMight])

	s.True(s.manager.UpdateState(path, nil, state.UpdateOpts{}))
	s.Nil(s.manager.GetCurrentState().AssignedStats[shared.StatMight])
}

func (s *ManagerSuite) TestAssignedStatUnknownKey() {
	s.False(s.manager.UpdateState(state.Path("assignedStats.charm"), 4, state.UpdateOpts{}))
}

func (s *ManagerSuite) TestCurrentStepMustBeConfigured() {
	s.False(s.manager.UpdateState(state.PathCurrentStep, "alignment", state.UpdateOpts{}))
	s.True(s.manager.UpdateState(state.PathCurrentStep, character.StepGear, state.UpdateOpts{}))
	s.Equal(character.StepGear, s.manager.GetCurrentState().CurrentStep)
}

func (s *ManagerSuite) TestUpdateMultipleIsAtomic() {
	writes := map[state.Path]any{
		state.PathSelectedClass: "class-warden",
		state.PathSpellLimit:    -3,
	}
	s.False(s.manager.UpdateMultiple(writes, state.UpdateOpts{}))

	st := s.manager.GetCurrentState()
	s.Nil(st.SelectedClass)
	s.Equal(uint64(0), st.Version)
}

func (s *ManagerSuite) TestValidateFuncRollsBack() {
	mgr := state.NewManager(&state.ManagerConfig{
		Validate: func(st *character.State) error {
			if st.GearCostSpent > st.GearBudget {
				return assertFailed{}
			}
			return nil
		},
	})
	s.True(mgr.UpdateState(state.PathGearBudget, 100.0, state.UpdateOpts{}))
	s.False(mgr.UpdateState(state.PathGearCostSpent, 150.0, state.UpdateOpts{}))
	s.Equal(0.0, mgr.GetCurrentState().GearCostSpent)
}

func (s *ManagerSuite) TestGetCurrentStateIsDetached() {
	s.True(s.manager.UpdateState(state.PathSpells, []string{"spell-ember-dart"}, state.UpdateOpts{}))

	st := s.manager.GetCurrentState()
	st.Spells[0] = "spell-tamper"
	st.SelectedAncestry = stringPtr("ancestry-tamper")

	fresh := s.manager.GetCurrentState()
	s.Equal([]string{"spell-ember-dart"}, fresh.Spells)
	s.Nil(fresh.SelectedAncestry)
}

func (s *ManagerSuite) TestUndoRestoresPriorState() {
	s.True(s.manager.UpdateState(state.PathSelectedAncestry, "ancestry-emberkin", state.UpdateOpts{}))
	s.True(s.manager.UpdateState(state.PathSelectedAncestry, "ancestry-duskborn", state.UpdateOpts{}))
	versionBefore := s.manager.Version()

	s.True(s.manager.Undo())

	st := s.manager.GetCurrentState()
	s.Require().NotNil(st.SelectedAncestry)
	s.Equal("ancestry-emberkin", *st.SelectedAncestry)
	// Undo is itself a commit: the version keeps climbing so caches never
	// confuse the restored state with the one they already saw.
	s.Equal(versionBefore+1, st.Version)

	s.True(s.manager.Undo())
	s.Nil(s.manager.GetCurrentState().SelectedAncestry)
	s.False(s.manager.Undo())
}

func (s *ManagerSuite) TestHistoryIsBounded() {
	for i := 0; i < 80; i++ {
		val := 2 + i%7
		s.True(s.manager.UpdateState(state.AssignedStatPath(shared.StatLuck), val, state.UpdateOpts{}))
	}
	s.Equal(50, s.manager.HistoryDepth())
}

func (s *ManagerSuite) TestSkipHistory() {
	s.True(s.manager.UpdateState(state.PathPreviewUUID, "prev-1", state.UpdateOpts{SkipHistory: true}))
	s.Equal(0, s.manager.HistoryDepth())
}

func (s *ManagerSuite) TestResetStepCascadesFromClass() {
	writes := map[state.Path]any{
		state.PathSelectedClass: "class-warden",
		state.PathSkills:        []shared.SkillKey{shared.SkillAthletics},
		state.PathSpells:        []string{"spell-ember-dart"},
		state.PathPerks:         []string{"perk-iron-will"},
		state.PathSpellLimit:    2,
	}
	s.True(s.manager.UpdateMultiple(writes, state.UpdateOpts{}))

	s.manager.ResetStep(character.StepClass)

	st := s.manager.GetCurrentState()
	s.Nil(st.SelectedClass)
	s.Empty(st.Skills)
	s.Empty(st.Spells)
	s.Empty(st.Perks)
	s.Equal(0, st.SpellLimit)
}

func (s *ManagerSuite) TestListeners() {
	var exact, wildcard int
	unsub := s.manager.Subscribe(state.PathSpells, func(p state.Path, st *character.State) {
		exact++
	})
	s.manager.Subscribe(state.PathWildcard, func(p state.Path, st *character.State) {
		wildcard++
	})

	s.True(s.manager.UpdateState(state.PathSpells, []string{"spell-ember-dart"}, state.UpdateOpts{}))
	s.True(s.manager.UpdateState(state.PathGearBudget, 250.0, state.UpdateOpts{}))
	s.Equal(1, exact)
	s.Equal(2, wildcard)

	unsub()
	s.True(s.manager.UpdateState(state.PathSpells, []string{}, state.UpdateOpts{}))
	s.Equal(1, exact)
	s.Equal(3, wildcard)
}

func (s *ManagerSuite) TestCalculateBudgets() {
	writes := map[state.Path]any{
		state.PathSpellLimit:    3,
		state.PathSpells:        []string{"spell-ember-dart", "spell-frost-bind"},
		state.PathGearBudget:    300.0,
		state.PathGearCostSpent: 350.0,
	}
	s.True(s.manager.UpdateMultiple(writes, state.UpdateOpts{}))

	budgets := s.manager.CalculateBudgets()
	s.Equal(3.0, budgets.Spells.Total)
	s.Equal(1.0, budgets.Spells.Remaining)
	s.False(budgets.Spells.IsOver)

	// Gear can run over; the budget reports it but nothing blocks it.
	s.Equal(-50.0, budgets.Gear.Remaining)
	s.True(budgets.Gear.IsOver)
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

type assertFailed struct{}

func (assertFailed) Error() string { return "invariant violated" }

func stringPtr(s string) *string { return &s }
