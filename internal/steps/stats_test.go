package steps_test

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/emberfell/character-builder/internal/domain/character"
	"github.com/emberfell/character-builder/internal/domain/shared"
	"github.com/emberfell/character-builder/internal/random"
	"github.com/emberfell/character-builder/internal/state"
	"github.com/emberfell/character-builder/internal/steps"
	"github.com/emberfell/character-builder/internal/testutils"
	"github.com/emberfell/character-builder/internal/uuid"
	"github.com/emberfell/character-builder/internal/validation"
)

func newTestSession(engine *validation.Engine) *steps.Session {
	mgr := state.NewManager(&state.ManagerConfig{Complete: engine.StepComplete})
	return &steps.Session{ID: "sess-1", OwnerID: "owner-1", State: mgr}
}

type StatsStepSuite struct {
	suite.Suite
	ctx     context.Context
	manager *steps.StatsManager
	sess    *steps.Session
}

func (s *StatsStepSuite) SetupTest() {
	s.ctx = context.Background()
	client := testutils.FixtureClient()
	engine := validation.NewEngine(&validation.EngineConfig{Content: client})
	s.manager = steps.NewStatsManager(&steps.StatsConfig{
		Content: client,
		Engine:  engine,
		Random:  random.NewSeededSource(1),
		UUID:    &uuid.SequentialGenerator{Prefix: "preview"},
	})
	s.sess = newTestSession(engine)
}

// poolPlusAssigned gathers the multiset the conservation invariant tracks.
func (s *StatsStepSuite) poolPlusAssigned() []int {
	st := s.sess.State.GetCurrentState()
	bonus := make(map[shared.StatKey]int)
	for _, b := range st.AppliedBonuses {
		bonus[b.Target] += b.Amount
	}
	var all []int
	for _, key := range shared.StatKeys {
		if v := st.AssignedStats[key]; v != nil {
			all = append(all, *v-bonus[key])
		}
	}
	all = append(all, st.UnassignedValues...)
	if st.SelectedValue != nil {
		all = append(all, st.SelectedValue.Value)
	}
	sort.Ints(all)
	return all
}

func (s *StatsStepSuite) selectStandardArray() {
	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{
		Kind: steps.ActionSelectArray, Ref: "standard",
	}))
}

func (s *StatsStepSuite) TestSelectArrayFillsPool() {
	s.selectStandardArray()
	st := s.sess.State.GetCurrentState()
	s.Equal([]int{6, 5, 4, 4, 4, 3}, st.UnassignedValues)
	s.Equal(0, st.AssignedStatCount())
}

func (s *StatsStepSuite) TestUnknownArrayRejected() {
	err := s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionSelectArray, Ref: "heroic"})
	s.Error(err)
}

func (s *StatsStepSuite) TestPickAssignCycle() {
	s.selectStandardArray()
	want := s.poolPlusAssigned()

	// Full cycle: pick each value and place it, checking conservation at
	// every step.
	order := []shared.StatKey{
		shared.StatMight, shared.StatDexterity, shared.StatAwareness,
		shared.StatReason, shared.StatPresence, shared.StatLuck,
	}
	values := []int{6, 5, 4, 4, 4, 3}
	for i, key := range order {
		s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{
			Kind: steps.ActionPickValue, Index: 0, Value: values[i],
		}))
		s.Equal(want, s.poolPlusAssigned())
		s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{
			Kind: steps.ActionAssignStat, Stat: string(key),
		}))
		s.Equal(want, s.poolPlusAssigned())
	}

	st := s.sess.State.GetCurrentState()
	s.Equal(shared.StatCount, st.AssignedStatCount())
	s.Empty(st.UnassignedValues)
	s.Equal(6, *st.AssignedStats[shared.StatMight])
	s.True(s.manager.IsComplete(st))
}

func (s *StatsStepSuite) TestStaleIndexFallsBackToValueMatch() {
	s.selectStandardArray()
	// Index 5 holds 3; ask for value 5 with that stale index.
	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{
		Kind: steps.ActionPickValue, Index: 5, Value: 5,
	}))
	st := s.sess.State.GetCurrentState()
	s.Require().NotNil(st.SelectedValue)
	s.Equal(5, st.SelectedValue.Value)
}

func (s *StatsStepSuite) TestAssignDisplacesBackToPool() {
	s.selectStandardArray()
	want := s.poolPlusAssigned()

	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionPickValue, Value: 6}))
	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionAssignStat, Stat: "might"}))
	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionPickValue, Value: 5}))
	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionAssignStat, Stat: "might"}))

	st := s.sess.State.GetCurrentState()
	s.Equal(5, *st.AssignedStats[shared.StatMight])
	s.Contains(st.UnassignedValues, 6, "displaced value returns to the pool")
	s.Equal(want, s.poolPlusAssigned())
}

func (s *StatsStepSuite) TestAssignWithoutPick() {
	s.selectStandardArray()
	err := s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionAssignStat, Stat: "might"})
	s.Error(err)
}

func (s *StatsStepSuite) TestRandomizeAssignsEverything() {
	s.selectStandardArray()
	want := s.poolPlusAssigned()

	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionRandomize}))

	st := s.sess.State.GetCurrentState()
	s.Equal(shared.StatCount, st.AssignedStatCount())
	s.Empty(st.UnassignedValues)
	s.Equal(want, s.poolPlusAssigned())
}

func (s *StatsStepSuite) TestRandomizeFillsOnlyOpenSlots() {
	s.selectStandardArray()
	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionPickValue, Value: 6}))
	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionAssignStat, Stat: "luck"}))

	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionRandomize}))

	st := s.sess.State.GetCurrentState()
	s.Equal(6, *st.AssignedStats[shared.StatLuck], "existing assignment untouched")
	s.Equal(shared.StatCount, st.AssignedStatCount())
}

func (s *StatsStepSuite) applyBonusSlot(id string) {
	st := s.sess.State.GetCurrentState()
	effects := map[string]character.PerkEffect{
		id: {Kind: character.EffectBonus, BonusID: id, MaxBase: 6},
	}
	for k, v := range st.PerkEffects {
		effects[k] = v
	}
	s.Require().True(s.sess.State.UpdateState(state.PathPerkEffects, effects, state.UpdateOpts{}))
}

func (s *StatsStepSuite) TestBonusPlacementRules() {
	s.selectStandardArray()
	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionRandomize}))
	s.applyBonusSlot("perk-gifted")

	st := s.sess.State.GetCurrentState()
	var low, high shared.StatKey
	for _, key := range shared.StatKeys {
		if *st.AssignedStats[key] == 3 {
			low = key
		}
		if *st.AssignedStats[key] == 6 {
			high = key
		}
	}
	s.Require().NotEmpty(low)
	s.Require().NotEmpty(high)

	// Base 6 is within the slot limit but the result hits the cap of 7;
	// that is allowed. Re-applying the same slot elsewhere moves it.
	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{
		Kind: steps.ActionApplyBonus, Ref: "perk-gifted", Stat: string(high),
	}))
	st = s.sess.State.GetCurrentState()
	s.Equal(7, *st.AssignedStats[high])

	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{
		Kind: steps.ActionApplyBonus, Ref: "perk-gifted", Stat: string(low),
	}))
	st = s.sess.State.GetCurrentState()
	s.Equal(6, *st.AssignedStats[high], "moving the slot reverses the old target")
	s.Equal(4, *st.AssignedStats[low])
}

func (s *StatsStepSuite) TestBonusRespectsBaseLimit() {
	s.selectStandardArray()
	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionRandomize}))

	st := s.sess.State.GetCurrentState()
	effects := map[string]character.PerkEffect{
		"perk-modest": {Kind: character.EffectBonus, BonusID: "perk-modest", MaxBase: 4},
	}
	s.Require().True(s.sess.State.UpdateState(state.PathPerkEffects, effects, state.UpdateOpts{}))

	var high shared.StatKey
	for _, key := range shared.StatKeys {
		if *st.AssignedStats[key] == 6 {
			high = key
		}
	}
	err := s.manager.HandleAction(s.ctx, s.sess, steps.Action{
		Kind: steps.ActionApplyBonus, Ref: "perk-modest", Stat: string(high),
	})
	s.Error(err, "base 6 exceeds the slot's limit of 4")
}

func (s *StatsStepSuite) TestSecondSlotCannotStackOnSameStat() {
	s.selectStandardArray()
	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionRandomize}))
	s.applyBonusSlot("perk-a")
	s.applyBonusSlot("perk-b")

	st := s.sess.State.GetCurrentState()
	var low shared.StatKey
	for _, key := range shared.StatKeys {
		if *st.AssignedStats[key] == 3 {
			low = key
		}
	}
	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{
		Kind: steps.ActionApplyBonus, Ref: "perk-a", Stat: string(low),
	}))
	err := s.manager.HandleAction(s.ctx, s.sess, steps.Action{
		Kind: steps.ActionApplyBonus, Ref: "perk-b", Stat: string(low),
	})
	s.Error(err, "one bonus per stat")
}

func (s *StatsStepSuite) TestUnassignReturnsBaseAndFreesBonus() {
	s.selectStandardArray()
	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionRandomize}))
	s.applyBonusSlot("perk-gifted")

	st := s.sess.State.GetCurrentState()
	var low shared.StatKey
	for _, key := range shared.StatKeys {
		if *st.AssignedStats[key] == 3 {
			low = key
		}
	}
	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{
		Kind: steps.ActionApplyBonus, Ref: "perk-gifted", Stat: string(low),
	}))

	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{
		Kind: steps.ActionRemove, Stat: string(low),
	}))

	st = s.sess.State.GetCurrentState()
	s.Nil(st.AssignedStats[low])
	s.Contains(st.UnassignedValues, 3, "the base value returns, not the boosted one")
	s.Empty(st.AppliedBonuses, "the slot is free to place again")
}

func (s *StatsStepSuite) TestPreviewOnCompletion() {
	s.selectStandardArray()
	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionRandomize}))

	out, err := s.manager.PrepareContext(s.ctx, s.sess)
	s.Require().NoError(err)
	s.True(out.Complete)
	s.Require().NotNil(out.Preview)
	s.Greater(out.Preview.HP, 0)
}

func (s *StatsStepSuite) TestNoPreviewWhileIncomplete() {
	s.selectStandardArray()
	out, err := s.manager.PrepareContext(s.ctx, s.sess)
	s.Require().NoError(err)
	s.False(out.Complete)
	s.Nil(out.Preview)
}

func (s *StatsStepSuite) TestUnknownActionIsInternal() {
	err := s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionFulfill})
	s.Error(err)
}

func TestStatsStepSuite(t *testing.T) {
	suite.Run(t, new(StatsStepSuite))
}
