package steps_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/emberfell/character-builder/internal/content"
	mockcontent "github.com/emberfell/character-builder/internal/content/mock"
	"github.com/emberfell/character-builder/internal/domain/compendium"
	"github.com/emberfell/character-builder/internal/random"
	"github.com/emberfell/character-builder/internal/state"
	"github.com/emberfell/character-builder/internal/steps"
	"github.com/emberfell/character-builder/internal/validation"
)

type SpellsStepSuite struct {
	suite.Suite
	ctx     context.Context
	manager *steps.SpellsManager
	sess    *steps.Session
}

func (s *SpellsStepSuite) SetupTest() {
	s.ctx = context.Background()
	client := content.NewStaticClient(
		&compendium.Item{
			Ref: "ancestry-emberkin", Name: "Emberkin", Category: compendium.CategoryAncestry,
			Features: []compendium.Feature{
				{Name: "Ember Soul", RequiredSpells: []string{"spell-ember-dart"}},
			},
		},
		&compendium.Item{Ref: "class-mystic", Name: "Mystic", Category: compendium.CategoryClass},
		&compendium.Item{Ref: "spell-ember-dart", Name: "Ember Dart", Category: compendium.CategorySpell},
		&compendium.Item{Ref: "spell-frost-bind", Name: "Frost Bind", Category: compendium.CategorySpell},
		&compendium.Item{Ref: "spell-gale-step", Name: "Gale Step", Category: compendium.CategorySpell},
		&compendium.Item{Ref: "spell-stone-ward", Name: "Stone Ward", Category: compendium.CategorySpell},
	)
	engine := validation.NewEngine(&validation.EngineConfig{Content: client})
	s.manager = steps.NewSpellsManager(&steps.SpellsConfig{
		Content: client,
		Engine:  engine,
		Random:  random.NewSeededSource(7),
	})
	s.sess = newTestSession(engine)

	s.Require().True(s.sess.State.UpdateMultiple(map[state.Path]any{
		state.PathSelectedAncestry: "ancestry-emberkin",
		state.PathSelectedClass:    "class-mystic",
		state.PathSpellLimit:       3,
	}, state.UpdateOpts{}))
	s.manager.Activate(s.ctx, s.sess)
}

func (s *SpellsStepSuite) TestActivateInjectsRequiredSpells() {
	st := s.sess.State.GetCurrentState()
	s.True(st.HasSpell("spell-ember-dart"))
}

func (s *SpellsStepSuite) TestRequiredSpellCannotBeRemoved() {
	err := s.manager.HandleAction(s.ctx, s.sess, steps.Action{
		Kind: steps.ActionRemove, Ref: "spell-ember-dart",
	})
	s.Error(err)
	s.True(s.sess.State.GetCurrentState().HasSpell("spell-ember-dart"))
}

func (s *SpellsStepSuite) TestAddAndRemoveFreeSpell() {
	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{
		Kind: steps.ActionAdd, Ref: "spell-frost-bind",
	}))
	s.True(s.sess.State.GetCurrentState().HasSpell("spell-frost-bind"))

	s.Error(s.manager.HandleAction(s.ctx, s.sess, steps.Action{
		Kind: steps.ActionAdd, Ref: "spell-frost-bind",
	}), "duplicates rejected")

	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{
		Kind: steps.ActionRemove, Ref: "spell-frost-bind",
	}))
	s.False(s.sess.State.GetCurrentState().HasSpell("spell-frost-bind"))
}

func (s *SpellsStepSuite) TestLimitEnforced() {
	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionAdd, Ref: "spell-frost-bind"}))
	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionAdd, Ref: "spell-gale-step"}))
	s.Error(s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionAdd, Ref: "spell-stone-ward"}))
}

func (s *SpellsStepSuite) TestRandomizeFillsFreeSlotsOnly() {
	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionRandomize}))

	st := s.sess.State.GetCurrentState()
	s.Len(st.Spells, 3)
	s.True(st.HasSpell("spell-ember-dart"), "required pick survives randomize")
	s.True(s.manager.IsComplete(st))
}

func (s *SpellsStepSuite) TestClearKeepsRequired() {
	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionRandomize}))
	s.Require().NoError(s.manager.HandleAction(s.ctx, s.sess, steps.Action{Kind: steps.ActionClear}))

	st := s.sess.State.GetCurrentState()
	s.Equal([]string{"spell-ember-dart"}, st.Spells)
}

func (s *SpellsStepSuite) TestNonCasterHasNothingToDo() {
	sess := newTestSession(validation.NewEngine(nil))
	s.Require().True(sess.State.UpdateState(
		state.PathSelectedClass, "class-brigand", state.UpdateOpts{}))
	s.Error(s.manager.HandleAction(s.ctx, sess, steps.Action{
		Kind: steps.ActionAdd, Ref: "spell-frost-bind",
	}))
	s.True(s.manager.IsComplete(sess.State.GetCurrentState()))
}

func (s *SpellsStepSuite) TestStaleContinuationDiscarded() {
	ctrl := gomock.NewController(s.T())
	client := mockcontent.NewMockClient(ctrl)
	engine := validation.NewEngine(&validation.EngineConfig{Content: client})
	manager := steps.NewSpellsManager(&steps.SpellsConfig{
		Content: client,
		Engine:  engine,
		Random:  random.NewSeededSource(3),
	})
	sess := newTestSession(engine)
	s.Require().True(sess.State.UpdateState(state.PathSpellLimit, 2, state.UpdateOpts{}))

	// The session resets while the lookup is in flight; the add must
	// discard its result instead of committing into the fresh state.
	client.EXPECT().GetItem(gomock.Any(), "spell-frost-bind").DoAndReturn(
		func(context.Context, string) (*compendium.Item, error) {
			sess.BumpGeneration()
			return &compendium.Item{
				Ref: "spell-frost-bind", Name: "Frost Bind", Category: compendium.CategorySpell,
			}, nil
		})

	err := manager.HandleAction(s.ctx, sess, steps.Action{
		Kind: steps.ActionAdd, Ref: "spell-frost-bind",
	})
	s.Error(err)
	s.Empty(sess.State.GetCurrentState().Spells)
}

func (s *SpellsStepSuite) TestNotCompleteBeforeClass() {
	sess := newTestSession(validation.NewEngine(nil))
	s.False(s.manager.IsComplete(sess.State.GetCurrentState()))
}

func TestSpellsStepSuite(t *testing.T) {
	suite.Run(t, new(SpellsStepSuite))
}
