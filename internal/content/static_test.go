package content_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberfell/character-builder/internal/content"
	"github.com/emberfell/character-builder/internal/domain/compendium"
	"github.com/emberfell/character-builder/internal/domain/shared"
	berrors "github.com/emberfell/character-builder/internal/errors"
)

func gearItem(ref, name string, silver int) *compendium.Item {
	return &compendium.Item{
		Ref:      ref,
		Name:     name,
		Category: compendium.CategoryGear,
		Cost:     &compendium.Currency{Silver: silver},
	}
}

func TestStaticClientGetItem(t *testing.T) {
	client := content.NewStaticClient(gearItem("gear-rope", "Hemp Rope", 5))
	ctx := context.Background()

	item, err := client.GetItem(ctx, "gear-rope")
	require.NoError(t, err)
	assert.Equal(t, "Hemp Rope", item.Name)

	_, err = client.GetItem(ctx, "gear-missing")
	assert.True(t, berrors.IsNotFound(err))

	_, err = client.GetItem(ctx, "")
	assert.True(t, berrors.IsInvalidArgument(err))
}

func TestStaticClientListCategory(t *testing.T) {
	client := content.NewStaticClient(
		gearItem("gear-rope", "Hemp Rope", 5),
		gearItem("gear-longknife", "Longknife", 40),
		gearItem("gear-greatshield", "Greatshield", 120),
		&compendium.Item{Ref: "spell-ember-dart", Name: "Ember Dart", Category: compendium.CategorySpell},
	)
	ctx := context.Background()

	summaries, err := client.ListCategory(ctx, compendium.CategoryGear, nil)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	// Sorted by name
	assert.Equal(t, "Greatshield", summaries[0].Name)
	assert.Equal(t, "Hemp Rope", summaries[1].Name)
	assert.Equal(t, "Longknife", summaries[2].Name)
	assert.InDelta(t, 120, summaries[0].CostUnits, 0.001)

	summaries, err = client.ListCategory(ctx, compendium.CategoryGear, &content.Filters{MaxCostUnits: 50})
	require.NoError(t, err)
	assert.Len(t, summaries, 2)

	summaries, err = client.ListCategory(ctx, compendium.CategoryGear, &content.Filters{Refs: []string{"gear-rope"}})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "gear-rope", summaries[0].Ref)
}

func TestStaticClientProjectCharacter(t *testing.T) {
	client := content.NewStaticClient()
	ctx := context.Background()

	derived, err := client.ProjectCharacter(ctx, &compendium.ProjectionInput{
		Stats: map[shared.StatKey]int{
			shared.StatMight:     6,
			shared.StatReason:    4,
			shared.StatDexterity: 5,
		},
		TrainedSkills: []shared.SkillKey{shared.SkillAthletics},
	})
	require.NoError(t, err)
	assert.Equal(t, 16, derived.HP)
	assert.Equal(t, 8, derived.Mana)
	assert.Equal(t, 6, derived.Speed)
	assert.Equal(t, 12, derived.SkillDifficulties[shared.SkillAthletics])
	assert.Equal(t, 16, derived.SkillDifficulties[shared.SkillStealth])
	assert.Equal(t, 10, derived.SaveDifficulties[shared.StatMight])

	_, err = client.ProjectCharacter(ctx, nil)
	assert.Error(t, err)
}
