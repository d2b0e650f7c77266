package testutils

import (
	"github.com/emberfell/character-builder/internal/content"
	"github.com/emberfell/character-builder/internal/domain/compendium"
	"github.com/emberfell/character-builder/internal/domain/shared"
)

// CreateTestAncestry creates an ancestry with one perk-grant trait.
func CreateTestAncestry(ref, name string) *compendium.Item {
	return &compendium.Item{
		Ref:      ref,
		Name:     name,
		Category: compendium.CategoryAncestry,
		Features: []compendium.Feature{
			{
				Name:      "Heritage Talent",
				PerkGrant: &compendium.PerkGrantSpec{Amount: 1},
			},
		},
	}
}

// CreateTestClass creates a casting class with a guaranteed skill, one
// choice group, and two level-1 spell slots.
func CreateTestClass(ref, name string) *compendium.Item {
	return &compendium.Item{
		Ref:         ref,
		Name:        name,
		Category:    compendium.CategoryClass,
		SpellsKnown: 2,
		SkillGrant: &compendium.SkillGrant{
			Guaranteed: []shared.SkillKey{shared.SkillAthletics},
			Choices: []compendium.SkillChoice{
				{Pool: []shared.SkillKey{shared.SkillSurvival, shared.SkillPerception, shared.SkillStealth}, Count: 1},
			},
		},
	}
}

// CreateTestPerk creates a plain perk with no choice or prerequisites.
func CreateTestPerk(ref, name string) *compendium.Item {
	return &compendium.Item{Ref: ref, Name: name, Category: compendium.CategoryPerk}
}

// CreateTestSpell creates a spell.
func CreateTestSpell(ref, name string) *compendium.Item {
	return &compendium.Item{Ref: ref, Name: name, Category: compendium.CategorySpell}
}

// CreateTestGear creates a gear item costing the given units.
func CreateTestGear(ref, name string, silver int) *compendium.Item {
	return &compendium.Item{
		Ref:      ref,
		Name:     name,
		Category: compendium.CategoryGear,
		Cost:     &compendium.Currency{Silver: silver},
	}
}

// CreateTestPack creates a starting pack with funds and contents.
func CreateTestPack(ref, name string, gold int, contents ...string) *compendium.Item {
	return &compendium.Item{
		Ref:      ref,
		Name:     name,
		Category: compendium.CategoryStartingPack,
		Funds:    &compendium.Currency{Gold: gold},
		Contents: contents,
	}
}

// FixtureClient returns a static content client loaded with a small but
// complete compendium: enough to run a whole build from ancestry to gear.
func FixtureClient() *content.StaticClient {
	return content.NewStaticClient(
		CreateTestAncestry("ancestry-emberkin", "Emberkin"),
		CreateTestAncestry("ancestry-duskborn", "Duskborn"),
		CreateTestClass("class-warden", "Warden"),
		CreateTestClass("class-sage", "Sage"),
		CreateTestPerk("perk-iron-will", "Iron Will"),
		CreateTestPerk("perk-fleet-foot", "Fleet Foot"),
		CreateTestPerk("perk-keen-eye", "Keen Eye"),
		CreateTestSpell("spell-ember-dart", "Ember Dart"),
		CreateTestSpell("spell-frost-bind", "Frost Bind"),
		CreateTestSpell("spell-gale-step", "Gale Step"),
		CreateTestSpell("spell-stone-ward", "Stone Ward"),
		CreateTestGear("gear-longknife", "Longknife", 40),
		CreateTestGear("gear-greatshield", "Greatshield", 120),
		CreateTestGear("gear-rope", "Hemp Rope", 5),
		CreateTestPack("pack-wanderer", "Wanderer's Pack", 3, "gear-rope"),
	)
}
