package main

import (
	"github.com/emberfell/character-builder/internal/content"
	"github.com/emberfell/character-builder/internal/domain/compendium"
	"github.com/emberfell/character-builder/internal/domain/shared"
)

// sampleClient returns a static compendium big enough to demo a full build.
func sampleClient() *content.StaticClient {
	return content.NewStaticClient(
		&compendium.Item{
			Ref:         "ancestry-emberkin",
			Name:        "Emberkin",
			Category:    compendium.CategoryAncestry,
			Description: "Descendants of the hearth-bound fey, quick to anger and quicker to laugh.",
			Features: []compendium.Feature{
				{
					Name:      "Heritage Talent",
					PerkGrant: &compendium.PerkGrantSpec{Amount: 1},
				},
				{
					Name:           "Ember Spark",
					RequiredSpells: []string{"spell-ember-dart"},
				},
			},
		},
		&compendium.Item{
			Ref:         "ancestry-duskborn",
			Name:        "Duskborn",
			Category:    compendium.CategoryAncestry,
			Description: "Raised in the twilight marches, at home in half-light.",
			Features: []compendium.Feature{
				{
					Name:        "Twilight Gift",
					PerkGrant:   &compendium.PerkGrantSpec{Amount: 1, AllowedPerks: []string{"perk-keen-eye", "perk-fleet-foot"}},
					StatBonuses: []compendium.BonusSlotSpec{{Amount: 1, MaxBase: 5}},
				},
			},
		},
		&compendium.Item{
			Ref:         "class-warden",
			Name:        "Warden",
			Category:    compendium.CategoryClass,
			Description: "A keeper of the old boundaries, part scout, part spellbinder.",
			SpellsKnown: 2,
			SkillGrant: &compendium.SkillGrant{
				Guaranteed: []shared.SkillKey{shared.SkillAthletics},
				Choices: []compendium.SkillChoice{
					{Pool: []shared.SkillKey{shared.SkillSurvival, shared.SkillPerception, shared.SkillStealth}, Count: 1},
				},
			},
			Features: []compendium.Feature{
				{
					Name:         "Warden's Oath",
					GrantedPerks: []string{"perk-iron-will"},
				},
			},
		},
		&compendium.Item{
			Ref:         "class-brigand",
			Name:        "Brigand",
			Category:    compendium.CategoryClass,
			Description: "No spells, no oaths, just quick hands and a quicker exit.",
			SkillGrant: &compendium.SkillGrant{
				Guaranteed: []shared.SkillKey{shared.SkillStealth},
				Choices: []compendium.SkillChoice{
					{Pool: nil, Count: 2},
				},
			},
		},
		&compendium.Item{Ref: "perk-iron-will", Name: "Iron Will", Category: compendium.CategoryPerk},
		&compendium.Item{Ref: "perk-fleet-foot", Name: "Fleet Foot", Category: compendium.CategoryPerk},
		&compendium.Item{
			Ref:           "perk-keen-eye",
			Name:          "Keen Eye",
			Category:      compendium.CategoryPerk,
			Prerequisites: []compendium.Prerequisite{{Kind: compendium.PrereqStat, Stat: shared.StatAwareness, Min: 4}},
		},
		&compendium.Item{Ref: "spell-ember-dart", Name: "Ember Dart", Category: compendium.CategorySpell},
		&compendium.Item{Ref: "spell-frost-bind", Name: "Frost Bind", Category: compendium.CategorySpell},
		&compendium.Item{Ref: "spell-gale-step", Name: "Gale Step", Category: compendium.CategorySpell},
		&compendium.Item{Ref: "gear-longknife", Name: "Longknife", Category: compendium.CategoryGear, Cost: &compendium.Currency{Silver: 40}},
		&compendium.Item{Ref: "gear-greatshield", Name: "Greatshield", Category: compendium.CategoryGear, Cost: &compendium.Currency{Gold: 1, Silver: 20}},
		&compendium.Item{Ref: "gear-rope", Name: "Hemp Rope", Category: compendium.CategoryGear, Cost: &compendium.Currency{Silver: 5}},
		&compendium.Item{Ref: "pack-wanderer", Name: "Wanderer's Pack", Category: compendium.CategoryStartingPack, Funds: &compendium.Currency{Gold: 3}, Contents: []string{"gear-rope"}},
	)
}
