// Package compendium models the game content the builder consumes: ancestries,
// classes, perks, spells, gear, and starting packs. The host application owns
// the documents; this package is the shape they resolve into.
package compendium

import (
	"fmt"

	"github.com/emberfell/character-builder/internal/domain/shared"
)

// Category identifies a compendium document category.
type Category string

const (
	CategoryAncestry     Category = "ancestry"
	CategoryClass        Category = "class"
	CategoryPerk         Category = "perk"
	CategorySpell        Category = "spell"
	CategoryGear         Category = "gear"
	CategoryStartingPack Category = "starting-pack"
)

// Item is a resolved compendium document.
type Item struct {
	Ref         string   `json:"ref"`
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	Description string   `json:"description,omitempty"`

	// Ancestry and class items carry level-1 features.
	Features []Feature `json:"features,omitempty"`

	// Class items.
	SkillGrant  *SkillGrant `json:"skill_grant,omitempty"`
	SpellsKnown int         `json:"spells_known,omitempty"` // level-1 table; 0 for non-casters

	// Perk items.
	Prerequisites []Prerequisite `json:"prerequisites,omitempty"`
	Choice        *PerkChoice    `json:"choice,omitempty"`

	// Gear items.
	Cost *Currency `json:"cost,omitempty"`

	// Starting pack items.
	Funds    *Currency `json:"funds,omitempty"`
	Contents []string  `json:"contents,omitempty"` // gear refs included in the pack
}

// Feature is a level-1 ancestry trait or class feature.
type Feature struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// GrantedPerks are always granted, with no player choice involved.
	GrantedPerks []string `json:"granted_perks,omitempty"`

	// PerkGrant opens player-chosen perk slots.
	PerkGrant *PerkGrantSpec `json:"perk_grant,omitempty"`

	// RequiredSpells are known automatically and cannot be removed.
	RequiredSpells []string `json:"required_spells,omitempty"`

	// StatBonuses opens +1 stat bonus slots.
	StatBonuses []BonusSlotSpec `json:"stat_bonuses,omitempty"`
}

// PerkGrantSpec describes a feature granting Amount perk picks, optionally
// restricted to AllowedPerks. An empty AllowedPerks means any perk qualifies.
type PerkGrantSpec struct {
	Amount       int      `json:"amount"`
	AllowedPerks []string `json:"allowed_perks,omitempty"`
}

// BonusSlotSpec describes a +1 stat bonus slot. The bonus may only be applied
// to a stat whose base value is at most MaxBase.
type BonusSlotSpec struct {
	Amount  int `json:"amount"`
	MaxBase int `json:"max_base"`
}

// SkillGrant is a class's skill package: guaranteed trainings plus choice
// groups drawn from restricted pools.
type SkillGrant struct {
	Guaranteed []shared.SkillKey `json:"guaranteed,omitempty"`
	Choices    []SkillChoice     `json:"choices,omitempty"`
}

// SkillChoice is one choice group. An empty Pool means any skill.
type SkillChoice struct {
	Pool  []shared.SkillKey `json:"pool,omitempty"`
	Count int               `json:"count"`
}

// ChoicesNeeded is the total number of skill picks across all choice groups.
func (g *SkillGrant) ChoicesNeeded() int {
	if g == nil {
		return 0
	}
	total := 0
	for _, c := range g.Choices {
		total += c.Count
	}
	return total
}

// PrereqKind categorizes a perk prerequisite.
type PrereqKind string

const (
	PrereqStat  PrereqKind = "stat"
	PrereqSkill PrereqKind = "skill"
	PrereqSpell PrereqKind = "spell"
	PrereqPerk  PrereqKind = "perk"
)

// Prerequisite is a soft requirement on a perk. Unmet prerequisites warn, they
// never block selection.
type Prerequisite struct {
	Kind  PrereqKind      `json:"kind"`
	Stat  shared.StatKey  `json:"stat,omitempty"`
	Min   int             `json:"min,omitempty"`
	Skill shared.SkillKey `json:"skill,omitempty"`
	Ref   string          `json:"ref,omitempty"` // spell or perk ref
}

func (p Prerequisite) String() string {
	switch p.Kind {
	case PrereqStat:
		return fmt.Sprintf("%s >= %d", p.Stat, p.Min)
	case PrereqSkill:
		return fmt.Sprintf("trained in %s", p.Skill)
	default:
		return fmt.Sprintf("%s %s", p.Kind, p.Ref)
	}
}

// PerkChoiceKind categorizes the effect a perk's choice configuration grants.
type PerkChoiceKind string

const (
	PerkChoiceSkill     PerkChoiceKind = "skill"
	PerkChoiceSpell     PerkChoiceKind = "spell"
	PerkChoiceStatBonus PerkChoiceKind = "stat-bonus"
)

// PerkChoice is a perk's on-selection effect: a free skill training, a known
// spell, or a stat bonus slot.
type PerkChoice struct {
	Kind    PerkChoiceKind `json:"kind"`
	Options []string       `json:"options,omitempty"` // skill keys or spell refs; empty = any
	MaxBase int            `json:"max_base,omitempty"` // stat-bonus condition
}

// ItemSummary is the listing projection of an item, used to populate option
// lists without resolving full documents.
type ItemSummary struct {
	Ref       string   `json:"ref"`
	Name      string   `json:"name"`
	Category  Category `json:"category"`
	CostUnits float64  `json:"cost_units,omitempty"`
}
