package character

import (
	"fmt"
	"sort"

	"github.com/emberfell/character-builder/internal/domain/shared"
)

// Grant is one discrete unit of perk-granting capacity from an ancestry trait
// or class level-1 feature. Each unit is independently fulfillable.
type Grant struct {
	ID           string   `json:"id"`
	Source       string   `json:"source"` // "ancestry" or "class"
	SourceName   string   `json:"source_name"`
	FeatureName  string   `json:"feature_name"`
	AllowedPerks []string `json:"allowed_perks,omitempty"`
	Fulfilled    *string  `json:"fulfilled,omitempty"`
}

// Restricted reports whether the grant limits which perks may fulfill it.
func (g *Grant) Restricted() bool {
	return len(g.AllowedPerks) > 0
}

// Permits reports whether ref may fulfill this grant. Unrestricted grants
// permit everything.
func (g *Grant) Permits(ref string) bool {
	if !g.Restricted() {
		return true
	}
	for _, p := range g.AllowedPerks {
		if p == ref {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the grant.
func (g Grant) Clone() Grant {
	out := g
	out.AllowedPerks = append([]string(nil), g.AllowedPerks...)
	out.Fulfilled = cloneStringPtr(g.Fulfilled)
	return out
}

// BuildGrants expands one granting feature into amount independent grants.
//
// When there are at least as many slots as allowed options the choice is moot,
// so every slot is pre-filled: slot i takes allowed[i], overflowing slots fall
// back to the first option.
func BuildGrants(source, sourceName, featureName string, amount int, allowed []string) []Grant {
	if amount <= 0 {
		return nil
	}
	autoFulfill := len(allowed) > 0 && amount >= len(allowed)

	grants := make([]Grant, 0, amount)
	for i := 0; i < amount; i++ {
		g := Grant{
			ID:           fmt.Sprintf("%s-%s-%d", source, featureName, i),
			Source:       source,
			SourceName:   sourceName,
			FeatureName:  featureName,
			AllowedPerks: append([]string(nil), allowed...),
		}
		if autoFulfill {
			pick := allowed[0]
			if i < len(allowed) {
				pick = allowed[i]
			}
			g.Fulfilled = &pick
		}
		grants = append(grants, g)
	}
	return grants
}

// SortGrants orders grants most-restrictive-first: restricted grants before
// unrestricted ones, fewer options first among restricted grants. The sort is
// stable, so unrestricted grants keep their insertion order.
func SortGrants(grants []Grant) {
	sort.SliceStable(grants, func(i, j int) bool {
		gi, gj := &grants[i], &grants[j]
		if gi.Restricted() != gj.Restricted() {
			return gi.Restricted()
		}
		if gi.Restricted() {
			return len(gi.AllowedPerks) < len(gj.AllowedPerks)
		}
		return false
	})
}

// ActiveGrant returns the first unfulfilled grant in sorted order, or nil when
// every grant is fulfilled. At most one grant is ever active.
func ActiveGrant(grants []Grant) *Grant {
	for i := range grants {
		if grants[i].Fulfilled == nil {
			return &grants[i]
		}
	}
	return nil
}

// GrantFulfilledBy returns the grant currently fulfilled by ref, or nil.
func GrantFulfilledBy(grants []Grant, ref string) *Grant {
	for i := range grants {
		if grants[i].Fulfilled != nil && *grants[i].Fulfilled == ref {
			return &grants[i]
		}
	}
	return nil
}

// MergeGrants carries fulfillment over from old grants to a freshly derived
// set. Fulfillment is matched positionally; if the grant count changed the
// new set is used as-is and prior fulfillment is lost, since those selections
// were tied to since-removed grant sources.
func MergeGrants(old, fresh []Grant) []Grant {
	if len(old) != len(fresh) {
		return fresh
	}
	for i := range fresh {
		if old[i].Fulfilled == nil {
			continue
		}
		if fresh[i].Permits(*old[i].Fulfilled) {
			fresh[i].Fulfilled = cloneStringPtr(old[i].Fulfilled)
		}
	}
	return fresh
}

// PerkEffectKind categorizes a materialized perk choice effect.
type PerkEffectKind string

const (
	EffectSpell PerkEffectKind = "spell"
	EffectSkill PerkEffectKind = "skill"
	EffectBonus PerkEffectKind = "stat-bonus"
)

// PerkEffect records exactly what a perk's choice configuration materialized
// into state, so removing the perk can reverse that effect and nothing else.
type PerkEffect struct {
	Kind    PerkEffectKind  `json:"kind"`
	Spell   string          `json:"spell,omitempty"`
	Skill   shared.SkillKey `json:"skill,omitempty"`
	BonusID string          `json:"bonus_id,omitempty"`
	// MaxBase is the stat-bonus placement condition: the slot only fits a
	// stat whose base value does not exceed it.
	MaxBase int `json:"max_base,omitempty"`
}
