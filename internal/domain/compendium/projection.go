package compendium

import "github.com/emberfell/character-builder/internal/domain/shared"

// ProjectionInput is the throwaway character sent to the host's rules engine
// to read back derived numbers. The builder never computes these itself.
type ProjectionInput struct {
	Stats         map[shared.StatKey]int `json:"stats"`
	TrainedSkills []shared.SkillKey      `json:"trained_skills"`
	Items         []string               `json:"items"`
	Spells        []string               `json:"spells"`
}

// DerivedFields is what the rules engine computes for a projection.
type DerivedFields struct {
	HP                int                        `json:"hp"`
	Mana              int                        `json:"mana"`
	Speed             int                        `json:"speed"`
	InventoryCapacity int                        `json:"inventory_capacity"`
	SkillDifficulties map[shared.SkillKey]int    `json:"skill_difficulties"`
	SaveDifficulties  map[shared.StatKey]int     `json:"save_difficulties"`
}
