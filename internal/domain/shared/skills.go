package shared

// SkillKey identifies a trainable skill.
type SkillKey string

const (
	SkillArcana       SkillKey = "arcana"
	SkillAthletics    SkillKey = "athletics"
	SkillDeception    SkillKey = "deception"
	SkillInsight      SkillKey = "insight"
	SkillIntimidation SkillKey = "intimidation"
	SkillLore         SkillKey = "lore"
	SkillMedicine     SkillKey = "medicine"
	SkillNature       SkillKey = "nature"
	SkillPerception   SkillKey = "perception"
	SkillStealth      SkillKey = "stealth"
	SkillSurvival     SkillKey = "survival"
	SkillThievery     SkillKey = "thievery"
)

// AllSkills is the full skill roster. An empty choice pool means "choose from
// any skill", which resolves to this list.
var AllSkills = []SkillKey{
	SkillArcana,
	SkillAthletics,
	SkillDeception,
	SkillInsight,
	SkillIntimidation,
	SkillLore,
	SkillMedicine,
	SkillNature,
	SkillPerception,
	SkillStealth,
	SkillSurvival,
	SkillThievery,
}

// ValidSkill reports whether key is part of the roster.
func ValidSkill(key SkillKey) bool {
	for _, k := range AllSkills {
		if k == key {
			return true
		}
	}
	return false
}
