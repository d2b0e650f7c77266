package character

// StepID identifies one page of the builder wizard.
type StepID string

const (
	StepAncestry     StepID = "ancestry"
	StepClass        StepID = "class"
	StepStats        StepID = "stats"
	StepSpells       StepID = "spells"
	StepPerks        StepID = "perks"
	StepStartingPack StepID = "starting-pack"
	StepGear         StepID = "gear"
)

// StepOrder is the wizard's fixed step sequence.
var StepOrder = []StepID{
	StepAncestry,
	StepClass,
	StepStats,
	StepSpells,
	StepPerks,
	StepStartingPack,
	StepGear,
}

// MandatorySteps must be complete before a character can be committed. The
// remaining steps are optional.
var MandatorySteps = []StepID{StepAncestry, StepClass, StepStats, StepSpells}

// ValidStep reports whether id names a configured step.
func ValidStep(id StepID) bool {
	return StepIndex(id) >= 0
}

// StepIndex returns the position of id in StepOrder, or -1.
func StepIndex(id StepID) int {
	for i, s := range StepOrder {
		if s == id {
			return i
		}
	}
	return -1
}

// NextStep returns the step after id, or "" at the end of the wizard.
func NextStep(id StepID) StepID {
	i := StepIndex(id)
	if i < 0 || i >= len(StepOrder)-1 {
		return ""
	}
	return StepOrder[i+1]
}

// PrevStep returns the step before id, or "" at the start of the wizard.
func PrevStep(id StepID) StepID {
	i := StepIndex(id)
	if i <= 0 {
		return ""
	}
	return StepOrder[i-1]
}

// IsMandatory reports whether id is a mandatory step.
func IsMandatory(id StepID) bool {
	for _, s := range MandatorySteps {
		if s == id {
			return true
		}
	}
	return false
}
