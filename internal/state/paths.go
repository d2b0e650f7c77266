package state

import (
	"strings"

	"github.com/emberfell/character-builder/internal/domain/character"
	"github.com/emberfell/character-builder/internal/domain/compendium"
	"github.com/emberfell/character-builder/internal/domain/shared"
	"github.com/emberfell/character-builder/internal/errors"
)

// Path names a writable slot of the builder state. The set is closed: writes
// to unknown paths fail, and each path carries its own validation predicate.
type Path string

const (
	PathCurrentStep          Path = "currentStep"
	PathSelectedAncestry     Path = "selectedAncestry"
	PathSelectedClass        Path = "selectedClass"
	PathSelectedStartingPack Path = "selectedStartingPack"
	PathSelectedArrayID      Path = "selectedArrayId"
	PathUnassignedValues     Path = "unassignedValues"
	PathSelectedValue        Path = "selectedValue"
	PathAppliedBonuses       Path = "appliedBonuses"
	PathBonusOrder           Path = "bonusOrder"
	PathSkills               Path = "skills"
	PathSkillSelections      Path = "skillSelections"
	PathSkillGrant           Path = "skillGrant"
	PathSpells               Path = "spells"
	PathSpellLimit           Path = "spellLimit"
	PathPerks                Path = "perks"
	PathClassPerks           Path = "classPerks"
	PathPerkGrants           Path = "perkGrants"
	PathPerkEffects          Path = "perkEffects"
	PathGear                 Path = "gear"
	PathGearCostSpent        Path = "gearCostSpent"
	PathGearBudget           Path = "gearBudget"
	PathPreviewUUID          Path = "previewUuid"

	// PathWildcard subscribes a listener to every committed mutation.
	PathWildcard Path = "*"

	// assignedStatPrefix + stat key addresses one stat slot.
	assignedStatPrefix = "assignedStats."
)

// AssignedStatPath returns the path for one stat slot.
func AssignedStatPath(key shared.StatKey) Path {
	return Path(assignedStatPrefix + string(key))
}

type applyFunc func(st *character.State, value any) error

// resolvePath maps a path to its apply function, which both validates the
// value against the path's predicate and writes it.
func resolvePath(path Path) (applyFunc, error) {
	if strings.HasPrefix(string(path), assignedStatPrefix) {
		key := shared.StatKey(strings.TrimPrefix(string(path), assignedStatPrefix))
		if !shared.ValidStat(key) {
			return nil, errors.Validationf("unknown stat key '%s'", key)
		}
		return func(st *character.State, value any) error {
			v, err := coerceNullableInt(path, value)
			if err != nil {
				return err
			}
			if v != nil && (*v < shared.StatValueMin || *v > shared.StatValueMax) {
				return errors.Validationf("stat value %d out of range [%d,%d]", *v, shared.StatValueMin, shared.StatValueMax)
			}
			st.AssignedStats[key] = v
			return nil
		}, nil
	}

	apply, ok := pathTable[path]
	if !ok {
		return nil, errors.Validationf("unknown state path '%s'", path)
	}
	return apply, nil
}

var pathTable = map[Path]applyFunc{
	PathCurrentStep: func(st *character.State, value any) error {
		var step character.StepID
		switch v := value.(type) {
		case character.StepID:
			step = v
		case string:
			step = character.StepID(v)
		default:
			return errors.Validationf("currentStep expects a step id, got %T", value)
		}
		if !character.ValidStep(step) {
			return errors.Validationf("'%s' is not a configured step", step)
		}
		st.CurrentStep = step
		return nil
	},
	PathSelectedAncestry: func(st *character.State, value any) error {
		v, err := coerceSelection(PathSelectedAncestry, value)
		if err != nil {
			return err
		}
		st.SelectedAncestry = v
		return nil
	},
	PathSelectedClass: func(st *character.State, value any) error {
		v, err := coerceSelection(PathSelectedClass, value)
		if err != nil {
			return err
		}
		st.SelectedClass = v
		return nil
	},
	PathSelectedStartingPack: func(st *character.State, value any) error {
		v, err := coerceSelection(PathSelectedStartingPack, value)
		if err != nil {
			return err
		}
		st.SelectedStartingPack = v
		return nil
	},
	PathSelectedArrayID: func(st *character.State, value any) error {
		v, err := coerceSelection(PathSelectedArrayID, value)
		if err != nil {
			return err
		}
		if v != nil && compendium.ArrayByID(*v) == nil {
			return errors.Validationf("unknown stat array '%s'", *v)
		}
		st.SelectedArrayID = v
		return nil
	},
	PathUnassignedValues: func(st *character.State, value any) error {
		v, ok := value.([]int)
		if !ok {
			return errors.Validationf("unassignedValues expects []int, got %T", value)
		}
		st.UnassignedValues = append([]int(nil), v...)
		return nil
	},
	PathSelectedValue: func(st *character.State, value any) error {
		if value == nil {
			st.SelectedValue = nil
			return nil
		}
		v, ok := value.(*character.PoolPick)
		if !ok {
			return errors.Validationf("selectedValue expects *PoolPick, got %T", value)
		}
		st.SelectedValue = v
		return nil
	},
	PathAppliedBonuses: func(st *character.State, value any) error {
		v, ok := value.(map[string]character.StatBonus)
		if !ok {
			return errors.Validationf("appliedBonuses expects a bonus map, got %T", value)
		}
		st.AppliedBonuses = v
		return nil
	},
	PathBonusOrder: func(st *character.State, value any) error {
		v, ok := value.([]string)
		if !ok {
			return errors.Validationf("bonusOrder expects []string, got %T", value)
		}
		st.BonusOrder = append([]string(nil), v...)
		return nil
	},
	PathSkills: func(st *character.State, value any) error {
		v, ok := value.([]shared.SkillKey)
		if !ok {
			return errors.Validationf("skills expects a skill list, got %T", value)
		}
		st.Skills = append([]shared.SkillKey(nil), v...)
		return nil
	},
	PathSkillSelections: func(st *character.State, value any) error {
		v, ok := value.(map[int][]shared.SkillKey)
		if !ok {
			return errors.Validationf("skillSelections expects a selection map, got %T", value)
		}
		st.SkillSelections = v
		return nil
	},
	PathSkillGrant: func(st *character.State, value any) error {
		if value == nil {
			st.SkillGrant = nil
			return nil
		}
		v, ok := value.(*compendium.SkillGrant)
		if !ok {
			return errors.Validationf("skillGrant expects *SkillGrant, got %T", value)
		}
		st.SkillGrant = v
		return nil
	},
	PathSpells: func(st *character.State, value any) error {
		return setStringList(&st.Spells, "spells", value)
	},
	PathSpellLimit: func(st *character.State, value any) error {
		v, ok := value.(int)
		if !ok || v < 0 {
			return errors.Validationf("spellLimit expects a non-negative int, got %v", value)
		}
		st.SpellLimit = v
		return nil
	},
	PathPerks: func(st *character.State, value any) error {
		return setStringList(&st.Perks, "perks", value)
	},
	PathClassPerks: func(st *character.State, value any) error {
		return setStringList(&st.ClassPerks, "classPerks", value)
	},
	PathPerkGrants: func(st *character.State, value any) error {
		v, ok := value.([]character.Grant)
		if !ok {
			return errors.Validationf("perkGrants expects a grant list, got %T", value)
		}
		for i := range v {
			if v[i].Fulfilled != nil && !v[i].Permits(*v[i].Fulfilled) {
				return errors.Validationf("grant '%s' fulfilled by disallowed perk '%s'", v[i].ID, *v[i].Fulfilled)
			}
		}
		st.PerkGrants = v
		return nil
	},
	PathPerkEffects: func(st *character.State, value any) error {
		v, ok := value.(map[string]character.PerkEffect)
		if !ok {
			return errors.Validationf("perkEffects expects an effect map, got %T", value)
		}
		st.PerkEffects = v
		return nil
	},
	PathGear: func(st *character.State, value any) error {
		return setStringList(&st.Gear, "gear", value)
	},
	PathGearCostSpent: func(st *character.State, value any) error {
		v, err := coerceFloat(value)
		if err != nil {
			return errors.Validationf("gearCostSpent expects a number, got %T", value)
		}
		if v < 0 {
			return errors.Validationf("gearCostSpent cannot be negative, got %v", v)
		}
		st.GearCostSpent = v
		return nil
	},
	PathGearBudget: func(st *character.State, value any) error {
		v, err := coerceFloat(value)
		if err != nil {
			return errors.Validationf("gearBudget expects a number, got %T", value)
		}
		if v < 0 {
			return errors.Validationf("gearBudget cannot be negative, got %v", v)
		}
		st.GearBudget = v
		return nil
	},
	PathPreviewUUID: func(st *character.State, value any) error {
		v, err := coerceSelection(PathPreviewUUID, value)
		if err != nil {
			return err
		}
		st.PreviewUUID = v
		return nil
	},
}

// coerceSelection accepts nil, a string, or a *string. Selections are either
// null or a non-empty identifier; the empty string is rejected.
func coerceSelection(path Path, value any) (*string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *string:
		if v == nil {
			return nil, nil
		}
		if *v == "" {
			return nil, errors.Validationf("%s must be null or a non-empty string", path)
		}
		c := *v
		return &c, nil
	case string:
		if v == "" {
			return nil, errors.Validationf("%s must be null or a non-empty string", path)
		}
		return &v, nil
	default:
		return nil, errors.Validationf("%s expects a string or null, got %T", path, value)
	}
}

func coerceNullableInt(path Path, value any) (*int, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *int:
		if v == nil {
			return nil, nil
		}
		c := *v
		return &c, nil
	case int:
		return &v, nil
	default:
		return nil, errors.Validationf("%s expects an int or null, got %T", path, value)
	}
}

func coerceFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, errors.Validationf("expected a number, got %T", value)
	}
}

func setStringList(target *[]string, name string, value any) error {
	v, ok := value.([]string)
	if !ok {
		return errors.Validationf("%s expects a string list, got %T", name, value)
	}
	*target = append([]string(nil), v...)
	return nil
}
