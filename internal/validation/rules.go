package validation

import (
	"context"
	"fmt"
	"sort"

	"github.com/emberfell/character-builder/internal/domain/character"
	"github.com/emberfell/character-builder/internal/domain/compendium"
	"github.com/emberfell/character-builder/internal/domain/shared"
	"github.com/emberfell/character-builder/internal/state"
)

// RuleType names a validation rule. The set is closed; configuring an
// unknown type is a wiring bug and fails loudly at evaluation.
type RuleType string

const (
	RuleRequired           RuleType = "required"
	RuleValidIdentifier    RuleType = "valid-identifier"
	RuleAllAssigned        RuleType = "all-assigned"
	RuleValuesFromArray    RuleType = "valid-values-from-array"
	RuleWithinNumericLimit RuleType = "within-numeric-limit"
	RuleWithinBudget       RuleType = "within-budget"
	RulePrerequisitesMet   RuleType = "prerequisites-met"
	RuleStepComplete       RuleType = "step-complete"
	RuleHasSelection       RuleType = "has-selection"
	RuleNoDuplicates       RuleType = "no-duplicates"
	RuleSkillsAssigned     RuleType = "skills-assigned"
	RulePerksSelected      RuleType = "perks-selected"
)

// Rule configures one check against the state.
type Rule struct {
	Type RuleType
	// Path selects the field the rule inspects, using the state path names.
	Path state.Path
	// Limit bounds list length for within-numeric-limit. A negative limit
	// means "use the limit stored on the state" (the spell cap).
	Limit int
	// Budget selects the budget for within-budget.
	Budget character.BudgetKind
	// Step selects the step for step-complete.
	Step character.StepID
	// Message overrides the default issue text.
	Message string
}

// Issue is a single finding. Warnings advise; errors invalidate.
type Issue struct {
	Rule    RuleType
	Path    state.Path
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s(%s): %s", i.Rule, i.Path, i.Message)
}

// Result aggregates findings for one validation pass.
type Result struct {
	Valid    bool
	Errors   []Issue
	Warnings []Issue
}

func (r *Result) addError(i Issue)   { r.Errors = append(r.Errors, i); r.Valid = false }
func (r *Result) addWarning(i Issue) { r.Warnings = append(r.Warnings, i) }

// ruleFunc evaluates one rule. A nil return means the rule passed; warn
// marks the issue advisory.
type ruleFunc func(e *Engine, ctx context.Context, st *character.State, rule Rule) (issue *Issue, warn bool)

var ruleRegistry = map[RuleType]ruleFunc{
	RuleRequired:           ruleRequired,
	RuleValidIdentifier:    ruleValidIdentifier,
	RuleAllAssigned:        ruleAllAssigned,
	RuleValuesFromArray:    ruleValuesFromArray,
	RuleWithinNumericLimit: ruleWithinNumericLimit,
	RuleWithinBudget:       ruleWithinBudget,
	RulePrerequisitesMet:   rulePrerequisitesMet,
	RuleStepComplete:       ruleStepComplete,
	RuleHasSelection:       ruleHasSelection,
	RuleNoDuplicates:       ruleNoDuplicates,
	RuleSkillsAssigned:     ruleSkillsAssigned,
	RulePerksSelected:      rulePerksSelected,
}

func ruleRequired(_ *Engine, _ context.Context, st *character.State, rule Rule) (*Issue, bool) {
	if selectionFor(st, rule.Path) == nil {
		return fail(rule, "selection is required"), false
	}
	return nil, false
}

func ruleValidIdentifier(_ *Engine, _ context.Context, st *character.State, rule Rule) (*Issue, bool) {
	sel := selectionFor(st, rule.Path)
	if sel != nil && *sel == "" {
		return fail(rule, "identifier must not be empty"), false
	}
	return nil, false
}

func ruleAllAssigned(_ *Engine, _ context.Context, st *character.State, rule Rule) (*Issue, bool) {
	if n := st.AssignedStatCount(); n < shared.StatCount {
		return fail(rule, fmt.Sprintf("%d of %d stats assigned", n, shared.StatCount)), false
	}
	return nil, false
}

// ruleValuesFromArray checks multiset conservation: the base values held in
// stat slots plus the unassigned pool (plus a held pick, if any) must equal
// the selected array. Applied bonuses are subtracted back out first.
func ruleValuesFromArray(_ *Engine, _ context.Context, st *character.State, rule Rule) (*Issue, bool) {
	if st.SelectedArrayID == nil {
		return nil, false
	}
	arr := compendium.ArrayByID(*st.SelectedArrayID)
	if arr == nil {
		return fail(rule, fmt.Sprintf("unknown array '%s'", *st.SelectedArrayID)), false
	}

	bonusByStat := make(map[shared.StatKey]int)
	for _, b := range st.AppliedBonuses {
		bonusByStat[b.Target] += b.Amount
	}

	var have []int
	for _, key := range shared.StatKeys {
		if v := st.AssignedStats[key]; v != nil {
			have = append(have, *v-bonusByStat[key])
		}
	}
	have = append(have, st.UnassignedValues...)
	if st.SelectedValue != nil {
		have = append(have, st.SelectedValue.Value)
	}

	want := append([]int(nil), arr.Values[:]...)
	sort.Ints(have)
	sort.Ints(want)
	if len(have) != len(want) {
		return fail(rule, "stat values do not reconcile with the chosen array"), false
	}
	for i := range want {
		if have[i] != want[i] {
			return fail(rule, "stat values do not reconcile with the chosen array"), false
		}
	}
	return nil, false
}

func ruleWithinNumericLimit(_ *Engine, _ context.Context, st *character.State, rule Rule) (*Issue, bool) {
	limit := rule.Limit
	if limit < 0 {
		limit = st.SpellLimit
	}
	n := len(listFor(st, rule.Path))
	if n > limit {
		return fail(rule, fmt.Sprintf("%d selections exceed limit %d", n, limit)), false
	}
	return nil, false
}

func ruleWithinBudget(_ *Engine, _ context.Context, st *character.State, rule Rule) (*Issue, bool) {
	budgets := state.CalculateBudgets(st)
	var b character.Budget
	switch rule.Budget {
	case character.BudgetSpells:
		b = budgets.Spells
	case character.BudgetGear:
		b = budgets.Gear
	default:
		b = budgets.Stats
	}
	if !b.IsOver {
		return nil, false
	}
	msg := fmt.Sprintf("%s budget exceeded by %v", rule.Budget, -b.Remaining)
	// Gear overflow is advisory; the spend is allowed to run over.
	if rule.Budget == character.BudgetGear {
		return fail(rule, msg), true
	}
	return fail(rule, msg), false
}

// rulePrerequisitesMet is always advisory. Missing prerequisite data on held
// perks surfaces as warnings so the table can house-rule past it.
func rulePrerequisitesMet(e *Engine, ctx context.Context, st *character.State, rule Rule) (*Issue, bool) {
	if e == nil || e.content == nil {
		return nil, false
	}
	for _, ref := range st.Perks {
		missing := e.missingPrereqs(ctx, st, ref)
		if len(missing) > 0 {
			return fail(rule, fmt.Sprintf("perk '%s' prerequisites unmet: %v", ref, missing)), true
		}
	}
	return nil, false
}

func ruleStepComplete(e *Engine, _ context.Context, st *character.State, rule Rule) (*Issue, bool) {
	if !e.StepComplete(rule.Step, st) {
		return fail(rule, fmt.Sprintf("step '%s' is incomplete", rule.Step)), false
	}
	return nil, false
}

func ruleHasSelection(_ *Engine, _ context.Context, st *character.State, rule Rule) (*Issue, bool) {
	if len(listFor(st, rule.Path)) == 0 {
		return fail(rule, "at least one selection is required"), false
	}
	return nil, false
}

func ruleNoDuplicates(_ *Engine, _ context.Context, st *character.State, rule Rule) (*Issue, bool) {
	seen := make(map[string]struct{})
	for _, ref := range listFor(st, rule.Path) {
		if _, dup := seen[ref]; dup {
			return fail(rule, fmt.Sprintf("duplicate entry '%s'", ref)), false
		}
		seen[ref] = struct{}{}
	}
	return nil, false
}

func ruleSkillsAssigned(e *Engine, _ context.Context, st *character.State, rule Rule) (*Issue, bool) {
	if !e.skillChoicesSatisfied(st) {
		return fail(rule, "skill choice groups are not fully assigned"), false
	}
	return nil, false
}

func rulePerksSelected(_ *Engine, _ context.Context, st *character.State, rule Rule) (*Issue, bool) {
	for _, g := range st.PerkGrants {
		if g.Fulfilled == nil {
			return fail(rule, fmt.Sprintf("grant '%s' is unfulfilled", g.ID)), false
		}
	}
	return nil, false
}

func fail(rule Rule, msg string) *Issue {
	if rule.Message != "" {
		msg = rule.Message
	}
	return &Issue{Rule: rule.Type, Path: rule.Path, Message: msg}
}

func selectionFor(st *character.State, path state.Path) *string {
	switch path {
	case state.PathSelectedAncestry:
		return st.SelectedAncestry
	case state.PathSelectedClass:
		return st.SelectedClass
	case state.PathSelectedStartingPack:
		return st.SelectedStartingPack
	case state.PathSelectedArrayID:
		return st.SelectedArrayID
	default:
		return nil
	}
}

func listFor(st *character.State, path state.Path) []string {
	switch path {
	case state.PathSpells:
		return st.Spells
	case state.PathPerks:
		return st.Perks
	case state.PathClassPerks:
		return st.ClassPerks
	case state.PathGear:
		return st.Gear
	default:
		return nil
	}
}
