package validation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/emberfell/character-builder/internal/content"
	"github.com/emberfell/character-builder/internal/domain/character"
	"github.com/emberfell/character-builder/internal/domain/compendium"
	"github.com/emberfell/character-builder/internal/domain/shared"
	"github.com/emberfell/character-builder/internal/errors"
	"github.com/emberfell/character-builder/internal/state"
)

// EngineConfig wires an Engine.
type EngineConfig struct {
	// Content is optional. Without it, prerequisite checks degrade to
	// no-ops and selection validation skips item lookups.
	Content content.Client
	Logger  *slog.Logger
}

// Engine evaluates rules, step completion, and selection legality against a
// builder state. It holds no per-session state; the same engine serves every
// session. Results that need item lookups are memoized per state lineage and
// version, so sessions never see each other's verdicts.
type Engine struct {
	content content.Client
	log     *slog.Logger

	cacheMu sync.Mutex
	cache   map[cacheKey]cacheEntry
}

type cacheKey struct {
	method  string
	stateID uint64
	arg     string
}

type cacheEntry struct {
	version uint64
	result  Result
}

func NewEngine(cfg *EngineConfig) *Engine {
	if cfg == nil {
		cfg = &EngineConfig{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		content: cfg.Content,
		log:     logger,
		cache:   make(map[cacheKey]cacheEntry),
	}
}

// ValidateState runs the given rules against the state. Unknown rule types
// are wiring bugs and surface as internal errors, not findings.
func (e *Engine) ValidateState(ctx context.Context, st *character.State, rules []Rule) (Result, error) {
	result := Result{Valid: true}
	for _, rule := range rules {
		fn, ok := ruleRegistry[rule.Type]
		if !ok {
			return Result{}, errors.Internalf("no rule registered for type '%s'", rule.Type)
		}
		issue, warn := fn(e, ctx, st, rule)
		if issue == nil {
			continue
		}
		if warn {
			result.addWarning(*issue)
		} else {
			result.addError(*issue)
		}
	}
	return result, nil
}

// StepComplete reports whether one step is done. The rules here are the
// authoritative per-step fallback; they depend on state alone so the state
// manager can recompute completion on every commit.
func (e *Engine) StepComplete(step character.StepID, st *character.State) bool {
	switch step {
	case character.StepAncestry:
		return st.SelectedAncestry != nil
	case character.StepClass:
		return st.SelectedClass != nil && e.skillChoicesSatisfied(st)
	case character.StepStats:
		return e.statsComplete(st)
	case character.StepSpells:
		// No spell limit exists until a class is chosen, so the step
		// cannot be done before one. A non-caster class leaves the limit
		// at zero and is trivially done; otherwise every slot must be
		// filled, exactly.
		if st.SelectedClass == nil {
			return false
		}
		return st.SpellLimit == 0 || len(st.Spells) == st.SpellLimit
	case character.StepPerks, character.StepStartingPack:
		return true
	case character.StepGear:
		return st.GearCostSpent >= 0
	default:
		return false
	}
}

func (e *Engine) statsComplete(st *character.State) bool {
	if st.SelectedArrayID == nil {
		return false
	}
	if st.AssignedStatCount() < shared.StatCount {
		return false
	}
	// Every granted bonus slot must be placed.
	return len(st.AppliedBonuses) >= totalBonusSlots(st)
}

func totalBonusSlots(st *character.State) int {
	n := 0
	for _, eff := range st.PerkEffects {
		if eff.Kind == character.EffectBonus {
			n++
		}
	}
	return n
}

// skillChoicesSatisfied walks the class's choice groups. Guaranteed skills
// never count toward a group; an empty pool means any skill qualifies.
func (e *Engine) skillChoicesSatisfied(st *character.State) bool {
	if st.SkillGrant == nil {
		return true
	}
	guaranteed := make(map[shared.SkillKey]struct{}, len(st.SkillGrant.Guaranteed))
	for _, sk := range st.SkillGrant.Guaranteed {
		guaranteed[sk] = struct{}{}
	}
	for _, choice := range st.SkillGrant.Choices {
		pool := choice.Pool
		if len(pool) == 0 {
			pool = shared.AllSkills
		}
		inPool := make(map[shared.SkillKey]struct{}, len(pool))
		for _, sk := range pool {
			inPool[sk] = struct{}{}
		}
		selected := 0
		for _, sk := range st.Skills {
			if _, g := guaranteed[sk]; g {
				continue
			}
			if _, ok := inPool[sk]; ok {
				selected++
			}
		}
		if selected < choice.Count {
			return false
		}
	}
	return true
}

// ValidateStepPrerequisites gates step navigation. The builder is
// deliberately permissive: every step is reachable at any time, and gaps
// surface through completion instead of locked doors.
func (e *Engine) ValidateStepPrerequisites(step character.StepID, st *character.State) bool {
	return character.ValidStep(step)
}

// ValidateSelection checks whether adding an item to the state is sensible:
// duplicates are errors, budget overruns and unmet prerequisites are
// warnings. The result is memoized per (item, state lineage, version).
func (e *Engine) ValidateSelection(ctx context.Context, st *character.State, item *compendium.Item) Result {
	if item == nil {
		r := Result{}
		r.addError(Issue{Rule: RuleValidIdentifier, Message: "no item given"})
		return r
	}

	key := cacheKey{method: "ValidateSelection", stateID: st.ID, arg: item.Ref}
	if cached, ok := e.cacheGet(key, st.Version); ok {
		return cached
	}

	result := Result{Valid: true}
	if e.ownsItem(st, item) {
		result.addError(Issue{
			Rule:    RuleNoDuplicates,
			Message: fmt.Sprintf("'%s' is already selected", item.Ref),
		})
	}

	if item.Category == compendium.CategoryGear && item.Cost != nil {
		budgets := state.CalculateBudgets(st)
		if st.GearCostSpent+item.Cost.Units() > budgets.Gear.Total {
			result.addWarning(Issue{
				Rule:    RuleWithinBudget,
				Path:    state.PathGearCostSpent,
				Message: fmt.Sprintf("adding '%s' exceeds the gear budget", item.Ref),
			})
		}
	}
	if item.Category == compendium.CategorySpell && st.SpellLimit > 0 && len(st.Spells) >= st.SpellLimit {
		result.addError(Issue{
			Rule:    RuleWithinNumericLimit,
			Path:    state.PathSpells,
			Message: fmt.Sprintf("spell limit %d reached", st.SpellLimit),
		})
	}

	if missing := e.missingPrereqList(st, item.Prerequisites); len(missing) > 0 {
		result.addWarning(Issue{
			Rule:    RulePrerequisitesMet,
			Message: fmt.Sprintf("prerequisites unmet: %v", missing),
		})
	}

	e.cachePut(key, st.Version, result)
	return result
}

// GetBudgetStatus exposes one budget view.
func (e *Engine) GetBudgetStatus(st *character.State, kind character.BudgetKind) character.Budget {
	budgets := state.CalculateBudgets(st)
	switch kind {
	case character.BudgetSpells:
		return budgets.Spells
	case character.BudgetGear:
		return budgets.Gear
	default:
		return budgets.Stats
	}
}

// missingPrereqs resolves a perk and reports its unmet prerequisites.
// Lookup failures degrade to "no findings"; validation never blocks on the
// content source being down.
func (e *Engine) missingPrereqs(ctx context.Context, st *character.State, ref string) []string {
	if e.content == nil {
		return nil
	}
	item, err := e.content.GetItem(ctx, ref)
	if err != nil {
		if !errors.IsNotFound(err) {
			e.log.Warn("prerequisite lookup failed", "ref", ref, "error", err)
		}
		return nil
	}
	return e.missingPrereqList(st, item.Prerequisites)
}

func (e *Engine) missingPrereqList(st *character.State, prereqs []compendium.Prerequisite) []string {
	var missing []string
	for _, p := range prereqs {
		if !prereqMet(st, p) {
			missing = append(missing, p.String())
		}
	}
	return missing
}

func prereqMet(st *character.State, p compendium.Prerequisite) bool {
	switch p.Kind {
	case compendium.PrereqStat:
		v := st.AssignedStats[p.Stat]
		return v != nil && *v >= p.Min
	case compendium.PrereqSkill:
		return st.HasSkill(p.Skill)
	case compendium.PrereqSpell:
		return st.HasSpell(p.Ref)
	case compendium.PrereqPerk:
		return st.HasPerk(p.Ref) || st.HasClassPerk(p.Ref)
	default:
		return true
	}
}

func (e *Engine) ownsItem(st *character.State, item *compendium.Item) bool {
	switch item.Category {
	case compendium.CategorySpell:
		return st.HasSpell(item.Ref)
	case compendium.CategoryPerk:
		return st.HasPerk(item.Ref) || st.HasClassPerk(item.Ref)
	case compendium.CategoryGear:
		// Gear stacks; duplicates are legitimate purchases.
		return false
	default:
		return false
	}
}

func (e *Engine) cacheGet(key cacheKey, version uint64) (Result, bool) {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	entry, ok := e.cache[key]
	if !ok || entry.version != version {
		delete(e.cache, key)
		return Result{}, false
	}
	return entry.result, true
}

func (e *Engine) cachePut(key cacheKey, version uint64, result Result) {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	e.cache[key] = cacheEntry{version: version, result: result}
}
