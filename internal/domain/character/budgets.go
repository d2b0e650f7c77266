package character

// DefaultGearBudget is the gear budget, in smallest currency units, used when
// no starting pack is selected.
const DefaultGearBudget = 300.0

// BudgetKind names a tracked budget.
type BudgetKind string

const (
	BudgetStats  BudgetKind = "stats"
	BudgetSpells BudgetKind = "spells"
	BudgetGear   BudgetKind = "gear"
)

// Budget is a (total, spent, remaining) triple. IsOver flags a soft overrun;
// overruns warn, they never block.
type Budget struct {
	Total     float64 `json:"total"`
	Spent     float64 `json:"spent"`
	Remaining float64 `json:"remaining"`
	IsOver    bool    `json:"is_over"`
}

// Budgets groups the three tracked budgets.
type Budgets struct {
	Stats  Budget `json:"stats"`
	Spells Budget `json:"spells"`
	Gear   Budget `json:"gear"`
}

// NewBudget derives the triple from a total and spent amount.
func NewBudget(total, spent float64) Budget {
	return Budget{
		Total:     total,
		Spent:     spent,
		Remaining: total - spent,
		IsOver:    spent > total,
	}
}
