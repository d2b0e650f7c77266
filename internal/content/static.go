package content

import (
	"context"
	"sort"
	"sync"

	"github.com/emberfell/character-builder/internal/domain/compendium"
	"github.com/emberfell/character-builder/internal/domain/shared"
	"github.com/emberfell/character-builder/internal/errors"
)

// StaticClient serves a fixed set of items from memory. It backs tests and the
// builderctl demo; in production the host document store sits behind Client.
type StaticClient struct {
	mu    sync.RWMutex
	items map[string]*compendium.Item
}

// NewStaticClient creates a StaticClient over the given items.
func NewStaticClient(items ...*compendium.Item) *StaticClient {
	c := &StaticClient{items: make(map[string]*compendium.Item, len(items))}
	for _, item := range items {
		c.items[item.Ref] = item
	}
	return c
}

// Add registers an item, replacing any existing one with the same ref.
func (c *StaticClient) Add(item *compendium.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[item.Ref] = item
}

// GetItem returns the item for ref or a not-found error.
func (c *StaticClient) GetItem(_ context.Context, ref string) (*compendium.Item, error) {
	if ref == "" {
		return nil, errors.InvalidArgument("item ref is required")
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[ref]
	if !ok {
		return nil, errors.NotFoundf("item '%s' not found", ref).WithMeta("ref", ref)
	}
	return item, nil
}

// ListCategory returns summaries for every item in category, sorted by name.
func (c *StaticClient) ListCategory(_ context.Context, category compendium.Category, filters *Filters) ([]compendium.ItemSummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	wanted := map[string]bool{}
	if filters != nil {
		for _, ref := range filters.Refs {
			wanted[ref] = true
		}
	}

	summaries := make([]compendium.ItemSummary, 0)
	for _, item := range c.items {
		if item.Category != category {
			continue
		}
		if len(wanted) > 0 && !wanted[item.Ref] {
			continue
		}
		cost := item.Cost.Units()
		if filters != nil && filters.MaxCostUnits > 0 && cost > filters.MaxCostUnits {
			continue
		}
		summaries = append(summaries, compendium.ItemSummary{
			Ref:       item.Ref,
			Name:      item.Name,
			Category:  item.Category,
			CostUnits: cost,
		})
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries, nil
}

// ProjectCharacter computes derived fields with the demo rules. The production
// client delegates to the host rules engine instead.
func (c *StaticClient) ProjectCharacter(_ context.Context, input *compendium.ProjectionInput) (*compendium.DerivedFields, error) {
	if input == nil {
		return nil, errors.InvalidArgument("projection input is required")
	}

	stat := func(k shared.StatKey) int {
		if v, ok := input.Stats[k]; ok {
			return v
		}
		return 0
	}

	derived := &compendium.DerivedFields{
		HP:                10 + stat(shared.StatMight),
		Mana:              2 * stat(shared.StatReason),
		Speed:             5 + stat(shared.StatDexterity)/4,
		InventoryCapacity: 8 + stat(shared.StatMight),
		SkillDifficulties: make(map[shared.SkillKey]int, len(shared.AllSkills)),
		SaveDifficulties:  make(map[shared.StatKey]int, shared.StatCount),
	}

	trained := make(map[shared.SkillKey]bool, len(input.TrainedSkills))
	for _, k := range input.TrainedSkills {
		trained[k] = true
	}
	for _, k := range shared.AllSkills {
		difficulty := 16
		if trained[k] {
			difficulty = 12
		}
		derived.SkillDifficulties[k] = difficulty
	}
	for _, k := range shared.StatKeys {
		derived.SaveDifficulties[k] = 16 - stat(k)
	}

	return derived, nil
}
