package character

import (
	"time"

	"github.com/emberfell/character-builder/internal/domain/shared"
)

// Character is the finished record a completed wizard session materializes
// into. This is the only builder output that persists.
type Character struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`

	Ancestry     string `json:"ancestry"`
	Class        string `json:"class"`
	StartingPack string `json:"starting_pack,omitempty"`

	Stats  map[shared.StatKey]int `json:"stats"`
	Skills []shared.SkillKey      `json:"skills"`
	Spells []string               `json:"spells"`
	Perks  []string               `json:"perks"` // user-chosen and class-granted
	Gear   []string               `json:"gear"`

	GearCostSpent float64 `json:"gear_cost_spent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
