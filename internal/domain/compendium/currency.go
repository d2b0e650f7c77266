package compendium

// Currency is an amount of coinage. Budget arithmetic happens in a single
// scalar where one silver is the unit: 1 gold = 100, 1 copper = 0.1.
type Currency struct {
	Gold   int `json:"gold,omitempty"`
	Silver int `json:"silver,omitempty"`
	Copper int `json:"copper,omitempty"`
}

// Conversion rates into smallest-unit scalars.
const (
	GoldUnits   = 100.0
	SilverUnits = 1.0
	CopperUnits = 0.1
)

// Units converts the currency to the smallest-unit scalar.
func (c *Currency) Units() float64 {
	if c == nil {
		return 0
	}
	return float64(c.Gold)*GoldUnits + float64(c.Silver)*SilverUnits + float64(c.Copper)*CopperUnits
}
