package compendium

// StatArray is a fixed spread of six stat values. Assigned stat values always
// come from the selected array; duplicates are allowed and order is preserved
// when the unassigned pool is refilled.
type StatArray struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Values [6]int `json:"values"`
}

// The standard arrays shipped with the system.
var StatArrays = []StatArray{
	{ID: "standard", Name: "Standard", Values: [6]int{6, 5, 4, 4, 4, 3}},
	{ID: "balanced", Name: "Balanced", Values: [6]int{5, 5, 5, 4, 4, 3}},
	{ID: "focused", Name: "Focused", Values: [6]int{7, 6, 4, 4, 3, 2}},
}

// ArrayByID looks up a stat array, returning nil when the id is unknown.
func ArrayByID(id string) *StatArray {
	for i := range StatArrays {
		if StatArrays[i].ID == id {
			return &StatArrays[i]
		}
	}
	return nil
}
