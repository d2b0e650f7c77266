package shared

// StatKey identifies one of the six character stats.
type StatKey string

const (
	StatNone      StatKey = ""
	StatMight     StatKey = "might"
	StatDexterity StatKey = "dexterity"
	StatAwareness StatKey = "awareness"
	StatReason    StatKey = "reason"
	StatPresence  StatKey = "presence"
	StatLuck      StatKey = "luck"
)

// StatKeys lists the six stats in sheet order.
var StatKeys = []StatKey{StatMight, StatDexterity, StatAwareness, StatReason, StatPresence, StatLuck}

// StatCount is the fixed number of stats, which is also the length of every
// stat array.
const StatCount = 6

// Stat values always come from an array, so these bounds hold for every
// assignable value. Bonuses may push a stat to StatBonusCap but never past it.
const (
	StatValueMin = 2
	StatValueMax = 8
	StatBonusCap = 7
)

// ValidStat reports whether key names one of the six stats.
func ValidStat(key StatKey) bool {
	for _, k := range StatKeys {
		if k == key {
			return true
		}
	}
	return false
}
