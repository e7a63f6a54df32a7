// AngelaMos | 2026
// rules.go

package loyalty

import (
	"github.com/shopspring/decimal"
)

const (
	LevelBronze = "BRONZE"
	LevelSilver = "SILVER"
	LevelGold   = "GOLD"
)

const (
	SilverThreshold int64 = 5000
	GoldThreshold   int64 = 10000

	// DefaultPointRatio is the amount of currency that earns one point.
	DefaultPointRatio int64 = 1000
)

// Award returns floor(amount / 1000). Negative amounts earn nothing.
func Award(amount decimal.Decimal) int64 {
	return AwardWithRatio(amount, DefaultPointRatio)
}

func AwardWithRatio(amount decimal.Decimal, ratio int64) int64 {
	if ratio <= 0 || !amount.IsPositive() {
		return 0
	}

	q, _ := amount.QuoRem(decimal.NewFromInt(ratio), 0)
	return q.IntPart()
}

// Classify maps a balance to its membership level. Every balance write
// goes through it so the stored level never drifts from the points.
func Classify(points int64) string {
	switch {
	case points >= GoldThreshold:
		return LevelGold
	case points >= SilverThreshold:
		return LevelSilver
	default:
		return LevelBronze
	}
}

func levelRank(level string) int {
	switch level {
	case LevelGold:
		return 2
	case LevelSilver:
		return 1
	default:
		return 0
	}
}

func IsValidLevel(level string) bool {
	return level == LevelBronze || level == LevelSilver || level == LevelGold
}
