// Package stats implements stat-point budget accounting and the interactive
// edit session that spends those points against a character sheet.
package stats

import "fmt"

// Track selects which five stats an edit session operates on.
type Track int

const (
	TrackCombat Track = iota
	TrackSocial
)

func (t Track) String() string {
	if t == TrackSocial {
		return "social"
	}
	return "combat"
}

// ParseTrack parses a track name from a request path.
func ParseTrack(s string) (Track, error) {
	switch s {
	case "combat":
		return TrackCombat, nil
	case "social":
		return TrackSocial, nil
	default:
		return 0, fmt.Errorf("unknown track %q", s)
	}
}

var combatNames = [5]string{"strength", "dexterity", "vitality", "special", "insight"}
var socialNames = [5]string{"tough", "cool", "beauty", "clever", "cute"}

// Names returns the five stat names of a track, in sheet order.
func Names(t Track) [5]string {
	if t == TrackSocial {
		return socialNames
	}
	return combatNames
}

// StatIndex maps a stat name to its position within the track, or -1.
func StatIndex(t Track, name string) int {
	for i, n := range Names(t) {
		if n == name {
			return i
		}
	}
	return -1
}

// Line is one stat's value against its species bounds.
type Line struct {
	Current int
	Min     int
	Max     int
}

// InvestedPoints is the number of points spent above the species floor.
func InvestedPoints(lines [5]Line) int {
	total := 0
	for _, l := range lines {
		total += l.Current - l.Min
	}
	return total
}

// OverflowPoints counts points currently held past species caps (limit breaks taken).
func OverflowPoints(lines [5]Line) int {
	total := 0
	for _, l := range lines {
		if l.Current > l.Max {
			total += l.Current - l.Max
		}
	}
	return total
}

// LimitBreakSurcharge is the extra cost of n overflow points, on top of the
// one point per point already counted by InvestedPoints.
//
// House rule: the point that first passes a cap costs 2, and each further
// limit break costs one more than the last (2, 3, 4, ...). With the base
// point counted elsewhere, the k-th overflow point adds k, so the cumulative
// surcharge is the triangular number n(n+1)/2.
func LimitBreakSurcharge(overflow int) int {
	if overflow <= 0 {
		return 0
	}
	return overflow * (overflow + 1) / 2
}

// NextPointCost is the full cost of the next single point past a species cap,
// given the overflow points already held. Consistent with LimitBreakSurcharge:
// Surcharge(n+1) - Surcharge(n) == NextPointCost(n) - 1.
func NextPointCost(overflow int) int {
	return 2 + overflow
}

// Combat points are granted per level; social points per rank tier.
const combatPointsPerLevel = 2
const socialPointsPerRank = 3

// rank tiers by level
var rankThresholds = []int{1, 5, 10, 15, 20}

// RankForLevel derives the rank tier (1-based) that gates the social budget.
func RankForLevel(level int) int {
	rank := 0
	for _, th := range rankThresholds {
		if level >= th {
			rank++
		}
	}
	if rank < 1 {
		rank = 1
	}
	return rank
}

// Budget is the total point allowance for a track at the given level.
func Budget(t Track, level int) int {
	if t == TrackSocial {
		return socialPointsPerRank * RankForLevel(level)
	}
	return combatPointsPerLevel * level
}

// RemainingBudget is what is left to spend: the track budget minus invested
// points and the limit-break surcharge.
func RemainingBudget(t Track, lines [5]Line, level int) int {
	return Budget(t, level) - InvestedPoints(lines) - LimitBreakSurcharge(OverflowPoints(lines))
}
