package processor

import (
	"fmt"
	"math"
	"strings"
)

// AmericanToImplied converts American odds to an implied probability.
func AmericanToImplied(odds float64) (float64, error) {
	if odds == 0 {
		return 0, fmt.Errorf("odds cannot be zero")
	}
	if odds > 0 {
		return 100 / (odds + 100), nil
	}
	return math.Abs(odds) / (math.Abs(odds) + 100), nil
}

// ProjectedValue estimates the vig-free expected stat for an over/under
// pair: the implied probabilities are normalized to sum to one, then
// applied half a unit above and below the quoted line.
func ProjectedValue(overOdds, underOdds, point float64) (float64, error) {
	overProb, err := AmericanToImplied(overOdds)
	if err != nil {
		return 0, err
	}
	underProb, err := AmericanToImplied(underOdds)
	if err != nil {
		return 0, err
	}
	total := overProb + underProb
	normOver := overProb / total
	normUnder := underProb / total
	return normOver*(point+0.5) + normUnder*(point-0.5), nil
}

// MarketLabel turns a market key into a readable name, e.g.
// "player_pass_yds" becomes "Pass Yds".
func MarketLabel(key string) string {
	parts := strings.Split(key, "_")
	var words []string
	if len(parts) > 1 {
		words = parts[1:]
	} else {
		words = parts
	}
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
