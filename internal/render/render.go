// Package render turns scored results into display-ready cards.
package render

import (
	"math"

	"github.com/haricheung/taskrank/internal/types"
)

// Tier is the display-only priority class derived from a score.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Inclusive lower bounds.
const (
	HighThreshold   = 80.0
	MediumThreshold = 50.0
)

// NoResultsText is shown for an empty result set.
const NoResultsText = "No tasks found."

// TierFor maps a score to its tier.
//
// Expectations:
//   - score >= 80 → TierHigh
//   - 50 <= score < 80 → TierMedium
//   - score < 50 → TierLow (including negative scores)
func TierFor(score float64) Tier {
	switch {
	case score >= HighThreshold:
		return TierHigh
	case score >= MediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// Card is one rendered result.
type Card struct {
	ID             int
	Title          string
	DueDate        string
	EstimatedHours float64
	Importance     int
	Explanation    string
	Score          int
	Tier           Tier
}

// View is one full render. Empty is the "no results" state, which is not an error.
type View struct {
	Empty bool
	Cards []Card
}

// Build renders results in the order received.
// The tier is taken from the raw score, not the rounded one shown on the card.
func Build(results []types.AnalysisResult) View {
	if len(results) == 0 {
		return View{Empty: true}
	}
	cards := make([]Card, 0, len(results))
	for _, r := range results {
		cards = append(cards, Card{
			ID:             r.ID,
			Title:          r.Title,
			DueDate:        r.DueDate,
			EstimatedHours: r.EstimatedHours,
			Importance:     r.Importance,
			Explanation:    r.Explanation,
			Score:          int(math.Round(r.Score)),
			Tier:           TierFor(r.Score),
		})
	}
	return View{Cards: cards}
}
