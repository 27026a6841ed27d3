package result

import "math"

// Explain breaks a combined score down into its signals.
type Explain struct {
	FlavorSim    float64 `json:"flavorSim"`
	StyleSim     float64 `json:"styleSim"`
	BaseSim      float64 `json:"baseSim"`
	KeywordBoost float64 `json:"kwBoost"`
}

// Result is a single ranked item.
type Result struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	Explain Explain `json:"explain"`
}

// New creates a Result with the score rounded to 6 places and the explain fields to 3.
func New(id, name string, score float64, explain Explain) Result {
	return Result{
		ID:    id,
		Name:  name,
		Score: Round(score, 6),
		Explain: Explain{
			FlavorSim:    Round(explain.FlavorSim, 3),
			StyleSim:     Round(explain.StyleSim, 3),
			BaseSim:      Round(explain.BaseSim, 3),
			KeywordBoost: Round(explain.KeywordBoost, 3),
		},
	}
}

// Round rounds v to the given number of decimal places, halves away from zero.
func Round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
