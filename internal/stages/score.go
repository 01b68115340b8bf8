package stages

import (
	"math"
	"strings"
)

const (
	FactorFit         = "fit"
	FactorComplexity  = "complexity"
	FactorCompetitive = "competitive"
)

// Weights are the per-factor multipliers of the total score.
type Weights struct {
	Fit         float64
	Complexity  float64
	Competitive float64
}

func DefaultWeights() Weights {
	return Weights{Fit: 0.4, Complexity: 0.3, Competitive: 0.3}
}

// Factors are the raw factor scores, nominally in [0,1].
type Factors struct {
	Fit         float64 `yaml:"fit"`
	Complexity  float64 `yaml:"complexity"`
	Competitive float64 `yaml:"competitive"`
}

func DefaultFactors() Factors {
	return Factors{Fit: 0.8, Complexity: 0.6, Competitive: 0.7}
}

// WeightsFor starts from the defaults and applies every criterion whose name matches a
// factor, ignoring case and surrounding whitespace. Later entries win.
func WeightsFor(criteria []Criterion) Weights {
	w := DefaultWeights()
	for _, c := range criteria {
		switch strings.ToLower(strings.TrimSpace(c.Criterion)) {
		case FactorFit:
			w.Fit = c.Weight
		case FactorComplexity:
			w.Complexity = c.Weight
		case FactorCompetitive:
			w.Competitive = c.Weight
		}
	}
	return w
}

func IsScoringFactor(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case FactorFit, FactorComplexity, FactorCompetitive:
		return true
	}
	return false
}

// Score combines the factors with the criteria-derived weights; total has 4 decimals.
func Score(criteria []Criterion, f Factors) ScoreResult {
	w := WeightsFor(criteria)
	total := f.Fit*w.Fit + f.Complexity*w.Complexity + f.Competitive*w.Competitive
	return ScoreResult{
		Fit:         f.Fit,
		Complexity:  f.Complexity,
		Competitive: f.Competitive,
		Total:       Round4(total),
	}
}

func Round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
