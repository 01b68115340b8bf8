package stages

import (
	"fmt"
	"math"
	"strings"
)

const weightSumTolerance = 1e-9

// Validate is the reference validator. Each failed layer adds one issue.
func Validate(p ParsedRFP) ValidationResult {
	res := ValidationResult{
		Layers: map[string]bool{},
		Issues: []string{},
	}

	nonEmpty := 0
	for _, content := range p.Sections {
		if strings.TrimSpace(content) != "" {
			nonEmpty++
		}
	}
	res.Layers[LayerFormat] = nonEmpty > 0
	if !res.Layers[LayerFormat] {
		res.Issues = append(res.Issues, "document has no non-empty sections")
	}

	schemaOK := true
	var sum float64
	for i, c := range p.EvaluationCriteria {
		if strings.TrimSpace(c.Criterion) == "" {
			schemaOK = false
			res.Issues = append(res.Issues, fmt.Sprintf("evaluation criterion %d has no name", i))
		}
		if math.IsNaN(c.Weight) || math.IsInf(c.Weight, 0) || c.Weight < 0 || c.Weight > 1 {
			schemaOK = false
			res.Issues = append(res.Issues, fmt.Sprintf("evaluation criterion %q weight %v is outside [0,1]", c.Criterion, c.Weight))
			continue
		}
		sum += c.Weight
	}
	res.Layers[LayerSchema] = schemaOK

	res.Layers[LayerBusinessRules] = sum <= 1.0+weightSumTolerance
	if !res.Layers[LayerBusinessRules] {
		res.Issues = append(res.Issues, fmt.Sprintf("evaluation criteria weights sum to %.4f, more than 1", sum))
	}

	crossRef := true
	for _, c := range p.EvaluationCriteria {
		if strings.TrimSpace(c.Criterion) != "" && !IsScoringFactor(c.Criterion) {
			crossRef = false
			res.Issues = append(res.Issues, fmt.Sprintf("evaluation criterion %q is not a scoring factor", c.Criterion))
		}
	}
	res.Layers[LayerCrossRef] = crossRef
	return res
}
