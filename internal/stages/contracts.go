// Package stages holds the request and response contracts of the four analysis stage
// services, an HTTP client for them, and the reference implementations served by
// cmd/stages.
package stages

import (
	"fmt"
	"math"
)

const (
	StageParse    = "parse"
	StageValidate = "validate"
	StageScore    = "score"
	StageDecide   = "decide"
)

const (
	LayerFormat        = "format_ok"
	LayerSchema        = "schema_ok"
	LayerBusinessRules = "business_rules_ok"
	LayerCrossRef      = "cross_ref_ok"
	LayerAIReview      = "ai_review_ok"
)

type ParseRequest struct {
	RFPID       string  `json:"rfpId"`
	Name        string  `json:"name"`
	DocumentURL *string `json:"documentUrl,omitempty"`
}

type Criterion struct {
	Criterion string  `json:"criterion"`
	Weight    float64 `json:"weight"`
}

type ParsedRFP struct {
	Sections           map[string]string `json:"sections"`
	EvaluationCriteria []Criterion       `json:"evaluationCriteria"`
	Metadata           map[string]any    `json:"metadata"`
}

type ValidationResult struct {
	Layers map[string]bool `json:"layers"`
	Issues []string        `json:"issues"`
}

type ScoreRequest struct {
	EvaluationCriteria []Criterion `json:"evaluationCriteria"`
}

type ScoreResult struct {
	Fit         float64 `json:"fit"`
	Complexity  float64 `json:"complexity"`
	Competitive float64 `json:"competitive"`
	Total       float64 `json:"total"`
}

type DecideRequest struct {
	Total float64 `json:"total"`
}

type DecisionResult struct {
	Decision  string `json:"decision"`
	Rationale string `json:"rationale"`
}

func (p ParsedRFP) check() error {
	if p.Sections == nil {
		return fmt.Errorf("parsed rfp is missing sections")
	}
	for i, c := range p.EvaluationCriteria {
		if math.IsNaN(c.Weight) || math.IsInf(c.Weight, 0) {
			return fmt.Errorf("evaluationCriteria[%d] weight is not finite", i)
		}
	}
	return nil
}

func (v ValidationResult) check() error {
	if v.Layers == nil {
		return fmt.Errorf("validation result is missing layers")
	}
	return nil
}

func (s ScoreResult) check() error {
	for name, v := range map[string]float64{"fit": s.Fit, "complexity": s.Complexity, "competitive": s.Competitive, "total": s.Total} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("score %s is not finite", name)
		}
	}
	return nil
}

func (d DecisionResult) check() error {
	switch d.Decision {
	case DecisionBid, DecisionNoBid, DecisionReview:
		return nil
	default:
		return fmt.Errorf("unknown decision %q", d.Decision)
	}
}
