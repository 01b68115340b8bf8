package stages

import (
	"context"
	"net/http"

	"github.com/yungbote/rfp-analysis-backend/internal/pkg/httpx"
)

type localClient struct {
	ref *Reference
}

// NewLocalClient runs the reference stages in-process. It backs STAGES_MODE=local
// for single-binary development setups.
func NewLocalClient(ref *Reference) Client {
	return &localClient{ref: ref}
}

func (c *localClient) Parse(ctx context.Context, req ParseRequest) (ParsedRFP, error) {
	out, err := Parse(ctx, c.ref.Fetcher, req)
	if err != nil {
		if httpx.IsRetryableError(err) {
			return ParsedRFP{}, &Error{Stage: StageParse, Kind: ErrorTransport, Cause: err}
		}
		return ParsedRFP{}, &Error{Stage: StageParse, Kind: ErrorStatus, StatusCode: http.StatusUnprocessableEntity, Cause: err}
	}
	return out, nil
}

func (c *localClient) Validate(ctx context.Context, parsed ParsedRFP) (ValidationResult, error) {
	return Validate(parsed), nil
}

func (c *localClient) Score(ctx context.Context, req ScoreRequest) (ScoreResult, error) {
	return Score(req.EvaluationCriteria, c.ref.Factors), nil
}

func (c *localClient) Decide(ctx context.Context, req DecideRequest) (DecisionResult, error) {
	return Decide(req.Total), nil
}
