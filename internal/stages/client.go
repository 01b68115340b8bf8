package stages

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/yungbote/rfp-analysis-backend/internal/pkg/ctxutil"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
)

const maxResponseBytes = 4 << 20

// Client calls the four stage services.
type Client interface {
	Parse(ctx context.Context, req ParseRequest) (ParsedRFP, error)
	Validate(ctx context.Context, parsed ParsedRFP) (ValidationResult, error)
	Score(ctx context.Context, req ScoreRequest) (ScoreResult, error)
	Decide(ctx context.Context, req DecideRequest) (DecisionResult, error)
}

type httpClient struct {
	log     *logger.Logger
	catalog Catalog
	http    *http.Client
}

// NewHTTPClient bounds every call by the stage's catalog timeout. hc may be nil.
func NewHTTPClient(log *logger.Logger, catalog Catalog, hc *http.Client) Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &httpClient{
		log:     log.With("client", "StageClient"),
		catalog: catalog,
		http:    hc,
	}
}

func (c *httpClient) Parse(ctx context.Context, req ParseRequest) (ParsedRFP, error) {
	var out ParsedRFP
	if err := c.call(ctx, StageParse, req, &out); err != nil {
		return ParsedRFP{}, err
	}
	if err := out.check(); err != nil {
		return ParsedRFP{}, &Error{Stage: StageParse, Kind: ErrorContract, Cause: err}
	}
	return out, nil
}

func (c *httpClient) Validate(ctx context.Context, parsed ParsedRFP) (ValidationResult, error) {
	var out ValidationResult
	if err := c.call(ctx, StageValidate, parsed, &out); err != nil {
		return ValidationResult{}, err
	}
	if err := out.check(); err != nil {
		return ValidationResult{}, &Error{Stage: StageValidate, Kind: ErrorContract, Cause: err}
	}
	if out.Issues == nil {
		out.Issues = []string{}
	}
	return out, nil
}

func (c *httpClient) Score(ctx context.Context, req ScoreRequest) (ScoreResult, error) {
	if req.EvaluationCriteria == nil {
		req.EvaluationCriteria = []Criterion{}
	}
	var out ScoreResult
	if err := c.call(ctx, StageScore, req, &out); err != nil {
		return ScoreResult{}, err
	}
	if err := out.check(); err != nil {
		return ScoreResult{}, &Error{Stage: StageScore, Kind: ErrorContract, Cause: err}
	}
	return out, nil
}

func (c *httpClient) Decide(ctx context.Context, req DecideRequest) (DecisionResult, error) {
	var out DecisionResult
	if err := c.call(ctx, StageDecide, req, &out); err != nil {
		return DecisionResult{}, err
	}
	if err := out.check(); err != nil {
		return DecisionResult{}, &Error{Stage: StageDecide, Kind: ErrorContract, Cause: err}
	}
	return out, nil
}

func (c *httpClient) call(ctx context.Context, stage string, in any, out any) error {
	ep, ok := c.catalog.Endpoint(stage)
	if !ok {
		return &Error{Stage: stage, Kind: ErrorContract, Cause: fmt.Errorf("stage not configured")}
	}
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), ep.Timeout)
	defer cancel()

	body, err := json.Marshal(in)
	if err != nil {
		return &Error{Stage: stage, Kind: ErrorContract, Cause: fmt.Errorf("encode request: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL(), bytes.NewReader(body))
	if err != nil {
		return &Error{Stage: stage, Kind: ErrorTransport, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if td := ctxutil.GetTraceData(ctx); td != nil && td.RequestID != "" {
		req.Header.Set("X-Request-Id", td.RequestID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Stage: stage, Kind: classifyTransport(ctx, err), Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Stage: stage, Kind: classifyTransport(ctx, err), Cause: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("stage returned error status", "stage", stage, "status", resp.StatusCode, "stage_url", ep.URL())
		return &Error{
			Stage:      stage,
			Kind:       ErrorStatus,
			StatusCode: resp.StatusCode,
			Cause:      fmt.Errorf("body=%q", truncate(raw, 512)),
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Stage: stage, Kind: ErrorDecode, StatusCode: resp.StatusCode, Cause: err}
	}
	return nil
}

func classifyTransport(ctx context.Context, err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTimeout
	}
	return ErrorTransport
}

func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}
