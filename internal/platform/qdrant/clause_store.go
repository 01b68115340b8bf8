package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/rfp-analysis-backend/internal/clauseindex"
	"github.com/yungbote/rfp-analysis-backend/internal/embedding"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/ctxutil"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
)

const maxErrorBodyBytes = 1024

type clauseStore struct {
	log     *logger.Logger
	cfg     Config
	baseURL string
	http    *http.Client
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type qdrantSearchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// NewClauseStore returns a clause index backed by a Qdrant collection. No network
// call is made until EnsureCollection.
func NewClauseStore(log *logger.Logger, cfg Config, client *http.Client) (clauseindex.Index, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &clauseStore{
		log:     log.With("service", "QdrantClauseStore"),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    client,
	}, nil
}

func (s *clauseStore) Engine() string { return clauseindex.EngineQdrant }

// EnsureCollection creates the collection with cosine distance. A 409, or a 400 whose
// status says the collection already exists, is reported as AlreadyExists after the
// existing vector size is checked against dim.
func (s *clauseStore) EnsureCollection(ctx context.Context, dim int) (clauseindex.EnsureOutcome, error) {
	const op = "ensure_collection"
	if dim <= 0 {
		dim = s.cfg.VectorDim
	}
	req := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	err := s.doJSON(ctx, op, http.MethodPut, s.collectionPath(""), req, nil)
	if err == nil {
		s.log.Info("qdrant collection created", "collection", s.cfg.Collection, "vector_dim", dim)
		return clauseindex.Created, nil
	}
	if !isAlreadyExists(err) {
		return "", err
	}
	if err := s.verifyDimension(ctx, dim); err != nil {
		return "", err
	}
	s.log.Debug("qdrant collection already exists", "collection", s.cfg.Collection)
	return clauseindex.AlreadyExists, nil
}

func isAlreadyExists(err error) bool {
	var oe *OperationError
	if !errors.As(err, &oe) || oe.Code != OperationErrorQueryFailed {
		return false
	}
	switch oe.StatusCode {
	case http.StatusConflict:
		return true
	case http.StatusBadRequest:
		return strings.Contains(strings.ToLower(oe.Message), "already exists")
	default:
		return false
	}
}

func (s *clauseStore) verifyDimension(ctx context.Context, dim int) error {
	const op = "verify_collection"
	var result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	if err := s.doJSON(ctx, op, http.MethodGet, s.collectionPath(""), nil, &result); err != nil {
		return err
	}
	size := result.Config.Params.Vectors.Size
	if size != 0 && size != dim {
		return &OperationError{
			Code:      OperationErrorValidation,
			Operation: op,
			Message: fmt.Sprintf(
				"qdrant collection %q vector size mismatch: expected=%d actual=%d",
				s.cfg.Collection,
				dim,
				size,
			),
		}
	}
	return nil
}

func (s *clauseStore) Upsert(ctx context.Context, points []clauseindex.Point) error {
	const op = "upsert"
	if len(points) == 0 {
		return nil
	}
	body := make([]map[string]any, 0, len(points))
	for _, p := range points {
		if len(p.Vector) != s.cfg.VectorDim {
			return opErr(
				op,
				OperationErrorValidation,
				fmt.Sprintf("point %s dimension mismatch: expected=%d got=%d", p.ID, s.cfg.VectorDim, len(p.Vector)),
				nil,
			)
		}
		payload := map[string]any{
			"rfp_id": p.Payload.RFPID,
			"text":   p.Payload.Text,
		}
		if p.Payload.Section != nil {
			payload["section"] = *p.Payload.Section
		}
		body = append(body, map[string]any{
			"id":      p.ID.String(),
			"vector":  embedding.Float32(p.Vector),
			"payload": payload,
		})
	}
	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/points?wait=true"), map[string]any{"points": body}, nil)
}

// Search returns matches in the order and with the scores Qdrant reports.
func (s *clauseStore) Search(ctx context.Context, vector []float64, topK int, filter clauseindex.Filter) ([]clauseindex.Match, error) {
	const op = "search"
	if len(vector) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector required", nil)
	}
	if len(vector) != s.cfg.VectorDim {
		return nil, opErr(
			op,
			OperationErrorValidation,
			fmt.Sprintf("query vector dimension mismatch: expected=%d got=%d", s.cfg.VectorDim, len(vector)),
			nil,
		)
	}
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       embedding.Float32(vector),
		"limit":        topK,
		"with_payload": true,
		"with_vector":  false,
	}
	if f := buildFilter(filter); f != nil {
		req["filter"] = f
	}

	var rawResults []qdrantSearchResultItem
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/search"), req, &rawResults); err != nil {
		return nil, err
	}
	out := make([]clauseindex.Match, 0, len(rawResults))
	for _, item := range rawResults {
		out = append(out, clauseindex.Match{
			ID:      decodePointID(item.ID),
			Score:   item.Score,
			Payload: payloadFromMap(item.Payload),
		})
	}
	return out, nil
}

func payloadFromMap(in map[string]any) clauseindex.Payload {
	var p clauseindex.Payload
	if v, ok := in[payloadRFPIDKey].(string); ok {
		p.RFPID = v
	}
	if v, ok := in["text"].(string); ok {
		p.Text = v
	}
	if v, ok := in["section"].(string); ok {
		section := v
		p.Section = &section
	}
	return p
}

func (s *clauseStore) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if statusErr := parseEnvelopeStatus(envelope.Status); statusErr != "" {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    statusErr,
		}
	}

	if out == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}

	var statusString string
	if err := json.Unmarshal(raw, &statusString); err == nil {
		if strings.EqualFold(statusString, "ok") || strings.EqualFold(statusString, "acknowledged") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", statusString)
	}

	var statusObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &statusObject); err == nil {
		if strings.TrimSpace(statusObject.Error) != "" {
			return strings.TrimSpace(statusObject.Error)
		}
	}
	return fmt.Sprintf("qdrant status=%s", status)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func decodePointID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var idString string
	if err := json.Unmarshal(raw, &idString); err == nil {
		return strings.TrimSpace(idString)
	}
	var idNumber int64
	if err := json.Unmarshal(raw, &idNumber); err == nil {
		return fmt.Sprintf("%d", idNumber)
	}
	return strings.TrimSpace(string(raw))
}

func (s *clauseStore) collectionPath(suffix string) string {
	path := "/collections/" + s.cfg.Collection
	if strings.TrimSpace(suffix) == "" {
		return path
	}
	return path + suffix
}
