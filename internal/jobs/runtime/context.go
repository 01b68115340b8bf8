package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/rfp-analysis-backend/internal/data/repos"
	types "github.com/yungbote/rfp-analysis-backend/internal/domain"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/ctxutil"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/dbctx"
)

/*
Context is the execution handle for one delivery of a job run.
Handlers read their inputs and report progress through it; the dispatcher owns
every terminal transition (succeeded, retry, dead) so handlers never write
job_run status themselves.
*/
type Context struct {
	Ctx     context.Context
	Job     *types.JobRun
	Repo    repos.JobRunRepo
	payload map[string]any
	result  any
}

// NewContext eagerly decodes the payload and restores the trace data captured at enqueue.
func NewContext(ctx context.Context, job *types.JobRun, repo repos.JobRunRepo) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	c := &Context{
		Ctx:  ctx,
		Job:  job,
		Repo: repo,
	}
	_ = c.decodePayload()
	c.applyTraceData()
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil || len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	if m == nil {
		m = map[string]any{}
	}
	c.payload = m
	return nil
}

func (c *Context) applyTraceData() {
	payload := c.Payload()
	traceID := payloadString(payload, "trace_id")
	reqID := payloadString(payload, "request_id")
	if traceID == "" && reqID == "" {
		return
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{
		TraceID:   traceID,
		RequestID: reqID,
	})
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

// PayloadUUID returns (uuid.Nil, false) when the key is missing or not a valid UUID.
func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	s := payloadString(c.Payload(), key)
	if s == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// Progress records the current stage and refreshes the heartbeat so the run is not
// reclaimed as stale.
func (c *Context) Progress(stage string) {
	if c == nil || c.Job == nil {
		return
	}
	now := time.Now().UTC()
	if c.Repo != nil && c.Job.ID != uuid.Nil {
		_ = c.Repo.UpdateFields(dbctx.Context{Ctx: c.Ctx}, c.Job.ID, map[string]interface{}{
			"stage":        stage,
			"heartbeat_at": now,
		})
	}
	c.Job.Stage = stage
	c.Job.HeartbeatAt = &now
}

// SetResult stores the value persisted into job_run.result on success.
func (c *Context) SetResult(v any) { c.result = v }

func (c *Context) Result() any { return c.result }

func payloadString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
