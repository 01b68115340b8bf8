package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/rfp-analysis-backend/internal/pkg/dbctx"
)

const heartbeatInterval = 30 * time.Second

func (w *Worker) startHeartbeat(ctx context.Context, id uuid.UUID) func() {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(heartbeatInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				if err := w.repo.Heartbeat(dbctx.Context{Ctx: ctx}, id); err != nil {
					w.log.Warn("Job heartbeat failed", "job_id", id, "error", err)
				}
			}
		}
	}()
	return func() { close(done) }
}
