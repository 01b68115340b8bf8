package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/rfp-analysis-backend/internal/data/repos"
	jobrt "github.com/yungbote/rfp-analysis-backend/internal/jobs/runtime"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/httpx"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
	"github.com/yungbote/rfp-analysis-backend/internal/temporalx"
	"github.com/yungbote/rfp-analysis-backend/internal/temporalx/jobrun"
)

type Runner struct {
	log         *logger.Logger
	cfg         temporalx.Config
	concurrency int

	tc         temporalsdkclient.Client
	jobRepo    repos.JobRunRepo
	dispatcher *jobrt.Dispatcher
}

func NewRunner(
	log *logger.Logger,
	cfg temporalx.Config,
	concurrency int,
	tc temporalsdkclient.Client,
	jobRepo repos.JobRunRepo,
	dispatcher *jobrt.Dispatcher,
) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if jobRepo == nil || dispatcher == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		log:         log.With("component", "TemporalWorker"),
		cfg:         cfg,
		concurrency: concurrency,
		tc:          tc,
		jobRepo:     jobRepo,
		dispatcher:  dispatcher,
	}, nil
}

// Start polls the task queue until ctx is done. Start failures are retried until
// cfg.StartMaxWait; a missing namespace is registered first when allowed.
func (r *Runner) Start(ctx context.Context) error {
	r.log.Info("Starting Temporal worker", "address", r.cfg.Address, "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)

	deadline := time.Now().Add(r.cfg.StartMaxWait)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		namespaceMissing := errors.As(startErr, &nfe)
		if namespaceMissing && r.cfg.AutoRegisterNamespace {
			if err := temporalx.EnsureNamespace(ctx, r.log, r.cfg); err != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", r.cfg.Namespace, "error", err)
			}
		}

		if r.cfg.StartMaxWait <= 0 || time.Now().After(deadline) {
			if namespaceMissing {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", r.cfg.Namespace, startErr)
			}
			return startErr
		}

		r.log.Warn("Temporal worker failed to start; retrying", "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue, "attempt", attempt, "error", startErr)
		time.Sleep(httpx.Backoff(250*time.Millisecond, 5*time.Second, attempt))
	}
}

func (r *Runner) newWorker() worker.Worker {
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     r.concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: r.concurrency,
	})

	acts := &jobrun.Activities{
		Log:        r.log,
		Jobs:       r.jobRepo,
		Dispatcher: r.dispatcher,
	}
	w.RegisterWorkflowWithOptions(jobrun.Workflow, workflow.RegisterOptions{Name: jobrun.WorkflowName})
	w.RegisterActivityWithOptions(acts.Deliver, activity.RegisterOptions{Name: jobrun.ActivityDeliver})
	return w
}
