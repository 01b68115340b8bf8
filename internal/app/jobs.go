package app

import (
	"context"
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/rfp-analysis-backend/internal/jobs/queue"
	"github.com/yungbote/rfp-analysis-backend/internal/jobs/runtime"
	"github.com/yungbote/rfp-analysis-backend/internal/jobs/worker"
	"github.com/yungbote/rfp-analysis-backend/internal/pipeline"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
	"github.com/yungbote/rfp-analysis-backend/internal/temporalx"
	"github.com/yungbote/rfp-analysis-backend/internal/temporalx/temporalworker"
)

type Jobs struct {
	Registry   *runtime.Registry
	Dispatcher *runtime.Dispatcher
	Queue      *queue.Queue

	// Exactly one of Worker and Temporal is set, by QUEUE_DRIVER.
	Worker   *worker.Worker
	Temporal *temporalworker.Runner

	redisBus       *queue.RedisBus
	temporalClient temporalsdkclient.Client
}

func wireJobs(log *logger.Logger, cfg Config, repos Repos, orch *pipeline.Orchestrator) (*Jobs, error) {
	log.Info("Wiring job runtime...", "queue_driver", cfg.QueueDriver)

	registry := runtime.NewRegistry()
	if err := registry.Register(pipeline.NewHandler(log, orch)); err != nil {
		return nil, err
	}
	log.Info("Registered job handlers", "job_types", registry.Types())
	dispatcher := runtime.NewDispatcher(log, repos.JobRun, registry, cfg.RetryPolicy)
	dispatcher.OnDeadLetter(pipeline.MarkRFPFailed(log, repos.RFP))

	j := &Jobs{Registry: registry, Dispatcher: dispatcher}

	var publisher queue.Publisher = queue.NoopPublisher{}
	switch cfg.QueueDriver {
	case QueueDriverTemporal:
		tcfg := temporalx.LoadConfig()
		tc, err := temporalx.NewClient(log, tcfg)
		if err != nil {
			return nil, fmt.Errorf("init temporal: %w", err)
		}
		j.temporalClient = tc
		publisher = temporalx.NewWorkflowPublisher(tc, tcfg.TaskQueue)
		runner, err := temporalworker.NewRunner(log, tcfg, cfg.WorkerConcurrency, tc, repos.JobRun, dispatcher)
		if err != nil {
			j.Close()
			return nil, err
		}
		j.Temporal = runner

	default:
		if cfg.RedisAddr != "" {
			bus, err := queue.NewRedisBus(log, cfg.RedisAddr, cfg.RedisChannel)
			if err != nil {
				return nil, fmt.Errorf("init redis job bus: %w", err)
			}
			j.redisBus = bus
			publisher = bus
		} else {
			log.Info("REDIS_ADDR not set; worker relies on polling")
		}
		j.Worker = worker.NewWorker(log, repos.JobRun, dispatcher, worker.Config{
			Concurrency:  cfg.WorkerConcurrency,
			PollInterval: cfg.WorkerPollInterval,
			StaleRunning: cfg.StaleRunning,
		})
	}

	j.Queue = queue.New(log, repos.JobRun, publisher)
	return j, nil
}

// Start launches whichever consumer QUEUE_DRIVER selected. It returns once the
// consumer is running; consumers stop when ctx is canceled.
func (j *Jobs) Start(ctx context.Context, log *logger.Logger) {
	if j.Worker != nil {
		if j.redisBus != nil {
			wake, err := j.redisBus.Subscribe(ctx)
			if err != nil {
				log.Warn("redis wake subscription failed; falling back to polling", "error", err)
			} else {
				j.Worker.SetWake(wake)
			}
		}
		j.Worker.Start(ctx)
	}
	if j.Temporal != nil {
		go func() {
			if err := j.Temporal.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error("temporal worker stopped", "error", err)
			}
		}()
	}
}

// Wait blocks until the in-process worker has drained.
func (j *Jobs) Wait() {
	if j != nil && j.Worker != nil {
		j.Worker.Wait()
	}
}

func (j *Jobs) Close() {
	if j == nil {
		return
	}
	if j.redisBus != nil {
		_ = j.redisBus.Close()
	}
	if j.temporalClient != nil {
		j.temporalClient.Close()
	}
}
