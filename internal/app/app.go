package app

import (
	"context"
	"fmt"
	"net"

	"gorm.io/gorm"

	"github.com/yungbote/rfp-analysis-backend/internal/clauseindex"
	"github.com/yungbote/rfp-analysis-backend/internal/clauses"
	"github.com/yungbote/rfp-analysis-backend/internal/data/db"
	"github.com/yungbote/rfp-analysis-backend/internal/data/repos"
	httpapi "github.com/yungbote/rfp-analysis-backend/internal/http"
	httpH "github.com/yungbote/rfp-analysis-backend/internal/http/handlers"
	"github.com/yungbote/rfp-analysis-backend/internal/observability"
	"github.com/yungbote/rfp-analysis-backend/internal/pipeline"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
	"github.com/yungbote/rfp-analysis-backend/internal/platform/envutil"
	"github.com/yungbote/rfp-analysis-backend/internal/services"
)

type Repos struct {
	RFP      repos.RFPRepo
	Analysis repos.AnalysisRepo
	JobRun   repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		RFP:      repos.NewRFPRepo(db, log),
		Analysis: repos.NewAnalysisRepo(db, log),
		JobRun:   repos.NewJobRunRepo(db, log),
	}
}

type Services struct {
	RFP     services.RFPService
	Clauses *clauses.Service
}

// App owns every long-lived dependency. New builds them in order; Close releases them
// in reverse.
type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *gorm.DB
	Repos    Repos
	Services Services
	Jobs     *Jobs
	Server   *httpapi.Server
	Metrics  *observability.Metrics

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg, err := LoadConfig()
	if err != nil {
		log.Sync()
		return nil, err
	}

	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	a.Metrics = observability.Init(log)

	if err := a.wire(ctx); err != nil {
		a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	log, cfg := a.Log, a.Cfg

	pg, err := db.NewPostgresService(log)
	if err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	a.pg = pg
	a.DB = pg.DB()
	if err := db.AutoMigrateAll(a.DB); err != nil {
		return fmt.Errorf("postgres automigrate: %w", err)
	}

	a.Repos = wireRepos(a.DB, log)

	index, err := bootstrapClauseIndex(ctx, log, clauseindex.NewPgvectorStore(a.DB, log, cfg.EmbeddingDim), cfg)
	if err != nil {
		return err
	}
	a.Services.Clauses = clauses.NewService(log, index, cfg.EmbeddingDim)

	stageClient, err := resolveStageClient(log, cfg)
	if err != nil {
		return fmt.Errorf("init stage client: %w", err)
	}
	tx := db.NewTxRunner(a.DB)
	orch := pipeline.NewOrchestrator(log, a.Repos.RFP, a.Repos.Analysis, tx, stageClient, a.Services.Clauses)

	a.Jobs, err = wireJobs(log, cfg, a.Repos, orch)
	if err != nil {
		return err
	}

	a.Services.RFP = services.NewRFPService(log, tx, a.Repos.RFP, a.Repos.Analysis, a.Repos.JobRun, a.Jobs.Queue)

	log.Info("Wiring handlers...")
	a.Server = httpapi.NewServer(net.JoinHostPort("", cfg.Port), httpapi.RouterConfig{
		Log:           log,
		ServiceName:   cfg.ServiceName,
		CORSOrigins:   cfg.CORSOrigins,
		RFPHandler:    httpH.NewRFPHandler(a.Services.RFP),
		ClauseHandler: httpH.NewClauseHandler(a.Services.Clauses),
		JobHandler:    httpH.NewJobHandler(a.Services.RFP),
		HealthHandler: httpH.NewHealthHandler(),
	})
	return nil
}

// Start launches the job consumer (when WORKER_ENABLED) and the metrics collectors.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Metrics != nil {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
		a.Metrics.StartJobQueueCollector(ctx, a.Log, a.DB)
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Cfg.RedisAddr)
	}
	if a.Cfg.WorkerEnabled {
		a.Jobs.Start(ctx, a.Log)
	} else {
		a.Log.Info("WORKER_ENABLED=false; jobs are only enqueued")
	}
}

// Run serves HTTP until Close shuts the server down.
func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "port", a.Cfg.Port)
	return a.Server.Run()
}

// Close stops accepting requests, lets in-flight jobs finish or release, then closes
// clients. ctx bounds the HTTP drain.
func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Log.Warn("HTTP shutdown", "error", err)
		}
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Jobs.Wait()
	a.Jobs.Close()
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			a.Log.Warn("postgres close", "error", err)
		}
	}
	a.Log.Sync()
}
