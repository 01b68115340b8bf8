// Command stages serves the reference parse, validate, score and decide services,
// one listener per stage as configured in the stage catalog.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/rfp-analysis-backend/internal/observability"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/shutdown"
	"github.com/yungbote/rfp-analysis-backend/internal/platform/envutil"
	"github.com/yungbote/rfp-analysis-backend/internal/stages"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Error("stage services exited", "error", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	if otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{ServiceName: "rfp-stages"}); otelShutdown != nil {
		defer func() { _ = otelShutdown(context.Background()) }()
	}

	catalog, err := stages.LoadCatalog(envutil.Seconds("STAGE_TIMEOUT_SECONDS", 30*time.Second))
	if err != nil {
		return err
	}
	ref := &stages.Reference{
		Log:     log,
		Fetcher: stages.NewHTTPFetcher(nil),
		Factors: catalog.Factors,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, ep := range catalog.Endpoints {
		if ep.ListenAddr == "" {
			log.Warn("stage has no listen_addr; not serving", "stage", ep.Name)
			continue
		}
		engine, err := stages.NewStageEngine(ref, ep)
		if err != nil {
			return err
		}
		srv := &http.Server{Addr: ep.ListenAddr, Handler: engine, ReadHeaderTimeout: 10 * time.Second}
		g.Go(func() error {
			log.Info("stage service listening", "stage", ep.Name, "addr", ep.ListenAddr, "path", ep.Path)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("stage %s: %w", ep.Name, err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}
