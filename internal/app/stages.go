package app

import (
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
	"github.com/yungbote/rfp-analysis-backend/internal/stages"
)

// resolveStageClient calls the four stage services over HTTP, or runs the reference
// stages in-process when STAGES_MODE=local.
func resolveStageClient(log *logger.Logger, cfg Config) (stages.Client, error) {
	catalog, err := stages.LoadCatalog(cfg.StageTimeout)
	if err != nil {
		return nil, err
	}
	switch cfg.StagesMode {
	case StagesModeLocal:
		log.Info("Analysis stages running in-process", "stages_mode", cfg.StagesMode)
		return stages.NewLocalClient(&stages.Reference{
			Log:     log,
			Fetcher: stages.NewHTTPFetcher(nil),
			Factors: catalog.Factors,
		}), nil
	default:
		for _, ep := range catalog.Endpoints {
			log.Info("Analysis stage endpoint", "stage", ep.Name, "url", ep.URL(), "timeout", ep.Timeout)
		}
		return stages.NewHTTPClient(log, catalog, nil), nil
	}
}
