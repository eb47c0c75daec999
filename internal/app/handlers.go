package app

import (
	httpH "github.com/yungbote/exampaper-backend/internal/http/handlers"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
	"github.com/yungbote/exampaper-backend/internal/platform/ollama"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Material *httpH.MaterialHandler
	Question *httpH.QuestionHandler
	Job      *httpH.JobHandler
}

func wireHandlers(log *logger.Logger, cfg Config, services Services, clients Clients) Handlers {
	log.Info("Wiring handlers...")
	// The health route only reports on Ollama; other providers leave it unset.
	var modelHealth httpH.ModelHealth
	if clients.Ollama != nil && cfg.GenerationProvider == ollama.ProviderName {
		modelHealth = clients.Ollama
	}
	return Handlers{
		Health:   httpH.NewHealthHandler(),
		Material: httpH.NewMaterialHandler(log, services.Materials, services.Collections, modelHealth, cfg.MaxUploadBytes),
		Question: httpH.NewQuestionHandler(log, services.Questions),
		Job:      httpH.NewJobHandler(services.Jobs),
	}
}
