package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/exampaper-backend/internal/http/handlers"
	httpMW "github.com/yungbote/exampaper-backend/internal/http/middleware"
	"github.com/yungbote/exampaper-backend/internal/observability"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string
	// ServiceName turns on otelgin spans when set.
	ServiceName string

	HealthHandler   *httpH.HealthHandler
	MaterialHandler *httpH.MaterialHandler
	QuestionHandler *httpH.QuestionHandler
	JobHandler      *httpH.JobHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Materials
		if cfg.MaterialHandler != nil {
			api.POST("/materials/study", cfg.MaterialHandler.UploadStudy)
			api.GET("/materials/study", cfg.MaterialHandler.ListStudy)
			api.GET("/materials/ollama-health", cfg.MaterialHandler.OllamaHealth)
			api.GET("/materials/collection/:id/validate", cfg.MaterialHandler.ValidateCollection)
			api.GET("/materials/collection/:id/stats", cfg.MaterialHandler.CollectionStats)
			api.GET("/materials/:id", cfg.MaterialHandler.GetMaterial)
		}

		// Questions
		if cfg.QuestionHandler != nil {
			api.POST("/questions/generate/:examId", cfg.QuestionHandler.Generate)
			api.GET("/questions/by-exam/:examId", cfg.QuestionHandler.ListByExam)
			api.POST("/questions/update/:id", cfg.QuestionHandler.Update)
			api.POST("/questions/regenerate/:id", cfg.QuestionHandler.Regenerate)
		}

		// Job
		if cfg.JobHandler != nil {
			api.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "route not found", "code": "not_found"}})
	})
	return r
}
