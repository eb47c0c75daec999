package app

import (
	"fmt"

	"github.com/yungbote/exampaper-backend/internal/data/repos"
	"github.com/yungbote/exampaper-backend/internal/jobs/pipeline/ingest_material"
	jobrt "github.com/yungbote/exampaper-backend/internal/jobs/runtime"
	"github.com/yungbote/exampaper-backend/internal/jobs/worker"
	"github.com/yungbote/exampaper-backend/internal/modules/collections"
	"github.com/yungbote/exampaper-backend/internal/modules/ingestion/pipeline"
	"github.com/yungbote/exampaper-backend/internal/modules/paper"
	"github.com/yungbote/exampaper-backend/internal/modules/questiongen"
	"github.com/yungbote/exampaper-backend/internal/observability"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
	"github.com/yungbote/exampaper-backend/internal/platform/memguard"
	"github.com/yungbote/exampaper-backend/internal/services"
)

type Services struct {
	Collections *collections.Gateway
	Ingestion   *pipeline.Pipeline
	Generator   *questiongen.Generator
	Assembler   *paper.Assembler

	Jobs      services.JobService
	Materials services.MaterialService
	Questions services.QuestionService

	JobRegistry *jobrt.Registry
	// JobWorker is nil when RUN_WORKER is off; queued jobs then wait for a
	// worker process on the same database.
	JobWorker *worker.Worker
}

func wireServices(log *logger.Logger, cfg Config, reposet repos.Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	gateway, err := collections.New(collections.Deps{
		Log:              log,
		Store:            clients.Vectors,
		Embedder:         clients.Embedder,
		EmbedBatch:       cfg.EmbedBatch,
		EmbedParallelism: cfg.EmbedParallelism,
	})
	if err != nil {
		return Services{}, err
	}

	ingestion, err := pipeline.New(pipeline.Deps{
		Log:       log,
		Extractor: clients.Extractor,
		Upserter:  gateway,
		Metrics:   metrics,
	}, cfg.Ingest)
	if err != nil {
		return Services{}, err
	}

	generator, err := questiongen.New(questiongen.Deps{
		Log:     log,
		Model:   clients.Generator,
		Metrics: metrics,
	}, cfg.Generation)
	if err != nil {
		return Services{}, err
	}

	assembler, err := paper.New(paper.Deps{
		Log:         log,
		Collections: gateway,
		Generator:   generator,
		Questions:   reposet.Question,
		Exams:       reposet.Exam,
		Materials:   reposet.Material,
		Metrics:     metrics,
	})
	if err != nil {
		return Services{}, err
	}

	registry := jobrt.NewRegistry()
	ingestJob := ingest_material.New(log, reposet.Material, clients.Blobs, ingestion, max(cfg.MaxUploadBytes, cfg.Ingest.MaxBytes))
	if err := registry.Register(ingestJob); err != nil {
		return Services{}, fmt.Errorf("register %s: %w", ingest_material.JobType, err)
	}

	var jobWorker *worker.Worker
	var wake func()
	if cfg.RunWorker {
		jobWorker = worker.NewWorker(log, reposet.JobRun, registry, metrics, cfg.Worker)
		wake = jobWorker.Wake
	}
	var bus services.Publisher
	if clients.Bus != nil {
		bus = clients.Bus
	}
	jobs := services.NewJobService(log, reposet.JobRun, services.NewJobNotifier(log, wake, bus))

	var heapGuard memguard.Guard
	if cfg.IngestHeapGuard > 0 {
		heapGuard = memguard.NewHeap(cfg.IngestHeapGuard)
	}
	materials := services.NewMaterialService(log, reposet.Material, clients.Blobs, gateway, jobs, services.MaterialServiceConfig{
		IngestEnabled: cfg.IngestEnabled,
		HeapGuard:     heapGuard,
	})
	questions := services.NewQuestionService(log, reposet.Question, assembler)

	return Services{
		Collections: gateway,
		Ingestion:   ingestion,
		Generator:   generator,
		Assembler:   assembler,
		Jobs:        jobs,
		Materials:   materials,
		Questions:   questions,
		JobRegistry: registry,
		JobWorker:   jobWorker,
	}, nil
}
