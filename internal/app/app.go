package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/exampaper-backend/internal/data/db"
	"github.com/yungbote/exampaper-backend/internal/data/repos"
	apphttp "github.com/yungbote/exampaper-backend/internal/http"
	"github.com/yungbote/exampaper-backend/internal/observability"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *apphttp.Server
	Cfg      Config
	Repos    Repos
	Services Services
	Clients  Clients
	Metrics  *observability.Metrics

	dbService    *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

type Repos = repos.Repos

func New() (*App, error) {
	cfg := LoadConfig()
	log, err := logger.NewWithOptions(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log.Info("Configuration loaded", "port", cfg.Port, "db_driver", cfg.DB.Driver, "object_storage", cfg.ObjectStorageMode, "vector_store", cfg.Vector.Provider)

	ctx := context.Background()
	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)
	metrics := observability.Init(log, cfg.Metrics)

	dbService, err := db.Open(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	theDB := dbService.DB()
	if err := db.AutoMigrateAll(theDB); err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	if err := db.EnsureIndexes(theDB); err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	reposet := repos.New(theDB, log)

	clients, err := wireClients(ctx, log, cfg, metrics)
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	serviceset, err := wireServices(log, cfg, reposet, clients, metrics)
	if err != nil {
		clients.Close()
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, cfg, serviceset, clients)
	routerCfg := apphttp.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		CORSOrigins:     cfg.CORSOrigins,
		HealthHandler:   handlerset.Health,
		MaterialHandler: handlerset.Material,
		QuestionHandler: handlerset.Question,
		JobHandler:      handlerset.Job,
	}
	if cfg.Otel.Enabled {
		routerCfg.ServiceName = cfg.Otel.ServiceName
	}

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       apphttp.NewServer(":"+cfg.Port, routerCfg),
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Clients:      clients,
		Metrics:      metrics,
		dbService:    dbService,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background loops: the job worker pool, the cross-process
// wake-up forwarder and the job queue gauge collector.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if w := a.Services.JobWorker; w != nil {
		w.Start(ctx)
		if a.Clients.Bus != nil {
			if err := a.Clients.Bus.StartForwarder(ctx, func(string) { w.Wake() }); err != nil {
				a.Log.Warn("Job wake-up forwarder not started", "error", err)
			}
		}
	}
	if a.Metrics != nil {
		a.Metrics.StartJobQueueCollector(ctx, a.Log, a.DB, a.Cfg.JobQueueInterval)
	}
}

// Run serves HTTP until the server is shut down.
func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return errors.New("app not initialized")
	}
	a.Log.Info("HTTP server listening", "port", a.Cfg.Port)
	return a.Server.Run()
}

// Close stops the server, drains the worker and releases clients, in that
// order.
func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Log.Warn("HTTP shutdown failed", "error", err)
		}
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
		if a.Services.JobWorker != nil {
			waitOrTimeout(ctx, a.Services.JobWorker.Wait)
		}
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.dbService != nil {
		_ = a.dbService.Close()
	}
	a.Log.Sync()
}

func waitOrTimeout(ctx context.Context, wait func()) {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
	}
}
