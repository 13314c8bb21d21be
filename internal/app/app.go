package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	chatrepo "github.com/yungbote/recall-backend/internal/data/repos/chat"
	jobsrepo "github.com/yungbote/recall-backend/internal/data/repos/jobs"
	memoryrepo "github.com/yungbote/recall-backend/internal/data/repos/memory"
	"github.com/yungbote/recall-backend/internal/db"
	httpapi "github.com/yungbote/recall-backend/internal/http"
	httpH "github.com/yungbote/recall-backend/internal/http/handlers"
	"github.com/yungbote/recall-backend/internal/jobs/pipeline/memory_extract"
	"github.com/yungbote/recall-backend/internal/jobs/pipeline/session_summarize"
	jobrt "github.com/yungbote/recall-backend/internal/jobs/runtime"
	"github.com/yungbote/recall-backend/internal/jobs/worker"
	"github.com/yungbote/recall-backend/internal/memory"
	"github.com/yungbote/recall-backend/internal/observability"
	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/platform/openai"
	"github.com/yungbote/recall-backend/internal/realtime"
	"github.com/yungbote/recall-backend/internal/services"
)

// App holds the wired dependency graph. The server and worker binaries
// build the same graph and start different edges of it.
type App struct {
	Log    *logger.Logger
	Cfg    Config
	DB     *gorm.DB
	Server *httpapi.Server
	Worker *worker.Worker

	pg           *db.PostgresService
	bus          realtime.WakeBus
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig()

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "recall-backend",
		Environment: os.Getenv("APP_ENV"),
		Version:     os.Getenv("APP_VERSION"),
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	// Repos
	sessionRepo := chatrepo.NewSessionRepo(theDB, log)
	memRepo := memoryrepo.NewMemoryRepo(theDB, log)
	jobRepo := jobsrepo.NewJobRunRepo(theDB, log)

	// External clients
	ai, err := openai.NewClient(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init openai: %w", err)
	}
	index, err := newVectorIndex(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init vector index: %w", err)
	}

	bus, busErr := realtime.NewRedisWakeBus(log)
	if busErr != nil {
		log.Warn("Wake bus unavailable; job pickup falls back to polling", "error", busErr)
		bus = nil
	}

	// Memory engine
	extractor := memory.NewExtractor(ai, log)
	consolidator := memory.NewConsolidator(ai, log)
	topics := memory.NewTopicDetector(ai, log)
	summarizer := memory.NewSummarizer(ai, log)
	store := memory.NewStore(memRepo, index, ai, log)
	retriever := memory.NewRetriever(store, ai, cfg.MemorySearchLimit, log)

	// Services
	jobService := services.NewJobService(theDB, log, jobRepo, bus)
	lifecycle := services.NewLifecycle(log, sessionRepo, jobService, topics, int64(cfg.SummaryThreshold))
	sessionService := services.NewSessionService(theDB, log, sessionRepo)
	memoryService := services.NewMemoryService(theDB, log, store)
	chatService := services.NewChatService(theDB, log, sessionRepo, sessionService, retriever, ai, lifecycle, cfg.MessageLimit)
	kgraph := services.NewKGraphClient(log)

	// Worker registry
	registry := jobrt.NewRegistry()
	if err := registry.Register(memory_extract.New(theDB, log, sessionRepo, extractor, consolidator, store, retriever, kgraph)); err != nil {
		log.Sync()
		return nil, err
	}
	if err := registry.Register(session_summarize.New(theDB, log, sessionRepo, summarizer, ai, index, cfg.MessageLimit)); err != nil {
		log.Sync()
		return nil, err
	}
	jobWorker := worker.New(theDB, log, jobRepo, registry, bus, cfg.WorkerConcurrency)

	// HTTP surface
	server := httpapi.NewServer(httpapi.RouterConfig{
		Log:            log,
		ChatHandler:    httpH.NewChatHandler(chatService, log),
		SessionHandler: httpH.NewSessionHandler(sessionService),
		MemoryHandler:  httpH.NewMemoryHandler(memoryService),
		HealthHandler:  httpH.NewHealthHandler(pg, index),
	})

	return &App{
		Log:          log,
		Cfg:          cfg,
		DB:           theDB,
		Server:       server,
		Worker:       jobWorker,
		pg:           pg,
		bus:          bus,
		otelShutdown: otelShutdown,
	}, nil
}

// RunServer blocks serving HTTP.
func (a *App) RunServer() error {
	a.Log.Info("HTTP server starting", "addr", a.Cfg.HTTPAddr)
	return a.Server.Run(a.Cfg.HTTPAddr)
}

// RunWorker blocks draining the job queue until ctx is canceled.
func (a *App) RunWorker(ctx context.Context) error {
	a.Log.Info("Job worker starting", "concurrency", a.Cfg.WorkerConcurrency)
	return a.Worker.Run(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.bus != nil {
		_ = a.bus.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.otelShutdown(ctx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
