package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-corpus/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-corpus/internal/adapters/driven/auth"
	memoryevents "github.com/custodia-labs/sercha-corpus/internal/adapters/driven/events/memory"
	natsevents "github.com/custodia-labs/sercha-corpus/internal/adapters/driven/events/nats"
	"github.com/custodia-labs/sercha-corpus/internal/adapters/driven/index"
	"github.com/custodia-labs/sercha-corpus/internal/adapters/driven/index/chromem"
	memoryindex "github.com/custodia-labs/sercha-corpus/internal/adapters/driven/index/memory"
	"github.com/custodia-labs/sercha-corpus/internal/adapters/driven/index/pgvector"
	"github.com/custodia-labs/sercha-corpus/internal/adapters/driven/index/qdrant"
	"github.com/custodia-labs/sercha-corpus/internal/adapters/driven/postgres"
	postgresqueue "github.com/custodia-labs/sercha-corpus/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/custodia-labs/sercha-corpus/internal/adapters/driven/queue/redis"
	redisadapter "github.com/custodia-labs/sercha-corpus/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-corpus/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-corpus/internal/config"
	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-corpus/internal/core/services"
	"github.com/custodia-labs/sercha-corpus/internal/metrics"
	"github.com/custodia-labs/sercha-corpus/internal/normalisers"
	"github.com/custodia-labs/sercha-corpus/internal/postprocessors"
	"github.com/custodia-labs/sercha-corpus/internal/runtime"
	"github.com/custodia-labs/sercha-corpus/internal/worker"
)

// Session, event and index backend names reported by /ready
const (
	backendPostgres = "postgres"
	backendRedis    = "redis"
	backendMemory   = "memory"
	backendNATS     = "nats"
)

// app owns every long lived dependency of one process
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db          *postgres.DB
	redisClient *goredis.Client
	index       driven.CorpusIndex
	events      driven.EventBus
	taskQueue   driven.TaskQueue
	lock        driven.DistributedLock
	runtime     *runtime.Services
	metrics     *metrics.Metrics

	documentStore driven.DocumentStore
	auth          driving.AuthService
	users         driving.UserService
	documents     driving.DocumentService
	query         driving.QueryService
	pipeline      *services.Pipeline

	closers []func() error
}

func postgresConfig(cfg *config.Config) postgres.Config {
	return postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}
}

// newApp connects every backend and builds the services. On error the
// backends opened so far are closed.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrate bool) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err = a.connectStores(ctx, migrate); err != nil {
		return nil, err
	}

	factory := ai.NewFactory(
		ai.EmbeddingOptions{
			Provider:   cfg.Embedding.Provider,
			Model:      cfg.Embedding.Model,
			BaseURL:    cfg.Embedding.BaseURL,
			APIKey:     cfg.Embedding.APIKey,
			Dimensions: cfg.Embedding.Dimensions,
			RateLimit:  cfg.Embedding.RateLimit,
			RateBurst:  cfg.Embedding.RateBurst,
		},
		ai.GeneratorOptions{
			Provider: cfg.Generator.Provider,
			Model:    cfg.Generator.Model,
			BaseURL:  cfg.Generator.BaseURL,
			APIKey:   cfg.Generator.APIKey,
			Timeout:  cfg.Generator.Timeout,
		},
	)
	embedder, err := factory.CreateEmbedder()
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	generator, err := factory.CreateGenerator()
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	logger.Info("ai services configured",
		"embedding_provider", cfg.Embedding.Provider,
		"embedding_dimensions", embedder.Dimensions(),
		"generator_provider", cfg.Generator.Provider,
	)

	if err = a.openIndex(ctx, embedder.Dimensions()); err != nil {
		return nil, err
	}
	if err = a.openEvents(); err != nil {
		return nil, err
	}

	sessionBackend := backendPostgres
	if a.redisClient != nil {
		sessionBackend = backendRedis
	}
	a.runtime = runtime.NewServices(
		domain.NewRuntimeConfig(sessionBackend, cfg.Index.Backend, cfg.Events.Backend),
		embedder, generator,
	)
	a.closers = append(a.closers, a.runtime.Close)

	caps, healthErr := a.runtime.CheckHealth(ctx)
	if healthErr != nil {
		logger.Warn("ai services not reachable at startup", "error", healthErr)
	}
	logger.Info("capabilities", "embedding", caps.EmbeddingAvailable, "generator", caps.GeneratorAvailable)

	a.buildServices(embedder, generator)
	return a, nil
}

func (a *app) connectStores(ctx context.Context, migrate bool) error {
	db, err := postgres.Connect(ctx, postgresConfig(a.cfg))
	if err != nil {
		return err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	a.logger.Info("connected to postgres")

	if migrate {
		if err := db.InitSchema(ctx); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	cipher, err := postgres.NewPayloadCipherFromHex(a.cfg.Database.PayloadKey)
	if err != nil {
		return fmt.Errorf("payload key: %w", err)
	}
	if cipher != nil {
		a.logger.Info("document payloads encrypted at rest")
	}
	a.documentStore = postgres.NewDocumentStore(db, cipher)

	if a.cfg.Redis.URL == "" {
		a.taskQueue = postgresqueue.NewQueue(db.DB)
		a.lock = postgres.NewAdvisoryLock(db)
		a.logger.Info("using postgres for sessions, queue and locks")
		return nil
	}

	client, err := redisadapter.ParseURL(a.cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("redis url: %w", err)
	}
	a.redisClient = client
	a.closers = append(a.closers, client.Close)
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	hostname, _ := os.Hostname()
	queue, err := redisqueue.NewQueue(ctx, client, redisqueue.Config{
		Consumer: fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		Logger:   a.logger,
	})
	if err != nil {
		return fmt.Errorf("redis queue: %w", err)
	}
	a.taskQueue = queue
	a.lock = redisadapter.NewLock(client, "")
	a.logger.Info("using redis for sessions, queue and locks")
	return nil
}

func (a *app) openIndex(ctx context.Context, dims int) error {
	cfg := a.cfg.Index
	switch cfg.Backend {
	case index.BackendMemory:
		a.index = memoryindex.New()
	case index.BackendChromem:
		x, err := chromem.New(cfg.ChromemPath, false)
		if err != nil {
			return fmt.Errorf("chromem index: %w", err)
		}
		a.index = x
	case index.BackendPGVector:
		x, err := pgvector.New(ctx, pgvector.Config{
			URL:        a.cfg.Database.URL,
			Table:      cfg.Collection,
			Dimensions: dims,
			Logger:     a.logger,
		})
		if err != nil {
			return fmt.Errorf("pgvector index: %w", err)
		}
		a.index = x
	case index.BackendQdrant:
		x, err := qdrant.New(ctx, qdrant.Config{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			UseTLS:     cfg.QdrantTLS,
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			Collection: cfg.Collection,
			Dimensions: dims,
			Logger:     a.logger,
		})
		if err != nil {
			return fmt.Errorf("qdrant index: %w", err)
		}
		a.index = x
	default:
		return fmt.Errorf("unknown index backend %q", cfg.Backend)
	}
	a.closers = append(a.closers, a.index.Close)
	a.logger.Info("corpus index ready", "backend", cfg.Backend, "dimensions", dims)
	return nil
}

func (a *app) openEvents() error {
	switch a.cfg.Events.Backend {
	case backendMemory, "":
		a.events = memoryevents.New()
	case backendRedis:
		if a.redisClient == nil {
			return errors.New("redis event backend requires REDIS_URL")
		}
		a.events = redisadapter.NewEventBus(a.redisClient, "", a.logger)
	case backendNATS:
		bus, err := natsevents.Connect(a.cfg.Events.NATSURL, a.logger)
		if err != nil {
			return fmt.Errorf("nats events: %w", err)
		}
		a.events = bus
	default:
		return fmt.Errorf("unknown events backend %q", a.cfg.Events.Backend)
	}
	a.closers = append(a.closers, a.events.Close)
	return nil
}

func (a *app) buildServices(embedder driven.Embedder, generator driven.TextGenerator) {
	cfg := a.cfg

	var sessions driven.SessionStore = postgres.NewSessionStore(a.db)
	if a.redisClient != nil {
		sessions = redisadapter.NewSessionStore(a.redisClient, "")
	}
	userStore := postgres.NewUserStore(a.db)
	authAdapter := auth.NewAdapter(cfg.Auth.JWTSecret)

	a.auth = services.NewAuthService(userStore, sessions, authAdapter, cfg.Auth.TokenTTL)
	a.users = services.NewUserService(userStore, authAdapter)
	a.documents = services.NewDocumentService(services.DocumentServiceConfig{
		Documents:      a.documentStore,
		Index:          a.index,
		TaskQueue:      a.taskQueue,
		Events:         a.events,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Metrics:        a.metrics,
		Logger:         a.logger,
	})

	retriever := services.NewRetriever(services.RetrieverConfig{
		Documents: a.documentStore,
		Index:     a.index,
		Embedder:  embedder,
		Keywords:  ai.KeywordRanker{},
		MaxTopK:   cfg.Query.MaxTopK,
		Logger:    a.logger,
	})
	synthesizer := services.NewSynthesizer(services.SynthesizerConfig{
		Generator: generator,
		Timeout:   cfg.Generator.Timeout,
		Logger:    a.logger,
	})
	a.query = services.NewQueryService(services.QueryServiceConfig{
		Retriever:   retriever,
		Synthesizer: synthesizer,
		DefaultTopK: cfg.Query.DefaultTopK,
		Metrics:     a.metrics,
		Logger:      a.logger,
	})

	a.buildPipeline(embedder)
}

func (a *app) buildPipeline(embedder driven.Embedder) {
	cfg := a.cfg
	chunker, err := postprocessors.NewDefaultPipeline(postprocessors.ChunkConfig{
		MaxChars:       cfg.Chunking.MaxChars,
		Overlap:        cfg.Chunking.Overlap,
		BoundaryWindow: cfg.Chunking.BoundaryWindow,
	})
	if err != nil {
		// config.Load validates chunking first
		a.logger.Error("invalid chunk config, using defaults", "error", err)
		chunker, _ = postprocessors.NewDefaultPipeline(postprocessors.DefaultChunkConfig())
	}
	a.pipeline = services.NewPipeline(services.PipelineConfig{
		Documents:    a.documentStore,
		Index:        a.index,
		Embedder:     embedder,
		Normalisers:  normalisers.DefaultRegistry(),
		Chunker:      chunker,
		Events:       a.events,
		Metrics:      a.metrics,
		Logger:       a.logger,
		EmbedRetries: cfg.Ingest.EmbedRetries,
		EmbedBackoff: cfg.Ingest.EmbedBackoff,
	})
}

// runWorker processes ingestion tasks until ctx is cancelled
func (a *app) runWorker(ctx context.Context) error {
	cfg := a.cfg

	var scheduler *services.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler = services.NewScheduler(services.SchedulerConfig{
			TaskQueue:    a.taskQueue,
			Lock:         a.lock,
			Logger:       a.logger,
			Schedule:     domain.DefaultSchedule(cfg.Scheduler.RecoverEvery, cfg.Scheduler.PurgeEvery),
			LockRequired: cfg.Scheduler.LockRequired,
		})
	}

	w := worker.NewWorker(worker.WorkerConfig{
		TaskQueue:      a.taskQueue,
		Processor:      a.pipeline,
		Documents:      a.documentStore,
		Scheduler:      scheduler,
		Metrics:        a.metrics,
		Logger:         a.logger,
		Concurrency:    cfg.Worker.Concurrency,
		DequeueTimeout: cfg.Worker.DequeueTimeout,
		StallAfter:     cfg.Ingest.StallAfter,
		PurgeOlderThan: cfg.Scheduler.PurgeOlderThan,
	})
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	<-ctx.Done()
	w.Stop()
	return nil
}

func (a *app) newServer() *http.Server {
	checks := map[string]http.Pinger{
		"database": a.db,
		"index":    a.index,
		"queue":    a.taskQueue,
	}
	if a.redisClient != nil {
		checks["redis"] = a.lock
	}

	return http.NewServer(
		http.Config{
			Host:           a.cfg.Server.Host,
			Port:           a.cfg.Server.Port,
			Version:        version,
			MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
			CORSOrigins:    splitOrigins(a.cfg.Server.CORSOrigins),
			Logger:         a.logger,
		},
		http.Dependencies{
			Auth:      a.auth,
			Users:     a.users,
			Documents: a.documents,
			Query:     a.query,
			Runtime:   a.runtime,
			Metrics:   a.metrics,
			Checks:    checks,
		},
	)
}

// Close releases backends in reverse order of opening
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
