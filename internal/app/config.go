package app

import (
	"strings"
	"time"

	"github.com/yungbote/exampaper-backend/internal/data/db"
	"github.com/yungbote/exampaper-backend/internal/jobs/worker"
	"github.com/yungbote/exampaper-backend/internal/modules/collections"
	"github.com/yungbote/exampaper-backend/internal/modules/ingestion/chunker"
	"github.com/yungbote/exampaper-backend/internal/modules/ingestion/pipeline"
	"github.com/yungbote/exampaper-backend/internal/modules/questiongen"
	"github.com/yungbote/exampaper-backend/internal/observability"
	"github.com/yungbote/exampaper-backend/internal/platform/chroma"
	"github.com/yungbote/exampaper-backend/internal/platform/envutil"
	"github.com/yungbote/exampaper-backend/internal/platform/gcp"
	"github.com/yungbote/exampaper-backend/internal/platform/gemini"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
	"github.com/yungbote/exampaper-backend/internal/platform/objectstore"
	"github.com/yungbote/exampaper-backend/internal/platform/ollama"
	"github.com/yungbote/exampaper-backend/internal/platform/openai"
	"github.com/yungbote/exampaper-backend/internal/platform/qdrant"
	"github.com/yungbote/exampaper-backend/internal/platform/redisbus"
)

const (
	StorageModeLocal = "local"
	StorageModeMinio = "minio"
)

// Config is read from the environment once at startup. Nothing below app
// reads env after this.
type Config struct {
	Port          string
	ShutdownGrace time.Duration
	Log           logger.Options
	CORSOrigins   []string
	Metrics       bool
	Otel          observability.OtelConfig

	DB db.Config

	ObjectStorageMode string
	LocalStorageDir   string
	LocalPublicURL    string
	Minio             objectstore.MinioConfig
	GCSBucket         gcp.BucketConfig
	StorageEmulator   string
	DocumentAI        gcp.DocumentAIConfig

	Vector           collections.ProviderConfig
	EmbedBatch       int
	EmbedParallelism int

	EmbeddingProvider  string
	GenerationProvider string
	Ollama             ollama.Config
	OpenAI             openai.Config
	Gemini             gemini.Config

	Generation questiongen.Config

	IngestEnabled    bool
	IngestHeapGuard  float64
	Ingest           pipeline.Config
	MaxUploadBytes   int64
	Redis            redisbus.Config
	Worker           worker.Config
	RunWorker        bool
	JobQueueInterval time.Duration
}

func LoadConfig() Config {
	mode := envutil.String("LOG_MODE", "development")
	return Config{
		Port:          envutil.String("PORT", "8080"),
		ShutdownGrace: envutil.Duration("SHUTDOWN_GRACE_SECONDS", 20*time.Second, time.Second),
		Log: logger.Options{
			Mode:             mode,
			Level:            envutil.String("LOG_LEVEL", ""),
			File:             envutil.String("LOG_FILE", ""),
			FileMaxSizeMB:    envutil.Int("LOG_FILE_MAX_SIZE_MB", 100),
			FileMaxBackups:   envutil.Int("LOG_FILE_MAX_BACKUPS", 5),
			FileMaxAgeDays:   envutil.Int("LOG_FILE_MAX_AGE_DAYS", 14),
			DisableRedaction: !envutil.Bool("LOG_REDACTION_ENABLED", true),
			HashSalt:         envutil.String("LOG_HASH_SALT", ""),
		},
		CORSOrigins: splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),
		Metrics:     envutil.Bool("METRICS_ENABLED", true),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "exampaper-backend"),
			Environment: envutil.String("OTEL_ENVIRONMENT", mode),
			Version:     envutil.String("OTEL_SERVICE_VERSION", ""),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", ""),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 1),
		},

		DB: db.Config{
			Driver:           envutil.String("DB_DRIVER", db.DriverPostgres),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "exampaper"),
			PostgresSSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:       envutil.String("SQLITE_PATH", "exampaper.db"),
			SlowThreshold:    envutil.Duration("DB_SLOW_QUERY_MS", 500*time.Millisecond, time.Millisecond),
			MaxOpenConns:     envutil.Int("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:     envutil.Int("DB_MAX_IDLE_CONNS", 10),
		},

		ObjectStorageMode: strings.ToLower(envutil.String("OBJECT_STORAGE_MODE", StorageModeLocal)),
		LocalStorageDir:   envutil.String("LOCAL_STORAGE_DIR", "uploads"),
		LocalPublicURL:    envutil.String("LOCAL_STORAGE_PUBLIC_URL", ""),
		Minio: objectstore.MinioConfig{
			Endpoint:      envutil.String("MINIO_ENDPOINT", ""),
			AccessKey:     envutil.String("MINIO_ACCESS_KEY", ""),
			SecretKey:     envutil.String("MINIO_SECRET_KEY", ""),
			Bucket:        envutil.String("MINIO_BUCKET", "materials"),
			UseSSL:        envutil.Bool("MINIO_USE_SSL", false),
			PublicBaseURL: envutil.String("MINIO_PUBLIC_BASE_URL", ""),
		},
		GCSBucket: gcp.BucketConfig{
			Bucket:        envutil.String("MATERIAL_GCS_BUCKET_NAME", ""),
			CDNDomain:     envutil.String("MATERIAL_CDN_DOMAIN", ""),
			PublicBaseURL: envutil.String("MATERIAL_PUBLIC_BASE_URL", ""),
			Credentials:   envutil.String("GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
		StorageEmulator: envutil.String("STORAGE_EMULATOR_HOST", ""),
		DocumentAI: gcp.DocumentAIConfig{
			ProjectID:        envutil.String("DOCUMENTAI_PROJECT_ID", ""),
			Location:         envutil.String("DOCUMENTAI_LOCATION", "us"),
			ProcessorID:      envutil.String("DOCUMENTAI_PROCESSOR_ID", ""),
			ProcessorVersion: envutil.String("DOCUMENTAI_PROCESSOR_VERSION", ""),
			Credentials:      envutil.String("GOOGLE_APPLICATION_CREDENTIALS", ""),
			Timeout:          envutil.Duration("DOCUMENTAI_TIMEOUT_SECONDS", 120*time.Second, time.Second),
		},

		Vector: collections.ProviderConfig{
			Provider: envutil.String("VECTOR_STORE_PROVIDER", chroma.ProviderName),
			Chroma: chroma.Config{
				URL:          envutil.String("CHROMA_URL", "http://localhost:8000"),
				Timeout:      envutil.Duration("CHROMA_TIMEOUT_SECONDS", 30*time.Second, time.Second),
				QueryTimeout: envutil.Duration("CHROMA_QUERY_TIMEOUT_SECONDS", 15*time.Second, time.Second),
				GetPageSize:  envutil.Int("CHROMA_GET_PAGE_SIZE", 0),
			},
			Qdrant: qdrant.Config{
				URL:            envutil.String("QDRANT_URL", "http://localhost:6333"),
				VectorDim:      envutil.Int("QDRANT_VECTOR_DIM", 768),
				Distance:       envutil.String("QDRANT_DISTANCE", "Cosine"),
				Timeout:        envutil.Duration("QDRANT_TIMEOUT_SECONDS", 30*time.Second, time.Second),
				ScrollPageSize: envutil.Int("QDRANT_SCROLL_PAGE_SIZE", 0),
			},
		},
		EmbedBatch:       envutil.Int("EMBED_BATCH_SIZE", 16),
		EmbedParallelism: envutil.Int("EMBED_PARALLELISM", 4),

		EmbeddingProvider:  strings.ToLower(envutil.String("EMBEDDING_PROVIDER", ollama.ProviderName)),
		GenerationProvider: strings.ToLower(envutil.String("GENERATION_PROVIDER", ollama.ProviderName)),
		Ollama: ollama.Config{
			BaseURL:    envutil.String("OLLAMA_BASE_URL", "http://localhost:11434"),
			Model:      envutil.String("OLLAMA_MODEL", "mistral"),
			EmbedModel: envutil.String("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
			Timeout:    envutil.Duration("OLLAMA_TIMEOUT_SECONDS", 120*time.Second, time.Second),
			JSONMode:   envutil.Bool("OLLAMA_JSON_MODE", true),
		},
		OpenAI: openai.Config{
			APIKey:     envutil.String("OPENAI_API_KEY", ""),
			BaseURL:    envutil.String("OPENAI_BASE_URL", ""),
			Model:      envutil.String("OPENAI_MODEL", ""),
			EmbedModel: envutil.String("OPENAI_EMBED_MODEL", ""),
			Timeout:    envutil.Duration("OPENAI_TIMEOUT_SECONDS", 60*time.Second, time.Second),
			MaxRetries: envutil.Int("OPENAI_MAX_RETRIES", 2),
		},
		Gemini: gemini.Config{
			APIKey:     envutil.String("GEMINI_API_KEY", ""),
			Model:      envutil.String("GEMINI_MODEL", "gemini-1.5-flash"),
			EmbedModel: envutil.String("GEMINI_EMBED_MODEL", "text-embedding-004"),
			JSONMode:   envutil.Bool("GEMINI_JSON_MODE", true),
		},

		Generation: questiongen.Config{
			MaxRetries: envutil.Int("GENERATION_MAX_RETRIES", questiongen.DefaultMaxRetries),
			Timeout:    envutil.Duration("GENERATION_TIMEOUT_SECONDS", questiongen.DefaultTimeout, time.Second),
			RetryBase:  envutil.Duration("GENERATION_RETRY_BASE_MS", questiongen.DefaultRetryBase, time.Millisecond),
			RPS:        envutil.Float("GENERATION_RPS", 0),
		},

		IngestEnabled:   envutil.Bool("INGEST_ENABLED", false),
		IngestHeapGuard: envutil.Float("INGEST_HEAP_GUARD_MB", 1024),
		Ingest: pipeline.Config{
			MaxBytes:  envutil.Int64("INGEST_MAX_BYTES", 12*1024*1024),
			MaxPages:  envutil.Int("INGEST_MAX_PAGES", 80),
			BatchSize: envutil.Int("INGEST_BATCH_SIZE", 25),
			Chunk: chunker.Options{
				Size:      envutil.Int("INGEST_CHUNK_SIZE", 1200),
				Overlap:   envutil.Int("INGEST_CHUNK_OVERLAP", 150),
				MaxChunks: envutil.Int("INGEST_MAX_CHUNKS", 300),
			},
			ChunkHeapMB: envutil.Float("INGEST_CHUNK_HEAP_MB", 1500),
			BatchHeapMB: envutil.Float("INGEST_BATCH_HEAP_MB", 1800),
		},
		MaxUploadBytes: envutil.Int64("MAX_FILE_SIZE", 10*1024*1024),
		Redis: redisbus.Config{
			Addr:    envutil.String("REDIS_ADDR", ""),
			Channel: envutil.String("REDIS_CHANNEL", "jobs"),
		},
		Worker: worker.Config{
			Concurrency:  envutil.Int("WORKER_CONCURRENCY", 2),
			PollInterval: envutil.Duration("WORKER_POLL_INTERVAL_MS", time.Second, time.Millisecond),
			MaxAttempts:  envutil.Int("JOB_MAX_ATTEMPTS", 3),
			RetryDelay:   envutil.Duration("JOB_RETRY_DELAY_SECONDS", 30*time.Second, time.Second),
			StaleRunning: envutil.Duration("JOB_STALE_RUNNING_SECONDS", 30*time.Minute, time.Second),
			JobTimeout:   envutil.Duration("JOB_TIMEOUT_SECONDS", 15*time.Minute, time.Second),
		},
		RunWorker:        envutil.Bool("RUN_WORKER", true),
		JobQueueInterval: envutil.Duration("JOB_QUEUE_METRICS_INTERVAL_SECONDS", 15*time.Second, time.Second),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
