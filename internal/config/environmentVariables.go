package config

import (
	"log/slog"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//server
	ServerListenAddr       = ":3000"
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//worker pool / ingest job queue
	BufferLimit                     = 100
	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute
	IngestJobTimeout                = 10 * time.Minute

	//redis
	redisHostDefault    = "127.0.0.1"
	redisPortDefault    = "6379"
	RedisJobStoreDB         = 0
	DefaultRedisJobStoreTTL = 24 * time.Hour

	//sqlite store
	SqliteDataDirDefault = "./data"
	StoreStreamThreshold = 5000 // embedded chunk count above which GetAllChunksWithEmbeddings logs its row-by-row scan as a streaming scan

	//upload limits
	MaxUploadBytes = 50 << 20 // 50 MiB

	//retrieval / chunking / embedding defaults, all overridable via env
	DefaultTopK               = 5
	DefaultMinRelevanceScore  = 0.3
	DefaultChunkTokens        = 512
	DefaultChunkOverlapTokens = 50
	DefaultEmbedBatchSize     = 5
	DefaultEmbedBatchDelayMs  = 500

	//model client
	DefaultQueueCapacity    = 50
	DefaultMinIntervalMs    = 6500
	DefaultRequestTimeoutMs = 300000
	BackoffBaseDelay        = 1 * time.Second
	BackoffCapDelay         = 30 * time.Second
	MaxRetries              = 3

	//generation
	DefaultGenTemperature     = 0.2
	MaxGenTemperature         = 0.2 // safety ceiling; callers cannot raise past this
	DefaultGenMaxOutputTokens = 1024

	//embedding / generation provider defaults
	DefaultEmbedProvider = "google"
	DefaultModelProvider = "google"
	GoogleEmbeddingModel = "gemini-embedding-001"
	GeminiModelName      = "gemini-2.5-flash-lite-preview-09-2025"
	OpenAIEmbeddingModel = "text-embedding-3-small"
	OpenAIChatModel      = "gpt-4o-mini"
	AnthropicModel       = "claude-3-5-haiku-latest"

	EmbeddingDimensionGoogle int32 = 1536
	EmbeddingDimensionOpenAI int32 = 1536

	//retriever backend: "inprocess" (default, exact in-process similarity scan) or "ann" (qdrant)
	DefaultRetrieverBackend = "inprocess"
	QdrantCollectionName    = "onboarding-chunks"
	QdrantCacheCollection   = "onboarding-answer-cache"
	QdrantHostDefault       = "127.0.0.1"
	QdrantGrpcPortDefault   = 6334
	QdrantPoolSize          = 2
	QdrantConnectionTimeout = 30 * time.Second
	CacheSimilarityCutoff   = 0.97

	//http transport pooling for outbound model/vector calls
	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	// Fixed system instructions for answer generation, not a caller-tunable.
	GroundingSystemInstructions = "You are an onboarding assistant. Answer ONLY using the information in the provided sources. " +
		"Cite every claim with the matching [SOURCE i] marker. Never use outside knowledge. " +
		"If the sources do not contain the answer, respond with exactly: " +
		"\"" + RefusalString + "\""
)

// Literal fallback/refusal strings shown to end users.
const (
	RefusalString            = "This information is not available in the current onboarding materials. Please contact HR or your manager for clarification."
	EmptyRetrievalFallback   = "I couldn't find any relevant information in the uploaded onboarding documents to answer your question. Please ensure the relevant materials have been uploaded in the Admin section, or try rephrasing your question."
	MissingCitationNote      = "(Note: This answer is based on the uploaded onboarding documents.)"
	UntitledDocumentFallback = "Untitled Document"
)

// Runtime (env-overridable) configuration, read once at process start.
var (
	RedisAddr        = envString("REDIS_ADDR", redisHostDefault+":"+redisPortDefault)
	RedisPassword    = envString("REDIS_PASSWORD", "")
	RedisJobStoreTTL = envDuration("REDIS_JOB_TTL", DefaultRedisJobStoreTTL)

	SqliteDataDir = envString("SQLITE_DATA_DIR", SqliteDataDirDefault)

	QdrantHost   = envString("QDRANT_HOST", QdrantHostDefault)
	QdrantPort   = envInt("QDRANT_PORT", QdrantGrpcPortDefault)
	QdrantUseTLS = envBool("QDRANT_USE_TLS", false)

	TopK               = envInt("RAG_TOP_K", DefaultTopK)
	MinRelevanceScore  = envFloat("MIN_RELEVANCE_SCORE", DefaultMinRelevanceScore)
	ChunkTokens        = envInt("CHUNK_TOKENS", DefaultChunkTokens)
	ChunkOverlapTokens = envInt("CHUNK_OVERLAP_TOKENS", DefaultChunkOverlapTokens)

	EmbedBatchSize    = envInt("EMBED_BATCH_SIZE", DefaultEmbedBatchSize)
	EmbedBatchDelayMs = envInt("EMBED_BATCH_DELAY_MS", DefaultEmbedBatchDelayMs)

	ModelClientQueueCapacity    = envInt("MODEL_CLIENT_QUEUE_CAPACITY", DefaultQueueCapacity)
	ModelClientMinIntervalMs    = envInt("MODEL_CLIENT_MIN_INTERVAL_MS", DefaultMinIntervalMs)
	ModelClientRequestTimeoutMs = envInt("MODEL_CLIENT_REQUEST_TIMEOUT_MS", DefaultRequestTimeoutMs)

	GenTemperature     = clampTemperature(envFloat("GEN_TEMPERATURE", DefaultGenTemperature))
	GenMaxOutputTokens = envInt("GEN_MAX_OUTPUT_TOKENS", DefaultGenMaxOutputTokens)

	EmbedProvider    = envString("EMBED_PROVIDER", DefaultEmbedProvider)
	ModelProvider    = envString("MODEL_PROVIDER", DefaultModelProvider)
	RetrieverBackend = envString("RETRIEVER_BACKEND", DefaultRetrieverBackend)

	GoogleAPIKey    = envString("GOOGLE_API_KEY", "")
	OpenAIAPIKey    = envString("OPENAI_API_KEY", "")
	AnthropicAPIKey = envString("ANTHROPIC_API_KEY", "")
)

// clampTemperature enforces a safety ceiling: callers cannot push
// temperature above MaxGenTemperature regardless of configuration.
func clampTemperature(t float64) float64 {
	if t > MaxGenTemperature {
		return MaxGenTemperature
	}
	if t < 0 {
		return 0
	}
	return t
}
