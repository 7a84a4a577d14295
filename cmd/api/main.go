// @title           Onboarding RAG API
// @version         1.0
// @description     Retrieval-augmented question answering over uploaded onboarding documents.
// @termsOfService  http://swagger.io/terms/

// @contact.name    me lol
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/onboardrag/core/internal/config"
	"github.com/onboardrag/core/internal/data/store"
	jobmodel "github.com/onboardrag/core/internal/domain/jobModel"
	"github.com/onboardrag/core/internal/handlers"
	"github.com/onboardrag/core/internal/job"
	"github.com/onboardrag/core/internal/mcpserver"
	"github.com/onboardrag/core/internal/metrics"
	"github.com/onboardrag/core/internal/rag"
	"github.com/onboardrag/core/internal/rag/answerer"
	"github.com/onboardrag/core/internal/rag/embedder"
	"github.com/onboardrag/core/internal/rag/embedding/googleembed"
	"github.com/onboardrag/core/internal/rag/embedding/openaiembed"
	"github.com/onboardrag/core/internal/rag/ingest"
	"github.com/onboardrag/core/internal/rag/modelclient"
	"github.com/onboardrag/core/internal/rag/modelclient/anthropicgen"
	"github.com/onboardrag/core/internal/rag/modelclient/gemini"
	"github.com/onboardrag/core/internal/rag/modelclient/openaichat"
	"github.com/onboardrag/core/internal/rag/retriever"
	"github.com/onboardrag/core/internal/rag/stats"
	"github.com/onboardrag/core/internal/server"
	"github.com/onboardrag/core/internal/store/qdrantindex"
	"github.com/onboardrag/core/internal/store/sqlitestore"
	"github.com/onboardrag/core/internal/worker"
	"github.com/onboardrag/core/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {
	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.Parse()

	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
	}
	logger.Info("Starting job service")

	if redisJobStore := store.GetRedisJobStore(serviceContext); redisJobStore != nil {
		serviceConfig.JobStore = redisJobStore
	} else {
		logger.Error("Redis job store is offline, falling back to in-memory job store")
		serviceConfig.JobStore = store.InitInMemoryJobStore()
	}
	jobService := job.InitJobService(serviceConfig)

	sqliteStore, err := sqlitestore.NewStore(config.SqliteDataDir)
	if err != nil {
		logger.Error("failed to open sqlite store, shutting down", "error", err)
		return
	}

	embedderClient, generatorClient, err := buildModelProviders(serviceContext)
	if err != nil {
		logger.Error("failed to initialize model providers, shutting down", "error", err)
		return
	}
	modelClient := modelclient.New(embedderClient, generatorClient, modelclient.Config{
		QueueCapacity:      config.ModelClientQueueCapacity,
		MinInterval:        time.Duration(config.ModelClientMinIntervalMs) * time.Millisecond,
		RequestTimeout:     time.Duration(config.ModelClientRequestTimeoutMs) * time.Millisecond,
		MaxRetries:         config.MaxRetries,
		BackoffBaseDelay:   config.BackoffBaseDelay,
		BackoffCapDelay:    config.BackoffCapDelay,
		GenTemperature:     config.GenTemperature,
		GenMaxOutputTokens: config.GenMaxOutputTokens,
	})
	defer modelClient.Close()

	chunkEmbedder := embedder.New(modelClient, config.EmbedBatchSize, time.Duration(config.EmbedBatchDelayMs)*time.Millisecond)

	var ann *qdrantindex.Index
	if config.RetrieverBackend == "ann" {
		ann, err = qdrantindex.New(serviceContext, qdrantindex.Config{
			Host:            config.QdrantHost,
			Port:            config.QdrantPort,
			UseTLS:          config.QdrantUseTLS,
			PoolSize:        config.QdrantPoolSize,
			Collection:      config.QdrantCollectionName,
			CacheCollection: config.QdrantCacheCollection,
			Dimension:       chunkEmbedder.Dimension(),
		})
		if err != nil {
			logger.Error("failed to initialize qdrant ann index, shutting down", "error", err)
			return
		}
	}

	var ingestIndex ingest.Index
	var serviceIndex rag.Index
	if ann != nil {
		ingestIndex = ann
		serviceIndex = ann
	}

	ingestor := ingest.New(sqliteStore, ingestIndex, chunkEmbedder, config.ChunkTokens, config.ChunkOverlapTokens)

	var retrieverImpl rag.Retriever
	if ann != nil {
		retrieverImpl = retriever.NewANN(modelClient, ann)
	} else {
		retrieverImpl = retriever.NewInProcess(modelClient, sqliteStore, config.StoreStreamThreshold)
	}

	ans := answerer.New(retrieverImpl, modelClient, answerer.Config{
		SystemInstructions:     config.GroundingSystemInstructions,
		EmptyRetrievalFallback: config.EmptyRetrievalFallback,
		MissingCitationNote:    config.MissingCitationNote,
		Temperature:            config.GenTemperature,
		MaxOutputTokens:        config.GenMaxOutputTokens,
		TopK:                   config.TopK,
		MinRelevanceScore:      config.MinRelevanceScore,
		CacheSimilarityCutoff:  config.CacheSimilarityCutoff,
	})
	if ann != nil {
		ans = ans.WithCache(ann, modelClient)
	}

	statsService := stats.New(sqliteStore)

	ragService := rag.NewService(ingestor, ans, statsService, sqliteStore, serviceIndex)

	handlers.InitJobHandler(jobService, ragService)

	worker.InitServices(jobService, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	mcpStop := make(chan struct{})
	go mcpserver.Serve(serviceContext, ragService, mcpStop)

	go refreshKnowledgeBaseMetrics(serviceContext, ragService)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	close(mcpStop)
	logger.Info("Server stopped")
}

// refreshKnowledgeBaseMetrics keeps the kb_documents_with_embeddings
// and kb_ready gauges current by polling ragService.Stats every 30
// seconds.
func refreshKnowledgeBaseMetrics(ctx context.Context, ragService rag.Service) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		summary, err := ragService.Stats(ctx)
		if err == nil {
			metrics.SetKnowledgeBaseMetrics(summary.DocumentsWithEmbeddings, summary.IsReady)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// buildModelProviders selects the embedding and generation provider
// implementations named by EMBED_PROVIDER/MODEL_PROVIDER. The two
// choices are independent: MODEL_PROVIDER=anthropic still needs a
// Google or OpenAI EMBED_PROVIDER, since Anthropic has no embeddings
// endpoint.
func buildModelProviders(ctx context.Context) (modelclient.Embedder, modelclient.Generator, error) {
	var embedderClient modelclient.Embedder
	var err error
	switch config.EmbedProvider {
	case "openai":
		embedderClient = openaiembed.New(config.OpenAIAPIKey, config.OpenAIEmbeddingModel, config.EmbeddingDimensionOpenAI)
	default:
		embedderClient, err = googleembed.New(ctx, config.GoogleAPIKey, config.GoogleEmbeddingModel, config.EmbeddingDimensionGoogle)
	}
	if err != nil {
		return nil, nil, err
	}

	var generatorClient modelclient.Generator
	switch config.ModelProvider {
	case "openai":
		generatorClient = openaichat.New(config.OpenAIAPIKey, config.OpenAIChatModel)
	case "anthropic":
		generatorClient = anthropicgen.New(config.AnthropicAPIKey, config.AnthropicModel)
	default:
		generatorClient, err = gemini.New(ctx, config.GoogleAPIKey, config.GeminiModelName)
	}
	if err != nil {
		return nil, nil, err
	}

	return embedderClient, generatorClient, nil
}
