// Package clinrag provides the clinical RAG server implementation.
package clinrag

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/clinrag/internal/clinrag/biz"
	"github.com/kart-io/clinrag/internal/clinrag/clinvec"
	"github.com/kart-io/clinrag/internal/clinrag/handler"
	"github.com/kart-io/clinrag/internal/clinrag/metrics"
	"github.com/kart-io/clinrag/internal/clinrag/router"
	"github.com/kart-io/clinrag/internal/clinrag/store"
	"github.com/kart-io/clinrag/internal/pkg/rag/evaluator"
	"github.com/kart-io/clinrag/pkg/component/milvus"
	"github.com/kart-io/clinrag/pkg/component/redis"
	"github.com/kart-io/clinrag/pkg/infra/app"
	"github.com/kart-io/clinrag/pkg/infra/config"
	"github.com/kart-io/clinrag/pkg/infra/pool"
	"github.com/kart-io/clinrag/pkg/infra/server"
	httpserver "github.com/kart-io/clinrag/pkg/infra/server/http"
	"github.com/kart-io/clinrag/pkg/infra/tracing"
	"github.com/kart-io/clinrag/pkg/llm"
	"github.com/kart-io/clinrag/pkg/llm/resilience"
	cacheopts "github.com/kart-io/clinrag/pkg/options/cache"
	ragopts "github.com/kart-io/clinrag/pkg/options/clinrag"
	clinvecopts "github.com/kart-io/clinrag/pkg/options/clinvec"
	httpopts "github.com/kart-io/clinrag/pkg/options/http"
	llmopts "github.com/kart-io/clinrag/pkg/options/llm"
	logopts "github.com/kart-io/clinrag/pkg/options/logger"
	milvusopts "github.com/kart-io/clinrag/pkg/options/milvus"
	poolopts "github.com/kart-io/clinrag/pkg/options/pool"
	"github.com/kart-io/clinrag/pkg/utils/errors"

	// Register model providers
	_ "github.com/kart-io/clinrag/pkg/llm/gemini"
	_ "github.com/kart-io/clinrag/pkg/llm/huggingface"
	_ "github.com/kart-io/clinrag/pkg/llm/ollama"
	_ "github.com/kart-io/clinrag/pkg/llm/openai"
)

// Name is the name of the application.
const Name = "clinrag"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	TracingOptions   *tracing.Options
	RAGOptions       *ragopts.Options
	ClinVecOptions   *clinvecopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	GeneratorOptions *llmopts.ProviderOptions
	NLIOptions       *llmopts.ProviderOptions
	MilvusOptions    *milvusopts.Options
	CacheOptions     *cacheopts.Options
	PoolOptions      *poolopts.Options
}

// Server represents the clinical RAG server.
type Server struct {
	srv     *server.Manager
	watcher *config.Watcher
	closers []func(ctx context.Context)
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (s *Server, err error) {
	printBanner(cfg)

	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting ClinRAG service...")

	s = &Server{}
	defer func() {
		if err != nil {
			s.close(context.Background())
		}
	}()

	// 2. 初始化链路追踪
	tp, err := tracing.NewProvider(ctx, cfg.TracingOptions, app.GetVersion())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	s.onClose(func(ctx context.Context) { _ = tp.Shutdown(ctx) })

	// 3. 初始化协程池
	embedPool, err := pool.New("embed", &pool.Config{
		Capacity:       cfg.PoolOptions.EmbedWorkers,
		ExpiryDuration: cfg.PoolOptions.ExpiryDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embed pool: %w", err)
	}
	s.onClose(func(context.Context) { embedPool.Release() })

	bgConfig := pool.BackgroundConfig()
	bgConfig.Capacity = cfg.PoolOptions.BackgroundWorkers
	bgPool, err := pool.New("background", bgConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create background pool: %w", err)
	}
	s.onClose(func(context.Context) { bgPool.Release() })

	// 4. 初始化模型供应商
	embedProvider, chatProvider, nliProvider, err := newProviders(cfg)
	if err != nil {
		return nil, err
	}

	// 5. 初始化 Store 层
	httpSrv := httpserver.NewServer(cfg.HTTPOptions)
	vectorStore, err := newVectorStore(ctx, cfg, httpSrv)
	if err != nil {
		return nil, err
	}
	s.onClose(func(ctx context.Context) { _ = vectorStore.Close(ctx) })

	// 6. 初始化答案缓存与向量缓存
	var answerCache *biz.AnswerCache
	if rdb := s.newRedis(ctx, cfg, httpSrv); rdb != nil {
		answerCache = biz.NewAnswerCache(rdb.Client(), &biz.AnswerCacheConfig{
			Enabled:   true,
			TTL:       cfg.CacheOptions.TTL,
			KeyPrefix: cfg.CacheOptions.KeyPrefix,
		})
		if cfg.CacheOptions.EmbeddingTTL > 0 {
			embedProvider = llm.NewCachedEmbeddingProvider(embedProvider, rdb.Client(), llm.EmbeddingCacheConfig{
				TTL:       cfg.CacheOptions.EmbeddingTTL,
				KeyPrefix: cfg.CacheOptions.EmbeddingKeyPrefix,
			})
		}
	}

	// 7. 初始化 ClinVec 编码索引
	codes, err := s.newCodeIndex(cfg, bgPool, httpSrv)
	if err != nil {
		return nil, err
	}

	// 8. 初始化 Biz 层
	m := metrics.New()
	deps := biz.ServiceDeps{
		Indexer: biz.NewIndexer(vectorStore, embedProvider, embedPool, &biz.IndexerConfig{
			ChunkSize:     cfg.RAGOptions.ChunkSize,
			ChunkOverlap:  cfg.RAGOptions.ChunkOverlap,
			MinChunkRunes: cfg.RAGOptions.MinChunkRunes,
			BatchSize:     cfg.RAGOptions.EmbedBatchSize,
			Collection:    cfg.RAGOptions.Collection,
		}),
		Retriever: biz.NewRetriever(vectorStore, embedProvider, &biz.RetrieverConfig{
			TopK:       cfg.RAGOptions.TopK,
			Collection: cfg.RAGOptions.Collection,
		}),
		Generator: biz.NewGenerator(chatProvider),
		Evaluator: evaluator.New(nliProvider, embedProvider, evaluator.WithMaxTokens(cfg.RAGOptions.NLIMaxTokens)),
		Cache:     answerCache,
		Store:     vectorStore,
		Metrics:   m,
	}
	if codes != nil {
		deps.CodeRetriever = codes
	}
	service := biz.NewService(deps, &biz.ServiceConfig{
		Collection: cfg.RAGOptions.Collection,
		CodeTopK:   cfg.ClinVecOptions.TopK,
		ExportPath: cfg.RAGOptions.ExportPath,
		Providers: map[string]string{
			"embedding": cfg.EmbeddingOptions.Provider + "/" + cfg.EmbeddingOptions.Model,
			"generator": cfg.GeneratorOptions.Provider + "/" + cfg.GeneratorOptions.Model,
			"nli":       cfg.NLIOptions.Provider + "/" + cfg.NLIOptions.Model,
			"store":     cfg.RAGOptions.Store,
		},
	})
	logger.Infow("ClinRAG service initialized",
		"store", cfg.RAGOptions.Store,
		"cache.enabled", answerCache != nil,
		"clinvec.enabled", codes != nil,
	)

	// 9. 初始化 Handler 层并注册路由
	ragHandler := handler.NewClinRAGHandler(service, codes, handler.Config{
		AskTimeout:    cfg.RAGOptions.AskTimeout,
		RecentMetrics: cfg.RAGOptions.RecentMetrics,
		CodeTopK:      cfg.ClinVecOptions.TopK,
	})
	router.Register(httpSrv.Engine(), ragHandler, cfg.HTTPOptions.MaxUploadSize, m.Handler())

	// 10. 初始化服务器
	s.srv = server.NewManager(cfg.HTTPOptions.ShutdownTimeout)
	s.srv.AddServer(httpSrv)

	logger.Info("ClinRAG service is ready")
	return s, nil
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer s.close(context.Background())

	if s.watcher != nil {
		go s.watcher.Run(ctx)
	}
	return s.srv.Run(ctx)
}

func (s *Server) onClose(fn func(ctx context.Context)) {
	s.closers = append(s.closers, fn)
}

// close releases resources in reverse order of acquisition.
func (s *Server) close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i](ctx)
	}
	s.closers = nil
}

func newProviders(cfg *Config) (llm.EmbeddingProvider, llm.ChatProvider, llm.ClassifierProvider, error) {
	embedProvider, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	logger.Infow("Embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model,
	)

	chatProvider, err := llm.NewChatProvider(cfg.GeneratorOptions.Provider, cfg.GeneratorOptions.ToConfigMap())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize generator provider: %w", err)
	}
	logger.Infow("Generator provider initialized",
		"provider", cfg.GeneratorOptions.Provider,
		"model", cfg.GeneratorOptions.Model,
	)

	nliProvider, err := llm.NewClassifierProvider(cfg.NLIOptions.Provider, cfg.NLIOptions.ToConfigMap())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize nli provider: %w", err)
	}
	logger.Infow("NLI provider initialized",
		"provider", cfg.NLIOptions.Provider,
		"model", cfg.NLIOptions.Model,
	)

	if n := cfg.EmbeddingOptions.BreakerFailures; n > 0 {
		embedProvider = resilience.WrapEmbedding(embedProvider, breakerConfig(n))
	}
	if n := cfg.GeneratorOptions.BreakerFailures; n > 0 {
		chatProvider = resilience.WrapChat(chatProvider, breakerConfig(n))
	}
	if n := cfg.NLIOptions.BreakerFailures; n > 0 {
		nliProvider = resilience.WrapClassifier(nliProvider, breakerConfig(n))
	}
	return embedProvider, chatProvider, nliProvider, nil
}

func breakerConfig(maxFailures int) *resilience.Config {
	c := resilience.DefaultConfig()
	c.MaxFailures = maxFailures
	return c
}

func newVectorStore(ctx context.Context, cfg *Config, httpSrv *httpserver.Server) (store.VectorStore, error) {
	if cfg.RAGOptions.Store != ragopts.StoreMilvus {
		logger.Info("Using in-memory flat vector index")
		return store.NewFlatIndex(), nil
	}

	client, err := milvus.New(ctx, cfg.MilvusOptions)
	if err != nil {
		return nil, errors.ErrVectorStore.WithCause(err)
	}
	collection := cfg.RAGOptions.Collection
	httpSrv.Health().RegisterChecker("milvus", func(ctx context.Context) error {
		_, err := client.HasCollection(ctx, collection)
		return err
	})
	logger.Infow("Milvus vector store initialized", "address", cfg.MilvusOptions.Address)
	return store.NewMilvusStore(client), nil
}

func (s *Server) newRedis(ctx context.Context, cfg *Config, httpSrv *httpserver.Server) *redis.Client {
	if !cfg.CacheOptions.Enabled {
		logger.Info("Cache is disabled")
		return nil
	}

	redisOpts := cfg.CacheOptions.Redis
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	client, err := redis.New(pingCtx, redisOpts)
	if err != nil {
		logger.Warnw("failed to connect to redis, cache will be disabled", "error", err.Error())
		return nil
	}
	s.onClose(func(context.Context) { _ = client.Close() })
	httpSrv.Health().RegisterChecker("redis", client.Ping)

	logger.Infow("Redis cache initialized",
		"addr", redisOpts.Addr(),
		"ttl", cfg.CacheOptions.TTL,
		"embedding_ttl", cfg.CacheOptions.EmbeddingTTL,
	)
	return client
}

func (s *Server) newCodeIndex(cfg *Config, bgPool *pool.Pool, httpSrv *httpserver.Server) (*clinvec.Index, error) {
	opts := cfg.ClinVecOptions
	if !opts.Enabled {
		logger.Info("ClinVec code index is disabled")
		return nil, nil
	}

	codes := clinvec.New(opts.EmbeddingsPath, opts.NodesPath)
	if err := codes.Load(); err != nil {
		return nil, err
	}
	httpSrv.Health().RegisterChecker("clinvec", func(context.Context) error {
		if !codes.Ready() {
			return errors.ErrClinVecNotReady
		}
		return nil
	})

	if opts.Watch {
		w, err := config.NewWatcher(opts.ReloadDebounce, codes.Files()...)
		if err != nil {
			return nil, err
		}
		codes.Watch(w, bgPool)
		s.watcher = w
		s.onClose(func(context.Context) { _ = w.Close() })
		logger.Infow("ClinVec hot reload enabled", "files", codes.Files())
	}

	return codes, nil
}

func printBanner(cfg *Config) {
	fmt.Printf("Starting %s...\n", Name)
	fmt.Printf("  Embedding: %s (%s)\n", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
	fmt.Printf("  Generator: %s (%s)\n", cfg.GeneratorOptions.Provider, cfg.GeneratorOptions.Model)
	fmt.Printf("  NLI: %s (%s)\n", cfg.NLIOptions.Provider, cfg.NLIOptions.Model)
	fmt.Printf("  Vector store: %s\n", cfg.RAGOptions.Store)
}
