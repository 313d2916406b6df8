// Package appwiring constructs the shared dependency graph stayfly's
// cmd/server and cmd/worker binaries both need, so the two entry
// points can neither drift apart nor duplicate each other's wiring.
package appwiring

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/casatico/stayfly/internal/blobstore"
	"github.com/casatico/stayfly/internal/cache"
	"github.com/casatico/stayfly/internal/chatmodel"
	"github.com/casatico/stayfly/internal/classify"
	"github.com/casatico/stayfly/internal/config"
	"github.com/casatico/stayfly/internal/convstore"
	"github.com/casatico/stayfly/internal/embedding"
	"github.com/casatico/stayfly/internal/ingest"
	"github.com/casatico/stayfly/internal/llmextract"
	"github.com/casatico/stayfly/internal/rag"
	"github.com/casatico/stayfly/internal/retrieval"
	"github.com/casatico/stayfly/internal/router"
	"github.com/casatico/stayfly/internal/scraper"
	"github.com/casatico/stayfly/internal/siteextract"
	"github.com/casatico/stayfly/internal/store"
	"github.com/casatico/stayfly/internal/task"
	"github.com/casatico/stayfly/internal/websearch"
)

// App holds every long-lived dependency, assembled once at startup and
// shared by whichever of cmd/server or cmd/worker needs it.
type App struct {
	Store        store.Store
	Tasks        task.Store
	Cache        cache.Cache
	Pipeline     *ingest.Pipeline
	ApifyClient  ingest.ApifyClient
	Orchestrator *rag.Orchestrator
	Runner       *task.Runner
	Scheduler    *task.Scheduler

	pgPool *pgxpool.Pool
}

// Close releases pooled connections. Safe to call on a memory-backed App.
func (a *App) Close() {
	if a.pgPool != nil {
		a.pgPool.Close()
	}
}

// chatModelAdapter narrows a chatmodel.ChatModel (the extractor and
// orchestrator's richer, token-accounting contract) down to
// websearch.ChatModel's single-string-in-single-string-out shape,
// since the enricher only ever needs one round of complete-the-prompt.
type chatModelAdapter struct{ inner chatmodel.ChatModel }

func (a chatModelAdapter) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := a.inner.Complete(ctx, prompt, chatmodel.CompletionOptions{})
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// Build wires every component from cfg. ctx bounds connection setup
// (Postgres dial, Redis ping) only, not the returned App's lifetime.
// configPath, if non-empty, is watched for changes so an edited
// scrape.cloudflare_protected_domains list reaches the scraper without
// a restart (spec.md §4.1's forced-managed-API domain list).
func Build(ctx context.Context, cfg *config.Config, configPath string, logger *zap.Logger) (*App, error) {
	app := &App{}

	recordStore, pgPool, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.Store = recordStore
	app.pgPool = pgPool

	taskStore, err := buildTaskStore(cfg, pgPool)
	if err != nil {
		return nil, err
	}
	app.Tasks = taskStore

	app.Cache = buildCache(ctx, cfg, logger)

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	cheapModel, err := chatmodel.New(cfg.CheapModel)
	if err != nil {
		return nil, fmt.Errorf("constructing cheap chat model: %w", err)
	}
	strongModel, err := chatmodel.New(cfg.StrongModel)
	if err != nil {
		return nil, fmt.Errorf("constructing strong chat model: %w", err)
	}

	retrievalCfg := retrieval.DefaultConfig()
	if cfg.Retrieval.Alpha != 0 {
		retrievalCfg.Alpha = cfg.Retrieval.Alpha
	}
	if cfg.Retrieval.TopK != 0 {
		retrievalCfg.TopK = cfg.Retrieval.TopK
	}
	if cfg.Retrieval.VectorSearchTopK != 0 {
		retrievalCfg.VectorSearchTopK = cfg.Retrieval.VectorSearchTopK
	}
	if cfg.Retrieval.FreshnessHorizonDays != 0 {
		retrievalCfg.FreshnessHorizon = time.Duration(cfg.Retrieval.FreshnessHorizonDays) * 24 * time.Hour
	}
	retrievalEngine := retrieval.NewEngine(app.Store, retrievalCfg)

	modelRouter := router.New(cfg.CheapModel, cfg.StrongModel)
	convStore := convstore.New(app.Store)
	app.Orchestrator = rag.New(convStore, embedder, app.Cache, retrievalEngine, modelRouter, cheapModel, strongModel)

	var scrapeClient *scraper.Client
	app.Pipeline, app.ApifyClient, scrapeClient, err = buildPipeline(ctx, cfg, app.Store, app.Tasks, strongModel, logger)
	if err != nil {
		return nil, err
	}
	if err := config.WatchCloudflareProtectedDomains(configPath, scrapeClient.SetCloudflareProtectedDomains); err != nil {
		return nil, fmt.Errorf("watching config for cloudflare domain list changes: %w", err)
	}

	app.Runner = task.NewRunner(app.Tasks, logger, cfg.TaskWorkerConcurrency)
	app.Runner.Register(task.KindIngestURL, ingestURLHandler(app.Pipeline))
	app.Runner.Register(task.KindEmbedDocument, embedDocumentHandler(app.Store, embedder))
	app.Runner.Register(task.KindReprocessRecord, reprocessRecordHandler(app.Pipeline))

	app.Scheduler = task.NewScheduler(app.Tasks, logger)
	if cfg.ReprocessCronSchedule != "" {
		if err := app.Scheduler.ScheduleReprocessSweep(cfg.ReprocessCronSchedule, reprocessTargets(app.Store)); err != nil {
			return nil, fmt.Errorf("scheduling reprocess sweep: %w", err)
		}
	}

	return app, nil
}

func buildStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, *pgxpool.Pool, error) {
	if cfg.Store.PostgresDSN == "" {
		logger.Warn("store.postgres_dsn not set, using in-memory record store")
		return store.NewMemoryStore(), nil, nil
	}
	pgStore, err := store.NewPostgresStore(ctx, cfg.Store.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	pool, err := pgxpool.New(ctx, cfg.Store.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("opening task-queue pool: %w", err)
	}
	return pgStore, pool, nil
}

func buildTaskStore(cfg *config.Config, pool *pgxpool.Pool) (task.Store, error) {
	if pool == nil {
		return task.NewMemoryStore(), nil
	}
	return task.NewPostgresStore(pool), nil
}

// buildCache degrades to a no-op cache when Redis is unreachable,
// per spec.md §4.10's required degrade-on-dial-failure policy.
func buildCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) cache.Cache {
	if cfg.Cache.RedisDSN == "" {
		logger.Warn("cache.redis_dsn not set, semantic cache disabled")
		return cache.NewDummyCache()
	}
	opts, err := redis.ParseURL(cfg.Cache.RedisDSN)
	if err != nil {
		logger.Warn("invalid redis dsn, degrading to no-op cache", zap.Error(err))
		return cache.NewDummyCache()
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, degrading to no-op cache", zap.Error(err))
		return cache.NewDummyCache()
	}
	redisCache := cache.NewRedisCache(client)
	if cfg.Cache.SimilarityThreshold != 0 {
		redisCache.SimilarityThreshold = cfg.Cache.SimilarityThreshold
	}
	return redisCache
}

func buildEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	switch cfg.Embedder.Provider {
	case config.EmbedderProviderOllama:
		return embedding.NewOllamaEmbedder(cfg.Embedder.BaseURL, cfg.Embedder.Model, cfg.Embedder.Dimension), nil
	case config.EmbedderProviderOpenAI:
		return embedding.NewOpenAIEmbedder(cfg.Embedder.BaseURL, cfg.Embedder.APIKey, cfg.Embedder.Model, cfg.Embedder.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedder provider %q", cfg.Embedder.Provider)
	}
}

func buildPipeline(ctx context.Context, cfg *config.Config, s store.Store, tasks task.Store, strongModel chatmodel.ChatModel, logger *zap.Logger) (*ingest.Pipeline, ingest.ApifyClient, *scraper.Client, error) {
	scrapeClient := buildScraper(cfg, logger)

	var enricher *websearch.Enricher
	if cfg.WebSearch.Enabled {
		enricher = websearch.NewEnricher(websearch.NewDuckDuckGoSearcher(), chatModelAdapter{inner: strongModel})
	}

	var blobStore blobstore.Store
	if cfg.BlobStore.Endpoint != "" {
		creds := blobstore.Credentials{
			Endpoint:        cfg.BlobStore.Endpoint,
			AccessKeyID:     cfg.BlobStore.AccessKey,
			SecretAccessKey: cfg.BlobStore.SecretKey,
			UseSSL:          cfg.BlobStore.UseSSL,
			Bucket:          cfg.BlobStore.Bucket,
		}
		s3Store, err := blobstore.NewS3Store(ctx, creds)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("constructing blob store client: %w", err)
		}
		blobStore = s3Store
	}

	var apifyClient ingest.ApifyClient
	if cfg.Apify.Token != "" {
		apifyClient = ingest.NewApifyHTTPClient(cfg.Apify.Token)
	}

	pipeline := &ingest.Pipeline{
		Scraper:       scrapeClient,
		Classifier:    classify.New(nil),
		SiteExtractor: siteextract.NewDefaultRegistry(),
		LLMExtractor:  llmextract.NewExtractor(strongModel, logger, 0),
		Enricher:      enricher,
		BlobStore:     blobStore,
		Store:         s,
		Tasks:         tasks,
		Logger:        logger,
	}
	return pipeline, apifyClient, scrapeClient, nil
}

func buildScraper(cfg *config.Config, logger *zap.Logger) *scraper.Client {
	var managedAPI scraper.Fetcher
	if cfg.Scrape.Provider != config.ScrapeProviderNone && cfg.Scrape.APIKey != "" {
		managedAPI = &scraper.ManagedAPIFetcher{
			Client:   http.DefaultClient,
			Endpoint: managedAPIEndpoint(cfg.Scrape.Provider),
			APIKey:   cfg.Scrape.APIKey,
		}
	}

	var headlessBrowser scraper.Fetcher
	if cfg.Scrape.HeadlessBrowserEnabled {
		headlessBrowser = &scraper.HeadlessBrowserFetcher{
			SettleDelay: 2 * time.Second,
			PageTimeout: 30 * time.Second,
		}
	}

	simpleHTTP := &scraper.SimpleHTTPFetcher{
		Client:    http.DefaultClient,
		UserAgent: cfg.Scrape.UserAgent,
	}

	return scraper.NewClient(logger, managedAPI, headlessBrowser, simpleHTTP, cfg.Scrape.CloudflareProtectedDomains, cfg.Scrape.RequestsPerSecond)
}

// managedAPIEndpoint maps a configured provider to its base URL. Only
// ScraperAPI and Bright Data are known providers; an unrecognized one
// falls back to its bare name so a misconfiguration fails loudly at
// the HTTP layer rather than silently here.
func managedAPIEndpoint(p config.ScrapeProvider) string {
	switch p {
	case config.ScrapeProviderScraperAPI:
		return "https://api.scraperapi.com"
	case config.ScrapeProviderBrightData:
		return "https://api.brightdata.com/request"
	default:
		return string(p)
	}
}
