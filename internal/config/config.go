// Package config loads stayfly's immutable runtime configuration from
// environment variables and an optional YAML file using
// github.com/spf13/viper. There is no package-level mutable global:
// Load returns a *Config that callers thread through constructors.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/casatico/stayfly/internal/logging"
)

// ScrapeProvider identifies which managed scraping API backs the
// scraper's "managed API" method, mirroring antfly's provider-tagged
// config structs (EmbedderConfig, GeneratorConfig).
type ScrapeProvider string

const (
	ScrapeProviderNone        ScrapeProvider = "none"
	ScrapeProviderScraperAPI  ScrapeProvider = "scraperapi"
	ScrapeProviderBrightData  ScrapeProvider = "brightdata"
)

// ChatModelProvider identifies the backend for the cheap/strong chat
// models used by the LLM extractor and RAG orchestrator.
type ChatModelProvider string

const (
	ChatModelProviderOpenAI    ChatModelProvider = "openai"
	ChatModelProviderAnthropic ChatModelProvider = "anthropic"
	ChatModelProviderOllama    ChatModelProvider = "ollama"
)

// EmbedderProvider identifies the backend for the embedding model.
type EmbedderProvider string

const (
	EmbedderProviderOpenAI EmbedderProvider = "openai"
	EmbedderProviderOllama EmbedderProvider = "ollama"
)

// ScrapeConfig configures the scraper's method chain.
type ScrapeConfig struct {
	Provider                   ScrapeProvider
	APIKey                     string
	CloudflareProtectedDomains []string
	RequestsPerSecond          float64
	UserAgent                  string
	HeadlessBrowserEnabled     bool
}

// ChatModelConfig configures one chat model slot (cheap or strong).
// CostPerInputToken/CostPerOutputToken are USD per token, used for
// per-message cost accounting (spec.md §4.12).
type ChatModelConfig struct {
	Provider           ChatModelProvider
	Model              string
	APIKey             string
	BaseURL            string
	CostPerInputToken  float64
	CostPerOutputToken float64
}

// EmbedderConfig configures the embedding backend.
type EmbedderConfig struct {
	Provider  EmbedderProvider
	Model     string
	APIKey    string
	BaseURL   string
	Dimension int
}

// RetrievalConfig configures the hybrid search engine.
type RetrievalConfig struct {
	Alpha                float64
	TopK                 int
	VectorSearchTopK     int
	FreshnessHorizonDays int
}

// CacheConfig configures the semantic cache.
type CacheConfig struct {
	RedisDSN            string
	SimilarityThreshold float64
	TTL                 time.Duration
}

// StoreConfig configures the Postgres/pgvector record store.
type StoreConfig struct {
	PostgresDSN string
}

// BlobStoreConfig configures raw-HTML archival.
type BlobStoreConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// WebSearchConfig configures the enrichment web-search layer.
type WebSearchConfig struct {
	Enabled    bool
	APIKey     string
	MonthlyCap int
}

// ApifyConfig configures POST /ingest/apify/sync/'s dataset-items
// client. An empty Token leaves the endpoint disabled (spec.md §6).
type ApifyConfig struct {
	Token string
}

// Config is the complete, immutable runtime configuration for every
// stayfly component.
type Config struct {
	LogStyle  logging.Style
	LogLevel  logging.Level
	HTTPPort  int
	HealthPort int

	Scrape      ScrapeConfig
	CheapModel  ChatModelConfig
	StrongModel ChatModelConfig
	Embedder    EmbedderConfig
	Retrieval   RetrievalConfig
	Cache       CacheConfig
	Store       StoreConfig
	BlobStore   BlobStoreConfig
	WebSearch   WebSearchConfig
	Apify       ApifyConfig

	TaskWorkerConcurrency int
	ReprocessCronSchedule string
}

// Load reads configuration from an optional YAML file at path (ignored
// if empty or missing) and from STAYFLY_-prefixed environment variables,
// applying defaults for anything left unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STAYFLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config file %s: %w", path, err)
			}
		}
	}

	cfg := &Config{
		LogStyle:   logging.Style(v.GetString("log.style")),
		LogLevel:   logging.Level(v.GetString("log.level")),
		HTTPPort:   v.GetInt("http.port"),
		HealthPort: v.GetInt("health.port"),

		Scrape: ScrapeConfig{
			Provider:                   ScrapeProvider(v.GetString("scrape.provider")),
			APIKey:                     v.GetString("scrape.api_key"),
			CloudflareProtectedDomains: v.GetStringSlice("scrape.cloudflare_protected_domains"),
			RequestsPerSecond:          v.GetFloat64("scrape.requests_per_second"),
			UserAgent:                  v.GetString("scrape.user_agent"),
			HeadlessBrowserEnabled:     v.GetBool("scrape.headless_browser_enabled"),
		},
		CheapModel: ChatModelConfig{
			Provider:           ChatModelProvider(v.GetString("models.cheap.provider")),
			Model:              v.GetString("models.cheap.model"),
			APIKey:             v.GetString("models.cheap.api_key"),
			BaseURL:            v.GetString("models.cheap.base_url"),
			CostPerInputToken:  v.GetFloat64("models.cheap.cost_per_input_token"),
			CostPerOutputToken: v.GetFloat64("models.cheap.cost_per_output_token"),
		},
		StrongModel: ChatModelConfig{
			Provider:           ChatModelProvider(v.GetString("models.strong.provider")),
			Model:              v.GetString("models.strong.model"),
			APIKey:             v.GetString("models.strong.api_key"),
			BaseURL:            v.GetString("models.strong.base_url"),
			CostPerInputToken:  v.GetFloat64("models.strong.cost_per_input_token"),
			CostPerOutputToken: v.GetFloat64("models.strong.cost_per_output_token"),
		},
		Embedder: EmbedderConfig{
			Provider:  EmbedderProvider(v.GetString("embedder.provider")),
			Model:     v.GetString("embedder.model"),
			APIKey:    v.GetString("embedder.api_key"),
			BaseURL:   v.GetString("embedder.base_url"),
			Dimension: v.GetInt("embedder.dimension"),
		},
		Retrieval: RetrievalConfig{
			Alpha:                v.GetFloat64("retrieval.alpha"),
			TopK:                 v.GetInt("retrieval.top_k"),
			VectorSearchTopK:     v.GetInt("retrieval.vector_search_top_k"),
			FreshnessHorizonDays: v.GetInt("retrieval.freshness_horizon_days"),
		},
		Cache: CacheConfig{
			RedisDSN:            v.GetString("cache.redis_dsn"),
			SimilarityThreshold: v.GetFloat64("cache.similarity_threshold"),
			TTL:                 v.GetDuration("cache.ttl"),
		},
		Store: StoreConfig{
			PostgresDSN: v.GetString("store.postgres_dsn"),
		},
		BlobStore: BlobStoreConfig{
			Endpoint:  v.GetString("blobstore.endpoint"),
			Bucket:    v.GetString("blobstore.bucket"),
			AccessKey: v.GetString("blobstore.access_key"),
			SecretKey: v.GetString("blobstore.secret_key"),
			UseSSL:    v.GetBool("blobstore.use_ssl"),
		},
		WebSearch: WebSearchConfig{
			Enabled:    v.GetBool("websearch.enabled"),
			APIKey:     v.GetString("websearch.api_key"),
			MonthlyCap: v.GetInt("websearch.monthly_cap"),
		},
		Apify: ApifyConfig{
			Token: v.GetString("apify.token"),
		},

		TaskWorkerConcurrency: v.GetInt("task.worker_concurrency"),
		ReprocessCronSchedule: v.GetString("task.reprocess_cron_schedule"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WatchCloudflareProtectedDomains watches path for changes and calls
// onChange with the re-read scrape.cloudflare_protected_domains list
// whenever it changes on disk, via viper's fsnotify-backed watcher. A
// no-op if path is empty: env-var-only configuration has nothing to
// watch.
func WatchCloudflareProtectedDomains(path string, onChange func([]string)) error {
	if path == "" {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config file %s: %w", path, err)
		}
	}
	v.OnConfigChange(func(_ fsnotify.Event) {
		onChange(v.GetStringSlice("scrape.cloudflare_protected_domains"))
	})
	v.WatchConfig()
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.style", string(logging.StyleTerminal))
	v.SetDefault("log.level", "info")
	v.SetDefault("http.port", 8080)
	v.SetDefault("health.port", 9090)

	v.SetDefault("scrape.provider", string(ScrapeProviderNone))
	v.SetDefault("scrape.requests_per_second", 1.0)
	v.SetDefault("scrape.user_agent", "stayfly-scraper/1.0")
	v.SetDefault("scrape.headless_browser_enabled", true)

	v.SetDefault("models.cheap.provider", string(ChatModelProviderOpenAI))
	v.SetDefault("models.cheap.model", "gpt-4o-mini")
	v.SetDefault("models.cheap.cost_per_input_token", 0.00000015)
	v.SetDefault("models.cheap.cost_per_output_token", 0.0000006)
	v.SetDefault("models.strong.provider", string(ChatModelProviderOpenAI))
	v.SetDefault("models.strong.model", "gpt-4o")
	v.SetDefault("models.strong.cost_per_input_token", 0.0000025)
	v.SetDefault("models.strong.cost_per_output_token", 0.00001)

	v.SetDefault("embedder.provider", string(EmbedderProviderOpenAI))
	v.SetDefault("embedder.model", "text-embedding-3-small")
	v.SetDefault("embedder.dimension", 1536)

	v.SetDefault("retrieval.alpha", 0.7)
	v.SetDefault("retrieval.top_k", 8)
	v.SetDefault("retrieval.vector_search_top_k", 50)
	v.SetDefault("retrieval.freshness_horizon_days", 180)

	v.SetDefault("cache.similarity_threshold", 0.95)
	v.SetDefault("cache.ttl", 15*time.Minute)

	v.SetDefault("task.worker_concurrency", 4)
	v.SetDefault("task.reprocess_cron_schedule", "0 3 * * *")
}

func (c *Config) validate() error {
	if c.Retrieval.Alpha < 0 || c.Retrieval.Alpha > 1 {
		return fmt.Errorf("retrieval.alpha must be in [0,1], got %f", c.Retrieval.Alpha)
	}
	if c.Cache.SimilarityThreshold <= 0 || c.Cache.SimilarityThreshold > 1 {
		return fmt.Errorf("cache.similarity_threshold must be in (0,1], got %f", c.Cache.SimilarityThreshold)
	}
	if c.Embedder.Dimension <= 0 {
		return fmt.Errorf("embedder.dimension must be positive, got %d", c.Embedder.Dimension)
	}
	return nil
}
