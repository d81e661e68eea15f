// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	Host string `envconfig:"FUSE_HOST" yaml:"host"`
	Port int    `envconfig:"FUSE_PORT" yaml:"port"`

	// Budgets configuration
	Budgets BudgetConfig `yaml:"budgets"`

	// Lanes configuration
	Lanes LaneConfig `yaml:"lanes"`

	// Providers configuration
	Providers ProviderConfig `yaml:"providers"`

	// Breaker configuration
	Breaker BreakerConfig `yaml:"breaker"`

	// Fusion configuration
	Fusion FusionConfig `yaml:"fusion"`

	// Qdrant configuration
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Embedder configuration
	Embedder EmbedderConfig `yaml:"embedder"`

	// Graph configuration
	Graph GraphConfig `yaml:"graph"`

	// Cache configuration
	Cache CacheConfig `yaml:"cache"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Security configuration
	Security SecurityConfig `yaml:"security"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// BudgetConfig holds the latency budgets for a retrieval call, in milliseconds.
// Each per-lane budget must not exceed the total budget.
type BudgetConfig struct {
	TotalMs          int `envconfig:"FUSE_BUDGET_TOTAL_MS" yaml:"total_ms"`
	WebSearchMs      int `envconfig:"FUSE_BUDGET_WEB_MS" yaml:"web_search_ms"`
	VectorSearchMs   int `envconfig:"FUSE_BUDGET_VECTOR_MS" yaml:"vector_search_ms"`
	KnowledgeGraphMs int `envconfig:"FUSE_BUDGET_GRAPH_MS" yaml:"knowledge_graph_ms"`
	FusionMs         int `envconfig:"FUSE_BUDGET_FUSION_MS" yaml:"fusion_ms"`
}

// LaneConfig enables or disables individual retrieval lanes.
type LaneConfig struct {
	WebSearch      bool `envconfig:"FUSE_LANE_WEB" yaml:"web_search"`
	VectorSearch   bool `envconfig:"FUSE_LANE_VECTOR" yaml:"vector_search"`
	KnowledgeGraph bool `envconfig:"FUSE_LANE_GRAPH" yaml:"knowledge_graph"`

	// Sequential runs lanes one at a time against a shared remaining budget
	// instead of in parallel. Degraded/debug operation only.
	Sequential bool `envconfig:"FUSE_LANE_SEQUENTIAL" yaml:"sequential"`
}

// ProviderConfig holds the web-search provider tables and credentials.
type ProviderConfig struct {
	// Keyed providers are tried first, in declaration order.
	Keyed []string `yaml:"keyed"`

	// Keyless providers form the fallback batch.
	Keyless []string `yaml:"keyless"`

	// KeylessFallback enables the keyless safety-net batch.
	KeylessFallback bool `envconfig:"FUSE_KEYLESS_FALLBACK" yaml:"keyless_fallback"`

	// ProviderTimeoutMs is the per-provider sub-timeout, independent of the
	// lane budget.
	ProviderTimeoutMs int `envconfig:"FUSE_PROVIDER_TIMEOUT_MS" yaml:"provider_timeout_ms"`

	// Credentials for keyed providers.
	BraveAPIKey  string `envconfig:"FUSE_BRAVE_API_KEY" yaml:"brave_api_key"`
	SerperAPIKey string `envconfig:"FUSE_SERPER_API_KEY" yaml:"serper_api_key"`

	// Feeds are generic HTTP JSON feed providers joined to the web lane.
	// A feed with an API key joins the keyed batch, otherwise the keyless one.
	Feeds []FeedConfig `yaml:"feeds"`
}

// FeedConfig describes one generic HTTP feed provider.
type FeedConfig struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// BreakerConfig holds circuit breaker settings shared by all upstreams.
type BreakerConfig struct {
	// Threshold is the consecutive failure count that opens the breaker.
	Threshold int `envconfig:"FUSE_BREAKER_THRESHOLD" yaml:"threshold"`

	// CooldownSeconds is how long an open breaker rejects calls before
	// allowing a half-open trial.
	CooldownSeconds int `envconfig:"FUSE_BREAKER_COOLDOWN_SECONDS" yaml:"cooldown_seconds"`
}

// FusionConfig holds result fusion settings.
type FusionConfig struct {
	// Strategy selects the fusion algorithm: weighted_merge, priority_based,
	// or simple_merge.
	Strategy string `envconfig:"FUSE_FUSION_STRATEGY" yaml:"strategy"`

	// Source weights for weighted_merge.
	WebWeight    float64 `envconfig:"FUSE_FUSION_WEB_WEIGHT" yaml:"web_weight"`
	VectorWeight float64 `envconfig:"FUSE_FUSION_VECTOR_WEIGHT" yaml:"vector_weight"`
	GraphWeight  float64 `envconfig:"FUSE_FUSION_GRAPH_WEIGHT" yaml:"graph_weight"`
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	Host       string `envconfig:"QDRANT_HOST" yaml:"host"`
	Port       int    `envconfig:"QDRANT_PORT" yaml:"port"`
	APIKey     string `envconfig:"QDRANT_API_KEY" yaml:"api_key"`
	UseTLS     bool   `envconfig:"QDRANT_USE_TLS" yaml:"use_tls"`
	Collection string `envconfig:"QDRANT_COLLECTION" yaml:"collection"`
}

// EmbedderConfig holds the remote embedding capability settings.
type EmbedderConfig struct {
	URL    string `envconfig:"FUSE_EMBEDDER_URL" yaml:"url"`
	APIKey string `envconfig:"FUSE_EMBEDDER_API_KEY" yaml:"api_key"`
	Model  string `envconfig:"FUSE_EMBED_MODEL" yaml:"model"`
	Dim    int    `envconfig:"FUSE_EMBED_DIM" yaml:"dim"`
}

// GraphConfig holds the knowledge-graph capability settings.
type GraphConfig struct {
	URL    string `envconfig:"FUSE_GRAPH_URL" yaml:"url"`
	APIKey string `envconfig:"FUSE_GRAPH_API_KEY" yaml:"api_key"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Type       string `envconfig:"FUSE_CACHE_TYPE" yaml:"type"`
	Size       int    `envconfig:"FUSE_CACHE_SIZE" yaml:"size"`
	TTLSeconds int    `envconfig:"FUSE_CACHE_TTL_SECONDS" yaml:"ttl_seconds"` // 0 = no expiry
	RedisURL   string `envconfig:"FUSE_REDIS_URL" yaml:"redis_url"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"FUSE_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"FUSE_KAFKA_BROKERS" yaml:"kafka_brokers"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"FUSE_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"FUSE_LOG_FORMAT" yaml:"format"`
}

// SecurityConfig holds security settings.
type SecurityConfig struct {
	RateLimit   int    `envconfig:"FUSE_RATE_LIMIT" yaml:"rate_limit"` // 0 = disabled
	CORSOrigins string `envconfig:"FUSE_CORS_ORIGINS" yaml:"cors_origins"`
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	MetricsEnabled bool   `envconfig:"FUSE_METRICS_ENABLED" yaml:"metrics_enabled"`
	MetricsPath    string `envconfig:"FUSE_METRICS_PATH" yaml:"metrics_path"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Host = "0.0.0.0"
	cfg.Port = 8080

	cfg.Budgets = BudgetConfig{
		TotalMs:          8000,
		WebSearchMs:      4000,
		VectorSearchMs:   2000,
		KnowledgeGraphMs: 3000,
		FusionMs:         500,
	}

	cfg.Lanes = LaneConfig{
		WebSearch:      true,
		VectorSearch:   true,
		KnowledgeGraph: true,
	}

	cfg.Providers = ProviderConfig{
		Keyed:             []string{"brave", "serper"},
		Keyless:           []string{"duckduckgo", "wikipedia"},
		KeylessFallback:   true,
		ProviderTimeoutMs: 2000,
	}

	cfg.Breaker = BreakerConfig{
		Threshold:       5,
		CooldownSeconds: 60,
	}

	cfg.Fusion = FusionConfig{
		Strategy:     "weighted_merge",
		WebWeight:    1.0,
		VectorWeight: 0.9,
		GraphWeight:  0.8,
	}

	cfg.Qdrant = QdrantConfig{
		Host:       "localhost",
		Port:       6334,
		Collection: "passages",
	}

	cfg.Embedder = EmbedderConfig{
		URL:   "http://localhost:8090",
		Model: "jina-embeddings-v3",
		Dim:   1536,
	}

	cfg.Graph = GraphConfig{
		URL: "http://localhost:8091",
	}

	cfg.Cache = CacheConfig{
		Type:       "memory",
		Size:       10000,
		TTLSeconds: 300,
		RedisURL:   "redis://localhost:6379",
	}

	cfg.Bus = BusConfig{
		Type: "memory",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}

	cfg.Security = SecurityConfig{
		RateLimit:   0,
		CORSOrigins: "*",
	}

	cfg.Observability = ObservabilityConfig{
		MetricsEnabled: true,
		MetricsPath:    "/metrics",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}

	// Budget validation
	if c.Budgets.TotalMs < 1 {
		errs = append(errs, "total_ms must be positive")
	}
	laneBudgets := map[string]int{
		"web_search_ms":      c.Budgets.WebSearchMs,
		"vector_search_ms":   c.Budgets.VectorSearchMs,
		"knowledge_graph_ms": c.Budgets.KnowledgeGraphMs,
		"fusion_ms":          c.Budgets.FusionMs,
	}
	for name, ms := range laneBudgets {
		if ms < 1 {
			errs = append(errs, fmt.Sprintf("%s must be positive", name))
		}
		if ms > c.Budgets.TotalMs {
			errs = append(errs, fmt.Sprintf("%s must not exceed total_ms", name))
		}
	}

	// Provider validation
	if c.Providers.ProviderTimeoutMs < 1 {
		errs = append(errs, "provider_timeout_ms must be positive")
	}

	for i, f := range c.Providers.Feeds {
		if f.Name == "" || f.URL == "" {
			errs = append(errs, fmt.Sprintf("feed %d must have a name and url", i))
		}
	}

	// Breaker validation
	if c.Breaker.Threshold < 1 {
		errs = append(errs, "breaker threshold must be positive")
	}
	if c.Breaker.CooldownSeconds < 1 {
		errs = append(errs, "breaker cooldown_seconds must be positive")
	}

	// Fusion validation
	validStrategies := map[string]bool{"weighted_merge": true, "priority_based": true, "simple_merge": true}
	if !validStrategies[c.Fusion.Strategy] {
		errs = append(errs, fmt.Sprintf("invalid fusion strategy: %s (must be weighted_merge, priority_based, or simple_merge)", c.Fusion.Strategy))
	}
	for name, w := range map[string]float64{
		"web_weight":    c.Fusion.WebWeight,
		"vector_weight": c.Fusion.VectorWeight,
		"graph_weight":  c.Fusion.GraphWeight,
	} {
		if w <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive", name))
		}
	}

	// Cache validation
	validCacheTypes := map[string]bool{"memory": true, "redis": true, "none": true}
	if !validCacheTypes[c.Cache.Type] {
		errs = append(errs, fmt.Sprintf("invalid cache type: %s (must be memory, redis, or none)", c.Cache.Type))
	}

	// Bus validation
	validBusTypes := map[string]bool{"memory": true, "kafka": true, "none": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory, kafka, or none)", c.Bus.Type))
	}

	// Log validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Address returns the server address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Credential returns the configured API key for a keyed provider, or "".
func (c *Config) Credential(provider string) string {
	switch provider {
	case "brave":
		return c.Providers.BraveAPIKey
	case "serper":
		return c.Providers.SerperAPIKey
	default:
		return ""
	}
}
