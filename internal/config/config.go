package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the dealscout API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Places    PlacesConfig    `yaml:"places"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Search    SearchConfig    `yaml:"search"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
	Sandbox   bool            `yaml:"sandbox"` // serve canned data when providers are unreachable
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	APIKeys         []string `yaml:"api_keys"` // empty disables auth
}

// DatabaseConfig holds redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// PlacesConfig holds store discovery provider settings.
type PlacesConfig struct {
	APIKey         string  `yaml:"api_key"`
	RadiusKm       float64 `yaml:"radius_km"`
	MaxStores      int     `yaml:"max_stores"`
	MinRating      float64 `yaml:"min_rating"`
	PageDelaySec   int     `yaml:"page_delay_sec"`
	RequestsPerSec float64 `yaml:"requests_per_sec"`
	TimeoutSec     int     `yaml:"timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
}

// LLMConfig holds recommendation model settings.
type LLMConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	MaxRetries  int     `yaml:"max_retries"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// ScraperConfig holds listing harvester settings.
type ScraperConfig struct {
	RequestsPerDomain  float64 `yaml:"requests_per_domain"` // sustained rate, req/sec
	Burst              int     `yaml:"burst"`
	NavigateTimeoutSec int     `yaml:"navigate_timeout_sec"`
	MaxConcurrent      int     `yaml:"max_concurrent"`
	UserAgent          string  `yaml:"user_agent"`
	Headless           bool    `yaml:"headless"`
}

// SearchConfig holds matching and ranking settings.
type SearchConfig struct {
	TopK          int     `yaml:"top_k"`
	MinSimilarity float64 `yaml:"min_similarity"`
	IndexName     string  `yaml:"index_name"`
	KeyPrefix     string  `yaml:"key_prefix"`
}

// CacheConfig holds per-kind cache TTLs, in seconds.
type CacheConfig struct {
	StoresTTLSec   int `yaml:"stores_ttl_sec"`
	ProductsTTLSec int `yaml:"products_ttl_sec"`
	SearchesTTLSec int `yaml:"searches_ttl_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Places.RadiusKm <= 0 {
		c.Places.RadiusKm = 10
	}
	if c.Places.MaxStores <= 0 {
		c.Places.MaxStores = 10
	}
	if c.Places.MinRating <= 0 {
		c.Places.MinRating = 3.5
	}
	if c.Places.PageDelaySec <= 0 {
		c.Places.PageDelaySec = 2
	}
	if c.Places.RequestsPerSec <= 0 {
		c.Places.RequestsPerSec = 5
	}
	if c.Places.TimeoutSec <= 0 {
		c.Places.TimeoutSec = 15
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 64
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.Temperature <= 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 2048
	}
	if c.LLM.MaxRetries <= 0 {
		c.LLM.MaxRetries = 3
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 60
	}
	if c.Scraper.RequestsPerDomain <= 0 {
		c.Scraper.RequestsPerDomain = 0.5
	}
	if c.Scraper.Burst <= 0 {
		c.Scraper.Burst = 1
	}
	if c.Scraper.NavigateTimeoutSec <= 0 {
		c.Scraper.NavigateTimeoutSec = 30
	}
	if c.Scraper.MaxConcurrent <= 0 {
		c.Scraper.MaxConcurrent = 4
	}
	if c.Scraper.UserAgent == "" {
		c.Scraper.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	}
	if c.Search.TopK <= 0 {
		c.Search.TopK = 20
	}
	if c.Search.IndexName == "" {
		c.Search.IndexName = "listings_idx"
	}
	if c.Search.KeyPrefix == "" {
		c.Search.KeyPrefix = "listing:"
	}
	if c.Cache.StoresTTLSec <= 0 {
		c.Cache.StoresTTLSec = 24 * 3600
	}
	if c.Cache.ProductsTTLSec <= 0 {
		c.Cache.ProductsTTLSec = 6 * 3600
	}
	if c.Cache.SearchesTTLSec <= 0 {
		c.Cache.SearchesTTLSec = 3600
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Places.APIKey == "" && !c.Sandbox {
		return fmt.Errorf("places.api_key is required outside sandbox mode")
	}
	if c.Embedding.APIKey == "" && !c.Sandbox {
		return fmt.Errorf("embedding.api_key is required outside sandbox mode")
	}
	if c.LLM.APIKey == "" && !c.Sandbox {
		return fmt.Errorf("llm.api_key is required outside sandbox mode")
	}
	if c.Search.MinSimilarity < 0 || c.Search.MinSimilarity > 1 {
		return fmt.Errorf("search.min_similarity must be within [0, 1], got %v", c.Search.MinSimilarity)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
