package config

import "testing"

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
		Places:    PlacesConfig{APIKey: "test-key"},
		Embedding: EmbeddingConfig{APIKey: "test-key"},
		LLM:       LLMConfig{APIKey: "test-key"},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingRedisAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing redis addrs")
	}
}

func TestValidate_MissingProviderKeys(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"places", func(c *Config) { c.Places.APIKey = "" }},
		{"embedding", func(c *Config) { c.Embedding.APIKey = "" }},
		{"llm", func(c *Config) { c.LLM.APIKey = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected error for missing %s api key", tt.name)
			}

			// Sandbox mode serves canned data, keys become optional.
			cfg.Sandbox = true
			if err := cfg.Validate(); err != nil {
				t.Fatalf("sandbox mode should not require %s api key: %v", tt.name, err)
			}
		})
	}
}

func TestValidate_MinSimilarityRange(t *testing.T) {
	cfg := validConfig()
	cfg.Search.MinSimilarity = 1.5

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for min_similarity > 1")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Places.RadiusKm != 10 {
		t.Errorf("expected RadiusKm=10, got %v", cfg.Places.RadiusKm)
	}
	if cfg.Places.MaxStores != 10 {
		t.Errorf("expected MaxStores=10, got %d", cfg.Places.MaxStores)
	}
	if cfg.Places.MinRating != 3.5 {
		t.Errorf("expected MinRating=3.5, got %v", cfg.Places.MinRating)
	}
	if cfg.Search.TopK != 20 {
		t.Errorf("expected TopK=20, got %d", cfg.Search.TopK)
	}
	if cfg.Search.KeyPrefix != "listing:" {
		t.Errorf("expected KeyPrefix='listing:', got %q", cfg.Search.KeyPrefix)
	}
	if cfg.Cache.StoresTTLSec != 86400 {
		t.Errorf("expected StoresTTLSec=86400, got %d", cfg.Cache.StoresTTLSec)
	}
	if cfg.Cache.ProductsTTLSec != 21600 {
		t.Errorf("expected ProductsTTLSec=21600, got %d", cfg.Cache.ProductsTTLSec)
	}
	if cfg.Cache.SearchesTTLSec != 3600 {
		t.Errorf("expected SearchesTTLSec=3600, got %d", cfg.Cache.SearchesTTLSec)
	}
	if cfg.LLM.MaxRetries != 3 {
		t.Errorf("expected MaxRetries=3, got %d", cfg.LLM.MaxRetries)
	}
	if cfg.Scraper.MaxConcurrent != 4 {
		t.Errorf("expected MaxConcurrent=4, got %d", cfg.Scraper.MaxConcurrent)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:    HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 120, ShutdownSec: 5},
		Places:  PlacesConfig{RadiusKm: 25, MaxStores: 50},
		Search:  SearchConfig{TopK: 5, KeyPrefix: "custom:"},
		Cache:   CacheConfig{StoresTTLSec: 60},
		Scraper: ScraperConfig{MaxConcurrent: 16},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Places.RadiusKm != 25 {
		t.Errorf("expected RadiusKm=25, got %v", cfg.Places.RadiusKm)
	}
	if cfg.Search.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Search.TopK)
	}
	if cfg.Search.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Search.KeyPrefix)
	}
	if cfg.Cache.StoresTTLSec != 60 {
		t.Errorf("expected StoresTTLSec=60, got %d", cfg.Cache.StoresTTLSec)
	}
	if cfg.Scraper.MaxConcurrent != 16 {
		t.Errorf("expected MaxConcurrent=16, got %d", cfg.Scraper.MaxConcurrent)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("DEALSCOUT_TEST_VAR", "hello")

	got := string(expandEnvVars([]byte("a: ${DEALSCOUT_TEST_VAR}\nb: ${MISSING_VAR:-fallback}\n")))
	want := "a: hello\nb: fallback\n"
	if got != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", got, want)
	}
}
