package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("FUSE_PORT", "9090")
	os.Setenv("FUSE_LOG_LEVEL", "debug")
	os.Setenv("FUSE_BUDGET_WEB_MS", "1500")
	defer func() {
		os.Unsetenv("FUSE_PORT")
		os.Unsetenv("FUSE_LOG_LEVEL")
		os.Unsetenv("FUSE_BUDGET_WEB_MS")
	}()

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}
	if cfg.Budgets.WebSearchMs != 1500 {
		t.Errorf("Budgets.WebSearchMs = %d, want 1500", cfg.Budgets.WebSearchMs)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
host: "127.0.0.1"
port: 8888
log:
  level: warn
  format: json
qdrant:
  host: "custom"
  collection: "docs"
fusion:
  strategy: priority_based
lanes:
  knowledge_graph: false
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %s, want 127.0.0.1", cfg.Host)
	}
	if cfg.Port != 8888 {
		t.Errorf("Port = %d, want 8888", cfg.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %s, want warn", cfg.Log.Level)
	}
	if cfg.Qdrant.Host != "custom" {
		t.Errorf("Qdrant.Host = %s, want custom", cfg.Qdrant.Host)
	}
	if cfg.Qdrant.Collection != "docs" {
		t.Errorf("Qdrant.Collection = %s, want docs", cfg.Qdrant.Collection)
	}
	if cfg.Fusion.Strategy != "priority_based" {
		t.Errorf("Fusion.Strategy = %s, want priority_based", cfg.Fusion.Strategy)
	}
	if cfg.Lanes.KnowledgeGraph {
		t.Error("Lanes.KnowledgeGraph = true, want false")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("port: 8888\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	os.Setenv("FUSE_PORT", "9999")
	defer os.Unsetenv("FUSE_PORT")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 9999 {
		t.Errorf("Port = %d, want env override 9999", cfg.Port)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid port",
			modify: func(c *Config) {
				c.Port = 0
			},
			wantErr: true,
		},
		{
			name: "zero total budget",
			modify: func(c *Config) {
				c.Budgets.TotalMs = 0
			},
			wantErr: true,
		},
		{
			name: "lane budget exceeds total",
			modify: func(c *Config) {
				c.Budgets.WebSearchMs = c.Budgets.TotalMs + 1
			},
			wantErr: true,
		},
		{
			name: "zero provider timeout",
			modify: func(c *Config) {
				c.Providers.ProviderTimeoutMs = 0
			},
			wantErr: true,
		},
		{
			name: "zero breaker threshold",
			modify: func(c *Config) {
				c.Breaker.Threshold = 0
			},
			wantErr: true,
		},
		{
			name: "invalid fusion strategy",
			modify: func(c *Config) {
				c.Fusion.Strategy = "invalid"
			},
			wantErr: true,
		},
		{
			name: "negative fusion weight",
			modify: func(c *Config) {
				c.Fusion.VectorWeight = -0.5
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			modify: func(c *Config) {
				c.Log.Level = "invalid"
			},
			wantErr: true,
		},
		{
			name: "invalid cache type",
			modify: func(c *Config) {
				c.Cache.Type = "invalid"
			},
			wantErr: true,
		},
		{
			name: "invalid bus type",
			modify: func(c *Config) {
				c.Bus.Type = "invalid"
			},
			wantErr: true,
		},
		{
			name: "none bus type accepted",
			modify: func(c *Config) {
				c.Bus.Type = "none"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	cfg := &Config{
		Host: "localhost",
		Port: 8080,
	}

	if addr := cfg.Address(); addr != "localhost:8080" {
		t.Errorf("Address() = %s, want localhost:8080", addr)
	}
}

func TestCredential(t *testing.T) {
	cfg := &Config{}
	cfg.Providers.BraveAPIKey = "bk"
	cfg.Providers.SerperAPIKey = "sk"

	tests := []struct {
		provider string
		want     string
	}{
		{"brave", "bk"},
		{"serper", "sk"},
		{"duckduckgo", ""},
		{"unknown", ""},
	}

	for _, tt := range tests {
		if got := cfg.Credential(tt.provider); got != tt.want {
			t.Errorf("Credential(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}
