package cfg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidate_DefaultConfig(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = DefaultConfiguration()

	if err := Validate(); err != nil {
		t.Errorf("Expected no error for default config, got: %v", err)
	}
}

func TestValidate_CatalogStore(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	tests := []struct {
		name    string
		store   CatalogStoreType
		path    string
		wantErr bool
	}{
		{"memory without path", CatalogStoreMemory, "", false},
		{"pebble with path", CatalogStorePebble, "catalog", false},
		{"pebble without path", CatalogStorePebble, "", true},
		{"unknown store", CatalogStoreType("badger"), "catalog", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Config = DefaultConfiguration()
			Config.Catalog.Store = tt.store
			Config.Catalog.Path = tt.path

			err := Validate()
			if tt.wantErr && err == nil {
				t.Errorf("Expected error for store %q path %q", tt.store, tt.path)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestValidate_InvalidAdminPort(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	for _, port := range []int{-1, 0, 70000} {
		Config = DefaultConfiguration()
		Config.Admin.Port = port

		if err := Validate(); err == nil {
			t.Errorf("Expected error for invalid admin port %d", port)
		}
	}

	// Port is ignored when admin is disabled
	Config = DefaultConfiguration()
	Config.Admin.Enabled = false
	Config.Admin.Port = 0
	if err := Validate(); err != nil {
		t.Errorf("Expected no error with admin disabled, got: %v", err)
	}
}

func TestValidate_EngineAndConnectors(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	mutators := map[string]func(c *Configuration){
		"zero workers":        func(c *Configuration) { c.Engine.Workers = 0 },
		"zero pool size":      func(c *Configuration) { c.Connectors.PoolSize = 0 },
		"zero kafka batch":    func(c *Configuration) { c.Connectors.Kafka.BatchSize = 0 },
		"zero kafka timeout":  func(c *Configuration) { c.Connectors.Kafka.WriteTimeoutMS = 0 },
		"zero nats timeout":   func(c *Configuration) { c.Connectors.Nats.FlushTimeoutMS = 0 },
		"bad logging format":  func(c *Configuration) { c.Logging.Format = "xml" },
		"negative pool size":  func(c *Configuration) { c.Connectors.PoolSize = -5 },
		"negative worker cnt": func(c *Configuration) { c.Engine.Workers = -1 },
	}

	for name, mutate := range mutators {
		t.Run(name, func(t *testing.T) {
			Config = DefaultConfiguration()
			mutate(Config)
			if err := Validate(); err == nil {
				t.Errorf("Expected validation error")
			}
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	original := Config
	defer func() { Config = original }()
	Config = DefaultConfiguration()

	dir := t.TempDir()
	path := filepath.Join(dir, "airlock.toml")
	content := `
node_id = 42
data_dir = "` + filepath.ToSlash(filepath.Join(dir, "data")) + `"

[catalog]
store = "memory"

[engine]
workers = 3

[connectors]
pool_size = 7

[logging]
verbose = true
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if err := Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if Config.NodeID != 42 {
		t.Errorf("expected node_id 42, got %d", Config.NodeID)
	}
	if Config.Catalog.Store != CatalogStoreMemory {
		t.Errorf("expected memory store, got %q", Config.Catalog.Store)
	}
	if Config.Engine.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", Config.Engine.Workers)
	}
	if Config.Connectors.PoolSize != 7 {
		t.Errorf("expected pool size 7, got %d", Config.Connectors.PoolSize)
	}
	// Untouched sections keep their defaults
	if Config.Connectors.Kafka.WriteTimeoutMS != 5000 {
		t.Errorf("expected default kafka timeout, got %d", Config.Connectors.Kafka.WriteTimeoutMS)
	}
	if !Config.Logging.Verbose || Config.Logging.Format != "json" {
		t.Errorf("unexpected logging config: %+v", Config.Logging)
	}
	if _, err := os.Stat(Config.DataDir); err != nil {
		t.Errorf("expected data dir to be created: %v", err)
	}
}

func TestCatalogPath(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = DefaultConfiguration()
	Config.DataDir = "/var/lib/airlock"
	Config.Catalog.Path = "catalog"
	if got := CatalogPath(); got != filepath.Join("/var/lib/airlock", "catalog") {
		t.Errorf("unexpected relative catalog path: %s", got)
	}

	Config.Catalog.Path = "/srv/catalog"
	if got := CatalogPath(); got != "/srv/catalog" {
		t.Errorf("unexpected absolute catalog path: %s", got)
	}
}

func TestIsAdminAuthEnabled(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = DefaultConfiguration()
	if IsAdminAuthEnabled() {
		t.Errorf("expected admin auth disabled by default")
	}

	Config.Admin.Secret = "s3cret"
	if !IsAdminAuthEnabled() {
		t.Errorf("expected admin auth enabled with a secret")
	}
}
