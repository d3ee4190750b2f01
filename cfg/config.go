package cfg

import (
	"flag"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/denisbrodbeck/machineid"
	"github.com/rs/zerolog/log"
)

// CatalogStoreType selects the backing store for external catalog entries
type CatalogStoreType string

const (
	CatalogStoreMemory CatalogStoreType = "memory" // Entries live only for the process lifetime
	CatalogStorePebble CatalogStoreType = "pebble" // Entries persisted in a Pebble directory
)

// CatalogConfiguration controls where external databases and tables are kept
type CatalogConfiguration struct {
	Store CatalogStoreType `toml:"store"`
	Path  string           `toml:"path"` // Relative paths resolve under data_dir
}

// EngineConfiguration controls statement execution
type EngineConfiguration struct {
	Workers int `toml:"workers"` // Max statements executed concurrently by ExecuteAll
}

// KafkaConfiguration holds defaults for kafka-backed external tables
type KafkaConfiguration struct {
	BatchSize      int `toml:"batch_size"`
	WriteTimeoutMS int `toml:"write_timeout_ms"`
}

// NatsConfiguration holds defaults for nats-backed external tables
type NatsConfiguration struct {
	FlushTimeoutMS int `toml:"flush_timeout_ms"`
}

// ConnectorConfiguration controls connector instance pooling and per-kind defaults
type ConnectorConfiguration struct {
	PoolSize int                `toml:"pool_size"` // Max open connector instances kept in the LRU
	Kafka    KafkaConfiguration `toml:"kafka"`
	Nats     NatsConfiguration  `toml:"nats"`
}

// AdminConfiguration for the admin HTTP endpoints
type AdminConfiguration struct {
	Enabled     bool   `toml:"enabled"`
	BindAddress string `toml:"bind_address"`
	Port        int    `toml:"port"`
	Secret      string `toml:"secret"` // Empty disables authentication
}

// LoggingConfiguration controls logging behavior
type LoggingConfiguration struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"` // "console" or "json"
}

// PrometheusConfiguration for metrics
type PrometheusConfiguration struct {
	Enabled bool `toml:"enabled"`
}

// Configuration is the main configuration structure
type Configuration struct {
	NodeID  uint64 `toml:"node_id"`
	DataDir string `toml:"data_dir"`

	Catalog    CatalogConfiguration    `toml:"catalog"`
	Engine     EngineConfiguration     `toml:"engine"`
	Connectors ConnectorConfiguration  `toml:"connectors"`
	Admin      AdminConfiguration      `toml:"admin"`
	Logging    LoggingConfiguration    `toml:"logging"`
	Prometheus PrometheusConfiguration `toml:"prometheus"`
}

// Command line flags
var (
	ConfigPathFlag = flag.String("config", "config.toml", "Path to configuration file")
	DataDirFlag    = flag.String("data-dir", "", "Data directory (overrides config)")
	NodeIDFlag     = flag.Uint64("node-id", 0, "Node ID (overrides config, 0=auto)")
	AdminPortFlag  = flag.Int("admin-port", 0, "Admin HTTP port (overrides config)")
)

// Default configuration
var Config = DefaultConfiguration()

// DefaultConfiguration returns a fresh copy of the built-in defaults
func DefaultConfiguration() *Configuration {
	return &Configuration{
		NodeID:  0, // Auto-generate
		DataDir: "./airlock-data",

		Catalog: CatalogConfiguration{
			Store: CatalogStorePebble,
			Path:  "catalog",
		},

		Engine: EngineConfiguration{
			Workers: 8,
		},

		Connectors: ConnectorConfiguration{
			PoolSize: 64,
			Kafka: KafkaConfiguration{
				BatchSize:      100,
				WriteTimeoutMS: 5000,
			},
			Nats: NatsConfiguration{
				FlushTimeoutMS: 2000,
			},
		},

		Admin: AdminConfiguration{
			Enabled:     true,
			BindAddress: "127.0.0.1",
			Port:        8480,
		},

		Logging: LoggingConfiguration{
			Verbose: false,
			Format:  "console",
		},

		Prometheus: PrometheusConfiguration{
			Enabled: true,
		},
	}
}

// Load loads configuration from file and applies CLI overrides
func Load(configPath string) error {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			log.Info().Str("path", configPath).Msg("Loading configuration")
			if _, err := toml.DecodeFile(configPath, Config); err != nil {
				return fmt.Errorf("failed to decode config: %w", err)
			}
		} else {
			log.Warn().Str("path", configPath).Msg("Config file not found, using defaults")
		}
	}

	if *DataDirFlag != "" {
		Config.DataDir = *DataDirFlag
	}
	if *NodeIDFlag != 0 {
		Config.NodeID = *NodeIDFlag
	}
	if *AdminPortFlag != 0 {
		Config.Admin.Port = *AdminPortFlag
	}

	if Config.NodeID == 0 {
		var err error
		Config.NodeID, err = generateNodeID()
		if err != nil {
			return fmt.Errorf("failed to generate node ID: %w", err)
		}
		log.Info().Uint64("node_id", Config.NodeID).Msg("Auto-generated node ID")
	}

	if err := os.MkdirAll(Config.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	return nil
}

// generateNodeID creates a unique node ID based on machine ID
func generateNodeID() (uint64, error) {
	id, err := machineid.ProtectedID("airlock")
	if err != nil {
		return 0, err
	}

	h := fnv.New64a()
	h.Write([]byte(id))
	return h.Sum64(), nil
}

// Validate checks configuration for errors
func Validate() error {
	switch Config.Catalog.Store {
	case CatalogStoreMemory:
	case CatalogStorePebble:
		if Config.Catalog.Path == "" {
			return fmt.Errorf("catalog path is required for the pebble store")
		}
	default:
		return fmt.Errorf("invalid catalog store: %q", Config.Catalog.Store)
	}

	if Config.Engine.Workers < 1 {
		return fmt.Errorf("engine workers must be >= 1")
	}

	if Config.Connectors.PoolSize < 1 {
		return fmt.Errorf("connector pool size must be >= 1")
	}

	if Config.Connectors.Kafka.BatchSize < 1 {
		return fmt.Errorf("kafka batch size must be >= 1")
	}

	if Config.Connectors.Kafka.WriteTimeoutMS < 1 {
		return fmt.Errorf("kafka write timeout must be >= 1ms")
	}

	if Config.Connectors.Nats.FlushTimeoutMS < 1 {
		return fmt.Errorf("nats flush timeout must be >= 1ms")
	}

	if Config.Admin.Enabled && (Config.Admin.Port < 1 || Config.Admin.Port > 65535) {
		return fmt.Errorf("invalid admin port: %d", Config.Admin.Port)
	}

	switch Config.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid logging format: %q", Config.Logging.Format)
	}

	return nil
}

// IsAdminAuthEnabled returns true if admin requests must carry the secret
func IsAdminAuthEnabled() bool {
	return Config.Admin.Secret != ""
}

// CatalogPath returns the absolute location of the pebble catalog directory
func CatalogPath() string {
	if filepath.IsAbs(Config.Catalog.Path) {
		return Config.Catalog.Path
	}
	return filepath.Join(Config.DataDir, Config.Catalog.Path)
}
