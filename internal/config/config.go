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

// Coordination drivers.
const (
	DriverZooKeeper = "zookeeper"
	DriverRedis     = "redis"
	DriverValkey    = "valkey"
)

// Config holds the indexer configuration.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Solr         SolrConfig         `yaml:"solr"`
	Coordination CoordinationConfig `yaml:"coordination"`
	Staging      StagingConfig      `yaml:"staging"`
	Index        IndexConfig        `yaml:"index"`
	Auth         AuthConfig         `yaml:"auth"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// SolrConfig holds search engine connection settings.
type SolrConfig struct {
	URL               string `yaml:"url"`
	Username          string `yaml:"username"`
	Password          string `yaml:"password"`
	TimeoutSec        int    `yaml:"timeout_sec"`
	MaxRetries        int    `yaml:"max_retries"`
	NumShards         int    `yaml:"num_shards"`
	ReplicationFactor int    `yaml:"replication_factor"`
}

// CoordinationConfig holds coordination service settings.
type CoordinationConfig struct {
	Driver            string   `yaml:"driver"` // zookeeper, redis, valkey (default: zookeeper)
	Hosts             []string `yaml:"hosts"`  // zookeeper: "host:port[/chroot]" entries
	Password          string   `yaml:"password"`
	SessionTimeoutSec int      `yaml:"session_timeout_sec"`
	KeyPrefix         string   `yaml:"key_prefix"`
	// Emulated must be set for redis and valkey. Solr never reads config sets
	// published there, so those drivers only stand in for ZooKeeper in local
	// runs and tests against a Solr whose config sets are provisioned separately.
	Emulated bool `yaml:"emulated"`
}

// StagingConfig holds config bundle staging settings.
type StagingConfig struct {
	CoreInstanceDir string `yaml:"core_instance_dir"`
	TemplateDir     string `yaml:"template_dir"` // overrides the embedded templates
	TempDir         string `yaml:"temp_dir"`
}

// IndexConfig holds limits applied by the index coordinator.
type IndexConfig struct {
	DefaultSampleRows int   `yaml:"default_sample_rows"`
	MaxSampleRows     int   `yaml:"max_sample_rows"`
	MaxUploadBytes    int64 `yaml:"max_upload_bytes"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML file.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references.
func Parse(data []byte) (Config, error) {
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
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Solr.TimeoutSec <= 0 {
		c.Solr.TimeoutSec = 30
	}
	if c.Solr.MaxRetries < 0 {
		c.Solr.MaxRetries = 0
	} else if c.Solr.MaxRetries == 0 {
		c.Solr.MaxRetries = 3
	}
	if c.Solr.NumShards <= 0 {
		c.Solr.NumShards = 1
	}
	if c.Solr.ReplicationFactor <= 0 {
		c.Solr.ReplicationFactor = 1
	}
	if c.Coordination.Driver == "" {
		c.Coordination.Driver = DriverZooKeeper
	}
	if c.Coordination.SessionTimeoutSec <= 0 {
		c.Coordination.SessionTimeoutSec = 10
	}
	if c.Coordination.KeyPrefix == "" {
		c.Coordination.KeyPrefix = "indexer:"
	}
	if c.Index.DefaultSampleRows <= 0 {
		c.Index.DefaultSampleRows = 100
	}
	if c.Index.MaxSampleRows <= 0 {
		c.Index.MaxSampleRows = 1000
	}
	if c.Index.MaxUploadBytes <= 0 {
		c.Index.MaxUploadBytes = 100 * 1024 * 1024
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Solr.URL == "" {
		return fmt.Errorf("solr.url is required")
	}
	switch c.Coordination.Driver {
	case DriverZooKeeper:
	case DriverRedis, DriverValkey:
		if !c.Coordination.Emulated {
			return fmt.Errorf(
				"coordination.driver %q is not read by Solr; set coordination.emulated: true for local emulation",
				c.Coordination.Driver,
			)
		}
	default:
		return fmt.Errorf(
			"coordination.driver must be %q, %q or %q, got %q",
			DriverZooKeeper, DriverRedis, DriverValkey, c.Coordination.Driver,
		)
	}
	if c.Index.DefaultSampleRows > c.Index.MaxSampleRows {
		return fmt.Errorf("index.default_sample_rows (%d) exceeds index.max_sample_rows (%d)",
			c.Index.DefaultSampleRows, c.Index.MaxSampleRows)
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
