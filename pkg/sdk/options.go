package indexer

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	solrURL           string
	solrUsername      string
	solrPassword      string
	timeout           time.Duration
	numShards         int
	replicationFactor int

	driver    string // "zookeeper", "redis" or "valkey"
	addrs     []string
	password  string
	keyPrefix string

	coreInstanceDir string
	templateDir     string
	maxUploadBytes  int64

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithSolr sets the Solr base URL, including the context path.
func WithSolr(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.solrURL = url
	})
}

// WithSolrAuth enables HTTP basic auth against Solr.
func WithSolrAuth(username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.solrUsername = username
		c.solrPassword = password
	})
}

// WithTimeout sets the per-request Solr timeout. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithCollectionLayout sets shard and replica counts for new collections.
// Defaults: 1 shard, replication factor 1.
func WithCollectionLayout(numShards, replicationFactor int) Option {
	return optionFunc(func(c *clientConfig) {
		c.numShards = numShards
		c.replicationFactor = replicationFactor
	})
}

// WithZooKeeper publishes config sets to a ZooKeeper ensemble.
// A trailing "/chroot" on any host applies to the whole ensemble.
func WithZooKeeper(hosts ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "zookeeper"
		c.addrs = hosts
	})
}

// WithRedis stores config sets in a Redis key space that emulates ZooKeeper.
// Solr does not read it; use it for local runs and tests only.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithValkey is WithRedis for Valkey.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix sets the key prefix used by the Redis/Valkey drivers.
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithCoreInstanceDir enables core creation against standalone Solr.
// dir must be the core root directory as seen by the Solr process.
func WithCoreInstanceDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.coreInstanceDir = dir
	})
}

// WithTemplateDir replaces the built-in schema.xml and solrconfig.xml templates.
func WithTemplateDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.templateDir = dir
	})
}

// WithMaxUploadBytes caps Upload payloads. Default: 100 MiB.
func WithMaxUploadBytes(n int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxUploadBytes = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
