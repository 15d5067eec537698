package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/indexer/internal/coord"
	coordRedis "github.com/kailas-cloud/indexer/internal/coord/redis"
	coordZK "github.com/kailas-cloud/indexer/internal/coord/zookeeper"
	domindex "github.com/kailas-cloud/indexer/internal/domain/index"
	"github.com/kailas-cloud/indexer/internal/solr"
	"github.com/kailas-cloud/indexer/internal/staging"
	"github.com/kailas-cloud/indexer/internal/topology"
	healthuc "github.com/kailas-cloud/indexer/internal/usecase/health"
	indexuc "github.com/kailas-cloud/indexer/internal/usecase/index"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
)

// indexUseCase is the internal interface, swapped out in tests.
type indexUseCase interface {
	IsDistributed(ctx context.Context) (bool, error)
	GetIndexes(ctx context.Context, includeCores bool) ([]domindex.Index, error)
	CreateIndex(ctx context.Context, req indexuc.CreateRequest) error
	Index(ctx context.Context, name string, req indexuc.UpdateRequest) (json.RawMessage, error)
	DeleteIndex(ctx context.Context, name string, keepConfig bool) error
	SampleIndex(ctx context.Context, name string, rows int) (json.RawMessage, error)
	ListConfigs(ctx context.Context) ([]string, error)
	ListSchema(ctx context.Context, name string) (json.RawMessage, error)
	DeleteAlias(ctx context.Context, name string) error
}

// Client is the indexer SDK entry point.
type Client struct {
	indexes   indexUseCase
	healthSvc healthUseCase
	engine    *solr.Client
	obs       *observer
}

// New creates a Client. The provided context is used for the initial Solr ping.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		timeout:           defaultTimeout,
		numShards:         1,
		replicationFactor: 1,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.solrURL == "" {
		return nil, errors.New("indexer: solr url required (use WithSolr)")
	}
	if len(cfg.addrs) == 0 {
		return nil, errors.New("indexer: coordination service required (use WithZooKeeper, WithRedis or WithValkey)")
	}

	engine, err := solr.NewClient(solr.Config{
		URL:               cfg.solrURL,
		Username:          cfg.solrUsername,
		Password:          cfg.solrPassword,
		Timeout:           cfg.timeout,
		MaxRetries:        defaultMaxRetries,
		NumShards:         cfg.numShards,
		ReplicationFactor: cfg.replicationFactor,
	})
	if err != nil {
		return nil, fmt.Errorf("indexer: %w", err)
	}

	opener, err := createOpener(cfg)
	if err != nil {
		return nil, err
	}

	if err := engine.Ping(ctx); err != nil {
		return nil, fmt.Errorf("indexer: solr not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	return wireClient(engine, opener, cfg, obs)
}

func createOpener(cfg *clientConfig) (coord.Opener, error) {
	switch cfg.driver {
	case "zookeeper":
		o, err := coordZK.NewOpener(coordZK.Config{Hosts: cfg.addrs})
		if err != nil {
			return nil, fmt.Errorf("indexer: create zookeeper opener: %w", err)
		}
		return o, nil
	case "redis", "valkey":
		o, err := coordRedis.NewOpener(coordRedis.Config{
			Addrs:     cfg.addrs,
			Password:  cfg.password,
			KeyPrefix: cfg.keyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("indexer: create %s opener: %w", cfg.driver, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("indexer: unknown coordination driver %q", cfg.driver)
	}
}

func wireClient(engine *solr.Client, opener coord.Opener, cfg *clientConfig, obs *observer) (*Client, error) {
	stager, err := staging.New(staging.Config{TemplateDir: cfg.templateDir})
	if err != nil {
		return nil, fmt.Errorf("indexer: load templates: %w", err)
	}

	indexes := indexuc.New(engine, topology.NewDetector(engine), opener, stager, indexuc.Config{
		CoreInstanceDir: cfg.coreInstanceDir,
		MaxUploadBytes:  cfg.maxUploadBytes,
	})

	return &Client{
		indexes:   indexes,
		healthSvc: healthuc.New(engine, opener),
		engine:    engine,
		obs:       obs,
	}, nil
}

// Ping checks Solr connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.engine.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
