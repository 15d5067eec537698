package app

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/indexer/internal/config"
	"github.com/kailas-cloud/indexer/internal/coord"
	coordRedis "github.com/kailas-cloud/indexer/internal/coord/redis"
	coordZK "github.com/kailas-cloud/indexer/internal/coord/zookeeper"
	logpkg "github.com/kailas-cloud/indexer/internal/logger"
	"github.com/kailas-cloud/indexer/internal/metrics"
	"github.com/kailas-cloud/indexer/internal/solr"
	"github.com/kailas-cloud/indexer/internal/staging"
	"github.com/kailas-cloud/indexer/internal/topology"
	healthuc "github.com/kailas-cloud/indexer/internal/usecase/health"
	indexuc "github.com/kailas-cloud/indexer/internal/usecase/index"
)

// components is the composition root shared by serve and the one-shot commands.
type components struct {
	cfg     config.Config
	logger  *zap.Logger
	solr    *solr.Client
	indexes *indexuc.Service
	health  *healthuc.Service
}

func build(flags *globalFlags) (*components, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logging.Level
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	logger, err := logpkg.NewLogger(flags.env, level)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	client, err := solr.NewClient(solr.Config{
		URL:               cfg.Solr.URL,
		Username:          cfg.Solr.Username,
		Password:          cfg.Solr.Password,
		Timeout:           time.Duration(cfg.Solr.TimeoutSec) * time.Second,
		MaxRetries:        uint(cfg.Solr.MaxRetries), //nolint:gosec // non-negative after defaults
		NumShards:         cfg.Solr.NumShards,
		ReplicationFactor: cfg.Solr.ReplicationFactor,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create solr client: %w", err)
	}

	opener, err := buildOpener(cfg.Coordination, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create coordination opener: %w", err)
	}

	stager, err := staging.New(staging.Config{
		TemplateDir: cfg.Staging.TemplateDir,
		TempDir:     cfg.Staging.TempDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load config templates: %w", err)
	}

	detector := topology.NewDetector(client)

	// Register lifecycle metrics explicitly (no init())
	metrics.RegisterLifecycleMetrics()
	metrics.RegisterHTTPMetrics()
	if err := metrics.RegisterTopologyProbes(prometheus.DefaultRegisterer, detector.Probes); err != nil {
		logger.Warn("Topology probe metric not registered", zap.Error(err))
	}

	indexes := indexuc.New(client, detector, opener, stager, indexuc.Config{
		CoreInstanceDir:   cfg.Staging.CoreInstanceDir,
		DefaultSampleRows: cfg.Index.DefaultSampleRows,
		MaxSampleRows:     cfg.Index.MaxSampleRows,
		MaxUploadBytes:    cfg.Index.MaxUploadBytes,
	})

	return &components{
		cfg:     cfg,
		logger:  logger,
		solr:    client,
		indexes: indexes,
		health:  healthuc.New(client, opener),
	}, nil
}

func buildOpener(cfg config.CoordinationConfig, logger *zap.Logger) (coord.Opener, error) {
	switch cfg.Driver {
	case config.DriverZooKeeper:
		return coordZK.NewOpener(coordZK.Config{
			Hosts:          cfg.Hosts,
			SessionTimeout: time.Duration(cfg.SessionTimeoutSec) * time.Second,
			Logger:         logger,
		})
	case config.DriverRedis, config.DriverValkey:
		logger.Warn("Coordination is emulated; Solr will not see published config sets",
			zap.String("driver", cfg.Driver))
		return coordRedis.NewOpener(coordRedis.Config{
			Addrs:     cfg.Hosts,
			Password:  cfg.Password,
			KeyPrefix: cfg.KeyPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown coordination driver %q", cfg.Driver)
	}
}
