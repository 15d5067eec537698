// Package index coordinates the lifecycle of search indexes across SolrCloud
// and standalone Solr.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/indexer/internal/coord"
	"github.com/kailas-cloud/indexer/internal/domain"
	domindex "github.com/kailas-cloud/indexer/internal/domain/index"
	"github.com/kailas-cloud/indexer/internal/logger"
	"github.com/kailas-cloud/indexer/internal/metrics"
	"github.com/kailas-cloud/indexer/internal/solr"
	"github.com/kailas-cloud/indexer/internal/topology"
)

// Defaults for sampling and uploads.
const (
	DefaultSampleRows     = 100
	DefaultMaxSampleRows  = 1000
	DefaultMaxUploadBytes = 100 << 20
)

// Config tunes the coordinator.
type Config struct {
	// CoreInstanceDir is the parent of standalone core instance directories.
	CoreInstanceDir   string
	DefaultSampleRows int
	MaxSampleRows     int
	MaxUploadBytes    int64
}

// Service is the index lifecycle coordinator.
type Service struct {
	engine   SearchEngine
	detector ModeDetector
	coord    coord.Opener
	stager   Stager
	cfg      Config
}

// New creates the coordinator.
func New(engine SearchEngine, detector ModeDetector, opener coord.Opener, stager Stager, cfg Config) *Service {
	if cfg.DefaultSampleRows <= 0 {
		cfg.DefaultSampleRows = DefaultSampleRows
	}
	if cfg.MaxSampleRows <= 0 {
		cfg.MaxSampleRows = DefaultMaxSampleRows
	}
	if cfg.DefaultSampleRows > cfg.MaxSampleRows {
		cfg.DefaultSampleRows = cfg.MaxSampleRows
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Service{engine: engine, detector: detector, coord: opener, stager: stager, cfg: cfg}
}

// IsDistributed reports whether the cluster runs in cloud mode.
func (s *Service) IsDistributed(ctx context.Context) (bool, error) {
	mode, err := s.mode(ctx)
	if err != nil {
		return false, err
	}
	return mode == topology.Cloud, nil
}

// GetIndexes lists collections and aliases in cloud mode, and cores in
// standalone mode or when includeCores is set.
// A failure to list aliases is logged and skipped.
func (s *Service) GetIndexes(ctx context.Context, includeCores bool) (_ []domindex.Index, err error) {
	defer observe("get_indexes", time.Now(), &err)

	mode, err := s.mode(ctx)
	if err != nil {
		return nil, err
	}

	indexes := []domindex.Index{}
	if mode == topology.Cloud {
		collections, err := s.engine.ListCollections(ctx)
		if err != nil {
			return nil, engineError(err, "Error listing indexes")
		}
		for _, name := range collections {
			indexes = append(indexes, domindex.New(name, domindex.TypeCollection))
		}

		aliases, err := s.engine.ListAliases(ctx)
		if err != nil {
			logger.FromContext(ctx).Warn("Failed to list aliases", zap.Error(err))
		} else {
			names := make([]string, 0, len(aliases))
			for name := range aliases {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				indexes = append(indexes, domindex.New(name, domindex.TypeAlias, aliases[name]...))
			}
		}
	}

	if mode != topology.Cloud || includeCores {
		cores, err := s.engine.ListCores(ctx)
		if err != nil {
			return nil, engineError(err, "Error listing indexes")
		}
		for _, name := range cores {
			indexes = append(indexes, domindex.New(name, domindex.TypeCore))
		}
	}

	return indexes, nil
}

// SampleIndex returns up to rows documents. Non-positive rows fall back to the
// default; larger values are clamped to the maximum.
func (s *Service) SampleIndex(ctx context.Context, name string, rows int) (_ json.RawMessage, err error) {
	defer observe("sample_index", time.Now(), &err)

	res, err := s.engine.Select(ctx, name, s.clampRows(rows))
	if err != nil {
		return nil, engineError(err, "Error sampling index %s", name)
	}
	return res, nil
}

func (s *Service) clampRows(rows int) int {
	switch {
	case rows <= 0:
		return s.cfg.DefaultSampleRows
	case rows > s.cfg.MaxSampleRows:
		return s.cfg.MaxSampleRows
	default:
		return rows
	}
}

// ListConfigs returns the config set names known to the engine.
func (s *Service) ListConfigs(ctx context.Context) (_ []string, err error) {
	defer observe("list_configs", time.Now(), &err)

	configs, err := s.engine.ListConfigSets(ctx)
	if err != nil {
		return nil, engineError(err, "Error listing config sets")
	}
	if configs == nil {
		configs = []string{}
	}
	return configs, nil
}

// ListSchema returns the schema definition of an index.
func (s *Service) ListSchema(ctx context.Context, name string) (_ json.RawMessage, err error) {
	defer observe("list_schema", time.Now(), &err)

	schema, err := s.engine.GetSchema(ctx, name)
	if err != nil {
		return nil, engineError(err, "Error fetching schema of %s", name)
	}
	return schema, nil
}

// DeleteAlias removes an alias.
func (s *Service) DeleteAlias(ctx context.Context, name string) (err error) {
	defer observe("delete_alias", time.Now(), &err)

	if err := s.engine.DeleteAlias(ctx, name); err != nil {
		return engineError(err, "Error deleting alias %s", name)
	}
	return nil
}

func (s *Service) mode(ctx context.Context) (topology.Mode, error) {
	mode, err := s.detector.Mode(ctx)
	if err != nil {
		return topology.Unknown, domain.NewError(domain.ErrTopology, err, "Could not determine the search cluster mode")
	}
	return mode, nil
}

// engineError classifies a search engine failure as a user-facing error.
func engineError(err error, format string, args ...any) *domain.Error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	kind := domain.ErrEngineUnavailable
	var se *solr.Error
	if errors.As(err, &se) && se.Status == 404 {
		kind = domain.ErrNotFound
	}
	return domain.NewError(kind, err, format, args...)
}

func observe(op string, start time.Time, err *error) {
	status := metrics.Status(*err)
	metrics.LifecycleOperationsTotal.WithLabelValues(op, status).Inc()
	metrics.LifecycleOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
