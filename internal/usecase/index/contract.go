package index

import (
	"context"
	"encoding/json"

	"github.com/kailas-cloud/indexer/internal/domain/index/field"
	"github.com/kailas-cloud/indexer/internal/solr"
	"github.com/kailas-cloud/indexer/internal/topology"
)

// SearchEngine is the administrative contract of the search engine.
type SearchEngine interface {
	ListCollections(ctx context.Context) ([]string, error)
	ListAliases(ctx context.Context) (map[string][]string, error)
	ListCores(ctx context.Context) ([]string, error)
	DeleteAlias(ctx context.Context, name string) error
	CreateCollection(ctx context.Context, name, configSet string) error
	AddFields(ctx context.Context, name string, fields []solr.FieldDefinition) error
	CreateCore(ctx context.Context, name, instanceDir string) (bool, error)
	DeleteCollection(ctx context.Context, name string) (solr.DeleteResult, error)
	AddCollection(ctx context.Context, name string) error
	Select(ctx context.Context, name string, rows int) (json.RawMessage, error)
	Update(ctx context.Context, name string, req solr.UpdateRequest) (json.RawMessage, error)
	ListConfigSets(ctx context.Context) ([]string, error)
	GetSchema(ctx context.Context, name string) (json.RawMessage, error)
}

// ModeDetector reports the cluster topology.
type ModeDetector interface {
	Mode(ctx context.Context) (topology.Mode, error)
}

// Stager renders a config bundle into a temporary root.
type Stager interface {
	Stage(fields []field.Field, uniqueKey, df string, cloud bool) (tempRoot, configRoot string, err error)
}
