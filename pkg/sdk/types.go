package indexer

import "github.com/kailas-cloud/indexer/internal/solr"

// IndexType distinguishes collections, aliases and cores.
type IndexType string

// Index type constants.
const (
	IndexCollection IndexType = "collection"
	IndexAlias      IndexType = "alias"
	IndexCore       IndexType = "core"
)

// Upload content types.
const (
	ContentCSV  = solr.ContentCSV
	ContentJSON = solr.ContentJSON
	ContentXML  = solr.ContentXML
)

// IndexInfo describes an index known to Solr.
type IndexInfo struct {
	Name        string
	Type        IndexType
	Collections []string // alias members
}

// Field defines a schema field of a new index.
type Field struct {
	Name        string
	Type        string
	Indexed     bool
	Stored      bool
	MultiValued bool
}

// CreateOption configures CreateIndex.
type CreateOption func(*createOptions)

type createOptions struct {
	configSet    string
	uniqueKey    string
	defaultField string
}

// WithConfigSet creates the collection from an existing config set instead of a generated one.
func WithConfigSet(name string) CreateOption {
	return func(o *createOptions) { o.configSet = name }
}

// WithUniqueKey sets the unique key field. Default: "id".
func WithUniqueKey(name string) CreateOption {
	return func(o *createOptions) { o.uniqueKey = name }
}

// WithDefaultField sets the default search field. Default: the unique key.
func WithDefaultField(name string) CreateOption {
	return func(o *createOptions) { o.defaultField = name }
}

// DeleteOption configures DeleteIndex.
type DeleteOption func(*deleteOptions)

type deleteOptions struct {
	keepConfig bool
}

// DropConfig also removes the index's config set from the coordination service.
func DropConfig() DeleteOption {
	return func(o *deleteOptions) { o.keepConfig = false }
}
