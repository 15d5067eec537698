package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/indexer/internal/domain/index/field"
	indexuc "github.com/kailas-cloud/indexer/internal/usecase/index"
)

// IsDistributed reports whether Solr runs in SolrCloud mode.
func (c *Client) IsDistributed(ctx context.Context) (_ bool, err error) {
	start := time.Now()
	defer func() { c.obs.observe("is_distributed", start, err) }()

	return c.indexes.IsDistributed(ctx)
}

// Indexes lists collections and aliases, plus cores when includeCores is set.
func (c *Client) Indexes(ctx context.Context, includeCores bool) (_ []IndexInfo, err error) {
	start := time.Now()
	defer func() { c.obs.observe("list_indexes", start, err) }()

	indexes, err := c.indexes.GetIndexes(ctx, includeCores)
	if err != nil {
		return nil, err
	}
	out := make([]IndexInfo, len(indexes))
	for i, idx := range indexes {
		out[i] = IndexInfo{
			Name:        idx.Name(),
			Type:        IndexType(idx.Type()),
			Collections: idx.Collections(),
		}
	}
	return out, nil
}

// CreateIndex creates a collection (SolrCloud) or core (standalone) with the given fields.
func (c *Client) CreateIndex(ctx context.Context, name string, fields []Field, opts ...CreateOption) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("create_index", start, err) }()

	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	domFields, err := toDomainFields(fields)
	if err != nil {
		return err
	}
	return c.indexes.CreateIndex(ctx, indexuc.CreateRequest{
		Name:         name,
		Fields:       domFields,
		ConfigSet:    o.configSet,
		UniqueKey:    o.uniqueKey,
		DefaultField: o.defaultField,
	})
}

// DeleteIndex deletes a collection. The config set is kept unless DropConfig is passed.
func (c *Client) DeleteIndex(ctx context.Context, name string, opts ...DeleteOption) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("delete_index", start, err) }()

	o := deleteOptions{keepConfig: true}
	for _, opt := range opts {
		opt(&o)
	}
	return c.indexes.DeleteIndex(ctx, name, o.keepConfig)
}

// Upload sends documents to the index's update handler.
// options are passed through for the CSV loader (separator, header, ...).
func (c *Client) Upload(
	ctx context.Context, name string, data []byte, contentType string, options map[string]string,
) (_ json.RawMessage, err error) {
	start := time.Now()
	defer func() { c.obs.observe("upload", start, err) }()

	return c.indexes.Index(ctx, name, indexuc.UpdateRequest{
		Data:        data,
		ContentType: contentType,
		Options:     options,
	})
}

// Sample returns up to rows documents from the index. rows <= 0 uses the default.
func (c *Client) Sample(ctx context.Context, name string, rows int) (_ json.RawMessage, err error) {
	start := time.Now()
	defer func() { c.obs.observe("sample", start, err) }()

	return c.indexes.SampleIndex(ctx, name, rows)
}

// Schema returns the raw schema of the index.
func (c *Client) Schema(ctx context.Context, name string) (_ json.RawMessage, err error) {
	start := time.Now()
	defer func() { c.obs.observe("schema", start, err) }()

	return c.indexes.ListSchema(ctx, name)
}

// Configs lists config set names.
func (c *Client) Configs(ctx context.Context) (_ []string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("list_configs", start, err) }()

	return c.indexes.ListConfigs(ctx)
}

// DeleteAlias removes a collection alias.
func (c *Client) DeleteAlias(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("delete_alias", start, err) }()

	return c.indexes.DeleteAlias(ctx, name)
}

func toDomainFields(fields []Field) ([]field.Field, error) {
	out := make([]field.Field, 0, len(fields))
	for _, f := range fields {
		df, err := field.New(f.Name, f.Type,
			field.WithIndexed(f.Indexed),
			field.WithStored(f.Stored),
			field.WithMultiValued(f.MultiValued),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
		}
		out = append(out, df)
	}
	return out, nil
}
