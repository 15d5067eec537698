package index

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/indexer/internal/domain"
	"github.com/kailas-cloud/indexer/internal/logger"
	"github.com/kailas-cloud/indexer/internal/solr"
)

// CSV loader options forwarded to the update handler.
var updateOptions = map[string]struct{}{
	"separator":    {},
	"fieldnames":   {},
	"header":       {},
	"skip":         {},
	"encapsulator": {},
	"escape":       {},
	"map":          {},
	"split":        {},
	"overwrite":    {},
	"rowid":        {},
}

// UpdateRequest is a batch of documents to add to an index.
type UpdateRequest struct {
	Data        []byte
	ContentType string // csv (default), json or xml
	Version     string
	Options     map[string]string
}

// Index posts documents to an index and commits them.
// Options outside the CSV loader set are dropped.
func (s *Service) Index(ctx context.Context, name string, req UpdateRequest) (_ json.RawMessage, err error) {
	defer observe("index", time.Now(), &err)

	if int64(len(req.Data)) > s.cfg.MaxUploadBytes {
		return nil, domain.NewError(domain.ErrPayloadTooLarge, nil,
			"Upload of %d bytes exceeds the limit of %d bytes", len(req.Data), s.cfg.MaxUploadBytes)
	}

	switch req.ContentType {
	case "", solr.ContentCSV, solr.ContentJSON, solr.ContentXML:
	default:
		return nil, domain.NewError(domain.ErrInvalidRequest, nil, "Unsupported content type %q", req.ContentType)
	}

	params := make(map[string]string, len(req.Options))
	for k, v := range req.Options {
		if _, ok := updateOptions[k]; !ok {
			logger.FromContext(ctx).Debug("Dropping unsupported update option", zap.String("option", k))
			continue
		}
		params[k] = v
	}

	res, err := s.engine.Update(ctx, name, solr.UpdateRequest{
		Data:        req.Data,
		ContentType: req.ContentType,
		Version:     req.Version,
		Params:      params,
	})
	if err != nil {
		return nil, engineError(err, "Could not index documents into %s", name)
	}
	return res, nil
}

// MaxUploadBytes returns the upload limit.
func (s *Service) MaxUploadBytes() int64 { return s.cfg.MaxUploadBytes }
