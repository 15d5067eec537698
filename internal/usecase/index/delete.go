package index

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/indexer/internal/coord"
	"github.com/kailas-cloud/indexer/internal/domain"
	"github.com/kailas-cloud/indexer/internal/logger"
	"github.com/kailas-cloud/indexer/internal/topology"
)

// Engine responses meaning the index is already gone.
var missingMarkers = []string{
	"Cannot unload non-existent core",
	"Could not find collection",
}

// DeleteIndex removes a collection and, unless keepConfig is set, its config set.
// Removing an index that does not exist succeeds. Only cloud mode is supported.
//
// When the config set cannot be removed the collection is re-created from it
// so the config is not left without an owner.
func (s *Service) DeleteIndex(ctx context.Context, name string, keepConfig bool) (err error) {
	defer observe("delete_index", time.Now(), &err)

	mode, err := s.mode(ctx)
	if err != nil {
		return err
	}
	if mode != topology.Cloud {
		return domain.NewError(domain.ErrUnsupportedMode, nil, "Cannot remove non-SolrCloud cores.")
	}

	ctx = logger.With(ctx, zap.String("index", name))
	log := logger.FromContext(ctx)

	res, err := s.engine.DeleteCollection(ctx, name)
	if err != nil {
		return engineError(err, "Could not remove collection %s", name)
	}
	if res.Status != 0 {
		if isMissing(res.Raw) {
			log.Info("Index already removed")
			return nil
		}
		return domain.NewError(domain.ErrDeleteFailed, errors.New(res.Raw),
			"Could not remove collection: %s", res.Message)
	}

	if keepConfig {
		log.Info("Index removed, config set kept")
		return nil
	}

	path := coord.ConfigPath(name)
	err = coord.Do(ctx, s.coord, func(sess coord.Session) error {
		return sess.DeletePath(ctx, path)
	})
	switch {
	case err == nil:
	case errors.Is(err, coord.ErrNoNode):
		log.Info("No config set to remove", zap.String("path", path))
	default:
		compErr := compensate(ctx, actionAddCollection, func(ctx context.Context) error {
			return s.engine.AddCollection(ctx, name)
		})
		return domain.NewError(domain.ErrDeleteFailed, errors.Join(err, compErr), "Error in deleting Solr configurations.")
	}

	log.Info("Index removed")
	return nil
}

func isMissing(raw string) bool {
	for _, m := range missingMarkers {
		if strings.Contains(raw, m) {
			return true
		}
	}
	return false
}
