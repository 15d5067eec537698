package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/kailas-cloud/indexer/internal/coord"
	"github.com/kailas-cloud/indexer/internal/domain"
	domindex "github.com/kailas-cloud/indexer/internal/domain/index"
	"github.com/kailas-cloud/indexer/internal/domain/index/field"
	"github.com/kailas-cloud/indexer/internal/logger"
	"github.com/kailas-cloud/indexer/internal/solr"
	"github.com/kailas-cloud/indexer/internal/staging"
	"github.com/kailas-cloud/indexer/internal/topology"
)

// CreateRequest describes a new index.
type CreateRequest struct {
	Name   string
	Fields []field.Field
	// ConfigSet names an already published config set. Staging is skipped when set.
	ConfigSet    string
	UniqueKey    string
	DefaultField string
}

// createState is a step of index creation.
type createState int

const (
	stateStart createState = iota
	stateConfigResolved
	stateConfigStaged
	statePublished
	stateFieldsApplied
	stateDone
)

func (s createState) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateConfigResolved:
		return "config_resolved"
	case stateConfigStaged:
		return "config_staged"
	case statePublished:
		return "published"
	case stateFieldsApplied:
		return "fields_applied"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// createRun tracks one creation attempt.
type createRun struct {
	req   CreateRequest
	state createState
	undo  rollback
	log   *zap.Logger
}

func (r *createRun) advance(next createState) {
	r.state = next
	r.log.Debug("Index creation advanced", zap.Stringer("state", next))
}

// CreateIndex creates a collection (cloud) or core (standalone).
func (s *Service) CreateIndex(ctx context.Context, req CreateRequest) (err error) {
	defer observe("create_index", time.Now(), &err)

	if err := validateCreate(req); err != nil {
		return err
	}

	mode, err := s.mode(ctx)
	if err != nil {
		return err
	}

	ctx = logger.With(ctx, zap.String("index", req.Name), zap.Stringer("mode", mode))
	run := &createRun{req: req, log: logger.FromContext(ctx)}

	if mode == topology.Cloud {
		err = s.createCollection(ctx, run)
	} else {
		err = s.createCore(ctx, run)
	}
	if err != nil {
		run.log.Error("Index creation failed", zap.Stringer("state", run.state), zap.Error(err))
		return err
	}
	run.advance(stateDone)
	run.log.Info("Index created")
	return nil
}

func validateCreate(req CreateRequest) error {
	if err := domindex.ValidateName(req.Name); err != nil {
		return domain.NewError(domain.ErrInvalidSchema, err, "Invalid index name %q", req.Name)
	}
	seen := make(map[string]struct{}, len(req.Fields))
	for _, f := range req.Fields {
		if _, dup := seen[f.Name()]; dup {
			return domain.NewError(domain.ErrInvalidSchema, nil, "Duplicate field %q", f.Name())
		}
		seen[f.Name()] = struct{}{}
	}
	return nil
}

// createCollection publishes the config set (unless one was named), creates
// the collection and applies the stored fields.
func (s *Service) createCollection(ctx context.Context, run *createRun) error {
	req := run.req
	configSet := req.ConfigSet
	declared := ""
	if configSet == "" {
		if err := s.publishConfig(ctx, run); err != nil {
			return err
		}
		configSet = req.Name
		declared = req.UniqueKey
		if declared == "" {
			declared = staging.DefaultUniqueKey
		}
	} else {
		run.advance(stateConfigResolved)
	}

	if err := s.engine.CreateCollection(ctx, req.Name, configSet); err != nil {
		rbErr := run.undo.run(ctx)
		return domain.NewError(domain.ErrCreateFailed, errors.Join(err, rbErr),
			"Could not create collection %s", req.Name)
	}
	run.undo.discard()
	run.advance(statePublished)

	// The collection stays when fields cannot be applied.
	if err := s.engine.AddFields(ctx, req.Name, fieldDefinitions(req.Fields, declared)); err != nil {
		return domain.NewError(domain.ErrCreateFailed, err,
			"Collection %s was created but its fields could not be applied", req.Name)
	}
	run.advance(stateFieldsApplied)
	return nil
}

// publishConfig stages a bundle and uploads it to configs/<name>.
// A partially written entry is removed before returning an error.
func (s *Service) publishConfig(ctx context.Context, run *createRun) error {
	req := run.req
	path := coord.ConfigPath(req.Name)

	err := coord.Do(ctx, s.coord, func(sess coord.Session) error {
		exists, err := sess.PathExists(ctx, path)
		if err != nil {
			return domain.NewError(domain.ErrCreateFailed, err, "Could not create index: %v", err)
		}
		if exists {
			return domain.NewError(domain.ErrAlreadyExists, nil, "Config set %s already exists", req.Name)
		}
		run.advance(stateConfigResolved)

		tempRoot, configRoot, err := s.stager.Stage(req.Fields, req.UniqueKey, req.DefaultField, true)
		if err != nil {
			return domain.NewError(domain.ErrCreateFailed, err, "Could not stage configuration for %s", req.Name)
		}
		defer release(ctx, tempRoot)
		run.advance(stateConfigStaged)

		if err := sess.CopyPath(ctx, path, filepath.Join(configRoot, staging.ConfDir)); err != nil {
			if errors.Is(err, coord.ErrNodeExists) {
				return domain.NewError(domain.ErrAlreadyExists, err, "Config set %s already exists", req.Name)
			}
			cleanupErr := compensate(ctx, actionDeleteConfig, func(ctx context.Context) error {
				return removePartial(ctx, sess, path)
			})
			return domain.NewError(domain.ErrCreateFailed, errors.Join(err, cleanupErr), "Could not create index: %v", err)
		}
		return nil
	})
	if err != nil {
		return domain.AsError(err, domain.ErrCreateFailed, "Could not reach the coordination service")
	}

	run.undo.push(actionDeleteConfig, func(ctx context.Context) error {
		return coord.Do(ctx, s.coord, func(sess coord.Session) error {
			return sess.DeletePath(ctx, path)
		})
	})
	return nil
}

func removePartial(ctx context.Context, sess coord.Session, path string) error {
	exists, err := sess.PathExists(ctx, path)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return sess.DeletePath(ctx, path)
}

// createCore installs the staged config in <core_instance_dir>/<name> and
// creates a core from it. The instance directory is removed afterwards in
// every case: the engine has read it by the time CreateCore returns.
func (s *Service) createCore(ctx context.Context, run *createRun) error {
	req := run.req
	if s.cfg.CoreInstanceDir == "" {
		return domain.NewError(domain.ErrUnsupportedMode, nil, "Core instance directory is not configured")
	}
	instanceDir := filepath.Join(s.cfg.CoreInstanceDir, req.Name)

	unlock, err := lockInstanceDir(s.cfg.CoreInstanceDir, req.Name)
	if err != nil {
		return err
	}
	defer unlock()

	if _, statErr := os.Stat(instanceDir); statErr == nil {
		return domain.NewError(domain.ErrAlreadyExists, nil,
			"Instance directory %s already exists! Please remove it from the file system.", instanceDir)
	} else if !os.IsNotExist(statErr) {
		return domain.NewError(domain.ErrCreateFailed, statErr, "Could not create index. Check error logs for more info.")
	}
	run.advance(stateConfigResolved)

	defer func() {
		if rmErr := os.RemoveAll(instanceDir); rmErr != nil {
			logger.FromContext(ctx).Warn("Failed to remove instance directory",
				zap.String("path", instanceDir), zap.Error(rmErr))
		}
	}()

	if err := s.installConfig(ctx, run, instanceDir); err != nil {
		return domain.NewError(domain.ErrCreateFailed, err, "Could not create index. Check error logs for more info.")
	}

	ok, err := s.engine.CreateCore(ctx, req.Name, instanceDir)
	if err != nil {
		return domain.NewError(domain.ErrCreateFailed, err, "Could not create index. Check error logs for more info.")
	}
	if !ok {
		return domain.NewError(domain.ErrCreateFailed, fmt.Errorf("failed to create core: %s", req.Name),
			"Could not create index. Check error logs for more info.")
	}
	run.advance(statePublished)
	return nil
}

// installConfig stages a bundle and moves its config root to instanceDir.
func (s *Service) installConfig(ctx context.Context, run *createRun, instanceDir string) error {
	req := run.req
	tempRoot, configRoot, err := s.stager.Stage(req.Fields, req.UniqueKey, req.DefaultField, false)
	if err != nil {
		return fmt.Errorf("stage config: %w", err)
	}
	defer release(ctx, tempRoot)
	run.advance(stateConfigStaged)

	if err := staging.Move(configRoot, instanceDir); err != nil {
		return fmt.Errorf("install config: %w", err)
	}
	return nil
}

// lockInstanceDir serializes creators of the same core within and across processes.
func lockInstanceDir(root, name string) (func(), error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, domain.NewError(domain.ErrCreateFailed, err, "Could not create index. Check error logs for more info.")
	}
	lockPath := filepath.Join(root, "."+name+".lock")
	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, domain.NewError(domain.ErrCreateFailed, err, "Could not create index. Check error logs for more info.")
	}
	if !locked {
		return nil, domain.NewError(domain.ErrAlreadyExists, nil, "Index %s is already being created", name)
	}
	// The lock file stays: unlinking it would let a waiter lock a stale inode.
	return func() { _ = fl.Unlock() }, nil
}

func release(ctx context.Context, tempRoot string) {
	if err := os.RemoveAll(tempRoot); err != nil {
		logger.FromContext(ctx).Warn("Failed to remove staging directory",
			zap.String("path", tempRoot), zap.Error(err))
	}
}

// fieldDefinitions converts fields to add-field payloads, skipping the one
// the config set already declares.
func fieldDefinitions(fields []field.Field, declared string) []solr.FieldDefinition {
	defs := make([]solr.FieldDefinition, 0, len(fields))
	for _, f := range fields {
		if declared != "" && f.Name() == declared {
			continue
		}
		defs = append(defs, solr.FieldDefinition{
			Name:        f.Name(),
			Type:        f.Type(),
			Indexed:     f.Indexed(),
			Stored:      f.Stored(),
			MultiValued: f.MultiValued(),
		})
	}
	return defs
}
