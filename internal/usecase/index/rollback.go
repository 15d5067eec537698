package index

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/indexer/internal/logger"
	"github.com/kailas-cloud/indexer/internal/metrics"
)

// Named compensating actions.
const (
	actionDeleteConfig  = "delete_config"
	actionAddCollection = "add_collection"
)

type undo struct {
	name string
	fn   func(ctx context.Context) error
}

// rollback is a LIFO stack of compensating actions for one operation.
type rollback struct {
	actions []undo
}

func (r *rollback) push(name string, fn func(ctx context.Context) error) {
	r.actions = append(r.actions, undo{name: name, fn: fn})
}

// discard drops all actions once the operation has passed its point of no return.
func (r *rollback) discard() {
	r.actions = nil
}

// run executes the actions newest first and joins their failures.
func (r *rollback) run(ctx context.Context) error {
	var errs []error
	for i := len(r.actions) - 1; i >= 0; i-- {
		a := r.actions[i]
		if err := compensate(ctx, a.name, a.fn); err != nil {
			errs = append(errs, err)
		}
	}
	r.actions = nil
	return errors.Join(errs...)
}

// compensate runs one compensating action with logging and metrics.
func compensate(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	metrics.LifecycleRollbacksTotal.WithLabelValues(name, metrics.Status(err)).Inc()

	log := logger.FromContext(ctx)
	if err != nil {
		log.Warn("Compensating action failed", zap.String("action", name), zap.Error(err))
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Warn("Compensating action applied", zap.String("action", name))
	return nil
}
