// Package supervisor runs the relay's long-running tasks. None of them is
// expected to finish: the first one that returns, with or without an
// error, stops all others and its reason is returned.
package supervisor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rsclarke/dxrelay/internal/logging"
)

// ErrTaskExited is returned when a task returns nil.
var ErrTaskExited = errors.New("supervisor: task exited")

// Task is a named long-running function.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Run starts all tasks and blocks until one of them returns. The context
// passed to the tasks is canceled at that point and Run waits for the rest
// to stop. The returned error names the task that finished first.
func Run(ctx context.Context, logger *zap.Logger, tasks ...Task) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(tasks) == 0 {
		return fmt.Errorf("%w: no tasks", ErrTaskExited)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error {
			logger.Info("task started", logging.Task(task.Name))
			err := task.Run(gctx)
			if err == nil {
				err = ErrTaskExited
			}
			if gctx.Err() != nil && errors.Is(err, gctx.Err()) {
				logger.Info("task stopped", logging.Task(task.Name))
			} else {
				logger.Error("task finished, shutting down", logging.Task(task.Name), zap.Error(err))
			}
			return fmt.Errorf("%s: %w", task.Name, err)
		})
	}
	return g.Wait()
}
