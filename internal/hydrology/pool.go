package hydrology

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// taskError ties a worker failure to the HRU it was solving.
type taskError struct {
	id  int
	err error
}

func (e *taskError) Error() string { return fmt.Sprintf("hru %d: %v", e.id, e.err) }
func (e *taskError) Unwrap() error { return e.err }

// runPool calls fn for every id with at most workers calls in flight and
// waits for all of them. The first failure stops calls not yet started and
// is returned as a *taskError. A panic in fn is reported as a failure.
func runPool(ctx context.Context, workers int, ids []int, fn func(id int) error) error {
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, id := range ids {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &taskError{id: id, err: fmt.Errorf("panic: %v\n%s", r, debug.Stack())}
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(id); err != nil {
				return &taskError{id: id, err: err}
			}
			return nil
		})
	}

	return g.Wait()
}
