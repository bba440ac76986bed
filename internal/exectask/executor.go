package exectask

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vixengraph/rendergraph/internal/diag"
)

// TaskError is the per-task error record the executor accumulates;
// sibling tasks in the same level still run after one fails (spec §7).
type TaskError struct {
	Task    TaskID
	Phase   Phase
	Message string
}

// Executor runs tasks level-by-level within one phase, barrier-waiting
// each level before starting the next, generalizing the teacher's
// goroutine+sync.WaitGroup+mutex-guarded-diagnostics pattern
// (execgraph/compiled.go Execute) to leveled parallel scheduling.
type Executor struct {
	poolSize int
}

// NewExecutor returns an Executor submitting at most poolSize tasks
// concurrently per level.
func NewExecutor(poolSize int) *Executor {
	if poolSize < 1 {
		poolSize = 1
	}
	return &Executor{poolSize: poolSize}
}

// RunPhase executes every level of levels in order, running tasks within
// a level concurrently up to the pool size, and barrier-waiting the
// level before moving to the next. A task panic is recovered and
// recorded, never aborting sibling tasks. Returns the accumulated
// per-task errors and a Diagnostics view of them.
func (e *Executor) RunPhase(ctx context.Context, phase Phase, levels [][]*Task) ([]TaskError, diag.Diagnostics) {
	var (
		mu     sync.Mutex
		errs   []TaskError
		diags  diag.Diagnostics
	)

	for _, level := range levels {
		if ctx.Err() != nil {
			break
		}

		g, gctx := errgroup.WithContext(context.Background())
		g.SetLimit(e.poolSize)

		for _, task := range level {
			task := task
			g.Go(func() error {
				if ctx.Err() != nil || gctx.Err() != nil {
					return nil
				}
				if err := runTaskSafely(task); err != nil {
					mu.Lock()
					errs = append(errs, TaskError{Task: task.ID, Phase: phase, Message: err.Error()})
					diags = diags.Appendf(fmt.Sprintf("task(%d,%d)", task.ID.Node, task.ID.Bundle), "task failed", "%s", err)
					mu.Unlock()
				}
				return nil
			})
		}

		// errgroup's Wait never returns a non-nil error here since every
		// goroutine captures its own error into errs instead of
		// propagating it, matching the spec's "a failure does not abort
		// the phase" contract.
		_ = g.Wait()
	}

	return errs, diags
}

func runTaskSafely(task *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task.Run()
}

// LevelsWithSerializedNonParallelizable takes the conflict-derived
// parallel levels and splits out any non-parallelizable task into its
// own singleton level immediately before the level it would otherwise
// share, per spec §4.8's opt-out.
func LevelsWithSerializedNonParallelizable(levels [][]TaskID, tasksByID map[TaskID]*Task) [][]*Task {
	var out [][]*Task
	for _, level := range levels {
		var normal []*Task
		for _, id := range level {
			t := tasksByID[id]
			if t.NonParallelizable {
				out = append(out, []*Task{t})
			} else {
				normal = append(normal, t)
			}
		}
		if len(normal) > 0 {
			out = append(out, normal)
		}
	}
	return out
}
