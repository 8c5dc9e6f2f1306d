// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package concurrent runs bounded groups of tasks.
package concurrent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Task is a named unit of work run by a WorkerPool.
type Task struct {
	Name string
	Fn   func(ctx context.Context) error
}

// WorkerPool runs tasks with at most workerCount of them in flight.
type WorkerPool struct {
	workerCount int
}

// NewWorkerPool creates a pool; counts below one are raised to one.
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &WorkerPool{workerCount: workerCount}
}

// Run stops at the first failing task and cancels the context handed to the
// others. The returned error names the task that failed.
func (wp *WorkerPool) Run(ctx context.Context, tasks ...Task) error {
	if len(tasks) == 0 {
		return nil
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(wp.workerCount)

	for _, task := range tasks {
		g.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			if err := task.Fn(groupCtx); err != nil {
				return fmt.Errorf("%s: %w", task.Name, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// RunAll runs every task regardless of failures and joins their errors.
// Tasks not yet started when ctx is done report ctx.Err().
func (wp *WorkerPool) RunAll(ctx context.Context, tasks ...Task) error {
	if len(tasks) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g := new(errgroup.Group)
	g.SetLimit(wp.workerCount)

	for _, task := range tasks {
		g.Go(func() error {
			err := ctx.Err()
			if err == nil {
				err = task.Fn(ctx)
			}
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", task.Name, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
