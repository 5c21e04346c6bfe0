package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"netprobe/scanner"
)

// Worker pulls task IDs from the store and runs the scans they describe.
// Scans running on all workers share one socket budget.
type Worker struct {
	store   TaskStore
	scanner *scanner.Scanner
	sockets *semaphore.Weighted
	budget  int64
	logger  *slog.Logger
}

// NewWorker builds a worker limited to maxSockets concurrently open probes
// across every scan it and its siblings run.
func NewWorker(store TaskStore, scan *scanner.Scanner, maxSockets int, logger *slog.Logger) *Worker {
	return &Worker{
		store:   store,
		scanner: scan,
		sockets: semaphore.NewWeighted(int64(maxSockets)),
		budget:  int64(maxSockets),
		logger:  logger,
	}
}

// Loop processes tasks until ctx is cancelled.
func (w *Worker) Loop(ctx context.Context) error {
	for {
		taskID, err := w.store.PopFromQueue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, ErrQueueEmpty) {
				continue
			}
			w.logger.Error("worker failed to pop task", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		w.Process(ctx, taskID)
	}
}

// Process runs a single task to a terminal state.
func (w *Worker) Process(ctx context.Context, taskID string) {
	task, err := w.store.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			w.logger.Warn("worker task disappeared", "task_id", taskID)
			return
		}
		w.logger.Error("worker failed to load task", "task_id", taskID, "error", err)
		return
	}

	now := time.Now().UTC()
	task.Status = StatusRunning
	task.Error = ""
	task.Report = nil
	task.StartedAt = &now
	task.CompletedAt = nil
	if err := w.store.UpdateTask(ctx, task); err != nil {
		w.logger.Error("worker failed to mark task running", "task_id", taskID, "error", err)
		return
	}

	req, opts, err := task.request()
	if err != nil {
		w.failTask(ctx, task, err)
		return
	}

	weight := int64(opts.Threads)
	if weight > w.budget {
		w.failTask(ctx, task, fmt.Errorf("threads %d exceed the socket budget of %d", opts.Threads, w.budget))
		return
	}
	if err := w.sockets.Acquire(ctx, weight); err != nil {
		w.failTask(ctx, task, fmt.Errorf("wait for socket budget: %w", err))
		return
	}
	report, err := w.scanner.Run(ctx, req, opts)
	w.sockets.Release(weight)
	if err != nil {
		w.failTask(ctx, task, err)
		return
	}

	task.Status = StatusCompleted
	task.Report = report
	done := time.Now().UTC()
	task.CompletedAt = &done

	if err := w.store.UpdateTask(ctx, task); err != nil {
		w.logger.Error("worker failed to update task", "task_id", task.ID, "error", err)
	}
}

func (w *Worker) failTask(ctx context.Context, task *ScanTask, err error) {
	w.logger.Error("worker task failed", "task_id", task.ID, "error", err)
	task.Status = StatusFailed
	task.Error = err.Error()
	task.Report = nil
	now := time.Now().UTC()
	task.CompletedAt = &now

	// The failure is persisted even when ctx is already cancelled.
	if updateErr := w.store.UpdateTask(context.WithoutCancel(ctx), task); updateErr != nil {
		w.logger.Error("worker failed to persist failed task", "task_id", task.ID, "error", updateErr)
	}
}
