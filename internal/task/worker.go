package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slok/ordersaga/internal/log"
)

// WorkerConfig is the configuration of the task worker.
type WorkerConfig struct {
	Queue *Queue
	// Concurrency is the number of tasks executed at the same time.
	Concurrency int
	// PollInterval is the wait when there are no due tasks.
	PollInterval time.Duration
	Logger       log.Logger
}

func (c *WorkerConfig) defaults() error {
	if c.Queue == nil {
		return fmt.Errorf("queue is required")
	}

	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}

	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "task.Worker"})

	return nil
}

// Worker runs concurrent claim and execute loops over the queue.
type Worker struct {
	queue        *Queue
	concurrency  int
	pollInterval time.Duration
	logger       log.Logger
}

// NewWorker returns a new task worker.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Worker{
		queue:        cfg.Queue,
		concurrency:  cfg.Concurrency,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger,
	}, nil
}

// Run executes tasks until the context is done, then waits for the running ones.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Infof("Running %d task loops", w.concurrency)

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	wg.Wait()

	w.logger.Infof("Task worker stopped")
	return nil
}

// RunOnce claims and executes one task, returns false when nothing was due.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	t, err := w.queue.ClaimNext(ctx)
	if err != nil {
		return false, err
	}
	if t == nil {
		return false, nil
	}

	// The attempt is recorded even if the worker is being stopped.
	if _, err := w.queue.Execute(context.WithoutCancel(ctx), *t); err != nil {
		return true, err
	}
	return true, nil
}

func (w *Worker) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		ran, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Errorf("Could not run task: %s", err)
		}
		if ran {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.pollInterval):
		}
	}
}
