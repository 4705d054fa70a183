package task

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/slok/ordersaga/internal/log"
	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/storage"
)

// QueueConfig is the configuration of the task queue.
type QueueConfig struct {
	Repository storage.TaskRepository
	Registry   *Registry
	// BackoffBase is the delay after the first failed attempt, doubled on every retry.
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// HandlerTimeout bounds every handler run.
	HandlerTimeout time.Duration
	Logger         log.Logger
	TimeNow        func() time.Time
}

func (c *QueueConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Registry == nil {
		return fmt.Errorf("registry is required")
	}

	if c.BackoffBase <= 0 {
		c.BackoffBase = 10 * time.Second
	}

	if c.BackoffMax <= 0 {
		c.BackoffMax = time.Hour
	}
	if c.BackoffMax < c.BackoffBase {
		return fmt.Errorf("backoff max can't be lower than the base")
	}

	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = 5 * time.Minute
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "task.Queue"})

	if c.TimeNow == nil {
		c.TimeNow = func() time.Time { return time.Now().UTC() }
	}

	return nil
}

// Queue claims tasks and records their attempts. It doesn't know what tasks
// do, handlers are resolved by name on the registry.
type Queue struct {
	repo           storage.TaskRepository
	registry       *Registry
	backoffBase    time.Duration
	backoffMax     time.Duration
	handlerTimeout time.Duration
	logger         log.Logger
	timeNow        func() time.Time
}

// NewQueue returns a new task queue.
func NewQueue(cfg QueueConfig) (*Queue, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Queue{
		repo:           cfg.Repository,
		registry:       cfg.Registry,
		backoffBase:    cfg.BackoffBase,
		backoffMax:     cfg.BackoffMax,
		handlerTimeout: cfg.HandlerTimeout,
		logger:         cfg.Logger,
		timeNow:        cfg.TimeNow,
	}, nil
}

// Backoff returns the delay after the attempt number numberOfTried: base·2^(n-1) capped at max.
func (q *Queue) Backoff(numberOfTried int) time.Duration {
	d := q.backoffBase
	for i := 1; i < numberOfTried; i++ {
		d *= 2
		if d >= q.backoffMax {
			return q.backoffMax
		}
	}
	return d
}

// ClaimNext claims the next due task with a registered handler, nil if there is none.
func (q *Queue) ClaimNext(ctx context.Context) (*model.Task, error) {
	names := q.registry.Names()
	if len(names) == 0 {
		return nil, nil
	}

	t, err := q.repo.ClaimTask(ctx, names, q.timeNow())
	if err != nil {
		return nil, fmt.Errorf("could not claim task: %w", err)
	}
	return t, nil
}

// Complete marks a running task as executed.
func (q *Queue) Complete(ctx context.Context, t model.Task, res model.TaskExecutionResult) (*model.Task, error) {
	res.Error = nil
	done := t.Complete(res)
	if err := q.repo.FinishTaskAttempt(ctx, done, res); err != nil {
		return nil, fmt.Errorf("could not complete task: %w", err)
	}

	return &done, nil
}

// Fail records a failed attempt of a running task. The task is ready again
// after the backoff while it has tries left, aborted otherwise.
func (q *Queue) Fail(ctx context.Context, t model.Task, res model.TaskExecutionResult) (*model.Task, error) {
	if res.Error == nil {
		res.Error = &model.ErrorDetail{Name: model.ErrorNameUnknown}
	}

	failed := t.Fail(res, q.Backoff)
	if err := q.repo.FinishTaskAttempt(ctx, failed, res); err != nil {
		return nil, fmt.Errorf("could not fail task: %w", err)
	}

	logger := q.logger.WithValues(log.Kv{"task": t.ID, "name": t.Name})
	if failed.Status == model.TaskStatusAborted {
		logger.Errorf("Task aborted after %d tries: %s", failed.NumberOfTried+1, res.Error.Message)
	} else {
		logger.Warningf("Task failed, retrying at %s: %s", failed.RunsAt.Format(time.RFC3339), res.Error.Message)
	}

	return &failed, nil
}

// Execute runs the handler of a claimed task and records the attempt. Handler
// errors and panics are recorded as failed attempts, only storage errors are returned.
func (q *Queue) Execute(ctx context.Context, t model.Task) (*model.Task, error) {
	res := model.TaskExecutionResult{ExecutedAt: q.timeNow()}
	err := q.run(ctx, t)
	res.EndDate = q.timeNow()

	if err != nil {
		res.Error = model.NewErrorDetail(err)
		return q.Fail(ctx, t, res)
	}

	q.logger.WithValues(log.Kv{"task": t.ID, "name": t.Name}).Debugf("Task executed")
	return q.Complete(ctx, t, res)
}

func (q *Queue) run(ctx context.Context, t model.Task) (err error) {
	h, ok := q.registry.Handler(t.Name)
	if !ok {
		return fmt.Errorf("no handler for task %s: %w", t.Name, model.ErrNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, q.handlerTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			q.logger.Errorf("Task %s handler panicked: %v\n%s", t.ID, r, debug.Stack())
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return h(ctx, t)
}

// RequeueStale fails the running tasks tried before the cutoff, their worker is
// considered dead. Returns the number of requeued tasks.
func (q *Queue) RequeueStale(ctx context.Context, cutoff time.Time) (int, error) {
	tasks, err := q.repo.ListStaleRunningTasks(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("could not list stale tasks: %w", err)
	}

	n := 0
	for _, t := range tasks {
		triedAt := cutoff
		if t.LastTriedAt != nil {
			triedAt = *t.LastTriedAt
		}
		res := model.TaskExecutionResult{
			ExecutedAt: triedAt,
			EndDate:    q.timeNow(),
			Error:      model.NewErrorDetail(fmt.Errorf("task attempt timed out: %w", model.ErrServiceUnavailable)),
		}
		if _, err := q.Fail(ctx, t, res); err != nil {
			// Finished by its worker or claimed again in the meantime.
			q.logger.Warningf("Could not requeue stale task %s: %s", t.ID, err)
			continue
		}
		n++
	}

	return n, nil
}
