package task_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/storage/memory"
	"github.com/slok/ordersaga/internal/task"
)

var t0 = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

// clock is a manual clock safe to share with workers.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type env struct {
	queue    *task.Queue
	registry *task.Registry
	repo     *memory.TaskRepository
	clock    *clock
}

func newEnv(t *testing.T) env {
	t.Helper()

	repo, err := memory.NewTaskRepository(memory.TaskRepositoryConfig{})
	require.NoError(t, err)

	c := &clock{now: t0}
	reg := task.NewRegistry()
	q, err := task.NewQueue(task.QueueConfig{
		Repository:  repo,
		Registry:    reg,
		BackoffBase: time.Second,
		BackoffMax:  time.Minute,
		TimeNow:     c.Now,
	})
	require.NoError(t, err)

	return env{queue: q, registry: reg, repo: repo, clock: c}
}

func (e env) addTask(t *testing.T, id string, name model.TaskName, tries int) {
	t.Helper()

	_, err := e.repo.CreateTasks(context.Background(), []model.Task{model.NewTask(id, "cinerino", model.TaskSpec{
		Identifier:             "tx-1:" + string(name) + ":" + id,
		Name:                   name,
		RemainingNumberOfTries: tries,
		Data:                   model.TaskData{TransactionID: "tx-1"},
	}, t0)})
	require.NoError(t, err)
}

func TestRegistry(t *testing.T) {
	reg := task.NewRegistry()
	noop := func(context.Context, model.Task) error { return nil }

	require.NoError(t, reg.Register(model.TaskNameSendEmailMessage, noop))
	require.NoError(t, reg.Register(model.TaskNamePayAccount, noop))

	assert.ErrorIs(t, reg.Register(model.TaskNamePayAccount, noop), model.ErrAlreadyInUse)
	assert.ErrorIs(t, reg.Register(model.TaskNamePayCreditCard, nil), model.ErrArgumentNull)
	assert.ErrorIs(t, reg.Register("", noop), model.ErrArgumentNull)

	assert.Equal(t, []model.TaskName{model.TaskNamePayAccount, model.TaskNameSendEmailMessage}, reg.Names())
	_, ok := reg.Handler(model.TaskNamePayCreditCard)
	assert.False(t, ok)
}

func TestQueueBackoff(t *testing.T) {
	e := newEnv(t)

	tests := map[string]struct {
		tried int
		exp   time.Duration
	}{
		"First retry should use the base.":  {tried: 1, exp: time.Second},
		"Second retry should double.":       {tried: 2, exp: 2 * time.Second},
		"Fifth retry should be base·2^4.":   {tried: 5, exp: 16 * time.Second},
		"Late retries should be capped.":    {tried: 7, exp: time.Minute},
		"Huge retries should not overflow.": {tried: 200, exp: time.Minute},
		"A zero count should use the base.": {tried: 0, exp: time.Second},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, e.queue.Backoff(test.tried))
		})
	}
}

func TestQueueExecute(t *testing.T) {
	tests := map[string]struct {
		handler   task.Handler
		tries     int
		expStatus model.TaskStatus
		expErr    string
	}{
		"A successful handler should execute the task.": {
			handler:   func(context.Context, model.Task) error { return nil },
			tries:     3,
			expStatus: model.TaskStatusExecuted,
		},
		"A failing handler with tries left should be ready again.": {
			handler:   func(context.Context, model.Task) error { return fmt.Errorf("settle: %w", model.ErrServiceUnavailable) },
			tries:     3,
			expStatus: model.TaskStatusReady,
			expErr:    model.ErrorNameServiceUnavailable,
		},
		"A failing handler without tries left should abort.": {
			handler:   func(context.Context, model.Task) error { return errors.New("boom") },
			tries:     0,
			expStatus: model.TaskStatusAborted,
			expErr:    model.ErrorNameUnknown,
		},
		"A panicking handler should be recorded as a failure.": {
			handler:   func(context.Context, model.Task) error { panic("nil map") },
			tries:     1,
			expStatus: model.TaskStatusReady,
			expErr:    model.ErrorNameUnknown,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			e := newEnv(t)
			require.NoError(e.registry.Register(model.TaskNamePayAccount, test.handler))
			e.addTask(t, "task-1", model.TaskNamePayAccount, test.tries)

			claimed, err := e.queue.ClaimNext(ctx)
			require.NoError(err)
			require.NotNil(claimed)

			got, err := e.queue.Execute(ctx, *claimed)
			require.NoError(err)
			assert.Equal(test.expStatus, got.Status)

			stored, err := e.repo.GetTask(ctx, "task-1")
			require.NoError(err)
			assert.Equal(test.expStatus, stored.Status)
			require.Len(stored.ExecutionResults, 1)
			if test.expErr == "" {
				assert.Nil(stored.ExecutionResults[0].Error)
			} else {
				require.NotNil(stored.ExecutionResults[0].Error)
				assert.Equal(test.expErr, stored.ExecutionResults[0].Error.Name)
			}
		})
	}
}

func TestQueueRetryBudget(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	const tries = 4
	e := newEnv(t)
	var calls int32
	require.NoError(e.registry.Register(model.TaskNamePayCreditCard, func(context.Context, model.Task) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("gateway timeout")
	}))
	e.addTask(t, "task-1", model.TaskNamePayCreditCard, tries)

	readyCycles := 0
	lastRunsAt := t0
	for {
		claimed, err := e.queue.ClaimNext(ctx)
		require.NoError(err)
		if claimed == nil {
			// Not due yet, jump to the next run.
			stored, err := e.repo.GetTask(ctx, "task-1")
			require.NoError(err)
			require.Equal(model.TaskStatusReady, stored.Status)
			e.clock.Set(stored.RunsAt)
			continue
		}

		got, err := e.queue.Execute(ctx, *claimed)
		require.NoError(err)
		if got.Status == model.TaskStatusAborted {
			break
		}

		require.Equal(model.TaskStatusReady, got.Status)
		assert.True(got.RunsAt.After(lastRunsAt), "runs at should increase on every retry")
		lastRunsAt = got.RunsAt
		readyCycles++
	}

	stored, err := e.repo.GetTask(ctx, "task-1")
	require.NoError(err)
	assert.Equal(tries, readyCycles)
	assert.Equal(model.TaskStatusAborted, stored.Status)
	assert.Equal(tries, stored.NumberOfTried)
	assert.Equal(0, stored.RemainingNumberOfTries)
	assert.Len(stored.ExecutionResults, tries+1)
	assert.Equal(int32(tries+1), atomic.LoadInt32(&calls))

	// Aborted tasks are never claimed again.
	e.clock.Set(t0.Add(24 * time.Hour))
	claimed, err := e.queue.ClaimNext(ctx)
	require.NoError(err)
	assert.Nil(claimed)
}

func TestQueueFailAfterClaimIsReadyLater(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	require.NoError(t, e.registry.Register(model.TaskNameSendEmailMessage, func(context.Context, model.Task) error {
		return errors.New("smtp down")
	}))
	e.addTask(t, "task-1", model.TaskNameSendEmailMessage, 3)

	claimed, err := e.queue.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	got, err := e.queue.Execute(ctx, *claimed)
	require.NoError(t, err)

	assert.Equal(t, model.TaskStatusReady, got.Status)
	assert.True(t, got.RunsAt.After(t0))

	// Not due until the backoff passes.
	claimed, err = e.queue.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestQueueClaimOnlyRegisteredNames(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.addTask(t, "task-1", model.TaskNameMoneyTransfer, 1)

	claimed, err := e.queue.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, claimed)

	require.NoError(t, e.registry.Register(model.TaskNameMoneyTransfer, func(context.Context, model.Task) error { return nil }))
	claimed, err = e.queue.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, model.TaskStatusRunning, claimed.Status)
	assert.Equal(t, t0, *claimed.LastTriedAt)
}

func TestQueueExecuteWithoutHandler(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	require.NoError(t, e.registry.Register(model.TaskNamePayAccount, func(context.Context, model.Task) error { return nil }))
	e.addTask(t, "task-1", model.TaskNamePayAccount, 2)

	claimed, err := e.queue.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	unknown := *claimed
	unknown.Name = "unknown"
	got, err := e.queue.Execute(ctx, unknown)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusReady, got.Status)
	assert.Equal(t, model.ErrorNameNotFound, got.ExecutionResults[len(got.ExecutionResults)-1].Error.Name)
}

func TestQueueRequeueStale(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	e := newEnv(t)
	require.NoError(e.registry.Register(model.TaskNamePayAccount, func(context.Context, model.Task) error { return nil }))
	e.addTask(t, "task-1", model.TaskNamePayAccount, 2)
	e.addTask(t, "task-2", model.TaskNamePayAccount, 2)

	claimed, err := e.queue.ClaimNext(ctx)
	require.NoError(err)
	require.NotNil(claimed)

	e.clock.Set(t0.Add(10 * time.Minute))
	fresh, err := e.queue.ClaimNext(ctx)
	require.NoError(err)
	require.NotNil(fresh)

	n, err := e.queue.RequeueStale(ctx, t0.Add(5*time.Minute))
	require.NoError(err)
	assert.Equal(1, n)

	stale, err := e.repo.GetTask(ctx, claimed.ID)
	require.NoError(err)
	assert.Equal(model.TaskStatusReady, stale.Status)
	assert.Equal(1, stale.NumberOfTried)
	require.Len(stale.ExecutionResults, 1)
	assert.Equal(model.ErrorNameServiceUnavailable, stale.ExecutionResults[0].Error.Name)

	running, err := e.repo.GetTask(ctx, fresh.ID)
	require.NoError(err)
	assert.Equal(model.TaskStatusRunning, running.Status)

	// The late worker can't finish a requeued attempt.
	_, err = e.queue.Execute(ctx, *claimed)
	assert.ErrorIs(err, model.ErrNotFound)
}

// afterStaleListRepo runs a hook right after listing the stale tasks.
type afterStaleListRepo struct {
	*memory.TaskRepository
	hook func()
}

func (r afterStaleListRepo) ListStaleRunningTasks(ctx context.Context, triedBefore time.Time) ([]model.Task, error) {
	tasks, err := r.TaskRepository.ListStaleRunningTasks(ctx, triedBefore)
	r.hook()
	return tasks, err
}

func TestQueueRequeueStaleSkipsReclaimedTask(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	e := newEnv(t)
	require.NoError(e.registry.Register(model.TaskNamePayAccount, func(context.Context, model.Task) error { return nil }))
	e.addTask(t, "task-1", model.TaskNamePayAccount, 2)

	claimed, err := e.queue.ClaimNext(ctx)
	require.NoError(err)
	require.NotNil(claimed)

	// Between the stale listing and the requeue, the slow worker fails its
	// attempt and another worker claims the task again.
	var reclaimed *model.Task
	repo := afterStaleListRepo{TaskRepository: e.repo, hook: func() {
		e.clock.Set(t0.Add(10 * time.Minute))
		_, err := e.queue.Fail(ctx, *claimed, model.TaskExecutionResult{
			ExecutedAt: t0,
			EndDate:    e.clock.Now(),
			Error:      &model.ErrorDetail{Name: model.ErrorNameServiceUnavailable},
		})
		require.NoError(err)

		e.clock.Set(t0.Add(11 * time.Minute))
		reclaimed, err = e.queue.ClaimNext(ctx)
		require.NoError(err)
		require.NotNil(reclaimed)
	}}
	q, err := task.NewQueue(task.QueueConfig{
		Repository:  repo,
		Registry:    e.registry,
		BackoffBase: time.Second,
		BackoffMax:  time.Minute,
		TimeNow:     e.clock.Now,
	})
	require.NoError(err)

	n, err := q.RequeueStale(ctx, t0.Add(5*time.Minute))
	require.NoError(err)
	assert.Equal(0, n)

	got, err := e.repo.GetTask(ctx, "task-1")
	require.NoError(err)
	assert.Equal(model.TaskStatusRunning, got.Status)
	assert.Equal(1, got.NumberOfTried)
	assert.Equal(1, got.RemainingNumberOfTries)
	assert.Equal(t0.Add(11*time.Minute), *got.LastTriedAt)
	assert.Len(got.ExecutionResults, 1)

	// The live attempt can still finish.
	done, err := e.queue.Execute(ctx, *reclaimed)
	require.NoError(err)
	assert.Equal(model.TaskStatusExecuted, done.Status)
}

func TestWorkerRun(t *testing.T) {
	require := require.New(t)

	e := newEnv(t)
	var executed sync.Map
	require.NoError(e.registry.Register(model.TaskNameConfirmReservation, func(_ context.Context, tk model.Task) error {
		if _, loaded := executed.LoadOrStore(tk.ID, true); loaded {
			return fmt.Errorf("task %s executed twice", tk.ID)
		}
		return nil
	}))
	for i := 0; i < 20; i++ {
		e.addTask(t, fmt.Sprintf("task-%02d", i), model.TaskNameConfirmReservation, 0)
	}

	w, err := task.NewWorker(task.WorkerConfig{Queue: e.queue, Concurrency: 4, PollInterval: 5 * time.Millisecond})
	require.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool {
		tasks, err := e.repo.ListTasks(context.Background(), model.TaskFilter{Statuses: []model.TaskStatus{model.TaskStatusExecuted}})
		return err == nil && len(tasks) == 20
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker didn't stop")
	}
}
