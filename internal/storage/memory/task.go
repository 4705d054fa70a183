package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/slok/ordersaga/internal/log"
	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/storage"
)

// TaskRepositoryConfig is the configuration for the memory task repository.
type TaskRepositoryConfig struct {
	Logger log.Logger
}

func (c *TaskRepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.MemoryTaskRepository"})
	return nil
}

// TaskRepository is an in-memory implementation of storage.TaskRepository.
type TaskRepository struct {
	tasks       map[string]model.Task
	identifiers map[string]string
	mu          sync.Mutex
	logger      log.Logger
}

var _ storage.TaskRepository = &TaskRepository{}

// NewTaskRepository creates a new memory task repository.
func NewTaskRepository(cfg TaskRepositoryConfig) (*TaskRepository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &TaskRepository{
		tasks:       make(map[string]model.Task),
		identifiers: make(map[string]string),
		logger:      cfg.Logger,
	}, nil
}

// CreateTasks stores the tasks whose identifier is not already present.
func (r *TaskRepository) CreateTasks(ctx context.Context, tasks []model.Task) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := 0
	for _, t := range tasks {
		if _, ok := r.identifiers[t.Identifier]; ok {
			continue
		}
		if _, ok := r.tasks[t.ID]; ok {
			return created, fmt.Errorf("task with id %s: %w", t.ID, model.ErrAlreadyInUse)
		}
		r.tasks[t.ID] = cloneTask(t)
		r.identifiers[t.Identifier] = t.ID
		created++
	}

	r.logger.Debugf("Created %d of %d tasks", created, len(tasks))
	return created, nil
}

// GetTask retrieves a task by ID.
func (r *TaskRepository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	t = cloneTask(t)
	return &t, nil
}

// ListTasks returns the tasks matching the filter in creation order.
func (r *TaskRepository) ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var tasks []model.Task
	for _, t := range r.tasks {
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, t.Status) {
			continue
		}
		if len(filter.Names) > 0 && !slices.Contains(filter.Names, t.Name) {
			continue
		}
		if filter.TransactionID != "" && filter.TransactionID != t.Data.TransactionID {
			continue
		}
		tasks = append(tasks, cloneTask(t))
	}

	sortTasks(tasks)
	if filter.Limit > 0 && len(tasks) > filter.Limit {
		tasks = tasks[:filter.Limit]
	}

	return tasks, nil
}

// ClaimTask flips the ready task with the earliest due run time to running.
func (r *TaskRepository) ClaimTask(ctx context.Context, names []model.TaskName, now time.Time) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var candidates []model.Task
	for _, t := range r.tasks {
		if t.Status != model.TaskStatusReady || t.RunsAt.After(now) {
			continue
		}
		if len(names) > 0 && !slices.Contains(names, t.Name) {
			continue
		}
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].RunsAt.Equal(candidates[j].RunsAt) {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].RunsAt.Before(candidates[j].RunsAt)
	})

	t := candidates[0]
	triedAt := now
	t.Status = model.TaskStatusRunning
	t.LastTriedAt = &triedAt
	r.tasks[t.ID] = t

	t = cloneTask(t)
	return &t, nil
}

// FinishTaskAttempt stores the new state of a running task.
func (r *TaskRepository) FinishTaskAttempt(ctx context.Context, t model.Task, res model.TaskExecutionResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.tasks[t.ID]
	if !ok || current.Status != model.TaskStatusRunning || !sameAttempt(current.LastTriedAt, t.LastTriedAt) {
		return fmt.Errorf("running task %s: %w", t.ID, model.ErrNotFound)
	}

	current.Status = t.Status
	current.RunsAt = t.RunsAt
	current.NumberOfTried = t.NumberOfTried
	current.RemainingNumberOfTries = t.RemainingNumberOfTries
	current.ExecutionResults = append(slices.Clone(current.ExecutionResults), res)
	r.tasks[t.ID] = current
	r.logger.Debugf("Task %s attempt finished with status %s", t.ID, t.Status)

	return nil
}

// ListStaleRunningTasks returns running tasks last tried before the cutoff.
func (r *TaskRepository) ListStaleRunningTasks(ctx context.Context, triedBefore time.Time) ([]model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var tasks []model.Task
	for _, t := range r.tasks {
		if t.Status == model.TaskStatusRunning && t.LastTriedAt != nil && t.LastTriedAt.Before(triedBefore) {
			tasks = append(tasks, cloneTask(t))
		}
	}
	sortTasks(tasks)

	return tasks, nil
}

func sameAttempt(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func sortTasks(tasks []model.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}

func cloneTask(t model.Task) model.Task {
	t.ExecutionResults = slices.Clone(t.ExecutionResults)
	return t
}
