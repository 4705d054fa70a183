package task

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/slok/ordersaga/internal/model"
)

// Handler runs one attempt of a task. Handlers must be idempotent, a task can
// run again after a crash or a stale requeue.
type Handler func(ctx context.Context, t model.Task) error

// Registry maps task names to their handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[model.TaskName]Handler
}

// NewRegistry returns an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: map[model.TaskName]Handler{}}
}

// Register registers the handler of a task name. A name can only be registered once.
func (r *Registry) Register(name model.TaskName, h Handler) error {
	if name == "" {
		return fmt.Errorf("task name is required: %w", model.ErrArgumentNull)
	}
	if h == nil {
		return fmt.Errorf("handler of %s is required: %w", name, model.ErrArgumentNull)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[name]; ok {
		return fmt.Errorf("handler of %s: %w", name, model.ErrAlreadyInUse)
	}
	r.handlers[name] = h

	return nil
}

// Handler returns the handler of a task name.
func (r *Registry) Handler(name model.TaskName) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered task names sorted.
func (r *Registry) Names() []model.TaskName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]model.TaskName, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	return names
}
