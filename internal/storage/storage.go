package storage

import (
	"context"
	"time"

	"github.com/slok/ordersaga/internal/model"
)

// TransactionRepository is the interface for transaction persistence. Every
// mutation is a single conditional update, a precondition miss is returned as
// model.ErrNotFound.
type TransactionRepository interface {
	// CreateTransaction stores a new transaction, returns model.ErrAlreadyInUse on
	// idempotency key collisions and on a second in progress or confirmed return
	// of the same order.
	CreateTransaction(ctx context.Context, t model.Transaction) error
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	// GetTransactionByOrderNumber returns the confirmed transaction that created the order.
	GetTransactionByOrderNumber(ctx context.Context, orderNumber string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error)
	// UpdateAgentContact sets the agent contact of an in progress transaction owned by the agent.
	UpdateAgentContact(ctx context.Context, id, agentID string, contact model.Contact) error
	// ConfirmTransaction seals an in progress, not expired transaction with its result.
	ConfirmTransaction(ctx context.Context, req ConfirmTransactionRequest) error
	// CancelTransaction seals an in progress transaction as canceled.
	CancelTransaction(ctx context.Context, id string, endDate time.Time) error
	// ExpireTransactions seals every in progress transaction past its expiry and returns their IDs.
	ExpireTransactions(ctx context.Context, now time.Time) ([]string, error)
	// ClaimTransactionForExport atomically flips one unexported transaction in any of
	// the statuses to exporting and returns it, nil if there is none.
	ClaimTransactionForExport(ctx context.Context, statuses []model.TransactionStatus, now time.Time) (*model.Transaction, error)
	// SetTasksExported flips an exporting transaction to exported.
	SetTasksExported(ctx context.Context, id string, now time.Time) error
	// ResetStuckExports flips exporting transactions claimed before the cutoff back to unexported.
	ResetStuckExports(ctx context.Context, claimedBefore time.Time) (int, error)
}

// ConfirmTransactionRequest has the data a transaction is sealed with.
type ConfirmTransactionRequest struct {
	ID               string
	AgentID          string
	Result           model.TransactionResult
	PotentialActions model.PotentialActions
	EndDate          time.Time
}

// ActionRepository is the interface for action persistence.
type ActionRepository interface {
	// CreateAction stores a new action, its purpose transaction must be in progress.
	CreateAction(ctx context.Context, a model.Action) error
	GetAction(ctx context.Context, id string) (*model.Action, error)
	// ListActionsByPurpose returns the actions of a transaction in creation order.
	ListActionsByPurpose(ctx context.Context, transactionID string) ([]model.Action, error)
	// TransitionAction moves an action from one of the From statuses to To.
	TransitionAction(ctx context.Context, req TransitionActionRequest) (*model.Action, error)
}

// TransitionActionRequest is a conditional action status change.
type TransitionActionRequest struct {
	ID      string
	From    []model.ActionStatus
	To      model.ActionStatus
	Result  *model.AuthorizeResult
	Error   *model.ErrorDetail
	EndDate time.Time
}

// TaskRepository is the interface for task persistence.
type TaskRepository interface {
	// CreateTasks stores tasks skipping the ones whose identifier already exists,
	// returns the number of created tasks.
	CreateTasks(ctx context.Context, tasks []model.Task) (int, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
	// ClaimTask atomically flips one ready task with a due run time to running.
	// Returns nil if there is none.
	ClaimTask(ctx context.Context, names []model.TaskName, now time.Time) (*model.Task, error)
	// FinishTaskAttempt stores the new state of a running task and appends the attempt result.
	// Only the attempt claimed at t.LastTriedAt can be finished, ErrNotFound otherwise.
	FinishTaskAttempt(ctx context.Context, t model.Task, res model.TaskExecutionResult) error
	// ListStaleRunningTasks returns running tasks tried before the cutoff.
	ListStaleRunningTasks(ctx context.Context, triedBefore time.Time) ([]model.Task, error)
}
