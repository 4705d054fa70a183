package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TaskName is the name of a task, workers resolve the handler by it.
type TaskName string

const (
	TaskNamePayCreditCard      TaskName = "payCreditCard"
	TaskNamePayMovieTicket     TaskName = "payMovieTicket"
	TaskNamePayAccount         TaskName = "payAccount"
	TaskNameVoidCreditCard     TaskName = "voidCreditCard"
	TaskNameVoidMovieTicket    TaskName = "voidMovieTicket"
	TaskNameVoidAccount        TaskName = "voidAccount"
	TaskNameRefundCreditCard   TaskName = "refundCreditCard"
	TaskNameRefundMovieTicket  TaskName = "refundMovieTicket"
	TaskNameRefundAccount      TaskName = "refundAccount"
	TaskNameConfirmReservation TaskName = "confirmReservation"
	TaskNameCancelReservation  TaskName = "cancelReservation"
	TaskNameRegisterService    TaskName = "registerService"
	TaskNameUnRegisterService  TaskName = "unRegisterService"
	TaskNameMoneyTransfer      TaskName = "moneyTransfer"
	TaskNameSendEmailMessage   TaskName = "sendEmailMessage"
)

// TaskStatus represents the state of a task.
type TaskStatus string

const (
	TaskStatusReady    TaskStatus = "Ready"
	TaskStatusRunning  TaskStatus = "Running"
	TaskStatusExecuted TaskStatus = "Executed"
	TaskStatusAborted  TaskStatus = "Aborted"
)

// IsTerminal returns true if the task will never run again.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusExecuted || s == TaskStatusAborted
}

// TaskData is the payload the handler of a task needs.
type TaskData struct {
	TransactionID         string          `json:"transactionId"`
	ActionID              string          `json:"actionId,omitempty"`
	PaymentMethod         PaymentMethod   `json:"paymentMethod,omitempty"`
	PendingTransactionRef string          `json:"pendingTransactionRef,omitempty"`
	ReservationRef        string          `json:"reservationRef,omitempty"`
	Amount                decimal.Decimal `json:"amount"`
	OfferID               string          `json:"offerId,omitempty"`
	CustomerID            string          `json:"customerId,omitempty"`
	ToAccountID           string          `json:"toAccountId,omitempty"`
	OrderNumber           string          `json:"orderNumber,omitempty"`
	EmailMessage          *EmailMessage   `json:"emailMessage,omitempty"`
}

// TaskExecutionResult is the record of one task attempt.
type TaskExecutionResult struct {
	ExecutedAt time.Time
	EndDate    time.Time
	Error      *ErrorDetail
}

// TaskSpec is the specification of a task to be created.
type TaskSpec struct {
	// Identifier is a stable key used to deduplicate task creation.
	Identifier             string
	Name                   TaskName
	RemainingNumberOfTries int
	Data                   TaskData
}

// Task is a queued, retryable unit of follow-up work.
type Task struct {
	ID                     string
	Identifier             string
	ProjectID              string
	Name                   TaskName
	Status                 TaskStatus
	RunsAt                 time.Time
	NumberOfTried          int
	RemainingNumberOfTries int
	LastTriedAt            *time.Time
	ExecutionResults       []TaskExecutionResult
	Data                   TaskData
	CreatedAt              time.Time
}

// NewTask returns a ready task from a spec.
func NewTask(id, projectID string, spec TaskSpec, now time.Time) Task {
	return Task{
		ID:                     id,
		Identifier:             spec.Identifier,
		ProjectID:              projectID,
		Name:                   spec.Name,
		Status:                 TaskStatusReady,
		RunsAt:                 now,
		RemainingNumberOfTries: spec.RemainingNumberOfTries,
		Data:                   spec.Data,
		CreatedAt:              now,
	}
}

// Validate validates a task before it is stored.
func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required: %w", ErrArgumentNull)
	}
	if t.Identifier == "" {
		return fmt.Errorf("identifier is required: %w", ErrArgumentNull)
	}
	if t.Name == "" {
		return fmt.Errorf("name is required: %w", ErrArgumentNull)
	}
	if t.RemainingNumberOfTries < 0 {
		return fmt.Errorf("remaining number of tries can't be negative: %w", ErrArgument)
	}
	return nil
}

// BackoffFunc returns the delay before the next attempt of a task that has
// been tried numberOfTried times.
type BackoffFunc func(numberOfTried int) time.Duration

// Complete returns the task executed with the attempt result appended.
func (t Task) Complete(res TaskExecutionResult) Task {
	t.Status = TaskStatusExecuted
	t.ExecutionResults = append(t.ExecutionResults, res)
	return t
}

// Fail returns the task after a failed attempt: back to ready with the run
// time pushed by the backoff while retries remain, aborted otherwise.
func (t Task) Fail(res TaskExecutionResult, backoff BackoffFunc) Task {
	t.ExecutionResults = append(t.ExecutionResults, res)
	if t.RemainingNumberOfTries <= 0 {
		t.Status = TaskStatusAborted
		return t
	}

	t.RemainingNumberOfTries--
	t.NumberOfTried++
	t.Status = TaskStatusReady
	t.RunsAt = res.EndDate.Add(backoff(t.NumberOfTried))
	return t
}

// TaskFilter filters task listings.
type TaskFilter struct {
	Statuses      []TaskStatus
	Names         []TaskName
	TransactionID string
	Limit         int
}
