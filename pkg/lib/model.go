package lib

import (
	"github.com/slok/ordersaga/internal/app/authorize"
	"github.com/slok/ordersaga/internal/app/exporttasks"
	"github.com/slok/ordersaga/internal/app/transaction"
	"github.com/slok/ordersaga/internal/lock"
	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/provider"
)

// Transactions.
type (
	Transaction            = model.Transaction
	TransactionType        = model.TransactionType
	TransactionStatus      = model.TransactionStatus
	TransactionFilter      = model.TransactionFilter
	TransactionObject      = model.TransactionObject
	ReturnOrderObject      = model.ReturnOrderObject
	MoneyTransferObject    = model.MoneyTransferObject
	Party                  = model.Party
	Contact                = model.Contact
	Order                  = model.Order
	StartTransactionOpts   = transaction.StartRequest
	UpdateAgentOpts        = transaction.UpdateAgentRequest
	ConfirmOpts            = transaction.ConfirmRequest
	EmailOpts              = transaction.EmailRequest
	TasksExportationStatus = model.TasksExportationStatus
)

const (
	TransactionTypePlaceOrder    = model.TransactionTypePlaceOrder
	TransactionTypeReturnOrder   = model.TransactionTypeReturnOrder
	TransactionTypeMoneyTransfer = model.TransactionTypeMoneyTransfer

	TransactionStatusInProgress = model.TransactionStatusInProgress
	TransactionStatusConfirmed  = model.TransactionStatusConfirmed
	TransactionStatusCanceled   = model.TransactionStatusCanceled
	TransactionStatusExpired    = model.TransactionStatusExpired
)

// Authorizations.
type (
	Action               = model.Action
	ActionStatus         = model.ActionStatus
	AuthorizeObject      = model.AuthorizeObject
	OfferAuthorization   = model.OfferAuthorization
	PaymentAuthorization = model.PaymentAuthorization
	OfferType            = model.OfferType
	PaymentMethod        = model.PaymentMethod
	AuthorizeOpts        = authorize.Request
	VoidOpts             = authorize.VoidRequest
)

const (
	ActionStatusActive    = model.ActionStatusActive
	ActionStatusCompleted = model.ActionStatusCompleted
	ActionStatusCanceled  = model.ActionStatusCanceled
	ActionStatusFailed    = model.ActionStatusFailed

	OfferTypeEventReservation = model.OfferTypeEventReservation
	OfferTypeProduct          = model.OfferTypeProduct
	OfferTypeMembership       = model.OfferTypeMembership

	PaymentMethodCreditCard  = model.PaymentMethodCreditCard
	PaymentMethodMovieTicket = model.PaymentMethodMovieTicket
	PaymentMethodAccount     = model.PaymentMethodAccount
)

// Tasks.
type (
	Task         = model.Task
	TaskSpec     = model.TaskSpec
	TaskName     = model.TaskName
	TaskStatus   = model.TaskStatus
	TaskFilter   = model.TaskFilter
	ExportResult = exporttasks.Result
)

const (
	TaskStatusReady    = model.TaskStatusReady
	TaskStatusRunning  = model.TaskStatusRunning
	TaskStatusExecuted = model.TaskStatusExecuted
	TaskStatusAborted  = model.TaskStatusAborted
)

// Providers.
type (
	Inventory     = provider.Inventory
	Payment       = provider.Payment
	Notifier      = provider.Notifier
	Membership    = provider.Membership
	ProviderError = provider.Error
	ErrorKind     = provider.ErrorKind
	Locker        = lock.Locker
	ReleaseFunc   = lock.ReleaseFunc
)

const (
	ErrorKindConflict    = provider.KindConflict
	ErrorKindRateLimited = provider.KindRateLimited
	ErrorKindValidation  = provider.KindValidation
	ErrorKindUnavailable = provider.KindUnavailable
)

// Errors returned by the client, check them with errors.Is.
var (
	ErrNotFound           = model.ErrNotFound
	ErrForbidden          = model.ErrForbidden
	ErrArgument           = model.ErrArgument
	ErrArgumentNull       = model.ErrArgumentNull
	ErrAlreadyInUse       = model.ErrAlreadyInUse
	ErrRateLimitExceeded  = model.ErrRateLimitExceeded
	ErrServiceUnavailable = model.ErrServiceUnavailable
	ErrProvider           = model.ErrProvider
)

// ErrorName returns the name an error is stored with on actions and task results.
func ErrorName(err error) string { return model.ErrorName(err) }
