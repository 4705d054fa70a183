package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the type of a transaction.
type TransactionType string

const (
	TransactionTypePlaceOrder    TransactionType = "PlaceOrder"
	TransactionTypeReturnOrder   TransactionType = "ReturnOrder"
	TransactionTypeMoneyTransfer TransactionType = "MoneyTransfer"
)

// Validate checks the transaction type is a known one.
func (t TransactionType) Validate() error {
	switch t {
	case TransactionTypePlaceOrder, TransactionTypeReturnOrder, TransactionTypeMoneyTransfer:
		return nil
	}
	return fmt.Errorf("unknown transaction type %q: %w", t, ErrArgument)
}

// TransactionStatus represents the state of a transaction.
type TransactionStatus string

const (
	TransactionStatusInProgress TransactionStatus = "InProgress"
	TransactionStatusConfirmed  TransactionStatus = "Confirmed"
	TransactionStatusCanceled   TransactionStatus = "Canceled"
	TransactionStatusExpired    TransactionStatus = "Expired"
)

// TerminalTransactionStatuses are the statuses a transaction is sealed with.
var TerminalTransactionStatuses = []TransactionStatus{
	TransactionStatusConfirmed,
	TransactionStatusCanceled,
	TransactionStatusExpired,
}

// IsTerminal returns true if the transaction has been sealed.
func (s TransactionStatus) IsTerminal() bool { return s != TransactionStatusInProgress }

// TasksExportationStatus is the claim flag that prevents exporting tasks twice.
type TasksExportationStatus string

const (
	TasksExportationStatusUnexported TasksExportationStatus = "Unexported"
	TasksExportationStatusExporting  TasksExportationStatus = "Exporting"
	TasksExportationStatusExported   TasksExportationStatus = "Exported"
)

// Contact has the customer contact fields of a party.
type Contact struct {
	GivenName  string `json:"givenName,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
	Email      string `json:"email,omitempty"`
	Telephone  string `json:"telephone,omitempty"`
}

// Party is an agent or seller of a transaction.
type Party struct {
	ID      string  `json:"id"`
	TypeOf  string  `json:"typeOf,omitempty"`
	Name    string  `json:"name,omitempty"`
	Contact Contact `json:"contact"`
}

// TransactionObject has the type specific data of a transaction. Place order
// transactions don't have one, their object are the authorize actions.
type TransactionObject struct {
	ReturnOrder   *ReturnOrderObject   `json:"returnOrder,omitempty"`
	MoneyTransfer *MoneyTransferObject `json:"moneyTransfer,omitempty"`
}

// ReturnOrderObject is the order being returned.
type ReturnOrderObject struct {
	OrderNumber string `json:"orderNumber"`
	// Order is the snapshot of the returned order, set when the transaction starts.
	Order *Order `json:"order,omitempty"`
}

// MoneyTransferObject is the point transfer being made.
type MoneyTransferObject struct {
	Amount      decimal.Decimal `json:"amount"`
	ToAccountID string          `json:"toAccountId"`
	Description string          `json:"description,omitempty"`
}

// TransactionResult is populated only on confirmed transactions.
type TransactionResult struct {
	Order Order `json:"order"`
}

// Transaction is the aggregate of one customer process, from start to a terminal outcome.
type Transaction struct {
	ID               string
	ProjectID        string
	TypeOf           TransactionType
	Status           TransactionStatus
	Agent            Party
	Seller           Party
	IdempotencyKey   string
	Object           TransactionObject
	Result           *TransactionResult
	PotentialActions *PotentialActions
	StartDate        time.Time
	Expires          time.Time
	EndDate          *time.Time

	TasksExportationStatus TasksExportationStatus
	TasksExportStartedAt   *time.Time
	TasksExportedAt        *time.Time
}

// Validate validates a transaction before it is started.
func (t Transaction) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required: %w", ErrArgumentNull)
	}
	if t.ProjectID == "" {
		return fmt.Errorf("project id is required: %w", ErrArgumentNull)
	}
	if err := t.TypeOf.Validate(); err != nil {
		return err
	}
	if t.Agent.ID == "" {
		return fmt.Errorf("agent id is required: %w", ErrArgumentNull)
	}
	if t.Seller.ID == "" {
		return fmt.Errorf("seller id is required: %w", ErrArgumentNull)
	}
	if t.Expires.IsZero() {
		return fmt.Errorf("expires is required: %w", ErrArgumentNull)
	}
	if !t.Expires.After(t.StartDate) {
		return fmt.Errorf("expires must be after start date: %w", ErrArgument)
	}

	switch t.TypeOf {
	case TransactionTypeReturnOrder:
		if t.Object.ReturnOrder == nil || t.Object.ReturnOrder.OrderNumber == "" {
			return fmt.Errorf("return order transactions require the order number: %w", ErrArgumentNull)
		}
	case TransactionTypeMoneyTransfer:
		if t.Object.MoneyTransfer == nil {
			return fmt.Errorf("money transfer transactions require the transfer: %w", ErrArgumentNull)
		}
		if !t.Object.MoneyTransfer.Amount.IsPositive() {
			return fmt.Errorf("transfer amount must be positive: %w", ErrArgument)
		}
		if t.Object.MoneyTransfer.ToAccountID == "" {
			return fmt.Errorf("transfer destination account is required: %w", ErrArgumentNull)
		}
	}

	return nil
}

// TransactionFilter filters transaction listings.
type TransactionFilter struct {
	Statuses []TransactionStatus
	TypeOf   TransactionType
	Limit    int
}
