package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ActionType is the type of an action.
type ActionType string

const (
	ActionTypeAuthorize ActionType = "AuthorizeAction"
)

// ActionStatus represents the state of an action.
type ActionStatus string

const (
	ActionStatusActive    ActionStatus = "ActiveActionStatus"
	ActionStatusCompleted ActionStatus = "CompletedActionStatus"
	ActionStatusCanceled  ActionStatus = "CanceledActionStatus"
	// ActionStatusFailed is the status of an action that was given up.
	ActionStatusFailed ActionStatus = "FailedActionStatus"
)

// actionTransitions are the allowed action status transitions. Completed actions
// can only be voided, canceled and failed actions never change again.
var actionTransitions = map[ActionStatus][]ActionStatus{
	ActionStatusActive:    {ActionStatusCompleted, ActionStatusFailed, ActionStatusCanceled},
	ActionStatusCompleted: {ActionStatusCanceled},
}

// SourcesOf returns the statuses an action can be in to transition to s.
func (s ActionStatus) SourcesOf() []ActionStatus {
	var from []ActionStatus
	for _, src := range []ActionStatus{ActionStatusActive, ActionStatusCompleted} {
		if src.CanTransitionTo(s) {
			from = append(from, src)
		}
	}
	return from
}

// CanTransitionTo returns true if an action in status s can move to status to.
func (s ActionStatus) CanTransitionTo(to ActionStatus) bool {
	for _, st := range actionTransitions[s] {
		if st == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true when no further progress (complete or give up) is possible.
func (s ActionStatus) IsTerminal() bool {
	return s != ActionStatusActive
}

// PurposeRef is a weak reference to the transaction that owns an action.
type PurposeRef struct {
	TransactionID string
	TypeOf        TransactionType
}

// ErrorDetail is the failure payload captured on given up actions and failed task attempts.
type ErrorDetail struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// NewErrorDetail captures an error as an error detail.
func NewErrorDetail(err error) *ErrorDetail {
	if err == nil {
		return nil
	}
	return &ErrorDetail{Name: ErrorName(err), Message: err.Error()}
}

// Action is a single authorize step performed against a provider on behalf of a transaction.
type Action struct {
	ID        string
	ProjectID string
	TypeOf    ActionType
	Status    ActionStatus
	AgentID   string
	Purpose   PurposeRef
	Object    AuthorizeObject
	Result    *AuthorizeResult
	Error     *ErrorDetail
	StartDate time.Time
	EndDate   *time.Time
}

// IsCompleted returns true if the action completed successfully.
func (a Action) IsCompleted() bool { return a.Status == ActionStatusCompleted }

// AuthorizeObject is the request sent to the provider. Exactly one of the variants must be set.
type AuthorizeObject struct {
	Offer   *OfferAuthorization   `json:"offer,omitempty"`
	Payment *PaymentAuthorization `json:"payment,omitempty"`
}

// Validate validates the authorize object.
func (o AuthorizeObject) Validate() error {
	switch {
	case o.Offer != nil && o.Payment != nil:
		return fmt.Errorf("only one of offer or payment can be authorized at once: %w", ErrArgument)
	case o.Offer != nil:
		return o.Offer.Validate()
	case o.Payment != nil:
		return o.Payment.Validate()
	}
	return fmt.Errorf("offer or payment is required: %w", ErrArgumentNull)
}

// OfferAuthorization asks the inventory provider to hold an offer.
type OfferAuthorization struct {
	OfferID   string          `json:"offerId"`
	OfferType OfferType       `json:"offerType"`
	EventID   string          `json:"eventId,omitempty"`
	SeatID    string          `json:"seatId,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Validate validates the offer authorization.
func (o OfferAuthorization) Validate() error {
	if o.OfferID == "" {
		return fmt.Errorf("offer id is required: %w", ErrArgumentNull)
	}
	if err := o.OfferType.Validate(); err != nil {
		return err
	}
	if o.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive: %w", ErrArgument)
	}
	if o.UnitPrice.IsNegative() {
		return fmt.Errorf("unit price can't be negative: %w", ErrArgument)
	}
	return nil
}

// Price is the total price of the offer.
func (o OfferAuthorization) Price() decimal.Decimal {
	return o.UnitPrice.Mul(decimal.NewFromInt(int64(o.Quantity)))
}

// PaymentAuthorization asks a payment provider to pre-authorize an amount.
type PaymentAuthorization struct {
	Method PaymentMethod   `json:"method"`
	Amount decimal.Decimal `json:"amount"`
	// AccountID is the source account (point account, card token or ticket code).
	AccountID string `json:"accountId,omitempty"`
	// ToAccountID is the destination account for money transfers.
	ToAccountID string `json:"toAccountId,omitempty"`
}

// Validate validates the payment authorization.
func (p PaymentAuthorization) Validate() error {
	if err := p.Method.Validate(); err != nil {
		return err
	}
	if !p.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive: %w", ErrArgument)
	}
	return nil
}

// AuthorizeResult is the provider success payload, the variant matches the object.
type AuthorizeResult struct {
	Reservation *ReservationResult `json:"reservation,omitempty"`
	Payment     *PaymentResult     `json:"payment,omitempty"`
}

// ReservationResult is the inventory hold returned by the provider.
type ReservationResult struct {
	ReservationRef string          `json:"reservationRef"`
	Price          decimal.Decimal `json:"price"`
}

// PaymentResult is the pending payment returned by the provider.
type PaymentResult struct {
	PendingTransactionRef string          `json:"pendingTransactionRef"`
	Amount                decimal.Decimal `json:"amount"`
	Status                PaymentStatus   `json:"status"`
}
