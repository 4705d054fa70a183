package provider

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/slok/ordersaga/internal/model"
)

// Inventory holds and releases offers (seats, products, memberships).
type Inventory interface {
	// Reserve holds an offer, a second reservation of the same slot fails with a conflict.
	Reserve(ctx context.Context, offer model.OfferAuthorization) (*model.ReservationResult, error)
	// Confirm turns a held reservation into a delivered one.
	Confirm(ctx context.Context, reservationRef string) error
	// Release frees a held reservation.
	Release(ctx context.Context, reservationRef string) error
}

// Payment pre-authorizes and settles payments of one payment method.
type Payment interface {
	Authorize(ctx context.Context, req model.PaymentAuthorization) (*model.PaymentResult, error)
	Settle(ctx context.Context, pendingTransactionRef string, amount decimal.Decimal) error
	// Cancel voids a pending authorization.
	Cancel(ctx context.Context, pendingTransactionRef string) error
	Refund(ctx context.Context, pendingTransactionRef string, amount decimal.Decimal) error
}

// Notifier delivers customer messages.
type Notifier interface {
	Send(ctx context.Context, msg model.EmailMessage) error
}

// Membership registers customers into membership programs.
type Membership interface {
	Register(ctx context.Context, customerID, offerID string) error
	Unregister(ctx context.Context, customerID, offerID string) error
}

// PaymentProviders maps each payment method to the provider that handles it.
type PaymentProviders map[model.PaymentMethod]Payment

// For returns the provider of a payment method.
func (p PaymentProviders) For(method model.PaymentMethod) (Payment, error) {
	pp, ok := p[method]
	if !ok || pp == nil {
		return nil, &Error{Kind: KindValidation, Message: "payment method " + string(method) + " is not supported"}
	}
	return pp, nil
}
