package reliable

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/provider"
)

// Inventory is a provider.Inventory running every call through a Caller.
type Inventory struct {
	next   provider.Inventory
	caller *Caller
}

var _ provider.Inventory = &Inventory{}

// NewInventory wraps an inventory provider.
func NewInventory(next provider.Inventory, caller *Caller) *Inventory {
	return &Inventory{next: next, caller: caller}
}

func (i *Inventory) Reserve(ctx context.Context, offer model.OfferAuthorization) (*model.ReservationResult, error) {
	return Do(ctx, i.caller, func(ctx context.Context) (*model.ReservationResult, error) {
		return i.next.Reserve(ctx, offer)
	})
}

func (i *Inventory) Confirm(ctx context.Context, ref string) error {
	return run(ctx, i.caller, func(ctx context.Context) error { return i.next.Confirm(ctx, ref) })
}

func (i *Inventory) Release(ctx context.Context, ref string) error {
	return run(ctx, i.caller, func(ctx context.Context) error { return i.next.Release(ctx, ref) })
}

// Payment is a provider.Payment running every call through a Caller.
type Payment struct {
	next   provider.Payment
	caller *Caller
}

var _ provider.Payment = &Payment{}

// NewPayment wraps a payment provider.
func NewPayment(next provider.Payment, caller *Caller) *Payment {
	return &Payment{next: next, caller: caller}
}

func (p *Payment) Authorize(ctx context.Context, req model.PaymentAuthorization) (*model.PaymentResult, error) {
	return Do(ctx, p.caller, func(ctx context.Context) (*model.PaymentResult, error) {
		return p.next.Authorize(ctx, req)
	})
}

func (p *Payment) Settle(ctx context.Context, ref string, amount decimal.Decimal) error {
	return run(ctx, p.caller, func(ctx context.Context) error { return p.next.Settle(ctx, ref, amount) })
}

func (p *Payment) Cancel(ctx context.Context, ref string) error {
	return run(ctx, p.caller, func(ctx context.Context) error { return p.next.Cancel(ctx, ref) })
}

func (p *Payment) Refund(ctx context.Context, ref string, amount decimal.Decimal) error {
	return run(ctx, p.caller, func(ctx context.Context) error { return p.next.Refund(ctx, ref, amount) })
}

// Notifier is a provider.Notifier running every call through a Caller.
type Notifier struct {
	next   provider.Notifier
	caller *Caller
}

var _ provider.Notifier = &Notifier{}

// NewNotifier wraps a notifier.
func NewNotifier(next provider.Notifier, caller *Caller) *Notifier {
	return &Notifier{next: next, caller: caller}
}

func (n *Notifier) Send(ctx context.Context, msg model.EmailMessage) error {
	return run(ctx, n.caller, func(ctx context.Context) error { return n.next.Send(ctx, msg) })
}

// Membership is a provider.Membership running every call through a Caller.
type Membership struct {
	next   provider.Membership
	caller *Caller
}

var _ provider.Membership = &Membership{}

// NewMembership wraps a membership provider.
func NewMembership(next provider.Membership, caller *Caller) *Membership {
	return &Membership{next: next, caller: caller}
}

func (m *Membership) Register(ctx context.Context, customerID, offerID string) error {
	return run(ctx, m.caller, func(ctx context.Context) error { return m.next.Register(ctx, customerID, offerID) })
}

func (m *Membership) Unregister(ctx context.Context, customerID, offerID string) error {
	return run(ctx, m.caller, func(ctx context.Context) error { return m.next.Unregister(ctx, customerID, offerID) })
}
