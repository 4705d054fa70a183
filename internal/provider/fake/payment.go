package fake

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/provider"
)

// AuthorizationState is the state of a fake payment authorization.
type AuthorizationState string

const (
	AuthorizationPending  AuthorizationState = "Pending"
	AuthorizationSettled  AuthorizationState = "Settled"
	AuthorizationCanceled AuthorizationState = "Canceled"
	AuthorizationRefunded AuthorizationState = "Refunded"
)

// Authorization is a payment authorization stored by the fake payment provider.
type Authorization struct {
	Ref      string
	Request  model.PaymentAuthorization
	State    AuthorizationState
	Settled  decimal.Decimal
	Refunded decimal.Decimal
}

// Payment is an in-memory provider.Payment. Authorizations above the limit
// are rejected as validation errors, a zero limit means no limit.
type Payment struct {
	mu             sync.Mutex
	limit          decimal.Decimal
	authorizations map[string]*Authorization
	failWith       error
}

var _ provider.Payment = &Payment{}

// NewPayment returns a fake payment provider.
func NewPayment(limit decimal.Decimal) *Payment {
	return &Payment{
		limit:          limit,
		authorizations: map[string]*Authorization{},
	}
}

// FailWith makes every following call fail with err, nil restores it.
func (p *Payment) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWith = err
}

func (p *Payment) Authorize(ctx context.Context, req model.PaymentAuthorization) (*model.PaymentResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.check(ctx); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, &provider.Error{Kind: provider.KindValidation, Code: "INVALID_PAYMENT", Message: err.Error()}
	}
	if p.limit.IsPositive() && req.Amount.GreaterThan(p.limit) {
		return nil, &provider.Error{Kind: provider.KindValidation, Code: "LIMIT_EXCEEDED", Message: "amount " + req.Amount.String() + " exceeds the limit"}
	}

	a := &Authorization{Ref: ulid.Make().String(), Request: req, State: AuthorizationPending}
	p.authorizations[a.Ref] = a

	return &model.PaymentResult{
		PendingTransactionRef: a.Ref,
		Amount:                req.Amount,
		Status:                model.PaymentStatusDue,
	}, nil
}

func (p *Payment) Settle(ctx context.Context, ref string, amount decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.check(ctx); err != nil {
		return err
	}
	a, err := p.get(ref)
	if err != nil {
		return err
	}
	switch a.State {
	case AuthorizationSettled:
		return nil
	case AuthorizationPending:
	default:
		return &provider.Error{Kind: provider.KindConflict, Code: "NOT_PENDING", Message: "authorization " + ref + " is " + string(a.State)}
	}
	if amount.GreaterThan(a.Request.Amount) {
		return &provider.Error{Kind: provider.KindValidation, Code: "AMOUNT_MISMATCH", Message: "settle amount exceeds the authorized amount"}
	}

	a.State = AuthorizationSettled
	a.Settled = amount
	return nil
}

func (p *Payment) Cancel(ctx context.Context, ref string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.check(ctx); err != nil {
		return err
	}
	a, err := p.get(ref)
	if err != nil {
		return err
	}
	switch a.State {
	case AuthorizationCanceled:
		return nil
	case AuthorizationPending:
	default:
		return &provider.Error{Kind: provider.KindConflict, Code: "NOT_PENDING", Message: "authorization " + ref + " is " + string(a.State)}
	}

	a.State = AuthorizationCanceled
	return nil
}

func (p *Payment) Refund(ctx context.Context, ref string, amount decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.check(ctx); err != nil {
		return err
	}
	a, err := p.get(ref)
	if err != nil {
		return err
	}
	switch a.State {
	case AuthorizationRefunded:
		return nil
	case AuthorizationSettled:
	default:
		return &provider.Error{Kind: provider.KindConflict, Code: "NOT_SETTLED", Message: "authorization " + ref + " is " + string(a.State)}
	}
	if amount.GreaterThan(a.Settled) {
		return &provider.Error{Kind: provider.KindValidation, Code: "AMOUNT_MISMATCH", Message: "refund amount exceeds the settled amount"}
	}

	a.State = AuthorizationRefunded
	a.Refunded = amount
	return nil
}

// Authorization returns a copy of an authorization.
func (p *Payment) Authorization(ref string) (Authorization, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.authorizations[ref]
	if !ok {
		return Authorization{}, false
	}
	return *a, true
}

func (p *Payment) get(ref string) (*Authorization, error) {
	a, ok := p.authorizations[ref]
	if !ok {
		return nil, &provider.Error{Kind: provider.KindValidation, Code: "UNKNOWN_AUTHORIZATION", Message: "authorization " + ref + " does not exist"}
	}
	return a, nil
}

func (p *Payment) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.failWith
}
