package handler_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/provider"
	"github.com/slok/ordersaga/internal/provider/fake"
	"github.com/slok/ordersaga/internal/task"
	"github.com/slok/ordersaga/internal/task/handler"
)

var allTaskNames = []model.TaskName{
	model.TaskNamePayCreditCard,
	model.TaskNamePayMovieTicket,
	model.TaskNamePayAccount,
	model.TaskNameVoidCreditCard,
	model.TaskNameVoidMovieTicket,
	model.TaskNameVoidAccount,
	model.TaskNameRefundCreditCard,
	model.TaskNameRefundMovieTicket,
	model.TaskNameRefundAccount,
	model.TaskNameConfirmReservation,
	model.TaskNameCancelReservation,
	model.TaskNameRegisterService,
	model.TaskNameUnRegisterService,
	model.TaskNameMoneyTransfer,
	model.TaskNameSendEmailMessage,
}

type providers struct {
	inventory  *fake.Inventory
	card       *fake.Payment
	ticket     *fake.Payment
	account    *fake.Payment
	notifier   *fake.Notifier
	membership *fake.Membership
}

func newRegistry(t *testing.T) (*task.Registry, providers) {
	t.Helper()

	p := providers{
		inventory:  fake.NewInventory(),
		card:       fake.NewPayment(decimal.Zero),
		ticket:     fake.NewPayment(decimal.Zero),
		account:    fake.NewPayment(decimal.Zero),
		notifier:   fake.NewNotifier(nil),
		membership: fake.NewMembership(),
	}

	reg := task.NewRegistry()
	err := handler.Register(reg, handler.Config{
		Inventory: p.inventory,
		Payments: provider.PaymentProviders{
			model.PaymentMethodCreditCard:  p.card,
			model.PaymentMethodMovieTicket: p.ticket,
			model.PaymentMethodAccount:     p.account,
		},
		Notifier:   p.notifier,
		Membership: p.membership,
	})
	require.NoError(t, err)

	return reg, p
}

func run(t *testing.T, reg *task.Registry, name model.TaskName, data model.TaskData) error {
	t.Helper()

	h, ok := reg.Handler(name)
	require.True(t, ok)
	return h(context.Background(), model.Task{ID: "task-1", Name: name, Data: data})
}

func authorize(t *testing.T, p *fake.Payment, method model.PaymentMethod, amount int64) string {
	t.Helper()

	res, err := p.Authorize(context.Background(), model.PaymentAuthorization{Method: method, Amount: decimal.NewFromInt(amount)})
	require.NoError(t, err)
	return res.PendingTransactionRef
}

func TestRegisterCoversEveryTaskName(t *testing.T) {
	reg, _ := newRegistry(t)
	assert.ElementsMatch(t, allTaskNames, reg.Names())
}

func TestRegisterRequiresProviders(t *testing.T) {
	err := handler.Register(task.NewRegistry(), handler.Config{})
	assert.Error(t, err)
}

func TestPaymentHandlers(t *testing.T) {
	tests := map[string]struct {
		run      func(t *testing.T, reg *task.Registry, p providers) error
		expState fake.AuthorizationState
		expErr   error
	}{
		"Paying a card should settle the authorization.": {
			run: func(t *testing.T, reg *task.Registry, p providers) error {
				ref := authorize(t, p.card, model.PaymentMethodCreditCard, 1000)
				err := run(t, reg, model.TaskNamePayCreditCard, model.TaskData{PaymentMethod: model.PaymentMethodCreditCard, PendingTransactionRef: ref, Amount: decimal.NewFromInt(1000)})
				a, _ := p.card.Authorization(ref)
				assert.Equal(t, fake.AuthorizationSettled, a.State)
				return err
			},
		},

		"Paying twice should be idempotent.": {
			run: func(t *testing.T, reg *task.Registry, p providers) error {
				ref := authorize(t, p.ticket, model.PaymentMethodMovieTicket, 1800)
				data := model.TaskData{PaymentMethod: model.PaymentMethodMovieTicket, PendingTransactionRef: ref, Amount: decimal.NewFromInt(1800)}
				require.NoError(t, run(t, reg, model.TaskNamePayMovieTicket, data))
				return run(t, reg, model.TaskNamePayMovieTicket, data)
			},
		},

		"Voiding an account authorization should cancel it.": {
			run: func(t *testing.T, reg *task.Registry, p providers) error {
				ref := authorize(t, p.account, model.PaymentMethodAccount, 300)
				err := run(t, reg, model.TaskNameVoidAccount, model.TaskData{PendingTransactionRef: ref})
				a, _ := p.account.Authorization(ref)
				assert.Equal(t, fake.AuthorizationCanceled, a.State)
				return err
			},
		},

		"Refunding a settled card payment should refund it.": {
			run: func(t *testing.T, reg *task.Registry, p providers) error {
				ref := authorize(t, p.card, model.PaymentMethodCreditCard, 1000)
				require.NoError(t, p.card.Settle(context.Background(), ref, decimal.NewFromInt(1000)))
				err := run(t, reg, model.TaskNameRefundCreditCard, model.TaskData{PendingTransactionRef: ref, Amount: decimal.NewFromInt(1000)})
				a, _ := p.card.Authorization(ref)
				assert.Equal(t, fake.AuthorizationRefunded, a.State)
				return err
			},
		},

		"Refunding a pending payment should be a conflict.": {
			run: func(t *testing.T, reg *task.Registry, p providers) error {
				ref := authorize(t, p.card, model.PaymentMethodCreditCard, 1000)
				return run(t, reg, model.TaskNameRefundCreditCard, model.TaskData{PendingTransactionRef: ref, Amount: decimal.NewFromInt(1000)})
			},
			expErr: model.ErrAlreadyInUse,
		},

		"A task with another payment method should fail.": {
			run: func(t *testing.T, reg *task.Registry, p providers) error {
				return run(t, reg, model.TaskNamePayCreditCard, model.TaskData{PaymentMethod: model.PaymentMethodAccount, PendingTransactionRef: "ref"})
			},
			expErr: model.ErrArgument,
		},

		"A task without reference should fail.": {
			run: func(t *testing.T, reg *task.Registry, p providers) error {
				return run(t, reg, model.TaskNameVoidCreditCard, model.TaskData{})
			},
			expErr: model.ErrArgumentNull,
		},

		"An unavailable provider should be classified.": {
			run: func(t *testing.T, reg *task.Registry, p providers) error {
				ref := authorize(t, p.card, model.PaymentMethodCreditCard, 1000)
				p.card.FailWith(errors.New("connection refused"))
				return run(t, reg, model.TaskNamePayCreditCard, model.TaskData{PendingTransactionRef: ref, Amount: decimal.NewFromInt(1000)})
			},
			expErr: model.ErrServiceUnavailable,
		},

		"A money transfer should settle the account authorization.": {
			run: func(t *testing.T, reg *task.Registry, p providers) error {
				ref := authorize(t, p.account, model.PaymentMethodAccount, 300)
				err := run(t, reg, model.TaskNameMoneyTransfer, model.TaskData{PaymentMethod: model.PaymentMethodAccount, PendingTransactionRef: ref, Amount: decimal.NewFromInt(300), ToAccountID: "acc-2"})
				a, _ := p.account.Authorization(ref)
				assert.Equal(t, fake.AuthorizationSettled, a.State)
				return err
			},
		},

		"A money transfer without destination should fail.": {
			run: func(t *testing.T, reg *task.Registry, p providers) error {
				return run(t, reg, model.TaskNameMoneyTransfer, model.TaskData{PendingTransactionRef: "ref"})
			},
			expErr: model.ErrArgumentNull,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			reg, p := newRegistry(t)
			err := test.run(t, reg, p)
			if test.expErr != nil {
				assert.ErrorIs(t, err, test.expErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReservationHandlers(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	reg, p := newRegistry(t)

	res, err := p.inventory.Reserve(context.Background(), model.OfferAuthorization{
		OfferID:   "offer-1",
		OfferType: model.OfferTypeEventReservation,
		EventID:   "event-1",
		SeatID:    "A-1",
		Quantity:  1,
	})
	require.NoError(err)

	require.NoError(run(t, reg, model.TaskNameConfirmReservation, model.TaskData{ReservationRef: res.ReservationRef}))
	r, _ := p.inventory.Reservation(res.ReservationRef)
	assert.Equal(fake.ReservationConfirmed, r.State)

	require.NoError(run(t, reg, model.TaskNameCancelReservation, model.TaskData{ReservationRef: res.ReservationRef}))
	r, _ = p.inventory.Reservation(res.ReservationRef)
	assert.Equal(fake.ReservationReleased, r.State)

	err = run(t, reg, model.TaskNameConfirmReservation, model.TaskData{ReservationRef: "missing"})
	assert.ErrorIs(err, model.ErrArgument)
}

func TestServiceAndEmailHandlers(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	reg, p := newRegistry(t)

	data := model.TaskData{CustomerID: "agent-1", OfferID: "gold"}
	require.NoError(run(t, reg, model.TaskNameRegisterService, data))
	assert.True(p.membership.IsMember("agent-1", "gold"))
	require.NoError(run(t, reg, model.TaskNameUnRegisterService, data))
	assert.False(p.membership.IsMember("agent-1", "gold"))

	msg := model.EmailMessage{To: "agent@example.com", Subject: "Order ORD-1"}
	require.NoError(run(t, reg, model.TaskNameSendEmailMessage, model.TaskData{EmailMessage: &msg}))
	assert.Equal([]model.EmailMessage{msg}, p.notifier.Sent())

	err := run(t, reg, model.TaskNameSendEmailMessage, model.TaskData{})
	assert.ErrorIs(err, model.ErrArgumentNull)
}
