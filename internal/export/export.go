// Package export derives the follow-up tasks of terminal transactions.
package export

import (
	"fmt"
	"strconv"

	"github.com/slok/ordersaga/internal/model"
)

// PayTaskNames maps each payment method to the task that settles it.
var PayTaskNames = map[model.PaymentMethod]model.TaskName{
	model.PaymentMethodCreditCard:  model.TaskNamePayCreditCard,
	model.PaymentMethodMovieTicket: model.TaskNamePayMovieTicket,
	model.PaymentMethodAccount:     model.TaskNamePayAccount,
}

// VoidTaskNames maps each payment method to the task that voids a pending authorization.
var VoidTaskNames = map[model.PaymentMethod]model.TaskName{
	model.PaymentMethodCreditCard:  model.TaskNameVoidCreditCard,
	model.PaymentMethodMovieTicket: model.TaskNameVoidMovieTicket,
	model.PaymentMethodAccount:     model.TaskNameVoidAccount,
}

// RefundTaskNames maps each payment method to the task that refunds a settled payment.
var RefundTaskNames = map[model.PaymentMethod]model.TaskName{
	model.PaymentMethodCreditCard:  model.TaskNameRefundCreditCard,
	model.PaymentMethodMovieTicket: model.TaskNameRefundMovieTicket,
	model.PaymentMethodAccount:     model.TaskNameRefundAccount,
}

const (
	moneyRetries        = 10
	deliveryRetries     = 10
	notificationRetries = 3
)

// DefaultRetries is the retry budget of every task.
var DefaultRetries = map[model.TaskName]int{
	model.TaskNamePayCreditCard:      moneyRetries,
	model.TaskNamePayMovieTicket:     moneyRetries,
	model.TaskNamePayAccount:         moneyRetries,
	model.TaskNameVoidCreditCard:     moneyRetries,
	model.TaskNameVoidMovieTicket:    moneyRetries,
	model.TaskNameVoidAccount:        moneyRetries,
	model.TaskNameRefundCreditCard:   moneyRetries,
	model.TaskNameRefundMovieTicket:  moneyRetries,
	model.TaskNameRefundAccount:      moneyRetries,
	model.TaskNameMoneyTransfer:      moneyRetries,
	model.TaskNameConfirmReservation: deliveryRetries,
	model.TaskNameCancelReservation:  deliveryRetries,
	model.TaskNameRegisterService:    deliveryRetries,
	model.TaskNameUnRegisterService:  deliveryRetries,
	model.TaskNameSendEmailMessage:   notificationRetries,
}

// Identifier returns the dedup key of a task, key is the action ID or, for
// tasks not bound to an action, their position.
func Identifier(transactionID string, name model.TaskName, key string) string {
	return transactionID + ":" + string(name) + ":" + key
}

// Tasks returns the tasks of a terminal transaction. Confirmed transactions run
// the potential actions captured when they were confirmed, canceled and expired
// ones compensate every completed authorize action. The result only depends on
// the arguments so re-exporting produces the same tasks with the same identifiers.
func Tasks(tx model.Transaction, actions []model.Action) ([]model.TaskSpec, error) {
	b := builder{tx: tx}

	switch tx.Status {
	case model.TransactionStatusConfirmed:
		if tx.PotentialActions == nil {
			return nil, fmt.Errorf("confirmed transaction %s without potential actions: %w", tx.ID, model.ErrArgument)
		}
		if err := b.confirmed(*tx.PotentialActions); err != nil {
			return nil, err
		}
	case model.TransactionStatusCanceled, model.TransactionStatusExpired:
		if err := b.compensation(actions); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("transaction %s is %s: %w", tx.ID, tx.Status, model.ErrArgument)
	}

	return b.specs, nil
}

type builder struct {
	tx    model.Transaction
	specs []model.TaskSpec
}

func (b *builder) add(name model.TaskName, key string, data model.TaskData) {
	data.TransactionID = b.tx.ID
	b.specs = append(b.specs, model.TaskSpec{
		Identifier:             Identifier(b.tx.ID, name, key),
		Name:                   name,
		RemainingNumberOfTries: DefaultRetries[name],
		Data:                   data,
	})
}

func (b *builder) orderNumber() string {
	if b.tx.Result == nil {
		return ""
	}
	return b.tx.Result.Order.OrderNumber
}

func (b *builder) confirmed(pa model.PotentialActions) error {
	order := b.orderNumber()

	for _, p := range pa.Pay {
		name, ok := PayTaskNames[p.Method]
		if !ok {
			return fmt.Errorf("no pay task for payment method %q: %w", p.Method, model.ErrArgument)
		}
		b.add(name, p.ActionID, payData(p, order))
	}

	for _, s := range pa.SendOrder {
		b.add(model.TaskNameConfirmReservation, s.ActionID, model.TaskData{
			ActionID:       s.ActionID,
			ReservationRef: s.ReservationRef,
			OrderNumber:    order,
		})
	}

	for _, s := range pa.RegisterService {
		b.add(model.TaskNameRegisterService, s.ActionID, serviceData(s, order))
	}

	for _, m := range pa.MoneyTransfer {
		b.add(model.TaskNameMoneyTransfer, m.ActionID, model.TaskData{
			ActionID:              m.ActionID,
			PaymentMethod:         model.PaymentMethodAccount,
			PendingTransactionRef: m.PendingTransactionRef,
			Amount:                m.Amount,
			ToAccountID:           m.ToAccountID,
			OrderNumber:           order,
		})
	}

	for _, p := range pa.Refund {
		name, ok := RefundTaskNames[p.Method]
		if !ok {
			return fmt.Errorf("no refund task for payment method %q: %w", p.Method, model.ErrArgument)
		}
		b.add(name, p.ActionID, payData(p, order))
	}

	for _, s := range pa.CancelReservation {
		b.add(model.TaskNameCancelReservation, s.ActionID, model.TaskData{
			ActionID:       s.ActionID,
			ReservationRef: s.ReservationRef,
			OrderNumber:    order,
		})
	}

	for _, s := range pa.UnRegisterService {
		b.add(model.TaskNameUnRegisterService, s.ActionID, serviceData(s, order))
	}

	for i, m := range pa.SendEmailMessage {
		msg := m
		b.add(model.TaskNameSendEmailMessage, strconv.Itoa(i), model.TaskData{
			OrderNumber:  order,
			EmailMessage: &msg,
		})
	}

	return nil
}

func (b *builder) compensation(actions []model.Action) error {
	for _, a := range actions {
		if !a.IsCompleted() || a.Result == nil {
			continue
		}

		switch {
		case a.Object.Offer != nil && a.Result.Reservation != nil:
			b.add(model.TaskNameCancelReservation, a.ID, model.TaskData{
				ActionID:       a.ID,
				ReservationRef: a.Result.Reservation.ReservationRef,
			})
		case a.Object.Payment != nil && a.Result.Payment != nil:
			name, ok := VoidTaskNames[a.Object.Payment.Method]
			if !ok {
				return fmt.Errorf("no void task for payment method %q: %w", a.Object.Payment.Method, model.ErrArgument)
			}
			b.add(name, a.ID, model.TaskData{
				ActionID:              a.ID,
				PaymentMethod:         a.Object.Payment.Method,
				PendingTransactionRef: a.Result.Payment.PendingTransactionRef,
				Amount:                a.Result.Payment.Amount,
			})
		}
	}

	return nil
}

func payData(p model.PayAction, orderNumber string) model.TaskData {
	return model.TaskData{
		ActionID:              p.ActionID,
		PaymentMethod:         p.Method,
		PendingTransactionRef: p.PendingTransactionRef,
		Amount:                p.Amount,
		OrderNumber:           orderNumber,
	}
}

func serviceData(s model.ServiceAction, orderNumber string) model.TaskData {
	return model.TaskData{
		ActionID:    s.ActionID,
		OfferID:     s.OfferID,
		CustomerID:  s.CustomerID,
		OrderNumber: orderNumber,
	}
}
