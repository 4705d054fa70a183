package transaction

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/slok/ordersaga/internal/log"
	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/storage"
)

// ConfirmRequest is a confirm transaction request.
type ConfirmRequest struct {
	TransactionID string
	AgentID       string
	// Price is the price the agent agreed on, it must match the authorized one.
	Price decimal.Decimal
	// Email requests an email message to be sent after the confirmation.
	Email *EmailRequest
}

// EmailRequest is the email sent to the customer once the transaction is confirmed.
// An empty To falls back to the agent contact email.
type EmailRequest struct {
	To      string
	Subject string
	Text    string
}

// Confirm seals an in progress transaction as confirmed with its order. The price is
// recomputed from the completed actions and all the side effects are captured as
// potential actions, in the same conditional update.
func (s *Service) Confirm(ctx context.Context, req ConfirmRequest) (*model.Order, error) {
	tx, err := s.owned(ctx, req.TransactionID, req.AgentID)
	if err != nil {
		return nil, err
	}

	now := s.timeNow()
	if tx.Status != model.TransactionStatusInProgress || !tx.Expires.After(now) {
		return nil, fmt.Errorf("in progress transaction %s: %w", tx.ID, model.ErrNotFound)
	}

	actions, err := s.ledger.ListByPurpose(ctx, tx.ID)
	if err != nil {
		return nil, fmt.Errorf("could not list actions: %w", err)
	}

	order := model.Order{
		OrderNumber:   s.idGen(),
		Customer:      tx.Agent,
		Seller:        tx.Seller,
		PriceCurrency: model.DefaultPriceCurrency,
		OrderDate:     now,
	}

	var pa model.PotentialActions
	switch tx.TypeOf {
	case model.TransactionTypePlaceOrder:
		err = placeOrder(tx, actions, &order, &pa)
	case model.TransactionTypeReturnOrder:
		err = returnOrder(tx, &order, &pa)
	case model.TransactionTypeMoneyTransfer:
		err = moneyTransfer(tx, actions, &order, &pa)
	default:
		err = fmt.Errorf("unknown transaction type %q: %w", tx.TypeOf, model.ErrArgument)
	}
	if err != nil {
		return nil, err
	}

	if !order.Price.Equal(req.Price) {
		return nil, fmt.Errorf("price %s does not match the authorized price %s: %w", req.Price, order.Price, model.ErrArgument)
	}

	if req.Email != nil {
		msg, err := emailMessage(tx, order, *req.Email)
		if err != nil {
			return nil, err
		}
		pa.SendEmailMessage = append(pa.SendEmailMessage, msg)
	}

	err = s.txs.ConfirmTransaction(ctx, storage.ConfirmTransactionRequest{
		ID:               tx.ID,
		AgentID:          req.AgentID,
		Result:           model.TransactionResult{Order: order},
		PotentialActions: pa,
		EndDate:          now,
	})
	if err != nil {
		return nil, fmt.Errorf("could not confirm transaction: %w", err)
	}

	s.logger.WithValues(log.Kv{"transaction": tx.ID, "order": order.OrderNumber}).Infof("Transaction confirmed")
	return &order, nil
}

func placeOrder(tx *model.Transaction, actions []model.Action, order *model.Order, pa *model.PotentialActions) error {
	for _, a := range actions {
		if !a.IsCompleted() || a.Object.Offer == nil || a.Result == nil || a.Result.Reservation == nil {
			continue
		}

		offer := *a.Object.Offer
		ref := a.Result.Reservation.ReservationRef
		order.Price = order.Price.Add(a.Result.Reservation.Price)
		order.AcceptedOffers = append(order.AcceptedOffers, model.AcceptedOffer{ActionID: a.ID, Offer: offer, ReservationRef: ref})

		if offer.OfferType == model.OfferTypeMembership {
			pa.RegisterService = append(pa.RegisterService, model.ServiceAction{ActionID: a.ID, OfferID: offer.OfferID, CustomerID: tx.Agent.ID})
			continue
		}
		pa.SendOrder = append(pa.SendOrder, model.SendOrderAction{ActionID: a.ID, ReservationRef: ref})
	}

	if len(order.AcceptedOffers) == 0 {
		return fmt.Errorf("no offer has been authorized: %w", model.ErrArgument)
	}

	paid, err := payments(actions, order, func(a model.Action) {
		if a.Result.Payment.Status != model.PaymentStatusDue {
			return
		}
		pa.Pay = append(pa.Pay, model.PayAction{
			ActionID:              a.ID,
			Method:                a.Object.Payment.Method,
			PendingTransactionRef: a.Result.Payment.PendingTransactionRef,
			Amount:                a.Result.Payment.Amount,
		})
	})
	if err != nil {
		return err
	}

	if !paid.Equal(order.Price) {
		return fmt.Errorf("authorized payments %s don't cover the price %s: %w", paid, order.Price, model.ErrArgument)
	}

	return nil
}

func returnOrder(tx *model.Transaction, order *model.Order, pa *model.PotentialActions) error {
	ro := tx.Object.ReturnOrder
	if ro == nil || ro.Order == nil {
		return fmt.Errorf("returned order is missing: %w", model.ErrArgumentNull)
	}
	returned := *ro.Order

	order.ConfirmationNumber = returned.OrderNumber
	order.Price = returned.Price
	order.AcceptedOffers = returned.AcceptedOffers
	order.PaymentMethods = returned.PaymentMethods

	for _, p := range returned.PaymentMethods {
		pa.Refund = append(pa.Refund, model.PayAction{
			ActionID:              p.ActionID,
			Method:                p.Method,
			PendingTransactionRef: p.PendingTransactionRef,
			Amount:                p.Amount,
		})
	}

	for _, o := range returned.AcceptedOffers {
		if o.Offer.OfferType == model.OfferTypeMembership {
			pa.UnRegisterService = append(pa.UnRegisterService, model.ServiceAction{ActionID: o.ActionID, OfferID: o.Offer.OfferID, CustomerID: returned.Customer.ID})
			continue
		}
		pa.CancelReservation = append(pa.CancelReservation, model.SendOrderAction{ActionID: o.ActionID, ReservationRef: o.ReservationRef})
	}

	return nil
}

func moneyTransfer(tx *model.Transaction, actions []model.Action, order *model.Order, pa *model.PotentialActions) error {
	mt := tx.Object.MoneyTransfer
	if mt == nil {
		return fmt.Errorf("money transfer is missing: %w", model.ErrArgumentNull)
	}
	order.Price = mt.Amount

	var methodErr error
	paid, err := payments(actions, order, func(a model.Action) {
		if a.Object.Payment.Method != model.PaymentMethodAccount {
			methodErr = fmt.Errorf("money transfers can only be paid with %s: %w", model.PaymentMethodAccount, model.ErrArgument)
			return
		}
		pa.MoneyTransfer = append(pa.MoneyTransfer, model.MoneyTransferAction{
			ActionID:              a.ID,
			PendingTransactionRef: a.Result.Payment.PendingTransactionRef,
			Amount:                a.Result.Payment.Amount,
			ToAccountID:           mt.ToAccountID,
		})
	})
	if err != nil {
		return err
	}
	if methodErr != nil {
		return methodErr
	}

	if !paid.Equal(order.Price) {
		return fmt.Errorf("authorized transfers %s don't cover the amount %s: %w", paid, order.Price, model.ErrArgument)
	}

	return nil
}

// payments adds the completed payment authorizations to the order and returns the paid total.
func payments(actions []model.Action, order *model.Order, each func(a model.Action)) (decimal.Decimal, error) {
	paid := decimal.Zero
	for _, a := range actions {
		if !a.IsCompleted() || a.Object.Payment == nil || a.Result == nil || a.Result.Payment == nil {
			continue
		}

		p := a.Result.Payment
		if !p.Amount.Equal(a.Object.Payment.Amount) {
			return decimal.Zero, fmt.Errorf("action %s authorized %s instead of %s: %w", a.ID, p.Amount, a.Object.Payment.Amount, model.ErrArgument)
		}

		paid = paid.Add(p.Amount)
		order.PaymentMethods = append(order.PaymentMethods, model.OrderPayment{
			ActionID:              a.ID,
			Method:                a.Object.Payment.Method,
			AccountID:             a.Object.Payment.AccountID,
			PendingTransactionRef: p.PendingTransactionRef,
			Amount:                p.Amount,
		})
		each(a)
	}

	return paid, nil
}

func emailMessage(tx *model.Transaction, order model.Order, req EmailRequest) (model.EmailMessage, error) {
	msg := model.EmailMessage{To: req.To, Subject: req.Subject, Text: req.Text}
	if msg.To == "" {
		msg.To = tx.Agent.Contact.Email
	}
	if msg.To == "" {
		return model.EmailMessage{}, fmt.Errorf("email destination is required: %w", model.ErrArgumentNull)
	}

	if msg.Subject == "" {
		msg.Subject = fmt.Sprintf("%s %s", tx.TypeOf, order.OrderNumber)
	}
	if msg.Text == "" {
		msg.Text = fmt.Sprintf("Order %s: %s %s.", order.OrderNumber, order.Price, order.PriceCurrency)
	}

	return msg, nil
}
