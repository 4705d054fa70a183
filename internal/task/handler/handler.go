// Package handler has the task handlers that run the follow-up side effects of
// transactions on the providers.
package handler

import (
	"context"
	"fmt"

	"github.com/slok/ordersaga/internal/export"
	"github.com/slok/ordersaga/internal/log"
	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/provider"
	"github.com/slok/ordersaga/internal/task"
)

// Config is the configuration of the task handlers.
type Config struct {
	Inventory  provider.Inventory
	Payments   provider.PaymentProviders
	Notifier   provider.Notifier
	Membership provider.Membership
	Logger     log.Logger
}

func (c *Config) defaults() error {
	if c.Inventory == nil {
		return fmt.Errorf("inventory provider is required")
	}

	if len(c.Payments) == 0 {
		return fmt.Errorf("payment providers are required")
	}

	if c.Notifier == nil {
		return fmt.Errorf("notifier is required")
	}

	if c.Membership == nil {
		return fmt.Errorf("membership provider is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "task.Handler"})

	return nil
}

type handlers struct {
	inventory  provider.Inventory
	payments   provider.PaymentProviders
	notifier   provider.Notifier
	membership provider.Membership
	logger     log.Logger
}

// Register registers a handler for every task name on the registry.
func Register(reg *task.Registry, cfg Config) error {
	if err := cfg.defaults(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	h := handlers{
		inventory:  cfg.Inventory,
		payments:   cfg.Payments,
		notifier:   cfg.Notifier,
		membership: cfg.Membership,
		logger:     cfg.Logger,
	}

	all := map[model.TaskName]task.Handler{
		model.TaskNameConfirmReservation: h.confirmReservation,
		model.TaskNameCancelReservation:  h.cancelReservation,
		model.TaskNameRegisterService:    h.registerService,
		model.TaskNameUnRegisterService:  h.unRegisterService,
		model.TaskNameMoneyTransfer:      h.moneyTransfer,
		model.TaskNameSendEmailMessage:   h.sendEmailMessage,
	}
	for method, name := range export.PayTaskNames {
		all[name] = h.pay(method)
	}
	for method, name := range export.VoidTaskNames {
		all[name] = h.void(method)
	}
	for method, name := range export.RefundTaskNames {
		all[name] = h.refund(method)
	}

	for name, fn := range all {
		if err := reg.Register(name, classified(fn)); err != nil {
			return err
		}
	}

	return nil
}

// classified maps provider failures to the error taxonomy stored on the attempt.
func classified(h task.Handler) task.Handler {
	return func(ctx context.Context, t model.Task) error {
		if err := h(ctx, t); err != nil {
			return provider.Classify(err)
		}
		return nil
	}
}

func (h handlers) paymentProvider(method model.PaymentMethod, t model.Task) (provider.Payment, error) {
	if t.Data.PaymentMethod != "" && t.Data.PaymentMethod != method {
		return nil, fmt.Errorf("task %s is for %s payments, got %s: %w", t.Name, method, t.Data.PaymentMethod, model.ErrArgument)
	}
	if t.Data.PendingTransactionRef == "" {
		return nil, fmt.Errorf("pending transaction ref is required: %w", model.ErrArgumentNull)
	}
	return h.payments.For(method)
}

func (h handlers) pay(method model.PaymentMethod) task.Handler {
	return func(ctx context.Context, t model.Task) error {
		p, err := h.paymentProvider(method, t)
		if err != nil {
			return err
		}
		if err := p.Settle(ctx, t.Data.PendingTransactionRef, t.Data.Amount); err != nil {
			return fmt.Errorf("could not settle %s: %w", t.Data.PendingTransactionRef, err)
		}

		h.logger.WithValues(log.Kv{"transaction": t.Data.TransactionID}).Infof("%s payment %s settled", method, t.Data.PendingTransactionRef)
		return nil
	}
}

func (h handlers) void(method model.PaymentMethod) task.Handler {
	return func(ctx context.Context, t model.Task) error {
		p, err := h.paymentProvider(method, t)
		if err != nil {
			return err
		}
		if err := p.Cancel(ctx, t.Data.PendingTransactionRef); err != nil {
			return fmt.Errorf("could not void %s: %w", t.Data.PendingTransactionRef, err)
		}
		return nil
	}
}

func (h handlers) refund(method model.PaymentMethod) task.Handler {
	return func(ctx context.Context, t model.Task) error {
		p, err := h.paymentProvider(method, t)
		if err != nil {
			return err
		}
		if err := p.Refund(ctx, t.Data.PendingTransactionRef, t.Data.Amount); err != nil {
			return fmt.Errorf("could not refund %s: %w", t.Data.PendingTransactionRef, err)
		}
		return nil
	}
}

func (h handlers) moneyTransfer(ctx context.Context, t model.Task) error {
	if t.Data.ToAccountID == "" {
		return fmt.Errorf("destination account is required: %w", model.ErrArgumentNull)
	}

	p, err := h.paymentProvider(model.PaymentMethodAccount, t)
	if err != nil {
		return err
	}
	if err := p.Settle(ctx, t.Data.PendingTransactionRef, t.Data.Amount); err != nil {
		return fmt.Errorf("could not transfer %s to %s: %w", t.Data.Amount, t.Data.ToAccountID, err)
	}
	return nil
}

func (h handlers) confirmReservation(ctx context.Context, t model.Task) error {
	if t.Data.ReservationRef == "" {
		return fmt.Errorf("reservation ref is required: %w", model.ErrArgumentNull)
	}
	if err := h.inventory.Confirm(ctx, t.Data.ReservationRef); err != nil {
		return fmt.Errorf("could not confirm reservation %s: %w", t.Data.ReservationRef, err)
	}
	return nil
}

func (h handlers) cancelReservation(ctx context.Context, t model.Task) error {
	if t.Data.ReservationRef == "" {
		return fmt.Errorf("reservation ref is required: %w", model.ErrArgumentNull)
	}
	if err := h.inventory.Release(ctx, t.Data.ReservationRef); err != nil {
		return fmt.Errorf("could not release reservation %s: %w", t.Data.ReservationRef, err)
	}
	return nil
}

func (h handlers) registerService(ctx context.Context, t model.Task) error {
	if t.Data.CustomerID == "" || t.Data.OfferID == "" {
		return fmt.Errorf("customer and offer are required: %w", model.ErrArgumentNull)
	}
	return h.membership.Register(ctx, t.Data.CustomerID, t.Data.OfferID)
}

func (h handlers) unRegisterService(ctx context.Context, t model.Task) error {
	if t.Data.CustomerID == "" || t.Data.OfferID == "" {
		return fmt.Errorf("customer and offer are required: %w", model.ErrArgumentNull)
	}
	return h.membership.Unregister(ctx, t.Data.CustomerID, t.Data.OfferID)
}

func (h handlers) sendEmailMessage(ctx context.Context, t model.Task) error {
	if t.Data.EmailMessage == nil {
		return fmt.Errorf("email message is required: %w", model.ErrArgumentNull)
	}
	return h.notifier.Send(ctx, *t.Data.EmailMessage)
}
