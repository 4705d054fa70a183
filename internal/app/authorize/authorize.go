package authorize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slok/ordersaga/internal/ledger"
	"github.com/slok/ordersaga/internal/lock"
	"github.com/slok/ordersaga/internal/log"
	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/provider"
	"github.com/slok/ordersaga/internal/storage"
)

// ServiceConfig is the configuration for the authorize service.
type ServiceConfig struct {
	Transactions storage.TransactionRepository
	Ledger       *ledger.Ledger
	Inventory    provider.Inventory
	Payments     provider.PaymentProviders
	Locker       lock.Locker
	// LockTTL is the expiry of the per offer lock.
	LockTTL time.Duration
	// ProviderTimeout bounds every provider call.
	ProviderTimeout time.Duration
	Logger          log.Logger
	TimeNow         func() time.Time
}

func (c *ServiceConfig) defaults() error {
	if c.Transactions == nil {
		return fmt.Errorf("transaction repository is required")
	}

	if c.Ledger == nil {
		return fmt.Errorf("ledger is required")
	}

	if c.Inventory == nil {
		return fmt.Errorf("inventory provider is required")
	}

	if len(c.Payments) == 0 {
		return fmt.Errorf("at least one payment provider is required")
	}

	if c.Locker == nil {
		return fmt.Errorf("locker is required")
	}

	if c.LockTTL <= 0 {
		c.LockTTL = 30 * time.Second
	}

	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = 30 * time.Second
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Authorize"})

	if c.TimeNow == nil {
		c.TimeNow = func() time.Time { return time.Now().UTC() }
	}

	return nil
}

// Service authorizes offers and payments of in progress transactions. Every
// provider call is recorded on the ledger, failures always end up with the
// action given up before the classified error is returned.
type Service struct {
	txs             storage.TransactionRepository
	ledger          *ledger.Ledger
	inventory       provider.Inventory
	payments        provider.PaymentProviders
	locker          lock.Locker
	lockTTL         time.Duration
	providerTimeout time.Duration
	logger          log.Logger
	timeNow         func() time.Time
}

// NewService creates a new authorize service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		txs:             cfg.Transactions,
		ledger:          cfg.Ledger,
		inventory:       cfg.Inventory,
		payments:        cfg.Payments,
		locker:          cfg.Locker,
		lockTTL:         cfg.LockTTL,
		providerTimeout: cfg.ProviderTimeout,
		logger:          cfg.Logger,
		timeNow:         cfg.TimeNow,
	}, nil
}

// Request is an authorize request.
type Request struct {
	TransactionID string
	AgentID       string
	Object        model.AuthorizeObject
}

// Authorize reserves an offer or pre-authorizes a payment. It is never retried,
// the caller decides what to do with the classified error.
func (s *Service) Authorize(ctx context.Context, req Request) (*model.Action, error) {
	tx, err := s.ownedInProgress(ctx, req.TransactionID, req.AgentID)
	if err != nil {
		return nil, err
	}

	if err := req.Object.Validate(); err != nil {
		return nil, fmt.Errorf("invalid authorize request: %w", err)
	}

	logger := s.logger.WithValues(log.Kv{"transaction": tx.ID})

	if offer := req.Object.Offer; offer != nil {
		release, err := s.locker.Lock(ctx, lock.Key(tx.ID, offer.OfferID), s.lockTTL)
		if err != nil {
			if errors.Is(err, lock.ErrLocked) {
				return nil, fmt.Errorf("offer %s is being authorized: %w", offer.OfferID, model.ErrAlreadyInUse)
			}
			return nil, fmt.Errorf("could not lock offer: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.Warningf("Could not release offer lock: %s", err)
			}
		}()

		if offer.OfferType == model.OfferTypeMembership {
			if err := s.checkMembershipNotAuthorized(ctx, tx.ID, offer.OfferID); err != nil {
				return nil, err
			}
		}
	}

	action, err := s.ledger.Start(ctx, ledger.StartRequest{
		ProjectID: tx.ProjectID,
		AgentID:   req.AgentID,
		Purpose:   model.PurposeRef{TransactionID: tx.ID, TypeOf: tx.TypeOf},
		Object:    req.Object,
	})
	if err != nil {
		return nil, err
	}

	result, err := s.callProvider(ctx, req.Object)

	// Once the provider was called the action outcome is recorded even if the caller is gone.
	recordCtx := context.WithoutCancel(ctx)
	if err != nil {
		cerr := provider.Classify(err)
		if _, gerr := s.ledger.GiveUp(recordCtx, action.ID, cerr); gerr != nil {
			logger.Errorf("Could not give up action %s: %s", action.ID, gerr)
		}
		logger.Warningf("Authorize action %s given up: %s", action.ID, cerr)
		return nil, fmt.Errorf("could not authorize: %w", cerr)
	}

	completed, err := s.ledger.Complete(recordCtx, action.ID, *result)
	if err != nil {
		// Voided while the provider was authorizing, the new hold is not tracked by any action.
		held := *action
		held.Result = result
		if rerr := s.release(recordCtx, held); rerr != nil {
			logger.Warningf("Could not release provider resource of action %s: %s", action.ID, rerr)
		}
		return nil, err
	}

	logger.Infof("Authorize action %s completed", completed.ID)
	return completed, nil
}

// VoidRequest is a void request.
type VoidRequest struct {
	TransactionID string
	AgentID       string
	ActionID      string
}

// Void cancels an authorize action of an in progress transaction and releases
// the provider resource. The release is best effort, providers expire unused
// holds by themselves.
func (s *Service) Void(ctx context.Context, req VoidRequest) (*model.Action, error) {
	tx, err := s.ownedInProgress(ctx, req.TransactionID, req.AgentID)
	if err != nil {
		return nil, err
	}

	current, err := s.ledger.Get(ctx, req.ActionID)
	if err != nil {
		return nil, fmt.Errorf("could not get action: %w", err)
	}
	if current.Purpose.TransactionID != tx.ID {
		return nil, fmt.Errorf("action %s of transaction %s: %w", req.ActionID, tx.ID, model.ErrNotFound)
	}

	action, err := s.ledger.Cancel(ctx, req.ActionID)
	if err != nil {
		return nil, err
	}

	if err := s.release(ctx, *action); err != nil {
		s.logger.Warningf("Could not release provider resource of action %s: %s", action.ID, err)
	}

	s.logger.Infof("Authorize action %s voided", action.ID)
	return action, nil
}

func (s *Service) ownedInProgress(ctx context.Context, id, agentID string) (*model.Transaction, error) {
	tx, err := s.txs.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not get transaction: %w", err)
	}

	if tx.Agent.ID != agentID {
		return nil, fmt.Errorf("transaction %s is not owned by agent %s: %w", id, agentID, model.ErrForbidden)
	}

	if tx.Status != model.TransactionStatusInProgress || !tx.Expires.After(s.timeNow()) {
		return nil, fmt.Errorf("in progress transaction %s: %w", id, model.ErrNotFound)
	}

	return tx, nil
}

func (s *Service) checkMembershipNotAuthorized(ctx context.Context, txID, offerID string) error {
	actions, err := s.ledger.ListByPurpose(ctx, txID)
	if err != nil {
		return fmt.Errorf("could not list actions: %w", err)
	}

	for _, a := range actions {
		if a.Object.Offer == nil || a.Object.Offer.OfferID != offerID {
			continue
		}
		if a.Status == model.ActionStatusActive || a.Status == model.ActionStatusCompleted {
			return fmt.Errorf("membership %s already authorized on action %s: %w", offerID, a.ID, model.ErrAlreadyInUse)
		}
	}

	return nil
}

func (s *Service) callProvider(ctx context.Context, obj model.AuthorizeObject) (*model.AuthorizeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	if obj.Offer != nil {
		res, err := s.inventory.Reserve(ctx, *obj.Offer)
		if err != nil {
			return nil, err
		}
		return &model.AuthorizeResult{Reservation: res}, nil
	}

	pp, err := s.payments.For(obj.Payment.Method)
	if err != nil {
		return nil, err
	}
	res, err := pp.Authorize(ctx, *obj.Payment)
	if err != nil {
		return nil, err
	}
	return &model.AuthorizeResult{Payment: res}, nil
}

func (s *Service) release(ctx context.Context, a model.Action) error {
	if a.Result == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	switch {
	case a.Result.Reservation != nil:
		return s.inventory.Release(ctx, a.Result.Reservation.ReservationRef)
	case a.Result.Payment != nil && a.Object.Payment != nil:
		pp, err := s.payments.For(a.Object.Payment.Method)
		if err != nil {
			return err
		}
		return pp.Cancel(ctx, a.Result.Payment.PendingTransactionRef)
	}

	return nil
}
