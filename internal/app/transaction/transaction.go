package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/ordersaga/internal/ledger"
	"github.com/slok/ordersaga/internal/log"
	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/storage"
)

// ServiceConfig is the configuration for the transaction service.
type ServiceConfig struct {
	Transactions storage.TransactionRepository
	Ledger       *ledger.Ledger
	// PhoneRegion is the region used to parse agent phone numbers without country code.
	PhoneRegion string
	Logger      log.Logger
	TimeNow     func() time.Time
	IDGen       func() string
}

func (c *ServiceConfig) defaults() error {
	if c.Transactions == nil {
		return fmt.Errorf("transaction repository is required")
	}

	if c.Ledger == nil {
		return fmt.Errorf("ledger is required")
	}

	if c.PhoneRegion == "" {
		c.PhoneRegion = "JP"
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Transaction"})

	if c.TimeNow == nil {
		c.TimeNow = func() time.Time { return time.Now().UTC() }
	}

	if c.IDGen == nil {
		c.IDGen = func() string { return ulid.Make().String() }
	}

	return nil
}

// Service drives transactions from start to exactly one terminal status.
type Service struct {
	txs         storage.TransactionRepository
	ledger      *ledger.Ledger
	phoneRegion string
	logger      log.Logger
	timeNow     func() time.Time
	idGen       func() string
}

// NewService returns a new transaction service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		txs:         cfg.Transactions,
		ledger:      cfg.Ledger,
		phoneRegion: cfg.PhoneRegion,
		logger:      cfg.Logger,
		timeNow:     cfg.TimeNow,
		idGen:       cfg.IDGen,
	}, nil
}

// StartRequest is a start transaction request.
type StartRequest struct {
	ProjectID      string
	TypeOf         model.TransactionType
	Agent          model.Party
	Seller         model.Party
	Expires        time.Time
	IdempotencyKey string
	Object         model.TransactionObject
}

// Start starts a new in progress transaction. Return order transactions snapshot
// the order they return, the order must come from a confirmed place order
// transaction and must not be returned by another transaction.
func (s *Service) Start(ctx context.Context, req StartRequest) (*model.Transaction, error) {
	now := s.timeNow()
	tx := model.Transaction{
		ID:                     s.idGen(),
		ProjectID:              req.ProjectID,
		TypeOf:                 req.TypeOf,
		Status:                 model.TransactionStatusInProgress,
		Agent:                  req.Agent,
		Seller:                 req.Seller,
		IdempotencyKey:         req.IdempotencyKey,
		Object:                 req.Object,
		StartDate:              now,
		Expires:                req.Expires,
		TasksExportationStatus: model.TasksExportationStatusUnexported,
	}

	if err := tx.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transaction: %w", err)
	}

	if tx.TypeOf == model.TransactionTypeReturnOrder {
		ro := *tx.Object.ReturnOrder
		order, err := s.returnableOrder(ctx, ro.OrderNumber)
		if err != nil {
			return nil, err
		}
		ro.Order = order
		tx.Object.ReturnOrder = &ro
	}

	if err := s.txs.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("could not create transaction: %w", err)
	}

	s.logger.WithValues(log.Kv{"transaction": tx.ID, "type": tx.TypeOf}).Infof("Transaction started")
	return &tx, nil
}

func (s *Service) returnableOrder(ctx context.Context, orderNumber string) (*model.Order, error) {
	placed, err := s.txs.GetTransactionByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("could not get order %s: %w", orderNumber, err)
	}
	if placed.Status != model.TransactionStatusConfirmed || placed.Result == nil {
		return nil, fmt.Errorf("confirmed order %s: %w", orderNumber, model.ErrNotFound)
	}

	order := placed.Result.Order
	return &order, nil
}

// Get returns a transaction.
func (s *Service) Get(ctx context.Context, id string) (*model.Transaction, error) {
	return s.txs.GetTransaction(ctx, id)
}

// List lists transactions.
func (s *Service) List(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	return s.txs.ListTransactions(ctx, filter)
}

// Cancel cancels an in progress transaction owned by the agent. Completed
// authorizations are compensated by the exported tasks.
func (s *Service) Cancel(ctx context.Context, id, agentID string) error {
	if _, err := s.owned(ctx, id, agentID); err != nil {
		return err
	}

	if err := s.txs.CancelTransaction(ctx, id, s.timeNow()); err != nil {
		return fmt.Errorf("could not cancel transaction: %w", err)
	}

	s.logger.WithValues(log.Kv{"transaction": id}).Infof("Transaction canceled")
	return nil
}

// Expire expires every in progress transaction past its expiry.
func (s *Service) Expire(ctx context.Context) ([]string, error) {
	ids, err := s.txs.ExpireTransactions(ctx, s.timeNow())
	if err != nil {
		return nil, fmt.Errorf("could not expire transactions: %w", err)
	}

	if len(ids) > 0 {
		s.logger.Infof("%d transactions expired", len(ids))
	}
	return ids, nil
}

func (s *Service) owned(ctx context.Context, id, agentID string) (*model.Transaction, error) {
	tx, err := s.txs.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not get transaction: %w", err)
	}

	if tx.Agent.ID != agentID {
		return nil, fmt.Errorf("transaction %s is not owned by agent %s: %w", id, agentID, model.ErrForbidden)
	}

	return tx, nil
}
