package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/ordersaga/internal/log"
	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/storage"
)

// LedgerConfig is the configuration for the action ledger.
type LedgerConfig struct {
	Repository storage.ActionRepository
	Logger     log.Logger
	TimeNow    func() time.Time
}

func (c *LedgerConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "ledger.Ledger"})

	if c.TimeNow == nil {
		c.TimeNow = func() time.Time { return time.Now().UTC() }
	}

	return nil
}

// Ledger records the lifecycle of authorize actions. Actions are never
// deleted, every status change is a conditional update from the statuses
// allowed by model.ActionStatus so terminal actions never change again.
type Ledger struct {
	repo    storage.ActionRepository
	logger  log.Logger
	timeNow func() time.Time
}

// NewLedger returns a new action ledger.
func NewLedger(cfg LedgerConfig) (*Ledger, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Ledger{
		repo:    cfg.Repository,
		logger:  cfg.Logger,
		timeNow: cfg.TimeNow,
	}, nil
}

// StartRequest is the action being started.
type StartRequest struct {
	ProjectID string
	AgentID   string
	Purpose   model.PurposeRef
	Object    model.AuthorizeObject
}

// Start records a new active action. The purpose transaction must be in
// progress, model.ErrNotFound is returned otherwise.
func (l *Ledger) Start(ctx context.Context, req StartRequest) (*model.Action, error) {
	if err := req.Object.Validate(); err != nil {
		return nil, fmt.Errorf("invalid authorize object: %w", err)
	}

	a := model.Action{
		ID:        ulid.Make().String(),
		ProjectID: req.ProjectID,
		TypeOf:    model.ActionTypeAuthorize,
		Status:    model.ActionStatusActive,
		AgentID:   req.AgentID,
		Purpose:   req.Purpose,
		Object:    req.Object,
		StartDate: l.timeNow(),
	}

	if err := l.repo.CreateAction(ctx, a); err != nil {
		return nil, fmt.Errorf("could not start action: %w", err)
	}

	l.logger.Debugf("Action %s started for transaction %s", a.ID, a.Purpose.TransactionID)
	return &a, nil
}

// Complete marks an active action as completed with the provider result.
func (l *Ledger) Complete(ctx context.Context, id string, result model.AuthorizeResult) (*model.Action, error) {
	return l.transition(ctx, storage.TransitionActionRequest{
		ID:     id,
		To:     model.ActionStatusCompleted,
		Result: &result,
	})
}

// GiveUp marks an active action as failed capturing the provider error.
func (l *Ledger) GiveUp(ctx context.Context, id string, cause error) (*model.Action, error) {
	detail := model.NewErrorDetail(cause)
	if detail == nil {
		detail = &model.ErrorDetail{Name: model.ErrorNameUnknown}
	}

	return l.transition(ctx, storage.TransitionActionRequest{
		ID:    id,
		To:    model.ActionStatusFailed,
		Error: detail,
	})
}

// Cancel voids an active or completed action.
func (l *Ledger) Cancel(ctx context.Context, id string) (*model.Action, error) {
	return l.transition(ctx, storage.TransitionActionRequest{
		ID: id,
		To: model.ActionStatusCanceled,
	})
}

// Get returns an action.
func (l *Ledger) Get(ctx context.Context, id string) (*model.Action, error) {
	return l.repo.GetAction(ctx, id)
}

// ListByPurpose returns the actions of a transaction in creation order.
func (l *Ledger) ListByPurpose(ctx context.Context, transactionID string) ([]model.Action, error) {
	return l.repo.ListActionsByPurpose(ctx, transactionID)
}

func (l *Ledger) transition(ctx context.Context, req storage.TransitionActionRequest) (*model.Action, error) {
	req.From = req.To.SourcesOf()
	req.EndDate = l.timeNow()

	a, err := l.repo.TransitionAction(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("could not move action %s to %s: %w", req.ID, req.To, err)
	}

	l.logger.Debugf("Action %s is now %s", a.ID, a.Status)
	return a, nil
}
