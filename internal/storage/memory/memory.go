package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/slok/ordersaga/internal/log"
	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/storage"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.TransactionRepository and
// storage.ActionRepository. The mutex makes every conditional update atomic.
type Repository struct {
	transactions map[string]model.Transaction
	actions      map[string]model.Action
	mu           sync.RWMutex
	logger       log.Logger
}

var (
	_ storage.TransactionRepository = &Repository{}
	_ storage.ActionRepository      = &Repository{}
)

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		transactions: make(map[string]model.Transaction),
		actions:      make(map[string]model.Action),
		logger:       cfg.Logger,
	}, nil
}

// CreateTransaction creates a new transaction in the repository.
func (r *Repository) CreateTransaction(ctx context.Context, t model.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.transactions[t.ID]; ok {
		return fmt.Errorf("transaction with id %s: %w", t.ID, model.ErrAlreadyInUse)
	}

	if t.IdempotencyKey != "" {
		for _, existing := range r.transactions {
			if existing.IdempotencyKey == t.IdempotencyKey {
				return fmt.Errorf("transaction with idempotency key %s: %w", t.IdempotencyKey, model.ErrAlreadyInUse)
			}
		}
	}

	if orderNumber := returnedOrderNumber(t); orderNumber != "" {
		for _, existing := range r.transactions {
			active := existing.Status == model.TransactionStatusInProgress || existing.Status == model.TransactionStatusConfirmed
			if active && returnedOrderNumber(existing) == orderNumber {
				return fmt.Errorf("order %s is being returned by %s: %w", orderNumber, existing.ID, model.ErrAlreadyInUse)
			}
		}
	}

	r.transactions[t.ID] = t
	r.logger.Debugf("Created transaction in repository: %s", t.ID)

	return nil
}

// GetTransaction retrieves a transaction by ID.
func (r *Repository) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, model.ErrNotFound)
	}

	return &t, nil
}

// GetTransactionByOrderNumber retrieves the transaction that created an order.
func (r *Repository) GetTransactionByOrderNumber(ctx context.Context, orderNumber string) (*model.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.transactions {
		if t.TypeOf == model.TransactionTypePlaceOrder && t.Result != nil && t.Result.Order.OrderNumber == orderNumber {
			return &t, nil
		}
	}

	return nil, fmt.Errorf("transaction with order number %s: %w", orderNumber, model.ErrNotFound)
}

// ListTransactions returns the transactions matching the filter, newest first.
func (r *Repository) ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	txs := make([]model.Transaction, 0, len(r.transactions))
	for _, t := range r.transactions {
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, t.Status) {
			continue
		}
		if filter.TypeOf != "" && filter.TypeOf != t.TypeOf {
			continue
		}
		txs = append(txs, t)
	}

	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].StartDate.Equal(txs[j].StartDate) {
			return txs[i].ID > txs[j].ID
		}
		return txs[i].StartDate.After(txs[j].StartDate)
	})

	if filter.Limit > 0 && len(txs) > filter.Limit {
		txs = txs[:filter.Limit]
	}

	return txs, nil
}

// UpdateAgentContact updates the contact of the agent of an in progress transaction.
func (r *Repository) UpdateAgentContact(ctx context.Context, id, agentID string, contact model.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.transactions[id]
	if !ok || t.Status != model.TransactionStatusInProgress || t.Agent.ID != agentID {
		return fmt.Errorf("in progress transaction %s of agent %s: %w", id, agentID, model.ErrNotFound)
	}

	t.Agent.Contact = contact
	r.transactions[id] = t
	r.logger.Debugf("Updated agent contact of transaction: %s", id)

	return nil
}

// ConfirmTransaction seals an in progress transaction as confirmed.
func (r *Repository) ConfirmTransaction(ctx context.Context, req storage.ConfirmTransactionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.transactions[req.ID]
	if !ok || t.Status != model.TransactionStatusInProgress || t.Agent.ID != req.AgentID || !t.Expires.After(req.EndDate) {
		return fmt.Errorf("in progress transaction %s: %w", req.ID, model.ErrNotFound)
	}

	for _, existing := range r.transactions {
		if existing.Result != nil && existing.Result.Order.OrderNumber == req.Result.Order.OrderNumber {
			return fmt.Errorf("order number %s: %w", req.Result.Order.OrderNumber, model.ErrAlreadyInUse)
		}
	}

	result := req.Result
	potentialActions := req.PotentialActions
	endDate := req.EndDate
	t.Status = model.TransactionStatusConfirmed
	t.Result = &result
	t.PotentialActions = &potentialActions
	t.EndDate = &endDate
	r.transactions[req.ID] = t
	r.logger.Debugf("Confirmed transaction: %s", req.ID)

	return nil
}

// CancelTransaction seals an in progress transaction as canceled.
func (r *Repository) CancelTransaction(ctx context.Context, id string, endDate time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.transactions[id]
	if !ok || t.Status != model.TransactionStatusInProgress {
		return fmt.Errorf("in progress transaction %s: %w", id, model.ErrNotFound)
	}

	t.Status = model.TransactionStatusCanceled
	t.EndDate = &endDate
	r.transactions[id] = t
	r.logger.Debugf("Canceled transaction: %s", id)

	return nil
}

// ExpireTransactions seals in progress transactions past their expiry as expired.
func (r *Repository) ExpireTransactions(ctx context.Context, now time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for id, t := range r.transactions {
		if t.Status != model.TransactionStatusInProgress || t.Expires.After(now) {
			continue
		}
		endDate := now
		t.Status = model.TransactionStatusExpired
		t.EndDate = &endDate
		r.transactions[id] = t
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) > 0 {
		r.logger.Debugf("Expired %d transactions", len(ids))
	}

	return ids, nil
}

// ClaimTransactionForExport claims the oldest unexported transaction in any of the statuses.
func (r *Repository) ClaimTransactionForExport(ctx context.Context, statuses []model.TransactionStatus, now time.Time) (*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var claimed *model.Transaction
	for _, t := range r.transactions {
		if t.TasksExportationStatus != model.TasksExportationStatusUnexported || !slices.Contains(statuses, t.Status) {
			continue
		}
		if claimed == nil || t.StartDate.Before(claimed.StartDate) || (t.StartDate.Equal(claimed.StartDate) && t.ID < claimed.ID) {
			tc := t
			claimed = &tc
		}
	}
	if claimed == nil {
		return nil, nil
	}

	startedAt := now
	claimed.TasksExportationStatus = model.TasksExportationStatusExporting
	claimed.TasksExportStartedAt = &startedAt
	r.transactions[claimed.ID] = *claimed
	r.logger.Debugf("Claimed transaction for export: %s", claimed.ID)

	return claimed, nil
}

// SetTasksExported marks an exporting transaction as exported.
func (r *Repository) SetTasksExported(ctx context.Context, id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.transactions[id]
	if !ok || t.TasksExportationStatus != model.TasksExportationStatusExporting {
		return fmt.Errorf("exporting transaction %s: %w", id, model.ErrNotFound)
	}

	exportedAt := now
	t.TasksExportationStatus = model.TasksExportationStatusExported
	t.TasksExportedAt = &exportedAt
	r.transactions[id] = t

	return nil
}

// ResetStuckExports releases export claims older than the cutoff.
func (r *Repository) ResetStuckExports(ctx context.Context, claimedBefore time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, t := range r.transactions {
		if t.TasksExportationStatus != model.TasksExportationStatusExporting || t.TasksExportStartedAt == nil || !t.TasksExportStartedAt.Before(claimedBefore) {
			continue
		}
		t.TasksExportationStatus = model.TasksExportationStatusUnexported
		t.TasksExportStartedAt = nil
		r.transactions[id] = t
		n++
	}

	return n, nil
}

// CreateAction creates a new action, the purpose transaction must be in progress.
func (r *Repository) CreateAction(ctx context.Context, a model.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.transactions[a.Purpose.TransactionID]
	if !ok || t.Status != model.TransactionStatusInProgress {
		return fmt.Errorf("in progress transaction %s: %w", a.Purpose.TransactionID, model.ErrNotFound)
	}

	if _, ok := r.actions[a.ID]; ok {
		return fmt.Errorf("action with id %s: %w", a.ID, model.ErrAlreadyInUse)
	}

	r.actions[a.ID] = a
	r.logger.Debugf("Created action in repository: %s", a.ID)

	return nil
}

// GetAction retrieves an action by ID.
func (r *Repository) GetAction(ctx context.Context, id string) (*model.Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.actions[id]
	if !ok {
		return nil, fmt.Errorf("action %s: %w", id, model.ErrNotFound)
	}

	return &a, nil
}

// ListActionsByPurpose returns the actions of a transaction in creation order.
func (r *Repository) ListActionsByPurpose(ctx context.Context, transactionID string) ([]model.Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var actions []model.Action
	for _, a := range r.actions {
		if a.Purpose.TransactionID == transactionID {
			actions = append(actions, a)
		}
	}

	sort.Slice(actions, func(i, j int) bool {
		if actions[i].StartDate.Equal(actions[j].StartDate) {
			return actions[i].ID < actions[j].ID
		}
		return actions[i].StartDate.Before(actions[j].StartDate)
	})

	return actions, nil
}

// TransitionAction moves an action status if it's in one of the expected statuses.
func (r *Repository) TransitionAction(ctx context.Context, req storage.TransitionActionRequest) (*model.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.actions[req.ID]
	if !ok || !slices.Contains(req.From, a.Status) {
		return nil, fmt.Errorf("action %s in status %v: %w", req.ID, req.From, model.ErrNotFound)
	}

	endDate := req.EndDate
	a.Status = req.To
	a.EndDate = &endDate
	if req.Result != nil {
		a.Result = req.Result
	}
	if req.Error != nil {
		a.Error = req.Error
	}
	r.actions[req.ID] = a
	r.logger.Debugf("Action %s transitioned to %s", req.ID, req.To)

	return &a, nil
}

func returnedOrderNumber(t model.Transaction) string {
	if t.TypeOf != model.TransactionTypeReturnOrder || t.Object.ReturnOrder == nil {
		return ""
	}
	return t.Object.ReturnOrder.OrderNumber
}
