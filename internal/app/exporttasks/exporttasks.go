package exporttasks

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/ordersaga/internal/export"
	"github.com/slok/ordersaga/internal/log"
	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/storage"
)

// ServiceConfig is the configuration for the export tasks service.
type ServiceConfig struct {
	Transactions storage.TransactionRepository
	Actions      storage.ActionRepository
	Tasks        storage.TaskRepository
	// Statuses are the transaction statuses exported by Export, all the terminal ones by default.
	Statuses []model.TransactionStatus
	// StuckGracePeriod is how long a claim can stay exporting before it's reset.
	StuckGracePeriod time.Duration
	// PollInterval is the wait after an empty claim, doubled up to MaxPollInterval.
	PollInterval    time.Duration
	MaxPollInterval time.Duration
	Logger          log.Logger
	TimeNow         func() time.Time
	IDGen           func() string
}

func (c *ServiceConfig) defaults() error {
	if c.Transactions == nil {
		return fmt.Errorf("transaction repository is required")
	}

	if c.Actions == nil {
		return fmt.Errorf("action repository is required")
	}

	if c.Tasks == nil {
		return fmt.Errorf("task repository is required")
	}

	if len(c.Statuses) == 0 {
		c.Statuses = model.TerminalTransactionStatuses
	}
	for _, s := range c.Statuses {
		if !s.IsTerminal() {
			return fmt.Errorf("%s transactions can't be exported", s)
		}
	}

	if c.StuckGracePeriod <= 0 {
		c.StuckGracePeriod = 10 * time.Minute
	}

	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}

	if c.MaxPollInterval < c.PollInterval {
		c.MaxPollInterval = 30 * c.PollInterval
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.ExportTasks"})

	if c.TimeNow == nil {
		c.TimeNow = func() time.Time { return time.Now().UTC() }
	}

	if c.IDGen == nil {
		c.IDGen = func() string { return ulid.Make().String() }
	}

	return nil
}

// Service exports the tasks of terminal transactions. Claims are conditional
// updates on the store so many exporters can run at the same time.
type Service struct {
	txs             storage.TransactionRepository
	actions         storage.ActionRepository
	tasks           storage.TaskRepository
	statuses        []model.TransactionStatus
	stuckGrace      time.Duration
	pollInterval    time.Duration
	maxPollInterval time.Duration
	logger          log.Logger
	timeNow         func() time.Time
	idGen           func() string
}

// NewService returns a new export tasks service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		txs:             cfg.Transactions,
		actions:         cfg.Actions,
		tasks:           cfg.Tasks,
		statuses:        cfg.Statuses,
		stuckGrace:      cfg.StuckGracePeriod,
		pollInterval:    cfg.PollInterval,
		maxPollInterval: cfg.MaxPollInterval,
		logger:          cfg.Logger,
		timeNow:         cfg.TimeNow,
		idGen:           cfg.IDGen,
	}, nil
}

// StartExportTasks claims one unexported transaction in any of the statuses,
// returns nil if there is none.
func (s *Service) StartExportTasks(ctx context.Context, statuses []model.TransactionStatus) (*model.Transaction, error) {
	tx, err := s.txs.ClaimTransactionForExport(ctx, statuses, s.timeNow())
	if err != nil {
		return nil, fmt.Errorf("could not claim transaction: %w", err)
	}
	return tx, nil
}

// ExportTasksByID returns the tasks of a terminal transaction without storing them.
func (s *Service) ExportTasksByID(ctx context.Context, id string) ([]model.TaskSpec, error) {
	tx, err := s.txs.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not get transaction: %w", err)
	}

	return s.tasksOf(ctx, *tx)
}

// Result is the outcome of an export.
type Result struct {
	TransactionID string
	// Tasks is the number of exported tasks, Created the ones that didn't exist yet.
	Tasks   int
	Created int
}

// Export claims one transaction, stores its tasks and marks it as exported.
// Returns nil when there is nothing to export. On failure the transaction stays
// exporting until ResetStuck releases the claim.
func (s *Service) Export(ctx context.Context) (*Result, error) {
	tx, err := s.StartExportTasks(ctx, s.statuses)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, nil
	}

	logger := s.logger.WithValues(log.Kv{"transaction": tx.ID})

	specs, err := s.tasksOf(ctx, *tx)
	if err != nil {
		return nil, err
	}

	created, err := s.createTasks(ctx, *tx, specs)
	if err != nil {
		return nil, err
	}

	if err := s.txs.SetTasksExported(ctx, tx.ID, s.timeNow()); err != nil {
		return nil, fmt.Errorf("could not set transaction %s as exported: %w", tx.ID, err)
	}

	if created < len(specs) {
		logger.Warningf("%d of %d tasks already existed", len(specs)-created, len(specs))
	}
	logger.Infof("Exported %d tasks of %s transaction", len(specs), tx.Status)

	return &Result{TransactionID: tx.ID, Tasks: len(specs), Created: created}, nil
}

// ReexportTasksByID stores the tasks of a terminal transaction again, the tasks
// that already exist are kept as they are. The export status is not changed.
func (s *Service) ReexportTasksByID(ctx context.Context, id string) (*Result, error) {
	tx, err := s.txs.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not get transaction: %w", err)
	}

	specs, err := s.tasksOf(ctx, *tx)
	if err != nil {
		return nil, err
	}

	created, err := s.createTasks(ctx, *tx, specs)
	if err != nil {
		return nil, err
	}

	s.logger.WithValues(log.Kv{"transaction": tx.ID}).Infof("Re-exported %d tasks, %d created", len(specs), created)
	return &Result{TransactionID: tx.ID, Tasks: len(specs), Created: created}, nil
}

// ResetStuck releases the export claims older than the grace period.
func (s *Service) ResetStuck(ctx context.Context) (int, error) {
	n, err := s.txs.ResetStuckExports(ctx, s.timeNow().Add(-s.stuckGrace))
	if err != nil {
		return 0, fmt.Errorf("could not reset stuck exports: %w", err)
	}

	if n > 0 {
		s.logger.Warningf("Reset %d stuck exports", n)
	}
	return n, nil
}

// Run exports transactions until the context is done. It waits between empty
// claims and failures, doubling the wait up to the max poll interval.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Infof("Exporting tasks of %v transactions", s.statuses)

	wait := s.pollInterval
	for {
		res, err := s.Export(ctx)
		switch {
		case err != nil:
			s.logger.Errorf("Could not export tasks: %s", err)
		case res != nil:
			wait = s.pollInterval
			continue
		}

		select {
		case <-ctx.Done():
			s.logger.Infof("Exporter stopped")
			return nil
		case <-time.After(wait):
		}

		wait *= 2
		if wait > s.maxPollInterval {
			wait = s.maxPollInterval
		}
	}
}

func (s *Service) tasksOf(ctx context.Context, tx model.Transaction) ([]model.TaskSpec, error) {
	actions, err := s.actions.ListActionsByPurpose(ctx, tx.ID)
	if err != nil {
		return nil, fmt.Errorf("could not list actions: %w", err)
	}

	specs, err := export.Tasks(tx, actions)
	if err != nil {
		return nil, fmt.Errorf("could not export tasks: %w", err)
	}
	return specs, nil
}

func (s *Service) createTasks(ctx context.Context, tx model.Transaction, specs []model.TaskSpec) (int, error) {
	now := s.timeNow()
	tasks := make([]model.Task, 0, len(specs))
	for _, spec := range specs {
		tasks = append(tasks, model.NewTask(s.idGen(), tx.ProjectID, spec, now))
	}

	created, err := s.tasks.CreateTasks(ctx, tasks)
	if err != nil {
		return 0, fmt.Errorf("could not create tasks of transaction %s: %w", tx.ID, err)
	}
	return created, nil
}
