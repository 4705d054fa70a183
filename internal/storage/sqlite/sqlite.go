package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/ordersaga/internal/log"
	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/storage"
	"github.com/slok/ordersaga/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.TransactionRepository and
// storage.ActionRepository. State changes are single conditional statements so
// concurrent workers sharing the database never overwrite each other.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

var (
	_ storage.TransactionRepository = &Repository{}
	_ storage.ActionRepository      = &Repository{}
)

// NewRepository opens (and migrates) the SQLite database.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := Open(ctx, cfg.DBPath, cfg.Logger)
	if err != nil {
		return nil, err
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Open opens the database at path and applies the migrations.
func Open(ctx context.Context, path string, logger log.Logger) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	// Single writer.
	db.SetMaxOpenConns(1)

	migrator, err := migrations.NewMigrator(db, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	return db, nil
}

// DB returns the underlying database so other repositories can share it.
func (r *Repository) DB() *sql.DB { return r.db }

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

const transactionColumns = `
	id, project_id, type_of, status, agent, seller,
	idempotency_key, object, result, potential_actions,
	start_date, expires, end_date,
	tasks_exportation_status, tasks_export_started_at, tasks_exported_at`

// CreateTransaction creates a new transaction in the repository.
func (r *Repository) CreateTransaction(ctx context.Context, t model.Transaction) error {
	agent, err := marshal(t.Agent)
	if err != nil {
		return err
	}
	seller, err := marshal(t.Seller)
	if err != nil {
		return err
	}
	object, err := marshal(t.Object)
	if err != nil {
		return err
	}
	result, err := marshalPtr(t.Result)
	if err != nil {
		return err
	}
	potentialActions, err := marshalPtr(t.PotentialActions)
	if err != nil {
		return err
	}

	var orderNumber *string
	if t.Result != nil && t.Result.Order.OrderNumber != "" {
		orderNumber = &t.Result.Order.OrderNumber
	}

	var returnedOrderNumber *string
	if t.TypeOf == model.TransactionTypeReturnOrder && t.Object.ReturnOrder != nil {
		returnedOrderNumber = &t.Object.ReturnOrder.OrderNumber
	}

	query := `
		INSERT INTO transactions (
			id, project_id, type_of, status, agent_id, agent, seller,
			idempotency_key, order_number, object, result, potential_actions,
			start_date, expires, end_date,
			tasks_exportation_status, tasks_export_started_at, tasks_exported_at,
			returned_order_number
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		t.ID,
		t.ProjectID,
		t.TypeOf,
		t.Status,
		t.Agent.ID,
		agent,
		seller,
		nullString(t.IdempotencyKey),
		orderNumber,
		object,
		result,
		potentialActions,
		unixNano(t.StartDate),
		unixNano(t.Expires),
		unixNanoPtr(t.EndDate),
		t.TasksExportationStatus,
		unixNanoPtr(t.TasksExportStartedAt),
		unixNanoPtr(t.TasksExportedAt),
		returnedOrderNumber,
	)
	if err != nil {
		if isUniqueErr(err) {
			return fmt.Errorf("transaction %s: %w", t.ID, model.ErrAlreadyInUse)
		}
		return fmt.Errorf("could not insert transaction: %w", err)
	}

	r.logger.Debugf("Created transaction in repository: %s", t.ID)
	return nil
}

// GetTransaction retrieves a transaction by ID.
func (r *Repository) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query transaction: %w", err)
	}

	return &t, nil
}

// GetTransactionByOrderNumber retrieves the transaction that created an order.
func (r *Repository) GetTransactionByOrderNumber(ctx context.Context, orderNumber string) (*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE order_number = ? AND type_of = ?`

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, orderNumber, model.TransactionTypePlaceOrder))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction with order number %s: %w", orderNumber, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query transaction: %w", err)
	}

	return &t, nil
}

// ListTransactions returns the transactions matching the filter, newest first.
func (r *Repository) ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(filter.Statuses))+")")
		for _, s := range filter.Statuses {
			args = append(args, s)
		}
	}
	if filter.TypeOf != "" {
		where = append(where, "type_of = ?")
		args = append(args, filter.TypeOf)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_date DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query transactions: %w", err)
	}
	defer rows.Close()

	var txs []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return txs, nil
}

// UpdateAgentContact updates the contact of the agent of an in progress transaction.
func (r *Repository) UpdateAgentContact(ctx context.Context, id, agentID string, contact model.Contact) error {
	c, err := marshal(contact)
	if err != nil {
		return err
	}

	query := `
		UPDATE transactions
		SET agent = json_set(agent, '$.contact', json(?))
		WHERE id = ? AND status = ? AND agent_id = ?
	`
	res, err := r.db.ExecContext(ctx, query, c, id, model.TransactionStatusInProgress, agentID)
	if err != nil {
		return fmt.Errorf("could not update agent contact: %w", err)
	}
	if err := expectAffected(res, fmt.Sprintf("in progress transaction %s of agent %s", id, agentID)); err != nil {
		return err
	}

	r.logger.Debugf("Updated agent contact of transaction: %s", id)
	return nil
}

// ConfirmTransaction seals an in progress transaction as confirmed.
func (r *Repository) ConfirmTransaction(ctx context.Context, req storage.ConfirmTransactionRequest) error {
	result, err := marshal(req.Result)
	if err != nil {
		return err
	}
	potentialActions, err := marshal(req.PotentialActions)
	if err != nil {
		return err
	}

	query := `
		UPDATE transactions
		SET status = ?, order_number = ?, result = ?, potential_actions = ?, end_date = ?
		WHERE id = ? AND status = ? AND agent_id = ? AND expires > ?
	`
	res, err := r.db.ExecContext(ctx, query,
		model.TransactionStatusConfirmed,
		nullString(req.Result.Order.OrderNumber),
		result,
		potentialActions,
		unixNano(req.EndDate),
		req.ID,
		model.TransactionStatusInProgress,
		req.AgentID,
		unixNano(req.EndDate),
	)
	if err != nil {
		if isUniqueErr(err) {
			return fmt.Errorf("order number %s: %w", req.Result.Order.OrderNumber, model.ErrAlreadyInUse)
		}
		return fmt.Errorf("could not confirm transaction: %w", err)
	}
	if err := expectAffected(res, "in progress transaction "+req.ID); err != nil {
		return err
	}

	r.logger.Debugf("Confirmed transaction: %s", req.ID)
	return nil
}

// CancelTransaction seals an in progress transaction as canceled.
func (r *Repository) CancelTransaction(ctx context.Context, id string, endDate time.Time) error {
	query := `UPDATE transactions SET status = ?, end_date = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, query, model.TransactionStatusCanceled, unixNano(endDate), id, model.TransactionStatusInProgress)
	if err != nil {
		return fmt.Errorf("could not cancel transaction: %w", err)
	}
	if err := expectAffected(res, "in progress transaction "+id); err != nil {
		return err
	}

	r.logger.Debugf("Canceled transaction: %s", id)
	return nil
}

// ExpireTransactions seals in progress transactions past their expiry as expired.
func (r *Repository) ExpireTransactions(ctx context.Context, now time.Time) ([]string, error) {
	query := `
		UPDATE transactions
		SET status = ?, end_date = ?
		WHERE status = ? AND expires <= ?
		RETURNING id
	`
	rows, err := r.db.QueryContext(ctx, query, model.TransactionStatusExpired, unixNano(now), model.TransactionStatusInProgress, unixNano(now))
	if err != nil {
		return nil, fmt.Errorf("could not expire transactions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	sort.Strings(ids)

	if len(ids) > 0 {
		r.logger.Debugf("Expired %d transactions", len(ids))
	}
	return ids, nil
}

// ClaimTransactionForExport claims the oldest unexported transaction in any of the statuses.
func (r *Repository) ClaimTransactionForExport(ctx context.Context, statuses []model.TransactionStatus, now time.Time) (*model.Transaction, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	args := []any{model.TasksExportationStatusExporting, unixNano(now), model.TasksExportationStatusUnexported}
	for _, s := range statuses {
		args = append(args, s)
	}

	query := `
		UPDATE transactions
		SET tasks_exportation_status = ?, tasks_export_started_at = ?
		WHERE id = (
			SELECT id FROM transactions
			WHERE tasks_exportation_status = ? AND status IN (` + placeholders(len(statuses)) + `)
			ORDER BY start_date ASC, id ASC
			LIMIT 1
		)
		RETURNING ` + transactionColumns

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not claim transaction: %w", err)
	}

	r.logger.Debugf("Claimed transaction for export: %s", t.ID)
	return &t, nil
}

// SetTasksExported marks an exporting transaction as exported.
func (r *Repository) SetTasksExported(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE transactions
		SET tasks_exportation_status = ?, tasks_exported_at = ?
		WHERE id = ? AND tasks_exportation_status = ?
	`
	res, err := r.db.ExecContext(ctx, query, model.TasksExportationStatusExported, unixNano(now), id, model.TasksExportationStatusExporting)
	if err != nil {
		return fmt.Errorf("could not set tasks exported: %w", err)
	}

	return expectAffected(res, "exporting transaction "+id)
}

// ResetStuckExports releases export claims older than the cutoff.
func (r *Repository) ResetStuckExports(ctx context.Context, claimedBefore time.Time) (int, error) {
	query := `
		UPDATE transactions
		SET tasks_exportation_status = ?, tasks_export_started_at = NULL
		WHERE tasks_exportation_status = ? AND tasks_export_started_at < ?
	`
	res, err := r.db.ExecContext(ctx, query, model.TasksExportationStatusUnexported, model.TasksExportationStatusExporting, unixNano(claimedBefore))
	if err != nil {
		return 0, fmt.Errorf("could not reset stuck exports: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("could not get rows affected: %w", err)
	}

	return int(n), nil
}

const actionColumns = `
	id, project_id, type_of, status, agent_id,
	purpose_transaction_id, purpose_type_of,
	object, result, error, start_date, end_date`

// CreateAction creates a new action, the purpose transaction must be in progress.
func (r *Repository) CreateAction(ctx context.Context, a model.Action) error {
	object, err := marshal(a.Object)
	if err != nil {
		return err
	}
	result, err := marshalPtr(a.Result)
	if err != nil {
		return err
	}
	actionErr, err := marshalPtr(a.Error)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO actions (` + actionColumns + `)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM transactions WHERE id = ? AND status = ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.ProjectID,
		a.TypeOf,
		a.Status,
		a.AgentID,
		a.Purpose.TransactionID,
		a.Purpose.TypeOf,
		object,
		result,
		actionErr,
		unixNano(a.StartDate),
		unixNanoPtr(a.EndDate),
		a.Purpose.TransactionID,
		model.TransactionStatusInProgress,
	)
	if err != nil {
		if isUniqueErr(err) {
			return fmt.Errorf("action %s: %w", a.ID, model.ErrAlreadyInUse)
		}
		return fmt.Errorf("could not insert action: %w", err)
	}
	if err := expectAffected(res, "in progress transaction "+a.Purpose.TransactionID); err != nil {
		return err
	}

	r.logger.Debugf("Created action in repository: %s", a.ID)
	return nil
}

// GetAction retrieves an action by ID.
func (r *Repository) GetAction(ctx context.Context, id string) (*model.Action, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE id = ?`

	a, err := scanAction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("action %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query action: %w", err)
	}

	return &a, nil
}

// ListActionsByPurpose returns the actions of a transaction in creation order.
func (r *Repository) ListActionsByPurpose(ctx context.Context, transactionID string) ([]model.Action, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE purpose_transaction_id = ? ORDER BY start_date ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("could not query actions: %w", err)
	}
	defer rows.Close()

	var actions []model.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return actions, nil
}

// TransitionAction moves an action status if it's in one of the expected statuses.
func (r *Repository) TransitionAction(ctx context.Context, req storage.TransitionActionRequest) (*model.Action, error) {
	if len(req.From) == 0 {
		return nil, fmt.Errorf("at least one source status is required: %w", model.ErrArgument)
	}

	result, err := marshalPtr(req.Result)
	if err != nil {
		return nil, err
	}
	actionErr, err := marshalPtr(req.Error)
	if err != nil {
		return nil, err
	}

	args := []any{req.To, unixNano(req.EndDate), result, actionErr, req.ID}
	for _, s := range req.From {
		args = append(args, s)
	}

	query := `
		UPDATE actions
		SET status = ?, end_date = ?, result = COALESCE(?, result), error = COALESCE(?, error)
		WHERE id = ? AND status IN (` + placeholders(len(req.From)) + `)
		RETURNING ` + actionColumns

	a, err := scanAction(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("action %s in status %v: %w", req.ID, req.From, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not transition action: %w", err)
	}

	r.logger.Debugf("Action %s transitioned to %s", req.ID, req.To)
	return &a, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (model.Transaction, error) {
	var (
		t                                        model.Transaction
		agent, seller, object                    string
		idempotencyKey, result, potentialActions sql.NullString
		startDate, expires                       int64
		endDate, exportStartedAt, exportedAt     sql.NullInt64
	)

	err := s.Scan(
		&t.ID,
		&t.ProjectID,
		&t.TypeOf,
		&t.Status,
		&agent,
		&seller,
		&idempotencyKey,
		&object,
		&result,
		&potentialActions,
		&startDate,
		&expires,
		&endDate,
		&t.TasksExportationStatus,
		&exportStartedAt,
		&exportedAt,
	)
	if err != nil {
		return model.Transaction{}, err
	}

	if err := unmarshal(agent, &t.Agent); err != nil {
		return model.Transaction{}, err
	}
	if err := unmarshal(seller, &t.Seller); err != nil {
		return model.Transaction{}, err
	}
	if err := unmarshal(object, &t.Object); err != nil {
		return model.Transaction{}, err
	}
	if result.Valid {
		t.Result = &model.TransactionResult{}
		if err := unmarshal(result.String, t.Result); err != nil {
			return model.Transaction{}, err
		}
	}
	if potentialActions.Valid {
		t.PotentialActions = &model.PotentialActions{}
		if err := unmarshal(potentialActions.String, t.PotentialActions); err != nil {
			return model.Transaction{}, err
		}
	}

	t.IdempotencyKey = idempotencyKey.String
	t.StartDate = timeFromUnixNano(startDate)
	t.Expires = timeFromUnixNano(expires)
	t.EndDate = timePtr(endDate)
	t.TasksExportStartedAt = timePtr(exportStartedAt)
	t.TasksExportedAt = timePtr(exportedAt)

	return t, nil
}

func scanAction(s scanner) (model.Action, error) {
	var (
		a                 model.Action
		object            string
		result, actionErr sql.NullString
		startDate         int64
		endDate           sql.NullInt64
	)

	err := s.Scan(
		&a.ID,
		&a.ProjectID,
		&a.TypeOf,
		&a.Status,
		&a.AgentID,
		&a.Purpose.TransactionID,
		&a.Purpose.TypeOf,
		&object,
		&result,
		&actionErr,
		&startDate,
		&endDate,
	)
	if err != nil {
		return model.Action{}, err
	}

	if err := unmarshal(object, &a.Object); err != nil {
		return model.Action{}, err
	}
	if result.Valid {
		a.Result = &model.AuthorizeResult{}
		if err := unmarshal(result.String, a.Result); err != nil {
			return model.Action{}, err
		}
	}
	if actionErr.Valid {
		a.Error = &model.ErrorDetail{}
		if err := unmarshal(actionErr.String, a.Error); err != nil {
			return model.Action{}, err
		}
	}

	a.StartDate = timeFromUnixNano(startDate)
	a.EndDate = timePtr(endDate)

	return a, nil
}
