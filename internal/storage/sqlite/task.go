package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/slok/ordersaga/internal/log"
	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/storage"
)

// TaskRepositoryConfig is the configuration for the SQLite task repository.
type TaskRepositoryConfig struct {
	DB     *sql.DB
	Logger log.Logger
}

func (c *TaskRepositoryConfig) defaults() error {
	if c.DB == nil {
		return fmt.Errorf("db is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLiteTaskRepository"})
	return nil
}

// TaskRepository is a SQLite implementation of storage.TaskRepository.
type TaskRepository struct {
	db     *sql.DB
	logger log.Logger
}

var _ storage.TaskRepository = &TaskRepository{}

// NewTaskRepository creates a new SQLite task repository.
func NewTaskRepository(cfg TaskRepositoryConfig) (*TaskRepository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &TaskRepository{
		db:     cfg.DB,
		logger: cfg.Logger,
	}, nil
}

const taskColumns = `
	id, identifier, project_id, name, status, runs_at,
	number_of_tried, remaining_number_of_tries, last_tried_at,
	data, created_at`

// CreateTasks stores the tasks whose identifier is not already present.
func (r *TaskRepository) CreateTasks(ctx context.Context, tasks []model.Task) (int, error) {
	if len(tasks) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO tasks (` + taskColumns + `, transaction_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO NOTHING
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("could not prepare statement: %w", err)
	}
	defer stmt.Close()

	created := 0
	for _, t := range tasks {
		data, err := marshal(t.Data)
		if err != nil {
			return 0, err
		}

		res, err := stmt.ExecContext(ctx,
			t.ID,
			t.Identifier,
			t.ProjectID,
			t.Name,
			t.Status,
			unixNano(t.RunsAt),
			t.NumberOfTried,
			t.RemainingNumberOfTries,
			unixNanoPtr(t.LastTriedAt),
			data,
			unixNano(t.CreatedAt),
			t.Data.TransactionID,
		)
		if err != nil {
			if isUniqueErr(err) {
				return 0, fmt.Errorf("task %s: %w", t.ID, model.ErrAlreadyInUse)
			}
			return 0, fmt.Errorf("could not insert task: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("could not get rows affected: %w", err)
		}
		created += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Created %d of %d tasks", created, len(tasks))
	return created, nil
}

// GetTask retrieves a task by ID with its execution results.
func (r *TaskRepository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

	t, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query task: %w", err)
	}

	tasks := []model.Task{t}
	if err := r.loadExecutionResults(ctx, tasks); err != nil {
		return nil, err
	}

	return &tasks[0], nil
}

// ListTasks returns the tasks matching the filter in creation order.
func (r *TaskRepository) ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
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
	if len(filter.Names) > 0 {
		where = append(where, "name IN ("+placeholders(len(filter.Names))+")")
		for _, n := range filter.Names {
			args = append(args, n)
		}
	}
	if filter.TransactionID != "" {
		where = append(where, "transaction_id = ?")
		args = append(args, filter.TransactionID)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	tasks, err := r.queryTasks(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if err := r.loadExecutionResults(ctx, tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

// ClaimTask flips the ready task with the earliest due run time to running.
func (r *TaskRepository) ClaimTask(ctx context.Context, names []model.TaskName, now time.Time) (*model.Task, error) {
	args := []any{model.TaskStatusRunning, unixNano(now), model.TaskStatusReady, unixNano(now)}
	nameFilter := ""
	if len(names) > 0 {
		nameFilter = " AND name IN (" + placeholders(len(names)) + ")"
		for _, n := range names {
			args = append(args, n)
		}
	}

	query := `
		UPDATE tasks
		SET status = ?, last_tried_at = ?
		WHERE id = (
			SELECT id FROM tasks
			WHERE status = ? AND runs_at <= ?` + nameFilter + `
			ORDER BY runs_at ASC, id ASC
			LIMIT 1
		)
		RETURNING ` + taskColumns

	t, err := scanTask(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not claim task: %w", err)
	}

	tasks := []model.Task{t}
	if err := r.loadExecutionResults(ctx, tasks); err != nil {
		return nil, err
	}

	r.logger.Debugf("Claimed task %s (%s)", t.ID, t.Name)
	return &tasks[0], nil
}

// FinishTaskAttempt stores the new state of the claimed attempt of a running task
// and appends the attempt result.
func (r *TaskRepository) FinishTaskAttempt(ctx context.Context, t model.Task, res model.TaskExecutionResult) error {
	resErr, err := marshalPtr(res.Error)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		UPDATE tasks
		SET status = ?, runs_at = ?, number_of_tried = ?, remaining_number_of_tries = ?
		WHERE id = ? AND status = ? AND last_tried_at IS ?
	`
	result, err := tx.ExecContext(ctx, query,
		t.Status,
		unixNano(t.RunsAt),
		t.NumberOfTried,
		t.RemainingNumberOfTries,
		t.ID,
		model.TaskStatusRunning,
		unixNanoPtr(t.LastTriedAt),
	)
	if err != nil {
		return fmt.Errorf("could not update task: %w", err)
	}
	if err := expectAffected(result, "running task "+t.ID); err != nil {
		return err
	}

	insert := `INSERT INTO task_execution_results (task_id, executed_at, end_date, error) VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insert, t.ID, unixNano(res.ExecutedAt), unixNano(res.EndDate), resErr); err != nil {
		return fmt.Errorf("could not insert execution result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Task %s attempt finished with status %s", t.ID, t.Status)
	return nil
}

// ListStaleRunningTasks returns running tasks last tried before the cutoff.
func (r *TaskRepository) ListStaleRunningTasks(ctx context.Context, triedBefore time.Time) ([]model.Task, error) {
	query := `
		SELECT ` + taskColumns + ` FROM tasks
		WHERE status = ? AND last_tried_at < ?
		ORDER BY created_at ASC, id ASC
	`

	tasks, err := r.queryTasks(ctx, query, model.TaskStatusRunning, unixNano(triedBefore))
	if err != nil {
		return nil, err
	}
	if err := r.loadExecutionResults(ctx, tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

// queryTasks reads every row before returning, the pool has a single connection.
func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepository) loadExecutionResults(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	index := make(map[string]int, len(tasks))
	args := make([]any, 0, len(tasks))
	for i, t := range tasks {
		index[t.ID] = i
		args = append(args, t.ID)
	}

	query := `
		SELECT task_id, executed_at, end_date, error
		FROM task_execution_results
		WHERE task_id IN (` + placeholders(len(tasks)) + `)
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("could not query execution results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			taskID              string
			executedAt, endDate int64
			resErr              sql.NullString
		)
		if err := rows.Scan(&taskID, &executedAt, &endDate, &resErr); err != nil {
			return fmt.Errorf("could not scan row: %w", err)
		}

		res := model.TaskExecutionResult{
			ExecutedAt: timeFromUnixNano(executedAt),
			EndDate:    timeFromUnixNano(endDate),
		}
		if resErr.Valid {
			res.Error = &model.ErrorDetail{}
			if err := unmarshal(resErr.String, res.Error); err != nil {
				return err
			}
		}

		i := index[taskID]
		tasks[i].ExecutionResults = append(tasks[i].ExecutionResults, res)
	}

	return rows.Err()
}

func scanTask(s scanner) (model.Task, error) {
	var (
		t               model.Task
		data            string
		runsAt, created int64
		lastTriedAt     sql.NullInt64
	)

	err := s.Scan(
		&t.ID,
		&t.Identifier,
		&t.ProjectID,
		&t.Name,
		&t.Status,
		&runsAt,
		&t.NumberOfTried,
		&t.RemainingNumberOfTries,
		&lastTriedAt,
		&data,
		&created,
	)
	if err != nil {
		return model.Task{}, err
	}

	if err := unmarshal(data, &t.Data); err != nil {
		return model.Task{}, err
	}
	t.RunsAt = timeFromUnixNano(runsAt)
	t.LastTriedAt = timePtr(lastTriedAt)
	t.CreatedAt = timeFromUnixNano(created)

	return t, nil
}
