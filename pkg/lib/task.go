package lib

import (
	"context"
	"fmt"
)

// ExportPendingTasks exports the tasks of every finished transaction that has
// not been exported yet, returns the number of exported transactions.
func (c *Client) ExportPendingTasks(ctx context.Context) (int, error) {
	n := 0
	for {
		res, err := c.exporter.Export(ctx)
		if err != nil {
			return n, fmt.Errorf("could not export tasks: %w", err)
		}
		if res == nil {
			return n, nil
		}
		n++
	}
}

// PreviewTasks returns the tasks a finished transaction exports without storing them.
func (c *Client) PreviewTasks(ctx context.Context, transactionID string) ([]TaskSpec, error) {
	return c.exporter.ExportTasksByID(ctx, transactionID)
}

// ListTasks lists tasks.
func (c *Client) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	return c.tasks.ListTasks(ctx, filter)
}

// RunDueTasks executes the due tasks one by one until none is left, returns
// the number of executed attempts. Failed attempts are retried later, after
// their backoff.
func (c *Client) RunDueTasks(ctx context.Context) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}

		ran, err := c.worker.RunOnce(ctx)
		if err != nil {
			return n, fmt.Errorf("could not run task: %w", err)
		}
		if !ran {
			c.logger.Debugf("Executed %d task attempts", n)
			return n, nil
		}
		n++
	}
}
