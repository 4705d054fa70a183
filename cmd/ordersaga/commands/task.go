package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/ordersaga/internal/model"
)

type TaskListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	statuses      []string
	names         []string
	transactionID string
	limit         int
	format        string
}

// NewTaskListCommand returns the task list command.
func NewTaskListCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TaskListCommand {
	c := &TaskListCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("list", "List tasks in creation order.")
	c.Cmd.Flag("status", "Filter by status (repeatable).").EnumsVar(&c.statuses,
		string(model.TaskStatusReady),
		string(model.TaskStatusRunning),
		string(model.TaskStatusExecuted),
		string(model.TaskStatusAborted),
	)
	c.Cmd.Flag("name", "Filter by task name (repeatable).").StringsVar(&c.names)
	c.Cmd.Flag("transaction", "Filter by transaction ID.").StringVar(&c.transactionID)
	c.Cmd.Flag("limit", "Maximum number of tasks.").Default("100").IntVar(&c.limit)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c TaskListCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskListCommand) Run(ctx context.Context) error {
	repos, err := c.rootCmd.openRepositories(ctx)
	if err != nil {
		return err
	}
	defer repos.Close()

	filter := model.TaskFilter{
		TransactionID: c.transactionID,
		Limit:         c.limit,
	}
	for _, s := range c.statuses {
		filter.Statuses = append(filter.Statuses, model.TaskStatus(s))
	}
	for _, n := range c.names {
		filter.Names = append(filter.Names, model.TaskName(n))
	}

	tasks, err := repos.tasks.ListTasks(ctx, filter)
	if err != nil {
		return fmt.Errorf("could not list tasks: %w", err)
	}

	if err := c.rootCmd.printer(c.format).PrintTasks(tasks); err != nil {
		return fmt.Errorf("could not print tasks: %w", err)
	}

	return nil
}
