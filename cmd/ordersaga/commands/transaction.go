package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/ordersaga/internal/app/exporttasks"
	"github.com/slok/ordersaga/internal/app/transaction"
	"github.com/slok/ordersaga/internal/ledger"
	"github.com/slok/ordersaga/internal/model"
)

type TransactionListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	statuses []string
	typeOf   string
	limit    int
	format   string
}

// NewTransactionListCommand returns the transaction list command.
func NewTransactionListCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TransactionListCommand {
	c := &TransactionListCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("list", "List transactions, newest first.")
	c.Cmd.Flag("status", "Filter by status (repeatable).").EnumsVar(&c.statuses,
		string(model.TransactionStatusInProgress),
		string(model.TransactionStatusConfirmed),
		string(model.TransactionStatusCanceled),
		string(model.TransactionStatusExpired),
	)
	c.Cmd.Flag("type", "Filter by type.").EnumVar(&c.typeOf,
		string(model.TransactionTypePlaceOrder),
		string(model.TransactionTypeReturnOrder),
		string(model.TransactionTypeMoneyTransfer),
	)
	c.Cmd.Flag("limit", "Maximum number of transactions.").Default("50").IntVar(&c.limit)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c TransactionListCommand) Name() string { return c.Cmd.FullCommand() }

func (c TransactionListCommand) Run(ctx context.Context) error {
	repos, err := c.rootCmd.openRepositories(ctx)
	if err != nil {
		return err
	}
	defer repos.Close()

	filter := model.TransactionFilter{
		TypeOf: model.TransactionType(c.typeOf),
		Limit:  c.limit,
	}
	for _, s := range c.statuses {
		filter.Statuses = append(filter.Statuses, model.TransactionStatus(s))
	}

	txs, err := repos.txs.ListTransactions(ctx, filter)
	if err != nil {
		return fmt.Errorf("could not list transactions: %w", err)
	}

	if err := c.rootCmd.printer(c.format).PrintTransactions(txs); err != nil {
		return fmt.Errorf("could not print transactions: %w", err)
	}

	return nil
}

type TransactionStatusCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	id     string
	format string
}

// NewTransactionStatusCommand returns the transaction status command.
func NewTransactionStatusCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TransactionStatusCommand {
	c := &TransactionStatusCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("status", "Get a transaction with its authorizations.")
	c.Cmd.Arg("id", "Transaction ID.").Required().StringVar(&c.id)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c TransactionStatusCommand) Name() string { return c.Cmd.FullCommand() }

func (c TransactionStatusCommand) Run(ctx context.Context) error {
	repos, err := c.rootCmd.openRepositories(ctx)
	if err != nil {
		return err
	}
	defer repos.Close()

	tx, err := repos.txs.GetTransaction(ctx, c.id)
	if err != nil {
		return fmt.Errorf("could not get transaction: %w", err)
	}

	actions, err := repos.txs.ListActionsByPurpose(ctx, tx.ID)
	if err != nil {
		return fmt.Errorf("could not list actions: %w", err)
	}

	if err := c.rootCmd.printer(c.format).PrintTransaction(*tx, actions); err != nil {
		return fmt.Errorf("could not print transaction: %w", err)
	}

	return nil
}

type TransactionCancelCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	id      string
	agentID string
}

// NewTransactionCancelCommand returns the transaction cancel command.
func NewTransactionCancelCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TransactionCancelCommand {
	c := &TransactionCancelCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("cancel", "Cancel an in progress transaction, its authorizations are released by the exported tasks.")
	c.Cmd.Arg("id", "Transaction ID.").Required().StringVar(&c.id)
	c.Cmd.Flag("agent", "Agent that owns the transaction.").Required().StringVar(&c.agentID)

	return c
}

func (c TransactionCancelCommand) Name() string { return c.Cmd.FullCommand() }

func (c TransactionCancelCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	repos, err := c.rootCmd.openRepositories(ctx)
	if err != nil {
		return err
	}
	defer repos.Close()

	l, err := ledger.NewLedger(ledger.LedgerConfig{Repository: repos.txs, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create ledger: %w", err)
	}

	svc, err := transaction.NewService(transaction.ServiceConfig{
		Transactions: repos.txs,
		Ledger:       l,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	if err := svc.Cancel(ctx, c.id, c.agentID); err != nil {
		return fmt.Errorf("could not cancel transaction: %w", err)
	}

	return c.rootCmd.printer("table").PrintMessage(fmt.Sprintf("Transaction %s canceled", c.id))
}

type TransactionExportCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	id     string
	create bool
	format string
}

// NewTransactionExportCommand returns the transaction export command.
func NewTransactionExportCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TransactionExportCommand {
	c := &TransactionExportCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("export", "Show the tasks of a finished transaction, optionally storing the missing ones.")
	c.Cmd.Arg("id", "Transaction ID.").Required().StringVar(&c.id)
	c.Cmd.Flag("create", "Store the tasks that don't exist yet.").BoolVar(&c.create)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c TransactionExportCommand) Name() string { return c.Cmd.FullCommand() }

func (c TransactionExportCommand) Run(ctx context.Context) error {
	repos, err := c.rootCmd.openRepositories(ctx)
	if err != nil {
		return err
	}
	defer repos.Close()

	svc, err := exporttasks.NewService(exporttasks.ServiceConfig{
		Transactions: repos.txs,
		Actions:      repos.txs,
		Tasks:        repos.tasks,
		Logger:       c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	specs, err := svc.ExportTasksByID(ctx, c.id)
	if err != nil {
		return fmt.Errorf("could not export tasks: %w", err)
	}

	p := c.rootCmd.printer(c.format)
	if err := p.PrintTaskSpecs(specs); err != nil {
		return fmt.Errorf("could not print tasks: %w", err)
	}

	if !c.create {
		return nil
	}

	res, err := svc.ReexportTasksByID(ctx, c.id)
	if err != nil {
		return fmt.Errorf("could not store tasks: %w", err)
	}

	c.rootCmd.Logger.Infof("%d of %d tasks created", res.Created, res.Tasks)
	return nil
}
