package printer

import "github.com/slok/ordersaga/internal/model"

// Printer knows how to print transactions and tasks in different formats.
type Printer interface {
	PrintTransactions(txs []model.Transaction) error
	PrintTransaction(tx model.Transaction, actions []model.Action) error
	PrintTasks(tasks []model.Task) error
	PrintTaskSpecs(specs []model.TaskSpec) error
	PrintMessage(msg string) error
}
