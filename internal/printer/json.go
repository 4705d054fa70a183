package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/ordersaga/internal/model"
)

// JSONPrinter prints transactions and tasks in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// transactionItem represents a transaction in the list output (subset of fields).
type transactionItem struct {
	ID           string    `json:"id"`
	TypeOf       string    `json:"type_of"`
	Status       string    `json:"status"`
	ExportStatus string    `json:"export_status"`
	AgentID      string    `json:"agent_id"`
	StartDate    time.Time `json:"start_date"`
	Expires      time.Time `json:"expires"`
}

// transactionOutput represents the full transaction output.
type transactionOutput struct {
	transactionItem
	ProjectID        string                  `json:"project_id"`
	SellerID         string                  `json:"seller_id"`
	EndDate          *time.Time              `json:"end_date"`
	TasksExportedAt  *time.Time              `json:"tasks_exported_at"`
	Object           model.TransactionObject `json:"object"`
	Order            *model.Order            `json:"order,omitempty"`
	PotentialActions *model.PotentialActions `json:"potential_actions,omitempty"`
	Actions          []actionOutput          `json:"actions"`
}

type actionOutput struct {
	ID        string                 `json:"id"`
	Status    string                 `json:"status"`
	Object    model.AuthorizeObject  `json:"object"`
	Result    *model.AuthorizeResult `json:"result,omitempty"`
	Error     *model.ErrorDetail     `json:"error,omitempty"`
	StartDate time.Time              `json:"start_date"`
	EndDate   *time.Time             `json:"end_date"`
}

type taskOutput struct {
	ID                     string             `json:"id"`
	Identifier             string             `json:"identifier"`
	Name                   string             `json:"name"`
	Status                 string             `json:"status"`
	RunsAt                 time.Time          `json:"runs_at"`
	NumberOfTried          int                `json:"number_of_tried"`
	RemainingNumberOfTries int                `json:"remaining_number_of_tries"`
	LastError              *model.ErrorDetail `json:"last_error,omitempty"`
	Data                   model.TaskData     `json:"data"`
}

type taskSpecOutput struct {
	Identifier             string         `json:"identifier"`
	Name                   string         `json:"name"`
	RemainingNumberOfTries int            `json:"remaining_number_of_tries"`
	Data                   model.TaskData `json:"data"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintTransactions prints transactions in JSON format with a subset of fields.
func (j *JSONPrinter) PrintTransactions(txs []model.Transaction) error {
	items := make([]transactionItem, len(txs))
	for i, tx := range txs {
		items[i] = newTransactionItem(tx)
	}
	return j.encode(items)
}

// PrintTransaction prints a detailed transaction with its actions in JSON format.
func (j *JSONPrinter) PrintTransaction(tx model.Transaction, actions []model.Action) error {
	output := transactionOutput{
		transactionItem:  newTransactionItem(tx),
		ProjectID:        tx.ProjectID,
		SellerID:         tx.Seller.ID,
		EndDate:          utcPtr(tx.EndDate),
		TasksExportedAt:  utcPtr(tx.TasksExportedAt),
		Object:           tx.Object,
		PotentialActions: tx.PotentialActions,
		Actions:          make([]actionOutput, len(actions)),
	}
	if tx.Result != nil {
		order := tx.Result.Order
		output.Order = &order
	}

	for i, a := range actions {
		output.Actions[i] = actionOutput{
			ID:        a.ID,
			Status:    string(a.Status),
			Object:    a.Object,
			Result:    a.Result,
			Error:     a.Error,
			StartDate: a.StartDate.UTC(),
			EndDate:   utcPtr(a.EndDate),
		}
	}

	return j.encode(output)
}

// PrintTasks prints tasks in JSON format.
func (j *JSONPrinter) PrintTasks(tasks []model.Task) error {
	items := make([]taskOutput, len(tasks))
	for i, t := range tasks {
		items[i] = taskOutput{
			ID:                     t.ID,
			Identifier:             t.Identifier,
			Name:                   string(t.Name),
			Status:                 string(t.Status),
			RunsAt:                 t.RunsAt.UTC(),
			NumberOfTried:          t.NumberOfTried,
			RemainingNumberOfTries: t.RemainingNumberOfTries,
			Data:                   t.Data,
		}
		if n := len(t.ExecutionResults); n > 0 {
			items[i].LastError = t.ExecutionResults[n-1].Error
		}
	}
	return j.encode(items)
}

// PrintTaskSpecs prints exported task specs in JSON format.
func (j *JSONPrinter) PrintTaskSpecs(specs []model.TaskSpec) error {
	items := make([]taskSpecOutput, len(specs))
	for i, s := range specs {
		items[i] = taskSpecOutput{
			Identifier:             s.Identifier,
			Name:                   string(s.Name),
			RemainingNumberOfTries: s.RemainingNumberOfTries,
			Data:                   s.Data,
		}
	}
	return j.encode(items)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTransactionItem(tx model.Transaction) transactionItem {
	return transactionItem{
		ID:           tx.ID,
		TypeOf:       string(tx.TypeOf),
		Status:       string(tx.Status),
		ExportStatus: string(tx.TasksExportationStatus),
		AgentID:      tx.Agent.ID,
		StartDate:    tx.StartDate.UTC(),
		Expires:      tx.Expires.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
