package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/slok/ordersaga/internal/model"
)

// TablePrinter prints transactions and tasks in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintTransactions prints transactions in a table format.
func (t *TablePrinter) PrintTransactions(txs []model.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tEXPORT\tAGENT\tSTARTED\tEXPIRES")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.ID,
			tx.TypeOf,
			tx.Status,
			tx.TasksExportationStatus,
			tx.Agent.ID,
			TimeAgo(tx.StartDate),
			TimeAgo(tx.Expires),
		)
	}

	return nil
}

// PrintTransaction prints a detailed transaction with its actions.
func (t *TablePrinter) PrintTransaction(tx model.Transaction, actions []model.Action) error {
	fmt.Fprintf(t.writer, "ID:         %s\n", tx.ID)
	fmt.Fprintf(t.writer, "Project:    %s\n", tx.ProjectID)
	fmt.Fprintf(t.writer, "Type:       %s\n", tx.TypeOf)
	fmt.Fprintf(t.writer, "Status:     %s\n", tx.Status)
	fmt.Fprintf(t.writer, "Export:     %s\n", tx.TasksExportationStatus)
	fmt.Fprintf(t.writer, "Agent:      %s\n", tx.Agent.ID)
	fmt.Fprintf(t.writer, "Seller:     %s\n", tx.Seller.ID)
	fmt.Fprintf(t.writer, "Started:    %s\n", FormatTimestamp(tx.StartDate))
	fmt.Fprintf(t.writer, "Expires:    %s\n", FormatTimestamp(tx.Expires))
	fmt.Fprintf(t.writer, "Ended:      %s\n", formatOptionalTimestamp(tx.EndDate))
	fmt.Fprintf(t.writer, "Exported:   %s\n", formatOptionalTimestamp(tx.TasksExportedAt))

	if tx.Result != nil {
		o := tx.Result.Order
		fmt.Fprintf(t.writer, "\nOrder:      %s\n", o.OrderNumber)
		if o.ConfirmationNumber != "" {
			fmt.Fprintf(t.writer, "Returns:    %s\n", o.ConfirmationNumber)
		}
		fmt.Fprintf(t.writer, "Price:      %s\n", FormatPrice(o.Price, o.PriceCurrency))
		fmt.Fprintf(t.writer, "Offers:     %d\n", len(o.AcceptedOffers))
		fmt.Fprintf(t.writer, "Payments:   %d\n", len(o.PaymentMethods))
	}

	if len(actions) == 0 {
		return nil
	}

	fmt.Fprintln(t.writer)
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ACTION\tSTATUS\tOBJECT\tAMOUNT\tERROR")
	for _, a := range actions {
		object, amount := actionSummary(a)
		errName := "-"
		if a.Error != nil {
			errName = a.Error.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Status, object, amount, errName)
	}

	return nil
}

// PrintTasks prints tasks in a table format.
func (t *TablePrinter) PrintTasks(tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tTRIED\tREMAINING\tRUNS AT")
	for _, task := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			task.ID,
			task.Name,
			task.Status,
			task.NumberOfTried,
			task.RemainingNumberOfTries,
			TimeAgo(task.RunsAt),
		)
	}

	return nil
}

// PrintTaskSpecs prints exported task specs in a table format.
func (t *TablePrinter) PrintTaskSpecs(specs []model.TaskSpec) error {
	if len(specs) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "IDENTIFIER\tNAME\tTRIES")
	for _, s := range specs {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", s.Identifier, s.Name, s.RemainingNumberOfTries)
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

func actionSummary(a model.Action) (object, amount string) {
	switch {
	case a.Object.Offer != nil:
		o := a.Object.Offer
		object = fmt.Sprintf("%s/%s", o.OfferType, o.OfferID)
		price := o.UnitPrice.Mul(decimal.NewFromInt(int64(o.Quantity)))
		if a.Result != nil && a.Result.Reservation != nil {
			price = a.Result.Reservation.Price
		}
		return object, FormatPrice(price, model.DefaultPriceCurrency)
	case a.Object.Payment != nil:
		p := a.Object.Payment
		return string(p.Method), FormatPrice(p.Amount, model.DefaultPriceCurrency)
	}
	return "-", "-"
}
