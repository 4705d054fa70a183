// Package lib provides a Go SDK to run the order saga in-process.
//
// A [Client] stores transactions, authorizations and tasks on a SQLite database
// and drives the providers given on its [Config]. Applications can place, return
// and transfer orders without running the ordersaga worker binary.
//
// # Quick Start
//
// Create a client, place an order and run its follow-up tasks:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	tx, _ := client.StartTransaction(ctx, lib.StartTransactionOpts{
//	    ProjectID: "cinerino",
//	    TypeOf:    lib.TransactionTypePlaceOrder,
//	    Agent:     lib.Party{ID: "customer-1"},
//	    Seller:    lib.Party{ID: "theater-1"},
//	    Expires:   time.Now().Add(15 * time.Minute),
//	})
//
//	client.Authorize(ctx, lib.AuthorizeOpts{TransactionID: tx.ID, AgentID: "customer-1", Object: ...})
//	client.ConfirmTransaction(ctx, lib.ConfirmOpts{TransactionID: tx.ID, AgentID: "customer-1", Price: price})
//
//	// Export the tasks of the confirmed transaction and execute them.
//	client.ExportPendingTasks(ctx)
//	client.RunDueTasks(ctx)
//
// # Providers
//
// The inventory, payment, notification and membership providers are set with
// [Config].Providers. When unset, in-memory fakes are used (see [FakeProviders]).
// Every provider call runs through a circuit breaker, a rate limiter and a
// per call timeout.
//
// # Background processing
//
// [Client.RunWorker] exports tasks of finished transactions and executes them
// until the context is done. Several processes can share the same database.
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: Resource does not exist or is not in the required status.
//   - [ErrForbidden]: The agent does not own the transaction.
//   - [ErrArgument] and [ErrArgumentNull]: Invalid or missing input.
//   - [ErrAlreadyInUse]: The offer or order is already taken.
//   - [ErrRateLimitExceeded], [ErrServiceUnavailable] and [ErrProvider]: Provider failures.
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines.
package lib
