package lib_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/ordersaga/pkg/lib"
)

// newTestClient creates a client with a temp SQLite DB for test isolation.
func newTestClient(t *testing.T, cfg lib.Config) *lib.Client {
	t.Helper()

	cfg.DBPath = filepath.Join(t.TempDir(), "test.db")
	client, err := lib.New(context.Background(), cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

func startPlaceOrder(t *testing.T, client *lib.Client) *lib.Transaction {
	t.Helper()

	tx, err := client.StartTransaction(context.Background(), lib.StartTransactionOpts{
		ProjectID: "cinerino",
		TypeOf:    lib.TransactionTypePlaceOrder,
		Agent:     lib.Party{ID: "customer-1", Contact: lib.Contact{Email: "customer@example.com"}},
		Seller:    lib.Party{ID: "theater-1"},
		Expires:   time.Now().Add(15 * time.Minute),
	})
	require.NoError(t, err)
	return tx
}

func seat(id string) lib.AuthorizeObject {
	return lib.AuthorizeObject{Offer: &lib.OfferAuthorization{
		OfferID:   "ticket-" + id,
		OfferType: lib.OfferTypeEventReservation,
		EventID:   "screening-1",
		SeatID:    id,
		Quantity:  1,
		UnitPrice: decimal.NewFromInt(1800),
	}}
}

func creditCard(amount int64) lib.AuthorizeObject {
	return lib.AuthorizeObject{Payment: &lib.PaymentAuthorization{
		Method: lib.PaymentMethodCreditCard,
		Amount: decimal.NewFromInt(amount),
	}}
}

func TestNew(t *testing.T) {
	tests := map[string]struct {
		cfg    lib.Config
		expErr bool
	}{
		"Default config should use fake providers.": {},

		"Providers without a payment provider should fail.": {
			cfg: lib.Config{Providers: &lib.Providers{
				Inventory: lib.FakeProviders(decimal.Zero, nil).Inventory,
			}},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := test.cfg
			cfg.DBPath = filepath.Join(t.TempDir(), "test.db")

			client, err := lib.New(context.Background(), cfg)
			if test.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, client.Close())
		})
	}
}

func TestPlaceOrder(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()
	client := newTestClient(t, lib.Config{})

	tx := startPlaceOrder(t, client)

	_, err := client.Authorize(ctx, lib.AuthorizeOpts{TransactionID: tx.ID, AgentID: "customer-1", Object: seat("A-1")})
	require.NoError(err)
	_, err = client.Authorize(ctx, lib.AuthorizeOpts{TransactionID: tx.ID, AgentID: "customer-1", Object: creditCard(1800)})
	require.NoError(err)

	order, err := client.ConfirmTransaction(ctx, lib.ConfirmOpts{
		TransactionID: tx.ID,
		AgentID:       "customer-1",
		Price:         decimal.NewFromInt(1800),
		Email:         &lib.EmailOpts{Subject: "Your tickets", Text: "Enjoy the movie"},
	})
	require.NoError(err)
	assert.True(decimal.NewFromInt(1800).Equal(order.Price))

	// Tasks are exported once.
	n, err := client.ExportPendingTasks(ctx)
	require.NoError(err)
	assert.Equal(1, n)
	n, err = client.ExportPendingTasks(ctx)
	require.NoError(err)
	assert.Equal(0, n)

	executed, err := client.RunDueTasks(ctx)
	require.NoError(err)
	assert.Equal(3, executed)

	tasks, err := client.ListTasks(ctx, lib.TaskFilter{TransactionID: tx.ID})
	require.NoError(err)
	require.Len(tasks, 3)
	names := []lib.TaskName{}
	for _, task := range tasks {
		assert.Equal(lib.TaskStatusExecuted, task.Status)
		names = append(names, task.Name)
	}
	assert.ElementsMatch([]lib.TaskName{"payCreditCard", "confirmReservation", "sendEmailMessage"}, names)

	got, err := client.GetTransaction(ctx, tx.ID)
	require.NoError(err)
	assert.Equal(lib.TransactionStatusConfirmed, got.Status)
	assert.Equal(lib.TasksExportationStatus("Exported"), got.TasksExportationStatus)
}

func TestSeatConflictGivesUp(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()
	client := newTestClient(t, lib.Config{})

	tx1 := startPlaceOrder(t, client)
	tx2 := startPlaceOrder(t, client)

	_, err := client.Authorize(ctx, lib.AuthorizeOpts{TransactionID: tx1.ID, AgentID: "customer-1", Object: seat("B-2")})
	require.NoError(err)

	_, err = client.Authorize(ctx, lib.AuthorizeOpts{TransactionID: tx2.ID, AgentID: "customer-1", Object: seat("B-2")})
	assert.ErrorIs(err, lib.ErrAlreadyInUse)

	actions, err := client.ListActions(ctx, tx2.ID)
	require.NoError(err)
	require.Len(actions, 1)
	assert.Equal(lib.ActionStatusFailed, actions[0].Status)
	require.NotNil(actions[0].Error)
	assert.Equal("AlreadyInUse", actions[0].Error.Name)
}

func TestCancelCompensates(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()
	client := newTestClient(t, lib.Config{})

	tx := startPlaceOrder(t, client)
	_, err := client.Authorize(ctx, lib.AuthorizeOpts{TransactionID: tx.ID, AgentID: "customer-1", Object: seat("C-3")})
	require.NoError(err)
	_, err = client.Authorize(ctx, lib.AuthorizeOpts{TransactionID: tx.ID, AgentID: "customer-1", Object: creditCard(1800)})
	require.NoError(err)

	// Another agent can't cancel it.
	err = client.CancelTransaction(ctx, tx.ID, "customer-2")
	assert.ErrorIs(err, lib.ErrForbidden)

	require.NoError(client.CancelTransaction(ctx, tx.ID, "customer-1"))
	err = client.CancelTransaction(ctx, tx.ID, "customer-1")
	assert.ErrorIs(err, lib.ErrNotFound)

	specs, err := client.PreviewTasks(ctx, tx.ID)
	require.NoError(err)
	require.Len(specs, 2)

	_, err = client.ExportPendingTasks(ctx)
	require.NoError(err)
	executed, err := client.RunDueTasks(ctx)
	require.NoError(err)
	assert.Equal(2, executed)

	// The seat is free again.
	tx2 := startPlaceOrder(t, client)
	_, err = client.Authorize(ctx, lib.AuthorizeOpts{TransactionID: tx2.ID, AgentID: "customer-1", Object: seat("C-3")})
	assert.NoError(err)
}

func TestUpdateAgentNormalizesPhone(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, lib.Config{})
	tx := startPlaceOrder(t, client)

	contact, err := client.UpdateAgent(ctx, lib.UpdateAgentOpts{
		TransactionID: tx.ID,
		AgentID:       "customer-1",
		Contact:       lib.Contact{GivenName: "Taro", Email: "taro@example.com", Telephone: "090-1234-5678"},
	})
	require.NoError(t, err)
	assert.Equal(t, "+819012345678", contact.Telephone)

	_, err = client.UpdateAgent(ctx, lib.UpdateAgentOpts{TransactionID: tx.ID, AgentID: "customer-2"})
	assert.ErrorIs(t, err, lib.ErrForbidden)
}

func TestRunWorker(t *testing.T) {
	require := require.New(t)
	client := newTestClient(t, lib.Config{TaskConcurrency: 2})
	ctx := context.Background()

	tx := startPlaceOrder(t, client)
	_, err := client.Authorize(ctx, lib.AuthorizeOpts{TransactionID: tx.ID, AgentID: "customer-1", Object: seat("D-4")})
	require.NoError(err)
	require.NoError(client.CancelTransaction(ctx, tx.ID, "customer-1"))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- client.RunWorker(runCtx) }()

	require.Eventually(func() bool {
		tasks, err := client.ListTasks(ctx, lib.TaskFilter{TransactionID: tx.ID, Statuses: []lib.TaskStatus{lib.TaskStatusExecuted}})
		return err == nil && len(tasks) == 1
	}, 10*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(err)
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not stop")
	}
}
