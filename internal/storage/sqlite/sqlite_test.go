package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/ordersaga/internal/log"
	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/storage"
	"github.com/slok/ordersaga/internal/storage/sqlite"
)

var t0 = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

func newRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Logger: log.Noop,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func txFixture(id string) model.Transaction {
	return model.Transaction{
		ID:                     id,
		ProjectID:              "project-1",
		TypeOf:                 model.TransactionTypePlaceOrder,
		Status:                 model.TransactionStatusInProgress,
		Agent:                  model.Party{ID: "agent-1", TypeOf: "Person"},
		Seller:                 model.Party{ID: "seller-1", Name: "Cinema"},
		StartDate:              t0,
		Expires:                t0.Add(5 * time.Minute),
		TasksExportationStatus: model.TasksExportationStatusUnexported,
	}
}

func actionFixture(id, txID string) model.Action {
	return model.Action{
		ID:      id,
		TypeOf:  model.ActionTypeAuthorize,
		Status:  model.ActionStatusActive,
		AgentID: "agent-1",
		Purpose: model.PurposeRef{TransactionID: txID, TypeOf: model.TransactionTypePlaceOrder},
		Object: model.AuthorizeObject{
			Payment: &model.PaymentAuthorization{
				Method: model.PaymentMethodCreditCard,
				Amount: decimal.NewFromInt(1800),
			},
		},
		StartDate: t0,
	}
}

func TestRepositoryTransactionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	tx := txFixture("tx-1")
	tx.IdempotencyKey = "idem-1"
	require.NoError(t, repo.CreateTransaction(ctx, tx))

	// Same idempotency key.
	dup := txFixture("tx-2")
	dup.IdempotencyKey = "idem-1"
	err := repo.CreateTransaction(ctx, dup)
	assert.ErrorIs(t, err, model.ErrAlreadyInUse)

	got, err := repo.GetTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, tx, *got)

	contact := model.Contact{GivenName: "Taro", Email: "taro@example.com", Telephone: "+819012345678"}
	require.NoError(t, repo.UpdateAgentContact(ctx, "tx-1", "agent-1", contact))
	err = repo.UpdateAgentContact(ctx, "tx-1", "agent-2", contact)
	assert.ErrorIs(t, err, model.ErrNotFound)

	got, err = repo.GetTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, contact, got.Agent.Contact)
	assert.Equal(t, "Person", got.Agent.TypeOf)

	req := storage.ConfirmTransactionRequest{
		ID:      "tx-1",
		AgentID: "agent-1",
		Result: model.TransactionResult{Order: model.Order{
			OrderNumber:   "ORD-1",
			Price:         decimal.NewFromInt(1800),
			PriceCurrency: model.DefaultPriceCurrency,
		}},
		PotentialActions: model.PotentialActions{
			SendEmailMessage: []model.EmailMessage{{To: "taro@example.com", Subject: "Order"}},
		},
		EndDate: t0.Add(time.Minute),
	}
	require.NoError(t, repo.ConfirmTransaction(ctx, req))
	err = repo.ConfirmTransaction(ctx, req)
	assert.ErrorIs(t, err, model.ErrNotFound)
	err = repo.CancelTransaction(ctx, "tx-1", t0.Add(2*time.Minute))
	assert.ErrorIs(t, err, model.ErrNotFound)

	got, err = repo.GetTransactionByOrderNumber(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusConfirmed, got.Status)
	require.NotNil(t, got.Result)
	assert.True(t, decimal.NewFromInt(1800).Equal(got.Result.Order.Price))
	require.NotNil(t, got.PotentialActions)
	assert.Len(t, got.PotentialActions.SendEmailMessage, 1)
	assert.Equal(t, t0.Add(time.Minute), *got.EndDate)

	_, err = repo.GetTransactionByOrderNumber(ctx, "ORD-2")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRepositoryConfirmOrderNumberUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	require.NoError(t, repo.CreateTransaction(ctx, txFixture("tx-1")))
	require.NoError(t, repo.CreateTransaction(ctx, txFixture("tx-2")))

	confirm := func(id string) error {
		return repo.ConfirmTransaction(ctx, storage.ConfirmTransactionRequest{
			ID:      id,
			AgentID: "agent-1",
			Result:  model.TransactionResult{Order: model.Order{OrderNumber: "ORD-1"}},
			EndDate: t0.Add(time.Minute),
		})
	}
	require.NoError(t, confirm("tx-1"))
	assert.ErrorIs(t, confirm("tx-2"), model.ErrAlreadyInUse)

	got, err := repo.GetTransaction(ctx, "tx-2")
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusInProgress, got.Status)
}

func TestRepositoryConcurrentReturnsOfSameOrder(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	returnTx := func(id string) model.Transaction {
		tx := txFixture(id)
		tx.TypeOf = model.TransactionTypeReturnOrder
		tx.Object.ReturnOrder = &model.ReturnOrderObject{OrderNumber: "order-1"}
		return tx
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created []string
		inUse   int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := repo.CreateTransaction(ctx, returnTx(id))

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created = append(created, id)
				return
			}
			assert.ErrorIs(t, err, model.ErrAlreadyInUse)
			inUse++
		}(fmt.Sprintf("tx-%d", i))
	}
	wg.Wait()

	require.Len(t, created, 1)
	assert.Equal(t, 7, inUse)

	// Other orders are not affected.
	other := returnTx("tx-other")
	other.Object.ReturnOrder = &model.ReturnOrderObject{OrderNumber: "order-2"}
	require.NoError(t, repo.CreateTransaction(ctx, other))

	// A canceled return frees the order.
	require.NoError(t, repo.CancelTransaction(ctx, created[0], t0))
	require.NoError(t, repo.CreateTransaction(ctx, returnTx("tx-again")))
}

func TestRepositoryExpireAndExport(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	old := txFixture("tx-old")
	fresh := txFixture("tx-fresh")
	fresh.StartDate = t0.Add(time.Minute)
	fresh.Expires = t0.Add(time.Hour)
	require.NoError(t, repo.CreateTransaction(ctx, old))
	require.NoError(t, repo.CreateTransaction(ctx, fresh))

	ids, err := repo.ExpireTransactions(ctx, t0.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{"tx-old"}, ids)

	// In progress ones are never claimed.
	claimed, err := repo.ClaimTransactionForExport(ctx, model.TerminalTransactionStatuses, t0)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, "tx-old", claimed.ID)
	assert.Equal(t, model.TransactionStatusExpired, claimed.Status)
	assert.Equal(t, model.TasksExportationStatusExporting, claimed.TasksExportationStatus)

	claimed, err = repo.ClaimTransactionForExport(ctx, model.TerminalTransactionStatuses, t0)
	require.NoError(t, err)
	assert.Nil(t, claimed)

	n, err := repo.ResetStuckExports(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	n, err = repo.ResetStuckExports(ctx, t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	claimed, err = repo.ClaimTransactionForExport(ctx, model.TerminalTransactionStatuses, t0.Add(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.NoError(t, repo.SetTasksExported(ctx, "tx-old", t0.Add(time.Minute)))
	assert.ErrorIs(t, repo.SetTasksExported(ctx, "tx-old", t0.Add(time.Minute)), model.ErrNotFound)

	got, err := repo.GetTransaction(ctx, "tx-old")
	require.NoError(t, err)
	assert.Equal(t, model.TasksExportationStatusExported, got.TasksExportationStatus)
	assert.Equal(t, t0.Add(time.Minute), *got.TasksExportedAt)

	list, err := repo.ListTransactions(ctx, model.TransactionFilter{Statuses: []model.TransactionStatus{model.TransactionStatusInProgress}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "tx-fresh", list[0].ID)

	list, err = repo.ListTransactions(ctx, model.TransactionFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "tx-fresh", list[0].ID)
}

func TestRepositoryActions(t *testing.T) {
	tests := map[string]struct {
		actions func(ctx context.Context, t *testing.T, repo *sqlite.Repository) error
		expErr  error
	}{
		"Creating an action on a missing transaction should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *sqlite.Repository) error {
				return repo.CreateAction(ctx, actionFixture("a-1", "tx-1"))
			},
			expErr: model.ErrNotFound,
		},

		"Creating an action on a canceled transaction should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *sqlite.Repository) error {
				require.NoError(t, repo.CreateTransaction(ctx, txFixture("tx-1")))
				require.NoError(t, repo.CancelTransaction(ctx, "tx-1", t0))
				return repo.CreateAction(ctx, actionFixture("a-1", "tx-1"))
			},
			expErr: model.ErrNotFound,
		},

		"Creating an action twice should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *sqlite.Repository) error {
				require.NoError(t, repo.CreateTransaction(ctx, txFixture("tx-1")))
				require.NoError(t, repo.CreateAction(ctx, actionFixture("a-1", "tx-1")))
				return repo.CreateAction(ctx, actionFixture("a-1", "tx-1"))
			},
			expErr: model.ErrAlreadyInUse,
		},

		"Completing and then voiding an action should store the result.": {
			actions: func(ctx context.Context, t *testing.T, repo *sqlite.Repository) error {
				require.NoError(t, repo.CreateTransaction(ctx, txFixture("tx-1")))
				require.NoError(t, repo.CreateAction(ctx, actionFixture("a-1", "tx-1")))

				result := &model.AuthorizeResult{Payment: &model.PaymentResult{
					PendingTransactionRef: "pay-1",
					Amount:                decimal.NewFromInt(1800),
					Status:                model.PaymentStatusDue,
				}}
				a, err := repo.TransitionAction(ctx, storage.TransitionActionRequest{
					ID:      "a-1",
					From:    []model.ActionStatus{model.ActionStatusActive},
					To:      model.ActionStatusCompleted,
					Result:  result,
					EndDate: t0.Add(time.Second),
				})
				require.NoError(t, err)
				assert.Equal(t, model.ActionStatusCompleted, a.Status)
				require.NotNil(t, a.Result)
				assert.Equal(t, "pay-1", a.Result.Payment.PendingTransactionRef)

				a, err = repo.TransitionAction(ctx, storage.TransitionActionRequest{
					ID:      "a-1",
					From:    []model.ActionStatus{model.ActionStatusActive, model.ActionStatusCompleted},
					To:      model.ActionStatusCanceled,
					EndDate: t0.Add(2 * time.Second),
				})
				require.NoError(t, err)
				assert.Equal(t, model.ActionStatusCanceled, a.Status)
				// Result is kept.
				require.NotNil(t, a.Result)
				assert.Equal(t, t0.Add(2*time.Second), *a.EndDate)

				actions, err := repo.ListActionsByPurpose(ctx, "tx-1")
				require.NoError(t, err)
				require.Len(t, actions, 1)
				assert.Equal(t, model.ActionStatusCanceled, actions[0].Status)
				assert.True(t, decimal.NewFromInt(1800).Equal(actions[0].Object.Payment.Amount))
				return nil
			},
		},

		"Transitioning a failed action should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *sqlite.Repository) error {
				require.NoError(t, repo.CreateTransaction(ctx, txFixture("tx-1")))
				require.NoError(t, repo.CreateAction(ctx, actionFixture("a-1", "tx-1")))
				a, err := repo.TransitionAction(ctx, storage.TransitionActionRequest{
					ID:    "a-1",
					From:  []model.ActionStatus{model.ActionStatusActive},
					To:    model.ActionStatusFailed,
					Error: &model.ErrorDetail{Name: model.ErrorNameAlreadyInUse, Message: "seat taken"},
				})
				require.NoError(t, err)
				require.NotNil(t, a.Error)
				assert.Equal(t, model.ErrorNameAlreadyInUse, a.Error.Name)

				_, err = repo.TransitionAction(ctx, storage.TransitionActionRequest{
					ID:   "a-1",
					From: []model.ActionStatus{model.ActionStatusActive, model.ActionStatusCompleted},
					To:   model.ActionStatusCanceled,
				})
				return err
			},
			expErr: model.ErrNotFound,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo := newRepo(t)

			err := test.actions(context.Background(), t, repo)
			if test.expErr != nil {
				assert.ErrorIs(t, err, test.expErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
