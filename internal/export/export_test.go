package export_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/ordersaga/internal/export"
	"github.com/slok/ordersaga/internal/model"
)

func completedSeat(id string) model.Action {
	return model.Action{
		ID:     id,
		Status: model.ActionStatusCompleted,
		Object: model.AuthorizeObject{Offer: &model.OfferAuthorization{OfferID: "offer-" + id, OfferType: model.OfferTypeEventReservation, Quantity: 1}},
		Result: &model.AuthorizeResult{Reservation: &model.ReservationResult{ReservationRef: "res-" + id}},
	}
}

func completedPayment(id string, method model.PaymentMethod) model.Action {
	return model.Action{
		ID:     id,
		Status: model.ActionStatusCompleted,
		Object: model.AuthorizeObject{Payment: &model.PaymentAuthorization{Method: method, Amount: decimal.NewFromInt(1000)}},
		Result: &model.AuthorizeResult{Payment: &model.PaymentResult{PendingTransactionRef: "pay-" + id, Amount: decimal.NewFromInt(1000)}},
	}
}

func TestTasks(t *testing.T) {
	tests := map[string]struct {
		tx       model.Transaction
		actions  []model.Action
		expNames []model.TaskName
		expIDs   []string
		expErr   error
	}{
		"A confirmed place order should settle, deliver, register and notify.": {
			tx: model.Transaction{
				ID:     "tx-1",
				Status: model.TransactionStatusConfirmed,
				Result: &model.TransactionResult{Order: model.Order{OrderNumber: "ORD-1"}},
				PotentialActions: &model.PotentialActions{
					Pay:              []model.PayAction{{ActionID: "a3", Method: model.PaymentMethodCreditCard, PendingTransactionRef: "pay-a3"}},
					SendOrder:        []model.SendOrderAction{{ActionID: "a1", ReservationRef: "res-a1"}},
					RegisterService:  []model.ServiceAction{{ActionID: "a2", OfferID: "gold", CustomerID: "agent-1"}},
					SendEmailMessage: []model.EmailMessage{{To: "agent@example.com"}},
				},
			},
			expNames: []model.TaskName{
				model.TaskNamePayCreditCard,
				model.TaskNameConfirmReservation,
				model.TaskNameRegisterService,
				model.TaskNameSendEmailMessage,
			},
			expIDs: []string{
				"tx-1:payCreditCard:a3",
				"tx-1:confirmReservation:a1",
				"tx-1:registerService:a2",
				"tx-1:sendEmailMessage:0",
			},
		},

		"A confirmed return order should refund, cancel reservations and unregister.": {
			tx: model.Transaction{
				ID:     "tx-2",
				Status: model.TransactionStatusConfirmed,
				Result: &model.TransactionResult{Order: model.Order{OrderNumber: "ORD-2"}},
				PotentialActions: &model.PotentialActions{
					Refund:            []model.PayAction{{ActionID: "a3", Method: model.PaymentMethodMovieTicket}},
					CancelReservation: []model.SendOrderAction{{ActionID: "a1", ReservationRef: "res-a1"}},
					UnRegisterService: []model.ServiceAction{{ActionID: "a2", OfferID: "gold"}},
				},
			},
			expNames: []model.TaskName{
				model.TaskNameRefundMovieTicket,
				model.TaskNameCancelReservation,
				model.TaskNameUnRegisterService,
			},
			expIDs: []string{
				"tx-2:refundMovieTicket:a3",
				"tx-2:cancelReservation:a1",
				"tx-2:unRegisterService:a2",
			},
		},

		"A confirmed money transfer should transfer.": {
			tx: model.Transaction{
				ID:     "tx-3",
				Status: model.TransactionStatusConfirmed,
				PotentialActions: &model.PotentialActions{
					MoneyTransfer: []model.MoneyTransferAction{{ActionID: "a1", ToAccountID: "acc-2"}},
				},
			},
			expNames: []model.TaskName{model.TaskNameMoneyTransfer},
			expIDs:   []string{"tx-3:moneyTransfer:a1"},
		},

		"A canceled transaction should compensate only completed actions.": {
			tx: model.Transaction{ID: "tx-4", Status: model.TransactionStatusCanceled},
			actions: []model.Action{
				completedSeat("a1"),
				{ID: "a2", Status: model.ActionStatusFailed, Object: model.AuthorizeObject{Offer: &model.OfferAuthorization{}}},
				completedPayment("a3", model.PaymentMethodAccount),
				{ID: "a4", Status: model.ActionStatusCanceled, Object: completedSeat("a4").Object, Result: completedSeat("a4").Result},
			},
			expNames: []model.TaskName{model.TaskNameCancelReservation, model.TaskNameVoidAccount},
			expIDs:   []string{"tx-4:cancelReservation:a1", "tx-4:voidAccount:a3"},
		},

		"An expired transaction without completed actions should have no tasks.": {
			tx:      model.Transaction{ID: "tx-5", Status: model.TransactionStatusExpired},
			actions: []model.Action{{ID: "a1", Status: model.ActionStatusActive}},
		},

		"An in progress transaction should fail.": {
			tx:     model.Transaction{ID: "tx-6", Status: model.TransactionStatusInProgress},
			expErr: model.ErrArgument,
		},

		"A confirmed transaction without potential actions should fail.": {
			tx:     model.Transaction{ID: "tx-7", Status: model.TransactionStatusConfirmed},
			expErr: model.ErrArgument,
		},

		"An unknown payment method should fail.": {
			tx: model.Transaction{
				ID:               "tx-8",
				Status:           model.TransactionStatusConfirmed,
				PotentialActions: &model.PotentialActions{Pay: []model.PayAction{{ActionID: "a1", Method: "Cash"}}},
			},
			expErr: model.ErrArgument,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			specs, err := export.Tasks(test.tx, test.actions)
			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				return
			}
			require.NoError(t, err)

			var gotNames []model.TaskName
			var gotIDs []string
			for _, s := range specs {
				gotNames = append(gotNames, s.Name)
				gotIDs = append(gotIDs, s.Identifier)
				assert.Equal(test.tx.ID, s.Data.TransactionID)
				assert.Equal(export.DefaultRetries[s.Name], s.RemainingNumberOfTries)
			}
			assert.Equal(test.expNames, gotNames)
			assert.Equal(test.expIDs, gotIDs)
		})
	}
}

func TestTasksCarryOrderData(t *testing.T) {
	tx := model.Transaction{
		ID:     "tx-1",
		Status: model.TransactionStatusConfirmed,
		Result: &model.TransactionResult{Order: model.Order{OrderNumber: "ORD-1"}},
		PotentialActions: &model.PotentialActions{
			Pay: []model.PayAction{{ActionID: "a1", Method: model.PaymentMethodAccount, PendingTransactionRef: "pay-1", Amount: decimal.NewFromInt(700)}},
		},
	}

	specs, err := export.Tasks(tx, nil)
	require.NoError(t, err)
	require.Len(t, specs, 1)

	exp := model.TaskData{
		TransactionID:         "tx-1",
		ActionID:              "a1",
		PaymentMethod:         model.PaymentMethodAccount,
		PendingTransactionRef: "pay-1",
		Amount:                decimal.NewFromInt(700),
		OrderNumber:           "ORD-1",
	}
	assert.Equal(t, exp, specs[0].Data)
}

func TestTaskTablesCoverEveryPaymentMethod(t *testing.T) {
	for _, m := range model.AllPaymentMethods {
		for name, table := range map[string]map[model.PaymentMethod]model.TaskName{
			"pay":    export.PayTaskNames,
			"void":   export.VoidTaskNames,
			"refund": export.RefundTaskNames,
		} {
			task, ok := table[m]
			if assert.True(t, ok, "%s task for %s", name, m) {
				assert.Positive(t, export.DefaultRetries[task], "retries of %s", task)
			}
		}
	}
}
