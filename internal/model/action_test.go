package model_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/slok/ordersaga/internal/model"
)

func TestActionStatusCanTransitionTo(t *testing.T) {
	all := []model.ActionStatus{
		model.ActionStatusActive,
		model.ActionStatusCompleted,
		model.ActionStatusCanceled,
		model.ActionStatusFailed,
	}

	allowed := map[model.ActionStatus][]model.ActionStatus{
		model.ActionStatusActive:    {model.ActionStatusCompleted, model.ActionStatusFailed, model.ActionStatusCanceled},
		model.ActionStatusCompleted: {model.ActionStatusCanceled},
	}

	for _, from := range all {
		for _, to := range all {
			exp := false
			for _, a := range allowed[from] {
				if a == to {
					exp = true
				}
			}
			assert.Equal(t, exp, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestActionStatusSourcesOf(t *testing.T) {
	tests := map[string]struct {
		to      model.ActionStatus
		expFrom []model.ActionStatus
	}{
		"Completing should only be possible from active.": {
			to:      model.ActionStatusCompleted,
			expFrom: []model.ActionStatus{model.ActionStatusActive},
		},
		"Giving up should only be possible from active.": {
			to:      model.ActionStatusFailed,
			expFrom: []model.ActionStatus{model.ActionStatusActive},
		},
		"Canceling should be possible from active and completed.": {
			to:      model.ActionStatusCanceled,
			expFrom: []model.ActionStatus{model.ActionStatusActive, model.ActionStatusCompleted},
		},
		"Nothing goes back to active.": {
			to: model.ActionStatusActive,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expFrom, test.to.SourcesOf())
		})
	}
}

func TestAuthorizeObjectValidate(t *testing.T) {
	offer := &model.OfferAuthorization{
		OfferID:   "offer-1",
		OfferType: model.OfferTypeEventReservation,
		Quantity:  2,
		UnitPrice: decimal.NewFromInt(500),
	}
	payment := &model.PaymentAuthorization{
		Method: model.PaymentMethodCreditCard,
		Amount: decimal.NewFromInt(1000),
	}

	tests := map[string]struct {
		obj    model.AuthorizeObject
		expErr error
	}{
		"An offer should be valid.": {
			obj: model.AuthorizeObject{Offer: offer},
		},
		"A payment should be valid.": {
			obj: model.AuthorizeObject{Payment: payment},
		},
		"An empty object should fail.": {
			obj:    model.AuthorizeObject{},
			expErr: model.ErrArgumentNull,
		},
		"Both variants at once should fail.": {
			obj:    model.AuthorizeObject{Offer: offer, Payment: payment},
			expErr: model.ErrArgument,
		},
		"An offer without quantity should fail.": {
			obj: model.AuthorizeObject{Offer: &model.OfferAuthorization{
				OfferID:   "offer-1",
				OfferType: model.OfferTypeProduct,
			}},
			expErr: model.ErrArgument,
		},
		"An unknown offer type should fail.": {
			obj: model.AuthorizeObject{Offer: &model.OfferAuthorization{
				OfferID:   "offer-1",
				OfferType: "Bundle",
				Quantity:  1,
			}},
			expErr: model.ErrArgument,
		},
		"An unknown payment method should fail.": {
			obj: model.AuthorizeObject{Payment: &model.PaymentAuthorization{
				Method: "Cash",
				Amount: decimal.NewFromInt(10),
			}},
			expErr: model.ErrArgument,
		},
		"A zero amount payment should fail.": {
			obj: model.AuthorizeObject{Payment: &model.PaymentAuthorization{
				Method: model.PaymentMethodAccount,
				Amount: decimal.Zero,
			}},
			expErr: model.ErrArgument,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			err := test.obj.Validate()
			if test.expErr != nil {
				assert.ErrorIs(t, err, test.expErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOfferAuthorizationPrice(t *testing.T) {
	o := model.OfferAuthorization{Quantity: 3, UnitPrice: decimal.RequireFromString("333.5")}
	assert.True(t, decimal.RequireFromString("1000.5").Equal(o.Price()))
}
