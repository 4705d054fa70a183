package reliable_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/provider"
	"github.com/slok/ordersaga/internal/provider/fake"
	"github.com/slok/ordersaga/internal/provider/reliable"
)

func TestNewCaller(t *testing.T) {
	tests := map[string]struct {
		cfg    reliable.CallerConfig
		expErr bool
	}{
		"A named caller should be created with defaults.": {
			cfg: reliable.CallerConfig{Name: "inventory"},
		},

		"A caller without name should fail.": {
			cfg:    reliable.CallerConfig{},
			expErr: true,
		},

		"A negative rate should fail.": {
			cfg:    reliable.CallerConfig{Name: "inventory", RequestsPerSecond: -1},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			c, err := reliable.NewCaller(test.cfg)
			if test.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, gobreaker.StateClosed, c.State())
		})
	}
}

func TestCallerBreaker(t *testing.T) {
	tests := map[string]struct {
		err        error
		expState   gobreaker.State
		expLastErr error
	}{
		"Unavailable failures should open the breaker.": {
			err:        errors.New("connection refused"),
			expState:   gobreaker.StateOpen,
			expLastErr: model.ErrServiceUnavailable,
		},

		"Conflicts should not open the breaker.": {
			err:        &provider.Error{Kind: provider.KindConflict},
			expState:   gobreaker.StateClosed,
			expLastErr: model.ErrAlreadyInUse,
		},

		"Validation errors should not open the breaker.": {
			err:        &provider.Error{Kind: provider.KindValidation},
			expState:   gobreaker.StateClosed,
			expLastErr: model.ErrArgument,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			c, err := reliable.NewCaller(reliable.CallerConfig{
				Name:               "payment",
				BreakerMaxFailures: 2,
				BreakerOpenTimeout: time.Hour,
			})
			require.NoError(t, err)

			var lastErr error
			for i := 0; i < 3; i++ {
				_, lastErr = reliable.Do(context.Background(), c, func(ctx context.Context) (int, error) {
					return 0, test.err
				})
			}

			assert.Equal(t, test.expState, c.State())
			assert.ErrorIs(t, provider.Classify(lastErr), test.expLastErr)
		})
	}
}

func TestCallerTimeout(t *testing.T) {
	c, err := reliable.NewCaller(reliable.CallerConfig{Name: "slow", Timeout: 10 * time.Millisecond})
	require.NoError(t, err)

	_, err = reliable.Do(context.Background(), c, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, provider.Classify(err), model.ErrServiceUnavailable)
}

func TestCallerRateLimit(t *testing.T) {
	c, err := reliable.NewCaller(reliable.CallerConfig{
		Name:              "limited",
		Timeout:           50 * time.Millisecond,
		RequestsPerSecond: 0.001,
		Burst:             1,
	})
	require.NoError(t, err)

	call := func() error {
		_, err := reliable.Do(context.Background(), c, func(ctx context.Context) (bool, error) { return true, nil })
		return err
	}
	require.NoError(t, call())
	assert.ErrorIs(t, provider.Classify(call()), model.ErrRateLimitExceeded)
}

func TestWrappedProviders(t *testing.T) {
	ctx := context.Background()
	c, err := reliable.NewCaller(reliable.CallerConfig{Name: "fake"})
	require.NoError(t, err)

	inv := reliable.NewInventory(fake.NewInventory(), c)
	res, err := inv.Reserve(ctx, model.OfferAuthorization{
		OfferID:   "offer-1",
		OfferType: model.OfferTypeProduct,
		Quantity:  2,
		UnitPrice: decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(res.Price))
	require.NoError(t, inv.Confirm(ctx, res.ReservationRef))

	pay := reliable.NewPayment(fake.NewPayment(decimal.Zero), c)
	pres, err := pay.Authorize(ctx, model.PaymentAuthorization{Method: model.PaymentMethodAccount, Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)
	require.NoError(t, pay.Settle(ctx, pres.PendingTransactionRef, decimal.NewFromInt(10)))
	require.NoError(t, pay.Refund(ctx, pres.PendingTransactionRef, decimal.NewFromInt(10)))

	n := reliable.NewNotifier(fake.NewNotifier(nil), c)
	require.NoError(t, n.Send(ctx, model.EmailMessage{To: "a@example.com"}))

	m := reliable.NewMembership(fake.NewMembership(), c)
	require.NoError(t, m.Register(ctx, "c-1", "gold"))
	require.NoError(t, m.Unregister(ctx, "c-1", "gold"))
}
