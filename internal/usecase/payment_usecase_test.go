package usecase

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"
	"github.com/FeruzyNtillah/my-e-commerce/internal/metrics"
	"github.com/FeruzyNtillah/my-e-commerce/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayWithMobileMarksOrderPaid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, OrderOptions{})
	buyer := f.seedUser(t, "asha", domain.RoleUser)
	p := f.seedProduct(t, "Radio", 25, 3)
	order, err := f.order.CreateOrder(ctx, buyer, orderInput(domain.PaymentMobileMoney, line(p, 1)))
	require.NoError(t, err)

	_, err = f.payments.PayWithMobile(ctx, buyer, order.ID, "mpesa", "0712 345 678")
	assert.ErrorIs(t, err, domain.ErrValidation)

	res, err := f.payments.PayWithMobile(ctx, buyer, order.ID, "mpesa", "0712345678")
	require.NoError(t, err)
	assert.True(t, res.Order.IsPaid)
	assert.True(t, strings.HasPrefix(res.Receipt.TransactionID, "MPE"))
	require.NotNil(t, res.Order.PaymentResult)
	assert.Equal(t, "COMPLETED", res.Order.PaymentResult.Status)
	assert.Equal(t, "asha@shop.test", res.Order.PaymentResult.EmailAddress)
	assert.Equal(t, "+255712345678", res.Order.PaymentResult.PhoneNumber)
	assert.Equal(t, "mpesa", res.Order.PaymentResult.Provider)

	_, err = f.payments.PayWithMobile(ctx, buyer, order.ID, "mpesa", "0712345678")
	assert.ErrorIs(t, err, domain.ErrAlreadyPaid)
}

func TestPayWithMobileDeclinedLeavesOrderUnpaid(t *testing.T) {
	ctx := context.Background()
	declining := payment.NewSimulator(0, 0.9, payment.WithRandom(fixedRandom{f: 0.99}))
	f := newFixture(t, declining, OrderOptions{})
	buyer := f.seedUser(t, "asha", domain.RoleUser)
	p := f.seedProduct(t, "Radio", 25, 3)
	order, err := f.order.CreateOrder(ctx, buyer, orderInput(domain.PaymentMobileBanking, line(p, 1)))
	require.NoError(t, err)

	_, err = f.payments.PayWithMobile(ctx, buyer, order.ID, "crdb", "+255612345678")
	assert.ErrorIs(t, err, domain.ErrPayment)
	assert.ErrorIs(t, err, payment.ErrInsufficientBalance)

	stored, err := f.orders.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsPaid)
	assert.Nil(t, stored.PaymentResult)
}

func TestPayWithMobileChecksBeforeCharging(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, OrderOptions{})
	buyer := f.seedUser(t, "asha", domain.RoleUser)
	other := f.seedUser(t, "juma", domain.RoleUser)
	p := f.seedProduct(t, "Radio", 25, 10)
	mobile, err := f.order.CreateOrder(ctx, buyer, orderInput(domain.PaymentMobileMoney, line(p, 1)))
	require.NoError(t, err)
	card, err := f.order.CreateOrder(ctx, buyer, orderInput(domain.PaymentCreditCard, line(p, 1)))
	require.NoError(t, err)

	_, err = f.payments.PayWithMobile(ctx, other, mobile.ID, "mpesa", "0712345678")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.payments.PayWithMobile(ctx, buyer, "missing", "mpesa", "0712345678")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.payments.PayWithMobile(ctx, buyer, mobile.ID, "visa", "0712345678")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.payments.PayWithMobile(ctx, buyer, mobile.ID, "nmb", "0712345678")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.payments.PayWithMobile(ctx, buyer, card.ID, "mpesa", "0712345678")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPayWithMobileTimesOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, OrderOptions{})
	f.payments = NewPaymentUseCase(f.order, f.users, payment.NewSimulator(time.Hour, 1), 10*time.Millisecond, metrics.Noop(), quietLogger())
	buyer := f.seedUser(t, "asha", domain.RoleUser)
	p := f.seedProduct(t, "Radio", 25, 3)
	order, err := f.order.CreateOrder(ctx, buyer, orderInput(domain.PaymentMobileMoney, line(p, 1)))
	require.NoError(t, err)

	_, err = f.payments.PayWithMobile(ctx, buyer, order.ID, "halopesa", "0612345678")
	assert.ErrorIs(t, err, domain.ErrPayment)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProvidersCatalogue(t *testing.T) {
	f := newFixture(t, nil, OrderOptions{})
	assert.Len(t, f.payments.Providers(), 7)
}

// countingAuthorizer approves after a short delay and counts how often it was asked.
type countingAuthorizer struct {
	calls atomic.Int32
	delay time.Duration
}

func (a *countingAuthorizer) Authorize(ctx context.Context, provider, phone string, amount float64) (*payment.Receipt, error) {
	n := a.calls.Add(1)
	select {
	case <-time.After(a.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &payment.Receipt{
		TransactionID: "MPE" + strings.Repeat("1", int(n)),
		Provider:      provider,
		PhoneNumber:   phone,
		Amount:        amount,
		Timestamp:     time.Now(),
		Message:       "Payment processed successfully",
	}, nil
}

func TestConcurrentMobilePaymentsChargeOnce(t *testing.T) {
	ctx := context.Background()
	authorizer := &countingAuthorizer{delay: 20 * time.Millisecond}
	f := newFixture(t, authorizer, OrderOptions{})
	buyer := f.seedUser(t, "asha", domain.RoleUser)
	p := f.seedProduct(t, "Radio", 25, 3)
	order, err := f.order.CreateOrder(ctx, buyer, orderInput(domain.PaymentMobileMoney, line(p, 1)))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.payments.PayWithMobile(ctx, buyer, order.ID, "mpesa", "0712345678")
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrAlreadyPaid)
				assert.NotErrorIs(t, err, domain.ErrUnexpected)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), authorizer.calls.Load())
	stored, err := f.orders.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid)
	require.NotNil(t, stored.PaymentResult)
	assert.Equal(t, "MPE1", stored.PaymentResult.ID)
}
