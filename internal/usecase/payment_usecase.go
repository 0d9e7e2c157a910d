package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"
	"github.com/FeruzyNtillah/my-e-commerce/internal/metrics"
	"github.com/FeruzyNtillah/my-e-commerce/internal/payment"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

type MobilePayment struct {
	Order   *domain.Order    `json:"order"`
	Receipt *payment.Receipt `json:"receipt"`
}

type PaymentUseCase interface {
	Providers() []payment.Provider
	// PayWithMobile charges the order total through a provider and marks the order paid.
	PayWithMobile(ctx context.Context, actor domain.Actor, orderID, providerCode, phone string) (*MobilePayment, error)
}

type paymentUseCase struct {
	orders     OrderUseCase
	users      domain.UserRepository
	authorizer payment.Authorizer
	timeout    time.Duration
	metrics    *metrics.AppMetrics
	log        *logrus.Logger

	// inflight collapses concurrent charges for the same order into one.
	inflight singleflight.Group
}

func NewPaymentUseCase(orders OrderUseCase, users domain.UserRepository, authorizer payment.Authorizer,
	timeout time.Duration, m *metrics.AppMetrics, logger *logrus.Logger) PaymentUseCase {
	return &paymentUseCase{
		orders:     orders,
		users:      users,
		authorizer: authorizer,
		timeout:    timeout,
		metrics:    m,
		log:        logger,
	}
}

func (uc *paymentUseCase) Providers() []payment.Provider {
	return payment.Providers()
}

func (uc *paymentUseCase) PayWithMobile(ctx context.Context, actor domain.Actor, orderID, providerCode, phone string) (*MobilePayment, error) {
	order, err := uc.orders.GetOrderByID(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsOwnedBy(actor.UserID) {
		return nil, domain.Forbiddenf("Not authorized to pay for this order")
	}
	if order.IsPaid {
		return nil, domain.ErrAlreadyPaid
	}
	provider, ok := payment.LookupProvider(providerCode)
	if !ok {
		return nil, domain.Validationf("Unknown payment provider: %q", providerCode)
	}
	rail, ok := payment.RailFor(order.PaymentMethod)
	if !ok || rail != provider.Rail {
		return nil, domain.Validationf("%s cannot settle an order paid by %s", provider.Name, order.PaymentMethod)
	}
	purchaser, err := uc.users.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("could not load purchaser %s: %w", actor.UserID, err)
	}

	v, err, shared := uc.inflight.Do(orderID, func() (any, error) {
		return uc.charge(ctx, actor, orderID, provider, purchaser.Email, phone)
	})
	if shared {
		uc.log.Infof("Use Case: Concurrent payment requests for order %s shared one charge", orderID)
	}
	if err != nil {
		return nil, err
	}
	return v.(*MobilePayment), nil
}

// charge re-reads the order so a request that queued behind a finished charge sees it paid.
func (uc *paymentUseCase) charge(ctx context.Context, actor domain.Actor, orderID string, provider payment.Provider, email, phone string) (*MobilePayment, error) {
	order, err := uc.orders.GetOrderByID(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsPaid {
		return nil, domain.ErrAlreadyPaid
	}

	session := payment.NewSession(provider.Code, order.TotalPrice, uc.authorizer)
	session.OnTransition(func(from, to payment.State) {
		uc.log.Debugf("Use Case: Payment for order %s moved %s -> %s", orderID, from, to)
	})

	chargeCtx := ctx
	if uc.timeout > 0 {
		var cancel context.CancelFunc
		chargeCtx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}
	uc.log.Infof("Use Case: Charging %.2f for order %s via %s", order.TotalPrice, orderID, provider.Code)
	receipt, err := session.Submit(chargeCtx, phone)
	if err != nil {
		outcome := "declined"
		if errors.Is(err, domain.ErrValidation) {
			outcome = "invalid_phone"
		}
		uc.metrics.RecordPayment(ctx, provider.Code, outcome)
		uc.log.Warnf("Use Case: Payment for order %s via %s failed: %v", orderID, provider.Code, err)
		return nil, err
	}
	uc.metrics.RecordPayment(ctx, provider.Code, "success")

	paid, err := uc.orders.MarkPaid(ctx, actor, orderID, domain.PaymentResult{
		ID:           receipt.TransactionID,
		Status:       "COMPLETED",
		UpdateTime:   receipt.Timestamp.UTC().Format(time.RFC3339),
		EmailAddress: email,
		Provider:     receipt.Provider,
		PhoneNumber:  receipt.PhoneNumber,
	})
	if err != nil {
		uc.log.Errorf("Use Case: CRITICAL! Charged transaction %s for order %s but could not mark it paid: %v. Manual intervention required!", receipt.TransactionID, orderID, err)
		return nil, errors.Join(domain.ErrUnexpected, fmt.Errorf("payment %s captured but order %s was not updated: %w", receipt.TransactionID, orderID, err))
	}
	uc.log.Infof("Use Case: Order %s paid with transaction %s", orderID, receipt.TransactionID)
	return &MobilePayment{Order: paid, Receipt: receipt}, nil
}
