package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FeruzyNtillah/my-e-commerce/internal/cart"
	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"
	"github.com/FeruzyNtillah/my-e-commerce/internal/metrics"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type CreateOrderInput struct {
	OrderLines      []domain.OrderLine
	ShippingAddress domain.RawAddress
	PaymentMethod   domain.PaymentMethod
	Pricing         domain.Pricing
}

type QuoteItem struct {
	ProductID string `json:"product"`
	Quantity  int    `json:"quantity"`
}

type Quote struct {
	OrderLines []domain.OrderLine `json:"orderItems"`
	domain.Pricing
}

type OrderUseCase interface {
	CreateOrder(ctx context.Context, actor domain.Actor, input CreateOrderInput) (*domain.Order, error)
	GetOrderByID(ctx context.Context, actor domain.Actor, id string) (*domain.Order, error)
	ListMyOrders(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.Order, error)
	ListAllOrders(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.Order, error)
	MarkPaid(ctx context.Context, actor domain.Actor, id string, result domain.PaymentResult) (*domain.Order, error)
	SetStatus(ctx context.Context, actor domain.Actor, id string, status domain.OrderStatus) (*domain.Order, error)
	DeleteOrder(ctx context.Context, actor domain.Actor, id string) error
	Quote(ctx context.Context, items []QuoteItem) (*Quote, error)
}

// OrderOptions are the pricing rules applied at checkout.
type OrderOptions struct {
	Pricing cart.Policy
	// VerifyTotals rejects orders whose totalPrice drifts from its components by more
	// than a cent. When false the drift is only logged.
	VerifyTotals bool
}

type orderUseCase struct {
	orderRepo   domain.OrderRepository
	productRepo domain.ProductRepository
	stock       StockUseCase
	opts        OrderOptions
	metrics     *metrics.AppMetrics
	log         *logrus.Logger
	now         func() time.Time
}

func NewOrderUseCase(orderRepo domain.OrderRepository, productRepo domain.ProductRepository, stock StockUseCase,
	opts OrderOptions, m *metrics.AppMetrics, logger *logrus.Logger) OrderUseCase {
	return &orderUseCase{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		stock:       stock,
		opts:        opts,
		metrics:     m,
		log:         logger,
		now:         time.Now,
	}
}

const totalsTolerance = 0.01

func (uc *orderUseCase) CreateOrder(ctx context.Context, actor domain.Actor, input CreateOrderInput) (*domain.Order, error) {
	if !actor.IsAuthenticated() {
		return nil, domain.ErrMissingToken
	}
	if len(input.OrderLines) == 0 {
		uc.log.Warnf("Use Case: User %s submitted an order without items", actor.UserID)
		return nil, domain.ErrEmptyOrder
	}
	address := domain.NormalizeAddress(input.ShippingAddress)
	if err := address.Validate(); err != nil {
		uc.log.Warnf("Use Case: Invalid shipping address for user %s: %v", actor.UserID, err)
		return nil, err
	}
	if !input.PaymentMethod.IsValid() {
		return nil, domain.Validationf("Invalid payment method: %q", input.PaymentMethod)
	}
	if err := domain.ValidateLines(input.OrderLines); err != nil {
		return nil, err
	}
	if err := input.Pricing.Validate(); err != nil {
		return nil, err
	}
	if drift := input.Pricing.Drift(); drift > totalsTolerance {
		if uc.opts.VerifyTotals {
			uc.log.Warnf("Use Case: Rejecting order for user %s: totalPrice is off by %.2f", actor.UserID, drift)
			return nil, domain.Validationf("totalPrice does not match itemsPrice + taxPrice + shippingPrice")
		}
		uc.log.Warnf("Use Case: totalPrice for user %s's order is off from its components by %.2f; storing as given", actor.UserID, drift)
	}
	uc.log.Infof("Use Case: Validated order request for user %s (%d items, %s to %s)", actor.UserID, len(input.OrderLines), input.PaymentMethod, address.City)

	items := make([]StockItem, 0, len(input.OrderLines))
	for _, line := range input.OrderLines {
		items = append(items, StockItem{ProductID: line.ProductID, Name: line.Name, Quantity: line.Quantity})
	}
	reservation, err := uc.stock.Reserve(ctx, items)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	order := &domain.Order{
		UserID:          actor.UserID,
		OrderLines:      append([]domain.OrderLine(nil), input.OrderLines...),
		ShippingAddress: address,
		PaymentMethod:   input.PaymentMethod,
		Pricing:         input.Pricing,
		Status:          domain.StatusProcessing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	created, err := uc.orderRepo.CreateOrder(ctx, order)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create order for user %s AFTER stock reservation: %v. Attempting rollback...", actor.UserID, err)
		if rbErr := uc.stock.Release(ctx, reservation); rbErr != nil {
			return nil, errors.Join(rbErr, err)
		}
		return nil, fmt.Errorf("failed to save order after reserving stock: %w", err)
	}

	uc.metrics.RecordOrder(ctx, string(created.PaymentMethod), created.TotalPrice)
	uc.log.Infof("Use Case: Order %s created for user %s", created.ID, actor.UserID)
	return created, nil
}

func (uc *orderUseCase) GetOrderByID(ctx context.Context, actor domain.Actor, id string) (*domain.Order, error) {
	if !actor.IsAuthenticated() {
		return nil, domain.ErrMissingToken
	}
	order, err := uc.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		uc.log.Warnf("Use Case: Repository failed to get order %s: %v", id, err)
		return nil, err
	}
	if !order.IsOwnedBy(actor.UserID) && !actor.Can(domain.CapManageOrders) {
		uc.log.Warnf("Use Case: User %s attempted to access order %s owned by %s", actor.UserID, id, order.UserID)
		return nil, domain.Forbiddenf("Not authorized to view this order")
	}
	return order, nil
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = domain.DefaultOrderPageSize
	}
	if limit > domain.MaxOrderPageSize {
		limit = domain.MaxOrderPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (uc *orderUseCase) ListMyOrders(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.Order, error) {
	if !actor.IsAuthenticated() {
		return nil, domain.ErrMissingToken
	}
	limit, offset = pageBounds(limit, offset)
	orders, err := uc.orderRepo.ListOrdersByUserID(ctx, actor.UserID, limit, offset)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to list orders for user %s: %v", actor.UserID, err)
		return nil, fmt.Errorf("could not retrieve orders for user %s: %w", actor.UserID, err)
	}
	uc.log.Infof("Use Case: Retrieved %d orders for user %s", len(orders), actor.UserID)
	return orders, nil
}

func (uc *orderUseCase) ListAllOrders(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.Order, error) {
	if err := domain.Authorize(actor, domain.CapManageOrders); err != nil {
		return nil, err
	}
	limit, offset = pageBounds(limit, offset)
	orders, err := uc.orderRepo.ListOrders(ctx, limit, offset)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to list orders: %v", err)
		return nil, fmt.Errorf("could not retrieve orders: %w", err)
	}
	return orders, nil
}

func (uc *orderUseCase) MarkPaid(ctx context.Context, actor domain.Actor, id string, result domain.PaymentResult) (*domain.Order, error) {
	if !actor.IsAuthenticated() {
		return nil, domain.ErrMissingToken
	}
	order, err := uc.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.IsOwnedBy(actor.UserID) {
		uc.log.Warnf("Use Case: User %s attempted to pay order %s owned by %s", actor.UserID, id, order.UserID)
		return nil, domain.Forbiddenf("Not authorized to pay for this order")
	}
	if order.IsPaid {
		return nil, domain.ErrAlreadyPaid
	}

	paid, err := uc.orderRepo.MarkPaid(ctx, id, result, uc.now())
	if err != nil {
		uc.log.Warnf("Use Case: Repository failed to mark order %s paid: %v", id, err)
		return nil, err
	}
	uc.log.Infof("Use Case: Order %s marked paid (payment %s)", id, result.ID)
	return paid, nil
}

func (uc *orderUseCase) SetStatus(ctx context.Context, actor domain.Actor, id string, status domain.OrderStatus) (*domain.Order, error) {
	if err := domain.Authorize(actor, domain.CapManageOrders); err != nil {
		return nil, err
	}
	if !domain.IsValidStatus(status) {
		return nil, domain.Validationf("Invalid order status: %q", status)
	}
	var deliveredAt *time.Time
	if status == domain.StatusDelivered {
		now := uc.now()
		deliveredAt = &now
	}
	uc.log.Infof("Use Case: Updating status of order %s to '%s'", id, status)
	order, err := uc.orderRepo.UpdateStatus(ctx, id, status, deliveredAt)
	if err != nil {
		uc.log.Warnf("Use Case: Repository failed to update status for order %s: %v", id, err)
		return nil, err
	}
	return order, nil
}

func (uc *orderUseCase) DeleteOrder(ctx context.Context, actor domain.Actor, id string) error {
	if err := domain.Authorize(actor, domain.CapManageOrders); err != nil {
		return err
	}
	if err := uc.orderRepo.DeleteOrder(ctx, id); err != nil {
		uc.log.Warnf("Use Case: Repository failed to delete order %s: %v", id, err)
		return err
	}
	uc.log.Infof("Use Case: Order %s deleted by %s; stock is not restored", id, actor.UserID)
	return nil
}

func (uc *orderUseCase) Quote(ctx context.Context, items []QuoteItem) (*Quote, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyOrder
	}
	c := cart.New(uc.opts.Pricing)
	for i, item := range items {
		product, err := uc.productRepo.GetProductByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return nil, &domain.StockError{Line: i, ProductID: item.ProductID, Requested: item.Quantity, Err: domain.ErrProductNotFound}
			}
			return nil, fmt.Errorf("could not price product %s: %w", item.ProductID, err)
		}
		image := ""
		if len(product.Images) > 0 {
			image = product.Images[0].URL
		}
		if err := c.Add(cart.Item{
			ProductID: product.ID,
			Name:      product.Name,
			Image:     image,
			Price:     decimal.NewFromFloat(product.Price),
			Quantity:  item.Quantity,
			Stock:     product.Stock,
		}); err != nil {
			return nil, err
		}
	}
	return &Quote{OrderLines: c.Lines(), Pricing: c.Totals()}, nil
}
