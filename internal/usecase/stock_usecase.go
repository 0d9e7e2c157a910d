package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"
	"github.com/FeruzyNtillah/my-e-commerce/internal/metrics"

	"github.com/sirupsen/logrus"
)

// StockItem is one line of a reservation request.
type StockItem struct {
	ProductID string
	Name      string
	Quantity  int
}

// ReservedProduct is the quantity taken from one product.
type ReservedProduct struct {
	ProductID string
	Name      string
	Quantity  int
}

// Reservation records what Reserve decremented, per product.
type Reservation struct {
	Products []ReservedProduct
}

type StockUseCase interface {
	Reserve(ctx context.Context, items []StockItem) (*Reservation, error)
	Release(ctx context.Context, reservation *Reservation) error
}

type stockUseCase struct {
	productRepo domain.ProductRepository
	metrics     *metrics.AppMetrics
	log         *logrus.Logger
}

func NewStockUseCase(repo domain.ProductRepository, m *metrics.AppMetrics, logger *logrus.Logger) StockUseCase {
	return &stockUseCase{
		productRepo: repo,
		metrics:     m,
		log:         logger,
	}
}

type productDemand struct {
	firstLine int
	name      string
	quantity  int
	product   *domain.Product
}

func (uc *stockUseCase) Reserve(ctx context.Context, items []StockItem) (*Reservation, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyOrder
	}

	demand := make(map[string]*productDemand)
	var order []string
	for i, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			return nil, domain.Validationf("item %d: product is required", i)
		}
		if item.Quantity < 1 {
			return nil, domain.Validationf("item %d (product %s): quantity must be at least 1", i, item.ProductID)
		}
		if d, ok := demand[item.ProductID]; ok {
			d.quantity += item.Quantity
			continue
		}
		demand[item.ProductID] = &productDemand{firstLine: i, name: item.Name, quantity: item.Quantity}
		order = append(order, item.ProductID)
	}

	uc.log.Infof("Use Case: Checking stock for %d products (%d lines)", len(order), len(items))
	for _, id := range order {
		d := demand[id]
		product, err := uc.productRepo.GetProductByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				uc.log.Warnf("Use Case: Product %s (line %d) not found", id, d.firstLine)
				uc.metrics.RecordStockRejection(ctx, "not_found")
				return nil, &domain.StockError{Line: d.firstLine, ProductID: id, Name: d.name, Requested: d.quantity, Err: domain.ErrProductNotFound}
			}
			uc.log.Errorf("Use Case: Repository failed to get product %s: %v", id, err)
			return nil, fmt.Errorf("could not check stock for product %s: %w", id, err)
		}
		if product.Stock < d.quantity {
			uc.log.Warnf("Use Case: Insufficient stock for product %s (requested total: %d, available: %d)", id, d.quantity, product.Stock)
			uc.metrics.RecordStockRejection(ctx, "insufficient")
			return nil, &domain.StockError{Line: d.firstLine, ProductID: id, Name: product.Name, Requested: d.quantity, Available: product.Stock, Err: domain.ErrInsufficientStock}
		}
		d.product = product
		uc.log.Debugf("Use Case: Stock OK for product %s (stock: %d >= requested: %d)", id, product.Stock, d.quantity)
	}

	reservation := &Reservation{}
	for _, id := range order {
		d := demand[id]
		ok, err := uc.productRepo.DecrementStock(ctx, id, d.quantity)
		if err == nil && ok {
			reservation.Products = append(reservation.Products, ReservedProduct{ProductID: id, Name: d.product.Name, Quantity: d.quantity})
			continue
		}

		if err != nil {
			uc.log.Errorf("Use Case: Failed to decrease stock for product %s: %v. Rolling back...", id, err)
		} else {
			uc.log.Warnf("Use Case: Stock for product %s was taken concurrently. Rolling back...", id)
		}
		if rbErr := uc.Release(ctx, reservation); rbErr != nil {
			return nil, rbErr
		}
		if err != nil {
			return nil, fmt.Errorf("failed to reserve stock for product %s: %w", id, err)
		}

		available := 0
		if fresh, getErr := uc.productRepo.GetProductByID(ctx, id); getErr == nil {
			available = fresh.Stock
		}
		uc.metrics.RecordStockRejection(ctx, "insufficient")
		return nil, &domain.StockError{Line: d.firstLine, ProductID: id, Name: d.product.Name, Requested: d.quantity, Available: available, Err: domain.ErrInsufficientStock}
	}

	uc.log.Infof("Use Case: Stock reserved for %d products", len(reservation.Products))
	return reservation, nil
}

// Release returns every reserved quantity. A failure leaves stock inconsistent and
// yields ErrInconsistentStock.
func (uc *stockUseCase) Release(ctx context.Context, reservation *Reservation) error {
	if reservation == nil {
		return nil
	}
	var failed []string
	for _, p := range reservation.Products {
		uc.log.Warnf("Use Case: Returning %d units to product %s", p.Quantity, p.ProductID)
		if err := uc.productRepo.IncrementStock(ctx, p.ProductID, p.Quantity); err != nil {
			uc.log.Errorf("Use Case: CRITICAL! Failed to return %d units to product %s: %v. Manual intervention required!", p.Quantity, p.ProductID, err)
			failed = append(failed, fmt.Sprintf("%s x%d", p.ProductID, p.Quantity))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInconsistentStock, strings.Join(failed, ", "))
	}
	return nil
}
