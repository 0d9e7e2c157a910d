package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type orderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
	log    *logrus.Logger
	now    func() time.Time
}

func NewOrderRepository(logger *logrus.Logger) domain.OrderRepository {
	return &orderRepository{
		orders: make(map[string]*domain.Order),
		log:    logger,
		now:    time.Now,
	}
}

func copyOrder(o *domain.Order) *domain.Order {
	c := *o
	c.OrderLines = append([]domain.OrderLine(nil), o.OrderLines...)
	if o.PaymentResult != nil {
		pr := *o.PaymentResult
		c.PaymentResult = &pr
	}
	if o.PaidAt != nil {
		t := *o.PaidAt
		c.PaidAt = &t
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		c.DeliveredAt = &t
	}
	return &c
}

func (r *orderRepository) CreateOrder(_ context.Context, order *domain.Order) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyOrder(order)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := r.now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.orders[stored.ID] = stored
	r.log.Infof("Repository: Order %s created with %d items", stored.ID, len(stored.OrderLines))
	return copyOrder(stored), nil
}

func (r *orderRepository) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (r *orderRepository) list(keep func(*domain.Order) bool, limit, offset int) []domain.Order {
	r.mu.RLock()
	out := make([]domain.Order, 0)
	for _, o := range r.orders {
		if keep(o) {
			out = append(out, *copyOrder(o))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if offset > len(out) {
		offset = len(out)
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end]
}

func (r *orderRepository) ListOrdersByUserID(_ context.Context, userID string, limit, offset int) ([]domain.Order, error) {
	return r.list(func(o *domain.Order) bool { return o.UserID == userID }, limit, offset), nil
}

func (r *orderRepository) ListOrders(_ context.Context, limit, offset int) ([]domain.Order, error) {
	return r.list(func(*domain.Order) bool { return true }, limit, offset), nil
}

func (r *orderRepository) MarkPaid(_ context.Context, id string, result domain.PaymentResult, paidAt time.Time) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if o.IsPaid {
		return nil, domain.ErrAlreadyPaid
	}
	o.IsPaid = true
	o.PaidAt = &paidAt
	o.PaymentResult = &result
	o.UpdatedAt = r.now()
	return copyOrder(o), nil
}

func (r *orderRepository) UpdateStatus(_ context.Context, id string, status domain.OrderStatus, deliveredAt *time.Time) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	o.Status = status
	if deliveredAt != nil {
		t := *deliveredAt
		o.IsDelivered = true
		o.DeliveredAt = &t
	}
	o.UpdatedAt = r.now()
	return copyOrder(o), nil
}

func (r *orderRepository) DeleteOrder(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(r.orders, id)
	return nil
}
