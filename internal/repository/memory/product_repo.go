package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type productRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
	log      *logrus.Logger
	now      func() time.Time
}

func NewProductRepository(logger *logrus.Logger) domain.ProductRepository {
	return &productRepository{
		products: make(map[string]*domain.Product),
		log:      logger,
		now:      time.Now,
	}
}

func copyProduct(p *domain.Product) *domain.Product {
	c := *p
	c.Images = append([]domain.ProductImage(nil), p.Images...)
	c.Reviews = append([]domain.Review(nil), p.Reviews...)
	return &c
}

func (r *productRepository) CreateProduct(_ context.Context, product *domain.Product) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyProduct(product)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if _, exists := r.products[stored.ID]; exists {
		return nil, fmt.Errorf("product with id %s already exists", stored.ID)
	}
	now := r.now()
	stored.CreatedAt, stored.UpdatedAt = now, now
	stored.RecomputeRating()
	r.products[stored.ID] = stored
	r.log.Infof("Repository: Product created with ID %s", stored.ID)
	return copyProduct(stored), nil
}

func (r *productRepository) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return copyProduct(p), nil
}

func (r *productRepository) UpdateProduct(_ context.Context, id string, update domain.ProductUpdate) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	update.Apply(p)
	p.UpdatedAt = r.now()
	return copyProduct(p), nil
}

func (r *productRepository) DeleteProduct(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *productRepository) ListProducts(_ context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	filter.Normalize()
	r.mu.RLock()
	matched := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		if filter.Matches(p) {
			matched = append(matched, *copyProduct(p))
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch filter.Sort {
		case domain.SortPriceAsc:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case domain.SortPriceDesc:
			if a.Price != b.Price {
				return a.Price > b.Price
			}
		case domain.SortRating:
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	total := len(matched)
	start := filter.Offset()
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *productRepository) DecrementStock(_ context.Context, id string, qty int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return false, domain.ErrProductNotFound
	}
	if p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	p.UpdatedAt = r.now()
	return true, nil
}

func (r *productRepository) IncrementStock(_ context.Context, id string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Stock += qty
	p.UpdatedAt = r.now()
	return nil
}

func (r *productRepository) AddReview(_ context.Context, productID string, review *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if p.ReviewBy(review.UserID) != nil {
		return domain.ErrDuplicateReview
	}
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	now := r.now()
	review.CreatedAt, review.UpdatedAt = now, now
	p.Reviews = append(p.Reviews, *review)
	p.RecomputeRating()
	return nil
}

func (r *productRepository) UpdateReview(_ context.Context, productID string, review *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	existing := p.FindReview(review.ID)
	if existing == nil {
		return domain.ErrReviewNotFound
	}
	existing.Rating = review.Rating
	existing.Comment = review.Comment
	existing.UpdatedAt = r.now()
	review.UpdatedAt = existing.UpdatedAt
	p.RecomputeRating()
	return nil
}

func (r *productRepository) DeleteReview(_ context.Context, productID, reviewID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	for i := range p.Reviews {
		if p.Reviews[i].ID == reviewID {
			p.Reviews = append(p.Reviews[:i], p.Reviews[i+1:]...)
			p.RecomputeRating()
			return nil
		}
	}
	return domain.ErrReviewNotFound
}
