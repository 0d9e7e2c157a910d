package usecase

import (
	"context"
	"math"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"

	"github.com/sirupsen/logrus"
)

const (
	featuredLimit = 8
	topRatedLimit = 8
	topRatedFloor = 4.0
)

type ProductPage struct {
	Products []domain.Product `json:"products"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
	Total    int              `json:"total"`
}

type ProductUseCase interface {
	CreateProduct(ctx context.Context, actor domain.Actor, product *domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, actor domain.Actor, id string, update domain.ProductUpdate) (*domain.Product, error)
	DeleteProduct(ctx context.Context, actor domain.Actor, id string) error
	ListProducts(ctx context.Context, filter domain.ProductFilter) (*ProductPage, error)
	FeaturedProducts(ctx context.Context) ([]domain.Product, error)
	TopProducts(ctx context.Context) ([]domain.Product, error)
}

type productUseCase struct {
	productRepo domain.ProductRepository
	log         *logrus.Logger
}

func NewProductUseCase(repo domain.ProductRepository, logger *logrus.Logger) ProductUseCase {
	return &productUseCase{
		productRepo: repo,
		log:         logger,
	}
}

func (uc *productUseCase) CreateProduct(ctx context.Context, actor domain.Actor, product *domain.Product) (*domain.Product, error) {
	if err := domain.Authorize(actor, domain.CapManageCatalog); err != nil {
		return nil, err
	}
	if err := product.Validate(); err != nil {
		uc.log.Warnf("Use Case: Rejected product '%s': %v", product.Name, err)
		return nil, err
	}
	product.ID = ""
	product.CreatedBy = actor.UserID
	product.Reviews = nil
	product.Rating, product.NumReviews = 0, 0

	uc.log.Infof("Use Case: Attempting to create product '%s'", product.Name)
	created, err := uc.productRepo.CreateProduct(ctx, product)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create product '%s': %v", product.Name, err)
		return nil, err
	}
	uc.log.Infof("Use Case: Product '%s' created successfully with ID %s", created.Name, created.ID)
	return created, nil
}

func (uc *productUseCase) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	product, err := uc.productRepo.GetProductByID(ctx, id)
	if err != nil {
		uc.log.Warnf("Use Case: Repository failed to get product ID %s: %v", id, err)
		return nil, err
	}
	return product, nil
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, actor domain.Actor, id string, update domain.ProductUpdate) (*domain.Product, error) {
	if err := domain.Authorize(actor, domain.CapManageCatalog); err != nil {
		return nil, err
	}
	current, err := uc.productRepo.GetProductByID(ctx, id)
	if err != nil {
		uc.log.Warnf("Use Case: Product ID %s not found for update: %v", id, err)
		return nil, err
	}
	if update.IsEmpty() {
		return current, nil
	}
	update.Apply(current)
	if err := current.Validate(); err != nil {
		return nil, err
	}
	if update.Name != nil {
		update.Name = &current.Name
	}

	updated, err := uc.productRepo.UpdateProduct(ctx, id, update)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to update product ID %s: %v", id, err)
		return nil, err
	}
	uc.log.Infof("Use Case: Product ID %s updated", id)
	return updated, nil
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, actor domain.Actor, id string) error {
	if err := domain.Authorize(actor, domain.CapManageCatalog); err != nil {
		return err
	}
	if err := uc.productRepo.DeleteProduct(ctx, id); err != nil {
		uc.log.Warnf("Use Case: Repository failed to delete product ID %s: %v", id, err)
		return err
	}
	uc.log.Infof("Use Case: Product ID %s deleted along with its reviews", id)
	return nil
}

func (uc *productUseCase) ListProducts(ctx context.Context, filter domain.ProductFilter) (*ProductPage, error) {
	filter.Normalize()
	products, total, err := uc.productRepo.ListProducts(ctx, filter)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to list products: %v", err)
		return nil, err
	}
	return &ProductPage{
		Products: products,
		Page:     filter.Page,
		Pages:    int(math.Ceil(float64(total) / float64(filter.Limit))),
		Total:    total,
	}, nil
}

func (uc *productUseCase) FeaturedProducts(ctx context.Context) ([]domain.Product, error) {
	products, _, err := uc.productRepo.ListProducts(ctx, domain.ProductFilter{
		Featured: true,
		Sort:     domain.SortNewest,
		Limit:    featuredLimit,
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (uc *productUseCase) TopProducts(ctx context.Context) ([]domain.Product, error) {
	floor := topRatedFloor
	products, _, err := uc.productRepo.ListProducts(ctx, domain.ProductFilter{
		MinRating: &floor,
		Sort:      domain.SortRating,
		Limit:     topRatedLimit,
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}
