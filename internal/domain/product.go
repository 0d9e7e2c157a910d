package domain

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

type Category string

const (
	CategoryElectronics Category = "Electronics"
	CategoryClothing    Category = "Clothing"
	CategoryBooks       Category = "Books"
	CategoryHomeGarden  Category = "Home & Garden"
	CategorySports      Category = "Sports"
	CategoryToys        Category = "Toys"
	CategoryBeauty      Category = "Beauty"
	CategoryFood        Category = "Food"
	CategoryOther       Category = "Other"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryElectronics, CategoryClothing, CategoryBooks, CategoryHomeGarden, CategorySports,
		CategoryToys, CategoryBeauty, CategoryFood, CategoryOther:
		return true
	default:
		return false
	}
}

const (
	MaxProductNameLength        = 100
	MaxProductDescriptionLength = 2000
)

type ProductImage struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id,omitempty"`
}

type Product struct {
	ID          string         `json:"_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       float64        `json:"price"`
	Images      []ProductImage `json:"images"`
	Category    Category       `json:"category"`
	Brand       string         `json:"brand"`
	Stock       int            `json:"stock"`
	Rating      float64        `json:"ratings"`
	NumReviews  int            `json:"numReviews"`
	Reviews     []Review       `json:"reviews"`
	CreatedBy   string         `json:"user"`
	IsFeatured  bool           `json:"isFeatured"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Validate checks the catalog constraints of a product about to be stored.
func (p *Product) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return Validationf("Please add a product name")
	}
	if utf8.RuneCountInString(p.Name) > MaxProductNameLength {
		return Validationf("Product name cannot exceed %d characters", MaxProductNameLength)
	}
	if strings.TrimSpace(p.Description) == "" {
		return Validationf("Please add a description")
	}
	if utf8.RuneCountInString(p.Description) > MaxProductDescriptionLength {
		return Validationf("Description cannot exceed %d characters", MaxProductDescriptionLength)
	}
	if p.Price < 0 {
		return Validationf("Price cannot be negative")
	}
	if !p.Category.IsValid() {
		return Validationf("Please select a valid category")
	}
	if strings.TrimSpace(p.Brand) == "" {
		return Validationf("Please add a brand")
	}
	if p.Stock < 0 {
		return Validationf("Stock cannot be negative")
	}
	for i, img := range p.Images {
		if strings.TrimSpace(img.URL) == "" {
			return Validationf("image %d: url is required", i)
		}
	}
	return nil
}

// ReviewBy returns the review written by userID, if any.
func (p *Product) ReviewBy(userID string) *Review {
	for i := range p.Reviews {
		if p.Reviews[i].UserID == userID {
			return &p.Reviews[i]
		}
	}
	return nil
}

// FindReview returns the review with the given id, if any.
func (p *Product) FindReview(reviewID string) *Review {
	for i := range p.Reviews {
		if p.Reviews[i].ID == reviewID {
			return &p.Reviews[i]
		}
	}
	return nil
}

// RecomputeRating sets Rating and NumReviews from the current review list.
func (p *Product) RecomputeRating() {
	p.Rating, p.NumReviews = AggregateRatings(p.Reviews)
}

// ProductUpdate is a partial update; nil fields are left untouched.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *float64
	Images      *[]ProductImage
	Category    *Category
	Brand       *string
	Stock       *int
	IsFeatured  *bool
}

func (u ProductUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Price == nil && u.Images == nil &&
		u.Category == nil && u.Brand == nil && u.Stock == nil && u.IsFeatured == nil
}

// Apply copies the set fields onto p.
func (u ProductUpdate) Apply(p *Product) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Images != nil {
		p.Images = append([]ProductImage(nil), (*u.Images)...)
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Brand != nil {
		p.Brand = *u.Brand
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.IsFeatured != nil {
		p.IsFeatured = *u.IsFeatured
	}
}

type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortRating    ProductSort = "rating"
)

const (
	DefaultProductPageSize = 12
	MaxPageSize            = 100
)

type ProductFilter struct {
	Keyword   string
	Category  Category
	Brand     string
	MinPrice  *float64
	MaxPrice  *float64
	MinRating *float64
	InStock   bool
	Featured  bool
	Sort      ProductSort
	Page      int
	Limit     int
}

// Normalize fills in paging and sort defaults.
func (f *ProductFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultProductPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	switch f.Sort {
	case SortNewest, SortPriceAsc, SortPriceDesc, SortRating:
	default:
		f.Sort = SortNewest
	}
}

func (f ProductFilter) Offset() int { return (f.Page - 1) * f.Limit }

// Matches applies the filter to a single product. Used by stores that cannot push the
// filter down to a query engine.
func (f ProductFilter) Matches(p *Product) bool {
	if kw := strings.ToLower(strings.TrimSpace(f.Keyword)); kw != "" {
		if !strings.Contains(strings.ToLower(p.Name), kw) && !strings.Contains(strings.ToLower(p.Description), kw) {
			return false
		}
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if b := strings.ToLower(strings.TrimSpace(f.Brand)); b != "" && !strings.Contains(strings.ToLower(p.Brand), b) {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.MinRating != nil && p.Rating < *f.MinRating {
		return false
	}
	if f.InStock && p.Stock <= 0 {
		return false
	}
	if f.Featured && !p.IsFeatured {
		return false
	}
	return true
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, product *Product) (*Product, error)
	GetProductByID(ctx context.Context, id string) (*Product, error)
	UpdateProduct(ctx context.Context, id string, update ProductUpdate) (*Product, error)
	DeleteProduct(ctx context.Context, id string) error
	// ListProducts returns one page of matching products and the total match count.
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error)

	// DecrementStock subtracts qty only while stock >= qty, as one conditional update.
	// It reports false when the guard did not hold.
	DecrementStock(ctx context.Context, id string, qty int) (bool, error)
	IncrementStock(ctx context.Context, id string, qty int) error

	// AddReview appends a review; it fails with ErrDuplicateReview when the reviewer
	// already has one on the product.
	// Every review write rederives rating and numReviews from the stored list before
	// returning; callers never write the aggregates.
	AddReview(ctx context.Context, productID string, review *Review) error
	UpdateReview(ctx context.Context, productID string, review *Review) error
	DeleteReview(ctx context.Context, productID, reviewID string) error
}
