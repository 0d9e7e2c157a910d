package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const productColumns = `id, name, description, price, image_urls, image_public_ids, category, brand,
        stock, rating, num_reviews, created_by, is_featured, created_at, updated_at`

type productRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewProductRepository(db *sql.DB, logger *logrus.Logger) domain.ProductRepository {
	return &productRepository{
		db:  db,
		log: logger,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	var urls, publicIDs []string
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		pq.Array(&urls),
		pq.Array(&publicIDs),
		&p.Category,
		&p.Brand,
		&p.Stock,
		&p.Rating,
		&p.NumReviews,
		&p.CreatedBy,
		&p.IsFeatured,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Images = make([]domain.ProductImage, len(urls))
	for i, u := range urls {
		p.Images[i].URL = u
		if i < len(publicIDs) {
			p.Images[i].PublicID = publicIDs[i]
		}
	}
	return p, nil
}

func splitImages(images []domain.ProductImage) (urls, publicIDs []string) {
	urls = make([]string, len(images))
	publicIDs = make([]string, len(images))
	for i, img := range images {
		urls[i] = img.URL
		publicIDs[i] = img.PublicID
	}
	return urls, publicIDs
}

func (r *productRepository) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	p := *product
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Reviews = nil
	p.RecomputeRating()
	urls, publicIDs := splitImages(p.Images)

	query := `
        INSERT INTO products (id, name, description, price, image_urls, image_public_ids, category, brand,
            stock, rating, num_reviews, created_by, is_featured)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		p.ID, p.Name, p.Description, p.Price, pq.Array(urls), pq.Array(publicIDs), p.Category, p.Brand,
		p.Stock, p.Rating, p.NumReviews, p.CreatedBy, p.IsFeatured,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if pqCode(err) == codeCheckViolation {
			r.log.Warnf("Repository: Check constraint violation for product '%s': %v", p.Name, err)
			return nil, domain.Validationf("product data constraint violation")
		}
		r.log.Errorf("Repository: Failed to create product '%s': %v", p.Name, err)
		return nil, fmt.Errorf("could not create product: %w", err)
	}
	r.log.Infof("Repository: Product created successfully with ID: %s, Name: %s", p.ID, p.Name)
	return &p, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Debugf("Repository: Product with ID %s not found", id)
			return nil, domain.ErrProductNotFound
		}
		r.log.Errorf("Repository: Failed to get product by ID %s: %v", id, err)
		return nil, fmt.Errorf("could not get product by id: %w", err)
	}

	reviews, err := r.reviewsFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	p.Reviews = reviews[id]
	return p, nil
}

func (r *productRepository) reviewsFor(ctx context.Context, productIDs []string) (map[string][]domain.Review, error) {
	query := `
        SELECT product_id, id, user_id, name, rating, comment, created_at, updated_at
        FROM reviews
        WHERE product_id = ANY($1)
        ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(productIDs))
	if err != nil {
		r.log.Errorf("Repository: Failed to query reviews for products %v: %v", productIDs, err)
		return nil, fmt.Errorf("could not retrieve reviews: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Review, len(productIDs))
	for rows.Next() {
		var productID string
		var rv domain.Review
		if err := rows.Scan(&productID, &rv.ID, &rv.UserID, &rv.Name, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning review: %w", err)
		}
		out[productID] = append(out[productID], rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}
	return out, nil
}

func (r *productRepository) UpdateProduct(ctx context.Context, id string, update domain.ProductUpdate) (*domain.Product, error) {
	var urls, publicIDs any
	if update.Images != nil {
		u, p := splitImages(*update.Images)
		urls, publicIDs = pq.Array(u), pq.Array(p)
	}
	query := `
        UPDATE products SET
            name = COALESCE($2::text, name),
            description = COALESCE($3::text, description),
            price = COALESCE($4::double precision, price),
            image_urls = COALESCE($5::text[], image_urls),
            image_public_ids = COALESCE($6::text[], image_public_ids),
            category = COALESCE($7::text, category),
            brand = COALESCE($8::text, brand),
            stock = COALESCE($9::integer, stock),
            is_featured = COALESCE($10::boolean, is_featured),
            updated_at = NOW()
        WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id,
		update.Name, update.Description, update.Price, urls, publicIDs,
		update.Category, update.Brand, update.Stock, update.IsFeatured,
	)
	if err != nil {
		if pqCode(err) == codeCheckViolation {
			return nil, domain.Validationf("product data constraint violation")
		}
		r.log.Errorf("Repository: Failed to update product ID %s: %v", id, err)
		return nil, fmt.Errorf("could not update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrProductNotFound
	}
	return r.GetProductByID(ctx, id)
}

func (r *productRepository) DeleteProduct(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.log.Errorf("Repository: Failed to delete product ID %s: %v", id, err)
		return fmt.Errorf("could not delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrProductNotFound
	}
	r.log.Infof("Repository: Product ID %s deleted", id)
	return nil
}

// productWhere renders the filter as a WHERE clause with positional arguments.
func productWhere(f domain.ProductFilter) (string, []any) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		p := arg("%" + kw + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", p, p))
	}
	if f.Category != "" {
		conds = append(conds, "category = "+arg(string(f.Category)))
	}
	if b := strings.TrimSpace(f.Brand); b != "" {
		conds = append(conds, "brand ILIKE "+arg("%"+b+"%"))
	}
	if f.MinPrice != nil {
		conds = append(conds, "price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, "price <= "+arg(*f.MaxPrice))
	}
	if f.MinRating != nil {
		conds = append(conds, "rating >= "+arg(*f.MinRating))
	}
	if f.InStock {
		conds = append(conds, "stock > 0")
	}
	if f.Featured {
		conds = append(conds, "is_featured")
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func productOrder(sort domain.ProductSort) string {
	switch sort {
	case domain.SortPriceAsc:
		return " ORDER BY price ASC, created_at DESC, id"
	case domain.SortPriceDesc:
		return " ORDER BY price DESC, created_at DESC, id"
	case domain.SortRating:
		return " ORDER BY rating DESC, created_at DESC, id"
	default:
		return " ORDER BY created_at DESC, id"
	}
}

func (r *productRepository) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	filter.Normalize()
	where, args := productWhere(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		r.log.Errorf("Repository: Failed to count products: %v", err)
		return nil, 0, fmt.Errorf("could not count products: %w", err)
	}

	n := len(args)
	query := `SELECT ` + productColumns + ` FROM products` + where + productOrder(filter.Sort) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset())...)
	if err != nil {
		r.log.Errorf("Repository: Failed to list products: %v", err)
		return nil, 0, fmt.Errorf("could not list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	var ids []string
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning product: %w", err)
		}
		products = append(products, *p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}
	if len(ids) == 0 {
		return products, total, nil
	}

	reviews, err := r.reviewsFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range products {
		products[i].Reviews = reviews[products[i].ID]
	}
	r.log.Debugf("Repository: Listed %d of %d products", len(products), total)
	return products, total, nil
}

func (r *productRepository) DecrementStock(ctx context.Context, id string, qty int) (bool, error) {
	query := `
        UPDATE products
        SET stock = stock - $1, updated_at = NOW()
        WHERE id = $2 AND stock >= $1`
	res, err := r.db.ExecContext(ctx, query, qty, id)
	if err != nil {
		r.log.Errorf("Repository: Failed to decrement stock for product %s by %d: %v", id, qty, err)
		return false, fmt.Errorf("could not decrement stock: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return true, nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("could not check product %s: %w", id, err)
	}
	if !exists {
		return false, domain.ErrProductNotFound
	}
	r.log.Warnf("Repository: Stock guard rejected decrement of %d for product %s", qty, id)
	return false, nil
}

func (r *productRepository) IncrementStock(ctx context.Context, id string, qty int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2`, qty, id)
	if err != nil {
		r.log.Errorf("Repository: Failed to increment stock for product %s by %d: %v", id, qty, err)
		return fmt.Errorf("could not increment stock: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

const refreshRatingQuery = `
        UPDATE products SET
            num_reviews = (SELECT COUNT(*) FROM reviews WHERE product_id = $1),
            rating = COALESCE((SELECT AVG(rating) FROM reviews WHERE product_id = $1), 0),
            updated_at = NOW()
        WHERE id = $1`

// withReviewLock runs a review write and the rating refresh in one transaction holding the
// product row lock, so concurrent writes on the same product are serialized.
func (r *productRepository) withReviewLock(ctx context.Context, productID string, write func(tx *sql.Tx) error) error {
	return withTx(ctx, r.db, r.log, func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRowContext(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrProductNotFound
			}
			r.log.Errorf("Repository: Failed to lock product %s: %v", productID, err)
			return fmt.Errorf("could not lock product: %w", err)
		}
		if err := write(tx); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, refreshRatingQuery, productID); err != nil {
			r.log.Errorf("Repository: Failed to refresh rating for product %s: %v", productID, err)
			return fmt.Errorf("could not refresh rating: %w", err)
		}
		return nil
	})
}

func (r *productRepository) AddReview(ctx context.Context, productID string, review *domain.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	query := `
        INSERT INTO reviews (id, product_id, user_id, name, rating, comment)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at, updated_at`
	return r.withReviewLock(ctx, productID, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, query, review.ID, productID, review.UserID, review.Name, review.Rating, review.Comment).
			Scan(&review.CreatedAt, &review.UpdatedAt)
		if err != nil {
			if pqCode(err) == codeUniqueViolation {
				r.log.Warnf("Repository: User %s already reviewed product %s", review.UserID, productID)
				return domain.ErrDuplicateReview
			}
			r.log.Errorf("Repository: Failed to add review to product %s: %v", productID, err)
			return fmt.Errorf("could not add review: %w", err)
		}
		return nil
	})
}

func (r *productRepository) UpdateReview(ctx context.Context, productID string, review *domain.Review) error {
	query := `
        UPDATE reviews SET rating = $3, comment = $4, updated_at = NOW()
        WHERE id = $1 AND product_id = $2
        RETURNING updated_at`
	return r.withReviewLock(ctx, productID, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, query, review.ID, productID, review.Rating, review.Comment).Scan(&review.UpdatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrReviewNotFound
			}
			r.log.Errorf("Repository: Failed to update review %s: %v", review.ID, err)
			return fmt.Errorf("could not update review: %w", err)
		}
		return nil
	})
}

func (r *productRepository) DeleteReview(ctx context.Context, productID, reviewID string) error {
	return r.withReviewLock(ctx, productID, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1 AND product_id = $2`, reviewID, productID)
		if err != nil {
			r.log.Errorf("Repository: Failed to delete review %s: %v", reviewID, err)
			return fmt.Errorf("could not delete review: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrReviewNotFound
		}
		return nil
	})
}
