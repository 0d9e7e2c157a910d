package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type imageDoc struct {
	URL      string `bson:"url"`
	PublicID string `bson:"public_id,omitempty"`
}

type reviewDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	User      primitive.ObjectID `bson:"user"`
	Name      string             `bson:"name"`
	Rating    int                `bson:"rating"`
	Comment   string             `bson:"comment"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type productDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	Price       float64            `bson:"price"`
	Images      []imageDoc         `bson:"images"`
	Category    string             `bson:"category"`
	Brand       string             `bson:"brand"`
	Stock       int                `bson:"stock"`
	Ratings     float64            `bson:"ratings"`
	NumReviews  int                `bson:"numReviews"`
	Reviews     []reviewDoc        `bson:"reviews"`
	User        primitive.ObjectID `bson:"user,omitempty"`
	IsFeatured  bool               `bson:"isFeatured"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *productDoc) toDomain() *domain.Product {
	p := &domain.Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		Images:      make([]domain.ProductImage, len(d.Images)),
		Category:    domain.Category(d.Category),
		Brand:       d.Brand,
		Stock:       d.Stock,
		Rating:      d.Ratings,
		NumReviews:  d.NumReviews,
		Reviews:     make([]domain.Review, len(d.Reviews)),
		CreatedBy:   hexOrEmpty(d.User),
		IsFeatured:  d.IsFeatured,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	for i, img := range d.Images {
		p.Images[i] = domain.ProductImage{URL: img.URL, PublicID: img.PublicID}
	}
	for i, rv := range d.Reviews {
		p.Reviews[i] = domain.Review{
			ID:        rv.ID.Hex(),
			UserID:    hexOrEmpty(rv.User),
			Name:      rv.Name,
			Rating:    rv.Rating,
			Comment:   rv.Comment,
			CreatedAt: rv.CreatedAt,
			UpdatedAt: rv.UpdatedAt,
		}
	}
	return p
}

func imageDocs(images []domain.ProductImage) []imageDoc {
	docs := make([]imageDoc, len(images))
	for i, img := range images {
		docs[i] = imageDoc{URL: img.URL, PublicID: img.PublicID}
	}
	return docs
}

type productRepository struct {
	coll *mongo.Collection
	log  *logrus.Logger
	now  func() time.Time
}

func NewProductRepository(db *mongo.Database, logger *logrus.Logger) domain.ProductRepository {
	return &productRepository{
		coll: db.Collection(productsCollection),
		log:  logger,
		now:  time.Now,
	}
}

func (r *productRepository) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	creator, err := refID(product.CreatedBy, "user")
	if err != nil {
		return nil, err
	}
	now := mongoNow(r.now)
	doc := productDoc{
		ID:          primitive.NewObjectID(),
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Images:      imageDocs(product.Images),
		Category:    string(product.Category),
		Brand:       product.Brand,
		Stock:       product.Stock,
		Reviews:     []reviewDoc{},
		User:        creator,
		IsFeatured:  product.IsFeatured,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		r.log.Errorf("Repository: Failed to create product '%s': %v", product.Name, err)
		return nil, fmt.Errorf("could not create product: %w", err)
	}
	r.log.Infof("Repository: Product created successfully with ID: %s, Name: %s", doc.ID.Hex(), doc.Name)
	return doc.toDomain(), nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := objectID(id, domain.ErrProductNotFound)
	if err != nil {
		return nil, err
	}
	var doc productDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProductNotFound
		}
		r.log.Errorf("Repository: Failed to get product by ID %s: %v", id, err)
		return nil, fmt.Errorf("could not get product by id: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *productRepository) UpdateProduct(ctx context.Context, id string, update domain.ProductUpdate) (*domain.Product, error) {
	oid, err := objectID(id, domain.ErrProductNotFound)
	if err != nil {
		return nil, err
	}
	set := bson.M{"updatedAt": mongoNow(r.now)}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.Price != nil {
		set["price"] = *update.Price
	}
	if update.Images != nil {
		set["images"] = imageDocs(*update.Images)
	}
	if update.Category != nil {
		set["category"] = string(*update.Category)
	}
	if update.Brand != nil {
		set["brand"] = *update.Brand
	}
	if update.Stock != nil {
		set["stock"] = *update.Stock
	}
	if update.IsFeatured != nil {
		set["isFeatured"] = *update.IsFeatured
	}

	var doc productDoc
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProductNotFound
		}
		r.log.Errorf("Repository: Failed to update product ID %s: %v", id, err)
		return nil, fmt.Errorf("could not update product: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, id string) error {
	oid, err := objectID(id, domain.ErrProductNotFound)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		r.log.Errorf("Repository: Failed to delete product ID %s: %v", id, err)
		return fmt.Errorf("could not delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// productFilter renders the catalog filter as a query document.
func productFilter(f domain.ProductFilter) bson.M {
	q := bson.M{}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(kw), Options: "i"}
		q["$or"] = bson.A{bson.M{"name": re}, bson.M{"description": re}}
	}
	if f.Category != "" {
		q["category"] = string(f.Category)
	}
	if b := strings.TrimSpace(f.Brand); b != "" {
		q["brand"] = primitive.Regex{Pattern: regexp.QuoteMeta(b), Options: "i"}
	}
	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		q["price"] = price
	}
	if f.MinRating != nil {
		q["ratings"] = bson.M{"$gte": *f.MinRating}
	}
	if f.InStock {
		q["stock"] = bson.M{"$gt": 0}
	}
	if f.Featured {
		q["isFeatured"] = true
	}
	return q
}

func productSort(sort domain.ProductSort) bson.D {
	newest := bson.E{Key: "createdAt", Value: -1}
	switch sort {
	case domain.SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}, newest}
	case domain.SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}, newest}
	case domain.SortRating:
		return bson.D{{Key: "ratings", Value: -1}, newest}
	default:
		return bson.D{newest}
	}
}

func (r *productRepository) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	filter.Normalize()
	q := productFilter(filter)

	total, err := r.coll.CountDocuments(ctx, q)
	if err != nil {
		r.log.Errorf("Repository: Failed to count products: %v", err)
		return nil, 0, fmt.Errorf("could not count products: %w", err)
	}

	opts := options.Find().
		SetSort(productSort(filter.Sort)).
		SetSkip(int64(filter.Offset())).
		SetLimit(int64(filter.Limit))
	cur, err := r.coll.Find(ctx, q, opts)
	if err != nil {
		r.log.Errorf("Repository: Failed to list products: %v", err)
		return nil, 0, fmt.Errorf("could not list products: %w", err)
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("error decoding products: %w", err)
	}

	products := make([]domain.Product, len(docs))
	for i := range docs {
		products[i] = *docs[i].toDomain()
	}
	return products, int(total), nil
}

func (r *productRepository) exists(ctx context.Context, oid primitive.ObjectID) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("could not check product %s: %w", oid.Hex(), err)
	}
	return n > 0, nil
}

func (r *productRepository) DecrementStock(ctx context.Context, id string, qty int) (bool, error) {
	oid, err := objectID(id, domain.ErrProductNotFound)
	if err != nil {
		return false, err
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}, "$set": bson.M{"updatedAt": mongoNow(r.now)}},
	)
	if err != nil {
		r.log.Errorf("Repository: Failed to decrement stock for product %s by %d: %v", id, qty, err)
		return false, fmt.Errorf("could not decrement stock: %w", err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	found, err := r.exists(ctx, oid)
	if err != nil {
		return false, err
	}
	if !found {
		return false, domain.ErrProductNotFound
	}
	r.log.Warnf("Repository: Stock guard rejected decrement of %d for product %s", qty, id)
	return false, nil
}

func (r *productRepository) IncrementStock(ctx context.Context, id string, qty int) error {
	oid, err := objectID(id, domain.ErrProductNotFound)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid},
		bson.M{"$inc": bson.M{"stock": qty}, "$set": bson.M{"updatedAt": mongoNow(r.now)}})
	if err != nil {
		r.log.Errorf("Repository: Failed to increment stock for product %s by %d: %v", id, qty, err)
		return fmt.Errorf("could not increment stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) AddReview(ctx context.Context, productID string, review *domain.Review) error {
	oid, err := objectID(productID, domain.ErrProductNotFound)
	if err != nil {
		return err
	}
	uid, err := refID(review.UserID, "user")
	if err != nil {
		return err
	}
	now := mongoNow(r.now)
	doc := reviewDoc{
		ID:        primitive.NewObjectID(),
		User:      uid,
		Name:      review.Name,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// The filter makes the one-review-per-user rule part of the same write.
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "reviews.user": bson.M{"$ne": uid}},
		bson.M{"$push": bson.M{"reviews": doc}},
	)
	if err != nil {
		r.log.Errorf("Repository: Failed to add review to product %s: %v", productID, err)
		return fmt.Errorf("could not add review: %w", err)
	}
	if res.MatchedCount == 0 {
		found, err := r.exists(ctx, oid)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrProductNotFound
		}
		r.log.Warnf("Repository: User %s already reviewed product %s", review.UserID, productID)
		return domain.ErrDuplicateReview
	}
	review.ID = doc.ID.Hex()
	review.CreatedAt, review.UpdatedAt = now, now
	return r.refreshRating(ctx, oid)
}

func (r *productRepository) UpdateReview(ctx context.Context, productID string, review *domain.Review) error {
	oid, err := objectID(productID, domain.ErrProductNotFound)
	if err != nil {
		return err
	}
	rid, err := objectID(review.ID, domain.ErrReviewNotFound)
	if err != nil {
		return err
	}
	now := mongoNow(r.now)
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "reviews._id": rid},
		bson.M{"$set": bson.M{
			"reviews.$.rating":    review.Rating,
			"reviews.$.comment":   review.Comment,
			"reviews.$.updatedAt": now,
		}},
	)
	if err != nil {
		r.log.Errorf("Repository: Failed to update review %s: %v", review.ID, err)
		return fmt.Errorf("could not update review: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrReviewNotFound
	}
	review.UpdatedAt = now
	return r.refreshRating(ctx, oid)
}

func (r *productRepository) DeleteReview(ctx context.Context, productID, reviewID string) error {
	oid, err := objectID(productID, domain.ErrProductNotFound)
	if err != nil {
		return err
	}
	rid, err := objectID(reviewID, domain.ErrReviewNotFound)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "reviews._id": rid},
		bson.M{"$pull": bson.M{"reviews": bson.M{"_id": rid}}},
	)
	if err != nil {
		r.log.Errorf("Repository: Failed to delete review %s: %v", reviewID, err)
		return fmt.Errorf("could not delete review: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrReviewNotFound
	}
	return r.refreshRating(ctx, oid)
}

// ratingStage rederives numReviews and ratings from the document's own review array.
var ratingStage = mongo.Pipeline{{{Key: "$set", Value: bson.D{
	{Key: "numReviews", Value: bson.M{"$size": bson.M{"$ifNull": bson.A{"$reviews", bson.A{}}}}},
	{Key: "ratings", Value: bson.M{"$ifNull": bson.A{bson.M{"$avg": "$reviews.rating"}, 0.0}}},
}}}}

func (r *productRepository) refreshRating(ctx context.Context, oid primitive.ObjectID) error {
	if _, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, ratingStage); err != nil {
		r.log.Errorf("Repository: Failed to refresh rating for product %s: %v", oid.Hex(), err)
		return fmt.Errorf("could not refresh rating: %w", err)
	}
	return nil
}
