package usecase

import (
	"context"
	"fmt"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"
	"github.com/FeruzyNtillah/my-e-commerce/internal/metrics"

	"github.com/sirupsen/logrus"
)

type ReviewUseCase interface {
	AddReview(ctx context.Context, actor domain.Actor, productID string, rating int, comment string) (*domain.Product, error)
	UpdateReview(ctx context.Context, actor domain.Actor, productID, reviewID string, patch domain.ReviewPatch) (*domain.Product, error)
	DeleteReview(ctx context.Context, actor domain.Actor, productID, reviewID string) (*domain.Product, error)
}

type reviewUseCase struct {
	productRepo domain.ProductRepository
	userRepo    domain.UserRepository
	metrics     *metrics.AppMetrics
	log         *logrus.Logger
}

func NewReviewUseCase(productRepo domain.ProductRepository, userRepo domain.UserRepository, m *metrics.AppMetrics, logger *logrus.Logger) ReviewUseCase {
	return &reviewUseCase{
		productRepo: productRepo,
		userRepo:    userRepo,
		metrics:     m,
		log:         logger,
	}
}

func (uc *reviewUseCase) AddReview(ctx context.Context, actor domain.Actor, productID string, rating int, comment string) (*domain.Product, error) {
	if !actor.IsAuthenticated() {
		return nil, domain.ErrMissingToken
	}
	review := &domain.Review{UserID: actor.UserID, Rating: rating, Comment: comment}
	if err := review.Validate(); err != nil {
		return nil, err
	}
	if _, err := uc.productRepo.GetProductByID(ctx, productID); err != nil {
		uc.log.Warnf("Use Case: Review for unknown product %s: %v", productID, err)
		return nil, err
	}
	user, err := uc.userRepo.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("could not load reviewer %s: %w", actor.UserID, err)
	}
	review.Name = user.Name

	if err := uc.productRepo.AddReview(ctx, productID, review); err != nil {
		uc.log.Warnf("Use Case: Could not add review by %s to product %s: %v", actor.UserID, productID, err)
		return nil, err
	}
	uc.metrics.RecordReview(ctx, rating)
	uc.log.Infof("Use Case: Review %s added to product %s by %s", review.ID, productID, actor.UserID)
	return uc.reload(ctx, productID)
}

func (uc *reviewUseCase) UpdateReview(ctx context.Context, actor domain.Actor, productID, reviewID string, patch domain.ReviewPatch) (*domain.Product, error) {
	if !actor.IsAuthenticated() {
		return nil, domain.ErrMissingToken
	}
	product, err := uc.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	existing := product.FindReview(reviewID)
	if existing == nil {
		return nil, domain.ErrReviewNotFound
	}
	if existing.UserID != actor.UserID {
		uc.log.Warnf("Use Case: User %s attempted to edit review %s owned by %s", actor.UserID, reviewID, existing.UserID)
		return nil, domain.Forbiddenf("Not authorized to update this review")
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	updated := *existing
	if !patch.Apply(&updated) {
		return product, nil
	}
	if err := uc.productRepo.UpdateReview(ctx, productID, &updated); err != nil {
		uc.log.Warnf("Use Case: Repository failed to update review %s: %v", reviewID, err)
		return nil, err
	}
	uc.log.Infof("Use Case: Review %s on product %s updated", reviewID, productID)
	return uc.reload(ctx, productID)
}

func (uc *reviewUseCase) DeleteReview(ctx context.Context, actor domain.Actor, productID, reviewID string) (*domain.Product, error) {
	if !actor.IsAuthenticated() {
		return nil, domain.ErrMissingToken
	}
	product, err := uc.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	existing := product.FindReview(reviewID)
	if existing == nil {
		return nil, domain.ErrReviewNotFound
	}
	if existing.UserID != actor.UserID && !actor.Can(domain.CapModerateReviews) {
		uc.log.Warnf("Use Case: User %s attempted to delete review %s owned by %s", actor.UserID, reviewID, existing.UserID)
		return nil, domain.Forbiddenf("Not authorized to delete this review")
	}
	if err := uc.productRepo.DeleteReview(ctx, productID, reviewID); err != nil {
		uc.log.Warnf("Use Case: Repository failed to delete review %s: %v", reviewID, err)
		return nil, err
	}
	uc.log.Infof("Use Case: Review %s removed from product %s by %s", reviewID, productID, actor.UserID)
	return uc.reload(ctx, productID)
}

// reload returns the product as stored after a review write; the repository keeps
// rating and numReviews in step with the review list.
func (uc *reviewUseCase) reload(ctx context.Context, productID string) (*domain.Product, error) {
	product, err := uc.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("could not reload product %s: %w", productID, err)
	}
	uc.log.Debugf("Use Case: Product %s rating %.2f from %d reviews", productID, product.Rating, product.NumReviews)
	return product, nil
}
