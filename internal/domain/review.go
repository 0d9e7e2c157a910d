package domain

import (
	"strings"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"user"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return Validationf("Rating must be between %d and %d", MinRating, MaxRating)
	}
	return nil
}

// Validate checks a review about to be created.
func (r *Review) Validate() error {
	if err := ValidateRating(r.Rating); err != nil {
		return err
	}
	r.Comment = strings.TrimSpace(r.Comment)
	if r.Comment == "" {
		return Validationf("Please add a comment")
	}
	return nil
}

// ReviewPatch carries the fields of a review edit; nil means untouched and an empty
// comment is ignored.
type ReviewPatch struct {
	Rating  *int
	Comment *string
}

func (p ReviewPatch) Validate() error {
	if p.Rating != nil {
		return ValidateRating(*p.Rating)
	}
	return nil
}

// Apply copies the supplied fields onto r and reports whether anything changed.
func (p ReviewPatch) Apply(r *Review) bool {
	changed := false
	if p.Rating != nil && *p.Rating != r.Rating {
		r.Rating = *p.Rating
		changed = true
	}
	if p.Comment != nil {
		if c := strings.TrimSpace(*p.Comment); c != "" && c != r.Comment {
			r.Comment = c
			changed = true
		}
	}
	return changed
}

// AggregateRatings returns the arithmetic mean of the ratings and the review count.
// An empty list has rating 0.
func AggregateRatings(reviews []Review) (float64, int) {
	if len(reviews) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews)), len(reviews)
}
