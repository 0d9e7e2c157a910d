package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a use case unwraps to at least one of them,
// which is what the delivery layer uses to pick a status code.
var (
	ErrValidation      = errors.New("validation error")
	ErrUnauthenticated = errors.New("authentication error")
	ErrForbidden       = errors.New("authorization error")
	ErrNotFound        = errors.New("not found")
	ErrStock           = errors.New("stock error")
	ErrPayment         = errors.New("payment error")
	ErrConflict        = errors.New("duplicate error")
	ErrUnexpected      = errors.New("unexpected error")
)

// kindError is a human-readable message classified under one or more kinds.
type kindError struct {
	msg   string
	kinds []error
}

func (e *kindError) Error() string   { return e.msg }
func (e *kindError) Unwrap() []error { return e.kinds }

func newError(msg string, kinds ...error) error {
	return &kindError{msg: msg, kinds: kinds}
}

var (
	ErrEmptyOrder         = newError("No order items", ErrValidation)
	ErrProductNotFound    = newError("Product not found", ErrNotFound, ErrStock)
	ErrInsufficientStock  = newError("Insufficient stock", ErrStock)
	ErrInconsistentStock  = newError("Stock reservation left products partially decremented", ErrUnexpected)
	ErrOrderNotFound      = newError("Order not found", ErrNotFound)
	ErrReviewNotFound     = newError("Review not found", ErrNotFound)
	ErrUserNotFound       = newError("User not found", ErrNotFound)
	ErrDuplicateReview    = newError("You have already reviewed this product", ErrConflict)
	ErrDuplicateEmail     = newError("User already exists with this email", ErrConflict)
	ErrAlreadyPaid        = newError("Order is already paid", ErrConflict)
	ErrInvalidCredentials = newError("Invalid credentials", ErrUnauthenticated)
	ErrInvalidToken       = newError("Not authorized, token failed", ErrUnauthenticated)
	ErrMissingToken       = newError("Not authorized, no token", ErrUnauthenticated)
)

// Validationf builds a validation error with a formatted message.
func Validationf(format string, args ...any) error {
	return newError(fmt.Sprintf(format, args...), ErrValidation)
}

// Forbiddenf builds an authorization error with a formatted message.
func Forbiddenf(format string, args ...any) error {
	return newError(fmt.Sprintf(format, args...), ErrForbidden)
}

// StockError reports the order line that could not be reserved.
type StockError struct {
	Line      int
	ProductID string
	Name      string
	Requested int
	Available int
	Err       error
}

func (e *StockError) Error() string {
	if errors.Is(e.Err, ErrProductNotFound) {
		name := e.Name
		if name == "" {
			name = e.ProductID
		}
		return fmt.Sprintf("Product not found: %s", name)
	}
	return fmt.Sprintf("Insufficient stock for %s. Available: %d", e.Name, e.Available)
}

func (e *StockError) Unwrap() error { return e.Err }
