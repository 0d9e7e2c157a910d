package domain

import (
	"context"
	"math"
	"strings"
	"time"
)

type OrderStatus string

const (
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

func IsValidStatus(status OrderStatus) bool {
	switch status {
	case StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

type PaymentMethod string

const (
	PaymentCreditCard     PaymentMethod = "Credit Card"
	PaymentPayPal         PaymentMethod = "PayPal"
	PaymentCashOnDelivery PaymentMethod = "Cash on Delivery"
	PaymentMobileMoney    PaymentMethod = "Mobile Money"
	PaymentMobileBanking  PaymentMethod = "Mobile Banking"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCreditCard, PaymentPayPal, PaymentCashOnDelivery, PaymentMobileMoney, PaymentMobileBanking:
		return true
	default:
		return false
	}
}

// OrderLine is a snapshot of a product as it was ordered.
type OrderLine struct {
	ProductID string  `json:"product" bson:"product"`
	Name      string  `json:"name" bson:"name"`
	Image     string  `json:"image,omitempty" bson:"image,omitempty"`
	Price     float64 `json:"price" bson:"price"`
	Quantity  int     `json:"quantity" bson:"quantity"`
}

type PaymentResult struct {
	ID           string `json:"id" bson:"id"`
	Status       string `json:"status" bson:"status"`
	UpdateTime   string `json:"update_time" bson:"update_time"`
	EmailAddress string `json:"email_address" bson:"email_address"`
	Provider     string `json:"provider,omitempty" bson:"provider,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty" bson:"phone_number,omitempty"`
}

type Pricing struct {
	ItemsPrice    float64 `json:"itemsPrice"`
	TaxPrice      float64 `json:"taxPrice"`
	ShippingPrice float64 `json:"shippingPrice"`
	TotalPrice    float64 `json:"totalPrice"`
}

func (p Pricing) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"itemsPrice", p.ItemsPrice},
		{"taxPrice", p.TaxPrice},
		{"shippingPrice", p.ShippingPrice},
		{"totalPrice", p.TotalPrice},
	} {
		if f.value < 0 || math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return Validationf("%s cannot be negative", f.name)
		}
	}
	return nil
}

// Drift is how far totalPrice is from the sum of its components.
func (p Pricing) Drift() float64 {
	return math.Abs(p.TotalPrice - (p.ItemsPrice + p.TaxPrice + p.ShippingPrice))
}

type Order struct {
	ID              string          `json:"_id"`
	UserID          string          `json:"user"`
	OrderLines      []OrderLine     `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	PaymentResult   *PaymentResult  `json:"paymentResult,omitempty"`
	Pricing
	IsPaid      bool        `json:"isPaid"`
	PaidAt      *time.Time  `json:"paidAt,omitempty"`
	IsDelivered bool        `json:"isDelivered"`
	DeliveredAt *time.Time  `json:"deliveredAt,omitempty"`
	Status      OrderStatus `json:"orderStatus"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

func (o *Order) IsOwnedBy(userID string) bool {
	return userID != "" && o.UserID == userID
}

// ValidateLines checks each line of an order request.
func ValidateLines(lines []OrderLine) error {
	if len(lines) == 0 {
		return ErrEmptyOrder
	}
	for i, line := range lines {
		if strings.TrimSpace(line.ProductID) == "" {
			return Validationf("item %d: product is required", i)
		}
		if strings.TrimSpace(line.Name) == "" {
			return Validationf("item %d (product %s): name is required", i, line.ProductID)
		}
		if line.Quantity < 1 {
			return Validationf("item %d (product %s): quantity must be at least 1", i, line.ProductID)
		}
		if line.Price < 0 {
			return Validationf("item %d (product %s): price cannot be negative", i, line.ProductID)
		}
	}
	return nil
}

const (
	DefaultOrderPageSize = 50
	MaxOrderPageSize     = 100
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *Order) (*Order, error)
	GetOrderByID(ctx context.Context, id string) (*Order, error)
	// ListOrdersByUserID and ListOrders return newest first.
	ListOrdersByUserID(ctx context.Context, userID string, limit, offset int) ([]Order, error)
	ListOrders(ctx context.Context, limit, offset int) ([]Order, error)
	// MarkPaid updates only an unpaid order; a paid one yields ErrAlreadyPaid.
	MarkPaid(ctx context.Context, id string, result PaymentResult, paidAt time.Time) (*Order, error)
	// UpdateStatus sets the status; a non-nil deliveredAt also marks the order delivered.
	UpdateStatus(ctx context.Context, id string, status OrderStatus, deliveredAt *time.Time) (*Order, error)
	DeleteOrder(ctx context.Context, id string) error
}
