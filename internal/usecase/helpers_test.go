package usecase

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/FeruzyNtillah/my-e-commerce/internal/auth"
	"github.com/FeruzyNtillah/my-e-commerce/internal/cart"
	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"
	"github.com/FeruzyNtillah/my-e-commerce/internal/metrics"
	"github.com/FeruzyNtillah/my-e-commerce/internal/payment"
	"github.com/FeruzyNtillah/my-e-commerce/internal/repository/memory"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixedRandom struct{ f float64 }

func (r fixedRandom) Float64() float64 { return r.f }
func (r fixedRandom) IntN(int) int     { return 7 }

type fixture struct {
	products domain.ProductRepository
	orders   domain.OrderRepository
	users    domain.UserRepository

	stock    StockUseCase
	order    OrderUseCase
	review   ReviewUseCase
	product  ProductUseCase
	user     UserUseCase
	payments PaymentUseCase
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T, authorizer payment.Authorizer, opts OrderOptions) *fixture {
	t.Helper()
	log := quietLogger()
	m := metrics.Noop()
	f := &fixture{
		products: memory.NewProductRepository(log),
		orders:   memory.NewOrderRepository(log),
		users:    memory.NewUserRepository(log),
	}
	if opts.Pricing.TaxRate.IsZero() && opts.Pricing.FlatShipping.IsZero() {
		opts.Pricing = cart.DefaultPolicy
	}
	if authorizer == nil {
		authorizer = payment.NewSimulator(0, 1, payment.WithRandom(fixedRandom{f: 0}))
	}
	f.stock = NewStockUseCase(f.products, m, log)
	f.order = NewOrderUseCase(f.orders, f.products, f.stock, opts, m, log)
	f.review = NewReviewUseCase(f.products, f.users, m, log)
	f.product = NewProductUseCase(f.products, log)
	f.user = NewUserUseCase(f.users, auth.NewTokenManager("test-secret", time.Hour), auth.NewBcryptHasher(bcrypt.MinCost), log)
	f.payments = NewPaymentUseCase(f.order, f.users, authorizer, time.Second, m, log)
	return f
}

func (f *fixture) seedProduct(t *testing.T, name string, price float64, stock int) *domain.Product {
	t.Helper()
	p, err := f.products.CreateProduct(context.Background(), &domain.Product{
		Name:        name,
		Description: name + " description",
		Price:       price,
		Category:    domain.CategoryElectronics,
		Brand:       "Acme",
		Stock:       stock,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) seedUser(t *testing.T, name string, role domain.Role) domain.Actor {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), &domain.User{
		Name:  name,
		Email: name + "@shop.test",
		Role:  role,
	})
	require.NoError(t, err)
	return domain.Actor{UserID: u.ID, Role: u.Role}
}

func (f *fixture) stockOf(t *testing.T, id string) int {
	t.Helper()
	p, err := f.products.GetProductByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func validAddress() domain.RawAddress {
	return domain.RawAddress{
		"street":  "12 Samora Ave",
		"city":    "Dar es Salaam",
		"state":   "Dar es Salaam",
		"zipCode": "11101",
		"country": "Tanzania",
	}
}

func orderInput(method domain.PaymentMethod, lines ...domain.OrderLine) CreateOrderInput {
	items := 0.0
	for _, l := range lines {
		items += l.Price * float64(l.Quantity)
	}
	return CreateOrderInput{
		OrderLines:      lines,
		ShippingAddress: validAddress(),
		PaymentMethod:   method,
		Pricing:         domain.Pricing{ItemsPrice: items, TotalPrice: items},
	}
}

func line(p *domain.Product, qty int) domain.OrderLine {
	return domain.OrderLine{ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: qty}
}
