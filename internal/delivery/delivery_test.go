package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/FeruzyNtillah/my-e-commerce/config"
	"github.com/FeruzyNtillah/my-e-commerce/internal/auth"
	"github.com/FeruzyNtillah/my-e-commerce/internal/cart"
	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"
	"github.com/FeruzyNtillah/my-e-commerce/internal/metrics"
	"github.com/FeruzyNtillah/my-e-commerce/internal/payment"
	"github.com/FeruzyNtillah/my-e-commerce/internal/repository/memory"
	"github.com/FeruzyNtillah/my-e-commerce/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixedRandom struct{ f float64 }

func (r fixedRandom) Float64() float64 { return r.f }
func (r fixedRandom) IntN(int) int     { return 3 }

type envelope struct {
	Status  string
	Message string
	Data    json.RawMessage
}

type testServer struct {
	router   *gin.Engine
	products domain.ProductRepository
	users    usecase.UserUseCase
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestServer(t *testing.T, successDraw float64) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := quietLogger()
	m := metrics.Noop()

	products := memory.NewProductRepository(log)
	orders := memory.NewOrderRepository(log)
	users := memory.NewUserRepository(log)

	stock := usecase.NewStockUseCase(products, m, log)
	orderUC := usecase.NewOrderUseCase(orders, products, stock, usecase.OrderOptions{Pricing: cart.DefaultPolicy}, m, log)
	userUC := usecase.NewUserUseCase(users, auth.NewTokenManager("test-secret", time.Hour), auth.NewBcryptHasher(bcrypt.MinCost), log)
	sim := payment.NewSimulator(0, 0.9, payment.WithRandom(fixedRandom{f: successDraw}))

	cfg := &config.Config{AppEnv: "test", StorageDriver: config.DriverMemory, CORSOrigins: []string{"http://localhost:3000"}}
	router := NewRouter(cfg, Services{
		Users:    userUC,
		Products: usecase.NewProductUseCase(products, log),
		Reviews:  usecase.NewReviewUseCase(products, users, m, log),
		Orders:   orderUC,
		Payments: usecase.NewPaymentUseCase(orderUC, users, sim, time.Second, m, log),
	}, m, log)

	return &testServer{router: router, products: products, users: userUC}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func (s *testServer) register(t *testing.T, name string) (string, string) {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": name, "email": strings.ToLower(name) + "@shop.test", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)
	var res usecase.AuthResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res.Token, res.User.ID
}

func (s *testServer) admin(t *testing.T) string {
	t.Helper()
	_, err := s.users.EnsureAdmin(context.Background(), "Admin", "admin@shop.test", "admin-pass")
	require.NoError(t, err)
	rec, env := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "admin@shop.test", "password": "admin-pass"})
	require.Equal(t, http.StatusOK, rec.Code, env.Message)
	var res usecase.AuthResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res.Token
}

func (s *testServer) seedProduct(t *testing.T, name string, price float64, stock int) *domain.Product {
	t.Helper()
	p, err := s.products.CreateProduct(context.Background(), &domain.Product{
		Name: name, Description: name, Price: price, Category: domain.CategoryHomeGarden, Brand: "Acme", Stock: stock,
	})
	require.NoError(t, err)
	return p
}

func orderBody(p *domain.Product, qty int, method domain.PaymentMethod) gin.H {
	total := p.Price * float64(qty)
	return gin.H{
		"orderItems": []gin.H{{"product": p.ID, "name": p.Name, "price": p.Price, "quantity": qty}},
		"shippingAddress": gin.H{
			"street": "12 Samora Ave", "city": "Dar es Salaam", "region": "Dar es Salaam",
			"postalCode": "11101", "country": "Tanzania",
		},
		"paymentMethod": method,
		"itemsPrice":    total,
		"totalPrice":    total,
	}
}

func TestHealthAndRequestID(t *testing.T) {
	s := newTestServer(t, 0)

	rec, env := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Success", env.Status)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))

	rec, env = s.do(t, http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Fail", env.Status)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, 0)
	token, id := s.register(t, "Asha")

	rec, env := s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me domain.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, id, me.ID)
	assert.NotContains(t, string(env.Data), "password")

	rec, env = s.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authorized, no token", env.Message)

	rec, env = s.do(t, http.MethodGet, "/api/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authorized, token failed", env.Message)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"name": "Again", "email": "asha@shop.test", "password": "secret123"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "asha@shop.test", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env = s.do(t, http.MethodPost, "/api/auth/login", "", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Message, "Invalid request body")

	rec, env = s.do(t, http.MethodPut, "/api/auth/updateprofile", token, gin.H{"phone": "0712345678"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "Asha", me.Name)
	assert.Equal(t, "0712345678", me.Phone)

	rec, _ = s.do(t, http.MethodPut, "/api/auth/updatepassword", token, gin.H{"currentPassword": "nope", "newPassword": "another1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = s.do(t, http.MethodPut, "/api/auth/updatepassword", token, gin.H{"currentPassword": "secret123", "newPassword": "another1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCatalogRoutes(t *testing.T) {
	s := newTestServer(t, 0)
	admin := s.admin(t)
	user, _ := s.register(t, "Juma")

	body := gin.H{"name": "Lamp", "description": "Warm light", "price": 20, "category": "Home & Garden", "brand": "Acme", "stock": 4, "isFeatured": true}

	rec, _ := s.do(t, http.MethodPost, "/api/products", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = s.do(t, http.MethodPost, "/api/products", user, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := s.do(t, http.MethodPost, "/api/products", admin, body)
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)
	var created domain.Product
	require.NoError(t, json.Unmarshal(env.Data, &created))

	rec, env = s.do(t, http.MethodPost, "/api/products", admin, gin.H{"name": "Bad", "description": "x", "category": "Toys", "brand": "b"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please select a valid category", env.Message)

	rec, env = s.do(t, http.MethodGet, "/api/products/featured", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var featured []domain.Product
	require.NoError(t, json.Unmarshal(env.Data, &featured))
	require.Len(t, featured, 1)
	assert.Equal(t, created.ID, featured[0].ID)

	rec, env = s.do(t, http.MethodGet, "/api/products?keyword=lamp&minPrice=10&maxPrice=abc&limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page usecase.ProductPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.Page)

	rec, env = s.do(t, http.MethodPut, "/api/products/"+created.ID, admin, gin.H{"price": 25.5})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated domain.Product
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, 25.5, updated.Price)
	assert.Equal(t, "Lamp", updated.Name)

	rec, _ = s.do(t, http.MethodDelete, "/api/products/"+created.ID, admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/api/products/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReviewRoutes(t *testing.T) {
	s := newTestServer(t, 0)
	p := s.seedProduct(t, "Kettle", 30, 3)
	token, _ := s.register(t, "Neema")
	path := "/api/products/" + p.ID + "/reviews"

	rec, env := s.do(t, http.MethodPost, path, token, gin.H{"rating": 4, "comment": "Boils fast"})
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)
	var reviewed domain.Product
	require.NoError(t, json.Unmarshal(env.Data, &reviewed))
	assert.Equal(t, 1, reviewed.NumReviews)
	assert.Equal(t, 4.0, reviewed.Rating)

	rec, _ = s.do(t, http.MethodPost, path, token, gin.H{"rating": 2, "comment": "Again"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(t, http.MethodPost, path, token, gin.H{"rating": 9, "comment": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	reviewID := reviewed.Reviews[0].ID
	rec, env = s.do(t, http.MethodPut, path+"/"+reviewID, token, gin.H{"rating": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &reviewed))
	assert.Equal(t, 2.0, reviewed.Rating)
	assert.Equal(t, "Boils fast", reviewed.Reviews[0].Comment)

	rec, env = s.do(t, http.MethodDelete, path+"/"+reviewID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &reviewed))
	assert.Zero(t, reviewed.NumReviews)
	assert.Zero(t, reviewed.Rating)
}

func TestOrderRoutes(t *testing.T) {
	s := newTestServer(t, 0)
	p := s.seedProduct(t, "Lamp", 20, 3)
	buyer, buyerID := s.register(t, "Asha")
	other, _ := s.register(t, "Juma")
	admin := s.admin(t)

	rec, env := s.do(t, http.MethodPost, "/api/orders", buyer, orderBody(p, 2, domain.PaymentMobileMoney))
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)
	var order domain.Order
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, buyerID, order.UserID)
	assert.Equal(t, domain.StatusProcessing, order.Status)
	assert.False(t, order.IsPaid)
	assert.Equal(t, "11101", order.ShippingAddress.ZipCode)
	assert.Equal(t, "Dar es Salaam", order.ShippingAddress.State)

	rec, env = s.do(t, http.MethodPost, "/api/orders", buyer, orderBody(p, 2, domain.PaymentMobileMoney))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Message, "Lamp")

	missing := &domain.Product{ID: "missing", Name: "Ghost", Price: 5}
	rec, _ = s.do(t, http.MethodPost, "/api/orders", buyer, orderBody(missing, 1, domain.PaymentMobileMoney))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	empty := orderBody(p, 1, domain.PaymentMobileMoney)
	empty["orderItems"] = []gin.H{}
	rec, _ = s.do(t, http.MethodPost, "/api/orders", buyer, empty)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/orders/"+order.ID, other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/api/orders/"+order.ID, admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/api/orders/myorders", buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []domain.Order
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	assert.Len(t, mine, 1)

	rec, _ = s.do(t, http.MethodGet, "/api/orders", buyer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/api/orders", admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/orders/"+order.ID+"/pay/mobile", buyer, gin.H{"provider": "mpesa", "phoneNumber": "255712345678"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = s.do(t, http.MethodPost, "/api/orders/"+order.ID+"/pay/mobile", buyer, gin.H{"provider": "mpesa", "phoneNumber": "0712345678"})
	require.Equal(t, http.StatusOK, rec.Code, env.Message)
	assert.Equal(t, payment.SuccessMessage, env.Message)
	var paid usecase.MobilePayment
	require.NoError(t, json.Unmarshal(env.Data, &paid))
	assert.True(t, paid.Order.IsPaid)
	assert.Equal(t, "+255712345678", paid.Receipt.PhoneNumber)

	rec, _ = s.do(t, http.MethodPut, "/api/orders/"+order.ID+"/pay", buyer, gin.H{"id": "PAY-1", "status": "COMPLETED"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(t, http.MethodPut, "/api/orders/"+order.ID+"/status", admin, gin.H{"orderStatus": "Lost"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, env = s.do(t, http.MethodPut, "/api/orders/"+order.ID+"/status", admin, gin.H{"orderStatus": "Delivered"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.True(t, order.IsDelivered)

	rec, _ = s.do(t, http.MethodDelete, "/api/orders/"+order.ID, buyer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = s.do(t, http.MethodDelete, "/api/orders/"+order.ID, admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientReportedPayment(t *testing.T) {
	s := newTestServer(t, 0)
	p := s.seedProduct(t, "Lamp", 20, 3)
	buyer, _ := s.register(t, "Asha")
	other, _ := s.register(t, "Juma")

	_, env := s.do(t, http.MethodPost, "/api/orders", buyer, orderBody(p, 1, domain.PaymentCreditCard))
	var order domain.Order
	require.NoError(t, json.Unmarshal(env.Data, &order))

	result := gin.H{"id": "PAY-1", "status": "COMPLETED", "update_time": "2026-01-01T00:00:00Z", "email_address": "asha@shop.test"}
	rec, _ := s.do(t, http.MethodPut, "/api/orders/"+order.ID+"/pay", other, result)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = s.do(t, http.MethodPut, "/api/orders/"+order.ID+"/pay", buyer, result)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.True(t, order.IsPaid)
	require.NotNil(t, order.PaidAt)
	assert.Equal(t, "PAY-1", order.PaymentResult.ID)
}

func TestDeclinedMobilePayment(t *testing.T) {
	s := newTestServer(t, 0.99)
	p := s.seedProduct(t, "Lamp", 20, 3)
	buyer, _ := s.register(t, "Asha")

	_, env := s.do(t, http.MethodPost, "/api/orders", buyer, orderBody(p, 1, domain.PaymentMobileMoney))
	var order domain.Order
	require.NoError(t, json.Unmarshal(env.Data, &order))

	rec, env := s.do(t, http.MethodPost, "/api/orders/"+order.ID+"/pay/mobile", buyer, gin.H{"provider": "tigo_pesa", "phoneNumber": "0652345678"})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, payment.ErrInsufficientBalance.Message, env.Message)

	rec, env = s.do(t, http.MethodGet, "/api/orders/"+order.ID, buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.False(t, order.IsPaid)
}

func TestQuoteAndProviders(t *testing.T) {
	s := newTestServer(t, 0)
	p := s.seedProduct(t, "Lamp", 20, 3)

	rec, env := s.do(t, http.MethodPost, "/api/orders/quote", "", gin.H{"orderItems": []gin.H{{"product": p.ID, "quantity": 2}}})
	require.Equal(t, http.StatusOK, rec.Code, env.Message)
	var quote usecase.Quote
	require.NoError(t, json.Unmarshal(env.Data, &quote))
	assert.Equal(t, 40.0, quote.ItemsPrice)
	assert.InDelta(t, quote.ItemsPrice+quote.TaxPrice+quote.ShippingPrice, quote.TotalPrice, 0.001)

	rec, _ = s.do(t, http.MethodPost, "/api/orders/quote", "", gin.H{"orderItems": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/api/payments/providers", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var providers []payment.Provider
	require.NoError(t, json.Unmarshal(env.Data, &providers))
	assert.Len(t, providers, 7)
}

func TestUserAdminRoutes(t *testing.T) {
	s := newTestServer(t, 0)
	admin := s.admin(t)
	user, userID := s.register(t, "Asha")

	rec, _ := s.do(t, http.MethodGet, "/api/users", user, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := s.do(t, http.MethodGet, "/api/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []domain.User
	require.NoError(t, json.Unmarshal(env.Data, &users))
	assert.Len(t, users, 2)

	rec, _ = s.do(t, http.MethodPut, "/api/users/"+userID+"/role", admin, gin.H{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, env = s.do(t, http.MethodPut, "/api/users/"+userID+"/role", admin, gin.H{"role": "admin"})
	require.Equal(t, http.StatusOK, rec.Code)
	var promoted domain.User
	require.NoError(t, json.Unmarshal(env.Data, &promoted))
	assert.Equal(t, domain.RoleAdmin, promoted.Role)

	// the role is read from storage, so the old token now carries admin rights
	rec, _ = s.do(t, http.MethodGet, "/api/users/"+userID, user, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/api/users/"+userID, admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/api/auth/me", user, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.Validationf("bad"), http.StatusBadRequest},
		{"empty order", domain.ErrEmptyOrder, http.StatusBadRequest},
		{"missing token", domain.ErrMissingToken, http.StatusUnauthorized},
		{"forbidden", domain.Forbiddenf("no"), http.StatusForbidden},
		{"order not found", domain.ErrOrderNotFound, http.StatusNotFound},
		{"product missing during reservation", &domain.StockError{ProductID: "p", Err: domain.ErrProductNotFound}, http.StatusNotFound},
		{"insufficient stock", &domain.StockError{ProductID: "p", Requested: 2, Available: 1, Err: domain.ErrInsufficientStock}, http.StatusBadRequest},
		{"declined", payment.ErrInsufficientBalance, http.StatusPaymentRequired},
		{"duplicate review", domain.ErrDuplicateReview, http.StatusConflict},
		{"already paid", fmt.Errorf("wrapped: %w", domain.ErrAlreadyPaid), http.StatusConflict},
		{"invalid transition", payment.ErrInvalidTransition, http.StatusConflict},
		{"unexpected", errors.Join(domain.ErrUnexpected, domain.ErrOrderNotFound), http.StatusInternalServerError},
		{"plain", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapErrorToStatus(tt.err))
		})
	}
}

func TestServerErrorsHideDetailsInProduction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, production := range []bool{true, false} {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		errorReporter{log: quietLogger(), production: production}.fail(c, "test", errors.New("disk on fire"))

		var env envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		if production {
			assert.Equal(t, "Server error", env.Message)
		} else {
			assert.Equal(t, "Server error: disk on fire", env.Message)
		}
	}
}
