package delivery

import (
	"net/http"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"
	"github.com/FeruzyNtillah/my-e-commerce/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type OrderHandler struct {
	orders   usecase.OrderUseCase
	payments usecase.PaymentUseCase
	log      *logrus.Logger
	errorReporter
}

func NewOrderHandler(orders usecase.OrderUseCase, payments usecase.PaymentUseCase, logger *logrus.Logger, production bool) *OrderHandler {
	return &OrderHandler{
		orders:        orders,
		payments:      payments,
		log:           logger,
		errorReporter: errorReporter{log: logger, production: production},
	}
}

func (h *OrderHandler) RegisterRoutes(router gin.IRouter) {
	orders := router.Group("/orders")
	{
		orders.POST("/quote", h.Quote)

		protected := orders.Group("", RequireAuth())
		protected.POST("", h.CreateOrder)
		protected.GET("", h.ListAllOrders)
		protected.GET("/myorders", h.ListMyOrders)
		protected.GET("/:id", h.GetOrderByID)
		protected.PUT("/:id/pay", h.MarkPaid)
		protected.POST("/:id/pay/mobile", h.PayWithMobile)
		protected.PUT("/:id/status", h.SetStatus)
		protected.DELETE("/:id", h.DeleteOrder)
	}

	router.GET("/payments/providers", h.ListProviders)
}

type createOrderRequest struct {
	OrderItems      []domain.OrderLine   `json:"orderItems"`
	ShippingAddress domain.RawAddress    `json:"shippingAddress"`
	PaymentMethod   domain.PaymentMethod `json:"paymentMethod"`
	ItemsPrice      float64              `json:"itemsPrice"`
	TaxPrice        float64              `json:"taxPrice"`
	ShippingPrice   float64              `json:"shippingPrice"`
	TotalPrice      float64              `json:"totalPrice"`
}

type quoteRequest struct {
	OrderItems []usecase.QuoteItem `json:"orderItems"`
}

type statusRequest struct {
	OrderStatus domain.OrderStatus `json:"orderStatus" binding:"required"`
}

type mobilePaymentRequest struct {
	Provider    string `json:"provider" binding:"required"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "create order", err)
		return
	}

	actor := actorFrom(c)
	h.log.Infof("Handler: Handling CreateOrder for user %s with %d items", actor.UserID, len(req.OrderItems))
	order, err := h.orders.CreateOrder(c.Request.Context(), actor, usecase.CreateOrderInput{
		OrderLines:      req.OrderItems,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Pricing: domain.Pricing{
			ItemsPrice:    req.ItemsPrice,
			TaxPrice:      req.TaxPrice,
			ShippingPrice: req.ShippingPrice,
			TotalPrice:    req.TotalPrice,
		},
	})
	if err != nil {
		h.fail(c, "create order", err)
		return
	}

	h.log.Infof("Handler: Order created successfully: ID %s", order.ID)
	SuccessResponse(c, http.StatusCreated, "Order created successfully", order)
}

func (h *OrderHandler) Quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "quote", err)
		return
	}

	quote, err := h.orders.Quote(c.Request.Context(), req.OrderItems)
	if err != nil {
		h.fail(c, "quote", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Quote calculated", quote)
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	order, err := h.orders.GetOrderByID(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, "get order", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Order retrieved successfully", order)
}

func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	limit, offset := pagination(c)
	orders, err := h.orders.ListMyOrders(c.Request.Context(), actorFrom(c), limit, offset)
	if err != nil {
		h.fail(c, "list my orders", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Orders retrieved successfully", orders)
}

func (h *OrderHandler) ListAllOrders(c *gin.Context) {
	limit, offset := pagination(c)
	orders, err := h.orders.ListAllOrders(c.Request.Context(), actorFrom(c), limit, offset)
	if err != nil {
		h.fail(c, "list orders", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Orders retrieved successfully", orders)
}

// MarkPaid records a payment result the client obtained on its own.
func (h *OrderHandler) MarkPaid(c *gin.Context) {
	var result domain.PaymentResult
	if err := c.ShouldBindJSON(&result); err != nil {
		h.badRequest(c, "mark order paid", err)
		return
	}

	order, err := h.orders.MarkPaid(c.Request.Context(), actorFrom(c), c.Param("id"), result)
	if err != nil {
		h.fail(c, "mark order paid", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Order marked as paid", order)
}

func (h *OrderHandler) PayWithMobile(c *gin.Context) {
	var req mobilePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "mobile payment", err)
		return
	}

	res, err := h.payments.PayWithMobile(c.Request.Context(), actorFrom(c), c.Param("id"), req.Provider, req.PhoneNumber)
	if err != nil {
		h.fail(c, "mobile payment", err)
		return
	}
	SuccessResponse(c, http.StatusOK, res.Receipt.Message, res)
}

func (h *OrderHandler) SetStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "update order status", err)
		return
	}

	order, err := h.orders.SetStatus(c.Request.Context(), actorFrom(c), c.Param("id"), req.OrderStatus)
	if err != nil {
		h.fail(c, "update order status", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Order status updated", order)
}

func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id := c.Param("id")
	if err := h.orders.DeleteOrder(c.Request.Context(), actorFrom(c), id); err != nil {
		h.fail(c, "delete order", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Order deleted successfully", nil)
}

func (h *OrderHandler) ListProviders(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, "Payment providers retrieved successfully", h.payments.Providers())
}
