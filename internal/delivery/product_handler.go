package delivery

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"
	"github.com/FeruzyNtillah/my-e-commerce/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ProductHandler struct {
	products usecase.ProductUseCase
	reviews  usecase.ReviewUseCase
	log      *logrus.Logger
	errorReporter
}

func NewProductHandler(products usecase.ProductUseCase, reviews usecase.ReviewUseCase, logger *logrus.Logger, production bool) *ProductHandler {
	return &ProductHandler{
		products:      products,
		reviews:       reviews,
		log:           logger,
		errorReporter: errorReporter{log: logger, production: production},
	}
}

func (h *ProductHandler) RegisterRoutes(router gin.IRouter) {
	products := router.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/featured", h.FeaturedProducts)
		products.GET("/top", h.TopProducts)
		products.GET("/:id", h.GetProductByID)

		protected := products.Group("", RequireAuth())
		protected.POST("", h.CreateProduct)
		protected.PUT("/:id", h.UpdateProduct)
		protected.DELETE("/:id", h.DeleteProduct)

		protected.POST("/:id/reviews", h.AddReview)
		protected.PUT("/:id/reviews/:reviewId", h.UpdateReview)
		protected.DELETE("/:id/reviews/:reviewId", h.DeleteReview)
	}
}

type productRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Price       float64               `json:"price"`
	Images      []domain.ProductImage `json:"images"`
	Category    domain.Category       `json:"category"`
	Brand       string                `json:"brand"`
	Stock       int                   `json:"stock"`
	IsFeatured  bool                  `json:"isFeatured"`
}

type productUpdateRequest struct {
	Name        *string                `json:"name"`
	Description *string                `json:"description"`
	Price       *float64               `json:"price"`
	Images      *[]domain.ProductImage `json:"images"`
	Category    *domain.Category       `json:"category"`
	Brand       *string                `json:"brand"`
	Stock       *int                   `json:"stock"`
	IsFeatured  *bool                  `json:"isFeatured"`
}

type reviewRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "create product", err)
		return
	}

	created, err := h.products.CreateProduct(c.Request.Context(), actorFrom(c), &domain.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Images:      req.Images,
		Category:    req.Category,
		Brand:       req.Brand,
		Stock:       req.Stock,
		IsFeatured:  req.IsFeatured,
	})
	if err != nil {
		h.fail(c, "create product", err)
		return
	}

	h.log.Infof("Handler: Product created successfully: ID %s, Name %s", created.ID, created.Name)
	SuccessResponse(c, http.StatusCreated, "Product created successfully", created)
}

func (h *ProductHandler) GetProductByID(c *gin.Context) {
	product, err := h.products.GetProductByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get product", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Product retrieved successfully", product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var req productUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "update product", err)
		return
	}

	updated, err := h.products.UpdateProduct(c.Request.Context(), actorFrom(c), c.Param("id"), domain.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Images:      req.Images,
		Category:    req.Category,
		Brand:       req.Brand,
		Stock:       req.Stock,
		IsFeatured:  req.IsFeatured,
	})
	if err != nil {
		h.fail(c, "update product", err)
		return
	}

	h.log.Infof("Handler: Product updated successfully: ID %s", updated.ID)
	SuccessResponse(c, http.StatusOK, "Product updated successfully", updated)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id := c.Param("id")
	if err := h.products.DeleteProduct(c.Request.Context(), actorFrom(c), id); err != nil {
		h.fail(c, "delete product", err)
		return
	}

	h.log.Infof("Handler: Product deleted successfully: ID %s", id)
	SuccessResponse(c, http.StatusOK, "Product deleted successfully", nil)
}

func floatQuery(c *gin.Context, key string) *float64 {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseProductFilter reads the catalog query string. Unparseable numbers are ignored.
func parseProductFilter(c *gin.Context) domain.ProductFilter {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return domain.ProductFilter{
		Keyword:   c.Query("keyword"),
		Category:  domain.Category(c.Query("category")),
		Brand:     c.Query("brand"),
		MinPrice:  floatQuery(c, "minPrice"),
		MaxPrice:  floatQuery(c, "maxPrice"),
		MinRating: floatQuery(c, "minRating"),
		InStock:   c.Query("inStock") == "true",
		Featured:  c.Query("featured") == "true",
		Sort:      domain.ProductSort(c.Query("sort")),
		Page:      page,
		Limit:     limit,
	}
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	page, err := h.products.ListProducts(c.Request.Context(), parseProductFilter(c))
	if err != nil {
		h.fail(c, "list products", err)
		return
	}
	h.log.Debugf("Handler: Listed %d of %d products (page %d)", len(page.Products), page.Total, page.Page)
	SuccessResponse(c, http.StatusOK, "Products retrieved successfully", page)
}

func (h *ProductHandler) FeaturedProducts(c *gin.Context) {
	products, err := h.products.FeaturedProducts(c.Request.Context())
	if err != nil {
		h.fail(c, "list featured products", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Featured products retrieved successfully", products)
}

func (h *ProductHandler) TopProducts(c *gin.Context) {
	products, err := h.products.TopProducts(c.Request.Context())
	if err != nil {
		h.fail(c, "list top products", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Top products retrieved successfully", products)
}

func (h *ProductHandler) AddReview(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "add review", err)
		return
	}
	// a missing rating reaches the use case as 0 and fails its range check
	rating, comment := 0, ""
	if req.Rating != nil {
		rating = *req.Rating
	}
	if req.Comment != nil {
		comment = *req.Comment
	}

	product, err := h.reviews.AddReview(c.Request.Context(), actorFrom(c), c.Param("id"), rating, comment)
	if err != nil {
		h.fail(c, "add review", err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Review added", product)
}

func (h *ProductHandler) UpdateReview(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "update review", err)
		return
	}

	product, err := h.reviews.UpdateReview(c.Request.Context(), actorFrom(c), c.Param("id"), c.Param("reviewId"),
		domain.ReviewPatch{Rating: req.Rating, Comment: req.Comment})
	if err != nil {
		h.fail(c, "update review", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Review updated", product)
}

func (h *ProductHandler) DeleteReview(c *gin.Context) {
	product, err := h.reviews.DeleteReview(c.Request.Context(), actorFrom(c), c.Param("id"), c.Param("reviewId"))
	if err != nil {
		h.fail(c, "delete review", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Review removed", product)
}
