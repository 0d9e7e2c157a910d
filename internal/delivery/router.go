package delivery

import (
	"net/http"
	"time"

	"github.com/FeruzyNtillah/my-e-commerce/config"
	"github.com/FeruzyNtillah/my-e-commerce/internal/metrics"
	"github.com/FeruzyNtillah/my-e-commerce/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Services struct {
	Users    usecase.UserUseCase
	Products usecase.ProductUseCase
	Reviews  usecase.ReviewUseCase
	Orders   usecase.OrderUseCase
	Payments usecase.PaymentUseCase
}

func NewRouter(cfg *config.Config, svc Services, m *metrics.AppMetrics, logger *logrus.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(RequestLogger(logger))
	router.Use(Metrics(m))
	router.Use(CORS(cfg.CORSOrigins))

	api := router.Group("/api")
	api.Use(Authenticate(svc.Users, logger))

	production := cfg.IsProduction()
	NewUserHandler(svc.Users, logger, production).RegisterRoutes(api)
	NewProductHandler(svc.Products, svc.Reviews, logger, production).RegisterRoutes(api)
	NewOrderHandler(svc.Orders, svc.Payments, logger, production).RegisterRoutes(api)

	api.GET("/health", func(c *gin.Context) {
		SuccessResponse(c, http.StatusOK, "Server is running", gin.H{
			"environment": cfg.AppEnv,
			"storage":     cfg.StorageDriver,
			"time":        time.Now().UTC(),
		})
	})

	router.NoRoute(func(c *gin.Context) {
		ErrorResponse(c, http.StatusNotFound, "Route not found")
	})

	return router
}
