package delivery

import (
	"net/http"
	"strings"
	"time"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"
	"github.com/FeruzyNtillah/my-e-commerce/internal/metrics"
	"github.com/FeruzyNtillah/my-e-commerce/internal/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	requestIDHeader = "X-Request-ID"

	actorKey   = "actor"
	authErrKey = "authError"
)

// RequestID keeps the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		statusCode := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"status_code": statusCode,
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"remote_ip":   c.ClientIP(),
			"latency_ms":  time.Since(startTime).Milliseconds(),
			"request_id":  c.Writer.Header().Get(requestIDHeader),
		})

		switch {
		case len(c.Errors) > 0:
			entry.Error(c.Errors.ByType(gin.ErrorTypePrivate).String())
		case statusCode >= 500:
			entry.Error("Request completed with server error")
		case statusCode >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// Metrics records every request against its route template.
func Metrics(m *metrics.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Context(), c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// Authenticate resolves the bearer token, if any, into the request's actor. A bad token does
// not stop public routes; RequireAuth reports it on protected ones.
func Authenticate(users usecase.UserUseCase, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			logger.Warn("Middleware: Invalid Authorization header format")
			c.Set(authErrKey, domain.ErrInvalidToken)
			c.Next()
			return
		}

		actor, err := users.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			logger.Warnf("Middleware: Token rejected: %v", err)
			c.Set(authErrKey, err)
			c.Next()
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// RequireAuth aborts with 401 unless Authenticate produced an actor.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actorFrom(c).IsAuthenticated() {
			c.Next()
			return
		}
		msg := "Not authorized, no token"
		if v, ok := c.Get(authErrKey); ok {
			// storage failures while loading the token user are not the caller's fault
			if err, ok := v.(error); ok && mapErrorToStatus(err) == http.StatusInternalServerError {
				c.AbortWithStatusJSON(http.StatusInternalServerError, Response{Status: "Fail", Message: "Server error"})
				return
			}
			msg = "Not authorized, token failed"
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Status: "Fail", Message: msg})
	}
}

func actorFrom(c *gin.Context) domain.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(domain.Actor); ok {
			return actor
		}
	}
	return domain.Actor{}
}
