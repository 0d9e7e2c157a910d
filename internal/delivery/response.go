package delivery

import (
	"errors"
	"net/http"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"
	"github.com/FeruzyNtillah/my-e-commerce/internal/payment"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Response struct {
	Status  string      `json:"Status"`
	Message string      `json:"Message"`
	Data    interface{} `json:"Data,omitempty"`
}

func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Status:  "Success",
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Status:  "Fail",
		Message: message,
	})
}

// mapErrorToStatus classifies err by the kinds it unwraps to. A product missing during a
// reservation is both NotFound and Stock, so NotFound is checked first.
func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnexpected):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStock):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPayment):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, payment.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorReporter writes use case failures to the client. Server errors are logged in full and
// only described to the client outside production.
type errorReporter struct {
	log        *logrus.Logger
	production bool
}

func (r errorReporter) fail(c *gin.Context, action string, err error) {
	status := mapErrorToStatus(err)
	entry := r.log.WithFields(logrus.Fields{
		"status_code": status,
		"request_id":  c.Writer.Header().Get(requestIDHeader),
	})
	if status >= http.StatusInternalServerError {
		entry.Errorf("Handler: %s failed: %v", action, err)
		msg := "Server error"
		if !r.production {
			msg += ": " + err.Error()
		}
		ErrorResponse(c, status, msg)
		return
	}
	entry.Warnf("Handler: %s rejected: %v", action, err)
	ErrorResponse(c, status, err.Error())
}

func (r errorReporter) badRequest(c *gin.Context, action string, err error) {
	r.log.Warnf("Handler: Failed to bind request for %s: %v", action, err)
	ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
}
