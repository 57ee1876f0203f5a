package http

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cartgenie/backend/internal/domain"
	"github.com/cartgenie/backend/internal/logger"
)

const (
	msgInvalidRequest  = "Invalid request payload."
	msgMalformedOutput = "Invalid response format from AI processing."
	msgInternalError   = "An internal error occurred while processing your request."
)

// CartOptimizer runs the optimization pipeline for one cart
type CartOptimizer interface {
	Optimize(ctx context.Context, cart *domain.Cart) (*domain.OptimizationResult, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	optimizer CartOptimizer
	log       *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(optimizer CartOptimizer, log *zap.Logger) *Handler {
	return &Handler{optimizer: optimizer, log: logger.OrNop(log)}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "cartgenie-backend",
		"version": "1.0.0",
	})
}

// OptimizeCart validates the cart and returns the savings plan.
// Internal error detail is logged, never returned.
func (h *Handler) OptimizeCart(c *gin.Context) {
	var req domain.OptimizeCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   msgInvalidRequest,
			"details": validationDetails(err),
		})
		return
	}

	result, err := h.optimizer.Optimize(c.Request.Context(), req.ToCart())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidRequest})
		case errors.Is(err, domain.ErrMalformedOutput):
			h.log.Error("pipeline returned malformed output", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgMalformedOutput})
		default:
			h.log.Error("cart optimization failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternalError})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// validationDetails maps each invalid field (by JSON path) to the rule it broke.
// Body decoding errors are reported under "body".
func validationDetails(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": err.Error()}
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		details[field] = rule
	}
	return details
}

// jsonFieldName makes validation errors use JSON names instead of Go field names
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}
