package httpserver

import (
	"errors"
	"net/http"

	"storefront-api/internal/domain"
	"github.com/gin-gonic/gin"
)

func errStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPaymentNotSucceeded):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientInventory), errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := errStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	c.JSON(status, gin.H{"message": msg})
}
