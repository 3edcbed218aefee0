package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/burgerchain/resto/internal/domain"
)

// statusFromError переводит доменную ошибку в HTTP-статус.
func statusFromError(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrOrderClosed),
		errors.Is(err, domain.ErrNameConflict),
		errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFromError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		// Внутренние детали наружу не отдаём.
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
