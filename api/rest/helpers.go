package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/miyabiren/tabletop-companion/game/economy"
	"github.com/miyabiren/tabletop-companion/game/stats"
	"github.com/miyabiren/tabletop-companion/store"
)

// writeError maps domain errors onto HTTP responses. Validation failures and
// insufficient funds come back as plain 4xx messages; CAS conflicts come back
// as 409 with a retry hint, never auto-retried here.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, stats.ErrCharacterNotFound),
		errors.Is(err, stats.ErrNoSession),
		errors.Is(err, economy.ErrHolderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, stats.ErrNotOwner),
		errors.Is(err, economy.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, economy.ErrInsufficientFunds):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrStaleWrite):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "retry": true})
	case errors.Is(err, economy.ErrInternalInconsistency):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case errors.Is(err, stats.ErrCharacterRetired),
		errors.Is(err, stats.ErrBudgetExhausted),
		errors.Is(err, stats.ErrUnknownStat),
		errors.Is(err, stats.ErrBadDelta),
		errors.Is(err, stats.ErrBelowMin),
		errors.Is(err, stats.ErrBelowCommitted),
		errors.Is(err, economy.ErrBadAmount),
		errors.Is(err, economy.ErrSameHolder),
		errors.Is(err, economy.ErrUnknownKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "unique constraint")
}
