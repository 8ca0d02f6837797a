package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dramaturge/dramaturge/pkg/engine"
	"github.com/dramaturge/dramaturge/pkg/seedstore"
	"github.com/dramaturge/dramaturge/pkg/world"
)

// mapServiceError maps engine and store errors to HTTP error responses.
func mapServiceError(c *gin.Context, err error) {
	var validErr *engine.ValidationError
	switch {
	case errors.As(err, &validErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validErr.Error()})
	case errors.Is(err, world.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "world not found"})
	case errors.Is(err, engine.ErrCharacterNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
	case errors.Is(err, engine.ErrSceneNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "scene not found"})
	case errors.Is(err, engine.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "embodiment session not found"})
	case errors.Is(err, seedstore.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "seed not found"})
	case errors.Is(err, engine.ErrThreadIndexOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": "thread index out of range"})
	case errors.Is(err, engine.ErrNoActiveScene):
		c.JSON(http.StatusConflict, gin.H{"error": "no scene is currently in progress"})
	case errors.Is(err, engine.ErrNoActiveAct):
		c.JSON(http.StatusConflict, gin.H{"error": "no act is currently in progress"})
	case errors.Is(err, world.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "resource already exists"})
	default:
		slog.Error("Unexpected service error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
