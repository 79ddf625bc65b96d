package server

import (
	"errors"
	"net/http"

	"party-rounds/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func writeError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// writeStoreError maps store errors onto status codes. Anything unexpected
// is logged and reported as a 500 without details.
func writeStoreError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(c, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrStale):
		writeError(c, http.StatusConflict, "stale transaction")
	case errors.Is(err, store.ErrInvalid):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrDuplicate):
		writeError(c, http.StatusConflict, "duplicate")
	default:
		log.Error().Err(err).Str("action", action).Str("path", c.FullPath()).Msg("request failed")
		writeError(c, http.StatusInternalServerError, "failed to "+action)
	}
}
