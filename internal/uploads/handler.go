package uploads

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"saku-backend/internal/shared/server/respond"
)

const maxRecordingBytes = 200 << 20 // 200MB

// Handler serves the local upload consumption endpoint.
type Handler struct {
	Manager *Manager
}

// NewHandler constructs a Handler.
func NewHandler(m *Manager) *Handler {
	return &Handler{Manager: m}
}

// RegisterRoutes attaches the token-consuming upload route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PUT("/uploads/:token", h.consume)
}

func (h *Handler) consume(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRecordingBytes)

	token := c.Param("token")
	objectURI, info, err := h.Manager.Consume(c.Request.Context(), token, c.Request.Body)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "upload token not found", nil)
		case errors.Is(err, ErrTokenExpired):
			respond.Error(c, http.StatusGone, "token_expired", "upload token expired", nil)
		case errors.Is(err, ErrTokenConsumed):
			respond.Error(c, http.StatusConflict, "token_consumed", "upload token already consumed", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "upload_failed", err.Error(), nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{
		"objectUri": objectURI,
		"size":      info.Size,
	})
}
