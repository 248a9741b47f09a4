package connectors

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"saku-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches connector routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/connectors", h.list)
	rg.POST("/connectors/toggle", h.toggle)
	rg.GET("/connectors/:key/auth-url", h.authURL)
	rg.GET("/connectors/:key/callback", h.callback)
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"connectors": list})
}

type toggleRequest struct {
	Key string `json:"key"`
}

func (h *Handler) toggle(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Key == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "key is required", nil)
		return
	}

	connector, err := h.Svc.Toggle(c.Request.Context(), req.Key)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"connector": connector})
}

func (h *Handler) authURL(c *gin.Context) {
	authURL, state, err := h.Svc.AuthURL(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"url": authURL, "state": state})
}

func (h *Handler) callback(c *gin.Context) {
	redirect, err := h.Svc.Callback(c.Request.Context(), c.Param("key"), c.Query("state"), c.Query("code"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, redirect)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	if errors.Is(err, ErrUnknown) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unknown connector", nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", err.Error(), nil)
}
