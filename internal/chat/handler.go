package chat

import (
	"errors"
	"net/http"
	"strconv"

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

// RegisterRoutes attaches search and chat routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/search", h.search)
	rg.POST("/chat", h.chat)
}

type searchRequest struct {
	Query string `json:"query" form:"query"`
	K     string `json:"k" form:"k"`
}

func (h *Handler) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBind(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	topK := 0
	if req.K != "" {
		k, err := strconv.Atoi(req.K)
		if err != nil || k < 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "k must be a non-negative integer", nil)
			return
		}
		topK = k
	}

	citations, err := h.Svc.Search(c.Request.Context(), req.Query, topK)
	if err != nil {
		respond.Error(c, http.StatusBadGateway, "search_failed", err.Error(), nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"results": citations})
}

type chatRequest struct {
	Message string `json:"message" form:"message"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBind(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	answer, err := h.Svc.Chat(c.Request.Context(), req.Message)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyMessage):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusBadGateway, "chat_failed", err.Error(), nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, answer)
}
