package documents

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"saku-backend/internal/extract"
	"saku-backend/internal/shared/server/respond"
)

const maxUploadSize = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/ingest/upload", h.uploadFile)
	rg.POST("/ingest/url", h.ingestURL)
	rg.GET("/docs", h.list)
	rg.DELETE("/docs/:id", h.remove)
}

func (h *Handler) uploadFile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	res, err := h.Svc.IngestFile(c.Request.Context(), fileHeader.Filename, mimeType, data)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput), errors.Is(err, extract.ErrNoText):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "ingest_failed", err.Error(), nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, toIngestResponse(res))
}

type ingestURLRequest struct {
	URL string `json:"url"`
}

func (h *Handler) ingestURL(c *gin.Context) {
	var req ingestURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	res, err := h.Svc.IngestURL(c.Request.Context(), req.URL)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput), errors.Is(err, extract.ErrNoText):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusBadGateway, "fetch_failed", err.Error(), nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, toIngestResponse(res))
}

func (h *Handler) list(c *gin.Context) {
	docs, err := h.Svc.List(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "list_failed", err.Error(), nil)
		return
	}

	out := make([]docResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toResponse(doc))
	}
	respond.JSON(c, http.StatusOK, gin.H{"docs": out})
}

func (h *Handler) remove(c *gin.Context) {
	id := c.Param("id")
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "delete_failed", err.Error(), nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"deleted": id})
}
