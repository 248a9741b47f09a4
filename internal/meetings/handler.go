package meetings

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

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

// RegisterRoutes attaches meeting routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/meetings", h.create)
	rg.GET("/meetings", h.list)
	rg.GET("/meetings/:id", h.get)
	rg.PATCH("/meetings/:id", h.patch)
	rg.DELETE("/meetings/:id", h.remove)

	rg.POST("/meetings/:id/upload-url", h.uploadURL)
	rg.POST("/meetings/:id/recording", h.attachRecording)
	rg.POST("/meetings/:id/transcribe", h.transcribe)
	rg.DELETE("/meetings/:id/transcript", h.deleteTranscript)

	rg.POST("/meetings/:id/insights/run", h.runInsights)
	rg.GET("/meetings/:id/insights", h.getInsights)
	rg.PATCH("/meetings/:id/insights", h.editInsights)

	rg.POST("/meetings/:id/notes", h.addNote)
	rg.DELETE("/meetings/:id/notes/:childId", h.deleteNote)
	rg.POST("/meetings/:id/agenda", h.addAgendaItem)
	rg.DELETE("/meetings/:id/agenda/:childId", h.deleteAgendaItem)
	rg.POST("/meetings/:id/actions", h.addAction)
	rg.PATCH("/meetings/:id/actions/:childId", h.updateAction)
	rg.DELETE("/meetings/:id/actions/:childId", h.deleteAction)
}

func (h *Handler) create(c *gin.Context) {
	var in CreateInput
	if isJSON(c) {
		var req createRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
		in = CreateInput{
			Title:        req.Title,
			Provider:     req.Provider,
			Date:         req.Date,
			Owner:        req.Owner,
			Tags:         req.Tags,
			Participants: req.Participants,
		}
	} else {
		in = CreateInput{
			Title:        c.PostForm("title"),
			Provider:     c.PostForm("provider"),
			Date:         c.PostForm("date"),
			Owner:        c.PostForm("owner"),
			Tags:         parseJSONList(c.PostForm("tags")),
			Participants: parseJSONList(c.PostForm("participants")),
		}
	}

	m, err := h.Svc.Create(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, m)
}

func (h *Handler) list(c *gin.Context) {
	filter := SearchFilter{
		Query:       c.Query("q"),
		Provider:    c.Query("provider"),
		DateFrom:    c.Query("from"),
		DateTo:      c.Query("to"),
		Participant: c.Query("participant"),
	}
	if tags := c.Query("tags"); tags != "" {
		filter.Tags = strings.Split(tags, ",")
	}

	result, err := h.Svc.Search(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"meetings": result})
}

func (h *Handler) get(c *gin.Context) {
	m, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"meeting": m})
}

func (h *Handler) patch(c *gin.Context) {
	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	m, err := h.Svc.Patch(c.Request.Context(), c.Param("id"), PatchInput(req))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"meeting": m})
}

func (h *Handler) remove(c *gin.Context) {
	id := c.Param("id")
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) uploadURL(c *gin.Context) {
	var req uploadURLRequest
	if err := c.ShouldBind(&req); err != nil || req.FileName == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "filename is required", nil)
		return
	}

	res, err := h.Svc.UploadURL(c.Request.Context(), c.Param("id"), req.FileName, req.ContentType)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{
		"uploadUrl":        res.UploadURL,
		"objectUri":        res.ObjectURI,
		"expiresInSeconds": res.ExpiresInSeconds,
	})
}

func (h *Handler) attachRecording(c *gin.Context) {
	var req recordingRequest
	if err := c.ShouldBind(&req); err != nil || strings.TrimSpace(req.ObjectURI) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "objectUri is required", nil)
		return
	}

	m, err := h.Svc.AttachRecording(c.Request.Context(), c.Param("id"), req.ObjectURI)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"recording": m.Recording})
}

func (h *Handler) transcribe(c *gin.Context) {
	m, err := h.Svc.Transcribe(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{
		"transcriptDocId": m.Recording.TranscriptDocID,
		"recording":       m.Recording,
	})
}

func (h *Handler) deleteTranscript(c *gin.Context) {
	m, err := h.Svc.DeleteTranscript(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"recording": m.Recording})
}

func (h *Handler) runInsights(c *gin.Context) {
	insights, err := h.Svc.RunInsights(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"insights": insights})
}

func (h *Handler) getInsights(c *gin.Context) {
	insights, err := h.Svc.GetInsights(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"insights": insights})
}

func (h *Handler) editInsights(c *gin.Context) {
	var req insightsEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	insights, err := h.Svc.EditInsights(c.Request.Context(), c.Param("id"), InsightsEdit(req))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"insights": insights})
}

func (h *Handler) addNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBind(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	note, err := h.Svc.AddNote(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, gin.H{"note": note})
}

func (h *Handler) deleteNote(c *gin.Context) {
	if err := h.Svc.DeleteNote(c.Request.Context(), c.Param("id"), c.Param("childId")); err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"deleted": c.Param("childId")})
}

func (h *Handler) addAgendaItem(c *gin.Context) {
	var req agendaRequest
	if err := c.ShouldBind(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	item, err := h.Svc.AddAgendaItem(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, gin.H{"item": item})
}

func (h *Handler) deleteAgendaItem(c *gin.Context) {
	if err := h.Svc.DeleteAgendaItem(c.Request.Context(), c.Param("id"), c.Param("childId")); err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"deleted": c.Param("childId")})
}

func (h *Handler) addAction(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBind(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	action, err := h.Svc.AddAction(c.Request.Context(), c.Param("id"), ActionInput(req))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, gin.H{"action": action})
}

func (h *Handler) updateAction(c *gin.Context) {
	var req actionPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	action, err := h.Svc.UpdateAction(c.Request.Context(), c.Param("id"), c.Param("childId"), ActionPatch(req))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"action": action})
}

func (h *Handler) deleteAction(c *gin.Context) {
	if err := h.Svc.DeleteAction(c.Request.Context(), c.Param("id"), c.Param("childId")); err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"deleted": c.Param("childId")})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNoRecording):
		respond.Error(c, http.StatusBadRequest, "no_recording", err.Error(), nil)
	case errors.Is(err, ErrInvalidState):
		respond.Error(c, http.StatusConflict, "invalid_state", err.Error(), nil)
	case errors.Is(err, ErrVersionConflict):
		respond.Error(c, http.StatusConflict, "conflict", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", err.Error(), nil)
	}
}

func isJSON(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "application/json")
}

// parseJSONList decodes a JSON array string from a form field; a bare value
// becomes a single-element list.
func parseJSONList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list
	}
	return []string{raw}
}
