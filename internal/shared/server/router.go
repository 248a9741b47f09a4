package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"saku-backend/internal/chat"
	"saku-backend/internal/connectors"
	"saku-backend/internal/documents"
	"saku-backend/internal/meetings"
	"saku-backend/internal/shared/config"
	"saku-backend/internal/shared/metrics"
	"saku-backend/internal/shared/server/middleware"
	"saku-backend/internal/shared/server/respond"
	"saku-backend/internal/uploads"
)

// RouterDeps lists the handlers the router mounts.
type RouterDeps struct {
	Config            config.Config
	DocumentsHandler  *documents.Handler
	UploadsHandler    *uploads.Handler
	MeetingsHandler   *meetings.Handler
	ConnectorsHandler *connectors.Handler
	ChatHandler       *chat.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/health", healthHandler)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler)
	deps.DocumentsHandler.RegisterRoutes(api)
	deps.UploadsHandler.RegisterRoutes(api)
	deps.MeetingsHandler.RegisterRoutes(api)
	deps.ConnectorsHandler.RegisterRoutes(api)
	deps.ChatHandler.RegisterRoutes(api)

	return r
}

func healthHandler(c *gin.Context) {
	respond.JSON(c, http.StatusOK, gin.H{"ok": true})
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8000"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
