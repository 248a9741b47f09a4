package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"saku-backend/internal/chat"
	"saku-backend/internal/connectors"
	"saku-backend/internal/documents"
	"saku-backend/internal/llm"
	"saku-backend/internal/llm/gemini"
	"saku-backend/internal/meetings"
	"saku-backend/internal/rag"
	"saku-backend/internal/shared/config"
	"saku-backend/internal/shared/server"
	"saku-backend/internal/shared/storage/db"
	"saku-backend/internal/shared/storage/object"
	localstore "saku-backend/internal/shared/storage/object/local"
	s3store "saku-backend/internal/shared/storage/object/s3"
	"saku-backend/internal/uploads"
)

// App holds shared dependencies wired from config.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Engine *rag.Engine
	LLM    llm.Client

	Uploads *uploads.Manager

	DocumentsRepo  documents.Repo
	MeetingsRepo   meetings.Repo
	ConnectorsRepo connectors.Repo

	DocumentsService  *documents.Service
	MeetingsService   *meetings.Service
	ConnectorsService *connectors.Service
	ChatService       *chat.Service

	DocumentsHandler  *documents.Handler
	UploadsHandler    *uploads.Handler
	MeetingsHandler   *meetings.Handler
	ConnectorsHandler *connectors.Handler
	ChatHandler       *chat.Handler
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}

	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:            app.Config,
		DocumentsHandler:  app.DocumentsHandler,
		UploadsHandler:    app.UploadsHandler,
		MeetingsHandler:   app.MeetingsHandler,
		ConnectorsHandler: app.ConnectorsHandler,
		ChatHandler:       app.ChatHandler,
	})

	return app, nil
}

// Close releases background resources held by the app.
func (a *App) Close() {
	if a.Uploads != nil {
		a.Uploads.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildIndex(app *App) rag.Index {
	var embedder rag.Embedder = rag.HashEmbedder{}
	if app.Config.EmbeddingAPIKey != "" {
		geminiEmbedder, err := gemini.NewEmbedder(app.Config.EmbeddingAPIKey, app.Config.EmbeddingModel)
		if err != nil {
			log.Printf("bootstrap: embedding client unavailable; using hash embedder: %v", err)
		} else {
			embedder = geminiEmbedder
		}
	}

	if app.DB != nil {
		return &rag.PGIndex{DB: app.DB, Embedder: embedder}
	}
	return rag.NewMemoryIndex(embedder)
}

func buildLLM(cfg config.Config) llm.Client {
	if cfg.GenAIAPIKey == "" {
		return llm.PlaceholderClient{}
	}
	client, err := gemini.NewClient(cfg.GenAIAPIKey, cfg.GenAIModel)
	if err != nil {
		log.Printf("bootstrap: generative client unavailable; answers will degrade: %v", err)
		return llm.PlaceholderClient{}
	}
	return client
}

func buildServices(app *App) {
	var docRepo documents.Repo
	var meetingRepo meetings.Repo
	var connectorRepo connectors.Repo

	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		meetingRepo = &meetings.PGRepo{DB: app.DB}
		connectorRepo = &connectors.PGRepo{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
		meetingRepo = meetings.NewMemoryRepo()
		connectorRepo = connectors.NewMemoryRepo()
	}

	app.Engine = &rag.Engine{Index: buildIndex(app)}
	app.LLM = buildLLM(app.Config)
	app.Uploads = uploads.NewManager(app.Store)

	google := connectors.NewGoogleOAuth(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
	)

	app.DocumentsRepo = docRepo
	app.MeetingsRepo = meetingRepo
	app.ConnectorsRepo = connectorRepo

	app.DocumentsService = &documents.Service{Repo: docRepo, Engine: app.Engine}
	app.MeetingsService = meetings.NewService(meetingRepo, app.Engine, app.Uploads, app.Store, app.LLM)
	app.ConnectorsService = connectors.NewService(connectorRepo, google, app.Config.FrontendURL)
	app.ChatService = &chat.Service{Engine: app.Engine, LLM: app.LLM}

	app.DocumentsHandler = documents.NewHandler(app.DocumentsService)
	app.UploadsHandler = uploads.NewHandler(app.Uploads)
	app.MeetingsHandler = meetings.NewHandler(app.MeetingsService)
	app.ConnectorsHandler = connectors.NewHandler(app.ConnectorsService)
	app.ChatHandler = chat.NewHandler(app.ChatService)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
