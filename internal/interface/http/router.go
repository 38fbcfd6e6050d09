package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkoval/ragchat/internal/domain/session"
	"github.com/dkoval/ragchat/internal/infra/config"
	"github.com/dkoval/ragchat/internal/interface/web"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, sessionSvc *session.Service) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(handler.logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger),
		errorHandlingMiddleware(handler.logger),
	)

	router.GET("/healthz", handler.Healthz)

	api := router.Group("/api/v1")
	{
		api.POST("/sessions", handler.CreateSession)
		api.GET("/models", handler.ListModels)
		api.POST("/models/activate", handler.ActivateModel)

		authed := api.Group("")
		authed.Use(sessionMiddleware(sessionSvc))
		{
			authed.POST("/chat", handler.Chat)
			authed.POST("/chat/stream", handler.ChatStream)
			authed.GET("/history", handler.GetHistory)
			authed.DELETE("/history", handler.ClearHistory)
			authed.GET("/status", handler.Status)
			authed.POST("/reset", handler.Reset)
			authed.POST("/documents", handler.UploadDocument)
			authed.GET("/documents", handler.ListDocuments)
			authed.GET("/documents/:id", handler.GetDocument)
		}
	}

	// The bundled web client is served for everything outside the API.
	static := web.Static()
	router.NoRoute(func(c *gin.Context) {
		c.FileFromFS(c.Request.URL.Path, static)
	})

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, handler.logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
