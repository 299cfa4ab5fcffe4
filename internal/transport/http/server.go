package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/campushub/campushub-server/internal/auth"
	"github.com/campushub/campushub-server/internal/config"
	"github.com/campushub/campushub-server/internal/realtime"
	"github.com/campushub/campushub-server/internal/store"
)

// NewServer builds the HTTP server: REST API plus the WebSocket endpoint.
func NewServer(cfg config.Config, authService *auth.Service, st store.Store, reg *realtime.Registry, router *realtime.Router, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))

	engine.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	apiHandlers := NewAPIHandlers(authService, logger)
	channelHandlers := NewChannelHandlers(st, reg, logger)
	wsHandler := NewWSHandler(authService, reg, router, cfg.WSFrameLimit, logger)

	api := engine.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	authorized := api.Group("", AuthMiddleware(authService, logger))
	authorized.POST("/channels", channelHandlers.CreateChannel)
	authorized.GET("/channels", channelHandlers.ListChannels)
	authorized.POST("/channels/:id/join", channelHandlers.JoinChannel)
	authorized.POST("/channels/:id/leave", channelHandlers.LeaveChannel)
	authorized.GET("/channels/:id/messages", channelHandlers.ListMessages)
	authorized.GET("/channels/:id/online", channelHandlers.OnlineUsers)
	authorized.GET("/channels/:id/typing", channelHandlers.TypingUsers)

	engine.GET("/ws", wsHandler.Handle)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
