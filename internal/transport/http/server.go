package http

import (
	stdhttp "net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/groupchat-server/internal/auth"
	"github.com/vovakirdan/groupchat-server/internal/config"
	"github.com/vovakirdan/groupchat-server/internal/metrics"
)

// NewServer builds the HTTP server: REST API, WebSocket endpoint, health, metrics and static files.
func NewServer(hub Hub, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(hub, authService, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewHandler builds the routed handler wrapped in CORS.
func NewHandler(hub Hub, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger), MetricsMiddleware())

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, WSOptions{
		MaxMessageBytes:    cfg.MaxMessageBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AllowedOrigins:     cfg.AllowedOrigins,
	}, logger)))

	apiHandlers := NewAPIHandlers(authService, logger)
	userHandlers := NewUserHandlers(authService, cfg.JWTRequired, logger)

	api := router.Group("/api", BodyLimitMiddleware(cfg.MaxBodyBytes))
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)
	if cfg.JWTRequired {
		api.POST("/updateProfile", AuthMiddleware(authService, logger), userHandlers.UpdateProfile)
	} else {
		api.POST("/updateProfile", userHandlers.UpdateProfile)
	}

	if cfg.StaticDir != "" {
		router.NoRoute(staticHandler(cfg.StaticDir))
	}

	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{stdhttp.MethodGet, stdhttp.MethodPost, stdhttp.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
	}).Handler(router)
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

// staticHandler serves files from dir and falls back to index.html for unknown paths.
func staticHandler(dir string) gin.HandlerFunc {
	fs := stdhttp.Dir(dir)
	fileServer := stdhttp.FileServer(fs)
	return func(c *gin.Context) {
		if c.Request.Method != stdhttp.MethodGet && c.Request.Method != stdhttp.MethodHead {
			c.JSON(stdhttp.StatusNotFound, ErrorResponse{Msg: "not found"})
			return
		}
		path := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(c.Request.URL.Path, "/")))
		if info, err := os.Stat(path); err != nil || info.IsDir() && !hasIndex(path) {
			c.File(filepath.Join(dir, "index.html"))
			return
		}
		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}

func hasIndex(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "index.html"))
	return err == nil
}
