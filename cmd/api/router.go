package main

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yourusername/videotube/internal/auth"
	"github.com/yourusername/videotube/internal/config"
	"github.com/yourusername/videotube/internal/logging"
	"github.com/yourusername/videotube/internal/metrics"
)

// newRouter は Gin ルーターを初期化し、ミドルウェアとルートを配線します。
func newRouter(cfg *config.Config, logger *zap.Logger, d *deps) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = 8 << 20

	router.Use(
		gin.Recovery(),
		logging.RequestLogger(logger),
		metrics.Middleware(),
	)

	// CORSミドルウェアの設定（Cookie を送るため AllowCredentials が必要）
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"Authorization",
	}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	router.Use(cors.New(corsConfig))

	setupRoutes(router, cfg, logger, d)
	return router
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "videotube-api",
		"version": "0.1.0",
	})
}

// setupRoutes は API グループと認証周りの配線を行います。
func setupRoutes(router *gin.Engine, cfg *config.Config, logger *zap.Logger, d *deps) {
	router.GET("/health", handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if d.mediaDir != "" {
		router.Static("/media", d.mediaDir)
	}

	handlerOpts := auth.Options{
		CookieSecure: cfg.CookieSecure,
		Logger:       logger.Named("auth"),
	}
	if d.cleanup != nil {
		handlerOpts.Discarder = d.cleanup
	}
	handler := auth.NewHandler(d.store, d.issuer, d.uploader, handlerOpts)

	api := router.Group("/api/v1")
	{
		users := api.Group("/users")
		users.POST("/register", handler.Register)
		users.POST("/login", handler.Login)
		users.POST("/logout", auth.RequireAuth(d.issuer, d.store), handler.Logout)
	}
}
