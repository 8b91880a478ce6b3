package http

import (
	"net/http"

	"github.com/astro-web3/print-gateway/internal/config"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// NewRouter wires the public routes. Everything except /healthz passes
// through auth.
func NewRouter(handler *Handler, auth gin.HandlerFunc, cfg *config.Config) *gin.Engine {
	switch cfg.Server.Mode {
	case gin.ReleaseMode:
		gin.SetMode(gin.ReleaseMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	if cfg.Observability.TraceEnabled {
		router.Use(otelgin.Middleware(serviceName))
	}
	router.Use(requestIDMiddleware(), loggingMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := router.Group("/", auth)
	api.GET("/", handler.Ready)
	api.GET("/printers", handler.ListPrinters)
	api.POST("/print", handler.Print)

	return router
}
