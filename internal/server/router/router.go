package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/wellca/internal/server/handlers"
	"github.com/mamadbah2/wellca/internal/server/ws"
	"github.com/mamadbah2/wellca/internal/telemetry"
)

// New wires the Gin engine with required routes and middlewares.
func New(dash *handlers.DashboardHandler, records *handlers.RecordsHandler, hub *ws.Hub, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(zapLoggerMiddleware(logger))
	r.Use(telemetry.GinMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/forms/:category", dash.SubmitForm)
		api.POST("/calculations", dash.Calculate)

		api.GET("/reports", dash.Report)
		api.GET("/reports/current", dash.Current)
		api.GET("/reports/chart", dash.Chart)
		api.GET("/reports/chart.png", dash.ChartPNG)
		api.GET("/reports/export.xlsx", dash.Export)
		api.GET("/reports/history", dash.History)

		api.POST("/services", records.SubmitService)
		api.PUT("/records/:id", records.Update)
		api.DELETE("/records/:id", records.Delete)
		api.POST("/records/validate", records.Validate)
		api.GET("/statistics", records.Statistics)

		api.GET("/messages", dash.Messages)
	}
	r.GET("/ws/messages", hub.ServeWS())

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

// RequestIDHeader carries the correlation id of a request.
const RequestIDHeader = "X-Request-ID"

// requestIDMiddleware keeps an incoming request id or assigns a fresh one.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString("request_id")))
	}
}
