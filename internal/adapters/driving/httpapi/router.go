package httpapi

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/custodia-labs/clause/internal/logger"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestIDMiddleware tags every request with an id, reusing the caller's
// X-Request-ID when present.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// LoggingMiddleware logs one line per request through the shared logger.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.With(logger.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"request_id": c.GetString(requestIDKey),
		})
		if c.Writer.Status() >= 500 {
			entry.Warn("request")
			return
		}
		entry.Debug("request")
	}
}

// TimeoutMiddleware bounds the request context. Zero disables it.
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// NewRouter builds the engine with middleware and all routes registered.
func NewRouter(api *API, requestTimeout time.Duration) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware())
	RegisterRoutes(router, api, requestTimeout)
	return router
}

// RegisterRoutes registers the API routes on router.
func RegisterRoutes(router *gin.Engine, api *API, requestTimeout time.Duration) {
	router.GET("/", api.RootHandler)
	router.GET("/health", api.HealthHandler)
	router.GET("/variables", api.VariablesHandler)
	router.GET("/runs", api.RunsHandler)

	work := router.Group("/")
	work.Use(TimeoutMiddleware(requestTimeout))
	{
		work.POST("/upload", api.UploadHandler)
		work.POST("/tag", api.TagHandler)
	}

	docs := router.Group("/documents")
	docs.Use(TimeoutMiddleware(requestTimeout))
	{
		docs.GET("", api.DocumentsHandler)
		docs.GET("/:id", api.DocumentHandler)
		docs.POST("/:id/extract", api.ExtractHandler)
		docs.GET("/:id/query/:variable", api.QueryHandler)
		docs.POST("/:id/embeddings", api.EmbeddingsHandler)
	}
}
