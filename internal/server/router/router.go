package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmdiary/internal/server/handlers"
	"github.com/mamadbah2/farmdiary/internal/server/views"
)

// New wires the Gin engine with required routes and middlewares. storeErr is
// the startup connection error, reported by the health check.
func New(pages *handlers.DiaryHandler, api *handlers.APIHandler, storeErr error, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))
	r.SetHTMLTemplate(views.Templates())

	r.GET("/", pages.ShowForm)
	r.POST("/", pages.SubmitForm)
	r.GET("/records", pages.Records)
	r.GET("/records.csv", pages.ExportCSV)

	apiGroup := r.Group("/api")
	apiGroup.GET("/records", api.ListRecords)
	apiGroup.POST("/records", api.CreateRecord)
	apiGroup.GET("/summary", api.Summary)
	apiGroup.POST("/records/analysis", api.Analyze)

	r.GET("/healthz", func(c *gin.Context) {
		if storeErr != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": storeErr.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
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
			zap.String("client_ip", c.ClientIP()))
	}
}
