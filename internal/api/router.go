// Package api assembles the gin router and its middleware.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/opportunity-ingestor/internal/handlers"
	"github.com/jonesrussell/opportunity-ingestor/internal/logger"
	"github.com/jonesrussell/opportunity-ingestor/internal/repository"
)

const (
	corsMaxAgeHours = 12
)

// Deps are the collaborators the router's handlers need.
type Deps struct {
	Opportunities *repository.OpportunityRepository
	Sources       *repository.SourceRepository
	Trigger       handlers.ScrapeTrigger
	CORSOrigins   []string
	Logger        logger.Logger
}

func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()

	// CORS middleware - must be first
	router.Use(cors.New(cors.Config{
		AllowOrigins: deps.CORSOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Content-Length", "Accept-Encoding",
			"X-CSRF-Token", "Authorization", "accept", "origin",
			"Cache-Control", "X-Requested-With",
		},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           corsMaxAgeHours * time.Hour,
	}))

	// Middleware
	router.Use(ginLogger(deps.Logger))
	router.Use(gin.Recovery())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1
	v1 := router.Group("/api/v1")
	opportunityHandler := handlers.NewOpportunityHandler(deps.Opportunities, deps.Logger)
	sourceHandler := handlers.NewSourceHandler(deps.Sources, deps.Logger)

	// Opportunities endpoints (read-only; writes go through ingestion)
	opportunities := v1.Group("/opportunities")
	opportunities.GET("", opportunityHandler.List)
	opportunities.GET("/:id", opportunityHandler.GetByID)

	// Sources endpoints
	sources := v1.Group("/sources")
	sources.POST("", sourceHandler.Create)
	sources.GET("", sourceHandler.List)
	sources.GET("/:id", sourceHandler.GetByID)
	sources.PUT("/:id", sourceHandler.Update)
	sources.DELETE("/:id", sourceHandler.Delete)
	sources.POST("/import", sourceHandler.Import)

	// Manual scrape trigger
	if deps.Trigger != nil {
		scrapeHandler := handlers.NewScrapeHandler(deps.Trigger, deps.Logger)
		v1.POST("/scrape/run", scrapeHandler.Run)
	}

	return router
}

func ginLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		log.Info("HTTP request",
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status_code", statusCode),
			logger.String("client_ip", c.ClientIP()),
			logger.Duration("duration", duration),
		)
	}
}
