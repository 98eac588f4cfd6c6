package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/opportunity-ingestor/internal/logger"
)

// ScrapeTrigger starts a scrape cycle in the background. Implemented by the
// scheduler; false means a cycle is already running.
type ScrapeTrigger interface {
	TriggerNow(ctx context.Context) bool
}

type ScrapeHandler struct {
	trigger ScrapeTrigger
	logger  logger.Logger
}

func NewScrapeHandler(trigger ScrapeTrigger, log logger.Logger) *ScrapeHandler {
	return &ScrapeHandler{
		trigger: trigger,
		logger:  log,
	}
}

// Run kicks off a scrape cycle without waiting for it. The cycle outlives
// the request, so it runs on a background context rather than the request's.
func (h *ScrapeHandler) Run(c *gin.Context) {
	if !h.trigger.TriggerNow(context.Background()) {
		c.JSON(http.StatusConflict, gin.H{"error": "A scrape cycle is already running"})
		return
	}

	h.logger.Info("Scrape cycle triggered via API",
		logger.String("client_ip", c.ClientIP()),
	)

	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}
