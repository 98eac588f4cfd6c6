package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/opportunity-ingestor/internal/logger"
	"github.com/jonesrussell/opportunity-ingestor/internal/repository"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type OpportunityHandler struct {
	repo   *repository.OpportunityRepository
	logger logger.Logger
}

func NewOpportunityHandler(repo *repository.OpportunityRepository, log logger.Logger) *OpportunityHandler {
	return &OpportunityHandler{
		repo:   repo,
		logger: log,
	}
}

// List returns a page of opportunities. Query params: limit, offset, sort_by,
// sort_order, search, type, sector.
func (h *OpportunityHandler) List(c *gin.Context) {
	filter := repository.ListFilter{
		Limit:     queryInt(c, "limit", defaultPageLimit),
		Offset:    queryInt(c, "offset", 0),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Search:    c.Query("search"),
		Type:      c.Query("type"),
		Sector:    c.Query("sector"),
	}
	if filter.Limit < 1 || filter.Limit > maxPageLimit {
		filter.Limit = defaultPageLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	total, err := h.repo.Count(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to count opportunities",
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list opportunities"})
		return
	}

	opportunities, err := h.repo.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list opportunities",
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list opportunities"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"opportunities": opportunities,
		"count":         len(opportunities),
		"total":         total,
		"limit":         filter.Limit,
		"offset":        filter.Offset,
	})
}

func (h *OpportunityHandler) GetByID(c *gin.Context) {
	id := c.Param("id")

	opportunity, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Opportunity not found"})
			return
		}
		h.logger.Error("Failed to get opportunity",
			logger.String("opportunity_id", id),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get opportunity"})
		return
	}

	c.JSON(http.StatusOK, opportunity)
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
