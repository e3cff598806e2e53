package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/domain"
	"github.com/pressmill/pressmill/internal/usecase"
)

// TriggerHandler handles HTTP requests that start workflows.
type TriggerHandler struct {
	triggerUC *usecase.TriggerUsecase
	logger    *zap.Logger
}

// NewTriggerHandler creates a new TriggerHandler.
func NewTriggerHandler(triggerUC *usecase.TriggerUsecase, logger *zap.Logger) *TriggerHandler {
	return &TriggerHandler{
		triggerUC: triggerUC,
		logger:    logger,
	}
}

// ProvisionSite handles POST /api/v1/sites/provision
func (h *TriggerHandler) ProvisionSite(c *gin.Context) {
	var payload domain.ProvisionSitePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if payload.SiteID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "siteId is required"})
		return
	}

	resp, err := h.triggerUC.ProvisionSite(c.Request.Context(), &payload)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSlug):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Subdomain must be 3-63 lowercase alphanumeric characters or hyphens"})
		case errors.Is(err, domain.ErrSlugTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "Subdomain is already taken"})
		default:
			h.respondTriggerError(c, "provision site", err)
		}
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// AnalyzeProduct handles POST /api/v1/products/analyze
func (h *TriggerHandler) AnalyzeProduct(c *gin.Context) {
	var payload domain.AnalyzeProductPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if payload.ProductID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId is required"})
		return
	}
	if payload.Mode == domain.AnalyzeModeURL && payload.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required when mode is url"})
		return
	}

	resp, err := h.triggerUC.AnalyzeProduct(c.Request.Context(), &payload)
	if err != nil {
		h.respondTriggerError(c, "analyze product", err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// GenerateArticle handles POST /api/v1/articles/generate
func (h *TriggerHandler) GenerateArticle(c *gin.Context) {
	var payload domain.GenerateArticlePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if payload.ArticleID == uuid.Nil || payload.ProductID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "articleId and productId are required"})
		return
	}

	resp, err := h.triggerUC.GenerateArticle(c.Request.Context(), &payload)
	if err != nil {
		h.respondTriggerError(c, "generate article", err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// SyncPublish handles POST /api/v1/publish
func (h *TriggerHandler) SyncPublish(c *gin.Context) {
	var payload domain.PublishSyncPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if payload.ArticleID == uuid.Nil || payload.SiteID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "articleId and siteId are required"})
		return
	}
	switch payload.Action {
	case domain.PublishActionCreate, domain.PublishActionUpdate, domain.PublishActionDelete:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be one of: create, update, delete"})
		return
	}

	resp, err := h.triggerUC.SyncPublish(c.Request.Context(), &payload)
	if err != nil {
		h.respondTriggerError(c, "sync publish", err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// GetJob handles GET /api/v1/jobs/:id
func (h *TriggerHandler) GetJob(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job ID format"})
		return
	}

	job, err := h.triggerUC.GetJob(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		h.logger.Error("Get job failed", zap.Error(err), zap.String("job_id", idStr))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// CheckAvailability handles GET /api/v1/sites/availability?slug=
func (h *TriggerHandler) CheckAvailability(c *gin.Context) {
	slug := c.Query("slug")
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slug query parameter is required"})
		return
	}

	available, err := h.triggerUC.CheckAvailability(c.Request.Context(), slug)
	if err != nil {
		h.logger.Error("Check availability failed", zap.Error(err), zap.String("slug", slug))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"slug": slug, "available": available})
}

func (h *TriggerHandler) respondTriggerError(c *gin.Context, action string, err error) {
	if errors.Is(err, domain.ErrPublishFailed) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
		return
	}
	h.logger.Error("Trigger failed", zap.String("action", action), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
