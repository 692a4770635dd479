package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"drawing_tracker/internal/models"
	"drawing_tracker/internal/repository"
	"drawing_tracker/internal/services"
)

// Cache is the slice of the redis client the handlers need: dropping a day
// bucket after a manual mutation and fetching cached scan reports. The
// redis.Client satisfies it.
type Cache interface {
	InvalidateDayBucket(date string) error
	GetScanReport(batchID string, dest interface{}) error
}

type APIHandler struct {
	relationshipRepo repository.RelationshipRepository
	reconcileService services.ReconcileService
	statusService    services.StatusService
	userService      services.UserService
	cache            Cache
}

func NewAPIHandler(
	relationshipRepo repository.RelationshipRepository,
	reconcileService services.ReconcileService,
	statusService services.StatusService,
	userService services.UserService,
	cache Cache,
) *APIHandler {
	return &APIHandler{
		relationshipRepo: relationshipRepo,
		reconcileService: reconcileService,
		statusService:    statusService,
		userService:      userService,
		cache:            cache,
	}
}

func (h *APIHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/orders/:order_number/relationship", h.GetRelationshipByOrder)
	api.GET("/relationships/:id", h.GetRelationship)
	api.GET("/relationships/:id/history", h.GetHistory)
	api.POST("/relationships/:id/pdf", h.AttachPDF)
	api.DELETE("/relationships/:id/pdf", h.ClearPDF)
	api.POST("/relationships/:id/archive", h.ArchivePDF)
	api.POST("/relationships/:id/processed", h.MarkProcessed)
	api.DELETE("/relationships/:id/processed", h.UnmarkProcessed)
	api.GET("/calendar", h.GetCalendar)
	api.POST("/scan", h.RunScan)
	api.GET("/scan/:batch_id", h.GetScanReport)
}

func (h *APIHandler) GetRelationshipByOrder(c *gin.Context) {
	orderNumber := c.Param("order_number")

	rel, err := h.relationshipRepo.FindByOrderNumber(orderNumber)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rel == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active relationship for order " + orderNumber})
		return
	}

	c.JSON(http.StatusOK, rel)
}

func (h *APIHandler) GetRelationship(c *gin.Context) {
	id, ok := h.relationshipID(c)
	if !ok {
		return
	}

	rel, err := h.relationshipRepo.GetByID(id)
	if err != nil {
		h.relationshipError(c, err)
		return
	}
	c.JSON(http.StatusOK, rel)
}

func (h *APIHandler) GetHistory(c *gin.Context) {
	id, ok := h.relationshipID(c)
	if !ok {
		return
	}

	history, err := h.relationshipRepo.History(id)
	if err != nil {
		h.relationshipError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// AttachPDF is the manual resolution path for drawings the extractor could
// not place; the change is recorded with reason manual_attachment.
func (h *APIHandler) AttachPDF(c *gin.Context) {
	id, ok := h.relationshipID(c)
	if !ok {
		return
	}

	var req struct {
		Path string `json:"path" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	rel, err := h.relationshipRepo.AttachPDF(id, req.Path, models.ReasonManualAttachment)
	if err != nil {
		h.relationshipError(c, err)
		return
	}
	h.invalidateBucket(rel)
	c.JSON(http.StatusOK, rel)
}

func (h *APIHandler) ClearPDF(c *gin.Context) {
	id, ok := h.relationshipID(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = string(models.ReasonManualAttachment)
	}

	rel, err := h.relationshipRepo.ClearPDF(id, models.ChangeReason(req.Reason))
	if err != nil {
		h.relationshipError(c, err)
		return
	}
	h.invalidateBucket(rel)
	c.JSON(http.StatusOK, rel)
}

func (h *APIHandler) ArchivePDF(c *gin.Context) {
	id, ok := h.relationshipID(c)
	if !ok {
		return
	}

	var req struct {
		ArchivePath *string `json:"archive_path"`
		Reason      string  `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if req.Reason == "" {
		req.Reason = "archived"
	}

	rel, err := h.relationshipRepo.ArchivePDF(id, req.ArchivePath, models.ChangeReason(req.Reason))
	if err != nil {
		h.relationshipError(c, err)
		return
	}
	h.invalidateBucket(rel)
	c.JSON(http.StatusOK, rel)
}

func (h *APIHandler) MarkProcessed(c *gin.Context) {
	id, ok := h.relationshipID(c)
	if !ok {
		return
	}

	rel, err := h.relationshipRepo.MarkProcessed(id)
	if err != nil {
		h.relationshipError(c, err)
		return
	}
	h.invalidateBucket(rel)
	c.JSON(http.StatusOK, rel)
}

// UnmarkProcessed reverts a processed flag. Administrative credentials are
// required; this is the only way the flag ever goes back to false.
func (h *APIHandler) UnmarkProcessed(c *gin.Context) {
	id, ok := h.relationshipID(c)
	if !ok {
		return
	}

	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		Reason   string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.userService.AuthenticateAdmin(req.Username, req.Password); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	if req.Reason == "" {
		req.Reason = "administrative revert"
	}
	rel, err := h.relationshipRepo.UnmarkProcessed(id, models.ChangeReason(req.Reason))
	if err != nil {
		h.relationshipError(c, err)
		return
	}
	h.invalidateBucket(rel)
	c.JSON(http.StatusOK, rel)
}

func (h *APIHandler) GetCalendar(c *gin.Context) {
	start, err := time.Parse("2006-01-02", c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be YYYY-MM-DD"})
		return
	}
	end, err := time.Parse("2006-01-02", c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be YYYY-MM-DD"})
		return
	}

	buckets, err := h.statusService.Calendar(start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, buckets)
}

func (h *APIHandler) RunScan(c *gin.Context) {
	report, err := h.reconcileService.ScanAndReconcile()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *APIHandler) GetScanReport(c *gin.Context) {
	batchID := c.Param("batch_id")

	if h.cache == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan report not found"})
		return
	}

	var report services.ScanReport
	if err := h.cache.GetScanReport(batchID, &report); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan report not found"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// invalidateBucket drops the cached calendar bucket the mutation touched, so
// the next read recomputes it instead of serving a stale count for the rest
// of the cache TTL.
func (h *APIHandler) invalidateBucket(rel *models.Relationship) {
	if h.cache == nil || rel == nil || rel.DateRequired.IsZero() {
		return
	}
	_ = h.cache.InvalidateDayBucket(rel.DateRequired.UTC().Format("2006-01-02"))
}

func (h *APIHandler) relationshipID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid relationship id"})
		return 0, false
	}
	return uint(id), true
}

func (h *APIHandler) relationshipError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrRelationshipNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
