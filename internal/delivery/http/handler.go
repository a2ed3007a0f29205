package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cavtal/backend/internal/domain"
	"github.com/cavtal/backend/internal/usecase"
)

// BatchProcessor runs the two-stage pipeline synchronously.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, communityID string, items []domain.BatchItem) []domain.ResultRecord
}

// BatchQueue enqueues batch jobs and serves their stored results.
type BatchQueue interface {
	Enqueue(ctx context.Context, job domain.BatchJob) error
	FetchResult(ctx context.Context, batchID string) (domain.BatchResult, error)
}

// AddressChecker validates a delivery address against a claimed community.
type AddressChecker interface {
	Validate(ctx context.Context, address, community string) (usecase.AddressValidation, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	pipeline  BatchProcessor
	queue     BatchQueue
	validator AddressChecker
}

// NewHandler creates a new HTTP handler. queue and validator may be nil when
// the deployment runs without Redis or geocoding; the affected endpoints then
// answer 503.
func NewHandler(pipeline BatchProcessor, queue BatchQueue, validator AddressChecker) *Handler {
	return &Handler{
		pipeline:  pipeline,
		queue:     queue,
		validator: validator,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "cavtal-backend",
		"version": "1.0.0",
	})
}

type predictRequest struct {
	CommunityID string             `json:"community_id" binding:"required"`
	Products    []domain.BatchItem `json:"products" binding:"required"`
}

// Predict resolves a batch synchronously and returns the records inline.
func (h *Handler) Predict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "community_id and products are required"})
		return
	}

	records := h.pipeline.ProcessBatch(c.Request.Context(), req.CommunityID, req.Products)

	c.JSON(http.StatusOK, gin.H{
		"community_id": req.CommunityID,
		"products":     records,
	})
}

type createBatchRequest struct {
	CartID      string             `json:"cart_id" binding:"required"`
	CommunityID string             `json:"community_id" binding:"required"`
	Items       []domain.BatchItem `json:"items" binding:"required"`
}

// CreateBatch enqueues a batch for asynchronous processing and returns the
// id to poll.
func (h *Handler) CreateBatch(c *gin.Context) {
	if h.queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "batch processing is not available"})
		return
	}

	var req createBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cart_id, community_id and items are required"})
		return
	}

	job := domain.BatchJob{
		BatchID:     uuid.NewString(),
		CartID:      req.CartID,
		CommunityID: req.CommunityID,
		Items:       req.Items,
	}
	if err := h.queue.Enqueue(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue batch"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"batch_id": job.BatchID,
		"status":   "queued",
	})
}

// GetBatch polls for a batch result. A batch with no stored result yet is
// reported as still processing; an unknown id looks the same to the caller.
func (h *Handler) GetBatch(c *gin.Context) {
	if h.queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "batch processing is not available"})
		return
	}

	batchID := c.Param("id")

	result, err := h.queue.FetchResult(c.Request.Context(), batchID)
	if errors.Is(err, domain.ErrBatchNotFound) {
		c.JSON(http.StatusAccepted, gin.H{
			"batch_id": batchID,
			"status":   "processing",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch batch result"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batch_id": batchID,
		"status":   "complete",
		"cart_id":  result.CartID,
		"products": result.Products,
	})
}

type validateAddressRequest struct {
	Address   string `json:"address" binding:"required"`
	Community string `json:"community" binding:"required"`
}

// ValidateAddress checks that a delivery address lies in the claimed
// community.
func (h *Handler) ValidateAddress(c *gin.Context) {
	if h.validator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "address validation is not available"})
		return
	}

	var req validateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address and community are required"})
		return
	}

	result, err := h.validator.Validate(c.Request.Context(), req.Address, req.Community)
	if errors.Is(err, domain.ErrInvalidRequest) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "address lookup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":              result.Valid,
		"resolved_community": result.ResolvedCommunity,
	})
}
