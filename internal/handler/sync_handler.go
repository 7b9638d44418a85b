package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smap-labs/smap-compliance-api/internal/dto"
	"github.com/smap-labs/smap-compliance-api/internal/models"
	appErrors "github.com/smap-labs/smap-compliance-api/pkg/errors"
	"github.com/smap-labs/smap-compliance-api/pkg/response"
)

type syncService interface {
	Enqueue(ctx context.Context, action models.SyncAction, entity models.SyncEntity, data json.RawMessage) (*models.SyncItem, error)
	Pending(ctx context.Context) ([]models.SyncItem, error)
	MarkSynced(ctx context.Context, id string) (bool, error)
	DrainAll(ctx context.Context) (models.DrainResult, error)
}

// SyncHandler exposes REST endpoints for the offline sync queue.
type SyncHandler struct {
	service syncService
}

// NewSyncHandler constructs the handler.
func NewSyncHandler(service syncService) *SyncHandler {
	return &SyncHandler{service: service}
}

// Enqueue godoc
// @Summary Queue a local mutation for replay
// @Tags Sync
// @Accept json
// @Produce json
// @Param payload body dto.EnqueueSyncRequest true "Queued mutation"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /sync/queue [post]
func (h *SyncHandler) Enqueue(c *gin.Context) {
	var req dto.EnqueueSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid sync payload"))
		return
	}
	item, err := h.service.Enqueue(c.Request.Context(), models.SyncAction(req.Action), models.SyncEntity(req.Entity), req.Data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Pending godoc
// @Summary List pending queue items
// @Tags Sync
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sync/queue [get]
func (h *SyncHandler) Pending(c *gin.Context) {
	items, err := h.service.Pending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	count := len(items)
	response.JSON(c, http.StatusOK, items, nil, map[string]interface{}{"pending": count})
}

// MarkSynced godoc
// @Summary Mark one queue item as synced
// @Tags Sync
// @Produce json
// @Param id path string true "Queue item ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sync/queue/{id}/synced [post]
func (h *SyncHandler) MarkSynced(c *gin.Context) {
	found, err := h.service.MarkSynced(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !found {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "queue item not found"))
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"synced": true}, nil)
}

// Drain godoc
// @Summary Replay all pending queue items
// @Tags Sync
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sync/drain [post]
func (h *SyncHandler) Drain(c *gin.Context) {
	result, err := h.service.DrainAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
