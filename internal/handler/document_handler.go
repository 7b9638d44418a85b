package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smap-labs/smap-compliance-api/internal/dto"
	"github.com/smap-labs/smap-compliance-api/internal/models"
	appErrors "github.com/smap-labs/smap-compliance-api/pkg/errors"
	"github.com/smap-labs/smap-compliance-api/pkg/response"
)

type documentService interface {
	Create(ctx context.Context, req dto.CreateDocumentRequest, userID string) (*models.Document, error)
	Get(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error)
	Update(ctx context.Context, id string, req dto.UpdateDocumentRequest, userID string) (*models.Document, error)
	Delete(ctx context.Context, id string) error
}

type versionService interface {
	CreateVersion(ctx context.Context, documentID, content, authorID, comment string) (*models.DocumentVersion, error)
	ListVersions(ctx context.Context, documentID string) ([]models.DocumentVersion, error)
	GetVersion(ctx context.Context, documentID string, number int) (*models.DocumentVersion, error)
}

// DocumentHandler exposes REST endpoints for controlled documents and their
// version history.
type DocumentHandler struct {
	documents documentService
	versions  versionService
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(documents documentService, versions versionService) *DocumentHandler {
	return &DocumentHandler{documents: documents, versions: versions}
}

// Create godoc
// @Summary Create a controlled document
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body dto.CreateDocumentRequest true "Document payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	var req dto.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid document payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	document, err := h.documents.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, document)
}

// List godoc
// @Summary List controlled documents
// @Tags Documents
// @Produce json
// @Param status query string false "Lifecycle status"
// @Param category query string false "Category"
// @Param owner query string false "Owner user ID"
// @Param search query string false "Title search"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	filter := models.DocumentFilter{
		Category: strings.TrimSpace(c.Query("category")),
		OwnerID:  strings.TrimSpace(c.Query("owner")),
		Search:   strings.TrimSpace(c.Query("search")),
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		filter.Status = models.DocumentStatus(strings.ToLower(rawStatus))
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		filter.Offset = offset
	}
	documents, err := h.documents.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, documents, nil)
}

// Get godoc
// @Summary Get document detail
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	document, err := h.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, document, nil)
}

// Update godoc
// @Summary Update document fields
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.UpdateDocumentRequest true "Partial update"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id} [patch]
func (h *DocumentHandler) Update(c *gin.Context) {
	var req dto.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid document payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	document, err := h.documents.Update(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, document, nil)
}

// Delete godoc
// @Summary Delete a document
// @Tags Documents
// @Param id path string true "Document ID"
// @Success 204
// @Security BearerAuth
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.documents.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateVersion godoc
// @Summary Save a new content snapshot
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.CreateVersionRequest true "Snapshot payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/versions [post]
func (h *DocumentHandler) CreateVersion(c *gin.Context) {
	var req dto.CreateVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid version payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	version, err := h.versions.CreateVersion(c.Request.Context(), c.Param("id"), req.Content, claims.UserID, req.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, version)
}

// ListVersions godoc
// @Summary List a document's snapshots
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/versions [get]
func (h *DocumentHandler) ListVersions(c *gin.Context) {
	versions, err := h.versions.ListVersions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, versions, nil)
}

// GetVersion godoc
// @Summary Get one snapshot by number
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Param number path int true "Version number"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/versions/{number} [get]
func (h *DocumentHandler) GetVersion(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "version number must be an integer"))
		return
	}
	version, err := h.versions.GetVersion(c.Request.Context(), c.Param("id"), number)
	if err != nil {
		response.Error(c, err)
		return
	}
	if version == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "version not found"))
		return
	}
	response.JSON(c, http.StatusOK, version, nil)
}
