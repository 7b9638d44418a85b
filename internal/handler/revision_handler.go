package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smap-labs/smap-compliance-api/internal/dto"
	"github.com/smap-labs/smap-compliance-api/internal/models"
	appErrors "github.com/smap-labs/smap-compliance-api/pkg/errors"
	"github.com/smap-labs/smap-compliance-api/pkg/response"
)

type revisionService interface {
	CreateRevision(ctx context.Context, documentID string, req dto.CreateRevisionRequest, authorID string) (*models.DocumentRevision, error)
	ListRevisions(ctx context.Context, documentID string) ([]models.DocumentRevision, error)
	GetRevision(ctx context.Context, documentID, revisionID string) (*models.DocumentRevision, error)
	UpdateRevisionStatus(ctx context.Context, documentID, revisionID string, status models.RevisionStatus, approverID string) (*models.DocumentRevision, error)
	AddComment(ctx context.Context, documentID, revisionID, userID, content string) (*models.DocumentComment, error)
	ResolveComment(ctx context.Context, documentID, revisionID, commentID, resolverID string) (*models.DocumentComment, error)
	CompareRevisions(ctx context.Context, documentID, fromID, toID string) (*models.RevisionDiff, error)
}

// RevisionHandler exposes REST endpoints for the review revision stream.
type RevisionHandler struct {
	service revisionService
}

// NewRevisionHandler constructs the handler.
func NewRevisionHandler(service revisionService) *RevisionHandler {
	return &RevisionHandler{service: service}
}

// Create godoc
// @Summary Append a revision
// @Tags Revisions
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.CreateRevisionRequest true "Revision payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/revisions [post]
func (h *RevisionHandler) Create(c *gin.Context) {
	var req dto.CreateRevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid revision payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	revision, err := h.service.CreateRevision(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, revision)
}

// List godoc
// @Summary List a document's revisions
// @Tags Revisions
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/revisions [get]
func (h *RevisionHandler) List(c *gin.Context) {
	revisions, err := h.service.ListRevisions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, revisions, nil)
}

// Get godoc
// @Summary Get one revision
// @Tags Revisions
// @Produce json
// @Param id path string true "Document ID"
// @Param revisionId path string true "Revision ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/revisions/{revisionId} [get]
func (h *RevisionHandler) Get(c *gin.Context) {
	revision, err := h.service.GetRevision(c.Request.Context(), c.Param("id"), c.Param("revisionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if revision == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "revision not found"))
		return
	}
	response.JSON(c, http.StatusOK, revision, nil)
}

// UpdateStatus godoc
// @Summary Overwrite a revision's status
// @Tags Revisions
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param revisionId path string true "Revision ID"
// @Param payload body dto.UpdateRevisionStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/revisions/{revisionId}/status [put]
func (h *RevisionHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateRevisionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid status payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	status := models.RevisionStatus(strings.ToLower(req.Status))
	revision, err := h.service.UpdateRevisionStatus(c.Request.Context(), c.Param("id"), c.Param("revisionId"), status, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if revision == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "revision not found"))
		return
	}
	response.JSON(c, http.StatusOK, revision, nil)
}

// AddComment godoc
// @Summary Attach a comment to a revision
// @Tags Revisions
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param revisionId path string true "Revision ID"
// @Param payload body dto.AddCommentRequest true "Comment"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/revisions/{revisionId}/comments [post]
func (h *RevisionHandler) AddComment(c *gin.Context) {
	var req dto.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid comment payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	comment, err := h.service.AddComment(c.Request.Context(), c.Param("id"), c.Param("revisionId"), claims.UserID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	if comment == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "revision not found"))
		return
	}
	response.Created(c, comment)
}

// ResolveComment godoc
// @Summary Resolve a revision comment
// @Tags Revisions
// @Produce json
// @Param id path string true "Document ID"
// @Param revisionId path string true "Revision ID"
// @Param commentId path string true "Comment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/revisions/{revisionId}/comments/{commentId}/resolve [post]
func (h *RevisionHandler) ResolveComment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	comment, err := h.service.ResolveComment(c.Request.Context(), c.Param("id"), c.Param("revisionId"), c.Param("commentId"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if comment == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "comment not found"))
		return
	}
	response.JSON(c, http.StatusOK, comment, nil)
}

// Compare godoc
// @Summary Diff two revisions
// @Tags Revisions
// @Produce json
// @Param id path string true "Document ID"
// @Param from query string true "Base revision ID"
// @Param to query string true "Target revision ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/revisions/compare [get]
func (h *RevisionHandler) Compare(c *gin.Context) {
	from := strings.TrimSpace(c.Query("from"))
	to := strings.TrimSpace(c.Query("to"))
	if from == "" || to == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from and to revision ids are required"))
		return
	}
	diff, err := h.service.CompareRevisions(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, diff, nil)
}
