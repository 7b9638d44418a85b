package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smap-labs/smap-compliance-api/internal/dto"
	"github.com/smap-labs/smap-compliance-api/internal/models"
	appErrors "github.com/smap-labs/smap-compliance-api/pkg/errors"
	"github.com/smap-labs/smap-compliance-api/pkg/response"
)

type approvalService interface {
	CreateWorkflow(ctx context.Context, documentID string, approvers []string) (*models.ApprovalWorkflow, error)
	GetWorkflow(ctx context.Context, documentID string) (*models.ApprovalWorkflow, error)
	ApproveStep(ctx context.Context, documentID, stepID, userID, comments string) (*models.ApprovalWorkflow, error)
	RejectStep(ctx context.Context, documentID, stepID, userID, comments string) (*models.ApprovalWorkflow, error)
}

// ApprovalHandler exposes REST endpoints for approval workflows.
type ApprovalHandler struct {
	service approvalService
}

// NewApprovalHandler constructs the handler.
func NewApprovalHandler(service approvalService) *ApprovalHandler {
	return &ApprovalHandler{service: service}
}

// Create godoc
// @Summary Start an approval workflow
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.CreateWorkflowRequest true "Ordered approver IDs"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/workflow [post]
func (h *ApprovalHandler) Create(c *gin.Context) {
	var req dto.CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid workflow payload"))
		return
	}
	workflow, err := h.service.CreateWorkflow(c.Request.Context(), c.Param("id"), req.Approvers)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, workflow)
}

// Get godoc
// @Summary Get a document's workflow
// @Tags Approvals
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/workflow [get]
func (h *ApprovalHandler) Get(c *gin.Context) {
	workflow, err := h.service.GetWorkflow(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if workflow == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "workflow not found"))
		return
	}
	response.JSON(c, http.StatusOK, workflow, nil)
}

// Approve godoc
// @Summary Approve the current workflow step
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param stepId path string true "Step ID"
// @Param payload body dto.StepDecisionRequest false "Optional comments"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/workflow/steps/{stepId}/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.ApproveStep)
}

// Reject godoc
// @Summary Reject the current workflow step
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param stepId path string true "Step ID"
// @Param payload body dto.StepDecisionRequest true "Rejection comments"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/workflow/steps/{stepId}/reject [post]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	h.decide(c, h.service.RejectStep)
}

func (h *ApprovalHandler) decide(c *gin.Context, act func(ctx context.Context, documentID, stepID, userID, comments string) (*models.ApprovalWorkflow, error)) {
	var req dto.StepDecisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
			return
		}
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	workflow, err := act(c.Request.Context(), c.Param("id"), c.Param("stepId"), claims.UserID, req.Comments)
	if err != nil {
		// A stale document status still carries the persisted workflow.
		appErr := appErrors.FromError(err)
		if appErr.Code == appErrors.ErrDocumentStatusStale.Code && workflow != nil {
			c.JSON(appErr.Status, response.Envelope{Data: workflow, Error: appErr})
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, workflow, nil)
}
