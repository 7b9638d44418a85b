package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smap-labs/smap-compliance-api/internal/dto"
	"github.com/smap-labs/smap-compliance-api/internal/models"
	"github.com/smap-labs/smap-compliance-api/internal/service"
	appErrors "github.com/smap-labs/smap-compliance-api/pkg/errors"
	"github.com/smap-labs/smap-compliance-api/pkg/response"
)

type riskService interface {
	Create(ctx context.Context, req dto.CreateRiskRequest, userID string) (*models.Risk, error)
	Get(ctx context.Context, id string) (*models.Risk, error)
	List(ctx context.Context, filter service.RiskFilter) ([]models.Risk, error)
	Update(ctx context.Context, id string, req dto.UpdateRiskRequest, userID string) (*models.Risk, error)
	Delete(ctx context.Context, id string) error
	AddAssessment(ctx context.Context, riskID string, req dto.AddAssessmentRequest, userID string) (*models.Risk, error)
	AddMitigation(ctx context.Context, riskID string, req dto.AddMitigationRequest, userID string) (*models.Risk, error)
	UpdateMitigation(ctx context.Context, riskID, mitigationID string, req dto.UpdateMitigationRequest, userID string) (*models.Risk, error)
	GenerateReport(ctx context.Context) (*models.RiskReport, error)
}

type reportService interface {
	ExportRegister(ctx context.Context, format service.ReportFormat) ([]byte, string, error)
}

// RiskHandler exposes REST endpoints for the risk register.
type RiskHandler struct {
	risks   riskService
	reports reportService
}

// NewRiskHandler constructs the handler.
func NewRiskHandler(risks riskService, reports reportService) *RiskHandler {
	return &RiskHandler{risks: risks, reports: reports}
}

// Create godoc
// @Summary Register a new risk
// @Tags Risks
// @Accept json
// @Produce json
// @Param payload body dto.CreateRiskRequest true "Risk payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /risks [post]
func (h *RiskHandler) Create(c *gin.Context) {
	var req dto.CreateRiskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid risk payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	risk, err := h.risks.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, risk)
}

// List godoc
// @Summary List risks
// @Tags Risks
// @Produce json
// @Param level query string false "Risk level"
// @Param category query string false "Risk category"
// @Param status query string false "Risk status"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /risks [get]
func (h *RiskHandler) List(c *gin.Context) {
	filter := service.RiskFilter{
		Level:    models.RiskLevel(strings.ToLower(c.Query("level"))),
		Category: models.RiskCategory(strings.ToLower(c.Query("category"))),
		Status:   models.RiskStatus(strings.ToLower(c.Query("status"))),
	}
	risks, err := h.risks.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, risks, nil)
}

// Get godoc
// @Summary Get risk detail
// @Tags Risks
// @Produce json
// @Param id path string true "Risk ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /risks/{id} [get]
func (h *RiskHandler) Get(c *gin.Context) {
	risk, err := h.risks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, risk, nil)
}

// Update godoc
// @Summary Update risk fields
// @Tags Risks
// @Accept json
// @Produce json
// @Param id path string true "Risk ID"
// @Param payload body dto.UpdateRiskRequest true "Partial update"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /risks/{id} [patch]
func (h *RiskHandler) Update(c *gin.Context) {
	var req dto.UpdateRiskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid risk payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	risk, err := h.risks.Update(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, risk, nil)
}

// Delete godoc
// @Summary Delete a risk
// @Tags Risks
// @Param id path string true "Risk ID"
// @Success 204
// @Security BearerAuth
// @Router /risks/{id} [delete]
func (h *RiskHandler) Delete(c *gin.Context) {
	if err := h.risks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddAssessment godoc
// @Summary Score a risk
// @Tags Risks
// @Accept json
// @Produce json
// @Param id path string true "Risk ID"
// @Param payload body dto.AddAssessmentRequest true "Assessment payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /risks/{id}/assessments [post]
func (h *RiskHandler) AddAssessment(c *gin.Context) {
	var req dto.AddAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assessment payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	risk, err := h.risks.AddAssessment(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, risk, nil)
}

// AddMitigation godoc
// @Summary Plan a mitigation measure
// @Tags Risks
// @Accept json
// @Produce json
// @Param id path string true "Risk ID"
// @Param payload body dto.AddMitigationRequest true "Mitigation payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /risks/{id}/mitigations [post]
func (h *RiskHandler) AddMitigation(c *gin.Context) {
	var req dto.AddMitigationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid mitigation payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	risk, err := h.risks.AddMitigation(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, risk, nil)
}

// UpdateMitigation godoc
// @Summary Update a mitigation measure
// @Tags Risks
// @Accept json
// @Produce json
// @Param id path string true "Risk ID"
// @Param mitigationId path string true "Mitigation ID"
// @Param payload body dto.UpdateMitigationRequest true "Partial update"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /risks/{id}/mitigations/{mitigationId} [patch]
func (h *RiskHandler) UpdateMitigation(c *gin.Context) {
	var req dto.UpdateMitigationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid mitigation payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	risk, err := h.risks.UpdateMitigation(c.Request.Context(), c.Param("id"), c.Param("mitigationId"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, risk, nil)
}

// Report godoc
// @Summary Aggregate register report
// @Tags Risks
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /risks/report [get]
func (h *RiskHandler) Report(c *gin.Context) {
	report, err := h.risks.GenerateReport(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Export godoc
// @Summary Export the register as CSV or PDF
// @Tags Risks
// @Produce octet-stream
// @Param format query string true "csv or pdf"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /risks/export [get]
func (h *RiskHandler) Export(c *gin.Context) {
	if h.reports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	format, err := service.ParseReportFormat(c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	data, contentType, err := h.reports.ExportRegister(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("risk-register-%s.%s", time.Now().UTC().Format("20060102"), format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, data)
}
