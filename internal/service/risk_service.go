package service

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smap-labs/smap-compliance-api/internal/dto"
	"github.com/smap-labs/smap-compliance-api/internal/models"
	appErrors "github.com/smap-labs/smap-compliance-api/pkg/errors"
)

type riskRepository interface {
	All(ctx context.Context) ([]models.Risk, error)
	GetByID(ctx context.Context, id string) (*models.Risk, error)
	Append(ctx context.Context, risk *models.Risk) error
	Update(ctx context.Context, risk *models.Risk) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// RiskFilter constrains register listing.
type RiskFilter struct {
	Level    models.RiskLevel
	Category models.RiskCategory
	Status   models.RiskStatus
}

// RiskService manages the risk register: identification, scoring,
// mitigation tracking, and report aggregation.
type RiskService struct {
	repo      riskRepository
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	topCount  int
}

// NewRiskService constructs the service. topCount bounds the report's
// high-risk shortlist.
func NewRiskService(repo riskRepository, audit auditLogger, validate *validator.Validate, logger *zap.Logger, topCount int) *RiskService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if topCount <= 0 {
		topCount = 5
	}
	return &RiskService{repo: repo, audit: audit, validator: validate, logger: logger, topCount: topCount}
}

// Create registers a new risk in identified state with low level until the
// first assessment scores it.
func (s *RiskService) Create(ctx context.Context, req dto.CreateRiskRequest, userID string) (*models.Risk, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid risk payload")
	}
	now := time.Now().UTC()
	risk := &models.Risk{
		ID:             uuid.NewString(),
		Title:          req.Title,
		Description:    req.Description,
		Category:       models.RiskCategory(req.Category),
		Level:          models.RiskLevelLow,
		Status:         models.RiskStatusIdentified,
		Owner:          req.Owner,
		IdentifiedDate: now,
		IdentifiedBy:   userID,
		RelatedClause:  req.RelatedClause,
		RelatedProcess: req.RelatedProcess,
		Assessments:    []models.RiskAssessment{},
		Mitigations:    []models.RiskMitigation{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Append(ctx, risk); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store risk")
	}
	s.emitAudit(ctx, userID, models.AuditActionRiskCreate, risk.ID)
	return risk, nil
}

// Get returns one risk, ErrNotFound when absent.
func (s *RiskService) Get(ctx context.Context, id string) (*models.Risk, error) {
	risk, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load risk")
	}
	if risk == nil {
		return nil, appErrors.ErrNotFound
	}
	return risk, nil
}

// List returns risks matching the filter, register order.
func (s *RiskService) List(ctx context.Context, filter RiskFilter) ([]models.Risk, error) {
	risks, err := s.repo.All(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list risks")
	}
	filtered := make([]models.Risk, 0, len(risks))
	for _, risk := range risks {
		if filter.Level != "" && risk.Level != filter.Level {
			continue
		}
		if filter.Category != "" && risk.Category != filter.Category {
			continue
		}
		if filter.Status != "" && risk.Status != filter.Status {
			continue
		}
		filtered = append(filtered, risk)
	}
	return filtered, nil
}

// Update applies partial changes to a risk's descriptive fields.
func (s *RiskService) Update(ctx context.Context, id string, req dto.UpdateRiskRequest, userID string) (*models.Risk, error) {
	risk, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		risk.Title = *req.Title
	}
	if req.Description != nil {
		risk.Description = *req.Description
	}
	if req.Owner != nil {
		risk.Owner = *req.Owner
	}
	if req.Status != nil {
		status := models.RiskStatus(*req.Status)
		switch status {
		case models.RiskStatusIdentified, models.RiskStatusAssessed, models.RiskStatusMitigated,
			models.RiskStatusMonitored, models.RiskStatusClosed:
			risk.Status = status
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported risk status")
		}
	}
	if req.NextReviewDate != nil {
		risk.NextReviewDate = req.NextReviewDate
	}
	risk.UpdatedAt = time.Now().UTC()
	if err := s.persist(ctx, risk); err != nil {
		return nil, err
	}
	return risk, nil
}

// Delete removes a risk from the register, ErrNotFound when absent.
func (s *RiskService) Delete(ctx context.Context, id string) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete risk")
	}
	if !found {
		return appErrors.ErrNotFound
	}
	return nil
}

// AddAssessment appends a scoring record and recomputes the risk's level
// from it. The newest assessment always wins, even when its score is lower
// than an earlier one.
func (s *RiskService) AddAssessment(ctx context.Context, riskID string, req dto.AddAssessmentRequest, userID string) (*models.Risk, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}
	risk, err := s.Get(ctx, riskID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	assessment := models.RiskAssessment{
		ID:                uuid.NewString(),
		RiskID:            riskID,
		Likelihood:        req.Likelihood,
		Impact:            req.Impact,
		InherentRiskScore: req.InherentRiskScore,
		ResidualRiskScore: req.ResidualRiskScore,
		AssessedBy:        userID,
		AssessedAt:        now,
		Notes:             req.Notes,
	}
	risk.Assessments = append(risk.Assessments, assessment)
	risk.Level = models.LevelForScore(req.InherentRiskScore)
	risk.Status = models.RiskStatusAssessed
	risk.LastReviewDate = &now
	risk.UpdatedAt = now
	if err := s.persist(ctx, risk); err != nil {
		return nil, err
	}
	s.emitAudit(ctx, userID, models.AuditActionRiskAssess, riskID)
	return risk, nil
}

// AddMitigation plans a mitigation measure and moves the risk to mitigated.
func (s *RiskService) AddMitigation(ctx context.Context, riskID string, req dto.AddMitigationRequest, userID string) (*models.Risk, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mitigation payload")
	}
	risk, err := s.Get(ctx, riskID)
	if err != nil {
		return nil, err
	}
	mitigation := models.RiskMitigation{
		ID:                uuid.NewString(),
		RiskID:            riskID,
		Description:       req.Description,
		ResponsiblePerson: req.ResponsiblePerson,
		DueDate:           req.DueDate,
		Status:            models.MitigationStatusPlanned,
		Notes:             req.Notes,
	}
	risk.Mitigations = append(risk.Mitigations, mitigation)
	risk.Status = models.RiskStatusMitigated
	risk.UpdatedAt = time.Now().UTC()
	if err := s.persist(ctx, risk); err != nil {
		return nil, err
	}
	s.emitAudit(ctx, userID, models.AuditActionRiskMitigate, riskID)
	return risk, nil
}

// UpdateMitigation applies partial changes to a mitigation. The completion
// stamp is written once, on the first transition to completed.
func (s *RiskService) UpdateMitigation(ctx context.Context, riskID, mitigationID string, req dto.UpdateMitigationRequest, userID string) (*models.Risk, error) {
	risk, err := s.Get(ctx, riskID)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i := range risk.Mitigations {
		if risk.Mitigations[i].ID == mitigationID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "mitigation not found")
	}
	mitigation := &risk.Mitigations[idx]
	if req.Description != nil {
		mitigation.Description = *req.Description
	}
	if req.DueDate != nil {
		mitigation.DueDate = *req.DueDate
	}
	if req.Effectiveness != nil {
		mitigation.Effectiveness = req.Effectiveness
	}
	if req.Notes != nil {
		mitigation.Notes = *req.Notes
	}
	if req.Status != nil {
		status := models.MitigationStatus(*req.Status)
		switch status {
		case models.MitigationStatusPlanned, models.MitigationStatusInProgress,
			models.MitigationStatusCompleted, models.MitigationStatusOverdue:
			// ok
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported mitigation status")
		}
		if status == models.MitigationStatusCompleted && mitigation.CompletedDate == nil {
			now := time.Now().UTC()
			mitigation.CompletedDate = &now
			mitigation.CompletedBy = &userID
		}
		mitigation.Status = status
	}
	risk.UpdatedAt = time.Now().UTC()
	if err := s.persist(ctx, risk); err != nil {
		return nil, err
	}
	return risk, nil
}

// GenerateReport aggregates the register: totals per level, category, and
// status, plus a shortlist of the highest-scoring high risks ordered by
// latest inherent score descending. Ties keep register order.
func (s *RiskService) GenerateReport(ctx context.Context) (*models.RiskReport, error) {
	risks, err := s.repo.All(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list risks")
	}
	report := &models.RiskReport{
		TotalRisks:        len(risks),
		RisksByLevel:      make(map[models.RiskLevel]int),
		RisksByCategory:   make(map[models.RiskCategory]int),
		RisksByStatus:     make(map[models.RiskStatus]int),
		ReportGeneratedAt: time.Now().UTC(),
	}
	high := make([]models.Risk, 0)
	for _, risk := range risks {
		report.RisksByLevel[risk.Level]++
		report.RisksByCategory[risk.Category]++
		report.RisksByStatus[risk.Status]++
		if risk.Level == models.RiskLevelHigh {
			high = append(high, risk)
		}
	}
	sort.SliceStable(high, func(i, j int) bool {
		return high[i].LatestScore() > high[j].LatestScore()
	})
	if len(high) > s.topCount {
		high = high[:s.topCount]
	}
	report.TopRisks = high
	return report, nil
}

func (s *RiskService) persist(ctx context.Context, risk *models.Risk) error {
	found, err := s.repo.Update(ctx, risk)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store risk")
	}
	if !found {
		return appErrors.ErrNotFound
	}
	return nil
}

func (s *RiskService) emitAudit(ctx context.Context, userID, action, riskID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "risk",
		ResourceID: &riskID,
		IPAddress:  "system",
		UserAgent:  "risk-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
