package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/smap-labs/smap-compliance-api/internal/dto"
	"github.com/smap-labs/smap-compliance-api/internal/models"
	appErrors "github.com/smap-labs/smap-compliance-api/pkg/errors"
)

type documentRepository interface {
	Create(ctx context.Context, document *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error)
	Update(ctx context.Context, id string, update models.DocumentUpdate) error
	Delete(ctx context.Context, id string) (bool, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// DocumentService is the document authority: it owns lifecycle status and
// the denormalized version pointers other stores write through.
type DocumentService struct {
	repo      documentRepository
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDocumentService constructs the service.
func NewDocumentService(repo documentRepository, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *DocumentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// Create registers a new controlled document in draft state.
func (s *DocumentService) Create(ctx context.Context, req dto.CreateDocumentRequest, userID string) (*models.Document, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}
	document := &models.Document{
		Title:         strings.TrimSpace(req.Title),
		Category:      strings.TrimSpace(req.Category),
		Content:       req.Content,
		OwnerID:       req.OwnerID,
		Status:        models.DocumentStatusDraft,
		LastUpdatedBy: userID,
	}
	if err := s.repo.Create(ctx, document); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document")
	}
	s.emitAudit(ctx, userID, models.AuditActionDocumentCreate, document.ID, document)
	return document, nil
}

// Get returns a document, ErrNotFound when it does not exist.
func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	document, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	return document, nil
}

// List returns documents matching the filter.
func (s *DocumentService) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	documents, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return documents, nil
}

// Update applies a partial update to a document.
func (s *DocumentService) Update(ctx context.Context, id string, req dto.UpdateDocumentRequest, userID string) (*models.Document, error) {
	update := models.DocumentUpdate{
		Title:         req.Title,
		Category:      req.Category,
		Content:       req.Content,
		LastUpdatedBy: &userID,
	}
	if req.Status != nil {
		status := models.DocumentStatus(*req.Status)
		switch status {
		case models.DocumentStatusDraft, models.DocumentStatusPendingReview, models.DocumentStatusReviewed,
			models.DocumentStatusPendingApproval, models.DocumentStatusApproved, models.DocumentStatusRejected:
			update.Status = &status
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported document status")
		}
	}
	if err := s.repo.Update(ctx, id, update); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document")
	}
	document, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, userID, models.AuditActionDocumentUpdate, id, req)
	return document, nil
}

// Delete removes a document from the library.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document")
	}
	if !deleted {
		return appErrors.ErrNotFound
	}
	return nil
}

func (s *DocumentService) emitAudit(ctx context.Context, userID, action, resourceID string, payload interface{}) {
	if s.audit == nil {
		return
	}
	values, err := json.Marshal(payload)
	if err != nil {
		values = []byte("{}")
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "document",
		ResourceID: &resourceID,
		NewValues:  values,
		IPAddress:  "system",
		UserAgent:  "document-service",
	}
	if userID != "" {
		log.UserID = &userID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
