package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smap-labs/smap-compliance-api/internal/dto"
	"github.com/smap-labs/smap-compliance-api/internal/models"
	appErrors "github.com/smap-labs/smap-compliance-api/pkg/errors"
)

type revisionRepository interface {
	ListByDocument(ctx context.Context, documentID string) ([]models.DocumentRevision, error)
	GetByID(ctx context.Context, documentID, revisionID string) (*models.DocumentRevision, error)
	Append(ctx context.Context, revision *models.DocumentRevision) error
	Update(ctx context.Context, revision *models.DocumentRevision) (bool, error)
}

// RevisionService manages the review-oriented revision stream of a document
// and the threaded comments attached to each revision.
//
// Status transitions are intentionally unconstrained: any status may follow
// any other through UpdateRevisionStatus.
type RevisionService struct {
	repo      revisionRepository
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRevisionService constructs the service.
func NewRevisionService(repo revisionRepository, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *RevisionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &RevisionService{repo: repo, audit: audit, validator: validate, logger: logger}
	_ = svc.validator.RegisterValidation("revision_status", func(fl validator.FieldLevel) bool {
		switch models.RevisionStatus(strings.ToLower(fl.Field().String())) {
		case models.RevisionStatusDraft, models.RevisionStatusPendingReview, models.RevisionStatusReviewed,
			models.RevisionStatusApproved, models.RevisionStatusRejected:
			return true
		default:
			return false
		}
	})
	return svc
}

// CreateRevision appends a revision to the document's stream.
func (s *RevisionService) CreateRevision(ctx context.Context, documentID string, req dto.CreateRevisionRequest, authorID string) (*models.DocumentRevision, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid revision payload")
	}
	revision := &models.DocumentRevision{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Version:    req.Version,
		Content:    req.Content,
		Changes:    req.Changes,
		CreatedBy:  authorID,
		CreatedAt:  time.Now().UTC(),
		Status:     models.RevisionStatus(strings.ToLower(req.Status)),
		Comments:   []models.DocumentComment{},
	}
	if err := s.repo.Append(ctx, revision); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist revision")
	}
	s.emitAudit(ctx, authorID, models.AuditActionRevisionCreate, revision.ID)
	return revision, nil
}

func (s *RevisionService) emitAudit(ctx context.Context, userID, action, revisionID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "revision",
		ResourceID: &revisionID,
		IPAddress:  "system",
		UserAgent:  "revision-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

// ListRevisions returns the document's revisions in creation order.
func (s *RevisionService) ListRevisions(ctx context.Context, documentID string) ([]models.DocumentRevision, error) {
	revisions, err := s.repo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list revisions")
	}
	return revisions, nil
}

// GetRevision returns one revision, nil when absent.
func (s *RevisionService) GetRevision(ctx context.Context, documentID, revisionID string) (*models.DocumentRevision, error) {
	revision, err := s.repo.GetByID(ctx, documentID, revisionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load revision")
	}
	return revision, nil
}

// UpdateRevisionStatus unconditionally overwrites the revision's status.
// Approving stamps approver info once; re-approving an already approved
// revision does not re-stamp. Returns nil (no error) when the revision is
// not found for that document.
func (s *RevisionService) UpdateRevisionStatus(ctx context.Context, documentID, revisionID string, status models.RevisionStatus, approverID string) (*models.DocumentRevision, error) {
	revision, err := s.repo.GetByID(ctx, documentID, revisionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load revision")
	}
	if revision == nil {
		return nil, nil
	}

	revision.Status = status
	if status == models.RevisionStatusApproved && revision.ApprovedAt == nil {
		now := time.Now().UTC()
		revision.ApprovedBy = &approverID
		revision.ApprovedAt = &now
	}

	if _, err := s.repo.Update(ctx, revision); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update revision")
	}
	return revision, nil
}

// AddComment attaches an unresolved comment to a revision. Returns nil when
// the revision is not found.
func (s *RevisionService) AddComment(ctx context.Context, documentID, revisionID, userID, content string) (*models.DocumentComment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "comment content is required")
	}
	revision, err := s.repo.GetByID(ctx, documentID, revisionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load revision")
	}
	if revision == nil {
		return nil, nil
	}

	comment := models.DocumentComment{
		ID:         uuid.NewString(),
		RevisionID: revisionID,
		UserID:     userID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
		IsResolved: false,
	}
	revision.Comments = append(revision.Comments, comment)

	if _, err := s.repo.Update(ctx, revision); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist comment")
	}
	return &comment, nil
}

// ResolveComment marks a comment resolved. Resolving twice overwrites the
// resolver and timestamp with the second caller's values rather than
// failing. Returns nil when the revision or comment is not found.
func (s *RevisionService) ResolveComment(ctx context.Context, documentID, revisionID, commentID, resolverID string) (*models.DocumentComment, error) {
	revision, err := s.repo.GetByID(ctx, documentID, revisionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load revision")
	}
	if revision == nil {
		return nil, nil
	}

	for i := range revision.Comments {
		if revision.Comments[i].ID != commentID {
			continue
		}
		now := time.Now().UTC()
		revision.Comments[i].IsResolved = true
		revision.Comments[i].ResolvedBy = &resolverID
		revision.Comments[i].ResolvedAt = &now

		if _, err := s.repo.Update(ctx, revision); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist comment resolution")
		}
		comment := revision.Comments[i]
		return &comment, nil
	}
	return nil, nil
}

// CompareRevisions computes a line-granularity set difference between two
// revisions' content. It is not a sequence alignment: duplicated or
// reordered identical lines are not distinguished. Either revision missing
// yields an empty diff, not an error.
func (s *RevisionService) CompareRevisions(ctx context.Context, documentID, fromID, toID string) (*models.RevisionDiff, error) {
	from, err := s.repo.GetByID(ctx, documentID, fromID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load revision")
	}
	to, err := s.repo.GetByID(ctx, documentID, toID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load revision")
	}
	diff := &models.RevisionDiff{Additions: []string{}, Deletions: []string{}}
	if from == nil || to == nil {
		return diff, nil
	}

	fromLines := strings.Split(from.Content, "\n")
	toLines := strings.Split(to.Content, "\n")

	fromSet := make(map[string]struct{}, len(fromLines))
	for _, line := range fromLines {
		fromSet[line] = struct{}{}
	}
	toSet := make(map[string]struct{}, len(toLines))
	for _, line := range toLines {
		toSet[line] = struct{}{}
	}

	for _, line := range toLines {
		if _, ok := fromSet[line]; !ok {
			diff.Additions = append(diff.Additions, line)
		}
	}
	for _, line := range fromLines {
		if _, ok := toSet[line]; !ok {
			diff.Deletions = append(diff.Deletions, line)
		}
	}
	return diff, nil
}
