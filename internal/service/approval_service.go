package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smap-labs/smap-compliance-api/internal/models"
	appErrors "github.com/smap-labs/smap-compliance-api/pkg/errors"
)

type workflowRepository interface {
	GetByDocument(ctx context.Context, documentID string) (*models.ApprovalWorkflow, error)
	Save(ctx context.Context, workflow *models.ApprovalWorkflow) error
}

// WorkflowEventHandler consumes workflow-completed events. The engine never
// mutates documents itself; handlers do, so the cross-store write's failure
// mode stays explicit and independently retryable.
type WorkflowEventHandler interface {
	HandleWorkflowCompleted(ctx context.Context, event models.WorkflowCompletedEvent) error
}

// WorkflowEventHandlerFunc allows using plain functions as handlers.
type WorkflowEventHandlerFunc func(ctx context.Context, event models.WorkflowCompletedEvent) error

// HandleWorkflowCompleted implements WorkflowEventHandler.
func (f WorkflowEventHandlerFunc) HandleWorkflowCompleted(ctx context.Context, event models.WorkflowCompletedEvent) error {
	return f(ctx, event)
}

type approvalNotifier interface {
	Notify(ctx context.Context, notification *models.Notification)
}

type approvalMetrics interface {
	ObserveWorkflowDecision(decision string)
}

// ApprovalService drives documents through ordered approval chains.
//
// Steps are strictly sequential: only the step at currentStep is actionable,
// and acting on any other step is treated as unauthorized relative to
// workflow state, even for the correctly assigned approver.
type ApprovalService struct {
	repo     workflowRepository
	handlers []WorkflowEventHandler
	notifier approvalNotifier
	audit    auditLogger
	metrics  approvalMetrics
	logger   *zap.Logger
}

// ApprovalServiceOption configures the service.
type ApprovalServiceOption func(*ApprovalService)

// WithWorkflowEventHandlers appends completion event handlers.
func WithWorkflowEventHandlers(handlers ...WorkflowEventHandler) ApprovalServiceOption {
	return func(s *ApprovalService) {
		s.handlers = append(s.handlers, handlers...)
	}
}

// WithApprovalNotifier sets the best-effort notification sink.
func WithApprovalNotifier(notifier approvalNotifier) ApprovalServiceOption {
	return func(s *ApprovalService) {
		s.notifier = notifier
	}
}

// WithApprovalAudit sets the audit trail sink.
func WithApprovalAudit(audit auditLogger) ApprovalServiceOption {
	return func(s *ApprovalService) {
		s.audit = audit
	}
}

// WithApprovalMetrics sets the decision counter sink.
func WithApprovalMetrics(metrics approvalMetrics) ApprovalServiceOption {
	return func(s *ApprovalService) {
		s.metrics = metrics
	}
}

// NewApprovalService constructs the workflow engine.
func NewApprovalService(repo workflowRepository, logger *zap.Logger, opts ...ApprovalServiceOption) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ApprovalService{repo: repo, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// CreateWorkflow builds one step per approver in the given order. Step 0
// starts pending_review, every later step starts draft. Any existing
// workflow for the document is replaced outright.
func (s *ApprovalService) CreateWorkflow(ctx context.Context, documentID string, approvers []string) (*models.ApprovalWorkflow, error) {
	if len(approvers) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one approver is required")
	}
	for _, approver := range approvers {
		if strings.TrimSpace(approver) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "approver ids must be non-empty")
		}
	}

	now := time.Now().UTC()
	steps := make([]models.ApprovalStep, len(approvers))
	for i, approver := range approvers {
		status := models.ApprovalStepDraft
		if i == 0 {
			status = models.ApprovalStepPendingReview
		}
		steps[i] = models.ApprovalStep{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Status:     status,
			AssignedTo: approver,
		}
	}

	workflow := &models.ApprovalWorkflow{
		ID:          uuid.NewString(),
		DocumentID:  documentID,
		CurrentStep: 0,
		Steps:       steps,
		IsCompleted: false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Save(ctx, workflow); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist workflow")
	}

	s.notifyApprover(ctx, workflow, 0)
	s.emitAudit(ctx, approvers[0], models.AuditActionWorkflowCreate, workflow)
	return workflow, nil
}

// GetWorkflow returns the document's workflow, nil when none exists.
func (s *ApprovalService) GetWorkflow(ctx context.Context, documentID string) (*models.ApprovalWorkflow, error) {
	workflow, err := s.repo.GetByDocument(ctx, documentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load workflow")
	}
	return workflow, nil
}

// ApproveStep marks the acting approver's step approved and advances the
// chain. Approving the final step completes the workflow and emits an
// approved completion event. When a completion handler fails, the persisted
// step approval is not rolled back; the error surfaces as
// ErrDocumentStatusStale alongside the updated workflow.
func (s *ApprovalService) ApproveStep(ctx context.Context, documentID, stepID, userID, comments string) (*models.ApprovalWorkflow, error) {
	workflow, index, err := s.actionableStep(ctx, documentID, stepID, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	step := &workflow.Steps[index]
	step.Status = models.ApprovalStepApproved
	step.CompletedBy = &userID
	step.CompletedAt = &now
	step.Comments = comments
	workflow.UpdatedAt = now

	var completed bool
	if index < len(workflow.Steps)-1 {
		workflow.CurrentStep = index + 1
		workflow.Steps[index+1].Status = models.ApprovalStepPendingReview
	} else {
		workflow.IsCompleted = true
		completed = true
	}

	if err := s.repo.Save(ctx, workflow); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist workflow")
	}

	s.emitAudit(ctx, userID, models.AuditActionWorkflowApprove, workflow)
	if s.metrics != nil {
		s.metrics.ObserveWorkflowDecision(string(models.WorkflowOutcomeApproved))
	}

	if !completed {
		s.notifyApprover(ctx, workflow, workflow.CurrentStep)
		return workflow, nil
	}

	s.notifyCompletion(ctx, workflow, models.WorkflowOutcomeApproved, userID)

	event := models.WorkflowCompletedEvent{
		WorkflowID: workflow.ID,
		DocumentID: workflow.DocumentID,
		Outcome:    models.WorkflowOutcomeApproved,
		ActedBy:    userID,
		OccurredAt: now,
	}
	if err := s.dispatch(ctx, event); err != nil {
		return workflow, appErrors.Wrap(err, appErrors.ErrDocumentStatusStale.Code, appErrors.ErrDocumentStatusStale.Status, appErrors.ErrDocumentStatusStale.Message)
	}
	return workflow, nil
}

// RejectStep marks the acting approver's step rejected and terminates the
// whole workflow; there is no resubmission path. A rejected completion
// event is emitted regardless of how many steps remain.
func (s *ApprovalService) RejectStep(ctx context.Context, documentID, stepID, userID, comments string) (*models.ApprovalWorkflow, error) {
	if strings.TrimSpace(comments) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection comments are required")
	}

	workflow, index, err := s.actionableStep(ctx, documentID, stepID, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	step := &workflow.Steps[index]
	step.Status = models.ApprovalStepRejected
	step.CompletedBy = &userID
	step.CompletedAt = &now
	step.Comments = comments
	workflow.IsCompleted = true
	workflow.UpdatedAt = now

	if err := s.repo.Save(ctx, workflow); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist workflow")
	}

	s.emitAudit(ctx, userID, models.AuditActionWorkflowReject, workflow)
	if s.metrics != nil {
		s.metrics.ObserveWorkflowDecision(string(models.WorkflowOutcomeRejected))
	}

	s.notifyCompletion(ctx, workflow, models.WorkflowOutcomeRejected, userID)

	event := models.WorkflowCompletedEvent{
		WorkflowID: workflow.ID,
		DocumentID: workflow.DocumentID,
		Outcome:    models.WorkflowOutcomeRejected,
		ActedBy:    userID,
		OccurredAt: now,
	}
	if err := s.dispatch(ctx, event); err != nil {
		return workflow, appErrors.Wrap(err, appErrors.ErrDocumentStatusStale.Code, appErrors.ErrDocumentStatusStale.Status, appErrors.ErrDocumentStatusStale.Message)
	}
	return workflow, nil
}

// actionableStep loads the workflow and validates that the named step is the
// current one and assigned to the acting user.
func (s *ApprovalService) actionableStep(ctx context.Context, documentID, stepID, userID string) (*models.ApprovalWorkflow, int, error) {
	workflow, err := s.repo.GetByDocument(ctx, documentID)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load workflow")
	}
	if workflow == nil {
		return nil, 0, appErrors.Clone(appErrors.ErrNotFound, "workflow not found")
	}
	if workflow.IsCompleted {
		return nil, 0, appErrors.ErrWorkflowCompleted
	}

	index := -1
	for i := range workflow.Steps {
		if workflow.Steps[i].ID == stepID {
			index = i
			break
		}
	}
	if index == -1 {
		return nil, 0, appErrors.Clone(appErrors.ErrNotFound, "step not found")
	}
	if workflow.Steps[index].AssignedTo != userID {
		return nil, 0, appErrors.Clone(appErrors.ErrForbidden, "step is not assigned to this user")
	}
	if index != workflow.CurrentStep {
		return nil, 0, appErrors.Clone(appErrors.ErrForbidden, "step is not currently actionable")
	}
	return workflow, index, nil
}

func (s *ApprovalService) dispatch(ctx context.Context, event models.WorkflowCompletedEvent) error {
	var firstErr error
	for _, handler := range s.handlers {
		if err := handler.HandleWorkflowCompleted(ctx, event); err != nil {
			s.logger.Error("workflow completion handler failed",
				zap.String("workflow_id", event.WorkflowID),
				zap.String("document_id", event.DocumentID),
				zap.String("outcome", string(event.Outcome)),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *ApprovalService) notifyApprover(ctx context.Context, workflow *models.ApprovalWorkflow, index int) {
	if s.notifier == nil || index < 0 || index >= len(workflow.Steps) {
		return
	}
	step := workflow.Steps[index]
	s.notifier.Notify(ctx, &models.Notification{
		UserID:          step.AssignedTo,
		Type:            models.NotificationApprovalRequest,
		Title:           "Approval requested",
		Message:         fmt.Sprintf("Document %s is waiting for your approval", workflow.DocumentID),
		RelatedItemID:   workflow.DocumentID,
		RelatedItemType: "document",
	})
}

// notifyCompletion tells every other participant how the workflow ended.
func (s *ApprovalService) notifyCompletion(ctx context.Context, workflow *models.ApprovalWorkflow, outcome models.WorkflowOutcome, actedBy string) {
	if s.notifier == nil {
		return
	}
	verb := "approved"
	if outcome == models.WorkflowOutcomeRejected {
		verb = "rejected"
	}
	seen := map[string]bool{actedBy: true}
	for _, step := range workflow.Steps {
		if seen[step.AssignedTo] {
			continue
		}
		seen[step.AssignedTo] = true
		s.notifier.Notify(ctx, &models.Notification{
			UserID:          step.AssignedTo,
			Type:            models.NotificationApprovalComplete,
			Title:           "Approval workflow completed",
			Message:         fmt.Sprintf("Document %s was %s", workflow.DocumentID, verb),
			RelatedItemID:   workflow.DocumentID,
			RelatedItemType: "document",
		})
	}
}

func (s *ApprovalService) emitAudit(ctx context.Context, userID, action string, workflow *models.ApprovalWorkflow) {
	if s.audit == nil {
		return
	}
	resourceID := workflow.DocumentID
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "approval_workflow",
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  "approval-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

// DocumentStatusUpdater applies workflow outcomes to the owning document's
// lifecycle status. It is the default completion event handler.
type DocumentStatusUpdater struct {
	documents documentAuthority
}

// NewDocumentStatusUpdater constructs the handler.
func NewDocumentStatusUpdater(documents documentAuthority) *DocumentStatusUpdater {
	return &DocumentStatusUpdater{documents: documents}
}

// HandleWorkflowCompleted sets the document status to approved or rejected.
func (h *DocumentStatusUpdater) HandleWorkflowCompleted(ctx context.Context, event models.WorkflowCompletedEvent) error {
	status := models.DocumentStatusApproved
	if event.Outcome == models.WorkflowOutcomeRejected {
		status = models.DocumentStatusRejected
	}
	update := models.DocumentUpdate{
		Status:        &status,
		LastUpdated:   &event.OccurredAt,
		LastUpdatedBy: &event.ActedBy,
	}
	if err := h.documents.Update(ctx, event.DocumentID, update); err != nil {
		return fmt.Errorf("update document %s status to %s: %w", event.DocumentID, status, err)
	}
	return nil
}
