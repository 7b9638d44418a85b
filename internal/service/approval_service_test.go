package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smap-labs/smap-compliance-api/internal/models"
	appErrors "github.com/smap-labs/smap-compliance-api/pkg/errors"
)

type workflowRepoStub struct {
	workflows map[string]*models.ApprovalWorkflow
}

func newWorkflowRepoStub() *workflowRepoStub {
	return &workflowRepoStub{workflows: make(map[string]*models.ApprovalWorkflow)}
}

func (w *workflowRepoStub) GetByDocument(ctx context.Context, documentID string) (*models.ApprovalWorkflow, error) {
	if workflow, ok := w.workflows[documentID]; ok {
		copy := *workflow
		copy.Steps = append([]models.ApprovalStep(nil), workflow.Steps...)
		return &copy, nil
	}
	return nil, nil
}

func (w *workflowRepoStub) Save(ctx context.Context, workflow *models.ApprovalWorkflow) error {
	copy := *workflow
	copy.Steps = append([]models.ApprovalStep(nil), workflow.Steps...)
	w.workflows[workflow.DocumentID] = &copy
	return nil
}

type notifierStub struct {
	sent []*models.Notification
}

func (n *notifierStub) Notify(ctx context.Context, notification *models.Notification) {
	n.sent = append(n.sent, notification)
}

func TestApprovalServiceCreateWorkflowStepStates(t *testing.T) {
	repo := newWorkflowRepoStub()
	notifier := &notifierStub{}
	svc := NewApprovalService(repo, nil, WithApprovalNotifier(notifier))

	workflow, err := svc.CreateWorkflow(context.Background(), "doc-1", []string{"alice", "bob", "carol"})
	require.NoError(t, err)
	require.Equal(t, 0, workflow.CurrentStep)
	require.False(t, workflow.IsCompleted)
	require.Equal(t, models.ApprovalStepPendingReview, workflow.Steps[0].Status)
	require.Equal(t, models.ApprovalStepDraft, workflow.Steps[1].Status)
	require.Equal(t, models.ApprovalStepDraft, workflow.Steps[2].Status)
	require.Len(t, notifier.sent, 1)
	require.Equal(t, "alice", notifier.sent[0].UserID)
}

func TestApprovalServiceRecreateReplacesWorkflow(t *testing.T) {
	repo := newWorkflowRepoStub()
	svc := NewApprovalService(repo, nil)

	first, err := svc.CreateWorkflow(context.Background(), "doc-1", []string{"alice"})
	require.NoError(t, err)
	second, err := svc.CreateWorkflow(context.Background(), "doc-1", []string{"bob"})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	current, err := svc.GetWorkflow(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Equal(t, second.ID, current.ID)
}

func TestApprovalServiceApproveAdvancesChain(t *testing.T) {
	repo := newWorkflowRepoStub()
	notifier := &notifierStub{}
	svc := NewApprovalService(repo, nil, WithApprovalNotifier(notifier))
	workflow, err := svc.CreateWorkflow(context.Background(), "doc-1", []string{"alice", "bob"})
	require.NoError(t, err)

	updated, err := svc.ApproveStep(context.Background(), "doc-1", workflow.Steps[0].ID, "alice", "looks good")
	require.NoError(t, err)
	require.Equal(t, 1, updated.CurrentStep)
	require.False(t, updated.IsCompleted)
	require.Equal(t, models.ApprovalStepApproved, updated.Steps[0].Status)
	require.Equal(t, models.ApprovalStepPendingReview, updated.Steps[1].Status)
	require.Equal(t, "alice", *updated.Steps[0].CompletedBy)
	// Creation notified alice, advancing notified bob.
	require.Len(t, notifier.sent, 2)
	require.Equal(t, "bob", notifier.sent[1].UserID)
}

func TestApprovalServiceFinalApproveCompletesAndUpdatesDocument(t *testing.T) {
	repo := newWorkflowRepoStub()
	docs := newDocumentAuthorityStub("doc-1")
	svc := NewApprovalService(repo, nil,
		WithWorkflowEventHandlers(NewDocumentStatusUpdater(docs)))
	workflow, err := svc.CreateWorkflow(context.Background(), "doc-1", []string{"alice"})
	require.NoError(t, err)

	updated, err := svc.ApproveStep(context.Background(), "doc-1", workflow.Steps[0].ID, "alice", "")
	require.NoError(t, err)
	require.True(t, updated.IsCompleted)
	require.Equal(t, models.DocumentStatusApproved, docs.documents["doc-1"].Status)
}

func TestApprovalServiceCompletionNotifiesParticipants(t *testing.T) {
	repo := newWorkflowRepoStub()
	notifier := &notifierStub{}
	svc := NewApprovalService(repo, nil, WithApprovalNotifier(notifier))
	workflow, err := svc.CreateWorkflow(context.Background(), "doc-1", []string{"alice", "bob"})
	require.NoError(t, err)

	_, err = svc.ApproveStep(context.Background(), "doc-1", workflow.Steps[0].ID, "alice", "")
	require.NoError(t, err)
	_, err = svc.ApproveStep(context.Background(), "doc-1", workflow.Steps[1].ID, "bob", "")
	require.NoError(t, err)

	// alice request, bob request, then a completion for alice (bob acted).
	require.Len(t, notifier.sent, 3)
	completion := notifier.sent[2]
	require.Equal(t, models.NotificationApprovalComplete, completion.Type)
	require.Equal(t, "alice", completion.UserID)
	require.Contains(t, completion.Message, "approved")
}

func TestApprovalServiceRejectNotifiesRemainingApprovers(t *testing.T) {
	repo := newWorkflowRepoStub()
	notifier := &notifierStub{}
	svc := NewApprovalService(repo, nil, WithApprovalNotifier(notifier))
	workflow, err := svc.CreateWorkflow(context.Background(), "doc-1", []string{"alice", "bob", "carol"})
	require.NoError(t, err)

	_, err = svc.RejectStep(context.Background(), "doc-1", workflow.Steps[0].ID, "alice", "missing evidence")
	require.NoError(t, err)

	// alice's request, then completions for bob and carol but not the actor.
	require.Len(t, notifier.sent, 3)
	var notified []string
	for _, n := range notifier.sent[1:] {
		require.Equal(t, models.NotificationApprovalComplete, n.Type)
		require.Contains(t, n.Message, "rejected")
		notified = append(notified, n.UserID)
	}
	require.ElementsMatch(t, []string{"bob", "carol"}, notified)
}

type workflowMetricsStub struct {
	decisions []string
}

func (w *workflowMetricsStub) ObserveWorkflowDecision(decision string) {
	w.decisions = append(w.decisions, decision)
}

func TestApprovalServiceCountsDecisions(t *testing.T) {
	repo := newWorkflowRepoStub()
	metrics := &workflowMetricsStub{}
	svc := NewApprovalService(repo, nil, WithApprovalMetrics(metrics))
	workflow, err := svc.CreateWorkflow(context.Background(), "doc-1", []string{"alice", "bob"})
	require.NoError(t, err)

	_, err = svc.ApproveStep(context.Background(), "doc-1", workflow.Steps[0].ID, "alice", "")
	require.NoError(t, err)
	_, err = svc.RejectStep(context.Background(), "doc-1", workflow.Steps[1].ID, "bob", "scope creep")
	require.NoError(t, err)

	require.Equal(t, []string{"approved", "rejected"}, metrics.decisions)
}

func TestApprovalServiceRejectTerminatesWorkflow(t *testing.T) {
	repo := newWorkflowRepoStub()
	docs := newDocumentAuthorityStub("doc-1")
	svc := NewApprovalService(repo, nil,
		WithWorkflowEventHandlers(NewDocumentStatusUpdater(docs)))
	workflow, err := svc.CreateWorkflow(context.Background(), "doc-1", []string{"alice", "bob", "carol"})
	require.NoError(t, err)

	updated, err := svc.RejectStep(context.Background(), "doc-1", workflow.Steps[0].ID, "alice", "missing evidence")
	require.NoError(t, err)
	require.True(t, updated.IsCompleted)
	require.Equal(t, models.ApprovalStepRejected, updated.Steps[0].Status)
	require.Equal(t, models.DocumentStatusRejected, docs.documents["doc-1"].Status)

	// Nothing is actionable after termination.
	_, err = svc.ApproveStep(context.Background(), "doc-1", workflow.Steps[1].ID, "bob", "")
	require.ErrorIs(t, err, appErrors.ErrWorkflowCompleted)
}

func TestApprovalServiceRejectRequiresComments(t *testing.T) {
	repo := newWorkflowRepoStub()
	svc := NewApprovalService(repo, nil)
	workflow, err := svc.CreateWorkflow(context.Background(), "doc-1", []string{"alice"})
	require.NoError(t, err)

	_, err = svc.RejectStep(context.Background(), "doc-1", workflow.Steps[0].ID, "alice", "   ")
	require.Error(t, err)

	current, err := svc.GetWorkflow(context.Background(), "doc-1")
	require.NoError(t, err)
	require.False(t, current.IsCompleted)
}

func TestApprovalServiceWrongUserForbidden(t *testing.T) {
	repo := newWorkflowRepoStub()
	svc := NewApprovalService(repo, nil)
	workflow, err := svc.CreateWorkflow(context.Background(), "doc-1", []string{"alice", "bob"})
	require.NoError(t, err)

	_, err = svc.ApproveStep(context.Background(), "doc-1", workflow.Steps[0].ID, "bob", "")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestApprovalServiceOutOfOrderStepForbidden(t *testing.T) {
	repo := newWorkflowRepoStub()
	svc := NewApprovalService(repo, nil)
	workflow, err := svc.CreateWorkflow(context.Background(), "doc-1", []string{"alice", "bob"})
	require.NoError(t, err)

	// Bob's step is correctly assigned to him, but it is not current yet.
	_, err = svc.ApproveStep(context.Background(), "doc-1", workflow.Steps[1].ID, "bob", "")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestApprovalServiceHandlerFailureSurfacesStaleStatus(t *testing.T) {
	repo := newWorkflowRepoStub()
	failing := WorkflowEventHandlerFunc(func(ctx context.Context, event models.WorkflowCompletedEvent) error {
		return fmt.Errorf("document store offline")
	})
	svc := NewApprovalService(repo, nil, WithWorkflowEventHandlers(failing))
	workflow, err := svc.CreateWorkflow(context.Background(), "doc-1", []string{"alice"})
	require.NoError(t, err)

	updated, err := svc.ApproveStep(context.Background(), "doc-1", workflow.Steps[0].ID, "alice", "")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrDocumentStatusStale.Code, appErr.Code)
	// The decision itself is persisted despite the handler failure.
	require.NotNil(t, updated)
	require.True(t, updated.IsCompleted)
	stored, err := svc.GetWorkflow(context.Background(), "doc-1")
	require.NoError(t, err)
	require.True(t, stored.IsCompleted)
}
