package models

import "time"

// ApprovalStepStatus is the state of one approver's slot in the chain. Only
// draft, pending_review, approved, and rejected are driven by the workflow
// engine; the remaining document statuses never appear on steps.
type ApprovalStepStatus string

const (
	ApprovalStepDraft         ApprovalStepStatus = "draft"
	ApprovalStepPendingReview ApprovalStepStatus = "pending_review"
	ApprovalStepApproved      ApprovalStepStatus = "approved"
	ApprovalStepRejected      ApprovalStepStatus = "rejected"
)

// ApprovalStep is one approver's slot in a sequential approval chain.
type ApprovalStep struct {
	ID          string             `json:"id"`
	DocumentID  string             `json:"documentId"`
	Status      ApprovalStepStatus `json:"status"`
	AssignedTo  string             `json:"assignedTo"`
	CompletedBy *string            `json:"completedBy,omitempty"`
	CompletedAt *time.Time         `json:"completedAt,omitempty"`
	Comments    string             `json:"comments,omitempty"`
}

// ApprovalWorkflow drives a document through an ordered sequence of approval
// steps. Exactly one workflow is addressable per document; creating a new
// one replaces any prior workflow. IsCompleted moves false to true once and
// never reverts.
type ApprovalWorkflow struct {
	ID          string         `json:"id"`
	DocumentID  string         `json:"documentId"`
	CurrentStep int            `json:"currentStep"`
	Steps       []ApprovalStep `json:"steps"`
	IsCompleted bool           `json:"isCompleted"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// WorkflowOutcome is the terminal result of a completed workflow.
type WorkflowOutcome string

const (
	WorkflowOutcomeApproved WorkflowOutcome = "approved"
	WorkflowOutcomeRejected WorkflowOutcome = "rejected"
)

// WorkflowCompletedEvent is emitted by the workflow engine when a workflow
// terminates, so that document status updates happen outside the engine.
type WorkflowCompletedEvent struct {
	WorkflowID string          `json:"workflowId"`
	DocumentID string          `json:"documentId"`
	Outcome    WorkflowOutcome `json:"outcome"`
	ActedBy    string          `json:"actedBy"`
	OccurredAt time.Time       `json:"occurredAt"`
}
