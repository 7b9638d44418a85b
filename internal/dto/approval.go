package dto

// CreateWorkflowRequest starts an approval chain for a document. Approvers
// are ordered; the first becomes immediately actionable.
type CreateWorkflowRequest struct {
	Approvers []string `json:"approvers" validate:"required,min=1,dive,required"`
}

// StepDecisionRequest carries the acting approver's comments. Rejections
// require a comment, approvals may omit it.
type StepDecisionRequest struct {
	Comments string `json:"comments"`
}
