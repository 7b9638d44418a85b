package dto

import "time"

// CreateRiskRequest registers a new risk in identified state.
type CreateRiskRequest struct {
	Title          string `json:"title" validate:"required"`
	Description    string `json:"description"`
	Category       string `json:"category" validate:"required,risk_category"`
	Owner          string `json:"owner" validate:"required"`
	RelatedClause  string `json:"relatedClause"`
	RelatedProcess string `json:"relatedProcess"`
}

// UpdateRiskRequest carries partial risk updates.
type UpdateRiskRequest struct {
	Title          *string    `json:"title,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Owner          *string    `json:"owner,omitempty"`
	Status         *string    `json:"status,omitempty"`
	NextReviewDate *time.Time `json:"nextReviewDate,omitempty"`
}

// AddAssessmentRequest scores a risk. InherentRiskScore is trusted as
// supplied; callers commonly send likelihood * impact.
type AddAssessmentRequest struct {
	Likelihood        int    `json:"likelihood" validate:"required,min=1,max=5"`
	Impact            int    `json:"impact" validate:"required,min=1,max=5"`
	InherentRiskScore int    `json:"inherentRiskScore" validate:"required,min=1,max=25"`
	ResidualRiskScore int    `json:"residualRiskScore" validate:"min=0,max=25"`
	Notes             string `json:"notes"`
}

// AddMitigationRequest plans a mitigation measure.
type AddMitigationRequest struct {
	Description       string    `json:"description" validate:"required"`
	ResponsiblePerson string    `json:"responsiblePerson" validate:"required"`
	DueDate           time.Time `json:"dueDate" validate:"required"`
	Notes             string    `json:"notes"`
}

// UpdateMitigationRequest carries partial mitigation updates.
type UpdateMitigationRequest struct {
	Description   *string    `json:"description,omitempty"`
	Status        *string    `json:"status,omitempty"`
	Effectiveness *int       `json:"effectiveness,omitempty"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
}
