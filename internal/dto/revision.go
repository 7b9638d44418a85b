package dto

// CreateRevisionRequest appends a new revision to a document's review stream.
type CreateRevisionRequest struct {
	Version string `json:"version" validate:"required"`
	Content string `json:"content" validate:"required"`
	Changes string `json:"changes"`
	Status  string `json:"status" validate:"required,revision_status"`
}

// UpdateRevisionStatusRequest overwrites a revision's status.
type UpdateRevisionStatusRequest struct {
	Status string `json:"status" validate:"required,revision_status"`
}

// AddCommentRequest attaches a comment to a revision.
type AddCommentRequest struct {
	Content string `json:"content" validate:"required"`
}

// CompareRevisionsQuery names the two revisions to diff.
type CompareRevisionsQuery struct {
	From string `form:"from" validate:"required"`
	To   string `form:"to" validate:"required"`
}
