package models

import "time"

// RevisionStatus tracks a revision through the review workflow. Transitions
// are deliberately unconstrained: updateRevisionStatus overwrites whatever
// status the reviewer sets.
type RevisionStatus string

const (
	RevisionStatusDraft         RevisionStatus = "draft"
	RevisionStatusPendingReview RevisionStatus = "pending_review"
	RevisionStatusReviewed      RevisionStatus = "reviewed"
	RevisionStatusApproved      RevisionStatus = "approved"
	RevisionStatusRejected      RevisionStatus = "rejected"
)

// DocumentRevision is a named, status-bearing snapshot of document content
// used for the review and comment workflow. Revisions per document form an
// append-only ordered sequence.
type DocumentRevision struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"documentId"`
	Version    string            `json:"version"`
	Content    string            `json:"content"`
	Changes    string            `json:"changes"`
	CreatedBy  string            `json:"createdBy"`
	CreatedAt  time.Time         `json:"createdAt"`
	Status     RevisionStatus    `json:"status"`
	ApprovedBy *string           `json:"approvedBy,omitempty"`
	ApprovedAt *time.Time        `json:"approvedAt,omitempty"`
	Comments   []DocumentComment `json:"comments"`
}

// DocumentComment is a threaded comment attached to one revision. Resolving
// an already-resolved comment overwrites the resolver and timestamp.
type DocumentComment struct {
	ID         string     `json:"id"`
	RevisionID string     `json:"revisionId"`
	UserID     string     `json:"userId"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"createdAt"`
	IsResolved bool       `json:"isResolved"`
	ResolvedBy *string    `json:"resolvedBy,omitempty"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// RevisionDiff is a line-granularity set difference between two revisions.
// Lines only in the second revision are additions, lines only in the first
// are deletions. Duplicate and reordered identical lines are not
// distinguished.
type RevisionDiff struct {
	Additions []string `json:"additions"`
	Deletions []string `json:"deletions"`
}
