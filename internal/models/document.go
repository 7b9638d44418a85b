package models

import "time"

// DocumentStatus tracks a controlled document through its lifecycle.
type DocumentStatus string

const (
	DocumentStatusDraft           DocumentStatus = "draft"
	DocumentStatusPendingReview   DocumentStatus = "pending_review"
	DocumentStatusReviewed        DocumentStatus = "reviewed"
	DocumentStatusPendingApproval DocumentStatus = "pending_approval"
	DocumentStatusApproved        DocumentStatus = "approved"
	DocumentStatusRejected        DocumentStatus = "rejected"
)

// Document is a controlled document in the compliance library. The
// CurrentVersion, LastUpdated, and LastUpdatedBy columns are denormalized
// pointers maintained by the version store on every snapshot save.
type Document struct {
	ID             string         `db:"id" json:"id"`
	Title          string         `db:"title" json:"title"`
	Category       string         `db:"category" json:"category"`
	Status         DocumentStatus `db:"status" json:"status"`
	CurrentVersion int            `db:"current_version" json:"currentVersion"`
	Content        string         `db:"content" json:"content"`
	OwnerID        string         `db:"owner_id" json:"ownerId"`
	LastUpdated    time.Time      `db:"last_updated" json:"lastUpdated"`
	LastUpdatedBy  string         `db:"last_updated_by" json:"lastUpdatedBy"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
}

// Valid reports whether the status is one of the lifecycle states.
func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentStatusDraft, DocumentStatusPendingReview, DocumentStatusReviewed,
		DocumentStatusPendingApproval, DocumentStatusApproved, DocumentStatusRejected:
		return true
	}
	return false
}

// DocumentUpdate carries the partial fields collaborators may change on a
// document. Nil fields are left untouched.
type DocumentUpdate struct {
	Title          *string         `json:"title,omitempty"`
	Category       *string         `json:"category,omitempty"`
	Status         *DocumentStatus `json:"status,omitempty"`
	CurrentVersion *int            `json:"currentVersion,omitempty"`
	Content        *string         `json:"content,omitempty"`
	LastUpdated    *time.Time      `json:"lastUpdated,omitempty"`
	LastUpdatedBy  *string         `json:"lastUpdatedBy,omitempty"`
}

// DocumentVersion is an immutable numbered content snapshot. Versions are
// assigned 1..N per document with no gaps and are never edited or deleted.
type DocumentVersion struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	Version    int       `json:"version"`
	Content    string    `json:"content"`
	CreatedBy  string    `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
	Comment    string    `json:"comment"`
}

// DocumentFilter constrains document listing.
type DocumentFilter struct {
	Status   DocumentStatus
	Category string
	OwnerID  string
	Search   string
	Limit    int
	Offset   int
}
