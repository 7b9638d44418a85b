package models

import "time"

// NotificationType enumerates the events users are notified about.
type NotificationType string

const (
	NotificationDocumentUpdate   NotificationType = "document_update"
	NotificationApprovalRequest  NotificationType = "approval_request"
	NotificationApprovalComplete NotificationType = "approval_complete"
	NotificationAssessmentDue    NotificationType = "assessment_due"
	NotificationAuditScheduled   NotificationType = "audit_scheduled"
)

// Notification is a per-user message stored most-recent-first. Writes are
// best effort and never block the action that triggered them.
type Notification struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	Type            NotificationType `json:"type"`
	Title           string           `json:"title"`
	Message         string           `json:"message"`
	RelatedItemID   string           `json:"relatedItemId,omitempty"`
	RelatedItemType string           `json:"relatedItemType,omitempty"`
	IsRead          bool             `json:"isRead"`
	CreatedAt       time.Time        `json:"createdAt"`
}
