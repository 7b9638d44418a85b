package dto

// CreateNotificationRequest pushes a notification to one user.
type CreateNotificationRequest struct {
	UserID          string `json:"userId" validate:"required"`
	Type            string `json:"type" validate:"required"`
	Title           string `json:"title" validate:"required"`
	Message         string `json:"message" validate:"required"`
	RelatedItemID   string `json:"relatedItemId"`
	RelatedItemType string `json:"relatedItemType"`
}
