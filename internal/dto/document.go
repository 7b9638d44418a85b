package dto

// CreateDocumentRequest creates a controlled document in draft state.
type CreateDocumentRequest struct {
	Title    string `json:"title" validate:"required"`
	Category string `json:"category" validate:"required"`
	Content  string `json:"content"`
	OwnerID  string `json:"ownerId" validate:"required"`
}

// UpdateDocumentRequest carries partial document updates.
type UpdateDocumentRequest struct {
	Title    *string `json:"title,omitempty"`
	Category *string `json:"category,omitempty"`
	Status   *string `json:"status,omitempty"`
	Content  *string `json:"content,omitempty"`
}

// CreateVersionRequest saves a new immutable content snapshot.
type CreateVersionRequest struct {
	Content string `json:"content" validate:"required"`
	Comment string `json:"comment"`
}
