package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/smap-labs/smap-compliance-api/internal/models"
)

// DocumentRepository persists controlled documents in PostgreSQL. It is the
// document authority every other store denormalizes into.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a new document row.
func (r *DocumentRepository) Create(ctx context.Context, document *models.Document) error {
	if document.ID == "" {
		document.ID = uuid.NewString()
	}
	if document.Status == "" {
		document.Status = models.DocumentStatusDraft
	}
	now := time.Now().UTC()
	if document.CreatedAt.IsZero() {
		document.CreatedAt = now
	}
	if document.LastUpdated.IsZero() {
		document.LastUpdated = now
	}
	const query = `INSERT INTO documents
	(id, title, category, status, current_version, content, owner_id, last_updated, last_updated_by, created_at)
	VALUES (:id, :title, :category, :status, :current_version, :content, :owner_id, :last_updated, :last_updated_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, document); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetByID fetches a document by identifier.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	const query = `SELECT id, title, category, status, current_version, content, owner_id, last_updated, last_updated_by, created_at
	FROM documents WHERE id = $1`
	var document models.Document
	if err := r.db.GetContext(ctx, &document, query, id); err != nil {
		return nil, err
	}
	return &document, nil
}

// List returns documents matching the filter, newest first.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT id, title, category, status, current_version, content, owner_id, last_updated, last_updated_by, created_at FROM documents`)

	conditions := make([]string, 0, 4)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY last_updated DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var documents []models.Document
	if err := r.db.SelectContext(ctx, &documents, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return documents, nil
}

// Update applies the non-nil fields of the partial update. Returns
// sql.ErrNoRows via RowsAffected when the document does not exist.
func (r *DocumentRepository) Update(ctx context.Context, id string, update models.DocumentUpdate) error {
	setParts := make([]string, 0, 7)
	params := map[string]interface{}{"id": id}

	if update.Title != nil {
		setParts = append(setParts, "title = :title")
		params["title"] = *update.Title
	}
	if update.Category != nil {
		setParts = append(setParts, "category = :category")
		params["category"] = *update.Category
	}
	if update.Status != nil {
		setParts = append(setParts, "status = :status")
		params["status"] = *update.Status
	}
	if update.CurrentVersion != nil {
		setParts = append(setParts, "current_version = :current_version")
		params["current_version"] = *update.CurrentVersion
	}
	if update.Content != nil {
		setParts = append(setParts, "content = :content")
		params["content"] = *update.Content
	}
	if update.LastUpdatedBy != nil {
		setParts = append(setParts, "last_updated_by = :last_updated_by")
		params["last_updated_by"] = *update.LastUpdatedBy
	}
	lastUpdated := time.Now().UTC()
	if update.LastUpdated != nil {
		lastUpdated = *update.LastUpdated
	}
	setParts = append(setParts, "last_updated = :last_updated")
	params["last_updated"] = lastUpdated

	query := fmt.Sprintf("UPDATE documents SET %s WHERE id = :id", strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check document update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a document row. Returns false when the row was absent.
func (r *DocumentRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check document delete rows: %w", err)
	}
	return rows > 0, nil
}
