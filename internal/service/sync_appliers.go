package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smap-labs/smap-compliance-api/internal/models"
	appErrors "github.com/smap-labs/smap-compliance-api/pkg/errors"
)

type documentSyncRepository interface {
	Create(ctx context.Context, document *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	Update(ctx context.Context, id string, update models.DocumentUpdate) error
	Delete(ctx context.Context, id string) (bool, error)
}

// DocumentSyncApplier replays queued document mutations against the document
// authority.
type DocumentSyncApplier struct {
	repo   documentSyncRepository
	logger *zap.Logger
}

// NewDocumentSyncApplier constructs an applier backed by the document repository.
func NewDocumentSyncApplier(repo documentSyncRepository, logger *zap.Logger) *DocumentSyncApplier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentSyncApplier{repo: repo, logger: logger}
}

// Apply dispatches on the item's action. Creates carry the full document in
// the payload; updates are partial and only touch the fields present.
func (a *DocumentSyncApplier) Apply(ctx context.Context, item models.SyncItem) error {
	if a.repo == nil {
		return appErrors.Clone(appErrors.ErrInternal, "document repository not configured")
	}
	var payload models.DocumentSyncPayload
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid document sync payload")
	}
	if payload.DocumentID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "documentId is required")
	}

	switch item.Action {
	case models.SyncActionDelete:
		if _, err := a.repo.Delete(ctx, payload.DocumentID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document")
		}
		return nil
	case models.SyncActionCreate:
		document, err := a.buildDocument(payload)
		if err != nil {
			return err
		}
		if err := a.repo.Create(ctx, document); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document")
		}
		return nil
	case models.SyncActionUpdate:
		update, err := a.buildUpdate(payload.Fields)
		if err != nil {
			return err
		}
		if err := a.repo.Update(ctx, payload.DocumentID, update); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "document no longer exists")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document")
		}
		return nil
	}
	return appErrors.Clone(appErrors.ErrValidation, "unsupported document sync action")
}

func (a *DocumentSyncApplier) buildDocument(payload models.DocumentSyncPayload) (*models.Document, error) {
	var document models.Document
	if len(payload.Fields) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no document fields provided")
	}
	if err := json.Unmarshal(payload.Fields, &document); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid document fields payload")
	}
	document.ID = payload.DocumentID
	if document.Title == "" || document.Category == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title and category are required")
	}
	if document.Status == "" {
		document.Status = models.DocumentStatusDraft
	}
	if !document.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported document status")
	}
	now := time.Now().UTC()
	if document.CreatedAt.IsZero() {
		document.CreatedAt = now
	}
	if document.LastUpdated.IsZero() {
		document.LastUpdated = now
	}
	return &document, nil
}

func (a *DocumentSyncApplier) buildUpdate(fields json.RawMessage) (models.DocumentUpdate, error) {
	var update models.DocumentUpdate
	if len(fields) == 0 {
		return update, appErrors.Clone(appErrors.ErrValidation, "no document fields provided")
	}
	if err := json.Unmarshal(fields, &update); err != nil {
		return update, appErrors.Clone(appErrors.ErrValidation, "invalid document fields payload")
	}
	if update.Status != nil && !update.Status.Valid() {
		return update, appErrors.Clone(appErrors.ErrValidation, "unsupported document status")
	}
	return update, nil
}

type riskSyncRepository interface {
	GetByID(ctx context.Context, id string) (*models.Risk, error)
	Append(ctx context.Context, risk *models.Risk) error
	Update(ctx context.Context, risk *models.Risk) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// RiskSyncApplier replays queued risk mutations against the risk register.
type RiskSyncApplier struct {
	repo   riskSyncRepository
	logger *zap.Logger
}

// NewRiskSyncApplier constructs an applier backed by the risk repository.
func NewRiskSyncApplier(repo riskSyncRepository, logger *zap.Logger) *RiskSyncApplier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RiskSyncApplier{repo: repo, logger: logger}
}

// Apply appends a new risk, merges the payload's fields onto a stored one,
// or removes it.
func (a *RiskSyncApplier) Apply(ctx context.Context, item models.SyncItem) error {
	if a.repo == nil {
		return appErrors.Clone(appErrors.ErrInternal, "risk repository not configured")
	}
	var payload models.RiskSyncPayload
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid risk sync payload")
	}
	if payload.RiskID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "riskId is required")
	}

	if item.Action == models.SyncActionDelete {
		if _, err := a.repo.Delete(ctx, payload.RiskID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete risk")
		}
		return nil
	}

	if item.Action == models.SyncActionCreate {
		risk, err := a.buildRisk(payload)
		if err != nil {
			return err
		}
		if err := a.repo.Append(ctx, risk); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create risk")
		}
		return nil
	}

	risk, err := a.repo.GetByID(ctx, payload.RiskID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load risk")
	}
	if risk == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "risk no longer exists")
	}
	if len(payload.Fields) > 0 {
		if err := json.Unmarshal(payload.Fields, risk); err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "invalid risk fields payload")
		}
	}
	found, err := a.repo.Update(ctx, risk)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update risk")
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "risk no longer exists")
	}
	return nil
}

func (a *RiskSyncApplier) buildRisk(payload models.RiskSyncPayload) (*models.Risk, error) {
	var risk models.Risk
	if len(payload.Fields) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no risk fields provided")
	}
	if err := json.Unmarshal(payload.Fields, &risk); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid risk fields payload")
	}
	risk.ID = payload.RiskID
	if risk.Title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	if risk.Status == "" {
		risk.Status = models.RiskStatusIdentified
	}
	if risk.Level == "" {
		risk.Level = models.RiskLevelLow
	}
	if risk.Assessments == nil {
		risk.Assessments = []models.RiskAssessment{}
	}
	if risk.Mitigations == nil {
		risk.Mitigations = []models.RiskMitigation{}
	}
	now := time.Now().UTC()
	if risk.IdentifiedDate.IsZero() {
		risk.IdentifiedDate = now
	}
	if risk.CreatedAt.IsZero() {
		risk.CreatedAt = now
	}
	risk.UpdatedAt = now
	return &risk, nil
}

// RemoteSyncApplier forwards queued items to an upstream compliance service
// over HTTP. It covers entity kinds with no local authority (assessment,
// audit, user replicas owned by the upstream).
type RemoteSyncApplier struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewRemoteSyncApplier constructs the forwarding applier. A nil client falls
// back to http.DefaultClient.
func NewRemoteSyncApplier(baseURL string, client *http.Client, logger *zap.Logger) *RemoteSyncApplier {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteSyncApplier{baseURL: strings.TrimRight(baseURL, "/"), client: client, logger: logger}
}

// Apply POSTs the item to the upstream sync endpoint. Any non-2xx response
// leaves the item pending.
func (a *RemoteSyncApplier) Apply(ctx context.Context, item models.SyncItem) error {
	if a.baseURL == "" {
		return appErrors.Clone(appErrors.ErrStorageUnavailable, "remote sync target not configured")
	}
	body, err := json.Marshal(item)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode sync item")
	}
	url := fmt.Sprintf("%s/sync/%s", a.baseURL, item.Entity)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build sync request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "remote sync target unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return appErrors.Clone(appErrors.ErrStorageUnavailable, fmt.Sprintf("remote sync target returned %d", resp.StatusCode))
	}
	return nil
}
