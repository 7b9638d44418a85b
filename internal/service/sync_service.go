package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smap-labs/smap-compliance-api/internal/models"
	appErrors "github.com/smap-labs/smap-compliance-api/pkg/errors"
)

type syncRepository interface {
	All(ctx context.Context) ([]models.SyncItem, error)
	Append(ctx context.Context, item *models.SyncItem) error
	Replace(ctx context.Context, items []models.SyncItem) error
}

// SyncApplier replays one queued mutation of a particular entity kind
// against the remote authority.
type SyncApplier interface {
	Apply(ctx context.Context, item models.SyncItem) error
}

// SyncApplierFunc allows using plain functions as appliers.
type SyncApplierFunc func(ctx context.Context, item models.SyncItem) error

// Apply implements SyncApplier.
func (f SyncApplierFunc) Apply(ctx context.Context, item models.SyncItem) error {
	return f(ctx, item)
}

type syncMetrics interface {
	ObserveSyncDrain(synced, failed int)
}

// SyncService records local mutations while offline and replays them, in
// enqueue order, against the remote authority. It is connectivity-agnostic:
// callers decide when to drain.
type SyncService struct {
	repo     syncRepository
	appliers map[models.SyncEntity]SyncApplier
	metrics  syncMetrics
	audit    auditLogger
	logger   *zap.Logger
}

// SyncServiceOption configures the service.
type SyncServiceOption func(*SyncService)

// WithSyncAppliers sets the applier map keyed by entity kind.
func WithSyncAppliers(appliers map[models.SyncEntity]SyncApplier) SyncServiceOption {
	return func(s *SyncService) {
		for k, v := range appliers {
			s.appliers[k] = v
		}
	}
}

// WithSyncMetrics sets the drain metrics sink.
func WithSyncMetrics(metrics syncMetrics) SyncServiceOption {
	return func(s *SyncService) {
		s.metrics = metrics
	}
}

// WithSyncAudit sets the audit trail sink.
func WithSyncAudit(audit auditLogger) SyncServiceOption {
	return func(s *SyncService) {
		s.audit = audit
	}
}

// NewSyncService constructs the queue engine.
func NewSyncService(repo syncRepository, logger *zap.Logger, opts ...SyncServiceOption) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &SyncService{
		repo:     repo,
		appliers: make(map[models.SyncEntity]SyncApplier),
		logger:   logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Enqueue records a mutation for later replay. Unknown action or entity
// tags are rejected up front; once the item is well-formed, storage
// unavailability is swallowed with a logged warning so the user-facing
// action that triggered the enqueue is never blocked.
func (s *SyncService) Enqueue(ctx context.Context, action models.SyncAction, entity models.SyncEntity, data json.RawMessage) (*models.SyncItem, error) {
	if !action.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported sync action")
	}
	if !entity.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported sync entity")
	}
	if len(data) == 0 || !json.Valid(data) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "data must be valid JSON")
	}

	item := &models.SyncItem{
		ID:        uuid.NewString(),
		Action:    action,
		Entity:    entity,
		Payload:   append(json.RawMessage(nil), data...),
		Timestamp: time.Now().UTC(),
		Synced:    false,
	}
	if err := s.repo.Append(ctx, item); err != nil {
		s.logger.Warn("sync storage unavailable, dropping queued item",
			zap.String("item_id", item.ID),
			zap.String("entity", string(entity)),
			zap.Error(err))
	}
	return item, nil
}

// PendingCount returns the number of items not yet synced.
func (s *SyncService) PendingCount(ctx context.Context) (int, error) {
	items, err := s.repo.All(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read sync queue")
	}
	count := 0
	for i := range items {
		if !items[i].Synced {
			count++
		}
	}
	return count, nil
}

// Pending returns the not-yet-synced items in enqueue order.
func (s *SyncService) Pending(ctx context.Context) ([]models.SyncItem, error) {
	items, err := s.repo.All(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read sync queue")
	}
	pending := make([]models.SyncItem, 0, len(items))
	for i := range items {
		if !items[i].Synced {
			pending = append(pending, items[i])
		}
	}
	return pending, nil
}

// MarkSynced flips an item's synced flag. Re-marking an already synced item
// is a no-op returning true; the flag never reverts.
func (s *SyncService) MarkSynced(ctx context.Context, id string) (bool, error) {
	items, err := s.repo.All(ctx)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read sync queue")
	}
	for i := range items {
		if items[i].ID != id {
			continue
		}
		if items[i].Synced {
			return true, nil
		}
		items[i].Synced = true
		if err := s.repo.Replace(ctx, items); err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist sync queue")
		}
		return true, nil
	}
	return false, nil
}

// DrainAll replays every pending item sequentially, in enqueue order, since
// later items may depend on earlier ones. Each attempt succeeds or fails
// independently: successes are marked synced, failures stay pending for a
// later drain. After the pass, synced items are discarded from storage.
// Per-item failures never raise; Success is true iff the pass had zero
// failures.
func (s *SyncService) DrainAll(ctx context.Context) (models.DrainResult, error) {
	result := models.DrainResult{}

	items, err := s.repo.All(ctx)
	if err != nil {
		return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read sync queue")
	}

	for i := range items {
		if items[i].Synced {
			continue
		}
		applier, ok := s.appliers[items[i].Entity]
		if !ok {
			result.Failed++
			s.logger.Warn("no applier registered for sync entity",
				zap.String("item_id", items[i].ID),
				zap.String("entity", string(items[i].Entity)))
			continue
		}
		if err := applier.Apply(ctx, items[i]); err != nil {
			result.Failed++
			s.logger.Warn("sync item replay failed",
				zap.String("item_id", items[i].ID),
				zap.String("entity", string(items[i].Entity)),
				zap.String("action", string(items[i].Action)),
				zap.Error(err))
			continue
		}
		items[i].Synced = true
		result.Synced++
	}

	// Compaction: only failed items survive the pass.
	remaining := make([]models.SyncItem, 0, len(items))
	for i := range items {
		if !items[i].Synced {
			remaining = append(remaining, items[i])
		}
	}
	if err := s.repo.Replace(ctx, remaining); err != nil {
		return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compact sync queue")
	}

	result.Success = result.Failed == 0
	if s.metrics != nil {
		s.metrics.ObserveSyncDrain(result.Synced, result.Failed)
	}
	s.emitAudit(ctx, result)
	return result, nil
}

func (s *SyncService) emitAudit(ctx context.Context, result models.DrainResult) {
	if s.audit == nil {
		return
	}
	values, err := json.Marshal(result)
	if err != nil {
		values = []byte("{}")
	}
	log := &models.AuditLog{
		Action:    models.AuditActionSyncDrain,
		Resource:  "sync_queue",
		NewValues: values,
		IPAddress: "system",
		UserAgent: "sync-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
