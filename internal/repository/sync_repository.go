package repository

import (
	"context"
	"fmt"

	"github.com/smap-labs/smap-compliance-api/internal/models"
	"github.com/smap-labs/smap-compliance-api/pkg/kvstore"
)

const pendingSyncsKey = "pending_syncs"

// SyncRepository owns the single global list of queued sync items. Order in
// the list is enqueue order and must be preserved, since later items may
// depend on earlier ones.
type SyncRepository struct {
	store kvstore.Store
}

// NewSyncRepository constructs the repository.
func NewSyncRepository(store kvstore.Store) *SyncRepository {
	return &SyncRepository{store: store}
}

// All returns every stored sync item in enqueue order.
func (r *SyncRepository) All(ctx context.Context) ([]models.SyncItem, error) {
	var items []models.SyncItem
	found, err := r.store.Get(ctx, pendingSyncsKey, &items)
	if err != nil {
		return nil, fmt.Errorf("list sync items: %w", err)
	}
	if !found {
		return []models.SyncItem{}, nil
	}
	return items, nil
}

// Append adds an item to the end of the queue.
func (r *SyncRepository) Append(ctx context.Context, item *models.SyncItem) error {
	items, err := r.All(ctx)
	if err != nil {
		return err
	}
	items = append(items, *item)
	if err := r.store.Set(ctx, pendingSyncsKey, items); err != nil {
		return fmt.Errorf("append sync item: %w", err)
	}
	return nil
}

// Replace overwrites the whole queue, used for flag flips and compaction.
func (r *SyncRepository) Replace(ctx context.Context, items []models.SyncItem) error {
	if items == nil {
		items = []models.SyncItem{}
	}
	if err := r.store.Set(ctx, pendingSyncsKey, items); err != nil {
		return fmt.Errorf("replace sync items: %w", err)
	}
	return nil
}
