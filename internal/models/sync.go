package models

import (
	"encoding/json"
	"time"
)

// SyncAction enumerates the mutations the offline queue records.
type SyncAction string

const (
	SyncActionCreate SyncAction = "create"
	SyncActionUpdate SyncAction = "update"
	SyncActionDelete SyncAction = "delete"
)

// SyncEntity enumerates the entity kinds a sync item may carry. Replay
// dispatches on this tag, so every value here needs a registered applier.
type SyncEntity string

const (
	SyncEntityDocument   SyncEntity = "document"
	SyncEntityAssessment SyncEntity = "assessment"
	SyncEntityAudit      SyncEntity = "audit"
	SyncEntityUser       SyncEntity = "user"
	SyncEntityRisk       SyncEntity = "risk"
)

// KnownSyncEntities lists every entity kind the queue accepts.
var KnownSyncEntities = []SyncEntity{
	SyncEntityDocument,
	SyncEntityAssessment,
	SyncEntityAudit,
	SyncEntityUser,
	SyncEntityRisk,
}

// Valid reports whether the entity tag is one of the known kinds.
func (e SyncEntity) Valid() bool {
	for _, known := range KnownSyncEntities {
		if e == known {
			return true
		}
	}
	return false
}

// Valid reports whether the action is one of create, update, delete.
func (a SyncAction) Valid() bool {
	switch a {
	case SyncActionCreate, SyncActionUpdate, SyncActionDelete:
		return true
	}
	return false
}

// SyncItem is one queued local mutation awaiting replay against the remote
// authority. Synced flips false to true exactly once and never reverts;
// synced items are purged during queue compaction.
type SyncItem struct {
	ID        string          `json:"id"`
	Action    SyncAction      `json:"action"`
	Entity    SyncEntity      `json:"entity"`
	Payload   json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	Synced    bool            `json:"synced"`
}

// DrainResult summarises one sequential replay pass over the pending queue.
type DrainResult struct {
	Success bool `json:"success"`
	Synced  int  `json:"synced"`
	Failed  int  `json:"failed"`
}

// DocumentSyncPayload is the typed payload carried by document sync items.
type DocumentSyncPayload struct {
	DocumentID string          `json:"documentId"`
	Fields     json.RawMessage `json:"fields,omitempty"`
}

// RiskSyncPayload is the typed payload carried by risk sync items.
type RiskSyncPayload struct {
	RiskID string          `json:"riskId"`
	Fields json.RawMessage `json:"fields,omitempty"`
}
