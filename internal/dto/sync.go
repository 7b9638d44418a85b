package dto

import "encoding/json"

// EnqueueSyncRequest records a local mutation for later replay.
type EnqueueSyncRequest struct {
	Action string          `json:"action" validate:"required"`
	Entity string          `json:"entity" validate:"required"`
	Data   json.RawMessage `json:"data" validate:"required"`
}
