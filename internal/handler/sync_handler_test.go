package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smap-labs/smap-compliance-api/internal/models"
	appErrors "github.com/smap-labs/smap-compliance-api/pkg/errors"
)

type syncServiceMock struct {
	enqueueResp   *models.SyncItem
	enqueueErr    error
	pendingResp   []models.SyncItem
	drainResp     models.DrainResult
	drainErr      error
	markFound     bool
	lastAction    models.SyncAction
	lastEntity    models.SyncEntity
	drainCalled   bool
	enqueueCalled bool
}

func (m *syncServiceMock) Enqueue(ctx context.Context, action models.SyncAction, entity models.SyncEntity, data json.RawMessage) (*models.SyncItem, error) {
	m.enqueueCalled = true
	m.lastAction = action
	m.lastEntity = entity
	return m.enqueueResp, m.enqueueErr
}

func (m *syncServiceMock) Pending(ctx context.Context) ([]models.SyncItem, error) {
	return m.pendingResp, nil
}

func (m *syncServiceMock) MarkSynced(ctx context.Context, id string) (bool, error) {
	return m.markFound, nil
}

func (m *syncServiceMock) DrainAll(ctx context.Context) (models.DrainResult, error) {
	m.drainCalled = true
	return m.drainResp, m.drainErr
}

func TestSyncHandlerEnqueue(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &syncServiceMock{
		enqueueResp: &models.SyncItem{ID: "item-1", Action: models.SyncActionUpdate, Entity: models.SyncEntityDocument},
	}
	handler := NewSyncHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := bytes.NewBufferString(`{"action":"update","entity":"document","data":{"documentId":"doc-1"}}`)
	req, _ := http.NewRequest(http.MethodPost, "/sync/queue", body)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Enqueue(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.enqueueCalled)
	assert.Equal(t, models.SyncActionUpdate, mockSvc.lastAction)
	assert.Equal(t, models.SyncEntityDocument, mockSvc.lastEntity)
}

func TestSyncHandlerEnqueueInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSyncHandler(&syncServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/sync/queue", bytes.NewBufferString(`{"action":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Enqueue(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncHandlerDrain(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &syncServiceMock{drainResp: models.DrainResult{Success: true, Synced: 2}}
	handler := NewSyncHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/sync/drain", nil)
	c.Request = req

	handler.Drain(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.drainCalled)
	assert.Contains(t, w.Body.String(), `"synced":2`)
}

func TestSyncHandlerMarkSyncedMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSyncHandler(&syncServiceMock{markFound: false})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/sync/queue/ghost/synced", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}

	handler.MarkSynced(c)
	require.Equal(t, appErrors.ErrNotFound.Status, w.Code)
}
