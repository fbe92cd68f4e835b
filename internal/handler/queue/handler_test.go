package queue

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

	"github.com/careops/queue-api/internal/model"
	apperrors "github.com/careops/queue-api/pkg/errors"
)

type stubService struct {
	snapshot    *model.QueueSnapshot
	snapshotErr error
	updateErr   error
	admitCode   string
	admitErr    error

	lastUpdate *model.UpdateQueueStatusRequest
	lastAdmit  *model.AdmitWalkInRequest
}

func (s *stubService) Snapshot(_ context.Context) (*model.QueueSnapshot, error) {
	return s.snapshot, s.snapshotErr
}

func (s *stubService) UpdateStatus(_ context.Context, req *model.UpdateQueueStatusRequest) error {
	s.lastUpdate = req
	return s.updateErr
}

func (s *stubService) AdmitWalkIn(_ context.Context, req *model.AdmitWalkInRequest) (string, error) {
	s.lastAdmit = req
	return s.admitCode, s.admitErr
}

func setupRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewHandler(svc).RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestGetQueueSuccess(t *testing.T) {
	svc := &stubService{
		snapshot: &model.QueueSnapshot{
			Queue: []model.QueueEntry{{AppointmentID: "APT-1", Status: model.QueueStatusScheduled}},
			Stats: model.QueueStats{Total: 1, Waiting: 1},
		},
	}
	engine := setupRouter(svc)

	w := doJSON(t, engine, http.MethodGet, "/api/v1/queue", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                `json:"success"`
		Data    model.QueueSnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Data.Stats.Total)
	require.Len(t, resp.Data.Queue, 1)
	assert.Equal(t, "APT-1", resp.Data.Queue[0].AppointmentID)
}

func TestGetQueueStorageError(t *testing.T) {
	svc := &stubService{snapshotErr: apperrors.Storage(assert.AnError)}
	engine := setupRouter(svc)

	w := doJSON(t, engine, http.MethodGet, "/api/v1/queue", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error(), "driver errors must not leak")
}

func TestUpdateStatusSuccess(t *testing.T) {
	svc := &stubService{}
	engine := setupRouter(svc)

	w := doJSON(t, engine, http.MethodPut, "/api/v1/queue", gin.H{
		"appointment_id": "APT-1",
		"status":         "in-progress",
		"notes":          "called in",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, svc.lastUpdate)
	assert.Equal(t, "APT-1", svc.lastUpdate.AppointmentID)
	assert.Equal(t, model.QueueStatusInProgress, svc.lastUpdate.Status)
	require.NotNil(t, svc.lastUpdate.Notes)
	assert.Equal(t, "called in", *svc.lastUpdate.Notes)
}

func TestUpdateStatusMissingFields(t *testing.T) {
	svc := &stubService{}
	engine := setupRouter(svc)

	w := doJSON(t, engine, http.MethodPut, "/api/v1/queue", gin.H{"status": "completed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.lastUpdate, "service must not be called")

	w = doJSON(t, engine, http.MethodPut, "/api/v1/queue", gin.H{"appointment_id": "APT-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStatusErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not_found", apperrors.NotFound("appointment", nil), http.StatusNotFound},
		{"conflict", apperrors.Conflict("status changed"), http.StatusConflict},
		{"invalid_transition", apperrors.InvalidTransition("completed", "scheduled"), http.StatusBadRequest},
		{"invalid_status", apperrors.InvalidStatus("cancelled"), http.StatusBadRequest},
		{"storage", apperrors.Storage(assert.AnError), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := setupRouter(&stubService{updateErr: tc.err})
			w := doJSON(t, engine, http.MethodPut, "/api/v1/queue", gin.H{
				"appointment_id": "APT-1",
				"status":         "in-progress",
			})
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestAdmitWalkInSuccess(t *testing.T) {
	svc := &stubService{admitCode: "APT-20250314100000-9F3A2C"}
	engine := setupRouter(svc)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/queue", gin.H{
		"patient_id": "7f6c23b0-96ff-4b78-a4a2-32c1f43df2a1",
		"doctor_id":  "f2b1a6cc-0b4e-41cf-9130-1a3bb7e6a9d4",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			AppointmentID string `json:"appointment_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, svc.admitCode, resp.Data.AppointmentID)
}

func TestAdmitWalkInMissingFields(t *testing.T) {
	svc := &stubService{}
	engine := setupRouter(svc)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/queue", gin.H{
		"patient_id": "7f6c23b0-96ff-4b78-a4a2-32c1f43df2a1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.lastAdmit)
}

func TestAdmitWalkInStorageError(t *testing.T) {
	svc := &stubService{admitErr: apperrors.Storage(assert.AnError)}
	engine := setupRouter(svc)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/queue", gin.H{
		"patient_id": "7f6c23b0-96ff-4b78-a4a2-32c1f43df2a1",
		"doctor_id":  "f2b1a6cc-0b4e-41cf-9130-1a3bb7e6a9d4",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
