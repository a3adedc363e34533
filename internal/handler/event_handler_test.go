package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Inrcyteam/inrcy-app-sub002/internal/event"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/model"
)

// mockEventService はEventServiceInterfaceのモック実装。
type mockEventService struct {
	recordFn func(ctx context.Context, userID, stream string, input event.RecordInput) (*model.DashboardEvent, error)
}

func (m *mockEventService) Record(ctx context.Context, userID, stream string, input event.RecordInput) (*model.DashboardEvent, error) {
	if m.recordFn != nil {
		return m.recordFn(ctx, userID, stream, input)
	}
	return nil, nil
}

var _ EventServiceInterface = (*mockEventService)(nil)

// --- POST /api/events/{stream} テスト ---

func TestEventHandler_Record_Success(t *testing.T) {
	svc := &mockEventService{
		recordFn: func(ctx context.Context, userID, stream string, input event.RecordInput) (*model.DashboardEvent, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want user-1", userID)
			}
			if stream != "booster" {
				t.Errorf("stream = %q, want booster", stream)
			}
			if input.EventType != "campaign_started" {
				t.Errorf("event_type = %q, want campaign_started", input.EventType)
			}
			return &model.DashboardEvent{
				ID:        "event-1",
				UserID:    userID,
				Stream:    stream,
				EventType: input.EventType,
				Payload:   input.Payload,
				CreatedAt: time.Now(),
			}, nil
		},
	}
	collector := &mockMetricsCollector{}
	h := NewEventHandler(svc, collector)

	body := `{"type": "campaign_started", "payload": {"campaign_id": "c-1"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/events/booster", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "stream", "booster")
	w := httptest.NewRecorder()

	h.Record(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp map[string]bool
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !resp["ok"] {
		t.Error("response should report ok:true")
	}

	if len(collector.eventsRecorded) != 1 || collector.eventsRecorded[0] != "booster" {
		t.Errorf("eventsRecorded = %v, want [booster]", collector.eventsRecorded)
	}
}

func TestEventHandler_Record_InvalidStream(t *testing.T) {
	svc := &mockEventService{
		recordFn: func(ctx context.Context, userID, stream string, input event.RecordInput) (*model.DashboardEvent, error) {
			return nil, model.NewInvalidEventStreamError(stream)
		},
	}
	collector := &mockMetricsCollector{}
	h := NewEventHandler(svc, collector)

	body := `{"type": "campaign_started"}`
	req := httptest.NewRequest(http.MethodPost, "/api/events/unknown", bytes.NewBufferString(body))
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "stream", "unknown")
	w := httptest.NewRecorder()

	h.Record(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp := parseAPIErrorResponse(t, w); resp["code"] != model.ErrCodeInvalidEventStream {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeInvalidEventStream)
	}
	if len(collector.eventsRecorded) != 0 {
		t.Error("metrics should not be recorded on failure")
	}
}

func TestEventHandler_Record_InvalidEventType(t *testing.T) {
	svc := &mockEventService{
		recordFn: func(ctx context.Context, userID, stream string, input event.RecordInput) (*model.DashboardEvent, error) {
			return nil, model.NewInvalidEventTypeError(input.EventType)
		},
	}
	h := NewEventHandler(svc, nil)

	body := `{"type": "reward_granted"}`
	req := httptest.NewRequest(http.MethodPost, "/api/events/booster", bytes.NewBufferString(body))
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "stream", "booster")
	w := httptest.NewRecorder()

	h.Record(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp := parseAPIErrorResponse(t, w); resp["code"] != model.ErrCodeInvalidEventType {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeInvalidEventType)
	}
}

func TestEventHandler_Record_MalformedBody(t *testing.T) {
	h := NewEventHandler(&mockEventService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/events/booster", bytes.NewBufferString("{not json"))
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "stream", "booster")
	w := httptest.NewRecorder()

	h.Record(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp := parseAPIErrorResponse(t, w); resp["code"] != model.ErrCodeInvalidRequest {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeInvalidRequest)
	}
}

func TestEventHandler_Record_Unauthenticated(t *testing.T) {
	h := NewEventHandler(&mockEventService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/events/booster", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()

	h.Record(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
