package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/pulse/internal/feedback"
	"github.com/onnwee/pulse/internal/idempotency"
)

// rejectingSink always refuses events, simulating a full queue.
type rejectingSink struct{}

func (rejectingSink) Record(*feedback.Event) bool { return false }

// newFeedbackFixture starts an async sink draining into a memory rollup.
func newFeedbackFixture(t *testing.T) (*FeedbackHandlers, *feedback.MemoryRollup) {
	t.Helper()

	rollup := feedback.NewMemoryRollup()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := feedback.NewAsyncSink(feedback.AsyncSinkConfig{Logger: logger}, rollup)
	if !sink.Start(context.Background()) {
		t.Fatal("sink failed to start")
	}
	t.Cleanup(sink.Stop)

	return NewFeedbackHandlers(sink, idempotency.NewInMemoryRepository(), logger), rollup
}

func TestPostFeedback_JSON(t *testing.T) {
	h, rollup := newFeedbackFixture(t)

	body := `{"user_id":"u-1","content_id":"c-1","kind":"like","occurred_at":"2026-08-30T12:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/feedback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.PostFeedback(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d, body: %s", rr.Code, rr.Body.String())
	}

	var resp feedbackAccepted
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Status != "accepted" {
		t.Errorf("expected status accepted, got %s", resp.Status)
	}

	// The sink is asynchronous; poll briefly for the rollup to apply.
	deadline := time.Now().Add(2 * time.Second)
	for rollup.Count("c-1", feedback.KindLike) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event never reached the rollup")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPostFeedback_CBOR(t *testing.T) {
	h, rollup := newFeedbackFixture(t)

	event := &feedback.Event{
		UserID:       "u-2",
		ContentID:    "c-2",
		Kind:         feedback.KindWatch,
		WatchSeconds: 12.5,
		OccurredAt:   time.Now().UTC(),
	}
	data, err := feedback.EncodeEvent(event)
	if err != nil {
		t.Fatalf("failed to encode event: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/feedback", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/cbor")
	rr := httptest.NewRecorder()
	h.PostFeedback(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d, body: %s", rr.Code, rr.Body.String())
	}

	deadline := time.Now().Add(2 * time.Second)
	for rollup.WatchSeconds("c-2") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("watch event never reached the rollup")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPostFeedback_DefaultsContentTypeToJSON(t *testing.T) {
	h, _ := newFeedbackFixture(t)

	body := `{"user_id":"u-3","content_id":"c-3","kind":"view"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/feedback", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.PostFeedback(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Errorf("expected status 202 without a content type, got %d", rr.Code)
	}
}

func TestPostFeedback_MalformedJSON(t *testing.T) {
	h, _ := newFeedbackFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/feedback", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.PostFeedback(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestPostFeedback_MalformedCBOR(t *testing.T) {
	h, _ := newFeedbackFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/feedback", bytes.NewReader([]byte{0xff, 0x00}))
	req.Header.Set("Content-Type", "application/cbor")
	rr := httptest.NewRecorder()
	h.PostFeedback(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestPostFeedback_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing user", `{"content_id":"c-1","kind":"like"}`},
		{"missing content", `{"user_id":"u-1","kind":"like"}`},
		{"unknown kind", `{"user_id":"u-1","content_id":"c-1","kind":"poke"}`},
	}

	h, _ := newFeedbackFixture(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/feedback", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			h.PostFeedback(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rr.Code)
			}

			var resp ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if resp.Error.Code != ErrCodeValidation {
				t.Errorf("expected code %s, got %s", ErrCodeValidation, resp.Error.Code)
			}
		})
	}
}

func TestPostFeedback_UnsupportedContentType(t *testing.T) {
	h, _ := newFeedbackFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/feedback", strings.NewReader("user_id=u-1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.PostFeedback(rr, req)

	if rr.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected status 415, got %d", rr.Code)
	}
}

func TestPostFeedback_MethodNotAllowed(t *testing.T) {
	h, _ := newFeedbackFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/feedback", nil)
	rr := httptest.NewRecorder()
	h.PostFeedback(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rr.Code)
	}
}

// countingSink accepts everything and counts enqueues.
type countingSink struct {
	records int
}

func (s *countingSink) Record(*feedback.Event) bool {
	s.records++
	return true
}

func TestPostFeedback_IdempotentReplay(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := &countingSink{}
	h := NewFeedbackHandlers(sink, idempotency.NewInMemoryRepository(), logger)

	body := `{"user_id":"u-1","content_id":"c-1","kind":"like"}`
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/feedback", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "evt-abc-123")
		rr := httptest.NewRecorder()
		h.PostFeedback(rr, req)

		if rr.Code != http.StatusAccepted {
			t.Fatalf("attempt %d: expected status 202, got %d, body: %s", i, rr.Code, rr.Body.String())
		}
	}

	if sink.records != 1 {
		t.Errorf("expected exactly one enqueue across replays, got %d", sink.records)
	}
}

func TestPostFeedback_IdempotencyKeyConflict(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := &countingSink{}
	h := NewFeedbackHandlers(sink, idempotency.NewInMemoryRepository(), logger)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/feedback", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "evt-reused")
		rr := httptest.NewRecorder()
		h.PostFeedback(rr, req)
		return rr
	}

	if rr := post(`{"user_id":"u-1","content_id":"c-1","kind":"like"}`); rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rr.Code)
	}

	rr := post(`{"user_id":"u-1","content_id":"c-2","kind":"like"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409 on reused key, got %d", rr.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Error.Code != ErrCodeConflict {
		t.Errorf("expected code %s, got %s", ErrCodeConflict, resp.Error.Code)
	}
	if sink.records != 1 {
		t.Errorf("conflicting event must not be enqueued, got %d enqueues", sink.records)
	}
}

func TestPostFeedback_InvalidIdempotencyKey(t *testing.T) {
	h, _ := newFeedbackFixture(t)

	body := `{"user_id":"u-1","content_id":"c-1","kind":"like"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/feedback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", strings.Repeat("k", idempotency.MaxKeyLength+1))
	rr := httptest.NewRecorder()
	h.PostFeedback(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for an oversized key, got %d", rr.Code)
	}
}

func TestPostFeedback_QueueFull(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewFeedbackHandlers(rejectingSink{}, nil, logger)

	body := `{"user_id":"u-1","content_id":"c-1","kind":"like"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/feedback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.PostFeedback(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
}
