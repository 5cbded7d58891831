package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/onnwee/pulse/internal/feed"
	"github.com/onnwee/pulse/internal/profile"
)

// newFeedFixture assembles a feed service with one viewer and a handful
// of scoreable candidates.
func newFeedFixture(t *testing.T) *FeedHandlers {
	t.Helper()

	profiles := profile.NewMemoryStore()
	profiles.Put(&feed.UserProfile{
		UserID:         "viewer",
		InterestTopics: []string{"gardening"},
		FriendIDs:      []string{"friend-1"},
		FollowingIDs:   []string{"friend-1", "creator-1"},
		UpdatedAt:      time.Now(),
	})

	source := feed.NewMemorySource()
	now := time.Now()
	source.Put(&feed.ContentFeatures{
		ContentID:      "c-friend",
		Kind:           feed.KindPost,
		CreatorID:      "friend-1",
		Likes:          10,
		Views:          200,
		EngagementRate: 0.05,
		CreatedAt:      now.Add(-2 * time.Hour),
		AgeHours:       2,
	})
	source.Put(&feed.ContentFeatures{
		ContentID:      "c-interest",
		Kind:           feed.KindClip,
		CreatorID:      "stranger-1",
		Topics:         []string{"gardening"},
		Likes:          50,
		Views:          1000,
		EngagementRate: 0.06,
		CreatedAt:      now.Add(-4 * time.Hour),
		AgeHours:       4,
	})
	source.Put(&feed.ContentFeatures{
		ContentID:      "c-blocked",
		Kind:           feed.KindPost,
		CreatorID:      "blocked-creator",
		Likes:          500,
		Views:          5000,
		EngagementRate: 0.12,
		CreatedAt:      now.Add(-1 * time.Hour),
		AgeHours:       1,
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := feed.NewService(source, nil, nil, logger)
	return NewFeedHandlers(service, profiles, logger)
}

func TestGetFeed_Success(t *testing.T) {
	h := newFeedFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/feed?user_id=viewer", nil)
	rr := httptest.NewRecorder()
	h.GetFeed(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d, body: %s", rr.Code, rr.Body.String())
	}

	var resp feed.Response
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Variant != feed.VariantHome {
		t.Errorf("expected home variant by default, got %s", resp.Variant)
	}
	if len(resp.Items) == 0 {
		t.Fatal("expected a non-empty feed")
	}
	for i, item := range resp.Items {
		if item.Rank != i+1 {
			t.Errorf("item %d: expected rank %d, got %d", i, i+1, item.Rank)
		}
	}
}

func TestGetFeed_MissingUserID(t *testing.T) {
	h := newFeedFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/feed", nil)
	rr := httptest.NewRecorder()
	h.GetFeed(rr, req)

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
}

func TestGetFeed_UnknownViewer(t *testing.T) {
	h := newFeedFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/feed?user_id=ghost", nil)
	rr := httptest.NewRecorder()
	h.GetFeed(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestGetFeed_UnknownVariant(t *testing.T) {
	h := newFeedFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/feed?user_id=viewer&variant=trending", nil)
	rr := httptest.NewRecorder()
	h.GetFeed(rr, req)

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
}

func TestGetFeed_BlockedCreatorExcluded(t *testing.T) {
	h := newFeedFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/feed?user_id=viewer&blocked=blocked-creator", nil)
	rr := httptest.NewRecorder()
	h.GetFeed(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp feed.Response
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	for _, item := range resp.Items {
		if item.CreatorID == "blocked-creator" {
			t.Errorf("blocked creator's content %s should not appear", item.ContentID)
		}
	}
}

func TestGetFeed_SeenExcluded(t *testing.T) {
	h := newFeedFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/feed?user_id=viewer&seen=c-friend,c-interest", nil)
	rr := httptest.NewRecorder()
	h.GetFeed(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp feed.Response
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	for _, item := range resp.Items {
		if item.ContentID == "c-friend" || item.ContentID == "c-interest" {
			t.Errorf("seen content %s should not appear", item.ContentID)
		}
	}
}

func TestGetFeed_MethodNotAllowed(t *testing.T) {
	h := newFeedFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/feed?user_id=viewer", nil)
	rr := httptest.NewRecorder()
	h.GetFeed(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rr.Code)
	}
}

func TestGetFeed_Pagination(t *testing.T) {
	h := newFeedFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/feed?user_id=viewer&limit=1", nil)
	rr := httptest.NewRecorder()
	h.GetFeed(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp feed.Response
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(resp.Items))
	}
	if !resp.HasMore {
		t.Error("expected more pages with limit=1")
	}
	if resp.NextOffset != 1 {
		t.Errorf("expected next_offset 1, got %d", resp.NextOffset)
	}
}

func TestParseIDSet(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"empty", "", 0},
		{"single", "a", 1},
		{"multiple", "a,b,c", 3},
		{"whitespace and empties", " a , ,b, ", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := parseIDSet(tt.raw)
			if tt.want == 0 {
				if set != nil {
					t.Errorf("expected nil set, got %v", set)
				}
				return
			}
			if len(set) != tt.want {
				t.Errorf("expected %d ids, got %d", tt.want, len(set))
			}
		})
	}
}
