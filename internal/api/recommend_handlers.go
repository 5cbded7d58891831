package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/onnwee/pulse/internal/middleware"
	"github.com/onnwee/pulse/internal/recommend"
	"github.com/onnwee/pulse/internal/snapshot"
)

// defaultSimilarLimit bounds GET /v1/users/{id}/similar when no limit is given.
const defaultSimilarLimit = 20

// RecommendHandlers provides the recommendation endpoints.
type RecommendHandlers struct {
	service   *recommend.Service
	snapshots *snapshot.Manager
	logger    *slog.Logger
}

// NewRecommendHandlers creates recommendation HTTP handlers.
func NewRecommendHandlers(service *recommend.Service, snapshots *snapshot.Manager, logger *slog.Logger) *RecommendHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecommendHandlers{
		service:   service,
		snapshots: snapshots,
		logger:    logger,
	}
}

// GetRecommendations handles GET /v1/recommendations.
//
// Query parameters:
//   - user_id (required): the account to recommend for
//   - type: people (default), creators, or communities
//   - limit, offset: pagination, clamped by the service
//   - exclude: comma-separated ids to skip (e.g. already dismissed)
func (h *RecommendHandlers) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	q := r.URL.Query()

	userID := q.Get("user_id")
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "user_id is required")
		return
	}

	ctx := middleware.SetUserID(r.Context(), userID)
	middleware.UpdateResponseContext(w, ctx)

	req := &recommend.Request{
		UserID:     userID,
		Type:       recommend.Type(q.Get("type")),
		ExcludeIDs: parseIDList(q.Get("exclude")),
		Limit:      parseIntParam(q.Get("limit")),
		Offset:     parseIntParam(q.Get("offset")),
	}

	resp, err := h.service.Recommend(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, recommend.ErrUnknownType):
			ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Unknown recommendation type")
		case errors.Is(err, recommend.ErrNotReady):
			ctx = middleware.SetErrorCode(ctx, ErrCodeNotReady)
			WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeNotReady, "Recommendations are warming up, retry shortly")
		default:
			h.logger.ErrorContext(ctx, "recommendation failed", "error", err, "user_id", userID)
			ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to build recommendations")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode recommendations", "error", err)
	}
}

// SimilarUser is one audience-overlap neighbor of a target account.
type SimilarUser struct {
	UserID     string  `json:"user_id"`
	Similarity float64 `json:"similarity"`
}

// SimilarUsersResponse is the body of GET /v1/users/{id}/similar.
type SimilarUsersResponse struct {
	UserID string        `json:"user_id"`
	Users  []SimilarUser `json:"users"`
}

// GetSimilarUsers handles GET /v1/users/{id}/similar. It returns accounts
// whose follower audience most overlaps the target's, by cosine
// similarity over follower sets.
func (h *RecommendHandlers) GetSimilarUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	userID := pathSegment(r.URL.Path, "/v1/users/", "/similar")
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "user id is required")
		return
	}

	ctx := r.Context()

	snap, err := h.snapshots.Current()
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeNotReady)
		WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeNotReady, "Similarity index is warming up, retry shortly")
		return
	}

	limit := parseIntParam(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultSimilarLimit
	}

	neighbors := snap.Similarity.SimilarByAudience(userID, limit)
	users := make([]SimilarUser, 0, len(neighbors))
	for _, n := range neighbors {
		users = append(users, SimilarUser{UserID: n.UserID, Similarity: n.Similarity})
	}

	resp := SimilarUsersResponse{UserID: userID, Users: users}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode similar users", "error", err)
	}
}

// parseIDList splits a comma-separated id list, dropping empty entries.
func parseIDList(raw string) []string {
	if raw == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// pathSegment extracts the dynamic segment between a prefix and suffix,
// e.g. the user id from /v1/users/{id}/similar. Returns empty when the
// path does not match.
func pathSegment(path, prefix, suffix string) string {
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return ""
	}
	seg := strings.TrimSuffix(strings.TrimPrefix(path, prefix), suffix)
	if strings.Contains(seg, "/") {
		return ""
	}
	return seg
}
