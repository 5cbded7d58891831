package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/onnwee/pulse/internal/feed"
	"github.com/onnwee/pulse/internal/middleware"
	"github.com/onnwee/pulse/internal/profile"
)

// FeedHandlers provides the personalized feed endpoint.
type FeedHandlers struct {
	service  *feed.Service
	profiles profile.Source
	logger   *slog.Logger
}

// NewFeedHandlers creates feed HTTP handlers.
func NewFeedHandlers(service *feed.Service, profiles profile.Source, logger *slog.Logger) *FeedHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedHandlers{
		service:  service,
		profiles: profiles,
		logger:   logger,
	}
}

// GetFeed handles GET /v1/feed.
//
// Query parameters:
//   - user_id (required): the viewer to personalize for
//   - variant: home (default), circle, or discover
//   - limit, offset: pagination, clamped by the service
//   - lat, lon: viewer location override for the circle feed
//   - seen: comma-separated content ids to exclude
//   - blocked: comma-separated creator ids to exclude
func (h *FeedHandlers) GetFeed(w http.ResponseWriter, r *http.Request) {
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

	viewer, err := h.profiles.Profile(ctx, userID)
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "User profile not found")
			return
		}
		h.logger.ErrorContext(ctx, "failed to load viewer profile", "error", err, "user_id", userID)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load profile")
		return
	}

	req := &feed.Request{
		Variant:         feed.Variant(q.Get("variant")),
		Viewer:          viewer,
		SeenIDs:         parseIDSet(q.Get("seen")),
		BlockedCreators: parseIDSet(q.Get("blocked")),
		Latitude:        parseFloatParam(q.Get("lat")),
		Longitude:       parseFloatParam(q.Get("lon")),
		Limit:           parseIntParam(q.Get("limit")),
		Offset:          parseIntParam(q.Get("offset")),
	}

	resp, err := h.service.Build(ctx, req)
	if err != nil {
		if errors.Is(err, feed.ErrUnknownVariant) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Unknown feed variant")
			return
		}
		h.logger.ErrorContext(ctx, "feed build failed", "error", err, "user_id", userID)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to build feed")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode feed response", "error", err)
	}
}

// parseIDSet splits a comma-separated id list into a set. Empty input
// returns nil so the zero value flows through to the service.
func parseIDSet(raw string) map[string]struct{} {
	if raw == "" {
		return nil
	}
	set := make(map[string]struct{})
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			set[id] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// parseIntParam parses a non-negative integer parameter, returning 0
// (the service default) for missing or malformed input.
func parseIntParam(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseFloatParam parses an optional float parameter.
func parseFloatParam(raw string) *float64 {
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &f
}
