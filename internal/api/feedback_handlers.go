package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/onnwee/pulse/internal/feedback"
	"github.com/onnwee/pulse/internal/idempotency"
	"github.com/onnwee/pulse/internal/middleware"
)

// maxFeedbackBody bounds the request body for a single engagement event.
const maxFeedbackBody = 64 * 1024

// idempotencyKeyHeader carries the client-chosen replay-suppression key.
const idempotencyKeyHeader = "Idempotency-Key"

// FeedbackHandlers provides the engagement ingestion endpoint.
type FeedbackHandlers struct {
	sink   feedback.Sink
	dedupe idempotency.Repository
	logger *slog.Logger
}

// NewFeedbackHandlers creates feedback HTTP handlers. A nil dedupe
// repository disables Idempotency-Key handling.
func NewFeedbackHandlers(sink feedback.Sink, dedupe idempotency.Repository, logger *slog.Logger) *FeedbackHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedbackHandlers{
		sink:   sink,
		dedupe: dedupe,
		logger: logger,
	}
}

// feedbackAccepted is the 202 body confirming an event was queued.
type feedbackAccepted struct {
	Status string `json:"status"`
}

// PostFeedback handles POST /v1/feedback. The body is a single engagement
// event, as application/json or application/cbor. Events are queued for
// asynchronous processing; a 202 means accepted, not applied.
func (h *FeedbackHandlers) PostFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxFeedbackBody))
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Failed to read request body")
		return
	}

	event, err := h.decode(r.Header.Get("Content-Type"), body)
	if err != nil {
		h.writeDecodeError(w, r, err)
		return
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	ctx := middleware.SetUserID(r.Context(), event.UserID)
	middleware.UpdateResponseContext(w, ctx)

	idemKey := r.Header.Get(idempotencyKeyHeader)
	var payloadHash string
	if idemKey != "" && h.dedupe != nil {
		if err := idempotency.ValidateKey(idemKey); err != nil {
			ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		payloadHash = idempotency.HashPayload(body)

		record, err := h.dedupe.Get(ctx, idemKey)
		switch {
		case err == nil:
			if record.PayloadHash != payloadHash {
				ctx = middleware.SetErrorCode(ctx, ErrCodeConflict)
				WriteError(w, ctx, http.StatusConflict, ErrCodeConflict, "Idempotency key was already used with a different payload")
				return
			}
			// Genuine replay. Acknowledge without re-enqueueing.
			h.writeAccepted(ctx, w)
			return
		case !errors.Is(err, idempotency.ErrKeyNotFound):
			// Dedupe backend trouble fails open; dropping the guard
			// beats dropping the event.
			h.logger.WarnContext(ctx, "idempotency lookup failed", "error", err)
		}
	}

	if !h.sink.Record(event) {
		// Queue full or sink stopped; the client may retry.
		ctx = middleware.SetErrorCode(ctx, ErrCodeRateLimited)
		WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeRateLimited, "Event queue is full, retry later")
		return
	}

	if idemKey != "" && h.dedupe != nil {
		err := h.dedupe.Store(ctx, &idempotency.Record{Key: idemKey, PayloadHash: payloadHash})
		if err != nil && !errors.Is(err, idempotency.ErrKeyExists) {
			h.logger.WarnContext(ctx, "failed to store idempotency key", "error", err)
		}
	}

	h.writeAccepted(ctx, w)
}

func (h *FeedbackHandlers) writeAccepted(ctx context.Context, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(feedbackAccepted{Status: "accepted"}); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode feedback response", "error", err)
	}
}

// decode parses the event body according to the request content type.
// JSON is the default when no content type is sent.
func (h *FeedbackHandlers) decode(contentType string, body []byte) (*feedback.Event, error) {
	mediaType := "application/json"
	if contentType != "" {
		parsed, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return nil, errUnsupportedMedia
		}
		mediaType = parsed
	}

	switch mediaType {
	case "application/json":
		var event feedback.Event
		if err := json.Unmarshal(body, &event); err != nil {
			return nil, errMalformedBody
		}
		if err := event.Validate(); err != nil {
			return nil, err
		}
		return &event, nil
	case "application/cbor":
		return feedback.DecodeEvent(body)
	default:
		return nil, errUnsupportedMedia
	}
}

var (
	errUnsupportedMedia = errors.New("unsupported content type")
	errMalformedBody    = errors.New("malformed request body")
)

func (h *FeedbackHandlers) writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errUnsupportedMedia):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnsupportedMedia)
		WriteError(w, ctx, http.StatusUnsupportedMediaType, ErrCodeUnsupportedMedia, "Use application/json or application/cbor")
	case errors.Is(err, errMalformedBody), errors.Is(err, feedback.ErrInvalidCBOR):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Malformed event body")
	case errors.Is(err, feedback.ErrMissingUser),
		errors.Is(err, feedback.ErrMissingContent),
		errors.Is(err, feedback.ErrUnknownKind):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to decode event")
	}
}
