package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/lessonlab/vodpipe/internal/signing"
	"github.com/lessonlab/vodpipe/internal/usecase"
)

type VerifyResponse struct {
	Valid bool `json:"valid"`
}

type SignRequest struct {
	OriginalURL string `json:"originalUrl"`
}

type SignResponse struct {
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expiresAt"`
}

// PlaybackHandler handles token verification and re-signing requests.
type PlaybackHandler struct {
	svc    usecase.PlaybackService
	logger *slog.Logger
}

// NewPlaybackHandler creates a new PlaybackHandler.
func NewPlaybackHandler(svc usecase.PlaybackService, logger *slog.Logger) *PlaybackHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlaybackHandler{svc: svc, logger: logger}
}

// Verify handles GET /v1/playback/verify?url=&token=&expires=
func (h *PlaybackHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	rawURL := q.Get("url")
	token := q.Get(signing.TokenParam)
	if rawURL == "" || token == "" {
		Error(w, http.StatusBadRequest, "invalid_request", "Parameters url and token are required")
		return
	}

	expiresAt, err := strconv.ParseInt(q.Get(signing.ExpiresParam), 10, 64)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_expiry", "Parameter expires must be a Unix timestamp")
		return
	}

	userID := uuid.Nil
	if raw := q.Get("user_id"); raw != "" {
		userID, err = uuid.Parse(raw)
		if err != nil {
			Error(w, http.StatusBadRequest, "invalid_user_id", "User ID must be a valid UUID")
			return
		}
	}

	if err := h.svc.Verify(r.Context(), rawURL, token, expiresAt, userID); err != nil {
		h.handleVerifyError(w, err)
		return
	}

	JSON(w, http.StatusOK, VerifyResponse{Valid: true})
}

// Sign handles POST /v1/playback/sign
func (h *PlaybackHandler) Sign(w http.ResponseWriter, r *http.Request) {
	var req SignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.OriginalURL == "" {
		Error(w, http.StatusBadRequest, "invalid_request", "Field originalUrl is required")
		return
	}

	signed, err := h.svc.Resign(r.Context(), req.OriginalURL)
	if err != nil {
		if errors.Is(err, usecase.ErrUnknownAsset) {
			Error(w, http.StatusNotFound, "asset_not_found", "No asset exists for the given URL")
			return
		}
		h.logger.Error("re-sign failed", slog.String("error", err.Error()))
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	JSON(w, http.StatusOK, SignResponse{URL: signed.URL, ExpiresAt: signed.ExpiresAt})
}

func (h *PlaybackHandler) handleVerifyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, signing.ErrTokenExpired):
		Error(w, http.StatusForbidden, "token_expired", "Playback URL has expired")
	case errors.Is(err, signing.ErrTokenInvalid):
		Error(w, http.StatusForbidden, "token_invalid", "Playback URL signature is invalid")
	case errors.Is(err, usecase.ErrNotEntitled):
		Error(w, http.StatusForbidden, "not_entitled", "User is not enrolled in this content")
	default:
		h.logger.Error("verification failed", slog.String("error", err.Error()))
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
