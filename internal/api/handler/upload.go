package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/lessonlab/vodpipe/internal/usecase"
)

// uploadFieldName is the multipart form field carrying the video file.
const uploadFieldName = "video"

type UploadResponse struct {
	URL         string `json:"url"`
	OriginalURL string `json:"originalUrl"`
	Duration    int    `json:"duration"`
	Resolution  string `json:"resolution"`
	FileName    string `json:"fileName"`
	ExpiresAt   int64  `json:"expiresAt"`
}

// UploadHandler handles raw video uploads into the ingestion pipeline.
type UploadHandler struct {
	svc            usecase.UploadService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(svc usecase.UploadService, maxUploadBytes int64, logger *slog.Logger) *UploadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadHandler{
		svc:            svc,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Create handles POST /v1/lessons/videos
func (h *UploadHandler) Create(w http.ResponseWriter, r *http.Request) {
	// Cap the whole request body so an oversize upload is cut off at
	// the socket instead of filling scratch space first.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			Error(w, http.StatusBadRequest, "file_too_large",
				fmt.Sprintf("Upload exceeds the %d byte limit", h.maxUploadBytes))
			return
		}
		Error(w, http.StatusBadRequest, "invalid_request",
			fmt.Sprintf("Multipart field %q is required", uploadFieldName))
		return
	}
	defer file.Close()

	lessonID := uuid.Nil
	if raw := r.FormValue("lesson_id"); raw != "" {
		lessonID, err = uuid.Parse(raw)
		if err != nil {
			Error(w, http.StatusBadRequest, "invalid_lesson_id", "Lesson ID must be a valid UUID")
			return
		}
	}

	output, err := h.svc.ProcessUpload(r.Context(), usecase.UploadInput{
		FileName:     header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		DeclaredSize: header.Size,
		Body:         file,
		LessonID:     lessonID,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, UploadResponse{
		URL:         output.SignedURL,
		OriginalURL: output.CanonicalURL,
		Duration:    output.DurationSeconds,
		Resolution:  fmt.Sprintf("%dx%d", output.Width, output.Height),
		FileName:    output.AssetName,
		ExpiresAt:   output.ExpiresAt,
	})
}

func (h *UploadHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrUnsupportedType):
		Error(w, http.StatusBadRequest, "unsupported_media_type", "File type is not an accepted video format")
	case errors.Is(err, usecase.ErrFileTooLarge):
		Error(w, http.StatusBadRequest, "file_too_large",
			fmt.Sprintf("Upload exceeds the %d byte limit", h.maxUploadBytes))
	default:
		// Pipeline internals stay in the logs; clients get a stable
		// opaque code.
		h.logger.Error("upload pipeline failed", slog.String("error", err.Error()))
		Error(w, http.StatusInternalServerError, "processing_failed", "Video processing failed")
	}
}
