package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/maxpilipovic/INB-internal-project/internal/blob"
	"github.com/maxpilipovic/INB-internal-project/internal/middleware"
	"github.com/maxpilipovic/INB-internal-project/internal/store"
	"github.com/maxpilipovic/INB-internal-project/pkg/logger"
)

// AttachmentHandler serves stored attachment blobs until they expire.
type AttachmentHandler struct {
	blobs  *blob.DocumentStore
	logger *logger.Logger
}

// NewAttachmentHandler creates a new attachment handler.
func NewAttachmentHandler(blobs *blob.DocumentStore, log *logger.Logger) *AttachmentHandler {
	return &AttachmentHandler{blobs: blobs, logger: log}
}

// Get handles GET /api/v1/attachments/{id}
func (h *AttachmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateAttachmentID(id); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	b, err := h.blobs.Fetch(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "attachment not found")
		case errors.Is(err, blob.ErrExpired):
			writeError(w, http.StatusGone, "expired", "attachment has expired")
		default:
			h.logger.Error("failed to fetch attachment", zap.String("id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal", "failed to fetch attachment")
		}
		return
	}

	w.Header().Set("Content-Type", b.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(b.Data)))
	w.Header().Set("Content-Disposition", `attachment; filename="`+b.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(b.Data)
}
