// Package handler implements the HTTP endpoints of the help-desk assistant.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/maxpilipovic/INB-internal-project/internal/middleware"
	"github.com/maxpilipovic/INB-internal-project/internal/model"
	"github.com/maxpilipovic/INB-internal-project/internal/service"
	"github.com/maxpilipovic/INB-internal-project/internal/store"
	"github.com/maxpilipovic/INB-internal-project/pkg/logger"
)

const (
	// maxAttachments caps uploads per confirmation request.
	maxAttachments = 5
	// maxUploadBytes caps the total multipart form size.
	maxUploadBytes = 32 << 20
)

// ChatHandler handles the chat endpoints.
type ChatHandler struct {
	chat   *service.ChatService
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat *service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: log}
}

// Send handles POST /api/v1/chat
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.SessionID != "" {
		if err := middleware.ValidateSessionID(req.SessionID); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
	}

	h.chat.EnsureUser(userID, middleware.GetUserEmail(ctx))

	resp := h.chat.HandleMessage(ctx, userID, req.SessionID, req.Message)
	writeJSON(w, http.StatusOK, resp)
}

// Preview handles POST /api/v1/chat/preview-ticket
func (h *ChatHandler) Preview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.PreviewTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.SessionID != "" {
		if err := middleware.ValidateSessionID(req.SessionID); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
	}

	resp, err := h.chat.PreviewTicket(ctx, userID, req.SessionID, req.Transcript)
	if err != nil {
		if errors.Is(err, service.ErrNoTranscript) {
			writeError(w, http.StatusBadRequest, "no_transcript", "nothing to summarize into a ticket")
			return
		}
		h.logger.Error("ticket preview failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "preview_failed", "Failed to generate ticket preview.")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Confirm handles POST /api/v1/chat/confirm-ticket. The request is multipart
// when attachments are included, plain JSON otherwise.
func (h *ChatHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var (
		message   string
		sessionID string
		uploads   []service.Upload
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
			return
		}
		message = r.FormValue("message")
		sessionID = r.FormValue("session_id")

		files := r.MultipartForm.File["attachments"]
		if len(files) > maxAttachments {
			writeError(w, http.StatusBadRequest, "too_many_attachments", "at most 5 attachments are allowed")
			return
		}
		for _, fh := range files {
			f, err := fh.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "bad_request", "unreadable attachment")
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "bad_request", "unreadable attachment")
				return
			}
			uploads = append(uploads, service.Upload{
				FileName:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	} else {
		var req model.SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
			return
		}
		message = req.Message
		sessionID = req.SessionID
	}

	if err := middleware.ValidateMessageContent(message); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	h.chat.EnsureUser(userID, middleware.GetUserEmail(ctx))

	resp, err := h.chat.ConfirmTicket(ctx, userID, sessionID, message, uploads)
	if err != nil {
		if errors.Is(err, service.ErrNoDraft) {
			writeError(w, http.StatusBadRequest, "no_draft", "No ticket preview found to confirm.")
			return
		}
		h.logger.Error("ticket confirmation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "confirm_failed", "Failed to process ticket confirmation.")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetSession handles GET /api/v1/chat/{sessionID}
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	sessionID := chi.URLParam(r, "sessionID")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	sess, err := h.chat.GetSession(userID, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		h.logger.Error("failed to load session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "failed to load session")
		return
	}

	writeJSON(w, http.StatusOK, model.SessionResponse{
		Title:     sess.Title,
		Messages:  sess.Messages,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	})
}
