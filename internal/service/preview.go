package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maxpilipovic/INB-internal-project/internal/llm"
	"github.com/maxpilipovic/INB-internal-project/internal/model"
	"github.com/maxpilipovic/INB-internal-project/internal/sanitize"
	"github.com/maxpilipovic/INB-internal-project/internal/store"
)

// ErrNoTranscript is returned when there is nothing to summarize: no
// transcript was supplied and the session has no user-authored turns.
var ErrNoTranscript = errors.New("no transcript to summarize")

// PreviewTicket returns the session's ticket draft, generating one from the
// user-authored turns if the session has none yet. The operation is
// idempotent: repeated calls for the same session return the stored draft
// unchanged. An empty session id starts a new session scope for the draft.
func (s *ChatService) PreviewTicket(ctx context.Context, userID, sessionID string, transcript []model.ChatMessage) (model.PreviewTicketResponse, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	existing, err := s.store.GetDraft(userID, sessionID)
	if err == nil {
		return previewResponse(existing, sessionID), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.PreviewTicketResponse{}, fmt.Errorf("loading draft: %w", err)
	}

	userText := userTurns(transcript)
	if userText == "" {
		if sess, err := s.sessions.LoadSession(userID, sessionID); err == nil {
			userText = userTurns(sess.Messages)
		}
	}
	if userText == "" {
		return model.PreviewTicketResponse{}, ErrNoTranscript
	}

	draft := s.generateDraft(ctx, userID, sessionID, userText)

	// A concurrent preview may have won the insert; the stored draft is
	// authoritative either way.
	stored, created, err := s.store.CreateDraftIfAbsent(draft, time.Now())
	if err != nil {
		return model.PreviewTicketResponse{}, fmt.Errorf("storing draft: %w", err)
	}
	if created {
		s.logger.Info("ticket draft created",
			zap.String("user_id", userID), zap.String("session_id", sessionID))
	}
	return previewResponse(stored, sessionID), nil
}

// generateDraft derives subject, description and priority from the user's
// messages. Completion failures and unparseable output degrade to a generic
// draft built from the raw messages; preview never fails past this point.
func (s *ChatService) generateDraft(ctx context.Context, userID, sessionID, userText string) model.TicketDraft {
	draft := model.TicketDraft{
		UserID:      userID,
		SessionID:   sessionID,
		Subject:     "User reported an issue",
		Description: userText,
		Priority:    model.PriorityMedium,
	}

	content, err := s.complete(ctx, "ticket_preview", []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: ticketDetailsPrompt},
		{Role: llm.RoleUser, Content: userText},
	}, 512, 0.4)
	if err != nil {
		s.logger.Warn("draft generation failed", zap.Error(err))
		return draft
	}

	var parsed model.TicketPreview
	if err := json.Unmarshal([]byte(sanitize.StripCodeFence(content)), &parsed); err != nil {
		s.logger.Warn("unparseable draft output", zap.String("output", content))
		return draft
	}

	if subject := strings.TrimSpace(parsed.Subject); subject != "" {
		draft.Subject = subject
	}
	if desc := strings.TrimSpace(parsed.Description); desc != "" {
		draft.Description = desc
	}
	if parsed.Priority != "" {
		draft.Priority = parsed.Priority
	}
	return draft
}

// userTurns joins the user-authored messages of a transcript. Bot turns are
// excluded so the draft reflects only what the user reported.
func userTurns(messages []model.ChatMessage) string {
	var parts []string
	for _, m := range messages {
		if m.Sender != model.SenderUser {
			continue
		}
		if text := strings.TrimSpace(m.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

func previewResponse(draft model.TicketDraft, sessionID string) model.PreviewTicketResponse {
	return model.PreviewTicketResponse{
		SessionID: sessionID,
		Ticket: model.TicketPreview{
			Subject:     draft.Subject,
			Description: draft.Description,
			Priority:    draft.Priority,
		},
	}
}
