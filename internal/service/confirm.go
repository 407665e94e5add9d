package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/maxpilipovic/INB-internal-project/internal/events"
	"github.com/maxpilipovic/INB-internal-project/internal/llm"
	"github.com/maxpilipovic/INB-internal-project/internal/model"
	"github.com/maxpilipovic/INB-internal-project/internal/sanitize"
	"github.com/maxpilipovic/INB-internal-project/internal/store"
	"github.com/maxpilipovic/INB-internal-project/pkg/metrics"
)

// ErrNoDraft is returned when confirmation arrives for a session that has no
// ticket draft to act on.
var ErrNoDraft = errors.New("no ticket draft for session")

// Upload is an attachment received with the confirmation request.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Confirmation decisions.
const (
	decisionSubmit  = "submit"
	decisionCancel  = "cancel"
	decisionUnclear = "unclear"
)

// ConfirmTicket resolves a pending draft from the user's confirmation reply:
// submit it as a real ticket, discard it, or ask again. Attachments are only
// uploaded on submission; their URLs are appended to the submitted
// description, never written back to the draft.
func (s *ChatService) ConfirmTicket(ctx context.Context, userID, sessionID, message string, uploads []Upload) (model.ConfirmTicketResponse, error) {
	text := sanitize.Input(message)

	draft, err := s.store.GetDraft(userID, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return model.ConfirmTicketResponse{}, ErrNoDraft
	}
	if err != nil {
		return model.ConfirmTicketResponse{}, fmt.Errorf("loading draft: %w", err)
	}

	var reply string
	switch s.classifyConfirmation(ctx, text) {
	case decisionSubmit:
		reply = s.submitTicket(ctx, userID, sessionID, draft, uploads)
	case decisionCancel:
		metrics.TicketsSubmittedTotal.WithLabelValues("cancelled").Inc()
		reply = replyTicketCancelled
	default:
		reply = replyConfirmUnclear
	}

	effective := s.sessions.AppendTurn(ctx, userID, sessionID, text, reply)
	if effective == "" {
		effective = sessionID
	}
	return model.ConfirmTicketResponse{Reply: reply, SessionID: effective}, nil
}

// classifyConfirmation maps the user's reply to a three-way decision. Any
// completion failure or off-script answer is treated as unclear, which asks
// the user again rather than guessing.
func (s *ChatService) classifyConfirmation(ctx context.Context, text string) string {
	if text == "" {
		return decisionUnclear
	}

	content, err := s.complete(ctx, "confirm_ticket", []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: confirmDecisionPrompt},
		{Role: llm.RoleUser, Content: text},
	}, 4, 0)
	if err != nil {
		s.logger.Warn("confirmation classification failed", zap.Error(err))
		return decisionUnclear
	}

	switch word := strings.ToLower(strings.TrimSpace(content)); {
	case strings.Contains(word, decisionSubmit):
		return decisionSubmit
	case strings.Contains(word, decisionCancel):
		return decisionCancel
	default:
		return decisionUnclear
	}
}

// submitTicket uploads attachments, resolves the requester email and files
// the ticket. All-or-nothing: any failure yields the failure reply and the
// draft stays intact for a retry.
func (s *ChatService) submitTicket(ctx context.Context, userID, sessionID string, draft model.TicketDraft, uploads []Upload) string {
	attachments, err := s.saveUploads(ctx, uploads)
	if err != nil {
		s.logger.Error("failed to store attachments", zap.Error(err))
		metrics.TicketsSubmittedTotal.WithLabelValues("failure").Inc()
		return replyTicketFailed
	}

	user, err := s.store.GetUser(userID)
	if err != nil {
		s.logger.Error("no requester profile for submission", zap.String("user_id", userID), zap.Error(err))
		metrics.TicketsSubmittedTotal.WithLabelValues("failure").Inc()
		return replyTicketFailed
	}

	description := draft.Description
	if len(attachments) > 0 {
		var b strings.Builder
		b.WriteString(description)
		b.WriteString("\n\nAttachments:\n")
		for _, a := range attachments {
			fmt.Fprintf(&b, "- %s: %s\n", a.Label, a.URL)
		}
		description = strings.TrimRight(b.String(), "\n")
	}

	ticket, err := s.tickets.CreateTicket(ctx, draft.Subject, description, user.Email, draft.Priority.Code())
	if err != nil {
		s.logger.Error("ticket submission failed", zap.Error(err))
		metrics.TicketsSubmittedTotal.WithLabelValues("failure").Inc()
		return replyTicketFailed
	}

	metrics.TicketsSubmittedTotal.WithLabelValues("success").Inc()
	s.logger.Info("ticket submitted",
		zap.String("user_id", userID), zap.Int64("ticket_id", ticket.ID))

	if err := s.events.TicketSubmitted(ctx, events.TicketEvent{
		UserID:    userID,
		SessionID: sessionID,
		TicketID:  ticket.ID,
		Subject:   draft.Subject,
		Priority:  string(draft.Priority),
		CreatedAt: time.Now(),
	}); err != nil {
		s.logger.Warn("failed to publish ticket event", zap.Error(err))
	}

	return replyTicketCreated
}

// saveUploads stores the attachments concurrently, preserving request order
// in the result. One failed upload fails the whole submission.
func (s *ChatService) saveUploads(ctx context.Context, uploads []Upload) ([]model.Attachment, error) {
	if len(uploads) == 0 {
		return nil, nil
	}

	results := make([]model.Attachment, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	for i, up := range uploads {
		i, up := i, up
		g.Go(func() error {
			att, err := s.blobs.Save(gctx, up.FileName, up.ContentType, up.Data)
			if err != nil {
				return fmt.Errorf("storing %s: %w", up.FileName, err)
			}
			results[i] = att
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
