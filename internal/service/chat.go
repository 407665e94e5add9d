package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/maxpilipovic/INB-internal-project/internal/events"
	"github.com/maxpilipovic/INB-internal-project/internal/freshservice"
	"github.com/maxpilipovic/INB-internal-project/internal/llm"
	"github.com/maxpilipovic/INB-internal-project/internal/model"
	"github.com/maxpilipovic/INB-internal-project/internal/sanitize"
	"github.com/maxpilipovic/INB-internal-project/internal/store"
	"github.com/maxpilipovic/INB-internal-project/pkg/metrics"
)

// maxConversationEntries caps how many recent ticket conversations a reply
// shows, and maxConversationBody how long each quoted body may be.
const (
	maxConversationEntries = 5
	maxConversationBody    = 120
	maxListedTickets       = 5
)

// HandleMessage runs one conversational turn: sanitize, classify, dispatch,
// and log the exchange. It never fails the turn; every branch produces a
// reply for the user.
func (s *ChatService) HandleMessage(ctx context.Context, userID, sessionID, message string) model.SendMessageResponse {
	text := sanitize.Input(message)
	if text == "" {
		return s.finishTurn(ctx, userID, sessionID, text, turnResult{reply: replyEmptyMessage}, model.IntentOther)
	}

	ci := s.classifier.Classify(ctx, text)
	handler, ok := s.handlers[ci.Intent]
	if !ok {
		handler = s.handleGeneralHelp
	}

	res := handler(ctx, userID, sessionID, text, ci)
	return s.finishTurn(ctx, userID, sessionID, text, res, ci.Intent)
}

// finishTurn appends the exchange to the transcript, emits metrics and the
// turn event, and assembles the response. The session id returned to the
// client is the effective one, which may be freshly created.
func (s *ChatService) finishTurn(ctx context.Context, userID, sessionID, userText string, res turnResult, routed model.Intent) model.SendMessageResponse {
	effective := s.sessions.AppendTurn(ctx, userID, sessionID, userText, res.reply)
	if effective == "" {
		effective = sessionID
	}

	metrics.TurnsTotal.WithLabelValues(string(routed)).Inc()
	if err := s.events.TurnLogged(ctx, events.TurnEvent{
		UserID:                userID,
		SessionID:             effective,
		Intent:                string(routed),
		AwaitingTicketPreview: res.awaiting,
		CreatedAt:             time.Now(),
	}); err != nil {
		s.logger.Warn("failed to publish turn event", zap.Error(err))
	}

	return model.SendMessageResponse{
		Reply:                 res.reply,
		SessionID:             effective,
		AwaitingTicketPreview: res.awaiting,
	}
}

func (s *ChatService) handleUpdateDescription(ctx context.Context, userID, sessionID, text string, _ model.ClassifiedIntent) turnResult {
	return s.rewriteDraftField(ctx, userID, sessionID, text, model.FieldDescription)
}

func (s *ChatService) handleUpdateSubject(ctx context.Context, userID, sessionID, text string, _ model.ClassifiedIntent) turnResult {
	return s.rewriteDraftField(ctx, userID, sessionID, text, model.FieldSubject)
}

// rewriteDraftField regenerates one draft field from the user's instruction
// and the conversation so far, then persists it. A missing draft is a normal
// conversational outcome, not an error.
func (s *ChatService) rewriteDraftField(ctx context.Context, userID, sessionID, text string, field model.DraftField) turnResult {
	draft, err := s.store.GetDraft(userID, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return turnResult{reply: replyNoDraftToUpdate}
	}
	if err != nil {
		s.logger.Error("failed to load draft", zap.Error(err))
		return turnResult{reply: replyUpdateFailed}
	}

	current := draft.Description
	if field == model.FieldSubject {
		current = draft.Subject
	}

	system := fmt.Sprintf(rewriteFieldPrompt, string(field), s.sessionContext(userID, sessionID), current)
	content, err := s.complete(ctx, "rewrite_"+string(field), []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: text},
	}, 512, 0.4)
	if err != nil {
		s.logger.Warn("field rewrite failed", zap.String("field", string(field)), zap.Error(err))
		return turnResult{reply: replyUnavailable}
	}

	value := sanitize.ModelOutput(content)
	if value == "" {
		return turnResult{reply: replyUpdateFailed}
	}

	if err := s.store.UpdateDraftField(userID, sessionID, field, value, time.Now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return turnResult{reply: replyNoDraftToUpdate}
		}
		s.logger.Error("failed to update draft", zap.String("field", string(field)), zap.Error(err))
		return turnResult{reply: replyUpdateFailed}
	}

	return turnResult{reply: fmt.Sprintf("✅ Ticket %s updated:\n\n%s", field, value)}
}

// handleUpdatePriority writes the extracted priority straight to the draft.
// No completion call is needed; the classifier already normalized the value.
// When the session has no draft nothing is written and nothing is created.
func (s *ChatService) handleUpdatePriority(ctx context.Context, userID, sessionID, text string, ci model.ClassifiedIntent) turnResult {
	priority := ci.Extracted.Priority
	if priority == "" {
		if _, err := s.store.GetDraft(userID, sessionID); errors.Is(err, store.ErrNotFound) {
			return turnResult{reply: replyNoDraftToUpdate}
		}
		return turnResult{reply: replyAskPriority}
	}

	err := s.store.UpdateDraftField(userID, sessionID, model.FieldPriority, string(priority), time.Now())
	if errors.Is(err, store.ErrNotFound) {
		return turnResult{reply: replyNoDraftToUpdate}
	}
	if err != nil {
		s.logger.Error("failed to update draft priority", zap.Error(err))
		return turnResult{reply: replyUpdateFailed}
	}

	return turnResult{reply: fmt.Sprintf("✅ Ticket priority updated to **%s**.", priority)}
}

func (s *ChatService) handleShowTicket(ctx context.Context, userID, sessionID, _ string, _ model.ClassifiedIntent) turnResult {
	draft, err := s.store.GetDraft(userID, sessionID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("failed to load draft", zap.Error(err))
		}
		return turnResult{reply: replyNoDraftToShow}
	}

	reply := fmt.Sprintf("Here is your current ticket preview:\n\n**Subject:** %s\n**Description:** %s\n**Priority:** %s",
		draft.Subject, draft.Description, draft.Priority)
	return turnResult{reply: reply}
}

func (s *ChatService) handleTicketActivity(ctx context.Context, userID, sessionID, _ string, ci model.ClassifiedIntent) turnResult {
	id := ci.Extracted.TicketID
	if id == "" {
		return turnResult{reply: replyAskTicketID}
	}

	convs, err := s.tickets.GetConversations(ctx, id)
	if err != nil {
		s.logger.Warn("failed to fetch conversations", zap.String("ticket_id", id), zap.Error(err))
		return turnResult{reply: fmt.Sprintf("Sorry, I couldn't fetch conversations for ticket #%s.", id)}
	}
	if len(convs) == 0 {
		return turnResult{reply: fmt.Sprintf("There are no conversations on ticket #%s yet.", id)}
	}

	if len(convs) > maxConversationEntries {
		convs = convs[len(convs)-maxConversationEntries:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📜 Recent conversations on ticket #%s:\n\n", id)
	for _, c := range convs {
		from := "System"
		if c.UserID != nil {
			from = fmt.Sprintf("User %d", *c.UserID)
		}
		fmt.Fprintf(&b, "- %s: \"%s\"\n", from, excerpt(c.BodyText))
	}
	return turnResult{reply: strings.TrimRight(b.String(), "\n")}
}

// excerpt flattens a conversation body to a single quotable line.
func excerpt(body string) string {
	flat := strings.Join(strings.Fields(body), " ")
	if utf8.RuneCountInString(flat) <= maxConversationBody {
		return flat
	}
	runes := []rune(flat)
	return string(runes[:maxConversationBody]) + "..."
}

func (s *ChatService) handleTicketStatus(ctx context.Context, userID, sessionID, _ string, ci model.ClassifiedIntent) turnResult {
	id := ci.Extracted.TicketID
	if id == "" {
		return turnResult{reply: replyAskTicketID}
	}

	ticket, err := s.tickets.GetTicket(ctx, id)
	if err != nil {
		s.logger.Warn("failed to fetch ticket", zap.String("ticket_id", id), zap.Error(err))
		return turnResult{reply: fmt.Sprintf("Sorry, I couldn't retrieve info for ticket #%s.", id)}
	}

	reply := fmt.Sprintf("📝 Ticket #%d - \"%s\" is currently **%s**.",
		ticket.ID, ticket.Subject, freshservice.StatusLabel(ticket.Status))
	return turnResult{reply: reply}
}

func (s *ChatService) handleTicketAgent(ctx context.Context, userID, sessionID, _ string, ci model.ClassifiedIntent) turnResult {
	id := ci.Extracted.TicketID
	if id == "" {
		return turnResult{reply: replyAskTicketID}
	}

	ticket, err := s.tickets.GetTicket(ctx, id)
	if err != nil {
		s.logger.Warn("failed to fetch ticket", zap.String("ticket_id", id), zap.Error(err))
		return turnResult{reply: fmt.Sprintf("Sorry, I couldn't retrieve info for ticket #%s.", id)}
	}
	if ticket.ResponderID == nil {
		return turnResult{reply: fmt.Sprintf("No agent is currently assigned to ticket #%s.", id)}
	}

	agent, err := s.tickets.GetAgent(ctx, *ticket.ResponderID)
	if err != nil {
		s.logger.Warn("failed to fetch agent", zap.Int64("agent_id", *ticket.ResponderID), zap.Error(err))
		return turnResult{reply: fmt.Sprintf("Sorry, I couldn't look up the agent for ticket #%s.", id)}
	}

	reply := fmt.Sprintf("Ticket #%s is assigned to %s %s (%s).", id, agent.FirstName, agent.LastName, agent.Email)
	return turnResult{reply: reply}
}

func (s *ChatService) handleListTickets(ctx context.Context, userID, sessionID, _ string, _ model.ClassifiedIntent) turnResult {
	user, err := s.store.GetUser(userID)
	if err != nil {
		s.logger.Warn("no stored profile for requester", zap.String("user_id", userID), zap.Error(err))
		return turnResult{reply: replyTicketsFailed}
	}

	tickets, err := s.tickets.ListTicketsByRequester(ctx, user.Email)
	if err != nil {
		s.logger.Warn("failed to list tickets", zap.Error(err))
		return turnResult{reply: replyTicketsFailed}
	}
	if len(tickets) == 0 {
		return turnResult{reply: replyNoOpenTickets}
	}
	if len(tickets) > maxListedTickets {
		tickets = tickets[:maxListedTickets]
	}

	var b strings.Builder
	b.WriteString("Here are your recent tickets:\n\n")
	for _, t := range tickets {
		fmt.Fprintf(&b, "#%d - %s [%s]\n", t.ID, t.Subject, freshservice.StatusLabel(t.Status))
	}
	return turnResult{reply: strings.TrimRight(b.String(), "\n")}
}

// handleGeneralHelp answers free-form questions grounded in the knowledge
// base and decides whether the exchange should move toward a ticket preview.
// It also serves create_ticket and other: all three end in the same grounded
// completion, differing only in how likely the follow-up question says yes.
func (s *ChatService) handleGeneralHelp(ctx context.Context, userID, sessionID, text string, _ model.ClassifiedIntent) turnResult {
	kb := "No articles found."
	articles, err := s.tickets.SearchArticles(ctx, text)
	if err != nil {
		s.logger.Warn("knowledge base search failed", zap.Error(err))
		metrics.KBSearchesTotal.WithLabelValues("error").Inc()
	} else {
		metrics.KBSearchesTotal.WithLabelValues("ok").Inc()
		if len(articles) > 0 {
			var b strings.Builder
			for _, a := range articles {
				fmt.Fprintf(&b, "Title: %s\nContent: %s\n\n", a.Title, a.Content)
			}
			kb = strings.TrimSpace(b.String())
		}
	}

	content, err := s.complete(ctx, "chat", []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(kbSystemPrompt, kb)},
		{Role: llm.RoleUser, Content: text},
	}, 1024, 0.7)
	if err != nil {
		s.logger.Warn("chat completion failed", zap.Error(err))
		return turnResult{reply: replyUnavailable}
	}

	reply := sanitize.ModelOutput(content)
	if reply == "" {
		return turnResult{reply: replyUnavailable}
	}

	return turnResult{reply: reply, awaiting: s.wantsTicket(ctx, text, reply)}
}

// wantsTicket asks the yes/no follow-up that flips the awaiting-preview
// flag. Any failure means no: the flag is advisory and the user can always
// ask for a ticket explicitly.
func (s *ChatService) wantsTicket(ctx context.Context, userText, reply string) bool {
	content, err := s.complete(ctx, "wants_ticket", []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: wantsTicketPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf("User: %s\nAssistant: %s", userText, reply)},
	}, 4, 0)
	if err != nil {
		s.logger.Warn("wants-ticket check failed", zap.Error(err))
		return false
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(content)), "yes")
}
