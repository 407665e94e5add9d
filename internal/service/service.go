// Package service orchestrates help-desk conversations: it routes each turn
// through intent classification to a handler, manages the per-session ticket
// draft lifecycle (preview, field edits, confirm/submit), and keeps every
// exchange flowing into the transcript and the event stream.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/maxpilipovic/INB-internal-project/internal/blob"
	"github.com/maxpilipovic/INB-internal-project/internal/events"
	"github.com/maxpilipovic/INB-internal-project/internal/freshservice"
	"github.com/maxpilipovic/INB-internal-project/internal/intent"
	"github.com/maxpilipovic/INB-internal-project/internal/llm"
	"github.com/maxpilipovic/INB-internal-project/internal/model"
	"github.com/maxpilipovic/INB-internal-project/internal/session"
	"github.com/maxpilipovic/INB-internal-project/internal/store"
	"github.com/maxpilipovic/INB-internal-project/pkg/logger"
	"github.com/maxpilipovic/INB-internal-project/pkg/metrics"
)

// Canned replies for fallback and terminal branches. These are user-facing
// strings; changing them changes the assistant's voice.
const (
	replyUnavailable     = "GPT is currently unavailable."
	replyEmptyMessage    = "I didn't catch that. Could you rephrase?"
	replyNoDraftToUpdate = "No ticket preview found to update."
	replyNoDraftToShow   = "No ticket preview to show."
	replyUpdateFailed    = "Sorry, I couldn't update the ticket preview right now."
	replyAskTicketID     = "Which ticket number would you like me to look at?"
	replyAskPriority     = "What priority would you like: Low, Medium, High, or Urgent?"
	replyNoOpenTickets   = "You have no open tickets at the moment!"
	replyTicketsFailed   = "Sorry, I could not fetch your tickets at this time."
	replyTicketCreated   = "✅ Your help desk ticket has been submitted successfully."
	replyTicketFailed    = "Sorry, there was an issue submitting your ticket."
	replyTicketCancelled = "Okay, no ticket has been created. Let me know if you need anything else."
	replyConfirmUnclear  = "Just to confirm: would you like me to submit this ticket? Please reply yes or no."
)

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Store      *store.Store
	Sessions   *session.Adapter
	Classifier *intent.Classifier
	LLM        llm.Client
	LLMModel   string
	Tickets    *freshservice.Client
	Blobs      blob.Store
	Events     events.Publisher
	Logger     *logger.Logger
}

// ChatService is the dialogue orchestrator.
type ChatService struct {
	store      *store.Store
	sessions   *session.Adapter
	classifier *intent.Classifier
	llm        llm.Client
	llmModel   string
	tickets    *freshservice.Client
	blobs      blob.Store
	events     events.Publisher
	logger     *logger.Logger

	handlers map[model.Intent]handlerFunc
}

// handlerFunc handles one routed turn and produces the reply.
type handlerFunc func(ctx context.Context, userID, sessionID, text string, ci model.ClassifiedIntent) turnResult

// turnResult is a handler's contribution to the turn: the reply text and
// whether the client should now ask the user to preview a ticket.
type turnResult struct {
	reply    string
	awaiting bool
}

// New creates the orchestrator and wires the intent dispatch table.
func New(d Deps) *ChatService {
	s := &ChatService{
		store:      d.Store,
		sessions:   d.Sessions,
		classifier: d.Classifier,
		llm:        d.LLM,
		llmModel:   d.LLMModel,
		tickets:    d.Tickets,
		blobs:      d.Blobs,
		events:     d.Events,
		logger:     d.Logger,
	}
	s.handlers = map[model.Intent]handlerFunc{
		model.IntentUpdateDescription: s.handleUpdateDescription,
		model.IntentUpdateSubject:     s.handleUpdateSubject,
		model.IntentUpdatePriority:    s.handleUpdatePriority,
		model.IntentShowTicket:        s.handleShowTicket,
		model.IntentTicketActivity:    s.handleTicketActivity,
		model.IntentTicketStatus:      s.handleTicketStatus,
		model.IntentTicketAgent:       s.handleTicketAgent,
		model.IntentListTickets:       s.handleListTickets,
		model.IntentGeneralHelp:       s.handleGeneralHelp,
		model.IntentCreateTicket:      s.handleGeneralHelp,
		model.IntentOther:             s.handleGeneralHelp,
	}
	return s
}

// GetSession returns a session with its transcript.
func (s *ChatService) GetSession(userID, sessionID string) (model.Session, error) {
	return s.sessions.LoadSession(userID, sessionID)
}

// EnsureUser records the authenticated user's requester profile so ticket
// operations can resolve their email later. Best-effort.
func (s *ChatService) EnsureUser(userID, email string) {
	if userID == "" || email == "" {
		return
	}
	if err := s.store.UpsertUser(model.User{ID: userID, Email: email}); err != nil {
		s.logger.Warn("failed to store user profile",
			zap.String("user_id", userID), zap.Error(err))
	}
}

// complete runs one completion call with per-operation metrics.
func (s *ChatService) complete(ctx context.Context, operation string, messages []llm.ChatMessage, maxTokens int, temperature float64) (string, error) {
	start := time.Now()
	resp, err := s.llm.Complete(ctx, &llm.CompletionRequest{
		Model:       s.llmModel,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		metrics.RecordLLMCall(operation, "error", s.llmModel, time.Since(start).Seconds(), 0, 0)
		return "", err
	}
	metrics.RecordLLMCall(operation, "ok", resp.Model, time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)
	return resp.Content, nil
}

// sessionContext renders the stored transcript for use as prompt context.
func (s *ChatService) sessionContext(userID, sessionID string) string {
	if sessionID == "" {
		return "(no prior messages)"
	}
	sess, err := s.sessions.LoadSession(userID, sessionID)
	if err != nil || len(sess.Messages) == 0 {
		return "(no prior messages)"
	}

	var b strings.Builder
	for _, m := range sess.Messages {
		who := "User"
		if m.Sender == model.SenderBot {
			who = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", who, m.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}
