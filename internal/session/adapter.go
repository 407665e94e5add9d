// Package session adapts the document store into the transcript operations
// the orchestrator needs: lazy session creation with a generated title, and
// atomic, best-effort append of each user/bot turn.
package session

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maxpilipovic/INB-internal-project/internal/llm"
	"github.com/maxpilipovic/INB-internal-project/internal/model"
	"github.com/maxpilipovic/INB-internal-project/internal/store"
	"github.com/maxpilipovic/INB-internal-project/pkg/logger"
	"github.com/maxpilipovic/INB-internal-project/pkg/metrics"
)

const titlePrompt = `Based on this user message, generate a short and relevant chat title (max 5 words). Focus on summarizing the goal or main topic. Reply with the title only.`

var (
	surroundingQuotesRe = regexp.MustCompile(`^["']|["']$`)
	whitespaceRe        = regexp.MustCompile(`\s+`)
)

// Adapter provides transcript persistence over the document store.
type Adapter struct {
	store  *store.Store
	llm    llm.Client
	model  string
	logger *logger.Logger
}

// NewAdapter creates a session adapter.
func NewAdapter(st *store.Store, client llm.Client, llmModel string, log *logger.Logger) *Adapter {
	return &Adapter{store: st, llm: client, model: llmModel, logger: log}
}

// AppendTurn persists one user/bot exchange. With an empty sessionID a new
// session is created first, titled by summarizing the user's message. The
// effective session id is returned so the caller can hand it back to the
// client. Persistence is best-effort: on any store failure the error is
// logged and an empty id returned; the user still gets their reply.
func (a *Adapter) AppendTurn(ctx context.Context, userID, sessionID, userText, botText string) string {
	now := time.Now()
	turn := []model.ChatMessage{
		{Sender: model.SenderUser, Text: userText},
		{Sender: model.SenderBot, Text: botText},
	}

	if sessionID == "" {
		sessionID = uuid.New().String()
		title := a.generateTitle(ctx, userText)
		if err := a.store.CreateSession(userID, sessionID, title, now); err != nil {
			a.logger.Error("failed to create session", zap.String("user_id", userID), zap.Error(err))
			return ""
		}
		metrics.SessionsCreatedTotal.Inc()
	}

	if err := a.store.AppendMessages(userID, sessionID, turn, now); err != nil {
		a.logger.Error("failed to log chat turn",
			zap.String("user_id", userID), zap.String("session_id", sessionID), zap.Error(err))
		return ""
	}
	return sessionID
}

// LoadSession rehydrates a session with its transcript from the store.
func (a *Adapter) LoadSession(userID, sessionID string) (model.Session, error) {
	return a.store.GetSession(userID, sessionID)
}

// generateTitle summarizes the first utterance into a short title. A failed
// completion call degrades to the leading words of the message itself.
func (a *Adapter) generateTitle(ctx context.Context, userText string) string {
	resp, err := a.llm.Complete(ctx, &llm.CompletionRequest{
		Model: a.model,
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: "You summarize user messages into short titles."},
			{Role: llm.RoleUser, Content: titlePrompt + "\n\nMessage: \"" + userText + "\""},
		},
		MaxTokens:   32,
		Temperature: 0.7,
	})
	if err != nil {
		a.logger.Warn("title generation failed", zap.Error(err))
		return fallbackTitle(userText)
	}

	title := cleanTitle(resp.Content)
	if title == "" {
		return fallbackTitle(userText)
	}
	return title
}

// cleanTitle trims the model output and strips surrounding quotes.
func cleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = surroundingQuotesRe.ReplaceAllString(title, "")
	title = whitespaceRe.ReplaceAllString(title, " ")
	return strings.TrimSpace(title)
}

// fallbackTitle takes the first few words of the message.
func fallbackTitle(userText string) string {
	words := strings.Fields(userText)
	if len(words) > 5 {
		words = words[:5]
	}
	if len(words) == 0 {
		return "New conversation"
	}
	return strings.Join(words, " ")
}
