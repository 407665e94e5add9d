// Package intent classifies sanitized user messages into the fixed help-desk
// taxonomy using the completion service. The service's output is treated as
// untrusted input: anything that fails to parse or validate degrades to a
// low-confidence "other" classification instead of an error.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/maxpilipovic/INB-internal-project/internal/llm"
	"github.com/maxpilipovic/INB-internal-project/internal/model"
	"github.com/maxpilipovic/INB-internal-project/internal/sanitize"
	"github.com/maxpilipovic/INB-internal-project/pkg/logger"
	"github.com/maxpilipovic/INB-internal-project/pkg/metrics"
)

// ticketIDRe matches a ticket reference in free text, e.g. "ticket #1234".
var ticketIDRe = regexp.MustCompile(`(?i)(?:ticket\s*#?|#)(\d{3,})`)

// bareTicketIDRe validates an id the classifier extracted on its own.
var bareTicketIDRe = regexp.MustCompile(`^\d{3,}$`)

// Classifier wraps the completion service with the taxonomy prompt.
type Classifier struct {
	client llm.Client
	model  string
	logger *logger.Logger
}

// NewClassifier creates a Classifier using the given completion client.
func NewClassifier(client llm.Client, llmModel string, log *logger.Logger) *Classifier {
	return &Classifier{client: client, model: llmModel, logger: log}
}

// rawResult mirrors the JSON the completion service is asked to emit. The
// extracted_data values are left loose on purpose; validation happens below.
type rawResult struct {
	Intent        string                     `json:"intent"`
	Confidence    float64                    `json:"confidence"`
	ExtractedData map[string]json.RawMessage `json:"extracted_data"`
}

// Classify classifies a sanitized message. It never returns an error: any
// upstream or parse failure is recovered locally to the "other" intent.
func (c *Classifier) Classify(ctx context.Context, text string) model.ClassifiedIntent {
	if text == "" {
		return model.OtherIntent()
	}

	resp, err := c.client.Complete(ctx, &llm.CompletionRequest{
		Model: c.model,
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: classifierPrompt},
			{Role: llm.RoleUser, Content: text},
		},
		MaxTokens:   256,
		Temperature: 0,
	})
	if err != nil {
		c.logger.Warn("intent classification failed", zap.Error(err))
		metrics.ClassificationsTotal.WithLabelValues("error").Inc()
		return model.OtherIntent()
	}

	result, ok := parse(resp.Content)
	if !ok {
		c.logger.Warn("unparseable classifier output", zap.String("output", resp.Content))
		metrics.ClassificationsTotal.WithLabelValues("fallback").Inc()
		return model.OtherIntent()
	}

	// The classifier sometimes omits the ticket id even when the message
	// plainly contains one; scan the text as a backstop.
	switch result.Intent {
	case model.IntentTicketActivity, model.IntentTicketStatus, model.IntentTicketAgent:
		if result.Extracted.TicketID == "" {
			if m := ticketIDRe.FindStringSubmatch(text); m != nil {
				result.Extracted.TicketID = m[1]
			}
		}
	}

	metrics.ClassificationsTotal.WithLabelValues(string(result.Intent)).Inc()
	return result
}

// parse validates the completion output against the taxonomy, defensively
// stripping any code fence the service wrapped around the JSON.
func parse(content string) (model.ClassifiedIntent, bool) {
	var raw rawResult
	if err := json.Unmarshal([]byte(sanitize.StripCodeFence(content)), &raw); err != nil {
		return model.ClassifiedIntent{}, false
	}
	if !model.ValidIntent(raw.Intent) {
		return model.ClassifiedIntent{}, false
	}

	confidence := raw.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	result := model.ClassifiedIntent{
		Intent:     model.Intent(raw.Intent),
		Confidence: confidence,
	}

	if v, ok := raw.ExtractedData["priority"]; ok {
		if p, ok := model.NormalizePriority(rawToString(v)); ok {
			result.Extracted.Priority = p
		}
	}
	if v, ok := raw.ExtractedData["ticket_id"]; ok {
		if id := rawToString(v); bareTicketIDRe.MatchString(id) {
			result.Extracted.TicketID = id
		}
	}

	return result, true
}

// rawToString renders a JSON scalar as its bare string form, so "2", 2 and
// "High" all normalize through the same path.
func rawToString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(v, &n); err == nil {
		return fmt.Sprintf("%.0f", n)
	}
	return ""
}
