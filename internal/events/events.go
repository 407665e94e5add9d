// Package events publishes help-desk activity to NATS JetStream for
// downstream consumers (reporting, audit). Publishing is strictly
// best-effort: the orchestrator never lets a publish failure affect a reply.
package events

import (
	"context"
	"time"
)

// TurnEvent records one handled chat turn.
type TurnEvent struct {
	UserID                string    `json:"user_id"`
	SessionID             string    `json:"session_id"`
	Intent                string    `json:"intent"`
	AwaitingTicketPreview bool      `json:"awaiting_ticket_preview,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

// TicketEvent records a ticket submitted through the assistant.
type TicketEvent struct {
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	TicketID  int64     `json:"ticket_id"`
	Subject   string    `json:"subject"`
	Priority  string    `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// Publisher emits help-desk events.
type Publisher interface {
	TurnLogged(ctx context.Context, ev TurnEvent) error
	TicketSubmitted(ctx context.Context, ev TicketEvent) error
}

// Noop is the publisher used when NATS is not configured.
type Noop struct{}

func (Noop) TurnLogged(context.Context, TurnEvent) error       { return nil }
func (Noop) TicketSubmitted(context.Context, TicketEvent) error { return nil }
