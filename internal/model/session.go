// Package model defines data structures for the help-desk assistant.
package model

import (
	"time"
)

// Sender identifies who authored a transcript message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// ChatMessage is one entry in a session transcript.
type ChatMessage struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// Session is a persisted conversation thread owned by a single user.
// The transcript is append-only; insertion order is significant.
type Session struct {
	UserID    string        `json:"user_id"`
	SessionID string        `json:"session_id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// User is the stored profile for a help-desk user. The email is the
// canonical requester address for the ticketing system.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// SendMessageRequest is the body of POST /chat.
type SendMessageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// SendMessageResponse is the reply to POST /chat.
type SendMessageResponse struct {
	Reply                 string `json:"reply"`
	SessionID             string `json:"session_id,omitempty"`
	AwaitingTicketPreview bool   `json:"awaiting_ticket_preview,omitempty"`
}

// PreviewTicketRequest is the body of POST /chat/preview-ticket. Transcript
// is optional; when omitted the stored session transcript is used.
type PreviewTicketRequest struct {
	SessionID  string        `json:"session_id,omitempty"`
	Transcript []ChatMessage `json:"transcript,omitempty"`
}

// PreviewTicketResponse is the reply to POST /chat/preview-ticket.
type PreviewTicketResponse struct {
	Ticket    TicketPreview `json:"ticket"`
	SessionID string        `json:"session_id,omitempty"`
}

// ConfirmTicketResponse is the reply to POST /chat/confirm-ticket.
type ConfirmTicketResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id,omitempty"`
}

// SessionResponse is the reply to GET /chat/{sessionID}.
type SessionResponse struct {
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
