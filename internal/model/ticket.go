package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Priority is a ticket priority label. The ticketing system encodes these as
// integers 1-4; the completion service may emit either form.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

// Code returns the ticketing system's integer encoding for the priority.
// Unknown labels map to Medium, the original system's parse-failure default.
func (p Priority) Code() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	default:
		return 2
	}
}

// NormalizePriority coerces a raw value (enum name in any casing, or an
// integer 1-4 as string) to one of the four canonical labels.
func NormalizePriority(raw string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low", "1":
		return PriorityLow, true
	case "medium", "2":
		return PriorityMedium, true
	case "high", "3":
		return PriorityHigh, true
	case "urgent", "4":
		return PriorityUrgent, true
	}
	return "", false
}

// UnmarshalJSON accepts both `"High"` and `3`, normalizing to the canonical
// label. Unrecognized values unmarshal to the empty priority rather than
// failing: the completion service's output is untrusted.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			*p = ""
			return nil
		}
		s = strconv.Itoa(n)
	}
	norm, ok := NormalizePriority(s)
	if !ok {
		*p = ""
		return nil
	}
	*p = norm
	return nil
}

// TicketDraft is the editable, not-yet-submitted ticket body for a session.
// At most one draft exists per (user, session) pair.
type TicketDraft struct {
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"session_id"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DraftField names an independently updatable draft field.
type DraftField string

const (
	FieldSubject     DraftField = "subject"
	FieldDescription DraftField = "description"
	FieldPriority    DraftField = "priority"
)

// TicketPreview is the draft shape returned to the caller.
type TicketPreview struct {
	Subject     string   `json:"subject"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
}

// Attachment is an uploaded file bound to a ticket description at
// submission time. It is never persisted back to the draft.
type Attachment struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}
