package model

// Intent is the closed-set classification of what a user message requests.
type Intent string

const (
	IntentUpdateDescription Intent = "update_description"
	IntentUpdateSubject     Intent = "update_subject"
	IntentShowTicket        Intent = "show_ticket"
	IntentUpdatePriority    Intent = "update_priority"
	IntentTicketActivity    Intent = "ticket_activity"
	IntentTicketStatus      Intent = "ticket_status"
	IntentTicketAgent       Intent = "tick_agent"
	IntentListTickets       Intent = "list_tickets"
	IntentCreateTicket      Intent = "create_ticket"
	IntentGeneralHelp       Intent = "general_help"
	IntentOther             Intent = "other"
)

// ValidIntent reports whether s is a member of the intent vocabulary.
func ValidIntent(s string) bool {
	switch Intent(s) {
	case IntentUpdateDescription, IntentUpdateSubject, IntentShowTicket,
		IntentUpdatePriority, IntentTicketActivity, IntentTicketStatus,
		IntentTicketAgent, IntentListTickets, IntentCreateTicket,
		IntentGeneralHelp, IntentOther:
		return true
	}
	return false
}

// ExtractedData carries the intent-dependent fields pulled out of the user
// message. Only the fields relevant to the classified intent are set.
type ExtractedData struct {
	// Priority is set for update_priority, already normalized to one of the
	// four canonical labels.
	Priority Priority `json:"priority,omitempty"`
	// TicketID is set for ticket_activity/ticket_status/tick_agent when a
	// ticket number (3+ digits) was found in the message.
	TicketID string `json:"ticket_id,omitempty"`
}

// ClassifiedIntent is the per-request classification result. It is never
// persisted; it only routes the current turn.
type ClassifiedIntent struct {
	Intent     Intent        `json:"intent"`
	Confidence float64       `json:"confidence"`
	Extracted  ExtractedData `json:"extracted_data"`
}

// OtherIntent is the local-recovery classification used whenever the
// completion service's output cannot be parsed or validated.
func OtherIntent() ClassifiedIntent {
	return ClassifiedIntent{Intent: IntentOther, Confidence: 0.5}
}
