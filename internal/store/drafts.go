package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/maxpilipovic/INB-internal-project/internal/model"
)

// GetDraft returns the session's ticket draft, or ErrNotFound.
func (s *Store) GetDraft(userID, sessionID string) (model.TicketDraft, error) {
	var d model.TicketDraft
	var priority, createdAt, updatedAt string
	err := s.db.QueryRow(`
		SELECT user_id, session_id, subject, description, priority, created_at, updated_at
		FROM ticket_drafts WHERE user_id = ? AND session_id = ?`,
		userID, sessionID,
	).Scan(&d.UserID, &d.SessionID, &d.Subject, &d.Description, &priority, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return model.TicketDraft{}, ErrNotFound
	}
	if err != nil {
		return model.TicketDraft{}, err
	}

	d.Priority = model.Priority(priority)
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.TicketDraft{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.TicketDraft{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return d, nil
}

// CreateDraftIfAbsent atomically creates the session's draft if none exists.
// When a draft is already present the supplied one is discarded and the
// stored draft returned unchanged, which makes preview generation idempotent
// under retries and duplicate requests.
func (s *Store) CreateDraftIfAbsent(draft model.TicketDraft, now time.Time) (model.TicketDraft, bool, error) {
	res, err := s.db.Exec(`
		INSERT INTO ticket_drafts (user_id, session_id, subject, description, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, session_id) DO NOTHING`,
		draft.UserID, draft.SessionID, draft.Subject, draft.Description,
		string(draft.Priority), fmtTime(now), fmtTime(now),
	)
	if err != nil {
		return model.TicketDraft{}, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.TicketDraft{}, false, err
	}

	stored, err := s.GetDraft(draft.UserID, draft.SessionID)
	if err != nil {
		return model.TicketDraft{}, false, err
	}
	return stored, n == 1, nil
}

// UpdateDraftField writes a single draft field. The write is all-or-nothing
// for that field; concurrent editors are last-write-wins, which is accepted
// behavior. Returns ErrNotFound when the session has no draft; callers must
// have generated a preview first.
func (s *Store) UpdateDraftField(userID, sessionID string, field model.DraftField, value string, now time.Time) error {
	var column string
	switch field {
	case model.FieldSubject:
		column = "subject"
	case model.FieldDescription:
		column = "description"
	case model.FieldPriority:
		column = "priority"
	default:
		return fmt.Errorf("unknown draft field %q", field)
	}

	res, err := s.db.Exec(
		`UPDATE ticket_drafts SET `+column+` = ?, updated_at = ? WHERE user_id = ? AND session_id = ?`,
		value, fmtTime(now), userID, sessionID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
