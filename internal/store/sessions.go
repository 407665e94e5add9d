package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/maxpilipovic/INB-internal-project/internal/model"
)

// CreateSession inserts a new, empty session document.
func (s *Store) CreateSession(userID, sessionID, title string, now time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (user_id, session_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		userID, sessionID, title, fmtTime(now), fmtTime(now),
	)
	return err
}

// AppendMessages appends messages to a session's transcript and bumps
// updated_at, atomically. Returns ErrNotFound if the session does not exist.
func (s *Store) AppendMessages(userID, sessionID string, messages []model.ChatMessage, now time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning append transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE sessions SET updated_at = ? WHERE user_id = ? AND session_id = ?`,
		fmtTime(now), userID, sessionID)
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

	for _, msg := range messages {
		if _, err := tx.Exec(`
			INSERT INTO session_messages (user_id, session_id, sender, text, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			userID, sessionID, string(msg.Sender), msg.Text, fmtTime(now),
		); err != nil {
			return fmt.Errorf("inserting message: %w", err)
		}
	}

	return tx.Commit()
}

// GetSession loads a session document with its full ordered transcript.
func (s *Store) GetSession(userID, sessionID string) (model.Session, error) {
	var sess model.Session
	var createdAt, updatedAt string
	err := s.db.QueryRow(`
		SELECT user_id, session_id, title, created_at, updated_at
		FROM sessions WHERE user_id = ? AND session_id = ?`,
		userID, sessionID,
	).Scan(&sess.UserID, &sess.SessionID, &sess.Title, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, err
	}

	if sess.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Session{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if sess.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Session{}, fmt.Errorf("parsing updated_at: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT sender, text FROM session_messages
		WHERE user_id = ? AND session_id = ? ORDER BY id ASC`,
		userID, sessionID,
	)
	if err != nil {
		return model.Session{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var msg model.ChatMessage
		var sender string
		if err := rows.Scan(&sender, &msg.Text); err != nil {
			return model.Session{}, err
		}
		msg.Sender = model.Sender(sender)
		sess.Messages = append(sess.Messages, msg)
	}
	return sess, rows.Err()
}
