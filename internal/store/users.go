package store

import (
	"database/sql"
	"strings"

	"github.com/maxpilipovic/INB-internal-project/internal/model"
)

// GetUser returns the stored profile for a user id, or ErrNotFound.
func (s *Store) GetUser(id string) (model.User, error) {
	var u model.User
	err := s.db.QueryRow(`SELECT id, email, display_name FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &u.DisplayName)
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// UpsertUser stores a user profile. The email is normalized to lower case;
// it is the canonical requester address for the ticketing system.
func (s *Store) UpsertUser(u model.User) error {
	_, err := s.db.Exec(`
		INSERT INTO users (id, email, display_name) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET email = excluded.email, display_name = excluded.display_name`,
		u.ID, strings.ToLower(strings.TrimSpace(u.Email)), u.DisplayName,
	)
	return err
}
