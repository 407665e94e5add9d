package store

import (
	"database/sql"
	"fmt"
)

// SaveAttachment persists an uploaded attachment blob.
func (s *Store) SaveAttachment(a AttachmentBlob) error {
	_, err := s.db.Exec(`
		INSERT INTO attachments (id, file_name, content_type, data, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.FileName, a.ContentType, a.Data, fmtTime(a.CreatedAt), fmtTime(a.ExpiresAt),
	)
	return err
}

// GetAttachment returns a stored attachment by id, or ErrNotFound. Expiry is
// the caller's concern; the bytes stay fetchable here until cleanup.
func (s *Store) GetAttachment(id string) (AttachmentBlob, error) {
	var a AttachmentBlob
	var createdAt, expiresAt string
	err := s.db.QueryRow(`
		SELECT id, file_name, content_type, data, created_at, expires_at
		FROM attachments WHERE id = ?`, id,
	).Scan(&a.ID, &a.FileName, &a.ContentType, &a.Data, &createdAt, &expiresAt)
	if err == sql.ErrNoRows {
		return AttachmentBlob{}, ErrNotFound
	}
	if err != nil {
		return AttachmentBlob{}, err
	}

	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return AttachmentBlob{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if a.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return AttachmentBlob{}, fmt.Errorf("parsing expires_at: %w", err)
	}
	return a, nil
}
