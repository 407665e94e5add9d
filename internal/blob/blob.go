// Package blob persists uploaded attachment bytes and hands back durable,
// time-bounded fetch URLs for inclusion in ticket descriptions.
package blob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/maxpilipovic/INB-internal-project/internal/model"
	"github.com/maxpilipovic/INB-internal-project/internal/store"
)

// ErrExpired is returned when an attachment's fetch window has passed.
var ErrExpired = errors.New("attachment expired")

// Store accepts attachment bytes and returns a fetchable reference.
type Store interface {
	Save(ctx context.Context, fileName, contentType string, data []byte) (model.Attachment, error)
}

// DocumentStore keeps attachment blobs in the document store and serves
// them from the API's own attachments endpoint until they expire.
type DocumentStore struct {
	store   *store.Store
	baseURL string
	ttl     time.Duration
}

// NewDocumentStore creates a blob store. baseURL is the externally visible
// API base the returned URLs are built on.
func NewDocumentStore(st *store.Store, baseURL string, ttl time.Duration) *DocumentStore {
	return &DocumentStore{store: st, baseURL: baseURL, ttl: ttl}
}

// Save persists the bytes and returns the attachment reference. The stored
// file name is prefixed with a fresh id so colliding upload names stay
// distinct.
func (s *DocumentStore) Save(ctx context.Context, fileName, contentType string, data []byte) (model.Attachment, error) {
	id := uuid.New().String()
	now := time.Now()

	blob := store.AttachmentBlob{
		ID:          id,
		FileName:    fmt.Sprintf("%s-%s", id, fileName),
		ContentType: contentType,
		Data:        data,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.store.SaveAttachment(blob); err != nil {
		return model.Attachment{}, fmt.Errorf("saving attachment: %w", err)
	}

	return model.Attachment{
		Label: fileName,
		URL:   fmt.Sprintf("%s/api/v1/attachments/%s", s.baseURL, id),
	}, nil
}

// Fetch returns a stored attachment if its fetch window is still open.
func (s *DocumentStore) Fetch(ctx context.Context, id string) (store.AttachmentBlob, error) {
	blob, err := s.store.GetAttachment(id)
	if err != nil {
		return store.AttachmentBlob{}, err
	}
	if time.Now().After(blob.ExpiresAt) {
		return store.AttachmentBlob{}, ErrExpired
	}
	return blob, nil
}
