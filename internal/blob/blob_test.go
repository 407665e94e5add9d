package blob

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/maxpilipovic/INB-internal-project/internal/store"
)

func newTestBlobStore(t *testing.T, ttl time.Duration) *DocumentStore {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewDocumentStore(st, "https://helpdesk.example.com", ttl)
}

func TestSaveAndFetch(t *testing.T) {
	s := newTestBlobStore(t, time.Hour)

	att, err := s.Save(context.Background(), "screenshot.png", "image/png", []byte("pngbytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if att.Label != "screenshot.png" {
		t.Errorf("Label = %q", att.Label)
	}
	if !strings.HasPrefix(att.URL, "https://helpdesk.example.com/api/v1/attachments/") {
		t.Errorf("URL = %q", att.URL)
	}

	id := att.URL[strings.LastIndex(att.URL, "/")+1:]
	blob, err := s.Fetch(context.Background(), id)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(blob.Data) != "pngbytes" || blob.ContentType != "image/png" {
		t.Errorf("blob = %+v", blob)
	}
	if !strings.HasSuffix(blob.FileName, "-screenshot.png") {
		t.Errorf("FileName = %q, want id prefix", blob.FileName)
	}
}

func TestFetchExpired(t *testing.T) {
	s := newTestBlobStore(t, -time.Minute)

	att, err := s.Save(context.Background(), "old.txt", "text/plain", []byte("x"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	id := att.URL[strings.LastIndex(att.URL, "/")+1:]

	if _, err := s.Fetch(context.Background(), id); !errors.Is(err, ErrExpired) {
		t.Errorf("err = %v, want ErrExpired", err)
	}
}

func TestFetchMissing(t *testing.T) {
	s := newTestBlobStore(t, time.Hour)
	if _, err := s.Fetch(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want store.ErrNotFound", err)
	}
}
