package session

import (
	"context"
	"errors"
	"testing"

	"github.com/maxpilipovic/INB-internal-project/internal/llm"
	"github.com/maxpilipovic/INB-internal-project/internal/model"
	"github.com/maxpilipovic/INB-internal-project/internal/store"
	"github.com/maxpilipovic/INB-internal-project/pkg/logger"
)

type mockCompleter struct {
	response string
	err      error
}

func (m *mockCompleter) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &llm.CompletionResponse{Content: m.response}, nil
}

func (m *mockCompleter) Name() string { return "mock" }

func newTestAdapter(t *testing.T, mock *mockCompleter) (*Adapter, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewAdapter(st, mock, "gpt-4o", logger.NewNop()), st
}

func TestAppendTurn_CreatesSessionWithTitle(t *testing.T) {
	a, _ := newTestAdapter(t, &mockCompleter{response: `"Email  Access   Issue"`})

	id := a.AppendTurn(context.Background(), "u1", "", "I can't access my email", "let me help")
	if id == "" {
		t.Fatal("AppendTurn returned empty session id")
	}

	sess, err := a.LoadSession("u1", id)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if sess.Title != "Email Access Issue" {
		t.Errorf("Title = %q, want quotes stripped and whitespace collapsed", sess.Title)
	}
	if len(sess.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(sess.Messages))
	}
	if sess.Messages[0].Sender != model.SenderUser || sess.Messages[1].Sender != model.SenderBot {
		t.Errorf("turn order wrong: %+v", sess.Messages)
	}
}

func TestAppendTurn_StableIDAcrossTurns(t *testing.T) {
	a, _ := newTestAdapter(t, &mockCompleter{response: "Title"})

	id := a.AppendTurn(context.Background(), "u1", "", "first", "reply one")
	id2 := a.AppendTurn(context.Background(), "u1", id, "second", "reply two")

	if id2 != id {
		t.Errorf("second turn returned %q, want %q", id2, id)
	}

	sess, err := a.LoadSession("u1", id)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if len(sess.Messages) != 4 {
		t.Errorf("len(Messages) = %d, want 4", len(sess.Messages))
	}
}

func TestAppendTurn_TitleFallbackOnLLMFailure(t *testing.T) {
	a, _ := newTestAdapter(t, &mockCompleter{err: errors.New("unavailable")})

	id := a.AppendTurn(context.Background(), "u1", "", "printer on floor three is jammed again", "ok")
	if id == "" {
		t.Fatal("AppendTurn returned empty session id; title failure must not abort the turn")
	}

	sess, err := a.LoadSession("u1", id)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if sess.Title != "printer on floor three is" {
		t.Errorf("Title = %q, want leading words fallback", sess.Title)
	}
}

func TestAppendTurn_StoreFailureReturnsSentinel(t *testing.T) {
	a, st := newTestAdapter(t, &mockCompleter{response: "Title"})
	st.Close()

	id := a.AppendTurn(context.Background(), "u1", "", "hello", "hi")
	if id != "" {
		t.Errorf("AppendTurn = %q, want empty sentinel on store failure", id)
	}
}

func TestAppendTurn_UnknownSession(t *testing.T) {
	a, _ := newTestAdapter(t, &mockCompleter{response: "Title"})

	id := a.AppendTurn(context.Background(), "u1", "no-such-session", "hello", "hi")
	if id != "" {
		t.Errorf("AppendTurn = %q, want empty sentinel for unknown session", id)
	}
}
