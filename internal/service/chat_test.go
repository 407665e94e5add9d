package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/maxpilipovic/INB-internal-project/internal/blob"
	"github.com/maxpilipovic/INB-internal-project/internal/events"
	"github.com/maxpilipovic/INB-internal-project/internal/freshservice"
	"github.com/maxpilipovic/INB-internal-project/internal/intent"
	"github.com/maxpilipovic/INB-internal-project/internal/llm"
	"github.com/maxpilipovic/INB-internal-project/internal/model"
	"github.com/maxpilipovic/INB-internal-project/internal/session"
	"github.com/maxpilipovic/INB-internal-project/internal/store"
	"github.com/maxpilipovic/INB-internal-project/pkg/logger"
)

// scriptedLLM answers completion calls by recognizing which prompt is being
// sent. Unscripted operations get a harmless default so a test only has to
// script the calls it cares about.
type scriptedLLM struct {
	mu      sync.Mutex
	ops     []string
	replies map[string]string
	errs    map[string]error
}

var defaultLLMReplies = map[string]string{
	"classify": `{"intent":"other","confidence":0.5,"extracted_data":{}}`,
	"chat":     "Happy to help with that.",
	"wants":    "no",
	"confirm":  "unclear",
	"draft":    `{"subject":"Printer broken","description":"The office printer is broken.","priority":2}`,
	"rewrite":  "Updated text.",
	"title":    "Test chat",
}

func opFor(req *llm.CompletionRequest) string {
	system := req.Messages[0].Content
	switch {
	case strings.Contains(system, "intent classifier"):
		return "classify"
	case strings.Contains(system, "short titles"):
		return "title"
	case strings.Contains(system, "submit, cancel, or unclear"):
		return "confirm"
	case strings.Contains(system, "yes or no"):
		return "wants"
	case strings.Contains(system, "generate a JSON object"):
		return "draft"
	case strings.Contains(system, "ticket draft"):
		return "rewrite"
	default:
		return "chat"
	}
}

func (m *scriptedLLM) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	op := opFor(req)
	m.mu.Lock()
	m.ops = append(m.ops, op)
	m.mu.Unlock()

	if err := m.errs[op]; err != nil {
		return nil, err
	}
	reply, ok := m.replies[op]
	if !ok {
		reply = defaultLLMReplies[op]
	}
	return &llm.CompletionResponse{Content: reply, Model: req.Model, TokensIn: 10, TokensOut: 5}, nil
}

func (m *scriptedLLM) Name() string { return "scripted" }

func (m *scriptedLLM) calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.ops {
		if o == op {
			n++
		}
	}
	return n
}

type recordingPublisher struct {
	mu      sync.Mutex
	turns   []events.TurnEvent
	tickets []events.TicketEvent
}

func (p *recordingPublisher) TurnLogged(_ context.Context, ev events.TurnEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.turns = append(p.turns, ev)
	return nil
}

func (p *recordingPublisher) TicketSubmitted(_ context.Context, ev events.TicketEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tickets = append(p.tickets, ev)
	return nil
}

type countingBlobs struct {
	inner blob.Store
	mu    sync.Mutex
	saves int
}

func (c *countingBlobs) Save(ctx context.Context, fileName, contentType string, data []byte) (model.Attachment, error) {
	c.mu.Lock()
	c.saves++
	c.mu.Unlock()
	return c.inner.Save(ctx, fileName, contentType, data)
}

type env struct {
	svc   *ChatService
	store *store.Store
	llm   *scriptedLLM
	pub   *recordingPublisher
	blobs *countingBlobs
	fsMux *http.ServeMux
}

func newEnv(t *testing.T) *env {
	t.Helper()

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ml := &scriptedLLM{replies: map[string]string{}, errs: map[string]error{}}
	log := logger.NewNop()
	pub := &recordingPublisher{}
	blobs := &countingBlobs{inner: blob.NewDocumentStore(st, srv.URL, time.Hour)}

	svc := New(Deps{
		Store:      st,
		Sessions:   session.NewAdapter(st, ml, "test-model", log),
		Classifier: intent.NewClassifier(ml, "test-model", log),
		LLM:        ml,
		LLMModel:   "test-model",
		Tickets:    freshservice.NewClient(srv.URL, "test-key", 2),
		Blobs:      blobs,
		Events:     pub,
		Logger:     log,
	})
	return &env{svc: svc, store: st, llm: ml, pub: pub, blobs: blobs, fsMux: mux}
}

func classification(intentName, extracted string) string {
	if extracted == "" {
		extracted = "{}"
	}
	return fmt.Sprintf(`{"intent":%q,"confidence":0.9,"extracted_data":%s}`, intentName, extracted)
}

func seedDraft(t *testing.T, e *env, userID, sessionID string) model.TicketDraft {
	t.Helper()
	draft, _, err := e.store.CreateDraftIfAbsent(model.TicketDraft{
		UserID:      userID,
		SessionID:   sessionID,
		Subject:     "Printer broken",
		Description: "The office printer on floor 3 is broken.",
		Priority:    model.PriorityMedium,
	}, time.Now())
	if err != nil {
		t.Fatalf("seeding draft: %v", err)
	}
	return draft
}

func TestHandleMessageGeneralHelp(t *testing.T) {
	e := newEnv(t)
	e.llm.replies["classify"] = classification("general_help", "")
	e.llm.replies["chat"] = "Try restarting the printer first. Want me to open a ticket for you?"
	e.llm.replies["wants"] = "yes"

	e.fsMux.HandleFunc("/api/v2/solutions/articles/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"articles":[{"title":"Printer troubleshooting","description_text":"Power cycle the printer."}]}`)
	})

	resp := e.svc.HandleMessage(context.Background(), "u1", "", "my printer is not working")
	if resp.Reply != "Try restarting the printer first. Want me to open a ticket for you?" {
		t.Errorf("Reply = %q", resp.Reply)
	}
	if !resp.AwaitingTicketPreview {
		t.Error("AwaitingTicketPreview = false, want true")
	}
	if resp.SessionID == "" {
		t.Fatal("SessionID empty, want generated id")
	}

	sess, err := e.store.GetSession("u1", resp.SessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if len(sess.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(sess.Messages))
	}
	if sess.Messages[0].Sender != model.SenderUser || sess.Messages[1].Sender != model.SenderBot {
		t.Errorf("message senders = %v, %v", sess.Messages[0].Sender, sess.Messages[1].Sender)
	}

	if len(e.pub.turns) != 1 || e.pub.turns[0].Intent != "general_help" {
		t.Errorf("published turns = %+v", e.pub.turns)
	}
}

func TestHandleMessageReusesSession(t *testing.T) {
	e := newEnv(t)

	first := e.svc.HandleMessage(context.Background(), "u1", "", "hello there")
	if first.SessionID == "" {
		t.Fatal("no session id on first turn")
	}
	second := e.svc.HandleMessage(context.Background(), "u1", first.SessionID, "still need help")
	if second.SessionID != first.SessionID {
		t.Errorf("SessionID changed: %q -> %q", first.SessionID, second.SessionID)
	}

	sess, err := e.store.GetSession("u1", first.SessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if len(sess.Messages) != 4 {
		t.Errorf("len(Messages) = %d, want 4", len(sess.Messages))
	}
	if e.llm.calls("title") != 1 {
		t.Errorf("title calls = %d, want 1", e.llm.calls("title"))
	}
}

func TestHandleMessageBlankInput(t *testing.T) {
	e := newEnv(t)

	resp := e.svc.HandleMessage(context.Background(), "u1", "", "   \n  ")
	if resp.Reply != replyEmptyMessage {
		t.Errorf("Reply = %q", resp.Reply)
	}
	if e.llm.calls("classify") != 0 {
		t.Error("blank input should not reach the classifier")
	}
}

func TestHandleMessageChatFailure(t *testing.T) {
	e := newEnv(t)
	e.llm.replies["classify"] = classification("general_help", "")
	e.llm.errs["chat"] = fmt.Errorf("upstream down")

	resp := e.svc.HandleMessage(context.Background(), "u1", "", "help me")
	if resp.Reply != replyUnavailable {
		t.Errorf("Reply = %q, want %q", resp.Reply, replyUnavailable)
	}
	if resp.AwaitingTicketPreview {
		t.Error("failed turn must not await a preview")
	}
}

func TestUpdatePriorityWithoutDraft(t *testing.T) {
	e := newEnv(t)
	e.llm.replies["classify"] = classification("update_priority", `{"priority":"Urgent"}`)

	resp := e.svc.HandleMessage(context.Background(), "u1", "s1", "make this urgent")
	if resp.Reply != replyNoDraftToUpdate {
		t.Errorf("Reply = %q, want %q", resp.Reply, replyNoDraftToUpdate)
	}
	// The fallback must not create a draft as a side effect.
	if _, err := e.store.GetDraft("u1", "s1"); err == nil {
		t.Error("draft was created by a failed priority update")
	}
}

func TestUpdatePriorityRoundTrip(t *testing.T) {
	e := newEnv(t)
	seedDraft(t, e, "u1", "s1")
	e.llm.replies["classify"] = classification("update_priority", `{"priority":"urgent"}`)

	resp := e.svc.HandleMessage(context.Background(), "u1", "s1", "make this urgent")
	if !strings.Contains(resp.Reply, "Urgent") {
		t.Errorf("Reply = %q, want mention of Urgent", resp.Reply)
	}

	draft, err := e.store.GetDraft("u1", "s1")
	if err != nil {
		t.Fatalf("GetDraft: %v", err)
	}
	if draft.Priority != model.PriorityUrgent {
		t.Errorf("Priority = %q, want Urgent", draft.Priority)
	}

	// A subsequent show_ticket must render the updated priority.
	e.llm.replies["classify"] = classification("show_ticket", "")
	resp = e.svc.HandleMessage(context.Background(), "u1", "s1", "show me the ticket")
	if !strings.Contains(resp.Reply, "**Priority:** Urgent") {
		t.Errorf("show reply = %q", resp.Reply)
	}
}

func TestUpdateDescriptionRewrite(t *testing.T) {
	e := newEnv(t)
	seedDraft(t, e, "u1", "s1")
	e.llm.replies["classify"] = classification("update_description", "")
	e.llm.replies["rewrite"] = "Description: The printer on floor 3 jams on every duplex job."

	resp := e.svc.HandleMessage(context.Background(), "u1", "s1", "mention that it jams on duplex jobs")
	if !strings.Contains(resp.Reply, "jams on every duplex job") {
		t.Errorf("Reply = %q", resp.Reply)
	}

	draft, err := e.store.GetDraft("u1", "s1")
	if err != nil {
		t.Fatalf("GetDraft: %v", err)
	}
	// The label the model prepended must not survive into the stored field.
	if draft.Description != "The printer on floor 3 jams on every duplex job." {
		t.Errorf("Description = %q", draft.Description)
	}
}

func TestUpdateSubjectWithoutDraft(t *testing.T) {
	e := newEnv(t)
	e.llm.replies["classify"] = classification("update_subject", "")

	resp := e.svc.HandleMessage(context.Background(), "u1", "s1", "change the subject")
	if resp.Reply != replyNoDraftToUpdate {
		t.Errorf("Reply = %q, want %q", resp.Reply, replyNoDraftToUpdate)
	}
	if e.llm.calls("rewrite") != 0 {
		t.Error("rewrite should not run without a draft")
	}
}

func TestShowTicketWithoutDraft(t *testing.T) {
	e := newEnv(t)
	e.llm.replies["classify"] = classification("show_ticket", "")

	resp := e.svc.HandleMessage(context.Background(), "u1", "s1", "show my ticket")
	if resp.Reply != replyNoDraftToShow {
		t.Errorf("Reply = %q, want %q", resp.Reply, replyNoDraftToShow)
	}
}

func TestTicketStatus(t *testing.T) {
	e := newEnv(t)
	e.llm.replies["classify"] = classification("ticket_status", `{"ticket_id":"1234"}`)
	e.fsMux.HandleFunc("/api/v2/tickets/1234", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ticket":{"id":1234,"subject":"VPN down","status":4,"priority":2}}`)
	})

	resp := e.svc.HandleMessage(context.Background(), "u1", "s1", "what is the status of ticket #1234")
	if !strings.Contains(resp.Reply, "Resolved") || !strings.Contains(resp.Reply, "#1234") {
		t.Errorf("Reply = %q", resp.Reply)
	}
}

func TestTicketStatusMissingID(t *testing.T) {
	e := newEnv(t)
	e.llm.replies["classify"] = classification("ticket_status", "")

	resp := e.svc.HandleMessage(context.Background(), "u1", "s1", "what is my ticket status")
	if resp.Reply != replyAskTicketID {
		t.Errorf("Reply = %q, want %q", resp.Reply, replyAskTicketID)
	}
}

func TestTicketActivity(t *testing.T) {
	e := newEnv(t)
	e.llm.replies["classify"] = classification("ticket_activity", `{"ticket_id":"1234"}`)

	long := strings.Repeat("troubleshooting step ", 20)
	e.fsMux.HandleFunc("/api/v2/tickets/1234/conversations", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"conversations":[
			{"user_id":null,"body_text":"Auto-assigned to queue"},
			{"user_id":77,"body_text":%q}
		]}`, long+"\nsecond line")
	})

	resp := e.svc.HandleMessage(context.Background(), "u1", "s1", "any updates on ticket 1234?")
	if !strings.Contains(resp.Reply, "System") {
		t.Errorf("Reply = %q, want System author for nil user_id", resp.Reply)
	}
	if !strings.Contains(resp.Reply, "User 77") {
		t.Errorf("Reply = %q, want User 77", resp.Reply)
	}
	if !strings.Contains(resp.Reply, "...") {
		t.Errorf("Reply = %q, want truncated body", resp.Reply)
	}
	if strings.Contains(resp.Reply, "second line") {
		t.Errorf("Reply = %q, body should be flattened and truncated", resp.Reply)
	}
}

func TestTicketActivityFetchFails(t *testing.T) {
	e := newEnv(t)
	e.llm.replies["classify"] = classification("ticket_activity", `{"ticket_id":"999"}`)

	resp := e.svc.HandleMessage(context.Background(), "u1", "s1", "updates on ticket 999")
	if !strings.Contains(resp.Reply, "couldn't fetch conversations for ticket #999") {
		t.Errorf("Reply = %q", resp.Reply)
	}
}

func TestTicketAgent(t *testing.T) {
	e := newEnv(t)
	e.llm.replies["classify"] = classification("tick_agent", `{"ticket_id":"1234"}`)
	e.fsMux.HandleFunc("/api/v2/tickets/1234", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ticket":{"id":1234,"subject":"VPN down","status":2,"responder_id":42}}`)
	})
	e.fsMux.HandleFunc("/api/v2/agents/42", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"agent":{"first_name":"Dana","last_name":"Reyes","email":"dana.reyes@example.com"}}`)
	})

	resp := e.svc.HandleMessage(context.Background(), "u1", "s1", "who is on ticket 1234")
	if !strings.Contains(resp.Reply, "Dana Reyes") || !strings.Contains(resp.Reply, "dana.reyes@example.com") {
		t.Errorf("Reply = %q", resp.Reply)
	}
}

func TestTicketAgentUnassigned(t *testing.T) {
	e := newEnv(t)
	e.llm.replies["classify"] = classification("tick_agent", `{"ticket_id":"1234"}`)
	e.fsMux.HandleFunc("/api/v2/tickets/1234", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ticket":{"id":1234,"subject":"VPN down","status":2,"responder_id":null}}`)
	})

	resp := e.svc.HandleMessage(context.Background(), "u1", "s1", "who is on ticket 1234")
	if !strings.Contains(resp.Reply, "No agent is currently assigned") {
		t.Errorf("Reply = %q", resp.Reply)
	}
}

func TestListTickets(t *testing.T) {
	e := newEnv(t)
	e.llm.replies["classify"] = classification("list_tickets", "")
	if err := e.store.UpsertUser(model.User{ID: "u1", Email: "max@example.com"}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	e.fsMux.HandleFunc("/api/v2/tickets", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("email"); got != "max@example.com" {
			t.Errorf("email = %q", got)
		}
		fmt.Fprint(w, `{"tickets":[
			{"id":1,"subject":"A","status":2},{"id":2,"subject":"B","status":3},
			{"id":3,"subject":"C","status":4},{"id":4,"subject":"D","status":5},
			{"id":5,"subject":"E","status":6},{"id":6,"subject":"F","status":7}
		]}`)
	})

	resp := e.svc.HandleMessage(context.Background(), "u1", "s1", "show my tickets")
	if !strings.Contains(resp.Reply, "#1 - A [Open]") {
		t.Errorf("Reply = %q", resp.Reply)
	}
	if strings.Contains(resp.Reply, "#6") {
		t.Errorf("Reply = %q, want at most 5 tickets", resp.Reply)
	}
}

func TestListTicketsEmpty(t *testing.T) {
	e := newEnv(t)
	e.llm.replies["classify"] = classification("list_tickets", "")
	if err := e.store.UpsertUser(model.User{ID: "u1", Email: "max@example.com"}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	e.fsMux.HandleFunc("/api/v2/tickets", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tickets":[]}`)
	})

	resp := e.svc.HandleMessage(context.Background(), "u1", "s1", "show my tickets")
	if resp.Reply != replyNoOpenTickets {
		t.Errorf("Reply = %q, want %q", resp.Reply, replyNoOpenTickets)
	}
}

func TestListTicketsUnknownUser(t *testing.T) {
	e := newEnv(t)
	e.llm.replies["classify"] = classification("list_tickets", "")

	resp := e.svc.HandleMessage(context.Background(), "ghost", "s1", "show my tickets")
	if resp.Reply != replyTicketsFailed {
		t.Errorf("Reply = %q, want %q", resp.Reply, replyTicketsFailed)
	}
}
