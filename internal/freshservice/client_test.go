package freshservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusLabel(t *testing.T) {
	cases := []struct {
		code int
		want string
	}{
		{2, "Open"},
		{3, "Pending"},
		{4, "Resolved"},
		{5, "Closed"},
		{6, "Waiting on customer"},
		{7, "Waiting on third party"},
		{99, "Unknown"},
		{0, "Unknown"},
	}
	for _, tc := range cases {
		if got := StatusLabel(tc.code); got != tc.want {
			t.Errorf("StatusLabel(%d) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestSearchArticles_TopFiveWithDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/solutions/articles/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("search_term"); got != "vpn" {
			t.Errorf("search_term = %q", got)
		}
		if user, _, _ := r.BasicAuth(); user != "test-key" {
			t.Errorf("basic auth user = %q", user)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"articles": []map[string]any{
				{"title": "VPN Setup", "description_text": "  Install the client.  "},
				{"title": "", "description_text": ""},
				{"title": "A3", "description_text": "c3"},
				{"title": "A4", "description_text": "c4"},
				{"title": "A5", "description_text": "c5"},
				{"title": "A6", "description_text": "c6"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 2)
	articles, err := c.SearchArticles(context.Background(), "vpn")
	if err != nil {
		t.Fatalf("SearchArticles: %v", err)
	}
	if len(articles) != 5 {
		t.Fatalf("len = %d, want capped at 5", len(articles))
	}
	if articles[0].Title != "VPN Setup" || articles[0].Content != "Install the client." {
		t.Errorf("articles[0] = %+v", articles[0])
	}
	if articles[1].Title != "No Title" || articles[1].Content != "No description available" {
		t.Errorf("missing-field defaults not applied: %+v", articles[1])
	}
}

func TestSearchArticles_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"articles": []any{}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 2)
	articles, err := c.SearchArticles(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("SearchArticles: %v", err)
	}
	if len(articles) != 0 {
		t.Errorf("len = %d, want 0", len(articles))
	}
}

func TestGetTicket_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 2)
	_, err := c.GetTicket(context.Background(), "9999")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetTicket(t *testing.T) {
	responder := int64(77)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/tickets/1234" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"ticket": map[string]any{"id": 1234, "subject": "VPN down", "status": 4, "responder_id": responder},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 2)
	ticket, err := c.GetTicket(context.Background(), "1234")
	if err != nil {
		t.Fatalf("GetTicket: %v", err)
	}
	if ticket.ID != 1234 || ticket.Subject != "VPN down" || ticket.Status != 4 {
		t.Errorf("ticket = %+v", ticket)
	}
	if ticket.ResponderID == nil || *ticket.ResponderID != 77 {
		t.Errorf("ResponderID = %v, want 77", ticket.ResponderID)
	}
}

func TestGetConversations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/tickets/1234/conversations" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"conversations": []map[string]any{
				{"user_id": 5, "body_text": "looking into it"},
				{"user_id": nil, "body_text": "automated note"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 2)
	convs, err := c.GetConversations(context.Background(), "1234")
	if err != nil {
		t.Fatalf("GetConversations: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("len = %d", len(convs))
	}
	if convs[0].UserID == nil || *convs[0].UserID != 5 {
		t.Errorf("convs[0].UserID = %v", convs[0].UserID)
	}
	if convs[1].UserID != nil {
		t.Errorf("convs[1].UserID = %v, want nil for system entry", convs[1].UserID)
	}
}

func TestCreateTicket_Payload(t *testing.T) {
	var got createTicketRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v2/tickets" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decoding payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"ticket": map[string]any{"id": 555, "subject": got.Subject, "status": 2}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 2)
	ticket, err := c.CreateTicket(context.Background(), "Email down", "Cannot log in", "jane@company.com", 3)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if ticket.ID != 555 {
		t.Errorf("ticket.ID = %d", ticket.ID)
	}
	if got.Status != 2 || got.WorkspaceID != 2 || got.Priority != 3 {
		t.Errorf("payload = %+v", got)
	}
	if got.Email != "jane@company.com" {
		t.Errorf("payload email = %q", got.Email)
	}
}

func TestListTicketsByRequester(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("email"); got != "jane@company.com" {
			t.Errorf("email = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"tickets": []map[string]any{
				{"id": 1, "subject": "a", "status": 2},
				{"id": 2, "subject": "b", "status": 5},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 2)
	tickets, err := c.ListTicketsByRequester(context.Background(), "jane@company.com")
	if err != nil {
		t.Fatalf("ListTicketsByRequester: %v", err)
	}
	if len(tickets) != 2 {
		t.Errorf("len = %d", len(tickets))
	}
}

func TestUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 2)
	if _, err := c.ListTicketsByRequester(context.Background(), "x@y.z"); err == nil {
		t.Error("expected error on 500")
	}
	if _, err := c.GetAgent(context.Background(), 7); err == nil {
		t.Error("expected error on 500")
	}
}
