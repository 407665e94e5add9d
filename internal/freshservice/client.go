// Package freshservice is a typed client for the FreshService ticketing
// system: knowledge-base search, ticket listing and lookup, conversations,
// agent lookup, and ticket creation. Failures surface as errors at this
// layer; the orchestrator decides how to fall back.
package freshservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when the ticketing system has no such record.
var ErrNotFound = errors.New("not found")

// statusLabels maps FreshService ticket status codes to display labels.
var statusLabels = map[int]string{
	2: "Open",
	3: "Pending",
	4: "Resolved",
	5: "Closed",
	6: "Waiting on customer",
	7: "Waiting on third party",
}

// StatusLabel renders a ticket status code; unmapped codes are "Unknown".
func StatusLabel(code int) string {
	if label, ok := statusLabels[code]; ok {
		return label
	}
	return "Unknown"
}

// Article is a knowledge-base article hit.
type Article struct {
	Title   string
	Content string
}

// Ticket is the subset of ticket fields the assistant uses.
type Ticket struct {
	ID          int64  `json:"id"`
	Subject     string `json:"subject"`
	Description string `json:"description_text,omitempty"`
	Status      int    `json:"status"`
	Priority    int    `json:"priority"`
	ResponderID *int64 `json:"responder_id"`
}

// Conversation is one entry in a ticket's conversation log.
type Conversation struct {
	UserID   *int64 `json:"user_id"`
	BodyText string `json:"body_text"`
}

// Agent is a support agent profile.
type Agent struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// Client talks to the FreshService v2 API with API-key basic auth.
type Client struct {
	baseURL     string
	apiKey      string
	workspaceID int64
	httpClient  *http.Client
}

// NewClient creates a FreshService client for the given instance base URL.
func NewClient(baseURL, apiKey string, workspaceID int64) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		workspaceID: workspaceID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// do performs an authenticated request and decodes the JSON response into
// out. A 404 maps to ErrNotFound; any other non-2xx status is an error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, "X")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("freshservice request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("freshservice %s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

type searchResponse struct {
	Articles []struct {
		Title           string `json:"title"`
		DescriptionText string `json:"description_text"`
	} `json:"articles"`
}

// SearchArticles searches the knowledge base, returning at most the top 5
// hits. No results is an empty slice, not an error.
func (c *Client) SearchArticles(ctx context.Context, term string) ([]Article, error) {
	var result searchResponse
	path := "/api/v2/solutions/articles/search?search_term=" + url.QueryEscape(term)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("searching articles: %w", err)
	}

	articles := make([]Article, 0, 5)
	for _, a := range result.Articles {
		if len(articles) == 5 {
			break
		}
		title := a.Title
		if title == "" {
			title = "No Title"
		}
		content := strings.TrimSpace(a.DescriptionText)
		if content == "" {
			content = "No description available"
		}
		articles = append(articles, Article{Title: title, Content: content})
	}
	return articles, nil
}

// ListTicketsByRequester returns the tickets filed by the given email.
func (c *Client) ListTicketsByRequester(ctx context.Context, email string) ([]Ticket, error) {
	var result struct {
		Tickets []Ticket `json:"tickets"`
	}
	path := "/api/v2/tickets?email=" + url.QueryEscape(email)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}
	return result.Tickets, nil
}

// GetTicket fetches a single ticket by id. Unknown ids yield ErrNotFound.
func (c *Client) GetTicket(ctx context.Context, id string) (Ticket, error) {
	var result struct {
		Ticket Ticket `json:"ticket"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v2/tickets/"+url.PathEscape(id), nil, &result); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Ticket{}, err
		}
		return Ticket{}, fmt.Errorf("fetching ticket %s: %w", id, err)
	}
	return result.Ticket, nil
}

// GetConversations fetches the conversation log for a ticket.
func (c *Client) GetConversations(ctx context.Context, ticketID string) ([]Conversation, error) {
	var result struct {
		Conversations []Conversation `json:"conversations"`
	}
	path := "/api/v2/tickets/" + url.PathEscape(ticketID) + "/conversations"
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("fetching conversations for ticket %s: %w", ticketID, err)
	}
	return result.Conversations, nil
}

// GetAgent fetches an agent profile by id.
func (c *Client) GetAgent(ctx context.Context, agentID int64) (Agent, error) {
	var result struct {
		Agent Agent `json:"agent"`
	}
	path := fmt.Sprintf("/api/v2/agents/%d", agentID)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return Agent{}, fmt.Errorf("fetching agent %d: %w", agentID, err)
	}
	return result.Agent, nil
}

type createTicketRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Email       string `json:"email"`
	Priority    int    `json:"priority"`
	Status      int    `json:"status"`
	WorkspaceID int64  `json:"workspace_id,omitempty"`
}

// CreateTicket submits a new ticket on behalf of the requester email.
// Tickets always open in status Open.
func (c *Client) CreateTicket(ctx context.Context, subject, description, requesterEmail string, priority int) (Ticket, error) {
	body := createTicketRequest{
		Subject:     subject,
		Description: description,
		Email:       requesterEmail,
		Priority:    priority,
		Status:      2,
		WorkspaceID: c.workspaceID,
	}

	var result struct {
		Ticket Ticket `json:"ticket"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v2/tickets", body, &result); err != nil {
		return Ticket{}, fmt.Errorf("creating ticket: %w", err)
	}
	return result.Ticket, nil
}
