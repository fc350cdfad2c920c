package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Iron-Ham/quorum/internal/council"
	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/settings"
)

// Conversation is the client-side view of a stored conversation.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}

// Message is one conversation entry as the API returns it. Stage detail is
// omitted; the synthesis text rides in Content for assistant messages.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationSummary is one row of the conversation listing.
type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
}

// MessageResult is the synchronous message response.
type MessageResult struct {
	Result council.Result `json:"result"`
	Title  string         `json:"title"`
}

// TestResult is the settings connectivity check response.
type TestResult struct {
	OK         bool   `json:"ok"`
	ModelCount int    `json:"model_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Client talks to the council API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the API at baseURL. The zero timeout on the
// underlying HTTP client is deliberate: message runs and streams are bounded
// by their contexts, not a flat client-wide deadline.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// CreateConversation makes a new empty conversation.
func (c *Client) CreateConversation(ctx context.Context, title string) (*Conversation, error) {
	var conv Conversation
	err := c.do(ctx, http.MethodPost, "/api/conversations", map[string]string{"title": title}, &conv)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversations returns all conversations, newest first.
func (c *Client) ListConversations(ctx context.Context) ([]ConversationSummary, error) {
	var out []ConversationSummary
	if err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetConversation loads one conversation with its messages.
func (c *Client) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	if err := c.do(ctx, http.MethodGet, "/api/conversations/"+id, nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// DeleteConversation removes a conversation.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/conversations/"+id, nil, nil)
}

// SendMessage runs the pipeline synchronously and returns the full result.
func (c *Client) SendMessage(ctx context.Context, conversationID, content string) (*MessageResult, error) {
	var out MessageResult
	path := fmt.Sprintf("/api/conversations/%s/message", conversationID)
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"content": content}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSettings returns the stored settings with the API key redacted.
func (c *Client) GetSettings(ctx context.Context) (*settings.Settings, error) {
	var out settings.Settings
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSettings applies a partial settings patch.
func (c *Client) UpdateSettings(ctx context.Context, patch settings.Patch) (*settings.Settings, error) {
	var out settings.Settings
	if err := c.do(ctx, http.MethodPost, "/api/settings", patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TestSettings checks connectivity with the stored (or overridden)
// credentials.
func (c *Client) TestSettings(ctx context.Context, patch settings.Patch) (*TestResult, error) {
	body := map[string]string{}
	if patch.OpenRouterAPIKey != nil {
		body["openrouter_api_key"] = *patch.OpenRouterAPIKey
	}
	if patch.OpenRouterAPIURL != nil {
		body["openrouter_api_url"] = *patch.OpenRouterAPIURL
	}
	var out TestResult
	if err := c.do(ctx, http.MethodPost, "/api/settings/test", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OpenStream starts a streamed pipeline run and returns the frame transport.
// It satisfies StreamOpener.
func (c *Client) OpenStream(ctx context.Context, conversationID, content string) (io.ReadCloser, error) {
	path := fmt.Sprintf("/api/conversations/%s/message/stream", conversationID)
	req, err := c.newRequest(ctx, http.MethodPost, path, map[string]string{"content": content})
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewStreamError("opening stream", err).WithRetryable(true)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		// The server rejected the run outright; retrying the same request
		// cannot succeed.
		return nil, errors.NewStreamError("stream rejected", apiError(resp)).WithRetryable(false)
	}
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// apiError turns a non-success response into an error carrying the server's
// message when one was sent.
func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		if resp.StatusCode == http.StatusNotFound {
			return errors.NewNotFoundError("conversation", "")
		}
		return fmt.Errorf("api: %s (status %d)", body.Error, resp.StatusCode)
	}
	return fmt.Errorf("api: unexpected status %d", resp.StatusCode)
}
