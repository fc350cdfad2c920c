// Package openrouter implements the model call primitive: send a prompt to a
// single model via an OpenRouter-compatible chat-completions API and receive
// text or a failure. Retries are deliberately absent at this layer; callers
// drop failed calls and proceed with survivors.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Iron-Ham/quorum/internal/errors"
	"golang.org/x/sync/errgroup"
)

// Message is a single chat message sent to a model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response is the content a model returned for one call.
type Response struct {
	Content string
}

// Result pairs a model identifier with the outcome of its call. Err is nil
// on success. Results preserve the order calls were issued, not the order
// they completed.
type Result struct {
	Model    string
	Response *Response
	Err      error
}

// Caller is the call primitive consumed by the council stages. It exists so
// the pipeline can be exercised against fakes in tests.
type Caller interface {
	// QueryModel sends messages to a single model and returns its response.
	QueryModel(ctx context.Context, model string, messages []Message) (*Response, error)

	// QueryModelsParallel sends the same messages to every model
	// concurrently and waits for all calls to settle. The returned slice
	// has one entry per input model, in input order.
	QueryModelsParallel(ctx context.Context, models []string, messages []Message) []Result
}

// Client calls an OpenRouter-compatible chat-completions endpoint.
type Client struct {
	apiURL     string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a Client. timeout bounds each individual model call.
func NewClient(apiURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		apiURL:  apiURL,
		apiKey:  apiKey,
		timeout: timeout,
		// The per-call bound is enforced through the request context so
		// concurrent calls time out independently.
		httpClient: &http.Client{},
	}
}

// chatRequest is the wire payload for a chat-completions call.
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// chatResponse is the subset of the chat-completions response we consume.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// QueryModel sends messages to a single model. A non-2xx status, a transport
// error, a malformed payload, or an exceeded timeout all surface as errors.
func (c *Client) QueryModel(ctx context.Context, model string, messages []Message) (*Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{Model: model, Messages: messages})
	if err != nil {
		return nil, errors.NewModelCallError("encoding request", err).WithModel(model)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewModelCallError("building request", err).WithModel(model)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, errors.NewTimeoutError(fmt.Sprintf("model call to %s", model), c.timeout)
		}
		return nil, errors.NewModelCallError("request failed", err).WithModel(model)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewModelCallError("non-success status", errors.ErrModelCallFailed).
			WithModel(model).
			WithStatusCode(resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewModelCallError("reading response", err).WithModel(model)
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, errors.NewModelCallError("decoding response", err).WithModel(model)
	}
	if len(decoded.Choices) == 0 {
		return nil, errors.NewModelCallError("no choices in response", errors.ErrEmptyResponse).WithModel(model)
	}

	return &Response{Content: decoded.Choices[0].Message.Content}, nil
}

// QueryModelsParallel fans the same messages out to every model concurrently
// and waits for all calls to settle. Each call writes into its own result
// slot, so the merge after the barrier needs no locking and survivor order
// matches the input model order. Individual failures are recorded in the
// corresponding slot, never returned as a group error.
func (c *Client) QueryModelsParallel(ctx context.Context, models []string, messages []Message) []Result {
	results := make([]Result, len(models))

	var g errgroup.Group
	for i, model := range models {
		g.Go(func() error {
			resp, err := c.QueryModel(ctx, model, messages)
			results[i] = Result{Model: model, Response: resp, Err: err}
			return nil
		})
	}
	// Workers always return nil; Wait is purely the settle barrier.
	_ = g.Wait()

	return results
}

// TestConnection performs a lightweight connectivity check against the models
// listing endpoint derived from the chat-completions URL. It returns the
// number of models the endpoint advertises.
func TestConnection(ctx context.Context, apiURL, apiKey string) (int, error) {
	if apiKey == "" {
		return 0, errors.ErrMissingAPIKey
	}

	modelsURL := strings.TrimSuffix(strings.TrimRight(apiURL, "/"), "/chat/completions")
	modelsURL = strings.TrimRight(modelsURL, "/") + "/models"

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, modelsURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, errors.NewModelCallError("models endpoint returned non-success status", errors.ErrModelCallFailed).
			WithStatusCode(resp.StatusCode)
	}

	var payload struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}
	return len(payload.Data), nil
}
