package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/quorum/internal/config"
	"github.com/Iron-Ham/quorum/internal/event"
	"github.com/Iron-Ham/quorum/internal/openrouter"
	"github.com/Iron-Ham/quorum/internal/settings"
	"github.com/Iron-Ham/quorum/internal/storage"
	"github.com/Iron-Ham/quorum/internal/stream"
)

// scriptedCaller answers every stage with canned text so handler tests never
// touch the network.
type scriptedCaller struct {
	answer    string
	ranking   string
	synthesis string
}

func (f *scriptedCaller) QueryModel(ctx context.Context, model string, messages []openrouter.Message) (*openrouter.Response, error) {
	return &openrouter.Response{Content: f.synthesis}, nil
}

func (f *scriptedCaller) QueryModelsParallel(ctx context.Context, models []string, messages []openrouter.Message) []openrouter.Result {
	results := make([]openrouter.Result, len(models))
	reply := f.answer
	// Stage 2 prompts embed the ranking marker instruction; reply with a
	// ranking when asked to rank.
	if len(messages) > 0 && bytes.Contains([]byte(messages[0].Content), []byte("FINAL RANKING:")) {
		reply = f.ranking
	}
	for i, model := range models {
		results[i] = openrouter.Result{Model: model, Response: &openrouter.Response{Content: reply}}
	}
	return results
}

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()

	cfg := *config.Default()
	cfg.Storage.DataDir = t.TempDir()
	cfg.OpenRouter.APIKey = apiKey
	cfg.Council.Models = []string{"m1", "m2"}
	cfg.Council.Chairman = "chair"

	store := storage.NewStore(cfg.Storage.DataDir, nil)
	settingsStore := settings.NewStore(cfg, nil)

	caller := &scriptedCaller{
		answer:    "an answer",
		ranking:   "FINAL RANKING:\n1. Response A\n2. Response B",
		synthesis: "the synthesis",
	}
	return New(cfg, store, settingsStore, nil, WithCallerFactory(
		func(apiURL, key string, timeout time.Duration) openrouter.Caller {
			return caller
		}))
}

func postJSON(t *testing.T, s *Server, path string, body any) (int, []byte) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func createConversation(t *testing.T, s *Server) string {
	t.Helper()
	code, body := postJSON(t, s, "/api/conversations", map[string]string{})
	require.Equal(t, 201, code)

	var conv storage.Conversation
	require.NoError(t, json.Unmarshal(body, &conv))
	require.NotEmpty(t, conv.ID)
	return conv.ID
}

func TestRootEndpoint(t *testing.T) {
	s := newTestServer(t, "key")

	req := httptest.NewRequest("GET", "/", nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestSettingsRedactedOnRead(t *testing.T) {
	s := newTestServer(t, "sk-or-v1-secret99")

	req := httptest.NewRequest("GET", "/api/settings", nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var got settings.Settings
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.NotContains(t, got.OpenRouterAPIKey, "secret")
	assert.Contains(t, got.OpenRouterAPIKey, "*")
}

func TestUpdateSettingsPatch(t *testing.T) {
	s := newTestServer(t, "key")

	code, body := postJSON(t, s, "/api/settings", map[string]any{
		"chairman_model": "new/chair",
	})
	require.Equal(t, 200, code)

	var got settings.Settings
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "new/chair", got.ChairmanModel)
	// Unpatched fields survive.
	assert.NotEmpty(t, got.CouncilModels)
}

func TestConversationLifecycle(t *testing.T) {
	s := newTestServer(t, "key")
	id := createConversation(t, s)

	req := httptest.NewRequest("GET", "/api/conversations/"+id, nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	req = httptest.NewRequest("DELETE", "/api/conversations/"+id, nil)
	resp, err = s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	req = httptest.NewRequest("GET", "/api/conversations/"+id, nil)
	resp, err = s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestMessageRequiresAPIKey(t *testing.T) {
	s := newTestServer(t, "")
	id := createConversation(t, s)

	code, _ := postJSON(t, s, fmt.Sprintf("/api/conversations/%s/message", id), map[string]string{"content": "hello"})
	assert.Equal(t, 400, code)
}

func TestMessageRequiresCouncilRoster(t *testing.T) {
	cfg := *config.Default()
	cfg.Storage.DataDir = t.TempDir()
	cfg.OpenRouter.APIKey = "key"
	cfg.Council.Models = nil

	store := storage.NewStore(cfg.Storage.DataDir, nil)
	s := New(cfg, store, settings.NewStore(cfg, nil), nil)
	id := createConversation(t, s)

	code, raw := postJSON(t, s, fmt.Sprintf("/api/conversations/%s/message", id), map[string]string{"content": "hello"})
	assert.Equal(t, 400, code)
	assert.Contains(t, string(raw), "no council models configured")
}

func TestMessageRequiresContent(t *testing.T) {
	s := newTestServer(t, "key")
	id := createConversation(t, s)

	code, _ := postJSON(t, s, fmt.Sprintf("/api/conversations/%s/message", id), map[string]string{})
	assert.Equal(t, 400, code)
}

func TestMessageUnknownConversation(t *testing.T) {
	s := newTestServer(t, "key")

	code, _ := postJSON(t, s, "/api/conversations/nope/message", map[string]string{"content": "hello"})
	assert.Equal(t, 404, code)
}

func TestMessageFlowPersistsRun(t *testing.T) {
	s := newTestServer(t, "key")
	id := createConversation(t, s)

	code, raw := postJSON(t, s, fmt.Sprintf("/api/conversations/%s/message", id), map[string]string{"content": "hello"})
	require.Equal(t, 200, code)

	var body struct {
		Result struct {
			Synthesis struct {
				Response string `json:"response"`
			} `json:"synthesis"`
		} `json:"result"`
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "the synthesis", body.Result.Synthesis.Response)
	assert.NotEmpty(t, body.Title)

	// The conversation now holds the user message and the assistant record.
	req := httptest.NewRequest("GET", "/api/conversations/"+id, nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	var conv storage.Conversation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&conv))
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, storage.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, storage.RoleAssistant, conv.Messages[1].Role)
}

func TestMessageStreamEmitsOrderedFrames(t *testing.T) {
	s := newTestServer(t, "key")
	id := createConversation(t, s)

	data, err := json.Marshal(map[string]string{"content": "hello"})
	require.NoError(t, err)
	req := httptest.NewRequest("POST", fmt.Sprintf("/api/conversations/%s/message/stream", id), bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	var kinds []stream.Kind
	reader := stream.NewFrameReader(resp.Body)
	for {
		ev, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		kinds = append(kinds, ev.Type)
	}

	want := []stream.Kind{
		stream.KindStage1Start, stream.KindStage1Complete,
		stream.KindStage2Start, stream.KindStage2Complete,
		stream.KindStage3Start, stream.KindStage3Complete,
		stream.KindTitleComplete, stream.KindComplete,
	}
	assert.Equal(t, want, kinds)
}

func TestMessageStreamPublishesStageCompletions(t *testing.T) {
	s := newTestServer(t, "key")
	id := createConversation(t, s)

	var mu sync.Mutex
	var completed []event.StageCompletedEvent
	s.Bus().Subscribe("pipeline.stage_completed", func(ev event.Event) {
		mu.Lock()
		completed = append(completed, ev.(event.StageCompletedEvent))
		mu.Unlock()
	})

	data, err := json.Marshal(map[string]string{"content": "hello"})
	require.NoError(t, err)
	req := httptest.NewRequest("POST", fmt.Sprintf("/api/conversations/%s/message/stream", id), bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(t, err)
	_, err = io.ReadAll(resp.Body)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, completed, 3)
	assert.Equal(t, "stage1", completed[0].Stage)
	assert.Equal(t, "stage2", completed[1].Stage)
	assert.Equal(t, "stage3", completed[2].Stage)
	assert.Equal(t, 2, completed[0].Results)
	assert.Equal(t, 1, completed[2].Results)
	for _, ev := range completed {
		assert.Equal(t, id, ev.ConversationID)
	}
}
