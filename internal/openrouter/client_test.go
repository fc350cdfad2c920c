package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Iron-Ham/quorum/internal/errors"
)

func chatHandler(t *testing.T, reply func(model string) (int, string)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		status, content := reply(req.Model)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestQueryModel(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		chatHandler(t, func(model string) (int, string) {
			return http.StatusOK, "hello from " + model
		})(w, r)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk-test", 5*time.Second)
	resp, err := client.QueryModel(context.Background(), "m1", []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("QueryModel failed: %v", err)
	}
	if resp.Content != "hello from m1" {
		t.Errorf("Content = %q, want %q", resp.Content, "hello from m1")
	}
	if gotAuth.Load() != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth.Load())
	}
}

func TestQueryModel_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(chatHandler(t, func(string) (int, string) {
		return http.StatusBadGateway, ""
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk-test", 5*time.Second)
	_, err := client.QueryModel(context.Background(), "m1", nil)
	if err == nil {
		t.Fatal("expected error for non-success status")
	}

	var callErr *errors.ModelCallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *ModelCallError, got %T", err)
	}
	if callErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", callErr.StatusCode)
	}
}

func TestQueryModel_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk-test", 5*time.Second)
	if _, err := client.QueryModel(context.Background(), "m1", nil); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestQueryModel_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk-test", 5*time.Second)
	_, err := client.QueryModel(context.Background(), "m1", nil)
	if !errors.Is(err, errors.ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestQueryModel_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk-test", 20*time.Millisecond)
	_, err := client.QueryModel(context.Background(), "m1", nil)
	if !errors.Is(err, errors.ErrTimeout) {
		t.Errorf("expected timeout error, got %v", err)
	}
}

func TestQueryModelsParallel_PreservesOrderAndRecordsFailures(t *testing.T) {
	srv := httptest.NewServer(chatHandler(t, func(model string) (int, string) {
		if model == "m2" {
			return http.StatusInternalServerError, ""
		}
		return http.StatusOK, "resp-" + model
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk-test", 5*time.Second)
	results := client.QueryModelsParallel(context.Background(), []string{"m1", "m2", "m3"}, nil)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	wantModels := []string{"m1", "m2", "m3"}
	for i, want := range wantModels {
		if results[i].Model != want {
			t.Errorf("results[%d].Model = %q, want %q", i, results[i].Model, want)
		}
	}
	if results[0].Err != nil || results[0].Response.Content != "resp-m1" {
		t.Errorf("results[0] = %+v, want success resp-m1", results[0])
	}
	if results[1].Err == nil {
		t.Error("results[1] should carry the failure")
	}
	if results[2].Err != nil || results[2].Response.Content != "resp-m3" {
		t.Errorf("results[2] = %+v, want success resp-m3", results[2])
	}
}

func TestQueryModelsParallel_DuplicateModelsAreIndependentCalls(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		chatHandler(t, func(model string) (int, string) {
			return http.StatusOK, "ok"
		})(w, r)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk-test", 5*time.Second)
	results := client.QueryModelsParallel(context.Background(), []string{"m1", "m1"}, nil)

	if calls.Load() != 2 {
		t.Errorf("expected 2 upstream calls, got %d", calls.Load())
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestTestConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{},{},{}]}`))
	}))
	defer srv.Close()

	count, err := TestConnection(context.Background(), srv.URL+"/chat/completions", "sk-test")
	if err != nil {
		t.Fatalf("TestConnection failed: %v", err)
	}
	if count != 3 {
		t.Errorf("model count = %d, want 3", count)
	}
}

func TestTestConnection_MissingKey(t *testing.T) {
	_, err := TestConnection(context.Background(), "https://example.com/api/v1/chat/completions", "")
	if !errors.Is(err, errors.ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}
