package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func chatServer(t *testing.T, handle func(req ChatRequest) (int, any)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected Authorization %q", got)
		}
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		status, body := handle(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func reply(text string) ChatResponse {
	msg := TextMessage(RoleAssistant, text)
	return ChatResponse{Model: "test-model", Choices: []Choice{{Message: &msg, FinishReason: "stop"}}}
}

func newTestClient(server *httptest.Server) *Client {
	return NewClient("test-key",
		WithBaseURL(server.URL+"/"),
		WithModel("test-model"),
		WithDoer(server.Client()))
}

func TestChatCompletion(t *testing.T) {
	server := chatServer(t, func(req ChatRequest) (int, any) {
		if req.Model != "test-model" {
			t.Errorf("Expected model test-model, got %s", req.Model)
		}
		if req.Stream {
			t.Error("Expected non-streaming request")
		}
		return http.StatusOK, reply("hi there")
	})

	resp, err := newTestClient(server).ChatCompletion(context.Background(), []Message{TextMessage(RoleUser, "hi")})
	if err != nil {
		t.Fatalf("ChatCompletion failed: %v", err)
	}
	if got := resp.Choices[0].Message.Text(); got != "hi there" {
		t.Errorf("Expected reply 'hi there', got %q", got)
	}
}

func TestChatCompletionAPIError(t *testing.T) {
	server := chatServer(t, func(ChatRequest) (int, any) {
		return http.StatusUnauthorized, map[string]any{
			"error": map[string]any{"message": "invalid api key", "type": "auth"},
		}
	})

	_, err := newTestClient(server).ChatCompletion(context.Background(), nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "invalid api key" {
		t.Errorf("Expected message from error body, got %q", apiErr.Message)
	}
}

func TestChatCompletionContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := newTestClient(server).ChatCompletion(ctx, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("k", WithModel(""), WithBaseURL(""))
	if c.Model() != DefaultModel {
		t.Errorf("Expected default model, got %s", c.Model())
	}
	if c.baseURL != DefaultBaseURL {
		t.Errorf("Expected default base URL, got %s", c.baseURL)
	}
	if c.doer == nil {
		t.Error("Expected retrying doer")
	}
}

func TestMessageText(t *testing.T) {
	if got := TextMessage(RoleUser, "a \"quoted\" line").Text(); got != "a \"quoted\" line" {
		t.Errorf("Unexpected text %q", got)
	}
	raw := Message{Role: RoleAssistant, Content: json.RawMessage(`null`)}
	if got := raw.Text(); got != "" {
		t.Errorf("Expected empty text for null content, got %q", got)
	}
}
