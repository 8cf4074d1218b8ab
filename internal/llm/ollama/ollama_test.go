package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

// TestNew verifies provider creation with various configurations.
func TestNew(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "valid config with host",
			config: Config{
				Host:      "http://localhost:11434",
				Model:     "medllama2",
				KeepAlive: 5 * time.Minute,
				NumCtx:    4096,
			},
			wantErr: false,
		},
		{
			name: "empty config uses defaults",
			config: Config{
				Host: "http://localhost:11434",
			},
			wantErr: false,
		},
		{
			name: "invalid host URL",
			config: Config{
				Host: "://invalid-url",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := New(tt.config, logger)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && provider == nil {
				t.Error("New() returned nil provider without error")
			}
			if !tt.wantErr {
				// Check defaults were applied
				if provider.Model() == "" {
					t.Error("Model should have default value")
				}
			}
		})
	}
}

// TestNewNilLogger verifies that nil logger is rejected.
func TestNewNilLogger(t *testing.T) {
	_, err := New(Config{Host: "http://localhost:11434"}, nil)
	if err == nil {
		t.Error("New() should reject nil logger")
	}
}

// TestChat verifies the Chat method with a mock Ollama server.
func TestChat(t *testing.T) {
	// Create a mock Ollama server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/chat" {
			// Parse request to echo back the model
			var req map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			// Send mock response
			response := map[string]interface{}{
				"model":             req["model"],
				"message":           map[string]string{"role": "assistant", "content": "Test response"},
				"done":              true,
				"prompt_eval_count": 10,
				"eval_count":        20,
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(response)
		} else {
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	provider, err := New(Config{Host: server.URL, Model: "test-model"}, logger)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	ctx := context.Background()
	messages := []Message{
		{Role: "user", Content: "Hello"},
	}

	resp, err := provider.Chat(ctx, messages, nil)
	if err != nil {
		t.Fatalf("Chat() failed: %v", err)
	}

	if resp.Content != "Test response" {
		t.Errorf("Chat() content = %q, want %q", resp.Content, "Test response")
	}
	if resp.Model != "test-model" {
		t.Errorf("Chat() model = %q, want %q", resp.Model, "test-model")
	}
	if resp.TokensPrompt != 10 {
		t.Errorf("Chat() TokensPrompt = %d, want 10", resp.TokensPrompt)
	}
	if resp.TokensTotal != 30 {
		t.Errorf("Chat() TokensTotal = %d, want 30", resp.TokensTotal)
	}
}

// TestChatEmptyMessages verifies that Chat rejects empty message list.
func TestChatEmptyMessages(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	provider, err := New(Config{Host: "http://localhost:11434"}, logger)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	ctx := context.Background()
	_, err = provider.Chat(ctx, []Message{}, nil)
	if err == nil {
		t.Error("Chat() should reject empty messages")
	}
}

// TestChatStream verifies the ChatStream method with a mock server.
func TestChatStream(t *testing.T) {
	// Create a mock Ollama server that streams responses
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/chat" {
			w.Header().Set("Content-Type", "application/x-ndjson")

			// Send three streaming chunks
			chunks := []map[string]interface{}{
				{"message": map[string]string{"content": "Hello "}, "done": false},
				{"message": map[string]string{"content": "World"}, "done": false},
				{"message": map[string]string{"content": "!"}, "done": true, "prompt_eval_count": 5, "eval_count": 15},
			}

			encoder := json.NewEncoder(w)
			for _, chunk := range chunks {
				if err := encoder.Encode(chunk); err != nil {
					return
				}
				if f, ok := w.(http.Flusher); ok {
					f.Flush()
				}
			}
		}
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	provider, err := New(Config{Host: server.URL, Model: "test-model"}, logger)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	ctx := context.Background()
	messages := []Message{
		{Role: "user", Content: "Hello"},
	}

	stream, err := provider.ChatStream(ctx, messages, nil)
	if err != nil {
		t.Fatalf("ChatStream() failed: %v", err)
	}

	var content strings.Builder
	var doneCount int
	for event := range stream {
		if event.Error != nil {
			t.Fatalf("Stream error: %v", event.Error)
		}
		content.WriteString(event.Content)
		if event.Done {
			doneCount++
		}
	}

	expectedContent := "Hello World!"
	if content.String() != expectedContent {
		t.Errorf("ChatStream() content = %q, want %q", content.String(), expectedContent)
	}
	if doneCount != 1 {
		t.Errorf("ChatStream() done events = %d, want 1", doneCount)
	}
}

// TestChatStreamCancellation verifies that context cancellation stops the stream.
func TestChatStreamCancellation(t *testing.T) {
	// Create a server that would stream forever
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/chat" {
			w.Header().Set("Content-Type", "application/x-ndjson")
			encoder := json.NewEncoder(w)

			// Send chunks until client disconnects
			for i := 0; i < 100; i++ {
				chunk := map[string]interface{}{
					"message": map[string]string{"content": "chunk"},
					"done":    false,
				}
				if err := encoder.Encode(chunk); err != nil {
					return
				}
				if f, ok := w.(http.Flusher); ok {
					f.Flush()
				}
				time.Sleep(10 * time.Millisecond)
			}
		}
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	provider, err := New(Config{Host: server.URL}, logger)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel() // Ensure context is cleaned up

	messages := []Message{{Role: "user", Content: "Hello"}}

	stream, err := provider.ChatStream(ctx, messages, nil)
	if err != nil {
		t.Fatalf("ChatStream() failed: %v", err)
	}

	// Cancel after receiving a few chunks
	eventCount := 0
	for event := range stream {
		eventCount++
		if eventCount == 3 {
			cancel()
		}
		if event.Error != nil {
			// Should get a cancellation error
			if !strings.Contains(event.Error.Error(), "canceled") {
				t.Errorf("Expected cancellation error, got: %v", event.Error)
			}
			break
		}
	}

	if eventCount == 0 {
		t.Error("Should have received at least one event")
	}
}

// TestHeartbeat verifies the Heartbeat method.
func TestHeartbeat(t *testing.T) {
	// Create a mock Ollama server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/version" {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"version": "0.1.0"})
		} else if r.URL.Path == "/" {
			// Ollama's heartbeat endpoint
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Ollama is running"))
		}
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	provider, err := New(Config{Host: server.URL}, logger)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	ctx := context.Background()
	err = provider.Heartbeat(ctx)
	if err != nil {
		t.Errorf("Heartbeat() should succeed, got error: %v", err)
	}
}

// TestModelAvailable verifies the ModelAvailable method.
func TestModelAvailable(t *testing.T) {
	// Create a mock Ollama server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			response := map[string]interface{}{
				"models": []map[string]interface{}{
					{"name": "medllama2:latest", "model": "medllama2:latest"},
					{"name": "llama3.2:latest", "model": "llama3.2"},
				},
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(response)
		}
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	provider, err := New(Config{Host: server.URL}, logger)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	ctx := context.Background()

	tests := []struct {
		model     string
		available bool
	}{
		{"medllama2", true},
		{"medllama2:latest", true},
		{"llama3.2", true},
		{"nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			available, err := provider.ModelAvailable(ctx, tt.model)
			if err != nil {
				t.Fatalf("ModelAvailable() error: %v", err)
			}
			if available != tt.available {
				t.Errorf("ModelAvailable(%q) = %v, want %v", tt.model, available, tt.available)
			}
		})
	}
}

// TestChatWithOptions verifies that ChatOptions and sampling config reach the request.
func TestChatWithOptions(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/chat" {
			var req map[string]interface{}
			json.NewDecoder(r.Body).Decode(&req)
			got = req

			response := map[string]interface{}{
				"model":   req["model"],
				"message": map[string]string{"content": "response"},
				"done":    true,
			}
			json.NewEncoder(w).Encode(response)
		}
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	provider, err := New(Config{
		Host:          server.URL,
		Model:         "default-model",
		KeepAlive:     10 * time.Minute,
		NumCtx:        4096,
		TopK:          40,
		TopP:          0.5,
		RepeatPenalty: 1.25,
	}, logger)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	ctx := context.Background()
	messages := []Message{{Role: "user", Content: "test"}}
	opts := &ChatOptions{
		Model:       "custom-model",
		Temperature: 0.5,
		MaxTokens:   100,
	}

	resp, err := provider.Chat(ctx, messages, opts)
	if err != nil {
		t.Fatalf("Chat() failed: %v", err)
	}

	if resp.Model != "custom-model" {
		t.Errorf("Model override not applied, got %q", resp.Model)
	}

	options, ok := got["options"].(map[string]interface{})
	if !ok {
		t.Fatalf("request has no options: %v", got)
	}
	want := map[string]float64{
		"temperature":    0.5,
		"num_predict":    100,
		"num_ctx":        4096,
		"top_k":          40,
		"top_p":          0.5,
		"repeat_penalty": 1.25,
	}
	for key, v := range want {
		if options[key] != v {
			t.Errorf("option %s = %v, want %v", key, options[key], v)
		}
	}
	if got["keep_alive"] == nil {
		t.Error("keep_alive not sent")
	}
}

// TestChatModelNotFound verifies a 404 from Ollama maps to ErrModelNotFound.
func TestChatModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "model 'medllama2' not found"})
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	provider, err := New(Config{Host: server.URL}, logger)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Chat() error = %v, want ErrModelNotFound", err)
	}
}

// TestChatUnreachable verifies connection failures map to ErrProviderUnavailable.
func TestChatUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	host := server.URL
	server.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	provider, err := New(Config{Host: host}, logger)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("Chat() error = %v, want ErrProviderUnavailable", err)
	}
}

// TestChatEmptyContent verifies an empty completion is returned as-is so the
// caller's parser can degrade it.
func TestChatEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"model":   "medllama2",
			"message": map[string]string{"role": "assistant", "content": "  "},
			"done":    true,
		})
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	provider, err := New(Config{Host: server.URL}, logger)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("Chat() error = %v, want nil", err)
	}
	if resp.Content != "  " {
		t.Errorf("Chat() content = %q, want %q", resp.Content, "  ")
	}
}

// TestChatNoResponseBody verifies a reply without any chat response is
// rejected.
func TestChatNoResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	provider, err := New(Config{Host: server.URL}, logger)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("Chat() error = %v, want ErrInvalidResponse", err)
	}
}
