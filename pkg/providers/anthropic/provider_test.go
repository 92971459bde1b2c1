package anthropicprovider

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/tinyland-inc/babelrelay/pkg/translate"
)

func TestBuildParams(t *testing.T) {
	params := buildParams("claude-test", 0.1, "translate to French", "Hello")
	if string(params.Model) != "claude-test" {
		t.Errorf("Model = %q, want %q", params.Model, "claude-test")
	}
	if params.MaxTokens != defaultMaxTokens {
		t.Errorf("MaxTokens = %d, want %d", params.MaxTokens, defaultMaxTokens)
	}
	if len(params.System) != 1 || params.System[0].Text != "translate to French" {
		t.Errorf("System = %+v, want single instruction block", params.System)
	}
	if len(params.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(params.Messages))
	}
}

func TestBuildParams_NoInstruction(t *testing.T) {
	params := buildParams("claude-test", 0, "", "Hello")
	if len(params.System) != 0 {
		t.Errorf("len(System) = %d, want 0", len(params.System))
	}
}

func TestResponseText_Empty(t *testing.T) {
	resp := &anthropic.Message{Content: []anthropic.ContentBlockUnion{}}
	if got := responseText(resp); got != "" {
		t.Errorf("responseText() = %q, want empty", got)
	}
}

func TestProvider_CompleteRoundTrip(t *testing.T) {
	var reqBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&reqBody)

		resp := map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"model":       reqBody["model"],
			"stop_reason": "end_turn",
			"content": []map[string]any{
				{"type": "text", "text": "Bonjour"},
				{"type": "text", "text": " tout le monde"},
			},
			"usage": map[string]any{
				"input_tokens":  15,
				"output_tokens": 8,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider := NewProvider("test-key", server.URL, "claude-test", 0.1)
	out, err := provider.Complete(t.Context(), "translate to French", "Hello everyone")
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if out != "Bonjour tout le monde" {
		t.Errorf("Complete() = %q, want %q", out, "Bonjour tout le monde")
	}
	if reqBody["model"] != "claude-test" {
		t.Errorf("request model = %v, want claude-test", reqBody["model"])
	}
}

func TestProvider_CompleteStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer server.Close()

	provider := NewProvider("test-key", server.URL, "", 0)
	_, err := provider.Complete(t.Context(), "", "Hello")
	if err == nil {
		t.Fatal("Complete() error = nil, want error")
	}
	var pe *translate.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("error %T is not a *translate.ProviderError", err)
	}
	if pe.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", pe.StatusCode)
	}
	if !translate.IsTransient(err) {
		t.Error("429 should be transient")
	}
}

func TestProvider_Defaults(t *testing.T) {
	p := NewProvider("test-key", "", "", 0)
	if got := p.Model(); got != DefaultModel {
		t.Errorf("Model() = %q, want %q", got, DefaultModel)
	}
	if got := p.BaseURL(); got != defaultBaseURL {
		t.Errorf("BaseURL() = %q, want %q", got, defaultBaseURL)
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", defaultBaseURL},
		{"https://api.anthropic.com", "https://api.anthropic.com"},
		{"https://api.anthropic.com/v1", "https://api.anthropic.com"},
		{"https://api.anthropic.com/v1/", "https://api.anthropic.com"},
		{"http://localhost:9000/", "http://localhost:9000"},
		{"/v1", defaultBaseURL},
	}
	for _, tt := range tests {
		if got := normalizeBaseURL(tt.input); got != tt.want {
			t.Errorf("normalizeBaseURL(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
