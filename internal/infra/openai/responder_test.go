package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"voicepi/internal/domain"
	"voicepi/internal/infra/openai"
)

func chatStub(t *testing.T, reply string, capture *map[string]any) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Fatalf("decoding chat request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": reply,
					},
				},
			},
		})
	}
}

func TestResponderReply(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(chatStub(t, "it is noon", &gotBody))
	defer server.Close()

	r, err := openai.NewResponder("test-key", "gpt-4o-mini", "be brief", 100, 0.7,
		openai.WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewResponder: %v", err)
	}

	reply, err := r.Reply(context.Background(), []domain.Turn{
		{Role: domain.RoleUser, Content: "what time is it"},
	})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if reply != "it is noon" {
		t.Errorf("reply: got %q", reply)
	}

	if gotBody["model"] != "gpt-4o-mini" {
		t.Errorf("model: got %v", gotBody["model"])
	}
	messages, _ := gotBody["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages: got %d, want system plus user", len(messages))
	}
	first, _ := messages[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "be brief" {
		t.Errorf("system message: got %v", first)
	}
}

func TestResponderIncludesConversationHistory(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(chatStub(t, "sure", &gotBody))
	defer server.Close()

	r, err := openai.NewResponder("test-key", "gpt-4o-mini", "", 100, 0,
		openai.WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewResponder: %v", err)
	}

	_, err = r.Reply(context.Background(), []domain.Turn{
		{Role: domain.RoleUser, Content: "remember the number 7"},
		{Role: domain.RoleAssistant, Content: "got it"},
		{Role: domain.RoleUser, Content: "what number"},
	})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}

	messages, _ := gotBody["messages"].([]any)
	if len(messages) != 3 {
		t.Fatalf("messages: got %d, want 3", len(messages))
	}
	second, _ := messages[1].(map[string]any)
	if second["role"] != "assistant" {
		t.Errorf("second message role: got %v, want assistant", second["role"])
	}
}

func TestResponderRequiresCredentials(t *testing.T) {
	if _, err := openai.NewResponder("", "gpt-4o-mini", "", 100, 0); err == nil {
		t.Error("NewResponder with empty key: got nil, want error")
	}
	if _, err := openai.NewResponder("key", "", "", 100, 0); err == nil {
		t.Error("NewResponder with empty model: got nil, want error")
	}
}
