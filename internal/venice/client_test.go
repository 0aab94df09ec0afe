package venice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"fitagent/internal/config"
)

func testConfig(baseURL string) config.VeniceConfig {
	return config.VeniceConfig{
		BaseURL:        baseURL,
		Model:          "llama-3.1-405b",
		APIKey:         "test-key",
		Temperature:    0.7,
		MaxTokens:      1000,
		TimeoutSeconds: 5,
	}
}

func TestGenerate_Success(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "coaching text"}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	out, err := client.Generate(context.Background(), "be a coach", "hello")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if out != "coaching text" {
		t.Errorf("expected assistant text, got %q", out)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	messages, ok := gotBody["messages"].([]interface{})
	if !ok || len(messages) != 2 {
		t.Fatalf("expected system plus user messages, got %v", gotBody["messages"])
	}
	first := messages[0].(map[string]interface{})
	if first["role"] != "system" || first["content"] != "be a coach" {
		t.Errorf("unexpected system message: %v", first)
	}
	if gotBody["model"] != "llama-3.1-405b" {
		t.Errorf("unexpected model: %v", gotBody["model"])
	}
}

func TestGenerate_OmitsEmptySystemMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		messages := body["messages"].([]interface{})
		if len(messages) != 1 {
			t.Errorf("expected a single user message, got %d", len(messages))
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "ok"}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	if _, err := client.Generate(context.Background(), "", "hello"); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
}

func TestGenerate_MissingAPIKey(t *testing.T) {
	cfg := testConfig("http://unused")
	cfg.APIKey = ""
	client := NewClient(cfg)
	if _, err := client.Generate(context.Background(), "", "hello"); err == nil {
		t.Fatal("expected an error without an API key")
	}
}

func TestGenerate_Non200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	if _, err := client.Generate(context.Background(), "", "hello"); err == nil {
		t.Fatal("expected an error on non-200 status")
	}
}

func TestGenerate_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	if _, err := client.Generate(context.Background(), "", "hello"); err == nil {
		t.Fatal("expected an error on empty choices")
	}
}
