package classify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"alertiq/internal/mail"
	"alertiq/internal/shared/retry"
)

func testEmail() mail.EmailData {
	return mail.EmailData{
		MessageID:    "msg-1",
		Subject:      "ALERT: job failed",
		Sender:       "monitor@example.com",
		Body:         "Connection timed out after 30s",
		ReceivedDate: time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC),
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*GeminiClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewGeminiClient("test-key", "gemini-pro", retry.Policy{Attempts: 1, Delay: time.Millisecond})
	if err != nil {
		t.Fatalf("NewGeminiClient() error: %v", err)
	}
	client.baseURL = srv.URL
	return client, srv
}

func geminiReply(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	}
}

func TestGeminiAnalyze(t *testing.T) {
	var gotPrompt string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if len(req.Contents) == 1 && len(req.Contents[0].Parts) == 1 {
			gotPrompt = req.Contents[0].Parts[0].Text
		}
		json.NewEncoder(w).Encode(geminiReply(`{"action": "Re-hit", "reason": "timeout is transient", "confidence": 0.9}`))
	})

	analysis, err := client.Analyze(context.Background(), testEmail())
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if analysis.Action != ActionRehit {
		t.Fatalf("Analyze() action = %q, want %q", analysis.Action, ActionRehit)
	}
	if analysis.Confidence != 0.9 {
		t.Fatalf("Analyze() confidence = %v, want 0.9", analysis.Confidence)
	}
	if !strings.Contains(gotPrompt, "ALERT: job failed") {
		t.Fatalf("prompt does not include the alert subject:\n%s", gotPrompt)
	}
	if !strings.Contains(gotPrompt, "Connection timed out after 30s") {
		t.Fatalf("prompt does not include the alert body:\n%s", gotPrompt)
	}
}

func TestGeminiAnalyzeUnparseableVerdict(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(geminiReply("I could not decide what to do with this alert."))
	})

	if _, err := client.Analyze(context.Background(), testEmail()); err == nil {
		t.Fatal("Analyze() succeeded on a verdict with no JSON object")
	}
}

func TestGeminiAnalyzeAPIError(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 503, "message": "overloaded", "status": "UNAVAILABLE"},
		})
	})
	client.retry = retry.Policy{Attempts: 2, Delay: time.Millisecond}

	if _, err := client.Analyze(context.Background(), testEmail()); err == nil {
		t.Fatal("Analyze() succeeded against a failing API")
	}
	if calls != 2 {
		t.Fatalf("API called %d times, want 2 (transport failures retry)", calls)
	}
}

func TestGeminiPing(t *testing.T) {
	client, err := NewGeminiClient("test-key", "", retry.Policy{Attempts: 1})
	if err != nil {
		t.Fatalf("NewGeminiClient() error: %v", err)
	}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}

	if _, err := NewGeminiClient("", "gemini-pro", retry.Policy{Attempts: 1}); err == nil {
		t.Fatal("NewGeminiClient() accepted an empty API key")
	}
}
