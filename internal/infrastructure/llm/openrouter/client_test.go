package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hasanyone/noveltycheck/internal/core/domain"
)

func chatReply(content string) string {
	payload, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(payload)
}

func TestJudgeSendsModelAndPrompt(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(chatReply("ANSWER: NO\nEXPLANATION: nothing similar found")))
	}))
	defer server.Close()

	client := New(server.URL, "test-key", 512, nil, nil, nil)
	papers := []domain.Paper{{Title: "Prior Art", URL: "https://example.org/p1", Summary: "close topic"}}
	judgment, err := client.Judge(context.Background(), "openai/gpt-4o", "Has anyone built X?", papers)
	if err != nil {
		t.Fatalf("Judge() error = %v", err)
	}

	if captured.Model != "openai/gpt-4o" {
		t.Fatalf("expected model in request, got %q", captured.Model)
	}
	if captured.MaxTokens != 512 {
		t.Fatalf("expected max_tokens 512, got %d", captured.MaxTokens)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Role != "user" {
		t.Fatalf("expected single user message, got %+v", captured.Messages)
	}
	prompt := captured.Messages[0].Content
	if !strings.Contains(prompt, "Has anyone built X?") || !strings.Contains(prompt, "Prior Art") {
		t.Fatalf("prompt missing question or paper: %s", prompt)
	}
	if judgment.Novelty != "NO" {
		t.Fatalf("expected NO verdict, got %q", judgment.Novelty)
	}
	if judgment.Explanation != "nothing similar found" {
		t.Fatalf("unexpected explanation %q", judgment.Explanation)
	}
}

func TestJudgeParsesYesVerdictCaseInsensitively(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatReply("answer: yes\nEXPLANATION: see [1]")))
	}))
	defer server.Close()

	client := New(server.URL, "test-key", 0, nil, nil, nil)
	judgment, err := client.Judge(context.Background(), "m", "q", nil)
	if err != nil {
		t.Fatalf("Judge() error = %v", err)
	}
	if judgment.Novelty != "YES" {
		t.Fatalf("expected YES verdict, got %q", judgment.Novelty)
	}
}

func TestJudgeFallsBackToFullTextWithoutExplanationMarker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatReply("ANSWER: NO, this appears novel.")))
	}))
	defer server.Close()

	client := New(server.URL, "test-key", 0, nil, nil, nil)
	judgment, err := client.Judge(context.Background(), "m", "q", nil)
	if err != nil {
		t.Fatalf("Judge() error = %v", err)
	}
	if judgment.Explanation != "ANSWER: NO, this appears novel." {
		t.Fatalf("expected full text fallback, got %q", judgment.Explanation)
	}
}

func TestJudgeRejectsEmptyModel(t *testing.T) {
	client := New("http://unused", "test-key", 0, nil, nil, nil)
	_, err := client.Judge(context.Background(), " ", "q", nil)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestJudgeFailsOnEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "test-key", 0, nil, nil, nil)
	_, err := client.Judge(context.Background(), "m", "q", nil)
	if err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Fatalf("expected no-choices error, got %v", err)
	}
}

func TestJudgeMarksRateLimitTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(server.URL, "test-key", 0, nil, nil, nil)
	_, err := client.Judge(context.Background(), "m", "q", nil)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}
