package openrouter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hasanyone/noveltycheck/internal/core/domain"
	"github.com/hasanyone/noveltycheck/internal/infrastructure/resilience"
)

// Client judges research-question novelty through the OpenRouter
// chat-completions API. The model is chosen per call so one client serves a
// whole parameter sweep.
type Client struct {
	baseURL    string
	apiKey     string
	maxTokens  int
	httpClient *http.Client
	executor   *resilience.Executor
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func New(baseURL, apiKey string, maxTokens int, executor *resilience.Executor, limiter *rate.Limiter, logger *slog.Logger) *Client {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		maxTokens:  maxTokens,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
		limiter:    limiter,
		logger:     logger,
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) Judge(ctx context.Context, model string, question string, papers []domain.Paper) (domain.Judgment, error) {
	if strings.TrimSpace(model) == "" {
		return domain.Judgment{}, fmt.Errorf("judge model is empty: %w", domain.ErrInvalidInput)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.Judgment{}, fmt.Errorf("judge rate limit: %w", err)
		}
	}

	request := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "user", Content: buildJudgePrompt(question, papers)},
		},
		MaxTokens: c.maxTokens,
	}

	var response chatResponse
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/chat/completions", request, &response, "judge")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "openrouter_judge", call, classifyJudgeError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.Judgment{}, wrapTemporaryIfNeeded("openrouter_judge", err)
	}

	if len(response.Choices) == 0 {
		return domain.Judgment{}, fmt.Errorf("judge response has no choices")
	}
	return parseJudgment(response.Choices[0].Message.Content), nil
}
