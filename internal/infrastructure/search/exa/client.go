package exa

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hasanyone/noveltycheck/internal/core/domain"
	"github.com/hasanyone/noveltycheck/internal/core/ports"
	"github.com/hasanyone/noveltycheck/internal/infrastructure/resilience"
)

const paperCategory = "research paper"

// Client searches Exa for academic papers. Hybrid search splits the result
// budget between a neural and a keyword query; the neural share is rounded
// up, so a positive ratio always yields at least one neural result.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func New(baseURL, apiKey string, executor *resilience.Executor, limiter *rate.Limiter, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
		limiter:    limiter,
		logger:     logger,
	}
}

type searchRequest struct {
	Query         string         `json:"query"`
	Type          string         `json:"type"`
	NumResults    int            `json:"numResults"`
	Category      string         `json:"category"`
	UseAutoprompt bool           `json:"useAutoprompt"`
	Contents      searchContents `json:"contents"`
}

type searchContents struct {
	Summary bool `json:"summary"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	PublishedDate string `json:"publishedDate"`
	Summary       string `json:"summary"`
}

func (c *Client) SearchPapers(ctx context.Context, query string, params ports.SearchParams) ([]domain.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query is empty: %w", domain.ErrInvalidInput)
	}

	if !params.Hybrid {
		return c.search(ctx, query, "auto", params.MaxResults)
	}

	neuralCount := int(math.Ceil(float64(params.MaxResults) * params.NeuralRatio))
	if neuralCount > params.MaxResults {
		neuralCount = params.MaxResults
	}
	keywordCount := params.MaxResults - neuralCount

	c.logger.Info("hybrid_search",
		"neural_count", neuralCount,
		"keyword_count", keywordCount,
	)

	papers := make([]domain.Paper, 0, params.MaxResults)
	if neuralCount > 0 {
		neural, err := c.search(ctx, query, "neural", neuralCount)
		if err != nil {
			return nil, err
		}
		papers = append(papers, neural...)
	}
	if keywordCount > 0 {
		keyword, err := c.search(ctx, query, "keyword", keywordCount)
		if err != nil {
			return nil, err
		}
		papers = append(papers, keyword...)
	}
	return papers, nil
}

func (c *Client) search(ctx context.Context, query, searchType string, numResults int) ([]domain.Paper, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("search rate limit: %w", err)
		}
	}

	request := searchRequest{
		Query:         query,
		Type:          searchType,
		NumResults:    numResults,
		Category:      paperCategory,
		UseAutoprompt: true,
		Contents:      searchContents{Summary: true},
	}

	var response searchResponse
	operation := "exa_search_" + searchType
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/search", request, &response, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, call, classifySearchError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded(operation, err)
	}

	papers := make([]domain.Paper, 0, len(response.Results))
	for _, result := range response.Results {
		papers = append(papers, domain.Paper{
			ID:            result.ID,
			URL:           result.URL,
			Title:         result.Title,
			Author:        result.Author,
			PublishedDate: result.PublishedDate,
			Summary:       result.Summary,
		})
	}
	return papers, nil
}
