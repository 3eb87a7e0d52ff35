package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hasanyone/noveltycheck/internal/core/domain"
)

type checkerFake struct {
	report *domain.NoveltyReport
	err    error
}

func (f *checkerFake) CheckNovelty(_ context.Context, _ string) (*domain.NoveltyReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func TestCheckNoveltyReturnsReport(t *testing.T) {
	router := NewRouter(&checkerFake{
		report: &domain.NoveltyReport{
			Novelty:     "NO",
			Explanation: "no prior work found",
			Papers:      []domain.Paper{},
		},
	}, nil, "api")

	req := httptest.NewRequest(http.MethodPost, "/v1/novelty-check", strings.NewReader(`{"research_question":"Has anyone built X before?"}`))
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report domain.NoveltyReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if report.Novelty != "NO" || report.Explanation != "no prior work found" {
		t.Fatalf("unexpected report %+v", report)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}

func TestCheckNoveltyRejectsShortQuestion(t *testing.T) {
	router := NewRouter(&checkerFake{}, nil, "api")

	for _, body := range []string{`{"research_question":"  "}`, `{"research_question":"why?"}`} {
		req := httptest.NewRequest(http.MethodPost, "/v1/novelty-check", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, rec.Code)
		}
	}
}

func TestCheckNoveltyRejectsGet(t *testing.T) {
	router := NewRouter(&checkerFake{}, nil, "api")

	req := httptest.NewRequest(http.MethodGet, "/v1/novelty-check", nil)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestCheckNoveltyMapsTemporaryErrorTo503(t *testing.T) {
	router := NewRouter(&checkerFake{
		err: domain.WrapError(domain.ErrTemporary, "search papers", errors.New("upstream overloaded")),
	}, nil, "api")

	req := httptest.NewRequest(http.MethodPost, "/v1/novelty-check", strings.NewReader(`{"research_question":"Has anyone studied Q?"}`))
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestCheckNoveltyMapsInvalidInputTo400(t *testing.T) {
	router := NewRouter(&checkerFake{
		err: fmt.Errorf("check novelty: %w", domain.ErrInvalidInput),
	}, nil, "api")

	req := httptest.NewRequest(http.MethodPost, "/v1/novelty-check", strings.NewReader(`{"research_question":"Has anyone studied Q?"}`))
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	router := NewRouter(&checkerFake{}, nil, "api")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
