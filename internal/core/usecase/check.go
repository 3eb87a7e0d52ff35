package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hasanyone/noveltycheck/internal/core/domain"
	"github.com/hasanyone/noveltycheck/internal/core/ports"
)

// CheckNoveltyUseCase is the single-question request path: search once,
// judge once, report. Unlike the batch evaluator, collaborator errors
// propagate to the caller here since there is no batch to protect.
type CheckNoveltyUseCase struct {
	searcher ports.PaperSearcher
	judge    ports.NoveltyJudge
	params   ports.SearchParams
	model    string
}

func NewCheckNoveltyUseCase(
	searcher ports.PaperSearcher,
	judge ports.NoveltyJudge,
	params ports.SearchParams,
	model string,
) *CheckNoveltyUseCase {
	return &CheckNoveltyUseCase{
		searcher: searcher,
		judge:    judge,
		params:   params,
		model:    model,
	}
}

func (uc *CheckNoveltyUseCase) CheckNovelty(ctx context.Context, question string) (*domain.NoveltyReport, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "check novelty", errors.New("empty research question"))
	}

	papers, err := uc.searcher.SearchPapers(ctx, question, uc.params)
	if err != nil {
		return nil, fmt.Errorf("search papers: %w", err)
	}

	judgment, err := uc.judge.Judge(ctx, uc.model, question, papers)
	if err != nil {
		return nil, fmt.Errorf("judge novelty: %w", err)
	}

	novelty := "NO"
	if domain.NormalizeLabel(judgment.Novelty) == domain.LabelYes {
		novelty = "YES"
	}
	if papers == nil {
		papers = []domain.Paper{}
	}
	return &domain.NoveltyReport{
		Novelty:     novelty,
		Explanation: judgment.Explanation,
		Papers:      papers,
	}, nil
}
