package openrouter

import (
	"fmt"
	"strings"

	"github.com/hasanyone/noveltycheck/internal/core/domain"
)

// buildJudgePrompt asks the model for a verdict in a fixed two-field format.
// parseJudgment depends on the ANSWER/EXPLANATION markers below.
func buildJudgePrompt(question string, papers []domain.Paper) string {
	var papersBuilder strings.Builder
	for idx, paper := range papers {
		if idx > 0 {
			papersBuilder.WriteString("\n\n")
		}
		papersBuilder.WriteString(fmt.Sprintf(
			"Paper: %s\nAuthor: %s\nPublished Date: %s\nSummary: %s\nURL: %s",
			paper.Title,
			orUnknown(paper.Author),
			orUnknown(paper.PublishedDate),
			orDefault(paper.Summary, "No summary available"),
			paper.URL,
		))
	}

	return fmt.Sprintf(`Your task is to check whether anyone has done the proposed research question. To aid you, you will also be provided with the results of a query of academic papers for this topic. You will be provided with the titles of any returned papers and a summary of each of them. Note, that you will always be provided with papers from the search term, even if the research query is novel.
Research Question: %s

Relevant Papers:
%s

Please provide:
1. A clear YES/NO answer indicating if the research has been done before.
2. A detailed explanation of your reasoning, citing specific papers
3. Include relevant paper URLs in your explanation
Only include papers that are relevant to the research question. Do not cite a paper that is not relevant to the research question.
Format your response as:
ANSWER: [YES/NO]
EXPLANATION: [Your detailed explanation with citations]`, question, papersBuilder.String())
}

// parseJudgment reads the verdict leniently: any "ANSWER: YES" marker means
// yes, everything else means no, and a missing EXPLANATION marker falls back
// to the whole response text.
func parseJudgment(content string) domain.Judgment {
	novelty := "NO"
	if strings.Contains(strings.ToUpper(content), "ANSWER: YES") {
		novelty = "YES"
	}

	explanation := content
	if _, after, found := strings.Cut(content, "EXPLANATION:"); found {
		explanation = strings.TrimSpace(after)
	}

	return domain.Judgment{Novelty: novelty, Explanation: explanation}
}

func orUnknown(value string) string {
	return orDefault(value, "Unknown")
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
