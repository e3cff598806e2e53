package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/batch"
	"github.com/pressmill/pressmill/internal/domain"
)

const articleSystemPrompt = `You are a senior content writer for product
blogs. Write a complete, publication-ready article in HTML (no surrounding
document tags). Respond with JSON only, shaped as {"title": string,
"content": string}.`

// articleDraft is the JSON document the generation batch returns.
type articleDraft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// GenerateArticle handles article/generate: the article moves to
// GENERATING before submission and to REVIEW or FAILED after the batch
// completes. The correlation key is the article id, so the result maps
// back without re-deriving identity from content.
func (s *Steps) GenerateArticle(ctx context.Context, event *domain.Event) *StepResult {
	var payload domain.GenerateArticlePayload
	if err := decodePayload(event, &payload); err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	article, err := s.articles.GetByID(ctx, payload.ArticleID)
	if err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	// Redelivery safety: already generated content is not regenerated.
	if article.Status == domain.ArticleReview || article.Status == domain.ArticlePublished {
		s.logger.Info("article already generated, skipping",
			zap.String("article_id", article.ArticleID.String()),
		)
		return stepOK()
	}

	product, err := s.products.GetByID(ctx, payload.ProductID)
	if err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	if err := s.articles.UpdateStatus(ctx, article.ArticleID, domain.ArticleGenerating); err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	correlationKey := article.ArticleID.String()
	requests := []domain.BatchRequest{{
		CorrelationKey: correlationKey,
		System:         articleSystemPrompt,
		Prompt:         articlePrompt(article, product),
	}}

	batchID, err := s.batches.Submit(ctx, requests)
	if err != nil {
		return stepFail(domain.CodeUnknown, "batch submit: "+err.Error())
	}

	if err := s.pollBatch(ctx, batchID); err != nil {
		return stepFail(domain.CodeUnknown, "batch poll: "+err.Error())
	}

	results, err := s.batches.GetResults(ctx, batchID)
	if err != nil {
		return stepFail(domain.CodeUnknown, "batch results: "+err.Error())
	}

	mapped, err := batch.MapResults(results, []string{correlationKey})
	if err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	res := mapped[correlationKey]
	if res.Kind != domain.BatchResultSucceeded {
		return stepFail(domain.CodeUnknown, fmt.Sprintf("generation request %s: %s", res.Kind, res.ErrorDetail))
	}

	title, content := parseDraft(res.Content, article.Title)
	if err := s.articles.SetContent(ctx, article.ArticleID, title, content, domain.ArticleReview); err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	s.logger.Info("article generated",
		zap.String("article_id", article.ArticleID.String()),
		zap.Int("content_bytes", len(content)),
	)

	return stepOK()
}

// articleFailed marks the article FAILED once the job is terminal.
func (s *Steps) articleFailed(ctx context.Context, event *domain.Event, result *StepResult) {
	var payload domain.GenerateArticlePayload
	if err := decodePayload(event, &payload); err != nil {
		s.logger.Error("failure hook: bad payload", zap.Error(err))
		return
	}
	if err := s.articles.UpdateStatus(ctx, payload.ArticleID, domain.ArticleFailed); err != nil {
		s.logger.Error("failure hook: update article status",
			zap.String("article_id", payload.ArticleID.String()),
			zap.Error(err),
		)
	}
}

// parseDraft decodes the model's JSON draft, falling back to the raw text
// as content when the output is not the expected shape.
func parseDraft(raw, fallbackTitle string) (title, content string) {
	var draft articleDraft
	if err := json.Unmarshal([]byte(stripFences(raw)), &draft); err == nil && draft.Content != "" {
		if draft.Title == "" {
			draft.Title = fallbackTitle
		}
		return draft.Title, draft.Content
	}
	return fallbackTitle, raw
}

func articlePrompt(article *domain.Article, product *domain.Product) string {
	prompt := fmt.Sprintf(
		"Write an article titled %q targeting the keyword %q for the product %q.",
		article.Title, article.TargetKeyword, product.Name,
	)
	if product.Analysis != "" {
		prompt += "\n\nProduct analysis for context:\n" + product.Analysis
	}
	return prompt
}
