package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/batch"
	"github.com/pressmill/pressmill/internal/domain"
)

const analysisSystemPrompt = `You are a content strategist for product blogs.
Given a product, produce a JSON content plan: a topic cluster and a list of
article briefs targeting long-tail keywords. Respond with JSON only, shaped
as {"topic": string, "positioning": string, "articles": [{"title": string,
"keyword": string}]}.`

// contentPlan is the JSON document the analysis batch is expected to return.
type contentPlan struct {
	Topic       string `json:"topic"`
	Positioning string `json:"positioning"`
	Articles    []struct {
		Title   string `json:"title"`
		Keyword string `json:"keyword"`
	} `json:"articles"`
}

// AnalyzeProduct handles product/analyze: one batch request produces a
// content plan, which becomes a cluster plus planned articles, and one
// article/generate follow-on event per planned article.
func (s *Steps) AnalyzeProduct(ctx context.Context, event *domain.Event) *StepResult {
	var payload domain.AnalyzeProductPayload
	if err := decodePayload(event, &payload); err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	product, err := s.products.GetByID(ctx, payload.ProductID)
	if err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	correlationKey := "analysis-" + product.ProductID.String()
	requests := []domain.BatchRequest{{
		CorrelationKey: correlationKey,
		System:         analysisSystemPrompt,
		Prompt:         analysisPrompt(product, payload),
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
		return stepFail(domain.CodeUnknown, fmt.Sprintf("analysis request %s: %s", res.Kind, res.ErrorDetail))
	}

	var plan contentPlan
	if err := json.Unmarshal([]byte(stripFences(res.Content)), &plan); err != nil {
		return stepFail(domain.CodeUnknown, "parse content plan: "+err.Error())
	}
	if len(plan.Articles) == 0 {
		return stepFail(domain.CodeUnknown, "content plan has no articles")
	}

	if err := s.products.SetAnalysis(ctx, product.ProductID, stripFences(res.Content)); err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	clusterID, err := uuid.NewV7()
	if err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}
	cluster := &domain.Cluster{
		ClusterID: clusterID,
		ProductID: product.ProductID,
		Topic:     plan.Topic,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.clusters.Create(ctx, cluster); err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	followOn := make([]*domain.Event, 0, len(plan.Articles))
	for _, brief := range plan.Articles {
		articleID, err := uuid.NewV7()
		if err != nil {
			return stepFail(domain.CodeUnknown, err.Error())
		}
		now := time.Now().UTC()
		article := &domain.Article{
			ArticleID:     articleID,
			ProductID:     product.ProductID,
			ClusterID:     &clusterID,
			Title:         brief.Title,
			TargetKeyword: brief.Keyword,
			Status:        domain.ArticleDraft,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.articles.Create(ctx, article); err != nil {
			return stepFail(domain.CodeUnknown, err.Error())
		}

		data, err := json.Marshal(domain.GenerateArticlePayload{
			ArticleID:     articleID,
			ProductID:     product.ProductID,
			TargetKeyword: brief.Keyword,
			ClusterID:     &clusterID,
		})
		if err != nil {
			return stepFail(domain.CodeUnknown, err.Error())
		}
		followOn = append(followOn, &domain.Event{
			Name: domain.EventArticleGenerate,
			Data: data,
		})
	}

	s.logger.Info("product analyzed",
		zap.String("product_id", product.ProductID.String()),
		zap.String("cluster_id", clusterID.String()),
		zap.Int("planned_articles", len(followOn)),
	)

	return stepOK(followOn...)
}

func analysisPrompt(product *domain.Product, payload domain.AnalyzeProductPayload) string {
	switch payload.Mode {
	case domain.AnalyzeModeURL:
		return fmt.Sprintf("Analyze the product %q at %s and plan a topic cluster of articles.", product.Name, payload.URL)
	case domain.AnalyzeModeResearch:
		return fmt.Sprintf("Research the market around %q and plan a topic cluster of articles.", product.Name)
	default:
		return fmt.Sprintf("Plan a topic cluster of articles for the product %q.", product.Name)
	}
}
