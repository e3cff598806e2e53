package orchestrator

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/domain"
)

// TriggerSchedule handles schedule/trigger-manual: the timer is a
// degenerate trigger that emits the same event a manual action would, so
// the downstream steps need no schedule awareness.
func (s *Steps) TriggerSchedule(ctx context.Context, event *domain.Event) *StepResult {
	var payload domain.ScheduleTriggerPayload
	if err := decodePayload(event, &payload); err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	schedule, err := s.schedules.GetByID(ctx, payload.ScheduleID)
	if err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}
	if !schedule.Enabled {
		s.logger.Info("schedule disabled, skipping",
			zap.String("schedule_id", schedule.ScheduleID.String()),
		)
		return stepOK()
	}

	article, err := s.articles.GetByID(ctx, schedule.ArticleID)
	if err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	var followOn *domain.Event
	switch {
	case article.Status == domain.ArticleDraft:
		data, err := json.Marshal(domain.GenerateArticlePayload{
			ArticleID:     article.ArticleID,
			ProductID:     article.ProductID,
			TargetKeyword: article.TargetKeyword,
			ClusterID:     article.ClusterID,
		})
		if err != nil {
			return stepFail(domain.CodeUnknown, err.Error())
		}
		followOn = &domain.Event{Name: domain.EventArticleGenerate, Data: data}

	case article.Status == domain.ArticleReview:
		data, err := json.Marshal(domain.PublishSyncPayload{
			ArticleID: article.ArticleID,
			SiteID:    schedule.SiteID,
			Action:    schedule.Action,
		})
		if err != nil {
			return stepFail(domain.CodeUnknown, err.Error())
		}
		followOn = &domain.Event{Name: domain.EventPublishSync, Data: data}

	default:
		s.logger.Info("schedule target not actionable",
			zap.String("schedule_id", schedule.ScheduleID.String()),
			zap.String("article_status", string(article.Status)),
		)
		return stepOK()
	}

	if err := s.schedules.MarkRun(ctx, schedule.ScheduleID); err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	return stepOK(followOn)
}
