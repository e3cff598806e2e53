package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/domain"
	"github.com/pressmill/pressmill/internal/publish"
)

// SyncPublish handles publish/sync: it decrypts the site's credential,
// builds a per-site REST client, and delegates to the publishing manager.
// The article only ever surfaces PUBLISHED or FAILED to consumers.
func (s *Steps) SyncPublish(ctx context.Context, event *domain.Event) *StepResult {
	var payload domain.PublishSyncPayload
	if err := decodePayload(event, &payload); err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	article, err := s.articles.GetByID(ctx, payload.ArticleID)
	if err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	site, err := s.sites.GetByID(ctx, payload.SiteID)
	if err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}
	if site.Status != domain.SiteActive {
		return stepFail(domain.CodeUnknown, "site is not active: "+string(site.Status))
	}

	cred, err := s.creds.GetBySite(ctx, site.SiteID)
	if err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}
	password, err := s.crypter.Open(cred.EncryptedPassword)
	if err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	client := s.postClients(site.URL, cred.Username, password)

	var result *publish.Result
	switch payload.Action {
	case domain.PublishActionCreate:
		// Redelivery safety: an article that already has a remote post was
		// published by a previous delivery.
		if article.RemotePostID != 0 {
			s.logger.Info("article already published, skipping",
				zap.String("article_id", article.ArticleID.String()),
			)
			return stepOK()
		}
		result = s.publisher.Publish(ctx, client, article)
	case domain.PublishActionUpdate:
		result = s.publisher.Update(ctx, client, article)
	case domain.PublishActionDelete:
		result = s.publisher.Delete(ctx, client, article)
	default:
		return stepFail(domain.CodeUnknown, "unknown publish action: "+string(payload.Action))
	}

	if !result.OK {
		return stepFail(result.Error.Code, result.Error.Message)
	}

	switch payload.Action {
	case domain.PublishActionDelete:
		if err := s.articles.SetRemotePost(ctx, article.ArticleID, 0, "", domain.ArticleArchived); err != nil {
			return stepFail(domain.CodeUnknown, err.Error())
		}
	default:
		if err := s.articles.SetRemotePost(ctx, article.ArticleID, result.Data.PostID, result.Data.PostURL, domain.ArticlePublished); err != nil {
			return stepFail(domain.CodeUnknown, err.Error())
		}
	}

	s.logger.Info("article synced",
		zap.String("article_id", article.ArticleID.String()),
		zap.String("action", string(payload.Action)),
		zap.Int("post_id", result.Data.PostID),
	)

	return stepOK()
}

// publishFailed marks the article FAILED once the job is terminal.
func (s *Steps) publishFailed(ctx context.Context, event *domain.Event, result *StepResult) {
	var payload domain.PublishSyncPayload
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
