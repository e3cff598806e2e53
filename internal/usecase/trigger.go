// Package usecase holds the trigger API's business logic: validating a
// request, recording the job, and publishing the event that starts a
// workflow.
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/domain"
	"github.com/pressmill/pressmill/internal/events"
	"github.com/pressmill/pressmill/internal/repository"
)

// TriggerUsecase creates jobs and publishes their trigger events. The job
// row always exists before the event is published, so a worker can never
// receive an event pointing at a missing job.
type TriggerUsecase struct {
	jobs      repository.JobRepository
	sites     repository.SiteRepository
	publisher events.Publisher
	logger    *zap.Logger
}

// NewTriggerUsecase creates a TriggerUsecase.
func NewTriggerUsecase(
	jobs repository.JobRepository,
	sites repository.SiteRepository,
	publisher events.Publisher,
	logger *zap.Logger,
) *TriggerUsecase {
	return &TriggerUsecase{
		jobs:      jobs,
		sites:     sites,
		publisher: publisher,
		logger:    logger,
	}
}

// TriggerResponse is returned after a workflow has been triggered.
type TriggerResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Status string    `json:"status"`
}

// ProvisionSite validates the slug and starts the provisioning workflow.
// Onboarding begins here: the Site row is created (PENDING) on the first
// trigger, and a re-trigger for the same site reuses the existing row. The
// uniqueness check excludes the site's own row so a retry after a worker
// failure is never mistaken for a slug conflict.
func (uc *TriggerUsecase) ProvisionSite(ctx context.Context, payload *domain.ProvisionSitePayload) (*TriggerResponse, error) {
	if !domain.ValidSlug(payload.Subdomain) {
		return nil, domain.ErrInvalidSlug
	}

	taken, err := uc.sites.SlugExists(ctx, payload.Subdomain, payload.SiteID)
	if err != nil {
		return nil, fmt.Errorf("check slug: %w", err)
	}
	if taken {
		return nil, domain.ErrSlugTaken
	}

	_, err = uc.sites.GetByID(ctx, payload.SiteID)
	switch {
	case errors.Is(err, domain.ErrSiteNotFound):
		title := payload.Title
		if title == "" {
			title = payload.Subdomain
		}
		now := time.Now().UTC()
		site := &domain.Site{
			SiteID:    payload.SiteID,
			UserID:    payload.UserID,
			Slug:      payload.Subdomain,
			Title:     title,
			Theme:     payload.Theme,
			Status:    domain.SitePending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := uc.sites.Create(ctx, site); err != nil {
			// A concurrent trigger can win the slug between the check and
			// the insert; the unique constraint reports it.
			if errors.Is(err, domain.ErrSlugTaken) {
				return nil, domain.ErrSlugTaken
			}
			return nil, fmt.Errorf("create site: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("load site: %w", err)
	}

	return uc.trigger(ctx, domain.EventSiteProvision, domain.KindProvisionSite, payload)
}

// AnalyzeProduct starts the content-planning workflow.
func (uc *TriggerUsecase) AnalyzeProduct(ctx context.Context, payload *domain.AnalyzeProductPayload) (*TriggerResponse, error) {
	return uc.trigger(ctx, domain.EventProductAnalyze, domain.KindAnalyzeProduct, payload)
}

// GenerateArticle starts the generation workflow for one article.
func (uc *TriggerUsecase) GenerateArticle(ctx context.Context, payload *domain.GenerateArticlePayload) (*TriggerResponse, error) {
	return uc.trigger(ctx, domain.EventArticleGenerate, domain.KindGenerateArticle, payload)
}

// SyncPublish starts the publish workflow for one article.
func (uc *TriggerUsecase) SyncPublish(ctx context.Context, payload *domain.PublishSyncPayload) (*TriggerResponse, error) {
	return uc.trigger(ctx, domain.EventPublishSync, domain.KindSyncPublish, payload)
}

// GetJob returns one job for status polling.
func (uc *TriggerUsecase) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	return uc.jobs.GetByID(ctx, id)
}

// CheckAvailability reports whether a slug is valid, unreserved and unused.
func (uc *TriggerUsecase) CheckAvailability(ctx context.Context, slug string) (bool, error) {
	if !domain.ValidSlug(slug) {
		return false, nil
	}
	taken, err := uc.sites.SlugExists(ctx, slug, uuid.Nil)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return !taken, nil
}

func (uc *TriggerUsecase) trigger(ctx context.Context, eventName string, kind domain.JobKind, payload any) (*TriggerResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	jobID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate job id: %w", err)
	}

	now := time.Now().UTC()
	job := &domain.Job{
		JobID:     jobID,
		Kind:      kind,
		Payload:   data,
		Status:    domain.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		uc.logger.Error("failed to create job", zap.Error(err), zap.String("job_id", jobID.String()))
		return nil, fmt.Errorf("create job: %w", err)
	}

	event := &domain.Event{Name: eventName, JobID: jobID, Data: data}
	if err := uc.publisher.Publish(ctx, event); err != nil {
		uc.logger.Error("failed to publish event", zap.Error(err), zap.String("job_id", jobID.String()))
		// The job will never be picked up; record that.
		_ = uc.jobs.UpdateStatus(ctx, jobID, domain.JobFailed, "event publish failed")
		return nil, domain.ErrPublishFailed
	}

	uc.logger.Info("workflow triggered",
		zap.String("event", eventName),
		zap.String("job_id", jobID.String()),
	)

	return &TriggerResponse{JobID: jobID, Status: string(domain.JobPending)}, nil
}
