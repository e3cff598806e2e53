package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/domain"
	"github.com/pressmill/pressmill/internal/metrics"
	"github.com/pressmill/pressmill/internal/provision"
	"github.com/pressmill/pressmill/internal/publish"
	"github.com/pressmill/pressmill/internal/repository"
	"github.com/pressmill/pressmill/internal/secrets"
)

const (
	defaultPollInterval = 30 * time.Second
	defaultPollTimeout  = 2 * time.Hour
)

// Provisioner creates hosted sites. Satisfied by *provision.Manager.
type Provisioner interface {
	Create(ctx context.Context, slug, title, email, theme string) *provision.Result
}

// BatchService is the inference provider surface the steps drive.
// Satisfied by *batch.Client.
type BatchService interface {
	Submit(ctx context.Context, requests []domain.BatchRequest) (string, error)
	GetStatus(ctx context.Context, batchID string) (domain.BatchStatus, error)
	GetResults(ctx context.Context, batchID string) ([]domain.BatchResult, error)
}

// ArticlePublisher pushes articles to their site. Satisfied by
// *publish.Manager.
type ArticlePublisher interface {
	Publish(ctx context.Context, client publish.PostClient, article *domain.Article) *publish.Result
	Update(ctx context.Context, client publish.PostClient, article *domain.Article) *publish.Result
	Delete(ctx context.Context, client publish.PostClient, article *domain.Article) *publish.Result
}

// PostClientFactory builds a per-site REST client from that site's
// decrypted credential.
type PostClientFactory func(siteURL, username, password string) publish.PostClient

// Steps holds every dependency the step functions share. Step functions
// delegate all side effects to the managers and clients here; they never
// talk to SSH, the inference provider, or the content API directly.
type Steps struct {
	jobs      repository.JobRepository
	sites     repository.SiteRepository
	creds     repository.CredentialRepository
	articles  repository.ArticleRepository
	products  repository.ProductRepository
	clusters  repository.ClusterRepository
	schedules repository.ScheduleRepository

	provisioner Provisioner
	batches     BatchService
	publisher   ArticlePublisher
	postClients PostClientFactory
	crypter     *secrets.Crypter

	contactEmail string
	pollInterval time.Duration
	pollTimeout  time.Duration
	logger       *zap.Logger
}

// StepsConfig wires a Steps value.
type StepsConfig struct {
	Jobs      repository.JobRepository
	Sites     repository.SiteRepository
	Creds     repository.CredentialRepository
	Articles  repository.ArticleRepository
	Products  repository.ProductRepository
	Clusters  repository.ClusterRepository
	Schedules repository.ScheduleRepository

	Provisioner Provisioner
	Batches     BatchService
	Publisher   ArticlePublisher
	PostClients PostClientFactory
	Crypter     *secrets.Crypter

	ContactEmail string
	PollInterval time.Duration
	PollTimeout  time.Duration
	Logger       *zap.Logger
}

// NewSteps creates the step function set.
func NewSteps(cfg StepsConfig) *Steps {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.PollTimeout == 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	return &Steps{
		jobs:         cfg.Jobs,
		sites:        cfg.Sites,
		creds:        cfg.Creds,
		articles:     cfg.Articles,
		products:     cfg.Products,
		clusters:     cfg.Clusters,
		schedules:    cfg.Schedules,
		provisioner:  cfg.Provisioner,
		batches:      cfg.Batches,
		publisher:    cfg.Publisher,
		postClients:  cfg.PostClients,
		crypter:      cfg.Crypter,
		contactEmail: cfg.ContactEmail,
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
		logger:       cfg.Logger,
	}
}

// BuildRegistry binds every workflow event to its step function. This is
// the one place the event → step mapping lives.
func (s *Steps) BuildRegistry() *Registry {
	r := NewRegistry()
	r.RegisterWithFailure(domain.EventSiteProvision, domain.KindProvisionSite, s.ProvisionSite, s.provisionFailed)
	r.Register(domain.EventProductAnalyze, domain.KindAnalyzeProduct, s.AnalyzeProduct)
	r.RegisterWithFailure(domain.EventArticleGenerate, domain.KindGenerateArticle, s.GenerateArticle, s.articleFailed)
	r.RegisterWithFailure(domain.EventPublishSync, domain.KindSyncPublish, s.SyncPublish, s.publishFailed)
	r.Register(domain.EventScheduleTrigger, domain.KindGenerateArticle, s.TriggerSchedule)
	return r
}

// pollBatch polls the provider until the batch reaches a terminal state or
// the timeout budget runs out. Polling lives in the step, not the client.
func (s *Steps) pollBatch(ctx context.Context, batchID string) error {
	deadline := time.Now().Add(s.pollTimeout)
	for {
		metrics.BatchPolls.Inc()
		status, err := s.batches.GetStatus(ctx, batchID)
		if err != nil {
			return err
		}
		if status.IsTerminal() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("batch %s still %s after %s", batchID, status, s.pollTimeout)
		}

		select {
		case <-time.After(s.pollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// stripFences removes a markdown code fence the model sometimes wraps
// around JSON output.
func stripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func decodePayload(event *domain.Event, out any) error {
	if err := json.Unmarshal(event.Data, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Name, err)
	}
	return nil
}
