package orchestrator_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/domain"
	"github.com/pressmill/pressmill/internal/orchestrator"
	"github.com/pressmill/pressmill/internal/provision"
	"github.com/pressmill/pressmill/internal/publish"
	"github.com/pressmill/pressmill/internal/repository/mock"
	"github.com/pressmill/pressmill/internal/secrets"
	"github.com/pressmill/pressmill/internal/wordpress"
)

// fakeProvisioner plays back a canned provisioning result.
type fakeProvisioner struct {
	result *provision.Result

	Calls  int
	Themes []string
}

func (f *fakeProvisioner) Create(ctx context.Context, slug, title, email, theme string) *provision.Result {
	f.Calls++
	f.Themes = append(f.Themes, theme)
	return f.result
}

// fakeBatches is a function-field double for the inference provider.
type fakeBatches struct {
	SubmitFn     func(ctx context.Context, requests []domain.BatchRequest) (string, error)
	GetStatusFn  func(ctx context.Context, batchID string) (domain.BatchStatus, error)
	GetResultsFn func(ctx context.Context, batchID string) ([]domain.BatchResult, error)

	Submitted [][]domain.BatchRequest
}

func (f *fakeBatches) Submit(ctx context.Context, requests []domain.BatchRequest) (string, error) {
	f.Submitted = append(f.Submitted, requests)
	if f.SubmitFn != nil {
		return f.SubmitFn(ctx, requests)
	}
	return "msgbatch_test", nil
}

func (f *fakeBatches) GetStatus(ctx context.Context, batchID string) (domain.BatchStatus, error) {
	if f.GetStatusFn != nil {
		return f.GetStatusFn(ctx, batchID)
	}
	return domain.BatchEnded, nil
}

func (f *fakeBatches) GetResults(ctx context.Context, batchID string) ([]domain.BatchResult, error) {
	if f.GetResultsFn != nil {
		return f.GetResultsFn(ctx, batchID)
	}
	return nil, nil
}

// fakePostClient satisfies publish.PostClient for publish step tests.
type fakePostClient struct {
	CreateCalls int
	DeleteCalls int
}

func (f *fakePostClient) CreatePost(ctx context.Context, input *wordpress.PostInput) (*wordpress.Post, error) {
	f.CreateCalls++
	return &wordpress.Post{ID: 123, Link: "https://myblog.example.app/?p=123"}, nil
}

func (f *fakePostClient) UpdatePost(ctx context.Context, postID int, input *wordpress.PostInput) (*wordpress.Post, error) {
	return &wordpress.Post{ID: postID, Link: "https://myblog.example.app/?p=123"}, nil
}

func (f *fakePostClient) DeletePost(ctx context.Context, postID int) error {
	f.DeleteCalls++
	return nil
}

func (f *fakePostClient) UploadMedia(ctx context.Context, data []byte, filename, mimeType string) (*wordpress.Media, error) {
	return &wordpress.Media{ID: 456}, nil
}

// stepsEnv bundles the mocks behind one Steps value.
type stepsEnv struct {
	jobs      *mock.JobRepository
	sites     *mock.SiteRepository
	creds     *mock.CredentialRepository
	articles  *mock.ArticleRepository
	products  *mock.ProductRepository
	clusters  *mock.ClusterRepository
	schedules *mock.ScheduleRepository

	provisioner *fakeProvisioner
	batches     *fakeBatches
	postClient  *fakePostClient
	crypter     *secrets.Crypter

	steps *orchestrator.Steps
}

func newStepsEnv(t *testing.T) *stepsEnv {
	t.Helper()

	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	crypter, err := secrets.NewCrypter(key)
	if err != nil {
		t.Fatalf("new crypter: %v", err)
	}

	env := &stepsEnv{
		jobs:        &mock.JobRepository{},
		sites:       &mock.SiteRepository{},
		creds:       &mock.CredentialRepository{},
		articles:    &mock.ArticleRepository{},
		products:    &mock.ProductRepository{},
		clusters:    &mock.ClusterRepository{},
		schedules:   &mock.ScheduleRepository{},
		provisioner: &fakeProvisioner{},
		batches:     &fakeBatches{},
		postClient:  &fakePostClient{},
		crypter:     crypter,
	}

	env.steps = orchestrator.NewSteps(orchestrator.StepsConfig{
		Jobs:        env.jobs,
		Sites:       env.sites,
		Creds:       env.creds,
		Articles:    env.articles,
		Products:    env.products,
		Clusters:    env.clusters,
		Schedules:   env.schedules,
		Provisioner: env.provisioner,
		Batches:     env.batches,
		Publisher:   publish.NewManager(zap.NewNop()),
		PostClients: func(siteURL, username, password string) publish.PostClient {
			return env.postClient
		},
		Crypter:      env.crypter,
		ContactEmail: "admin@example.app",
		Logger:       zap.NewNop(),
	})
	return env
}

func eventWithPayload(t *testing.T, name string, payload any) *domain.Event {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &domain.Event{Name: name, JobID: uuid.New(), Data: data}
}

// Test: successful provisioning stores an encrypted credential and marks
// the site provisioned.
func TestProvisionSite_Success(t *testing.T) {
	env := newStepsEnv(t)
	siteID := uuid.New()
	env.sites.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Site, error) {
		return &domain.Site{SiteID: siteID, Slug: "myblog", Title: "My Blog", Theme: "astra", Status: domain.SitePending}, nil
	}
	env.provisioner.result = &provision.Result{
		OK: true,
		Data: &provision.Success{
			SiteID: 42,
			URL:    "https://myblog.example.app",
			Credentials: provision.Credentials{
				Username: "admin",
				Password: "abcd EFGH 1234 ijkl",
			},
		},
	}

	event := eventWithPayload(t, domain.EventSiteProvision, domain.ProvisionSitePayload{
		SiteID:    siteID,
		Subdomain: "myblog",
	})
	result := env.steps.ProvisionSite(context.Background(), event)

	if !result.OK {
		t.Fatalf("expected success, got %s: %s", result.Code, result.Message)
	}
	if len(env.sites.StatusUpdates) != 1 || env.sites.StatusUpdates[0].Status != domain.SiteProvisioning {
		t.Errorf("expected PROVISIONING status update, got %+v", env.sites.StatusUpdates)
	}
	if len(env.sites.Provisioned) != 1 || env.sites.Provisioned[0].RemoteSiteID != 42 {
		t.Fatalf("expected provisioned with remote id 42, got %+v", env.sites.Provisioned)
	}
	if len(env.provisioner.Themes) != 1 || env.provisioner.Themes[0] != "astra" {
		t.Errorf("expected stored theme handed to provisioner, got %v", env.provisioner.Themes)
	}

	if len(env.creds.Upserted) != 1 {
		t.Fatalf("expected 1 credential, got %d", len(env.creds.Upserted))
	}
	cred := env.creds.Upserted[0]
	if string(cred.EncryptedPassword) == "abcd EFGH 1234 ijkl" {
		t.Error("password stored in plaintext")
	}
	plain, err := env.crypter.Open(cred.EncryptedPassword)
	if err != nil {
		t.Fatalf("decrypt credential: %v", err)
	}
	if plain != "abcd EFGH 1234 ijkl" {
		t.Errorf("roundtripped password mismatch: %q", plain)
	}
}

/// Test: a redelivered event for an active site is a no-op success.
func TestProvisionSite_AlreadyActive(t *testing.T) {
	env := newStepsEnv(t)
	siteID := uuid.New()
	env.sites.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Site, error) {
		return &domain.Site{SiteID: siteID, Status: domain.SiteActive}, nil
	}

	event := eventWithPayload(t, domain.EventSiteProvision, domain.ProvisionSitePayload{SiteID: siteID, Subdomain: "myblog"})
	result := env.steps.ProvisionSite(context.Background(), event)

	if !result.OK {
		t.Fatalf("expected success, got %s", result.Message)
	}
	if env.provisioner.Calls != 0 {
		t.Errorf("expected no provisioner calls, got %d", env.provisioner.Calls)
	}
}

// Test: SITE_EXISTS on redelivery of an already-provisioned record is
// treated as success.
func TestProvisionSite_ExistsAfterRedelivery(t *testing.T) {
	env := newStepsEnv(t)
	siteID := uuid.New()
	env.sites.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Site, error) {
		return &domain.Site{SiteID: siteID, Status: domain.SiteProvisioning, RemoteSiteID: 42}, nil
	}
	env.provisioner.result = &provision.Result{
		OK:    false,
		Error: &provision.Failure{Code: domain.CodeSiteExists, Message: "site already exists: myblog"},
	}

	event := eventWithPayload(t, domain.EventSiteProvision, domain.ProvisionSitePayload{SiteID: siteID, Subdomain: "myblog"})
	result := env.steps.ProvisionSite(context.Background(), event)

	if !result.OK {
		t.Fatalf("expected success, got %s: %s", result.Code, result.Message)
	}
	last := env.sites.StatusUpdates[len(env.sites.StatusUpdates)-1]
	if last.Status != domain.SiteActive {
		t.Errorf("expected ACTIVE, got %s", last.Status)
	}
}

// Test: a provisioning failure propagates its classified code.
func TestProvisionSite_Failure(t *testing.T) {
	env := newStepsEnv(t)
	siteID := uuid.New()
	env.sites.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Site, error) {
		return &domain.Site{SiteID: siteID, Status: domain.SitePending}, nil
	}
	env.provisioner.result = &provision.Result{
		OK:    false,
		Error: &provision.Failure{Code: domain.CodeSSHError, Message: "connection refused"},
	}

	event := eventWithPayload(t, domain.EventSiteProvision, domain.ProvisionSitePayload{SiteID: siteID, Subdomain: "myblog"})
	result := env.steps.ProvisionSite(context.Background(), event)

	if result.OK {
		t.Fatal("expected failure")
	}
	if result.Code != domain.CodeSSHError {
		t.Errorf("expected SSH_ERROR, got %s", result.Code)
	}
}

// Test: the registered failure hook flips the site to PROVISION_FAILED.
func TestProvisionSite_FailureHook(t *testing.T) {
	env := newStepsEnv(t)
	siteID := uuid.New()

	registry := env.steps.BuildRegistry()
	step, ok := registry.Lookup(domain.EventSiteProvision)
	if !ok || step.OnFailure == nil {
		t.Fatal("expected provision step with failure hook")
	}

	event := eventWithPayload(t, domain.EventSiteProvision, domain.ProvisionSitePayload{SiteID: siteID, Subdomain: "myblog"})
	step.OnFailure(context.Background(), event, &orchestrator.StepResult{Code: domain.CodeSSHError})

	if len(env.sites.StatusUpdates) != 1 || env.sites.StatusUpdates[0].Status != domain.SiteProvisionFailed {
		t.Errorf("expected PROVISION_FAILED update, got %+v", env.sites.StatusUpdates)
	}
}

// Test: generation moves the article through GENERATING to REVIEW with
// the model's draft.
func TestGenerateArticle_Success(t *testing.T) {
	env := newStepsEnv(t)
	articleID := uuid.New()
	productID := uuid.New()
	env.articles.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
		return &domain.Article{ArticleID: articleID, ProductID: productID, Title: "Planned Title", Status: domain.ArticleDraft}, nil
	}
	env.products.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
		return &domain.Product{ProductID: productID, Name: "Widget"}, nil
	}
	env.batches.GetResultsFn = func(ctx context.Context, batchID string) ([]domain.BatchResult, error) {
		return []domain.BatchResult{{
			CorrelationKey: articleID.String(),
			Kind:           domain.BatchResultSucceeded,
			Content:        `{"title": "Ten Uses For Widgets", "content": "<p>Widgets.</p>"}`,
		}}, nil
	}

	event := eventWithPayload(t, domain.EventArticleGenerate, domain.GenerateArticlePayload{
		ArticleID: articleID,
		ProductID: productID,
	})
	result := env.steps.GenerateArticle(context.Background(), event)

	if !result.OK {
		t.Fatalf("expected success, got %s: %s", result.Code, result.Message)
	}
	if len(env.articles.StatusUpdates) != 1 || env.articles.StatusUpdates[0].Status != domain.ArticleGenerating {
		t.Errorf("expected GENERATING update, got %+v", env.articles.StatusUpdates)
	}
	if len(env.articles.Contents) != 1 {
		t.Fatalf("expected 1 content write, got %d", len(env.articles.Contents))
	}
	content := env.articles.Contents[0]
	if content.Title != "Ten Uses For Widgets" || content.Status != domain.ArticleReview {
		t.Errorf("unexpected content write: %+v", content)
	}
}

// Test: an article already in REVIEW is not regenerated.
func TestGenerateArticle_SkipGenerated(t *testing.T) {
	env := newStepsEnv(t)
	articleID := uuid.New()
	env.articles.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
		return &domain.Article{ArticleID: articleID, Status: domain.ArticleReview}, nil
	}

	event := eventWithPayload(t, domain.EventArticleGenerate, domain.GenerateArticlePayload{ArticleID: articleID, ProductID: uuid.New()})
	result := env.steps.GenerateArticle(context.Background(), event)

	if !result.OK {
		t.Fatalf("expected success, got %s", result.Message)
	}
	if len(env.batches.Submitted) != 0 {
		t.Errorf("expected no batch submission, got %d", len(env.batches.Submitted))
	}
}

// Test: an errored per-request result fails the step.
func TestGenerateArticle_ResultErrored(t *testing.T) {
	env := newStepsEnv(t)
	articleID := uuid.New()
	productID := uuid.New()
	env.articles.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
		return &domain.Article{ArticleID: articleID, ProductID: productID, Status: domain.ArticleDraft}, nil
	}
	env.products.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
		return &domain.Product{ProductID: productID, Name: "Widget"}, nil
	}
	env.batches.GetResultsFn = func(ctx context.Context, batchID string) ([]domain.BatchResult, error) {
		return []domain.BatchResult{{
			CorrelationKey: articleID.String(),
			Kind:           domain.BatchResultErrored,
			ErrorDetail:    "prompt too long",
		}}, nil
	}

	event := eventWithPayload(t, domain.EventArticleGenerate, domain.GenerateArticlePayload{ArticleID: articleID, ProductID: productID})
	result := env.steps.GenerateArticle(context.Background(), event)

	if result.OK {
		t.Fatal("expected failure")
	}
	if len(env.articles.Contents) != 0 {
		t.Errorf("expected no content write, got %d", len(env.articles.Contents))
	}
}

// Test: analysis creates the cluster, the planned articles and one
// generation follow-on per article.
func TestAnalyzeProduct_Success(t *testing.T) {
	env := newStepsEnv(t)
	productID := uuid.New()
	env.products.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
		return &domain.Product{ProductID: productID, Name: "Widget"}, nil
	}
	env.batches.GetResultsFn = func(ctx context.Context, batchID string) ([]domain.BatchResult, error) {
		return []domain.BatchResult{{
			CorrelationKey: "analysis-" + productID.String(),
			Kind:           domain.BatchResultSucceeded,
			Content: "```json\n" + `{"topic": "Widgets", "positioning": "premium",
				"articles": [{"title": "A", "keyword": "widget uses"}, {"title": "B", "keyword": "widget care"}]}` + "\n```",
		}}, nil
	}

	event := eventWithPayload(t, domain.EventProductAnalyze, domain.AnalyzeProductPayload{
		ProductID: productID,
		Mode:      domain.AnalyzeModeResearch,
	})
	result := env.steps.AnalyzeProduct(context.Background(), event)

	if !result.OK {
		t.Fatalf("expected success, got %s: %s", result.Code, result.Message)
	}
	if len(env.clusters.Created) != 1 || env.clusters.Created[0].Topic != "Widgets" {
		t.Errorf("unexpected clusters: %+v", env.clusters.Created)
	}
	if len(env.articles.Created) != 2 {
		t.Fatalf("expected 2 planned articles, got %d", len(env.articles.Created))
	}
	if env.articles.Created[0].Status != domain.ArticleDraft {
		t.Errorf("expected DRAFT articles, got %s", env.articles.Created[0].Status)
	}
	if len(env.products.Analyses) != 1 {
		t.Errorf("expected analysis stored, got %d", len(env.products.Analyses))
	}

	if len(result.FollowOn) != 2 {
		t.Fatalf("expected 2 follow-on events, got %d", len(result.FollowOn))
	}
	for _, ev := range result.FollowOn {
		if ev.Name != domain.EventArticleGenerate {
			t.Errorf("unexpected follow-on event: %s", ev.Name)
		}
	}
}

// Test: an empty content plan fails the analysis instead of producing an
// empty cluster.
func TestAnalyzeProduct_EmptyPlan(t *testing.T) {
	env := newStepsEnv(t)
	productID := uuid.New()
	env.products.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
		return &domain.Product{ProductID: productID, Name: "Widget"}, nil
	}
	env.batches.GetResultsFn = func(ctx context.Context, batchID string) ([]domain.BatchResult, error) {
		return []domain.BatchResult{{
			CorrelationKey: "analysis-" + productID.String(),
			Kind:           domain.BatchResultSucceeded,
			Content:        `{"topic": "Widgets", "articles": []}`,
		}}, nil
	}

	event := eventWithPayload(t, domain.EventProductAnalyze, domain.AnalyzeProductPayload{ProductID: productID})
	result := env.steps.AnalyzeProduct(context.Background(), event)

	if result.OK {
		t.Fatal("expected failure")
	}
	if len(env.clusters.Created) != 0 {
		t.Errorf("expected no cluster, got %d", len(env.clusters.Created))
	}
}

func activeSiteEnv(t *testing.T, env *stepsEnv, siteID uuid.UUID) {
	t.Helper()
	env.sites.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Site, error) {
		return &domain.Site{SiteID: siteID, URL: "https://myblog.example.app", Status: domain.SiteActive}, nil
	}
	encrypted, err := env.crypter.Seal("abcd EFGH 1234 ijkl")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	env.creds.GetBySiteFn = func(ctx context.Context, id uuid.UUID) (*domain.Credential, error) {
		return &domain.Credential{SiteID: siteID, Username: "admin", EncryptedPassword: encrypted}, nil
	}
}

// Test: publishing a reviewed article records the remote post.
func TestSyncPublish_Create(t *testing.T) {
	env := newStepsEnv(t)
	siteID := uuid.New()
	articleID := uuid.New()
	activeSiteEnv(t, env, siteID)
	env.articles.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
		return &domain.Article{ArticleID: articleID, Title: "A", Content: "<p>a</p>", Status: domain.ArticleReview}, nil
	}

	event := eventWithPayload(t, domain.EventPublishSync, domain.PublishSyncPayload{
		ArticleID: articleID,
		SiteID:    siteID,
		Action:    domain.PublishActionCreate,
	})
	result := env.steps.SyncPublish(context.Background(), event)

	if !result.OK {
		t.Fatalf("expected success, got %s: %s", result.Code, result.Message)
	}
	if env.postClient.CreateCalls != 1 {
		t.Errorf("expected 1 create call, got %d", env.postClient.CreateCalls)
	}
	if len(env.articles.RemotePosts) != 1 {
		t.Fatalf("expected 1 remote post record, got %d", len(env.articles.RemotePosts))
	}
	rp := env.articles.RemotePosts[0]
	if rp.PostID != 123 || rp.Status != domain.ArticlePublished {
		t.Errorf("unexpected remote post record: %+v", rp)
	}
}

// Test: a redelivered create for an already-published article is a no-op.
func TestSyncPublish_CreateSkipsPublished(t *testing.T) {
	env := newStepsEnv(t)
	siteID := uuid.New()
	articleID := uuid.New()
	activeSiteEnv(t, env, siteID)
	env.articles.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
		return &domain.Article{ArticleID: articleID, RemotePostID: 123, Status: domain.ArticlePublished}, nil
	}

	event := eventWithPayload(t, domain.EventPublishSync, domain.PublishSyncPayload{
		ArticleID: articleID,
		SiteID:    siteID,
		Action:    domain.PublishActionCreate,
	})
	result := env.steps.SyncPublish(context.Background(), event)

	if !result.OK {
		t.Fatalf("expected success, got %s", result.Message)
	}
	if env.postClient.CreateCalls != 0 {
		t.Errorf("expected no create calls, got %d", env.postClient.CreateCalls)
	}
}

// Test: delete clears the remote reference and archives the article.
func TestSyncPublish_Delete(t *testing.T) {
	env := newStepsEnv(t)
	siteID := uuid.New()
	articleID := uuid.New()
	activeSiteEnv(t, env, siteID)
	env.articles.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
		return &domain.Article{ArticleID: articleID, RemotePostID: 123, Status: domain.ArticlePublished}, nil
	}

	event := eventWithPayload(t, domain.EventPublishSync, domain.PublishSyncPayload{
		ArticleID: articleID,
		SiteID:    siteID,
		Action:    domain.PublishActionDelete,
	})
	result := env.steps.SyncPublish(context.Background(), event)

	if !result.OK {
		t.Fatalf("expected success, got %s: %s", result.Code, result.Message)
	}
	if env.postClient.DeleteCalls != 1 {
		t.Errorf("expected 1 delete call, got %d", env.postClient.DeleteCalls)
	}
	rp := env.articles.RemotePosts[0]
	if rp.PostID != 0 || rp.Status != domain.ArticleArchived {
		t.Errorf("unexpected remote post record: %+v", rp)
	}
}

// Test: publishing against a non-active site fails without touching the
// remote API.
func TestSyncPublish_SiteNotActive(t *testing.T) {
	env := newStepsEnv(t)
	siteID := uuid.New()
	articleID := uuid.New()
	env.sites.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Site, error) {
		return &domain.Site{SiteID: siteID, Status: domain.SiteProvisioning}, nil
	}
	env.articles.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
		return &domain.Article{ArticleID: articleID, Status: domain.ArticleReview}, nil
	}

	event := eventWithPayload(t, domain.EventPublishSync, domain.PublishSyncPayload{
		ArticleID: articleID,
		SiteID:    siteID,
		Action:    domain.PublishActionCreate,
	})
	result := env.steps.SyncPublish(context.Background(), event)

	if result.OK {
		t.Fatal("expected failure")
	}
	if env.postClient.CreateCalls != 0 {
		t.Errorf("expected no create calls, got %d", env.postClient.CreateCalls)
	}
}

// Test: a due schedule over a draft article emits a generation trigger
// and records the run.
func TestTriggerSchedule_DraftArticle(t *testing.T) {
	env := newStepsEnv(t)
	scheduleID := uuid.New()
	articleID := uuid.New()
	env.schedules.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
		return &domain.Schedule{ScheduleID: scheduleID, ArticleID: articleID, Action: domain.PublishActionCreate, Enabled: true}, nil
	}
	env.articles.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
		return &domain.Article{ArticleID: articleID, Status: domain.ArticleDraft}, nil
	}

	event := eventWithPayload(t, domain.EventScheduleTrigger, domain.ScheduleTriggerPayload{ScheduleID: scheduleID})
	result := env.steps.TriggerSchedule(context.Background(), event)

	if !result.OK {
		t.Fatalf("expected success, got %s", result.Message)
	}
	if len(result.FollowOn) != 1 || result.FollowOn[0].Name != domain.EventArticleGenerate {
		t.Errorf("expected generation follow-on, got %+v", result.FollowOn)
	}
	if len(env.schedules.MarkedRun) != 1 {
		t.Errorf("expected schedule marked run, got %d", len(env.schedules.MarkedRun))
	}
}

// Test: a reviewed article triggers the schedule's publish action instead.
func TestTriggerSchedule_ReviewedArticle(t *testing.T) {
	env := newStepsEnv(t)
	scheduleID := uuid.New()
	articleID := uuid.New()
	siteID := uuid.New()
	env.schedules.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
		return &domain.Schedule{ScheduleID: scheduleID, SiteID: siteID, ArticleID: articleID, Action: domain.PublishActionCreate, Enabled: true}, nil
	}
	env.articles.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
		return &domain.Article{ArticleID: articleID, Status: domain.ArticleReview}, nil
	}

	event := eventWithPayload(t, domain.EventScheduleTrigger, domain.ScheduleTriggerPayload{ScheduleID: scheduleID})
	result := env.steps.TriggerSchedule(context.Background(), event)

	if !result.OK {
		t.Fatalf("expected success, got %s", result.Message)
	}
	if len(result.FollowOn) != 1 || result.FollowOn[0].Name != domain.EventPublishSync {
		t.Errorf("expected publish follow-on, got %+v", result.FollowOn)
	}
}

// Test: a disabled schedule does nothing.
func TestTriggerSchedule_Disabled(t *testing.T) {
	env := newStepsEnv(t)
	scheduleID := uuid.New()
	env.schedules.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
		return &domain.Schedule{ScheduleID: scheduleID, Enabled: false}, nil
	}

	event := eventWithPayload(t, domain.EventScheduleTrigger, domain.ScheduleTriggerPayload{ScheduleID: scheduleID})
	result := env.steps.TriggerSchedule(context.Background(), event)

	if !result.OK {
		t.Fatalf("expected success, got %s", result.Message)
	}
	if len(result.FollowOn) != 0 {
		t.Errorf("expected no follow-on, got %d", len(result.FollowOn))
	}
	if len(env.schedules.MarkedRun) != 0 {
		t.Errorf("expected no run recorded, got %d", len(env.schedules.MarkedRun))
	}
}
