package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/pressmill/pressmill/internal/domain"
	"github.com/pressmill/pressmill/internal/repository"
)

// ---- JobRepository mock ----

var _ repository.JobRepository = (*JobRepository)(nil)

// JobRepository is a test double for repository.JobRepository.
type JobRepository struct {
	mu sync.Mutex

	CreateFn         func(ctx context.Context, job *domain.Job) error
	GetByIDFn        func(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	UpdateStatusFn   func(ctx context.Context, id uuid.UUID, status domain.JobStatus, lastError string) error
	IncrementRetryFn func(ctx context.Context, id uuid.UUID) (int, error)

	Created       []*domain.Job
	StatusUpdates []JobStatusUpdate
	retries       map[uuid.UUID]int
}

type JobStatusUpdate struct {
	ID        uuid.UUID
	Status    domain.JobStatus
	LastError string
}

func (m *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	m.mu.Lock()
	m.Created = append(m.Created, job)
	m.mu.Unlock()
	if m.CreateFn != nil {
		return m.CreateFn(ctx, job)
	}
	return nil
}

func (m *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, domain.ErrJobNotFound
}

func (m *JobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus, lastError string) error {
	m.mu.Lock()
	m.StatusUpdates = append(m.StatusUpdates, JobStatusUpdate{ID: id, Status: status, LastError: lastError})
	m.mu.Unlock()
	if m.UpdateStatusFn != nil {
		return m.UpdateStatusFn(ctx, id, status, lastError)
	}
	return nil
}

func (m *JobRepository) IncrementRetry(ctx context.Context, id uuid.UUID) (int, error) {
	if m.IncrementRetryFn != nil {
		return m.IncrementRetryFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.retries == nil {
		m.retries = make(map[uuid.UUID]int)
	}
	m.retries[id]++
	return m.retries[id], nil
}

// LastStatus returns the most recent status recorded for assertions.
func (m *JobRepository) LastStatus() (JobStatusUpdate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.StatusUpdates) == 0 {
		return JobStatusUpdate{}, false
	}
	return m.StatusUpdates[len(m.StatusUpdates)-1], true
}

// ---- SiteRepository mock ----

var _ repository.SiteRepository = (*SiteRepository)(nil)

// SiteRepository is a test double for repository.SiteRepository.
type SiteRepository struct {
	mu sync.Mutex

	CreateFn         func(ctx context.Context, site *domain.Site) error
	GetByIDFn        func(ctx context.Context, id uuid.UUID) (*domain.Site, error)
	SlugExistsFn     func(ctx context.Context, slug string, excluding uuid.UUID) (bool, error)
	UpdateStatusFn   func(ctx context.Context, id uuid.UUID, status domain.SiteStatus) error
	SetProvisionedFn func(ctx context.Context, id uuid.UUID, remoteSiteID int, url string) error

	Created       []*domain.Site
	StatusUpdates []SiteStatusUpdate
	Provisioned   []ProvisionedUpdate
}

type SiteStatusUpdate struct {
	ID     uuid.UUID
	Status domain.SiteStatus
}

type ProvisionedUpdate struct {
	ID           uuid.UUID
	RemoteSiteID int
	URL          string
}

func (m *SiteRepository) Create(ctx context.Context, site *domain.Site) error {
	m.mu.Lock()
	m.Created = append(m.Created, site)
	m.mu.Unlock()
	if m.CreateFn != nil {
		return m.CreateFn(ctx, site)
	}
	return nil
}

func (m *SiteRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Site, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, domain.ErrSiteNotFound
}

func (m *SiteRepository) SlugExists(ctx context.Context, slug string, excluding uuid.UUID) (bool, error) {
	if m.SlugExistsFn != nil {
		return m.SlugExistsFn(ctx, slug, excluding)
	}
	return false, nil
}

func (m *SiteRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.SiteStatus) error {
	m.mu.Lock()
	m.StatusUpdates = append(m.StatusUpdates, SiteStatusUpdate{ID: id, Status: status})
	m.mu.Unlock()
	if m.UpdateStatusFn != nil {
		return m.UpdateStatusFn(ctx, id, status)
	}
	return nil
}

func (m *SiteRepository) SetProvisioned(ctx context.Context, id uuid.UUID, remoteSiteID int, url string) error {
	m.mu.Lock()
	m.Provisioned = append(m.Provisioned, ProvisionedUpdate{ID: id, RemoteSiteID: remoteSiteID, URL: url})
	m.mu.Unlock()
	if m.SetProvisionedFn != nil {
		return m.SetProvisionedFn(ctx, id, remoteSiteID, url)
	}
	return nil
}

// ---- CredentialRepository mock ----

var _ repository.CredentialRepository = (*CredentialRepository)(nil)

// CredentialRepository is a test double for repository.CredentialRepository.
type CredentialRepository struct {
	mu sync.Mutex

	UpsertFn    func(ctx context.Context, cred *domain.Credential) error
	GetBySiteFn func(ctx context.Context, siteID uuid.UUID) (*domain.Credential, error)

	Upserted []*domain.Credential
}

func (m *CredentialRepository) Upsert(ctx context.Context, cred *domain.Credential) error {
	m.mu.Lock()
	m.Upserted = append(m.Upserted, cred)
	m.mu.Unlock()
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, cred)
	}
	return nil
}

func (m *CredentialRepository) GetBySite(ctx context.Context, siteID uuid.UUID) (*domain.Credential, error) {
	if m.GetBySiteFn != nil {
		return m.GetBySiteFn(ctx, siteID)
	}
	return nil, domain.ErrCredentialNotFound
}

// ---- ArticleRepository mock ----

var _ repository.ArticleRepository = (*ArticleRepository)(nil)

// ArticleRepository is a test double for repository.ArticleRepository.
type ArticleRepository struct {
	mu sync.Mutex

	CreateFn        func(ctx context.Context, article *domain.Article) error
	GetByIDFn       func(ctx context.Context, id uuid.UUID) (*domain.Article, error)
	UpdateStatusFn  func(ctx context.Context, id uuid.UUID, status domain.ArticleStatus) error
	SetContentFn    func(ctx context.Context, id uuid.UUID, title, content string, status domain.ArticleStatus) error
	SetRemotePostFn func(ctx context.Context, id uuid.UUID, postID int, postURL string, status domain.ArticleStatus) error

	Created       []*domain.Article
	StatusUpdates []ArticleStatusUpdate
	Contents      []ContentUpdate
	RemotePosts   []RemotePostUpdate
}

type ArticleStatusUpdate struct {
	ID     uuid.UUID
	Status domain.ArticleStatus
}

type ContentUpdate struct {
	ID      uuid.UUID
	Title   string
	Content string
	Status  domain.ArticleStatus
}

type RemotePostUpdate struct {
	ID      uuid.UUID
	PostID  int
	PostURL string
	Status  domain.ArticleStatus
}

func (m *ArticleRepository) Create(ctx context.Context, article *domain.Article) error {
	m.mu.Lock()
	m.Created = append(m.Created, article)
	m.mu.Unlock()
	if m.CreateFn != nil {
		return m.CreateFn(ctx, article)
	}
	return nil
}

func (m *ArticleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, domain.ErrArticleNotFound
}

func (m *ArticleRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ArticleStatus) error {
	m.mu.Lock()
	m.StatusUpdates = append(m.StatusUpdates, ArticleStatusUpdate{ID: id, Status: status})
	m.mu.Unlock()
	if m.UpdateStatusFn != nil {
		return m.UpdateStatusFn(ctx, id, status)
	}
	return nil
}

func (m *ArticleRepository) SetContent(ctx context.Context, id uuid.UUID, title, content string, status domain.ArticleStatus) error {
	m.mu.Lock()
	m.Contents = append(m.Contents, ContentUpdate{ID: id, Title: title, Content: content, Status: status})
	m.mu.Unlock()
	if m.SetContentFn != nil {
		return m.SetContentFn(ctx, id, title, content, status)
	}
	return nil
}

func (m *ArticleRepository) SetRemotePost(ctx context.Context, id uuid.UUID, postID int, postURL string, status domain.ArticleStatus) error {
	m.mu.Lock()
	m.RemotePosts = append(m.RemotePosts, RemotePostUpdate{ID: id, PostID: postID, PostURL: postURL, Status: status})
	m.mu.Unlock()
	if m.SetRemotePostFn != nil {
		return m.SetRemotePostFn(ctx, id, postID, postURL, status)
	}
	return nil
}

// ---- ProductRepository mock ----

var _ repository.ProductRepository = (*ProductRepository)(nil)

// ProductRepository is a test double for repository.ProductRepository.
type ProductRepository struct {
	mu sync.Mutex

	GetByIDFn     func(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	SetAnalysisFn func(ctx context.Context, id uuid.UUID, analysis string) error

	Analyses []AnalysisUpdate
}

type AnalysisUpdate struct {
	ID       uuid.UUID
	Analysis string
}

func (m *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, domain.ErrProductNotFound
}

func (m *ProductRepository) SetAnalysis(ctx context.Context, id uuid.UUID, analysis string) error {
	m.mu.Lock()
	m.Analyses = append(m.Analyses, AnalysisUpdate{ID: id, Analysis: analysis})
	m.mu.Unlock()
	if m.SetAnalysisFn != nil {
		return m.SetAnalysisFn(ctx, id, analysis)
	}
	return nil
}

// ---- ClusterRepository mock ----

var _ repository.ClusterRepository = (*ClusterRepository)(nil)

// ClusterRepository is a test double for repository.ClusterRepository.
type ClusterRepository struct {
	mu sync.Mutex

	CreateFn func(ctx context.Context, cluster *domain.Cluster) error

	Created []*domain.Cluster
}

func (m *ClusterRepository) Create(ctx context.Context, cluster *domain.Cluster) error {
	m.mu.Lock()
	m.Created = append(m.Created, cluster)
	m.mu.Unlock()
	if m.CreateFn != nil {
		return m.CreateFn(ctx, cluster)
	}
	return nil
}

// ---- ScheduleRepository mock ----

var _ repository.ScheduleRepository = (*ScheduleRepository)(nil)

// ScheduleRepository is a test double for repository.ScheduleRepository.
type ScheduleRepository struct {
	mu sync.Mutex

	GetByIDFn func(ctx context.Context, id uuid.UUID) (*domain.Schedule, error)
	ListDueFn func(ctx context.Context) ([]*domain.Schedule, error)
	MarkRunFn func(ctx context.Context, id uuid.UUID) error

	MarkedRun []uuid.UUID
}

func (m *ScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, domain.ErrScheduleNotFound
}

func (m *ScheduleRepository) ListDue(ctx context.Context) ([]*domain.Schedule, error) {
	if m.ListDueFn != nil {
		return m.ListDueFn(ctx)
	}
	return nil, nil
}

func (m *ScheduleRepository) MarkRun(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	m.MarkedRun = append(m.MarkedRun, id)
	m.mu.Unlock()
	if m.MarkRunFn != nil {
		return m.MarkRunFn(ctx, id)
	}
	return nil
}

// ---- IdempotencyStore mock ----

var _ repository.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore is a test double for repository.IdempotencyStore.
type IdempotencyStore struct {
	mu sync.Mutex

	AcquireLockFn func(ctx context.Context, key string) (bool, error)
	ReleaseLockFn func(ctx context.Context, key string) error

	AcquireCalls []string
	ReleaseCalls []string
}

func (m *IdempotencyStore) AcquireLock(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	m.AcquireCalls = append(m.AcquireCalls, key)
	m.mu.Unlock()
	if m.AcquireLockFn != nil {
		return m.AcquireLockFn(ctx, key)
	}
	return true, nil // default: lock acquired
}

func (m *IdempotencyStore) ReleaseLock(ctx context.Context, key string) error {
	m.mu.Lock()
	m.ReleaseCalls = append(m.ReleaseCalls, key)
	m.mu.Unlock()
	if m.ReleaseLockFn != nil {
		return m.ReleaseLockFn(ctx, key)
	}
	return nil
}
