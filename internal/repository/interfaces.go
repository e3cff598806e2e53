package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/pressmill/pressmill/internal/domain"
)

// JobRepository persists orchestrated jobs. Jobs are append-and-update
// only; nothing deletes them, the table is the audit trail.
type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus, lastError string) error
	IncrementRetry(ctx context.Context, id uuid.UUID) (int, error)
}

// SiteRepository persists hosted site records. Slug carries a uniqueness
// constraint; violations surface as domain.ErrSlugTaken.
type SiteRepository interface {
	Create(ctx context.Context, site *domain.Site) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Site, error)
	// SlugExists reports whether any site other than excluding holds the
	// slug; pass uuid.Nil to check against every site.
	SlugExists(ctx context.Context, slug string, excluding uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.SiteStatus) error
	SetProvisioned(ctx context.Context, id uuid.UUID, remoteSiteID int, url string) error
}

// CredentialRepository stores site-scoped credentials, one per site,
// rotated by replacement rather than merged.
type CredentialRepository interface {
	Upsert(ctx context.Context, cred *domain.Credential) error
	GetBySite(ctx context.Context, siteID uuid.UUID) (*domain.Credential, error)
}

// ArticleRepository persists content entities across the generation and
// publish workflows.
type ArticleRepository interface {
	Create(ctx context.Context, article *domain.Article) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Article, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ArticleStatus) error
	SetContent(ctx context.Context, id uuid.UUID, title, content string, status domain.ArticleStatus) error
	SetRemotePost(ctx context.Context, id uuid.UUID, postID int, postURL string, status domain.ArticleStatus) error
}

// ProductRepository persists products and their analysis output.
type ProductRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	SetAnalysis(ctx context.Context, id uuid.UUID, analysis string) error
}

// ClusterRepository persists topic clusters produced by product analysis.
type ClusterRepository interface {
	Create(ctx context.Context, cluster *domain.Cluster) error
}

// ScheduleRepository drives the timer-based trigger loop.
type ScheduleRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error)
	ListDue(ctx context.Context) ([]*domain.Schedule, error)
	MarkRun(ctx context.Context, id uuid.UUID) error
}

// IdempotencyStore provides distributed deduplication locks so redelivered
// events do not run the same step twice concurrently.
type IdempotencyStore interface {
	// AcquireLock returns true if this delivery is the first, false for a
	// duplicate already being processed.
	AcquireLock(ctx context.Context, key string) (bool, error)

	// ReleaseLock marks the key processed with a TTL for eventual cleanup.
	ReleaseLock(ctx context.Context, key string) error
}
