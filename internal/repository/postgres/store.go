package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pressmill/pressmill/internal/domain"
	"github.com/pressmill/pressmill/internal/repository"
)

// Postgres error codes we classify into domain errors.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// classifyPgError maps integrity-constraint failures onto the domain
// errors the orchestrator treats as fatal.
func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrConstraintViolation, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", domain.ErrConstraintViolation, pgErr.ConstraintName)
		}
	}
	return err
}

// ---- jobs ----

var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a PostgreSQL-backed job repository.
func NewJobRepository(pool *pgxpool.Pool) repository.JobRepository {
	return &jobRepo{pool: pool}
}

func (r *jobRepo) Create(ctx context.Context, job *domain.Job) error {
	query := `INSERT INTO jobs (job_id, kind, payload, status, retry_count, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query,
		job.JobID, job.Kind, job.Payload, job.Status, job.RetryCount, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create job: %w", classifyPgError(err))
	}
	return nil
}

func (r *jobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `SELECT job_id, kind, payload, status, retry_count, COALESCE(last_error, ''), created_at, updated_at
	          FROM jobs WHERE job_id = $1`
	var job domain.Job
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.JobID, &job.Kind, &job.Payload, &job.Status, &job.RetryCount,
		&job.LastError, &job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get job: %w", err)
	}
	return &job, nil
}

func (r *jobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus, lastError string) error {
	query := `UPDATE jobs SET status = $1, last_error = NULLIF($2, ''), updated_at = $3 WHERE job_id = $4`
	tag, err := r.pool.Exec(ctx, query, status, lastError, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("postgres: update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *jobRepo) IncrementRetry(ctx context.Context, id uuid.UUID) (int, error) {
	query := `UPDATE jobs SET retry_count = retry_count + 1, updated_at = $1 WHERE job_id = $2 RETURNING retry_count`
	var count int
	err := r.pool.QueryRow(ctx, query, time.Now().UTC(), id).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrJobNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: increment retry: %w", err)
	}
	return count, nil
}

// ---- sites ----

var _ repository.SiteRepository = (*siteRepo)(nil)

type siteRepo struct {
	pool *pgxpool.Pool
}

// NewSiteRepository creates a PostgreSQL-backed site repository.
func NewSiteRepository(pool *pgxpool.Pool) repository.SiteRepository {
	return &siteRepo{pool: pool}
}

func (r *siteRepo) Create(ctx context.Context, site *domain.Site) error {
	query := `INSERT INTO sites (site_id, user_id, slug, title, theme, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, query,
		site.SiteID, site.UserID, site.Slug, site.Title, site.Theme, site.Status,
		site.CreatedAt, site.UpdatedAt,
	)
	if err != nil {
		err = classifyPgError(err)
		if errors.Is(err, domain.ErrConstraintViolation) {
			return fmt.Errorf("%w: %s", domain.ErrSlugTaken, site.Slug)
		}
		return fmt.Errorf("postgres: create site: %w", err)
	}
	return nil
}

func (r *siteRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Site, error) {
	query := `SELECT site_id, user_id, slug, title, COALESCE(url, ''), COALESCE(remote_site_id, 0),
	                 COALESCE(theme, ''), status, created_at, updated_at
	          FROM sites WHERE site_id = $1`
	var site domain.Site
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&site.SiteID, &site.UserID, &site.Slug, &site.Title, &site.URL, &site.RemoteSiteID,
		&site.Theme, &site.Status, &site.CreatedAt, &site.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSiteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get site: %w", err)
	}
	return &site, nil
}

func (r *siteRepo) SlugExists(ctx context.Context, slug string, excluding uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM sites WHERE slug = $1 AND site_id <> $2 AND status <> 'DELETED')`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, slug, excluding).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres: slug exists: %w", err)
	}
	return exists, nil
}

func (r *siteRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.SiteStatus) error {
	query := `UPDATE sites SET status = $1, updated_at = $2 WHERE site_id = $3`
	tag, err := r.pool.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("postgres: update site status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSiteNotFound
	}
	return nil
}

func (r *siteRepo) SetProvisioned(ctx context.Context, id uuid.UUID, remoteSiteID int, url string) error {
	query := `UPDATE sites SET remote_site_id = $1, url = $2, status = $3, updated_at = $4 WHERE site_id = $5`
	tag, err := r.pool.Exec(ctx, query, remoteSiteID, url, domain.SiteActive, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("postgres: set provisioned: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSiteNotFound
	}
	return nil
}

// ---- credentials ----

var _ repository.CredentialRepository = (*credentialRepo)(nil)

type credentialRepo struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository creates a PostgreSQL-backed credential repository.
func NewCredentialRepository(pool *pgxpool.Pool) repository.CredentialRepository {
	return &credentialRepo{pool: pool}
}

func (r *credentialRepo) Upsert(ctx context.Context, cred *domain.Credential) error {
	// One credential per site: rotation replaces the row.
	query := `INSERT INTO credentials (credential_id, site_id, username, encrypted_password, created_at)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (site_id) DO UPDATE
	          SET username = EXCLUDED.username,
	              encrypted_password = EXCLUDED.encrypted_password,
	              created_at = EXCLUDED.created_at`
	_, err := r.pool.Exec(ctx, query,
		cred.CredentialID, cred.SiteID, cred.Username, cred.EncryptedPassword, cred.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert credential: %w", classifyPgError(err))
	}
	return nil
}

func (r *credentialRepo) GetBySite(ctx context.Context, siteID uuid.UUID) (*domain.Credential, error) {
	query := `SELECT credential_id, site_id, username, encrypted_password, created_at
	          FROM credentials WHERE site_id = $1`
	var cred domain.Credential
	err := r.pool.QueryRow(ctx, query, siteID).Scan(
		&cred.CredentialID, &cred.SiteID, &cred.Username, &cred.EncryptedPassword, &cred.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get credential: %w", err)
	}
	return &cred, nil
}

// ---- articles ----

var _ repository.ArticleRepository = (*articleRepo)(nil)

type articleRepo struct {
	pool *pgxpool.Pool
}

// NewArticleRepository creates a PostgreSQL-backed article repository.
func NewArticleRepository(pool *pgxpool.Pool) repository.ArticleRepository {
	return &articleRepo{pool: pool}
}

func (r *articleRepo) Create(ctx context.Context, article *domain.Article) error {
	query := `INSERT INTO articles (article_id, product_id, cluster_id, title, target_keyword,
	                                featured_image, image_filename, image_mime_type,
	                                status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.pool.Exec(ctx, query,
		article.ArticleID, article.ProductID, article.ClusterID, article.Title,
		article.TargetKeyword, article.FeaturedImage, article.ImageFilename, article.ImageMimeType,
		article.Status, article.CreatedAt, article.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create article: %w", classifyPgError(err))
	}
	return nil
}

func (r *articleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	query := `SELECT article_id, product_id, cluster_id, title, target_keyword, COALESCE(content, ''),
	                 featured_image, COALESCE(image_filename, ''), COALESCE(image_mime_type, ''),
	                 COALESCE(remote_post_id, 0), COALESCE(remote_post_url, ''), status, created_at, updated_at
	          FROM articles WHERE article_id = $1`
	var article domain.Article
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&article.ArticleID, &article.ProductID, &article.ClusterID, &article.Title,
		&article.TargetKeyword, &article.Content, &article.FeaturedImage,
		&article.ImageFilename, &article.ImageMimeType,
		&article.RemotePostID, &article.RemotePostURL,
		&article.Status, &article.CreatedAt, &article.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrArticleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get article: %w", err)
	}
	return &article, nil
}

func (r *articleRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ArticleStatus) error {
	query := `UPDATE articles SET status = $1, updated_at = $2 WHERE article_id = $3`
	tag, err := r.pool.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("postgres: update article status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}

func (r *articleRepo) SetContent(ctx context.Context, id uuid.UUID, title, content string, status domain.ArticleStatus) error {
	query := `UPDATE articles SET title = $1, content = $2, status = $3, updated_at = $4 WHERE article_id = $5`
	tag, err := r.pool.Exec(ctx, query, title, content, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("postgres: set article content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}

func (r *articleRepo) SetRemotePost(ctx context.Context, id uuid.UUID, postID int, postURL string, status domain.ArticleStatus) error {
	query := `UPDATE articles SET remote_post_id = $1, remote_post_url = $2, status = $3, updated_at = $4 WHERE article_id = $5`
	tag, err := r.pool.Exec(ctx, query, postID, postURL, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("postgres: set remote post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}

// ---- products ----

var _ repository.ProductRepository = (*productRepo)(nil)

type productRepo struct {
	pool *pgxpool.Pool
}

// NewProductRepository creates a PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool) repository.ProductRepository {
	return &productRepo{pool: pool}
}

func (r *productRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT product_id, user_id, site_id, name, COALESCE(url, ''), COALESCE(analysis, ''), created_at, updated_at
	          FROM products WHERE product_id = $1`
	var product domain.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&product.ProductID, &product.UserID, &product.SiteID, &product.Name,
		&product.URL, &product.Analysis, &product.CreatedAt, &product.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get product: %w", err)
	}
	return &product, nil
}

func (r *productRepo) SetAnalysis(ctx context.Context, id uuid.UUID, analysis string) error {
	query := `UPDATE products SET analysis = $1, updated_at = $2 WHERE product_id = $3`
	tag, err := r.pool.Exec(ctx, query, analysis, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("postgres: set analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// ---- clusters ----

var _ repository.ClusterRepository = (*clusterRepo)(nil)

type clusterRepo struct {
	pool *pgxpool.Pool
}

// NewClusterRepository creates a PostgreSQL-backed cluster repository.
func NewClusterRepository(pool *pgxpool.Pool) repository.ClusterRepository {
	return &clusterRepo{pool: pool}
}

func (r *clusterRepo) Create(ctx context.Context, cluster *domain.Cluster) error {
	query := `INSERT INTO clusters (cluster_id, product_id, topic, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, cluster.ClusterID, cluster.ProductID, cluster.Topic, cluster.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: create cluster: %w", classifyPgError(err))
	}
	return nil
}

// ---- schedules ----

var _ repository.ScheduleRepository = (*scheduleRepo)(nil)

type scheduleRepo struct {
	pool *pgxpool.Pool
}

// NewScheduleRepository creates a PostgreSQL-backed schedule repository.
func NewScheduleRepository(pool *pgxpool.Pool) repository.ScheduleRepository {
	return &scheduleRepo{pool: pool}
}

func (r *scheduleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	query := `SELECT schedule_id, site_id, action, article_id, next_run_at, interval_hr, enabled
	          FROM schedules WHERE schedule_id = $1`
	var s domain.Schedule
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ScheduleID, &s.SiteID, &s.Action, &s.ArticleID, &s.NextRunAt, &s.IntervalHr, &s.Enabled,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get schedule: %w", err)
	}
	return &s, nil
}

func (r *scheduleRepo) ListDue(ctx context.Context) ([]*domain.Schedule, error) {
	query := `SELECT schedule_id, site_id, action, article_id, next_run_at, interval_hr, enabled
	          FROM schedules WHERE enabled AND next_run_at <= NOW()`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list due schedules: %w", err)
	}
	defer rows.Close()

	var due []*domain.Schedule
	for rows.Next() {
		var s domain.Schedule
		if err := rows.Scan(&s.ScheduleID, &s.SiteID, &s.Action, &s.ArticleID, &s.NextRunAt, &s.IntervalHr, &s.Enabled); err != nil {
			return nil, fmt.Errorf("postgres: scan schedule: %w", err)
		}
		due = append(due, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate schedules: %w", err)
	}
	return due, nil
}

func (r *scheduleRepo) MarkRun(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE schedules SET next_run_at = NOW() + make_interval(hours => interval_hr) WHERE schedule_id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres: mark schedule run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}
