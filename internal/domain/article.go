package domain

import (
	"time"

	"github.com/google/uuid"
)

// ArticleStatus represents the lifecycle state of a content entity.
type ArticleStatus string

const (
	ArticleDraft      ArticleStatus = "DRAFT"
	ArticleGenerating ArticleStatus = "GENERATING"
	ArticleReview     ArticleStatus = "REVIEW"
	ArticleFailed     ArticleStatus = "FAILED"
	ArticlePublished  ArticleStatus = "PUBLISHED"
	ArticleArchived   ArticleStatus = "ARCHIVED"
)

// Article is a single piece of planned or generated content. Content is
// filled in by the generation workflow; the remote post id and URL are set
// by the publish workflow.
type Article struct {
	ArticleID     uuid.UUID     `json:"article_id"`
	ProductID     uuid.UUID     `json:"product_id"`
	ClusterID     *uuid.UUID    `json:"cluster_id,omitempty"`
	Title         string        `json:"title"`
	TargetKeyword string        `json:"target_keyword"`
	Content       string        `json:"content,omitempty"`
	FeaturedImage []byte        `json:"-"`
	ImageFilename string        `json:"image_filename,omitempty"`
	ImageMimeType string        `json:"image_mime_type,omitempty"`
	RemotePostID  int           `json:"remote_post_id,omitempty"`
	RemotePostURL string        `json:"remote_post_url,omitempty"`
	Status        ArticleStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Product is the thing articles are written about. Analysis output
// (positioning, audience, tone) is stored as a JSON document.
type Product struct {
	ProductID uuid.UUID `json:"product_id"`
	UserID    uuid.UUID `json:"user_id"`
	SiteID    uuid.UUID `json:"site_id"`
	Name      string    `json:"name"`
	URL       string    `json:"url,omitempty"`
	Analysis  string    `json:"analysis,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cluster groups planned articles around a topic produced by one analysis run.
type Cluster struct {
	ClusterID uuid.UUID `json:"cluster_id"`
	ProductID uuid.UUID `json:"product_id"`
	Topic     string    `json:"topic"`
	CreatedAt time.Time `json:"created_at"`
}

// Schedule drives recurring generation or publishing without user action.
// The timer emits the same events a manual trigger would.
type Schedule struct {
	ScheduleID uuid.UUID     `json:"schedule_id"`
	SiteID     uuid.UUID     `json:"site_id"`
	Action     PublishAction `json:"action"`
	ArticleID  uuid.UUID     `json:"article_id"`
	NextRunAt  time.Time     `json:"next_run_at"`
	IntervalHr int           `json:"interval_hr"`
	Enabled    bool          `json:"enabled"`
}
