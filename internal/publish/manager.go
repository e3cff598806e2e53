// Package publish orchestrates "publish one article to one site" over the
// WordPress REST client.
package publish

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/domain"
	"github.com/pressmill/pressmill/internal/wordpress"
)

// PostClient is the subset of the WordPress client the manager needs.
// A new client is built per site with that site's credential.
type PostClient interface {
	CreatePost(ctx context.Context, input *wordpress.PostInput) (*wordpress.Post, error)
	UpdatePost(ctx context.Context, postID int, input *wordpress.PostInput) (*wordpress.Post, error)
	DeletePost(ctx context.Context, postID int) error
	UploadMedia(ctx context.Context, data []byte, filename, mimeType string) (*wordpress.Media, error)
}

// Success carries the outcome of a completed publish run.
type Success struct {
	PostID  int
	PostURL string
}

// Failure carries the classified reason publishing did not complete.
type Failure struct {
	Code    domain.ErrorCode
	Message string
}

// Result is a tagged union: exactly one of Data or Error is set.
type Result struct {
	OK    bool
	Data  *Success
	Error *Failure
}

func failure(code domain.ErrorCode, msg string) *Result {
	return &Result{OK: false, Error: &Failure{Code: code, Message: msg}}
}

// Manager publishes articles through a per-site PostClient.
type Manager struct {
	logger *zap.Logger
}

// NewManager creates a publishing manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

// Publish creates the article's remote post. If a featured image is
// present it is uploaded first; an upload failure aborts before any post
// is created, so a post never references a missing media item.
func (m *Manager) Publish(ctx context.Context, client PostClient, article *domain.Article) *Result {
	input := &wordpress.PostInput{
		Title:   article.Title,
		Content: article.Content,
		Status:  "publish",
	}

	if len(article.FeaturedImage) > 0 {
		media, err := client.UploadMedia(ctx, article.FeaturedImage, article.ImageFilename, article.ImageMimeType)
		if err != nil {
			m.logger.Warn("featured image upload failed",
				zap.String("article_id", article.ArticleID.String()),
				zap.Error(err),
			)
			return failure(domain.CodeUploadError, err.Error())
		}
		input.FeaturedMedia = media.ID
	}

	post, err := client.CreatePost(ctx, input)
	if err != nil {
		return classify(err)
	}

	return &Result{OK: true, Data: &Success{PostID: post.ID, PostURL: post.Link}}
}

// Update republishes the article's content into its existing remote post.
func (m *Manager) Update(ctx context.Context, client PostClient, article *domain.Article) *Result {
	input := &wordpress.PostInput{
		Title:   article.Title,
		Content: article.Content,
		Status:  "publish",
	}

	post, err := client.UpdatePost(ctx, article.RemotePostID, input)
	if err != nil {
		return classify(err)
	}
	return &Result{OK: true, Data: &Success{PostID: post.ID, PostURL: post.Link}}
}

// Delete removes the article's remote post.
func (m *Manager) Delete(ctx context.Context, client PostClient, article *domain.Article) *Result {
	if err := client.DeletePost(ctx, article.RemotePostID); err != nil {
		return classify(err)
	}
	return &Result{OK: true, Data: &Success{PostID: article.RemotePostID}}
}

// classify maps client errors into the tagged taxonomy: 401 and 403 mean
// the site credential was rejected, other API responses are API_ERROR, and
// anything else is UNKNOWN.
func classify(err error) *Result {
	var apiErr *wordpress.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return failure(domain.CodeAuthError, apiErr.Error())
		}
		return failure(domain.CodeAPIError, apiErr.Error())
	}
	return failure(domain.CodeUnknown, err.Error())
}
