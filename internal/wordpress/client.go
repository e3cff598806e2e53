// Package wordpress is a minimal client for the hosted site's own REST API,
// authenticated with that site's scoped application password.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"
)

// APIError is returned on any non-2xx response. StatusCode lets callers
// tell a rejected credential (401) apart from other failures.
type APIError struct {
	StatusCode   int
	ResponseBody string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wordpress: api error %d: %s", e.StatusCode, e.ResponseBody)
}

// Post is the remote representation returned by the posts endpoint.
type Post struct {
	ID   int    `json:"id"`
	Link string `json:"link"`
}

// Media is the remote representation returned by the media endpoint.
type Media struct {
	ID        int    `json:"id"`
	SourceURL string `json:"source_url"`
}

// PostInput is the payload for creating or updating a post.
type PostInput struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	Status        string `json:"status"`
	FeaturedMedia int    `json:"featured_media,omitempty"`
}

// Client talks to one site's wp-json surface with that site's credential.
type Client struct {
	siteURL    string
	username   string
	appPass    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a publishing client scoped to one site. The password
// is a WordPress application password, not the account password.
func NewClient(siteURL, username, appPass string, logger *zap.Logger) *Client {
	return &Client{
		siteURL:    strings.TrimRight(siteURL, "/"),
		username:   username,
		appPass:    appPass,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// CreatePost creates a post and returns its id and public link.
func (c *Client) CreatePost(ctx context.Context, input *PostInput) (*Post, error) {
	return c.writePost(ctx, http.MethodPost, c.siteURL+"/wp-json/wp/v2/posts", input)
}

// UpdatePost updates an existing post in place.
func (c *Client) UpdatePost(ctx context.Context, postID int, input *PostInput) (*Post, error) {
	url := fmt.Sprintf("%s/wp-json/wp/v2/posts/%d", c.siteURL, postID)
	return c.writePost(ctx, http.MethodPost, url, input)
}

// DeletePost removes a post, bypassing the trash.
func (c *Client) DeletePost(ctx context.Context, postID int) error {
	url := fmt.Sprintf("%s/wp-json/wp/v2/posts/%d?force=true", c.siteURL, postID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("wordpress: new request: %w", err)
	}
	req.SetBasicAuth(c.username, c.appPass)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("wordpress: delete post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readAPIError(resp)
	}
	return nil
}

// UploadMedia uploads a binary as a media item and returns its id and URL.
func (c *Client) UploadMedia(ctx context.Context, data []byte, filename, mimeType string) (*Media, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("wordpress: multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("wordpress: multipart write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("wordpress: multipart close: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.siteURL+"/wp-json/wp/v2/media", &body)
	if err != nil {
		return nil, fmt.Errorf("wordpress: new request: %w", err)
	}
	req.SetBasicAuth(c.username, c.appPass)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wordpress: upload media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readAPIError(resp)
	}

	var media Media
	if err := json.NewDecoder(resp.Body).Decode(&media); err != nil {
		return nil, fmt.Errorf("wordpress: decode media response: %w", err)
	}

	c.logger.Debug("media uploaded",
		zap.Int("media_id", media.ID),
		zap.String("filename", filename),
	)

	return &media, nil
}

func (c *Client) writePost(ctx context.Context, method, url string, input *PostInput) (*Post, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("wordpress: marshal post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("wordpress: new request: %w", err)
	}
	req.SetBasicAuth(c.username, c.appPass)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wordpress: write post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readAPIError(resp)
	}

	var post Post
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return nil, fmt.Errorf("wordpress: decode post response: %w", err)
	}
	return &post, nil
}

func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &APIError{
		StatusCode:   resp.StatusCode,
		ResponseBody: strings.TrimSpace(string(body)),
	}
}
