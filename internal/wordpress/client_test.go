package wordpress_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/wordpress"
)

// Test: create post hits the posts endpoint with basic auth and the JSON
// payload, and decodes the remote post.
func TestCreatePost(t *testing.T) {
	var gotInput wordpress.PostInput
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/posts" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "abcd EFGH" {
			t.Errorf("unexpected credentials: %s %s", user, pass)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotInput); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": 123, "link": "https://myblog.example.app/?p=123"})
	}))
	defer srv.Close()

	c := wordpress.NewClient(srv.URL, "admin", "abcd EFGH", zap.NewNop())
	post, err := c.CreatePost(context.Background(), &wordpress.PostInput{
		Title:   "Ten Uses For Widgets",
		Content: "<p>Widgets.</p>",
		Status:  "publish",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if post.ID != 123 {
		t.Errorf("expected post id 123, got %d", post.ID)
	}
	if gotInput.Status != "publish" {
		t.Errorf("expected publish status, got %q", gotInput.Status)
	}
}

// Test: non-2xx responses come back as APIError with status and body.
func TestCreatePost_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"incorrect_password"}`))
	}))
	defer srv.Close()

	c := wordpress.NewClient(srv.URL, "admin", "wrong", zap.NewNop())
	_, err := c.CreatePost(context.Background(), &wordpress.PostInput{Title: "x"})

	var apiErr *wordpress.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", apiErr.StatusCode)
	}
	if apiErr.ResponseBody != `{"code":"incorrect_password"}` {
		t.Errorf("unexpected body: %q", apiErr.ResponseBody)
	}
}

// Test: update targets the post's own path.
func TestUpdatePost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/posts/77" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 77, "link": "https://myblog.example.app/?p=77"})
	}))
	defer srv.Close()

	c := wordpress.NewClient(srv.URL, "admin", "abcd EFGH", zap.NewNop())
	post, err := c.UpdatePost(context.Background(), 77, &wordpress.PostInput{Title: "updated"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if post.ID != 77 {
		t.Errorf("expected post id 77, got %d", post.ID)
	}
}

// Test: delete bypasses the trash with force=true.
func TestDeletePost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/wp-json/wp/v2/posts/77" || r.URL.Query().Get("force") != "true" {
			t.Errorf("unexpected url: %s", r.URL.String())
		}
		w.Write([]byte(`{"deleted":true}`))
	}))
	defer srv.Close()

	c := wordpress.NewClient(srv.URL, "admin", "abcd EFGH", zap.NewNop())
	if err := c.DeletePost(context.Background(), 77); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// Test: media upload is multipart with the file's own content type, and
// the remote media id comes back.
func TestUploadMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/media" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "widgets.jpg" {
			t.Errorf("unexpected filename: %s", header.Filename)
		}
		if header.Header.Get("Content-Type") != "image/jpeg" {
			t.Errorf("unexpected part content type: %s", header.Header.Get("Content-Type"))
		}
		data, _ := io.ReadAll(file)
		if len(data) != 3 {
			t.Errorf("unexpected payload length: %d", len(data))
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": 456, "source_url": "https://myblog.example.app/wp-content/uploads/widgets.jpg"})
	}))
	defer srv.Close()

	c := wordpress.NewClient(srv.URL, "admin", "abcd EFGH", zap.NewNop())
	media, err := c.UploadMedia(context.Background(), []byte{0xff, 0xd8, 0xff}, "widgets.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if media.ID != 456 {
		t.Errorf("expected media id 456, got %d", media.ID)
	}
}
