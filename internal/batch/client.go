// Package batch submits content-generation requests to the Anthropic
// Message Batches API and maps results back to domain entities. Everything
// goes through the batch path, even single articles: per-token cost is
// materially lower and a stuck batch has a clean poll/cancel point that a
// hung synchronous call does not.
package batch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/domain"
)

const anthropicVersion = "2023-06-01"

// SubmissionError is returned when the provider rejects a batch outright
// (malformed request, quota, auth).
type SubmissionError struct {
	StatusCode int
	Body       string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("batch: submission rejected (%d): %s", e.StatusCode, e.Body)
}

// MappingError is returned when the result set's correlation keys are not
// exactly the submitted set. Unmatched keys are never silently dropped.
type MappingError struct {
	Missing    []string
	Unexpected []string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("batch: correlation key mismatch: missing=%v unexpected=%v", e.Missing, e.Unexpected)
}

// Client is a stateless client for the provider's batch surface; it is
// safe to share, but a given batch must be polled by only one workflow.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a batch inference client.
func NewClient(baseURL, apiKey, model string, maxTokens int, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		maxTokens:  maxTokens,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// ---- provider wire types ----

type batchCreateRequest struct {
	Requests []batchItem `json:"requests"`
}

type batchItem struct {
	CustomID string        `json:"custom_id"`
	Params   messageParams `json:"params"`
}

type messageParams struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type batchEnvelope struct {
	ID               string `json:"id"`
	ProcessingStatus string `json:"processing_status"`
	ResultsURL       string `json:"results_url"`
}

type resultLine struct {
	CustomID string `json:"custom_id"`
	Result   struct {
		Type    string `json:"type"`
		Message struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"message"`
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"result"`
}

// Submit sends all requests as one provider batch and returns the
// provider-assigned batch id.
func (c *Client) Submit(ctx context.Context, requests []domain.BatchRequest) (string, error) {
	if len(requests) == 0 {
		return "", &SubmissionError{Body: "empty batch"}
	}

	payload := batchCreateRequest{Requests: make([]batchItem, 0, len(requests))}
	for _, r := range requests {
		maxTokens := r.MaxTokens
		if maxTokens == 0 {
			maxTokens = c.maxTokens
		}
		payload.Requests = append(payload.Requests, batchItem{
			CustomID: r.CorrelationKey,
			Params: messageParams{
				Model:     c.model,
				MaxTokens: maxTokens,
				System:    r.System,
				Messages:  []chatMessage{{Role: "user", Content: r.Prompt}},
			},
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("batch: marshal request: %w", err)
	}

	var env batchEnvelope
	if err := c.do(ctx, http.MethodPost, "/v1/messages/batches", body, &env); err != nil {
		return "", err
	}

	c.logger.Info("batch submitted",
		zap.String("batch_id", env.ID),
		zap.Int("requests", len(requests)),
	)

	return env.ID, nil
}

// GetStatus returns the current lifecycle state of a batch. Polling loops
// belong to the caller, not the client.
func (c *Client) GetStatus(ctx context.Context, batchID string) (domain.BatchStatus, error) {
	var env batchEnvelope
	if err := c.do(ctx, http.MethodGet, "/v1/messages/batches/"+batchID, nil, &env); err != nil {
		return "", err
	}
	return domain.BatchStatus(env.ProcessingStatus), nil
}

// GetResults fetches per-request outcomes. Valid only once the batch has
// ended; calling earlier is a caller bug and returns an error.
func (c *Client) GetResults(ctx context.Context, batchID string) ([]domain.BatchResult, error) {
	var env batchEnvelope
	if err := c.do(ctx, http.MethodGet, "/v1/messages/batches/"+batchID, nil, &env); err != nil {
		return nil, err
	}
	if !domain.BatchStatus(env.ProcessingStatus).IsTerminal() {
		return nil, fmt.Errorf("batch: results requested before terminal state (status=%s)", env.ProcessingStatus)
	}
	if env.ResultsURL == "" {
		return nil, fmt.Errorf("batch: ended batch %s has no results url", batchID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.ResultsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("batch: new request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("batch: fetch results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("batch: fetch results %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return parseResults(resp.Body)
}

// parseResults decodes the provider's JSONL results stream.
func parseResults(r io.Reader) ([]domain.BatchResult, error) {
	var results []domain.BatchResult

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rl resultLine
		if err := json.Unmarshal(line, &rl); err != nil {
			return nil, fmt.Errorf("batch: decode result line: %w", err)
		}

		res := domain.BatchResult{
			CorrelationKey: rl.CustomID,
			Kind:           domain.BatchResultKind(rl.Result.Type),
		}
		switch res.Kind {
		case domain.BatchResultSucceeded:
			var sb strings.Builder
			for _, block := range rl.Result.Message.Content {
				if block.Type == "text" {
					sb.WriteString(block.Text)
				}
			}
			res.Content = sb.String()
		case domain.BatchResultErrored:
			res.ErrorDetail = rl.Result.Error.Message
		}
		results = append(results, res)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("batch: read results: %w", err)
	}

	return results, nil
}

// MapResults joins results back to the submitted correlation keys. The
// join must be a bijection: every submitted key appears exactly once in
// the results and no result carries an unknown key.
func MapResults(results []domain.BatchResult, submitted []string) (map[string]domain.BatchResult, error) {
	want := make(map[string]bool, len(submitted))
	for _, key := range submitted {
		want[key] = true
	}

	mapped := make(map[string]domain.BatchResult, len(results))
	var unexpected []string
	for _, res := range results {
		if !want[res.CorrelationKey] {
			unexpected = append(unexpected, res.CorrelationKey)
			continue
		}
		mapped[res.CorrelationKey] = res
	}

	var missing []string
	for _, key := range submitted {
		if _, ok := mapped[key]; !ok {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 || len(unexpected) > 0 {
		return nil, &MappingError{Missing: missing, Unexpected: unexpected}
	}
	return mapped, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("batch: new request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("batch: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if method == http.MethodPost {
			return &SubmissionError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
		}
		return fmt.Errorf("batch: %s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(respBody)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("batch: decode response: %w", err)
		}
	}
	return nil
}
