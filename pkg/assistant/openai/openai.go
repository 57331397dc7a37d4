// Package openai implements pkg/assistant's Client against the OpenAI
// Assistants v2 API: one remote thread per conversation, one run per
// exchange.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aidm5e/aidm/pkg/assistant"
)

const (
	// DefaultBaseURL is the default OpenAI API URL.
	DefaultBaseURL = "https://api.openai.com"

	// DefaultPollInterval is the base interval between run status polls.
	DefaultPollInterval = time.Second

	// DefaultRunTimeout bounds how long WaitForRun keeps polling. The
	// original implementation polled forever and a hung run stalled the
	// handler indefinitely; the bound is not optional here.
	DefaultRunTimeout = 2 * time.Minute

	// maxPollInterval caps the backoff between polls.
	maxPollInterval = 10 * time.Second

	betaHeader = "assistants=v2"
)

// Client wraps the Assistants v2 HTTP endpoints.
type Client struct {
	baseURL      string
	apiKey       string
	assistantID  string
	pollInterval time.Duration
	runTimeout   time.Duration
	httpClient   *http.Client
}

// ClientConfig holds configuration for the OpenAI assistant client.
type ClientConfig struct {
	// BaseURL is the API URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the bearer token. Required.
	APIKey string

	// AssistantID is the assistant used for every run. Required.
	AssistantID string

	// PollInterval is the base run-poll interval. Defaults to
	// DefaultPollInterval if zero.
	PollInterval time.Duration

	// RunTimeout bounds WaitForRun. Defaults to DefaultRunTimeout if zero.
	RunTimeout time.Duration
}

// NewClient creates an Assistants v2 client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}
	if cfg.AssistantID == "" {
		return nil, fmt.Errorf("openai: assistant id is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	runTimeout := cfg.RunTimeout
	if runTimeout <= 0 {
		runTimeout = DefaultRunTimeout
	}

	return &Client{
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		assistantID:  cfg.AssistantID,
		pollInterval: pollInterval,
		runTimeout:   runTimeout,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// CreateConversation creates a remote thread seeded with an initial user
// message and returns the thread id.
func (c *Client) CreateConversation(ctx context.Context, seed string) (string, error) {
	body := createThreadRequest{
		Messages: []threadMessage{{Role: "user", Content: seed}},
	}

	var resp idResponse
	if err := c.post(ctx, "create conversation", "/v1/threads", body, &resp); err != nil {
		return "", err
	}

	if resp.ID == "" {
		return "", &assistant.RemoteError{Stage: "create conversation", Status: http.StatusOK, Body: "response carried no thread id"}
	}

	return resp.ID, nil
}

// PostMessage appends a user message to the thread.
func (c *Client) PostMessage(ctx context.Context, conversationID, text string) error {
	body := threadMessage{Role: "user", Content: text}
	path := fmt.Sprintf("/v1/threads/%s/messages", conversationID)
	return c.post(ctx, "post message", path, body, nil)
}

// StartRun triggers a run of the configured assistant over the thread.
func (c *Client) StartRun(ctx context.Context, conversationID string) (string, error) {
	body := startRunRequest{AssistantID: c.assistantID}
	path := fmt.Sprintf("/v1/threads/%s/runs", conversationID)

	var resp idResponse
	if err := c.post(ctx, "start run", path, body, &resp); err != nil {
		return "", err
	}

	if resp.ID == "" {
		return "", &assistant.RemoteError{Stage: "start run", Status: http.StatusOK, Body: "response carried no run id"}
	}

	return resp.ID, nil
}

// WaitForRun polls the run with capped exponential backoff until it
// leaves the queued/in-progress states or the configured timeout elapses.
func (c *Client) WaitForRun(ctx context.Context, conversationID, runID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.runTimeout)
	defer cancel()

	path := fmt.Sprintf("/v1/threads/%s/runs/%s", conversationID, runID)
	interval := c.pollInterval

	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("%w after %s", assistant.ErrRunTimeout, c.runTimeout)
			}
			return ctx.Err()
		case <-time.After(interval):
		}

		var status runStatusResponse
		if err := c.get(ctx, "poll run", path, &status); err != nil {
			return err
		}

		switch status.Status {
		case "queued", "in_progress":
			interval = min(interval*2, maxPollInterval)

		case "failed", "cancelled", "expired":
			detail := status.Status
			if status.LastError != nil && status.LastError.Message != "" {
				detail = fmt.Sprintf("%s: %s", status.Status, status.LastError.Message)
			}
			return fmt.Errorf("%w: %s", assistant.ErrRunFailed, detail)

		default:
			// completed, requires_action and anything the API grows later
			// are terminal for our purposes.
			return nil
		}
	}
}

// LatestReply fetches the most recent assistant message in the thread and
// flattens its text segments.
func (c *Client) LatestReply(ctx context.Context, conversationID string) (string, error) {
	path := fmt.Sprintf("/v1/threads/%s/messages", conversationID)

	var resp messagesResponse
	if err := c.get(ctx, "fetch reply", path, &resp); err != nil {
		return "", err
	}

	for _, msg := range resp.Data {
		if msg.Role != "assistant" {
			continue
		}
		var reply string
		for _, segment := range msg.Content {
			if segment.Type == "text" && segment.Text != nil {
				reply += segment.Text.Value
			}
		}
		return reply, nil
	}

	return "", nil
}

func (c *Client) post(ctx context.Context, stage, path string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: marshaling request: %w", stage, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", stage, err)
	}

	return c.do(stage, req, out)
}

func (c *Client) get(ctx context.Context, stage, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", stage, err)
	}

	return c.do(stage, req, out)
}

func (c *Client) do(stage string, req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", betaHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: sending request: %w", stage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &assistant.RemoteError{Stage: stage, Status: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", stage, err)
	}

	return nil
}

// Ensure Client implements assistant.Client
var _ assistant.Client = (*Client)(nil)
