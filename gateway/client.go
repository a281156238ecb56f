package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Headers forwarded verbatim from the inbound run request to the upstream
// agent service, so upstream sees the caller's auth and session identity.
var forwardedHeaders = []string{"Authorization", "Cookie", "X-Session-Id", "X-User-Id"}

// UpstreamClient opens streaming run connections against the agent service.
type UpstreamClient struct {
	baseURL    string
	httpClient *http.Client
}

type UpstreamOption func(*UpstreamClient)

func WithHTTPClient(h *http.Client) UpstreamOption {
	return func(c *UpstreamClient) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func NewUpstreamClient(baseURL string, opts ...UpstreamOption) (*UpstreamClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("upstream base URL is required")
	}
	c := &UpstreamClient{
		baseURL: baseURL,
		// No overall timeout: the response body is a long-lived stream.
		// Cancellation comes from the request context instead.
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// StreamRequest describes one upstream run invocation.
type StreamRequest struct {
	AppName   string
	UserID    string
	SessionID string
	Text      string
	ThreadID  string
	RunID     string

	// Forward carries the inbound request headers to copy upstream.
	Forward http.Header
}

type upstreamRunBody struct {
	AppName    string          `json:"app_name,omitempty"`
	UserID     string          `json:"user_id,omitempty"`
	SessionID  string          `json:"session_id"`
	NewMessage upstreamMessage `json:"new_message"`
	Streaming  bool            `json:"streaming"`
	Metadata   runMetadata     `json:"metadata"`
}

type upstreamMessage struct {
	Role  string     `json:"role"`
	Parts []textPart `json:"parts"`
}

type textPart struct {
	Text string `json:"text"`
}

type runMetadata struct {
	ClientRunID    string `json:"client_run_id,omitempty"`
	ClientThreadID string `json:"client_thread_id,omitempty"`
}

// OpenStream POSTs a run to the upstream streaming endpoint and returns the
// response with its body still open. The caller owns closing the body; the
// passed context cancels the stream when the client goes away.
func (c *UpstreamClient) OpenStream(ctx context.Context, req StreamRequest) (*http.Response, error) {
	body := upstreamRunBody{
		AppName:   req.AppName,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		NewMessage: upstreamMessage{
			Role:  "user",
			Parts: []textPart{{Text: req.Text}},
		},
		Streaming: true,
		Metadata: runMetadata{
			ClientRunID:    req.RunID,
			ClientThreadID: req.ThreadID,
		},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upstream run request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/run_sse", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream run request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	for _, name := range forwardedHeaders {
		if value := req.Forward.Get(name); value != "" {
			httpReq.Header.Set(name, value)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	return resp, nil
}
