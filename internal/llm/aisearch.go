package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrorBody bounds how much of an upstream error body is kept in the error.
const maxErrorBody = 512

// Message is a role/content pair in the shape the provider expects.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the body sent to the chat-completions endpoint.
type ChatCompletionRequest struct {
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// ChatCompleter opens a chat-completion stream against one AI Search instance.
// The returned reader is the raw provider stream; the caller must close it.
// A nil reader with a nil error means the provider answered without a body.
type ChatCompleter interface {
	ChatCompletions(ctx context.Context, searchID string, req *ChatCompletionRequest) (io.ReadCloser, error)
}

// StatusError is returned when the provider answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api returned non-2xx status %d: %s", e.StatusCode, e.Body)
}

type aiSearchProvider struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewAISearchProvider builds a client for `{baseURL}/{searchID}/chat/completions`.
// responseTimeout bounds the wait for response headers only, so a long
// stream is never cut short once it has started.
func NewAISearchProvider(baseURL, token string, responseTimeout time.Duration) ChatCompleter {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: responseTimeout,
	}
	return &aiSearchProvider{
		client:  &http.Client{Transport: transport},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

func (p *aiSearchProvider) ChatCompletions(ctx context.Context, searchID string, req *ChatCompletionRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("could not marshal request: %w", err)
	}

	endpoint := p.baseURL + "/" + url.PathEscape(searchID) + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if p.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	if resp.StatusCode == http.StatusNoContent || resp.ContentLength == 0 {
		_ = resp.Body.Close()
		return nil, nil
	}

	return resp.Body, nil
}
