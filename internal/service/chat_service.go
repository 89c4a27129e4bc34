package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	app_errors "search-chat/backend/internal/errors"
	"search-chat/backend/internal/llm"
)

// InvalidMessagesMessage is returned to clients whose body parses but has the wrong shape.
const InvalidMessagesMessage = "Messages must be a non-empty array of valid message objects"

// ChatService proxies chat messages to the AI Search chat-completions endpoint.
type ChatService struct {
	llm      llm.ChatCompleter
	searchID string
}

// NewChatService accepts a nil completer or an empty searchID; Complete then
// fails with a configuration error instead of the process refusing to start.
func NewChatService(completer llm.ChatCompleter, searchID string) *ChatService {
	return &ChatService{llm: completer, searchID: searchID}
}

// Complete validates a raw request body and opens the provider stream for it.
// The returned stream is the provider's bytes untouched; the caller owns it
// and must close it. ctx should be the inbound request's context so that a
// client disconnect also cancels the upstream call.
func (s *ChatService) Complete(ctx context.Context, body io.Reader) (io.ReadCloser, error) {
	if s.llm == nil {
		slog.Error("Chat completion is not configured", "missing", "ai_client")
		return nil, app_errors.ErrConfiguration
	}
	if s.searchID == "" {
		slog.Error("Chat completion is not configured", "missing", "ai_search_id")
		return nil, app_errors.ErrConfiguration
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: could not read body: %v", app_errors.ErrInvalidBody, err)
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", app_errors.ErrInvalidBody, err)
	}

	if !IsValidMessageArray(decoded) {
		return nil, app_errors.NewValidation(InvalidMessagesMessage)
	}

	req := &llm.ChatCompletionRequest{
		Messages: FormatMessages(toMessages(decoded)),
		Stream:   true,
	}

	stream, err := s.llm.ChatCompletions(ctx, s.searchID, req)
	if err != nil {
		var statusErr *llm.StatusError
		if errors.As(err, &statusErr) {
			slog.Error("AI service rejected chat completion", "status", statusErr.StatusCode, "body", statusErr.Body)
			return nil, fmt.Errorf("%w: chat completion failed: %w", app_errors.ErrInternal, err)
		}
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if stream == nil {
		return nil, app_errors.ErrEmptyResponse
	}

	slog.Debug("Opened chat completion stream", "messages", len(req.Messages))
	return stream, nil
}
