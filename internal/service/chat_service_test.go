package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	app_errors "search-chat/backend/internal/errors"
	"search-chat/backend/internal/llm"
	mock_llm "search-chat/backend/internal/llm/mocks"
	"search-chat/backend/internal/service"
)

const searchID = "docs-search"

func setupChatService(t *testing.T) (*service.ChatService, *mock_llm.MockChatCompleter) {
	completer := mock_llm.NewMockChatCompleter(t)
	return service.NewChatService(completer, searchID), completer
}

func TestChatService_Complete(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		chatService, completer := setupChatService(t)
		frames := "data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\ndata: [DONE]\n\n"

		completer.On("ChatCompletions", ctx, searchID, mock.MatchedBy(func(req *llm.ChatCompletionRequest) bool {
			return req.Stream &&
				len(req.Messages) == 2 &&
				req.Messages[0] == llm.Message{Role: "system", Content: ""} &&
				req.Messages[1] == llm.Message{Role: "user", Content: "hello"}
		})).Return(io.NopCloser(strings.NewReader(frames)), nil).Once()

		body := `[{"id":"a","role":"system","content":null},{"id":"b","role":"user","content":"hello"}]`
		stream, err := chatService.Complete(ctx, strings.NewReader(body))
		require.NoError(t, err)
		defer stream.Close()

		got, err := io.ReadAll(stream)
		require.NoError(t, err)
		assert.Equal(t, frames, string(got))
	})

	t.Run("Missing AI client", func(t *testing.T) {
		chatService := service.NewChatService(nil, searchID)
		_, err := chatService.Complete(ctx, strings.NewReader(`[{"role":"user","content":"hi"}]`))
		assert.ErrorIs(t, err, app_errors.ErrConfiguration)
	})

	t.Run("Missing search ID", func(t *testing.T) {
		completer := mock_llm.NewMockChatCompleter(t)
		chatService := service.NewChatService(completer, "")
		_, err := chatService.Complete(ctx, strings.NewReader(`[{"role":"user","content":"hi"}]`))
		assert.ErrorIs(t, err, app_errors.ErrConfiguration)
	})

	t.Run("Configuration is checked before the body", func(t *testing.T) {
		chatService := service.NewChatService(nil, "")
		_, err := chatService.Complete(ctx, strings.NewReader(`not json`))
		assert.ErrorIs(t, err, app_errors.ErrConfiguration)
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		chatService, _ := setupChatService(t)
		_, err := chatService.Complete(ctx, strings.NewReader(`not json`))
		assert.ErrorIs(t, err, app_errors.ErrInvalidBody)
		assert.NotErrorIs(t, err, app_errors.ErrValidation)
	})

	t.Run("Empty body", func(t *testing.T) {
		chatService, _ := setupChatService(t)
		_, err := chatService.Complete(ctx, strings.NewReader(``))
		assert.ErrorIs(t, err, app_errors.ErrInvalidBody)
	})

	t.Run("Empty array", func(t *testing.T) {
		chatService, _ := setupChatService(t)
		_, err := chatService.Complete(ctx, strings.NewReader(`[]`))
		require.ErrorIs(t, err, app_errors.ErrValidation)

		var vErr *app_errors.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, service.InvalidMessagesMessage, vErr.Message)
	})

	t.Run("Upstream error", func(t *testing.T) {
		chatService, completer := setupChatService(t)
		upstream := &llm.StatusError{StatusCode: 500, Body: "boom"}
		completer.On("ChatCompletions", ctx, searchID, mock.Anything).Return(nil, upstream).Once()

		_, err := chatService.Complete(ctx, strings.NewReader(`[{"role":"user","content":"hi"}]`))
		var statusErr *llm.StatusError
		assert.ErrorAs(t, err, &statusErr)
		assert.ErrorIs(t, err, app_errors.ErrInternal)
	})

	t.Run("Upstream timeout keeps the cause", func(t *testing.T) {
		chatService, completer := setupChatService(t)
		completer.On("ChatCompletions", ctx, searchID, mock.Anything).Return(nil, context.DeadlineExceeded).Once()

		_, err := chatService.Complete(ctx, strings.NewReader(`[{"role":"user","content":"hi"}]`))
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})

	t.Run("No stream", func(t *testing.T) {
		chatService, completer := setupChatService(t)
		completer.On("ChatCompletions", ctx, searchID, mock.Anything).Return(nil, nil).Once()

		_, err := chatService.Complete(ctx, strings.NewReader(`[{"role":"user","content":"hi"}]`))
		assert.ErrorIs(t, err, app_errors.ErrEmptyResponse)
	})
}
