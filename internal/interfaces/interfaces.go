package interfaces

import (
	"context"
	"io"

	"search-chat/backend/internal/model"
)

// This file defines the interfaces for our core services.
// Depending on these interfaces, instead of concrete implementations, allows for
// decoupling (e.g., API layer from Service layer) and easier testing via mocking.

// ChatService defines the contract for the chat-completion proxy.
type ChatService interface {
	Complete(ctx context.Context, body io.Reader) (io.ReadCloser, error)
}

// HistoryService defines the contract for per-client chat history.
type HistoryService interface {
	Load(ctx context.Context, identity string) (*model.History, error)
	SaveBulk(ctx context.Context, identity, messagesJSON string) error
	DeleteAll(ctx context.Context, identity string) error
	DeleteMessage(ctx context.Context, identity, messageID string) error
}
