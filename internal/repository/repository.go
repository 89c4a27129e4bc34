package repository

import (
	"context"

	"search-chat/backend/internal/model"
)

// Repository is the chat-room store. Every call is scoped to a room, which
// is the client identity string; rooms never see each other's messages.
// This interface makes it easy to switch storage implementations.
type Repository interface {
	// GetMessages returns the room's messages in insertion order. An unknown
	// room yields an empty, non-nil slice.
	GetMessages(ctx context.Context, roomID string) ([]model.Message, error)
	// SaveMessage upserts a message by ID. A new message is appended; an
	// existing one is updated in place and keeps its position. The boolean
	// reports whether the store accepted the write.
	SaveMessage(ctx context.Context, roomID string, message *model.Message) (bool, error)
	// ClearMessages removes every message of the room. Clearing an empty
	// room is not an error.
	ClearMessages(ctx context.Context, roomID string) error
	// DeleteMessage removes one message. Deleting a missing message is not
	// an error.
	DeleteMessage(ctx context.Context, roomID, messageID string) error
}
