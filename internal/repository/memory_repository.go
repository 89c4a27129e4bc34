package repository

import (
	"context"
	"sync"

	"search-chat/backend/internal/model"
)

type memoryRepository struct {
	mu    sync.RWMutex
	rooms map[string][]model.Message
}

// NewMemoryRepository keeps rooms in process memory. Nothing survives a
// restart; it backs local runs and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{rooms: make(map[string][]model.Message)}
}

func (r *memoryRepository) GetMessages(_ context.Context, roomID string) ([]model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.rooms[roomID]
	messages := make([]model.Message, len(stored))
	for i, msg := range stored {
		messages[i] = cloneMessage(msg)
	}
	return messages, nil
}

func (r *memoryRepository) SaveMessage(_ context.Context, roomID string, message *model.Message) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := cloneMessage(*message)
	room := r.rooms[roomID]
	for i := range room {
		if room[i].ID == msg.ID {
			room[i] = msg
			return true, nil
		}
	}
	r.rooms[roomID] = append(room, msg)
	return true, nil
}

func (r *memoryRepository) ClearMessages(_ context.Context, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomID)
	return nil
}

func (r *memoryRepository) DeleteMessage(_ context.Context, roomID, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.rooms[roomID]
	for i := range room {
		if room[i].ID == messageID {
			r.rooms[roomID] = append(room[:i:i], room[i+1:]...)
			return nil
		}
	}
	return nil
}

// cloneMessage copies the content pointer so callers cannot mutate stored state.
func cloneMessage(msg model.Message) model.Message {
	if msg.Content != nil {
		c := *msg.Content
		msg.Content = &c
	}
	return msg
}
