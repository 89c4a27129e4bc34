package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	app_errors "search-chat/backend/internal/errors"
	"search-chat/backend/internal/model"
	"search-chat/backend/internal/repository"
	"search-chat/backend/internal/validation"
)

// InvalidRequestMessage is returned when a form action is missing a field.
const InvalidRequestMessage = "invalid request"

// HistoryService reads and writes per-client chat history in the chat-room store.
type HistoryService struct {
	repo     repository.Repository
	validate *validator.Validate
	now      func() time.Time
}

// NewHistoryService accepts a nil repository; every call then fails with
// app_errors.ErrUnavailable.
func NewHistoryService(repo repository.Repository) *HistoryService {
	return &HistoryService{
		repo:     repo,
		validate: validation.Get(),
		now:      time.Now,
	}
}

func (s *HistoryService) store() (repository.Repository, error) {
	if s.repo == nil {
		return nil, app_errors.ErrUnavailable
	}
	return s.repo, nil
}

// Load returns the stored messages for identity alongside the identity itself.
func (s *HistoryService) Load(ctx context.Context, identity string) (*model.History, error) {
	repo, err := s.store()
	if err != nil {
		return nil, err
	}
	messages, err := repo.GetMessages(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("could not load messages: %w", err)
	}
	return &model.History{IP: identity, SavedMessages: messages}, nil
}

// SaveBulk decodes a JSON array of messages and stores them under identity
// in order. Both arguments are required. See SaveBatch for the failure policy.
func (s *HistoryService) SaveBulk(ctx context.Context, identity, messagesJSON string) error {
	if identity == "" || messagesJSON == "" {
		return app_errors.NewValidation(InvalidRequestMessage)
	}

	var messages []model.Message
	if err := json.Unmarshal([]byte(messagesJSON), &messages); err != nil {
		return app_errors.NewValidation("messages must be a JSON array of message objects")
	}

	now := s.now()
	for i := range messages {
		if messages[i].ID == "" {
			messages[i].ID = uuid.NewString()
		}
		if messages[i].Timestamp.IsZero() {
			messages[i].Timestamp = now
		}
		if err := s.validate.Struct(&messages[i]); err != nil {
			msg, ok := validation.Describe(err)
			if !ok {
				msg = err.Error()
			}
			return app_errors.NewValidation(fmt.Sprintf("message %d: %s", i, msg))
		}
	}

	// The store is checked after the input so a bad request never depends
	// on whether storage happens to be wired.
	if _, err := s.store(); err != nil {
		return err
	}

	saved, err := s.SaveBatch(ctx, identity, messages)
	if err != nil {
		slog.Warn("Bulk save stopped early", "identity", identity, "saved", saved, "total", len(messages), "error", err)
		return err
	}
	slog.Debug("Saved messages", "identity", identity, "count", saved)
	return nil
}

// SaveBatch writes messages one at a time, in order, awaiting each write
// before the next. It stops at the first failure: messages before it stay
// saved, later ones are not attempted, and nothing is rolled back. It
// returns how many messages were saved.
func (s *HistoryService) SaveBatch(ctx context.Context, identity string, messages []model.Message) (int, error) {
	repo, err := s.store()
	if err != nil {
		return 0, err
	}
	for i := range messages {
		ok, err := repo.SaveMessage(ctx, identity, &messages[i])
		if err != nil {
			return i, fmt.Errorf("could not save message %d of %d: %w", i+1, len(messages), err)
		}
		if !ok {
			return i, fmt.Errorf("store rejected message %d of %d", i+1, len(messages))
		}
	}
	return len(messages), nil
}

// DeleteAll clears identity's history. Clearing an empty history is not an error.
func (s *HistoryService) DeleteAll(ctx context.Context, identity string) error {
	repo, err := s.store()
	if err != nil {
		return err
	}
	if identity == "" {
		return app_errors.NewValidation(InvalidRequestMessage)
	}
	if err := repo.ClearMessages(ctx, identity); err != nil {
		return fmt.Errorf("could not clear messages: %w", err)
	}
	return nil
}

// DeleteMessage removes a single message from identity's history.
func (s *HistoryService) DeleteMessage(ctx context.Context, identity, messageID string) error {
	repo, err := s.store()
	if err != nil {
		return err
	}
	if identity == "" || messageID == "" {
		return app_errors.NewValidation(InvalidRequestMessage)
	}
	if err := repo.DeleteMessage(ctx, identity, messageID); err != nil {
		return fmt.Errorf("could not delete message: %w", err)
	}
	return nil
}
