package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"search-chat/backend/internal/model"
)

type redisRepository struct {
	rdb *redis.Client
}

// NewRedisRepository stores each room as a hash of message JSON keyed by
// message ID plus a list of IDs that carries the insertion order.
func NewRedisRepository(rdb *redis.Client) Repository {
	return &redisRepository{rdb: rdb}
}

// Key Generation Helpers
func (r *redisRepository) messagesKey(roomID string) string { return fmt.Sprintf("chatroom:%s:messages", roomID) }
func (r *redisRepository) orderKey(roomID string) string    { return fmt.Sprintf("chatroom:%s:order", roomID) }

func (r *redisRepository) GetMessages(ctx context.Context, roomID string) ([]model.Message, error) {
	ids, err := r.rdb.LRange(ctx, r.orderKey(roomID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("could not read message order: %w", err)
	}
	if len(ids) == 0 {
		return []model.Message{}, nil
	}

	values, err := r.rdb.HMGet(ctx, r.messagesKey(roomID), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("could not read messages: %w", err)
	}

	messages := make([]model.Message, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// The ID is in the order list but its body is gone; skip it.
			continue
		}
		var msg model.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("%w: message %s: %v", ErrCorruptMessage, ids[i], err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// saveScript writes the body and appends the ID to the order list only if
// it is not already there, so an update keeps its slot and a save retried
// after a failed push still lands in the list.
var saveScript = redis.NewScript(`
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
if not redis.call('LPOS', KEYS[2], ARGV[1]) then
	redis.call('RPUSH', KEYS[2], ARGV[1])
end
return 1
`)

func (r *redisRepository) SaveMessage(ctx context.Context, roomID string, message *model.Message) (bool, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return false, fmt.Errorf("could not encode message: %w", err)
	}

	keys := []string{r.messagesKey(roomID), r.orderKey(roomID)}
	if err := saveScript.Run(ctx, r.rdb, keys, message.ID, data).Err(); err != nil {
		return false, fmt.Errorf("could not save message: %w", err)
	}
	return true, nil
}

func (r *redisRepository) ClearMessages(ctx context.Context, roomID string) error {
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, r.messagesKey(roomID))
	pipe.Del(ctx, r.orderKey(roomID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute clear pipeline: %w", err)
	}
	return nil
}

func (r *redisRepository) DeleteMessage(ctx context.Context, roomID, messageID string) error {
	pipe := r.rdb.TxPipeline()
	pipe.HDel(ctx, r.messagesKey(roomID), messageID)
	pipe.LRem(ctx, r.orderKey(roomID), 0, messageID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute delete pipeline: %w", err)
	}
	return nil
}
