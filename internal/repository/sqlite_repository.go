package repository

import (
	"context"
	"database/sql"
	"fmt"

	"search-chat/backend/internal/model"
)

type sqliteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) Repository {
	return &sqliteRepository{db: db}
}

func (r *sqliteRepository) GetMessages(ctx context.Context, roomID string) ([]model.Message, error) {
	query := `
		SELECT id, role, content, timestamp
		FROM messages
		WHERE room_id = ?
		ORDER BY seq ASC
	`
	rows, err := r.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("could not query messages: %w", err)
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		var msg model.Message
		var content sql.NullString
		if err := rows.Scan(&msg.ID, &msg.Role, &content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("could not scan message: %w", err)
		}
		if content.Valid {
			c := content.String
			msg.Content = &c
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate messages: %w", err)
	}
	return messages, nil
}

func (r *sqliteRepository) SaveMessage(ctx context.Context, roomID string, message *model.Message) (bool, error) {
	var content sql.NullString
	if message.Content != nil {
		content = sql.NullString{String: *message.Content, Valid: true}
	}

	// The conflict branch updates in place so seq, and with it the
	// message's position in the room, stays the same.
	query := `
		INSERT INTO messages (room_id, id, role, content, timestamp)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(room_id, id) DO UPDATE SET
			role = excluded.role,
			content = excluded.content,
			timestamp = excluded.timestamp
	`
	res, err := r.db.ExecContext(ctx, query, roomID, message.ID, message.Role, content, message.Timestamp.UTC())
	if err != nil {
		return false, fmt.Errorf("could not save message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("could not read affected rows: %w", err)
	}
	return n > 0, nil
}

func (r *sqliteRepository) ClearMessages(ctx context.Context, roomID string) error {
	query := "DELETE FROM messages WHERE room_id = ?"
	if _, err := r.db.ExecContext(ctx, query, roomID); err != nil {
		return fmt.Errorf("could not clear messages: %w", err)
	}
	return nil
}

func (r *sqliteRepository) DeleteMessage(ctx context.Context, roomID, messageID string) error {
	query := "DELETE FROM messages WHERE room_id = ? AND id = ?"
	if _, err := r.db.ExecContext(ctx, query, roomID, messageID); err != nil {
		return fmt.Errorf("could not delete message: %w", err)
	}
	return nil
}
