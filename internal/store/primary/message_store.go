package primary

import (
	"context"
	"fmt"
	"time"

	"aide/internal/models"
)

// --- Message Store Implementation ---

// RecordMessage appends one conversation turn for a chat.
func (s *StoreImpl) RecordMessage(ctx context.Context, chatID, sender, body string) (*models.Message, error) {
	if chatID == "" || body == "" {
		return nil, fmt.Errorf("chat id and body are required: %w", models.ErrValidation)
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (chat_id, sender, body, created_at) VALUES (?, ?, ?, ?)`,
		chatID, sender, body, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get message id: %w", err)
	}
	return &models.Message{ID: id, ChatID: chatID, Sender: sender, Body: body, CreatedAt: now}, nil
}

// GetRecentMessages returns the most recent limit turns for the chat,
// reordered oldest first.
func (s *StoreImpl) GetRecentMessages(ctx context.Context, chatID string, limit int) ([]*models.Message, error) {
	query := `
		SELECT id, chat_id, sender, body, created_at FROM messages
		WHERE chat_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages for %s: %w", chatID, err)
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Sender, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
