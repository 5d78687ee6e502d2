package sqlstore

import (
	"context"

	"github.com/pliu/chatd/internal/models"
)

const messageColumns = "m.id, m.chat_id, m.sender_id, m.content, m.sent_at, m.is_read"

func scanMessage(row scanner, m *models.Message) error {
	sender := new(models.User)
	err := row.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.Timestamp, &m.IsRead,
		&sender.ID, &sender.Username, &sender.Email, &sender.PasswordHash, &sender.IsOnline, &sender.CreatedAt, &sender.UpdatedAt)
	if err != nil {
		return err
	}
	m.Sender = sender
	return nil
}

// SaveMessage inserts msg. A zero Timestamp is replaced with the current time.
func (s *SQLStore) SaveMessage(ctx context.Context, msg *models.Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now()
	}
	query := s.rebind("INSERT INTO messages (chat_id, sender_id, content, sent_at, is_read) VALUES (?, ?, ?, ?, ?) RETURNING id")
	err := s.db.QueryRowContext(ctx, query, msg.ChatID, msg.SenderID, msg.Content, msg.Timestamp, msg.IsRead).Scan(&msg.ID)
	return translate(err)
}

func (s *SQLStore) GetMessage(ctx context.Context, id int) (*models.Message, error) {
	var m models.Message
	query := s.rebind(`
		SELECT ` + messageColumns + `, ` + userColumns + `
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.id = ?
	`)
	if err := scanMessage(s.db.QueryRowContext(ctx, query, id), &m); err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

// GetChatMessages returns the chat's messages oldest first; equal timestamps keep insertion order.
func (s *SQLStore) GetChatMessages(ctx context.Context, chatID int) ([]models.Message, error) {
	query := s.rebind(`
		SELECT ` + messageColumns + `, ` + userColumns + `
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.chat_id = ?
		ORDER BY m.sent_at ASC, m.id ASC
	`)
	rows, err := s.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *SQLStore) MarkMessageRead(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, s.rebind("UPDATE messages SET is_read = TRUE WHERE id = ?"), id)
	if err != nil {
		return translate(err)
	}
	return affectedOne(res)
}

func (s *SQLStore) DeleteMessage(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM messages WHERE id = ?"), id)
	if err != nil {
		return translate(err)
	}
	return affectedOne(res)
}
