package sqlstore

import (
	"context"

	"github.com/pliu/chatd/internal/models"
)

// CreateChat inserts the chat row and its memberships in one transaction.
// A failed membership insert (e.g. a user deleted concurrently) leaves no chat behind.
func (s *SQLStore) CreateChat(ctx context.Context, chat *models.Chat, participantIDs []int) error {
	ts := now()
	err := s.inTx(ctx, func(q querier) error {
		query := s.rebind("INSERT INTO chats (is_group, created_at) VALUES (?, ?) RETURNING id")
		if err := q.QueryRowContext(ctx, query, chat.IsGroup, ts).Scan(&chat.ID); err != nil {
			return err
		}
		insert := s.rebind("INSERT INTO chat_participants (chat_id, user_id) VALUES (?, ?)")
		for _, userID := range participantIDs {
			if _, err := q.ExecContext(ctx, insert, chat.ID, userID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		chat.ID = 0
		return translate(err)
	}
	chat.CreatedAt = ts
	return nil
}

// GetChat returns the chat with its participants loaded.
func (s *SQLStore) GetChat(ctx context.Context, chatID int) (*models.Chat, error) {
	var chat models.Chat
	query := s.rebind("SELECT id, is_group, created_at FROM chats WHERE id = ?")
	if err := s.db.QueryRowContext(ctx, query, chatID).Scan(&chat.ID, &chat.IsGroup, &chat.CreatedAt); err != nil {
		return nil, translate(err)
	}

	participants, err := s.GetChatParticipants(ctx, chatID)
	if err != nil {
		return nil, err
	}
	chat.Participants = participants
	return &chat, nil
}

func (s *SQLStore) GetUserChats(ctx context.Context, userID int) ([]models.Chat, error) {
	chats, err := s.userChats(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Participants are loaded after the chat rows are closed; SQLite runs on one connection.
	for i := range chats {
		participants, err := s.GetChatParticipants(ctx, chats[i].ID)
		if err != nil {
			return nil, err
		}
		chats[i].Participants = participants
	}
	return chats, nil
}

func (s *SQLStore) userChats(ctx context.Context, userID int) ([]models.Chat, error) {
	query := s.rebind(`
		SELECT c.id, c.is_group, c.created_at
		FROM chats c
		WHERE c.id IN (SELECT p.chat_id FROM chat_participants p WHERE p.user_id = ?)
		ORDER BY c.id
	`)
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var chats []models.Chat
	for rows.Next() {
		var chat models.Chat
		if err := rows.Scan(&chat.ID, &chat.IsGroup, &chat.CreatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

func (s *SQLStore) GetChatParticipants(ctx context.Context, chatID int) ([]models.User, error) {
	query := s.rebind(`
		SELECT ` + userColumns + `
		FROM users u
		JOIN chat_participants p ON u.id = p.user_id
		WHERE p.chat_id = ?
		ORDER BY p.id
	`)
	return s.queryUsers(ctx, s.db, query, chatID)
}

func (s *SQLStore) AddParticipant(ctx context.Context, chatID, userID int) error {
	query := s.rebind("INSERT INTO chat_participants (chat_id, user_id) VALUES (?, ?)")
	_, err := s.db.ExecContext(ctx, query, chatID, userID)
	return translate(err)
}

func (s *SQLStore) RemoveParticipant(ctx context.Context, chatID, userID int) error {
	query := s.rebind("DELETE FROM chat_participants WHERE chat_id = ? AND user_id = ?")
	res, err := s.db.ExecContext(ctx, query, chatID, userID)
	if err != nil {
		return translate(err)
	}
	return affectedOne(res)
}

func (s *SQLStore) IsParticipant(ctx context.Context, chatID, userID int) (bool, error) {
	var exists bool
	query := s.rebind("SELECT EXISTS(SELECT 1 FROM chat_participants WHERE chat_id = ? AND user_id = ?)")
	err := s.db.QueryRowContext(ctx, query, chatID, userID).Scan(&exists)
	return exists, translate(err)
}

// DeleteChat removes the chat; memberships and messages cascade.
func (s *SQLStore) DeleteChat(ctx context.Context, chatID int) error {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM chats WHERE id = ?"), chatID)
	if err != nil {
		return translate(err)
	}
	return affectedOne(res)
}
