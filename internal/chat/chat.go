// Package chat enforces chat membership and message authorization rules on top of the store.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pliu/chatd/internal/apperr"
	"github.com/pliu/chatd/internal/models"
	"github.com/pliu/chatd/internal/store"
)

const minParticipants = 2

type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(s store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// CreateChat creates a chat with the given members. Duplicate ids count once.
func (s *Service) CreateChat(ctx context.Context, participantIDs []int, isGroup bool) (*models.Chat, error) {
	ids := distinct(participantIDs)
	if len(ids) < minParticipants {
		return nil, apperr.InvalidArgument("A chat needs at least 2 participants")
	}

	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(users) != len(ids) {
		return nil, apperr.NotFound("One or more users not found")
	}

	chat := &models.Chat{IsGroup: isGroup}
	if err := s.store.CreateChat(ctx, chat, ids); err != nil {
		// A participant deleted between the lookup and the insert.
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("One or more users not found")
		}
		return nil, err
	}
	return s.chat(ctx, chat.ID)
}

// AddParticipant appends userID to the chat's members.
func (s *Service) AddParticipant(ctx context.Context, chatID, userID int) (*models.Chat, error) {
	if _, err := s.chat(ctx, chatID); err != nil {
		return nil, err
	}
	if err := s.userExists(ctx, userID); err != nil {
		return nil, err
	}

	member, err := s.store.IsParticipant(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, apperr.AlreadyMember("User already in chat")
	}

	if err := s.store.AddParticipant(ctx, chatID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Chat or user not found")
		}
		return nil, err
	}
	return s.chat(ctx, chatID)
}

// RemoveParticipant drops userID from the chat. The remaining member count is not checked.
func (s *Service) RemoveParticipant(ctx context.Context, chatID, userID int) (*models.Chat, error) {
	if _, err := s.chat(ctx, chatID); err != nil {
		return nil, err
	}
	if err := s.userExists(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.store.RemoveParticipant(ctx, chatID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("User not in chat")
		}
		return nil, err
	}
	return s.chat(ctx, chatID)
}

// UserChats lists the chats userID belongs to.
func (s *Service) UserChats(ctx context.Context, userID int) ([]models.Chat, error) {
	if err := s.userExists(ctx, userID); err != nil {
		return nil, err
	}
	chats, err := s.store.GetUserChats(ctx, userID)
	if err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []models.Chat{}
	}
	return chats, nil
}

// DeleteChat removes the chat with its memberships and messages.
func (s *Service) DeleteChat(ctx context.Context, chatID int) error {
	err := s.store.DeleteChat(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Chat not found")
	}
	return err
}

// RequireParticipant fails with Forbidden unless userID is a current member of the chat.
func (s *Service) RequireParticipant(ctx context.Context, chatID, userID int) error {
	if _, err := s.chat(ctx, chatID); err != nil {
		return err
	}
	member, err := s.store.IsParticipant(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !member {
		return apperr.Forbidden("User is not a participant of this chat")
	}
	return nil
}

// SendMessage stores an unread message stamped with the server time.
func (s *Service) SendMessage(ctx context.Context, chatID, senderID int, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.InvalidArgument("Message content is required")
	}
	if err := s.userExists(ctx, senderID); err != nil {
		return nil, err
	}
	if err := s.RequireParticipant(ctx, chatID, senderID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		Timestamp: s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Chat or sender not found")
		}
		return nil, err
	}
	return s.Message(ctx, msg.ID)
}

// ListMessages returns the chat's messages oldest first.
func (s *Service) ListMessages(ctx context.Context, chatID int) ([]models.Message, error) {
	if _, err := s.chat(ctx, chatID); err != nil {
		return nil, err
	}
	messages, err := s.store.GetChatMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}

func (s *Service) Message(ctx context.Context, messageID int) (*models.Message, error) {
	msg, err := s.store.GetMessage(ctx, messageID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Message not found")
	}
	return msg, err
}

// MarkRead flips the message to read. Already-read messages are returned unchanged.
func (s *Service) MarkRead(ctx context.Context, messageID int) (*models.Message, error) {
	msg, err := s.Message(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.IsRead {
		return msg, nil
	}

	if err := s.store.MarkMessageRead(ctx, messageID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Message not found")
		}
		return nil, err
	}
	msg.IsRead = true
	return msg, nil
}

func (s *Service) DeleteMessage(ctx context.Context, messageID int) error {
	err := s.store.DeleteMessage(ctx, messageID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Message not found")
	}
	return err
}

func (s *Service) chat(ctx context.Context, chatID int) (*models.Chat, error) {
	chat, err := s.store.GetChat(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Chat not found")
	}
	return chat, err
}

func (s *Service) userExists(ctx context.Context, userID int) error {
	_, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("User not found")
	}
	return err
}

func distinct(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
