package store

import (
	"context"
	"errors"

	"github.com/pliu/chatd/internal/models"
)

var (
	// ErrNotFound is returned when a lookup by key matches no row.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("store: duplicate record")
)

type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []int) ([]models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id int) error

	// Chat operations
	// CreateChat inserts the chat and one membership per participant atomically.
	CreateChat(ctx context.Context, chat *models.Chat, participantIDs []int) error
	GetChat(ctx context.Context, chatID int) (*models.Chat, error)
	GetUserChats(ctx context.Context, userID int) ([]models.Chat, error)
	GetChatParticipants(ctx context.Context, chatID int) ([]models.User, error)
	AddParticipant(ctx context.Context, chatID, userID int) error
	RemoveParticipant(ctx context.Context, chatID, userID int) error
	IsParticipant(ctx context.Context, chatID, userID int) (bool, error)
	DeleteChat(ctx context.Context, chatID int) error

	// Message operations
	SaveMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id int) (*models.Message, error)
	GetChatMessages(ctx context.Context, chatID int) ([]models.Message, error)
	MarkMessageRead(ctx context.Context, id int) error
	DeleteMessage(ctx context.Context, id int) error

	Close() error
}
