package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/pliu/chatd/internal/models"
	"github.com/pliu/chatd/internal/store"
)

func TestCreateUser(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	user := &models.User{Username: "testuser", Email: "test@example.com", PasswordHash: "hash"}
	if err := testStore.CreateUser(ctx, user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	if user.ID == 0 {
		t.Error("Expected non-zero user ID")
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("Expected timestamps to be set")
	}

	// Test duplicate email
	dup := &models.User{Username: "other", Email: "test@example.com", PasswordHash: "hash"}
	err := testStore.CreateUser(ctx, dup)
	if !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate for duplicate email, got %v", err)
	}

	// Test duplicate username
	dup = &models.User{Username: "testuser", Email: "other@example.com", PasswordHash: "hash"}
	err = testStore.CreateUser(ctx, dup)
	if !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate for duplicate username, got %v", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	createTestUser(t, "alice")

	user, err := testStore.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("Expected username 'alice', got '%s'", user.Username)
	}
	if user.PasswordHash != "hash" {
		t.Errorf("Expected password hash to be loaded, got '%s'", user.PasswordHash)
	}

	_, err = testStore.GetUserByEmail(ctx, "nobody@example.com")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for nonexistent user, got %v", err)
	}
}

func TestGetUsersByIDs(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	a := createTestUser(t, "alice")
	b := createTestUser(t, "bob")

	users, err := testStore.GetUsersByIDs(context.Background(), []int{b.ID, a.ID, 999})
	if err != nil {
		t.Fatalf("GetUsersByIDs failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(users))
	}
	if users[0].ID != a.ID || users[1].ID != b.ID {
		t.Errorf("Expected users ordered by id, got %d, %d", users[0].ID, users[1].ID)
	}
}

func TestUpdateUser(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	user := createTestUser(t, "alice")
	createTestUser(t, "bob")

	user.Username = "alicia"
	user.IsOnline = true
	if err := testStore.UpdateUser(ctx, user); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	got, _ := testStore.GetUserByID(ctx, user.ID)
	if got.Username != "alicia" || !got.IsOnline {
		t.Errorf("Expected updated user, got %+v", got)
	}

	user.Email = "bob@example.com"
	if err := testStore.UpdateUser(ctx, user); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate when taking another user's email, got %v", err)
	}

	missing := &models.User{ID: 999, Username: "x", Email: "x@example.com"}
	if err := testStore.UpdateUser(ctx, missing); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")

	chat := &models.Chat{}
	if err := testStore.CreateChat(ctx, chat, []int{alice.ID, bob.ID}); err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}
	testStore.SaveMessage(ctx, &models.Message{ChatID: chat.ID, SenderID: alice.ID, Content: "hi"})

	if err := testStore.DeleteUser(ctx, alice.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}

	isParticipant, _ := testStore.IsParticipant(ctx, chat.ID, alice.ID)
	if isParticipant {
		t.Error("Expected membership to be removed with the user")
	}
	messages, _ := testStore.GetChatMessages(ctx, chat.ID)
	if len(messages) != 0 {
		t.Errorf("Expected authored messages to be removed, got %d", len(messages))
	}

	if err := testStore.DeleteUser(ctx, alice.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListUsers(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	createTestUser(t, "alice")
	createTestUser(t, "bob")
	createTestUser(t, "alex")

	users, err := testStore.ListUsers(context.Background())
	if err != nil {
		t.Errorf("ListUsers failed: %v", err)
	}

	if len(users) != 3 {
		t.Errorf("Expected 3 users, got %d", len(users))
	}
}
