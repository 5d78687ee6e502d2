package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pliu/chatd/internal/apperr"
	"github.com/pliu/chatd/internal/models"
	"github.com/pliu/chatd/internal/store/sqlstore"
)

var testStore *sqlstore.SQLStore

func SetupTestDB(t *testing.T) *Service {
	t.Helper()
	var err error
	testStore, err = sqlstore.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	return NewService(testStore)
}

func TeardownTestDB() {
	testStore.Close()
}

func createTestUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", PasswordHash: "hash"}
	if err := testStore.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return user
}

func countChats(t *testing.T, userIDs ...int) int {
	t.Helper()
	total := 0
	for _, id := range userIDs {
		chats, err := testStore.GetUserChats(context.Background(), id)
		if err != nil {
			t.Fatalf("GetUserChats failed: %v", err)
		}
		total += len(chats)
	}
	return total
}

func TestCreateChat(t *testing.T) {
	svc := SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	a := createTestUser(t, "alice")
	b := createTestUser(t, "bob")

	t.Run("One participant", func(t *testing.T) {
		if _, err := svc.CreateChat(ctx, []int{a.ID}, false); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Errorf("Expected InvalidArgument, got %v", err)
		}
	})

	t.Run("Duplicate ids collapse", func(t *testing.T) {
		if _, err := svc.CreateChat(ctx, []int{a.ID, a.ID}, false); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Errorf("Expected InvalidArgument, got %v", err)
		}
	})

	t.Run("Unknown participant", func(t *testing.T) {
		if _, err := svc.CreateChat(ctx, []int{a.ID, b.ID, 9999}, true); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Expected NotFound, got %v", err)
		}
		if n := countChats(t, a.ID, b.ID); n != 0 {
			t.Errorf("Expected no chat created, found %d", n)
		}
	})

	t.Run("Valid", func(t *testing.T) {
		chat, err := svc.CreateChat(ctx, []int{a.ID, b.ID}, false)
		if err != nil {
			t.Fatalf("CreateChat failed: %v", err)
		}
		if len(chat.Participants) != 2 {
			t.Errorf("Expected 2 participants, got %d", len(chat.Participants))
		}
		if chat.IsGroup {
			t.Error("Expected one-to-one chat")
		}
	})
}

func TestAddParticipant(t *testing.T) {
	svc := SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	a := createTestUser(t, "alice")
	b := createTestUser(t, "bob")
	c := createTestUser(t, "carol")
	chat, _ := svc.CreateChat(ctx, []int{a.ID, b.ID}, true)

	updated, err := svc.AddParticipant(ctx, chat.ID, c.ID)
	if err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}
	if len(updated.Participants) != 3 {
		t.Errorf("Expected 3 participants, got %d", len(updated.Participants))
	}

	tests := []struct {
		name   string
		chatID int
		userID int
		want   error
	}{
		{"Already member", chat.ID, c.ID, apperr.ErrAlreadyMember},
		{"Unknown chat", 9999, c.ID, apperr.ErrNotFound},
		{"Unknown user", chat.ID, 9999, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.AddParticipant(ctx, tt.chatID, tt.userID); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRemoveParticipant(t *testing.T) {
	svc := SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	a := createTestUser(t, "alice")
	b := createTestUser(t, "bob")
	c := createTestUser(t, "carol")
	chat, _ := svc.CreateChat(ctx, []int{a.ID, b.ID}, false)

	updated, err := svc.RemoveParticipant(ctx, chat.ID, b.ID)
	if err != nil {
		t.Fatalf("RemoveParticipant failed: %v", err)
	}
	if len(updated.Participants) != 1 || updated.Participants[0].ID != a.ID {
		t.Errorf("Expected only alice left, got %+v", updated.Participants)
	}

	if _, err := svc.RemoveParticipant(ctx, chat.ID, c.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected NotFound for non-member, got %v", err)
	}
}

func TestUserChatsAndDelete(t *testing.T) {
	svc := SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	a := createTestUser(t, "alice")
	b := createTestUser(t, "bob")
	c := createTestUser(t, "carol")
	first, _ := svc.CreateChat(ctx, []int{a.ID, b.ID}, false)
	svc.CreateChat(ctx, []int{a.ID, c.ID}, false)

	chats, err := svc.UserChats(ctx, a.ID)
	if err != nil {
		t.Fatalf("UserChats failed: %v", err)
	}
	if len(chats) != 2 {
		t.Errorf("Expected 2 chats, got %d", len(chats))
	}

	if _, err := svc.UserChats(ctx, 9999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}

	svc.SendMessage(ctx, first.ID, a.ID, "hi")
	if err := svc.DeleteChat(ctx, first.ID); err != nil {
		t.Fatalf("DeleteChat failed: %v", err)
	}
	if err := svc.DeleteChat(ctx, first.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}
	if _, err := svc.ListMessages(ctx, first.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected NotFound for deleted chat, got %v", err)
	}

	chats, _ = svc.UserChats(ctx, b.ID)
	if chats == nil || len(chats) != 0 {
		t.Errorf("Expected empty list for bob, got %v", chats)
	}
}

func TestSendMessage(t *testing.T) {
	svc := SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	a := createTestUser(t, "alice")
	b := createTestUser(t, "bob")
	outsider := createTestUser(t, "mallory")
	chat, _ := svc.CreateChat(ctx, []int{a.ID, b.ID}, false)

	tests := []struct {
		name     string
		chatID   int
		senderID int
		content  string
		want     error
	}{
		{"Non-participant", chat.ID, outsider.ID, "hello", apperr.ErrForbidden},
		{"Unknown chat", 9999, a.ID, "hello", apperr.ErrNotFound},
		{"Unknown sender", chat.ID, 9999, "hello", apperr.ErrNotFound},
		{"Empty content", chat.ID, a.ID, "  ", apperr.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.SendMessage(ctx, tt.chatID, tt.senderID, tt.content); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	messages, _ := svc.ListMessages(ctx, chat.ID)
	if len(messages) != 0 {
		t.Errorf("Expected no messages persisted, got %d", len(messages))
	}
}

func TestListMessagesOrder(t *testing.T) {
	svc := SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	a := createTestUser(t, "alice")
	b := createTestUser(t, "bob")
	chat, _ := svc.CreateChat(ctx, []int{a.ID, b.ID}, false)

	// The clock jumps backwards between sends; listing must still be ordered.
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	offsets := []time.Duration{5 * time.Second, 0, 3 * time.Second, 0, 10 * time.Second}
	i := 0
	svc.now = func() time.Time { return base.Add(offsets[i]) }
	for ; i < len(offsets); i++ {
		sender := a.ID
		if i%2 == 1 {
			sender = b.ID
		}
		if _, err := svc.SendMessage(ctx, chat.ID, sender, "msg"); err != nil {
			t.Fatalf("SendMessage failed: %v", err)
		}
	}

	messages, err := svc.ListMessages(ctx, chat.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != len(offsets) {
		t.Fatalf("Expected %d messages, got %d", len(offsets), len(messages))
	}
	for j := 1; j < len(messages); j++ {
		prev, cur := messages[j-1], messages[j]
		if cur.Timestamp.Before(prev.Timestamp) {
			t.Errorf("Message %d at %v before message %d at %v", cur.ID, cur.Timestamp, prev.ID, prev.Timestamp)
		}
		if cur.Timestamp.Equal(prev.Timestamp) && cur.ID < prev.ID {
			t.Errorf("Equal timestamps out of insertion order: %d before %d", prev.ID, cur.ID)
		}
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	svc := SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	a := createTestUser(t, "alice")
	b := createTestUser(t, "bob")
	chat, _ := svc.CreateChat(ctx, []int{a.ID, b.ID}, false)
	msg, _ := svc.SendMessage(ctx, chat.ID, a.ID, "hi")

	once, err := svc.MarkRead(ctx, msg.ID)
	if err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	twice, err := svc.MarkRead(ctx, msg.ID)
	if err != nil {
		t.Fatalf("Second MarkRead failed: %v", err)
	}
	if !once.IsRead || !twice.IsRead {
		t.Error("Expected message to be read")
	}
	if once.ID != twice.ID || once.Content != twice.Content || !once.Timestamp.Equal(twice.Timestamp) {
		t.Errorf("Expected identical state, got %+v and %+v", once, twice)
	}

	if _, err := svc.MarkRead(ctx, 9999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}
}

func TestDeleteMessage(t *testing.T) {
	svc := SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	a := createTestUser(t, "alice")
	b := createTestUser(t, "bob")
	chat, _ := svc.CreateChat(ctx, []int{a.ID, b.ID}, false)
	msg, _ := svc.SendMessage(ctx, chat.ID, a.ID, "oops")

	if err := svc.DeleteMessage(ctx, msg.ID); err != nil {
		t.Fatalf("DeleteMessage failed: %v", err)
	}
	if _, err := svc.Message(ctx, msg.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}
	if err := svc.DeleteMessage(ctx, msg.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}
	if _, err := svc.ListMessages(ctx, chat.ID); err != nil {
		t.Errorf("Expected chat to survive message deletion, got %v", err)
	}
}

func TestConversationScenario(t *testing.T) {
	svc := SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	a := createTestUser(t, "alice")
	b := createTestUser(t, "bob")

	chat, err := svc.CreateChat(ctx, []int{a.ID, b.ID}, false)
	if err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}
	if len(chat.Participants) != 2 {
		t.Fatalf("Expected 2 participants, got %d", len(chat.Participants))
	}

	msg, err := svc.SendMessage(ctx, chat.ID, a.ID, "hi")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if msg.IsRead {
		t.Error("Expected new message to be unread")
	}
	if msg.Sender == nil || msg.Sender.ID != a.ID {
		t.Errorf("Expected sender alice, got %+v", msg.Sender)
	}

	read, err := svc.MarkRead(ctx, msg.ID)
	if err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if !read.IsRead {
		t.Error("Expected message to be read")
	}

	messages, err := svc.ListMessages(ctx, chat.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 1 || messages[0].ID != msg.ID || !messages[0].IsRead {
		t.Errorf("Unexpected messages: %+v", messages)
	}
}

func TestDistinct(t *testing.T) {
	got := distinct([]int{3, 1, 3, 2, 1})
	want := []int{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
		}
	}
}
