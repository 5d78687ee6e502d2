package sqlstore

import (
	"context"
	"testing"

	"github.com/pliu/chatd/internal/models"
)

var testStore *SQLStore

func SetupTestDB(t *testing.T) {
	var err error
	testStore, err = New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
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

func TestWithForeignKeys(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{":memory:", ":memory:?_foreign_keys=on"},
		{"chat.db?cache=shared", "chat.db?cache=shared&_foreign_keys=on"},
		{"chat.db?_foreign_keys=off", "chat.db?_foreign_keys=off"},
	}
	for _, tt := range tests {
		if got := withForeignKeys(tt.dsn); got != tt.want {
			t.Errorf("withForeignKeys(%q) = %q, want %q", tt.dsn, got, tt.want)
		}
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{driverName: "postgres"}
	got := pg.rebind("SELECT 1 FROM users WHERE id = ? AND email = ?")
	if got != "SELECT 1 FROM users WHERE id = $1 AND email = $2" {
		t.Errorf("Unexpected postgres rebind: %s", got)
	}

	lite := &SQLStore{driverName: "sqlite3"}
	if got := lite.rebind("id = ?"); got != "id = ?" {
		t.Errorf("Expected sqlite query unchanged, got %s", got)
	}
}
