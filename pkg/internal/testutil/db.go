package testutil

import (
	"strings"
	"testing"

	"github.com/smith3v/habit-reminder/pkg/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SetupTestDB opens a private in-memory sqlite database, migrates it, installs
// it as db.DB and returns it. A single connection keeps concurrent callers
// serialized instead of tripping shared-cache table locks.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to access underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db.DB = gdb
	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			t.Fatalf("failed to close database: %v", err)
		}
		db.DB = nil
	})
	return gdb
}

// SeedUser inserts a user with the given chat destination.
func SeedUser(t *testing.T, gdb *gorm.DB, username, chatID string) db.User {
	t.Helper()
	user := db.User{Username: username, TelegramChatID: chatID}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}
