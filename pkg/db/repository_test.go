package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/smith3v/habit-reminder/pkg/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	if err := Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to access underlying DB: %v", err)
	}
	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			t.Fatalf("failed to close database: %v", err)
		}
	})
	return gdb
}

func TestMigrateCreatesTables(t *testing.T) {
	gdb := openTestDB(t)

	for _, model := range []any{&User{}, &Habit{}, &ReminderJob{}} {
		if !gdb.Migrator().HasTable(model) {
			t.Fatalf("expected table for %T to exist", model)
		}
	}
	if !gdb.Migrator().HasIndex(&ReminderJob{}, "idx_reminder_jobs_key") {
		t.Fatalf("expected unique index on reminder_jobs.key")
	}
}

func TestReminderJobKeyIsUnique(t *testing.T) {
	gdb := openTestDB(t)

	first := ReminderJob{Key: "habit_1_1", HabitID: 1, OwnerID: 1, Message: "a", Weekdays: []byte("[1]"), CronSpec: "0 8 * * 1", Enabled: true}
	if err := gdb.Create(&first).Error; err != nil {
		t.Fatalf("failed to create job: %v", err)
	}
	dup := first
	dup.ID = 0
	if err := gdb.Create(&dup).Error; err == nil {
		t.Fatal("expected unique constraint violation for duplicate key")
	}
}

func TestHabitKeepsExplicitFalseFlags(t *testing.T) {
	gdb := openTestDB(t)

	owner := User{Username: "flags"}
	if err := gdb.Create(&owner).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	habit := Habit{OwnerID: owner.ID, Place: "Стол", Time: "08:00:00", Action: "Пить воду", Duration: 2, Periodicity: 1, Monday: true}
	if err := gdb.Create(&habit).Error; err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}

	stored, err := FindHabit(context.Background(), gdb, habit.ID)
	if err != nil {
		t.Fatalf("failed to load habit: %v", err)
	}
	if stored.IsNice || stored.IsPublic || stored.Sunday {
		t.Fatalf("expected false flags to persist, got %+v", stored)
	}
}

func TestDeleteHabitNullsBackReferences(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()

	owner := User{Username: "owner"}
	if err := gdb.Create(&owner).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	nice := Habit{OwnerID: owner.ID, Place: "Диван", Time: "21:00:00", Action: "Читать", IsNice: true, Duration: 30, Periodicity: 1, Sunday: true}
	if err := gdb.Create(&nice).Error; err != nil {
		t.Fatalf("failed to create nice habit: %v", err)
	}
	chained := Habit{OwnerID: owner.ID, Place: "Стол", Time: "08:00:00", Action: "Пить воду", RelatedID: &nice.ID, Duration: 2, Periodicity: 1, Monday: true}
	if err := gdb.Create(&chained).Error; err != nil {
		t.Fatalf("failed to create chained habit: %v", err)
	}

	if err := DeleteHabit(ctx, gdb, &nice); err != nil {
		t.Fatalf("DeleteHabit returned error: %v", err)
	}

	if _, err := FindHabit(ctx, gdb, nice.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected deleted habit to be gone, got %v", err)
	}
	reloaded, err := FindHabit(ctx, gdb, chained.ID)
	if err != nil {
		t.Fatalf("referencing habit must survive: %v", err)
	}
	if reloaded.RelatedID != nil {
		t.Fatalf("expected related reference to be cleared, got %v", *reloaded.RelatedID)
	}
}

func TestListHabitsFiltersByOwnerAndVisibility(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()

	alice := User{Username: "alice"}
	bob := User{Username: "bob"}
	if err := gdb.Create(&[]*User{&alice, &bob}).Error; err != nil {
		t.Fatalf("failed to create users: %v", err)
	}
	seed := []Habit{
		{OwnerID: alice.ID, Place: "a", Time: "08:00:00", Action: "a", Duration: 1, Periodicity: 1, Monday: true, IsPublic: true},
		{OwnerID: alice.ID, Place: "b", Time: "09:00:00", Action: "b", Duration: 1, Periodicity: 1, Monday: true},
		{OwnerID: bob.ID, Place: "c", Time: "10:00:00", Action: "c", Duration: 1, Periodicity: 1, Monday: true, IsPublic: true},
	}
	if err := gdb.Create(&seed).Error; err != nil {
		t.Fatalf("failed to seed habits: %v", err)
	}

	owned, err := ListHabitsByOwner(ctx, gdb, alice.ID)
	if err != nil {
		t.Fatalf("ListHabitsByOwner returned error: %v", err)
	}
	if len(owned) != 2 {
		t.Fatalf("expected 2 habits for alice, got %d", len(owned))
	}

	public, err := ListPublicHabits(ctx, gdb)
	if err != nil {
		t.Fatalf("ListPublicHabits returned error: %v", err)
	}
	if len(public) != 2 {
		t.Fatalf("expected 2 public habits, got %d", len(public))
	}

	if _, err := FindOwnedHabit(ctx, gdb, bob.ID, seed[0].ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected foreign habit to read as not found, got %v", err)
	}
}

func TestOpenDialector(t *testing.T) {
	if d, err := openDialector(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}); err != nil || d.Name() != "sqlite" {
		t.Fatalf("expected sqlite dialector, got %v, %v", d, err)
	}
	if d, err := openDialector(config.DatabaseConfig{Host: "localhost", Port: 5432}); err != nil || d.Name() != "postgres" {
		t.Fatalf("expected postgres dialector, got %v, %v", d, err)
	}
	if _, err := openDialector(config.DatabaseConfig{Driver: "sqlite"}); err == nil {
		t.Fatal("expected error for sqlite without a path")
	}
	if _, err := openDialector(config.DatabaseConfig{Driver: "mongo"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestPostgresDSNPrefersExplicitDSN(t *testing.T) {
	got := postgresDSN(config.DatabaseConfig{DSN: "postgres://x", Host: "ignored"})
	if got != "postgres://x" {
		t.Fatalf("expected explicit DSN, got %q", got)
	}
	got = postgresDSN(config.DatabaseConfig{Host: "h", User: "u", Password: "p", DBName: "d", Port: 5432, SSLMode: "disable"})
	if got != "host=h user=u password=p dbname=d port=5432 sslmode=disable" {
		t.Fatalf("unexpected DSN %q", got)
	}
}
