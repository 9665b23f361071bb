package handlers

import (
	"context"
	"strings"
	"testing"

	"github.com/smith3v/habit-reminder/pkg/db"
	"github.com/smith3v/habit-reminder/pkg/internal/testutil"
	"github.com/smith3v/habit-reminder/pkg/logger"
)

func seedHabit(t *testing.T, h db.Habit) {
	t.Helper()
	if err := db.DB.Create(&h).Error; err != nil {
		t.Fatalf("failed to seed habit: %v", err)
	}
}

func TestDefaultHandlerSendsHelp(t *testing.T) {
	logger.SetLogLevel(logger.ERROR)
	client := &recordingClient{}

	DefaultHandler(context.Background(), newTestTelegramBot(t, client), newTestUpdate("hello", "alice", 100))

	if got := client.lastText(t); !strings.Contains(got, "/habits") {
		t.Fatalf("expected help text, got %q", got)
	}
}

func TestHandleListHabitsRequiresBoundChat(t *testing.T) {
	testutil.SetupTestDB(t)
	logger.SetLogLevel(logger.ERROR)
	client := &recordingClient{}

	HandleListHabits(context.Background(), newTestTelegramBot(t, client), newTestUpdate("/habits", "ghost", 900))

	if got := client.lastText(t); !strings.Contains(got, "/start") {
		t.Fatalf("expected hint to bind chat, got %q", got)
	}
}

func TestHandleListHabitsShowsOwnHabits(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	logger.SetLogLevel(logger.ERROR)
	owner := testutil.SeedUser(t, gdb, "alice", "555")
	other := testutil.SeedUser(t, gdb, "bob", "777")
	seedHabit(t, db.Habit{OwnerID: owner.ID, Place: "Стол", Time: "08:00:00", Action: "Пить воду", Duration: 2, Periodicity: 1, Monday: true, Friday: true})
	seedHabit(t, db.Habit{OwnerID: other.ID, Place: "Парк", Time: "19:00:00", Action: "Гулять", Duration: 30, Periodicity: 1, Sunday: true})

	client := &recordingClient{}
	HandleListHabits(context.Background(), newTestTelegramBot(t, client), newTestUpdate("/habits", "alice", 555))

	got := client.lastText(t)
	if !strings.Contains(got, "08:00:00: Пить воду в Стол (Пн,Пт)") {
		t.Fatalf("expected own habit in list, got %q", got)
	}
	if strings.Contains(got, "Гулять") {
		t.Fatalf("foreign habit leaked into list: %q", got)
	}
}

func TestHandleListHabitsEmpty(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	logger.SetLogLevel(logger.ERROR)
	testutil.SeedUser(t, gdb, "alice", "555")

	client := &recordingClient{}
	HandleListHabits(context.Background(), newTestTelegramBot(t, client), newTestUpdate("/habits", "alice", 555))

	if got := client.lastText(t); got != "У вас пока нет привычек." {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestHandlePublicHabits(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	logger.SetLogLevel(logger.ERROR)
	owner := testutil.SeedUser(t, gdb, "alice", "555")
	seedHabit(t, db.Habit{OwnerID: owner.ID, Place: "Диван", Time: "21:00:00", Action: "Читать", IsNice: true, IsPublic: true, Duration: 20, Periodicity: 1, Saturday: true, Sunday: true})
	seedHabit(t, db.Habit{OwnerID: owner.ID, Place: "Стол", Time: "08:00:00", Action: "Пить воду", Duration: 2, Periodicity: 1, Monday: true})

	client := &recordingClient{}
	HandlePublicHabits(context.Background(), newTestTelegramBot(t, client), newTestUpdate("/public", "bob", 777))

	got := client.lastText(t)
	if !strings.Contains(got, "Читать в Диван (Сб,Вс), приятная") || strings.Contains(got, "Пить воду") {
		t.Fatalf("unexpected public list %q", got)
	}
}
