package reminders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smith3v/habit-reminder/pkg/db"
	"github.com/smith3v/habit-reminder/pkg/internal/testutil"
	"github.com/smith3v/habit-reminder/pkg/logger"
	"github.com/smith3v/habit-reminder/pkg/schedule"
	"gorm.io/gorm"
)

// Monday 2025-01-06 07:00 UTC.
var mondayMorning = time.Date(2025, 1, 6, 7, 0, 0, 0, time.UTC)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func weekdayRegistration(key string) Registration {
	week := schedule.Weekdays{Monday: true, Tuesday: true, Wednesday: true, Thursday: true, Friday: true}
	at := schedule.Clock{Hour: 8}
	return Registration{
		Key:         key,
		HabitID:     1,
		OwnerID:     2,
		Recurrence:  schedule.DeriveRecurrence(at, week),
		Message:     schedule.ReminderText("Пить воду", "Стол", at),
		Destination: "555",
	}
}

func newTestRegistry(t *testing.T) (*Registry, *gorm.DB) {
	t.Helper()
	gdb := testutil.SetupTestDB(t)
	logger.SetLogLevel(logger.ERROR)
	return NewRegistry(gdb, time.UTC, 30*time.Second, WithRegistryClock(fixedClock(mondayMorning))), gdb
}

func countJobs(t *testing.T, gdb *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := gdb.Model(&db.ReminderJob{}).Count(&n).Error; err != nil {
		t.Fatalf("failed to count jobs: %v", err)
	}
	return n
}

func TestRegisterCreatesJob(t *testing.T) {
	registry, _ := newTestRegistry(t)

	job, created, err := registry.Register(context.Background(), weekdayRegistration(schedule.DeriveKey(2, 1)))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if !created {
		t.Fatal("expected the first registration to create the job")
	}
	if job.Key != "habit_1_2" || !job.Enabled {
		t.Fatalf("unexpected job identity: %+v", job)
	}
	if job.Message != "Я буду Пить воду в Стол в 08:00:00" {
		t.Fatalf("unexpected message %q", job.Message)
	}
	if job.CronSpec != "0 8 * * 1,2,3,4,5" || job.Interval != schedule.DailyInterval {
		t.Fatalf("unexpected recurrence: cron=%q interval=%q", job.CronSpec, job.Interval)
	}
	if string(job.Weekdays) != "[1,2,3,4,5]" {
		t.Fatalf("unexpected weekdays payload %s", job.Weekdays)
	}
	wantExpiry := time.Date(2025, 1, 6, 8, 0, 30, 0, time.UTC)
	if job.ExpiresAt == nil || !job.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, job.ExpiresAt)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	registry, gdb := newTestRegistry(t)
	ctx := context.Background()

	first, _, err := registry.Register(ctx, weekdayRegistration("habit_1_2"))
	if err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}

	again := weekdayRegistration("habit_1_2")
	again.Message = "changed"
	again.Destination = "999"
	second, created, err := registry.Register(ctx, again)
	if err != nil {
		t.Fatalf("second Register returned error: %v", err)
	}
	if created {
		t.Fatal("second registration must report wasCreated=false")
	}
	if second.ID != first.ID || second.Message != first.Message || second.Destination != "555" {
		t.Fatalf("existing job payload was altered: %+v", second)
	}
	if n := countJobs(t, gdb); n != 1 {
		t.Fatalf("expected exactly one job, got %d", n)
	}
}

func TestRegisterConcurrentSameKey(t *testing.T) {
	registry, gdb := newTestRegistry(t)

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		creates int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := registry.Register(context.Background(), weekdayRegistration("habit_1_2"))
			if err != nil {
				t.Errorf("Register returned error: %v", err)
				return
			}
			if created {
				mu.Lock()
				creates++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if creates != 1 {
		t.Fatalf("expected exactly one creating call, got %d", creates)
	}
	if n := countJobs(t, gdb); n != 1 {
		t.Fatalf("expected exactly one job, got %d", n)
	}
}

func TestDisableMissingJobIsSoft(t *testing.T) {
	registry, _ := newTestRegistry(t)

	err := registry.Disable(context.Background(), "habit_404_1")
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	var schedErr *SchedulingError
	if !errors.As(err, &schedErr) || schedErr.Op != "disable" {
		t.Fatalf("expected SchedulingError for disable, got %v", err)
	}
}

func TestDisableTwiceConvergesToDisabled(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	if _, _, err := registry.Register(ctx, weekdayRegistration("habit_1_2")); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := registry.Disable(ctx, "habit_1_2"); err != nil {
			t.Fatalf("Disable #%d returned error: %v", i+1, err)
		}
	}

	job, err := registry.Lookup(ctx, "habit_1_2")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if job.Enabled {
		t.Fatal("expected job to stay disabled")
	}

	// Registration never re-enables a disabled job.
	again, created, err := registry.Register(ctx, weekdayRegistration("habit_1_2"))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if created || again.Enabled {
		t.Fatalf("disabled job must not be recreated or re-enabled: created=%v job=%+v", created, again)
	}
}

func TestRescheduleRefreshesEnabledJob(t *testing.T) {
	registry, gdb := newTestRegistry(t)
	ctx := context.Background()

	if _, _, err := registry.Register(ctx, weekdayRegistration("habit_1_2")); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	at := schedule.Clock{Hour: 19, Minute: 30}
	changed := weekdayRegistration("habit_1_2")
	changed.Recurrence = schedule.DeriveRecurrence(at, schedule.Weekdays{Saturday: true, Sunday: true})
	changed.Message = schedule.ReminderText("Гулять", "Парк", at)

	job, created, err := registry.Reschedule(ctx, changed)
	if err != nil {
		t.Fatalf("Reschedule returned error: %v", err)
	}
	if created {
		t.Fatal("reschedule of an existing job must not report creation")
	}
	if job.CronSpec != "30 19 * * 0,6" || job.Message != "Я буду Гулять в Парк в 19:30:00" {
		t.Fatalf("payload not refreshed: %+v", job)
	}
	if n := countJobs(t, gdb); n != 1 {
		t.Fatalf("expected one job after reschedule, got %d", n)
	}
}

func TestRescheduleLeavesDisabledJob(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	if _, _, err := registry.Register(ctx, weekdayRegistration("habit_1_2")); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := registry.Disable(ctx, "habit_1_2"); err != nil {
		t.Fatalf("Disable returned error: %v", err)
	}

	changed := weekdayRegistration("habit_1_2")
	changed.Message = "changed"
	job, _, err := registry.Reschedule(ctx, changed)
	if err != nil {
		t.Fatalf("Reschedule returned error: %v", err)
	}
	if job.Enabled || job.Message == "changed" {
		t.Fatalf("disabled job must stay untouched: %+v", job)
	}
}

func TestRescheduleRegistersMissingJob(t *testing.T) {
	registry, _ := newTestRegistry(t)

	job, created, err := registry.Reschedule(context.Background(), weekdayRegistration("habit_7_2"))
	if err != nil {
		t.Fatalf("Reschedule returned error: %v", err)
	}
	if !created || !job.Enabled {
		t.Fatalf("expected a fresh enabled job, created=%v job=%+v", created, job)
	}
}

func TestRegisterReportsStorageFailure(t *testing.T) {
	registry, gdb := newTestRegistry(t)
	if err := gdb.Migrator().DropTable(&db.ReminderJob{}); err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}

	_, created, err := registry.Register(context.Background(), weekdayRegistration("habit_1_2"))
	var schedErr *SchedulingError
	if !errors.As(err, &schedErr) {
		t.Fatalf("expected SchedulingError, got %v", err)
	}
	if created {
		t.Fatal("failed registration must not report creation")
	}
	if err := registry.Disable(context.Background(), "habit_1_2"); !errors.As(err, &schedErr) {
		t.Fatalf("expected SchedulingError from Disable, got %v", err)
	}
}
