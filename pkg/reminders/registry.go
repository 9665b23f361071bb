// Package reminders owns the recurring reminder job of every habit: its
// idempotent registration, its payload refresh and its soft disabling, plus
// the clock-driven worker that fires due jobs.
package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/smith3v/habit-reminder/pkg/db"
	"github.com/smith3v/habit-reminder/pkg/logger"
	"github.com/smith3v/habit-reminder/pkg/schedule"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrJobNotFound = errors.New("reminder job not found")

// SchedulingError reports a failed registry operation. Callers log it and
// carry on; the habit itself is never rolled back because of it.
type SchedulingError struct {
	Op  string
	Key string
	Err error
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("reminders: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *SchedulingError) Unwrap() error { return e.Err }

// Registration is everything needed to create or refresh a job.
type Registration struct {
	Key         string
	HabitID     uint
	OwnerID     uint
	Recurrence  schedule.Recurrence
	Message     string
	Destination string
}

// Registry stores reminder jobs keyed by habit and owner.
type Registry struct {
	db            *gorm.DB
	loc           *time.Location
	initialExpiry time.Duration
	now           func() time.Time
}

type RegistryOption func(*Registry)

func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// NewRegistry evaluates recurrences in loc. A new job expires initialExpiry
// after its first fire time.
func NewRegistry(gdb *gorm.DB, loc *time.Location, initialExpiry time.Duration, opts ...RegistryOption) *Registry {
	if loc == nil {
		loc = time.Local
	}
	r := &Registry{db: gdb, loc: loc, initialExpiry: initialExpiry, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register locates the job for reg.Key or creates it. An existing job is left
// untouched and reported with created=false. The insert relies on the unique
// key index, so concurrent callers for one key cannot both create.
func (r *Registry) Register(ctx context.Context, reg Registration) (*db.ReminderJob, bool, error) {
	job, err := r.buildJob(reg)
	if err != nil {
		return nil, false, r.fail("register", reg.Key, err)
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "key"}}, DoNothing: true}).
		Create(job)
	if res.Error != nil {
		return nil, false, r.fail("register", reg.Key, res.Error)
	}
	if res.RowsAffected == 1 {
		logger.Info("reminder job created", "key", job.Key, "cron", job.CronSpec, "expires_at", job.ExpiresAt)
		return job, true, nil
	}

	existing, err := r.lookup(ctx, reg.Key)
	if err != nil {
		return nil, false, r.fail("register", reg.Key, err)
	}
	logger.Info("reminder job already exists", "key", existing.Key, "enabled", existing.Enabled)
	return existing, false, nil
}

// Reschedule refreshes the payload of an enabled job after its habit changed.
// A missing job is registered; a disabled job stays disabled and unchanged.
func (r *Registry) Reschedule(ctx context.Context, reg Registration) (*db.ReminderJob, bool, error) {
	existing, err := r.lookup(ctx, reg.Key)
	if errors.Is(err, ErrJobNotFound) {
		return r.Register(ctx, reg)
	}
	if err != nil {
		return nil, false, r.fail("reschedule", reg.Key, err)
	}
	if !existing.Enabled {
		logger.Info("reminder job disabled, not rescheduling", "key", reg.Key)
		return existing, false, nil
	}

	fresh, err := r.buildJob(reg)
	if err != nil {
		return nil, false, r.fail("reschedule", reg.Key, err)
	}
	updates := map[string]any{
		"message":     fresh.Message,
		"destination": fresh.Destination,
		"interval":    fresh.Interval,
		"hour":        fresh.Hour,
		"minute":      fresh.Minute,
		"weekdays":    fresh.Weekdays,
		"cron_spec":   fresh.CronSpec,
	}
	if existing.LastFiredAt == nil {
		updates["expires_at"] = fresh.ExpiresAt
	}
	if err := r.db.WithContext(ctx).Model(&db.ReminderJob{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
		return nil, false, r.fail("reschedule", reg.Key, err)
	}

	updated, err := r.lookup(ctx, reg.Key)
	if err != nil {
		return nil, false, r.fail("reschedule", reg.Key, err)
	}
	logger.Info("reminder job rescheduled", "key", reg.Key, "cron", updated.CronSpec)
	return updated, false, nil
}

// Disable marks the job inactive. A missing job yields ErrJobNotFound, which
// is expected for repeated deletes and is only logged as a warning.
func (r *Registry) Disable(ctx context.Context, key string) error {
	res := r.db.WithContext(ctx).
		Model(&db.ReminderJob{}).
		Where(map[string]any{"key": key}).
		Update("enabled", false)
	if res.Error != nil {
		return r.fail("disable", key, res.Error)
	}
	if res.RowsAffected == 0 {
		logger.Warn("reminder job not found for disabling", "key", key)
		return &SchedulingError{Op: "disable", Key: key, Err: ErrJobNotFound}
	}
	logger.Info("reminder job disabled", "key", key)
	return nil
}

// Lookup returns the job stored under key.
func (r *Registry) Lookup(ctx context.Context, key string) (*db.ReminderJob, error) {
	job, err := r.lookup(ctx, key)
	if err != nil {
		return nil, &SchedulingError{Op: "lookup", Key: key, Err: err}
	}
	return job, nil
}

func (r *Registry) lookup(ctx context.Context, key string) (*db.ReminderJob, error) {
	var job db.ReminderJob
	err := r.db.WithContext(ctx).Where(map[string]any{"key": key}).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *Registry) buildJob(reg Registration) (*db.ReminderJob, error) {
	weekdays, err := json.Marshal(reg.Recurrence.Weekdays)
	if err != nil {
		return nil, err
	}
	now := r.now()
	first, err := reg.Recurrence.Next(now, r.loc)
	if err != nil {
		return nil, err
	}
	expires := first.Add(r.initialExpiry).UTC()

	return &db.ReminderJob{
		Key:         reg.Key,
		HabitID:     reg.HabitID,
		OwnerID:     reg.OwnerID,
		Message:     reg.Message,
		Destination: reg.Destination,
		Interval:    reg.Recurrence.Interval,
		Hour:        reg.Recurrence.Hour,
		Minute:      reg.Recurrence.Minute,
		Weekdays:    weekdays,
		CronSpec:    reg.Recurrence.CronSpec(),
		Enabled:     true,
		ExpiresAt:   &expires,
		CreatedAt:   now.UTC(),
	}, nil
}

func (r *Registry) fail(op, key string, err error) error {
	logger.Error("reminder registry failure", "op", op, "key", key, "error", err)
	return &SchedulingError{Op: op, Key: key, Err: err}
}
