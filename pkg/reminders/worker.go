package reminders

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/smith3v/habit-reminder/pkg/db"
	"github.com/smith3v/habit-reminder/pkg/logger"
	"github.com/smith3v/habit-reminder/pkg/schedule"
	"gorm.io/gorm"
)

// tickSpec runs the worker at the start of every minute.
const tickSpec = "* * * * *"

// Sender delivers one reminder. notify.Dispatcher satisfies it.
type Sender interface {
	Send(ctx context.Context, destination, message string) error
}

// Worker fires enabled reminder jobs when their recurrence comes due. Each
// slot is claimed in the database before sending, so a slot is delivered at
// most once even with several workers running against one store.
type Worker struct {
	db     *gorm.DB
	sender Sender
	loc    *time.Location
	now    func() time.Time
	cron   *cron.Cron
}

type WorkerOption func(*Worker)

func WithWorkerClock(now func() time.Time) WorkerOption {
	return func(w *Worker) { w.now = now }
}

func NewWorker(gdb *gorm.DB, sender Sender, loc *time.Location, opts ...WorkerOption) *Worker {
	if loc == nil {
		loc = time.Local
	}
	w := &Worker{db: gdb, sender: sender, loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Start(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(w.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(tickSpec, func() { w.Tick(ctx) }); err != nil {
		return err
	}
	w.cron = c
	c.Start()
	logger.Info("reminder worker started", "tz", w.loc.String())
	return nil
}

func (w *Worker) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
	w.cron = nil
	logger.Info("reminder worker stopped")
}

// Tick fires every due job once and returns how many reminders were sent.
func (w *Worker) Tick(ctx context.Context) int {
	now := w.now()
	var jobs []db.ReminderJob
	if err := w.db.WithContext(ctx).Where("enabled = ?", true).Find(&jobs).Error; err != nil {
		logger.Error("failed to fetch reminder jobs", "error", err)
		return 0
	}

	sent := 0
	for _, job := range jobs {
		if w.fire(ctx, job, now) {
			sent++
		}
	}
	return sent
}

func (w *Worker) fire(ctx context.Context, job db.ReminderJob, now time.Time) bool {
	sched, err := schedule.Schedule(job.CronSpec)
	if err != nil {
		logger.Error("invalid reminder schedule", "key", job.Key, "error", err)
		return false
	}

	since := job.CreatedAt
	if job.LastFiredAt != nil {
		since = *job.LastFiredAt
	}
	slot, ok := schedule.LatestDue(sched, since, now, w.loc)
	if !ok {
		return false
	}

	claimed, err := w.claim(ctx, job.ID, slot.UTC())
	if err != nil {
		logger.Error("failed to claim reminder slot", "key", job.Key, "slot", slot, "error", err)
		return false
	}
	if !claimed {
		return false
	}

	// The first fire has a short grace window; past it the slot is consumed
	// without sending and the job continues on its regular schedule.
	if job.LastFiredAt == nil && job.ExpiresAt != nil && now.After(*job.ExpiresAt) {
		logger.Warn("first reminder fire missed, abandoning", "key", job.Key, "slot", slot, "expires_at", *job.ExpiresAt)
		return false
	}

	if err := w.sender.Send(ctx, job.Destination, job.Message); err != nil {
		logger.Debug("reminder not delivered", "key", job.Key, "error", err)
		return false
	}
	return true
}

func (w *Worker) claim(ctx context.Context, id uint, slot time.Time) (bool, error) {
	res := w.db.WithContext(ctx).
		Model(&db.ReminderJob{}).
		Where("id = ? AND enabled = ?", id, true).
		Where("(last_fired_at IS NULL OR last_fired_at < ?)", slot).
		UpdateColumn("last_fired_at", slot)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
