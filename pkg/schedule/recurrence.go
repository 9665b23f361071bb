package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DailyInterval is the coarse cadence recorded on every job.
const DailyInterval = "1d"

// Weekdays holds the seven activity flags of a habit.
type Weekdays struct {
	Monday    bool
	Tuesday   bool
	Wednesday bool
	Thursday  bool
	Friday    bool
	Saturday  bool
	Sunday    bool
}

// Active lists enabled days as time.Weekday values (Sunday=0), ascending.
func (w Weekdays) Active() []int {
	flags := [7]bool{w.Sunday, w.Monday, w.Tuesday, w.Wednesday, w.Thursday, w.Friday, w.Saturday}
	days := make([]int, 0, 7)
	for i, on := range flags {
		if on {
			days = append(days, i)
		}
	}
	return days
}

func (w Weekdays) Any() bool {
	return len(w.Active()) > 0
}

// Recurrence describes when a reminder job fires.
type Recurrence struct {
	Interval string
	Hour     int
	Minute   int
	Weekdays []int
}

func DeriveRecurrence(at Clock, week Weekdays) Recurrence {
	return Recurrence{
		Interval: DailyInterval,
		Hour:     at.Hour,
		Minute:   at.Minute,
		Weekdays: week.Active(),
	}
}

// CronSpec renders the recurrence as a standard five-field cron expression.
// An empty weekday list yields "*" in the day-of-week field.
func (r Recurrence) CronSpec() string {
	dow := "*"
	if len(r.Weekdays) > 0 && len(r.Weekdays) < 7 {
		parts := make([]string, len(r.Weekdays))
		for i, d := range r.Weekdays {
			parts[i] = strconv.Itoa(d)
		}
		dow = strings.Join(parts, ",")
	}
	return fmt.Sprintf("%d %d * * %s", r.Minute, r.Hour, dow)
}

// Schedule parses a cron spec produced by CronSpec.
func Schedule(spec string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}
	return sched, nil
}

// Next returns the first fire time strictly after the given instant,
// evaluated in loc.
func (r Recurrence) Next(after time.Time, loc *time.Location) (time.Time, error) {
	sched, err := Schedule(r.CronSpec())
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(after.In(loc)), nil
}

// LatestDue returns the most recent fire time in (since, now]. ok is false
// when nothing fired in that window.
func LatestDue(sched cron.Schedule, since, now time.Time, loc *time.Location) (time.Time, bool) {
	next := sched.Next(since.In(loc))
	if next.IsZero() || next.After(now) {
		return time.Time{}, false
	}
	// A job is fired at most once per tick, so skipped slots collapse into
	// the latest one.
	for {
		following := sched.Next(next)
		if following.IsZero() || following.After(now) {
			return next, true
		}
		next = following
	}
}
