package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/smith3v/habit-reminder/pkg/db"
	"github.com/smith3v/habit-reminder/pkg/habits"
	"github.com/smith3v/habit-reminder/pkg/schedule"
	"gorm.io/gorm"
)

// HabitFields are the editable habit attributes. Zero values mean "not
// given" so the same set serves create and update.
type HabitFields struct {
	Place       string `help:"Where the habit happens."`
	Time        string `short:"t" help:"Local time, HH:MM."`
	Action      string `short:"a" help:"What to do."`
	Duration    int    `short:"d" help:"Minutes the habit takes."`
	Periodicity int    `short:"p" help:"Repeat every N days."`
	Days        string `short:"w" help:"Comma-separated weekdays (mon..sun), 'weekdays' or 'all'."`
	Prize       string `help:"Reward after completing the habit."`
	Related     uint   `help:"ID of a pleasant habit used as the reward."`
	Nice        string `help:"Pleasant habit (yes|no)."`
	Public      string `help:"Visible to everyone (yes|no)."`
}

func (f HabitFields) apply(d *habits.Draft) error {
	if f.Place != "" {
		d.Place = f.Place
	}
	if f.Time != "" {
		d.Time = f.Time
	}
	if f.Action != "" {
		d.Action = f.Action
	}
	if f.Duration != 0 {
		d.Duration = f.Duration
	}
	if f.Periodicity != 0 {
		d.Periodicity = f.Periodicity
	}
	if f.Days != "" {
		week, err := parseWeekdays(f.Days)
		if err != nil {
			return err
		}
		d.Weekdays = week
	}
	if f.Prize != "" {
		d.Prize = f.Prize
	}
	if f.Related != 0 {
		d.Related = &habits.RelatedHabit{ID: f.Related}
	}
	if err := applyYesNo("nice", f.Nice, &d.IsNice); err != nil {
		return err
	}
	return applyYesNo("public", f.Public, &d.IsPublic)
}

func applyYesNo(flag, value string, dst *bool) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
	case "yes", "true":
		*dst = true
	case "no", "false":
		*dst = false
	default:
		return fmt.Errorf("--%s must be yes or no, got %q", flag, value)
	}
	return nil
}

var weekdayNames = map[string]func(*schedule.Weekdays){
	"mon": func(w *schedule.Weekdays) { w.Monday = true },
	"tue": func(w *schedule.Weekdays) { w.Tuesday = true },
	"wed": func(w *schedule.Weekdays) { w.Wednesday = true },
	"thu": func(w *schedule.Weekdays) { w.Thursday = true },
	"fri": func(w *schedule.Weekdays) { w.Friday = true },
	"sat": func(w *schedule.Weekdays) { w.Saturday = true },
	"sun": func(w *schedule.Weekdays) { w.Sunday = true },
}

func parseWeekdays(value string) (schedule.Weekdays, error) {
	var week schedule.Weekdays
	for _, raw := range strings.Split(value, ",") {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch name {
		case "":
			continue
		case "all":
			return schedule.Weekdays{Monday: true, Tuesday: true, Wednesday: true, Thursday: true, Friday: true, Saturday: true, Sunday: true}, nil
		case "weekdays":
			week.Monday, week.Tuesday, week.Wednesday, week.Thursday, week.Friday = true, true, true, true, true
			continue
		case "weekend":
			week.Saturday, week.Sunday = true, true
			continue
		}
		if len(name) > 3 {
			name = name[:3]
		}
		set, ok := weekdayNames[name]
		if !ok {
			return schedule.Weekdays{}, fmt.Errorf("unknown weekday %q", raw)
		}
		set(&week)
	}
	return week, nil
}

type HabitCreateCmd struct {
	Owner  string      `required:"" help:"Owner username."`
	Fields HabitFields `embed:""`
}

func (c *HabitCreateCmd) Run(app *App) error {
	owner, err := app.userByName(c.Owner)
	if err != nil {
		return err
	}
	draft := habits.Draft{Periodicity: 1}
	if err := c.Fields.apply(&draft); err != nil {
		return err
	}

	res, err := app.Habits.Create(app.Ctx, owner.ID, draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "habit %d created, reminder %s (new job: %t)\n", res.Habit.ID, res.JobKey, res.JobCreated)
	return nil
}

type HabitUpdateCmd struct {
	ID        uint        `arg:"" help:"Habit ID."`
	Owner     string      `required:"" help:"Owner username."`
	NoPrize   bool        `help:"Remove the reward."`
	NoRelated bool        `help:"Remove the related pleasant habit."`
	Fields    HabitFields `embed:""`
}

func (c *HabitUpdateCmd) Run(app *App) error {
	owner, err := app.userByName(c.Owner)
	if err != nil {
		return err
	}
	current, err := db.FindOwnedHabit(app.Ctx, app.DB, owner.ID, c.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return habits.ErrHabitNotFound
	}
	if err != nil {
		return err
	}

	draft := habits.DraftOf(current)
	if c.NoPrize {
		draft.Prize = ""
	}
	if c.NoRelated {
		draft.Related = nil
	}
	if err := c.Fields.apply(&draft); err != nil {
		return err
	}

	updated, err := app.Habits.Update(app.Ctx, owner.ID, c.ID, draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "habit %d updated\n", updated.ID)
	return nil
}

type HabitDeleteCmd struct {
	ID    uint   `arg:"" help:"Habit ID."`
	Owner string `required:"" help:"Owner username."`
}

func (c *HabitDeleteCmd) Run(app *App) error {
	owner, err := app.userByName(c.Owner)
	if err != nil {
		return err
	}
	state, err := app.Habits.Delete(app.Ctx, owner.ID, c.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "habit %d %s\n", c.ID, state)
	return nil
}

type HabitListCmd struct {
	Owner  string `help:"Owner username."`
	Public bool   `help:"List public habits of all users."`
}

func (c *HabitListCmd) Run(app *App) error {
	var (
		list []db.Habit
		err  error
	)
	switch {
	case c.Public:
		list, err = app.Habits.ListPublic(app.Ctx)
	case c.Owner != "":
		owner, uerr := app.userByName(c.Owner)
		if uerr != nil {
			return uerr
		}
		list, err = app.Habits.List(app.Ctx, owner.ID)
	default:
		return fmt.Errorf("either --owner or --public is required")
	}
	if err != nil {
		return err
	}

	for _, h := range list {
		fmt.Fprintf(app.Out, "%d\t%s\t%s\t%s\t%s\n", h.ID, h.Time, h.Action, h.Place, formatHabitDays(h))
	}
	return nil
}

func formatHabitDays(h db.Habit) string {
	flags := []struct {
		on   bool
		name string
	}{
		{h.Monday, "mon"}, {h.Tuesday, "tue"}, {h.Wednesday, "wed"}, {h.Thursday, "thu"},
		{h.Friday, "fri"}, {h.Saturday, "sat"}, {h.Sunday, "sun"},
	}
	var days []string
	for _, f := range flags {
		if f.on {
			days = append(days, f.name)
		}
	}
	return strings.Join(days, ",")
}
