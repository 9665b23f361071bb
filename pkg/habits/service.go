package habits

import (
	"context"
	"errors"
	"fmt"

	"github.com/smith3v/habit-reminder/pkg/db"
	"github.com/smith3v/habit-reminder/pkg/logger"
	"github.com/smith3v/habit-reminder/pkg/reminders"
	"github.com/smith3v/habit-reminder/pkg/schedule"
	"gorm.io/gorm"
)

var (
	ErrHabitNotFound   = errors.New("habit not found")
	ErrOwnerNotFound   = errors.New("owner not found")
	ErrRelatedNotFound = errors.New("related habit not found")
)

// State is where a habit stands relative to its reminder job.
type State int

const (
	StateUnscheduled State = iota
	StateValidated
	StateScheduled
	StateDisabling
	StateGone
)

func (s State) String() string {
	switch s {
	case StateUnscheduled:
		return "unscheduled"
	case StateValidated:
		return "validated"
	case StateScheduled:
		return "scheduled"
	case StateDisabling:
		return "disabling"
	case StateGone:
		return "gone"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Announcer queues a one-shot message. notify.Dispatcher satisfies it.
type Announcer interface {
	Submit(destination, message string) (string, error)
}

// CreateResult reports the stored habit and the job registered for it.
type CreateResult struct {
	Habit      *db.Habit
	JobKey     string
	JobCreated bool
	State      State
}

// Service runs habit mutations: validation first, then the write, then the
// best-effort scheduling side effects. Only validation and lookup failures
// reach the caller.
type Service struct {
	db         *gorm.DB
	registry   *reminders.Registry
	announcer  Announcer
	limits     Limits
	announceTo string
}

// NewService wires the service. announcer may be nil, which skips creation
// notices. announceTo overrides the owner's chat for those notices.
func NewService(gdb *gorm.DB, registry *reminders.Registry, announcer Announcer, limits Limits, announceTo string) *Service {
	return &Service{
		db:         gdb,
		registry:   registry,
		announcer:  announcer,
		limits:     limits,
		announceTo: announceTo,
	}
}

func (s *Service) Create(ctx context.Context, ownerID uint, draft Draft) (*CreateResult, error) {
	owner, err := s.owner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.resolveRelated(ctx, &draft); err != nil {
		return nil, err
	}

	validated, err := Validate(draft, s.limits)
	if err != nil {
		logger.Info("habit rejected", "owner_id", ownerID, "error", err)
		return nil, err
	}

	habit := toModel(ownerID, validated.Draft())
	if err := s.db.WithContext(ctx).Create(habit).Error; err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	logger.Info("habit created", "habit_id", habit.ID, "owner_id", ownerID)

	key := schedule.DeriveKey(ownerID, habit.ID)
	_, created, err := s.registry.Register(ctx, registration(key, habit, owner, validated.Clock()))
	if err != nil {
		logger.Warn("habit saved without reminder job", "habit_id", habit.ID, "key", key)
	}

	s.announce(owner, habit)

	return &CreateResult{Habit: habit, JobKey: key, JobCreated: created, State: StateScheduled}, nil
}

// Update rewrites a habit and refreshes the payload of its reminder job.
func (s *Service) Update(ctx context.Context, ownerID, habitID uint, draft Draft) (*db.Habit, error) {
	habit, err := db.FindOwnedHabit(ctx, s.db, ownerID, habitID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrHabitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load habit: %w", err)
	}
	owner, err := s.owner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.resolveRelated(ctx, &draft); err != nil {
		return nil, err
	}
	// A habit pointing at itself sees its own new flag.
	if draft.Related != nil && draft.Related.ID == habitID {
		draft.Related.IsNice = draft.IsNice
	}

	validated, err := Validate(draft, s.limits)
	if err != nil {
		logger.Info("habit update rejected", "habit_id", habitID, "error", err)
		return nil, err
	}
	if habit.IsNice && !draft.IsNice {
		if err := s.checkUnreferenced(ctx, habitID); err != nil {
			logger.Info("habit update rejected", "habit_id", habitID, "error", err)
			return nil, err
		}
	}

	updated := toModel(ownerID, validated.Draft())
	updated.ID = habit.ID
	updated.CreatedAt = habit.CreatedAt
	if err := s.db.WithContext(ctx).Save(updated).Error; err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}
	logger.Info("habit updated", "habit_id", habitID, "owner_id", ownerID)

	key := schedule.DeriveKey(ownerID, habitID)
	if _, _, err := s.registry.Reschedule(ctx, registration(key, updated, owner, validated.Clock())); err != nil {
		logger.Warn("habit updated without reminder refresh", "habit_id", habitID, "key", key)
	}
	return updated, nil
}

// Delete disables the habit's job and removes the habit. Deleting a habit
// that is already gone still succeeds. A disabled job is never re-enabled,
// so the habit is loaded before the job is touched; if the final delete
// fails the habit stays in StateDisabling and a retry finishes it.
func (s *Service) Delete(ctx context.Context, ownerID, habitID uint) (State, error) {
	key := schedule.DeriveKey(ownerID, habitID)
	habit, err := db.FindOwnedHabit(ctx, s.db, ownerID, habitID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return StateScheduled, fmt.Errorf("load habit: %w", err)
	}

	if err := s.registry.Disable(ctx, key); err != nil && !errors.Is(err, reminders.ErrJobNotFound) {
		logger.Warn("deleting habit with a live reminder job", "habit_id", habitID, "key", key)
	}
	if habit == nil {
		logger.Info("habit already deleted", "habit_id", habitID, "owner_id", ownerID)
		return StateGone, nil
	}
	if err := db.DeleteHabit(ctx, s.db, habit); err != nil {
		return StateDisabling, fmt.Errorf("delete habit: %w", err)
	}
	logger.Info("habit deleted", "habit_id", habitID, "owner_id", ownerID)
	return StateGone, nil
}

func (s *Service) List(ctx context.Context, ownerID uint) ([]db.Habit, error) {
	return db.ListHabitsByOwner(ctx, s.db, ownerID)
}

func (s *Service) ListPublic(ctx context.Context) ([]db.Habit, error) {
	return db.ListPublicHabits(ctx, s.db)
}

func (s *Service) owner(ctx context.Context, id uint) (*db.User, error) {
	user, err := db.FindUser(ctx, s.db, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOwnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load owner: %w", err)
	}
	return user, nil
}

// resolveRelated replaces the caller's view of the related habit with the
// stored one.
func (s *Service) resolveRelated(ctx context.Context, draft *Draft) error {
	if draft.Related == nil {
		return nil
	}
	related, err := db.FindHabit(ctx, s.db, draft.Related.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRelatedNotFound
	}
	if err != nil {
		return fmt.Errorf("load related habit: %w", err)
	}
	draft.Related = &RelatedHabit{ID: related.ID, IsNice: related.IsNice}
	return nil
}

// checkUnreferenced rejects turning a habit unpleasant while other habits
// use it as their reward.
func (s *Service) checkUnreferenced(ctx context.Context, habitID uint) error {
	n, err := db.CountReferencingHabits(ctx, s.db, habitID)
	if err != nil {
		return fmt.Errorf("count referencing habits: %w", err)
	}
	if n > 0 {
		logger.Debug("habit is a reward for others", "habit_id", habitID, "references", n)
		return &ValidationError{
			Rule:    RuleReferencedMustStayNice,
			Message: "Привычка используется как вознаграждение для других привычек и должна оставаться приятной.",
		}
	}
	return nil
}

func (s *Service) announce(owner *db.User, habit *db.Habit) {
	if s.announcer == nil {
		return
	}
	destination := s.announceTo
	if destination == "" {
		destination = owner.TelegramChatID
	}
	if destination == "" {
		logger.Warn("no destination for habit announcement", "habit_id", habit.ID)
		return
	}
	if _, err := s.announcer.Submit(destination, AnnouncementText(habit)); err != nil {
		logger.Warn("habit announcement not queued", "habit_id", habit.ID, "error", err)
	}
}

// AnnouncementText is the notice sent once when a habit is created.
func AnnouncementText(h *db.Habit) string {
	return fmt.Sprintf(
		"Новая привычка создана:\nМесто: %s\nВремя: %s\nДействие: %s\nПериодичность: %d день(ей)\nДлительность: %d минут\n",
		h.Place, h.Time, h.Action, h.Periodicity, h.Duration,
	)
}

func registration(key string, habit *db.Habit, owner *db.User, at schedule.Clock) reminders.Registration {
	return reminders.Registration{
		Key:         key,
		HabitID:     habit.ID,
		OwnerID:     habit.OwnerID,
		Recurrence:  schedule.DeriveRecurrence(at, weekdaysOf(habit)),
		Message:     schedule.ReminderText(habit.Action, habit.Place, at),
		Destination: owner.TelegramChatID,
	}
}

func toModel(ownerID uint, d Draft) *db.Habit {
	h := &db.Habit{
		OwnerID:     ownerID,
		Place:       d.Place,
		Time:        d.Time,
		Action:      d.Action,
		IsNice:      d.IsNice,
		Periodicity: d.Periodicity,
		Prize:       d.Prize,
		Duration:    d.Duration,
		IsPublic:    d.IsPublic,
		Monday:      d.Weekdays.Monday,
		Tuesday:     d.Weekdays.Tuesday,
		Wednesday:   d.Weekdays.Wednesday,
		Thursday:    d.Weekdays.Thursday,
		Friday:      d.Weekdays.Friday,
		Saturday:    d.Weekdays.Saturday,
		Sunday:      d.Weekdays.Sunday,
	}
	if d.Related != nil {
		id := d.Related.ID
		h.RelatedID = &id
	}
	return h
}

func weekdaysOf(h *db.Habit) schedule.Weekdays {
	return schedule.Weekdays{
		Monday:    h.Monday,
		Tuesday:   h.Tuesday,
		Wednesday: h.Wednesday,
		Thursday:  h.Thursday,
		Friday:    h.Friday,
		Saturday:  h.Saturday,
		Sunday:    h.Sunday,
	}
}

// DraftOf turns a stored habit back into a draft, e.g. as the base of a
// partial update.
func DraftOf(h *db.Habit) Draft {
	d := Draft{
		Place:       h.Place,
		Time:        h.Time,
		Action:      h.Action,
		Duration:    h.Duration,
		Periodicity: h.Periodicity,
		IsNice:      h.IsNice,
		Prize:       h.Prize,
		IsPublic:    h.IsPublic,
		Weekdays:    weekdaysOf(h),
	}
	if h.RelatedID != nil {
		d.Related = &RelatedHabit{ID: *h.RelatedID}
	}
	return d
}
