// Package habits keeps habit records consistent and ties their lifecycle to
// the reminder jobs that announce them.
package habits

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/smith3v/habit-reminder/pkg/config"
	"github.com/smith3v/habit-reminder/pkg/schedule"
)

const (
	maxPlaceLen  = 140
	maxActionLen = 140
	maxPrizeLen  = 100
)

// Rule names the consistency rule a draft violated.
type Rule string

const (
	RuleRewardExclusive   Rule = "reward_exclusive"
	RuleNiceHasNoReward   Rule = "nice_has_no_reward"
	RuleRelatedMustBeNice Rule = "related_must_be_nice"
	RuleWeekdayRequired   Rule = "weekday_required"
	RuleDurationRange     Rule = "duration_range"
	RulePeriodicityRange  Rule = "periodicity_range"
	RuleTimeFormat        Rule = "time_format"
	RuleFieldLength       Rule = "field_length"

	// RuleReferencedMustStayNice is checked against stored habits, not by
	// Validate.
	RuleReferencedMustStayNice Rule = "referenced_must_stay_nice"
)

// ValidationError rejects a draft before anything is written.
type ValidationError struct {
	Rule    Rule
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func reject(rule Rule, format string, args ...any) (Validated, error) {
	return Validated{}, &ValidationError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// RelatedHabit is the part of a referenced habit that validation needs.
type RelatedHabit struct {
	ID     uint
	IsNice bool
}

// Draft holds the candidate field values of a habit.
type Draft struct {
	Place       string
	Time        string
	Action      string
	Duration    int
	Periodicity int
	IsNice      bool
	Prize       string
	Related     *RelatedHabit
	IsPublic    bool
	Weekdays    schedule.Weekdays
}

func (d Draft) hasPrize() bool {
	return strings.TrimSpace(d.Prize) != ""
}

// Limits bounds the numeric fields of a draft.
type Limits struct {
	MaxDurationMinutes int
	PeriodicityMin     int
	PeriodicityMax     int
}

// DefaultLimits returns the built-in bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxDurationMinutes: config.DefaultMaxDurationMinutes,
		PeriodicityMin:     config.DefaultPeriodicityMin,
		PeriodicityMax:     config.DefaultPeriodicityMax,
	}
}

// LimitsFromConfig falls back to the defaults for unset values.
func LimitsFromConfig(cfg config.HabitsConfig) Limits {
	limits := DefaultLimits()
	if cfg.MaxDurationMinutes > 0 {
		limits.MaxDurationMinutes = cfg.MaxDurationMinutes
	}
	if cfg.PeriodicityMin > 0 {
		limits.PeriodicityMin = cfg.PeriodicityMin
	}
	if cfg.PeriodicityMax > 0 {
		limits.PeriodicityMax = cfg.PeriodicityMax
	}
	return limits
}

// Validated is a draft that passed Validate. Its time is normalized.
type Validated struct {
	draft Draft
	clock schedule.Clock
}

func (v Validated) Draft() Draft {
	return v.draft
}

func (v Validated) Clock() schedule.Clock {
	return v.clock
}

// Validate checks a draft against the habit consistency rules in a fixed
// order and reports the first violation.
func Validate(d Draft, limits Limits) (Validated, error) {
	if d.Related != nil && d.hasPrize() {
		return reject(RuleRewardExclusive, "Может быть указано либо вознаграждение, либо связанная привычка, но не оба одновременно.")
	}
	if d.IsNice && (d.Related != nil || d.hasPrize()) {
		return reject(RuleNiceHasNoReward, "У приятной привычки не может быть связанной привычки или вознаграждения.")
	}
	if d.Related != nil && !d.Related.IsNice {
		return reject(RuleRelatedMustBeNice, "Связанная привычка должна быть приятной.")
	}
	if !d.Weekdays.Any() {
		return reject(RuleWeekdayRequired, "Хотя бы один день в неделю должен быть выбран!")
	}
	if d.Duration <= 0 || d.Duration > limits.MaxDurationMinutes {
		return reject(RuleDurationRange, "Время выполнения должно быть от 1 до %d минут.", limits.MaxDurationMinutes)
	}
	if d.Periodicity < limits.PeriodicityMin || d.Periodicity > limits.PeriodicityMax {
		return reject(RulePeriodicityRange, "Периодичность должна быть от %d до %d дней.", limits.PeriodicityMin, limits.PeriodicityMax)
	}
	clock, err := schedule.ParseClock(d.Time)
	if err != nil {
		return reject(RuleTimeFormat, "Время должно быть в формате ЧЧ:ММ.")
	}
	if err := checkText("Место", d.Place, maxPlaceLen, true); err != nil {
		return Validated{}, err
	}
	if err := checkText("Действие", d.Action, maxActionLen, true); err != nil {
		return Validated{}, err
	}
	if err := checkText("Вознаграждение", d.Prize, maxPrizeLen, false); err != nil {
		return Validated{}, err
	}

	d.Place = strings.TrimSpace(d.Place)
	d.Action = strings.TrimSpace(d.Action)
	d.Prize = strings.TrimSpace(d.Prize)
	d.Time = clock.String()
	return Validated{draft: d, clock: clock}, nil
}

func checkText(field, value string, max int, required bool) error {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if required && n == 0 {
		return &ValidationError{Rule: RuleFieldLength, Message: fmt.Sprintf("Поле «%s» обязательно.", field)}
	}
	if n > max {
		return &ValidationError{Rule: RuleFieldLength, Message: fmt.Sprintf("Поле «%s» длиннее %d символов.", field, max)}
	}
	return nil
}
