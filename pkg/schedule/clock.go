package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Clock is a local wall-clock time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock accepts "HH:MM" or "HH:MM:SS". Seconds must be zero.
func ParseClock(value string) (Clock, error) {
	s := strings.TrimSpace(value)
	for _, layout := range []string{"15:04:05", "15:04"} {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Second() != 0 {
			return Clock{}, fmt.Errorf("invalid time %q: seconds are not supported", value)
		}
		return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
	}
	return Clock{}, fmt.Errorf("invalid time %q, expected HH:MM or HH:MM:SS", value)
}

func (c Clock) Valid() bool {
	return c.Hour >= 0 && c.Hour <= 23 && c.Minute >= 0 && c.Minute <= 59
}

// String renders HH:MM:SS, the form stored on habits and shown in reminders.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:00", c.Hour, c.Minute)
}
