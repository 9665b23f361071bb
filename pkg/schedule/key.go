package schedule

import "fmt"

// DeriveKey returns the reminder job key for a habit. The same (owner, habit)
// pair always yields the same key.
func DeriveKey(ownerID, habitID uint) string {
	return fmt.Sprintf("habit_%d_%d", habitID, ownerID)
}

// ReminderText is the message sent on every fire of a habit's job.
func ReminderText(action, place string, at Clock) string {
	return fmt.Sprintf("Я буду %s в %s в %s", action, place, at)
}
