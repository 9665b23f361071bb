// pkg/db/models.go
package db

import (
	"time"

	"gorm.io/datatypes"
)

type User struct {
	ID             uint   `gorm:"primaryKey"`
	Username       string `gorm:"not null;uniqueIndex"`
	TelegramChatID string `gorm:"not null;default:''"` // Destination for reminders, may be empty
	CreatedAt      time.Time
}

type Habit struct {
	ID          uint   `gorm:"primaryKey"`
	OwnerID     uint   `gorm:"index;not null"`
	Owner       *User  `gorm:"constraint:OnDelete:CASCADE"`
	Place       string `gorm:"size:140;not null"`
	Time        string `gorm:"size:8;not null"` // HH:MM:SS, local wall clock
	Action      string `gorm:"size:140;not null"`
	IsNice      bool   `gorm:"not null"`
	RelatedID   *uint  `gorm:"index"`
	Related     *Habit `gorm:"constraint:OnDelete:SET NULL"`
	Periodicity int    `gorm:"not null;default:1"`
	Prize       string `gorm:"size:100;not null;default:''"`
	Duration    int    `gorm:"not null"`
	IsPublic    bool   `gorm:"not null;index"`
	Monday      bool   `gorm:"not null"`
	Tuesday     bool   `gorm:"not null"`
	Wednesday   bool   `gorm:"not null"`
	Thursday    bool   `gorm:"not null"`
	Friday      bool   `gorm:"not null"`
	Saturday    bool   `gorm:"not null"`
	Sunday      bool   `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ReminderJob is the durable recurring reminder of one habit. Key is unique,
// which is what makes registration idempotent.
type ReminderJob struct {
	ID          uint           `gorm:"primaryKey"`
	Key         string         `gorm:"size:191;not null;uniqueIndex"`
	HabitID     uint           `gorm:"index;not null"`
	OwnerID     uint           `gorm:"index;not null"`
	Message     string         `gorm:"not null"`
	Destination string         `gorm:"not null;default:''"`
	Interval    string         `gorm:"not null;default:'1d'"`
	Hour        int            `gorm:"not null"`
	Minute      int            `gorm:"not null"`
	Weekdays    datatypes.JSON `gorm:"not null"`
	CronSpec    string         `gorm:"not null"`
	Enabled     bool           `gorm:"not null;index"`
	ExpiresAt   *time.Time
	LastFiredAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
