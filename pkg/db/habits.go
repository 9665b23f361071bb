package db

import (
	"context"

	"gorm.io/gorm"
)

// Habit persistence used by the lifecycle service. Ownership is enforced by
// filtering on owner_id; a foreign habit reads as not found.

func FindUser(ctx context.Context, gdb *gorm.DB, id uint) (*User, error) {
	var user User
	if err := gdb.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func FindHabit(ctx context.Context, gdb *gorm.DB, id uint) (*Habit, error) {
	var habit Habit
	if err := gdb.WithContext(ctx).First(&habit, id).Error; err != nil {
		return nil, err
	}
	return &habit, nil
}

func FindOwnedHabit(ctx context.Context, gdb *gorm.DB, ownerID, id uint) (*Habit, error) {
	var habit Habit
	if err := gdb.WithContext(ctx).Where("owner_id = ?", ownerID).First(&habit, id).Error; err != nil {
		return nil, err
	}
	return &habit, nil
}

func ListHabitsByOwner(ctx context.Context, gdb *gorm.DB, ownerID uint) ([]Habit, error) {
	var habits []Habit
	err := gdb.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id DESC").Find(&habits).Error
	return habits, err
}

func ListPublicHabits(ctx context.Context, gdb *gorm.DB) ([]Habit, error) {
	var habits []Habit
	err := gdb.WithContext(ctx).Where("is_public = ?", true).Order("id DESC").Find(&habits).Error
	return habits, err
}

// CountReferencingHabits counts other habits that use the given habit as
// their pleasant reward.
func CountReferencingHabits(ctx context.Context, gdb *gorm.DB, habitID uint) (int64, error) {
	var n int64
	err := gdb.WithContext(ctx).Model(&Habit{}).
		Where("related_id = ? AND id <> ?", habitID, habitID).
		Count(&n).Error
	return n, err
}

// DeleteHabit removes a habit and clears references to it from habits that
// used it as their pleasant reward. Referencing habits are kept.
func DeleteHabit(ctx context.Context, gdb *gorm.DB, habit *Habit) error {
	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Habit{}).
			Where("related_id = ?", habit.ID).
			Update("related_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&Habit{}, habit.ID).Error
	})
}
