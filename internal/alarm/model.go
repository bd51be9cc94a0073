package alarm

import (
	"time"

	"gorm.io/gorm"
)

// Alarm is an absolute-time reminder owned by exactly one of a schedule or a
// todo, never both. Uniqueness of (owner, time) per user is enforced by the
// service check plus a partial unique index on postgres.
type Alarm struct {
	ID         uint64  `gorm:"primaryKey"`
	UserID     uint64  `gorm:"index;not null"`
	ScheduleID *uint64 `gorm:"index"`
	TodoID     *uint64 `gorm:"index"`

	Time time.Time `gorm:"index;not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
