package category

import (
	"time"

	"gorm.io/gorm"
)

// Category is a per-user calendar label. CategoryOrder is dense per user;
// IsSelected drives calendar color filtering.
type Category struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID uint64 `gorm:"index;not null"`

	Content string `gorm:"type:text;not null"`
	Color   string `gorm:"type:text;not null;default:''"`

	CategoryOrder uint64 `gorm:"not null;default:0"`
	IsSelected    bool   `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
