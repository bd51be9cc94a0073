package planner

import (
	"time"

	"gorm.io/gorm"

	"dayplan/internal/alarm"
	"dayplan/internal/category"
)

// Schedule is the aggregate root. A plain schedule is a calendar event; with
// a Todo extension it carries a todo item occurrence. Split segments of one
// logical series chain to the lineage root via ParentID.
type Schedule struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID uint64 `gorm:"index;not null"`

	Content  string `gorm:"type:text;not null"`
	Memo     string `gorm:"type:text;not null;default:''"`
	IsAllDay bool   `gorm:"not null;default:false"`

	RepeatOption RepeatOption `gorm:"type:text;not null;default:'none'"`
	RepeatValue  string       `gorm:"type:text;not null;default:''"`
	RepeatStart  *time.Time   `gorm:"index"`
	RepeatEnd    *time.Time   `gorm:"index"`

	CategoryID *uint64 `gorm:"index"`
	// ParentID always points at the lineage root, never at the immediate
	// predecessor of a split.
	ParentID *uint64 `gorm:"index"`

	Category *category.Category
	Alarms   []alarm.Alarm `gorm:"foreignKey:ScheduleID"`
	Todo     *Todo         `gorm:"foreignKey:ScheduleID"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// Rule assembles the embedded recurrence columns into the value object.
func (s *Schedule) Rule() RecurrenceRule {
	return RecurrenceRule{
		Option: s.RepeatOption,
		Value:  s.RepeatValue,
		Start:  s.RepeatStart,
		End:    s.RepeatEnd,
	}
}

// SetRule replaces the recurrence columns wholesale.
func (s *Schedule) SetRule(r RecurrenceRule) {
	s.RepeatOption = r.Option
	s.RepeatValue = r.Value
	s.RepeatStart = r.Start
	s.RepeatEnd = r.End
}

// LineageRoot is the parent id new split segments must carry.
func (s *Schedule) LineageRoot() uint64 {
	if s.ParentID != nil {
		return *s.ParentID
	}
	return s.ID
}

// Todo is the optional 1:1 extension of a schedule. TodoOrder and
// TodayTodoOrder are dense per-user sequences assigned at creation.
type Todo struct {
	ID         uint64 `gorm:"primaryKey"`
	ScheduleID uint64 `gorm:"uniqueIndex;not null"`
	UserID     uint64 `gorm:"index;not null"`

	Flag      bool `gorm:"not null;default:false"` // importance
	TodayTodo bool `gorm:"not null;default:false"`
	Completed bool `gorm:"not null;default:false"`

	TodoOrder      uint64 `gorm:"not null;default:0"`
	TodayTodoOrder uint64 `gorm:"not null;default:0"`

	EndDate *time.Time

	SubTodos []SubTodo `gorm:"foreignKey:TodoID"`
	// populated by the read side from todo_tags, in tag_order
	Tags []Tag `gorm:"-"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

type SubTodo struct {
	ID     uint64 `gorm:"primaryKey"`
	TodoID uint64 `gorm:"index;not null"`
	UserID uint64 `gorm:"index;not null"`

	Content      string `gorm:"type:text;not null"`
	SubTodoOrder uint64 `gorm:"not null;default:0"`
	Completed    bool   `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// Tag is a per-user label shared across todos.
type Tag struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID uint64 `gorm:"index;not null"`

	Content string `gorm:"type:text;not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TodoTag joins todos and tags with two independent dense orderings:
// TodoOrder positions the todo in the "under tag X" view, TagOrder positions
// the tag among the todo's tags.
type TodoTag struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID uint64 `gorm:"index;not null"`
	TodoID uint64 `gorm:"index;not null"`
	TagID  uint64 `gorm:"index;not null"`

	TodoOrder uint64 `gorm:"not null;default:0"`
	TagOrder  uint64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
