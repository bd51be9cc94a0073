package planner

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dayplan/internal/alarm"
	"dayplan/internal/apperr"
	"dayplan/internal/category"
)

type Service struct {
	DB *gorm.DB
}

type SubTodoInput struct {
	Content   string
	Completed bool
}

// TodoInput requests the todo extension on a schedule.
type TodoInput struct {
	Flag      bool
	TodayTodo bool
	EndDate   *time.Time
	SubTodos  []SubTodoInput
	Tags      []string
}

type CreateInput struct {
	Content    string
	Memo       string
	IsAllDay   bool
	Rule       RecurrenceRule
	CategoryID *uint64
	AlarmTimes []time.Time
	Todo       *TodoInput
}

// UpdateInput replaces aggregate fields on the same id. Nil pointers leave
// the field untouched; Rule and AlarmTimes are always replaced wholesale
// when present.
type UpdateInput struct {
	Content       *string
	Memo          *string
	IsAllDay      *bool
	Rule          *RecurrenceRule
	CategoryID    *uint64
	ClearCategory bool
	AlarmTimes    *[]time.Time
}

// wrapErr keeps apperr codes intact and folds everything else into the
// internal category after rollback.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	var e *apperr.Error
	if errors.As(err, &e) {
		return err
	}
	return apperr.Internal(err)
}

func (s *Service) Create(ctx context.Context, userID uint64, in CreateInput) (*Schedule, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return nil, apperr.Validationf("content required")
	}
	if in.Rule.Option == "" {
		in.Rule.Option = RepeatNone
	}
	if err := in.Rule.Validate(); err != nil {
		return nil, err
	}

	var sch Schedule
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.CategoryID != nil {
			if err := checkCategory(tx, userID, *in.CategoryID); err != nil {
				return err
			}
		}

		sch = Schedule{
			UserID:     userID,
			Content:    in.Content,
			Memo:       in.Memo,
			IsAllDay:   in.IsAllDay,
			CategoryID: in.CategoryID,
		}
		sch.SetRule(in.Rule)
		if err := tx.Create(&sch).Error; err != nil {
			return err
		}

		alarms, err := alarm.CreateForSchedule(tx, userID, sch.ID, in.AlarmTimes)
		if err != nil {
			return err
		}
		sch.Alarms = alarms

		if in.Todo != nil {
			todo, err := createTodo(tx, userID, sch.ID, *in.Todo)
			if err != nil {
				return err
			}
			sch.Todo = todo
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return &sch, nil
}

func createTodo(tx *gorm.DB, userID, scheduleID uint64, in TodoInput) (*Todo, error) {
	order, err := nextOrder(tx, userID, "todo_order", nil)
	if err != nil {
		return nil, err
	}
	var todayOrder uint64
	if in.TodayTodo {
		if todayOrder, err = nextOrder(tx, userID, "today_todo_order", boolPtr(true)); err != nil {
			return nil, err
		}
	}

	todo := Todo{
		ScheduleID:     scheduleID,
		UserID:         userID,
		Flag:           in.Flag,
		TodayTodo:      in.TodayTodo,
		EndDate:        in.EndDate,
		TodoOrder:      order,
		TodayTodoOrder: todayOrder,
	}
	if err := tx.Create(&todo).Error; err != nil {
		return nil, err
	}

	for i, st := range in.SubTodos {
		content := strings.TrimSpace(st.Content)
		if content == "" {
			return nil, apperr.Validationf("sub todo content required")
		}
		sub := SubTodo{
			TodoID:       todo.ID,
			UserID:       userID,
			Content:      content,
			SubTodoOrder: uint64(i + 1),
			Completed:    st.Completed,
		}
		if err := tx.Create(&sub).Error; err != nil {
			return nil, err
		}
		todo.SubTodos = append(todo.SubTodos, sub)
	}

	if err := attachTags(tx, userID, todo.ID, in.Tags); err != nil {
		return nil, err
	}
	return &todo, nil
}

// nextOrder allocates max(existing)+1 for a per-user ordering dimension.
// The top row is read FOR UPDATE on postgres so two writers cannot hand out
// the same value.
func nextOrder(tx *gorm.DB, userID uint64, column string, todayOnly *bool) (uint64, error) {
	q := tx.Model(&Todo{}).Where("user_id = ?", userID)
	if todayOnly != nil {
		q = q.Where("today_todo = ?", *todayOnly)
	}
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var top Todo
	err := q.Order(column + " desc").First(&top).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	switch column {
	case "today_todo_order":
		return top.TodayTodoOrder + 1, nil
	default:
		return top.TodoOrder + 1, nil
	}
}

// attachTags resolves tag contents to per-user tags (creating missing ones)
// and writes join rows carrying both orderings.
func attachTags(tx *gorm.DB, userID, todoID uint64, tags []string) error {
	for i, name := range tags {
		name = strings.TrimSpace(name)
		if name == "" {
			return apperr.Validationf("tag content required")
		}

		var tag Tag
		err := tx.Where("user_id = ? AND content = ?", userID, name).First(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tag = Tag{UserID: userID, Content: name}
			if err := tx.Create(&tag).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		// position of this todo within the tag's own list
		var top TodoTag
		todoOrder := uint64(1)
		err = tx.Where("user_id = ? AND tag_id = ?", userID, tag.ID).
			Order("todo_order desc").First(&top).Error
		if err == nil {
			todoOrder = top.TodoOrder + 1
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		tt := TodoTag{
			UserID:    userID,
			TodoID:    todoID,
			TagID:     tag.ID,
			TodoOrder: todoOrder,
			TagOrder:  uint64(i + 1),
		}
		if err := tx.Create(&tt).Error; err != nil {
			return err
		}
	}
	return nil
}

func checkCategory(tx *gorm.DB, userID, categoryID uint64) error {
	var n int64
	if err := tx.Model(&category.Category{}).
		Where("id = ? AND user_id = ?", categoryID, userID).
		Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFoundf("category %d not found", categoryID)
	}
	return nil
}

// getOwned loads a live schedule for the user or reports not found. Used as
// the ownership gate at the top of every mutating operation.
func getOwned(tx *gorm.DB, userID, scheduleID uint64) (*Schedule, error) {
	var sch Schedule
	err := tx.Where("id = ? AND user_id = ?", scheduleID, userID).First(&sch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("schedule %d not found", scheduleID)
	}
	if err != nil {
		return nil, err
	}
	return &sch, nil
}

// UpdateWholesale edits the entire series in place on the same id. Alarms
// are replaced as a set, never diffed.
func (s *Service) UpdateWholesale(ctx context.Context, userID, scheduleID uint64, in UpdateInput) (*Schedule, error) {
	var sch *Schedule
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if sch, err = getOwned(tx, userID, scheduleID); err != nil {
			return err
		}

		if err := applyUpdate(tx, userID, sch, in); err != nil {
			return err
		}
		if err := tx.Save(sch).Error; err != nil {
			return err
		}

		if in.AlarmTimes != nil {
			alarms, err := alarm.ReplaceForSchedule(tx, userID, sch.ID, *in.AlarmTimes)
			if err != nil {
				return err
			}
			sch.Alarms = alarms
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return sch, nil
}

// applyUpdate merges in onto sch and re-validates the result before it is
// persisted.
func applyUpdate(tx *gorm.DB, userID uint64, sch *Schedule, in UpdateInput) error {
	if in.Content != nil {
		content := strings.TrimSpace(*in.Content)
		if content == "" {
			return apperr.Validationf("content required")
		}
		sch.Content = content
	}
	if in.Memo != nil {
		sch.Memo = *in.Memo
	}
	if in.IsAllDay != nil {
		sch.IsAllDay = *in.IsAllDay
	}
	if in.Rule != nil {
		rule := *in.Rule
		if rule.Option == "" {
			rule.Option = RepeatNone
		}
		if err := rule.Validate(); err != nil {
			return err
		}
		sch.SetRule(rule)
	}
	if in.ClearCategory {
		sch.CategoryID = nil
	} else if in.CategoryID != nil {
		if err := checkCategory(tx, userID, *in.CategoryID); err != nil {
			return err
		}
		sch.CategoryID = in.CategoryID
	}
	return nil
}

// Delete soft-deletes the aggregate and everything hanging off it. Rows stay
// queryable for audit but drop out of every active-item query.
func (s *Service) Delete(ctx context.Context, userID, scheduleID uint64) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sch, err := getOwned(tx, userID, scheduleID)
		if err != nil {
			return err
		}
		return deleteAggregate(tx, userID, sch)
	})
	return wrapErr(err)
}

func deleteAggregate(tx *gorm.DB, userID uint64, sch *Schedule) error {
	if err := alarm.DeleteForSchedule(tx, userID, sch.ID); err != nil {
		return err
	}

	var todo Todo
	err := tx.Where("schedule_id = ? AND user_id = ?", sch.ID, userID).First(&todo).Error
	if err == nil {
		if err := alarm.DeleteForTodo(tx, userID, todo.ID); err != nil {
			return err
		}
		if err := tx.Where("todo_id = ?", todo.ID).Delete(&SubTodo{}).Error; err != nil {
			return err
		}
		if err := tx.Where("todo_id = ?", todo.ID).Delete(&TodoTag{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&todo).Error; err != nil {
			return err
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return tx.Delete(sch).Error
}

// Complete toggles a todo's completion flag.
func (s *Service) Complete(ctx context.Context, userID, todoID uint64, completed bool) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var todo Todo
		err := tx.Where("id = ? AND user_id = ?", todoID, userID).First(&todo).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("todo %d not found", todoID)
		}
		if err != nil {
			return err
		}
		todo.Completed = completed
		return tx.Save(&todo).Error
	})
	return wrapErr(err)
}

// ReorderTodo moves a todo to newOrder within one ordering dimension,
// shifting the rows in between so the sequence stays dense.
func (s *Service) ReorderTodo(ctx context.Context, userID, todoID uint64, newOrder uint64, today bool) error {
	if newOrder == 0 {
		return apperr.Validationf("order starts at 1")
	}
	column := "todo_order"
	if today {
		column = "today_todo_order"
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var todo Todo
		err := tx.Where("id = ? AND user_id = ?", todoID, userID).First(&todo).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("todo %d not found", todoID)
		}
		if err != nil {
			return err
		}

		old := todo.TodoOrder
		if today {
			if !todo.TodayTodo {
				return apperr.Validationf("todo %d is not a today todo", todoID)
			}
			old = todo.TodayTodoOrder
		}
		if old == newOrder {
			return nil
		}

		// orders are dense, so the row count is the current maximum
		countQ := tx.Model(&Todo{}).Where("user_id = ?", userID)
		if today {
			countQ = countQ.Where("today_todo = ?", true)
		}
		var total int64
		if err := countQ.Count(&total).Error; err != nil {
			return err
		}
		if newOrder > uint64(total) {
			return apperr.Validationf("order %d is out of range", newOrder)
		}

		scope := tx.Model(&Todo{}).Where("user_id = ?", userID)
		if today {
			scope = scope.Where("today_todo = ?", true)
		}
		if newOrder < old {
			err = scope.
				Where(column+" >= ? AND "+column+" < ?", newOrder, old).
				UpdateColumn(column, gorm.Expr(column+" + 1")).Error
		} else {
			err = scope.
				Where(column+" > ? AND "+column+" <= ?", old, newOrder).
				UpdateColumn(column, gorm.Expr(column+" - 1")).Error
		}
		if err != nil {
			return err
		}

		return tx.Model(&Todo{}).Where("id = ?", todo.ID).
			UpdateColumn(column, newOrder).Error
	})
	return wrapErr(err)
}

func boolPtr(b bool) *bool { return &b }
