package planner

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"dayplan/internal/apperr"
)

// Query is the read side. It shapes the same aggregate the write side
// maintains; "active in a range" means the series window intersects the
// query range.
type Query struct {
	DB *gorm.DB
}

func (q *Query) preloaded(ctx context.Context) *gorm.DB {
	return q.DB.WithContext(ctx).
		Preload("Category").
		Preload("Alarms", func(db *gorm.DB) *gorm.DB {
			return db.Order("time asc")
		}).
		Preload("Todo").
		Preload("Todo.SubTodos", func(db *gorm.DB) *gorm.DB {
			return db.Order("sub_todo_order asc")
		})
}

// CalendarRange returns schedules whose window [repeat_start, repeat_end]
// intersects [from, to], inclusive at day granularity. Open-ended series
// (null repeat_end) overlap every range past their start.
func (q *Query) CalendarRange(ctx context.Context, userID uint64, from, to time.Time) ([]Schedule, error) {
	var out []Schedule
	err := q.preloaded(ctx).
		Where("user_id = ?", userID).
		Where("repeat_start IS NOT NULL AND repeat_start <= ?", Day(to).Add(24*time.Hour-time.Nanosecond)).
		Where("repeat_end IS NULL OR repeat_end >= ?", Day(from)).
		Order("repeat_start asc, repeat_end desc, created_at asc").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, q.attachTags(ctx, userID, out)
}

// Search matches content or memo, case-insensitively.
func (q *Query) Search(ctx context.Context, userID uint64, term string) ([]Schedule, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, apperr.Validationf("search term required")
	}
	pat := "%" + strings.ToLower(term) + "%"
	var out []Schedule
	err := q.preloaded(ctx).
		Where("user_id = ?", userID).
		Where("lower(content) LIKE ? OR lower(memo) LIKE ?", pat, pat).
		Order("repeat_start asc, repeat_end desc, created_at asc").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, q.attachTags(ctx, userID, out)
}

// Lineage returns the whole split family of a series: the lineage root plus
// every segment pointing at it, one lookup, no recursion.
func (q *Query) Lineage(ctx context.Context, userID, scheduleID uint64) ([]Schedule, error) {
	var sch Schedule
	err := q.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", scheduleID, userID).
		First(&sch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("schedule %d not found", scheduleID)
	}
	if err != nil {
		return nil, err
	}

	root := sch.LineageRoot()
	var out []Schedule
	err = q.preloaded(ctx).
		Where("user_id = ?", userID).
		Where("id = ? OR parent_id = ?", root, root).
		Order("repeat_start asc, created_at asc").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, q.attachTags(ctx, userID, out)
}

// Get loads one aggregate for the user.
func (q *Query) Get(ctx context.Context, userID, scheduleID uint64) (*Schedule, error) {
	var sch Schedule
	err := q.preloaded(ctx).
		Where("id = ? AND user_id = ?", scheduleID, userID).
		First(&sch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("schedule %d not found", scheduleID)
	}
	if err != nil {
		return nil, err
	}
	if err := q.attachTags(ctx, userID, []Schedule{sch}); err != nil {
		return nil, err
	}
	return &sch, nil
}

// attachTags fills Todo.Tags on schedules carrying a todo extension, in the
// todo's own tag_order. Tags hang off the join table, not a gorm relation,
// so preloading cannot fetch them.
func (q *Query) attachTags(ctx context.Context, userID uint64, schedules []Schedule) error {
	todoIDs := make([]uint64, 0, len(schedules))
	byTodo := make(map[uint64]*Todo, len(schedules))
	for i := range schedules {
		if t := schedules[i].Todo; t != nil {
			todoIDs = append(todoIDs, t.ID)
			byTodo[t.ID] = t
		}
	}
	if len(todoIDs) == 0 {
		return nil
	}

	var links []TodoTag
	if err := q.DB.WithContext(ctx).
		Where("user_id = ? AND todo_id in ?", userID, todoIDs).
		Order("tag_order asc").
		Find(&links).Error; err != nil {
		return err
	}
	if len(links) == 0 {
		return nil
	}

	tagIDs := make([]uint64, 0, len(links))
	for _, l := range links {
		tagIDs = append(tagIDs, l.TagID)
	}
	var tags []Tag
	if err := q.DB.WithContext(ctx).Where("id in ?", tagIDs).Find(&tags).Error; err != nil {
		return err
	}
	tagByID := make(map[uint64]Tag, len(tags))
	for _, t := range tags {
		tagByID[t.ID] = t
	}
	for _, l := range links {
		if todo, ok := byTodo[l.TodoID]; ok {
			if tag, ok := tagByID[l.TagID]; ok {
				todo.Tags = append(todo.Tags, tag)
			}
		}
	}
	return nil
}

// TodoItem is the todo list projection: the extension plus the carrier
// schedule's display fields, with sub-items and tag names attached.
type TodoItem struct {
	Todo     Todo
	Schedule Schedule
	Tags     []Tag
}

// Todos returns the user's active todos in todo_order.
func (q *Query) Todos(ctx context.Context, userID uint64) ([]TodoItem, error) {
	var todos []Todo
	err := q.DB.WithContext(ctx).
		Preload("SubTodos", func(db *gorm.DB) *gorm.DB {
			return db.Order("sub_todo_order asc")
		}).
		Where("user_id = ?", userID).
		Order("todo_order asc").
		Find(&todos).Error
	if err != nil {
		return nil, err
	}
	return q.assemble(ctx, userID, todos)
}

// TodosToday returns today-flagged todos in today_todo_order.
func (q *Query) TodosToday(ctx context.Context, userID uint64) ([]TodoItem, error) {
	var todos []Todo
	err := q.DB.WithContext(ctx).
		Preload("SubTodos", func(db *gorm.DB) *gorm.DB {
			return db.Order("sub_todo_order asc")
		}).
		Where("user_id = ? AND today_todo = ?", userID, true).
		Order("today_todo_order asc").
		Find(&todos).Error
	if err != nil {
		return nil, err
	}
	return q.assemble(ctx, userID, todos)
}

// TodosByTag returns the todos under one tag in the tag's own todo_order,
// independent of the global ordering.
func (q *Query) TodosByTag(ctx context.Context, userID, tagID uint64) ([]TodoItem, error) {
	var tag Tag
	err := q.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", tagID, userID).
		First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("tag %d not found", tagID)
	}
	if err != nil {
		return nil, err
	}

	var links []TodoTag
	if err := q.DB.WithContext(ctx).
		Where("user_id = ? AND tag_id = ?", userID, tagID).
		Order("todo_order asc").
		Find(&links).Error; err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, nil
	}

	ids := make([]uint64, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.TodoID)
	}
	var todos []Todo
	if err := q.DB.WithContext(ctx).
		Preload("SubTodos", func(db *gorm.DB) *gorm.DB {
			return db.Order("sub_todo_order asc")
		}).
		Where("id in ?", ids).
		Find(&todos).Error; err != nil {
		return nil, err
	}

	// restore the tag's ordering
	byID := make(map[uint64]Todo, len(todos))
	for _, t := range todos {
		byID[t.ID] = t
	}
	ordered := make([]Todo, 0, len(links))
	for _, l := range links {
		if t, ok := byID[l.TodoID]; ok {
			ordered = append(ordered, t)
		}
	}
	return q.assemble(ctx, userID, ordered)
}

// assemble joins carrier schedules and tag names onto the todo rows.
func (q *Query) assemble(ctx context.Context, userID uint64, todos []Todo) ([]TodoItem, error) {
	if len(todos) == 0 {
		return nil, nil
	}

	schedIDs := make([]uint64, 0, len(todos))
	todoIDs := make([]uint64, 0, len(todos))
	for _, t := range todos {
		schedIDs = append(schedIDs, t.ScheduleID)
		todoIDs = append(todoIDs, t.ID)
	}

	var schedules []Schedule
	if err := q.DB.WithContext(ctx).
		Preload("Category").
		Where("id in ?", schedIDs).
		Find(&schedules).Error; err != nil {
		return nil, err
	}
	schedByID := make(map[uint64]Schedule, len(schedules))
	for _, s := range schedules {
		schedByID[s.ID] = s
	}

	var links []TodoTag
	if err := q.DB.WithContext(ctx).
		Where("user_id = ? AND todo_id in ?", userID, todoIDs).
		Order("tag_order asc").
		Find(&links).Error; err != nil {
		return nil, err
	}
	tagIDs := make([]uint64, 0, len(links))
	for _, l := range links {
		tagIDs = append(tagIDs, l.TagID)
	}
	tagByID := map[uint64]Tag{}
	if len(tagIDs) > 0 {
		var tags []Tag
		if err := q.DB.WithContext(ctx).Where("id in ?", tagIDs).Find(&tags).Error; err != nil {
			return nil, err
		}
		for _, t := range tags {
			tagByID[t.ID] = t
		}
	}
	tagsByTodo := map[uint64][]Tag{}
	for _, l := range links {
		if t, ok := tagByID[l.TagID]; ok {
			tagsByTodo[l.TodoID] = append(tagsByTodo[l.TodoID], t)
		}
	}

	out := make([]TodoItem, 0, len(todos))
	for _, t := range todos {
		sch, ok := schedByID[t.ScheduleID]
		if !ok {
			// carrier soft-deleted out from under the todo; skip
			continue
		}
		out = append(out, TodoItem{Todo: t, Schedule: sch, Tags: tagsByTodo[t.ID]})
	}
	return out, nil
}

// Tags lists the user's tags in creation order.
func (q *Query) Tags(ctx context.Context, userID uint64) ([]Tag, error) {
	var out []Tag
	err := q.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc, id asc").
		Find(&out).Error
	return out, err
}
