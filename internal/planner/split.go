package planner

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"dayplan/internal/alarm"
	"dayplan/internal/apperr"
)

// Split operations isolate an edit (or removal) of part of a recurring
// series without touching the rest. The original row is shrunk, new rows
// cover the affected sub-ranges, and every new row points at the lineage
// root so the whole family resolves with one parent_id lookup.
//
// All boundaries are inclusive calendar days: RepeatStart is the first
// active day, RepeatEnd the last. A sub-range whose start would land after
// its end is never created.

type FrontSplitInput struct {
	// NextRepeatStart becomes the original's new first active day. The
	// edited past portion ends the day before.
	NextRepeatStart time.Time
	Update          UpdateInput
}

type MiddleSplitInput struct {
	// ChangedDate is the edited occurrence. NextRepeatStart opens the
	// continuation series.
	ChangedDate     time.Time
	NextRepeatStart time.Time
	Update          UpdateInput
}

type BackSplitInput struct {
	// PreRepeatEnd becomes the original's new last active day. RepeatStart
	// opens the edited tail record and must land after PreRepeatEnd.
	PreRepeatEnd time.Time
	RepeatStart  time.Time
	Update       UpdateInput
}

type FrontDeleteInput struct {
	NextRepeatStart time.Time
}

type MiddleDeleteInput struct {
	RemovedDate     time.Time
	NextRepeatStart time.Time
}

type BackDeleteInput struct {
	PreRepeatEnd time.Time
}

// SplitResult reports the shrunk original plus the rows a split created, in
// creation order.
type SplitResult struct {
	Original *Schedule
	Created  []*Schedule
}

func mustRepeat(sch *Schedule) error {
	if sch.RepeatOption == RepeatNone || sch.RepeatStart == nil {
		return apperr.Validationf("schedule %d does not repeat", sch.ID)
	}
	return nil
}

// checkOccurrence rejects caller-supplied boundary dates that the rule never
// produces. The client proposes the date; the server cross-checks it.
func checkOccurrence(sch *Schedule, d time.Time) error {
	if !sch.Rule().Occurs(d) {
		return apperr.Validationf("%s is not an occurrence of the series", Day(d).Format("2006-01-02"))
	}
	return nil
}

// UpdateRepeatFront rewrites the first stretch of a series: the original's
// window moves forward to nextRepeatStart and a new record carrying the
// edited content covers [old start, nextRepeatStart-1].
func (s *Service) UpdateRepeatFront(ctx context.Context, userID, scheduleID uint64, in FrontSplitInput) (*SplitResult, error) {
	var res SplitResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sch, err := getOwned(tx, userID, scheduleID)
		if err != nil {
			return err
		}
		if err := mustRepeat(sch); err != nil {
			return err
		}

		next := Day(in.NextRepeatStart)
		start := Day(*sch.RepeatStart)
		if !next.After(start) {
			return apperr.Validationf("next repeat start must fall after the current repeat start")
		}
		if sch.RepeatEnd != nil && next.After(Day(*sch.RepeatEnd)) {
			return apperr.Validationf("next repeat start is outside the repeat window")
		}
		if err := checkOccurrence(sch, next); err != nil {
			return err
		}

		end := DayBefore(next)
		seg, err := cloneSegment(tx, userID, sch, window(start, &end), &in.Update)
		if err != nil {
			return err
		}
		res.Created = append(res.Created, seg)

		sch.RepeatStart = &next
		if err := tx.Save(sch).Error; err != nil {
			return err
		}
		res.Original = sch
		return nil
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return &res, nil
}

// UpdateRepeatMiddle isolates one occurrence strictly inside the window.
// The original is truncated to end the day before the change, a
// continuation series preserves the tail, and a single-day record carries
// the edited content. This is the only split producing two new rows.
func (s *Service) UpdateRepeatMiddle(ctx context.Context, userID, scheduleID uint64, in MiddleSplitInput) (*SplitResult, error) {
	var res SplitResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sch, err := getOwned(tx, userID, scheduleID)
		if err != nil {
			return err
		}
		if err := mustRepeat(sch); err != nil {
			return err
		}

		changed := Day(in.ChangedDate)
		next := Day(in.NextRepeatStart)
		start := Day(*sch.RepeatStart)

		if !changed.After(start) {
			return apperr.Validationf("changed date must fall after the repeat start")
		}
		if sch.RepeatEnd != nil && !changed.Before(Day(*sch.RepeatEnd)) {
			return apperr.Validationf("changed date must fall before the repeat end")
		}
		if !next.After(changed) {
			return apperr.Validationf("next repeat start must fall after the changed date")
		}
		if err := checkOccurrence(sch, changed); err != nil {
			return err
		}

		origEnd := sch.RepeatEnd

		// continuation, skipped when the tail would be empty
		if origEnd == nil || !next.After(Day(*origEnd)) {
			if err := checkOccurrence(sch, next); err != nil {
				return err
			}
			seg, err := cloneSegment(tx, userID, sch, window(next, origEnd), nil)
			if err != nil {
				return err
			}
			res.Created = append(res.Created, seg)
		}

		// the edited occurrence itself, a single-day record
		edited, err := cloneSegment(tx, userID, sch, window(changed, &changed), &in.Update)
		if err != nil {
			return err
		}
		res.Created = append(res.Created, edited)

		newEnd := DayBefore(changed)
		sch.RepeatEnd = &newEnd
		if err := tx.Save(sch).Error; err != nil {
			return err
		}
		res.Original = sch
		return nil
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return &res, nil
}

// UpdateRepeatBack rewrites the tail: the original's last active day becomes
// preRepeatEnd and a new record carries the edited occurrence from the
// supplied start to the old end.
func (s *Service) UpdateRepeatBack(ctx context.Context, userID, scheduleID uint64, in BackSplitInput) (*SplitResult, error) {
	var res SplitResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sch, err := getOwned(tx, userID, scheduleID)
		if err != nil {
			return err
		}
		if err := mustRepeat(sch); err != nil {
			return err
		}

		preEnd := Day(in.PreRepeatEnd)
		newStart := Day(in.RepeatStart)
		start := Day(*sch.RepeatStart)

		if preEnd.Before(start) {
			return apperr.Validationf("pre repeat end must not fall before the repeat start")
		}
		if sch.RepeatEnd != nil && !preEnd.Before(Day(*sch.RepeatEnd)) {
			return apperr.Validationf("pre repeat end must fall before the current repeat end")
		}
		if !newStart.After(preEnd) {
			return apperr.Validationf("new repeat start must fall after the pre repeat end")
		}
		if sch.RepeatEnd != nil && newStart.After(Day(*sch.RepeatEnd)) {
			return apperr.Validationf("new repeat start is outside the repeat window")
		}
		if err := checkOccurrence(sch, newStart); err != nil {
			return err
		}

		seg, err := cloneSegment(tx, userID, sch, window(newStart, sch.RepeatEnd), &in.Update)
		if err != nil {
			return err
		}
		res.Created = append(res.Created, seg)

		sch.RepeatEnd = &preEnd
		if err := tx.Save(sch).Error; err != nil {
			return err
		}
		res.Original = sch
		return nil
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return &res, nil
}

// DeleteRepeatFront drops the leading occurrences by moving the repeat start
// forward. No replacement row is created.
func (s *Service) DeleteRepeatFront(ctx context.Context, userID, scheduleID uint64, in FrontDeleteInput) (*SplitResult, error) {
	var res SplitResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sch, err := getOwned(tx, userID, scheduleID)
		if err != nil {
			return err
		}
		if err := mustRepeat(sch); err != nil {
			return err
		}

		next := Day(in.NextRepeatStart)
		if !next.After(Day(*sch.RepeatStart)) {
			return apperr.Validationf("next repeat start must fall after the current repeat start")
		}
		if sch.RepeatEnd != nil && next.After(Day(*sch.RepeatEnd)) {
			return apperr.Validationf("next repeat start is outside the repeat window")
		}
		if err := checkOccurrence(sch, next); err != nil {
			return err
		}

		sch.RepeatStart = &next
		if err := tx.Save(sch).Error; err != nil {
			return err
		}
		res.Original = sch
		return nil
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return &res, nil
}

// DeleteRepeatMiddle removes one occurrence strictly inside the window.
// The original keeps the head, a continuation keeps the tail, and the
// removed day belongs to neither.
func (s *Service) DeleteRepeatMiddle(ctx context.Context, userID, scheduleID uint64, in MiddleDeleteInput) (*SplitResult, error) {
	var res SplitResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sch, err := getOwned(tx, userID, scheduleID)
		if err != nil {
			return err
		}
		if err := mustRepeat(sch); err != nil {
			return err
		}

		removed := Day(in.RemovedDate)
		next := Day(in.NextRepeatStart)
		start := Day(*sch.RepeatStart)

		if !removed.After(start) {
			return apperr.Validationf("removed date must fall after the repeat start")
		}
		if sch.RepeatEnd != nil && !removed.Before(Day(*sch.RepeatEnd)) {
			return apperr.Validationf("removed date must fall before the repeat end")
		}
		if !next.After(removed) {
			return apperr.Validationf("next repeat start must fall after the removed date")
		}
		if err := checkOccurrence(sch, removed); err != nil {
			return err
		}

		origEnd := sch.RepeatEnd
		if origEnd == nil || !next.After(Day(*origEnd)) {
			if err := checkOccurrence(sch, next); err != nil {
				return err
			}
			seg, err := cloneSegment(tx, userID, sch, window(next, origEnd), nil)
			if err != nil {
				return err
			}
			res.Created = append(res.Created, seg)
		}

		newEnd := DayBefore(removed)
		sch.RepeatEnd = &newEnd
		if err := tx.Save(sch).Error; err != nil {
			return err
		}
		res.Original = sch
		return nil
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return &res, nil
}

// DeleteRepeatBack drops the trailing occurrences by pulling the repeat end
// back to preRepeatEnd.
func (s *Service) DeleteRepeatBack(ctx context.Context, userID, scheduleID uint64, in BackDeleteInput) (*SplitResult, error) {
	var res SplitResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sch, err := getOwned(tx, userID, scheduleID)
		if err != nil {
			return err
		}
		if err := mustRepeat(sch); err != nil {
			return err
		}

		preEnd := Day(in.PreRepeatEnd)
		if preEnd.Before(Day(*sch.RepeatStart)) {
			return apperr.Validationf("pre repeat end must not fall before the repeat start")
		}
		if sch.RepeatEnd != nil && !preEnd.Before(Day(*sch.RepeatEnd)) {
			return apperr.Validationf("pre repeat end must fall before the current repeat end")
		}

		sch.RepeatEnd = &preEnd
		if err := tx.Save(sch).Error; err != nil {
			return err
		}
		res.Original = sch
		return nil
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return &res, nil
}

type segmentWindow struct {
	start time.Time
	end   *time.Time
}

func window(start time.Time, end *time.Time) segmentWindow {
	if end != nil {
		d := Day(*end)
		return segmentWindow{start: Day(start), end: &d}
	}
	return segmentWindow{start: Day(start)}
}

// cloneSegment copies the aggregate into a new row over the given window.
// Overrides from upd (when non-nil) land on the copy only; the todo
// extension, its sub-items and tag links, and the alarms travel with it.
func cloneSegment(tx *gorm.DB, userID uint64, orig *Schedule, w segmentWindow, upd *UpdateInput) (*Schedule, error) {
	if w.end != nil && w.start.After(*w.end) {
		// degenerate window, nothing to create
		return nil, apperr.Validationf("segment window is empty")
	}

	root := orig.LineageRoot()
	seg := &Schedule{
		UserID:     userID,
		Content:    orig.Content,
		Memo:       orig.Memo,
		IsAllDay:   orig.IsAllDay,
		CategoryID: orig.CategoryID,
		ParentID:   &root,
	}
	rule := orig.Rule()
	rule.Start = &w.start
	rule.End = w.end
	seg.SetRule(rule)

	if upd != nil {
		u := *upd
		u.Rule = nil // the split computes the segment window itself
		if err := applyUpdate(tx, userID, seg, u); err != nil {
			return nil, err
		}
	}
	if err := tx.Create(seg).Error; err != nil {
		return nil, err
	}

	// alarms: explicit set wins, otherwise the original's times carry over
	var times []time.Time
	if upd != nil && upd.AlarmTimes != nil {
		times = *upd.AlarmTimes
	} else {
		var origAlarms []alarm.Alarm
		if err := tx.Where("user_id = ? AND schedule_id = ?", userID, orig.ID).
			Find(&origAlarms).Error; err != nil {
			return nil, err
		}
		for _, a := range origAlarms {
			times = append(times, a.Time)
		}
	}
	alarms, err := alarm.CreateForSchedule(tx, userID, seg.ID, times)
	if err != nil {
		return nil, err
	}
	seg.Alarms = alarms

	if err := cloneTodo(tx, userID, orig.ID, seg); err != nil {
		return nil, err
	}
	return seg, nil
}

func cloneTodo(tx *gorm.DB, userID, origScheduleID uint64, seg *Schedule) error {
	var todo Todo
	err := tx.Where("schedule_id = ? AND user_id = ?", origScheduleID, userID).First(&todo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	order, err := nextOrder(tx, userID, "todo_order", nil)
	if err != nil {
		return err
	}
	var todayOrder uint64
	if todo.TodayTodo {
		if todayOrder, err = nextOrder(tx, userID, "today_todo_order", boolPtr(true)); err != nil {
			return err
		}
	}

	clone := Todo{
		ScheduleID:     seg.ID,
		UserID:         userID,
		Flag:           todo.Flag,
		TodayTodo:      todo.TodayTodo,
		Completed:      todo.Completed,
		EndDate:        todo.EndDate,
		TodoOrder:      order,
		TodayTodoOrder: todayOrder,
	}
	if err := tx.Create(&clone).Error; err != nil {
		return err
	}

	var subs []SubTodo
	if err := tx.Where("todo_id = ?", todo.ID).Order("sub_todo_order asc").Find(&subs).Error; err != nil {
		return err
	}
	for _, st := range subs {
		sub := SubTodo{
			TodoID:       clone.ID,
			UserID:       userID,
			Content:      st.Content,
			SubTodoOrder: st.SubTodoOrder,
			Completed:    st.Completed,
		}
		if err := tx.Create(&sub).Error; err != nil {
			return err
		}
		clone.SubTodos = append(clone.SubTodos, sub)
	}

	var links []TodoTag
	if err := tx.Where("todo_id = ?", todo.ID).Order("tag_order asc").Find(&links).Error; err != nil {
		return err
	}
	for _, l := range links {
		var top TodoTag
		todoOrder := uint64(1)
		err := tx.Where("user_id = ? AND tag_id = ?", userID, l.TagID).
			Order("todo_order desc").First(&top).Error
		if err == nil {
			todoOrder = top.TodoOrder + 1
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		link := TodoTag{
			UserID:    userID,
			TodoID:    clone.ID,
			TagID:     l.TagID,
			TodoOrder: todoOrder,
			TagOrder:  l.TagOrder,
		}
		if err := tx.Create(&link).Error; err != nil {
			return err
		}
	}

	seg.Todo = &clone
	return nil
}
