package alarm

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"dayplan/internal/apperr"
	"dayplan/internal/jobs"
)

type Service struct {
	DB *gorm.DB
}

// wrapErr keeps apperr codes intact and folds anything else into the
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

func derefID(p *uint64) uint64 {
	if p == nil {
		return 0
	}
	return *p
}

// CreateForSchedule inserts alarms for a schedule inside the caller's
// transaction and enqueues one dispatch job each. Duplicate (schedule, time)
// pairs for the user are a conflict.
func CreateForSchedule(tx *gorm.DB, userID, scheduleID uint64, times []time.Time) ([]Alarm, error) {
	return createOwned(tx, userID, &scheduleID, nil, times)
}

// CreateForTodo mirrors CreateForSchedule for todo-owned alarms.
func CreateForTodo(tx *gorm.DB, userID, todoID uint64, times []time.Time) ([]Alarm, error) {
	return createOwned(tx, userID, nil, &todoID, times)
}

func createOwned(tx *gorm.DB, userID uint64, scheduleID, todoID *uint64, times []time.Time) ([]Alarm, error) {
	if scheduleID == nil && todoID == nil {
		return nil, apperr.Validationf("alarm needs a schedule or todo owner")
	}
	if scheduleID != nil && todoID != nil {
		return nil, apperr.Validationf("alarm cannot have both a schedule and a todo owner")
	}

	// ownership gate on the owner row; by table to avoid a domain import
	var n int64
	owner := tx.Table("schedules").Where("id = ? AND user_id = ? AND deleted_at IS NULL", derefID(scheduleID), userID)
	if todoID != nil {
		owner = tx.Table("todos").Where("id = ? AND user_id = ? AND deleted_at IS NULL", *todoID, userID)
	}
	if err := owner.Count(&n).Error; err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperr.NotFoundf("alarm owner not found")
	}
	out := make([]Alarm, 0, len(times))
	for _, t := range times {
		q := tx.Model(&Alarm{}).Where("user_id = ? AND time = ?", userID, t)
		if scheduleID != nil {
			q = q.Where("schedule_id = ?", *scheduleID)
		} else {
			q = q.Where("todo_id = ?", *todoID)
		}
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, apperr.Conflictf("alarm at %s already exists", t.Format(time.RFC3339))
		}

		a := Alarm{UserID: userID, ScheduleID: scheduleID, TodoID: todoID, Time: t}
		if err := tx.Create(&a).Error; err != nil {
			return nil, err
		}
		if err := jobs.EnqueueAlarm(tx, userID, a.ID, t); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// ReplaceForSchedule drops the schedule's alarms and recreates them from the
// given set. No diffing; wholesale updates always pass the full set.
func ReplaceForSchedule(tx *gorm.DB, userID, scheduleID uint64, times []time.Time) ([]Alarm, error) {
	if err := DeleteForSchedule(tx, userID, scheduleID); err != nil {
		return nil, err
	}
	return CreateForSchedule(tx, userID, scheduleID, times)
}

// DeleteForSchedule soft-deletes the schedule's alarms and cancels their
// pending dispatch jobs.
func DeleteForSchedule(tx *gorm.DB, userID, scheduleID uint64) error {
	var ids []uint64
	if err := tx.Model(&Alarm{}).
		Where("user_id = ? AND schedule_id = ?", userID, scheduleID).
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("id in ?", ids).Delete(&Alarm{}).Error; err != nil {
		return err
	}
	if tx.Dialector.Name() == "postgres" {
		return jobs.CancelAlarmJobs(tx, userID, ids)
	}
	return nil
}

// DeleteForTodo mirrors DeleteForSchedule.
func DeleteForTodo(tx *gorm.DB, userID, todoID uint64) error {
	var ids []uint64
	if err := tx.Model(&Alarm{}).
		Where("user_id = ? AND todo_id = ?", userID, todoID).
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("id in ?", ids).Delete(&Alarm{}).Error; err != nil {
		return err
	}
	if tx.Dialector.Name() == "postgres" {
		return jobs.CancelAlarmJobs(tx, userID, ids)
	}
	return nil
}

// Create adds a single alarm outside any larger unit of work.
func (s *Service) Create(ctx context.Context, userID uint64, scheduleID, todoID *uint64, at time.Time) (*Alarm, error) {
	var created *Alarm
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		out, err := createOwned(tx, userID, scheduleID, todoID, []time.Time{at})
		if err != nil {
			return err
		}
		created = &out[0]
		return nil
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return created, nil
}

// Delete removes one alarm owned by the user.
func (s *Service) Delete(ctx context.Context, userID, alarmID uint64) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a Alarm
		if err := tx.Where("id = ? AND user_id = ?", alarmID, userID).First(&a).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("alarm %d not found", alarmID)
			}
			return err
		}
		if err := tx.Delete(&a).Error; err != nil {
			return err
		}
		if tx.Dialector.Name() == "postgres" {
			return jobs.CancelAlarmJobs(tx, userID, []uint64{a.ID})
		}
		return nil
	})
	return wrapErr(err)
}
