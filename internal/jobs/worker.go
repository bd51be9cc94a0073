package jobs

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"time"

	"gorm.io/gorm"
)

// Worker polls for due jobs and dispatches alarms. Multiple workers may run
// against the same database; SKIP LOCKED claiming keeps them from
// double-firing.
type Worker struct {
	ID       string
	Repo     *Repo
	DB       *gorm.DB
	Interval time.Duration
}

// alarmRow avoids importing the alarm package from the queue.
type alarmRow struct {
	ID         uint64     `gorm:"column:id"`
	UserID     uint64     `gorm:"column:user_id"`
	ScheduleID *uint64    `gorm:"column:schedule_id"`
	TodoID     *uint64    `gorm:"column:todo_id"`
	Time       time.Time  `gorm:"column:time"`
	DeletedAt  *time.Time `gorm:"column:deleted_at"`
}

func (alarmRow) TableName() string { return "alarms" }

func (w *Worker) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = 800 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.Repo.Claim(w.ID)
			if err != nil {
				log.Printf("worker claim error: %v\n", err)
				continue
			}
			if job == nil {
				continue
			}
			w.handle(job)
		}
	}
}

func (w *Worker) handle(job *Job) {
	switch job.Type {
	case TypeAlarmDispatch:
		w.handleAlarm(job)
	default:
		_ = w.Repo.MarkFailed(job.ID, "unknown job type")
	}
}

func (w *Worker) handleAlarm(job *Job) {
	type payload struct {
		AlarmID uint64 `json:"alarm_id"`
	}
	var p payload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		_ = w.Repo.MarkFailed(job.ID, "bad payload")
		return
	}

	var row alarmRow
	if err := w.DB.
		Where("id=? AND user_id=?", p.AlarmID, job.UserID).
		First(&row).Error; err != nil {

		if err == gorm.ErrRecordNotFound {
			// alarm was removed; nothing to fire
			_ = w.Repo.MarkDone(job.ID)
			return
		}
		w.retry(job, "db read error")
		return
	}

	if row.DeletedAt != nil {
		_ = w.Repo.MarkDone(job.ID)
		return
	}

	log.Printf("[ALARM] user=%d alarm=%d schedule=%v todo=%v at=%s\n",
		job.UserID, row.ID, ptr(row.ScheduleID), ptr(row.TodoID), row.Time.Format(time.RFC3339))
	_ = w.Repo.MarkDone(job.ID)
}

func (w *Worker) retry(job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		_ = w.Repo.MarkFailed(job.ID, errMsg)
		return
	}

	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	next := time.Now().Add(time.Duration(sec) * time.Second)

	_ = w.Repo.RetryLater(job.ID, attempts, next, errMsg)
}

func ptr(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v
}
