package jobs

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	DB *gorm.DB
}

// EnqueueAlarm schedules one dispatch for an alarm. Called inside the same
// transaction that created the alarm row, so a rolled-back alarm never
// leaves a dangling job.
func EnqueueAlarm(tx *gorm.DB, userID, alarmID uint64, runAt time.Time) error {
	payload, _ := json.Marshal(map[string]any{
		"alarm_id": alarmID,
	})
	j := Job{
		UserID:  userID,
		Type:    TypeAlarmDispatch,
		Payload: payload,
		RunAt:   runAt,
		Status:  "PENDING",
	}
	return tx.Create(&j).Error
}

// CancelAlarmJobs drops pending dispatches for the given alarm ids.
// Postgres-only (jsonb payload extraction).
func CancelAlarmJobs(tx *gorm.DB, userID uint64, alarmIDs []uint64) error {
	if len(alarmIDs) == 0 {
		return nil
	}
	return tx.Exec(`
update jobs
set status='CANCELLED', updated_at=now()
where user_id = ?
  and type = ?
  and status = 'PENDING'
  and (payload->>'alarm_id')::bigint in ?
`, userID, TypeAlarmDispatch, alarmIDs).Error
}

// Claim one due job atomically using SKIP LOCKED.
// Works on Postgres.
func (r *Repo) Claim(workerID string) (*Job, error) {
	var job Job
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		// requeue stuck RUNNING jobs
		tx.Exec(`
update jobs
set status='PENDING', locked_by=null, locked_at=null, updated_at=now()
where status='RUNNING' and locked_at is not null and locked_at < now() - interval '5 minutes'
`)

		// FOR UPDATE SKIP LOCKED ensures no double-claim
		q := tx.Raw(`
with cte as (
  select id
  from jobs
  where status='PENDING' and run_at <= now()
  order by run_at asc
  for update skip locked
  limit 1
)
update jobs
set status='RUNNING', locked_by=?, locked_at=now(), updated_at=now()
where id in (select id from cte)
returning *;
`, workerID)

		return q.Scan(&job).Error
	})
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *Repo) MarkDone(id uint64) error {
	return r.DB.Exec(`update jobs set status='DONE', updated_at=now() where id=?`, id).Error
}

func (r *Repo) MarkFailed(id uint64, errMsg string) error {
	return r.DB.Exec(`update jobs set status='FAILED', last_error=?, updated_at=now() where id=?`, errMsg, id).Error
}

func (r *Repo) RetryLater(id uint64, attempts int, runAt time.Time, errMsg string) error {
	return r.DB.Exec(`
update jobs
set status='PENDING',
    attempts=?,
    run_at=?,
    locked_by=null,
    locked_at=null,
    last_error=?,
    updated_at=now()
where id=?`, attempts, runAt, errMsg, id).Error
}
