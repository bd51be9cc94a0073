package db

import (
	"fmt"

	"dayplan/internal/alarm"
	"dayplan/internal/auth"
	"dayplan/internal/category"
	"dayplan/internal/jobs"
	"dayplan/internal/planner"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&auth.User{},
		&category.Category{},
		&planner.Schedule{},
		&planner.Todo{},
		&planner.SubTodo{},
		&planner.Tag{},
		&planner.TodoTag{},
		&alarm.Alarm{},
		&jobs.Job{},
	); err != nil {
		return err
	}

	// Unique constraints scoped to live rows; soft-deleted rows must not
	// block re-creation.
	stmts := []string{
		`create unique index if not exists uq_alarms_user_schedule_time
on alarms(user_id, schedule_id, time)
where schedule_id is not null and deleted_at is null;`,
		`create unique index if not exists uq_alarms_user_todo_time
on alarms(user_id, todo_id, time)
where todo_id is not null and deleted_at is null;`,
		`create unique index if not exists uq_categories_user_content
on categories(user_id, content)
where deleted_at is null;`,
		`create unique index if not exists uq_tags_user_content
on tags(user_id, content)
where deleted_at is null;`,
		`create unique index if not exists uq_todo_tags_link
on todo_tags(user_id, todo_id, tag_id)
where deleted_at is null;`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("unique index exec failed: %w (sql=%s)", err, s)
		}
	}

	// Helpful indexes
	stmts = []string{
		`create index if not exists idx_schedules_user_window on schedules(user_id, repeat_start, repeat_end);`,
		`create index if not exists idx_schedules_parent on schedules(parent_id) where parent_id is not null;`,
		`create index if not exists idx_todos_user_order on todos(user_id, todo_order);`,
		`create index if not exists idx_todos_user_today on todos(user_id, today_todo, today_todo_order);`,
		`create index if not exists idx_todo_tags_tag_order on todo_tags(user_id, tag_id, todo_order);`,
		`create index if not exists idx_alarms_due on alarms(time) where deleted_at is null;`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
