package planner

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dayplan/internal/alarm"
	"dayplan/internal/auth"
	"dayplan/internal/category"
	"dayplan/internal/jobs"
)

// newTestDB opens a per-test in-memory sqlite database with the full schema.
// cache=shared keeps the database alive across pooled connections.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, gdb.AutoMigrate(
		&auth.User{},
		&category.Category{},
		&Schedule{},
		&Todo{},
		&SubTodo{},
		&Tag{},
		&TodoTag{},
		&alarm.Alarm{},
		&jobs.Job{},
	))
	return gdb
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(y int, m time.Month, d int) *time.Time {
	t := day(y, m, d)
	return &t
}

func strPtr(s string) *string { return &s }

func sameDay(t *testing.T, want time.Time, got *time.Time) {
	t.Helper()
	require.NotNil(t, got)
	require.True(t, Day(*got).Equal(Day(want)), "want %s, got %s", Day(want), Day(*got))
}
