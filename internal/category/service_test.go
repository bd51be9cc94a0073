package category_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dayplan/internal/alarm"
	"dayplan/internal/apperr"
	"dayplan/internal/category"
	"dayplan/internal/jobs"
	"dayplan/internal/planner"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, gdb.AutoMigrate(
		&category.Category{},
		&planner.Schedule{},
		&planner.Todo{},
		&planner.SubTodo{},
		&planner.Tag{},
		&planner.TodoTag{},
		&alarm.Alarm{},
		&jobs.Job{},
	))
	return gdb
}

func TestCreateKeepsOrderDense(t *testing.T) {
	db := newTestDB(t)
	svc := &category.Service{DB: db}
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		c, err := svc.Create(ctx, 1, category.CreateInput{
			Content: fmt.Sprintf("cat %d", i),
			Color:   "#ff0000",
		})
		require.NoError(t, err)
		require.EqualValues(t, i, c.CategoryOrder)
		require.True(t, c.IsSelected)
	}

	// other users start at 1 again
	c, err := svc.Create(ctx, 2, category.CreateInput{Content: "cat 1"})
	require.NoError(t, err)
	require.EqualValues(t, 1, c.CategoryOrder)
}

func TestCreateDuplicateConflict(t *testing.T) {
	db := newTestDB(t)
	svc := &category.Service{DB: db}
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, category.CreateInput{Content: "work"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, 1, category.CreateInput{Content: "work"})
	require.Error(t, err)
	require.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))

	// same name under another user is fine
	_, err = svc.Create(ctx, 2, category.CreateInput{Content: "work"})
	require.NoError(t, err)
}

func TestUpdate(t *testing.T) {
	db := newTestDB(t)
	svc := &category.Service{DB: db}
	ctx := context.Background()

	c, err := svc.Create(ctx, 1, category.CreateInput{Content: "work", Color: "#111111"})
	require.NoError(t, err)
	other, err := svc.Create(ctx, 1, category.CreateInput{Content: "home"})
	require.NoError(t, err)

	sel := false
	got, err := svc.Update(ctx, 1, c.ID, category.UpdateInput{
		Content:    ptr("office"),
		Color:      ptr("#222222"),
		IsSelected: &sel,
	})
	require.NoError(t, err)
	require.Equal(t, "office", got.Content)
	require.Equal(t, "#222222", got.Color)
	require.False(t, got.IsSelected)

	// renaming onto an existing name is a conflict
	_, err = svc.Update(ctx, 1, other.ID, category.UpdateInput{Content: ptr("office")})
	require.Error(t, err)
	require.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))

	_, err = svc.Update(ctx, 2, c.ID, category.UpdateInput{Content: ptr("x")})
	require.Error(t, err)
	require.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestDeleteDetachesSchedules(t *testing.T) {
	db := newTestDB(t)
	svc := &category.Service{DB: db}
	schedules := &planner.Service{DB: db}
	ctx := context.Background()

	c, err := svc.Create(ctx, 1, category.CreateInput{Content: "work"})
	require.NoError(t, err)

	sch, err := schedules.Create(ctx, 1, planner.CreateInput{
		Content:    "standup",
		CategoryID: &c.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, sch.CategoryID)

	require.NoError(t, svc.Delete(ctx, 1, c.ID))

	var reloaded planner.Schedule
	require.NoError(t, db.Where("id = ?", sch.ID).First(&reloaded).Error)
	require.Nil(t, reloaded.CategoryID, "deleting a category clears it from schedules")

	cats, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, cats)

	// a new category can reuse the deleted name
	_, err = svc.Create(ctx, 1, category.CreateInput{Content: "work"})
	require.NoError(t, err)
}

func ptr[T any](v T) *T { return &v }
