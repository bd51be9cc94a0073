package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"dayplan/internal/apperr"
)

func seedWeekly(t *testing.T, svc *Service, userID uint64) *Schedule {
	t.Helper()
	sch, err := svc.Create(context.Background(), userID, CreateInput{
		Content: "Gym",
		Rule: RecurrenceRule{
			Option: RepeatWeekly,
			Value:  "0100000", // mondays
			Start:  dayPtr(2024, time.January, 1),
			End:    dayPtr(2024, time.January, 31),
		},
	})
	require.NoError(t, err)
	return sch
}

func seedDaily(t *testing.T, svc *Service, userID uint64, from, to time.Time) *Schedule {
	t.Helper()
	sch, err := svc.Create(context.Background(), userID, CreateInput{
		Content: "Standup",
		Rule:    RecurrenceRule{Option: RepeatDaily, Start: &from, End: &to},
	})
	require.NoError(t, err)
	return sch
}

func reload(t *testing.T, db *gorm.DB, id uint64) *Schedule {
	t.Helper()
	var sch Schedule
	require.NoError(t, db.Where("id = ?", id).First(&sch).Error)
	return &sch
}

func TestUpdateRepeatFront(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()

	orig := seedWeekly(t, svc, 1)

	res, err := svc.UpdateRepeatFront(ctx, 1, orig.ID, FrontSplitInput{
		NextRepeatStart: day(2024, time.January, 8),
		Update:          UpdateInput{Content: strPtr("Gym (updated)")},
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)

	// original shrinks forward
	got := reload(t, db, orig.ID)
	sameDay(t, day(2024, time.January, 8), got.RepeatStart)
	sameDay(t, day(2024, time.January, 31), got.RepeatEnd)

	// new record carries the edited past portion
	seg := reload(t, db, res.Created[0].ID)
	require.Equal(t, "Gym (updated)", seg.Content)
	sameDay(t, day(2024, time.January, 1), seg.RepeatStart)
	sameDay(t, day(2024, time.January, 7), seg.RepeatEnd)
	require.NotNil(t, seg.ParentID)
	require.Equal(t, orig.ID, *seg.ParentID)
	require.Equal(t, RepeatWeekly, seg.RepeatOption)
	require.Equal(t, "0100000", seg.RepeatValue)
}

func TestUpdateRepeatFrontRejectsReplay(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()

	orig := seedWeekly(t, svc, 1)

	_, err := svc.UpdateRepeatFront(ctx, 1, orig.ID, FrontSplitInput{
		NextRepeatStart: day(2024, time.January, 8),
	})
	require.NoError(t, err)

	// identical request against the shrunk series is a no-op window
	_, err = svc.UpdateRepeatFront(ctx, 1, orig.ID, FrontSplitInput{
		NextRepeatStart: day(2024, time.January, 8),
	})
	require.Error(t, err)
	require.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestUpdateRepeatFrontRejectsNonOccurrence(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}

	orig := seedWeekly(t, svc, 1)

	// Jan 9 2024 is a Tuesday; the rule only selects Mondays
	_, err := svc.UpdateRepeatFront(context.Background(), 1, orig.ID, FrontSplitInput{
		NextRepeatStart: day(2024, time.January, 9),
	})
	require.Error(t, err)
	require.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestUpdateRepeatMiddle(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()

	orig := seedDaily(t, svc, 1, day(2024, time.March, 1), day(2024, time.March, 31))

	res, err := svc.UpdateRepeatMiddle(ctx, 1, orig.ID, MiddleSplitInput{
		ChangedDate:     day(2024, time.March, 15),
		NextRepeatStart: day(2024, time.March, 16),
		Update:          UpdateInput{Content: strPtr("Standup (moved)")},
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 2)

	got := reload(t, db, orig.ID)
	sameDay(t, day(2024, time.March, 1), got.RepeatStart)
	sameDay(t, day(2024, time.March, 14), got.RepeatEnd)

	cont := reload(t, db, res.Created[0].ID)
	require.Equal(t, "Standup", cont.Content)
	sameDay(t, day(2024, time.March, 16), cont.RepeatStart)
	sameDay(t, day(2024, time.March, 31), cont.RepeatEnd)

	edited := reload(t, db, res.Created[1].ID)
	require.Equal(t, "Standup (moved)", edited.Content)
	sameDay(t, day(2024, time.March, 15), edited.RepeatStart)
	sameDay(t, day(2024, time.March, 15), edited.RepeatEnd)

	// all three share the lineage root
	require.Equal(t, orig.ID, *cont.ParentID)
	require.Equal(t, orig.ID, *edited.ParentID)
}

func TestUpdateRepeatMiddleFlatLineage(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()

	orig := seedDaily(t, svc, 1, day(2024, time.March, 1), day(2024, time.March, 31))

	res, err := svc.UpdateRepeatMiddle(ctx, 1, orig.ID, MiddleSplitInput{
		ChangedDate:     day(2024, time.March, 15),
		NextRepeatStart: day(2024, time.March, 16),
	})
	require.NoError(t, err)
	cont := res.Created[0]

	// splitting a split still points at the original root
	res2, err := svc.UpdateRepeatFront(ctx, 1, cont.ID, FrontSplitInput{
		NextRepeatStart: day(2024, time.March, 20),
	})
	require.NoError(t, err)
	seg := reload(t, db, res2.Created[0].ID)
	require.Equal(t, orig.ID, *seg.ParentID)
}

func TestUpdateRepeatBack(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}

	orig := seedDaily(t, svc, 1, day(2024, time.May, 1), day(2024, time.May, 31))

	res, err := svc.UpdateRepeatBack(context.Background(), 1, orig.ID, BackSplitInput{
		PreRepeatEnd: day(2024, time.May, 30),
		RepeatStart:  day(2024, time.May, 31),
		Update:       UpdateInput{Content: strPtr("Standup (late)")},
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)

	got := reload(t, db, orig.ID)
	sameDay(t, day(2024, time.May, 30), got.RepeatEnd)

	seg := reload(t, db, res.Created[0].ID)
	require.Equal(t, "Standup (late)", seg.Content)
	sameDay(t, day(2024, time.May, 31), seg.RepeatStart)
	sameDay(t, day(2024, time.May, 31), seg.RepeatEnd)
}

func TestDeleteRepeatVariants(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()

	t.Run("front", func(t *testing.T) {
		orig := seedDaily(t, svc, 1, day(2024, time.June, 1), day(2024, time.June, 30))
		res, err := svc.DeleteRepeatFront(ctx, 1, orig.ID, FrontDeleteInput{
			NextRepeatStart: day(2024, time.June, 5),
		})
		require.NoError(t, err)
		require.Empty(t, res.Created)
		sameDay(t, day(2024, time.June, 5), reload(t, db, orig.ID).RepeatStart)
	})

	t.Run("middle", func(t *testing.T) {
		orig := seedDaily(t, svc, 1, day(2024, time.July, 1), day(2024, time.July, 31))
		res, err := svc.DeleteRepeatMiddle(ctx, 1, orig.ID, MiddleDeleteInput{
			RemovedDate:     day(2024, time.July, 10),
			NextRepeatStart: day(2024, time.July, 11),
		})
		require.NoError(t, err)
		require.Len(t, res.Created, 1)

		sameDay(t, day(2024, time.July, 9), reload(t, db, orig.ID).RepeatEnd)
		cont := reload(t, db, res.Created[0].ID)
		sameDay(t, day(2024, time.July, 11), cont.RepeatStart)
		sameDay(t, day(2024, time.July, 31), cont.RepeatEnd)
	})

	t.Run("back", func(t *testing.T) {
		orig := seedDaily(t, svc, 1, day(2024, time.August, 1), day(2024, time.August, 31))
		res, err := svc.DeleteRepeatBack(ctx, 1, orig.ID, BackDeleteInput{
			PreRepeatEnd: day(2024, time.August, 20),
		})
		require.NoError(t, err)
		require.Empty(t, res.Created)
		sameDay(t, day(2024, time.August, 20), reload(t, db, orig.ID).RepeatEnd)
	})
}

func TestMiddleSplitSkipsEmptyContinuation(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}

	orig := seedDaily(t, svc, 1, day(2024, time.March, 1), day(2024, time.March, 31))

	// continuation would start past the window end; only the edited
	// occurrence is created
	res, err := svc.UpdateRepeatMiddle(context.Background(), 1, orig.ID, MiddleSplitInput{
		ChangedDate:     day(2024, time.March, 30),
		NextRepeatStart: day(2024, time.April, 5),
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	sameDay(t, day(2024, time.March, 30), res.Created[0].RepeatStart)
	sameDay(t, day(2024, time.March, 30), res.Created[0].RepeatEnd)
	sameDay(t, day(2024, time.March, 29), reload(t, db, orig.ID).RepeatEnd)
}

func TestSplitValidation(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()

	orig := seedDaily(t, svc, 1, day(2024, time.March, 10), day(2024, time.March, 20))

	cases := []struct {
		name string
		call func() error
	}{
		{"front before start", func() error {
			_, err := svc.UpdateRepeatFront(ctx, 1, orig.ID, FrontSplitInput{
				NextRepeatStart: day(2024, time.March, 5),
			})
			return err
		}},
		{"front past end", func() error {
			_, err := svc.UpdateRepeatFront(ctx, 1, orig.ID, FrontSplitInput{
				NextRepeatStart: day(2024, time.April, 1),
			})
			return err
		}},
		{"middle changed at start", func() error {
			_, err := svc.UpdateRepeatMiddle(ctx, 1, orig.ID, MiddleSplitInput{
				ChangedDate:     day(2024, time.March, 10),
				NextRepeatStart: day(2024, time.March, 11),
			})
			return err
		}},
		{"middle next not after changed", func() error {
			_, err := svc.UpdateRepeatMiddle(ctx, 1, orig.ID, MiddleSplitInput{
				ChangedDate:     day(2024, time.March, 15),
				NextRepeatStart: day(2024, time.March, 15),
			})
			return err
		}},
		{"back pre end before start", func() error {
			_, err := svc.UpdateRepeatBack(ctx, 1, orig.ID, BackSplitInput{
				PreRepeatEnd: day(2024, time.March, 5),
				RepeatStart:  day(2024, time.March, 6),
			})
			return err
		}},
		{"back new start not after pre end", func() error {
			_, err := svc.UpdateRepeatBack(ctx, 1, orig.ID, BackSplitInput{
				PreRepeatEnd: day(2024, time.March, 15),
				RepeatStart:  day(2024, time.March, 15),
			})
			return err
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			require.Error(t, err)
			require.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
		})
	}

	// nothing moved
	got := reload(t, db, orig.ID)
	sameDay(t, day(2024, time.March, 10), got.RepeatStart)
	sameDay(t, day(2024, time.March, 20), got.RepeatEnd)
}

func TestSplitNotFoundForOtherUser(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}

	orig := seedDaily(t, svc, 1, day(2024, time.March, 1), day(2024, time.March, 31))

	_, err := svc.UpdateRepeatFront(context.Background(), 2, orig.ID, FrontSplitInput{
		NextRepeatStart: day(2024, time.March, 5),
	})
	require.Error(t, err)
	require.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestSplitAtomicityOnInjectedFailure(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()

	orig := seedDaily(t, svc, 1, day(2024, time.March, 1), day(2024, time.March, 31))

	// fail the insert of the new segment mid-transaction
	require.NoError(t, db.Callback().Create().Before("gorm:create").
		Register("test:fail_segment", func(tx *gorm.DB) {
			if s, ok := tx.Statement.Dest.(*Schedule); ok && s.Content == "boom" {
				_ = tx.AddError(errors.New("injected failure"))
			}
		}))
	t.Cleanup(func() {
		_ = db.Callback().Create().Remove("test:fail_segment")
	})

	_, err := svc.UpdateRepeatFront(ctx, 1, orig.ID, FrontSplitInput{
		NextRepeatStart: day(2024, time.March, 10),
		Update:          UpdateInput{Content: strPtr("boom")},
	})
	require.Error(t, err)

	// the whole split rolled back; the persisted window is untouched
	got := reload(t, db, orig.ID)
	sameDay(t, day(2024, time.March, 1), got.RepeatStart)
	sameDay(t, day(2024, time.March, 31), got.RepeatEnd)

	var segments int64
	require.NoError(t, db.Model(&Schedule{}).
		Where("parent_id = ?", orig.ID).Count(&segments).Error)
	require.Zero(t, segments)
}

func TestSplitCopiesTodoAndAlarms(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()

	sch, err := svc.Create(ctx, 1, CreateInput{
		Content:    "Read a chapter",
		Rule:       RecurrenceRule{Option: RepeatDaily, Start: dayPtr(2024, time.March, 1), End: dayPtr(2024, time.March, 31)},
		AlarmTimes: []time.Time{time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)},
		Todo: &TodoInput{
			Flag: true,
			SubTodos: []SubTodoInput{
				{Content: "find the book"},
				{Content: "take notes"},
			},
			Tags: []string{"reading"},
		},
	})
	require.NoError(t, err)

	var origTodo Todo
	require.NoError(t, db.Where("schedule_id = ?", sch.ID).First(&origTodo).Error)
	require.NoError(t, svc.Complete(ctx, 1, origTodo.ID, true))

	res, err := svc.UpdateRepeatMiddle(ctx, 1, sch.ID, MiddleSplitInput{
		ChangedDate:     day(2024, time.March, 15),
		NextRepeatStart: day(2024, time.March, 16),
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 2)

	for _, seg := range res.Created {
		var todos []Todo
		require.NoError(t, db.Where("schedule_id = ?", seg.ID).Find(&todos).Error)
		require.Len(t, todos, 1, "todo extension travels with the segment")
		require.True(t, todos[0].Flag)
		require.True(t, todos[0].Completed, "completion state travels with the segment")

		var subs int64
		require.NoError(t, db.Model(&SubTodo{}).Where("todo_id = ?", todos[0].ID).Count(&subs).Error)
		require.EqualValues(t, 2, subs)

		var links int64
		require.NoError(t, db.Model(&TodoTag{}).Where("todo_id = ?", todos[0].ID).Count(&links).Error)
		require.EqualValues(t, 1, links)

		var alarms int64
		require.NoError(t, db.Table("alarms").
			Where("schedule_id = ? AND deleted_at IS NULL", seg.ID).Count(&alarms).Error)
		require.EqualValues(t, 1, alarms)
	}

	// only one tag row exists; both segments link to it
	var tags int64
	require.NoError(t, db.Model(&Tag{}).Where("user_id = ?", 1).Count(&tags).Error)
	require.EqualValues(t, 1, tags)
}
