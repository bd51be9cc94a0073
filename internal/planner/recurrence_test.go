package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dayplan/internal/apperr"
)

func TestRecurrenceRuleValidate(t *testing.T) {
	start := day(2024, time.January, 1)
	end := day(2024, time.January, 31)

	tests := []struct {
		name    string
		rule    RecurrenceRule
		wantErr bool
	}{
		{
			name: "none without dates",
			rule: RecurrenceRule{Option: RepeatNone},
		},
		{
			name: "weekly with 7-bit mask",
			rule: RecurrenceRule{Option: RepeatWeekly, Value: "0100000", Start: &start, End: &end},
		},
		{
			name: "monthly with 31-bit mask",
			rule: RecurrenceRule{Option: RepeatMonthly, Value: "1000000000000010000000000000000", Start: &start},
		},
		{
			name: "yearly with 12-bit mask",
			rule: RecurrenceRule{Option: RepeatYearly, Value: "100000000001", Start: &start},
		},
		{
			name: "daily with empty mask",
			rule: RecurrenceRule{Option: RepeatDaily, Start: &start, End: &end},
		},
		{
			name:    "unknown option",
			rule:    RecurrenceRule{Option: "fortnightly", Start: &start},
			wantErr: true,
		},
		{
			name:    "weekly mask too short",
			rule:    RecurrenceRule{Option: RepeatWeekly, Value: "010", Start: &start},
			wantErr: true,
		},
		{
			name:    "weekly mask wrong charset",
			rule:    RecurrenceRule{Option: RepeatWeekly, Value: "01x0000", Start: &start},
			wantErr: true,
		},
		{
			name:    "weekly mask all zero",
			rule:    RecurrenceRule{Option: RepeatWeekly, Value: "0000000", Start: &start},
			wantErr: true,
		},
		{
			name:    "daily with stray mask",
			rule:    RecurrenceRule{Option: RepeatDaily, Value: "1", Start: &start},
			wantErr: true,
		},
		{
			name:    "repeating without start",
			rule:    RecurrenceRule{Option: RepeatDaily},
			wantErr: true,
		},
		{
			name:    "start after end",
			rule:    RecurrenceRule{Option: RepeatDaily, Start: &end, End: &start},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				require.Error(t, err)
				require.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRecurrenceRuleOccursWeekly(t *testing.T) {
	start := day(2024, time.January, 1) // a Monday
	end := day(2024, time.January, 31)
	rule := RecurrenceRule{Option: RepeatWeekly, Value: "0100000", Start: &start, End: &end}

	require.True(t, rule.Occurs(day(2024, time.January, 1)))
	require.True(t, rule.Occurs(day(2024, time.January, 8)))
	require.True(t, rule.Occurs(day(2024, time.January, 29)))

	require.False(t, rule.Occurs(day(2024, time.January, 2)), "tuesday is not selected")
	require.False(t, rule.Occurs(day(2023, time.December, 25)), "before the window")
	require.False(t, rule.Occurs(day(2024, time.February, 5)), "after the window")
}

func TestRecurrenceRuleOccursMonthly(t *testing.T) {
	start := day(2024, time.March, 1)
	// days 1 and 15
	mask := "100000000000001" + "0000000000000000"
	rule := RecurrenceRule{Option: RepeatMonthly, Value: mask, Start: &start}

	require.True(t, rule.Occurs(day(2024, time.March, 1)))
	require.True(t, rule.Occurs(day(2024, time.March, 15)))
	require.True(t, rule.Occurs(day(2024, time.June, 15)))
	require.False(t, rule.Occurs(day(2024, time.March, 2)))
}

func TestRecurrenceRuleOccursNone(t *testing.T) {
	start := day(2024, time.May, 5)
	rule := RecurrenceRule{Option: RepeatNone, Start: &start}

	require.True(t, rule.Occurs(day(2024, time.May, 5)))
	require.False(t, rule.Occurs(day(2024, time.May, 6)))
}

func TestRecurrenceRuleOccursDaily(t *testing.T) {
	start := day(2024, time.March, 1)
	end := day(2024, time.March, 31)
	rule := RecurrenceRule{Option: RepeatDaily, Start: &start, End: &end}

	require.True(t, rule.Occurs(day(2024, time.March, 1)))
	require.True(t, rule.Occurs(day(2024, time.March, 15)))
	require.True(t, rule.Occurs(day(2024, time.March, 31)))
	require.False(t, rule.Occurs(day(2024, time.April, 1)))
}

func TestRecurrenceRuleNextOccurrence(t *testing.T) {
	start := day(2024, time.January, 1)
	end := day(2024, time.January, 31)
	rule := RecurrenceRule{Option: RepeatWeekly, Value: "0100000", Start: &start, End: &end}

	next := rule.NextOccurrence(day(2024, time.January, 1))
	require.NotNil(t, next)
	require.True(t, next.Equal(day(2024, time.January, 8)))

	// series exhausted past the window
	require.Nil(t, rule.NextOccurrence(day(2024, time.January, 29)))
}

func TestDayHelpers(t *testing.T) {
	ts := time.Date(2024, time.March, 15, 13, 45, 12, 0, time.UTC)
	require.True(t, Day(ts).Equal(day(2024, time.March, 15)))
	require.True(t, DayBefore(ts).Equal(day(2024, time.March, 14)))
	require.True(t, DayAfter(ts).Equal(day(2024, time.March, 16)))
}
