package planner

import (
	"time"

	"github.com/teambition/rrule-go"

	"dayplan/internal/apperr"
)

// RepeatOption selects how a schedule recurs. The paired bitmask Value
// narrows the rule to specific weekdays / month days / months.
type RepeatOption string

const (
	RepeatNone    RepeatOption = "none"
	RepeatDaily   RepeatOption = "daily"
	RepeatWeekly  RepeatOption = "weekly"
	RepeatMonthly RepeatOption = "monthly"
	RepeatYearly  RepeatOption = "yearly"
)

// maskWidth is the required length of the bitmask Value for an option.
// Weekly bit 0 is Sunday; monthly bit i is day i+1; yearly bit i is month i+1.
func (o RepeatOption) maskWidth() int {
	switch o {
	case RepeatWeekly:
		return 7
	case RepeatMonthly:
		return 31
	case RepeatYearly:
		return 12
	default:
		return 0
	}
}

func (o RepeatOption) valid() bool {
	switch o {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly:
		return true
	}
	return false
}

// RecurrenceRule is a pure value describing when a series occurs.
// It is replaced wholesale on edits, never patched field-by-field.
type RecurrenceRule struct {
	Option RepeatOption
	Value  string
	Start  *time.Time
	End    *time.Time
}

func (r RecurrenceRule) Validate() error {
	if !r.Option.valid() {
		return apperr.Validationf("unknown repeat option %q", r.Option)
	}
	if w := r.Option.maskWidth(); w > 0 {
		if len(r.Value) != w {
			return apperr.Validationf("repeat value for %s must be %d chars, got %d", r.Option, w, len(r.Value))
		}
		set := false
		for _, c := range r.Value {
			if c != '0' && c != '1' {
				return apperr.Validationf("repeat value must contain only 0 and 1")
			}
			if c == '1' {
				set = true
			}
		}
		if !set {
			return apperr.Validationf("repeat value for %s has no day selected", r.Option)
		}
	} else if r.Value != "" {
		return apperr.Validationf("repeat value must be empty for %s", r.Option)
	}
	if r.Option != RepeatNone && r.Start == nil {
		return apperr.Validationf("repeat start required for %s", r.Option)
	}
	if r.Start != nil && r.End != nil && r.Start.After(*r.End) {
		return apperr.Validationf("repeat start is after repeat end")
	}
	return nil
}

var ruleWeekdays = []rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// rrule builds the RFC 5545 interpretation of the rule. Callers must have
// validated the rule; a nil result means the option carries no calendar math
// (none).
func (r RecurrenceRule) rrule() (*rrule.RRule, error) {
	if r.Option == RepeatNone || r.Start == nil {
		return nil, nil
	}

	opt := rrule.ROption{Dtstart: Day(*r.Start)}
	if r.End != nil {
		opt.Until = Day(*r.End)
	}

	switch r.Option {
	case RepeatDaily:
		opt.Freq = rrule.DAILY
	case RepeatWeekly:
		opt.Freq = rrule.WEEKLY
		for i, c := range r.Value {
			if c == '1' {
				opt.Byweekday = append(opt.Byweekday, ruleWeekdays[i])
			}
		}
	case RepeatMonthly:
		opt.Freq = rrule.MONTHLY
		for i, c := range r.Value {
			if c == '1' {
				opt.Bymonthday = append(opt.Bymonthday, i+1)
			}
		}
	case RepeatYearly:
		opt.Freq = rrule.YEARLY
		for i, c := range r.Value {
			if c == '1' {
				opt.Bymonth = append(opt.Bymonth, i+1)
			}
		}
		opt.Bymonthday = []int{r.Start.Day()}
	}

	return rrule.NewRRule(opt)
}

// Occurs reports whether the series has an occurrence on the given calendar
// day. Day granularity only; the time-of-day of d is ignored.
func (r RecurrenceRule) Occurs(d time.Time) bool {
	day := Day(d)
	if r.Start != nil && day.Before(Day(*r.Start)) {
		return false
	}
	if r.End != nil && day.After(Day(*r.End)) {
		return false
	}
	if r.Option == RepeatNone {
		return r.Start != nil && day.Equal(Day(*r.Start))
	}

	rule, err := r.rrule()
	if err != nil || rule == nil {
		return false
	}
	hits := rule.Between(day, day.Add(24*time.Hour-time.Nanosecond), true)
	return len(hits) > 0
}

// NextOccurrence returns the first occurrence strictly after the given day,
// or nil when the series is exhausted.
func (r RecurrenceRule) NextOccurrence(after time.Time) *time.Time {
	rule, err := r.rrule()
	if err != nil || rule == nil {
		return nil
	}
	next := rule.After(Day(after), false)
	if next.IsZero() {
		return nil
	}
	return &next
}

// Day truncates t to midnight UTC. All series boundaries are calendar days.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayBefore and DayAfter shift a calendar day by one.
func DayBefore(t time.Time) time.Time { return Day(t).AddDate(0, 0, -1) }
func DayAfter(t time.Time) time.Time  { return Day(t).AddDate(0, 0, 1) }
