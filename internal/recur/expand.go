// Package recur expands recurring-event definitions into concrete dated
// instances. Expansion is pure and deterministic: it never mutates its
// input event, performs no I/O and allocates fresh instances per call.
package recur

import (
	"strings"
	"time"

	"dashcal/internal/model"
	"dashcal/internal/timeutil"
)

const (
	// DefaultMaxInstances caps how many instances a single rule may
	// produce, independent of the rule's own bound.
	DefaultMaxInstances = 52

	// DefaultWindowDays bounds expansion when the rule carries no
	// explicit end date.
	DefaultWindowDays = 365
)

// Options controls how expansion is performed. The zero value selects
// the documented defaults.
type Options struct {
	// MaxInstances is a hard cap on emitted instances. If zero or
	// negative, DefaultMaxInstances is used.
	MaxInstances int

	// WindowDays is the default expansion window applied when the rule
	// has no end date. If zero or negative, DefaultWindowDays is used.
	WindowDays int
}

// Expand turns one event into its concrete dated instances.
//
// Non-recurring events are returned unchanged as a one-element slice.
// Recurring events are walked forward from their start date:
//
//   - daily: step Interval days, every stepped date is an instance.
//   - weekly: step one day at a time; a date qualifies when DaysOfWeek
//     is empty or contains its weekday index. Note that Interval is not
//     applied at the day level, so weekly rules with an explicit
//     DaysOfWeek do not skip whole weeks (see the package tests).
//   - monthly / yearly: step Interval months / years.
//
// Expansion stops at the rule's end date (or start+WindowDays when
// unset) or once MaxInstances instances have been emitted. An unknown
// frequency stops the walk and returns whatever was accumulated.
func Expand(ev model.Event, opts Options) []model.Event {
	if !ev.IsRecurring || ev.Recurrence == nil {
		return []model.Event{ev}
	}

	maxInstances := opts.MaxInstances
	if maxInstances <= 0 {
		maxInstances = DefaultMaxInstances
	}
	windowDays := opts.WindowDays
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}

	start, err := timeutil.ParseDate(ev.StartDate)
	if err != nil {
		// Malformed anchor date: nothing to walk from.
		return nil
	}

	rule := ev.Recurrence
	limit := start.AddDate(0, 0, windowDays)
	if rule.EndDate != "" {
		if end, err := timeutil.ParseDate(rule.EndDate); err == nil {
			limit = end
		}
	}

	interval := rule.Interval
	if interval <= 0 {
		interval = 1
	}

	// Multi-day events keep their span: each instance's end date is the
	// instance date shifted by the base event's day span.
	spanDays := 0
	if ev.EndDate != "" {
		if end, err := timeutil.ParseDate(ev.EndDate); err == nil {
			spanDays = timeutil.DaysBetween(start, end)
		}
	}

	instances := make([]model.Event, 0)
	current := start

	for !current.After(limit) && len(instances) < maxInstances {
		include := true
		if rule.Frequency == model.FreqWeekly && len(rule.DaysOfWeek) > 0 {
			include = containsInt(rule.DaysOfWeek, timeutil.WeekdayIndex(current))
		}

		if include {
			instances = append(instances, makeInstance(ev, current, spanDays))
		}

		switch rule.Frequency {
		case model.FreqDaily:
			current = current.AddDate(0, 0, interval)
		case model.FreqWeekly:
			// Walk each day so DaysOfWeek can select within the week.
			current = current.AddDate(0, 0, 1)
		case model.FreqMonthly:
			current = current.AddDate(0, interval, 0)
		case model.FreqYearly:
			current = current.AddDate(interval, 0, 0)
		default:
			// Unknown frequency: fail closed with what we have.
			return instances
		}
	}

	return instances
}

// makeInstance derives a concrete instance of ev on the given date. The
// instance id is deterministic so instances stay addressable across
// recomputations.
func makeInstance(ev model.Event, date time.Time, spanDays int) model.Event {
	inst := ev
	dateStr := timeutil.FormatDate(date)
	inst.ID = InstanceID(ev.ID, dateStr)
	inst.StartDate = dateStr
	if ev.EndDate != "" {
		inst.EndDate = timeutil.FormatDate(date.AddDate(0, 0, spanDays))
	}
	return inst
}

// InstanceID builds the derived id for one instance of a recurring
// event: "<baseID>-<YYYY-MM-DD>". It is a plain string convention, not
// an identity mechanism.
func InstanceID(baseID, date string) string {
	return baseID + "-" + date
}

// IsInstanceID reports whether id follows the derived-instance
// convention. Base-event ids must therefore not contain "-".
func IsInstanceID(id string) bool {
	return strings.Contains(id, "-")
}

// BaseEventID extracts the base-event id from an instance id.
func BaseEventID(instanceID string) string {
	if i := strings.Index(instanceID, "-"); i >= 0 {
		return instanceID[:i]
	}
	return instanceID
}

// InstanceDate extracts the instance date from an instance id, or ""
// when the id carries none.
func InstanceDate(instanceID string) string {
	if i := strings.Index(instanceID, "-"); i >= 0 {
		return instanceID[i+1:]
	}
	return ""
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
