// Package conflict detects pairwise time overlaps between events on the
// same calendar date and aggregates per-day workload. Like the rest of
// the engine it is pure: no I/O, no shared state, fresh output per call.
package conflict

import (
	"dashcal/internal/model"
	"dashcal/internal/timeutil"
)

// DefaultSpanMinutes is the assumed duration of an event missing either
// of its clock times when summing workload.
const DefaultSpanMinutes = 30

// Workload classification thresholds, checked heavy-first.
const (
	HeavyCount      = 5
	HeavyMinutes    = 360
	ModerateCount   = 3
	ModerateMinutes = 180
)

// Detect returns every candidate that overlaps ev in time on the same
// start date. The interval test is half-open, so back-to-back events
// (one ending exactly when the next starts) do not conflict. Events
// without both clock times never participate; ev itself is excluded by
// id.
func Detect(ev model.Event, candidates []model.Event) []model.Event {
	if !ev.Timed() {
		return nil
	}

	evStart, err := timeutil.ClockToMinutes(ev.StartTime)
	if err != nil {
		return nil
	}
	evEnd, err := timeutil.ClockToMinutes(ev.EndTime)
	if err != nil {
		return nil
	}

	var conflicts []model.Event
	for _, other := range candidates {
		if other.ID == ev.ID || other.StartDate != ev.StartDate {
			continue
		}
		if !other.Timed() {
			continue
		}

		otherStart, err := timeutil.ClockToMinutes(other.StartTime)
		if err != nil {
			continue
		}
		otherEnd, err := timeutil.ClockToMinutes(other.EndTime)
		if err != nil {
			continue
		}

		if evStart < otherEnd && evEnd > otherStart {
			conflicts = append(conflicts, other)
		}
	}

	return conflicts
}

// Workload summarizes one day's scheduled density.
type Workload struct {
	// Count is the number of non-completed events starting on the date.
	Count int `json:"count"`
	// DurationMin is their summed span in minutes; events missing a
	// clock time contribute DefaultSpanMinutes each.
	DurationMin int `json:"duration_min"`
	// Level is the light/moderate/heavy classification.
	Level model.WorkloadLevel `json:"level"`
}

// AnalyzeWorkload aggregates the load of all non-completed events whose
// start date equals date. Thresholds are evaluated heavy-first: 5+
// events or 6+ hours is heavy, 3+ events or 3+ hours moderate,
// anything less light.
func AnalyzeWorkload(events []model.Event, date string) Workload {
	count := 0
	duration := 0

	for _, ev := range events {
		if ev.StartDate != date || ev.Completed {
			continue
		}
		count++

		span := DefaultSpanMinutes
		if ev.StartTime != "" && ev.EndTime != "" {
			start, errS := timeutil.ClockToMinutes(ev.StartTime)
			end, errE := timeutil.ClockToMinutes(ev.EndTime)
			if errS == nil && errE == nil {
				span = end - start
			}
		}
		duration += span
	}

	level := model.WorkloadLight
	switch {
	case count >= HeavyCount || duration >= HeavyMinutes:
		level = model.WorkloadHeavy
	case count >= ModerateCount || duration >= ModerateMinutes:
		level = model.WorkloadModerate
	}

	return Workload{Count: count, DurationMin: duration, Level: level}
}
