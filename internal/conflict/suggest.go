package conflict

import (
	"sort"
	"time"

	"dashcal/internal/model"
	"dashcal/internal/timeutil"
)

// Working-hours window scanned for free slots.
const (
	workDayStartMin = 9 * 60
	workDayEndMin   = 18 * 60
)

// maxSuggestions bounds how many free-slot starts SuggestTimes returns.
const maxSuggestions = 3

// SuggestTimes proposes start times (HH:MM) on the given date where an
// event of durationMin minutes would fit between existing timed events
// within working hours. At most maxSuggestions slots are returned,
// earliest first.
func SuggestTimes(events []model.Event, date string, durationMin int) []string {
	if durationMin <= 0 {
		durationMin = 60
	}

	type slot struct{ start, end int }
	busy := make([]slot, 0)

	for _, ev := range events {
		if ev.StartDate != date || ev.StartTime == "" || ev.EndTime == "" {
			continue
		}
		start, errS := timeutil.ClockToMinutes(ev.StartTime)
		end, errE := timeutil.ClockToMinutes(ev.EndTime)
		if errS != nil || errE != nil {
			continue
		}
		busy = append(busy, slot{start: start, end: end})
	}

	sort.Slice(busy, func(i, j int) bool { return busy[i].start < busy[j].start })

	suggestions := make([]string, 0, maxSuggestions)
	cursor := workDayStartMin

	for _, b := range busy {
		if cursor+durationMin <= b.start {
			suggestions = append(suggestions, timeutil.MinutesToClock(cursor))
		}
		if b.end > cursor {
			cursor = b.end
		}
	}
	if cursor+durationMin <= workDayEndMin {
		suggestions = append(suggestions, timeutil.MinutesToClock(cursor))
	}

	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}

// Stats is a coarse summary of a whole event set for dashboard badges.
type Stats struct {
	TotalEvents     int    `json:"total_events"`
	CompletedEvents int    `json:"completed_events"`
	UpcomingEvents  int    `json:"upcoming_events"`
	BusiestWeekday  string `json:"busiest_weekday"`
	// AveragePerWeek is the weekly event rate over the trailing 30 days.
	AveragePerWeek float64 `json:"average_per_week"`
}

// Summarize computes Stats relative to now (events strictly before
// now's date count as past).
func Summarize(events []model.Event, now time.Time) Stats {
	today := timeutil.FormatDate(now)
	monthAgo := timeutil.FormatDate(now.AddDate(0, 0, -30))

	var st Stats
	st.TotalEvents = len(events)

	recent := 0
	byWeekday := make(map[time.Weekday]int)
	for _, ev := range events {
		if ev.Completed {
			st.CompletedEvents++
		} else if ev.StartDate >= today {
			st.UpcomingEvents++
		}
		if ev.StartDate >= monthAgo && ev.StartDate <= today {
			recent++
		}
		if d, err := timeutil.ParseDate(ev.StartDate); err == nil {
			byWeekday[d.Weekday()]++
		}
	}
	st.AveragePerWeek = float64(recent) * 7 / 30

	best := -1
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if n := byWeekday[wd]; n > best {
			best = n
			st.BusiestWeekday = wd.String()
		}
	}
	if st.TotalEvents == 0 {
		st.BusiestWeekday = ""
	}

	return st
}
