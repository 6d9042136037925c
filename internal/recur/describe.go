package recur

import (
	"fmt"
	"strings"

	"dashcal/internal/model"
	"dashcal/internal/timeutil"
)

var shortDayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Describe renders a recurrence rule as a short human-readable label
// for list views, e.g. "Every Mon, Wed, Fri until Mar 2, 2026".
func Describe(rule model.Recurrence) string {
	interval := rule.Interval
	if interval <= 0 {
		interval = 1
	}

	var out string
	switch rule.Frequency {
	case model.FreqDaily:
		if interval == 1 {
			out = "Every day"
		} else {
			out = fmt.Sprintf("Every %d days", interval)
		}
	case model.FreqWeekly:
		switch {
		case interval == 1 && len(rule.DaysOfWeek) > 0:
			names := make([]string, 0, len(rule.DaysOfWeek))
			for _, d := range rule.DaysOfWeek {
				if d >= 0 && d < len(shortDayNames) {
					names = append(names, shortDayNames[d])
				}
			}
			out = "Every " + strings.Join(names, ", ")
		case interval == 1:
			out = "Every week"
		default:
			out = fmt.Sprintf("Every %d weeks", interval)
		}
	case model.FreqMonthly:
		if interval == 1 {
			out = "Every month"
		} else {
			out = fmt.Sprintf("Every %d months", interval)
		}
	case model.FreqYearly:
		if interval == 1 {
			out = "Every year"
		} else {
			out = fmt.Sprintf("Every %d years", interval)
		}
	default:
		out = "Does not repeat"
	}

	if rule.EndDate != "" {
		if end, err := timeutil.ParseDate(rule.EndDate); err == nil {
			out += " until " + end.Format("Jan 2, 2006")
		}
	}

	return out
}
