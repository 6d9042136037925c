package ics

import (
	"bytes"
	"errors"
	"strings"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "dashcal/internal/log"
	"dashcal/internal/model"
	"dashcal/internal/timeutil"
)

// Parse converts one ICS payload into store events. Individual VEVENTs
// that fail to parse are logged and skipped so one bad entry does not
// drop the whole feed. RRULE shapes the engine cannot represent degrade
// to non-recurring single events.
func Parse(src Source, body []byte) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(src, ve)
		if err != nil {
			appLog.Error("ics vevent skipped", err, "id", src.ID)
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parsed", "id", src.ID, "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (model.Event, error) {
	var out model.Event
	out.SourceID = src.ID

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	// Prefix with the source id so two feeds can carry the same UID.
	out.ID = src.ID + ":" + uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, err
	}
	end, _ := ve.GetEndAt()

	allDay := false
	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		if params := p.ICalParameters; params != nil {
			if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
				allDay = true
			}
		}
		if !strings.Contains(p.Value, "T") {
			allDay = true
		}
	}

	out.StartDate = timeutil.FormatDate(start)
	if allDay {
		// DTEND on all-day events is exclusive; store the inclusive
		// last day, and only when the event actually spans days.
		if !end.IsZero() && end.After(start.AddDate(0, 0, 1)) {
			out.EndDate = timeutil.FormatDate(end.AddDate(0, 0, -1))
		}
	} else {
		out.StartTime = start.Format(timeutil.ClockLayout)
		if !end.IsZero() {
			out.EndTime = end.Format(timeutil.ClockLayout)
			if endDate := timeutil.FormatDate(end); endDate != out.StartDate {
				out.EndDate = endDate
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil && p.Value != "" {
		if rule, ok := mapRRule(p.Value); ok {
			out.IsRecurring = true
			out.Recurrence = rule
		} else {
			appLog.Debug("ics rrule not representable, kept as single event",
				"id", src.ID, "uid", uidProp.Value, "rrule", p.Value)
		}
	}

	return out, nil
}

// mapRRule translates an RRULE string into the engine's recurrence
// shape. Only DAILY/WEEKLY/MONTHLY/YEARLY with interval, BYDAY and
// UNTIL survive the mapping; anything else reports false.
func mapRRule(raw string) (*model.Recurrence, bool) {
	opt, err := rrule.StrToROption(raw)
	if err != nil {
		return nil, false
	}

	var freq model.Frequency
	switch opt.Freq {
	case rrule.DAILY:
		freq = model.FreqDaily
	case rrule.WEEKLY:
		freq = model.FreqWeekly
	case rrule.MONTHLY:
		freq = model.FreqMonthly
	case rrule.YEARLY:
		freq = model.FreqYearly
	default:
		return nil, false
	}

	// COUNT and positional BYxxx parts have no engine equivalent.
	if opt.Count > 0 || len(opt.Bysetpos) > 0 || len(opt.Bymonthday) > 0 || len(opt.Byyearday) > 0 {
		return nil, false
	}

	rule := &model.Recurrence{
		Frequency: freq,
		Interval:  opt.Interval,
	}
	if rule.Interval <= 0 {
		rule.Interval = 1
	}

	for _, wd := range opt.Byweekday {
		// rrule weekdays are 0=Monday..6=Sunday; the engine uses
		// 0=Sunday..6=Saturday.
		rule.DaysOfWeek = append(rule.DaysOfWeek, (wd.Day()+1)%7)
	}

	if !opt.Until.IsZero() {
		rule.EndDate = timeutil.FormatDate(opt.Until)
	}

	return rule, true
}
