// Package layout packs the events of one calendar day into side-by-side
// display columns so overlapping events render without visual collision
// (the usual day/week timeline presentation). The packer is pure and
// never fails: events with missing or unparseable times fall back to
// the untimed slot instead of aborting the day's layout.
package layout

import (
	"sort"

	"dashcal/internal/model"
	"dashcal/internal/timeutil"
)

const (
	// DefaultHourHeight is the pixel height of one hour in the timeline.
	DefaultHourHeight = 80.0

	// MinEventHeight keeps very short (or open-ended) events legible.
	MinEventHeight = 40.0

	// dayOriginMinutes anchors the timeline at 08:00.
	dayOriginMinutes = 8 * 60

	// defaultSpanMinutes is assumed when an event has no end time, for
	// overlap testing and sort order.
	defaultSpanMinutes = 30
)

// Positioned is one event plus its computed slot in the day grid.
// Column and TotalColumns are layout-only and never persisted; Top and
// Height are pixel offsets at the caller's hour scale.
type Positioned struct {
	Event        model.Event `json:"event"`
	Column       int         `json:"column"`
	TotalColumns int         `json:"total_columns"`
	Top          float64     `json:"top"`
	Height       float64     `json:"height"`
}

// Layout assigns every event a display column for the day timeline.
//
// Timed events go through two passes: greedy first-fit column
// assignment (classic interval partitioning, minimal columns for the
// events seen so far), then a cluster widening pass that gives every
// set of overlapping events a shared TotalColumns so they all render at
// the same width. Untimed events occupy a fixed single-column slot
// outside the timed grid.
func Layout(events []model.Event, hourHeight float64) []Positioned {
	if len(events) == 0 {
		return []Positioned{}
	}
	if hourHeight <= 0 {
		hourHeight = DefaultHourHeight
	}

	sorted := make([]model.Event, len(events))
	copy(sorted, events)
	sortForPacking(sorted)

	positioned := assignColumns(sorted, hourHeight)
	widenClusters(positioned)
	return positioned
}

// sortForPacking orders events by start time ascending, ties broken by
// duration descending so long events claim earlier columns and are less
// likely to end up in narrow trailing ones.
func sortForPacking(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		si, oki := startMinutes(events[i])
		sj, okj := startMinutes(events[j])
		if !oki {
			si = 0
		}
		if !okj {
			sj = 0
		}
		if si != sj {
			return si < sj
		}
		return spanMinutes(events[i]) > spanMinutes(events[j])
	})
}

// assignColumns is the first pass: scan columns left to right and place
// each timed event in the first column none of whose members overlap
// it, appending a new column when none fits.
func assignColumns(sorted []model.Event, hourHeight float64) []Positioned {
	positioned := make([]Positioned, 0, len(sorted))
	columns := make([][]model.Event, 0)

	for _, ev := range sorted {
		if _, ok := startMinutes(ev); !ok {
			// Untimed or unparseable: fixed slot outside the grid.
			top, height := Position("00:00", "", hourHeight)
			positioned = append(positioned, Positioned{
				Event:        ev,
				Column:       0,
				TotalColumns: 1,
				Top:          top,
				Height:       height,
			})
			continue
		}

		column := -1
		for i, members := range columns {
			fits := true
			for _, m := range members {
				if overlaps(m, ev) {
					fits = false
					break
				}
			}
			if fits {
				columns[i] = append(columns[i], ev)
				column = i
				break
			}
		}
		if column < 0 {
			columns = append(columns, []model.Event{ev})
			column = len(columns) - 1
		}

		top, height := Position(ev.StartTime, ev.EndTime, hourHeight)
		positioned = append(positioned, Positioned{
			Event:        ev,
			Column:       column,
			TotalColumns: column + 1,
			Top:          top,
			Height:       height,
		})
	}

	return positioned
}

// widenClusters is the second pass: every maximal set of events
// transitively connected by overlap shares one TotalColumns, the
// highest column index in the cluster plus one. This makes, say, three
// mutually overlapping events all render at one-third width instead of
// some rendering wider than others, and keeps widths consistent across
// overlap chains (if a overlaps b and b overlaps c, all three agree).
func widenClusters(positioned []Positioned) {
	visited := make([]bool, len(positioned))

	for i := range positioned {
		if visited[i] {
			continue
		}
		if _, ok := startMinutes(positioned[i].Event); !ok {
			continue
		}

		// Collect i's cluster via breadth-first walk over overlaps.
		cluster := []int{i}
		visited[i] = true
		for cursor := 0; cursor < len(cluster); cursor++ {
			current := cluster[cursor]
			for j := range positioned {
				if visited[j] {
					continue
				}
				if _, ok := startMinutes(positioned[j].Event); !ok {
					continue
				}
				if overlaps(positioned[current].Event, positioned[j].Event) {
					visited[j] = true
					cluster = append(cluster, j)
				}
			}
		}

		maxColumn := 0
		for _, j := range cluster {
			if positioned[j].Column > maxColumn {
				maxColumn = positioned[j].Column
			}
		}
		for _, j := range cluster {
			positioned[j].TotalColumns = maxColumn + 1
		}
	}
}

// Position computes the pixel offset and height of an event in the
// timeline, anchored at the 08:00 day origin. Events with no end time
// get the minimum height, and all heights are floored at MinEventHeight
// to stay legible.
func Position(startTime, endTime string, hourHeight float64) (top, height float64) {
	if hourHeight <= 0 {
		hourHeight = DefaultHourHeight
	}

	start, err := timeutil.ClockToMinutes(startTime)
	if err != nil {
		start = 0
	}
	top = float64(start-dayOriginMinutes) / 60 * hourHeight

	if endTime == "" {
		return top, MinEventHeight
	}
	end, err := timeutil.ClockToMinutes(endTime)
	if err != nil {
		return top, MinEventHeight
	}

	height = float64(end-start) / 60 * hourHeight
	if height < MinEventHeight {
		height = MinEventHeight
	}
	return top, height
}

// Frame is the horizontal placement of a positioned event, as
// percentages of the day column's width.
type Frame struct {
	LeftPct  float64 `json:"left_pct"`
	WidthPct float64 `json:"width_pct"`
}

// FrameFor converts a Positioned's column slot into percentage
// placement for rendering; a small gap is shaved off the width so
// adjacent events do not touch.
func FrameFor(p Positioned) Frame {
	columnWidth := 100.0 / float64(p.TotalColumns)
	return Frame{
		LeftPct:  float64(p.Column) * columnWidth,
		WidthPct: columnWidth - 1,
	}
}

// overlaps applies the half-open interval test shared with conflict
// detection: back-to-back events do not overlap. Events without a
// parseable start time never overlap anything.
func overlaps(a, b model.Event) bool {
	aStart, ok := startMinutes(a)
	if !ok {
		return false
	}
	bStart, ok := startMinutes(b)
	if !ok {
		return false
	}

	aEnd := endMinutes(a, aStart)
	bEnd := endMinutes(b, bStart)
	return aStart < bEnd && aEnd > bStart
}

func startMinutes(ev model.Event) (int, bool) {
	if ev.StartTime == "" {
		return 0, false
	}
	m, err := timeutil.ClockToMinutes(ev.StartTime)
	if err != nil {
		return 0, false
	}
	return m, true
}

func endMinutes(ev model.Event, start int) int {
	if ev.EndTime == "" {
		return start + defaultSpanMinutes
	}
	m, err := timeutil.ClockToMinutes(ev.EndTime)
	if err != nil {
		return start + defaultSpanMinutes
	}
	return m
}

func spanMinutes(ev model.Event) int {
	start, ok := startMinutes(ev)
	if !ok {
		return defaultSpanMinutes
	}
	return endMinutes(ev, start) - start
}
