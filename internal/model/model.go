package model

// Frequency is the cadence of a recurrence rule.
type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
)

// Recurrence describes a bounded or open-ended family of event
// occurrences. DaysOfWeek uses 0=Sunday..6=Saturday and only applies to
// weekly rules, where it restricts which weekdays produce instances.
type Recurrence struct {
	Frequency Frequency `json:"frequency" yaml:"frequency"`
	Interval  int       `json:"interval" yaml:"interval"`

	// DaysOfWeek, when non-empty and Frequency is weekly, limits
	// instances to the listed weekday indices.
	DaysOfWeek []int `json:"days_of_week,omitempty" yaml:"days_of_week,omitempty"`

	// EndDate bounds expansion (inclusive, YYYY-MM-DD). Empty means the
	// expander's default window applies.
	EndDate string `json:"end_date,omitempty" yaml:"end_date,omitempty"`
}

// Event is a single calendar entry as stored. Dates are naive calendar
// dates (YYYY-MM-DD) and times are naive local clock values (HH:MM);
// an empty StartTime means the event is all-day/untimed.
//
// The scheduling engine treats events as immutable values: expansion,
// conflict detection and layout all allocate fresh outputs and never
// mutate their inputs.
type Event struct {
	ID string `json:"id" yaml:"id"`

	// SourceID identifies the feed an event came from (e.g. an ICS
	// subscription). Empty for locally created events.
	SourceID string `json:"source_id,omitempty" yaml:"source_id,omitempty"`

	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	StartDate string `json:"start_date" yaml:"start_date"`
	// EndDate, when set, is >= StartDate and makes the event span
	// multiple days.
	EndDate string `json:"end_date,omitempty" yaml:"end_date,omitempty"`

	StartTime string `json:"start_time,omitempty" yaml:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty" yaml:"end_time,omitempty"`

	IsRecurring bool        `json:"is_recurring,omitempty" yaml:"is_recurring,omitempty"`
	Recurrence  *Recurrence `json:"recurrence,omitempty" yaml:"recurrence,omitempty"`

	Completed bool `json:"completed,omitempty" yaml:"completed,omitempty"`
}

// Timed reports whether the event has a start time and therefore
// participates in conflict detection and timed column layout.
func (e Event) Timed() bool {
	return e.StartTime != ""
}

// WorkloadLevel is the coarse classification of one day's density.
type WorkloadLevel string

const (
	WorkloadLight    WorkloadLevel = "light"
	WorkloadModerate WorkloadLevel = "moderate"
	WorkloadHeavy    WorkloadLevel = "heavy"
)
