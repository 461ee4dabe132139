package availability

import (
	"fmt"
	"time"

	"github.com/chonkyweb/petcare/services/booking-service/internal/model"
)

// DefaultStep is the spacing between candidate slot starts.
const DefaultStep = 30 * time.Minute

type Interval struct {
	Start time.Time
	End   time.Time
}

// BusinessHours is the daily opening window, identical for every branch and weekday.
type BusinessHours struct {
	Open     Clock
	Close    Clock
	Step     time.Duration
	Location *time.Location
}

func DefaultBusinessHours(loc *time.Location) BusinessHours {
	if loc == nil {
		loc = time.UTC
	}
	return BusinessHours{
		Open:     Clock{Hour: 8},
		Close:    Clock{Hour: 17},
		Step:     DefaultStep,
		Location: loc,
	}
}

// Window returns the opening interval on the given calendar day.
func (h BusinessHours) Window(date time.Time) Interval {
	day := Day(date, h.Location)
	return Interval{Start: h.Open.On(day), End: h.Close.On(day)}
}

// WithinBusinessHours reports whether [start, end) fits inside the opening window of start's day.
func (h BusinessHours) WithinBusinessHours(start, end time.Time) bool {
	if !end.After(start) {
		return false
	}
	win := h.Window(start.In(h.location()))
	return !start.Before(win.Start) && !end.After(win.End)
}

func (h BusinessHours) location() *time.Location {
	if h.Location == nil {
		return time.UTC
	}
	return h.Location
}

// Day truncates t to midnight of its calendar day in loc. The calendar day is
// read from t's own fields so a date parsed as UTC keeps its day.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// TimeSlot is one bookable start time.
type TimeSlot struct {
	Start   string `json:"start_time"`
	End     string `json:"end_time"`
	Display string `json:"display"`
}

func newTimeSlot(start, end time.Time) TimeSlot {
	return TimeSlot{
		Start:   ClockOf(start).String(),
		End:     ClockOf(end).String(),
		Display: fmt.Sprintf("%s - %s", start.Format("3:04 PM"), end.Format("3:04 PM")),
	}
}

// ComputeAvailableSlots lists the start times on date at branch where svc can be
// booked without intersecting a blocking appointment. An empty result is not an error.
func ComputeAvailableSlots(hours BusinessHours, date time.Time, branch model.Branch, svc model.Service, existing []model.Appointment) ([]TimeSlot, error) {
	if date.IsZero() {
		return nil, model.Invalid("date", "required")
	}
	if _, err := model.ParseBranch(string(branch)); err != nil {
		return nil, err
	}
	if svc.ID == 0 {
		return nil, model.Invalid("service_id", "required")
	}
	if svc.DurationMinutes <= 0 {
		return nil, model.Invalid("duration_minutes", "must be positive")
	}
	duration := svc.Duration()
	step := hours.Step
	if step <= 0 {
		step = DefaultStep
	}

	day := Day(date, hours.location())
	win := hours.Window(day)

	var busy []Interval
	if !svc.MayOverlap {
		busy = blockingIntervals(day, branch, existing)
	}

	starts := AvailableSlots(win.Start, win.End, duration, step, busy)
	slots := make([]TimeSlot, 0, len(starts))
	for _, s := range starts {
		slots = append(slots, newTimeSlot(s, s.Add(duration)))
	}
	return slots, nil
}

func blockingIntervals(day time.Time, branch model.Branch, existing []model.Appointment) []Interval {
	var busy []Interval
	for _, a := range existing {
		if a.Branch != branch || !a.BlocksSlots() {
			continue
		}
		if !sameDay(a.Date, day) {
			continue
		}
		busy = append(busy, Interval{
			Start: ClockOf(a.StartTime).On(day),
			End:   ClockOf(a.EndTime).On(day),
		})
	}
	return busy
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// AvailableSlots returns slot start times within [windowStart, windowEnd) where a booking of
// length duration would not overlap any of the busy intervals.
//
// All times are expected to be in the same location (timezone).
func AvailableSlots(windowStart, windowEnd time.Time, duration, step time.Duration, busy []Interval) []time.Time {
	if duration <= 0 || step <= 0 {
		return nil
	}
	if !windowEnd.After(windowStart) {
		return nil
	}
	if windowStart.Add(duration).After(windowEnd) {
		return nil
	}

	var slots []time.Time
	for t := windowStart; !t.Add(duration).After(windowEnd); t = t.Add(step) {
		if !overlapsAny(t, t.Add(duration), busy) {
			slots = append(slots, t)
		}
	}
	return slots
}

// Overlaps is the half-open test: [aStart,aEnd) and [bStart,bEnd) intersect iff aStart < bEnd && bStart < aEnd.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		if Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}
