package availability

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/chonkyweb/petcare/services/booking-service/internal/model"
)

var manila = time.FixedZone("PHT", 8*60*60)

func testHours() BusinessHours {
	return DefaultBusinessHours(manila)
}

func testDay() time.Time {
	return time.Date(2026, 3, 14, 0, 0, 0, 0, manila)
}

func booking(branch model.Branch, status model.Status, start, end string) model.Appointment {
	day := testDay()
	s, _ := ParseClock(start)
	e, _ := ParseClock(end)
	return model.Appointment{
		Branch:    branch,
		Date:      day,
		StartTime: s.On(day),
		EndTime:   e.On(day),
		Status:    status,
	}
}

func starts(slots []TimeSlot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func TestAvailableSlots_Basic(t *testing.T) {
	loc := time.UTC
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, loc)
	windowStart := time.Date(2026, 1, 28, 9, 0, 0, 0, loc)
	windowEnd := time.Date(2026, 1, 28, 10, 0, 0, 0, loc)

	busy := []Interval{
		{Start: day.Add(9*time.Hour + 15*time.Minute), End: day.Add(9*time.Hour + 45*time.Minute)},
	}

	slots := AvailableSlots(windowStart, windowEnd, 15*time.Minute, 15*time.Minute, busy)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(9 * time.Hour)) {
		t.Fatalf("expected first slot 09:00, got %s", slots[0].Format(time.RFC3339))
	}
	if !slots[1].Equal(day.Add(9*time.Hour + 45*time.Minute)) {
		t.Fatalf("expected second slot 09:45, got %s", slots[1].Format(time.RFC3339))
	}
}

func TestComputeAvailableSlots_Idempotent(t *testing.T) {
	svc := model.Service{ID: 1, DurationMinutes: 60}
	existing := []model.Appointment{booking(model.BranchMatina, model.StatusPending, "10:00", "11:00")}

	a, err := ComputeAvailableSlots(testHours(), testDay(), model.BranchMatina, svc, existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := ComputeAvailableSlots(testHours(), testDay(), model.BranchMatina, svc, existing)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("results differ:\n%v\n%v", a, b)
	}
}

func TestComputeAvailableSlots_ExcludesConflicts(t *testing.T) {
	svc := model.Service{ID: 1, DurationMinutes: 60}
	existing := []model.Appointment{booking(model.BranchMatina, model.StatusConfirmed, "10:00", "11:00")}

	slots, err := ComputeAvailableSlots(testHours(), testDay(), model.BranchMatina, svc, existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := starts(slots)
	if contains(got, "10:00") || contains(got, "09:30") || contains(got, "10:30") {
		t.Fatalf("overlapping starts surfaced: %v", got)
	}
	if !contains(got, "09:00") || !contains(got, "11:00") {
		t.Fatalf("adjacent starts missing: %v", got)
	}
}

func TestComputeAvailableSlots_MayOverlapIgnoresConflicts(t *testing.T) {
	svc := model.Service{ID: 2, DurationMinutes: 60, MayOverlap: true}
	existing := []model.Appointment{
		booking(model.BranchMatina, model.StatusPending, "08:00", "12:00"),
		booking(model.BranchMatina, model.StatusConfirmed, "12:00", "17:00"),
	}
	slots, err := ComputeAvailableSlots(testHours(), testDay(), model.BranchMatina, svc, existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 08:00 through 16:00 in 30 minute steps.
	if len(slots) != 17 {
		t.Fatalf("expected 17 slots, got %d: %v", len(slots), starts(slots))
	}
}

func TestComputeAvailableSlots_Boundaries(t *testing.T) {
	slots, err := ComputeAvailableSlots(testHours(), testDay(), model.BranchToril, model.Service{ID: 1, DurationMinutes: 60}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := slots[len(slots)-1]
	if last.Start != "16:00" || last.End != "17:00" {
		t.Fatalf("expected last slot 16:00-17:00, got %+v", last)
	}
	if slots[0].Display != "8:00 AM - 9:00 AM" {
		t.Fatalf("unexpected display %q", slots[0].Display)
	}

	slots, _ = ComputeAvailableSlots(testHours(), testDay(), model.BranchToril, model.Service{ID: 1, DurationMinutes: 90}, nil)
	if last := slots[len(slots)-1]; last.Start != "15:30" {
		t.Fatalf("expected last start 15:30, got %s", last.Start)
	}
}

func TestComputeAvailableSlots_NonBlockingAppointments(t *testing.T) {
	svc := model.Service{ID: 1, DurationMinutes: 60}
	overlapping := booking(model.BranchMatina, model.StatusPending, "10:00", "11:00")
	overlapping.MayOverlap = true
	otherDay := booking(model.BranchMatina, model.StatusPending, "10:00", "11:00")
	otherDay.Date = testDay().AddDate(0, 0, 1)

	existing := []model.Appointment{
		booking(model.BranchToril, model.StatusPending, "10:00", "11:00"),
		booking(model.BranchMatina, model.StatusCancelled, "10:00", "11:00"),
		booking(model.BranchMatina, model.StatusCompleted, "10:00", "11:00"),
		overlapping,
		otherDay,
	}
	slots, err := ComputeAvailableSlots(testHours(), testDay(), model.BranchMatina, svc, existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !contains(starts(slots), "10:00") {
		t.Fatalf("10:00 should be free: %v", starts(slots))
	}
}

func TestComputeAvailableSlots_FullyBookedIsEmpty(t *testing.T) {
	existing := []model.Appointment{booking(model.BranchMatina, model.StatusPending, "08:00", "17:00")}
	slots, err := ComputeAvailableSlots(testHours(), testDay(), model.BranchMatina, model.Service{ID: 1, DurationMinutes: 30}, existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %v", starts(slots))
	}
}

func TestComputeAvailableSlots_LongerThanBusinessDay(t *testing.T) {
	slots, err := ComputeAvailableSlots(testHours(), testDay(), model.BranchMatina, model.Service{ID: 1, DurationMinutes: 600}, nil)
	if err != nil {
		t.Fatalf("a service that cannot fit is not invalid input: %v", err)
	}
	if slots == nil || len(slots) != 0 {
		t.Fatalf("expected an empty, non-nil slot list, got %v", starts(slots))
	}
}

func TestComputeAvailableSlots_Validation(t *testing.T) {
	cases := []struct {
		name   string
		date   time.Time
		branch model.Branch
		svc    model.Service
	}{
		{"zero date", time.Time{}, model.BranchMatina, model.Service{ID: 1, DurationMinutes: 30}},
		{"bad branch", testDay(), "Davao", model.Service{ID: 1, DurationMinutes: 30}},
		{"missing service", testDay(), model.BranchMatina, model.Service{DurationMinutes: 30}},
		{"zero duration", testDay(), model.BranchMatina, model.Service{ID: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeAvailableSlots(testHours(), tc.date, tc.branch, tc.svc, nil)
			if !errors.Is(err, model.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	cases := map[string]string{"9:00": "09:00", "09:00:00": "09:00", "2:30 PM": "14:30", "12:00 am": "00:00", "16:30": "16:30"}
	for in, want := range cases {
		c, err := ParseClock(in)
		if err != nil {
			t.Fatalf("ParseClock(%q): %v", in, err)
		}
		if c.String() != want {
			t.Fatalf("ParseClock(%q) = %s, want %s", in, c, want)
		}
	}
	if _, err := ParseClock("25:00"); err == nil {
		t.Fatal("expected error for 25:00")
	}
}

func TestWithinBusinessHours(t *testing.T) {
	h := testHours()
	day := testDay()
	if !h.WithinBusinessHours(day.Add(16*time.Hour), day.Add(17*time.Hour)) {
		t.Fatal("16:00-17:00 should fit")
	}
	if h.WithinBusinessHours(day.Add(16*time.Hour+30*time.Minute), day.Add(17*time.Hour+30*time.Minute)) {
		t.Fatal("16:30-17:30 should not fit")
	}
	if h.WithinBusinessHours(day.Add(7*time.Hour), day.Add(8*time.Hour)) {
		t.Fatal("07:00 should not fit")
	}
}
