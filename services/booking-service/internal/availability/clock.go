package availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/chonkyweb/petcare/services/booking-service/internal/model"
)

// Clock is a wall-clock time of day, minute precision.
type Clock struct {
	Hour   int
	Minute int
}

var clockLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM", "03:04 PM"}

// ParseClock accepts "9:00", "09:00", "09:00:00" and "2:30 PM" forms.
func ParseClock(raw string) (Clock, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return Clock{}, model.Invalid("time", fmt.Sprintf("unrecognised time %q", raw))
}

func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

// String renders the canonical zero-padded 24h form.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// On places the clock on the calendar day of date, in date's location.
func (c Clock) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, date.Location())
}
