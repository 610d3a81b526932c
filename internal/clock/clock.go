// Package clock formats the dashboard's date and time line.
package clock

import (
	"time"

	"github.com/i474232898/homie/internal/settings"
)

const (
	dateLayout   = "Monday, January 2"
	time12Layout = "03:04"
	time24Layout = "15:04"
)

type DateTime struct {
	Time string `json:"time"`
	Date string `json:"date"`
}

// Format renders now for display. The 12-hour form carries no AM/PM marker.
func Format(now time.Time, f settings.ClockFormat) DateTime {
	layout := time24Layout
	if f == settings.Clock12 {
		layout = time12Layout
	}
	return DateTime{
		Time: now.Format(layout),
		Date: now.Format(dateLayout),
	}
}
