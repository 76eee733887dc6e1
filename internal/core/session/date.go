package session

import (
	"fmt"
	"time"

	"focusflow/internal/core/model"
)

// StatisticalDate shifts start back one calendar day when its local hour is
// earlier than crossoverHour. The result keeps the start's wall-clock time.
func StatisticalDate(start time.Time, crossoverHour int) time.Time {
	if start.Hour() < crossoverHour {
		return start.AddDate(0, 0, -1)
	}
	return start
}

// DateID formats a statistical date as YYYY-MM-DD.
func DateID(date time.Time) string {
	return date.Format("2006-01-02")
}

// WeekNumber returns the week of the year for date, counting weeks that start
// on firstDay and treating the partial first week as week 1.
func WeekNumber(date time.Time, firstDay model.FirstDayOfWeek) int {
	jan1 := time.Date(date.Year(), time.January, 1, 0, 0, 0, 0, date.Location())
	offset := int(jan1.Weekday())
	if firstDay == model.WeekStartsMonday {
		offset = (offset + 6) % 7
	}
	daysSinceStart := date.YearDay() - 1
	return (daysSinceStart + 1 + offset + 6) / 7
}

// Title builds the session label, e.g. 20240309W10Sat.
func Title(date time.Time, firstDay model.FirstDayOfWeek) string {
	return fmt.Sprintf("%04d%02d%02dW%02d%s",
		date.Year(), int(date.Month()), date.Day(),
		WeekNumber(date, firstDay),
		date.Weekday().String()[:3])
}
