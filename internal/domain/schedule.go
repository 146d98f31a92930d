package domain

import (
	"sort"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// CalendarDate drops the clock part of t, keeping the date as seen in UTC.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddWeeks moves a calendar date forward by whole weeks.
// AddDate keeps the day arithmetic on calendar days, so DST never shifts the result.
func AddWeeks(date time.Time, weeks int) time.Time {
	return CalendarDate(date).AddDate(0, 0, weeks*7)
}

// AssignmentEndDate is startDate + durationWeeks*7 calendar days.
func AssignmentEndDate(startDate time.Time, durationWeeks int) time.Time {
	return AddWeeks(startDate, durationWeeks)
}

// WeekSchedule is the calendar window of one program week inside an assignment.
type WeekSchedule struct {
	WeekNumber int       `json:"weekNumber"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"` // inclusive, last day of the week
	IsDeload   bool      `json:"isDeload"`
}

// ScheduleWeeks lays the program's weeks onto the calendar starting at startDate.
// Weeks missing from the template are scheduled as regular weeks.
func ScheduleWeeks(startDate time.Time, durationWeeks int, weeks []ProgramWeek) []WeekSchedule {
	deload := make(map[int]bool, len(weeks))
	for _, w := range weeks {
		if w.IsDeload {
			deload[w.WeekNumber] = true
		}
	}

	out := make([]WeekSchedule, 0, durationWeeks)
	for i := 0; i < durationWeeks; i++ {
		start := AddWeeks(startDate, i)
		out = append(out, WeekSchedule{
			WeekNumber: i + 1,
			StartDate:  start,
			EndDate:    start.AddDate(0, 0, 6),
			IsDeload:   deload[i+1],
		})
	}
	return out
}

// SortProgramWeeks orders weeks by their number.
func SortProgramWeeks(weeks []ProgramWeek) {
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].WeekNumber < weeks[j].WeekNumber })
}
