package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AppointmentStatus tracks the lifecycle of a booking.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentNoShow    AppointmentStatus = "no_show"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentScheduled, AppointmentCompleted, AppointmentCancelled, AppointmentNoShow:
		return true
	}
	return false
}

type AppointmentType string

const (
	AppointmentOneOnOne      AppointmentType = "one_on_one"
	AppointmentGroupClass    AppointmentType = "group_class"
	AppointmentAssessment    AppointmentType = "assessment"
	AppointmentConsultation  AppointmentType = "consultation"
	AppointmentOnlineSession AppointmentType = "online_session"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case AppointmentOneOnOne, AppointmentGroupClass, AppointmentAssessment, AppointmentConsultation, AppointmentOnlineSession:
		return true
	}
	return false
}

// Appointment is a booked block of time on a trainer's calendar.
// The interval is half-open: [StartDatetime, EndDatetime).
// Appointments are never deleted; cancellation is a status.
type Appointment struct {
	ID               string            `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	TrainerID        string            `gorm:"type:varchar(36);not null;index:idx_appointments_trainer_start,priority:1" bson:"trainerId" json:"trainerId"`
	ClientID         string            `gorm:"type:varchar(36);not null;index" bson:"clientId" json:"clientId"`
	Title            string            `gorm:"not null" bson:"title" json:"title"`
	Description      string            `bson:"description,omitempty" json:"description,omitempty"`
	AppointmentType  AppointmentType   `gorm:"type:varchar(32);not null" bson:"appointmentType" json:"appointmentType"`
	StartDatetime    time.Time         `gorm:"not null;index:idx_appointments_trainer_start,priority:2" bson:"startDatetime" json:"startDatetime"`
	EndDatetime      time.Time         `gorm:"not null" bson:"endDatetime" json:"endDatetime"`
	DurationMinutes  int               `gorm:"not null" bson:"durationMinutes" json:"durationMinutes"`
	Status           AppointmentStatus `gorm:"type:varchar(16);not null;index" bson:"status" json:"status"`
	Location         string            `bson:"location,omitempty" json:"location,omitempty"`
	IsOnline         bool              `gorm:"not null;default:false" bson:"isOnline" json:"isOnline"`
	MeetingLink      string            `bson:"meetingLink,omitempty" json:"meetingLink,omitempty"`
	Notes            string            `bson:"notes,omitempty" json:"notes,omitempty"`
	CancelledAt      *time.Time        `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	CancelReason     string            `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	LateCancellation bool              `gorm:"not null;default:false" bson:"lateCancellation" json:"lateCancellation"`
	CreatedAt        time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time         `bson:"updatedAt" json:"updatedAt"`
}

// Overlaps reports whether two half-open intervals intersect.
// Intervals that only touch at a boundary do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Blocks reports whether the appointment occupies the trainer's calendar.
func (a *Appointment) Blocks() bool {
	return a.Status != AppointmentCancelled
}

// SetInterval normalizes the times to UTC seconds and derives the duration.
func (a *Appointment) SetInterval(start, end time.Time) {
	a.StartDatetime = start.UTC().Truncate(time.Second)
	a.EndDatetime = end.UTC().Truncate(time.Second)
	a.DurationMinutes = int(a.EndDatetime.Sub(a.StartDatetime) / time.Minute)
}

// AvailabilitySlot is a recurring weekly window in which a trainer accepts bookings.
// DayOfWeek follows time.Weekday (0 = Sunday). Times are HH:MM wall clock.
type AvailabilitySlot struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	TrainerID   string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_availability_slot,priority:1" bson:"trainerId" json:"trainerId"`
	DayOfWeek   int       `gorm:"not null;uniqueIndex:ux_availability_slot,priority:2" bson:"dayOfWeek" json:"dayOfWeek"`
	StartTime   string    `gorm:"type:varchar(5);not null;uniqueIndex:ux_availability_slot,priority:3" bson:"startTime" json:"startTime"`
	EndTime     string    `gorm:"type:varchar(5);not null" bson:"endTime" json:"endTime"`
	IsAvailable bool      `gorm:"not null" bson:"isAvailable" json:"isAvailable"`
	Location    string    `bson:"location,omitempty" json:"location,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ParseClock converts "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok || len(h) != 2 || len(m) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	mm, err := strconv.Atoi(m)
	if err != nil || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hh*60 + mm, nil
}

// Covers reports whether the slot contains the local interval [start, end).
// Both instants must already be in the trainer's timezone and on the same day.
func (s *AvailabilitySlot) Covers(start, end time.Time) bool {
	if !s.IsAvailable || int(start.Weekday()) != s.DayOfWeek {
		return false
	}
	if start.Year() != end.Year() || start.YearDay() != end.YearDay() {
		return false
	}
	from, err := ParseClock(s.StartTime)
	if err != nil {
		return false
	}
	to, err := ParseClock(s.EndTime)
	if err != nil {
		return false
	}
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()
	return startMin >= from && endMin <= to
}
