package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/metrics"
	"alcyxob/trainer-core/internal/repository"
	"alcyxob/trainer-core/internal/telemetry"
)

// --- Error Definitions ---
var (
	ErrAppointmentNotFound      = newError(ErrNotFound, "appointment not found")
	ErrTimeSlotConflict         = newError(ErrConflict, "Time slot conflicts with an existing appointment")
	ErrOutsideAvailability      = newError(ErrInvalidInput, "Time is outside your availability window")
	ErrAppointmentCancelled     = newError(ErrConflict, "cancelled appointments can not be changed")
	ErrAppointmentTitleRequired = newError(ErrInvalidInput, "appointment title is required")
	ErrInvalidAppointmentType   = newError(ErrInvalidInput, "invalid appointment type")
	ErrInvalidAppointmentStatus = newError(ErrInvalidInput, "invalid appointment status")
	ErrUseCancel                = newError(ErrInvalidInput, "use the cancel operation to cancel an appointment")
	ErrSlotNotFound             = newError(ErrNotFound, "availability slot not found")
	ErrInvalidSlot              = newError(ErrInvalidInput, "availability needs a weekday 0-6 and HH:MM start before end")
)

// --- Service Interface ---
type SchedulingService interface {
	CreateAppointment(ctx context.Context, trainerID string, in AppointmentInput) (*domain.Appointment, error)
	GetAppointment(ctx context.Context, caller domain.Principal, id string) (*domain.Appointment, error)
	ListAppointments(ctx context.Context, caller domain.Principal, q AppointmentQuery) ([]domain.Appointment, int64, error)
	UpdateAppointment(ctx context.Context, trainerID, id string, in AppointmentUpdate) (*domain.Appointment, error)
	CancelAppointment(ctx context.Context, caller domain.Principal, id, reason string) (*domain.Appointment, error)
	CheckConflict(ctx context.Context, trainerID string, start, end time.Time, excludeID string) (*domain.Appointment, error)

	SetAvailability(ctx context.Context, trainerID string, in AvailabilityInput) (*domain.AvailabilitySlot, error)
	ListAvailability(ctx context.Context, trainerID string) ([]domain.AvailabilitySlot, error)
	DeleteAvailability(ctx context.Context, trainerID, slotID string) error
}

type AppointmentInput struct {
	ClientID        string
	Title           string
	Description     string
	AppointmentType domain.AppointmentType
	Start           time.Time
	End             time.Time
	Location        string
	IsOnline        bool
	MeetingLink     string
	Notes           string
}

// AppointmentUpdate carries the fields to change; nil means unchanged.
// Start and End must be given together.
type AppointmentUpdate struct {
	Title           *string
	Description     *string
	AppointmentType *domain.AppointmentType
	Start           *time.Time
	End             *time.Time
	Status          *domain.AppointmentStatus
	Location        *string
	IsOnline        *bool
	MeetingLink     *string
	Notes           *string
}

type AppointmentQuery struct {
	ClientID string
	Status   domain.AppointmentStatus
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

type AvailabilityInput struct {
	DayOfWeek   int
	StartTime   string
	EndTime     string
	IsAvailable *bool
	Location    string
}

type SchedulingOptions struct {
	// Location is the trainer wall clock used to match availability slots.
	Location            *time.Location
	RequireAvailability bool
	LateCancelWindow    time.Duration
	Clock               Clock
}

// --- Service Implementation ---

type schedulingService struct {
	tx               repository.Transactor
	appointmentRepo  repository.AppointmentRepository
	availabilityRepo repository.AvailabilityRepository
	clientRepo       repository.TrainerClientRepository
	metrics          *metrics.Manager
	opts             SchedulingOptions
	now              Clock
	log              *logger.Logger
}

func NewSchedulingService(repos *repository.Repositories, m *metrics.Manager, opts SchedulingOptions, baseLog *logger.Logger) SchedulingService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &schedulingService{
		tx:               repos.Transactor,
		appointmentRepo:  repos.Appointments,
		availabilityRepo: repos.Availability,
		clientRepo:       repos.Clients,
		metrics:          m,
		opts:             opts,
		now:              clockOrSystem(opts.Clock),
		log:              baseLog.With("service", "SchedulingService"),
	}
}

// CreateAppointment books a slot on the trainer's calendar for a managed client.
func (s *schedulingService) CreateAppointment(ctx context.Context, trainerID string, in AppointmentInput) (*domain.Appointment, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "SchedulingService.CreateAppointment")
	defer span.End()
	span.SetAttributes(attribute.String("trainer.id", trainerID), attribute.String("client.id", in.ClientID))

	// 1. Validate Input
	if strings.TrimSpace(in.Title) == "" {
		return nil, ErrAppointmentTitleRequired
	}
	if in.AppointmentType == "" {
		in.AppointmentType = domain.AppointmentOneOnOne
	}
	if !in.AppointmentType.Valid() {
		return nil, ErrInvalidAppointmentType
	}
	if in.ClientID == "" {
		return nil, ErrClientRequired
	}
	if !in.Start.Before(in.End) {
		return nil, ErrInvalidDateRange
	}

	// 2. Only managed clients can be booked
	if err := requireActiveRelation(ctx, s.clientRepo, trainerID, in.ClientID); err != nil {
		return nil, err
	}

	appt := &domain.Appointment{
		TrainerID:       trainerID,
		ClientID:        in.ClientID,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		AppointmentType: in.AppointmentType,
		Status:          domain.AppointmentScheduled,
		Location:        in.Location,
		IsOnline:        in.IsOnline,
		MeetingLink:     in.MeetingLink,
		Notes:           in.Notes,
	}
	appt.SetInterval(in.Start, in.End)

	// 3. Availability window
	if err := s.checkAvailability(ctx, trainerID, appt.StartDatetime, appt.EndDatetime); err != nil {
		return nil, err
	}

	// 4. Conflict check and insert; the store constraint catches racing bookings
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.rejectConflict(ctx, appt); err != nil {
			return err
		}
		return s.appointmentRepo.Create(ctx, appt)
	})
	if err != nil {
		return nil, s.mapWriteError("create", appt, err)
	}

	s.metrics.CounterAppointmentsBooked.Inc()
	s.log.Info("appointment booked", "appointment_id", appt.ID, "trainer_id", trainerID, "client_id", appt.ClientID)
	return appt, nil
}

func (s *schedulingService) GetAppointment(ctx context.Context, caller domain.Principal, id string) (*domain.Appointment, error) {
	appt, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	if !canSeeAppointment(caller, appt) {
		return nil, ErrAppointmentNotFound
	}
	return appt, nil
}

func canSeeAppointment(caller domain.Principal, appt *domain.Appointment) bool {
	switch caller.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleTrainer:
		return appt.TrainerID == caller.UserID
	case domain.RoleClient:
		return appt.ClientID == caller.UserID
	}
	return false
}

// ListAppointments scopes the listing to the caller: trainers see their calendar,
// clients see their own bookings.
func (s *schedulingService) ListAppointments(ctx context.Context, caller domain.Principal, q AppointmentQuery) ([]domain.Appointment, int64, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, 0, ErrInvalidAppointmentStatus
	}
	if q.From != nil && q.To != nil && !q.From.Before(*q.To) {
		return nil, 0, ErrInvalidDateRange
	}
	limit, offset, err := normalizePage(q.Limit, q.Offset)
	if err != nil {
		return nil, 0, err
	}

	filter := repository.AppointmentFilter{
		Status: q.Status,
		From:   q.From,
		To:     q.To,
		Page:   repository.Page{Limit: limit, Offset: offset},
	}
	switch caller.Role {
	case domain.RoleTrainer:
		filter.TrainerID = caller.UserID
		filter.ClientID = q.ClientID
	case domain.RoleClient:
		filter.ClientID = caller.UserID
	case domain.RoleAdmin:
		filter.ClientID = q.ClientID
	default:
		return nil, 0, ErrForbidden
	}
	return s.appointmentRepo.List(ctx, filter)
}

// UpdateAppointment edits details and reschedules. The appointment never
// conflicts with its own previous slot.
func (s *schedulingService) UpdateAppointment(ctx context.Context, trainerID, id string, in AppointmentUpdate) (*domain.Appointment, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "SchedulingService.UpdateAppointment")
	defer span.End()
	span.SetAttributes(attribute.String("trainer.id", trainerID), attribute.String("appointment.id", id))

	appt, err := s.GetAppointment(ctx, domain.Principal{UserID: trainerID, Role: domain.RoleTrainer}, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == domain.AppointmentCancelled {
		return nil, ErrAppointmentCancelled
	}

	// 1. Apply field changes
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, ErrAppointmentTitleRequired
		}
		appt.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		appt.Description = *in.Description
	}
	if in.AppointmentType != nil {
		if !in.AppointmentType.Valid() {
			return nil, ErrInvalidAppointmentType
		}
		appt.AppointmentType = *in.AppointmentType
	}
	if in.Status != nil {
		switch {
		case !in.Status.Valid():
			return nil, ErrInvalidAppointmentStatus
		case *in.Status == domain.AppointmentCancelled:
			return nil, ErrUseCancel
		}
		appt.Status = *in.Status
	}
	if in.Location != nil {
		appt.Location = *in.Location
	}
	if in.IsOnline != nil {
		appt.IsOnline = *in.IsOnline
	}
	if in.MeetingLink != nil {
		appt.MeetingLink = *in.MeetingLink
	}
	if in.Notes != nil {
		appt.Notes = *in.Notes
	}

	// 2. Reschedule
	moved := false
	if in.Start != nil || in.End != nil {
		if in.Start == nil || in.End == nil {
			return nil, newError(ErrInvalidInput, "start and end must be changed together")
		}
		if !in.Start.Before(*in.End) {
			return nil, ErrInvalidDateRange
		}
		appt.SetInterval(*in.Start, *in.End)
		moved = true
		if err := s.checkAvailability(ctx, trainerID, appt.StartDatetime, appt.EndDatetime); err != nil {
			return nil, err
		}
	}

	// 3. Persist
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if moved {
			if err := s.rejectConflict(ctx, appt); err != nil {
				return err
			}
		}
		return s.appointmentRepo.Update(ctx, appt)
	})
	if err != nil {
		return nil, s.mapWriteError("update", appt, err)
	}
	return appt, nil
}

// CancelAppointment is allowed to both parties. Cancelling twice returns the
// already cancelled appointment unchanged.
func (s *schedulingService) CancelAppointment(ctx context.Context, caller domain.Principal, id, reason string) (*domain.Appointment, error) {
	appt, err := s.GetAppointment(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == domain.AppointmentCancelled {
		return appt, nil
	}

	now := s.now()
	if strings.TrimSpace(reason) == "" {
		reason = fmt.Sprintf("Cancelled by %s", caller.Role)
	}
	appt.Status = domain.AppointmentCancelled
	appt.CancelledAt = &now
	appt.CancelReason = reason
	appt.LateCancellation = appt.StartDatetime.After(now) && appt.StartDatetime.Sub(now) < s.opts.LateCancelWindow

	if err := s.appointmentRepo.Update(ctx, appt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	s.log.Info("appointment cancelled", "appointment_id", appt.ID, "by", caller.Role, "late", appt.LateCancellation)
	return appt, nil
}

func (s *schedulingService) CheckConflict(ctx context.Context, trainerID string, start, end time.Time, excludeID string) (*domain.Appointment, error) {
	if !start.Before(end) {
		return nil, ErrInvalidDateRange
	}
	return s.appointmentRepo.FindConflict(ctx, trainerID, start, end, excludeID)
}

func (s *schedulingService) rejectConflict(ctx context.Context, appt *domain.Appointment) error {
	if !appt.Blocks() {
		return nil
	}
	clash, err := s.appointmentRepo.FindConflict(ctx, appt.TrainerID, appt.StartDatetime, appt.EndDatetime, appt.ID)
	if err != nil {
		return err
	}
	if clash != nil {
		return fmt.Errorf("overlaps appointment %s: %w", clash.ID, ErrTimeSlotConflict)
	}
	return nil
}

func (s *schedulingService) mapWriteError(op string, appt *domain.Appointment, err error) error {
	switch {
	case errors.Is(err, ErrTimeSlotConflict), errors.Is(err, repository.ErrConflict):
		s.metrics.CounterAppointmentConflict.Inc()
		s.log.Info("appointment rejected: time slot conflict", "op", op, "trainer_id", appt.TrainerID,
			"start", appt.StartDatetime, "end", appt.EndDatetime)
		return ErrTimeSlotConflict
	case errors.Is(err, repository.ErrNotFound):
		return ErrAppointmentNotFound
	}
	s.log.Error("appointment write failed", "op", op, "appointment_id", appt.ID, "trainer_id", appt.TrainerID, "error", err)
	return err
}

// checkAvailability requires a slot covering the interval when enforcement is on.
func (s *schedulingService) checkAvailability(ctx context.Context, trainerID string, start, end time.Time) error {
	if !s.opts.RequireAvailability {
		return nil
	}
	localStart, localEnd := start.In(s.opts.Location), end.In(s.opts.Location)
	slots, err := s.availabilityRepo.ListByTrainerDay(ctx, trainerID, int(localStart.Weekday()))
	if err != nil {
		return err
	}
	for i := range slots {
		if slots[i].Covers(localStart, localEnd) {
			return nil
		}
	}
	return ErrOutsideAvailability
}

func (s *schedulingService) SetAvailability(ctx context.Context, trainerID string, in AvailabilityInput) (*domain.AvailabilitySlot, error) {
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return nil, ErrInvalidSlot
	}
	from, err := domain.ParseClock(in.StartTime)
	if err != nil {
		return nil, ErrInvalidSlot
	}
	to, err := domain.ParseClock(in.EndTime)
	if err != nil || from >= to {
		return nil, ErrInvalidSlot
	}

	available := true
	if in.IsAvailable != nil {
		available = *in.IsAvailable
	}
	slot := &domain.AvailabilitySlot{
		TrainerID:   trainerID,
		DayOfWeek:   in.DayOfWeek,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		IsAvailable: available,
		Location:    in.Location,
	}
	if err := s.availabilityRepo.Upsert(ctx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}

func (s *schedulingService) ListAvailability(ctx context.Context, trainerID string) ([]domain.AvailabilitySlot, error) {
	return s.availabilityRepo.ListByTrainer(ctx, trainerID)
}

func (s *schedulingService) DeleteAvailability(ctx context.Context, trainerID, slotID string) error {
	slot, err := s.availabilityRepo.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSlotNotFound
		}
		return err
	}
	if slot.TrainerID != trainerID {
		return ErrSlotNotFound
	}
	if err := s.availabilityRepo.Delete(ctx, slotID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}
