package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/repository"
)

type appointmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAppointmentRepo(db *gorm.DB, baseLog *logger.Logger) repository.AppointmentRepository {
	return &appointmentRepo{db: db, log: baseLog.With("repo", "AppointmentRepo")}
}

func (r *appointmentRepo) Create(ctx context.Context, appt *domain.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	return translateError(conn(ctx, r.db).Create(appt).Error)
}

func (r *appointmentRepo) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	var appt domain.Appointment
	if err := conn(ctx, r.db).Where("id = ?", id).First(&appt).Error; err != nil {
		return nil, translateError(err)
	}
	return &appt, nil
}

func (r *appointmentRepo) Update(ctx context.Context, appt *domain.Appointment) error {
	appt.UpdatedAt = time.Now().UTC()
	res := conn(ctx, r.db).Model(appt).Select("*").Omit("id", "created_at").Updates(appt)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *appointmentRepo) FindConflict(ctx context.Context, trainerID string, start, end time.Time, excludeID string) (*domain.Appointment, error) {
	q := conn(ctx, r.db).
		Where("trainer_id = ? AND status <> ?", trainerID, domain.AppointmentCancelled).
		Where("start_datetime < ? AND end_datetime > ?", end.UTC(), start.UTC())
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}

	var appts []domain.Appointment
	if err := q.Order("start_datetime ASC").Limit(1).Find(&appts).Error; err != nil {
		return nil, translateError(err)
	}
	if len(appts) == 0 {
		return nil, nil
	}
	r.log.Debug("appointment conflict", "trainer_id", trainerID, "conflicting_id", appts[0].ID)
	return &appts[0], nil
}

func (r *appointmentRepo) List(ctx context.Context, f repository.AppointmentFilter) ([]domain.Appointment, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if f.TrainerID != "" {
			db = db.Where("trainer_id = ?", f.TrainerID)
		}
		if f.ClientID != "" {
			db = db.Where("client_id = ?", f.ClientID)
		}
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		if f.From != nil {
			db = db.Where("start_datetime >= ?", f.From.UTC())
		}
		if f.To != nil {
			db = db.Where("start_datetime < ?", f.To.UTC())
		}
		return db
	}

	var total int64
	if err := conn(ctx, r.db).Model(&domain.Appointment{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var appts []domain.Appointment
	err := conn(ctx, r.db).Scopes(scope, paginate(f.Page)).
		Order("start_datetime ASC").
		Find(&appts).Error
	if err != nil {
		return nil, 0, translateError(err)
	}
	return appts, total, nil
}

func paginate(p repository.Page) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.Limit > 0 {
			db = db.Limit(p.Limit)
		}
		if p.Offset > 0 {
			db = db.Offset(p.Offset)
		}
		return db
	}
}
