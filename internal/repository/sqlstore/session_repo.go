package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/repository"
)

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) repository.SessionRepository {
	return &sessionRepo{db: db, log: baseLog.With("repo", "SessionRepo")}
}

func (r *sessionRepo) Create(ctx context.Context, session *domain.WorkoutSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	err := translateError(conn(ctx, r.db).Create(session).Error)
	if err != nil {
		r.log.Debug("create session rejected", "client_id", session.ClientID, "error", err)
	}
	return err
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*domain.WorkoutSession, error) {
	var session domain.WorkoutSession
	if err := conn(ctx, r.db).Where("id = ?", id).First(&session).Error; err != nil {
		return nil, translateError(err)
	}
	return &session, nil
}

func (r *sessionRepo) GetActiveByClient(ctx context.Context, clientID string) (*domain.WorkoutSession, error) {
	var session domain.WorkoutSession
	err := conn(ctx, r.db).
		Where("client_id = ? AND status = ?", clientID, domain.SessionInProgress).
		Order("actual_start_time DESC").
		First(&session).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &session, nil
}

func (r *sessionRepo) Update(ctx context.Context, session *domain.WorkoutSession) error {
	session.UpdatedAt = time.Now().UTC()
	res := conn(ctx, r.db).Model(session).
		Select("*").
		Omit("id", "client_id", "created_at").
		Updates(session)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) IncrementCompletedSets(ctx context.Context, id string, delta int) error {
	res := conn(ctx, r.db).Model(&domain.WorkoutSession{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"completed_sets": gorm.Expr("completed_sets + ?", delta),
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) List(ctx context.Context, f repository.SessionFilter) ([]domain.WorkoutSession, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if f.ClientID != "" {
			db = db.Where("client_id = ?", f.ClientID)
		}
		if f.TrainerID != "" {
			db = db.Where("trainer_id = ?", f.TrainerID)
		}
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		if f.From != nil {
			db = db.Where("actual_start_time >= ?", f.From.UTC())
		}
		if f.To != nil {
			db = db.Where("actual_start_time < ?", f.To.UTC())
		}
		return db
	}

	var total int64
	if err := conn(ctx, r.db).Model(&domain.WorkoutSession{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}
	var sessions []domain.WorkoutSession
	err := conn(ctx, r.db).Scopes(scope, paginate(f.Page)).Order("actual_start_time DESC").Find(&sessions).Error
	if err != nil {
		return nil, 0, translateError(err)
	}
	return sessions, total, nil
}

func (r *sessionRepo) CountCompletedSessionSets(ctx context.Context, clientID string, from, to time.Time) (int, error) {
	var n int64
	err := conn(ctx, r.db).Table("set_logs").
		Joins("JOIN workout_sessions ON workout_sessions.id = set_logs.session_id").
		Where("workout_sessions.client_id = ? AND workout_sessions.status = ?", clientID, domain.SessionCompleted).
		Where("workout_sessions.actual_start_time >= ? AND workout_sessions.actual_start_time < ?", from.UTC(), to.UTC()).
		Count(&n).Error
	return int(n), translateError(err)
}

type exerciseLogRepo struct {
	db *gorm.DB
}

func NewExerciseLogRepo(db *gorm.DB) repository.ExerciseLogRepository {
	return &exerciseLogRepo{db: db}
}

func (r *exerciseLogRepo) CreateMany(ctx context.Context, logs []domain.ExerciseLog) error {
	if len(logs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range logs {
		if logs[i].ID == "" {
			logs[i].ID = uuid.NewString()
		}
		logs[i].CreatedAt = now
		logs[i].UpdatedAt = now
	}
	return translateError(conn(ctx, r.db).Create(&logs).Error)
}

func (r *exerciseLogRepo) GetByID(ctx context.Context, id string) (*domain.ExerciseLog, error) {
	var log domain.ExerciseLog
	if err := conn(ctx, r.db).Where("id = ?", id).First(&log).Error; err != nil {
		return nil, translateError(err)
	}
	return &log, nil
}

func (r *exerciseLogRepo) ListBySession(ctx context.Context, sessionID string) ([]domain.ExerciseLog, error) {
	var logs []domain.ExerciseLog
	err := conn(ctx, r.db).Where("session_id = ?", sessionID).Order("order_index ASC").Find(&logs).Error
	return logs, translateError(err)
}

func (r *exerciseLogRepo) Update(ctx context.Context, log *domain.ExerciseLog) error {
	log.UpdatedAt = time.Now().UTC()
	res := conn(ctx, r.db).Model(log).
		Select("skipped", "personal_best", "total_volume", "completed_at", "updated_at").
		Updates(log)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *exerciseLogRepo) MaxOrderIndex(ctx context.Context, sessionID string) (int, error) {
	var maxIdx sql.NullInt64
	err := conn(ctx, r.db).Model(&domain.ExerciseLog{}).
		Where("session_id = ?", sessionID).
		Select("MAX(order_index)").
		Row().Scan(&maxIdx)
	if err != nil {
		return 0, translateError(err)
	}
	if !maxIdx.Valid {
		return -1, nil
	}
	return int(maxIdx.Int64), nil
}

type setLogRepo struct {
	db *gorm.DB
}

func NewSetLogRepo(db *gorm.DB) repository.SetLogRepository {
	return &setLogRepo{db: db}
}

func (r *setLogRepo) Create(ctx context.Context, set *domain.SetLog) error {
	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	if set.LoggedAt.IsZero() {
		set.LoggedAt = time.Now().UTC()
	}
	return translateError(conn(ctx, r.db).Create(set).Error)
}

func (r *setLogRepo) ListByExerciseLog(ctx context.Context, exerciseLogID string) ([]domain.SetLog, error) {
	var sets []domain.SetLog
	err := conn(ctx, r.db).Where("exercise_log_id = ?", exerciseLogID).Order("set_number ASC").Find(&sets).Error
	return sets, translateError(err)
}

func (r *setLogRepo) ListBySession(ctx context.Context, sessionID string) ([]domain.SetLog, error) {
	var sets []domain.SetLog
	err := conn(ctx, r.db).Where("session_id = ?", sessionID).
		Order("exercise_log_id ASC, set_number ASC").
		Find(&sets).Error
	return sets, translateError(err)
}
