package sqlstore

import (
	"gorm.io/gorm"

	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/repository"
)

// NewRepositories wires every relational repository onto one connection.
func NewRepositories(db *gorm.DB, log *logger.Logger) *repository.Repositories {
	return &repository.Repositories{
		Transactor:    NewTransactor(db),
		Appointments:  NewAppointmentRepo(db, log),
		Availability:  NewAvailabilityRepo(db),
		Clients:       NewTrainerClientRepo(db),
		Exercises:     NewExerciseRepo(db),
		Programs:      NewProgramRepo(db),
		Assignments:   NewAssignmentRepo(db),
		Sessions:      NewSessionRepo(db, log),
		ExerciseLogs:  NewExerciseLogRepo(db),
		SetLogs:       NewSetLogRepo(db),
		Metrics:       NewMetricRepo(db),
		PersonalBests: NewPersonalBestRepo(db),
		TrainingLoads: NewTrainingLoadRepo(db),
	}
}
