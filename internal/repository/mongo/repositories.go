package mongo

import (
	"go.mongodb.org/mongo-driver/mongo"

	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/repository"
)

// NewRepositories wires every MongoDB repository onto one database.
func NewRepositories(client *mongo.Client, db *mongo.Database, log *logger.Logger) *repository.Repositories {
	return &repository.Repositories{
		Transactor:    NewTransactor(client),
		Appointments:  NewMongoAppointmentRepository(db, log),
		Availability:  NewMongoAvailabilityRepository(db),
		Clients:       NewMongoTrainerClientRepository(db),
		Exercises:     NewMongoExerciseRepository(db),
		Programs:      NewMongoProgramRepository(db),
		Assignments:   NewMongoAssignmentRepository(db),
		Sessions:      NewMongoSessionRepository(db, log),
		ExerciseLogs:  NewMongoExerciseLogRepository(db),
		SetLogs:       NewMongoSetLogRepository(db),
		Metrics:       NewMongoMetricRepository(db),
		PersonalBests: NewMongoPersonalBestRepository(db),
		TrainingLoads: NewMongoTrainingLoadRepository(db),
	}
}
