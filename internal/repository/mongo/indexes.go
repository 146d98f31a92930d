package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"alcyxob/trainer-core/internal/domain"
)

// EnsureIndexes creates the indexes every collection relies on, including the
// unique ones that back repository.ErrConflict.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		appointmentCollectionName: {
			{Keys: bson.D{{Key: "trainerId", Value: 1}, {Key: "startDatetime", Value: 1}}},
			{Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "startDatetime", Value: 1}}},
		},
		availabilityCollectionName: {
			{
				Keys:    bson.D{{Key: "trainerId", Value: 1}, {Key: "dayOfWeek", Value: 1}, {Key: "startTime", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		trainerClientCollectionName: {
			{
				Keys:    bson.D{{Key: "trainerId", Value: 1}, {Key: "clientId", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "clientId", Value: 1}}},
		},
		exerciseCollectionName:        {{Keys: bson.D{{Key: "trainerId", Value: 1}, {Key: "name", Value: 1}}}},
		programCollectionName:         {{Keys: bson.D{{Key: "trainerId", Value: 1}}}},
		programWeekCollectionName:     {{Keys: bson.D{{Key: "programId", Value: 1}, {Key: "weekNumber", Value: 1}}}},
		programWorkoutCollectionName:  {{Keys: bson.D{{Key: "programId", Value: 1}, {Key: "dayNumber", Value: 1}}}},
		workoutExerciseCollectionName: {{Keys: bson.D{{Key: "workoutId", Value: 1}, {Key: "orderIndex", Value: 1}}}},
		setConfigCollectionName:       {{Keys: bson.D{{Key: "workoutExerciseId", Value: 1}, {Key: "setNumber", Value: 1}}}},
		assignmentCollectionName: {
			{Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "startDate", Value: -1}}},
			{Keys: bson.D{{Key: "trainerId", Value: 1}, {Key: "startDate", Value: -1}}},
		},
		sessionCollectionName: {
			{
				Keys: bson.D{{Key: "clientId", Value: 1}},
				Options: options.Index().
					SetName("ux_workout_sessions_active_client").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": domain.SessionInProgress}),
			},
			{Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "actualStartTime", Value: -1}}},
		},
		exerciseLogCollectionName: {{Keys: bson.D{{Key: "sessionId", Value: 1}, {Key: "orderIndex", Value: 1}}}},
		setLogCollectionName: {
			{
				Keys:    bson.D{{Key: "exerciseLogId", Value: 1}, {Key: "setNumber", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "sessionId", Value: 1}}},
		},
		metricCollectionName: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "recordedAt", Value: -1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "exerciseId", Value: 1}, {Key: "metricType", Value: 1}, {Key: "value", Value: -1}}},
			{Keys: bson.D{{Key: "exerciseLogId", Value: 1}}},
		},
		personalBestCollectionName: {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "exerciseId", Value: 1}, {Key: "metricType", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "exerciseLogId", Value: 1}}},
		},
		trainingLoadCollectionName: {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "weekStartDate", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}

	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes for %s: %w", name, err)
		}
	}
	return nil
}
