package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/repository"
)

type mongoTrainerClientRepository struct {
	collection *mongo.Collection
}

func NewMongoTrainerClientRepository(db *mongo.Database) repository.TrainerClientRepository {
	return &mongoTrainerClientRepository{collection: db.Collection(trainerClientCollectionName)}
}

func (r *mongoTrainerClientRepository) Upsert(ctx context.Context, rel *domain.TrainerClient) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set":         bson.M{"status": rel.Status, "updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	key := bson.M{"trainerId": rel.TrainerID, "clientId": rel.ClientID}
	return translateError(r.collection.FindOneAndUpdate(ctx, key, update, opts).Decode(rel))
}

func (r *mongoTrainerClientRepository) Get(ctx context.Context, trainerID, clientID string) (*domain.TrainerClient, error) {
	return findOne[domain.TrainerClient](ctx, r.collection, bson.M{"trainerId": trainerID, "clientId": clientID})
}

func (r *mongoTrainerClientRepository) ListByTrainer(ctx context.Context, trainerID string, status domain.RelationStatus) ([]domain.TrainerClient, error) {
	filter := bson.M{"trainerId": trainerID}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	return findAll[domain.TrainerClient](ctx, r.collection, filter, opts)
}

type mongoExerciseRepository struct {
	collection *mongo.Collection
}

func NewMongoExerciseRepository(db *mongo.Database) repository.ExerciseRepository {
	return &mongoExerciseRepository{collection: db.Collection(exerciseCollectionName)}
}

func (r *mongoExerciseRepository) Create(ctx context.Context, exercise *domain.Exercise) error {
	if exercise.ID == "" {
		exercise.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	exercise.CreatedAt = now
	exercise.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, exercise)
	return translateError(err)
}

func (r *mongoExerciseRepository) GetByID(ctx context.Context, id string) (*domain.Exercise, error) {
	return findOne[domain.Exercise](ctx, r.collection, bson.M{"_id": id})
}

func (r *mongoExerciseRepository) ListByTrainer(ctx context.Context, trainerID string) ([]domain.Exercise, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return findAll[domain.Exercise](ctx, r.collection, bson.M{"trainerId": trainerID}, opts)
}

// mongoProgramRepository stores each level of a program template in its own
// collection, mirroring the relational layout.
type mongoProgramRepository struct {
	programs  *mongo.Collection
	weeks     *mongo.Collection
	workouts  *mongo.Collection
	exercises *mongo.Collection
	configs   *mongo.Collection
}

func NewMongoProgramRepository(db *mongo.Database) repository.ProgramRepository {
	return &mongoProgramRepository{
		programs:  db.Collection(programCollectionName),
		weeks:     db.Collection(programWeekCollectionName),
		workouts:  db.Collection(programWorkoutCollectionName),
		exercises: db.Collection(workoutExerciseCollectionName),
		configs:   db.Collection(setConfigCollectionName),
	}
}

func insertAll[T any](ctx context.Context, coll *mongo.Collection, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	docs := make([]interface{}, len(rows))
	for i := range rows {
		docs[i] = rows[i]
	}
	_, err := coll.InsertMany(ctx, docs)
	return translateError(err)
}

func (r *mongoProgramRepository) CreateTree(ctx context.Context, tree *domain.ProgramTree) error {
	now := time.Now().UTC()
	tree.Program.CreatedAt = now
	tree.Program.UpdatedAt = now
	if _, err := r.programs.InsertOne(ctx, tree.Program); err != nil {
		return translateError(err)
	}
	if err := insertAll(ctx, r.weeks, tree.Weeks); err != nil {
		return err
	}
	if err := insertAll(ctx, r.workouts, tree.Workouts); err != nil {
		return err
	}
	if err := insertAll(ctx, r.exercises, tree.Exercises); err != nil {
		return err
	}
	return insertAll(ctx, r.configs, tree.Configurations)
}

func (r *mongoProgramRepository) GetByID(ctx context.Context, id string) (*domain.Program, error) {
	return findOne[domain.Program](ctx, r.programs, bson.M{"_id": id})
}

func (r *mongoProgramRepository) GetTree(ctx context.Context, id string) (*domain.ProgramTree, error) {
	program, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tree := &domain.ProgramTree{Program: *program}

	byWeek := options.Find().SetSort(bson.D{{Key: "weekNumber", Value: 1}})
	if tree.Weeks, err = findAll[domain.ProgramWeek](ctx, r.weeks, bson.M{"programId": id}, byWeek); err != nil {
		return nil, err
	}
	byDay := options.Find().SetSort(bson.D{{Key: "dayNumber", Value: 1}})
	if tree.Workouts, err = findAll[domain.ProgramWorkout](ctx, r.workouts, bson.M{"programId": id}, byDay); err != nil {
		return nil, err
	}

	workoutIDs := make([]string, len(tree.Workouts))
	for i, w := range tree.Workouts {
		workoutIDs[i] = w.ID
	}
	byOrder := options.Find().SetSort(bson.D{{Key: "orderIndex", Value: 1}})
	tree.Exercises, err = findAll[domain.WorkoutExercise](ctx, r.exercises, bson.M{"workoutId": bson.M{"$in": workoutIDs}}, byOrder)
	if err != nil {
		return nil, err
	}

	exerciseIDs := make([]string, len(tree.Exercises))
	for i, e := range tree.Exercises {
		exerciseIDs[i] = e.ID
	}
	bySet := options.Find().SetSort(bson.D{{Key: "setNumber", Value: 1}})
	tree.Configurations, err = findAll[domain.SetConfiguration](ctx, r.configs, bson.M{"workoutExerciseId": bson.M{"$in": exerciseIDs}}, bySet)
	if err != nil {
		return nil, err
	}
	return tree, nil
}

func (r *mongoProgramRepository) ListByTrainer(ctx context.Context, trainerID string) ([]domain.Program, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findAll[domain.Program](ctx, r.programs, bson.M{"trainerId": trainerID}, opts)
}

func (r *mongoProgramRepository) GetWorkoutTemplate(ctx context.Context, workoutID string) (*domain.WorkoutTemplate, error) {
	workout, err := findOne[domain.ProgramWorkout](ctx, r.workouts, bson.M{"_id": workoutID})
	if err != nil {
		return nil, err
	}
	tmpl := &domain.WorkoutTemplate{
		Workout:        *workout,
		Configurations: make(map[string][]domain.SetConfiguration),
	}

	byOrder := options.Find().SetSort(bson.D{{Key: "orderIndex", Value: 1}})
	if tmpl.Exercises, err = findAll[domain.WorkoutExercise](ctx, r.exercises, bson.M{"workoutId": workoutID}, byOrder); err != nil {
		return nil, err
	}
	ids := make([]string, len(tmpl.Exercises))
	for i, e := range tmpl.Exercises {
		ids[i] = e.ID
	}
	bySet := options.Find().SetSort(bson.D{{Key: "setNumber", Value: 1}})
	configs, err := findAll[domain.SetConfiguration](ctx, r.configs, bson.M{"workoutExerciseId": bson.M{"$in": ids}}, bySet)
	if err != nil {
		return nil, err
	}
	for _, c := range configs {
		tmpl.Configurations[c.WorkoutExerciseID] = append(tmpl.Configurations[c.WorkoutExerciseID], c)
	}
	return tmpl, nil
}

type mongoAssignmentRepository struct {
	collection *mongo.Collection
}

// NewMongoAssignmentRepository creates a program assignment repository backed by MongoDB.
func NewMongoAssignmentRepository(db *mongo.Database) repository.AssignmentRepository {
	return &mongoAssignmentRepository{collection: db.Collection(assignmentCollectionName)}
}

func (r *mongoAssignmentRepository) Create(ctx context.Context, assignment *domain.ProgramAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	assignment.CreatedAt = time.Now().UTC()
	_, err := r.collection.InsertOne(ctx, assignment)
	return translateError(err)
}

func (r *mongoAssignmentRepository) GetByID(ctx context.Context, id string) (*domain.ProgramAssignment, error) {
	return findOne[domain.ProgramAssignment](ctx, r.collection, bson.M{"_id": id})
}

func (r *mongoAssignmentRepository) ListByClient(ctx context.Context, clientID string) ([]domain.ProgramAssignment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startDate", Value: -1}})
	return findAll[domain.ProgramAssignment](ctx, r.collection, bson.M{"clientId": clientID}, opts)
}

func (r *mongoAssignmentRepository) ListByTrainer(ctx context.Context, trainerID string) ([]domain.ProgramAssignment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startDate", Value: -1}})
	return findAll[domain.ProgramAssignment](ctx, r.collection, bson.M{"trainerId": trainerID}, opts)
}
