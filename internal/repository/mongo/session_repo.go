package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/repository"
)

type mongoSessionRepository struct {
	collection *mongo.Collection
	setLogs    *mongo.Collection
	log        *logger.Logger
}

func NewMongoSessionRepository(db *mongo.Database, baseLog *logger.Logger) repository.SessionRepository {
	return &mongoSessionRepository{
		collection: db.Collection(sessionCollectionName),
		setLogs:    db.Collection(setLogCollectionName),
		log:        baseLog.With("repo", "MongoSessionRepository"),
	}
}

// Create relies on the partial unique index over in-progress sessions.
func (r *mongoSessionRepository) Create(ctx context.Context, session *domain.WorkoutSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, session)
	if err = translateError(err); err != nil {
		r.log.Debug("create session rejected", "client_id", session.ClientID, "error", err)
	}
	return err
}

func (r *mongoSessionRepository) GetByID(ctx context.Context, id string) (*domain.WorkoutSession, error) {
	return findOne[domain.WorkoutSession](ctx, r.collection, bson.M{"_id": id})
}

func (r *mongoSessionRepository) GetActiveByClient(ctx context.Context, clientID string) (*domain.WorkoutSession, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "actualStartTime", Value: -1}})
	filter := bson.M{"clientId": clientID, "status": domain.SessionInProgress}
	return findOne[domain.WorkoutSession](ctx, r.collection, filter, opts)
}

func (r *mongoSessionRepository) Update(ctx context.Context, session *domain.WorkoutSession) error {
	session.UpdatedAt = time.Now().UTC()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": session.ID, "clientId": session.ClientID}, session)
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoSessionRepository) IncrementCompletedSets(ctx context.Context, id string, delta int) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"completedSets": delta},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func sessionFilter(f repository.SessionFilter) bson.M {
	filter := bson.M{}
	if f.ClientID != "" {
		filter["clientId"] = f.ClientID
	}
	if f.TrainerID != "" {
		filter["trainerId"] = f.TrainerID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if rng := timeRange(f.From, f.To); rng != nil {
		filter["actualStartTime"] = rng
	}
	return filter
}

func (r *mongoSessionRepository) List(ctx context.Context, f repository.SessionFilter) ([]domain.WorkoutSession, int64, error) {
	filter := sessionFilter(f)
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translateError(err)
	}
	opts := findOptions(f.Page).SetSort(bson.D{{Key: "actualStartTime", Value: -1}})
	sessions, err := findAll[domain.WorkoutSession](ctx, r.collection, filter, opts)
	return sessions, total, err
}

func (r *mongoSessionRepository) CountCompletedSessionSets(ctx context.Context, clientID string, from, to time.Time) (int, error) {
	filter := sessionFilter(repository.SessionFilter{
		ClientID: clientID,
		Status:   domain.SessionCompleted,
		From:     &from,
		To:       &to,
	})
	ids, err := r.collection.Distinct(ctx, "_id", filter)
	if err != nil {
		return 0, translateError(err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := r.setLogs.CountDocuments(ctx, bson.M{"sessionId": bson.M{"$in": ids}})
	return int(n), translateError(err)
}

type mongoExerciseLogRepository struct {
	collection *mongo.Collection
}

func NewMongoExerciseLogRepository(db *mongo.Database) repository.ExerciseLogRepository {
	return &mongoExerciseLogRepository{collection: db.Collection(exerciseLogCollectionName)}
}

func (r *mongoExerciseLogRepository) CreateMany(ctx context.Context, logs []domain.ExerciseLog) error {
	now := time.Now().UTC()
	for i := range logs {
		if logs[i].ID == "" {
			logs[i].ID = uuid.NewString()
		}
		logs[i].CreatedAt = now
		logs[i].UpdatedAt = now
	}
	return insertAll(ctx, r.collection, logs)
}

func (r *mongoExerciseLogRepository) GetByID(ctx context.Context, id string) (*domain.ExerciseLog, error) {
	return findOne[domain.ExerciseLog](ctx, r.collection, bson.M{"_id": id})
}

func (r *mongoExerciseLogRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.ExerciseLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "orderIndex", Value: 1}})
	return findAll[domain.ExerciseLog](ctx, r.collection, bson.M{"sessionId": sessionID}, opts)
}

func (r *mongoExerciseLogRepository) Update(ctx context.Context, log *domain.ExerciseLog) error {
	log.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"skipped":      log.Skipped,
		"personalBest": log.PersonalBest,
		"totalVolume":  log.TotalVolume,
		"updatedAt":    log.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if log.CompletedAt != nil {
		set["completedAt"] = *log.CompletedAt
	} else {
		update["$unset"] = bson.M{"completedAt": ""}
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": log.ID}, update)
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoExerciseLogRepository) MaxOrderIndex(ctx context.Context, sessionID string) (int, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "orderIndex", Value: -1}})
	last, err := findOne[domain.ExerciseLog](ctx, r.collection, bson.M{"sessionId": sessionID}, opts)
	if errors.Is(err, repository.ErrNotFound) {
		return -1, nil
	}
	if err != nil {
		return 0, err
	}
	return last.OrderIndex, nil
}

type mongoSetLogRepository struct {
	collection *mongo.Collection
}

func NewMongoSetLogRepository(db *mongo.Database) repository.SetLogRepository {
	return &mongoSetLogRepository{collection: db.Collection(setLogCollectionName)}
}

func (r *mongoSetLogRepository) Create(ctx context.Context, set *domain.SetLog) error {
	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	if set.LoggedAt.IsZero() {
		set.LoggedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, set)
	return translateError(err)
}

func (r *mongoSetLogRepository) ListByExerciseLog(ctx context.Context, exerciseLogID string) ([]domain.SetLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "setNumber", Value: 1}})
	return findAll[domain.SetLog](ctx, r.collection, bson.M{"exerciseLogId": exerciseLogID}, opts)
}

func (r *mongoSetLogRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.SetLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "exerciseLogId", Value: 1}, {Key: "setNumber", Value: 1}})
	return findAll[domain.SetLog](ctx, r.collection, bson.M{"sessionId": sessionID}, opts)
}
