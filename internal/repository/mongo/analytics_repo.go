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

type mongoMetricRepository struct {
	collection *mongo.Collection
}

func NewMongoMetricRepository(db *mongo.Database) repository.MetricRepository {
	return &mongoMetricRepository{collection: db.Collection(metricCollectionName)}
}

func (r *mongoMetricRepository) Create(ctx context.Context, metric *domain.PerformanceMetric) error {
	if metric.ID == "" {
		metric.ID = uuid.NewString()
	}
	metric.CreatedAt = time.Now().UTC()
	metric.RecordedAt = metric.RecordedAt.UTC()
	_, err := r.collection.InsertOne(ctx, metric)
	return translateError(err)
}

func metricFilter(f repository.MetricFilter) bson.M {
	filter := bson.M{"userId": f.UserID}
	if f.ExerciseID != "" {
		filter["exerciseId"] = f.ExerciseID
	}
	if f.MetricType != "" {
		filter["metricType"] = f.MetricType
	}
	if rng := timeRange(f.From, f.To); rng != nil {
		filter["recordedAt"] = rng
	}
	return filter
}

func (r *mongoMetricRepository) List(ctx context.Context, f repository.MetricFilter) ([]domain.PerformanceMetric, int64, error) {
	filter := metricFilter(f)
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translateError(err)
	}
	opts := findOptions(f.Page).SetSort(bson.D{{Key: "recordedAt", Value: -1}, {Key: "_id", Value: -1}})
	metrics, err := findAll[domain.PerformanceMetric](ctx, r.collection, filter, opts)
	return metrics, total, err
}

// bestOrder ranks metrics of one triple: value, then recency, then id.
var bestOrder = bson.D{{Key: "value", Value: -1}, {Key: "recordedAt", Value: -1}, {Key: "_id", Value: -1}}

func (r *mongoMetricRepository) Best(ctx context.Context, userID, exerciseID string, metricType domain.MetricType) (*domain.PerformanceMetric, error) {
	filter := bson.M{"userId": userID, "exerciseId": exerciseID, "metricType": metricType}
	return findOne[domain.PerformanceMetric](ctx, r.collection, filter, options.FindOne().SetSort(bestOrder))
}

func personalBestsPipeline(userID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": userID, "exerciseId": bson.M{"$exists": true, "$ne": nil}}}},
		{{Key: "$sort", Value: bestOrder}},
		{{Key: "$group", Value: bson.M{
			"_id":  bson.M{"exerciseId": "$exerciseId", "metricType": "$metricType"},
			"best": bson.M{"$first": "$$ROOT"},
		}}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$best"}}},
		{{Key: "$sort", Value: bson.D{{Key: "exerciseId", Value: 1}, {Key: "metricType", Value: 1}}}},
	}
}

func (r *mongoMetricRepository) PersonalBests(ctx context.Context, userID string) ([]domain.PerformanceMetric, error) {
	cursor, err := r.collection.Aggregate(ctx, personalBestsPipeline(userID))
	if err != nil {
		return nil, translateError(err)
	}
	defer cursor.Close(ctx)

	out := []domain.PerformanceMetric{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mongoMetricRepository) ExistsForExerciseLog(ctx context.Context, exerciseLogID string, metricType domain.MetricType) (bool, error) {
	n, err := r.collection.CountDocuments(ctx,
		bson.M{"exerciseLogId": exerciseLogID, "metricType": metricType},
		options.Count().SetLimit(1))
	if err != nil {
		return false, translateError(err)
	}
	return n > 0, nil
}

type mongoPersonalBestRepository struct {
	collection   *mongo.Collection
	exerciseLogs *mongo.Collection
}

func NewMongoPersonalBestRepository(db *mongo.Database) repository.PersonalBestRepository {
	return &mongoPersonalBestRepository{
		collection:   db.Collection(personalBestCollectionName),
		exerciseLogs: db.Collection(exerciseLogCollectionName),
	}
}

func holderKey(userID, exerciseID string, metricType domain.MetricType) bson.M {
	return bson.M{"userId": userID, "exerciseId": exerciseID, "metricType": metricType}
}

func (r *mongoPersonalBestRepository) Get(ctx context.Context, userID, exerciseID string, metricType domain.MetricType) (*domain.PersonalBestHolder, error) {
	return findOne[domain.PersonalBestHolder](ctx, r.collection, holderKey(userID, exerciseID, metricType))
}

func (r *mongoPersonalBestRepository) Upsert(ctx context.Context, holder *domain.PersonalBestHolder) error {
	holder.UpdatedAt = time.Now().UTC()
	holder.RecordedAt = holder.RecordedAt.UTC()
	_, err := r.collection.ReplaceOne(ctx,
		holderKey(holder.UserID, holder.ExerciseID, holder.MetricType),
		holder,
		options.Replace().SetUpsert(true))
	return translateError(err)
}

func (r *mongoPersonalBestRepository) CountByExerciseLog(ctx context.Context, exerciseLogID string) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"exerciseLogId": exerciseLogID})
	return n, translateError(err)
}

func (r *mongoPersonalBestRepository) SetExerciseLogFlag(ctx context.Context, exerciseLogID string, flag bool) error {
	res, err := r.exerciseLogs.UpdateOne(ctx, bson.M{"_id": exerciseLogID}, bson.M{
		"$set": bson.M{"personalBest": flag, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type mongoTrainingLoadRepository struct {
	collection *mongo.Collection
}

func NewMongoTrainingLoadRepository(db *mongo.Database) repository.TrainingLoadRepository {
	return &mongoTrainingLoadRepository{collection: db.Collection(trainingLoadCollectionName)}
}

func (r *mongoTrainingLoadRepository) Upsert(ctx context.Context, load *domain.TrainingLoad) error {
	if load.ID == "" {
		load.ID = uuid.NewString()
	}
	load.WeekStartDate = domain.WeekStart(load.WeekStartDate)
	update := bson.M{
		"$set": bson.M{
			"load":         load.Load,
			"totalVolume":  load.TotalVolume,
			"totalReps":    load.TotalReps,
			"totalSets":    load.TotalSets,
			"trainingDays": load.TrainingDays,
			"acuteLoad":    load.AcuteLoad,
			"chronicLoad":  load.ChronicLoad,
			"loadRatio":    load.LoadRatio,
			"calculatedAt": load.CalculatedAt.UTC(),
		},
		"$setOnInsert": bson.M{"_id": load.ID},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	key := bson.M{"userId": load.UserID, "weekStartDate": load.WeekStartDate}
	return translateError(r.collection.FindOneAndUpdate(ctx, key, update, opts).Decode(load))
}

func (r *mongoTrainingLoadRepository) ListRange(ctx context.Context, userID string, from, to time.Time) ([]domain.TrainingLoad, error) {
	filter := bson.M{"userId": userID, "weekStartDate": bson.M{"$gte": from.UTC(), "$lte": to.UTC()}}
	opts := options.Find().SetSort(bson.D{{Key: "weekStartDate", Value: 1}})
	return findAll[domain.TrainingLoad](ctx, r.collection, filter, opts)
}
