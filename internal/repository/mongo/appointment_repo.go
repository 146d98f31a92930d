package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/repository"
)

// mongoAppointmentRepository keeps a per-trainer lock document next to the
// appointments. Every write bumps it inside the caller's transaction, so two
// concurrent bookings for one trainer hit a write conflict and one retries.
type mongoAppointmentRepository struct {
	collection *mongo.Collection
	calendars  *mongo.Collection
	log        *logger.Logger
}

func NewMongoAppointmentRepository(db *mongo.Database, baseLog *logger.Logger) repository.AppointmentRepository {
	return &mongoAppointmentRepository{
		collection: db.Collection(appointmentCollectionName),
		calendars:  db.Collection(calendarLockCollectionName),
		log:        baseLog.With("repo", "MongoAppointmentRepository"),
	}
}

func (r *mongoAppointmentRepository) lockCalendar(ctx context.Context, trainerID string) error {
	_, err := r.calendars.UpdateOne(ctx,
		bson.M{"_id": trainerID},
		bson.M{"$inc": bson.M{"version": 1}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return translateError(err)
}

// guard serializes the trainer's calendar and rejects an overlapping interval.
func (r *mongoAppointmentRepository) guard(ctx context.Context, appt *domain.Appointment) error {
	if err := r.lockCalendar(ctx, appt.TrainerID); err != nil {
		return err
	}
	if !appt.Blocks() {
		return nil
	}
	clash, err := r.FindConflict(ctx, appt.TrainerID, appt.StartDatetime, appt.EndDatetime, appt.ID)
	if err != nil {
		return err
	}
	if clash != nil {
		return fmt.Errorf("%w: appointment %s overlaps", repository.ErrConflict, clash.ID)
	}
	return nil
}

func (r *mongoAppointmentRepository) Create(ctx context.Context, appt *domain.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	if err := r.guard(ctx, appt); err != nil {
		return err
	}
	_, err := r.collection.InsertOne(ctx, appt)
	return translateError(err)
}

func (r *mongoAppointmentRepository) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	return findOne[domain.Appointment](ctx, r.collection, bson.M{"_id": id})
}

func (r *mongoAppointmentRepository) Update(ctx context.Context, appt *domain.Appointment) error {
	appt.UpdatedAt = time.Now().UTC()
	if err := r.guard(ctx, appt); err != nil {
		return err
	}
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": appt.ID}, appt)
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func conflictFilter(trainerID string, start, end time.Time, excludeID string) bson.M {
	filter := bson.M{
		"trainerId":     trainerID,
		"status":        bson.M{"$ne": domain.AppointmentCancelled},
		"startDatetime": bson.M{"$lt": end.UTC()},
		"endDatetime":   bson.M{"$gt": start.UTC()},
	}
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": excludeID}
	}
	return filter
}

func (r *mongoAppointmentRepository) FindConflict(ctx context.Context, trainerID string, start, end time.Time, excludeID string) (*domain.Appointment, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "startDatetime", Value: 1}})
	appt, err := findOne[domain.Appointment](ctx, r.collection, conflictFilter(trainerID, start, end, excludeID), opts)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.log.Debug("appointment conflict", "trainer_id", trainerID, "conflicting_id", appt.ID)
	return appt, nil
}

func appointmentFilter(f repository.AppointmentFilter) bson.M {
	filter := bson.M{}
	if f.TrainerID != "" {
		filter["trainerId"] = f.TrainerID
	}
	if f.ClientID != "" {
		filter["clientId"] = f.ClientID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if rng := timeRange(f.From, f.To); rng != nil {
		filter["startDatetime"] = rng
	}
	return filter
}

// timeRange builds a half-open [from, to) condition, or nil when both are unset.
func timeRange(from, to *time.Time) bson.M {
	if from == nil && to == nil {
		return nil
	}
	rng := bson.M{}
	if from != nil {
		rng["$gte"] = from.UTC()
	}
	if to != nil {
		rng["$lt"] = to.UTC()
	}
	return rng
}

func (r *mongoAppointmentRepository) List(ctx context.Context, f repository.AppointmentFilter) ([]domain.Appointment, int64, error) {
	filter := appointmentFilter(f)
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translateError(err)
	}
	opts := findOptions(f.Page).SetSort(bson.D{{Key: "startDatetime", Value: 1}})
	appts, err := findAll[domain.Appointment](ctx, r.collection, filter, opts)
	return appts, total, err
}

type mongoAvailabilityRepository struct {
	collection *mongo.Collection
}

func NewMongoAvailabilityRepository(db *mongo.Database) repository.AvailabilityRepository {
	return &mongoAvailabilityRepository{collection: db.Collection(availabilityCollectionName)}
}

func (r *mongoAvailabilityRepository) Upsert(ctx context.Context, slot *domain.AvailabilitySlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	key := bson.M{"trainerId": slot.TrainerID, "dayOfWeek": slot.DayOfWeek, "startTime": slot.StartTime}
	update := bson.M{
		"$set": bson.M{
			"endTime":     slot.EndTime,
			"isAvailable": slot.IsAvailable,
			"location":    slot.Location,
			"updatedAt":   now,
		},
		"$setOnInsert": bson.M{"_id": slot.ID, "createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	return translateError(r.collection.FindOneAndUpdate(ctx, key, update, opts).Decode(slot))
}

func (r *mongoAvailabilityRepository) GetByID(ctx context.Context, id string) (*domain.AvailabilitySlot, error) {
	return findOne[domain.AvailabilitySlot](ctx, r.collection, bson.M{"_id": id})
}

func (r *mongoAvailabilityRepository) ListByTrainer(ctx context.Context, trainerID string) ([]domain.AvailabilitySlot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "dayOfWeek", Value: 1}, {Key: "startTime", Value: 1}})
	return findAll[domain.AvailabilitySlot](ctx, r.collection, bson.M{"trainerId": trainerID}, opts)
}

func (r *mongoAvailabilityRepository) ListByTrainerDay(ctx context.Context, trainerID string, dayOfWeek int) ([]domain.AvailabilitySlot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}})
	return findAll[domain.AvailabilitySlot](ctx, r.collection, bson.M{"trainerId": trainerID, "dayOfWeek": dayOfWeek}, opts)
}

func (r *mongoAvailabilityRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translateError(err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
