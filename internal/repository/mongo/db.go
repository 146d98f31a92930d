package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"alcyxob/trainer-core/internal/repository"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

const (
	appointmentCollectionName     = "appointments"
	calendarLockCollectionName    = "trainer_calendars"
	availabilityCollectionName    = "availability_slots"
	trainerClientCollectionName   = "trainer_clients"
	exerciseCollectionName        = "exercises"
	programCollectionName         = "programs"
	programWeekCollectionName     = "program_weeks"
	programWorkoutCollectionName  = "program_workouts"
	workoutExerciseCollectionName = "workout_exercises"
	setConfigCollectionName       = "set_configurations"
	assignmentCollectionName      = "program_assignments"
	sessionCollectionName         = "workout_sessions"
	exerciseLogCollectionName     = "exercise_logs"
	setLogCollectionName          = "set_logs"
	metricCollectionName          = "performance_metrics"
	personalBestCollectionName    = "personal_best_holders"
	trainingLoadCollectionName    = "training_loads"
)

// ConnectDB establishes a connection to MongoDB using the provided URI.
// Transactions need a replica set or a sharded cluster.
func ConnectDB(ctx context.Context, uri string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// The connection can succeed while the server is unresponsive, so ping the primary.
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = DisconnectDB(client)
		return nil, err
	}
	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// Transactor runs callbacks in a multi-document transaction.
type Transactor struct {
	client *mongo.Client
}

func NewTransactor(client *mongo.Client) *Transactor {
	return &Transactor{client: client}
}

// WithinTransaction runs fn with a session context. Repositories given that
// context take part in the transaction; nested calls join the outer one.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// translateError maps driver errors onto repository errors.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", repository.ErrConflict, err.Error())
	}
	return err
}

func findOptions(p repository.Page) *options.FindOptions {
	opts := options.Find()
	if p.Limit > 0 {
		opts.SetLimit(int64(p.Limit))
	}
	if p.Offset > 0 {
		opts.SetSkip(int64(p.Offset))
	}
	return opts
}

// findAll decodes every document the filter matches.
func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, translateError(err)
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, cursor.Err()
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOneOptions) (*T, error) {
	var out T
	if err := coll.FindOne(ctx, filter, opts...).Decode(&out); err != nil {
		return nil, translateError(err)
	}
	return &out, nil
}
