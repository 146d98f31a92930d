package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/repository"
)

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func newMockT(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

// commandNames lists the commands sent so far, in order.
func commandNames(mt *mtest.T) []string {
	var names []string
	for _, evt := range mt.GetAllStartedEvents() {
		names = append(names, evt.CommandName)
	}
	return names
}

// sentCommand returns the n-th command with the given name.
func sentCommand(mt *mtest.T, name string, n int) bson.Raw {
	mt.Helper()
	for _, evt := range mt.GetAllStartedEvents() {
		if evt.CommandName != name {
			continue
		}
		if n == 0 {
			return evt.Command
		}
		n--
	}
	mt.Fatalf("no %s command sent", name)
	return nil
}

func firstElem(mt *mtest.T, cmd bson.Raw, key string) bson.Raw {
	mt.Helper()
	values, err := cmd.Lookup(key).Array().Values()
	require.NoError(mt, err)
	require.NotEmpty(mt, values)
	return values[0].Document()
}

func writeOK(n int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

func hourAppointment(trainerID string, start time.Time) *domain.Appointment {
	appt := &domain.Appointment{
		TrainerID:       trainerID,
		ClientID:        "c1",
		Title:           "Strength session",
		AppointmentType: domain.AppointmentOneOnOne,
		Status:          domain.AppointmentScheduled,
	}
	appt.SetInterval(start, start.Add(time.Hour))
	return appt
}

func TestAppointmentRepository_Guard(t *testing.T) {
	mt := newMockT(t)
	ctx := context.Background()
	ns := "test." + appointmentCollectionName
	start := monday.Add(10 * time.Hour)

	mt.Run("overlap is rejected before insert", func(mt *mtest.T) {
		repo := NewMongoAppointmentRepository(mt.DB, logger.NewNop())
		existing := bson.D{
			{Key: "_id", Value: "a1"},
			{Key: "trainerId", Value: "t1"},
			{Key: "status", Value: string(domain.AppointmentScheduled)},
			{Key: "startDatetime", Value: start},
			{Key: "endDatetime", Value: start.Add(time.Hour)},
		}
		mt.AddMockResponses(
			writeOK(1), // calendar lock
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, existing),
		)

		err := repo.Create(ctx, hourAppointment("t1", start.Add(30*time.Minute)))
		require.ErrorIs(mt, err, repository.ErrConflict)
		assert.Contains(mt, err.Error(), "a1")
		assert.Equal(mt, []string{"update", "find"}, commandNames(mt))

		lock := firstElem(mt, sentCommand(mt, "update", 0), "updates")
		assert.Equal(mt, "t1", lock.Lookup("q", "_id").StringValue())
		assert.True(mt, lock.Lookup("upsert").Boolean())
	})

	mt.Run("touching boundary is accepted", func(mt *mtest.T) {
		repo := NewMongoAppointmentRepository(mt.DB, logger.NewNop())
		mt.AddMockResponses(
			writeOK(1),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
			mtest.CreateSuccessResponse(),
		)

		appt := hourAppointment("t1", start.Add(time.Hour))
		require.NoError(mt, repo.Create(ctx, appt))
		assert.NotEmpty(mt, appt.ID)
		assert.Equal(mt, []string{"update", "find", "insert"}, commandNames(mt))

		filter := sentCommand(mt, "find", 0).Lookup("filter").Document()
		assert.Equal(mt, "t1", filter.Lookup("trainerId").StringValue())
		assert.Equal(mt, string(domain.AppointmentCancelled), filter.Lookup("status", "$ne").StringValue())
		assert.True(mt, filter.Lookup("startDatetime", "$lt").Time().Equal(appt.EndDatetime))
		assert.True(mt, filter.Lookup("endDatetime", "$gt").Time().Equal(appt.StartDatetime))
		assert.Equal(mt, appt.ID, filter.Lookup("_id", "$ne").StringValue())
	})

	mt.Run("cancelled appointment skips the overlap check", func(mt *mtest.T) {
		repo := NewMongoAppointmentRepository(mt.DB, logger.NewNop())
		mt.AddMockResponses(writeOK(1), writeOK(1))

		appt := hourAppointment("t1", start)
		appt.ID = "a1"
		appt.Status = domain.AppointmentCancelled
		require.NoError(mt, repo.Update(ctx, appt))
		assert.Equal(mt, []string{"update", "update"}, commandNames(mt))
	})

	mt.Run("update of a missing appointment", func(mt *mtest.T) {
		repo := NewMongoAppointmentRepository(mt.DB, logger.NewNop())
		mt.AddMockResponses(
			writeOK(1),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
			writeOK(0),
		)

		appt := hourAppointment("t1", start)
		appt.ID = "gone"
		assert.ErrorIs(mt, repo.Update(ctx, appt), repository.ErrNotFound)
	})
}

func TestSessionRepository_SingleActivePerClient(t *testing.T) {
	mt := newMockT(t)
	ctx := context.Background()

	mt.Run("second in-progress session is a conflict", func(mt *mtest.T) {
		repo := NewMongoSessionRepository(mt.DB, logger.NewNop())
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{
				Index:   0,
				Code:    11000,
				Message: "E11000 duplicate key error index: ux_workout_sessions_active_client",
			}),
		)

		first := &domain.WorkoutSession{ClientID: "c1", Status: domain.SessionInProgress, ActualStartTime: monday}
		require.NoError(mt, repo.Create(ctx, first))
		assert.NotEmpty(mt, first.ID)

		second := &domain.WorkoutSession{ClientID: "c1", Status: domain.SessionInProgress, ActualStartTime: monday}
		assert.ErrorIs(mt, repo.Create(ctx, second), repository.ErrConflict)
	})

	mt.Run("completed sets count only completed sessions", func(mt *mtest.T) {
		repo := NewMongoSessionRepository(mt.DB, logger.NewNop())
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "values", Value: bson.A{"s1"}}),
			mtest.CreateCursorResponse(0, "test."+setLogCollectionName, mtest.FirstBatch,
				bson.D{{Key: "_id", Value: 1}, {Key: "n", Value: 3}}),
		)

		n, err := repo.CountCompletedSessionSets(ctx, "c1", monday, monday.AddDate(0, 0, 7))
		require.NoError(mt, err)
		assert.Equal(mt, 3, n)

		query := sentCommand(mt, "distinct", 0).Lookup("query").Document()
		assert.Equal(mt, "c1", query.Lookup("clientId").StringValue())
		assert.Equal(mt, string(domain.SessionCompleted), query.Lookup("status").StringValue())
	})

	mt.Run("no completed sessions", func(mt *mtest.T) {
		repo := NewMongoSessionRepository(mt.DB, logger.NewNop())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "values", Value: bson.A{}}))

		n, err := repo.CountCompletedSessionSets(ctx, "c1", monday, monday.AddDate(0, 0, 7))
		require.NoError(mt, err)
		assert.Zero(mt, n)
		assert.Equal(mt, []string{"distinct"}, commandNames(mt))
	})
}

func TestTrainingLoadRepository_OneRowPerWeek(t *testing.T) {
	mt := newMockT(t)
	ctx := context.Background()

	mt.Run("upsert keys on user and week start", func(mt *mtest.T) {
		repo := NewMongoTrainingLoadRepository(mt.DB)
		stored := bson.D{
			{Key: "_id", Value: "row-1"},
			{Key: "userId", Value: "u1"},
			{Key: "weekStartDate", Value: monday},
			{Key: "load", Value: 1500.0},
			{Key: "chronicLoad", Value: 1500.0},
			{Key: "loadRatio", Value: 1.0},
		}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: stored}))

		load := &domain.TrainingLoad{
			UserID:        "u1",
			WeekStartDate: monday.AddDate(0, 0, 2).Add(18 * time.Hour),
			Load:          1500,
			AcuteLoad:     1500,
			ChronicLoad:   1500,
			LoadRatio:     1,
			CalculatedAt:  monday,
		}
		require.NoError(mt, repo.Upsert(ctx, load))

		// the existing row keeps its id
		assert.Equal(mt, "row-1", load.ID)
		assert.Equal(mt, 1500.0, load.Load)

		cmd := sentCommand(mt, "findAndModify", 0)
		assert.Equal(mt, "u1", cmd.Lookup("query", "userId").StringValue())
		assert.True(mt, cmd.Lookup("query", "weekStartDate").Time().Equal(monday))
		assert.True(mt, cmd.Lookup("upsert").Boolean())
		assert.NotEmpty(mt, cmd.Lookup("update", "$setOnInsert", "_id").StringValue())
		assert.Equal(mt, 1500.0, cmd.Lookup("update", "$set", "chronicLoad").Double())
	})
}

func TestPersonalBestRepository_SingleHolder(t *testing.T) {
	mt := newMockT(t)
	ctx := context.Background()

	mt.Run("upsert replaces the holder of the triple", func(mt *mtest.T) {
		repo := NewMongoPersonalBestRepository(mt.DB)
		mt.AddMockResponses(writeOK(1))

		logID := "log-2"
		holder := &domain.PersonalBestHolder{
			UserID:        "u1",
			ExerciseID:    "bench",
			MetricType:    domain.MetricOneRM,
			MetricID:      "m2",
			ExerciseLogID: &logID,
			Value:         102.5,
			RecordedAt:    monday,
		}
		require.NoError(mt, repo.Upsert(ctx, holder))

		upd := firstElem(mt, sentCommand(mt, "update", 0), "updates")
		assert.Equal(mt, "u1", upd.Lookup("q", "userId").StringValue())
		assert.Equal(mt, "bench", upd.Lookup("q", "exerciseId").StringValue())
		assert.Equal(mt, string(domain.MetricOneRM), upd.Lookup("q", "metricType").StringValue())
		assert.True(mt, upd.Lookup("upsert").Boolean())
		assert.Equal(mt, "m2", upd.Lookup("u", "metricId").StringValue())
	})

	mt.Run("flag on a missing exercise log", func(mt *mtest.T) {
		repo := NewMongoPersonalBestRepository(mt.DB)
		mt.AddMockResponses(writeOK(0))
		assert.ErrorIs(mt, repo.SetExerciseLogFlag(ctx, "gone", true), repository.ErrNotFound)
	})
}

func TestEnsureIndexes_ActiveSessionIndex(t *testing.T) {
	mt := newMockT(t)

	mt.Run("partial unique index on in-progress sessions", func(mt *mtest.T) {
		for i := 0; i < 32; i++ {
			mt.AddMockResponses(mtest.CreateSuccessResponse())
		}
		require.NoError(mt, EnsureIndexes(context.Background(), mt.DB))

		var found bool
		for _, evt := range mt.GetAllStartedEvents() {
			if evt.CommandName != "createIndexes" ||
				evt.Command.Lookup("createIndexes").StringValue() != sessionCollectionName {
				continue
			}
			idx := firstElem(mt, evt.Command, "indexes")
			assert.Equal(mt, "ux_workout_sessions_active_client", idx.Lookup("name").StringValue())
			assert.True(mt, idx.Lookup("unique").Boolean())
			assert.Equal(mt, string(domain.SessionInProgress), idx.Lookup("partialFilterExpression", "status").StringValue())
			found = true
		}
		assert.True(mt, found, "no index created for %s", sessionCollectionName)
	})
}

func TestTransactor(t *testing.T) {
	mt := newMockT(t)
	ctx := context.Background()

	mt.Run("commits once for nested calls", func(mt *mtest.T) {
		tx := NewTransactor(mt.Client)
		repo := NewMongoSessionRepository(mt.DB, logger.NewNop())
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())

		err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
			return tx.WithinTransaction(ctx, func(ctx context.Context) error {
				return repo.Create(ctx, &domain.WorkoutSession{ClientID: "c1", Status: domain.SessionInProgress, ActualStartTime: monday})
			})
		})
		require.NoError(mt, err)
		assert.Equal(mt, []string{"insert", "commitTransaction"}, commandNames(mt))
		assert.True(mt, sentCommand(mt, "insert", 0).Lookup("startTransaction").Boolean())
	})

	mt.Run("aborts when the callback fails", func(mt *mtest.T) {
		tx := NewTransactor(mt.Client)
		repo := NewMongoSessionRepository(mt.DB, logger.NewNop())
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())

		boom := errors.New("boom")
		err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
			if err := repo.Create(ctx, &domain.WorkoutSession{ClientID: "c1", Status: domain.SessionInProgress, ActualStartTime: monday}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(mt, err, boom)
		assert.Equal(mt, []string{"insert", "abortTransaction"}, commandNames(mt))
	})
}
