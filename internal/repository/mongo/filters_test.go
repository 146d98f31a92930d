package mongo

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/goleak"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestConflictFilter(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	f := conflictFilter("t1", start, end, "")
	assert.Equal(t, "t1", f["trainerId"])
	assert.Equal(t, bson.M{"$ne": domain.AppointmentCancelled}, f["status"])
	assert.Equal(t, bson.M{"$lt": end}, f["startDatetime"])
	assert.Equal(t, bson.M{"$gt": start}, f["endDatetime"])
	assert.NotContains(t, f, "_id")

	f = conflictFilter("t1", start, end, "a1")
	assert.Equal(t, bson.M{"$ne": "a1"}, f["_id"])
}

func TestAppointmentFilter(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	f := appointmentFilter(repository.AppointmentFilter{ClientID: "c1", Status: domain.AppointmentScheduled, From: &from})
	assert.Equal(t, "c1", f["clientId"])
	assert.Equal(t, domain.AppointmentScheduled, f["status"])
	assert.Equal(t, bson.M{"$gte": from}, f["startDatetime"])
	assert.NotContains(t, f, "trainerId")

	assert.Empty(t, appointmentFilter(repository.AppointmentFilter{}))
}

func TestSessionAndMetricFilters(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	s := sessionFilter(repository.SessionFilter{ClientID: "c1", From: &from, To: &to})
	assert.Equal(t, bson.M{"$gte": from, "$lt": to}, s["actualStartTime"])

	m := metricFilter(repository.MetricFilter{UserID: "u1", MetricType: domain.MetricVolume})
	assert.Equal(t, bson.M{"userId": "u1", "metricType": domain.MetricVolume}, m)
}

func TestPersonalBestsPipeline(t *testing.T) {
	p := personalBestsPipeline("u1")
	require.Len(t, p, 5)
	assert.Equal(t, "$match", p[0][0].Key)
	assert.Equal(t, "$sort", p[1][0].Key)
	assert.Equal(t, bestOrder, p[1][0].Value)
	assert.Equal(t, "$group", p[2][0].Key)
}

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))
	assert.ErrorIs(t, translateError(mongo.ErrNoDocuments), repository.ErrNotFound)

	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, translateError(dup), repository.ErrConflict)

	other := errors.New("socket closed")
	assert.Equal(t, other, translateError(other))
}
