package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/service"
	"alcyxob/trainer-core/internal/testutil"
)

type fakeStorage struct {
	objects    map[string][]byte
	presignErr error
	deleted    []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) PutObject(_ context.Context, key string, body []byte, _ string) error {
	f.objects[key] = body
	return nil
}

func (f *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://reports.example.test/" + key + "?signed", nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func volume(value float64, when time.Time) service.RecordMetricInput {
	return service.RecordMetricInput{MetricType: domain.MetricVolume, Value: value, Unit: "kg", RecordedAt: when}
}

func TestAnalytics_TrainingLoadOneRowPerWeek(t *testing.T) {
	e := newEnv(t)
	svc := newAnalytics(e)
	wednesday := monday.AddDate(0, 0, 2)

	_, err := svc.RecordMetric(e.ctx, e.clientP(), volume(1000, at(monday, 9, 0)))
	require.NoError(t, err)
	_, err = svc.RecordMetric(e.ctx, e.clientP(), volume(500, at(wednesday, 18, 0)))
	require.NoError(t, err)

	loads, err := svc.GetTrainingLoad(e.ctx, e.clientP(), "me", wednesday, 1)
	require.NoError(t, err)
	require.Len(t, loads, 1)
	row := loads[0]
	assert.True(t, row.WeekStartDate.Equal(monday))
	assert.Equal(t, 1500.0, row.Load)
	assert.Equal(t, 1500.0, row.AcuteLoad)
	assert.Equal(t, 1500.0, row.ChronicLoad)
	assert.Equal(t, 1.0, row.LoadRatio)
	assert.Equal(t, 2, row.TrainingDays)
}

func TestAnalytics_LaterWeeksFollowEarlierChanges(t *testing.T) {
	e := newEnv(t)
	svc := newAnalytics(e)
	nextMonday := monday.AddDate(0, 0, 7)

	_, err := svc.RecordMetric(e.ctx, e.clientP(), volume(1500, at(monday, 9, 0)))
	require.NoError(t, err)
	_, err = svc.RecordMetric(e.ctx, e.clientP(), volume(400, at(nextMonday, 9, 0)))
	require.NoError(t, err)

	loads, err := svc.GetTrainingLoad(e.ctx, e.clientP(), "", monday, 2)
	require.NoError(t, err)
	require.Len(t, loads, 2)
	assert.Equal(t, 950.0, loads[1].ChronicLoad)

	// a late entry in the first week refreshes the second week's chronic load
	_, err = svc.RecordMetric(e.ctx, e.clientP(), volume(100, at(monday, 19, 0)))
	require.NoError(t, err)
	loads, err = svc.GetTrainingLoad(e.ctx, e.clientP(), "", monday, 2)
	require.NoError(t, err)
	require.Len(t, loads, 2)
	assert.Equal(t, 1600.0, loads[0].Load)
	assert.Equal(t, 1000.0, loads[1].ChronicLoad)
	assert.Equal(t, 0.4, loads[1].LoadRatio)

	// body metrics never touch load
	_, err = svc.RecordMetric(e.ctx, e.clientP(), service.RecordMetricInput{
		MetricType: domain.MetricBodyWeight, Value: 82.4, Unit: "kg", RecordedAt: at(monday, 7, 0),
	})
	require.NoError(t, err)
	loads, err = svc.GetTrainingLoad(e.ctx, e.clientP(), "", monday, 1)
	require.NoError(t, err)
	assert.Equal(t, 1600.0, loads[0].Load)
}

func TestAnalytics_PersonalBestTieBreak(t *testing.T) {
	e := newEnv(t)
	svc := newAnalytics(e)
	squat := testutil.SeedExercise(t, e.ctx, e.repos, e.trainer)

	record := func(value float64, when time.Time) *service.MetricResult {
		res, err := svc.RecordMetric(e.ctx, e.clientP(), service.RecordMetricInput{
			ExerciseID: squat.ID, MetricType: domain.MetricOneRM, Value: value, Unit: "kg", RecordedAt: when,
		})
		require.NoError(t, err)
		return res
	}

	assert.True(t, record(140, at(monday, 9, 0)).PersonalBest)
	assert.False(t, record(120, at(monday, 10, 0)).PersonalBest)
	later := record(140, at(monday, 11, 0))
	assert.True(t, later.PersonalBest)
	// an older equal value does not take the record back
	assert.False(t, record(140, at(monday, 8, 0)).PersonalBest)

	bests, err := svc.GetPersonalBests(e.ctx, e.clientP(), "")
	require.NoError(t, err)
	require.Len(t, bests, 1)
	assert.Equal(t, later.Metric.ID, bests[0].MetricID)
	assert.Equal(t, squat.Name, bests[0].Exercise)

	holder, err := e.repos.PersonalBests.Get(e.ctx, e.client, squat.ID, domain.MetricOneRM)
	require.NoError(t, err)
	assert.Equal(t, later.Metric.ID, holder.MetricID)
}

func TestAnalytics_Access(t *testing.T) {
	e := newEnv(t)
	svc := newAnalytics(e)

	res, err := svc.RecordMetric(e.ctx, e.trainerP(), service.RecordMetricInput{
		UserID: e.client, MetricType: domain.MetricBodyFat, Value: 14.2, Unit: "%",
	})
	require.NoError(t, err)
	assert.Equal(t, e.client, res.Metric.UserID)
	assert.True(t, res.Metric.RecordedAt.Equal(e.clock.Now()))

	metrics, total, err := svc.ListMetrics(e.ctx, e.trainerP(), service.MetricQuery{UserID: e.client})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, metrics, 1)

	stranger := domain.Principal{UserID: uuid.NewString(), Role: domain.RoleTrainer}
	_, _, err = svc.ListMetrics(e.ctx, stranger, service.MetricQuery{UserID: e.client})
	assert.ErrorIs(t, err, service.ErrAnalyticsForbidden)
	_, err = svc.GetPersonalBests(e.ctx, domain.Principal{UserID: uuid.NewString(), Role: domain.RoleClient}, e.client)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = svc.RecordMetric(e.ctx, e.clientP(), service.RecordMetricInput{MetricType: "vo2", Value: 1})
	assert.ErrorIs(t, err, service.ErrInvalidMetricType)
	_, err = svc.RecordMetric(e.ctx, e.clientP(), service.RecordMetricInput{MetricType: domain.MetricPower, Value: -1})
	assert.ErrorIs(t, err, service.ErrInvalidMetricValue)
	_, err = svc.RecordMetric(e.ctx, e.clientP(), service.RecordMetricInput{
		MetricType: domain.MetricOneRM, Value: 1, ExerciseID: uuid.NewString(),
	})
	assert.ErrorIs(t, err, service.ErrExerciseNotFound)
	_, err = svc.GetTrainingLoad(e.ctx, e.clientP(), "", time.Time{}, 53)
	assert.ErrorIs(t, err, service.ErrInvalidWeeks)
}

func TestAnalytics_ExportReport(t *testing.T) {
	e := newEnv(t)
	_, err := newAnalytics(e).ExportReport(e.ctx, e.clientP(), "")
	assert.ErrorIs(t, err, service.ErrReportsDisabled)

	files := newFakeStorage()
	svc := service.NewAnalyticsService(e.repos, files, e.metrics, e.clock.Now, logger.NewNop())
	_, err = svc.RecordMetric(e.ctx, e.clientP(), volume(1200, at(monday, 7, 0)))
	require.NoError(t, err)

	report, err := svc.ExportReport(e.ctx, e.clientP(), "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(report.ObjectKey, "reports/"+e.client+"/"))
	assert.Contains(t, report.DownloadURL, report.ObjectKey)
	assert.True(t, report.ExpiresAt.After(report.GeneratedAt))

	var doc struct {
		UserID       string                `json:"userId"`
		TrainingLoad []domain.TrainingLoad `json:"trainingLoad"`
	}
	require.NoError(t, json.Unmarshal(files.objects[report.ObjectKey], &doc))
	assert.Equal(t, e.client, doc.UserID)
	require.Len(t, doc.TrainingLoad, 1)
	assert.Equal(t, 1200.0, doc.TrainingLoad[0].Load)

	files.presignErr = errors.New("signer down")
	e.clock.Advance(time.Minute)
	_, err = svc.ExportReport(e.ctx, e.clientP(), "")
	require.Error(t, err)
	require.Len(t, files.deleted, 1)
	assert.NotContains(t, files.objects, files.deleted[0])
}
