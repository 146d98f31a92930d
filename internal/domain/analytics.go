package domain

import (
	"math"
	"time"
)

type MetricType string

const (
	MetricOneRM      MetricType = "one_rm"
	MetricVolume     MetricType = "volume"
	MetricEndurance  MetricType = "endurance"
	MetricPower      MetricType = "power"
	MetricSpeed      MetricType = "speed"
	MetricBodyWeight MetricType = "body_weight"
	MetricBodyFat    MetricType = "body_fat"
	MetricMuscleMass MetricType = "muscle_mass"
)

func (m MetricType) Valid() bool {
	switch m {
	case MetricOneRM, MetricVolume, MetricEndurance, MetricPower, MetricSpeed,
		MetricBodyWeight, MetricBodyFat, MetricMuscleMass:
		return true
	}
	return false
}

// PerformanceMetric is one recorded measurement. Rows are append-only.
type PerformanceMetric struct {
	ID            string     `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	UserID        string     `gorm:"type:varchar(36);not null;index:idx_metrics_user_recorded,priority:1" bson:"userId" json:"userId"`
	ExerciseID    *string    `gorm:"type:varchar(36);index" bson:"exerciseId,omitempty" json:"exerciseId,omitempty"`
	MetricType    MetricType `gorm:"type:varchar(16);not null" bson:"metricType" json:"metricType"`
	Value         float64    `gorm:"not null" bson:"value" json:"value"`
	Unit          string     `bson:"unit" json:"unit"`
	RecordedAt    time.Time  `gorm:"not null;index:idx_metrics_user_recorded,priority:2" bson:"recordedAt" json:"recordedAt"`
	ExerciseLogID *string    `gorm:"type:varchar(36);index" bson:"exerciseLogId,omitempty" json:"exerciseLogId,omitempty"`
	SessionID     *string    `gorm:"type:varchar(36)" bson:"sessionId,omitempty" json:"sessionId,omitempty"`
	Notes         string     `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt" json:"createdAt"`
}

// Beats reports whether m ranks above other as a personal best:
// higher value first, then the more recent recording, then the larger id.
func (m *PerformanceMetric) Beats(other *PerformanceMetric) bool {
	if other == nil {
		return true
	}
	if m.Value != other.Value {
		return m.Value > other.Value
	}
	if !m.RecordedAt.Equal(other.RecordedAt) {
		return m.RecordedAt.After(other.RecordedAt)
	}
	return m.ID > other.ID
}

// PersonalBestHolder records which metric currently holds the best value for
// (user, exercise, metric type). The composite key admits exactly one holder.
type PersonalBestHolder struct {
	UserID        string     `gorm:"primaryKey;type:varchar(36)" bson:"userId" json:"userId"`
	ExerciseID    string     `gorm:"primaryKey;type:varchar(36)" bson:"exerciseId" json:"exerciseId"`
	MetricType    MetricType `gorm:"primaryKey;type:varchar(16)" bson:"metricType" json:"metricType"`
	MetricID      string     `gorm:"type:varchar(36);not null" bson:"metricId" json:"metricId"`
	ExerciseLogID *string    `gorm:"type:varchar(36);index" bson:"exerciseLogId,omitempty" json:"exerciseLogId,omitempty"`
	Value         float64    `gorm:"not null" bson:"value" json:"value"`
	RecordedAt    time.Time  `gorm:"not null" bson:"recordedAt" json:"recordedAt"`
	UpdatedAt     time.Time  `bson:"updatedAt" json:"updatedAt"`
}

func (PersonalBestHolder) TableName() string { return "personal_best_holders" }

// TrainingLoad is the weekly aggregate for one user. One row per (user, week).
type TrainingLoad struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	UserID        string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_training_loads_week,priority:1" bson:"userId" json:"userId"`
	WeekStartDate time.Time `gorm:"not null;uniqueIndex:ux_training_loads_week,priority:2" bson:"weekStartDate" json:"weekStartDate"`
	Load          float64   `gorm:"not null" bson:"load" json:"load"`
	TotalVolume   float64   `gorm:"not null" bson:"totalVolume" json:"totalVolume"`
	TotalReps     int       `gorm:"not null" bson:"totalReps" json:"totalReps"`
	TotalSets     int       `gorm:"not null" bson:"totalSets" json:"totalSets"`
	TrainingDays  int       `gorm:"not null" bson:"trainingDays" json:"trainingDays"`
	AcuteLoad     float64   `gorm:"not null" bson:"acuteLoad" json:"acuteLoad"`
	ChronicLoad   float64   `gorm:"not null" bson:"chronicLoad" json:"chronicLoad"`
	LoadRatio     float64   `gorm:"not null" bson:"loadRatio" json:"loadRatio"`
	CalculatedAt  time.Time `gorm:"not null" bson:"calculatedAt" json:"calculatedAt"`
}

// ChronicWindowWeeks bounds the chronic window: the current week plus up to three
// preceding weeks that carry load.
const ChronicWindowWeeks = 4

// WeekStart returns Monday 00:00 UTC of the ISO week containing t.
func WeekStart(t time.Time) time.Time {
	day := CalendarDate(t)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

// ContributesToLoad reports whether the metric type feeds weekly training load.
func ContributesToLoad(m MetricType) bool {
	return m == MetricVolume
}

// WeekActivity is the per-week input to training load besides metrics.
type WeekActivity struct {
	SetsLogged int // sets of completed sessions only
}

// BuildTrainingLoads computes load rows for the requested weeks from the metrics
// recorded between the earliest chronic window start and the last requested week.
// Weeks are Monday dates; metrics outside the windows are ignored.
func BuildTrainingLoads(userID string, weeks []time.Time, metrics []PerformanceMetric, activity map[time.Time]WeekActivity, now time.Time) []TrainingLoad {
	type bucket struct {
		volume  float64
		reps    float64
		days    map[time.Time]bool
		counted bool
	}
	buckets := make(map[time.Time]*bucket)
	for i := range metrics {
		m := &metrics[i]
		ws := WeekStart(m.RecordedAt)
		b, ok := buckets[ws]
		if !ok {
			b = &bucket{days: make(map[time.Time]bool)}
			buckets[ws] = b
		}
		switch {
		case ContributesToLoad(m.MetricType):
			b.volume += m.Value
			b.days[CalendarDate(m.RecordedAt)] = true
			b.counted = true
		case m.MetricType == MetricEndurance:
			b.reps += m.Value
			b.days[CalendarDate(m.RecordedAt)] = true
			b.counted = true
		}
	}

	out := make([]TrainingLoad, 0, len(weeks))
	for _, ws := range weeks {
		ws = WeekStart(ws)
		row := TrainingLoad{
			UserID:        userID,
			WeekStartDate: ws,
			CalculatedAt:  now.UTC(),
			TotalSets:     activity[ws].SetsLogged,
		}
		if b, ok := buckets[ws]; ok {
			row.Load = round2(b.volume)
			row.TotalVolume = row.Load
			row.TotalReps = int(math.Round(b.reps))
			row.TrainingDays = len(b.days)
		}

		// Prior weeks without training are left out of the mean, not averaged in as zero.
		chronic, n := row.Load, 1
		for i := 1; i < ChronicWindowWeeks; i++ {
			if b, ok := buckets[ws.AddDate(0, 0, -7*i)]; ok && b.counted {
				chronic += b.volume
				n++
			}
		}
		row.AcuteLoad = row.Load
		row.ChronicLoad = round2(chronic / float64(n))
		if row.ChronicLoad > 0 {
			row.LoadRatio = round2(row.AcuteLoad / row.ChronicLoad)
		}
		out = append(out, row)
	}
	return out
}

// PersonalBest is the read model for one (exercise, metric type) record.
type PersonalBest struct {
	ExerciseID string     `json:"exerciseId"`
	Exercise   string     `json:"exercise"`
	MetricType MetricType `json:"metricType"`
	Value      float64    `json:"value"`
	Unit       string     `json:"unit"`
	RecordedAt time.Time  `json:"recordedAt"`
	MetricID   string     `json:"metricId"`
}

// Report is an exported analytics snapshot held in object storage.
type Report struct {
	ObjectKey   string    `json:"objectKey"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
	GeneratedAt time.Time `json:"generatedAt"`
}
