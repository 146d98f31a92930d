package domain

import (
	"math"
	"time"
)

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionAbandoned  SessionStatus = "abandoned"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionInProgress, SessionCompleted, SessionAbandoned:
		return true
	}
	return false
}

// WorkoutSession is one live execution of a workout by a client.
// A client has at most one session in progress; the store enforces it.
type WorkoutSession struct {
	ID                  string        `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	ClientID            string        `gorm:"type:varchar(36);not null;index" bson:"clientId" json:"clientId"`
	TrainerID           *string       `gorm:"type:varchar(36);index" bson:"trainerId,omitempty" json:"trainerId,omitempty"`
	ProgramAssignmentID *string       `gorm:"type:varchar(36)" bson:"programAssignmentId,omitempty" json:"programAssignmentId,omitempty"`
	WorkoutID           *string       `gorm:"type:varchar(36)" bson:"workoutId,omitempty" json:"workoutId,omitempty"`
	Status              SessionStatus `gorm:"type:varchar(16);not null" bson:"status" json:"status"`
	ActualStartTime     time.Time     `gorm:"not null;index" bson:"actualStartTime" json:"actualStartTime"`
	ActualEndTime       *time.Time    `bson:"actualEndTime,omitempty" json:"actualEndTime,omitempty"`
	Notes               string        `bson:"notes,omitempty" json:"notes,omitempty"`
	TotalSets           int           `gorm:"not null;default:0" bson:"totalSets" json:"totalSets"`
	CompletedSets       int           `gorm:"not null;default:0" bson:"completedSets" json:"completedSets"`
	TotalVolume         float64       `gorm:"not null;default:0" bson:"totalVolume" json:"totalVolume"`
	AverageRPE          *float64      `gorm:"column:average_rpe" bson:"averageRpe,omitempty" json:"averageRpe,omitempty"`
	DurationMinutes     *int          `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`
	AdherenceScore      *float64      `bson:"adherenceScore,omitempty" json:"adherenceScore,omitempty"`
	CreatedAt           time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time     `bson:"updatedAt" json:"updatedAt"`
}

func (s *WorkoutSession) IsActive() bool {
	return s.Status == SessionInProgress
}

// ExerciseLog is one exercise performed inside a session.
type ExerciseLog struct {
	ID                string     `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	SessionID         string     `gorm:"type:varchar(36);not null;index" bson:"sessionId" json:"sessionId"`
	ExerciseID        string     `gorm:"type:varchar(36);not null;index" bson:"exerciseId" json:"exerciseId"`
	WorkoutExerciseID *string    `gorm:"type:varchar(36)" bson:"workoutExerciseId,omitempty" json:"workoutExerciseId,omitempty"`
	OrderIndex        int        `gorm:"not null" bson:"orderIndex" json:"orderIndex"`
	SupersetGroup     string     `bson:"supersetGroup,omitempty" json:"supersetGroup,omitempty"`
	Skipped           bool       `gorm:"not null;default:false" bson:"skipped" json:"skipped"`
	PersonalBest      bool       `gorm:"not null;default:false" bson:"personalBest" json:"personalBest"`
	TotalVolume       float64    `gorm:"not null;default:0" bson:"totalVolume" json:"totalVolume"`
	CompletedAt       *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedAt         time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// SetLog is one performed set. Rows are append-only and unique per (exercise log, set number).
type SetLog struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	ExerciseLogID   string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_set_logs_number,priority:1" bson:"exerciseLogId" json:"exerciseLogId"`
	SessionID       string    `gorm:"type:varchar(36);not null;index" bson:"sessionId" json:"sessionId"`
	SetNumber       int       `gorm:"not null;uniqueIndex:ux_set_logs_number,priority:2" bson:"setNumber" json:"setNumber"`
	Reps            *int      `bson:"reps,omitempty" json:"reps,omitempty"`
	WeightKg        *float64  `bson:"weightKg,omitempty" json:"weightKg,omitempty"`
	DurationSeconds *int      `bson:"durationSeconds,omitempty" json:"durationSeconds,omitempty"`
	RPE             *float64  `gorm:"column:rpe" bson:"rpe,omitempty" json:"rpe,omitempty"`
	RIR             *int      `gorm:"column:rir" bson:"rir,omitempty" json:"rir,omitempty"`
	Notes           string    `bson:"notes,omitempty" json:"notes,omitempty"`
	LoggedAt        time.Time `gorm:"not null" bson:"loggedAt" json:"loggedAt"`
}

// Volume is reps x weight, zero when either is missing.
func (s *SetLog) Volume() float64 {
	if s.Reps == nil || s.WeightKg == nil {
		return 0
	}
	return float64(*s.Reps) * *s.WeightKg
}

// ExerciseVolume sums the volume of the given sets.
func ExerciseVolume(sets []SetLog) float64 {
	total := 0.0
	for i := range sets {
		total += sets[i].Volume()
	}
	return total
}

// ExerciseTotals is what a finished exercise log contributes to analytics.
type ExerciseTotals struct {
	Volume    float64
	Reps      int
	MaxWeight float64
}

func SummarizeSets(sets []SetLog) ExerciseTotals {
	var t ExerciseTotals
	for i := range sets {
		t.Volume += sets[i].Volume()
		if sets[i].Reps != nil {
			t.Reps += *sets[i].Reps
		}
		if sets[i].WeightKg != nil && *sets[i].WeightKg > t.MaxWeight {
			t.MaxWeight = *sets[i].WeightKg
		}
	}
	return t
}

// SessionSummary holds the aggregates written on completion.
type SessionSummary struct {
	CompletedSets   int
	TotalVolume     float64
	AverageRPE      *float64
	DurationMinutes int
	AdherenceScore  *float64
}

// SummarizeSession computes completion aggregates over the sets of non-skipped logs.
func SummarizeSession(session *WorkoutSession, logs []ExerciseLog, sets []SetLog, endedAt time.Time) SessionSummary {
	skipped := make(map[string]bool, len(logs))
	for _, l := range logs {
		if l.Skipped {
			skipped[l.ID] = true
		}
	}

	var sum SessionSummary
	var rpeTotal float64
	var rpeCount int
	for i := range sets {
		if skipped[sets[i].ExerciseLogID] {
			continue
		}
		sum.CompletedSets++
		sum.TotalVolume += sets[i].Volume()
		if sets[i].RPE != nil {
			rpeTotal += *sets[i].RPE
			rpeCount++
		}
	}
	if rpeCount > 0 {
		avg := round2(rpeTotal / float64(rpeCount))
		sum.AverageRPE = &avg
	}
	sum.DurationMinutes = int(endedAt.Sub(session.ActualStartTime).Round(time.Minute) / time.Minute)
	if session.TotalSets > 0 {
		score := round2(float64(sum.CompletedSets) / float64(session.TotalSets) * 100)
		sum.AdherenceScore = &score
	}
	return sum
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
