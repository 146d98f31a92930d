package domain

import "time"

// Exercise is an entry in a trainer's exercise catalog.
type Exercise struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	TrainerID string    `gorm:"type:varchar(36);not null;index" bson:"trainerId" json:"trainerId"`
	Name      string    `gorm:"not null" bson:"name" json:"name"`
	BodyPart  string    `bson:"bodyPart,omitempty" json:"bodyPart,omitempty"`
	Equipment string    `bson:"equipment,omitempty" json:"equipment,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Program is a static training template owned by a trainer.
// Its weeks, workouts, exercises and set configurations are stored as separate rows
// keyed by parent id; ProgramTree assembles them for reads.
type Program struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	TrainerID     string    `gorm:"type:varchar(36);not null;index" bson:"trainerId" json:"trainerId"`
	Name          string    `gorm:"not null" bson:"name" json:"name"`
	Description   string    `bson:"description,omitempty" json:"description,omitempty"`
	DurationWeeks int       `gorm:"not null" bson:"durationWeeks" json:"durationWeeks"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

type ProgramWeek struct {
	ID         string `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	ProgramID  string `gorm:"type:varchar(36);not null;index" bson:"programId" json:"programId"`
	WeekNumber int    `gorm:"not null" bson:"weekNumber" json:"weekNumber"`
	Name       string `bson:"name" json:"name"`
	IsDeload   bool   `gorm:"not null;default:false" bson:"isDeload" json:"isDeload"`
}

type ProgramWorkout struct {
	ID        string `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	ProgramID string `gorm:"type:varchar(36);not null;index" bson:"programId" json:"programId"`
	WeekID    string `gorm:"type:varchar(36);not null;index" bson:"weekId" json:"weekId"`
	DayNumber int    `gorm:"not null" bson:"dayNumber" json:"dayNumber"`
	Name      string `bson:"name" json:"name"`
	IsRestDay bool   `gorm:"not null;default:false" bson:"isRestDay" json:"isRestDay"`
}

type WorkoutExercise struct {
	ID            string `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	WorkoutID     string `gorm:"type:varchar(36);not null;index" bson:"workoutId" json:"workoutId"`
	ExerciseID    string `gorm:"type:varchar(36);not null" bson:"exerciseId" json:"exerciseId"`
	OrderIndex    int    `gorm:"not null" bson:"orderIndex" json:"orderIndex"`
	SupersetGroup string `bson:"supersetGroup,omitempty" json:"supersetGroup,omitempty"`
	Notes         string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// SetConfiguration is one prescribed set of a workout exercise.
type SetConfiguration struct {
	ID                string   `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	WorkoutExerciseID string   `gorm:"type:varchar(36);not null;index" bson:"workoutExerciseId" json:"workoutExerciseId"`
	SetNumber         int      `gorm:"not null" bson:"setNumber" json:"setNumber"`
	Reps              string   `bson:"reps,omitempty" json:"reps,omitempty"` // "8-10", "AMRAP"
	WeightKg          *float64 `bson:"weightKg,omitempty" json:"weightKg,omitempty"`
	RPE               *float64 `gorm:"column:rpe" bson:"rpe,omitempty" json:"rpe,omitempty"`
	RestSeconds       *int     `bson:"restSeconds,omitempty" json:"restSeconds,omitempty"`
	DurationSeconds   *int     `bson:"durationSeconds,omitempty" json:"durationSeconds,omitempty"`
}

// ProgramTree is a program with all of its template rows, grouped for reads.
type ProgramTree struct {
	Program        Program
	Weeks          []ProgramWeek
	Workouts       []ProgramWorkout
	Exercises      []WorkoutExercise
	Configurations []SetConfiguration
}

// WorkoutTemplate is a single workout with its exercises and their configurations.
type WorkoutTemplate struct {
	Workout        ProgramWorkout
	Exercises      []WorkoutExercise
	Configurations map[string][]SetConfiguration // keyed by WorkoutExerciseID
}

// PlannedSets counts the prescribed sets across the workout.
func (t *WorkoutTemplate) PlannedSets() int {
	n := 0
	for _, ex := range t.Exercises {
		n += len(t.Configurations[ex.ID])
	}
	return n
}

// ProgramAssignment binds a program to a client for a calendar window.
// StartDate and EndDate are calendar dates stored as UTC midnight.
type ProgramAssignment struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	ProgramID string    `gorm:"type:varchar(36);not null;index" bson:"programId" json:"programId"`
	ClientID  string    `gorm:"type:varchar(36);not null;index" bson:"clientId" json:"clientId"`
	TrainerID string    `gorm:"type:varchar(36);not null;index" bson:"trainerId" json:"trainerId"`
	StartDate time.Time `gorm:"not null" bson:"startDate" json:"startDate"`
	EndDate   time.Time `gorm:"not null" bson:"endDate" json:"endDate"`
	IsActive  bool      `gorm:"not null" bson:"isActive" json:"isActive"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Covers reports whether t falls on a calendar day inside [StartDate, EndDate].
func (a *ProgramAssignment) Covers(t time.Time) bool {
	day := CalendarDate(t)
	return !day.Before(a.StartDate) && !day.After(a.EndDate)
}
