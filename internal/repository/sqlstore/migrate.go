package sqlstore

import (
	"fmt"

	"gorm.io/gorm"

	"alcyxob/trainer-core/internal/domain"
)

// Migrate creates the schema plus the constraints AutoMigrate cannot express:
// the single in-progress session per client and non-overlapping trainer appointments.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.TrainerClient{},
		&domain.Appointment{},
		&domain.AvailabilitySlot{},
		&domain.Exercise{},
		&domain.Program{},
		&domain.ProgramWeek{},
		&domain.ProgramWorkout{},
		&domain.WorkoutExercise{},
		&domain.SetConfiguration{},
		&domain.ProgramAssignment{},
		&domain.WorkoutSession{},
		&domain.ExerciseLog{},
		&domain.SetLog{},
		&domain.PerformanceMetric{},
		&domain.PersonalBestHolder{},
		&domain.TrainingLoad{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_workout_sessions_active_client
			ON workout_sessions (client_id) WHERE status = 'in_progress'`,
	}
	switch db.Dialector.Name() {
	case DriverPostgres:
		stmts = append(stmts, postgresConstraints...)
	case DriverSQLite:
		stmts = append(stmts, sqliteConstraints...)
	}

	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply constraint: %w", err)
		}
	}
	return nil
}

var postgresConstraints = []string{
	`CREATE EXTENSION IF NOT EXISTS btree_gist`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'appointments_no_overlap') THEN
			ALTER TABLE appointments ADD CONSTRAINT appointments_no_overlap
				EXCLUDE USING gist (
					trainer_id WITH =,
					tstzrange(start_datetime, end_datetime, '[)') WITH &&
				) WHERE (status <> 'cancelled');
		END IF;
	END $$`,
}

// SQLite has no exclusion constraints; triggers raise a constraint error instead.
// Times are stored as UTC text of one layout, so text comparison orders them.
var sqliteConstraints = []string{
	`CREATE TRIGGER IF NOT EXISTS appointments_no_overlap_insert
	BEFORE INSERT ON appointments
	WHEN NEW.status <> 'cancelled' AND EXISTS (
		SELECT 1 FROM appointments
		WHERE trainer_id = NEW.trainer_id AND status <> 'cancelled'
			AND start_datetime < NEW.end_datetime AND end_datetime > NEW.start_datetime
	)
	BEGIN
		SELECT RAISE(ABORT, 'appointments_no_overlap');
	END`,
	`CREATE TRIGGER IF NOT EXISTS appointments_no_overlap_update
	BEFORE UPDATE ON appointments
	WHEN NEW.status <> 'cancelled' AND EXISTS (
		SELECT 1 FROM appointments
		WHERE trainer_id = NEW.trainer_id AND status <> 'cancelled' AND id <> NEW.id
			AND start_datetime < NEW.end_datetime AND end_datetime > NEW.start_datetime
	)
	BEGIN
		SELECT RAISE(ABORT, 'appointments_no_overlap');
	END`,
}
