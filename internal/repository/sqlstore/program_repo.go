package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/repository"
)

type exerciseRepo struct {
	db *gorm.DB
}

func NewExerciseRepo(db *gorm.DB) repository.ExerciseRepository {
	return &exerciseRepo{db: db}
}

func (r *exerciseRepo) Create(ctx context.Context, exercise *domain.Exercise) error {
	if exercise.ID == "" {
		exercise.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	exercise.CreatedAt = now
	exercise.UpdatedAt = now
	return translateError(conn(ctx, r.db).Create(exercise).Error)
}

func (r *exerciseRepo) GetByID(ctx context.Context, id string) (*domain.Exercise, error) {
	var exercise domain.Exercise
	if err := conn(ctx, r.db).Where("id = ?", id).First(&exercise).Error; err != nil {
		return nil, translateError(err)
	}
	return &exercise, nil
}

func (r *exerciseRepo) ListByTrainer(ctx context.Context, trainerID string) ([]domain.Exercise, error) {
	var exercises []domain.Exercise
	err := conn(ctx, r.db).Where("trainer_id = ?", trainerID).Order("name ASC").Find(&exercises).Error
	return exercises, translateError(err)
}

type programRepo struct {
	db *gorm.DB
}

func NewProgramRepo(db *gorm.DB) repository.ProgramRepository {
	return &programRepo{db: db}
}

// CreateTree expects ids on every row; parent links are already set by the caller.
// Run it inside a transaction so a partial template is never visible.
func (r *programRepo) CreateTree(ctx context.Context, tree *domain.ProgramTree) error {
	now := time.Now().UTC()
	tree.Program.CreatedAt = now
	tree.Program.UpdatedAt = now

	db := conn(ctx, r.db)
	if err := db.Create(&tree.Program).Error; err != nil {
		return translateError(err)
	}
	if len(tree.Weeks) > 0 {
		if err := db.Create(&tree.Weeks).Error; err != nil {
			return translateError(err)
		}
	}
	if len(tree.Workouts) > 0 {
		if err := db.Create(&tree.Workouts).Error; err != nil {
			return translateError(err)
		}
	}
	if len(tree.Exercises) > 0 {
		if err := db.Create(&tree.Exercises).Error; err != nil {
			return translateError(err)
		}
	}
	if len(tree.Configurations) > 0 {
		if err := db.Create(&tree.Configurations).Error; err != nil {
			return translateError(err)
		}
	}
	return nil
}

func (r *programRepo) GetByID(ctx context.Context, id string) (*domain.Program, error) {
	var program domain.Program
	if err := conn(ctx, r.db).Where("id = ?", id).First(&program).Error; err != nil {
		return nil, translateError(err)
	}
	return &program, nil
}

func (r *programRepo) GetTree(ctx context.Context, id string) (*domain.ProgramTree, error) {
	program, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tree := &domain.ProgramTree{Program: *program}
	db := conn(ctx, r.db)

	if err := db.Where("program_id = ?", id).Order("week_number ASC").Find(&tree.Weeks).Error; err != nil {
		return nil, translateError(err)
	}
	if err := db.Where("program_id = ?", id).Order("day_number ASC").Find(&tree.Workouts).Error; err != nil {
		return nil, translateError(err)
	}
	if len(tree.Workouts) == 0 {
		return tree, nil
	}

	workoutIDs := make([]string, len(tree.Workouts))
	for i, w := range tree.Workouts {
		workoutIDs[i] = w.ID
	}
	if err := db.Where("workout_id IN ?", workoutIDs).Order("order_index ASC").Find(&tree.Exercises).Error; err != nil {
		return nil, translateError(err)
	}
	if len(tree.Exercises) == 0 {
		return tree, nil
	}

	exerciseIDs := make([]string, len(tree.Exercises))
	for i, e := range tree.Exercises {
		exerciseIDs[i] = e.ID
	}
	err = db.Where("workout_exercise_id IN ?", exerciseIDs).Order("set_number ASC").Find(&tree.Configurations).Error
	if err != nil {
		return nil, translateError(err)
	}
	return tree, nil
}

func (r *programRepo) ListByTrainer(ctx context.Context, trainerID string) ([]domain.Program, error) {
	var programs []domain.Program
	err := conn(ctx, r.db).Where("trainer_id = ?", trainerID).Order("created_at DESC").Find(&programs).Error
	return programs, translateError(err)
}

func (r *programRepo) GetWorkoutTemplate(ctx context.Context, workoutID string) (*domain.WorkoutTemplate, error) {
	db := conn(ctx, r.db)

	var workout domain.ProgramWorkout
	if err := db.Where("id = ?", workoutID).First(&workout).Error; err != nil {
		return nil, translateError(err)
	}
	tmpl := &domain.WorkoutTemplate{
		Workout:        workout,
		Configurations: make(map[string][]domain.SetConfiguration),
	}

	if err := db.Where("workout_id = ?", workoutID).Order("order_index ASC").Find(&tmpl.Exercises).Error; err != nil {
		return nil, translateError(err)
	}
	if len(tmpl.Exercises) == 0 {
		return tmpl, nil
	}

	ids := make([]string, len(tmpl.Exercises))
	for i, e := range tmpl.Exercises {
		ids[i] = e.ID
	}
	var configs []domain.SetConfiguration
	if err := db.Where("workout_exercise_id IN ?", ids).Order("set_number ASC").Find(&configs).Error; err != nil {
		return nil, translateError(err)
	}
	for _, c := range configs {
		tmpl.Configurations[c.WorkoutExerciseID] = append(tmpl.Configurations[c.WorkoutExerciseID], c)
	}
	return tmpl, nil
}

type assignmentRepo struct {
	db *gorm.DB
}

func NewAssignmentRepo(db *gorm.DB) repository.AssignmentRepository {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) Create(ctx context.Context, assignment *domain.ProgramAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	assignment.CreatedAt = time.Now().UTC()
	return translateError(conn(ctx, r.db).Create(assignment).Error)
}

func (r *assignmentRepo) GetByID(ctx context.Context, id string) (*domain.ProgramAssignment, error) {
	var assignment domain.ProgramAssignment
	if err := conn(ctx, r.db).Where("id = ?", id).First(&assignment).Error; err != nil {
		return nil, translateError(err)
	}
	return &assignment, nil
}

func (r *assignmentRepo) ListByClient(ctx context.Context, clientID string) ([]domain.ProgramAssignment, error) {
	var out []domain.ProgramAssignment
	err := conn(ctx, r.db).Where("client_id = ?", clientID).Order("start_date DESC").Find(&out).Error
	return out, translateError(err)
}

func (r *assignmentRepo) ListByTrainer(ctx context.Context, trainerID string) ([]domain.ProgramAssignment, error) {
	var out []domain.ProgramAssignment
	err := conn(ctx, r.db).Where("trainer_id = ?", trainerID).Order("start_date DESC").Find(&out).Error
	return out, translateError(err)
}
