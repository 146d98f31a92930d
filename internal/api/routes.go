package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/metrics"
	"alcyxob/trainer-core/internal/service"
)

// RouterConfig carries the middleware dependencies. A nil RateLimiter or Redis
// client turns the matching middleware off.
type RouterConfig struct {
	JWTSecret       string
	RateLimiter     RequestRateLimiter
	WritesPerMinute int
	Redis           *redis.Client
	IdempotencyTTL  time.Duration
	Metrics         *metrics.Manager
	Log             *logger.Logger
	ServiceName     string
}

type Services struct {
	Trainer    service.TrainerService
	Exercise   service.ExerciseService
	Scheduling service.SchedulingService
	Program    service.ProgramService
	Workout    service.WorkoutService
	Analytics  service.AnalyticsService
}

func SetupRoutes(router *gin.Engine, cfg RouterConfig, svc Services) {
	registerValidators()

	log := cfg.Log.With("component", "api")
	trainerHandler := NewTrainerHandler(svc.Trainer, log)
	exerciseHandler := NewExerciseHandler(svc.Exercise, log)
	scheduleHandler := NewScheduleHandler(svc.Scheduling, log)
	programHandler := NewProgramHandler(svc.Program, log)
	workoutHandler := NewWorkoutHandler(svc.Workout, log)
	analyticsHandler := NewAnalyticsHandler(svc.Analytics, log)

	if cfg.ServiceName != "" {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}
	router.Use(RequestLogger(log), RequestMetrics(cfg.Metrics))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	trainerOnly := RoleMiddleware(domain.RoleTrainer)
	clientOnly := RoleMiddleware(domain.RoleClient)

	protected := router.Group("/api/v1")
	protected.Use(
		AuthMiddleware(cfg.JWTSecret),
		RateLimit(cfg.RateLimiter, cfg.Metrics, log, cfg.WritesPerMinute),
		Idempotency(cfg.Redis, cfg.IdempotencyTTL, cfg.Metrics, log),
	)
	{
		protected.GET("/me", func(c *gin.Context) {
			caller, ok := principal(c)
			if !ok {
				return
			}
			respond(c, http.StatusOK, caller)
		})

		// --- Schedule Routes ---
		schedule := protected.Group("/schedule")
		{
			schedule.POST("/appointments", trainerOnly, scheduleHandler.CreateAppointment)
			schedule.GET("/appointments", scheduleHandler.ListAppointments)
			schedule.GET("/appointments/:id", scheduleHandler.GetAppointment)
			schedule.PUT("/appointments/:id", trainerOnly, scheduleHandler.UpdateAppointment)
			schedule.DELETE("/appointments/:id", scheduleHandler.CancelAppointment)
			schedule.GET("/conflicts", trainerOnly, scheduleHandler.CheckConflict)

			schedule.GET("/availability", trainerOnly, scheduleHandler.ListAvailability)
			schedule.POST("/availability", trainerOnly, scheduleHandler.SetAvailability)
			schedule.DELETE("/availability/:slotId", trainerOnly, scheduleHandler.DeleteAvailability)
		}

		// --- Trainer Specific Routes ---
		trainerGroup := protected.Group("/trainer")
		trainerGroup.Use(trainerOnly)
		{
			trainerGroup.POST("/clients", trainerHandler.AddClient)
			trainerGroup.GET("/clients", trainerHandler.GetManagedClients)
			trainerGroup.DELETE("/clients/:clientId", trainerHandler.RemoveClient)
		}

		// --- Exercise Routes ---
		exercises := protected.Group("/exercises")
		exercises.Use(trainerOnly)
		{
			exercises.POST("", exerciseHandler.CreateExercise)
			exercises.GET("", exerciseHandler.GetTrainerExercises)
		}

		// --- Program Routes ---
		programs := protected.Group("/programs")
		programs.Use(trainerOnly)
		{
			programs.POST("", programHandler.CreateProgram)
			programs.GET("", programHandler.ListPrograms)
			programs.GET("/:id", programHandler.GetProgram)
			programs.POST("/:id/assign", programHandler.AssignProgram)
		}
		protected.GET("/assignments", programHandler.ListAssignments)

		// --- Workout Session Routes ---
		workouts := protected.Group("/workouts")
		{
			workouts.GET("/active", clientOnly, workoutHandler.GetActiveSession)
			workouts.POST("/start", RoleMiddleware(domain.RoleClient, domain.RoleTrainer), workoutHandler.StartSession)
			workouts.GET("/history", workoutHandler.History)
			workouts.GET("/:id", workoutHandler.GetSession)
			workouts.POST("/:id/sets", clientOnly, workoutHandler.LogSet)
			workouts.POST("/:id/exercises", clientOnly, workoutHandler.AddExercise)
			workouts.POST("/:id/exercises/:logId/skip", clientOnly, workoutHandler.SkipExercise)
			workouts.POST("/:id/exercises/:logId/complete", clientOnly, workoutHandler.CompleteExercise)
			workouts.POST("/:id/complete", clientOnly, workoutHandler.CompleteSession)
			workouts.POST("/:id/abandon", clientOnly, workoutHandler.AbandonSession)
		}

		// --- Analytics Routes ---
		analytics := protected.Group("/analytics")
		{
			analytics.POST("/performance", analyticsHandler.RecordMetric)
			analytics.GET("/performance", analyticsHandler.ListMetrics)
			analytics.GET("/performance/:userId/personal-bests", analyticsHandler.GetPersonalBests)
			analytics.GET("/training-load/:userId", analyticsHandler.GetTrainingLoad)
			analytics.POST("/reports", analyticsHandler.ExportReport)
		}
	}
}
