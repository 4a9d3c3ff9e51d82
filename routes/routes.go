package routes

import (
	"salescadence/config"
	controller "salescadence/controllers"
	"salescadence/engine"
	"salescadence/middleware"
	"salescadence/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, log *logrus.Logger) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	eng := engine.New(db, log)
	mailer := utils.NewMailer(
		utils.SMTPSettings(config.AppConfig.SMTP),
		utils.SMTPSettings(config.AppConfig.SMTPFallback),
		config.AppConfig.FromName,
		config.AppConfig.FromEmail,
	)

	authController := controller.NewAuthController(db, log)
	prospectController := controller.NewProspectController(db, log)
	sequenceController := controller.NewSequenceController(db, log, eng)
	taskController := controller.NewTaskController(db, log, eng)
	emailController := controller.NewEmailController(db, log, eng, mailer)

	requestLogger := logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	})

	// Public auth endpoints
	auth := app.Group("/auth", requestLogger)
	auth.Post("/register", authController.Register)
	auth.Post("/login", authController.Login)
	auth.Post("/refresh", authController.RefreshToken)

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), requestLogger)

	api.Get("/me", authController.GetCurrentUser)

	// Prospect routes
	prospect := api.Group("/prospects")
	prospect.Post("/", prospectController.CreateProspect)
	prospect.Get("/", prospectController.GetProspects)
	prospect.Get("/:id", prospectController.GetProspect)
	prospect.Put("/:id", prospectController.UpdateProspect)
	prospect.Delete("/:id", prospectController.DeleteProspect)

	// Sequence routes
	sequence := api.Group("/sequences")
	sequence.Post("/", sequenceController.CreateSequence)
	sequence.Get("/", sequenceController.GetSequences)
	sequence.Get("/:id", sequenceController.GetSequence)
	sequence.Put("/:id", sequenceController.UpdateSequence)
	sequence.Delete("/:id", sequenceController.DeleteSequence)
	sequence.Post("/:id/steps", sequenceController.AddStep)
	sequence.Delete("/:id/steps/:stepID", sequenceController.DeleteStep)
	sequence.Get("/:id/enrollments", sequenceController.GetEnrollments)

	// Engine trigger surface, rate limited since these fan out writes
	engineLimiter := middleware.EngineRateLimiter()
	sequence.Post("/:id/enroll", engineLimiter, sequenceController.Enroll)
	api.Post("/sequences/run-sweep", engineLimiter, sequenceController.RunSweep)

	// Enrollment lifecycle
	enrollment := api.Group("/enrollments")
	enrollment.Post("/:enrollmentID/pause", sequenceController.PauseEnrollment)
	enrollment.Post("/:enrollmentID/resume", sequenceController.ResumeEnrollment)
	enrollment.Delete("/:enrollmentID", sequenceController.RemoveEnrollment)

	// Task routes (completing a call task feeds the engine's advancer)
	task := api.Group("/tasks")
	task.Get("/", taskController.GetTasks)
	task.Post("/:id/complete", taskController.CompleteTask)

	// Email draft routes (sending a draft feeds the engine's advancer)
	email := api.Group("/emails")
	email.Get("/", emailController.GetDrafts)
	email.Put("/:id", emailController.UpdateDraft)
	email.Post("/:id/send", emailController.SendDraft)

	log.Info("API routes initialized successfully")
}
