package controller

import (
	"time"

	"salescadence/engine"
	"salescadence/models"
	"salescadence/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type TaskController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
	Engine *engine.Engine
}

func NewTaskController(db *gorm.DB, logger *logrus.Logger, eng *engine.Engine) *TaskController {
	return &TaskController{
		DB:     db,
		Logger: logger,
		Engine: eng,
	}
}

// GetTasks returns the user's outreach tasks, open ones first
func (tc *TaskController) GetTasks(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	query := tc.DB.Where("user_id = ?", user.ID).Preload("Prospect")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if taskType := c.Query("type"); taskType != "" {
		query = query.Where("task_type = ?", taskType)
	}

	var tasks []models.OutreachTask
	if err := query.Order("status DESC").Order("due_at ASC").Find(&tasks).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch tasks", err)
	}

	return c.JSON(utils.SuccessResponse(tasks))
}

// CompleteTask marks a task done. Completing a sequence-tagged call task
// with an outcome is one of the two completion signals that move the
// prospect's enrollment forward.
func (tc *TaskController) CompleteTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var task models.OutreachTask
	if err := tc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&task).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
	}
	if task.Status == models.TaskStatusDone {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Task is already completed", nil)
	}

	var input struct {
		CallOutcome string `json:"call_outcome" validate:"omitempty,oneof=connected voicemail no_answer wrong_number"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	updates := map[string]interface{}{
		"status":       models.TaskStatusDone,
		"completed_at": time.Now(),
	}
	if input.CallOutcome != "" {
		updates["call_outcome"] = input.CallOutcome
	}
	if err := tc.DB.Model(&task).Updates(updates).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to complete task", err)
	}

	response := fiber.Map{"task": task}

	// A call that just received an outcome lets the enrollment skip ahead of
	// its schedule instead of waiting for the next sweep.
	if task.TaskType == models.StepTypeCall && task.SequenceID != nil {
		advance, err := tc.Engine.Advance(user.ID, task.ProspectID, *task.SequenceID, models.StepTypeCall)
		if err != nil {
			tc.Logger.WithError(err).WithField("task_id", task.ID).Error("advance after call outcome failed")
		} else {
			response["sequence"] = advance
		}
	}

	return c.JSON(utils.SuccessResponse(response))
}
