package controller

import (
	"salescadence/engine"
	"salescadence/models"
	"salescadence/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type SequenceController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
	Engine *engine.Engine
}

func NewSequenceController(db *gorm.DB, logger *logrus.Logger, eng *engine.Engine) *SequenceController {
	return &SequenceController{
		DB:     db,
		Logger: logger,
		Engine: eng,
	}
}

// CreateSequence creates a sequence, optionally with its initial steps
func (sc *SequenceController) CreateSequence(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Name        string `json:"name" validate:"required,max=200"`
		Description string `json:"description" validate:"omitempty,max=2000"`
		Steps       []struct {
			Name         string `json:"name" validate:"omitempty,max=200"`
			StepType     string `json:"step_type" validate:"required,oneof=email call linkedin task wait"`
			DelayDays    int    `json:"delay_days" validate:"gte=0"`
			DelayHours   int    `json:"delay_hours" validate:"gte=0"`
			EmailSubject string `json:"email_subject"`
			EmailBody    string `json:"email_body"`
			CallScript   string `json:"call_script"`
			TaskNotes    string `json:"task_notes"`
		} `json:"steps" validate:"omitempty,dive"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	sequence := models.Sequence{
		UserID:      user.ID,
		Name:        input.Name,
		Description: input.Description,
		Status:      models.SequenceStatusActive,
	}
	for i, step := range input.Steps {
		sequence.Steps = append(sequence.Steps, models.SequenceStep{
			Name:         step.Name,
			StepOrder:    i,
			StepType:     step.StepType,
			DelayDays:    step.DelayDays,
			DelayHours:   step.DelayHours,
			EmailSubject: step.EmailSubject,
			EmailBody:    step.EmailBody,
			CallScript:   step.CallScript,
			TaskNotes:    step.TaskNotes,
		})
	}

	if err := sc.DB.Create(&sequence).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create sequence", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(sequence))
}

// GetSequences returns the user's sequences with their steps
func (sc *SequenceController) GetSequences(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var sequences []models.Sequence
	if err := sc.DB.Where("user_id = ?", user.ID).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_order ASC") }).
		Order("created_at DESC").
		Find(&sequences).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch sequences", err)
	}

	return c.JSON(utils.SuccessResponse(sequences))
}

// GetSequence returns a single sequence with steps
func (sc *SequenceController) GetSequence(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	sequence, err := sc.loadSequence(user.ID, c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}

	return c.JSON(utils.SuccessResponse(sequence))
}

// UpdateSequence updates name, description or status
func (sc *SequenceController) UpdateSequence(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	sequence, err := sc.loadSequence(user.ID, c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}

	var input struct {
		Name        *string `json:"name" validate:"omitempty,max=200"`
		Description *string `json:"description" validate:"omitempty,max=2000"`
		Status      *string `json:"status" validate:"omitempty,oneof=active inactive"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Status != nil {
		updates["status"] = *input.Status
	}

	if len(updates) > 0 {
		if err := sc.DB.Model(sequence).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update sequence", err)
		}
	}

	return c.JSON(utils.SuccessResponse(sequence))
}

// DeleteSequence removes a sequence, its steps and enrollments
func (sc *SequenceController) DeleteSequence(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	sequence, err := sc.loadSequence(user.ID, c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}

	if err := sc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("sequence_id = ?", sequence.ID).Delete(&models.SequenceEnrollment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("sequence_id = ?", sequence.ID).Delete(&models.SequenceStep{}).Error; err != nil {
			return err
		}
		return tx.Delete(sequence).Error
	}); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete sequence", err)
	}

	return c.JSON(fiber.Map{"message": "Sequence deleted successfully"})
}

// AddStep appends a step at the end of the sequence's ladder
func (sc *SequenceController) AddStep(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	sequence, err := sc.loadSequence(user.ID, c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}

	var input struct {
		Name         string `json:"name" validate:"omitempty,max=200"`
		StepType     string `json:"step_type" validate:"required,oneof=email call linkedin task wait"`
		DelayDays    int    `json:"delay_days" validate:"gte=0"`
		DelayHours   int    `json:"delay_hours" validate:"gte=0"`
		EmailSubject string `json:"email_subject"`
		EmailBody    string `json:"email_body"`
		CallScript   string `json:"call_script"`
		TaskNotes    string `json:"task_notes"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	step := models.SequenceStep{
		SequenceID:   sequence.ID,
		Name:         input.Name,
		StepOrder:    len(sequence.Steps),
		StepType:     input.StepType,
		DelayDays:    input.DelayDays,
		DelayHours:   input.DelayHours,
		EmailSubject: input.EmailSubject,
		EmailBody:    input.EmailBody,
		CallScript:   input.CallScript,
		TaskNotes:    input.TaskNotes,
	}

	if err := sc.DB.Create(&step).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create step", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(step))
}

// DeleteStep removes a step and re-packs the remaining orders so they stay
// contiguous and zero-based
func (sc *SequenceController) DeleteStep(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	sequence, err := sc.loadSequence(user.ID, c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}

	var step models.SequenceStep
	if err := sc.DB.Where("id = ? AND sequence_id = ?", c.Params("stepID"), sequence.ID).First(&step).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Step not found", nil)
	}

	if err := sc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&step).Error; err != nil {
			return err
		}
		return tx.Model(&models.SequenceStep{}).
			Where("sequence_id = ? AND step_order > ?", sequence.ID, step.StepOrder).
			UpdateColumn("step_order", gorm.Expr("step_order - 1")).Error
	}); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete step", err)
	}

	return c.JSON(fiber.Map{"message": "Step deleted successfully"})
}

// Enroll adds prospects to the sequence via the engine
func (sc *SequenceController) Enroll(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		ProspectIDs []uint `json:"prospect_ids" validate:"required,min=1"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	enrolled, err := sc.Engine.Enroll(user.ID, utils.ParseUint(c.Params("id")), input.ProspectIDs)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to enroll prospects", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"enrolled": enrolled}))
}

// GetEnrollments lists the sequence's enrollments
func (sc *SequenceController) GetEnrollments(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	sequence, err := sc.loadSequence(user.ID, c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}

	var enrollments []models.SequenceEnrollment
	query := sc.DB.Where("sequence_id = ?", sequence.ID).Preload("Prospect")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("created_at DESC").Find(&enrollments).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch enrollments", err)
	}

	return c.JSON(utils.SuccessResponse(enrollments))
}

// PauseEnrollment pauses an active enrollment
func (sc *SequenceController) PauseEnrollment(c *fiber.Ctx) error {
	return sc.setEnrollmentStatus(c, models.EnrollmentStatusPaused)
}

// ResumeEnrollment reactivates a paused enrollment
func (sc *SequenceController) ResumeEnrollment(c *fiber.Ctx) error {
	return sc.setEnrollmentStatus(c, models.EnrollmentStatusActive)
}

func (sc *SequenceController) setEnrollmentStatus(c *fiber.Ctx, status string) error {
	user := c.Locals("user").(*models.User)

	if err := sc.Engine.SetStatus(user.ID, utils.ParseUint(c.Params("enrollmentID")), status); err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Failed to update enrollment", err)
	}
	return c.JSON(fiber.Map{"message": "Enrollment updated successfully"})
}

// RemoveEnrollment hard-deletes an enrollment
func (sc *SequenceController) RemoveEnrollment(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	if err := sc.Engine.Remove(user.ID, utils.ParseUint(c.Params("enrollmentID"))); err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Failed to remove enrollment", err)
	}
	return c.JSON(fiber.Map{"message": "Enrollment removed successfully"})
}

// RunSweep triggers a sweep for the current user. Normally driven by the
// background worker; this endpoint exists for cron triggers and manual runs.
func (sc *SequenceController) RunSweep(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	result, err := sc.Engine.RunSweep(user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Sweep failed", err)
	}

	return c.JSON(utils.SuccessResponse(result))
}

func (sc *SequenceController) loadSequence(userID uint, id string) (*models.Sequence, error) {
	var sequence models.Sequence
	err := sc.DB.Where("id = ? AND user_id = ?", id, userID).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_order ASC") }).
		First(&sequence).Error
	if err != nil {
		return nil, err
	}
	return &sequence, nil
}
