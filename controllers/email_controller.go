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

type EmailController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
	Engine *engine.Engine
	Mailer *utils.Mailer
}

func NewEmailController(db *gorm.DB, logger *logrus.Logger, eng *engine.Engine, mailer *utils.Mailer) *EmailController {
	return &EmailController{
		DB:     db,
		Logger: logger,
		Engine: eng,
		Mailer: mailer,
	}
}

// GetDrafts returns the user's email drafts
func (ec *EmailController) GetDrafts(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	query := ec.DB.Where("user_id = ?", user.ID).Preload("Prospect")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var drafts []models.EmailDraft
	if err := query.Order("created_at DESC").Find(&drafts).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch drafts", err)
	}

	return c.JSON(utils.SuccessResponse(drafts))
}

// UpdateDraft lets a human edit subject/body before sending
func (ec *EmailController) UpdateDraft(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var draft models.EmailDraft
	if err := ec.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&draft).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Draft not found", nil)
	}
	if draft.Status != models.EmailDraftStatusDraft {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Only unsent drafts can be edited", nil)
	}

	var input struct {
		Subject *string `json:"subject" validate:"omitempty,max=500"`
		Body    *string `json:"body"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	updates := map[string]interface{}{}
	if input.Subject != nil {
		updates["subject"] = *input.Subject
	}
	if input.Body != nil {
		updates["body"] = *input.Body
	}
	if len(updates) > 0 {
		if err := ec.DB.Model(&draft).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update draft", err)
		}
	}

	return c.JSON(utils.SuccessResponse(draft))
}

// SendDraft delivers a draft over SMTP. A successful send of a
// sequence-tagged draft is the second completion signal that moves the
// prospect's enrollment forward.
func (ec *EmailController) SendDraft(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var draft models.EmailDraft
	if err := ec.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		Preload("Prospect").
		First(&draft).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Draft not found", nil)
	}
	if draft.Status == models.EmailDraftStatusSent {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Draft has already been sent", nil)
	}

	messageID, err := ec.Mailer.SendDraft(&draft, draft.Prospect.Email)
	if err != nil {
		ec.Logger.WithError(err).WithField("draft_id", draft.ID).Error("draft delivery failed")
		if dbErr := ec.DB.Model(&draft).Updates(map[string]interface{}{
			"status":     models.EmailDraftStatusFailed,
			"last_error": err.Error(),
		}).Error; dbErr != nil {
			ec.Logger.WithError(dbErr).WithField("draft_id", draft.ID).Error("could not record delivery failure")
		}
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Failed to send email", err)
	}

	now := time.Now()
	if err := ec.DB.Model(&draft).Updates(map[string]interface{}{
		"status":     models.EmailDraftStatusSent,
		"sent_at":    now,
		"message_id": messageID,
		"last_error": "",
	}).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to record send", err)
	}

	if err := ec.DB.Model(&models.Prospect{}).Where("id = ?", draft.ProspectID).
		Update("last_contacted_at", now).Error; err != nil {
		ec.Logger.WithError(err).WithField("prospect_id", draft.ProspectID).Error("could not update last contact time")
	}

	response := fiber.Map{"draft": draft}

	if draft.SequenceID != nil {
		advance, err := ec.Engine.Advance(user.ID, draft.ProspectID, *draft.SequenceID, models.StepTypeEmail)
		if err != nil {
			ec.Logger.WithError(err).WithField("draft_id", draft.ID).Error("advance after email send failed")
		} else {
			response["sequence"] = advance
		}
	}

	return c.JSON(utils.SuccessResponse(response))
}
