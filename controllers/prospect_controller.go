package controller

import (
	"strings"

	"salescadence/models"
	"salescadence/utils"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ProspectController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewProspectController(db *gorm.DB, logger *logrus.Logger) *ProspectController {
	return &ProspectController{
		DB:     db,
		Logger: logger,
	}
}

// CreateProspect creates a new prospect with validation
func (pc *ProspectController) CreateProspect(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Name        string `json:"name" validate:"required,max=200"`
		Email       string `json:"email" validate:"required,email"`
		Company     string `json:"company" validate:"omitempty,max=200"`
		Title       string `json:"title" validate:"omitempty,max=200"`
		Phone       string `json:"phone" validate:"omitempty,max=50"`
		LinkedInURL string `json:"linkedin_url" validate:"omitempty,url"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if err := checkmail.ValidateFormat(input.Email); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid email address", err)
	}

	email := strings.ToLower(input.Email)

	var existing models.Prospect
	if err := pc.DB.Where("email = ? AND user_id = ?", email, user.ID).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Prospect with this email already exists", nil)
	}

	prospect := models.Prospect{
		UserID:      user.ID,
		Name:        input.Name,
		Email:       email,
		Company:     input.Company,
		Title:       input.Title,
		Phone:       input.Phone,
		LinkedInURL: input.LinkedInURL,
	}

	if err := pc.DB.Create(&prospect).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create prospect", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(prospect))
}

// GetProspects returns a paginated list of prospects with filters
func (pc *ProspectController) GetProspects(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := pc.DB.Model(&models.Prospect{}).Where("user_id = ?", user.ID)

	if search := c.Query("search"); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company) LIKE ?", like, like, like)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count prospects", err)
	}

	var prospects []models.Prospect
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&prospects).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch prospects", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  prospects,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetProspect returns a single prospect with its enrollments
func (pc *ProspectController) GetProspect(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var prospect models.Prospect
	if err := pc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		Preload("Enrollments").
		First(&prospect).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Prospect not found", nil)
	}

	return c.JSON(utils.SuccessResponse(prospect))
}

// UpdateProspect updates a prospect's editable fields
func (pc *ProspectController) UpdateProspect(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var prospect models.Prospect
	if err := pc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&prospect).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Prospect not found", nil)
	}

	var input struct {
		Name        *string `json:"name" validate:"omitempty,max=200"`
		Company     *string `json:"company" validate:"omitempty,max=200"`
		Title       *string `json:"title" validate:"omitempty,max=200"`
		Phone       *string `json:"phone" validate:"omitempty,max=50"`
		LinkedInURL *string `json:"linkedin_url" validate:"omitempty,url"`
		Status      *string `json:"status" validate:"omitempty,oneof=new contacted replied won lost"`
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
	if input.Company != nil {
		updates["company"] = *input.Company
	}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.LinkedInURL != nil {
		updates["linked_in_url"] = *input.LinkedInURL
	}
	if input.Status != nil {
		updates["status"] = *input.Status
	}

	if len(updates) > 0 {
		if err := pc.DB.Model(&prospect).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update prospect", err)
		}
	}

	return c.JSON(utils.SuccessResponse(prospect))
}

// DeleteProspect removes a prospect and its enrollments
func (pc *ProspectController) DeleteProspect(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var prospect models.Prospect
	if err := pc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&prospect).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Prospect not found", nil)
	}

	if err := pc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("prospect_id = ?", prospect.ID).Delete(&models.SequenceEnrollment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&prospect).Error
	}); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete prospect", err)
	}

	return c.JSON(fiber.Map{"message": "Prospect deleted successfully"})
}
