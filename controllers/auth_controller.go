package controller

import (
	"strings"

	"salescadence/models"
	"salescadence/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewAuthController(db *gorm.DB, logger *logrus.Logger) *AuthController {
	return &AuthController{
		DB:     db,
		Logger: logger,
	}
}

// Register creates a new user account
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
		Name     string `json:"name" validate:"omitempty,max=100"`
		Company  string `json:"company" validate:"omitempty,max=200"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	email := strings.ToLower(input.Email)

	var existing models.User
	if err := ac.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Email already registered", nil)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to hash password", err)
	}

	user := models.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	if input.Name != "" {
		user.Name = utils.Pointer(input.Name)
	}
	if input.Company != "" {
		user.Company = utils.Pointer(input.Company)
	}

	if err := ac.DB.Create(&user).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create user", err)
	}

	ac.Logger.WithField("user_id", user.ID).Info("user registered")

	accessToken, refreshToken, err := utils.GenerateJWTToken(&user)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate tokens", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":          user,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

// Login authenticates a user and returns a token pair
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var user models.User
	if err := ac.DB.Where("email = ?", strings.ToLower(input.Email)).First(&user).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid credentials", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid credentials", nil)
	}

	if !user.IsActive {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Account is not active", nil)
	}

	accessToken, refreshToken, err := utils.GenerateJWTToken(&user)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate tokens", err)
	}

	return c.JSON(fiber.Map{
		"user":          user,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

// RefreshToken exchanges a refresh token for a new token pair
func (ac *AuthController) RefreshToken(c *fiber.Ctx) error {
	var input struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	accessToken, refreshToken, err := utils.RefreshTokens(input.RefreshToken)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid refresh token", err)
	}

	return c.JSON(fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

// GetCurrentUser returns the authenticated user
func (ac *AuthController) GetCurrentUser(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	return c.JSON(utils.SuccessResponse(user))
}
