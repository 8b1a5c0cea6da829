package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/cupido/internal/middleware"
	"github.com/example/cupido/internal/services"
	"github.com/example/cupido/internal/utils"
)

// FidelityHandler exposes the fidelity-test API.
type FidelityHandler struct {
	fidelity *services.FidelityService
}

// NewFidelityHandler constructs FidelityHandler.
func NewFidelityHandler(fidelity *services.FidelityService) *FidelityHandler {
	return &FidelityHandler{fidelity: fidelity}
}

func fidelityError(err error) error {
	switch {
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrTestInactive),
		errors.Is(err, services.ErrSendFailed):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidLogin):
		return fiber.NewError(fiber.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, services.ErrTestNotFound):
		return fiber.NewError(fiber.StatusNotFound, "test not found")
	case errors.Is(err, services.ErrNotOwner):
		return fiber.NewError(fiber.StatusForbidden, "access denied")
	default:
		return err
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Register creates a fidelity user and returns a session token.
func (h *FidelityHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name == "" || req.Email == "" || req.Phone == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "all fields are required")
	}
	if len(req.Password) < 6 {
		return fiber.NewError(fiber.StatusBadRequest, "password must be at least 6 characters")
	}
	if !utils.ValidatePhone(req.Phone) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid phone")
	}

	token, userID, err := h.fidelity.Register(c.Context(), req.Name, req.Email, req.Phone, req.Password)
	if err != nil {
		return fidelityError(err)
	}

	return c.JSON(fiber.Map{"success": true, "token": token, "user_id": userID})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a fidelity user.
func (h *FidelityHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "all fields are required")
	}

	token, userID, err := h.fidelity.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return fidelityError(err)
	}

	return c.JSON(fiber.Map{"success": true, "token": token, "user_id": userID})
}

type createTestRequest struct {
	TargetPhone  string `json:"target_phone"`
	FirstMessage string `json:"first_message"`
}

// CreateTest starts a new fidelity test.
func (h *FidelityHandler) CreateTest(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createTestRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.TargetPhone == "" || req.FirstMessage == "" {
		return fiber.NewError(fiber.StatusBadRequest, "all fields are required")
	}
	if !utils.ValidatePhone(req.TargetPhone) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid target phone")
	}

	test, err := h.fidelity.CreateTest(c.Context(), userID, req.TargetPhone, req.FirstMessage)
	if err != nil {
		return fidelityError(err)
	}

	return c.JSON(fiber.Map{"success": true, "test_id": test.ID})
}

// ListTests returns the authenticated user's tests.
func (h *FidelityHandler) ListTests(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	tests, err := h.fidelity.ListTests(c.Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "tests": tests})
}

// Messages returns a test's conversation, blurred outside the paid
// window.
func (h *FidelityHandler) Messages(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	testID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "test not found")
	}

	msgs, test, err := h.fidelity.Messages(c.Context(), testID, userID)
	if err != nil {
		return fidelityError(err)
	}

	blurred := !h.fidelity.IsActive(test)
	return c.JSON(fiber.Map{
		"success":     true,
		"messages":    msgs,
		"blurred":     blurred,
		"test_status": test.Status,
		"expires_at":  test.ExpiresAt,
	})
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessage sends a message within an active test.
func (h *FidelityHandler) SendMessage(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	testID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "test not found")
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Content == "" {
		return fiber.NewError(fiber.StatusBadRequest, "message must not be empty")
	}

	if err := h.fidelity.SendMessage(c.Context(), testID, userID, req.Content); err != nil {
		return fidelityError(err)
	}

	return c.JSON(fiber.Map{"success": true})
}
