package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/naryn-heritage/heritage-backend/internal/authz"
	"github.com/naryn-heritage/heritage-backend/internal/dto"
	"github.com/naryn-heritage/heritage-backend/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.authService.Refresh(&req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.authService.Logout(&req); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actor := authz.FromContext(c)
	if !actor.Authenticated() {
		return unauthenticated(c)
	}

	resp, err := h.authService.Me(actor.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	actor := authz.FromContext(c)
	if !actor.Authenticated() {
		return unauthenticated(c)
	}

	var req dto.DeleteAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.authService.DeleteAccount(actor.UserID, req.Password); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Account deleted successfully"})
}

func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	actor := authz.FromContext(c)
	if !actor.Authenticated() {
		return unauthenticated(c)
	}

	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.authService.UpdateProfile(actor.UserID, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	actor := authz.FromContext(c)
	if !actor.Authenticated() {
		return unauthenticated(c)
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.authService.ChangePassword(actor.UserID, &req); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password changed successfully"})
}

// RequestPasswordReset answers the same way whether or not the email is registered.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.authService.RequestPasswordReset(&req); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password reset email has been sent"})
}

func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.authService.ConfirmPasswordReset(&req); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password has been reset"})
}
