package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/naryn-heritage/heritage-backend/internal/authz"
	"github.com/naryn-heritage/heritage-backend/internal/dto"
	"github.com/naryn-heritage/heritage-backend/internal/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	users, total, err := h.userService.List(authz.FromContext(c), limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return list(c, users, total, limit, offset)
}

func (h *UserHandler) SetRole(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}
	var req dto.SetRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := h.userService.SetRole(authz.FromContext(c), userID, req.Role)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}
