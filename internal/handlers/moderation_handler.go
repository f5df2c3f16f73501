package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/naryn-heritage/heritage-backend/internal/authz"
	"github.com/naryn-heritage/heritage-backend/internal/dto"
	"github.com/naryn-heritage/heritage-backend/internal/models"
	"github.com/naryn-heritage/heritage-backend/internal/services"
)

type ModerationHandler struct {
	moderationService *services.ModerationService
}

func NewModerationHandler(moderationService *services.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderationService: moderationService}
}

func (h *ModerationHandler) Pending(c *fiber.Ctx) error {
	pending, err := h.moderationService.Pending()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pending)
}

func (h *ModerationHandler) Dashboard(c *fiber.Ctx) error {
	d, err := h.moderationService.Dashboard(authz.FromContext(c).UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(d)
}

// Logs lists the audit trail, optionally narrowed to one item or one moderator.
func (h *ModerationHandler) Logs(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	f := services.LogFilter{Limit: limit, Offset: offset}

	if kind := c.Query("content_type"); kind != "" {
		id := c.QueryInt("object_id", 0)
		if id <= 0 {
			return badRequest(c, "object_id is required with content_type")
		}
		ref, err := services.ParseRef(kind, uint(id))
		if err != nil {
			return respondError(c, err)
		}
		f.Ref = &ref
	}
	if v := c.Query("moderator"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return badRequest(c, "Invalid moderator id")
		}
		f.ModeratorID = &id
	}

	logs, total, err := h.moderationService.ListLogs(f)
	if err != nil {
		return respondError(c, err)
	}
	return list(c, logs, total, limit, offset)
}

func (h *ModerationHandler) Approve(c *fiber.Ctx) error {
	return h.transition(c, func(ref models.ContentRef, actor *authz.Actor, comment string) (models.Moderatable, error) {
		return h.moderationService.Approve(ref, actor, comment)
	}, "approved")
}

func (h *ModerationHandler) Reject(c *fiber.Ctx) error {
	return h.transition(c, func(ref models.ContentRef, actor *authz.Actor, comment string) (models.Moderatable, error) {
		return h.moderationService.Reject(ref, actor, comment)
	}, "rejected")
}

func (h *ModerationHandler) Publish(c *fiber.Ctx) error {
	return h.transition(c, func(ref models.ContentRef, actor *authz.Actor, _ string) (models.Moderatable, error) {
		return h.moderationService.Publish(ref, actor)
	}, "published")
}

func (h *ModerationHandler) Unpublish(c *fiber.Ctx) error {
	return h.transition(c, func(ref models.ContentRef, actor *authz.Actor, comment string) (models.Moderatable, error) {
		return h.moderationService.Unpublish(ref, actor, comment)
	}, "unpublished")
}

type transitionFunc func(ref models.ContentRef, actor *authz.Actor, comment string) (models.Moderatable, error)

func (h *ModerationHandler) transition(c *fiber.Ctx, apply transitionFunc, verb string) error {
	var req dto.ModerationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	ref, err := services.ParseRef(req.ContentType, req.ObjectID)
	if err != nil {
		return respondError(c, err)
	}

	item, err := apply(ref, authz.FromContext(c), req.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(moderationResponse(item, fmt.Sprintf("The %s has been %s.", ref.Kind, verb)))
}
