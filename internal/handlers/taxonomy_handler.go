package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/naryn-heritage/heritage-backend/internal/dto"
	"github.com/naryn-heritage/heritage-backend/internal/services"
)

type TaxonomyHandler struct {
	taxonomyService *services.TaxonomyService
}

func NewTaxonomyHandler(taxonomyService *services.TaxonomyService) *TaxonomyHandler {
	return &TaxonomyHandler{taxonomyService: taxonomyService}
}

func (h *TaxonomyHandler) Categories(c *fiber.Ctx) error {
	categories, err := h.taxonomyService.Categories()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(categories)
}

func (h *TaxonomyHandler) Tags(c *fiber.Ctx) error {
	tags, err := h.taxonomyService.Tags()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tags)
}

func (h *TaxonomyHandler) CreateCategory(c *fiber.Ctx) error {
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	category, err := h.taxonomyService.CreateCategory(&req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

func (h *TaxonomyHandler) CreateTag(c *fiber.Ctx) error {
	var req dto.TagRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	tag, err := h.taxonomyService.CreateTag(&req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tag)
}

func (h *TaxonomyHandler) DeleteCategory(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid category id")
	}
	if err := h.taxonomyService.DeleteCategory(id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *TaxonomyHandler) DeleteTag(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid tag id")
	}
	if err := h.taxonomyService.DeleteTag(id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
