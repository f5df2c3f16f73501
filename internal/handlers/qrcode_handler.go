package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/naryn-heritage/heritage-backend/internal/authz"
	"github.com/naryn-heritage/heritage-backend/internal/dto"
	"github.com/naryn-heritage/heritage-backend/internal/services"
)

type QRCodeHandler struct {
	qrService *services.QRCodeService
}

func NewQRCodeHandler(qrService *services.QRCodeService) *QRCodeHandler {
	return &QRCodeHandler{qrService: qrService}
}

func (h *QRCodeHandler) List(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	codes, total, err := h.qrService.List(authz.FromContext(c), limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return list(c, codes, total, limit, offset)
}

func (h *QRCodeHandler) Get(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid qr code id")
	}
	q, err := h.qrService.Get(id)
	if err != nil {
		return respondError(c, err)
	}
	if !q.IsActive && !authz.FromContext(c).IsAdmin() {
		return respondError(c, services.ErrQRCodeNotFound)
	}
	return c.JSON(q)
}

// Image streams the stored PNG.
func (h *QRCodeHandler) Image(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid qr code id")
	}
	q, err := h.qrService.Get(id)
	if err != nil {
		return respondError(c, err)
	}
	if !q.IsActive && !authz.FromContext(c).IsAdmin() {
		return respondError(c, services.ErrQRCodeNotFound)
	}

	rc, err := h.qrService.Image(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="qrcode_`+q.UUID.String()+`.png"`)
	return c.SendStream(rc)
}

// Scan redirects a scanned code to its current target.
func (h *QRCodeHandler) Scan(c *fiber.Ctx) error {
	code, err := uuid.Parse(c.Params("uuid"))
	if err != nil {
		return respondError(c, services.ErrQRCodeNotFound)
	}
	target, err := h.qrService.ResolveScan(code)
	if err != nil {
		return respondError(c, err)
	}
	return c.Redirect(target, fiber.StatusFound)
}

func (h *QRCodeHandler) Create(c *fiber.Ctx) error {
	var req dto.QRCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	q, err := h.qrService.Create(c.UserContext(), authz.FromContext(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(q)
}

func (h *QRCodeHandler) Update(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid qr code id")
	}
	var req dto.QRCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	q, err := h.qrService.Update(c.UserContext(), id, authz.FromContext(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(q)
}

func (h *QRCodeHandler) Delete(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid qr code id")
	}
	if err := h.qrService.Delete(c.UserContext(), id, authz.FromContext(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
