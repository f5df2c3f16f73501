package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/naryn-heritage/heritage-backend/internal/authz"
	"github.com/naryn-heritage/heritage-backend/internal/dto"
	"github.com/naryn-heritage/heritage-backend/internal/models"
	"github.com/naryn-heritage/heritage-backend/internal/services"
)

type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	report, err := h.reportService.Create(authz.FromContext(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *ReportHandler) List(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	reports, total, err := h.reportService.List(c.Query("status"), limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return list(c, reports, total, limit, offset)
}

func (h *ReportHandler) Get(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid report id")
	}
	report, err := h.reportService.Get(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

func (h *ReportHandler) Review(c *fiber.Ctx) error {
	return h.close(c, h.reportService.Review, "Report has been reviewed.")
}

func (h *ReportHandler) Resolve(c *fiber.Ctx) error {
	return h.close(c, h.reportService.Resolve, "Report has been resolved.")
}

func (h *ReportHandler) Dismiss(c *fiber.Ctx) error {
	return h.close(c, h.reportService.Dismiss, "Report has been dismissed.")
}

func (h *ReportHandler) close(c *fiber.Ctx, apply func(uint, *authz.Actor, string) (*models.ContentReport, error), message string) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid report id")
	}
	var req dto.ReviewReportRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	report, err := apply(id, authz.FromContext(c), req.Note)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": message, "report": report})
}
