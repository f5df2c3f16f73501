package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/naryn-heritage/heritage-backend/internal/dto"
	"github.com/naryn-heritage/heritage-backend/internal/services"
)

// respondError translates service errors into the JSON error body. Server
// errors are logged and their details withheld.
func respondError(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: verr.Message, Code: "validation_error", Field: verr.Field,
		})
	}

	var terr *services.TransitionError
	if errors.As(err, &terr) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: terr.Hint, Code: "invalid_transition",
		})
	}

	status, code := fiber.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, services.ErrInvalidContentType):
		status, code = fiber.StatusBadRequest, "invalid_content_type"
	case errors.Is(err, services.ErrObjectNotFound),
		errors.Is(err, services.ErrReportNotFound),
		errors.Is(err, services.ErrQRCodeNotFound),
		errors.Is(err, services.ErrCategoryNotFound),
		errors.Is(err, services.ErrTagNotFound),
		errors.Is(err, services.ErrUserNotFound):
		status, code = fiber.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrUnauthorized):
		status, code = fiber.StatusForbidden, "forbidden"
	case errors.Is(err, services.ErrEmailTaken):
		status, code = fiber.StatusConflict, "conflict"
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken):
		status, code = fiber.StatusUnauthorized, "unauthenticated"
	}

	message := err.Error()
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
			"error", err,
		)
		message = "Internal server error"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message, Code: code})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: message, Code: "bad_request",
	})
}

// paramID reads a positive integer path parameter.
func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func pagination(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", 20)
	offset = c.QueryInt("offset", 0)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func list(c *fiber.Ctx, results interface{}, total int64, limit, offset int) error {
	return c.JSON(dto.ListResponse{Results: results, Total: total, Limit: limit, Offset: offset})
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Unauthorized", Code: "unauthenticated",
	})
}
