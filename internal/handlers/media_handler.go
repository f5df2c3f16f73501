package handlers

import (
	"errors"
	"path"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/naryn-heritage/heritage-backend/internal/dto"
	"github.com/naryn-heritage/heritage-backend/internal/storage"
)

// inlineTypes are the only media types served for display. Anything else is
// sent as an attachment.
var inlineTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".ogg":  "video/ogg",
	".ogv":  "video/ogg",
	".mov":  "video/quicktime",
}

// MediaHandler serves uploaded files and QR images from the storage backend.
type MediaHandler struct {
	media storage.Backend
}

func NewMediaHandler(media storage.Backend) *MediaHandler {
	return &MediaHandler{media: media}
}

func (h *MediaHandler) Serve(c *fiber.Ctx) error {
	key, err := storage.CleanKey(c.Params("*"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "File not found", Code: "not_found",
		})
	}

	rc, err := h.media.Download(c.UserContext(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "File not found", Code: "not_found",
			})
		}
		return respondError(c, err)
	}

	if ct, ok := inlineTypes[strings.ToLower(path.Ext(key))]; ok {
		c.Set(fiber.HeaderContentType, ct)
	} else {
		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+path.Base(key)+`"`)
	}
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.SendStream(rc)
}
