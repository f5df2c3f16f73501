package handlers

import (
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/naryn-heritage/heritage-backend/internal/authz"
	"github.com/naryn-heritage/heritage-backend/internal/dto"
	"github.com/naryn-heritage/heritage-backend/internal/models"
	"github.com/naryn-heritage/heritage-backend/internal/services"
)

// uploadFields are the multipart file fields accepted on create and update.
var uploadFields = []string{"featured_image", "image", "thumbnail", "video_file"}

// ContentHandler serves the same CRUD surface for every content kind; each
// method returns a handler bound to one kind.
type ContentHandler struct {
	content    *services.ContentService
	moderation *services.ModerationService
}

func NewContentHandler(content *services.ContentService, moderation *services.ModerationService) *ContentHandler {
	return &ContentHandler{content: content, moderation: moderation}
}

func (h *ContentHandler) List(kind models.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset := pagination(c)
		p := services.ListParams{
			Status:   c.Query("status"),
			Tag:      c.Query("tag"),
			Query:    c.Query("q"),
			Ordering: c.Query("ordering"),
			Limit:    limit,
			Offset:   offset,
		}
		if v := c.Query("category"); v != "" {
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return badRequest(c, "category must be an integer id")
			}
			category := uint(id)
			p.CategoryID = &category
		}
		if v := c.Query("featured"); v != "" {
			featured, err := strconv.ParseBool(v)
			if err != nil {
				return badRequest(c, "featured must be true or false")
			}
			p.Featured = &featured
		}

		items, total, err := h.content.List(kind, authz.FromContext(c), p)
		if err != nil {
			return respondError(c, err)
		}
		return list(c, items, total, limit, offset)
	}
}

func (h *ContentHandler) Get(kind models.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref, ok := refParam(c, kind)
		if !ok {
			return badRequest(c, "Invalid id")
		}
		item, err := h.content.Get(ref, authz.FromContext(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(item)
	}
}

func (h *ContentHandler) Create(kind models.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, uploads, closeAll, err := parseContentRequest(c)
		if err != nil {
			return respondError(c, err)
		}
		defer closeAll()

		item, err := h.content.Create(c.UserContext(), kind, authz.FromContext(c), req, uploads)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(item)
	}
}

func (h *ContentHandler) Update(kind models.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref, ok := refParam(c, kind)
		if !ok {
			return badRequest(c, "Invalid id")
		}
		req, uploads, closeAll, err := parseContentRequest(c)
		if err != nil {
			return respondError(c, err)
		}
		defer closeAll()

		item, err := h.content.Update(c.UserContext(), ref, authz.FromContext(c), req, uploads)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(item)
	}
}

func (h *ContentHandler) Delete(kind models.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref, ok := refParam(c, kind)
		if !ok {
			return badRequest(c, "Invalid id")
		}
		if err := h.content.Delete(c.UserContext(), ref, authz.FromContext(c)); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func (h *ContentHandler) Submit(kind models.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref, ok := refParam(c, kind)
		if !ok {
			return badRequest(c, "Invalid id")
		}
		var req dto.CommentRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "Invalid request body")
			}
		}
		item, err := h.moderation.SubmitForReview(ref, authz.FromContext(c), req.Comment)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(moderationResponse(item, "Your content has been submitted for review."))
	}
}

func (h *ContentHandler) Revise(kind models.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref, ok := refParam(c, kind)
		if !ok {
			return badRequest(c, "Invalid id")
		}
		var req dto.CommentRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "Invalid request body")
			}
		}
		item, err := h.moderation.Revise(ref, authz.FromContext(c), req.Comment)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(moderationResponse(item, "Your content has been returned to draft."))
	}
}

func (h *ContentHandler) View(kind models.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref, ok := refParam(c, kind)
		if !ok {
			return badRequest(c, "Invalid id")
		}
		if err := h.content.IncrementView(ref, authz.FromContext(c)); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func refParam(c *fiber.Ctx, kind models.Kind) (models.ContentRef, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return models.ContentRef{}, false
	}
	return models.ContentRef{Kind: kind, ObjectID: id}, true
}

func moderationResponse(item models.Moderatable, message string) dto.ModerationResponse {
	base := item.Base()
	return dto.ModerationResponse{
		ContentType: item.Kind(),
		ObjectID:    base.ID,
		Status:      base.Status,
		IsPublished: base.IsPublished,
		Message:     message,
	}
}

// parseContentRequest reads a JSON or multipart body. The returned func
// closes any opened upload files.
func parseContentRequest(c *fiber.Ctx) (*dto.ContentRequest, []services.Upload, func(), error) {
	nop := func() {}
	var req dto.ContentRequest

	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if err := c.BodyParser(&req); err != nil {
			return nil, nil, nop, &services.ValidationError{Field: "body", Message: "Invalid request body"}
		}
		return &req, nil, nop, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, nop, &services.ValidationError{Field: "body", Message: "Invalid multipart form"}
	}
	if err := decodeForm(&req, form.Value); err != nil {
		return nil, nil, nop, err
	}

	var (
		uploads []services.Upload
		files   []io.Closer
	)
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	for _, field := range uploadFields {
		headers := form.File[field]
		if len(headers) == 0 {
			continue
		}
		f, err := headers[0].Open()
		if err != nil {
			closeAll()
			return nil, nil, nop, &services.ValidationError{Field: field, Message: "The submitted file could not be read."}
		}
		files = append(files, f)
		uploads = append(uploads, services.Upload{
			Field:       field,
			Filename:    headers[0].Filename,
			ContentType: headers[0].Header.Get(fiber.HeaderContentType),
			Size:        headers[0].Size,
			Body:        f,
		})
	}
	return &req, uploads, closeAll, nil
}

func decodeForm(req *dto.ContentRequest, values map[string][]string) error {
	get := func(name string) (string, bool) {
		v, ok := values[name]
		if !ok || len(v) == 0 {
			return "", false
		}
		return v[0], true
	}
	str := func(name string) *string {
		if v, ok := get(name); ok {
			return &v
		}
		return nil
	}

	req.Title = str("title")
	req.Content = str("content")
	req.Summary = str("summary")
	req.Description = str("description")
	req.Location = str("location")
	req.Period = str("period")
	req.HistoricalPeriod = str("historical_period")
	req.AltText = str("alt_text")
	req.VideoURL = str("video_url")

	for name, dst := range map[string]**float64{"latitude": &req.Latitude, "longitude": &req.Longitude} {
		v, ok := get(name)
		if !ok || v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &services.ValidationError{Field: name, Message: "A valid number is required."}
		}
		*dst = &f
	}
	if v, ok := get("duration"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &services.ValidationError{Field: "duration", Message: "A valid integer is required."}
		}
		req.Duration = &n
	}
	if v, ok := get("category"); ok && v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return &services.ValidationError{Field: "category", Message: "A valid integer is required."}
		}
		category := uint(id)
		req.CategoryID = &category
	}
	if v, ok := get("is_featured"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &services.ValidationError{Field: "is_featured", Message: "Must be a valid boolean."}
		}
		req.IsFeatured = &b
	}
	if raw, ok := values["tags"]; ok {
		ids, err := parseTagIDs(raw)
		if err != nil {
			return err
		}
		req.TagIDs = &ids
	}
	return nil
}

// parseTagIDs accepts repeated tags fields, comma-separated lists, or both.
func parseTagIDs(raw []string) ([]uint, error) {
	ids := []uint{}
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseUint(part, 10, 64)
			if err != nil || id == 0 {
				return nil, &services.ValidationError{Field: "tags", Message: "Invalid pk \"" + part + "\" - object does not exist."}
			}
			ids = append(ids, uint(id))
		}
	}
	return ids, nil
}
