package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/naryn-heritage/heritage-backend/internal/config"
	"github.com/naryn-heritage/heritage-backend/internal/dto"
	"github.com/naryn-heritage/heritage-backend/internal/handlers"
	"github.com/naryn-heritage/heritage-backend/internal/imaging"
	"github.com/naryn-heritage/heritage-backend/internal/models"
	"github.com/naryn-heritage/heritage-backend/internal/notify"
	"github.com/naryn-heritage/heritage-backend/internal/qr"
	"github.com/naryn-heritage/heritage-backend/internal/routes"
	"github.com/naryn-heritage/heritage-backend/internal/services"
	"github.com/naryn-heritage/heritage-backend/internal/storage"
	"github.com/naryn-heritage/heritage-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type server struct {
	t     *testing.T
	app   *fiber.App
	db    *gorm.DB
	media *storage.Memory
}

func newServer(t *testing.T) *server {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := &config.Config{
		JWTSecret:           "test-secret",
		JWTAccessExpiry:     15 * time.Minute,
		JWTRefreshExpiry:    time.Hour,
		BaseURL:             "http://heritage.test",
		FrontendURL:         "http://heritage.test",
		PasswordResetExpiry: time.Hour,
		MetricsEnable:       true,
	}
	media := storage.NewMemory()

	moderation := services.NewModerationService(db, notify.Discard{})
	content := services.NewContentService(db, media, imaging.NewCompressor(1920, 1080, 85), services.UploadLimits{})

	app := fiber.New()
	routes.Setup(app, cfg, db, routes.Handlers{
		Auth:       handlers.NewAuthHandler(services.NewAuthService(db, cfg, notify.Discard{})),
		Health:     handlers.NewHealthHandler(db),
		Content:    handlers.NewContentHandler(content, moderation),
		Moderation: handlers.NewModerationHandler(moderation),
		Reports:    handlers.NewReportHandler(services.NewReportService(db)),
		QRCodes:    handlers.NewQRCodeHandler(services.NewQRCodeService(db, media, qr.NewRenderer(-4), cfg.BaseURL)),
		Taxonomy:   handlers.NewTaxonomyHandler(services.NewTaxonomyService(db)),
		Users:      handlers.NewUserHandler(services.NewUserService(db)),
		Media:      handlers.NewMediaHandler(media),
	})
	return &server{t: t, app: app, db: db, media: media}
}

func (s *server) do(req *http.Request) *http.Response {
	s.t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	return resp
}

func (s *server) request(method, path, token string, body any) *http.Response {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return s.do(req)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// register creates an account through the API and optionally promotes it.
func (s *server) register(email, role string) string {
	s.t.Helper()
	resp := s.request(http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{
		Email: email, Password: "correct-horse", FirstName: "Test",
	})
	require.Equal(s.t, http.StatusCreated, resp.StatusCode)
	auth := decode[dto.AuthResponse](s.t, resp)
	if role != models.RoleUser {
		require.NoError(s.t, s.db.Model(&models.User{}).Where("email = ?", email).Update("role", role).Error)
	}
	return auth.AccessToken
}

type item struct {
	ID          uint   `json:"id"`
	Slug        string `json:"slug"`
	Status      string `json:"status"`
	IsPublished bool   `json:"is_published"`
	Image       string `json:"image"`
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t)

	resp := s.request(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	health := decode[dto.HealthResponse](t, resp)
	assert.Equal(t, "ok", health.Status)

	resp = s.request(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthentication(t *testing.T) {
	s := newServer(t)
	token := s.register("author@example.com", models.RoleUser)

	resp := s.request(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[dto.UserResponse](t, resp)
	assert.Equal(t, "author@example.com", me.Email)
	assert.Equal(t, models.RoleUser, me.Role)

	resp = s.request(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthenticated", decode[dto.ErrorResponse](t, resp).Code)

	resp = s.request(http.MethodGet, "/api/auth/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.request(http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "author@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.request(http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{Email: "author@example.com", Password: "correct-horse"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// A valid token of a deleted account is refused.
	require.NoError(t, s.db.Where("email = ?", "author@example.com").Delete(&models.User{}).Error)
	resp = s.request(http.MethodGet, "/api/articles", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestModerationWorkflow(t *testing.T) {
	s := newServer(t)
	author := s.register("author@example.com", models.RoleUser)
	admin := s.register("admin@example.com", models.RoleAdmin)

	resp := s.request(http.MethodPost, "/api/articles", "", map[string]string{"title": "Burana Tower", "content": "..."})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.request(http.MethodPost, "/api/articles", author, map[string]string{"content": "no title"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	verr := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "validation_error", verr.Code)
	assert.Equal(t, "title", verr.Field)

	resp = s.request(http.MethodPost, "/api/articles", author, map[string]string{"title": "Burana Tower", "content": "An eleventh century minaret."})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	article := decode[item](t, resp)
	assert.Equal(t, "draft", article.Status)
	assert.Equal(t, "burana-tower", article.Slug)
	path := fmt.Sprintf("/api/articles/%d", article.ID)

	// Drafts are hidden from everyone but the author and moderators.
	assert.Equal(t, http.StatusNotFound, s.request(http.MethodGet, path, "", nil).StatusCode)
	assert.Equal(t, http.StatusOK, s.request(http.MethodGet, path, author, nil).StatusCode)
	assert.Equal(t, http.StatusOK, s.request(http.MethodGet, path, admin, nil).StatusCode)

	resp = s.request(http.MethodPost, path+"/submit", author, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	submitted := decode[dto.ModerationResponse](t, resp)
	assert.Equal(t, models.StatusSubmitted, submitted.Status)

	approve := dto.ModerationRequest{ContentType: "article", ObjectID: article.ID, Comment: "Well sourced"}
	resp = s.request(http.MethodPost, "/api/admin/moderation/approve", author, approve)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.request(http.MethodPost, "/api/admin/moderation/approve", admin, approve)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	approved := decode[dto.ModerationResponse](t, resp)
	assert.Equal(t, models.StatusApproved, approved.Status)
	assert.Equal(t, "The article has been approved.", approved.Message)

	publish := dto.ModerationRequest{ContentType: "Article", ObjectID: article.ID}
	resp = s.request(http.MethodPost, "/api/admin/moderation/publish", admin, publish)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	published := decode[dto.ModerationResponse](t, resp)
	assert.Equal(t, models.StatusPublished, published.Status)
	assert.True(t, published.IsPublished)

	resp = s.request(http.MethodPost, "/api/admin/moderation/publish", admin, publish)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_transition", decode[dto.ErrorResponse](t, resp).Code)

	resp = s.request(http.MethodPost, "/api/admin/moderation/approve", admin, dto.ModerationRequest{ContentType: "poem", ObjectID: 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = s.request(http.MethodPost, "/api/admin/moderation/approve", admin, dto.ModerationRequest{ContentType: "article", ObjectID: 999})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Published content is public and counts views.
	assert.Equal(t, http.StatusOK, s.request(http.MethodGet, path, "", nil).StatusCode)
	assert.Equal(t, http.StatusNoContent, s.request(http.MethodPost, path+"/view", "", nil).StatusCode)

	resp = s.request(http.MethodGet, "/api/articles", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := decode[struct {
		Results []item `json:"results"`
		Total   int64  `json:"total"`
	}](t, resp)
	assert.Equal(t, int64(1), listed.Total)

	resp = s.request(http.MethodGet, fmt.Sprintf("/api/admin/moderation/logs?content_type=article&object_id=%d", article.ID), admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	logs := decode[struct {
		Results []models.ModerationLog `json:"results"`
		Total   int64                  `json:"total"`
	}](t, resp)
	assert.Equal(t, int64(3), logs.Total)
	assert.Equal(t, models.ActionPublished, logs.Results[0].Action)

	resp = s.request(http.MethodGet, "/api/admin/moderation/dashboard", admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReportsAndUsers(t *testing.T) {
	s := newServer(t)
	author := s.register("author@example.com", models.RoleUser)
	admin := s.register("admin@example.com", models.RoleAdmin)

	resp := s.request(http.MethodPost, "/api/stories", author, map[string]string{"title": "Kurmanjan Datka", "content": "Told in Naryn."})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	story := decode[item](t, resp)

	report := dto.CreateReportRequest{ContentType: "story", ObjectID: story.ID, Reason: "spam"}
	resp = s.request(http.MethodPost, "/api/reports", "", report)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = s.request(http.MethodPost, "/api/reports", author, report)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	filed := decode[models.ContentReport](t, resp)

	resp = s.request(http.MethodPost, fmt.Sprintf("/api/admin/reports/%d/resolve", filed.ID), admin, dto.ReviewReportRequest{Note: "removed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = s.request(http.MethodGet, "/api/admin/reports/999", admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.request(http.MethodGet, "/api/admin/users", admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var user models.User
	require.NoError(t, s.db.Where("email = ?", "author@example.com").First(&user).Error)
	resp = s.request(http.MethodPut, "/api/admin/users/"+user.ID.String()+"/role", admin, dto.SetRoleRequest{Role: models.RoleAdmin})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestTaxonomyRequiresAdmin(t *testing.T) {
	s := newServer(t)
	author := s.register("author@example.com", models.RoleUser)
	admin := s.register("admin@example.com", models.RoleAdmin)

	cat := dto.CategoryRequest{Name: "Silk Road"}
	assert.Equal(t, http.StatusForbidden, s.request(http.MethodPost, "/api/categories", author, cat).StatusCode)
	require.Equal(t, http.StatusCreated, s.request(http.MethodPost, "/api/categories", admin, cat).StatusCode)

	resp := s.request(http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cats := decode[[]models.Category](t, resp)
	require.Len(t, cats, 1)
	assert.Equal(t, "silk-road", cats[0].Slug)

	assert.Equal(t, http.StatusNotFound, s.request(http.MethodDelete, "/api/tags/42", admin, nil).StatusCode)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		for y := 0; y < 30; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageUploadIsServedFromMedia(t *testing.T) {
	s := newServer(t)
	author := s.register("author@example.com", models.RoleUser)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("title", "Tash Rabat"))
	require.NoError(t, w.WriteField("alt_text", "Caravanserai in the snow"))
	part, err := w.CreateFormFile("image", "tash rabat.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes(t))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/images", &body)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+author)
	resp := s.do(req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	uploaded := decode[item](t, resp)
	assert.True(t, strings.HasPrefix(uploaded.Image, "uploads/images/"))
	assert.True(t, strings.HasSuffix(uploaded.Image, "_compressed.jpg"))

	resp = s.request(http.MethodGet, "/media/"+uploaded.Image, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get(fiber.HeaderContentType))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, data[:2])

	assert.Equal(t, http.StatusNotFound, s.request(http.MethodGet, "/media/uploads/missing.jpg", "", nil).StatusCode)

	// An image without a file is rejected.
	resp = s.request(http.MethodPost, "/api/images", author, map[string]string{"title": "No file"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "image", decode[dto.ErrorResponse](t, resp).Field)
}

func TestQRCodeScanRedirects(t *testing.T) {
	s := newServer(t)
	admin := s.register("admin@example.com", models.RoleAdmin)

	resp := s.request(http.MethodPost, "/api/admin/qrcodes", admin, map[string]any{
		"title": "Custom", "content_type": "custom",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	verr := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "custom_url", verr.Field)
	assert.Equal(t, "Custom URL is required when content type is custom", verr.Message)

	resp = s.request(http.MethodPost, "/api/admin/qrcodes", admin, map[string]any{
		"title": "Museum site", "content_type": "custom", "custom_url": "https://naryn.example/museum",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	code := decode[models.QRCode](t, resp)

	resp = s.request(http.MethodGet, "/q/"+code.UUID.String(), "", nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://naryn.example/museum", resp.Header.Get(fiber.HeaderLocation))

	resp = s.request(http.MethodGet, fmt.Sprintf("/api/qrcodes/%d/image", code.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))

	resp = s.request(http.MethodPut, fmt.Sprintf("/api/admin/qrcodes/%d", code.ID), admin, map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, http.StatusNotFound, s.request(http.MethodGet, "/q/"+code.UUID.String(), "", nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, s.request(http.MethodGet, fmt.Sprintf("/api/qrcodes/%d", code.ID), "", nil).StatusCode)
	assert.Equal(t, http.StatusOK, s.request(http.MethodGet, fmt.Sprintf("/api/qrcodes/%d", code.ID), admin, nil).StatusCode)

	assert.Equal(t, http.StatusNotFound, s.request(http.MethodGet, "/q/not-a-uuid", "", nil).StatusCode)
}

func multipartUpload(t *testing.T, fields map[string]string, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func TestVideoUploadRejectsHTML(t *testing.T) {
	s := newServer(t)
	author := s.register("author@example.com", models.RoleUser)

	post := func(filename, contentType string, data []byte) *http.Response {
		body, ct := multipartUpload(t, map[string]string{"title": "Kok-Boru final"}, "video_file", filename, contentType, data)
		req := httptest.NewRequest(http.MethodPost, "/api/videos", body)
		req.Header.Set(fiber.HeaderContentType, ct)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+author)
		return s.do(req)
	}

	resp := post("evil.html", "text/html", []byte("<script>alert(document.cookie)</script>"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "video_file", decode[dto.ErrorResponse](t, resp).Field)

	resp = post("evil.mp4", "text/html", []byte("<script>alert(document.cookie)</script>"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, s.media.Keys())

	resp = post("final.mp4", "video/mp4", []byte("frames"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		VideoFile string `json:"video_file"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp = s.request(http.MethodGet, "/media/"+created.VideoFile, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "video/mp4", resp.Header.Get(fiber.HeaderContentType))
}

func TestMediaServesUnknownTypesAsAttachment(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	require.NoError(t, s.media.Upload(ctx, "uploads/videos/page.html", strings.NewReader("<script></script>"), "text/html"))
	require.NoError(t, s.media.Upload(ctx, "qrcodes/code.png", strings.NewReader("png"), "image/png"))

	resp := s.request(http.MethodGet, "/media/uploads/videos/page.html", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, fiber.MIMEOctetStream, resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, `attachment; filename="page.html"`, resp.Header.Get(fiber.HeaderContentDisposition))
	assert.Equal(t, "nosniff", resp.Header.Get(fiber.HeaderXContentTypeOptions))

	resp = s.request(http.MethodGet, "/media/qrcodes/code.png", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))
	assert.Empty(t, resp.Header.Get(fiber.HeaderContentDisposition))
}

func TestProfileAndPasswordRoutes(t *testing.T) {
	s := newServer(t)
	token := s.register("author@example.com", models.RoleUser)

	resp := s.request(http.MethodPut, "/api/auth/me", token, map[string]string{"bio": "Felt maker from Kochkor"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Felt maker from Kochkor", decode[dto.UserResponse](t, resp).Bio)

	resp = s.request(http.MethodPost, "/api/auth/password/change", token, dto.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "new-password"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "current_password", decode[dto.ErrorResponse](t, resp).Field)

	resp = s.request(http.MethodPost, "/api/auth/password/change", token, dto.ChangePasswordRequest{CurrentPassword: "correct-horse", NewPassword: "new-password"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.request(http.MethodPost, "/api/auth/password/reset", "", dto.PasswordResetRequest{Email: "unknown@example.com"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.request(http.MethodPost, "/api/auth/password/reset/confirm", "", dto.PasswordResetConfirmRequest{Token: "garbage", NewPassword: "another-password"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "token", decode[dto.ErrorResponse](t, resp).Field)
}
