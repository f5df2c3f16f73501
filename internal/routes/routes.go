package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/naryn-heritage/heritage-backend/internal/config"
	"github.com/naryn-heritage/heritage-backend/internal/handlers"
	"github.com/naryn-heritage/heritage-backend/internal/middleware"
	"github.com/naryn-heritage/heritage-backend/internal/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Health     *handlers.HealthHandler
	Content    *handlers.ContentHandler
	Moderation *handlers.ModerationHandler
	Reports    *handlers.ReportHandler
	QRCodes    *handlers.QRCodeHandler
	Taxonomy   *handlers.TaxonomyHandler
	Users      *handlers.UserHandler
	Media      *handlers.MediaHandler
}

// collections maps each content kind to its URL segment.
var collections = map[models.Kind]string{
	models.KindArticle:  "articles",
	models.KindStory:    "stories",
	models.KindLandmark: "landmarks",
	models.KindImage:    "images",
	models.KindVideo:    "videos",
}

func Setup(app *fiber.App, cfg *config.Config, db *gorm.DB, h Handlers) {
	if cfg.MetricsEnable {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}
	app.Get("/media/*", h.Media.Serve)
	app.Get("/q/:uuid", h.QRCodes.Scan)

	api := app.Group("/api")

	// General API rate limiter per IP
	if cfg.RateLimitMax > 0 {
		api.Use(limiter.New(limiter.Config{
			Max:               cfg.RateLimitMax,
			Expiration:        1 * time.Minute,
			LimiterMiddleware: limiter.SlidingWindow{},
			KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		}))
	}

	api.Get("/health", h.Health.Check)

	protected := []fiber.Handler{middleware.JWTProtected(cfg), middleware.LoadActor(db)}
	optional := []fiber.Handler{middleware.OptionalJWT(cfg), middleware.LoadActor(db)}
	with := func(chain []fiber.Handler, handler fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, chain...), handler)
	}

	// Auth: stricter rate limit, 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)
	auth.Post("/logout", with(protected, h.Auth.Logout)...)
	auth.Get("/me", with(protected, h.Auth.Me)...)
	auth.Put("/me", with(protected, h.Auth.UpdateProfile)...)
	auth.Post("/password/change", with(protected, h.Auth.ChangePassword)...)
	auth.Post("/password/reset", h.Auth.RequestPasswordReset)
	auth.Post("/password/reset/confirm", h.Auth.ConfirmPasswordReset)
	auth.Delete("/account", with(protected, h.Auth.DeleteAccount)...)

	for _, kind := range models.Kinds {
		g := api.Group("/" + collections[kind])
		g.Get("/", with(optional, h.Content.List(kind))...)
		g.Get("/:id", with(optional, h.Content.Get(kind))...)
		g.Post("/:id/view", with(optional, h.Content.View(kind))...)
		g.Post("/", with(protected, h.Content.Create(kind))...)
		g.Put("/:id", with(protected, h.Content.Update(kind))...)
		g.Delete("/:id", with(protected, h.Content.Delete(kind))...)
		g.Post("/:id/submit", with(protected, h.Content.Submit(kind))...)
		g.Post("/:id/revise", with(protected, h.Content.Revise(kind))...)
	}

	api.Get("/categories", h.Taxonomy.Categories)
	api.Get("/tags", h.Taxonomy.Tags)
	adminOnly := append(append([]fiber.Handler{}, protected...), middleware.AdminRequired())
	api.Post("/categories", with(adminOnly, h.Taxonomy.CreateCategory)...)
	api.Delete("/categories/:id", with(adminOnly, h.Taxonomy.DeleteCategory)...)
	api.Post("/tags", with(adminOnly, h.Taxonomy.CreateTag)...)
	api.Delete("/tags/:id", with(adminOnly, h.Taxonomy.DeleteTag)...)

	api.Post("/reports", with(protected, h.Reports.Create)...)

	api.Get("/qrcodes", with(optional, h.QRCodes.List)...)
	api.Get("/qrcodes/:id", with(optional, h.QRCodes.Get)...)
	api.Get("/qrcodes/:id/image", with(optional, h.QRCodes.Image)...)

	// Admin panel (JWT + admin role)
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.LoadActor(db), middleware.AdminRequired())
	admin.Get("/moderation/pending", h.Moderation.Pending)
	admin.Get("/moderation/dashboard", h.Moderation.Dashboard)
	admin.Get("/moderation/logs", h.Moderation.Logs)
	admin.Post("/moderation/approve", h.Moderation.Approve)
	admin.Post("/moderation/reject", h.Moderation.Reject)
	admin.Post("/moderation/publish", h.Moderation.Publish)
	admin.Post("/moderation/unpublish", h.Moderation.Unpublish)

	admin.Get("/reports", h.Reports.List)
	admin.Get("/reports/:id", h.Reports.Get)
	admin.Post("/reports/:id/review", h.Reports.Review)
	admin.Post("/reports/:id/resolve", h.Reports.Resolve)
	admin.Post("/reports/:id/dismiss", h.Reports.Dismiss)

	admin.Post("/qrcodes", h.QRCodes.Create)
	admin.Put("/qrcodes/:id", h.QRCodes.Update)
	admin.Delete("/qrcodes/:id", h.QRCodes.Delete)

	admin.Get("/users", h.Users.List)
	admin.Put("/users/:id/role", middleware.SuperAdminRequired(), h.Users.SetRole)
}
