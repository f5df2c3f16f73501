package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/naryn-heritage/heritage-backend/internal/authz"
	"github.com/naryn-heritage/heritage-backend/internal/dto"
	"github.com/naryn-heritage/heritage-backend/internal/models"
	"gorm.io/gorm"
)

// LoadActor turns the verified token into an authz.Actor. The role is read
// from the users table so that role changes apply without re-login; tokens
// of deleted users are rejected. Requests without a token pass as anonymous.
func LoadActor(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok || token == nil {
			return c.Next()
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return unauthorized(c, "Invalid claims")
		}
		sub, _ := claims["sub"].(string)
		userID, err := uuid.Parse(sub)
		if err != nil {
			return unauthorized(c, "Invalid claims")
		}

		var user models.User
		if err := db.Select("id", "email", "role").First(&user, "id = ?", userID).Error; err != nil {
			return unauthorized(c, "Unauthorized: user no longer exists")
		}

		authz.SetActor(c, &authz.Actor{UserID: user.ID, Email: user.Email, Role: user.Role})
		return c.Next()
	}
}

// AdminRequired admits admins and superadmins. It must run after LoadActor.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := authz.FromContext(c)
		if !actor.Authenticated() {
			return unauthorized(c, "Unauthorized")
		}
		if !actor.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Admin access required", Code: "forbidden",
			})
		}
		return c.Next()
	}
}

func SuperAdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := authz.FromContext(c)
		if !actor.Authenticated() {
			return unauthorized(c, "Unauthorized")
		}
		if !actor.IsSuperAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Superadmin access required", Code: "forbidden",
			})
		}
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: message, Code: "unauthenticated",
	})
}
