package authz

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/naryn-heritage/heritage-backend/internal/models"
)

const actorKey = "actor"

// Actor is the authenticated requester. A nil *Actor is an anonymous visitor.
type Actor struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

func (a *Actor) Authenticated() bool {
	return a != nil && a.UserID != uuid.Nil
}

// IsAdmin is true for admins and superadmins.
func (a *Actor) IsAdmin() bool {
	if a == nil {
		return false
	}
	return a.Role == models.RoleAdmin || a.Role == models.RoleSuperAdmin
}

func (a *Actor) IsSuperAdmin() bool {
	return a != nil && a.Role == models.RoleSuperAdmin
}

// Owns reports whether the actor authored a row with the given user id.
func (a *Actor) Owns(userID uuid.UUID) bool {
	return a.Authenticated() && a.UserID == userID
}

// OwnsOrAdmin is the edit permission used across content operations.
func (a *Actor) OwnsOrAdmin(userID uuid.UUID) bool {
	return a.IsAdmin() || a.Owns(userID)
}

// FromContext returns the actor stored by the auth middleware, or nil.
func FromContext(c *fiber.Ctx) *Actor {
	if a, ok := c.Locals(actorKey).(*Actor); ok {
		return a
	}
	return nil
}

func SetActor(c *fiber.Ctx, a *Actor) {
	c.Locals(actorKey, a)
}
