package authz

import (
	"github.com/naryn-heritage/heritage-backend/internal/models"
	"gorm.io/gorm"
)

// VisibleTo returns a GORM scope restricting content rows to what the actor may see.
func VisibleTo(a *Actor) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if a.IsAdmin() {
			return db
		}
		if a.Authenticated() {
			return db.Where("((status = ? AND is_published = ?) OR user_id = ?)",
				models.StatusPublished, true, a.UserID)
		}
		return db.Where("status = ? AND is_published = ?", models.StatusPublished, true)
	}
}

// CanView is the in-memory twin of VisibleTo.
func CanView(a *Actor, b *models.ContentBase) bool {
	if b == nil {
		return false
	}
	if b.Status == models.StatusPublished && b.IsPublished {
		return true
	}
	return a.OwnsOrAdmin(b.UserID)
}
