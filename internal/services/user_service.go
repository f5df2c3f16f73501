package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/naryn-heritage/heritage-backend/internal/authz"
	"github.com/naryn-heritage/heritage-backend/internal/dto"
	"github.com/naryn-heritage/heritage-backend/internal/models"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// List returns accounts for the admin screen. Plain admins do not see superadmins.
func (s *UserService) List(actor *authz.Actor, limit, offset int) ([]dto.UserResponse, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, ErrUnauthorized
	}

	var users []models.User
	var total int64
	query := s.db.Model(&models.User{})
	if !actor.IsSuperAdmin() {
		query = query.Where("role <> ?", models.RoleSuperAdmin)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	if limit <= 0 || limit > maxPageSize {
		limit = 20
	}
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	out := make([]dto.UserResponse, len(users))
	for i := range users {
		out[i] = userResponse(&users[i])
	}
	return out, total, nil
}

// SetRole changes an account's role. Only superadmins may do this, and not on themselves.
func (s *UserService) SetRole(actor *authz.Actor, userID uuid.UUID, role string) (*dto.UserResponse, error) {
	if !actor.IsSuperAdmin() {
		return nil, ErrUnauthorized
	}
	if !models.ValidRole(role) {
		return nil, invalid("role", "must be one of user, admin, superadmin")
	}
	if actor.UserID == userID {
		return nil, invalid("role", "cannot change your own role")
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if err := s.db.Model(&user).Update("role", role).Error; err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	user.Role = role
	resp := userResponse(&user)
	return &resp, nil
}
