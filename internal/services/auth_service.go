package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/naryn-heritage/heritage-backend/internal/config"
	"github.com/naryn-heritage/heritage-backend/internal/dto"
	"github.com/naryn-heritage/heritage-backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
	ErrUserNotFound       = errors.New("user not found")
)

type AuthService struct {
	db       *gorm.DB
	cfg      *config.Config
	notifier Notifier
}

func NewAuthService(db *gorm.DB, cfg *config.Config, notifier Notifier) *AuthService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &AuthService{db: db, cfg: cfg, notifier: notifier}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, invalid("email", "Enter a valid email address.")
	}
	if err := checkPassword("password", req.Password); err != nil {
		return nil, err
	}

	var existing models.User
	if err := s.db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := models.RoleUser
	if s.cfg.IsSuperAdminEmail(email) {
		role = models.RoleSuperAdmin
	}
	user := models.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  string(hash),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Role:      role,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if role == models.RoleSuperAdmin {
		slog.Info("superadmin registered", "user_id", user.ID.String())
	}

	return s.generateTokenPair(&user)
}

func (s *AuthService) Login(req *dto.LoginRequest) (*dto.AuthResponse, error) {
	var user models.User
	if err := s.db.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokenPair(&user)
}

// Refresh rotates a refresh token: the presented one is revoked and a new pair issued.
func (s *AuthService) Refresh(req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	tokenHash := hashToken(req.RefreshToken)

	var stored models.RefreshToken
	if err := s.db.Where("token_hash = ? AND revoked = ?", tokenHash, false).First(&stored).Error; err != nil {
		return nil, ErrInvalidToken
	}

	s.db.Model(&stored).Update("revoked", true)
	if time.Now().After(stored.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", stored.UserID).Error; err != nil {
		return nil, ErrInvalidToken
	}

	return s.generateTokenPair(&user)
}

func (s *AuthService) Logout(req *dto.LogoutRequest) error {
	return s.db.Model(&models.RefreshToken{}).
		Where("token_hash = ?", hashToken(req.RefreshToken)).
		Update("revoked", true).Error
}

func (s *AuthService) Me(userID uuid.UUID) (*dto.UserResponse, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, ErrUserNotFound
	}
	resp := userResponse(&user)
	return &resp, nil
}

func checkPassword(field, password string) error {
	if len(password) < 8 {
		return invalid(field, "must be at least 8 characters")
	}
	return nil
}

func (s *AuthService) UpdateProfile(userID uuid.UUID, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, ErrUserNotFound
	}
	updates := map[string]interface{}{}
	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
		updates["first_name"] = user.FirstName
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
		updates["last_name"] = user.LastName
	}
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
		updates["bio"] = user.Bio
	}
	if len(updates) > 0 {
		if err := s.db.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}
	resp := userResponse(&user)
	return &resp, nil
}

// ChangePassword replaces the password and signs the user out of every session.
func (s *AuthService) ChangePassword(userID uuid.UUID, req *dto.ChangePasswordRequest) error {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return invalid("current_password", "Current password is incorrect")
	}
	if err := checkPassword("new_password", req.NewPassword); err != nil {
		return err
	}
	return s.setPassword(&user, req.NewPassword)
}

func (s *AuthService) setPassword(user *models.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Update("password", string(hash)).Error; err != nil {
			return fmt.Errorf("failed to store password: %w", err)
		}
		return tx.Model(&models.RefreshToken{}).
			Where("user_id = ? AND revoked = ?", user.ID, false).
			Update("revoked", true).Error
	})
}

const resetPurpose = "password_reset"

// resetKey signs reset tokens with the current password hash, so a token
// stops working once the password changes.
func (s *AuthService) resetKey(user *models.User) []byte {
	return []byte(s.cfg.JWTSecret + ":" + resetPurpose + ":" + user.Password)
}

// RequestPasswordReset mails a reset link. Unknown addresses are not reported.
func (s *AuthService) RequestPasswordReset(req *dto.PasswordResetRequest) error {
	var user models.User
	if err := s.db.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	claims := jwt.MapClaims{
		"sub":     user.ID.String(),
		"purpose": resetPurpose,
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(s.cfg.PasswordResetExpiry).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.resetKey(&user))
	if err != nil {
		return fmt.Errorf("failed to sign reset token: %w", err)
	}

	link := fmt.Sprintf("%s/reset-password/%s/", strings.TrimRight(s.cfg.FrontendURL, "/"), token)
	s.notifier.Notify("Password Reset Request",
		"Please click on the following link to reset your password: "+link,
		[]string{user.Email})
	slog.Info("password reset requested", "user_id", user.ID.String())
	return nil
}

func (s *AuthService) ConfirmPasswordReset(req *dto.PasswordResetConfirmRequest) error {
	if err := checkPassword("new_password", req.NewPassword); err != nil {
		return err
	}

	var user models.User
	token, err := jwt.Parse(req.Token, func(t *jwt.Token) (interface{}, error) {
		claims, ok := t.Claims.(jwt.MapClaims)
		if !ok || claims["purpose"] != resetPurpose {
			return nil, ErrInvalidToken
		}
		sub, _ := claims["sub"].(string)
		id, err := uuid.Parse(sub)
		if err != nil {
			return nil, ErrInvalidToken
		}
		if err := s.db.First(&user, "id = ?", id).Error; err != nil {
			return nil, ErrInvalidToken
		}
		return s.resetKey(&user), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return invalid("token", "Invalid or expired reset link.")
	}
	return s.setPassword(&user, req.NewPassword)
}

// DeleteAccount removes the user together with everything they authored.
// Moderation logs stay as the audit trail.
func (s *AuthService) DeleteAccount(userID uuid.UUID, password string) error {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return ErrUserNotFound
	}
	if password == "" {
		return invalid("password", "This field is required.")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("reporter_id = ?", userID).Delete(&models.ContentReport{}).Error; err != nil {
			return err
		}
		for _, kind := range models.Kinds {
			model, _ := models.NewContent(kind)
			owned := tx.Model(model).Select("id").Where("user_id = ?", userID)
			if table, column, ok := kind.TagJoin(); ok {
				if err := tx.Exec("DELETE FROM "+table+" WHERE "+column+" IN (?)", owned).Error; err != nil {
					return err
				}
			}
			if column, ok := qrColumn(kind); ok {
				if err := tx.Model(&models.QRCode{}).Where(column+" IN (?)", owned).
					UpdateColumn(column, nil).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("user_id = ?", userID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&user).Error
	})
}

func userResponse(user *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Bio:       user.Bio,
		Role:      user.Role,
	}
}

func (s *AuthService) generateTokenPair(user *models.User) (*dto.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken(user)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         userResponse(user),
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"role":  user.Role,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(s.cfg.JWTAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) generateRefreshToken(user *models.User) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	rawToken := base64.URLEncoding.EncodeToString(rawBytes)
	record := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: time.Now().Add(s.cfg.JWTRefreshExpiry),
	}

	if err := s.db.Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return rawToken, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
