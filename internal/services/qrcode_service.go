package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/naryn-heritage/heritage-backend/internal/authz"
	"github.com/naryn-heritage/heritage-backend/internal/dto"
	"github.com/naryn-heritage/heritage-backend/internal/models"
	"github.com/naryn-heritage/heritage-backend/internal/storage"
	"gorm.io/gorm"
)

var ErrQRCodeNotFound = errors.New("qr code not found")

type QRCodeService struct {
	db       *gorm.DB
	media    storage.Backend
	renderer QRRenderer
	baseURL  string
}

func NewQRCodeService(db *gorm.DB, media storage.Backend, renderer QRRenderer, baseURL string) *QRCodeService {
	return &QRCodeService{
		db:       db,
		media:    media,
		renderer: renderer,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Validate checks that exactly the target named by ContentType is set.
func Validate(q *models.QRCode) error {
	if !q.ContentType.Valid() {
		return invalid("content_type", "must be one of article, story, landmark, custom")
	}

	targets := []struct {
		kind  models.QRTarget
		field string
		set   bool
	}{
		{models.QRArticle, "article", q.ArticleID != nil},
		{models.QRStory, "story", q.StoryID != nil},
		{models.QRLandmark, "landmark", q.LandmarkID != nil},
		{models.QRCustom, "custom_url", q.CustomURL != ""},
	}
	for _, t := range targets {
		if t.kind == q.ContentType && !t.set {
			label := strings.ToUpper(t.field[:1]) + strings.ReplaceAll(t.field[1:], "_url", " URL")
			return invalid(t.field, fmt.Sprintf("%s is required when content type is %s", label, q.ContentType))
		}
	}
	for _, t := range targets {
		if t.kind != q.ContentType && t.set {
			return invalid(t.field, fmt.Sprintf("must be empty when content type is %s", q.ContentType))
		}
	}

	if strings.TrimSpace(q.Title) == "" {
		return invalid("title", "This field is required.")
	}
	if q.ContentType == models.QRCustom {
		u, err := url.Parse(q.CustomURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("custom_url", "Enter a valid URL.")
		}
	}
	return nil
}

// TargetURL is the address encoded in the QR image.
func (s *QRCodeService) TargetURL(q *models.QRCode) (string, error) {
	var (
		kind models.Kind
		id   *uint
	)
	switch q.ContentType {
	case models.QRCustom:
		return q.CustomURL, nil
	case models.QRArticle:
		kind, id = models.KindArticle, q.ArticleID
	case models.QRStory:
		kind, id = models.KindStory, q.StoryID
	case models.QRLandmark:
		kind, id = models.KindLandmark, q.LandmarkID
	}
	if id == nil {
		return "", invalid(string(q.ContentType), "target is not set")
	}

	item, err := resolve(s.db, models.ContentRef{Kind: kind, ObjectID: *id})
	if errors.Is(err, ErrObjectNotFound) {
		return "", invalid(string(kind), fmt.Sprintf("%s %d does not exist", kind, *id))
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/content/%s/%s/", s.baseURL, kind, editorial(item).Slug), nil
}

func imageKey(id uuid.UUID) string {
	return "qrcodes/qrcode_" + id.String() + ".png"
}

// render draws the QR image and stores it, replacing any previous one.
func (s *QRCodeService) render(ctx context.Context, q *models.QRCode) error {
	target, err := s.TargetURL(q)
	if err != nil {
		return err
	}
	png, err := s.renderer.Render(target)
	if err != nil {
		return fmt.Errorf("failed to render qr code: %w", err)
	}
	key := imageKey(q.UUID)
	if err := s.media.Upload(ctx, key, bytes.NewReader(png), "image/png"); err != nil {
		return fmt.Errorf("failed to store qr image: %w", err)
	}
	q.ImageKey = key
	return nil
}

func applyQR(q *models.QRCode, req *dto.QRCodeRequest) {
	if req.Title != nil {
		q.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		q.Description = *req.Description
	}
	if req.ContentType != nil {
		q.ContentType = models.QRTarget(strings.ToLower(strings.TrimSpace(*req.ContentType)))
	}
	if req.ArticleID != nil {
		q.ArticleID = nonZero(*req.ArticleID)
	}
	if req.StoryID != nil {
		q.StoryID = nonZero(*req.StoryID)
	}
	if req.LandmarkID != nil {
		q.LandmarkID = nonZero(*req.LandmarkID)
	}
	if req.CustomURL != nil {
		q.CustomURL = strings.TrimSpace(*req.CustomURL)
	}
	if req.IsActive != nil {
		q.IsActive = *req.IsActive
	}
}

func nonZero(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

func (s *QRCodeService) Create(ctx context.Context, actor *authz.Actor, req *dto.QRCodeRequest) (*models.QRCode, error) {
	if !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}
	q := &models.QRCode{
		UUID:        uuid.New(),
		CreatedByID: actor.UserID,
		IsActive:    true,
	}
	applyQR(q, req)
	if err := Validate(q); err != nil {
		return nil, err
	}
	if err := s.render(ctx, q); err != nil {
		return nil, err
	}
	if err := s.db.Create(q).Error; err != nil {
		if derr := s.media.Delete(ctx, q.ImageKey); derr != nil && !errors.Is(derr, storage.ErrNotFound) {
			slog.Warn("failed to remove qr image", "key", q.ImageKey, "error", derr)
		}
		return nil, fmt.Errorf("failed to create qr code: %w", err)
	}
	slog.Info("qr code created", "qr_id", q.ID, "target", q.ContentType, "user_id", actor.UserID.String())
	return q, nil
}

// Update applies the changes and always regenerates the image.
func (s *QRCodeService) Update(ctx context.Context, id uint, actor *authz.Actor, req *dto.QRCodeRequest) (*models.QRCode, error) {
	if !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}
	q, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	applyQR(q, req)
	if err := Validate(q); err != nil {
		return nil, err
	}
	if err := s.render(ctx, q); err != nil {
		return nil, err
	}
	if err := s.db.Save(q).Error; err != nil {
		return nil, fmt.Errorf("failed to update qr code %d: %w", id, err)
	}
	return q, nil
}

func (s *QRCodeService) Delete(ctx context.Context, id uint, actor *authz.Actor) error {
	if !actor.IsAdmin() {
		return ErrUnauthorized
	}
	q, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := s.db.Delete(q).Error; err != nil {
		return fmt.Errorf("failed to delete qr code %d: %w", id, err)
	}
	if q.ImageKey != "" {
		if err := s.media.Delete(ctx, q.ImageKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("failed to remove qr image", "key", q.ImageKey, "error", err)
		}
	}
	return nil
}

func (s *QRCodeService) Get(id uint) (*models.QRCode, error) {
	var q models.QRCode
	if err := s.db.First(&q, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQRCodeNotFound
		}
		return nil, err
	}
	return &q, nil
}

// List returns active codes; admins also see inactive ones.
func (s *QRCodeService) List(actor *authz.Actor, limit, offset int) ([]models.QRCode, int64, error) {
	var codes []models.QRCode
	var total int64

	query := s.db.Model(&models.QRCode{})
	if !actor.IsAdmin() {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count qr codes: %w", err)
	}

	if limit <= 0 || limit > maxPageSize {
		limit = 20
	}
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&codes).Error; err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}

// Image opens the stored PNG for a code.
func (s *QRCodeService) Image(ctx context.Context, id uint) (io.ReadCloser, error) {
	q, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if q.ImageKey == "" {
		return nil, ErrQRCodeNotFound
	}
	rc, err := s.media.Download(ctx, q.ImageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrQRCodeNotFound
	}
	return rc, err
}

// ResolveScan maps a scanned code to the URL it should redirect to.
func (s *QRCodeService) ResolveScan(code uuid.UUID) (string, error) {
	var q models.QRCode
	if err := s.db.Where("uuid = ? AND is_active = ?", code, true).First(&q).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrQRCodeNotFound
		}
		return "", err
	}
	target, err := s.TargetURL(&q)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return "", ErrQRCodeNotFound
		}
		return "", err
	}
	return target, nil
}
