package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/naryn-heritage/heritage-backend/internal/authz"
	"github.com/naryn-heritage/heritage-backend/internal/dto"
	"github.com/naryn-heritage/heritage-backend/internal/metrics"
	"github.com/naryn-heritage/heritage-backend/internal/models"
	"github.com/naryn-heritage/heritage-backend/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxPageSize = 100

// likeEscaper makes a search term match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Upload is one file attached to a create or update request. Size and
// ContentType come from the multipart header and may be zero.
type Upload struct {
	Field       string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadLimits caps upload sizes in bytes. Zero selects the default.
type UploadLimits struct {
	MaxImageBytes int64
	MaxVideoBytes int64
}

const (
	defaultMaxImageBytes = 5 << 20
	defaultMaxVideoBytes = 100 << 20
)

// videoFormats maps accepted video extensions to their media type.
var videoFormats = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".ogg":  "video/ogg",
	".ogv":  "video/ogg",
	".mov":  "video/quicktime",
}

func allowedVideoType(contentType string) bool {
	switch contentType {
	case "video/mp4", "video/webm", "video/ogg", "video/quicktime":
		return true
	}
	return false
}

type ListParams struct {
	Status     string
	CategoryID *uint
	Tag        string
	Featured   *bool
	Query      string
	Ordering   string
	Limit      int
	Offset     int
}

var orderings = map[string]string{
	"created_at":  "created_at ASC",
	"-created_at": "created_at DESC",
	"updated_at":  "updated_at ASC",
	"-updated_at": "updated_at DESC",
	"view_count":  "view_count ASC",
	"-view_count": "view_count DESC",
	"title":       "title ASC",
	"-title":      "title DESC",
}

type ContentService struct {
	db     *gorm.DB
	media  storage.Backend
	codec  ImageCodec
	limits UploadLimits
}

func NewContentService(db *gorm.DB, media storage.Backend, codec ImageCodec, limits UploadLimits) *ContentService {
	if limits.MaxImageBytes <= 0 {
		limits.MaxImageBytes = defaultMaxImageBytes
	}
	if limits.MaxVideoBytes <= 0 {
		limits.MaxVideoBytes = defaultMaxVideoBytes
	}
	return &ContentService{db: db, media: media, codec: codec, limits: limits}
}

// List returns the items of one kind visible to actor.
func (s *ContentService) List(kind models.Kind, actor *authz.Actor, p ListParams) (interface{}, int64, error) {
	dest, err := models.NewContentList(kind)
	if err != nil {
		return nil, 0, ErrInvalidContentType
	}
	model, _ := models.NewContent(kind)

	query := s.db.Model(model).Scopes(authz.VisibleTo(actor))
	if p.Status != "" {
		if !models.Status(p.Status).Valid() {
			return nil, 0, invalid("status", "unknown status "+p.Status)
		}
		query = query.Where("status = ?", p.Status)
	}
	if kind.HasTaxonomy() {
		if p.CategoryID != nil {
			query = query.Where("category_id = ?", *p.CategoryID)
		}
		if p.Featured != nil {
			query = query.Where("is_featured = ?", *p.Featured)
		}
		if p.Tag != "" {
			table, column, _ := kind.TagJoin()
			sub := s.db.Table(table).
				Select(table+"."+column).
				Joins("JOIN tags ON tags.id = "+table+".tag_id").
				Where("tags.slug = ?", p.Tag)
			query = query.Where("id IN (?)", sub)
		}
	}
	if q := strings.TrimSpace(p.Query); q != "" {
		cols := kind.SearchColumns()
		conds := make([]string, len(cols))
		args := make([]interface{}, len(cols))
		like := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
		for i, c := range cols {
			conds[i] = "LOWER(" + c + `) LIKE ? ESCAPE '\'`
			args[i] = like
		}
		query = query.Where("("+strings.Join(conds, " OR ")+")", args...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", kind, err)
	}

	order, ok := orderings[p.Ordering]
	if !ok {
		order = "created_at DESC"
	}
	if p.Limit <= 0 || p.Limit > maxPageSize {
		p.Limit = 20
	}
	if kind.HasTaxonomy() {
		query = query.Preload("Tags").Preload("Category")
	}
	if err := query.Order(order + ", id DESC").Limit(p.Limit).Offset(p.Offset).Find(dest).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	return dest, total, nil
}

func (s *ContentService) load(db *gorm.DB, ref models.ContentRef) (models.Moderatable, error) {
	if ref.Kind.HasTaxonomy() {
		db = db.Preload("Tags").Preload("Category")
	}
	return resolve(db, ref)
}

// Get returns one item. Items the actor may not see are reported as missing.
func (s *ContentService) Get(ref models.ContentRef, actor *authz.Actor) (models.Moderatable, error) {
	item, err := s.load(s.db, ref)
	if err != nil {
		return nil, err
	}
	if !authz.CanView(actor, item.Base()) {
		return nil, ErrObjectNotFound
	}
	return item, nil
}

// IncrementView adds one to the view counter with a single UPDATE and touches no other column.
func (s *ContentService) IncrementView(ref models.ContentRef, actor *authz.Actor) error {
	item, err := resolve(s.db, ref)
	if err != nil {
		return err
	}
	if !authz.CanView(actor, item.Base()) {
		return ErrObjectNotFound
	}
	if err := s.db.Model(item).UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error; err != nil {
		return fmt.Errorf("failed to count view: %w", err)
	}
	metrics.ContentViews.WithLabelValues(string(ref.Kind)).Inc()
	return nil
}

func (s *ContentService) Create(ctx context.Context, kind models.Kind, actor *authz.Actor, req *dto.ContentRequest, uploads []Upload) (models.Moderatable, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	item, err := models.NewContent(kind)
	if err != nil {
		return nil, ErrInvalidContentType
	}
	base := item.Base()
	base.UserID = actor.UserID
	base.Status = models.StatusDraft

	if err := applyFields(item, req); err != nil {
		return nil, err
	}
	if err := validateRequired(item, uploads); err != nil {
		return nil, err
	}
	tags, err := s.taxonomy(item, req)
	if err != nil {
		return nil, err
	}
	if err := s.assignSlug(item); err != nil {
		return nil, err
	}

	stored, err := s.storeUploads(ctx, item, uploads)
	if err != nil {
		return nil, err
	}

	setTags(item, tags)
	if err := s.db.Create(item).Error; err != nil {
		s.removeMedia(ctx, stored)
		return nil, fmt.Errorf("failed to create %s: %w", kind, err)
	}
	slog.Info("content created", "content_kind", kind, "object_id", base.ID, "user_id", actor.UserID.String())
	return s.load(s.db, models.RefOf(item))
}

func (s *ContentService) Update(ctx context.Context, ref models.ContentRef, actor *authz.Actor, req *dto.ContentRequest, uploads []Upload) (models.Moderatable, error) {
	item, err := s.Get(ref, actor)
	if err != nil {
		return nil, err
	}
	if !actor.OwnsOrAdmin(item.Base().UserID) {
		return nil, ErrUnauthorized
	}

	if err := applyFields(item, req); err != nil {
		return nil, err
	}
	if err := validateRequired(item, nil); err != nil {
		return nil, err
	}
	tags, err := s.taxonomy(item, req)
	if err != nil {
		return nil, err
	}

	previous := models.MediaKeys(item)
	stored, err := s.storeUploads(ctx, item, uploads)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Moderation columns and the view counter have their own write paths.
		if err := tx.Omit(clause.Associations, "status", "is_published", "moderation_comment", "view_count", "user_id").
			Save(item).Error; err != nil {
			return err
		}
		if req.TagIDs != nil && ref.Kind.HasTaxonomy() {
			if err := tx.Model(item).Association("Tags").Replace(tags); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.removeMedia(ctx, stored)
		return nil, fmt.Errorf("failed to update %s %d: %w", ref.Kind, ref.ObjectID, err)
	}

	s.removeMedia(ctx, replaced(previous, models.MediaKeys(item)))
	return s.load(s.db, ref)
}

func (s *ContentService) Delete(ctx context.Context, ref models.ContentRef, actor *authz.Actor) error {
	item, err := s.Get(ref, actor)
	if err != nil {
		return err
	}
	if !actor.OwnsOrAdmin(item.Base().UserID) {
		return ErrUnauthorized
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if column, ok := qrColumn(ref.Kind); ok {
			if err := tx.Model(&models.QRCode{}).Where(column+" = ?", ref.ObjectID).
				Update(column, nil).Error; err != nil {
				return err
			}
		}
		return tx.Select(clause.Associations).Delete(item).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", ref.Kind, ref.ObjectID, err)
	}

	s.removeMedia(ctx, models.MediaKeys(item))
	slog.Info("content deleted", "content_kind", ref.Kind, "object_id", ref.ObjectID, "user_id", actor.UserID.String())
	return nil
}

func qrColumn(kind models.Kind) (string, bool) {
	switch kind {
	case models.KindArticle:
		return "article_id", true
	case models.KindStory:
		return "story_id", true
	case models.KindLandmark:
		return "landmark_id", true
	}
	return "", false
}

func applyFields(item models.Moderatable, req *dto.ContentRequest) error {
	if req == nil {
		return nil
	}
	base := item.Base()
	setString(&base.Title, req.Title)

	switch v := item.(type) {
	case *models.Article:
		applyEditorial(&v.Editorial, req)
	case *models.Story:
		applyEditorial(&v.Editorial, req)
		setString(&v.Location, req.Location)
		setString(&v.Period, req.Period)
	case *models.Landmark:
		applyEditorial(&v.Editorial, req)
		setString(&v.Location, req.Location)
		setString(&v.HistoricalPeriod, req.HistoricalPeriod)
		if req.Latitude != nil {
			if *req.Latitude < -90 || *req.Latitude > 90 {
				return invalid("latitude", "must be between -90 and 90")
			}
			v.Latitude = req.Latitude
		}
		if req.Longitude != nil {
			if *req.Longitude < -180 || *req.Longitude > 180 {
				return invalid("longitude", "must be between -180 and 180")
			}
			v.Longitude = req.Longitude
		}
	case *models.Image:
		setString(&v.Description, req.Description)
		setString(&v.AltText, req.AltText)
	case *models.Video:
		setString(&v.Description, req.Description)
		setString(&v.VideoURL, req.VideoURL)
		if req.Duration != nil {
			if *req.Duration < 0 {
				return invalid("duration", "must not be negative")
			}
			v.DurationSeconds = req.Duration
		}
	}
	return nil
}

func applyEditorial(e *models.Editorial, req *dto.ContentRequest) {
	setString(&e.Body, req.Content)
	setString(&e.Summary, req.Summary)
	if req.IsFeatured != nil {
		e.IsFeatured = *req.IsFeatured
	}
	if req.CategoryID != nil {
		if *req.CategoryID == 0 {
			e.CategoryID = nil
		} else {
			id := *req.CategoryID
			e.CategoryID = &id
		}
		e.Category = nil
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func validateRequired(item models.Moderatable, uploads []Upload) error {
	const required = "This field is required."
	if item.Base().Title == "" {
		return invalid("title", required)
	}
	switch v := item.(type) {
	case *models.Article:
		if v.Body == "" {
			return invalid("content", required)
		}
	case *models.Story:
		if v.Body == "" {
			return invalid("content", required)
		}
	case *models.Landmark:
		if v.Body == "" {
			return invalid("content", required)
		}
		if v.Location == "" {
			return invalid("location", required)
		}
	case *models.Image:
		if v.File == "" && !hasUpload(uploads, "image") {
			return invalid("image", required)
		}
	}
	return nil
}

func hasUpload(uploads []Upload, field string) bool {
	for _, u := range uploads {
		if u.Field == field {
			return true
		}
	}
	return false
}

// taxonomy checks the referenced category and loads the requested tags.
func (s *ContentService) taxonomy(item models.Moderatable, req *dto.ContentRequest) ([]models.Tag, error) {
	if req == nil || !item.Kind().HasTaxonomy() {
		return nil, nil
	}
	if req.CategoryID != nil && *req.CategoryID != 0 {
		var n int64
		s.db.Model(&models.Category{}).Where("id = ?", *req.CategoryID).Count(&n)
		if n == 0 {
			return nil, invalid("category", fmt.Sprintf("category %d does not exist", *req.CategoryID))
		}
	}
	if req.TagIDs == nil || len(*req.TagIDs) == 0 {
		return []models.Tag{}, nil
	}

	ids := dedupe(*req.TagIDs)
	var tags []models.Tag
	if err := s.db.Where("id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	if len(tags) != len(ids) {
		return nil, invalid("tags", "one or more tags do not exist")
	}
	return tags, nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func setTags(item models.Moderatable, tags []models.Tag) {
	switch v := item.(type) {
	case *models.Article:
		v.Tags = tags
	case *models.Story:
		v.Tags = tags
	case *models.Landmark:
		v.Tags = tags
	}
}

func editorial(item models.Moderatable) *models.Editorial {
	switch v := item.(type) {
	case *models.Article:
		return &v.Editorial
	case *models.Story:
		return &v.Editorial
	case *models.Landmark:
		return &v.Editorial
	}
	return nil
}

// assignSlug derives a unique slug from the title for kinds that have one.
func (s *ContentService) assignSlug(item models.Moderatable) error {
	e := editorial(item)
	if e == nil {
		return nil
	}
	candidate := slug.Make(item.Base().Title)
	if candidate == "" {
		candidate = string(item.Kind())
	}
	if len(candidate) > 250 {
		candidate = strings.Trim(candidate[:250], "-")
	}

	var n int64
	if err := s.db.Model(item).Where("slug = ?", candidate).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check slug: %w", err)
	}
	if n > 0 {
		candidate += "-" + uuid.NewString()[:8]
	}
	e.Slug = candidate
	return nil
}

// storeUploads compresses images, writes every upload to media storage and
// points the item's fields at the new keys. It returns the keys written.
func (s *ContentService) storeUploads(ctx context.Context, item models.Moderatable, uploads []Upload) ([]string, error) {
	var stored []string
	for _, up := range uploads {
		key, err := s.storeUpload(ctx, item, up)
		if err != nil {
			s.removeMedia(ctx, stored)
			return nil, err
		}
		stored = append(stored, key)
	}
	return stored, nil
}

func (s *ContentService) storeUpload(ctx context.Context, item models.Moderatable, up Upload) (string, error) {
	var (
		dir      string
		target   *string
		compress = true
	)
	switch v := item.(type) {
	case *models.Article:
		if up.Field == "featured_image" {
			dir, target = "articles/images", &v.FeaturedImage
		}
	case *models.Landmark:
		if up.Field == "featured_image" {
			dir, target = "landmarks/images", &v.FeaturedImage
		}
	case *models.Image:
		if up.Field == "image" {
			dir, target = "uploads/images", &v.File
		}
	case *models.Video:
		switch up.Field {
		case "thumbnail":
			dir, target = "uploads/video_thumbnails", &v.Thumbnail
		case "video_file":
			dir, target, compress = "uploads/videos", &v.VideoFile, false
		}
	}
	if target == nil {
		return "", invalid(up.Field, "unexpected file upload")
	}
	if s.media == nil {
		return "", errors.New("media storage is not configured")
	}

	name := sanitizeFilename(up.Filename)
	var (
		body        io.Reader
		contentType string
	)
	if compress {
		if s.codec == nil {
			return "", errors.New("image codec is not configured")
		}
		max := s.limits.MaxImageBytes
		if up.Size > max {
			return "", tooLarge(up.Field, "Image", max)
		}
		raw, err := io.ReadAll(io.LimitReader(up.Body, max+1))
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", up.Field, err)
		}
		if int64(len(raw)) > max {
			return "", tooLarge(up.Field, "Image", max)
		}
		data, err := s.codec.Compress(bytes.NewReader(raw))
		if err != nil {
			return "", invalid(up.Field, "upload a valid image")
		}
		name = strings.TrimSuffix(name, path.Ext(name)) + "_compressed.jpg"
		body = bytes.NewReader(data)
		contentType = "image/jpeg"
		metrics.MediaUploadBytes.Observe(float64(len(data)))
	} else {
		ct, ok := videoFormats[path.Ext(name)]
		declared := strings.ToLower(strings.TrimSpace(strings.Split(up.ContentType, ";")[0]))
		if !ok || (declared != "" && declared != octetStream && !allowedVideoType(declared)) {
			return "", invalid(up.Field, "Unsupported video format. Allowed formats: mp4, webm, ogg, mov.")
		}
		max := s.limits.MaxVideoBytes
		if up.Size > max {
			return "", tooLarge(up.Field, "Video", max)
		}
		body = &capReader{r: up.Body, max: max}
		contentType = ct
	}

	key := path.Join(dir, time.Now().UTC().Format("2006/01"), uuid.NewString()[:8]+"_"+name)
	if err := s.media.Upload(ctx, key, body, contentType); err != nil {
		if errors.Is(err, errUploadTooLarge) {
			return "", tooLarge(up.Field, "Video", s.limits.MaxVideoBytes)
		}
		return "", fmt.Errorf("failed to store %s: %w", up.Field, err)
	}
	*target = key
	return key, nil
}

const octetStream = "application/octet-stream"

var errUploadTooLarge = errors.New("upload exceeds size limit")

func tooLarge(field, what string, max int64) error {
	return invalid(field, fmt.Sprintf("%s size exceeds maximum allowed size of %d bytes.", what, max))
}

// capReader fails once more than max bytes have been read.
type capReader struct {
	r   io.Reader
	n   int64
	max int64
}

func (c *capReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.n > c.max {
		return n, errUploadTooLarge
	}
	return n, err
}

func sanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(path.Ext(base))
	stem := slug.Make(strings.TrimSuffix(base, path.Ext(base)))
	if stem == "" {
		stem = "file"
	}
	return stem + ext
}

func replaced(before, after []string) []string {
	keep := make(map[string]struct{}, len(after))
	for _, k := range after {
		keep[k] = struct{}{}
	}
	var gone []string
	for _, k := range before {
		if _, ok := keep[k]; !ok {
			gone = append(gone, k)
		}
	}
	return gone
}

func (s *ContentService) removeMedia(ctx context.Context, keys []string) {
	if s.media == nil {
		return
	}
	for _, k := range keys {
		if err := s.media.Delete(ctx, k); err != nil && !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("failed to remove media", "key", k, "error", err)
		}
	}
}
