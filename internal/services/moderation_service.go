package services

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/naryn-heritage/heritage-backend/internal/authz"
	"github.com/naryn-heritage/heritage-backend/internal/metrics"
	"github.com/naryn-heritage/heritage-backend/internal/models"
	"gorm.io/gorm"
)

type ModerationService struct {
	db       *gorm.DB
	notifier Notifier
}

func NewModerationService(db *gorm.DB, notifier Notifier) *ModerationService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &ModerationService{db: db, notifier: notifier}
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, []string) {}

// ParseRef turns a raw type tag and id into a content reference.
func ParseRef(kind string, id uint) (models.ContentRef, error) {
	k, err := models.ParseKind(kind)
	if err != nil {
		return models.ContentRef{}, ErrInvalidContentType
	}
	return models.ContentRef{Kind: k, ObjectID: id}, nil
}

// Resolve loads the entity a reference points at.
func (s *ModerationService) Resolve(ref models.ContentRef) (models.Moderatable, error) {
	return resolve(s.db, ref)
}

func resolve(db *gorm.DB, ref models.ContentRef) (models.Moderatable, error) {
	item, err := models.NewContent(ref.Kind)
	if err != nil {
		return nil, ErrInvalidContentType
	}
	if err := db.First(item, ref.ObjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to load %s %d: %w", ref.Kind, ref.ObjectID, err)
	}
	return item, nil
}

func (s *ModerationService) SubmitForReview(ref models.ContentRef, actor *authz.Actor, comment string) (models.Moderatable, error) {
	item, err := s.apply(ref, actor, models.ActionSubmitted, comment)
	if err != nil {
		return nil, err
	}

	var admins []string
	if err := s.db.Model(&models.User{}).
		Where("role IN ?", []string{models.RoleAdmin, models.RoleSuperAdmin}).
		Pluck("email", &admins).Error; err != nil {
		slog.Warn("failed to load admin emails", "content_kind", ref.Kind, "object_id", ref.ObjectID, "error", err)
	}
	s.notifier.Notify(
		"New content submitted for review",
		fmt.Sprintf("A new %s %q has been submitted for review by %s.", ref.Kind, item.Base().Title, actor.Email),
		admins,
	)
	return item, nil
}

func (s *ModerationService) Approve(ref models.ContentRef, actor *authz.Actor, comment string) (models.Moderatable, error) {
	item, err := s.apply(ref, actor, models.ActionApproved, comment)
	if err != nil {
		return nil, err
	}
	s.notifyAuthor(item, "Your content has been approved",
		fmt.Sprintf("Your %s %q has been approved by a moderator.", ref.Kind, item.Base().Title))
	return item, nil
}

func (s *ModerationService) Reject(ref models.ContentRef, actor *authz.Actor, comment string) (models.Moderatable, error) {
	item, err := s.apply(ref, actor, models.ActionRejected, comment)
	if err != nil {
		return nil, err
	}
	s.notifyAuthor(item, "Your content needs revisions",
		fmt.Sprintf("Your %s %q has been reviewed and needs revisions.\n\nModerator comment: %s", ref.Kind, item.Base().Title, comment))
	return item, nil
}

func (s *ModerationService) Publish(ref models.ContentRef, actor *authz.Actor) (models.Moderatable, error) {
	var by string
	if actor != nil {
		by = actor.Email
	}
	item, err := s.apply(ref, actor, models.ActionPublished, "Content published by "+by)
	if err != nil {
		return nil, err
	}
	s.notifyAuthor(item, "Your content has been published",
		fmt.Sprintf("Your %s %q has been published and is now live.", ref.Kind, item.Base().Title))
	return item, nil
}

// Unpublish takes published content offline and returns it to approved.
func (s *ModerationService) Unpublish(ref models.ContentRef, actor *authz.Actor, comment string) (models.Moderatable, error) {
	return s.apply(ref, actor, models.ActionUnpublished, comment)
}

// Revise moves rejected content back to draft so the author can resubmit it.
func (s *ModerationService) Revise(ref models.ContentRef, actor *authz.Actor, comment string) (models.Moderatable, error) {
	return s.apply(ref, actor, models.ActionRevised, comment)
}

func (s *ModerationService) apply(ref models.ContentRef, actor *authz.Actor, action models.Action, comment string) (models.Moderatable, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	authorOnly := action == models.ActionSubmitted || action == models.ActionRevised
	if !authorOnly && !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}

	var item models.Moderatable
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		item, err = resolve(tx, ref)
		if err != nil {
			return err
		}
		base := item.Base()
		if authorOnly && !actor.OwnsOrAdmin(base.UserID) {
			return ErrUnauthorized
		}

		to, hint, ok := models.Transition(base.Status, action)
		if !ok {
			return &TransitionError{Hint: hint}
		}

		updates := map[string]interface{}{"status": to}
		switch action {
		case models.ActionApproved, models.ActionRejected:
			updates["moderation_comment"] = comment
			base.ModerationComment = comment
		case models.ActionPublished:
			updates["is_published"] = true
			base.IsPublished = true
		case models.ActionUnpublished:
			updates["is_published"] = false
			base.IsPublished = false
		}
		if err := tx.Model(item).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update %s %d: %w", ref.Kind, ref.ObjectID, err)
		}
		base.Status = to

		entry := models.ModerationLog{
			ContentRef:  models.RefOf(item),
			ModeratorID: actor.UserID,
			Action:      action,
			Comment:     comment,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to write moderation log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ModerationActions.WithLabelValues(string(ref.Kind), string(action)).Inc()
	slog.Info("content moderated",
		"content_kind", ref.Kind,
		"object_id", ref.ObjectID,
		"action", action,
		"user_id", actor.UserID.String(),
	)
	return item, nil
}

func (s *ModerationService) notifyAuthor(item models.Moderatable, subject, body string) {
	var author models.User
	if err := s.db.Select("email").First(&author, "id = ?", item.Base().UserID).Error; err != nil {
		return
	}
	if author.Email == "" {
		return
	}
	s.notifier.Notify(subject, body, []string{author.Email})
}

// PendingContent groups submitted items by kind, newest first.
type PendingContent struct {
	Articles  []models.Article  `json:"articles"`
	Stories   []models.Story    `json:"stories"`
	Landmarks []models.Landmark `json:"landmarks"`
	Images    []models.Image    `json:"images"`
	Videos    []models.Video    `json:"videos"`
}

func (s *ModerationService) Pending() (*PendingContent, error) {
	var p PendingContent
	dests := []interface{}{&p.Articles, &p.Stories, &p.Landmarks, &p.Images, &p.Videos}
	for _, dest := range dests {
		if err := s.db.Where("status = ?", models.StatusSubmitted).
			Order("created_at DESC").Find(dest).Error; err != nil {
			return nil, fmt.Errorf("failed to list pending content: %w", err)
		}
	}
	return &p, nil
}

type Dashboard struct {
	PendingByKind  map[models.Kind]int64  `json:"pending_by_kind"`
	TotalPending   int64                  `json:"total_pending"`
	PendingReports int64                  `json:"pending_reports"`
	RecentLogs     []models.ModerationLog `json:"recent_logs"`
}

// Dashboard summarizes the review queue for one moderator.
func (s *ModerationService) Dashboard(moderatorID uuid.UUID) (*Dashboard, error) {
	d := &Dashboard{PendingByKind: make(map[models.Kind]int64, len(models.Kinds))}
	for _, kind := range models.Kinds {
		model, _ := models.NewContent(kind)
		var n int64
		if err := s.db.Model(model).Where("status = ?", models.StatusSubmitted).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("failed to count pending %s: %w", kind, err)
		}
		d.PendingByKind[kind] = n
		d.TotalPending += n
	}

	if err := s.db.Model(&models.ContentReport{}).
		Where("status = ?", models.ReportPending).
		Count(&d.PendingReports).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending reports: %w", err)
	}

	if err := s.db.Where("moderator_id = ?", moderatorID).
		Order("created_at DESC, id DESC").Limit(10).
		Find(&d.RecentLogs).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent logs: %w", err)
	}
	return d, nil
}

type LogFilter struct {
	Ref         *models.ContentRef
	ModeratorID *uuid.UUID
	Limit       int
	Offset      int
}

// ListLogs returns the audit trail, newest first.
func (s *ModerationService) ListLogs(f LogFilter) ([]models.ModerationLog, int64, error) {
	var logs []models.ModerationLog
	var total int64

	query := s.db.Model(&models.ModerationLog{})
	if f.Ref != nil {
		query = query.Where("content_kind = ? AND object_id = ?", f.Ref.Kind, f.Ref.ObjectID)
	}
	if f.ModeratorID != nil {
		query = query.Where("moderator_id = ?", *f.ModeratorID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count moderation logs: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 30
	}
	if err := query.Order("created_at DESC, id DESC").Limit(f.Limit).Offset(f.Offset).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
