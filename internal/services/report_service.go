package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/naryn-heritage/heritage-backend/internal/authz"
	"github.com/naryn-heritage/heritage-backend/internal/dto"
	"github.com/naryn-heritage/heritage-backend/internal/metrics"
	"github.com/naryn-heritage/heritage-backend/internal/models"
	"gorm.io/gorm"
)

var ErrReportNotFound = errors.New("report not found")

type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// Create files a report against any content item the reporter can see.
func (s *ReportService) Create(actor *authz.Actor, req *dto.CreateReportRequest) (*models.ContentReport, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	ref, err := ParseRef(req.ContentType, req.ObjectID)
	if err != nil {
		return nil, err
	}
	reason := models.ReportReason(strings.ToLower(strings.TrimSpace(req.Reason)))
	if !reason.Valid() {
		return nil, invalid("reason", "must be one of inappropriate, spam, offensive, copyright, other")
	}

	item, err := resolve(s.db, ref)
	if err != nil {
		return nil, err
	}
	if !authz.CanView(actor, item.Base()) {
		return nil, ErrObjectNotFound
	}

	report := models.ContentReport{
		ContentRef: ref,
		ReporterID: actor.UserID,
		Reason:     reason,
		Details:    strings.TrimSpace(req.Details),
		Status:     models.ReportPending,
	}
	if err := s.db.Create(&report).Error; err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	metrics.ReportsFiled.WithLabelValues(string(reason)).Inc()
	return &report, nil
}

// List filters by status. An empty status means pending; "all" disables the filter.
func (s *ReportService) List(status string, limit, offset int) ([]models.ContentReport, int64, error) {
	var reports []models.ContentReport
	var total int64

	if status == "" {
		status = string(models.ReportPending)
	}
	query := s.db.Model(&models.ContentReport{})
	if status != "all" {
		if !models.ReportStatus(status).Valid() {
			return nil, 0, invalid("status", "unknown report status "+status)
		}
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	if limit <= 0 || limit > maxPageSize {
		limit = 20
	}
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&reports).Error; err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (s *ReportService) Get(id uint) (*models.ContentReport, error) {
	var report models.ContentReport
	if err := s.db.First(&report, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return &report, nil
}

func (s *ReportService) Review(id uint, actor *authz.Actor, note string) (*models.ContentReport, error) {
	return s.close(id, actor, models.ReportReviewed, note)
}

func (s *ReportService) Resolve(id uint, actor *authz.Actor, note string) (*models.ContentReport, error) {
	return s.close(id, actor, models.ReportResolved, note)
}

func (s *ReportService) Dismiss(id uint, actor *authz.Actor, note string) (*models.ContentReport, error) {
	return s.close(id, actor, models.ReportDismissed, note)
}

// close records the reviewer's decision. There is no guard on the current
// status: a second call overwrites the first.
func (s *ReportService) close(id uint, actor *authz.Actor, status models.ReportStatus, note string) (*models.ContentReport, error) {
	if !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}
	report, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	reviewer := actor.UserID
	updates := map[string]interface{}{
		"status":          status,
		"reviewed_by_id":  &reviewer,
		"reviewed_at":     &now,
		"resolution_note": note,
	}
	if err := s.db.Model(report).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update report %d: %w", id, err)
	}
	report.Status = status
	report.ReviewedByID = &reviewer
	report.ReviewedAt = &now
	report.ResolutionNote = note
	return report, nil
}
