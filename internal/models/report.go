package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReportReason string

const (
	ReasonInappropriate ReportReason = "inappropriate"
	ReasonSpam          ReportReason = "spam"
	ReasonOffensive     ReportReason = "offensive"
	ReasonCopyright     ReportReason = "copyright"
	ReasonOther         ReportReason = "other"
)

func (r ReportReason) Valid() bool {
	switch r {
	case ReasonInappropriate, ReasonSpam, ReasonOffensive, ReasonCopyright, ReasonOther:
		return true
	}
	return false
}

type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportReviewed  ReportStatus = "reviewed"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case ReportPending, ReportReviewed, ReportResolved, ReportDismissed:
		return true
	}
	return false
}

// ContentReport is a user complaint about one piece of content.
type ContentReport struct {
	ID uint `gorm:"primaryKey" json:"id"`
	ContentRef
	ReporterID     uuid.UUID    `gorm:"type:uuid;not null;index" json:"reporter_id"`
	Reason         ReportReason `gorm:"size:20;not null" json:"reason"`
	Details        string       `gorm:"type:text" json:"details"`
	Status         ReportStatus `gorm:"size:20;not null;index" json:"status"`
	ReviewedByID   *uuid.UUID   `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time   `json:"reviewed_at,omitempty"`
	ResolutionNote string       `gorm:"type:text" json:"resolution_note"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	Reporter       User         `gorm:"foreignKey:ReporterID" json:"-"`
}

func (r *ContentReport) BeforeCreate(tx *gorm.DB) error {
	if r.Status == "" {
		r.Status = ReportPending
	}
	return nil
}

// ModerationLog records one state transition. Rows are never updated.
type ModerationLog struct {
	ID uint `gorm:"primaryKey" json:"id"`
	ContentRef
	ModeratorID uuid.UUID `gorm:"type:uuid;not null;index" json:"moderator_id"`
	Action      Action    `gorm:"size:20;not null" json:"action"`
	Comment     string    `gorm:"type:text" json:"comment"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
