package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QRTarget says what a QR code points at.
type QRTarget string

const (
	QRArticle  QRTarget = "article"
	QRStory    QRTarget = "story"
	QRLandmark QRTarget = "landmark"
	QRCustom   QRTarget = "custom"
)

func (t QRTarget) Valid() bool {
	switch t {
	case QRArticle, QRStory, QRLandmark, QRCustom:
		return true
	}
	return false
}

type QRCode struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	ContentType QRTarget  `gorm:"size:20;not null" json:"content_type"`
	ArticleID   *uint     `gorm:"index" json:"article,omitempty"`
	StoryID     *uint     `gorm:"index" json:"story,omitempty"`
	LandmarkID  *uint     `gorm:"index" json:"landmark,omitempty"`
	CustomURL   string    `gorm:"size:500" json:"custom_url,omitempty"`
	ImageKey    string    `gorm:"size:500" json:"qr_image"`
	CreatedByID uuid.UUID `gorm:"type:uuid;not null;index" json:"created_by"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (q *QRCode) BeforeCreate(tx *gorm.DB) error {
	if q.UUID == uuid.Nil {
		q.UUID = uuid.New()
	}
	return nil
}
