package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Kind discriminates the five content tables.
type Kind string

const (
	KindArticle  Kind = "article"
	KindStory    Kind = "story"
	KindLandmark Kind = "landmark"
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
)

// Kinds lists every content kind in display order.
var Kinds = []Kind{KindArticle, KindStory, KindLandmark, KindImage, KindVideo}

var ErrUnknownKind = errors.New("unknown content kind")

// ParseKind accepts a kind tag case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindArticle, KindStory, KindLandmark, KindImage, KindVideo:
		return k, nil
	}
	return "", ErrUnknownKind
}

// HasTaxonomy reports whether the kind carries a category and tags.
func (k Kind) HasTaxonomy() bool {
	switch k {
	case KindArticle, KindStory, KindLandmark:
		return true
	}
	return false
}

// ContentRef points at one row of one content table. It is a lookup key, not ownership.
type ContentRef struct {
	Kind     Kind `gorm:"column:content_kind;size:20;not null;index:,composite:content_ref,priority:1" json:"content_type"`
	ObjectID uint `gorm:"column:object_id;not null;index:,composite:content_ref,priority:2" json:"object_id"`
}

// ContentBase holds the columns every content kind shares.
type ContentBase struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UUID              uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	UserID            uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Title             string    `gorm:"size:255;not null" json:"title"`
	Status            Status    `gorm:"size:20;not null;index" json:"status"`
	IsPublished       bool      `gorm:"not null;index" json:"is_published"`
	ModerationComment string    `gorm:"type:text" json:"moderation_comment"`
	ViewCount         int64     `gorm:"not null" json:"view_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Base gives generic code access to the shared columns.
func (b *ContentBase) Base() *ContentBase { return b }

// BeforeCreate assigns the external identifier and the initial state.
func (b *ContentBase) BeforeCreate(tx *gorm.DB) error {
	if b.UUID == uuid.Nil {
		b.UUID = uuid.New()
	}
	if b.Status == "" {
		b.Status = StatusDraft
	}
	b.IsPublished = b.Status == StatusPublished && b.IsPublished
	return nil
}

// Moderatable is implemented by every content kind.
type Moderatable interface {
	Kind() Kind
	Base() *ContentBase
}

// RefOf builds the polymorphic reference for an item.
func RefOf(item Moderatable) ContentRef {
	return ContentRef{Kind: item.Kind(), ObjectID: item.Base().ID}
}

// NewContent returns an empty model for kind.
func NewContent(kind Kind) (Moderatable, error) {
	switch kind {
	case KindArticle:
		return &Article{}, nil
	case KindStory:
		return &Story{}, nil
	case KindLandmark:
		return &Landmark{}, nil
	case KindImage:
		return &Image{}, nil
	case KindVideo:
		return &Video{}, nil
	}
	return nil, ErrUnknownKind
}

// NewContentList returns a pointer to an empty slice of the kind's model,
// suitable as a GORM Find destination.
func NewContentList(kind Kind) (any, error) {
	switch kind {
	case KindArticle:
		return &[]Article{}, nil
	case KindStory:
		return &[]Story{}, nil
	case KindLandmark:
		return &[]Landmark{}, nil
	case KindImage:
		return &[]Image{}, nil
	case KindVideo:
		return &[]Video{}, nil
	}
	return nil, ErrUnknownKind
}

// Editorial holds the long-form fields of articles, stories and landmarks.
type Editorial struct {
	Slug       string    `gorm:"size:300;uniqueIndex;not null" json:"slug"`
	Body       string    `gorm:"type:text;not null" json:"content"`
	Summary    string    `gorm:"type:text" json:"summary"`
	IsFeatured bool      `gorm:"not null;default:false" json:"is_featured"`
	CategoryID *uint     `gorm:"index" json:"category"`
	Category   *Category `gorm:"foreignKey:CategoryID" json:"category_detail,omitempty"`
}

type Article struct {
	ContentBase
	Editorial
	FeaturedImage string `gorm:"size:500" json:"featured_image"`
	Tags          []Tag  `gorm:"many2many:article_tags" json:"tags"`
}

func (*Article) Kind() Kind { return KindArticle }

type Story struct {
	ContentBase
	Editorial
	Location string `gorm:"size:255" json:"location"`
	Period   string `gorm:"size:100" json:"period"`
	Tags     []Tag  `gorm:"many2many:story_tags" json:"tags"`
}

func (*Story) Kind() Kind { return KindStory }

type Landmark struct {
	ContentBase
	Editorial
	Location         string   `gorm:"size:255;not null" json:"location"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	HistoricalPeriod string   `gorm:"size:100" json:"historical_period"`
	FeaturedImage    string   `gorm:"size:500" json:"featured_image"`
	Tags             []Tag    `gorm:"many2many:landmark_tags" json:"tags"`
}

func (*Landmark) Kind() Kind { return KindLandmark }

type Image struct {
	ContentBase
	Description string `gorm:"type:text" json:"description"`
	File        string `gorm:"size:500" json:"image"`
	AltText     string `gorm:"size:255" json:"alt_text"`
}

func (*Image) Kind() Kind { return KindImage }

type Video struct {
	ContentBase
	Description     string `gorm:"type:text" json:"description"`
	VideoFile       string `gorm:"size:500" json:"video_file"`
	VideoURL        string `gorm:"size:500" json:"video_url"`
	Thumbnail       string `gorm:"size:500" json:"thumbnail"`
	DurationSeconds *int   `json:"duration"`
}

func (*Video) Kind() Kind { return KindVideo }

// TagJoin returns the many2many table and its foreign key column for kinds with tags.
func (k Kind) TagJoin() (table, column string, ok bool) {
	switch k {
	case KindArticle:
		return "article_tags", "article_id", true
	case KindStory:
		return "story_tags", "story_id", true
	case KindLandmark:
		return "landmark_tags", "landmark_id", true
	}
	return "", "", false
}

// SearchColumns lists the text columns matched by free-text queries.
func (k Kind) SearchColumns() []string {
	switch k {
	case KindArticle:
		return []string{"title", "body", "summary"}
	case KindStory:
		return []string{"title", "body", "summary", "location", "period"}
	case KindLandmark:
		return []string{"title", "body", "summary", "location", "historical_period"}
	case KindImage:
		return []string{"title", "description", "alt_text"}
	case KindVideo:
		return []string{"title", "description"}
	}
	return nil
}

// MediaKeys returns the storage keys an item references.
func MediaKeys(item Moderatable) []string {
	var keys []string
	add := func(k string) {
		if k != "" {
			keys = append(keys, k)
		}
	}
	switch v := item.(type) {
	case *Article:
		add(v.FeaturedImage)
	case *Landmark:
		add(v.FeaturedImage)
	case *Image:
		add(v.File)
	case *Video:
		add(v.VideoFile)
		add(v.Thumbnail)
	}
	return keys
}
