package dto

// ContentRequest carries create and update input for every content kind.
// Nil fields are left unchanged on update; fields a kind does not have are ignored.
// Multipart requests carry the same names as form values.
type ContentRequest struct {
	Title            *string  `json:"title"`
	Content          *string  `json:"content"`
	Summary          *string  `json:"summary"`
	Description      *string  `json:"description"`
	Location         *string  `json:"location"`
	Period           *string  `json:"period"`
	HistoricalPeriod *string  `json:"historical_period"`
	AltText          *string  `json:"alt_text"`
	VideoURL         *string  `json:"video_url"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	Duration         *int     `json:"duration"`
	CategoryID       *uint    `json:"category"`
	IsFeatured       *bool    `json:"is_featured"`
	TagIDs           *[]uint  `json:"tags"`
}

type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    *uint  `json:"parent"`
}

type TagRequest struct {
	Name string `json:"name"`
}

type QRCodeRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	ContentType *string `json:"content_type"`
	ArticleID   *uint   `json:"article"`
	StoryID     *uint   `json:"story"`
	LandmarkID  *uint   `json:"landmark"`
	CustomURL   *string `json:"custom_url"`
	IsActive    *bool   `json:"is_active"`
}
