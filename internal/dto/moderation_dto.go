package dto

import "github.com/naryn-heritage/heritage-backend/internal/models"

// ModerationRequest addresses one content item by kind and id.
type ModerationRequest struct {
	ContentType string `json:"content_type"`
	ObjectID    uint   `json:"object_id"`
	Comment     string `json:"comment"`
}

type CommentRequest struct {
	Comment string `json:"comment"`
}

type CreateReportRequest struct {
	ContentType string `json:"content_type"`
	ObjectID    uint   `json:"object_id"`
	Reason      string `json:"reason"`
	Details     string `json:"details"`
}

type ReviewReportRequest struct {
	Note string `json:"note"`
}

type ModerationResponse struct {
	ContentType models.Kind   `json:"content_type"`
	ObjectID    uint          `json:"object_id"`
	Status      models.Status `json:"status"`
	IsPublished bool          `json:"is_published"`
	Message     string        `json:"message"`
}

type ListResponse struct {
	Results interface{} `json:"results"`
	Total   int64       `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
}
