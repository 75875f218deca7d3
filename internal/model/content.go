package model

import "time"

type ContentType string

const (
	ContentNews    ContentType = "news"
	ContentArticle ContentType = "article"
)

// Content is a published page. Its ID is a URL slug.
type Content struct {
	ID        string      `json:"id"`
	Type      ContentType `json:"type"`
	Title     string      `json:"title"`
	Body      string      `json:"body"`
	Published bool        `json:"published"`
	// AuthorID is the doctor who created the page.
	AuthorID  int64       `json:"authorId"`
	CreatedAt time.Time   `json:"createdAt"`
}

type CreateContentRequest struct {
	ID        string      `json:"id" binding:"required"`
	Type      ContentType `json:"type" binding:"required,oneof=news article"`
	Title     string      `json:"title" binding:"required"`
	Body      string      `json:"body"`
	Published bool        `json:"published"`
}

type UpdateContentRequest struct {
	Type      *ContentType `json:"type,omitempty" binding:"omitempty,oneof=news article"`
	Title     *string      `json:"title,omitempty"`
	Body      *string      `json:"body,omitempty"`
	Published *bool        `json:"published,omitempty"`
}
