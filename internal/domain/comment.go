package domain

import (
	"context"
	"time"
)

// Comment is a reader's response attached to an article.
type Comment struct {
	ID        int64
	ArticleID int64
	UserID    int64
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuthoredComment pairs a comment with its author row.
type AuthoredComment struct {
	Comment Comment
	Author  User
}

// CommentView is a comment with its author's profile relative to a viewer.
type CommentView struct {
	Comment
	Author Profile
}

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *Comment) error
	GetByID(ctx context.Context, id int64) (*Comment, error)
	ListByArticle(ctx context.Context, articleID int64) ([]AuthoredComment, error)
	Delete(ctx context.Context, id int64) error
}
