package domain

import (
	"context"
	"time"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Article is a stored blog post. TagList is a set; order carries no meaning.
type Article struct {
	ID          int64
	AuthorID    int64
	Slug        string
	Title       string
	Description string
	Body        string
	TagList     []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AuthoredArticle pairs an article with its author row, as returned by list queries.
type AuthoredArticle struct {
	Article Article
	Author  User
}

// RichArticle is an article enriched with its author's profile and the
// viewer-relative favorite state.
type RichArticle struct {
	Article
	Author         Profile
	FavoritesCount int64
	Favorited      bool
}

// ArticlePage is one page of rich articles. Count is the page size, not the
// number of articles matching the filter.
type ArticlePage struct {
	Articles []RichArticle
	Count    int
}

// ArticleFilter selects the base set for list queries. Non-empty filters are
// combined with AND.
type ArticleFilter struct {
	Tag         string
	Author      string
	FavoritedBy string
	// FollowedBy restricts results to authors followed by this user id (feed).
	FollowedBy int64
	Limit      int
	Offset     int
}

// ArticleInput carries the fields for a new article.
type ArticleInput struct {
	Title       string
	Description string
	Body        string
	TagList     []string
}

// ArticlePatch carries a partial article update. Nil fields are left untouched.
type ArticlePatch struct {
	Title       *string
	Description *string
	Body        *string
}

// ArticleRepository defines persistence operations for articles.
type ArticleRepository interface {
	Create(ctx context.Context, article *Article) error
	Update(ctx context.Context, article *Article) error
	Delete(ctx context.Context, id int64) error
	GetBySlug(ctx context.Context, slug string) (*Article, error)
	List(ctx context.Context, filter ArticleFilter) ([]AuthoredArticle, error)
	TagsByArticleIDs(ctx context.Context, articleIDs []int64) (map[int64][]string, error)
	Tags(ctx context.Context) ([]string, error)
}
