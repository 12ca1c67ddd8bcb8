package handler

import (
	"time"

	"github.com/msomdec/conduit/internal/domain"
)

// timeLayout is RFC 3339 with millisecond precision.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// UserDTO is the JSON representation of the authenticated user.
type UserDTO struct {
	Email    string  `json:"email"`
	Token    string  `json:"token"`
	Username string  `json:"username"`
	Bio      *string `json:"bio"`
	Image    *string `json:"image"`
}

func toUserDTO(u *domain.User, token string) UserDTO {
	return UserDTO{
		Email:    u.Email,
		Token:    token,
		Username: u.Username,
		Bio:      u.Bio,
		Image:    u.Image,
	}
}

// ProfileDTO is the JSON representation of a profile.
type ProfileDTO struct {
	Username  string  `json:"username"`
	Bio       *string `json:"bio"`
	Image     *string `json:"image"`
	Following bool    `json:"following"`
}

func toProfileDTO(p domain.Profile) ProfileDTO {
	return ProfileDTO{
		Username:  p.Username,
		Bio:       p.Bio,
		Image:     p.Image,
		Following: p.Following,
	}
}

// ArticleDTO is the JSON representation of a rich article.
type ArticleDTO struct {
	Slug           string     `json:"slug"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Body           string     `json:"body"`
	TagList        []string   `json:"tagList"`
	CreatedAt      string     `json:"createdAt"`
	UpdatedAt      string     `json:"updatedAt"`
	Favorited      bool       `json:"favorited"`
	FavoritesCount int64      `json:"favoritesCount"`
	Author         ProfileDTO `json:"author"`
}

func toArticleDTO(a *domain.RichArticle) ArticleDTO {
	tags := a.TagList
	if tags == nil {
		tags = []string{}
	}
	return ArticleDTO{
		Slug:           a.Slug,
		Title:          a.Title,
		Description:    a.Description,
		Body:           a.Body,
		TagList:        tags,
		CreatedAt:      formatTime(a.CreatedAt),
		UpdatedAt:      formatTime(a.UpdatedAt),
		Favorited:      a.Favorited,
		FavoritesCount: a.FavoritesCount,
		Author:         toProfileDTO(a.Author),
	}
}

func toArticleDTOs(articles []domain.RichArticle) []ArticleDTO {
	dtos := make([]ArticleDTO, len(articles))
	for i := range articles {
		dtos[i] = toArticleDTO(&articles[i])
	}
	return dtos
}

// CommentDTO is the JSON representation of a comment.
type CommentDTO struct {
	ID        int64      `json:"id"`
	CreatedAt string     `json:"createdAt"`
	UpdatedAt string     `json:"updatedAt"`
	Body      string     `json:"body"`
	Author    ProfileDTO `json:"author"`
}

func toCommentDTO(c *domain.CommentView) CommentDTO {
	return CommentDTO{
		ID:        c.ID,
		CreatedAt: formatTime(c.CreatedAt),
		UpdatedAt: formatTime(c.UpdatedAt),
		Body:      c.Body,
		Author:    toProfileDTO(c.Author),
	}
}

func toCommentDTOs(comments []domain.CommentView) []CommentDTO {
	dtos := make([]CommentDTO, len(comments))
	for i := range comments {
		dtos[i] = toCommentDTO(&comments[i])
	}
	return dtos
}
