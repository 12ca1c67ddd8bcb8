package service

import (
	"context"
	"fmt"

	"github.com/msomdec/conduit/internal/domain"
)

// CommentService handles comments on articles.
type CommentService struct {
	articles      domain.ArticleRepository
	comments      domain.CommentRepository
	relationships domain.RelationshipRepository
}

// NewCommentService creates a new CommentService.
func NewCommentService(articles domain.ArticleRepository, comments domain.CommentRepository, relationships domain.RelationshipRepository) *CommentService {
	return &CommentService{articles: articles, comments: comments, relationships: relationships}
}

// Add posts a comment by author on the article with the given slug.
func (s *CommentService) Add(ctx context.Context, slug string, author *domain.User, body string) (*domain.CommentView, error) {
	article, err := s.articles.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	if author == nil {
		return nil, domain.ErrUnauthorized
	}
	if isBlank(body) {
		return nil, domain.NewValidationError("body", msgBlank)
	}

	comment := &domain.Comment{
		ArticleID: article.ID,
		UserID:    author.ID,
		Body:      body,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	return &domain.CommentView{Comment: *comment, Author: author.Profile(false)}, nil
}

// List returns the article's comments, oldest first, with each author's
// profile as seen by viewer.
func (s *CommentService) List(ctx context.Context, slug string, viewer *domain.User) ([]domain.CommentView, error) {
	article, err := s.articles.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}

	rows, err := s.comments.ListByArticle(ctx, article.ID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	following := map[int64]bool{}
	if viewer != nil && len(rows) > 0 {
		authorIDs := make([]int64, 0, len(rows))
		seen := make(map[int64]struct{}, len(rows))
		for _, r := range rows {
			if _, ok := seen[r.Comment.UserID]; !ok {
				seen[r.Comment.UserID] = struct{}{}
				authorIDs = append(authorIDs, r.Comment.UserID)
			}
		}
		following, err = s.relationships.FollowingByViewer(ctx, viewer.ID, authorIDs)
		if err != nil {
			return nil, fmt.Errorf("load follows: %w", err)
		}
	}

	views := make([]domain.CommentView, len(rows))
	for i, r := range rows {
		views[i] = domain.CommentView{
			Comment: r.Comment,
			Author:  r.Author.Profile(following[r.Comment.UserID]),
		}
	}
	return views, nil
}

// Delete removes a comment. The comment must belong to the article, and only
// its author may delete it; owning the article is not enough.
func (s *CommentService) Delete(ctx context.Context, slug string, id int64, viewer *domain.User) error {
	article, err := s.articles.GetBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("get article: %w", err)
	}

	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get comment: %w", err)
	}
	if comment.ArticleID != article.ID {
		return domain.ErrNotFound
	}

	if viewer == nil {
		return domain.ErrUnauthorized
	}
	if comment.UserID != viewer.ID {
		return domain.ErrForbidden
	}

	if err := s.comments.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}
