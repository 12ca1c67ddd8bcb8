package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/msomdec/conduit/internal/domain"
	"golang.org/x/sync/errgroup"
)

// ArticleService owns articles and composes them into rich articles: the
// article plus its author's profile, favorite count and the viewer's favorite
// and follow state.
type ArticleService struct {
	articles      domain.ArticleRepository
	users         domain.UserRepository
	relationships domain.RelationshipRepository
	maxPageLimit  int
	now           func() time.Time
}

// NewArticleService creates a new ArticleService. maxPageLimit bounds the
// page size of List and Feed; zero means domain.MaxPageLimit.
func NewArticleService(articles domain.ArticleRepository, users domain.UserRepository, relationships domain.RelationshipRepository, maxPageLimit int) *ArticleService {
	if maxPageLimit <= 0 {
		maxPageLimit = domain.MaxPageLimit
	}
	return &ArticleService{
		articles:      articles,
		users:         users,
		relationships: relationships,
		maxPageLimit:  maxPageLimit,
		now:           time.Now,
	}
}

// Get returns the article with the given slug as seen by viewer, who may be nil.
func (s *ArticleService) Get(ctx context.Context, slug string, viewer *domain.User) (*domain.RichArticle, error) {
	article, err := s.articles.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	return s.enrich(ctx, article, viewer)
}

// List returns one page of articles matching filter, newest first. The
// FollowedBy field of filter is ignored; use Feed for that.
func (s *ArticleService) List(ctx context.Context, filter domain.ArticleFilter, viewer *domain.User) (*domain.ArticlePage, error) {
	if err := s.checkPage(filter.Limit, filter.Offset); err != nil {
		return nil, err
	}
	filter.FollowedBy = 0

	rows, err := s.articles.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return s.enrichPage(ctx, rows, viewer, false)
}

// Feed returns one page of articles written by authors viewer follows.
func (s *ArticleService) Feed(ctx context.Context, viewer *domain.User, limit, offset int) (*domain.ArticlePage, error) {
	if viewer == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := s.checkPage(limit, offset); err != nil {
		return nil, err
	}

	rows, err := s.articles.List(ctx, domain.ArticleFilter{
		FollowedBy: viewer.ID,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list feed: %w", err)
	}
	return s.enrichPage(ctx, rows, viewer, true)
}

// Tags returns every tag in use, sorted.
func (s *ArticleService) Tags(ctx context.Context) ([]string, error) {
	tags, err := s.articles.Tags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// Create publishes a new article by author.
func (s *ArticleService) Create(ctx context.Context, author *domain.User, input domain.ArticleInput) (*domain.RichArticle, error) {
	if author == nil {
		return nil, domain.ErrUnauthorized
	}

	verr := &domain.ValidationError{}
	if isBlank(input.Title) {
		verr.Add("title", msgBlank)
	}
	if isBlank(input.Description) {
		verr.Add("description", msgBlank)
	}
	if isBlank(input.Body) {
		verr.Add("body", msgBlank)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	article := &domain.Article{
		AuthorID:    author.ID,
		Slug:        articleSlug(now, input.Title),
		Title:       input.Title,
		Description: input.Description,
		Body:        input.Body,
		TagList:     normalizeTags(input.TagList),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.articles.Create(ctx, article); err != nil {
		if errors.Is(err, domain.ErrDuplicateSlug) {
			return nil, domain.NewValidationError("title", msgTaken)
		}
		return nil, fmt.Errorf("create article: %w", err)
	}

	return &domain.RichArticle{
		Article: *article,
		Author:  author.Profile(false),
	}, nil
}

// Update applies patch to the article. Only the author may update it. A new
// title regenerates the slug from the original creation time.
func (s *ArticleService) Update(ctx context.Context, slug string, viewer *domain.User, patch domain.ArticlePatch) (*domain.RichArticle, error) {
	article, err := s.authorize(ctx, slug, viewer)
	if err != nil {
		return nil, err
	}

	verr := &domain.ValidationError{}
	if patch.Title != nil {
		if isBlank(*patch.Title) {
			verr.Add("title", msgBlank)
		} else if *patch.Title != article.Title {
			article.Title = *patch.Title
			article.Slug = articleSlug(article.CreatedAt, article.Title)
		}
	}
	if patch.Description != nil {
		if isBlank(*patch.Description) {
			verr.Add("description", msgBlank)
		}
		article.Description = *patch.Description
	}
	if patch.Body != nil {
		if isBlank(*patch.Body) {
			verr.Add("body", msgBlank)
		}
		article.Body = *patch.Body
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if err := s.articles.Update(ctx, article); err != nil {
		if errors.Is(err, domain.ErrDuplicateSlug) {
			return nil, domain.NewValidationError("title", msgTaken)
		}
		return nil, fmt.Errorf("update article: %w", err)
	}
	return s.enrich(ctx, article, viewer)
}

// Delete removes the article. Only the author may delete it.
func (s *ArticleService) Delete(ctx context.Context, slug string, viewer *domain.User) error {
	article, err := s.authorize(ctx, slug, viewer)
	if err != nil {
		return err
	}
	if err := s.articles.Delete(ctx, article.ID); err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	return nil
}

// Favorite marks the article as a favorite of viewer.
func (s *ArticleService) Favorite(ctx context.Context, slug string, viewer *domain.User) (*domain.RichArticle, error) {
	return s.setFavorite(ctx, slug, viewer, true)
}

// Unfavorite removes the article from viewer's favorites.
func (s *ArticleService) Unfavorite(ctx context.Context, slug string, viewer *domain.User) (*domain.RichArticle, error) {
	return s.setFavorite(ctx, slug, viewer, false)
}

func (s *ArticleService) setFavorite(ctx context.Context, slug string, viewer *domain.User, favorite bool) (*domain.RichArticle, error) {
	if viewer == nil {
		return nil, domain.ErrUnauthorized
	}

	article, err := s.articles.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}

	if favorite {
		err = s.relationships.Favorite(ctx, viewer.ID, article.ID)
	} else {
		err = s.relationships.Unfavorite(ctx, viewer.ID, article.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("set favorite: %w", err)
	}
	return s.enrich(ctx, article, viewer)
}

// authorize loads the article and checks that viewer wrote it. A missing
// article wins over a missing viewer, which wins over a wrong viewer.
func (s *ArticleService) authorize(ctx context.Context, slug string, viewer *domain.User) (*domain.Article, error) {
	article, err := s.articles.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	if viewer == nil {
		return nil, domain.ErrUnauthorized
	}
	if article.AuthorID != viewer.ID {
		return nil, domain.ErrForbidden
	}
	return article, nil
}

func (s *ArticleService) checkPage(limit, offset int) error {
	verr := &domain.ValidationError{}
	if limit < 1 || limit > s.maxPageLimit {
		verr.Add("limit", "must be between 1 and "+strconv.Itoa(s.maxPageLimit))
	}
	if offset < 0 {
		verr.Add("offset", "must not be negative")
	}
	return verr.OrNil()
}

// enrich builds the rich view of a single article. The lookups are
// independent and run concurrently.
func (s *ArticleService) enrich(ctx context.Context, article *domain.Article, viewer *domain.User) (*domain.RichArticle, error) {
	var (
		author    *domain.User
		count     int64
		favorited bool
		following bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.users.GetByID(gctx, article.AuthorID)
		if err != nil {
			return fmt.Errorf("get author: %w", err)
		}
		author = u
		return nil
	})
	g.Go(func() error {
		n, err := s.relationships.FavoritesCount(gctx, article.ID)
		if err != nil {
			return fmt.Errorf("count favorites: %w", err)
		}
		count = n
		return nil
	})
	if viewer != nil {
		g.Go(func() error {
			f, err := s.relationships.IsFavorited(gctx, viewer.ID, article.ID)
			if err != nil {
				return fmt.Errorf("check favorite: %w", err)
			}
			favorited = f
			return nil
		})
		g.Go(func() error {
			f, err := s.relationships.IsFollowing(gctx, viewer.ID, article.AuthorID)
			if err != nil {
				return fmt.Errorf("check follow: %w", err)
			}
			following = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.RichArticle{
		Article:        *article,
		Author:         author.Profile(following),
		FavoritesCount: count,
		Favorited:      favorited,
	}, nil
}

// enrichPage hydrates a page of articles with one batch query per concern.
// In a feed every author is followed by construction, so that lookup is
// skipped.
func (s *ArticleService) enrichPage(ctx context.Context, rows []domain.AuthoredArticle, viewer *domain.User, feed bool) (*domain.ArticlePage, error) {
	page := &domain.ArticlePage{Articles: make([]domain.RichArticle, 0, len(rows))}
	if len(rows) == 0 {
		return page, nil
	}

	ids := make([]int64, len(rows))
	authorIDs := make([]int64, 0, len(rows))
	seen := make(map[int64]struct{}, len(rows))
	for i, r := range rows {
		ids[i] = r.Article.ID
		if _, ok := seen[r.Article.AuthorID]; !ok {
			seen[r.Article.AuthorID] = struct{}{}
			authorIDs = append(authorIDs, r.Article.AuthorID)
		}
	}

	var (
		tags      map[int64][]string
		counts    map[int64]int64
		favorited = map[int64]bool{}
		following = map[int64]bool{}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.articles.TagsByArticleIDs(gctx, ids)
		if err != nil {
			return fmt.Errorf("load tags: %w", err)
		}
		tags = t
		return nil
	})
	g.Go(func() error {
		c, err := s.relationships.FavoritesCounts(gctx, ids)
		if err != nil {
			return fmt.Errorf("count favorites: %w", err)
		}
		counts = c
		return nil
	})
	if viewer != nil {
		g.Go(func() error {
			f, err := s.relationships.FavoritedByViewer(gctx, viewer.ID, ids)
			if err != nil {
				return fmt.Errorf("load favorites: %w", err)
			}
			favorited = f
			return nil
		})
		if !feed {
			g.Go(func() error {
				f, err := s.relationships.FollowingByViewer(gctx, viewer.ID, authorIDs)
				if err != nil {
					return fmt.Errorf("load follows: %w", err)
				}
				following = f
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range rows {
		article := r.Article
		if t, ok := tags[article.ID]; ok {
			article.TagList = t
		} else if article.TagList == nil {
			article.TagList = []string{}
		}

		page.Articles = append(page.Articles, domain.RichArticle{
			Article:        article,
			Author:         r.Author.Profile(feed || following[article.AuthorID]),
			FavoritesCount: counts[article.ID],
			Favorited:      favorited[article.ID],
		})
	}
	page.Count = len(page.Articles)
	return page, nil
}
