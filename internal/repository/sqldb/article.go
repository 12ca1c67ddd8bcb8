package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/msomdec/conduit/internal/domain"
)

const articleColumns = `id, author_id, slug, title, description, body, created_at, updated_at`

var authoredArticleColumns = []string{
	"a.id", "a.author_id", "a.slug", "a.title", "a.description", "a.body", "a.created_at", "a.updated_at",
	"u.username AS author_username",
	"u.email AS author_email",
	"u.bio AS author_bio",
	"u.image AS author_image",
	"u.created_at AS author_created_at",
	"u.updated_at AS author_updated_at",
}

type articleRow struct {
	ID          int64     `db:"id"`
	AuthorID    int64     `db:"author_id"`
	Slug        string    `db:"slug"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Body        string    `db:"body"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r *articleRow) toDomain() domain.Article {
	return domain.Article{
		ID:          r.ID,
		AuthorID:    r.AuthorID,
		Slug:        r.Slug,
		Title:       r.Title,
		Description: r.Description,
		Body:        r.Body,
		TagList:     []string{},
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type authoredArticleRow struct {
	articleRow
	AuthorUsername  string         `db:"author_username"`
	AuthorEmail     string         `db:"author_email"`
	AuthorBio       sql.NullString `db:"author_bio"`
	AuthorImage     sql.NullString `db:"author_image"`
	AuthorCreatedAt time.Time      `db:"author_created_at"`
	AuthorUpdatedAt time.Time      `db:"author_updated_at"`
}

func (r *authoredArticleRow) author() domain.User {
	return domain.User{
		ID:        r.AuthorID,
		Username:  r.AuthorUsername,
		Email:     r.AuthorEmail,
		Bio:       nullableString(r.AuthorBio),
		Image:     nullableString(r.AuthorImage),
		CreatedAt: r.AuthorCreatedAt,
		UpdatedAt: r.AuthorUpdatedAt,
	}
}

type articleTagRow struct {
	ArticleID int64  `db:"article_id"`
	Tag       string `db:"tag"`
}

// articleRepo implements domain.ArticleRepository.
type articleRepo struct {
	db          *sqlx.DB
	placeholder sq.PlaceholderFormat
}

// Create inserts the article and its tags in one transaction. CreatedAt and
// UpdatedAt are taken from the article when set so that the caller can derive
// the slug from the same instant.
func (r *articleRepo) Create(ctx context.Context, article *domain.Article) error {
	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now().UTC()
	}
	if article.UpdatedAt.IsZero() {
		article.UpdatedAt = article.CreatedAt
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapErr("begin tx", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx, tx.Rebind(
		`INSERT INTO articles (author_id, slug, title, description, body, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`),
		article.AuthorID, article.Slug, article.Title, article.Description, article.Body,
		article.CreatedAt, article.UpdatedAt,
	).Scan(&article.ID)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return domain.ErrDuplicateSlug
		}
		return wrapErr("insert article", err)
	}

	for _, tag := range article.TagList {
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO article_tags (article_id, tag) VALUES (?, ?)
			 ON CONFLICT (article_id, tag) DO NOTHING`),
			article.ID, tag,
		); err != nil {
			return wrapErr("insert article tag", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("commit", err)
	}
	return nil
}

func (r *articleRepo) Update(ctx context.Context, article *domain.Article) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE articles SET slug = ?, title = ?, description = ?, body = ?, updated_at = ?
		 WHERE id = ?`),
		article.Slug, article.Title, article.Description, article.Body, now, article.ID,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return domain.ErrDuplicateSlug
		}
		return wrapErr("update article", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return wrapErr("rows affected", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	article.UpdatedAt = now
	return nil
}

// Delete removes the article; tags, favorites and comments go with it through
// ON DELETE CASCADE.
func (r *articleRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM articles WHERE id = ?`), id)
	if err != nil {
		return wrapErr("delete article", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return wrapErr("rows affected", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *articleRepo) GetBySlug(ctx context.Context, slug string) (*domain.Article, error) {
	var row articleRow
	err := r.db.GetContext(ctx, &row,
		r.db.Rebind(`SELECT `+articleColumns+` FROM articles WHERE slug = ?`), slug)
	if err != nil {
		return nil, wrapErr("query article by slug", err)
	}

	article := row.toDomain()
	tags, err := r.TagsByArticleIDs(ctx, []int64{article.ID})
	if err != nil {
		return nil, err
	}
	if t, ok := tags[article.ID]; ok {
		article.TagList = t
	}
	return &article, nil
}

// List runs the base query for list and feed endpoints: articles joined to
// their authors, filtered, newest first, one page. Tags are not loaded here.
func (r *articleRepo) List(ctx context.Context, filter domain.ArticleFilter) ([]domain.AuthoredArticle, error) {
	query, args, err := r.listQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	var rows []authoredArticleRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, wrapErr("list articles", err)
	}

	result := make([]domain.AuthoredArticle, len(rows))
	for i := range rows {
		result[i] = domain.AuthoredArticle{
			Article: rows[i].toDomain(),
			Author:  rows[i].author(),
		}
	}
	return result, nil
}

func (r *articleRepo) listQuery(filter domain.ArticleFilter) sq.SelectBuilder {
	q := sq.Select(authoredArticleColumns...).
		From("articles a").
		Join("users u ON u.id = a.author_id")

	if filter.Author != "" {
		q = q.Where(sq.Eq{"u.username": filter.Author})
	}
	if filter.Tag != "" {
		q = q.Where("a.id IN (SELECT t.article_id FROM article_tags t WHERE t.tag = ?)", filter.Tag)
	}
	if filter.FavoritedBy != "" {
		q = q.Where(`a.id IN (SELECT fav.article_id FROM favorites fav
			JOIN users fu ON fu.id = fav.user_id WHERE fu.username = ?)`, filter.FavoritedBy)
	}
	if filter.FollowedBy != 0 {
		q = q.Where("a.author_id IN (SELECT fl.followee_id FROM follows fl WHERE fl.follower_id = ?)", filter.FollowedBy)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultPageLimit
	}
	q = q.OrderBy("a.created_at DESC", "a.id DESC").Limit(uint64(limit))
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q.PlaceholderFormat(r.placeholder)
}

// TagsByArticleIDs loads the tag sets for a batch of articles in one query.
func (r *articleRepo) TagsByArticleIDs(ctx context.Context, articleIDs []int64) (map[int64][]string, error) {
	result := make(map[int64][]string, len(articleIDs))
	if len(articleIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(
		`SELECT article_id, tag FROM article_tags WHERE article_id IN (?) ORDER BY article_id, tag`, articleIDs)
	if err != nil {
		return nil, fmt.Errorf("expand tag query: %w", err)
	}

	var rows []articleTagRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, wrapErr("query tags by article ids", err)
	}
	for _, row := range rows {
		result[row.ArticleID] = append(result[row.ArticleID], row.Tag)
	}
	return result, nil
}

func (r *articleRepo) Tags(ctx context.Context) ([]string, error) {
	tags := []string{}
	if err := r.db.SelectContext(ctx, &tags, `SELECT DISTINCT tag FROM article_tags ORDER BY tag`); err != nil {
		return nil, wrapErr("query tags", err)
	}
	return tags, nil
}
