package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/msomdec/conduit/internal/domain"
)

type commentRow struct {
	ID        int64     `db:"id"`
	ArticleID int64     `db:"article_id"`
	UserID    int64     `db:"user_id"`
	Body      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r *commentRow) toDomain() domain.Comment {
	return domain.Comment{
		ID:        r.ID,
		ArticleID: r.ArticleID,
		UserID:    r.UserID,
		Body:      r.Body,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type authoredCommentRow struct {
	commentRow
	AuthorUsername string         `db:"author_username"`
	AuthorEmail    string         `db:"author_email"`
	AuthorBio      sql.NullString `db:"author_bio"`
	AuthorImage    sql.NullString `db:"author_image"`
}

// commentRepo implements domain.CommentRepository.
type commentRepo struct {
	db *sqlx.DB
}

func (r *commentRepo) Create(ctx context.Context, comment *domain.Comment) error {
	now := time.Now().UTC()
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(
		`INSERT INTO comments (article_id, user_id, body, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id`),
		comment.ArticleID, comment.UserID, comment.Body, now, now,
	).Scan(&comment.ID)
	if err != nil {
		return wrapErr("insert comment", err)
	}

	comment.CreatedAt = now
	comment.UpdatedAt = now
	return nil
}

func (r *commentRepo) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	var row commentRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(
		`SELECT id, article_id, user_id, body, created_at, updated_at FROM comments WHERE id = ?`), id)
	if err != nil {
		return nil, wrapErr("query comment by id", err)
	}
	c := row.toDomain()
	return &c, nil
}

func (r *commentRepo) ListByArticle(ctx context.Context, articleID int64) ([]domain.AuthoredComment, error) {
	var rows []authoredCommentRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(
		`SELECT c.id, c.article_id, c.user_id, c.body, c.created_at, c.updated_at,
		        u.username AS author_username, u.email AS author_email,
		        u.bio AS author_bio, u.image AS author_image
		 FROM comments c
		 JOIN users u ON u.id = c.user_id
		 WHERE c.article_id = ?
		 ORDER BY c.created_at ASC, c.id ASC`), articleID)
	if err != nil {
		return nil, wrapErr("list comments", err)
	}

	result := make([]domain.AuthoredComment, len(rows))
	for i := range rows {
		result[i] = domain.AuthoredComment{
			Comment: rows[i].toDomain(),
			Author: domain.User{
				ID:       rows[i].UserID,
				Username: rows[i].AuthorUsername,
				Email:    rows[i].AuthorEmail,
				Bio:      nullableString(rows[i].AuthorBio),
				Image:    nullableString(rows[i].AuthorImage),
			},
		}
	}
	return result, nil
}

func (r *commentRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM comments WHERE id = ?`), id)
	if err != nil {
		return wrapErr("delete comment", err)
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
