package sqldb

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// relationshipRepo implements domain.RelationshipRepository. Inserts ignore
// existing edges and deletes ignore missing ones.
type relationshipRepo struct {
	db *sqlx.DB
}

func (r *relationshipRepo) Follow(ctx context.Context, followerID, followeeID int64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO follows (follower_id, followee_id) VALUES (?, ?)
		 ON CONFLICT (follower_id, followee_id) DO NOTHING`),
		followerID, followeeID)
	if err != nil {
		return wrapErr("insert follow", err)
	}
	return nil
}

func (r *relationshipRepo) Unfollow(ctx context.Context, followerID, followeeID int64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`),
		followerID, followeeID)
	if err != nil {
		return wrapErr("delete follow", err)
	}
	return nil
}

func (r *relationshipRepo) IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind(
		`SELECT COUNT(*) FROM follows WHERE follower_id = ? AND followee_id = ?`),
		followerID, followeeID)
	if err != nil {
		return false, wrapErr("query follow", err)
	}
	return count > 0, nil
}

func (r *relationshipRepo) Favorite(ctx context.Context, userID, articleID int64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO favorites (user_id, article_id) VALUES (?, ?)
		 ON CONFLICT (user_id, article_id) DO NOTHING`),
		userID, articleID)
	if err != nil {
		return wrapErr("insert favorite", err)
	}
	return nil
}

func (r *relationshipRepo) Unfavorite(ctx context.Context, userID, articleID int64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`DELETE FROM favorites WHERE user_id = ? AND article_id = ?`),
		userID, articleID)
	if err != nil {
		return wrapErr("delete favorite", err)
	}
	return nil
}

func (r *relationshipRepo) IsFavorited(ctx context.Context, userID, articleID int64) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind(
		`SELECT COUNT(*) FROM favorites WHERE user_id = ? AND article_id = ?`),
		userID, articleID)
	if err != nil {
		return false, wrapErr("query favorite", err)
	}
	return count > 0, nil
}

func (r *relationshipRepo) FavoritesCount(ctx context.Context, articleID int64) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, r.db.Rebind(
		`SELECT COUNT(*) FROM favorites WHERE article_id = ?`), articleID)
	if err != nil {
		return 0, wrapErr("count favorites", err)
	}
	return count, nil
}

type favoritesCountRow struct {
	ArticleID int64 `db:"article_id"`
	Count     int64 `db:"favorites_count"`
}

func (r *relationshipRepo) FavoritesCounts(ctx context.Context, articleIDs []int64) (map[int64]int64, error) {
	result := make(map[int64]int64, len(articleIDs))
	if len(articleIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(
		`SELECT article_id, COUNT(*) AS favorites_count FROM favorites
		 WHERE article_id IN (?) GROUP BY article_id`, articleIDs)
	if err != nil {
		return nil, fmt.Errorf("expand favorites count query: %w", err)
	}

	var rows []favoritesCountRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, wrapErr("count favorites by article ids", err)
	}
	for _, row := range rows {
		result[row.ArticleID] = row.Count
	}
	return result, nil
}

func (r *relationshipRepo) FollowingByViewer(ctx context.Context, viewerID int64, userIDs []int64) (map[int64]bool, error) {
	return r.idSet(ctx, "query follows by user ids",
		`SELECT followee_id FROM follows WHERE follower_id = ? AND followee_id IN (?)`, viewerID, userIDs)
}

func (r *relationshipRepo) FavoritedByViewer(ctx context.Context, viewerID int64, articleIDs []int64) (map[int64]bool, error) {
	return r.idSet(ctx, "query favorites by article ids",
		`SELECT article_id FROM favorites WHERE user_id = ? AND article_id IN (?)`, viewerID, articleIDs)
}

func (r *relationshipRepo) idSet(ctx context.Context, op, query string, viewerID int64, ids []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(query, viewerID, ids)
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", op, err)
	}

	var found []int64
	if err := r.db.SelectContext(ctx, &found, r.db.Rebind(query), args...); err != nil {
		return nil, wrapErr(op, err)
	}
	for _, id := range found {
		result[id] = true
	}
	return result, nil
}
