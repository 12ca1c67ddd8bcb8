package domain

import "context"

// RelationshipRepository stores follow edges between users and favorite edges
// between users and articles. Writes are idempotent.
type RelationshipRepository interface {
	Follow(ctx context.Context, followerID, followeeID int64) error
	Unfollow(ctx context.Context, followerID, followeeID int64) error
	IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error)

	Favorite(ctx context.Context, userID, articleID int64) error
	Unfavorite(ctx context.Context, userID, articleID int64) error
	IsFavorited(ctx context.Context, userID, articleID int64) (bool, error)
	FavoritesCount(ctx context.Context, articleID int64) (int64, error)

	// Batch lookups used when hydrating a page of results. Missing keys mean
	// zero or false.
	FavoritesCounts(ctx context.Context, articleIDs []int64) (map[int64]int64, error)
	FollowingByViewer(ctx context.Context, viewerID int64, userIDs []int64) (map[int64]bool, error)
	FavoritedByViewer(ctx context.Context, viewerID int64, articleIDs []int64) (map[int64]bool, error)
}
